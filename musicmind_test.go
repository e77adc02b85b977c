package musicmind

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/musicmind/flamingo"
	"github.com/ncecere/musicmind/provider"
	"github.com/ncecere/musicmind/registry"
)

type recordedUpload struct {
	Method    string
	Path      string
	FileParts int
	FileName  string
	FileBytes []byte
	Prompt    []string
}

func newRecordingServer(t *testing.T, calls *int32, uploads chan<- recordedUpload, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		rec := recordedUpload{Method: r.Method, Path: r.URL.Path}
		if r.Method == http.MethodPost {
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			files := r.MultipartForm.File["file"]
			rec.FileParts = len(files)
			if len(files) > 0 {
				rec.FileName = files[0].Filename
				f, err := files[0].Open()
				if err == nil {
					rec.FileBytes, _ = io.ReadAll(f)
					f.Close()
				}
			}
			rec.Prompt = r.MultipartForm.Value["prompt"]
		}
		if uploads != nil {
			uploads <- rec
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newModel(t *testing.T, ts *httptest.Server) AudioModel {
	t.Helper()
	client, err := flamingo.NewClient(provider.ClientOptions{
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)
	return client
}

func writeAudio(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x64}, size/4)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestContentOperations_SendOneFilePartToOperationPath(t *testing.T) {
	ctx := context.Background()
	var calls int32
	uploads := make(chan recordedUpload, 1)
	ts := newRecordingServer(t, &calls, uploads, `{"analysis":"ok"}`)
	model := newModel(t, ts)
	path := writeAudio(t, "song.mp3", 1024)

	helpers := map[string]func(context.Context, AudioModel, string, string) (Result, error){
		OpAnalyze:    Analyze,
		OpPartyVibe:  PartyVibe,
		OpTranscribe: Transcribe,
		OpCaption:    Caption,
	}

	for op, fn := range helpers {
		for _, prompt := range []string{"", "Rate this for a wedding"} {
			res, err := fn(ctx, model, path, prompt)
			require.NoError(t, err, op)
			require.Equal(t, "ok", res.Analysis())

			rec := <-uploads
			require.Equal(t, http.MethodPost, rec.Method)
			require.Equal(t, "/"+op, rec.Path)
			require.Equal(t, 1, rec.FileParts)
			require.Equal(t, "song.mp3", rec.FileName)
			require.Len(t, rec.FileBytes, 1024)
			if prompt == "" {
				require.Empty(t, rec.Prompt, "%s: prompt part must be omitted", op)
			} else {
				require.Equal(t, []string{prompt}, rec.Prompt)
			}
		}
	}
	require.Equal(t, int32(8), atomic.LoadInt32(&calls))
}

func TestHealth_IssuesBodilessGetWithoutFile(t *testing.T) {
	var calls int32
	var gotMethod, gotPath string
	var gotLen int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotMethod, gotPath = r.Method, r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotLen = int64(len(b))
		fmt.Fprint(w, `{"status":"healthy","model":"audio-flamingo-3","cached":true}`)
	}))
	defer ts.Close()

	res, err := Health(context.Background(), newModel(t, ts))
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, gotMethod)
	require.Equal(t, "/health", gotPath)
	require.Zero(t, gotLen)
	require.Equal(t, Result{"status": "healthy", "model": "audio-flamingo-3", "cached": true}, res)
	require.Equal(t, int32(1), calls)
}

func TestRun_MissingFileMakesNoNetworkCall(t *testing.T) {
	var calls int32
	ts := newRecordingServer(t, &calls, nil, `{"analysis":"never"}`)
	model := newModel(t, ts)

	missing := filepath.Join(t.TempDir(), "nope.mp3")
	for _, op := range []string{OpAnalyze, OpPartyVibe, OpTranscribe, OpCaption} {
		_, err := Run(context.Background(), Request{Model: model, Operation: op, FilePath: missing})
		var inputErr *InputError
		require.True(t, errors.As(err, &inputErr), "%s: got %v", op, err)
		require.ErrorIs(t, err, os.ErrNotExist)
		require.Contains(t, err.Error(), "file not found")
	}

	_, err := Analyze(context.Background(), model, "", "")
	require.ErrorIs(t, err, ErrMissingFile)

	_, err = Analyze(context.Background(), model, t.TempDir(), "")
	require.ErrorIs(t, err, provider.ErrNotRegularFile)

	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestRun_ValidatesModelAndOperation(t *testing.T) {
	_, err := Run(context.Background(), Request{Operation: OpHealth})
	require.ErrorIs(t, err, ErrMissingModel)

	var calls int32
	ts := newRecordingServer(t, &calls, nil, `{}`)
	_, err = Run(context.Background(), Request{Model: newModel(t, ts), Operation: "remix"})
	var noOp *registry.NoSuchOperationError
	require.ErrorAs(t, err, &noOp)
	require.Equal(t, "remix", noOp.Name)

	_, err = RunWithRegistry(context.Background(), nil, OpHealth, Request{Model: newModel(t, ts)})
	var argErr *InvalidArgumentError
	require.ErrorAs(t, err, &argErr)
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestRunWithRegistry_CustomOperation(t *testing.T) {
	var calls int32
	uploads := make(chan recordedUpload, 1)
	ts := newRecordingServer(t, &calls, uploads, `{"analysis":"stems split"}`)

	reg := registry.NewDefault()
	require.NoError(t, reg.Register(registry.Operation{Name: "stems", Title: "STEMS"}))

	res, err := RunWithRegistry(context.Background(), reg, "stems", Request{
		Model:    newModel(t, ts),
		FilePath: writeAudio(t, "mix.wav", 64),
	})
	require.NoError(t, err)
	require.Equal(t, "stems split", res.Analysis())
	require.Equal(t, "/stems", (<-uploads).Path)
}

type fixedRegistry struct {
	op registry.Operation
}

func (f fixedRegistry) Operation(name string) (registry.Operation, error) {
	if name != f.op.Name {
		return registry.Operation{}, &registry.NoSuchOperationError{Name: name}
	}
	return f.op, nil
}

func (f fixedRegistry) Operations() []registry.Operation { return []registry.Operation{f.op} }

func (f fixedRegistry) Register(registry.Operation) error { return nil }

func TestRunWithRegistry_RoutesOnMethod(t *testing.T) {
	var calls int32
	uploads := make(chan recordedUpload, 1)
	ts := newRecordingServer(t, &calls, uploads, `{"status":"healthy"}`)
	model := newModel(t, ts)

	getOp := fixedRegistry{op: registry.Operation{Name: "status", Method: http.MethodGet, RequiresFile: true}}
	res, err := RunWithRegistry(context.Background(), getOp, "status", Request{Model: model})
	require.NoError(t, err)
	require.Equal(t, "healthy", res["status"])
	rec := <-uploads
	require.Equal(t, http.MethodGet, rec.Method)
	require.Equal(t, "/health", rec.Path)

	postOp := fixedRegistry{op: registry.Operation{Name: "stems", Method: http.MethodPost, RequiresFile: false}}
	_, err = RunWithRegistry(context.Background(), postOp, "stems", Request{Model: model})
	require.ErrorIs(t, err, ErrMissingFile)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = RunWithRegistry(context.Background(), postOp, "stems", Request{Model: model, FilePath: writeAudio(t, "mix.wav", 32)})
	require.NoError(t, err)
	rec = <-uploads
	require.Equal(t, http.MethodPost, rec.Method)
	require.Equal(t, "/stems", rec.Path)
}

func TestRun_RemoteErrorCarriesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"CUDA out of memory"}`)
	}))
	defer ts.Close()

	_, err := Analyze(context.Background(), newModel(t, ts), writeAudio(t, "a.wav", 16), "")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
	require.Equal(t, "CUDA out of memory", remoteErr.Message)
	require.Contains(t, err.Error(), "CUDA out of memory")
}

func TestRun_UnreachableEndpointIsConnectivityError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	model := newModel(t, ts)
	ts.Close()

	_, err := Caption(context.Background(), model, writeAudio(t, "a.mp3", 16), "")
	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, OpCaption, connErr.Operation)

	var remoteErr *RemoteError
	require.False(t, errors.As(err, &remoteErr))
}

func TestResult_PreservesNumbersAndDecodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"analysis":"Upbeat house track","tempo_bpm":128.0,"duration_seconds":30,"vibe_check":true,"extra":{"key":"A minor"}}`)
	}))
	defer ts.Close()

	res, err := PartyVibe(context.Background(), newModel(t, ts), writeAudio(t, "a.mp3", 16), "")
	require.NoError(t, err)

	tempo, ok := res.TempoBPM()
	require.True(t, ok)
	require.Equal(t, 128.0, tempo)

	out, err := res.JSON()
	require.NoError(t, err)
	require.Contains(t, string(out), `"tempo_bpm": 128.0`)

	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTrip))
	require.Equal(t, "A minor", roundTrip["extra"].(map[string]any)["key"])

	view := res.View()
	require.Equal(t, "Upbeat house track", view.Analysis)
	require.NotNil(t, view.TempoBPM)
	require.Equal(t, 128.0, *view.TempoBPM)
	require.NotNil(t, view.DurationSeconds)
	require.Equal(t, 30.0, *view.DurationSeconds)
	require.True(t, view.VibeCheck)
}

func TestResult_ToleratesMissingAndOddFields(t *testing.T) {
	res := Result{"lyrics": "la la la", "tempo_bpm": "n/a", "analysis": map[string]any{"nested": true}}

	require.Equal(t, "", res.Analysis())
	require.Equal(t, "la la la", res.Lyrics())
	_, ok := res.TempoBPM()
	require.False(t, ok)

	view := res.View()
	require.Equal(t, "la la la", view.Lyrics)
	require.Nil(t, view.DurationSeconds)

	var custom struct {
		Lyrics string `mapstructure:"lyrics"`
	}
	require.NoError(t, Result{"lyrics": "hey"}.Decode(&custom))
	require.Equal(t, "hey", custom.Lyrics)

	require.True(t, strings.HasPrefix(string(mustJSON(t, nil)), "{}"))
}

func mustJSON(t *testing.T, r Result) []byte {
	t.Helper()
	b, err := r.JSON()
	require.NoError(t, err)
	return b
}
