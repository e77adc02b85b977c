package musicmind

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ncecere/musicmind/provider"
	"github.com/ncecere/musicmind/registry"
)

// Aliases to provider-level types so users can work through the
// musicmind package while implementations share the provider interfaces.
type (
	// AudioModel is a remote audio-language model deployment.
	AudioModel = provider.AudioModel
	// InputError reports a missing or unreadable local file.
	InputError = provider.InputError
	// ConnectivityError reports that the endpoint could not be reached.
	ConnectivityError = provider.ConnectivityError
	// RemoteError reports a non-2xx status or a malformed response body.
	RemoteError = provider.RemoteError
	// Operation describes a route exposed by the remote deployment.
	Operation = registry.Operation
)

// Operation names accepted by Run and the CLI.
const (
	OpAnalyze    = registry.OpAnalyze
	OpPartyVibe  = registry.OpPartyVibe
	OpTranscribe = registry.OpTranscribe
	OpCaption    = registry.OpCaption
	OpHealth     = registry.OpHealth
)

// Request is a single call to the remote service.
type Request struct {
	// Model is the deployment that serves the call.
	Model AudioModel
	// Operation is the operation name, e.g. OpAnalyze.
	Operation string
	// FilePath is the local audio file. Ignored by OpHealth.
	FilePath string
	// Prompt is an optional free-text prompt override.
	Prompt string
}

var defaultRegistry = registry.NewDefault()

// Run performs req against the built-in operation catalog.
//
// Errors:
//   - ErrMissingModel if req.Model is nil.
//   - *registry.NoSuchOperationError for unknown operation names.
//   - *InputError if the operation uploads a file and FilePath is
//     empty, missing or unreadable. No network call is made.
//   - *ConnectivityError or *RemoteError from the model.
func Run(ctx context.Context, req Request) (Result, error) {
	return RunWithRegistry(ctx, defaultRegistry, req.Operation, req)
}

// RunWithRegistry is like Run but resolves the operation name through
// reg. Any Operation value in req is ignored and replaced with name.
// GET operations go to the model's health probe; every other method
// uploads req.FilePath.
//
// Errors:
//   - InvalidArgumentError if reg is nil.
//   - Any error returned by reg.Operation.
//   - Any error described on Run.
func RunWithRegistry(ctx context.Context, reg registry.Registry, name string, req Request) (Result, error) {
	if reg == nil {
		return nil, &InvalidArgumentError{Parameter: "reg", Value: nil, Message: "registry must not be nil"}
	}
	if req.Model == nil {
		return nil, ErrMissingModel
	}

	op, err := reg.Operation(name)
	if err != nil {
		return nil, err
	}

	if op.Method == http.MethodGet {
		res, err := req.Model.Health(ctx)
		if err != nil {
			return nil, err
		}
		return Result(res.Fields), nil
	}

	f, err := openAudio(req.FilePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := req.Model.Invoke(ctx, &provider.AudioRequest{
		Operation: op.Name,
		Audio:     f,
		FileName:  filepath.Base(req.FilePath),
		Prompt:    req.Prompt,
	})
	if err != nil {
		return nil, err
	}
	return Result(res.Fields), nil
}

// openAudio opens path for upload, reporting every failure as an
// *InputError.
func openAudio(path string) (*os.File, error) {
	if path == "" {
		return nil, &InputError{Err: ErrMissingFile}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &InputError{Path: path, Err: provider.ErrNotRegularFile}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return f, nil
}

// Analyze runs a full music analysis: genre, mood, energy, use case,
// similar artists and production notes. The response usually carries
// "analysis", "tempo_bpm" and "duration_seconds".
func Analyze(ctx context.Context, model AudioModel, path, prompt string) (Result, error) {
	return Run(ctx, Request{Model: model, Operation: OpAnalyze, FilePath: path, Prompt: prompt})
}

// PartyVibe rates a track for a party and returns a one-line verdict in
// "analysis".
func PartyVibe(ctx context.Context, model AudioModel, path, prompt string) (Result, error) {
	return Run(ctx, Request{Model: model, Operation: OpPartyVibe, FilePath: path, Prompt: prompt})
}

// Transcribe extracts lyrics into "lyrics".
func Transcribe(ctx context.Context, model AudioModel, path, prompt string) (Result, error) {
	return Run(ctx, Request{Model: model, Operation: OpTranscribe, FilePath: path, Prompt: prompt})
}

// Caption generates a social media caption into "analysis".
func Caption(ctx context.Context, model AudioModel, path, prompt string) (Result, error) {
	return Run(ctx, Request{Model: model, Operation: OpCaption, FilePath: path, Prompt: prompt})
}

// Health probes the deployment and returns its status payload
// unchanged. It never touches the filesystem, which makes it a cheap
// check before a paid inference call.
func Health(ctx context.Context, model AudioModel) (Result, error) {
	return Run(ctx, Request{Model: model, Operation: OpHealth})
}
