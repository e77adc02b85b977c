package providerutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncecere/musicmind/provider"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 8 * 1024

// ReadJSON decodes a JSON object response body and closes the body.
//
// If the response status code is not in the 2xx range, or the body is
// not a JSON object, ReadJSON returns a *provider.RemoteError carrying
// the status, the truncated body and, when the body is a JSON object,
// its "error" or "detail" field. Numbers are decoded as json.Number so
// they survive re-encoding unchanged.
func ReadJSON(resp *http.Response, requestID string) (map[string]any, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &provider.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(b),
			Body:       strings.TrimSpace(string(b)),
			RequestID:  requestID,
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	out, err := decodeObject(b)
	if err != nil {
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody]
		}
		return nil, &provider.RemoteError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
			Malformed:  true,
			RequestID:  requestID,
		}
	}
	return out, nil
}

func decodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("providerutil: response is not a JSON object")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("providerutil: trailing data after JSON object")
	}
	return out, nil
}

// errorMessage extracts a human-readable message from a JSON error body
// such as {"error": "..."} or FastAPI's {"detail": "..."}.
func errorMessage(b []byte) string {
	obj, err := decodeObject(b)
	if err != nil {
		return ""
	}
	for _, key := range []string{"error", "detail", "message"} {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case nil:
		default:
			enc, err := json.Marshal(v)
			if err == nil {
				return string(enc)
			}
		}
	}
	return ""
}

// WriteMultipart writes a multipart/form-data body with a single file
// part followed by the given plain form fields. Empty field values are
// skipped. It returns the Content-Type header value for the body.
func WriteMultipart(w io.Writer, fileField, fileName string, file io.Reader, fields map[string]string) (string, error) {
	mw := multipart.NewWriter(w)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filepath.Base(fileName)))
	h.Set("Content-Type", ContentTypeFor(fileName))
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}

	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}

	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

// ContentTypeFor guesses an audio content type from a file extension.
func ContentTypeFor(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// DefaultTimeout bounds a whole request, upload included, when the
// default HTTP client is used.
const DefaultTimeout = 120 * time.Second

// DefaultHTTPClient returns the default HTTP client used when none is provided.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}
