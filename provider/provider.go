package provider

import (
	"context"
	"io"
	"net/http"
)

// HTTPClient is the minimal interface required from an HTTP client.
// It matches the Do method on *http.Client and allows callers to
// substitute custom clients or test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOptions are shared options for audio model clients.
type ClientOptions struct {
	// BaseURL is the root URL of the remote inference service. When
	// empty, implementations fall back to their environment variable
	// and then to a built-in default.
	BaseURL string
	// HTTPClient is the underlying HTTP client. If nil, a default
	// client should be used by the implementation.
	HTTPClient HTTPClient
	// Headers contains additional HTTP headers attached to every
	// outbound request.
	Headers http.Header
}

// AudioModel is the provider-level interface for a remote
// audio-language model deployment.
type AudioModel interface {
	// Invoke uploads the request audio to the named operation and
	// returns the decoded JSON response.
	Invoke(ctx context.Context, req *AudioRequest) (*AudioResponse, error)
	// Health probes the deployment without uploading anything.
	Health(ctx context.Context) (*AudioResponse, error)
}

// AudioRequest describes a single upload to the remote service.
type AudioRequest struct {
	// Operation is the remote path segment, e.g. "analyze" or "party-vibe".
	Operation string
	// Audio is the file payload. Implementations read it to EOF but do
	// not close it.
	Audio io.Reader
	// FileName is the original file name sent with the multipart part.
	FileName string
	// Prompt is an optional free-text prompt override.
	Prompt string
}

// AudioResponse is a decoded response from the remote service.
type AudioResponse struct {
	// Fields is the JSON object returned by the service. Numbers are
	// kept as json.Number.
	Fields map[string]any
	// StatusCode is the HTTP status returned by the service.
	StatusCode int
	// RequestID is the correlation ID sent with the request.
	RequestID string
}
