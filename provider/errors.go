package provider

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
)

// InputError reports a problem with a local input file. It is always
// returned before any network call is attempted.
type InputError struct {
	// Path is the file path supplied by the caller.
	Path string
	// Err is the underlying filesystem error.
	Err error
}

func (e *InputError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path == "" {
		return e.Err.Error()
	}
	if errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("musicmind: file not found: %s", e.Path)
	}
	return fmt.Sprintf("musicmind: cannot read file %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

var (
	// ErrMissingFile is wrapped by an InputError when an operation that
	// uploads audio is called without a file path.
	ErrMissingFile = errors.New("musicmind: audio file path is required")

	// ErrNotRegularFile is wrapped by an InputError when the path names
	// a directory or other non-regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)

// ConnectivityError reports that the endpoint could not be reached:
// DNS failures, refused connections, timeouts or cancellation before a
// response arrived.
type ConnectivityError struct {
	// Operation is the operation being attempted.
	Operation string
	// URL is the full request URL.
	URL string
	// Err is the transport error.
	Err error
}

func (e *ConnectivityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("musicmind: endpoint unreachable (%s %s): %v", e.Operation, e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout.
func (e *ConnectivityError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// RemoteError reports that the endpoint answered but the answer was a
// failure: a non-2xx status or a body that is not a JSON object.
type RemoteError struct {
	// StatusCode is the HTTP status returned by the service.
	StatusCode int
	// Message is the "error" or "detail" field of a JSON error body, if any.
	Message string
	// Body is the raw response body, truncated.
	Body string
	// Malformed is set when a 2xx response could not be decoded.
	Malformed bool
	// RequestID is the correlation ID sent with the request.
	RequestID string
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Malformed {
		return fmt.Sprintf("musicmind: remote error (status %d): malformed JSON response: %s", e.StatusCode, e.detail())
	}
	return fmt.Sprintf("musicmind: remote error (status %d): %s", e.StatusCode, e.detail())
}

func (e *RemoteError) detail() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Body != "":
		return e.Body
	default:
		return "remote processing failed"
	}
}
