package flamingo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ncecere/musicmind/provider"
	"github.com/ncecere/musicmind/providerutil"
)

const (
	// EnvEndpoint names the environment variable holding the default
	// endpoint base URL.
	EnvEndpoint = "MUSICMIND_ENDPOINT"

	// DefaultEndpoint is the public Audio Flamingo deployment.
	DefaultEndpoint = "https://themindexpansionnetwork--audio-flamingo-music-fastapi-app.modal.run"

	// HealthTimeout bounds a health probe.
	HealthTimeout = 10 * time.Second

	// RequestIDHeader carries a per-request correlation ID.
	RequestIDHeader = "X-Request-Id"
)

// Client talks to a serverless Audio Flamingo deployment.
//
// The deployment exposes one multipart POST route per operation plus a
// GET /health route. Client performs exactly one round trip per call
// and never retries.
type Client struct {
	baseURL    string
	httpClient provider.HTTPClient
	headers    http.Header
}

// ResolveEndpoint applies the endpoint precedence: an explicit override,
// then MUSICMIND_ENDPOINT, then DefaultEndpoint. Trailing slashes are
// trimmed.
func ResolveEndpoint(override string) string {
	baseURL := strings.TrimSpace(override)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv(EnvEndpoint))
		if baseURL == "" {
			baseURL = DefaultEndpoint
		}
	}
	return strings.TrimRight(baseURL, "/")
}

// NewClient creates a new client.
//
// Environment variables:
//   - MUSICMIND_ENDPOINT (optional, used if opts.BaseURL is empty;
//     defaults to DefaultEndpoint)
func NewClient(opts provider.ClientOptions) (*Client, error) {
	baseURL := ResolveEndpoint(opts.BaseURL)
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("flamingo: invalid endpoint %q: must be an absolute http(s) URL", baseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = providerutil.DefaultHTTPClient()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: hc,
		headers:    opts.Headers,
	}, nil
}

// Endpoint returns the resolved base URL.
func (c *Client) Endpoint() string {
	return c.baseURL
}

func (c *Client) operationURL(op string) string {
	return c.baseURL + "/" + strings.TrimLeft(op, "/")
}

// Invoke implements provider.AudioModel.
func (c *Client) Invoke(ctx context.Context, req *provider.AudioRequest) (*provider.AudioResponse, error) {
	if req == nil || req.Operation == "" {
		return nil, fmt.Errorf("flamingo: missing operation")
	}
	if req.Audio == nil {
		return nil, &provider.InputError{Path: req.FileName, Err: provider.ErrMissingFile}
	}

	var body bytes.Buffer
	contentType, err := providerutil.WriteMultipart(&body, "file", req.FileName, req.Audio, map[string]string{
		"prompt": req.Prompt,
	})
	if err != nil {
		return nil, &provider.InputError{Path: req.FileName, Err: err}
	}

	endpoint := c.operationURL(req.Operation)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	requestID := c.prepare(httpReq)
	httpReq.Header.Set("Content-Type", contentType)

	return c.do(httpReq, req.Operation, requestID)
}

// Health implements provider.AudioModel. It issues a bodiless GET
// bounded by HealthTimeout.
func (c *Client) Health(ctx context.Context) (*provider.AudioResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.operationURL("health"), nil)
	if err != nil {
		return nil, err
	}
	requestID := c.prepare(httpReq)

	return c.do(httpReq, "health", requestID)
}

// prepare attaches custom headers first and then the required ones.
func (c *Client) prepare(httpReq *http.Request) string {
	for k, vs := range c.headers {
		for _, v := range vs {
			if v == "" {
				continue
			}
			httpReq.Header.Add(k, v)
		}
	}
	requestID := httpReq.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		httpReq.Header.Set(RequestIDHeader, requestID)
	}
	httpReq.Header.Set("Accept", "application/json")
	return requestID
}

func (c *Client) do(httpReq *http.Request, op, requestID string) (*provider.AudioResponse, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &provider.ConnectivityError{Operation: op, URL: httpReq.URL.String(), Err: err}
	}

	fields, err := providerutil.ReadJSON(resp, requestID)
	if err != nil {
		var remoteErr *provider.RemoteError
		if errors.As(err, &remoteErr) {
			return nil, err
		}
		// The body was cut off mid-read.
		return nil, &provider.ConnectivityError{Operation: op, URL: httpReq.URL.String(), Err: err}
	}
	return &provider.AudioResponse{
		Fields:     fields,
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
	}, nil
}

// WithHTTPTimeout is a helper returning an HTTP client with a custom timeout.
func WithHTTPTimeout(d time.Duration) provider.HTTPClient {
	return &http.Client{Timeout: d}
}
