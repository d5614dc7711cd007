package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request is a single dispatch handed to a Transport.
type Request struct {
	Method string
	URL    string
	Params url.Values

	// Timeout bounds the whole exchange; zero means no timeout.
	Timeout time.Duration
}

// RawResponse is what a Transport returns for any completed exchange,
// whatever its status code.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs HTTP exchanges. It does not retry; retries are the
// concern of the batch and page runners. Client.Do wraps any error other than
// a *ConfigurationError in a *TransportError, which the runners treat as
// transient unless it wraps context.Canceled.
type Transport interface {
	Perform(ctx context.Context, req Request) (*RawResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (*RawResponse, error)

// Perform implements Transport.
func (f TransportFunc) Perform(ctx context.Context, req Request) (*RawResponse, error) {
	return f(ctx, req)
}

// HTTPTransport is the net/http Transport. GET requests carry the parameters
// in the query string, POST requests as a form-encoded body.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps httpClient; nil uses a fresh http.Client.
func NewHTTPTransport(httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPTransport{client: httpClient}
}

// Perform implements Transport.
func (t *HTTPTransport) Perform(ctx context.Context, req Request) (*RawResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var (
		httpReq *http.Request
		err     error
	)
	switch req.Method {
	case http.MethodGet:
		target := req.URL
		if encoded := req.Params.Encode(); encoded != "" {
			target += "?" + encoded
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	case http.MethodPost:
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, req.URL, strings.NewReader(req.Params.Encode()))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		return nil, &ConfigurationError{Field: "method", Reason: fmt.Sprintf("incorrect query method %q", req.Method)}
	}
	if err != nil {
		return nil, &ConfigurationError{Field: "url", Reason: err.Error()}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: fmt.Errorf("read body: %w", err)}
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
