package client

import (
	"context"
	"errors"
	"fmt"
)

// ErrConfiguration is wrapped by every configuration error.
var ErrConfiguration = errors.New("configuration error")

// ErrorClass classifies failed requests for metrics and logs.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// classify returns the error class of a status code, or "" for success.
func classify(statusCode int) ErrorClass {
	switch {
	case statusCode >= 500:
		return ErrorClassServer
	case statusCode >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// ConfigurationError reports an invalid client configuration or a request
// the client cannot issue. It is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// UnknownContentTypeError reports a response whose Content-Type is neither
// JSON nor XML.
type UnknownContentTypeError struct {
	ContentType string
}

// Error implements the error interface.
func (e *UnknownContentTypeError) Error() string {
	return fmt.Sprintf("unknown content type: %q", e.ContentType)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *UnknownContentTypeError) Unwrap() error {
	return ErrConfiguration
}

// TransportError wraps a failure to obtain any response from the server.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying. Cancellation by
// the caller is not.
func (e *TransportError) Transient() bool {
	return !errors.Is(e.Err, context.Canceled)
}
