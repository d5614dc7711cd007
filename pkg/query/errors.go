package query

import (
	"errors"
	"fmt"
)

// ErrValidation is the sentinel wrapped by every ValidationError.
var ErrValidation = errors.New("query validation failed")

// ValidationError reports a descriptor that cannot be constructed.
type ValidationError struct {
	// Query is the descriptor name (e.g. "SearchQuery"); empty for helpers.
	Query  string
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Query, e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(kind Kind, field, format string, args ...any) error {
	return &ValidationError{
		Query:  kind.QueryName(),
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
