// Package errs provides the small error-kind taxonomy shared across
// stemsmith's core packages, so callers (CLI and HTTP alike) can branch on
// failure category without parsing messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies the category of a failure.
type Kind string

const (
	InvalidInput       Kind = "invalid_input"
	NotFound           Kind = "not_found"
	CacheError         Kind = "cache_error"
	FetcherError       Kind = "fetcher_error"
	ProcessingError    Kind = "processing_error"
	Cancelled          Kind = "cancelled"
	Shutdown           Kind = "shutdown"
	ConfigurationError Kind = "configuration_error"
)

// Error carries a classification alongside a message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error that wraps an existing error as its cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind, satisfying
// errors.Is(err, errs.New(kind, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Of reports the Kind of err, or "" if err is not an *Error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
