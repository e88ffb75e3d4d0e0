// Package errs defines the error taxonomy shared by every deskcore
// component. Handlers at the HTTP boundary map a Kind to a status code
// exactly once; internal callers should compare Kind, not error strings.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of HTTP status mapping and
// retry behavior. Internal packages return errors wrapping one of these
// kinds; they never return raw database or network errors to callers.
type Kind string

const (
	InvalidInput Kind = "invalid_input"
	NotFound     Kind = "not_found"
	Forbidden    Kind = "forbidden"
	Conflict     Kind = "conflict"
	Degraded     Kind = "degraded"
	Unavailable  Kind = "unavailable"
	Internal     Kind = "internal"
)

// Error is the concrete error type returned by store and service layers.
// Message is safe to surface to API clients; Cause is logged but never
// serialized.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
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

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error. Unrecognized errors are reported as Internal so callers never
// have to special-case "unknown".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ValidationError reports a single field-level validation failure,
// distinct from the broader InvalidInput kind because callers may want
// to surface the specific field to an API consumer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// NewValidationError wraps a field-level failure as an *Error of kind
// InvalidInput.
func NewValidationError(field, message string) *Error {
	return Wrap(InvalidInput, "validation failed", &ValidationError{Field: field, Message: message})
}
