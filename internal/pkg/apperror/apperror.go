package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError independently of its transport status code.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// AppError is a custom error type that includes an HTTP status code and an optional internal error code.
type AppError struct {
	Kind    Kind   // Error category (validation, not_found, ...)
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same sentinel, or an AppError of the same kind and message.
// This keeps errors.Is working when a sentinel is re-wrapped with a cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Kind:    kindForCode(code),
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Kind:    kindForCode(code),
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation reports a malformed or out-of-bounds input.
func Validation(message string) *AppError {
	return New(http.StatusBadRequest, message)
}

// NotFound reports a missing entity.
func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message)
}

// Conflict reports a state clash such as overlapping reservations.
func Conflict(message string) *AppError {
	return New(http.StatusConflict, message)
}

// Configuration reports missing or ambiguous administrative data (e.g. pricing coverage).
func Configuration(message string) *AppError {
	return New(http.StatusUnprocessableEntity, message)
}

// WithCause returns a copy of e that wraps err.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// IsKind reports whether any AppError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

func kindForCode(code int) Kind {
	switch code {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnprocessableEntity:
		return KindConfiguration
	default:
		return KindInternal
	}
}
