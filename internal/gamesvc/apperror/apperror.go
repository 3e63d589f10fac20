// Package apperror defines the tagged errors returned by every game
// operation. Each failure carries exactly one Kind and a message that is
// safe to show to the caller.
package apperror

import (
	"errors"
	"net/http"
)

type Kind string

const (
	InvalidCaller   Kind = "INVALID_CALLER"
	ValidationError Kind = "VALIDATION_ERROR"
	NotFound        Kind = "NOT_FOUND"
	Unauthorized    Kind = "UNAUTHORIZED"
	StorageFailure  Kind = "STORAGE_FAILURE"
)

// Error is an operation failure tagged with its Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error // underlying backend error, never shown to callers
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain. Errors that
// carry no Kind are storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StorageFailure
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a Kind onto the status code the HTTP API responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidCaller:
		return http.StatusUnauthorized
	case ValidationError:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
