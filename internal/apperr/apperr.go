// Package apperr defines the error kinds surfaced by the service layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a stable, machine-checkable error category.
type Kind string

const (
	KindUnauthenticated      Kind = "UNAUTHENTICATED"
	KindInvalidArgument      Kind = "INVALID_ARGUMENT"
	KindNotFound             Kind = "NOT_FOUND"
	KindForbidden            Kind = "FORBIDDEN"
	KindConflict             Kind = "CONFLICT"
	KindInsufficientResource Kind = "INSUFFICIENT_RESOURCE"
	KindUnavailable          Kind = "UNAVAILABLE"
	KindInternal             Kind = "INTERNAL"
)

// HTTPStatus maps the kind to a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalidArgument, KindInsufficientResource:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Public reports whether the message may be shown to clients.
func (k Kind) Public() bool {
	return k != KindInternal && k != KindUnavailable
}

// Error is a categorized service error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound             = New(KindNotFound, "not found")
	ErrForbidden            = New(KindForbidden, "forbidden")
	ErrConflict             = New(KindConflict, "conflict")
	ErrInsufficientResource = New(KindInsufficientResource, "insufficient resource")
	ErrInvalidArgument      = New(KindInvalidArgument, "invalid argument")
	ErrUnavailable          = New(KindUnavailable, "unavailable")
)
