// Package apierr defines the structured failure type every service
// operation returns. An Error carries the HTTP status class and a safe,
// client-facing message; the wrapped cause stays internal and is only
// ever logged.
package apierr

import (
	"errors"
	"net/http"
)

// Error is the single error shape surfaced to the transport layer.
type Error struct {
	StatusCode int
	Message    string
	err        error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// NewValidation reports missing or malformed user input.
func NewValidation(message string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Message: message}
}

// NewConflict reports a duplicate unique key.
func NewConflict(message string) *Error {
	return &Error{StatusCode: http.StatusConflict, Message: message}
}

// NewUnauthorized reports any authentication failure. The cause (missing
// token, bad signature, expired, reused, unknown account, wrong password)
// is kept internal so callers cannot distinguish which check failed.
func NewUnauthorized(cause error) *Error {
	return &Error{StatusCode: http.StatusUnauthorized, Message: "unauthorized request", err: cause}
}

// NewNotFound reports an absent account or asset.
func NewNotFound(message string) *Error {
	return &Error{StatusCode: http.StatusNotFound, Message: message}
}

// NewDependency reports a failed record store or asset store call.
func NewDependency(message string, cause error) *Error {
	return &Error{StatusCode: http.StatusBadGateway, Message: message, err: cause}
}

// NewInternal reports an unexpected failure.
func NewInternal(cause error) *Error {
	return &Error{StatusCode: http.StatusInternalServerError, Message: "internal server error", err: cause}
}

// FromError extracts an *Error, or wraps err as internal.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternal(err)
}
