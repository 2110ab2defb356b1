package response

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an API failure written as the JSON error envelope
type Error struct {
	StatusCode int
	Message    string
	Messages   []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// AddMessages appends details shown to the caller
func (e *Error) AddMessages(msgs ...string) *Error {
	e.Messages = append(e.Messages, msgs...)
	return e
}

func makeError(status int) *Error {
	return &Error{
		StatusCode: status,
		Message:    http.StatusText(status),
		Messages:   make([]string, 0),
	}
}

func ErrUnexpected() *Error {
	return makeError(http.StatusInternalServerError)
}

func ErrBadRequest() *Error {
	return makeError(http.StatusBadRequest)
}

func ErrNotFound() *Error {
	return makeError(http.StatusNotFound)
}

func ErrConflict() *Error {
	return makeError(http.StatusConflict)
}

func ErrInvalidJson() *Error {
	return ErrBadRequest().AddMessages("Invalid JSON body")
}

func ErrVerifyToken() *Error {
	return ErrUnexpected().AddMessages("Unable to verify bearer token")
}

func ErrNoBearer() *Error {
	return makeError(http.StatusUnauthorized).AddMessages("No valid Bearer token found in header")
}

// ErrPolicyDenied carries the reason of a negative policy decision
func ErrPolicyDenied(reason string) *Error {
	return makeError(http.StatusForbidden).AddMessages(reason)
}

// Domain errors declare how they surface over HTTP by implementing one of
// these. Wrapped errors are inspected with errors.As.
type (
	invalid  interface{ Invalid() bool }
	notFound interface{ NotFound() bool }
	conflict interface{ Conflict() bool }
)

// FromError maps a domain error to its envelope, carrying err's text as the
// message. Errors of no known kind map to ErrUnexpected with known false;
// their text is not exposed and the caller is expected to log them.
func FromError(err error) (e *Error, known bool) {
	var (
		inv invalid
		nf  notFound
		cf  conflict
	)
	switch {
	case errors.As(err, &inv) && inv.Invalid():
		return ErrBadRequest().AddMessages(err.Error()), true
	case errors.As(err, &nf) && nf.NotFound():
		return ErrNotFound().AddMessages(err.Error()), true
	case errors.As(err, &cf) && cf.Conflict():
		return ErrConflict().AddMessages(err.Error()), true
	default:
		return ErrUnexpected(), false
	}
}

// NotFoundError is a sentinel error type for missing records
type NotFoundError string

func (e NotFoundError) Error() string { return string(e) }

// NotFound marks e as a 404
func (NotFoundError) NotFound() bool { return true }
