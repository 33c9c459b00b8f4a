// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindIneligible   Kind = "ineligible"
	KindDuplicate    Kind = "duplicate"
	KindRateLimited  Kind = "rate_limited"
	KindUpstream     Kind = "upstream"
	KindTimeout      Kind = "timeout"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
)

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrIneligible   = &Error{Kind: KindIneligible}
	ErrDuplicate    = &Error{Kind: KindDuplicate}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrUpstream     = &Error{Kind: KindUpstream}
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

// Error carries a Kind, a user-facing message and an optional cause.
// Status is set for upstream failures that should propagate the remote HTTP status.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }
func NotFound(format string, args ...any) *Error   { return newf(KindNotFound, format, args...) }
func Ineligible(format string, args ...any) *Error { return newf(KindIneligible, format, args...) }
func Duplicate(format string, args ...any) *Error  { return newf(KindDuplicate, format, args...) }
func Forbidden(format string, args ...any) *Error  { return newf(KindForbidden, format, args...) }

func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

func RateLimited(format string, args ...any) *Error {
	return newf(KindRateLimited, format, args...)
}

func Timeout(format string, args ...any) *Error { return newf(KindTimeout, format, args...) }

// Upstream wraps a failure reaching the store or a remote host. status is the
// remote HTTP status when one was received, 0 otherwise.
func Upstream(status int, err error, format string, args ...any) *Error {
	e := newf(KindUpstream, format, args...)
	e.Status = status
	e.Err = err
	return e
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps err to the status code returned to API callers.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindIneligible, KindDuplicate:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUpstream:
		if e.Status >= 400 {
			return e.Status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for err. Errors outside the taxonomy
// are reported as "internal error".
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	return e.Message
}
