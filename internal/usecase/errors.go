package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failed request; the handler maps it to an HTTP status.
type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is returned by every ChatService operation that fails. Reason is a
// stable snake_case detail for logs and tests.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err == nil:
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	default:
		return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	return e != nil && (e.Code == ErrorRateLimited || e.Code == ErrorUpstream)
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// upstreamError classifies a failed call to an external service. A 429
// becomes RATE_LIMITED with reason "<stage>_rate_limited"; anything else is
// UPSTREAM_ERROR with reason "<stage>_error".
func upstreamError(stage string, err error) *Error {
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) && statusErr.HTTPStatusCode() == http.StatusTooManyRequests {
		return newError(ErrorRateLimited, stage+"_rate_limited", err)
	}
	return newError(ErrorUpstream, stage+"_error", err)
}
