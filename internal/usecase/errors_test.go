package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"talkbot/internal/integrations/openai"
)

func TestUpstreamError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		reason string
	}{
		{name: "rate limited", err: &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}, code: ErrorRateLimited, reason: "llm_rate_limited"},
		{name: "wrapped rate limit", err: fmt.Errorf("call: %w", &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}), code: ErrorRateLimited, reason: "llm_rate_limited"},
		{name: "server error", err: &openai.HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, code: ErrorUpstream, reason: "llm_error"},
		{name: "plain error", err: errors.New("dial tcp: refused"), code: ErrorUpstream, reason: "llm_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := upstreamError("llm", tt.err)
			require.Equal(t, tt.code, got.Code)
			require.Equal(t, tt.reason, got.Reason)
			require.ErrorIs(t, got, tt.err)
			require.True(t, got.Retryable())
		})
	}
}

func TestError_Format(t *testing.T) {
	var nilErr *Error
	require.Empty(t, nilErr.Error())
	require.NoError(t, nilErr.Unwrap())
	require.False(t, nilErr.Retryable())

	e := newError(ErrorInvalidInput, "empty_message", nil)
	require.Equal(t, "usecase: INVALID_INPUT (empty_message)", e.Error())
	require.False(t, e.Retryable())

	e = newError(ErrorInternal, "dynamodb_write_error", errors.New("boom"))
	require.Equal(t, "usecase: INTERNAL_ERROR (dynamodb_write_error): boom", e.Error())
	require.False(t, e.Retryable())
}
