package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitShaped(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "sentinel", err: ErrRateLimit, want: true},
		{name: "wrapped sentinel", err: fmt.Errorf("call failed: %w", ErrRateLimit), want: true},
		{name: "provider 429", err: &ProviderError{Provider: "openai", StatusCode: 429, Body: "slow down"}, want: true},
		{name: "provider 500", err: &ProviderError{Provider: "openai", StatusCode: 500, Body: "boom"}, want: false},
		{name: "quota message", err: errors.New("You exceeded your current quota"), want: true},
		{name: "gemini exhausted", err: errors.New("RESOURCE_EXHAUSTED: Resource has been exhausted"), want: true},
		{name: "too many requests", err: errors.New("Too Many Requests"), want: true},
		{name: "429 inside a request ID", err: &ProviderError{Provider: "openai", StatusCode: 500, Body: `{"error":"internal","request_id":"req_84291a"}`}, want: false},
		{name: "wrapped 429 text", err: errors.New("upstream: HTTP 429"), want: true},
		{name: "ordinary failure", err: errors.New("connection refused"), want: false},
		{name: "context canceled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitShaped(tt.err))
		})
	}
}

func TestUserError(t *testing.T) {
	inner := errors.New("disk full")
	err := NewUserError("could not save", inner)

	assert.Equal(t, "could not save: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "just a message", NewUserError("just a message", nil).Error())
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, IsCanceled(context.Canceled))
	assert.True(t, IsCanceled(fmt.Errorf("wait: %w", context.DeadlineExceeded)))
	assert.False(t, IsCanceled(ErrPoolExhausted))
}
