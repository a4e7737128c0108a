// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Common application errors.
var (
	// Key pool errors.
	ErrPoolExhausted         = errors.New("credential pool exhausted: every credential is disabled")
	ErrNoCredentialAvailable = errors.New("no credential available")
	ErrClosed                = errors.New("component closed")

	// Provider errors.
	ErrRateLimit     = errors.New("rate limit exceeded")
	ErrEmptyResponse = errors.New("provider returned an empty completion")

	// Pipeline errors.
	ErrEmptyInput = errors.New("input text is empty")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ProviderError is a non-success response from an LLM provider.
type ProviderError struct {
	Provider   string
	Body       string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// rateLimitSignatures are lower-cased fragments that providers put in
// throttling responses.
var rateLimitSignatures = []string{
	"too many requests",
	"rate limit",
	"rate_limit",
	"ratelimit",
	"quota",
	"resource_exhausted",
	"resource has been exhausted",
}

// statusTooManyRequests matches 429 as a whole number, not inside an ID.
var statusTooManyRequests = regexp.MustCompile(`\b429\b`)

// IsRateLimitShaped reports whether err looks like a provider throttling
// response rather than an ordinary failure.
func IsRateLimitShaped(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimit) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	if statusTooManyRequests.MatchString(msg) {
		return true
	}
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// IsCanceled reports whether err comes from context cancellation or deadline.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
