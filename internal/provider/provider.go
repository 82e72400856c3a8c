// Package provider talks to third-party LLM APIs and turns their answers into
// competitor reports.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider names.
const (
	OpenAI     = "openai"
	Anthropic  = "anthropic"
	Gemini     = "gemini"
	Perplexity = "perplexity"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingKey      = errors.New("no api key available for provider")
	ErrEmptyResponse   = errors.New("provider returned an empty response")
	ErrInvalidReport   = errors.New("provider response is not a valid report")
	ErrRateLimited     = errors.New("provider rate limit exceeded")
)

// Prompt is a provider-neutral chat request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// JSON asks providers that support it to constrain output to a JSON object.
	JSON bool
}

// Completion is the text a provider returned.
type Completion struct {
	Text  string
	Model string
}

// Provider is one LLM HTTP API.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, apiKey string, p Prompt) (*Completion, error)
	// Validate checks that apiKey is accepted by the provider.
	Validate(ctx context.Context, apiKey string) error
}

// Error is a non-2xx answer from a provider.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether repeating the request may succeed.
func (e *Error) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// Unauthorized reports whether the provider rejected the credentials.
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Retryable classifies any error returned by a Provider. Transport failures are
// retryable; cancellation and client errors are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMissingKey) || errors.Is(err, ErrEmptyResponse) {
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return true
}

// CountsAsBreakerSuccess tells the circuit breaker which outcomes must not count as
// failures. Client errors mean the provider is healthy and the request was wrong.
func CountsAsBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMissingKey) {
		return true
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.StatusCode >= 400 && pe.StatusCode < 500 && !pe.Retryable()
	}
	return false
}
