// Package ai talks to language model providers. A Completer sends one
// prompt to one provider; Guarded adds a circuit breaker, metrics and a
// trace span; Assistant builds the wizard's validation, summary and
// generation prompts on top of any Completer.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Operation names used as metric and span labels.
const (
	OpValidate  = "validate"
	OpSummarize = "summarize"
	OpGenerate  = "generate"
	OpRefine    = "refine"
)

// Prompt is one request to a model.
type Prompt struct {
	// Operation labels the call in metrics and traces.
	Operation string
	System    string
	User      string
	// MaxTokens and Temperature override the client defaults when non-zero.
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

// Completer sends a prompt to a model and returns its text.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	// Name is the provider name used in logs and metric labels.
	Name() string
}

// Provider errors. Provider clients wrap these so callers can use errors.Is.
var (
	ErrRateLimited   = errors.New("provider rate limit exceeded")
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	ErrEmptyResponse = errors.New("empty response from provider")
	ErrNoProvider    = errors.New("no language model provider configured")
	ErrInvalidOutput = errors.New("invalid structured output")
)

// StatusError is a non-2xx provider response that maps to no sentinel.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: status %d", e.Provider, e.StatusCode)
}

// statusError maps a provider HTTP status to a sentinel or a *StatusError.
func statusError(provider string, code int, message string) error {
	switch code {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", provider, ErrRateLimited)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%s: %w", provider, ErrQuotaExceeded)
	default:
		return &StatusError{Provider: provider, StatusCode: code, Message: message}
	}
}

func (p Prompt) maxTokens(fallback int) int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return fallback
}

func (p Prompt) temperature(fallback float64) float64 {
	if p.Temperature > 0 {
		return p.Temperature
	}
	return fallback
}
