package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// RateLimitError means the provider throttled the request (HTTP 429 or a
// quota signal). Retryable with backoff.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransientError covers server-side and network failures that are worth
// retrying with backoff.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient error: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ConfigError means the provider is unusable as configured (missing or
// rejected credential). Never retried.
type ConfigError struct {
	Provider string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s configuration error: %v", e.Provider, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

func IsTransient(err error) bool {
	var tr *TransientError
	return errors.As(err, &tr)
}

func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// classifyOpenAIError normalizes go-openai errors into the retry taxonomy.
func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyHTTPStatus(ProviderOpenAI, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyHTTPStatus(ProviderOpenAI, reqErr.HTTPStatusCode, err)
	}
	if looksRateLimited(err) {
		return &RateLimitError{Provider: ProviderOpenAI, Err: err}
	}
	// Connection resets, DNS failures and friends.
	return &TransientError{Provider: ProviderOpenAI, Err: err}
}

// classifyGeminiError normalizes genai errors into the retry taxonomy.
func classifyGeminiError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyHTTPStatus(ProviderGemini, apiErr.Code, err)
	}
	if looksRateLimited(err) {
		return &RateLimitError{Provider: ProviderGemini, Err: err}
	}
	return &TransientError{Provider: ProviderGemini, Err: err}
}

func classifyHTTPStatus(provider string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Provider: provider, Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ConfigError{Provider: provider, Err: err}
	case status >= 500:
		return &TransientError{Provider: provider, Err: err}
	case looksRateLimited(err):
		return &RateLimitError{Provider: provider, Err: err}
	default:
		return &TransientError{Provider: provider, Err: err}
	}
}

// looksRateLimited catches throttling signals that only show up in the error
// text (gRPC ResourceExhausted, quota messages).
func looksRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "resource exhausted", "resourceexhausted", "quota"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
