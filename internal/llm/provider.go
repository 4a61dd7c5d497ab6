package llm

import (
	"context"
	"fmt"

	"talentrank/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Provider sends a fully-built prompt to an LLM and returns the raw text
// response. Implementations do not retry; retry policy belongs to the caller
// so backoff timing and prompt re-asks stay coordinated in one place.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the provider selected by name. An unknown name or a
// missing credential is a configuration fault that should fail the whole
// scoring task, not a single batch.
func NewProvider(ctx context.Context, name string, cfg *config.Config) (Provider, error) {
	switch name {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	default:
		return nil, fmt.Errorf("unsupported model provider: %q", name)
	}
}

// SupportedProvider reports whether name selects a known provider.
func SupportedProvider(name string) bool {
	return name == ProviderOpenAI || name == ProviderGemini
}
