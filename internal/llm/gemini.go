package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, &ConfigError{Provider: ProviderGemini, Err: errors.New("GEMINI_API_KEY is not set")}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ConfigError{Provider: ProviderGemini, Err: fmt.Errorf("create gemini client: %w", err)}
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// Generate implements Provider.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classifyGeminiError(fmt.Errorf("generate content: %w", err))
	}

	if resp == nil {
		// Empty responses are the parser's concern; it re-asks the model.
		return "", nil
	}

	return resp.Text(), nil
}
