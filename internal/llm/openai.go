package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, &ConfigError{Provider: ProviderOpenAI, Err: errors.New("OPENAI_API_KEY is not set")}
	}

	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Generate implements Provider. Temperature is pinned to zero so repeated
// scoring runs stay as deterministic as the model allows.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(fmt.Errorf("chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		// Empty responses are the parser's concern; it re-asks the model.
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
