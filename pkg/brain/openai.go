package brain

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIGenerator drives GPT and Codex models through the official SDK.
type OpenAIGenerator struct {
	client openai.Client
	name   string
}

// NewOpenAIGenerator creates a generator registered under the given
// provider name ("openai-codex" for the code brain).
func NewOpenAIGenerator(name, apiKey string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return &OpenAIGenerator{client: openai.NewClient(), name: name}, nil
}

func (g *OpenAIGenerator) Name() string { return g.name }

func (g *OpenAIGenerator) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(4096),
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &Response{
		Payloads: []Payload{{Text: resp.Choices[0].Message.Content}},
		Usage: &Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}
