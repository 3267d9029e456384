package brain

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicGenerator drives Claude models through the official SDK.
type AnthropicGenerator struct {
	client anthropic.Client
	name   string
}

// NewAnthropicGenerator creates a generator registered under the given
// provider name ("anthropic" by convention).
func NewAnthropicGenerator(name, apiKey string) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	return &AnthropicGenerator{client: anthropic.NewClient(), name: name}, nil
}

func (g *AnthropicGenerator) Name() string { return g.name }

func (g *AnthropicGenerator) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &Response{
		Payloads: []Payload{{Text: content}},
		Usage: &Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}
