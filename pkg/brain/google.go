package brain

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleGenerator drives Gemini models through the genai SDK.
type GoogleGenerator struct {
	client *genai.Client
	name   string
}

// NewGoogleGenerator creates a generator registered under the given
// provider name ("google-gemini" by convention).
func NewGoogleGenerator(ctx context.Context, name, apiKey string) (*GoogleGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return &GoogleGenerator{client: client, name: name}, nil
}

func (g *GoogleGenerator) Name() string { return g.name }

func (g *GoogleGenerator) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	return &Response{Payloads: []Payload{{Text: content}}}, nil
}
