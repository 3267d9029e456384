// Package brain defines the invocation contract for backend model
// endpoints and provides concrete invokers for the supported providers.
// The routing core never cares how a call is transported; it hands an
// Invoker a Request and reads text back.
package brain

import (
	"context"
	"time"
)

// Request describes one brain invocation.
type Request struct {
	Prompt       string
	Provider     string
	Model        string
	SessionID    string
	WorkspaceDir string
	// Timeout is the soft per-call deadline. Zero means the caller's
	// context governs alone.
	Timeout time.Duration
}

// Payload is one unit of reply text.
type Payload struct {
	Text string
}

// Usage captures normalized token usage when the provider reports it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response wraps a brain's output. An empty or absent first payload is a
// valid empty reply, not an error.
type Response struct {
	Payloads []Payload
	Usage    *Usage
}

// Text returns the first payload's text, or "" when the brain returned
// nothing.
func (r *Response) Text() string {
	if r == nil || len(r.Payloads) == 0 {
		return ""
	}
	return r.Payloads[0].Text
}

// Invoker sends a prompt to a brain and returns its reply.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Generator is the provider-level surface each SDK client implements.
// The Registry adapts Generators to the Invoker contract.
type Generator interface {
	Generate(ctx context.Context, model string, prompt string) (*Response, error)
	Name() string
}
