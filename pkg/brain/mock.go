package brain

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockInvoker returns deterministic responses for local runs and tests.
// Responses can be keyed by provider, by domain-tagged prompts, or left to
// the default. Errors and delays are injectable per provider.
type MockInvoker struct {
	mu              sync.Mutex
	responses       map[string]string
	errors          map[string]error
	delays          map[string]time.Duration
	defaultResponse string
	calls           []Request
}

// NewMockInvoker creates a mock with a default echo response.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		responses:       make(map[string]string),
		errors:          make(map[string]error),
		delays:          make(map[string]time.Duration),
		defaultResponse: "mock response:",
	}
}

// Respond sets the canned response for a provider.
func (m *MockInvoker) Respond(provider, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[provider] = text
}

// Fail makes calls to a provider return the given error.
func (m *MockInvoker) Fail(provider string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[provider] = err
}

// Delay makes calls to a provider block for d before settling. The block
// is cut short by context cancellation.
func (m *MockInvoker) Delay(provider string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[provider] = d
}

// Calls returns a copy of every request seen so far.
func (m *MockInvoker) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	delay := m.delays[req.Provider]
	failure, failed := m.errors[req.Provider]
	text, canned := m.responses[req.Provider]
	fallback := m.defaultResponse
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failed {
		return nil, failure
	}
	if canned {
		return &Response{Payloads: []Payload{{Text: text}}}, nil
	}
	return &Response{
		Payloads: []Payload{{Text: fmt.Sprintf("%s\n%s", fallback, req.Prompt)}},
	}, nil
}
