package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubGenerator struct {
	name  string
	text  string
	err   error
	delay time.Duration
}

func (s *stubGenerator) Name() string { return s.name }

func (s *stubGenerator) Generate(ctx context.Context, model, prompt string) (*Response, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Payloads: []Payload{{Text: s.text}}}, nil
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(zap.NewNop(),
		&stubGenerator{name: "anthropic", text: "from anthropic"},
		&stubGenerator{name: "openai-codex", text: "from codex"},
	)

	resp, err := reg.Invoke(context.Background(), Request{Provider: "openai-codex", Model: "gpt-5.3-codex", Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Text(); got != "from codex" {
		t.Fatalf("wrong generator answered: %q", got)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	_, err := reg.Invoke(context.Background(), Request{Provider: "nope"})
	var be *BrainError
	if !errors.As(err, &be) {
		t.Fatalf("expected BrainError, got %v", err)
	}
	if be.Status != 404 {
		t.Fatalf("expected 404, got %d", be.Status)
	}
}

func TestRegistryAppliesTimeout(t *testing.T) {
	reg := NewRegistry(zap.NewNop(), &stubGenerator{name: "slow", delay: time.Second})
	start := time.Now()
	_, err := reg.Invoke(context.Background(), Request{Provider: "slow", Timeout: 20 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("timeout not applied")
	}
}

func TestResponseText(t *testing.T) {
	var nilResp *Response
	if got := nilResp.Text(); got != "" {
		t.Fatalf("nil response should yield empty text, got %q", got)
	}
	if got := (&Response{}).Text(); got != "" {
		t.Fatalf("empty response should yield empty text, got %q", got)
	}
	resp := &Response{Payloads: []Payload{{Text: "a"}, {Text: "b"}}}
	if got := resp.Text(); got != "a" {
		t.Fatalf("expected first payload text, got %q", got)
	}
}

func TestMockInvoker(t *testing.T) {
	m := NewMockInvoker()
	m.Respond("anthropic", "canned")
	m.Fail("google-gemini", errors.New("down"))

	resp, err := m.Invoke(context.Background(), Request{Provider: "anthropic", Prompt: "x"})
	if err != nil || resp.Text() != "canned" {
		t.Fatalf("canned response not returned: %v %v", resp, err)
	}
	if _, err := m.Invoke(context.Background(), Request{Provider: "google-gemini"}); err == nil {
		t.Fatal("expected injected error")
	}
	resp, err = m.Invoke(context.Background(), Request{Provider: "other", Prompt: "echo me"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text() != "mock response:\necho me" {
		t.Fatalf("default echo wrong: %q", resp.Text())
	}
	if len(m.Calls()) != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", len(m.Calls()))
	}
}

func TestMockInvokerDelay(t *testing.T) {
	m := NewMockInvoker()
	m.Delay("anthropic", 20*time.Millisecond)
	m.Respond("anthropic", "slow but fine")

	start := time.Now()
	resp, err := m.Invoke(context.Background(), Request{Provider: "anthropic"})
	if err != nil || resp.Text() != "slow but fine" {
		t.Fatalf("delayed response not returned: %v %v", resp, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("delay was not applied")
	}

	m.Delay("google-gemini", 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start = time.Now()
	if _, err := m.Invoke(ctx, Request{Provider: "google-gemini"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error from a cancelled delay, got %v", err)
	}
	if time.Since(start) >= 5*time.Second {
		t.Fatal("cancellation did not cut the delay short")
	}
}

func TestBrainErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &BrainError{Status: 503, Temporary: true, Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("Unwrap should expose the inner error")
	}
	var fe *FailoverError
	wrapped := &FailoverError{Reason: FailoverTimeout, Err: inner}
	if !errors.As(error(wrapped), &fe) || fe.Reason != FailoverTimeout {
		t.Fatal("failover error should round-trip through errors.As")
	}
}
