package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/brain"
	"github.com/zen-systems/synapse/pkg/route"
)

func TestShouldVerify(t *testing.T) {
	tests := []struct {
		domain     route.Domain
		confidence int
		want       bool
	}{
		{route.DomainCode, 85, true},
		{route.DomainCode, 80, true},
		{route.DomainCode, 79, false},
		{route.DomainCreative, 90, true},
		{route.DomainAnalysis, 80, true},
		{route.DomainSearch, 95, true},
		{route.DomainVision, 80, true},
		{route.DomainSystem, 100, true},
		{route.DomainSchedule, 100, false},
		{route.Domain("bogus"), 100, false},
	}
	for _, tt := range tests {
		if got := ShouldVerify(tt.domain, tt.confidence); got != tt.want {
			t.Errorf("ShouldVerify(%s, %d) = %v, want %v", tt.domain, tt.confidence, got, tt.want)
		}
	}
}

func TestParseStructuredVerdict(t *testing.T) {
	verifier := route.Target{Provider: "anthropic", Model: "claude-sonnet-4-6"}
	r := parseResponse(`{"passed": true, "confidence": 92, "issues": []}`, verifier)
	if !r.Passed || r.Confidence != 92 || len(r.Issues) != 0 {
		t.Fatalf("structured verdict misparsed: %+v", r)
	}
	if r.VerifierProvider != "anthropic" || r.VerifierModel != "claude-sonnet-4-6" {
		t.Fatalf("verifier identity lost: %+v", r)
	}
}

func TestParseJSONWrappedInProse(t *testing.T) {
	verifier := route.Target{Provider: "anthropic", Model: "claude-sonnet-4-6"}
	text := `I reviewed the response carefully.

Here is my verdict: {"passed": false, "confidence": 70, "issues": ["missing error handling", "stale data"]}

Let me know if you need more detail.`
	r := parseResponse(text, verifier)
	if r.Passed || r.Confidence != 70 || len(r.Issues) != 2 {
		t.Fatalf("prose-wrapped verdict misparsed: %+v", r)
	}
}

func TestParseConfidenceClamped(t *testing.T) {
	verifier := route.Target{}
	r := parseResponse(`{"passed": true, "confidence": 250}`, verifier)
	if r.Confidence != 100 {
		t.Fatalf("confidence must clamp to 100, got %d", r.Confidence)
	}
	r = parseResponse(`{"passed": true, "confidence": -5}`, verifier)
	if r.Confidence != 0 {
		t.Fatalf("confidence must clamp to 0, got %d", r.Confidence)
	}
	r = parseResponse(`{"passed": true}`, verifier)
	if r.Confidence != 50 {
		t.Fatalf("absent confidence defaults to 50, got %d", r.Confidence)
	}
}

func TestParseHeuristicFallback(t *testing.T) {
	verifier := route.Target{}
	r := parseResponse("The response looks good to me, nice work.", verifier)
	if !r.Passed || r.Confidence != heuristicConfidence {
		t.Fatalf("heuristic pass misparsed: %+v", r)
	}
	if len(r.Issues) != 0 {
		t.Fatalf("heuristic pass should carry no issues: %+v", r)
	}

	r = parseResponse("I am not sure what to make of this.", verifier)
	if r.Passed || r.Confidence != heuristicConfidence {
		t.Fatalf("heuristic fail misparsed: %+v", r)
	}
	if len(r.Issues) != 1 || r.Issues[0] != "Could not parse structured response" {
		t.Fatalf("heuristic fail should flag the parse miss: %+v", r)
	}
}

func TestParseIgnoresJSONWithoutPassedKey(t *testing.T) {
	verifier := route.Target{}
	// The braces balance but carry no verdict; heuristic takes over and
	// finds a pass phrase.
	r := parseResponse(`metadata: {"model": "x"} ... overall this passes review`, verifier)
	if !r.Passed || r.Confidence != heuristicConfidence {
		t.Fatalf("expected heuristic rescue, got %+v", r)
	}
}

func TestVerifyCallFailureIsConservative(t *testing.T) {
	resolver := route.NewResolver()
	mock := brain.NewMockInvoker()
	mock.Fail(resolver.Verifier(route.DomainCode).Provider, errors.New("verifier down"))
	v := NewVerifier(resolver, mock, nil, zap.NewNop())

	r := v.Verify(context.Background(), Request{
		Domain:           route.DomainCode,
		OriginalProvider: "openai-codex",
		OriginalModel:    "gpt-5.3-codex",
		ResponseText:     "some reply",
		OriginalPrompt:   "some prompt",
		RunID:            "run-1",
	})
	if r.Passed {
		t.Fatal("a failed verifier call must never read as a pass")
	}
	if r.Confidence != 0 {
		t.Fatalf("conservative verdict must have confidence 0, got %d", r.Confidence)
	}
	if len(r.Issues) != 1 || r.Issues[0] != "Verification agent failed to respond" {
		t.Fatalf("unexpected issues: %v", r.Issues)
	}
}

func TestVerifyEndToEnd(t *testing.T) {
	resolver := route.NewResolver()
	mock := brain.NewMockInvoker()
	mock.Respond(resolver.Verifier(route.DomainAnalysis).Provider,
		`{"passed": true, "confidence": 88, "issues": []}`)
	v := NewVerifier(resolver, mock, nil, zap.NewNop())

	r := v.Verify(context.Background(), Request{
		Domain:         route.DomainAnalysis,
		ResponseText:   "analysis body",
		OriginalPrompt: "question",
		RunID:          "run-2",
	})
	if !r.Passed || r.Confidence != 88 {
		t.Fatalf("unexpected verdict: %+v", r)
	}
	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one verifier call, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Prompt, "RESPONSE TO VERIFY") {
		t.Fatal("verification prompt shape missing")
	}
	if !strings.Contains(calls[0].Prompt, "analysis body") {
		t.Fatal("verification prompt must carry the response text")
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   int
	}{
		{"no-confidence is neutral", Result{Confidence: 0, Passed: true}, 3},
		{"pass", Result{Confidence: 90, Passed: true}, 5},
		{"fail without issues", Result{Confidence: 70}, 4},
		{"fail one issue", Result{Confidence: 70, Issues: []string{"a"}}, 3},
		{"fail three issues", Result{Confidence: 70, Issues: []string{"a", "b", "c"}}, 2},
		{"fail many issues", Result{Confidence: 70, Issues: []string{"a", "b", "c", "d"}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualityScore(tt.result); got != tt.want {
				t.Fatalf("QualityScore(%+v) = %d, want %d", tt.result, got, tt.want)
			}
		})
	}
}
