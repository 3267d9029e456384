package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/route"
)

func testClassifier(opts ...Option) *Classifier {
	return New(route.NewResolver(), zap.NewNop(), opts...)
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	c := testClassifier()
	messages := []string{
		"",
		"hello",
		"fix this bug in my typescript function, the test fails with an error and git commit won't compile",
		"write a blog post and brainstorm ideas for my newsletter draft content",
		"what is the weather today",
		"ask claude about quantum physics",
	}
	for _, msg := range messages {
		for _, hasImages := range []bool{false, true} {
			result := c.Classify(Input{Message: msg, HasImages: hasImages})
			if result.Confidence < 0 || result.Confidence > 100 {
				t.Fatalf("confidence out of range for %q: %d", msg, result.Confidence)
			}
		}
	}
}

func TestUserOverridePhrase(t *testing.T) {
	c := testClassifier()
	for _, msg := range []string{
		"ask claude about the stock market",
		"please use claude for this",
		"ask claude about X",
	} {
		result := c.Classify(Input{Message: msg})
		if result.Provider != "anthropic" || result.Model != "claude-opus-4-6" {
			t.Fatalf("%q: expected claude override, got %s/%s", msg, result.Provider, result.Model)
		}
		if result.Confidence != 100 {
			t.Fatalf("%q: expected confidence 100, got %d", msg, result.Confidence)
		}
		if result.OverrideSource != SourceUser {
			t.Fatalf("%q: expected user override source, got %s", msg, result.OverrideSource)
		}
	}
}

func TestUserOverrideCodex(t *testing.T) {
	c := testClassifier()
	result := c.Classify(Input{Message: "have codex review this pull request"})
	if result.Provider != "openai-codex" || result.Model != "gpt-5.3-codex" {
		t.Fatalf("expected codex override, got %s/%s", result.Provider, result.Model)
	}
}

func TestExplicitOverride(t *testing.T) {
	c := testClassifier()
	result := c.Classify(Input{
		Message:  "whatever text here, it should be ignored",
		Override: &route.Target{Provider: "local", Model: "test-1"},
	})
	if result.Provider != "local" || result.Model != "test-1" || result.Confidence != 100 {
		t.Fatalf("explicit override not honored: %+v", result)
	}
	if result.OverrideSource != SourceUser {
		t.Fatalf("expected user source, got %s", result.OverrideSource)
	}
}

func TestImageShortcutVision(t *testing.T) {
	c := testClassifier()
	result := c.Classify(Input{Message: "what is in this picture", HasImages: true})
	if result.Domain != route.DomainVision {
		t.Fatalf("expected vision domain, got %s", result.Domain)
	}
	if result.Confidence != 95 || result.OverrideSource != SourceImage {
		t.Fatalf("unexpected vision result: %+v", result)
	}
}

func TestImageShortcutCodeScreenshot(t *testing.T) {
	c := testClassifier()
	result := c.Classify(Input{Message: "fix this bug please", HasImages: true})
	if result.Domain != route.DomainCode {
		t.Fatalf("expected code domain for code screenshot, got %s", result.Domain)
	}
	if result.Confidence != 90 || result.OverrideSource != SourceImage {
		t.Fatalf("unexpected code screenshot result: %+v", result)
	}

	// A single code signal is not enough to flip away from vision.
	result = c.Classify(Input{Message: "fix the framing on this photo", HasImages: true})
	if result.Domain != route.DomainVision {
		t.Fatalf("one code signal should stay vision, got %s", result.Domain)
	}
}

func TestHeuristicCodeDomain(t *testing.T) {
	c := testClassifier()
	result := c.Classify(Input{Message: "debug this function, the test throws an error when I run git commit"})
	if result.Domain != route.DomainCode {
		t.Fatalf("expected code, got %s (%s)", result.Domain, result.Reason)
	}
	if result.Provider != "openai-codex" {
		t.Fatalf("expected codex route, got %s", result.Provider)
	}
	if result.Confidence < defaultThreshold {
		t.Fatalf("expected confidence above threshold, got %d", result.Confidence)
	}
}

func TestCompoundSecondariesRespectGapAndThreshold(t *testing.T) {
	c := testClassifier()
	// Spans code and creative: debugging plus writing a blog post about it.
	result := c.Classify(Input{
		Message: "debug this python function and fix the error, then write a blog post draft explaining the bug and brainstorm ideas for the article",
	})
	if !result.IsCompound {
		t.Fatalf("expected compound classification: %+v", result)
	}
	if len(result.SecondaryDomains) == 0 {
		t.Fatal("compound result must carry secondaries")
	}
	for _, s := range result.SecondaryDomains {
		if s.Confidence < defaultThreshold {
			t.Fatalf("secondary %s below threshold: %d", s.Domain, s.Confidence)
		}
		if s.Confidence < result.Confidence-compoundRunnerUpGap {
			t.Fatalf("secondary %s outside runner-up gap: %d vs winner %d", s.Domain, s.Confidence, result.Confidence)
		}
	}
}

func TestNonCompoundHasNoSecondaries(t *testing.T) {
	c := testClassifier()
	result := c.Classify(Input{Message: "refactor this function and fix the compile error"})
	if result.IsCompound && len(result.SecondaryDomains) == 0 {
		t.Fatal("isCompound implies at least one secondary")
	}
	if !result.IsCompound && len(result.SecondaryDomains) > 0 {
		t.Fatal("secondaries imply isCompound")
	}
}

func TestDefaultFallback(t *testing.T) {
	c := testClassifier()
	result := c.Classify(Input{Message: "zzz qqq vvv"})
	if result.Domain != route.DomainAnalysis {
		t.Fatalf("expected default analysis domain, got %s", result.Domain)
	}
	if result.Provider != "anthropic" || result.Model != "claude-sonnet-4-5" {
		t.Fatalf("expected default route, got %s/%s", result.Provider, result.Model)
	}
	if result.Confidence != 0 {
		t.Fatalf("expected confidence 0 with no matches, got %d", result.Confidence)
	}
}

func TestWeightsHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routing-weights.json")

	c := testClassifier(WithWeightsFile(path))

	// No file: defaults hold.
	if got := c.Threshold(); got != defaultThreshold {
		t.Fatalf("expected default threshold, got %d", got)
	}

	doc := map[string]any{
		"domains": map[string]any{
			"code": map[string]int{"baseConfidence": 90, "keywordBoost": 5},
		},
		"confidenceThreshold": 60,
	}
	data, _ := json.Marshal(doc)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	// Ensure a later mtime than any previous stat.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if got := c.Threshold(); got != 60 {
		t.Fatalf("expected reloaded threshold 60, got %d", got)
	}

	// Malformed file falls back to defaults.
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	future = future.Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if got := c.Threshold(); got != defaultThreshold {
		t.Fatalf("malformed weights should restore defaults, got %d", got)
	}
}

func TestNegativeWeightsClampToZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routing-weights.json")

	doc := map[string]any{
		"domains": map[string]any{
			"code": map[string]int{"baseConfidence": -50},
		},
	}
	data, _ := json.Marshal(doc)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	c := testClassifier(WithWeightsFile(path))
	result := c.Classify(Input{Message: "debug this function git commit"})
	if result.Confidence < 0 || result.Confidence > 100 {
		t.Fatalf("confidence out of range: %d", result.Confidence)
	}
	if result.Confidence != 0 {
		t.Fatalf("negative-base score should clamp to 0, got %d", result.Confidence)
	}
	if result.Domain != route.DomainAnalysis {
		t.Fatalf("clamped score should fall back to the default route, got %s", result.Domain)
	}
}

func TestFlatWeightsForm(t *testing.T) {
	base := 88
	doc := parseWeights([]byte(`{"code": {"baseConfidence": 88}, "confidenceThreshold": 65}`))
	if doc == nil {
		t.Fatal("flat form should parse")
	}
	if w, ok := doc.Domains["code"]; !ok || w.BaseConfidence == nil || *w.BaseConfidence != base {
		t.Fatalf("flat form domain weights not parsed: %+v", doc)
	}
}

func TestDecisionLogAndStats(t *testing.T) {
	c := testClassifier()
	for i := 0; i < 3; i++ {
		result := c.Classify(Input{Message: "debug this error in my function test"})
		c.LogDecision("debug this error in my function test", result)
	}

	decisions := c.Decisions(2)
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(decisions))
	}

	stats := c.Stats()
	if stats.Total != 3 {
		t.Fatalf("expected 3 logged decisions, got %d", stats.Total)
	}
	if stats.ByDomain["code"] != 3 {
		t.Fatalf("expected 3 code decisions, got %+v", stats.ByDomain)
	}
	if stats.AvgConfidence <= 0 || stats.AvgConfidence > 100 {
		t.Fatalf("avg confidence out of range: %d", stats.AvgConfidence)
	}
}
