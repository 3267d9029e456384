package compound

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/brain"
	"github.com/zen-systems/synapse/pkg/route"
)

// minMergedLength is the shortest LLM merge output accepted as a real
// synthesis rather than a refusal or truncated reply.
const minMergedLength = 20

// Merger combines sub-task results into one reply. Tiered strategy, each
// tier catching failure of the one above:
//
//  1. no secondaries succeeded: primary text as-is
//  2. LLM merge via the configured merger brain
//  3. deterministic concatenation with perspective labels
type Merger struct {
	resolver *route.Resolver
	invoker  brain.Invoker
	logger   *zap.Logger
}

func NewMerger(resolver *route.Resolver, invoker brain.Invoker, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{resolver: resolver, invoker: invoker, logger: logger}
}

// Merge returns the combined text. It cannot fail: the final tier does no
// I/O.
func (m *Merger) Merge(ctx context.Context, originalPrompt string, primary SubTaskResult, secondaries []SubTaskResult, timeout time.Duration) string {
	var succeeded []SubTaskResult
	for _, s := range secondaries {
		if s.Err == "" && strings.TrimSpace(s.Content) != "" {
			succeeded = append(succeeded, s)
		}
	}

	if len(succeeded) == 0 {
		m.logger.Info("merge: no secondaries succeeded, returning primary as-is")
		return primary.Content
	}

	merged, err := m.llmMerge(ctx, originalPrompt, primary, succeeded, timeout)
	if err != nil {
		m.logger.Warn("merge: LLM merge failed", zap.Error(err))
	} else if merged != "" {
		m.logger.Info("merge: LLM merge succeeded", zap.Int("outputLen", len(merged)))
		return merged
	}

	m.logger.Info("merge: falling back to concatenation")
	return concatenateFallback(primary, succeeded)
}

// llmMerge returns "" with a nil error when the merger brain answered but
// produced too little text to trust.
func (m *Merger) llmMerge(ctx context.Context, originalPrompt string, primary SubTaskResult, secondaries []SubTaskResult, timeout time.Duration) (string, error) {
	target := m.resolver.Merger
	resp, err := m.invoker.Invoke(ctx, brain.Request{
		Prompt:    buildMergePrompt(originalPrompt, primary, secondaries),
		Provider:  target.Provider,
		Model:     target.Model,
		SessionID: uuid.NewString(),
		Timeout:   timeout,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if len(text) < minMergedLength {
		return "", nil
	}
	return text, nil
}

func concatenateFallback(primary SubTaskResult, secondaries []SubTaskResult) string {
	var b strings.Builder
	b.WriteString(primary.Content)
	for _, s := range secondaries {
		b.WriteString("\n\n---\n\n**")
		b.WriteString(titleCase(string(s.Domain)))
		b.WriteString(" perspective:**\n\n")
		b.WriteString(s.Content)
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
