package compound

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/brain"
	"github.com/zen-systems/synapse/pkg/classifier"
	"github.com/zen-systems/synapse/pkg/obs"
	"github.com/zen-systems/synapse/pkg/route"
)

const enrichmentTimeout = 30 * time.Second

// EnrichmentResult is the settled outcome of one post-reply enrichment
// call. Same shape as a sub-task result; enrichments are leaf artifacts
// with no merge step.
type EnrichmentResult = SubTaskResult

// DecompositionRequest carries one post-reply decomposition. The primary
// reply has already been delivered; nothing here can change what the user
// saw.
type DecompositionRequest struct {
	Classification   classifier.Result
	OriginalPrompt   string
	PrimaryReplyText string
	OriginalProvider string
	OriginalModel    string
	RunID            string
	WorkspaceDir     string
}

// ShouldDecompose reports whether a classification warrants post-reply
// enrichment.
func ShouldDecompose(c classifier.Result) bool {
	return c.IsCompound && len(c.SecondaryDomains) > 0
}

// Decomposer runs secondary brains after the reply is delivered and stores
// their supplementary notes as handoff records.
type Decomposer struct {
	resolver *route.Resolver
	invoker  brain.Invoker
	store    *obs.Store
	logger   *zap.Logger
}

func NewDecomposer(resolver *route.Resolver, invoker brain.Invoker, store *obs.Store, logger *zap.Logger) *Decomposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{resolver: resolver, invoker: invoker, store: store, logger: logger}
}

// Decompose runs every secondary enrichment in parallel and persists each
// outcome. One enrichment failing never cancels or corrupts the others.
func (d *Decomposer) Decompose(ctx context.Context, req DecompositionRequest) []EnrichmentResult {
	secondaries := req.Classification.SecondaryDomains
	if len(secondaries) == 0 {
		return nil
	}

	domainNames := make([]string, len(secondaries))
	for i, s := range secondaries {
		domainNames[i] = string(s.Domain)
	}
	d.logger.Info("decomposition",
		zap.String("primary", string(req.Classification.Domain)),
		zap.Strings("secondaries", domainNames),
		zap.String("runId", req.RunID))

	start := time.Now()
	results := make([]EnrichmentResult, len(secondaries))
	var wg sync.WaitGroup
	for i, s := range secondaries {
		wg.Add(1)
		go func(i int, domain route.Domain) {
			defer wg.Done()
			results[i] = d.enrich(ctx, domain, req)
		}(i, s.Domain)
	}
	wg.Wait()

	for _, r := range results {
		d.storeEnrichment(req, r)
	}

	totalDuration := time.Since(start)
	successCount := 0
	for _, r := range results {
		if r.Err == "" && r.Content != "" {
			successCount++
		}
	}

	if d.store != nil {
		d.store.Emit(obs.Event{
			Category: "routing",
			Action:   "decomposition_complete",
			TraceID:  req.RunID,
			Metadata: map[string]any{
				"primaryDomain":    req.Classification.Domain,
				"secondaryDomains": domainNames,
				"successCount":     successCount,
				"totalCount":       len(results),
				"totalDurationMs":  totalDuration.Milliseconds(),
			},
		})
	}
	d.logger.Info("decomposition complete",
		zap.Int("succeeded", successCount),
		zap.Int("total", len(results)),
		zap.Duration("duration", totalDuration))

	return results
}

func (d *Decomposer) enrich(ctx context.Context, domain route.Domain, req DecompositionRequest) EnrichmentResult {
	target := d.resolver.Enricher(domain)
	prompt := buildEnrichmentPrompt(domain, d.resolver.GuidanceFor(domain), req.OriginalPrompt, req.PrimaryReplyText)
	start := time.Now()

	resp, err := d.invoker.Invoke(ctx, brain.Request{
		Prompt:       prompt,
		Provider:     target.Provider,
		Model:        target.Model,
		SessionID:    uuid.NewString(),
		WorkspaceDir: req.WorkspaceDir,
		Timeout:      enrichmentTimeout,
	})

	result := EnrichmentResult{
		Domain:     domain,
		Provider:   target.Provider,
		Model:      target.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Err = err.Error()
		d.logger.Warn("enrichment failed",
			zap.String("domain", string(domain)),
			zap.Error(err),
			zap.Int64("durationMs", result.DurationMs))
		return result
	}

	content := resp.Text()
	if strings.Contains(content, SentinelNotNeeded) {
		d.logger.Info("enrichment skipped, not needed",
			zap.String("domain", string(domain)),
			zap.Int64("durationMs", result.DurationMs))
		return result
	}

	result.Content = content
	d.logger.Info("enrichment complete",
		zap.String("domain", string(domain)),
		zap.String("provider", target.Provider),
		zap.Int("contentLen", len(content)),
		zap.Int64("durationMs", result.DurationMs))
	return result
}

// storeEnrichment persists the full enrichment content; unlike orchestrator
// handoffs the result column is not truncated.
func (d *Decomposer) storeEnrichment(req DecompositionRequest, r EnrichmentResult) {
	if d.store == nil {
		return
	}
	status := obs.HandoffCompleted
	outcome := r.Content
	if r.Err != "" {
		status = obs.HandoffFailed
		outcome = r.Err
	}
	d.store.StoreHandoff(obs.Handoff{
		FromBrain:  req.OriginalProvider + "/" + req.OriginalModel,
		ToDomain:   string(r.Domain),
		ToProvider: r.Provider,
		ToModel:    r.Model,
		Context:    clip(req.OriginalPrompt, contextBudget),
		Status:     status,
		Result:     outcome,
	})
}
