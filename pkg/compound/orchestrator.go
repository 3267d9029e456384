// Package compound runs multi-brain work for compound classifications: the
// pre-reply Orchestrator fans a question out across domain specialists and
// merges their answers, while the post-reply Decomposer gathers
// supplementary enrichment after the user already has an answer.
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

const (
	subTaskTimeout = 30 * time.Second
	overallCeiling = 60 * time.Second
	// primaryGrace is how long past the overall deadline the primary
	// sub-task may still land and be salvaged.
	primaryGrace  = 2 * time.Second
	mergeFloor    = 5 * time.Second
	contextBudget = 500
	resultBudget  = 2000
)

// SubTaskResult is the settled outcome of one domain specialist call.
// Failures are captured in Err, never raised past the orchestration
// boundary.
type SubTaskResult struct {
	Domain     route.Domain `json:"domain"`
	Provider   string       `json:"provider"`
	Model      string       `json:"model"`
	Content    string       `json:"content"`
	DurationMs int64        `json:"durationMs"`
	Err        string       `json:"error,omitempty"`
}

// Result is the outcome of one compound orchestration.
type Result struct {
	MergedText      string          `json:"mergedText"`
	SubTasks        []SubTaskResult `json:"subTasks"`
	TotalDurationMs int64           `json:"totalDurationMs"`
	DidMerge        bool            `json:"didMerge"`
}

// Input carries one orchestration request.
type Input struct {
	Classification classifier.Result
	OriginalPrompt string
	SessionID      string
	WorkspaceDir   string
	// Timeout is the caller's budget for the whole batch; it is capped at
	// the 60s ceiling. Zero means the ceiling alone applies.
	Timeout time.Duration
}

// Orchestrator executes primary + secondary specialists in parallel and
// merges their results into a single response. It runs before the reply is
// delivered; the merged text replaces the single-brain answer.
type Orchestrator struct {
	resolver *route.Resolver
	invoker  brain.Invoker
	merger   *Merger
	store    *obs.Store
	logger   *zap.Logger
}

// NewOrchestrator wires an orchestrator. store may be nil to disable
// persistence (tests).
func NewOrchestrator(resolver *route.Resolver, invoker brain.Invoker, store *obs.Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		resolver: resolver,
		invoker:  invoker,
		merger:   NewMerger(resolver, invoker, logger),
		store:    store,
		logger:   logger,
	}
}

// Orchestrate fans the question out to the primary and every secondary
// domain, waits for the batch to settle (or the deadline), and merges.
//
// It returns nil in exactly two cases: the classification has no
// secondaries (nothing compound to do), or the primary produced no usable
// content, in which case the caller falls through to its single-brain
// path. A
// failing secondary never causes nil; it is dropped from the merge set.
func (o *Orchestrator) Orchestrate(ctx context.Context, in Input) *Result {
	secondaries := in.Classification.SecondaryDomains
	if len(secondaries) == 0 {
		return nil
	}

	orchestrationID := uuid.NewString()
	overall := overallCeiling
	if in.Timeout > 0 && in.Timeout < overall {
		overall = in.Timeout
	}
	start := time.Now()

	domainNames := make([]string, len(secondaries))
	for i, s := range secondaries {
		domainNames[i] = string(s.Domain)
	}
	o.logger.Info("compound orchestration",
		zap.String("primary", string(in.Classification.Domain)),
		zap.Strings("secondaries", domainNames),
		zap.String("sessionId", in.SessionID),
		zap.String("orchestrationId", orchestrationID))

	o.emit("compound_orchestration_start", in.SessionID, map[string]any{
		"orchestrationId":  orchestrationID,
		"primaryDomain":    in.Classification.Domain,
		"secondaryDomains": domainNames,
	})

	// Launch primary + all secondaries in parallel. Slot 0 is the primary;
	// its write is published by closing primaryDone so the salvage path
	// can read it safely after a deadline.
	all := make([]SubTaskResult, 1+len(secondaries))
	primaryDone := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		all[0] = o.executeSubTask(ctx, in.Classification.Domain, in)
		close(primaryDone)
	}()
	for i, s := range secondaries {
		wg.Add(1)
		go func(i int, d route.Domain) {
			defer wg.Done()
			all[i+1] = o.executeSubTask(ctx, d, in)
		}(i, s.Domain)
	}

	batchDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(batchDone)
	}()

	var primary *SubTaskResult
	var secondaryResults []SubTaskResult

	select {
	case <-batchDone:
		primary = &all[0]
		secondaryResults = all[1:]
	case <-time.After(overall):
		// Deadline fired. Give the primary a short grace window; the
		// secondaries are abandoned, not cancelled.
		o.logger.Warn("compound orchestration timed out", zap.Duration("after", overall))
		select {
		case <-primaryDone:
			primary = &all[0]
		case <-time.After(primaryGrace):
		}
	}

	if primary == nil || (primary.Err != "" && primary.Content == "") {
		o.logger.Warn("compound orchestration: primary failed, falling through to normal path")
		o.emit("compound_orchestration_complete", in.SessionID, map[string]any{
			"orchestrationId": orchestrationID,
			"status":          "primary_failed",
			"totalDurationMs": time.Since(start).Milliseconds(),
		})
		return nil
	}

	allResults := append([]SubTaskResult{*primary}, secondaryResults...)

	// Handoffs are written before merging for auditability; merge never
	// depends on the writes landing.
	for _, r := range allResults {
		o.storeHandoff(in.Classification, r, in.OriginalPrompt)
	}
	for _, r := range allResults {
		o.emit("compound_subtask_complete", in.SessionID, map[string]any{
			"orchestrationId": orchestrationID,
			"domain":          r.Domain,
			"provider":        r.Provider,
			"model":           r.Model,
			"contentLength":   len(r.Content),
			"durationMs":      r.DurationMs,
			"error":           r.Err,
		})
	}

	var validSecondaries []SubTaskResult
	for _, r := range secondaryResults {
		if r.Err == "" && strings.TrimSpace(r.Content) != "" {
			validSecondaries = append(validSecondaries, r)
		}
	}
	didMerge := len(validSecondaries) > 0

	mergedText := primary.Content
	if didMerge {
		mergeTimeout := overall - time.Since(start)
		if mergeTimeout < mergeFloor {
			mergeTimeout = mergeFloor
		}
		mergedText = o.merger.Merge(ctx, in.OriginalPrompt, *primary, validSecondaries, mergeTimeout)
	}

	totalDuration := time.Since(start)
	successCount := 0
	for _, r := range allResults {
		if r.Err == "" && r.Content != "" {
			successCount++
		}
	}

	o.emit("compound_orchestration_complete", in.SessionID, map[string]any{
		"orchestrationId": orchestrationID,
		"primaryDomain":   in.Classification.Domain,
		"successCount":    successCount,
		"totalCount":      len(allResults),
		"didMerge":        didMerge,
		"totalDurationMs": totalDuration.Milliseconds(),
	})
	o.logger.Info("compound orchestration complete",
		zap.Int("succeeded", successCount),
		zap.Int("total", len(allResults)),
		zap.Bool("didMerge", didMerge),
		zap.Duration("duration", totalDuration))

	return &Result{
		MergedText:      mergedText,
		SubTasks:        allResults,
		TotalDurationMs: totalDuration.Milliseconds(),
		DidMerge:        didMerge,
	}
}

// executeSubTask runs one domain specialist. Errors and the not-relevant
// sentinel are folded into the result; this never returns an error.
func (o *Orchestrator) executeSubTask(ctx context.Context, domain route.Domain, in Input) SubTaskResult {
	target := o.resolver.Enricher(domain)
	prompt := buildSubTaskPrompt(domain, o.resolver.GuidanceFor(domain), in.OriginalPrompt)
	start := time.Now()

	resp, err := o.invoker.Invoke(ctx, brain.Request{
		Prompt:       prompt,
		Provider:     target.Provider,
		Model:        target.Model,
		SessionID:    uuid.NewString(),
		WorkspaceDir: in.WorkspaceDir,
		Timeout:      subTaskTimeout,
	})

	result := SubTaskResult{
		Domain:     domain,
		Provider:   target.Provider,
		Model:      target.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Err = err.Error()
		o.logger.Warn("subtask failed",
			zap.String("domain", string(domain)),
			zap.Error(err),
			zap.Int64("durationMs", result.DurationMs))
		return result
	}

	content := resp.Text()
	if strings.Contains(content, SentinelNotRelevant) {
		o.logger.Info("subtask skipped, domain not relevant",
			zap.String("domain", string(domain)),
			zap.Int64("durationMs", result.DurationMs))
		return result
	}

	result.Content = content
	o.logger.Info("subtask complete",
		zap.String("domain", string(domain)),
		zap.String("provider", target.Provider),
		zap.Int("contentLen", len(content)),
		zap.Int64("durationMs", result.DurationMs))
	return result
}

func (o *Orchestrator) storeHandoff(c classifier.Result, r SubTaskResult, originalPrompt string) {
	if o.store == nil {
		return
	}
	status := obs.HandoffCompleted
	outcome := clip(r.Content, resultBudget)
	if r.Err != "" {
		status = obs.HandoffFailed
		outcome = r.Err
	}
	o.store.StoreHandoff(obs.Handoff{
		FromBrain:  c.Provider + "/" + c.Model,
		ToDomain:   string(r.Domain),
		ToProvider: r.Provider,
		ToModel:    r.Model,
		Context:    clip(originalPrompt, contextBudget),
		Status:     status,
		Result:     outcome,
	})
}

func (o *Orchestrator) emit(action, traceID string, metadata map[string]any) {
	if o.store == nil {
		return
	}
	o.store.Emit(obs.Event{Category: "routing", Action: action, TraceID: traceID, Metadata: metadata})
}
