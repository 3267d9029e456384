// Package middleware is the integration surface between a reply pipeline
// and the routing core. It exposes the hook points a host calls around one
// message: ApplyRouting before the model is chosen, Orchestrate before the
// reply is produced, and the fire-and-forget post-reply hooks.
package middleware

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/classifier"
	"github.com/zen-systems/synapse/pkg/compound"
	"github.com/zen-systems/synapse/pkg/obs"
	"github.com/zen-systems/synapse/pkg/verify"
)

// RoutingInput is the pre-reply state the host hands to the router.
type RoutingInput struct {
	Body string
	// IsHeartbeat marks automated keepalive traffic, which is never routed.
	IsHeartbeat bool
	// HasModelOverride is set when the host already resolved a model for
	// this turn; routing must not fight it.
	HasModelOverride bool
	HasImages        bool
	SessionID        string
}

// RoutingResult reports whether routing was applied and with what target.
type RoutingResult struct {
	Applied        bool
	Provider       string
	Model          string
	Classification *classifier.Result
}

// ReplyInput is the post-reply state for the fire-and-forget hooks.
type ReplyInput struct {
	Body         string
	IsHeartbeat  bool
	HasImages    bool
	Provider     string
	Model        string
	SessionID    string
	WorkspaceDir string
	ReplyText    string
}

// Router wires the routing core into a host reply pipeline.
type Router struct {
	classifier   *classifier.Classifier
	orchestrator *compound.Orchestrator
	decomposer   *compound.Decomposer
	verifier     *verify.Verifier
	store        *obs.Store
	logger       *zap.Logger
}

func NewRouter(
	c *classifier.Classifier,
	orch *compound.Orchestrator,
	dec *compound.Decomposer,
	ver *verify.Verifier,
	store *obs.Store,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		classifier:   c,
		orchestrator: orch,
		decomposer:   dec,
		verifier:     ver,
		store:        store,
		logger:       logger,
	}
}

func (r *Router) skip(body string, heartbeat bool) bool {
	return heartbeat || strings.TrimSpace(body) == ""
}

// ApplyRouting classifies the message and returns the target to use.
// Routing is skipped for heartbeats, pre-overridden turns, and empty
// bodies; a below-threshold classification is returned unapplied so the
// host stays on its own default.
func (r *Router) ApplyRouting(input RoutingInput) RoutingResult {
	if r.skip(input.Body, input.IsHeartbeat) || input.HasModelOverride {
		return RoutingResult{}
	}

	c := r.classifier.Classify(classifier.Input{Message: input.Body, HasImages: input.HasImages})
	r.classifier.LogDecision(input.Body, c)

	if r.store != nil {
		metadata := map[string]any{
			"domain":     c.Domain,
			"provider":   c.Provider,
			"model":      c.Model,
			"confidence": c.Confidence,
			"reason":     c.Reason,
		}
		if c.IsCompound {
			metadata["isCompound"] = true
			metadata["secondaryDomains"] = c.SecondaryDomains
		}
		r.store.Emit(obs.Event{
			Category: "routing",
			Action:   "classified",
			TraceID:  input.SessionID,
			Metadata: metadata,
		})
	}

	if c.Confidence >= r.classifier.Threshold() {
		return RoutingResult{Applied: true, Provider: c.Provider, Model: c.Model, Classification: &c}
	}
	return RoutingResult{Classification: &c}
}

// ShouldOrchestrate reports whether pre-reply compound orchestration
// should activate: a compound classification with at least one secondary
// at or above the confidence threshold.
func (r *Router) ShouldOrchestrate(input RoutingInput) (bool, *classifier.Result) {
	if r.skip(input.Body, input.IsHeartbeat) || input.HasModelOverride {
		return false, nil
	}

	c := r.classifier.Classify(classifier.Input{Message: input.Body, HasImages: input.HasImages})
	if !c.IsCompound || len(c.SecondaryDomains) == 0 {
		return false, &c
	}

	threshold := r.classifier.Threshold()
	for _, s := range c.SecondaryDomains {
		if s.Confidence >= threshold {
			return true, &c
		}
	}
	return false, &c
}

// Orchestrate runs compound orchestration and returns the merged text.
// ok is false when orchestration degraded to the single-brain path.
func (r *Router) Orchestrate(ctx context.Context, c classifier.Result, input RoutingInput, workspaceDir string, timeout time.Duration) (string, bool) {
	result := r.orchestrator.Orchestrate(ctx, compound.Input{
		Classification: c,
		OriginalPrompt: input.Body,
		SessionID:      input.SessionID,
		WorkspaceDir:   workspaceDir,
		Timeout:        timeout,
	})
	if result == nil || result.MergedText == "" {
		return "", false
	}
	return result.MergedText, true
}

// ScheduleDecomposition kicks off post-reply enrichment in the background.
// Nothing here can reach the code path that already delivered the reply:
// errors are logged and panics recovered.
func (r *Router) ScheduleDecomposition(input ReplyInput) {
	if r.skip(input.Body, input.IsHeartbeat) || input.ReplyText == "" {
		return
	}
	c := r.classifier.Classify(classifier.Input{Message: input.Body, HasImages: input.HasImages})
	if !compound.ShouldDecompose(c) {
		return
	}

	go func() {
		defer r.recoverHook("decomposition")
		r.decomposer.Decompose(context.Background(), compound.DecompositionRequest{
			Classification:   c,
			OriginalPrompt:   input.Body,
			PrimaryReplyText: input.ReplyText,
			OriginalProvider: input.Provider,
			OriginalModel:    input.Model,
			RunID:            input.SessionID,
			WorkspaceDir:     input.WorkspaceDir,
		})
	}()
}

// ScheduleVerification kicks off a background quality check of the
// delivered reply. Same isolation rules as ScheduleDecomposition.
func (r *Router) ScheduleVerification(input ReplyInput) {
	if r.skip(input.Body, input.IsHeartbeat) || input.ReplyText == "" {
		return
	}
	c := r.classifier.Classify(classifier.Input{Message: input.Body, HasImages: input.HasImages})
	if !verify.ShouldVerify(c.Domain, c.Confidence) {
		return
	}

	go func() {
		defer r.recoverHook("verification")
		r.verifier.Verify(context.Background(), verify.Request{
			Domain:           c.Domain,
			OriginalProvider: input.Provider,
			OriginalModel:    input.Model,
			ResponseText:     input.ReplyText,
			OriginalPrompt:   input.Body,
			RunID:            input.SessionID,
			WorkspaceDir:     input.WorkspaceDir,
		})
	}()
}

func (r *Router) recoverHook(name string) {
	if p := recover(); p != nil {
		r.logger.Warn("background hook panicked",
			zap.String("hook", name),
			zap.Any("panic", p))
	}
}
