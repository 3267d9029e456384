// Package verify cross-checks high-confidence replies with a different
// brain after delivery. It is fire-and-forget: a verification failure
// produces a conservative fail verdict and a quality score, never an error
// on the path that already answered the user.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/brain"
	"github.com/zen-systems/synapse/pkg/obs"
	"github.com/zen-systems/synapse/pkg/route"
)

const (
	verificationTimeout = 30 * time.Second
	minConfidence       = 80
	// heuristicConfidence flags a verdict recovered by keyword scan rather
	// than a structured reply.
	heuristicConfidence = 30
	promptBudget        = 1000
	responseBudget      = 4000
)

// Request describes one verification run.
type Request struct {
	Domain           route.Domain
	OriginalProvider string
	OriginalModel    string
	ResponseText     string
	OriginalPrompt   string
	RunID            string
	WorkspaceDir     string
}

// Result is a verification verdict.
type Result struct {
	Passed           bool     `json:"passed"`
	Confidence       int      `json:"confidence"`
	Issues           []string `json:"issues,omitempty"`
	VerifierProvider string   `json:"verifierProvider"`
	VerifierModel    string   `json:"verifierModel"`
}

// ShouldVerify gates verification to high-impact domains with a
// high-confidence classification. Schedule replies are never verified.
func ShouldVerify(domain route.Domain, confidence int) bool {
	if confidence < minConfidence {
		return false
	}
	switch domain {
	case route.DomainCode, route.DomainCreative, route.DomainAnalysis,
		route.DomainSearch, route.DomainVision, route.DomainSystem:
		return true
	}
	return false
}

// checkGuidance is the per-domain critique focus embedded in the prompt.
var checkGuidance = map[route.Domain]string{
	route.DomainCode:     "Check for: bugs, security issues, logic errors, missing edge cases, incorrect assumptions.",
	route.DomainCreative: "Check for: tone consistency with brand voice, unclear claims, missing attribution, logical gaps.",
	route.DomainAnalysis: "Check for: factual accuracy, unsupported claims, logical fallacies, missing nuance, outdated information.",
	route.DomainSearch:   "Check for: stale or outdated information, broken assumptions about current state, missing caveats about data freshness.",
	route.DomainVision:   "Check for: misidentified objects, incorrect spatial descriptions, missed text in images, wrong diagram interpretations.",
	route.DomainSystem:   "Check for: dangerous commands, incorrect paths/flags, missing safety warnings, OS-incompatible instructions.",
}

const fallbackCheckGuidance = "Check for: factual accuracy, tone consistency, unclear claims, missing attribution, logical gaps."

func buildPrompt(req Request) string {
	guidance, ok := checkGuidance[req.Domain]
	if !ok {
		guidance = fallbackCheckGuidance
	}
	return strings.Join([]string{
		"You are a verification agent. Review the following AI-generated response for quality issues.",
		"",
		fmt.Sprintf("Domain: %s", req.Domain),
		fmt.Sprintf("Original model: %s/%s", req.OriginalProvider, req.OriginalModel),
		"",
		"--- ORIGINAL PROMPT ---",
		preview(req.OriginalPrompt, promptBudget),
		"",
		"--- RESPONSE TO VERIFY ---",
		preview(req.ResponseText, responseBudget),
		"",
		"--- INSTRUCTIONS ---",
		guidance,
		"",
		`Respond with a JSON object: { "passed": boolean, "confidence": 0-100, "issues": ["issue1", ...] }`,
		"If the response is acceptable, set passed=true and issues=[]. Be concise.",
	}, "\n")
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}

// Verifier runs verification calls and feeds results into observability.
type Verifier struct {
	resolver *route.Resolver
	invoker  brain.Invoker
	store    *obs.Store
	logger   *zap.Logger
}

func NewVerifier(resolver *route.Resolver, invoker brain.Invoker, store *obs.Store, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{resolver: resolver, invoker: invoker, store: store, logger: logger}
}

// Verify runs one verification. It never returns an error: a failing
// verifier call yields a conservative fail verdict (passed=false,
// confidence 0).
func (v *Verifier) Verify(ctx context.Context, req Request) Result {
	target := v.resolver.Verifier(req.Domain)
	v.logger.Info("verification",
		zap.String("domain", string(req.Domain)),
		zap.String("original", req.OriginalProvider+"/"+req.OriginalModel),
		zap.String("verifier", target.Provider+"/"+target.Model),
		zap.String("runId", req.RunID))

	var result Result
	resp, err := v.invoker.Invoke(ctx, brain.Request{
		Prompt:       buildPrompt(req),
		Provider:     target.Provider,
		Model:        target.Model,
		SessionID:    uuid.NewString(),
		WorkspaceDir: req.WorkspaceDir,
		Timeout:      verificationTimeout,
	})
	if err != nil {
		v.logger.Warn("verification call failed", zap.Error(err))
		result = Result{
			Passed:           false,
			Confidence:       0,
			Issues:           []string{"Verification agent failed to respond"},
			VerifierProvider: target.Provider,
			VerifierModel:    target.Model,
		}
	} else {
		result = parseResponse(resp.Text(), target)
	}

	score := QualityScore(result)
	if v.store != nil {
		v.store.Emit(obs.Event{
			Category: "routing",
			Action:   "verified",
			TraceID:  req.RunID,
			Metadata: map[string]any{
				"domain":     req.Domain,
				"provider":   req.OriginalProvider,
				"model":      req.OriginalModel,
				"confidence": result.Confidence,
				"verified":   true,
			},
		})
		verdict := "FAIL"
		if result.Passed {
			verdict = "PASS"
		}
		v.store.Score(req.RunID, score,
			fmt.Sprintf("Verification by %s/%s: %s", target.Provider, target.Model, verdict))
	}

	v.logger.Info("verification result",
		zap.String("domain", string(req.Domain)),
		zap.Bool("passed", result.Passed),
		zap.Int("confidence", result.Confidence),
		zap.Int("issues", len(result.Issues)),
		zap.Int("qualityScore", score))
	return result
}

// QualityScore maps a verdict onto the 1-5 scale consumed by the routing
// optimizer. Confidence 0 means verification never really ran, which is
// scored neutral rather than punitive.
func QualityScore(r Result) int {
	if r.Confidence == 0 {
		return 3
	}
	if r.Passed {
		return 5
	}
	switch n := len(r.Issues); {
	case n == 0:
		return 4
	case n == 1:
		return 3
	case n <= 3:
		return 2
	default:
		return 1
	}
}
