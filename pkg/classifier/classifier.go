// Package classifier assigns incoming messages to task domains using
// keyword and pattern heuristics. Classification is pure and synchronous:
// no network, no LLM, and no disk beyond a cheap mtime check on the
// optional weights file.
package classifier

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/route"
)

const (
	// defaultThreshold is the minimum score for a domain to win outright.
	defaultThreshold = 70
	// compoundRunnerUpGap is how close a runner-up must be to the winner
	// to count as a secondary domain. Tuning data so far does not suggest
	// scaling it with the threshold.
	compoundRunnerUpGap = 40
)

// OverrideSource tags why a route was picked.
type OverrideSource string

const (
	SourceUser      OverrideSource = "user"
	SourceImage     OverrideSource = "image"
	SourceHeuristic OverrideSource = "heuristic"
)

// SecondaryDomain is a runner-up domain close enough to the winner to make
// the task compound.
type SecondaryDomain struct {
	Domain     route.Domain `json:"domain"`
	Confidence int          `json:"confidence"`
}

// Result is the outcome of classifying one message.
type Result struct {
	Domain           route.Domain      `json:"domain"`
	Provider         string            `json:"provider"`
	Model            string            `json:"model"`
	Confidence       int               `json:"confidence"`
	Reason           string            `json:"reason"`
	OverrideSource   OverrideSource    `json:"overrideSource,omitempty"`
	SecondaryDomains []SecondaryDomain `json:"secondaryDomains,omitempty"`
	IsCompound       bool              `json:"isCompound,omitempty"`
}

// Input is one classification request.
type Input struct {
	Message   string
	HasImages bool
	// Override skips classification when the caller already resolved a
	// target.
	Override *route.Target
}

// Classifier scores messages against the domain rules. Safe for concurrent
// use; weight reloads are serialized behind the rules lock.
type Classifier struct {
	resolver *route.Resolver
	logger   *zap.Logger

	mu        sync.RWMutex
	rules     []domainRule
	threshold int

	weights   *weightsLoader
	decisions *decisionLog
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithWeightsFile enables hot-reloaded weights from the given JSON file.
func WithWeightsFile(path string) Option {
	return func(c *Classifier) {
		c.weights = newWeightsLoader(path, c.logger)
	}
}

// New creates a classifier with built-in rules.
func New(resolver *route.Resolver, logger *zap.Logger, opts ...Option) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Classifier{
		resolver:  resolver,
		logger:    logger,
		rules:     defaultRules(),
		threshold: defaultThreshold,
		decisions: newDecisionLog(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threshold returns the effective confidence threshold, applying any
// pending weights reload first.
func (c *Classifier) Threshold() int {
	c.maybeReload()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threshold
}

// Classify assigns the message to a domain.
//
// Precedence, first match wins: explicit override, user phrase override,
// image shortcut, heuristic scoring, default route.
func (c *Classifier) Classify(input Input) Result {
	c.maybeReload()

	if input.Override != nil {
		return Result{
			Domain:         route.DomainAnalysis,
			Provider:       input.Override.Provider,
			Model:          input.Override.Model,
			Confidence:     100,
			Reason:         "Explicit override from caller",
			OverrideSource: SourceUser,
		}
	}

	for _, o := range userOverridePatterns {
		if o.pattern.MatchString(input.Message) {
			// Domain is informational when overridden.
			return Result{
				Domain:         route.DomainAnalysis,
				Provider:       o.provider,
				Model:          o.model,
				Confidence:     100,
				Reason:         fmt.Sprintf("User override: %q", o.label),
				OverrideSource: SourceUser,
			}
		}
	}

	if input.HasImages {
		return c.classifyImage(input.Message)
	}

	return c.classifyHeuristic(input.Message)
}

// classifyImage routes image-bearing requests. A message with two or more
// code signal words is likely a code screenshot and goes to the code brain;
// everything else goes to the vision brain.
func (c *Classifier) classifyImage(message string) Result {
	lower := strings.ToLower(message)
	hits := 0
	for _, signal := range codeSignals {
		if strings.Contains(lower, signal) {
			hits++
		}
	}
	if hits >= 2 {
		target := c.resolver.Route(route.DomainCode)
		return Result{
			Domain:         route.DomainCode,
			Provider:       target.Provider,
			Model:          target.Model,
			Confidence:     90,
			Reason:         fmt.Sprintf("Code screenshot detected (%d code keywords + image)", hits),
			OverrideSource: SourceImage,
		}
	}
	target := c.resolver.Route(route.DomainVision)
	return Result{
		Domain:         route.DomainVision,
		Provider:       target.Provider,
		Model:          target.Model,
		Confidence:     95,
		Reason:         "Image content detected",
		OverrideSource: SourceImage,
	}
}

type domainScore struct {
	domain    route.Domain
	score     int
	matchedOn string
}

func (c *Classifier) classifyHeuristic(message string) Result {
	c.mu.RLock()
	rules := c.rules
	threshold := c.threshold
	c.mu.RUnlock()

	lower := strings.ToLower(message)
	var scores []domainScore

	for _, rule := range rules {
		keywordHits := 0
		matchedOn := ""
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				keywordHits++
				if matchedOn == "" {
					matchedOn = keyword
				}
			}
		}

		patternHits := 0
		for _, pattern := range rule.patterns {
			if pattern.MatchString(message) {
				patternHits++
				if matchedOn == "" {
					src := pattern.String()
					if len(src) > 30 {
						src = src[:30]
					}
					matchedOn = "pattern:" + src
				}
			}
		}

		if keywordHits == 0 && patternHits == 0 {
			continue
		}
		score := rule.baseConfidence
		score += min(keywordHits*rule.keywordBoost, 15)
		score += min(patternHits*rule.patternBoost, 15)
		// Reloaded weights can push the base outside the confidence range.
		score = min(max(score, 0), 100)
		scores = append(scores, domainScore{domain: rule.domain, score: score, matchedOn: matchedOn})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if len(scores) > 0 && scores[0].score >= threshold {
		best := scores[0]
		target := c.resolver.Route(best.domain)

		var secondaries []SecondaryDomain
		for _, s := range scores[1:] {
			if s.score >= threshold && s.score >= best.score-compoundRunnerUpGap {
				secondaries = append(secondaries, SecondaryDomain{Domain: s.domain, Confidence: s.score})
			}
		}

		return Result{
			Domain:           best.domain,
			Provider:         target.Provider,
			Model:            target.Model,
			Confidence:       best.score,
			Reason:           fmt.Sprintf("Heuristic: %s (matched: %s)", best.domain, best.matchedOn),
			OverrideSource:   SourceHeuristic,
			SecondaryDomains: secondaries,
			IsCompound:       len(secondaries) > 0,
		}
	}

	// Below threshold: fall back to the default route at whatever score
	// was found.
	confidence := 0
	reason := "No domain matched, using default route"
	if len(scores) > 0 {
		confidence = scores[0].score
		reason = fmt.Sprintf("Below threshold (%d%% < %d%%), using default route", scores[0].score, threshold)
	}
	return Result{
		Domain:         route.DomainAnalysis,
		Provider:       c.resolver.Default.Provider,
		Model:          c.resolver.Default.Model,
		Confidence:     confidence,
		Reason:         reason,
		OverrideSource: SourceHeuristic,
	}
}

// maybeReload applies the weights file if it changed since the last check.
func (c *Classifier) maybeReload() {
	if c.weights == nil {
		return
	}
	w, changed := c.weights.load()
	if !changed {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = defaultRules()
	c.threshold = defaultThreshold
	if w == nil {
		// File removed or malformed since the last load.
		c.logger.Info("routing weights reset to defaults")
		return
	}
	for i := range c.rules {
		d, ok := w.Domains[string(c.rules[i].domain)]
		if !ok {
			continue
		}
		if d.BaseConfidence != nil {
			c.rules[i].baseConfidence = *d.BaseConfidence
		}
		if d.KeywordBoost != nil {
			c.rules[i].keywordBoost = *d.KeywordBoost
		}
		if d.PatternBoost != nil {
			c.rules[i].patternBoost = *d.PatternBoost
		}
	}
	if w.ConfidenceThreshold != nil {
		c.threshold = *w.ConfidenceThreshold
	}
	c.logger.Info("routing weights applied", zap.Int("threshold", c.threshold))
}
