package classifier

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const maxDecisionEntries = 500

// Decision is one logged routing decision, kept in memory for the stats
// surface. InputSummary is truncated, never the full message.
type Decision struct {
	Timestamp      time.Time `json:"timestamp"`
	InputSummary   string    `json:"inputSummary"`
	Classification Result    `json:"classification"`
}

// Stats aggregates the in-memory decision log.
type Stats struct {
	Total         int            `json:"total"`
	ByDomain      map[string]int `json:"byDomain"`
	ByProvider    map[string]int `json:"byProvider"`
	AvgConfidence int            `json:"avgConfidence"`
}

type decisionLog struct {
	mu      sync.Mutex
	entries []Decision
}

func newDecisionLog() *decisionLog {
	return &decisionLog{}
}

func (l *decisionLog) add(message string, result Result) {
	summary := message
	if len(summary) > 100 {
		summary = summary[:100]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Decision{
		Timestamp:      time.Now(),
		InputSummary:   summary,
		Classification: result,
	})
	if len(l.entries) > maxDecisionEntries {
		l.entries = l.entries[len(l.entries)-maxDecisionEntries:]
	}
}

func (l *decisionLog) recent(limit int) []Decision {
	if limit <= 0 {
		limit = 50
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	start := len(l.entries) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Decision, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

func (l *decisionLog) stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Stats{
		Total:      len(l.entries),
		ByDomain:   make(map[string]int),
		ByProvider: make(map[string]int),
	}
	total := 0
	for _, d := range l.entries {
		s.ByDomain[string(d.Classification.Domain)]++
		s.ByProvider[d.Classification.Provider]++
		total += d.Classification.Confidence
	}
	if len(l.entries) > 0 {
		s.AvgConfidence = (total + len(l.entries)/2) / len(l.entries)
	}
	return s
}

// LogDecision records a routing decision in the in-memory ring.
func (c *Classifier) LogDecision(message string, result Result) {
	c.decisions.add(message, result)
	summary := message
	if len(summary) > 50 {
		summary = summary[:50]
	}
	c.logger.Info("route",
		zap.String("domain", string(result.Domain)),
		zap.String("provider", result.Provider),
		zap.String("model", result.Model),
		zap.Int("confidence", result.Confidence),
		zap.String("reason", result.Reason),
		zap.String("input", summary),
	)
}

// Decisions returns the most recent routing decisions, newest last.
func (c *Classifier) Decisions(limit int) []Decision {
	return c.decisions.recent(limit)
}

// Stats aggregates the decision log by domain and provider.
func (c *Classifier) Stats() Stats {
	return c.decisions.stats()
}
