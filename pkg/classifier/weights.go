package classifier

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// domainWeights are the tunable knobs for one domain rule. Pointers
// distinguish "absent" from zero.
type domainWeights struct {
	BaseConfidence *int `json:"baseConfidence,omitempty"`
	KeywordBoost   *int `json:"keywordBoost,omitempty"`
	PatternBoost   *int `json:"patternBoost,omitempty"`
}

// weightsDoc is the weights file shape. A flat object keyed by domain
// (without the "domains" wrapper) is accepted too.
type weightsDoc struct {
	Domains             map[string]domainWeights `json:"domains"`
	ConfidenceThreshold *int                     `json:"confidenceThreshold,omitempty"`
}

// weightsLoader caches the parsed weights file and its mtime so the hot
// path pays only a stat call, and only re-parses when the file changed.
type weightsLoader struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	mtime   time.Time
	statted bool
	cached  *weightsDoc
}

func newWeightsLoader(path string, logger *zap.Logger) *weightsLoader {
	return &weightsLoader{path: path, logger: logger}
}

// load returns the current weights and whether they changed since the
// previous call. A missing or malformed file yields (nil, changed) so the
// caller falls back to defaults.
func (l *weightsLoader) load() (*weightsDoc, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.path)
	if err != nil {
		changed := l.statted && l.cached != nil
		l.statted = true
		l.cached = nil
		return nil, changed
	}
	if l.statted && info.ModTime().Equal(l.mtime) {
		return l.cached, false
	}
	l.statted = true
	l.mtime = info.ModTime()

	data, err := os.ReadFile(l.path)
	if err != nil {
		l.cached = nil
		return nil, true
	}

	doc := parseWeights(data)
	if doc == nil {
		l.logger.Debug("routing weights not loaded", zap.String("path", l.path))
	}
	l.cached = doc
	return doc, true
}

func parseWeights(data []byte) *weightsDoc {
	var doc weightsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	if doc.Domains != nil {
		return &doc
	}
	// Flat form: the top-level keys are the domains themselves.
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil
	}
	doc.Domains = make(map[string]domainWeights)
	for key, raw := range flat {
		if key == "confidenceThreshold" {
			continue
		}
		var dw domainWeights
		if err := json.Unmarshal(raw, &dw); err == nil {
			doc.Domains[key] = dw
		}
	}
	return &doc
}
