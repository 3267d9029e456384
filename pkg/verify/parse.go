package verify

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zen-systems/synapse/pkg/route"
)

// verdictDoc is the structured reply shape a verifier brain is asked for.
type verdictDoc struct {
	Passed     *bool        `json:"passed"`
	Confidence *json.Number `json:"confidence"`
	Issues     []string     `json:"issues"`
}

var (
	passedPattern    = regexp.MustCompile(`\bpass(?:ed|es)?\b`)
	looksGoodPattern = regexp.MustCompile(`\blooks\s+good\b`)
	noIssuesPattern  = regexp.MustCompile(`\bno\s+issues\b`)
	acceptPattern    = regexp.MustCompile(`\baccept(?:ed|able)\b`)
)

// parseResponse recovers a verdict from raw verifier output. The brain may
// wrap its JSON in prose, so the first attempt scans for a balanced-brace
// object containing a "passed" key; failing that, a keyword heuristic over
// the lowercased text assigns a fixed low confidence to mark the verdict
// as unstructured.
func parseResponse(text string, verifier route.Target) Result {
	if r, ok := extractJSONVerdict(text, verifier); ok {
		return r
	}

	lower := strings.ToLower(text)
	passed := passedPattern.MatchString(lower) ||
		looksGoodPattern.MatchString(lower) ||
		noIssuesPattern.MatchString(lower) ||
		acceptPattern.MatchString(lower)

	issues := []string{}
	if !passed {
		issues = []string{"Could not parse structured response"}
	}
	return Result{
		Passed:           passed,
		Confidence:       heuristicConfidence,
		Issues:           issues,
		VerifierProvider: verifier.Provider,
		VerifierModel:    verifier.Model,
	}
}

func extractJSONVerdict(text string, verifier route.Target) (Result, bool) {
	depth := 0
	start := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start != -1 {
				if r, ok := decodeVerdict(text[start:i+1], verifier); ok {
					return r, true
				}
				start = -1
			}
		}
	}
	return Result{}, false
}

func decodeVerdict(candidate string, verifier route.Target) (Result, bool) {
	var doc verdictDoc
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return Result{}, false
	}
	if doc.Passed == nil {
		return Result{}, false
	}

	confidence := 50
	if doc.Confidence != nil {
		if f, err := doc.Confidence.Float64(); err == nil {
			confidence = int(f)
		}
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	issues := doc.Issues
	if issues == nil {
		issues = []string{}
	}
	return Result{
		Passed:           *doc.Passed,
		Confidence:       confidence,
		Issues:           issues,
		VerifierProvider: verifier.Provider,
		VerifierModel:    verifier.Model,
	}, true
}
