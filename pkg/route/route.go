// Package route holds the stable domain vocabulary and the static tables
// that map a domain to the brain responsible for it. Three tables exist and
// must stay in lockstep when a domain is added: the routing table (who
// answers), the enrichment table (who supplements), and the verifier table
// (who critiques). A domain missing from any table resolves to documented
// fallback behavior, never an error.
package route

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Domain is a fixed category of task intent used to pick a brain and to
// group compound sub-tasks. The string values are wire-level: they appear
// in persisted handoff records and observability events.
type Domain string

const (
	DomainCode     Domain = "code"
	DomainCreative Domain = "creative"
	DomainAnalysis Domain = "analysis"
	DomainVision   Domain = "vision"
	DomainSystem   Domain = "system"
	DomainSchedule Domain = "schedule"
	DomainSearch   Domain = "search"
)

// Domains lists every known domain in a stable order.
func Domains() []Domain {
	return []Domain{
		DomainCode, DomainCreative, DomainAnalysis, DomainVision,
		DomainSystem, DomainSchedule, DomainSearch,
	}
}

// Target identifies a concrete backend brain.
type Target struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Resolver answers domain → brain questions for the orchestration pipeline.
// Construct with NewResolver for built-in defaults, or Load to overlay a
// YAML file on top of them.
type Resolver struct {
	Routes     map[Domain]Target `yaml:"routes"`
	Enrichment map[Domain]Target `yaml:"enrichment"`
	Verifiers  map[Domain]Target `yaml:"verifiers"`
	Guidance   map[Domain]string `yaml:"guidance"`
	Default    Target            `yaml:"default"`
	Merger     Target            `yaml:"merger"`
}

// NewResolver returns a resolver populated with the built-in tables.
func NewResolver() *Resolver {
	return &Resolver{
		Routes:     defaultRoutes(),
		Enrichment: defaultEnrichment(),
		Verifiers:  defaultVerifiers(),
		Guidance:   defaultGuidance(),
		Default:    Target{Provider: "anthropic", Model: "claude-sonnet-4-5"},
		Merger:     Target{Provider: "anthropic", Model: "claude-haiku-4-5"},
	}
}

// Load overlays a YAML table file on the defaults. A missing or malformed
// file is not an error: the built-in tables are the contract, the file is
// tuning.
func Load(path string) *Resolver {
	r := NewResolver()
	data, err := os.ReadFile(path)
	if err != nil {
		return r
	}
	var overlay Resolver
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return r
	}
	for d, t := range overlay.Routes {
		r.Routes[d] = t
	}
	for d, t := range overlay.Enrichment {
		r.Enrichment[d] = t
	}
	for d, t := range overlay.Verifiers {
		r.Verifiers[d] = t
	}
	for d, g := range overlay.Guidance {
		r.Guidance[d] = g
	}
	if overlay.Default.Provider != "" {
		r.Default = overlay.Default
	}
	if overlay.Merger.Provider != "" {
		r.Merger = overlay.Merger
	}
	return r
}

// Route returns the primary brain for a domain, or the default route for an
// unknown domain.
func (r *Resolver) Route(d Domain) Target {
	if t, ok := r.Routes[d]; ok {
		return t
	}
	return r.Default
}

// Enricher returns the brain that supplements a domain. Falls back to the
// routing table, then the default.
func (r *Resolver) Enricher(d Domain) Target {
	if t, ok := r.Enrichment[d]; ok {
		return t
	}
	return r.Route(d)
}

// Verifier returns the brain that critiques a domain's replies. Each domain
// is verified by a different brain than the one that answered, to catch
// blind spots.
func (r *Resolver) Verifier(d Domain) Target {
	if t, ok := r.Verifiers[d]; ok {
		return t
	}
	return r.Verifiers[DomainCode]
}

// GuidanceFor returns the domain focus line used in sub-task and
// verification prompts. Unknown domains get the generic text.
func (r *Resolver) GuidanceFor(d Domain) string {
	if g, ok := r.Guidance[d]; ok {
		return g
	}
	return "Focus on: factual accuracy, completeness, and providing expert-level insight."
}
