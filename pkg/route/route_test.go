package route

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRouteKnownDomains(t *testing.T) {
	r := NewResolver()
	for _, d := range Domains() {
		target := r.Route(d)
		if target.Provider == "" || target.Model == "" {
			t.Fatalf("domain %s resolved to empty target", d)
		}
	}
}

func TestRouteUnknownDomainFallsBack(t *testing.T) {
	r := NewResolver()
	target := r.Route(Domain("astrology"))
	if target != r.Default {
		t.Fatalf("unknown domain should use default route, got %+v", target)
	}
}

func TestEnricherFallsBackToRoute(t *testing.T) {
	r := NewResolver()
	delete(r.Enrichment, DomainSearch)
	if got := r.Enricher(DomainSearch); got != r.Routes[DomainSearch] {
		t.Fatalf("expected route fallback, got %+v", got)
	}
}

func TestGuidanceUnknownDomain(t *testing.T) {
	r := NewResolver()
	g := r.GuidanceFor(Domain("astrology"))
	if g == "" {
		t.Fatal("unknown domain should get generic guidance")
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	content := []byte(`
routes:
  code:
    provider: local
    model: test-model
merger:
  provider: local
  model: merge-model
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	r := Load(path)
	if got := r.Route(DomainCode); got.Provider != "local" || got.Model != "test-model" {
		t.Fatalf("overlay not applied: %+v", got)
	}
	// Untouched entries keep defaults.
	if got := r.Route(DomainCreative); got.Provider != "anthropic" {
		t.Fatalf("default route lost: %+v", got)
	}
	if r.Merger.Model != "merge-model" {
		t.Fatalf("merger overlay not applied: %+v", r.Merger)
	}
}

func TestLoadMissingAndMalformed(t *testing.T) {
	r := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if r.Route(DomainCode).Provider != "openai-codex" {
		t.Fatal("missing file should fall back to defaults")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0644); err != nil {
		t.Fatal(err)
	}
	r = Load(path)
	if r.Route(DomainCode).Provider != "openai-codex" {
		t.Fatal("malformed file should fall back to defaults")
	}
}
