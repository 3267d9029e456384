package route

func defaultRoutes() map[Domain]Target {
	return map[Domain]Target{
		DomainCode:     {Provider: "openai-codex", Model: "gpt-5.3-codex"},
		DomainCreative: {Provider: "anthropic", Model: "claude-opus-4-6"},
		DomainAnalysis: {Provider: "anthropic", Model: "claude-sonnet-4-5"},
		DomainVision:   {Provider: "google-gemini", Model: "gemini-2.5-pro"},
		DomainSystem:   {Provider: "anthropic", Model: "claude-haiku-4-5"},
		DomainSchedule: {Provider: "anthropic", Model: "claude-sonnet-4-5"},
		DomainSearch:   {Provider: "google-gemini", Model: "gemini-2.5-flash"},
	}
}

func defaultEnrichment() map[Domain]Target {
	return map[Domain]Target{
		DomainCode:     {Provider: "openai-codex", Model: "gpt-5.3-codex"},
		DomainCreative: {Provider: "anthropic", Model: "claude-opus-4-6"},
		DomainAnalysis: {Provider: "anthropic", Model: "claude-sonnet-4-5"},
		DomainSearch:   {Provider: "google-gemini", Model: "gemini-2.5-flash"},
		DomainVision:   {Provider: "google-gemini", Model: "gemini-2.5-pro"},
		DomainSystem:   {Provider: "anthropic", Model: "claude-haiku-4-5"},
		DomainSchedule: {Provider: "anthropic", Model: "claude-haiku-4-5"},
	}
}

func defaultVerifiers() map[Domain]Target {
	// Every domain is cross-checked by Sonnet regardless of who answered.
	verifier := Target{Provider: "anthropic", Model: "claude-sonnet-4-6"}
	out := make(map[Domain]Target, len(Domains()))
	for _, d := range Domains() {
		out[d] = verifier
	}
	return out
}

func defaultGuidance() map[Domain]string {
	return map[Domain]string{
		DomainCode:     "Focus on: code examples, implementation patterns, technical accuracy, API details, edge cases.",
		DomainCreative: "Focus on: engaging writing, clear structure, audience-appropriate tone, compelling narrative, strong hooks.",
		DomainAnalysis: "Focus on: data-driven insights, factual accuracy, balanced perspective, evidence-based conclusions.",
		DomainSearch:   "Focus on: current/recent information, verified facts, source attribution, freshness of data.",
		DomainVision:   "Focus on: visual details, spatial relationships, text extraction, diagram interpretation.",
		DomainSystem:   "Focus on: precise commands, safety warnings, correct paths/flags, OS-specific details.",
		DomainSchedule: "Focus on: time constraints, dependencies, realistic estimates, conflict detection.",
	}
}
