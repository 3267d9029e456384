package classifier

import "regexp"

// overridePattern routes a message straight to a named brain when the user
// asks for one explicitly. First matching pattern wins at confidence 100.
type overridePattern struct {
	pattern  *regexp.Regexp
	provider string
	model    string
	label    string
}

var userOverridePatterns = []overridePattern{
	{regexp.MustCompile(`(?i)\bask\s+claude\b`), "anthropic", "claude-opus-4-6", "Claude Opus"},
	{regexp.MustCompile(`(?i)\buse\s+claude\b`), "anthropic", "claude-opus-4-6", "Claude Opus"},
	{regexp.MustCompile(`(?i)\bwith\s+claude\b`), "anthropic", "claude-opus-4-6", "Claude Opus"},
	{regexp.MustCompile(`(?i)\bask\s+opus\b`), "anthropic", "claude-opus-4-6", "Claude Opus"},
	{regexp.MustCompile(`(?i)\buse\s+opus\b`), "anthropic", "claude-opus-4-6", "Claude Opus"},
	{regexp.MustCompile(`(?i)\bask\s+sonnet\b`), "anthropic", "claude-sonnet-4-5", "Claude Sonnet"},
	{regexp.MustCompile(`(?i)\buse\s+sonnet\b`), "anthropic", "claude-sonnet-4-5", "Claude Sonnet"},
	{regexp.MustCompile(`(?i)\bask\s+haiku\b`), "anthropic", "claude-haiku-4-5", "Claude Haiku"},
	{regexp.MustCompile(`(?i)\buse\s+haiku\b`), "anthropic", "claude-haiku-4-5", "Claude Haiku"},
	{regexp.MustCompile(`(?i)\bhave\s+codex\b`), "openai-codex", "gpt-5.3-codex", "Codex"},
	{regexp.MustCompile(`(?i)\bask\s+codex\b`), "openai-codex", "gpt-5.3-codex", "Codex"},
	{regexp.MustCompile(`(?i)\buse\s+codex\b`), "openai-codex", "gpt-5.3-codex", "Codex"},
	{regexp.MustCompile(`(?i)\bcodex\s+review\b`), "openai-codex", "gpt-5.3-codex", "Codex"},
	{regexp.MustCompile(`(?i)\buse\s+gemini\b`), "google-gemini", "gemini-2.5-pro", "Gemini Pro"},
	{regexp.MustCompile(`(?i)\bask\s+gemini\b`), "google-gemini", "gemini-2.5-pro", "Gemini Pro"},
}
