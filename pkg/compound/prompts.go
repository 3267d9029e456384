package compound

import (
	"fmt"
	"strings"

	"github.com/zen-systems/synapse/pkg/route"
)

// Sentinel strings a brain emits to declare it has nothing useful to add.
// Either one in a reply is treated as a successful empty result.
const (
	SentinelNotRelevant = "DOMAIN_NOT_RELEVANT"
	SentinelNotNeeded   = "ENRICHMENT_NOT_NEEDED"
)

// preview truncates s to max characters and marks the cut. Used to bound
// prompt size before sending to a brain.
func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}

// clip truncates s to max characters with no marker. Used for persisted
// record fields with fixed column budgets.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// buildSubTaskPrompt instructs one brain to answer only its domain's slice
// of a compound question, before any reply has been delivered.
func buildSubTaskPrompt(domain route.Domain, guidance, originalPrompt string) string {
	return strings.Join([]string{
		fmt.Sprintf("You are a %s specialist. The user asked a compound question spanning multiple domains.", domain),
		fmt.Sprintf("Focus ONLY on the %s aspects. Be concise (2-4 paragraphs).", domain),
		"",
		fmt.Sprintf("Domain: %s", domain),
		guidance,
		"",
		"--- USER QUESTION ---",
		preview(originalPrompt, 1000),
		"",
		"--- INSTRUCTIONS ---",
		"Answer ONLY the parts relevant to your domain. Another specialist handles the rest.",
		"Be direct and specific. If there is nothing relevant to your domain, respond with: " + SentinelNotRelevant,
	}, "\n")
}

// buildEnrichmentPrompt instructs a secondary brain to supplement a reply
// that has already been delivered to the user.
func buildEnrichmentPrompt(domain route.Domain, guidance, originalPrompt, primaryReply string) string {
	return strings.Join([]string{
		fmt.Sprintf("You are a %s specialist enrichment agent. Another AI has already answered the user's question.", domain),
		"Your job is to provide SUPPLEMENTARY insights from your domain expertise — do NOT repeat what was already said.",
		"",
		fmt.Sprintf("Domain: %s", domain),
		guidance,
		"",
		"--- ORIGINAL USER PROMPT ---",
		preview(originalPrompt, 1000),
		"",
		"--- PRIMARY RESPONSE (already delivered) ---",
		preview(primaryReply, 4000),
		"",
		"--- INSTRUCTIONS ---",
		"Provide a concise enrichment (2-4 paragraphs max) with insights the primary response may have missed.",
		"If the primary response already fully covers your domain, respond with: " + SentinelNotNeeded,
		"Be direct and specific. Do not repeat or summarize the primary response.",
	}, "\n")
}

// buildMergePrompt asks the merger brain to weave the sub-task results
// into one reply with a single authorial voice.
func buildMergePrompt(originalPrompt string, primary SubTaskResult, secondaries []SubTaskResult) string {
	lines := []string{
		"You are a response synthesizer. Multiple AI specialists answered different",
		"aspects of the user's question. Merge their outputs into one coherent, natural reply.",
		"",
		"Rules:",
		"- Preserve all unique insights from each specialist",
		"- Remove redundancy and contradictions (prefer the primary specialist)",
		"- Keep tone consistent and conversational",
		"- Do NOT label sections by domain or mention that multiple specialists were involved",
		"- Write as if a single knowledgeable expert answered the full question",
		"- Preserve code blocks, formatting, and structure from the primary response",
		"",
		"--- USER QUESTION ---",
		preview(originalPrompt, 500),
		"",
		fmt.Sprintf("--- PRIMARY SPECIALIST (%s) ---", strings.ToUpper(string(primary.Domain))),
		preview(primary.Content, 4000),
		"",
	}
	for _, s := range secondaries {
		lines = append(lines,
			fmt.Sprintf("--- %s SPECIALIST ---\n%s", strings.ToUpper(string(s.Domain)), clip(s.Content, 3000)))
	}
	lines = append(lines, "", "--- MERGED RESPONSE ---")
	return strings.Join(lines, "\n")
}
