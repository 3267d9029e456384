package classifier

import (
	"regexp"

	"github.com/zen-systems/synapse/pkg/route"
)

// domainRule scores one domain. Keywords match as case-insensitive
// substrings; patterns are compiled regexps. Boosts are tunable through the
// weights file without a restart.
type domainRule struct {
	domain         route.Domain
	keywords       []string
	patterns       []*regexp.Regexp
	baseConfidence int
	keywordBoost   int
	patternBoost   int
}

func defaultRules() []domainRule {
	return []domainRule{
		{
			domain: route.DomainCode,
			keywords: []string{
				"code", "function", "bug", "debug", "refactor", "compile", "build",
				"test", "lint", "typescript", "javascript", "python", "rust", "swift",
				"error", "exception", "stack trace", "pull request", "pr", "commit",
				"git", "npm", "pip", "cargo", "dependency", "import", "class",
				"interface", "variable", "algorithm", "api", "endpoint", "database",
				"sql", "query", "migration", "deploy", "ci/cd", "docker", "fix",
				"patch", "implement", "scaffold", "boilerplate", "architecture",
				"regex", "schema", "module", "syntax", "orm", "rest", "graphql",
				"webhook", "middleware", "cron", "cli", "frontend", "backend", "server",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(def|func|fn|const|let|var|class|interface|struct|enum)\s+\w+`),
				regexp.MustCompile(`(?i)\b(import|from|require|include)\s+`),
				regexp.MustCompile(`(?i)\.(ts|js|py|rs|swift|go|java|rb|cpp|c|h|tsx|jsx)\b`),
				regexp.MustCompile("```\\w*\n"),
				regexp.MustCompile(`(?i)\b(npm|yarn|pnpm|pip|cargo|brew)\s+(install|add|run|build|test)`),
				regexp.MustCompile(`(?i)\bgit\s+(push|pull|commit|merge|rebase|checkout|branch|diff|log)`),
				regexp.MustCompile(`(?i)\b(eslint|prettier|vitest|jest|pytest|go test)\b`),
			},
			baseConfidence: 80,
			keywordBoost:   3,
			patternBoost:   5,
		},
		{
			domain: route.DomainCreative,
			keywords: []string{
				"write", "blog", "post", "article", "tweet", "thread", "caption",
				"copy", "headline", "tagline", "slogan", "story", "narrative",
				"brainstorm", "ideas", "creative", "draft", "brand voice", "content",
				"social media", "linkedin", "instagram", "tiktok", "hook", "cta",
				"call to action", "email", "newsletter", "script", "outline", "pitch",
				"proposal", "edit", "rewrite", "rephrase", "carousel", "reel",
				"video script", "landing page", "bio", "persona", "template",
				"audience", "engagement",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(write|draft|compose|create)\s+(a|an|the|my)\s+(post|article|blog|tweet|thread|email|script)`),
				regexp.MustCompile(`(?i)\b(brainstorm|ideate|generate)\s+(ideas|topics|hooks|headlines)`),
				regexp.MustCompile(`(?i)\b(brand voice|tone|style)\b`),
				regexp.MustCompile(`(?i)\b(content calendar|editorial|publishing)\b`),
				regexp.MustCompile(`(?i)\b(rewrite|rephrase|edit)\s+(this|the|my)`),
				regexp.MustCompile(`(?i)\b(social\s+media|instagram|tiktok|youtube)\s+(post|reel|carousel|shorts?)`),
			},
			baseConfidence: 75,
			keywordBoost:   3,
			patternBoost:   5,
		},
		{
			domain: route.DomainAnalysis,
			keywords: []string{
				"analyze", "summarize", "explain", "compare", "research", "review",
				"evaluate", "assess", "report", "insight", "data", "statistics",
				"trend", "pattern", "findings", "pros and cons", "tradeoffs",
				"recommendations", "what do you think", "your opinion",
				"help me understand", "breakdown", "metric", "benchmark", "audit",
				"inference", "conclusion", "classify", "sentiment", "roi", "kpi",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(analyze|summarize|explain|compare|evaluate|assess)\s+(this|the|my|these)`),
				regexp.MustCompile(`(?i)\bwhat\s+(is|are|does|do|would|should|could)\b`),
				regexp.MustCompile(`(?i)\b(pros?\s+and\s+cons?|trade-?offs?|advantages?\s+and\s+disadvantages?)\b`),
				regexp.MustCompile(`(?i)\b(research|investigate|look into|find out about)\b`),
				regexp.MustCompile(`(?i)\b(how|why)\s+(does|do|is|are|should|would)\b`),
			},
			baseConfidence: 70,
			keywordBoost:   3,
			patternBoost:   5,
		},
		{
			domain: route.DomainSchedule,
			keywords: []string{
				"schedule", "calendar", "remind", "reminder", "deadline", "meeting",
				"appointment", "plan", "timeline", "milestone", "due date", "when",
				"tomorrow", "next week", "today", "event", "agenda", "eta",
				"countdown", "block time", "slot", "availability",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(schedule|plan|set|book|arrange)\s+(a|an|the|my)\s+(meeting|call|appointment|reminder)`),
				regexp.MustCompile(`(?i)\b(add to|update|check)\s+(calendar|schedule)\b`),
				regexp.MustCompile(`(?i)\b(by|before|after|on)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
				regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
				regexp.MustCompile(`(?i)\b(block\s+time|free\s+slot|availability)\b`),
				regexp.MustCompile(`(?i)\b(at|from|until)\s+\d{1,2}(:\d{2})?\s*(am|pm)?\b`),
			},
			baseConfidence: 70,
			keywordBoost:   3,
			patternBoost:   5,
		},
		{
			domain: route.DomainSystem,
			keywords: []string{
				"system", "status", "health", "disk", "memory", "cpu", "process",
				"kill", "restart", "install", "update", "permissions", "config",
				"settings", "env", "clipboard", "screenshot", "notification",
				"battery", "wifi", "network", "uptime", "launchd", "plist",
				"finder", "spotlight", "terminal",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(check|show|get)\s+(system|status|health|disk|memory|cpu)\b`),
				regexp.MustCompile(`(?i)\b(restart|stop|start|kill)\s+(the|a)?\s*(service|server|process|daemon)\b`),
				regexp.MustCompile(`(?i)\b(launchctl|systemctl|brew|apt|yum)\s+`),
			},
			baseConfidence: 65,
			keywordBoost:   3,
			patternBoost:   5,
		},
		{
			domain: route.DomainSearch,
			keywords: []string{
				"search", "google", "look up", "find out", "current", "latest",
				"news", "weather", "price", "live", "real-time", "trending",
				"stock", "score", "realtime", "update", "who is", "where is",
				"what happened", "recent", "today's", "market", "exchange rate",
				"results",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(search|find|look up|google)\s+(for|about|me|this)\b`),
				regexp.MustCompile(`(?i)\b(current|latest|real-?time|live)\s+(news|weather|prices?|stocks?|scores?)\b`),
				regexp.MustCompile(`(?i)\bwhat.{0,10}(weather|price|score|news)\b`),
				regexp.MustCompile(`(?i)\bwho\s+(is|was|are)\b`),
				regexp.MustCompile(`(?i)\bwhere\s+(is|are|can)\b`),
				regexp.MustCompile(`(?i)\b(what happened|what.s new|any news)\b`),
			},
			baseConfidence: 75,
			keywordBoost:   3,
			patternBoost:   5,
		},
	}
}

// codeSignals are the keywords that, with image content attached, suggest
// a code screenshot rather than a generic picture.
var codeSignals = []string{
	"fix", "bug", "error", "debug", "refactor", "code", "function",
	"compile", "lint", "test", "typescript", "javascript", "python",
}
