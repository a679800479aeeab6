package tagger

// DefaultRules is the built-in context table, used when no rules file is
// configured. Keyword lists mirror the projects this tool was built around;
// override them with --rules for other workspaces.
func DefaultRules() []Rule {
	return []Rule{
		{
			Context: "NinjaTrader",
			Keywords: []string{
				"ninjatrader", "ninja trader", "order-manager",
				"trading strategy", "signal approval", "position tracking",
				"stop loss", "take profit", "order flow", "pnl", "futures",
			},
			Patterns: []string{
				`order[-_]manager`,
				`ninja[-_]trader`,
				`signal[-_]approval`,
				`position[-_]tracking`,
				`\bmgc\b`,
			},
		},
		{
			Context: "FluidJournal",
			Keywords: []string{
				"fluid journal", "fluidjournal", "agentic memory",
				"storage agent", "vector store", "lancedb", "langchain",
				"feature graduation", "gaussian process", "model training",
			},
			Patterns: []string{
				`fluid[-_]journal`,
				`agentic[-_]memory`,
				`storage[-_]agent`,
				`vector[-_]store`,
				`feature[-_]graduation`,
			},
		},
		{
			Context: "Website",
			Keywords: []string{
				"github pages", "session logs", "claude memory",
				"content generation", "static site", "html generator",
			},
			Patterns: []string{
				`github[-_]pages`,
				`session[-_]logs`,
				`claude[-_]memory`,
				`static[-_]site`,
			},
		},
		{
			Context: "Infrastructure",
			Keywords: []string{
				"docker", "github actions", "deployment", "ci/cd",
				"container", "endpoint", "monitoring", "debugging",
			},
			Patterns: []string{
				`github[-_]actions`,
				`localhost:\d+`,
				`port\s+\d+`,
				`api[-_]endpoint`,
			},
		},
	}
}
