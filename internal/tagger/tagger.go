package tagger

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devlog-tools/logsync/internal/core/model"
)

// Rule maps keywords and regex patterns onto one project-context label.
type Rule struct {
	Context  string   `yaml:"context"`
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns,omitempty"`
}

type compiledRule struct {
	context  string
	keywords []string // lowercased
	patterns []*regexp.Regexp
}

// Tagger classifies log entries into project contexts. Pure function of the
// entry text and the static rule table; zero matches is a valid result.
type Tagger struct {
	rules []compiledRule
}

// inlineTagPattern lifts explicit "[Project]" markers out of entry text.
var inlineTagPattern = regexp.MustCompile(`\[([A-Za-z][A-Za-z0-9 _./-]*)\]`)

// NewTagger compiles a rule table into a Tagger.
func NewTagger(rules []Rule) (*Tagger, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		cr := compiledRule{context: rule.Context}
		for _, kw := range rule.Keywords {
			cr.keywords = append(cr.keywords, strings.ToLower(kw))
		}
		for _, pat := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + pat)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q for context %s: %w", pat, rule.Context, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		compiled = append(compiled, cr)
	}
	return &Tagger{rules: compiled}, nil
}

// LoadRules reads a rule table from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc struct {
		Contexts []Rule `yaml:"contexts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return doc.Contexts, nil
}

// Tag returns the entry annotated with every matching context plus any
// inline bracket tags found in its text. Never fails.
func (t *Tagger) Tag(entry model.LogEntry) model.TaggedEntry {
	tagged := model.TaggedEntry{LogEntry: entry}

	text := strings.ToLower(entry.Title + "\n" + entry.RawText)
	for _, rule := range t.rules {
		if t.ruleMatches(rule, text) {
			tagged.Contexts = append(tagged.Contexts, rule.context)
		}
	}
	tagged.Contexts = model.SortSet(tagged.Contexts)

	for _, m := range inlineTagPattern.FindAllStringSubmatch(entry.RawText, -1) {
		tagged.Tags = append(tagged.Tags, m[1])
	}
	tagged.Tags = model.SortSet(tagged.Tags)

	return tagged
}

// TagAll tags a parsed file's entries in order.
func (t *Tagger) TagAll(entries []model.LogEntry) []model.TaggedEntry {
	tagged := make([]model.TaggedEntry, 0, len(entries))
	for _, entry := range entries {
		tagged = append(tagged, t.Tag(entry))
	}
	return tagged
}

func (t *Tagger) ruleMatches(rule compiledRule, lowerText string) bool {
	for _, kw := range rule.keywords {
		if strings.Contains(lowerText, kw) {
			return true
		}
	}
	for _, re := range rule.patterns {
		if re.MatchString(lowerText) {
			return true
		}
	}
	return false
}
