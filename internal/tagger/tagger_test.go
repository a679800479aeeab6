package tagger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlog-tools/logsync/internal/core/model"
)

func testRules() []Rule {
	return []Rule{
		{Context: "trading", Keywords: []string{"ninjatrader", "pnl"}},
		{Context: "ml", Keywords: []string{"vector store"}, Patterns: []string{`feature[-_]graduation`}},
	}
}

func entry(text string) model.LogEntry {
	return model.LogEntry{
		Timestamp:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		SourceFile: "a.md",
		RawText:    text,
	}
}

func TestTagKeywordCaseInsensitive(t *testing.T) {
	tg, err := NewTagger(testRules())
	require.NoError(t, err)

	tagged := tg.Tag(entry("Finally got the PnL values showing correctly in NinjaTrader"))
	assert.Equal(t, []string{"trading"}, tagged.Contexts)
}

func TestTagPatternMatch(t *testing.T) {
	tg, err := NewTagger(testRules())
	require.NoError(t, err)

	tagged := tg.Tag(entry("wired up Feature_Graduation thresholds"))
	assert.Equal(t, []string{"ml"}, tagged.Contexts)
}

func TestTagMultipleAndNoContexts(t *testing.T) {
	tg, err := NewTagger(testRules())
	require.NoError(t, err)

	multi := tg.Tag(entry("moved pnl history into the vector store"))
	assert.Equal(t, []string{"ml", "trading"}, multi.Contexts)

	none := tg.Tag(entry("wrote some documentation"))
	assert.Empty(t, none.Contexts, "no match still yields a valid TaggedEntry")
	assert.Equal(t, "a.md", none.SourceFile)
}

func TestTagInlineBracketTags(t *testing.T) {
	tg, err := NewTagger(nil)
	require.NoError(t, err)

	tagged := tg.Tag(entry("[NinjaTrader] fixed the fill handler, see [order-manager]"))
	assert.Equal(t, []string{"NinjaTrader", "order-manager"}, tagged.Tags)
}

func TestTagAllPreservesOrder(t *testing.T) {
	tg, err := NewTagger(testRules())
	require.NoError(t, err)

	entries := []model.LogEntry{entry("pnl work"), entry("docs")}
	tagged := tg.TagAll(entries)
	require.Len(t, tagged, 2)
	assert.Equal(t, []string{"trading"}, tagged[0].Contexts)
	assert.Empty(t, tagged[1].Contexts)
}

func TestNewTaggerInvalidPattern(t *testing.T) {
	_, err := NewTagger([]Rule{{Context: "bad", Patterns: []string{`(`}}})
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `contexts:
  - context: trading
    keywords: [ninjatrader, pnl]
    patterns:
      - 'order[-_]manager'
  - context: website
    keywords: [github pages]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "trading", rules[0].Context)
	assert.Equal(t, []string{"ninjatrader", "pnl"}, rules[0].Keywords)

	tg, err := NewTagger(rules)
	require.NoError(t, err)
	tagged := tg.Tag(entry("touched Order-Manager again"))
	assert.Equal(t, []string{"trading"}, tagged.Contexts)
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules("/nonexistent/rules.yaml")
	assert.Error(t, err)
}

func TestDefaultRulesCompile(t *testing.T) {
	tg, err := NewTagger(DefaultRules())
	require.NoError(t, err)

	tagged := tg.Tag(entry("updated the github actions workflow for deployment"))
	assert.Contains(t, tagged.Contexts, "Infrastructure")
}
