package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlog-tools/logsync/internal/core/model"
)

const sampleLog = `## 2025-06-01 10:00 - Fixed order rejection bug
Dug into the risk logic; trades were getting rejected.

## 2025-06-01 10:05 - Storage split
Built a split storage system.
`

func TestParseContentBasic(t *testing.T) {
	p := NewParser(1)
	entries, warnings := p.ParseContent("a.md", []byte(sampleLog))

	require.Len(t, entries, 2)
	assert.Empty(t, warnings)

	assert.Equal(t, "Fixed order rejection bug", entries[0].Title)
	assert.Equal(t, "a.md", entries[0].SourceFile)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, 1, entries[1].Index)
	assert.Equal(t,
		time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), entries[0].Timestamp)
	assert.Contains(t, entries[0].RawText, "risk logic")
	assert.NotEmpty(t, entries[0].ContentHash)
	assert.NotEqual(t, entries[0].ContentHash, entries[1].ContentHash)
}

func TestParseContentTimestampFormats(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Time
	}{
		{"date only", "## 2025-06-01 - Title", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"minutes", "## 2025-06-01 14:30 - Title", time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)},
		{"seconds", "## 2025-06-01 14:30:15 - Title", time.Date(2025, 6, 1, 14, 30, 15, 0, time.UTC)},
		{"iso T", "## 2025-06-01T14:30:15 - Title", time.Date(2025, 6, 1, 14, 30, 15, 0, time.UTC)},
		{"no title", "## 2025-06-01 14:30", time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)},
	}

	p := NewParser(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, warnings := p.ParseContent("a.md", []byte(tt.header+"\nbody\n"))
			require.Len(t, entries, 1)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.want, entries[0].Timestamp)
		})
	}
}

func TestParseContentPreambleSkipped(t *testing.T) {
	content := "Some notes that are not an entry.\n\n" + sampleLog

	p := NewParser(1)
	entries, warnings := p.ParseContent("a.md", []byte(content))

	assert.Len(t, entries, 2, "preamble must not become an entry")
	require.Len(t, warnings, 1)
	assert.Equal(t, 1, warnings[0].Line)
	assert.ErrorIs(t, warnings[0], model.ErrMalformedEntry)
}

func TestParseContentBadEntrySkippedRestParses(t *testing.T) {
	content := `## 2025-06-01 10:00 - Good
body

## 2025-13-99 99:99 - Bad timestamp
ignored body

## 2025-06-01 11:00 - Also good
body
`
	p := NewParser(1)
	entries, warnings := p.ParseContent("a.md", []byte(content))

	require.Len(t, entries, 2)
	assert.Equal(t, "Good", entries[0].Title)
	assert.Equal(t, "Also good", entries[1].Title)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Reason, "unparseable timestamp")
}

func TestParseContentBackwardTimestampKept(t *testing.T) {
	content := `## 2025-06-01 12:00 - Later
body

## 2025-06-01 09:00 - Earlier, edited in later
body
`
	p := NewParser(1)
	entries, warnings := p.ParseContent("a.md", []byte(content))

	// Flagged via logging, never reordered or dropped.
	require.Len(t, entries, 2)
	assert.Empty(t, warnings)
	assert.True(t, entries[1].Timestamp.Before(entries[0].Timestamp))
}

func TestParseContentHashStableUnderReparse(t *testing.T) {
	p := NewParser(1)
	first, _ := p.ParseContent("a.md", []byte(sampleLog))
	second, _ := p.ParseContent("a.md", []byte(sampleLog))

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ContentHash, second[i].ContentHash)
	}

	// Trailing whitespace edits do not create spurious new entries.
	padded := "## 2025-06-01 10:00 - Fixed order rejection bug   \nDug into the risk logic; trades were getting rejected.  \n"
	reparsed, _ := p.ParseContent("a.md", []byte(padded))
	require.NotEmpty(t, reparsed)
	assert.Equal(t, first[0].ContentHash, reparsed[0].ContentHash)
}

func TestParseFilesConcurrent(t *testing.T) {
	files := []model.SourceFile{
		{Path: "a.md", Content: []byte(sampleLog)},
		{Path: "b.md", Content: []byte("## 2025-06-01 10:02 - From B\nbody\n")},
		{Path: "empty.md", Content: []byte("")},
	}

	p := NewParser(2)
	got := make(map[string]int)
	for result := range p.ParseFiles(files) {
		assert.NoError(t, result.Error)
		got[result.File] = len(result.Entries)
	}

	assert.Equal(t, map[string]int{"a.md": 2, "b.md": 1, "empty.md": 0}, got)
}
