package model

import (
	"sort"
	"time"
)

// LogEntry is one timestamped unit of log text parsed from a source file.
// Immutable once parsed.
type LogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SourceFile  string    `json:"sourceFile"`
	Title       string    `json:"title"`
	RawText     string    `json:"rawText"`
	ContentHash string    `json:"contentHash"`
	Index       int       `json:"index"` // position within the source file
}

// TaggedEntry is a LogEntry plus the project contexts and inline tags
// detected in its text.
type TaggedEntry struct {
	LogEntry
	Contexts []string `json:"contexts,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// HasContext reports whether the entry carries the given context label.
func (e *TaggedEntry) HasContext(ctx string) bool {
	for _, c := range e.Contexts {
		if c == ctx {
			return true
		}
	}
	return false
}

// SyncRecord tracks the last fully-processed state of one source file.
// Updated only after the file's entries have been aggregated and the
// covering insight call (or fallback) has completed.
type SyncRecord struct {
	SourceFile          string    `json:"sourceFile"`
	LastContentHash     string    `json:"lastContentHash"`
	LastSyncedTimestamp time.Time `json:"lastSyncedTimestamp"`
	Stale               bool      `json:"stale,omitempty"`
}

// SourceFile is a discovered source file with its current content hash.
type SourceFile struct {
	Path        string
	ContentHash string
	Content     []byte
}

// InsightRecord is the output contract handed to the external writer.
// Raw marks a degraded pass-through record that contains the verbatim
// concatenated entries instead of a generated summary.
type InsightRecord struct {
	PeriodStart  time.Time `json:"periodStart"`
	PeriodEnd    time.Time `json:"periodEnd"`
	Contexts     []string  `json:"contexts,omitempty"`
	Summary      string    `json:"summary"`
	CitedEntries []string  `json:"citedEntries"`
	Raw          bool      `json:"raw"`
}

// CycleSummary reports the enumerated outcomes of one sync cycle.
type CycleSummary struct {
	CycleID   string        `json:"cycleId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Processed int           `json:"processed"` // files reparsed: changed, plus unchanged whose cached entries were lost
	Skipped   int           `json:"skipped"`   // files unchanged, served from cache
	Stale     int           `json:"stale"`     // tracked files no longer readable
	Degraded  int           `json:"degraded"`  // batches that fell back to raw output
	Failed    int           `json:"failed"`    // files that could not be processed
	Entries   int           `json:"entries"`   // entries in the aggregated stream
}

// SortSet sorts and deduplicates a label set in place, returning the
// normalized slice. Keeps context/tag sets deterministic for output.
func SortSet(labels []string) []string {
	if len(labels) < 2 {
		return labels
	}
	sort.Strings(labels)
	out := labels[:1]
	for _, l := range labels[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}
