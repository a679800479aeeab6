package insight

import (
	"strings"
	"time"

	"github.com/devlog-tools/logsync/internal/core/model"
)

// Batch is one bounded request to the insight generator. The downstream
// service has input-size limits, so the aggregated stream is split by entry
// count and character budget before generation.
type Batch struct {
	Entries []model.TaggedEntry
}

// PeriodStart returns the timestamp of the first entry.
func (b *Batch) PeriodStart() time.Time {
	if len(b.Entries) == 0 {
		return time.Time{}
	}
	return b.Entries[0].Timestamp
}

// PeriodEnd returns the timestamp of the last entry.
func (b *Batch) PeriodEnd() time.Time {
	if len(b.Entries) == 0 {
		return time.Time{}
	}
	return b.Entries[len(b.Entries)-1].Timestamp
}

// Contexts returns the union of the batch entries' context labels.
func (b *Batch) Contexts() []string {
	var all []string
	for _, entry := range b.Entries {
		all = append(all, entry.Contexts...)
	}
	return model.SortSet(all)
}

// CitedEntries returns the content hashes of every entry in the batch.
func (b *Batch) CitedEntries() []string {
	hashes := make([]string, 0, len(b.Entries))
	for _, entry := range b.Entries {
		hashes = append(hashes, entry.ContentHash)
	}
	return hashes
}

// RawSummary concatenates the batch entries verbatim. Used by the degraded
// pass-through path when the generator is unreachable.
func (b *Batch) RawSummary() string {
	texts := make([]string, 0, len(b.Entries))
	for _, entry := range b.Entries {
		texts = append(texts, entry.RawText)
	}
	return strings.Join(texts, "\n\n")
}

// RawRecord builds the degraded pass-through InsightRecord for the batch.
func (b *Batch) RawRecord() model.InsightRecord {
	return model.InsightRecord{
		PeriodStart:  b.PeriodStart(),
		PeriodEnd:    b.PeriodEnd(),
		Contexts:     b.Contexts(),
		Summary:      b.RawSummary(),
		CitedEntries: b.CitedEntries(),
		Raw:          true,
	}
}

// SplitBatches partitions an ordered entry stream into batches bounded by
// maxEntries and charBudget. Entries are never split; a single entry larger
// than the budget gets a batch of its own.
func SplitBatches(stream []model.TaggedEntry, maxEntries, charBudget int) []Batch {
	if maxEntries < 1 {
		maxEntries = 1
	}

	var batches []Batch
	var cur Batch
	chars := 0

	for _, entry := range stream {
		size := len(entry.RawText)
		full := len(cur.Entries) >= maxEntries ||
			(charBudget > 0 && len(cur.Entries) > 0 && chars+size > charBudget)
		if full {
			batches = append(batches, cur)
			cur = Batch{}
			chars = 0
		}
		cur.Entries = append(cur.Entries, entry)
		chars += size
	}
	if len(cur.Entries) > 0 {
		batches = append(batches, cur)
	}

	return batches
}
