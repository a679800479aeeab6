package aggregator

import (
	"sort"

	"github.com/devlog-tools/logsync/internal/core/model"
	"github.com/devlog-tools/logsync/internal/util"
)

// Merge combines per-file entry sets into one chronological stream.
//
// Deduplication: two entries with the same content hash are the same entry
// no matter which file they came from (logs get copied across repositories);
// the copy from the earliest file in discovery order is retained. Ordering
// is timestamp ascending, ties broken by source path then in-file index, so
// the result is fully deterministic and independent of discovery order.
func Merge(entriesByFile map[string][]model.TaggedEntry, discoveryOrder []string) []model.TaggedEntry {
	seen := make(map[string]bool)
	var stream []model.TaggedEntry
	duplicates := 0

	for _, file := range discoveryOrder {
		for _, entry := range entriesByFile[file] {
			if seen[entry.ContentHash] {
				duplicates++
				continue
			}
			seen[entry.ContentHash] = true
			stream = append(stream, entry)
		}
	}

	sort.SliceStable(stream, func(i, j int) bool {
		a, b := &stream[i], &stream[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		return a.Index < b.Index
	})

	if duplicates > 0 {
		util.LogDebugf("Merge dropped %d duplicate entries across %d files",
			duplicates, len(discoveryOrder))
	}

	return stream
}

// StreamDigest returns a hash over the merged stream's identity, usable to
// verify that repeated runs over unchanged input produce identical output.
func StreamDigest(stream []model.TaggedEntry) string {
	var buf []byte
	for _, entry := range stream {
		buf = append(buf, entry.ContentHash...)
		buf = append(buf, '|')
		buf = append(buf, entry.SourceFile...)
		buf = append(buf, '\n')
	}
	return util.HashBytes(buf)
}
