package detector

import (
	"github.com/devlog-tools/logsync/internal/core/model"
	"github.com/devlog-tools/logsync/internal/util"
)

// RecordSource is the read side of the sync state store.
type RecordSource interface {
	Get(sourceFile string) (model.SyncRecord, bool)
	ListAll() []model.SyncRecord
}

// Delta partitions the discovered files for one cycle. Only Changed files
// are reparsed, which keeps a cycle touching N of M tracked files at O(N)
// parsing work.
type Delta struct {
	Changed   []model.SourceFile // current hash differs from stored, or never seen
	Unchanged []model.SourceFile // stored hash matches, served from cache
	Stale     []string           // tracked paths that vanished from discovery
	Restored  []string           // stale-flagged paths discovered again with identical content
}

// ComputeDelta compares discovered files against the state store. A file
// whose content reverts to some previously-seen hash is still changed when
// it differs from the currently stored hash; only current state is
// consulted, never history.
func ComputeDelta(discovered []model.SourceFile, records RecordSource) Delta {
	var delta Delta

	seen := make(map[string]bool, len(discovered))
	for _, src := range discovered {
		seen[src.Path] = true

		rec, ok := records.Get(src.Path)
		if ok && rec.LastContentHash == src.ContentHash {
			delta.Unchanged = append(delta.Unchanged, src)
			if rec.Stale {
				// Vanished file came back byte-identical; the flag must
				// clear even though nothing reparses.
				delta.Restored = append(delta.Restored, src.Path)
			}
			continue
		}
		if ok {
			util.LogDebugf("Changed file %s (stored %s, current %s)",
				src.Path, util.ShortHash(rec.LastContentHash), util.ShortHash(src.ContentHash))
		} else {
			util.LogDebugf("New file %s (%s)", src.Path, util.ShortHash(src.ContentHash))
		}
		delta.Changed = append(delta.Changed, src)
	}

	for _, rec := range records.ListAll() {
		if !seen[rec.SourceFile] && !rec.Stale {
			delta.Stale = append(delta.Stale, rec.SourceFile)
		}
	}

	util.LogDebugf("Delta computed: %d changed, %d unchanged, %d stale, %d restored",
		len(delta.Changed), len(delta.Unchanged), len(delta.Stale), len(delta.Restored))

	return delta
}
