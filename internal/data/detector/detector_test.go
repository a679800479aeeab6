package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlog-tools/logsync/internal/core/model"
)

// fakeRecords is an in-memory RecordSource.
type fakeRecords map[string]model.SyncRecord

func (f fakeRecords) Get(sourceFile string) (model.SyncRecord, bool) {
	rec, ok := f[sourceFile]
	return rec, ok
}

func (f fakeRecords) ListAll() []model.SyncRecord {
	out := make([]model.SyncRecord, 0, len(f))
	for _, rec := range f {
		out = append(out, rec)
	}
	return out
}

func src(path, hash string) model.SourceFile {
	return model.SourceFile{Path: path, ContentHash: hash}
}

func TestComputeDeltaNewFile(t *testing.T) {
	delta := ComputeDelta([]model.SourceFile{src("a.md", "h1")}, fakeRecords{})

	require.Len(t, delta.Changed, 1)
	assert.Equal(t, "a.md", delta.Changed[0].Path)
	assert.Empty(t, delta.Unchanged)
	assert.Empty(t, delta.Stale)
}

func TestComputeDeltaUnchangedExcluded(t *testing.T) {
	records := fakeRecords{
		"a.md": {SourceFile: "a.md", LastContentHash: "h1"},
		"b.md": {SourceFile: "b.md", LastContentHash: "h2"},
	}

	delta := ComputeDelta([]model.SourceFile{src("a.md", "h1"), src("b.md", "h2-new")}, records)

	require.Len(t, delta.Changed, 1)
	assert.Equal(t, "b.md", delta.Changed[0].Path)
	require.Len(t, delta.Unchanged, 1)
	assert.Equal(t, "a.md", delta.Unchanged[0].Path)
}

func TestComputeDeltaEmptySecondRun(t *testing.T) {
	records := fakeRecords{
		"a.md": {SourceFile: "a.md", LastContentHash: "h1"},
	}

	delta := ComputeDelta([]model.SourceFile{src("a.md", "h1")}, records)

	assert.Empty(t, delta.Changed, "no intervening changes means an empty delta")
	assert.Len(t, delta.Unchanged, 1)
}

func TestComputeDeltaRevertComparesCurrentStateOnly(t *testing.T) {
	// Content reverted to a hash that existed before h2 was stored; only the
	// currently stored hash matters, so the file is changed.
	records := fakeRecords{
		"a.md": {SourceFile: "a.md", LastContentHash: "h2"},
	}

	delta := ComputeDelta([]model.SourceFile{src("a.md", "h1")}, records)

	require.Len(t, delta.Changed, 1)
	assert.Equal(t, "a.md", delta.Changed[0].Path)
}

func TestComputeDeltaStaleDetection(t *testing.T) {
	records := fakeRecords{
		"gone.md":    {SourceFile: "gone.md", LastContentHash: "h1"},
		"present.md": {SourceFile: "present.md", LastContentHash: "h2"},
		"old.md":     {SourceFile: "old.md", LastContentHash: "h3", Stale: true},
	}

	delta := ComputeDelta([]model.SourceFile{src("present.md", "h2")}, records)

	assert.Equal(t, []string{"gone.md"}, delta.Stale,
		"already-stale records are not re-reported")
}

func TestComputeDeltaRestoredIdenticalFile(t *testing.T) {
	records := fakeRecords{
		"back.md":  {SourceFile: "back.md", LastContentHash: "h1", Stale: true},
		"fresh.md": {SourceFile: "fresh.md", LastContentHash: "h2"},
	}

	delta := ComputeDelta([]model.SourceFile{src("back.md", "h1"), src("fresh.md", "h2")}, records)

	assert.Empty(t, delta.Changed)
	assert.Len(t, delta.Unchanged, 2)
	assert.Equal(t, []string{"back.md"}, delta.Restored,
		"a stale record seen again with identical content is restored")
	assert.Empty(t, delta.Stale)
}

func TestComputeDeltaRestoredChangedFileIsJustChanged(t *testing.T) {
	// Content moved on while the file was gone; the commit path rewrites
	// the record, so no separate restore signal is needed.
	records := fakeRecords{
		"back.md": {SourceFile: "back.md", LastContentHash: "h1", Stale: true},
	}

	delta := ComputeDelta([]model.SourceFile{src("back.md", "h2")}, records)

	require.Len(t, delta.Changed, 1)
	assert.Equal(t, "back.md", delta.Changed[0].Path)
	assert.Empty(t, delta.Restored)
}
