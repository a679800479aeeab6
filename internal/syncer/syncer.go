package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/devlog-tools/logsync/internal/core/model"
	"github.com/devlog-tools/logsync/internal/data/aggregator"
	"github.com/devlog-tools/logsync/internal/data/detector"
	"github.com/devlog-tools/logsync/internal/data/entrycache"
	"github.com/devlog-tools/logsync/internal/data/parser"
	"github.com/devlog-tools/logsync/internal/data/scanner"
	"github.com/devlog-tools/logsync/internal/insight"
	"github.com/devlog-tools/logsync/internal/state"
	"github.com/devlog-tools/logsync/internal/tagger"
	"github.com/devlog-tools/logsync/internal/util"
)

// ErrCycleInFlight means another cycle holds the advisory lock. The caller
// treats this as a coalesced no-op: the in-flight cycle picks up the state.
var ErrCycleInFlight = errors.New("a sync cycle is already in flight")

// Config configures a Syncer.
type Config struct {
	SourceDir       string
	StateDir        string
	CacheDir        string
	Patterns        []string
	Concurrency     int
	DryRun          bool
	BatchMaxEntries int
	BatchCharBudget int
}

// Result is the outcome of one cycle: the enumerated summary, the merged
// stream, and the insight records for the external output writer.
type Result struct {
	Summary model.CycleSummary
	Stream  []model.TaggedEntry
	Records []model.InsightRecord
}

// Syncer runs end-to-end sync cycles: change detection, parsing, tagging,
// aggregation, insight generation, and state commits.
type Syncer struct {
	config    *Config
	store     *state.Store
	cache     *entrycache.Cache
	scanner   *scanner.FileScanner
	parser    *parser.Parser
	tagger    *tagger.Tagger
	generator insight.FallbackGenerator
	lock      *state.CycleLock
}

// New creates a Syncer. gen may be nil, in which case batches pass through
// raw without any service call.
func New(config *Config, rules []tagger.Rule, gen insight.FallbackGenerator) (*Syncer, error) {
	if config.Concurrency == 0 {
		config.Concurrency = runtime.NumCPU()
	}
	if config.BatchMaxEntries == 0 {
		config.BatchMaxEntries = 50
	}
	if config.BatchCharBudget == 0 {
		config.BatchCharBudget = 16000
	}
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(config.StateDir, "cache")
	}
	if gen == nil {
		gen = insight.Passthrough{}
	}

	store, err := state.NewStore(config.StateDir)
	if err != nil {
		return nil, err
	}
	cache, err := entrycache.NewCache(config.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry cache: %w", err)
	}
	tg, err := tagger.NewTagger(rules)
	if err != nil {
		return nil, err
	}

	return &Syncer{
		config:    config,
		store:     store,
		cache:     cache,
		scanner:   scanner.NewFileScanner(config.SourceDir, config.Patterns),
		parser:    parser.NewParser(config.Concurrency),
		tagger:    tg,
		generator: gen,
		lock:      state.NewCycleLock(config.StateDir),
	}, nil
}

// Store exposes the sync state store for read-only surfaces like `status`.
func (s *Syncer) Store() *state.Store {
	return s.store
}

// RunCycle executes one full cycle. Failures local to one file never abort
// the cycle; state store failures do, without committing any partial
// SyncRecord updates.
func (s *Syncer) RunCycle(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	summary := model.CycleSummary{
		CycleID:   uuid.NewString(),
		StartedAt: startTime,
	}

	acquired, err := s.lock.TryAcquire()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrCycleInFlight
	}
	defer s.lock.Release()

	util.LogInfof("Starting sync cycle %s", summary.CycleID)

	// Phase 1: load sync state.
	if err := s.store.Load(); err != nil {
		return nil, err
	}

	// Phase 2: discover source files.
	sources, err := s.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.config.SourceDir, err)
	}

	// Phase 3: change detection.
	delta := detector.ComputeDelta(sources, s.store)
	summary.Stale = len(delta.Stale)

	for _, stalePath := range delta.Stale {
		util.LogWarnf("Tracked file vanished, marking stale: %s", stalePath)
		if s.config.DryRun {
			continue
		}
		if err := s.store.MarkStale(stalePath); err != nil {
			return nil, err
		}
	}

	// A restored file with changed content heals through the commit-phase
	// Put; an identical restore never reaches commit, so clear it here.
	for _, restoredPath := range delta.Restored {
		util.LogInfof("Stale file reappeared unchanged: %s", restoredPath)
		if s.config.DryRun {
			continue
		}
		if err := s.store.ClearStale(restoredPath); err != nil {
			return nil, err
		}
	}

	// Phase 4: serve unchanged files from the entry cache; anything the
	// cache lost is reparsed alongside the delta.
	entriesByFile := make(map[string][]model.TaggedEntry, len(sources))
	toParse := delta.Changed
	for _, src := range delta.Unchanged {
		if cached, ok := s.cache.Get(src.Path, src.ContentHash); ok {
			entriesByFile[src.Path] = cached
			summary.Skipped++
			continue
		}
		util.LogDebugf("Entry cache miss for unchanged file %s, reparsing", src.Path)
		toParse = append(toParse, src)
	}
	if reparsed := len(toParse) - len(delta.Changed); reparsed > 0 {
		// These count as processed, not skipped: they do a full parse even
		// though their content did not change.
		util.LogInfof("Reparsing %d unchanged files after entry cache loss", reparsed)
	}

	// Phase 5: parse and tag in parallel across files.
	warnings := 0
	for result := range s.parser.ParseFiles(toParse) {
		for _, warn := range result.Warnings {
			util.LogWarn(warn.Error())
			warnings++
		}
		entriesByFile[result.File] = s.tagger.TagAll(result.Entries)
		summary.Processed++
	}
	if warnings > 0 {
		util.LogInfof("Skipped %d malformed entries/preambles across %d files", warnings, len(toParse))
	}

	// Phase 6: sequential merge into the aggregated stream.
	discoveryOrder := make([]string, 0, len(sources))
	for _, src := range sources {
		discoveryOrder = append(discoveryOrder, src.Path)
	}
	stream := aggregator.Merge(entriesByFile, discoveryOrder)
	summary.Entries = len(stream)

	// Phase 7: insight generation per bounded batch.
	batches := insight.SplitBatches(stream, s.config.BatchMaxEntries, s.config.BatchCharBudget)
	records := make([]model.InsightRecord, 0, len(batches))
	gen := s.generator
	if s.config.DryRun {
		gen = insight.Passthrough{}
	}
	for _, batch := range batches {
		rec, degraded := gen.GenerateWithFallback(ctx, batch)
		if degraded {
			summary.Degraded++
		}
		records = append(records, rec)
	}

	// Phase 8: commit. SyncRecords are written only now, after generation
	// (or fallback) has completed, so an interrupted cycle leaves prior
	// records intact and the next cycle re-includes the unfinished files.
	if !s.config.DryRun {
		for _, src := range toParse {
			if err := s.cache.Set(src.Path, src.ContentHash, entriesByFile[src.Path]); err != nil {
				util.LogWarnf("Failed to cache entries for %s: %v", src.Path, err)
				summary.Failed++
				continue
			}
			if err := s.store.Put(model.SyncRecord{
				SourceFile:          src.Path,
				LastContentHash:     src.ContentHash,
				LastSyncedTimestamp: time.Now().UTC(),
			}); err != nil {
				return nil, err
			}
		}
	}

	summary.Duration = time.Since(startTime)
	util.LogInfof("Cycle %s complete in %v: %d processed, %d skipped, %d stale, %d degraded, %d failed, %d entries",
		summary.CycleID, summary.Duration, summary.Processed, summary.Skipped,
		summary.Stale, summary.Degraded, summary.Failed, summary.Entries)

	return &Result{Summary: summary, Stream: stream, Records: records}, nil
}
