package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/devlog-tools/logsync/internal/core/model"
	"github.com/devlog-tools/logsync/internal/util"
)

// document is the on-disk shape of the state store. Internal contract only,
// not a public wire format.
type document struct {
	Records     map[string]model.SyncRecord `json:"records"`
	LastUpdated int64                       `json:"last_updated"`
}

// Store persists one SyncRecord per tracked source file. It is the single
// source of truth for "have we processed this exact content before"; change
// detection never consults file modification times. All writes go through
// write-temp-then-rename so a crash mid-write can never expose a corrupt or
// partially-updated document.
type Store struct {
	path    string
	mu      sync.RWMutex
	records map[string]model.SyncRecord
}

// NewStore creates a store rooted at stateDir.
func NewStore(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, &model.StateStoreError{Op: "init", Err: err}
	}
	return &Store{
		path:    filepath.Join(stateDir, "sync_state.json"),
		records: make(map[string]model.SyncRecord),
	}, nil
}

// Load reads the persisted state document. A missing file is a fresh store,
// not an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			util.LogInfo("No existing sync state found, starting fresh")
			return nil
		}
		return &model.StateStoreError{Op: "load", Err: err}
	}

	var doc document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return &model.StateStoreError{Op: "load", Err: fmt.Errorf("corrupt state document: %w", err)}
	}

	if doc.Records != nil {
		s.records = doc.Records
	}
	util.LogInfof("Loaded sync state for %d tracked files", len(s.records))
	return nil
}

// Get returns the record for a source file, if one exists.
func (s *Store) Get(sourceFile string) (model.SyncRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sourceFile]
	return rec, ok
}

// Put upserts one record and durably persists the store.
func (s *Store) Put(rec model.SyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.SourceFile] = rec
	return s.save()
}

// MarkStale flags a tracked file whose source has vanished. The record is
// kept for audit history, never purged.
func (s *Store) MarkStale(sourceFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sourceFile]
	if !ok || rec.Stale {
		return nil
	}
	rec.Stale = true
	s.records[sourceFile] = rec
	return s.save()
}

// ClearStale unflags a tracked file whose source has reappeared. A record
// that is absent or not stale is left alone.
func (s *Store) ClearStale(sourceFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sourceFile]
	if !ok || !rec.Stale {
		return nil
	}
	rec.Stale = false
	s.records[sourceFile] = rec
	return s.save()
}

// ListAll returns every record, sorted by source path for stable output.
func (s *Store) ListAll() []model.SyncRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SyncRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SourceFile < out[j].SourceFile
	})
	return out
}

// save persists the document atomically. Callers must hold the write lock.
func (s *Store) save() error {
	doc := document{
		Records:     s.records,
		LastUpdated: time.Now().Unix(),
	}

	data, err := sonic.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &model.StateStoreError{Op: "save", Err: err}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return &model.StateStoreError{Op: "save", Err: err}
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return &model.StateStoreError{Op: "save", Err: err}
	}

	util.LogDebugf("Saved sync state for %d tracked files", len(s.records))
	return nil
}
