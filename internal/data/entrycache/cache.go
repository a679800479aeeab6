package entrycache

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/devlog-tools/logsync/internal/core/model"
	"github.com/devlog-tools/logsync/internal/util"
)

// CachedFile is the per-file cache document: the tagged entries parsed from
// one source file at one content hash.
type CachedFile struct {
	SourceFile  string              `json:"sourceFile"`
	ContentHash string              `json:"contentHash"`
	Entries     []model.TaggedEntry `json:"entries"`
}

// Cache stores parsed, tagged entries per source file so unchanged files
// never need reparsing. Entries are only valid while the file's content
// hash matches; a stale document is simply a miss.
type Cache struct {
	baseDir     string
	mu          sync.RWMutex
	memoryCache map[string]*CachedFile
}

// NewCache creates a cache rooted at baseDir.
func NewCache(baseDir string) (*Cache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &Cache{
		baseDir:     baseDir,
		memoryCache: make(map[string]*CachedFile),
	}, nil
}

// cachePath maps a source path onto a stable cache filename.
func (c *Cache) cachePath(sourceFile string) string {
	return filepath.Join(c.baseDir, util.ShortHash(util.HashBytes([]byte(sourceFile)))+".json")
}

// Get returns the cached entries for a source file when the cached content
// hash matches currentHash.
func (c *Cache) Get(sourceFile, currentHash string) ([]model.TaggedEntry, bool) {
	c.mu.RLock()
	if doc, ok := c.memoryCache[sourceFile]; ok {
		c.mu.RUnlock()
		if doc.ContentHash == currentHash {
			return doc.Entries, true
		}
		return nil, false
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(c.cachePath(sourceFile))
	if err != nil {
		return nil, false
	}

	var doc CachedFile
	if err := sonic.Unmarshal(data, &doc); err != nil {
		util.LogDebugf("Discarding unreadable cache document for %s: %v", sourceFile, err)
		return nil, false
	}
	if doc.SourceFile != sourceFile || doc.ContentHash != currentHash {
		return nil, false
	}

	c.mu.Lock()
	c.memoryCache[sourceFile] = &doc
	c.mu.Unlock()

	return doc.Entries, true
}

// Set stores a file's entries at the given content hash. The document is
// written atomically so a crash never leaves a truncated cache file.
func (c *Cache) Set(sourceFile, contentHash string, entries []model.TaggedEntry) error {
	doc := &CachedFile{
		SourceFile:  sourceFile,
		ContentHash: contentHash,
		Entries:     entries,
	}

	data, err := sonic.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	path := c.cachePath(sourceFile)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}

	c.mu.Lock()
	c.memoryCache[sourceFile] = doc
	c.mu.Unlock()

	return nil
}

// Clear removes every cache document.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memoryCache = make(map[string]*CachedFile)

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			os.Remove(filepath.Join(c.baseDir, entry.Name()))
		}
	}
	return nil
}
