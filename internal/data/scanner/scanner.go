package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/devlog-tools/logsync/internal/core/model"
	"github.com/devlog-tools/logsync/internal/util"
)

// FileScanner discovers development-log files under a base directory and
// reads their content so change detection can work from content hashes.
type FileScanner struct {
	baseDir  string
	patterns []string
}

// DefaultPatterns are the log file names tracked when none are configured.
var DefaultPatterns = []string{"claude_memory.md", "CLAUDE.md"}

// NewFileScanner creates a new FileScanner instance.
func NewFileScanner(baseDir string, patterns []string) *FileScanner {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &FileScanner{baseDir: baseDir, patterns: patterns}
}

// Scan walks the base directory and returns every matching log file with its
// raw content and content hash. The result is sorted by path so discovery
// order is stable across runs; unreadable files are skipped with a warning.
func (s *FileScanner) Scan() ([]model.SourceFile, error) {
	start := time.Now()
	var sources []model.SourceFile
	dirCount := 0
	totalCount := 0

	util.LogDebugf("Start scanning directory: %s", s.baseDir)

	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebugf("Skip path (error): %s - %v", path, err)
			return nil
		}

		if info.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		if !s.matches(info.Name()) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			util.LogWarnf("Skip unreadable file: %s - %v", path, err)
			return nil
		}

		sources = append(sources, model.SourceFile{
			Path:        path,
			ContentHash: util.HashBytes(content),
			Content:     content,
		})
		return nil
	})

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})

	util.LogDebugf("File scan completed: duration %v, scanned %d directories, %d files, found %d log files",
		time.Since(start), dirCount, totalCount, len(sources))

	return sources, err
}

func (s *FileScanner) matches(name string) bool {
	for _, pattern := range s.patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		if strings.EqualFold(pattern, name) {
			return true
		}
	}
	return false
}
