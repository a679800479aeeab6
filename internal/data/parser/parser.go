package parser

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/devlog-tools/logsync/internal/core/model"
	"github.com/devlog-tools/logsync/internal/util"
)

// headerPattern matches an entry header line: "## <timestamp> - <title>".
// The title is optional; the timestamp must look ISO-like (date first).
var headerPattern = regexp.MustCompile(`^##\s+(\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?)?)\s*(?:-\s*(.*))?$`)

// timestampLayouts are tried in order when parsing a header timestamp.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parser turns raw development-log content into ordered LogEntry sequences.
type Parser struct {
	concurrency int
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File     string
	Entries  []model.LogEntry
	Warnings []*model.MalformedEntryError
	Error    error
}

// NewParser creates a new Parser instance.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{concurrency: concurrency}
}

// ParseContent parses one file's raw content. Each entry starts at a header
// line and extends to the next header or end of file. Body text before the
// first header is skipped and reported as a warning, as is any entry whose
// header timestamp cannot be parsed. A backward-moving timestamp within the
// file is flagged but the entry is kept; entries are never reordered here.
func (p *Parser) ParseContent(sourceFile string, content []byte) ([]model.LogEntry, []*model.MalformedEntryError) {
	var entries []model.LogEntry
	var warnings []*model.MalformedEntryError

	lines := strings.Split(string(content), "\n")

	type pending struct {
		headerLine int
		timestamp  time.Time
		title      string
		text       []string
		bad        bool
	}
	var cur *pending
	var lastTimestamp time.Time
	preambleLine := 0

	finish := func() {
		if cur == nil || cur.bad {
			cur = nil
			return
		}
		raw := util.NormalizeEntryText(strings.Join(cur.text, "\n"))
		entries = append(entries, model.LogEntry{
			Timestamp:   cur.timestamp,
			SourceFile:  sourceFile,
			Title:       cur.title,
			RawText:     raw,
			ContentHash: util.HashEntryText(raw),
			Index:       len(entries),
		})
		cur = nil
	}

	for i, line := range lines {
		m := headerPattern.FindStringSubmatch(line)
		if m == nil {
			if cur != nil {
				cur.text = append(cur.text, line)
			} else if strings.TrimSpace(line) != "" && preambleLine == 0 {
				preambleLine = i + 1
			}
			continue
		}

		finish()

		ts, err := parseTimestamp(m[1])
		if err != nil {
			warnings = append(warnings, &model.MalformedEntryError{
				SourceFile: sourceFile,
				Line:       i + 1,
				Reason:     fmt.Sprintf("unparseable timestamp %q", m[1]),
			})
			cur = &pending{bad: true}
			continue
		}

		if !lastTimestamp.IsZero() && ts.Before(lastTimestamp) {
			// Flagged, not rejected: manual edits of historical entries
			// legitimately move timestamps backward.
			util.LogWarnf("entry timestamp moved backward in %s:%d (%s < %s)",
				sourceFile, i+1, ts.Format(time.RFC3339), lastTimestamp.Format(time.RFC3339))
		}
		lastTimestamp = ts

		cur = &pending{
			headerLine: i + 1,
			timestamp:  ts,
			title:      strings.TrimSpace(m[2]),
			text:       []string{line},
		}
	}
	finish()

	if preambleLine > 0 {
		warnings = append(warnings, &model.MalformedEntryError{
			SourceFile: sourceFile,
			Line:       preambleLine,
			Reason:     "body text before first entry header",
		})
	}

	return entries, warnings
}

// ParseFiles parses multiple files concurrently and returns a channel of
// ParseResult. Files are independent at this stage; ordering is restored by
// the aggregator's sequential merge.
func (p *Parser) ParseFiles(files []model.SourceFile) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebugf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency)

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f model.SourceFile) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			entries, warnings := p.ParseContent(f.Path, f.Content)
			results <- ParseResult{
				File:     f.Path,
				Entries:  entries,
				Warnings: warnings,
			}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebugf("Concurrent parsing finished, total duration: %v", time.Since(start))
	}()

	return results
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("no known layout matches %q", s)
}
