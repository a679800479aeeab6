package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devlog-tools/logsync/internal/insight"
	"github.com/devlog-tools/logsync/internal/syncer"
	"github.com/devlog-tools/logsync/internal/tagger"
	"github.com/devlog-tools/logsync/internal/util"
)

var (
	// Logging related
	debug bool

	// Data paths
	sourceDir string
	stateDir  string
	rulesFile string

	// Source selection
	patterns []string

	// Generator related
	generatorURL     string
	generatorModel   string
	generatorTimeout time.Duration

	// Batching
	batchMaxEntries int
	batchCharBudget int

	// Output
	outputPath string
	dryRun     bool

	rootCmd = &cobra.Command{
		Use:   "logsync [flags]",
		Short: "Incremental development-log sync and insight pipeline",
		Long: `logsync discovers development-log files under a workspace, detects which
ones changed since the last run, parses their timestamped entries, tags them
with project contexts, merges everything into one deduplicated chronological
stream, and sends bounded batches to an insight-generation service.

Sync state is tracked per file by content hash, so a cycle only reparses
files whose content actually changed.

Examples:
  logsync --source ~/workspace                      # Run one sync cycle
  logsync --source ~/workspace --dry-run            # Detect and aggregate only
  logsync --pattern 'devlog*.md' --rules rules.yaml # Custom sources and contexts
  logsync watch --source ~/workspace                # Continuous mode
  logsync status                                    # Show tracked file state`,
		RunE: runSync,
	}
)

// ErrPartialFailure marks a cycle that completed but could not process every
// file. Callers map it to a distinct exit status.
var ErrPartialFailure = errors.New("cycle completed with failures")

const (
	defaultLogFile  = "~/.logsync/logs/app.log"
	defaultStateDir = "~/.logsync/state"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&sourceDir, "source", ".",
		"Workspace directory to scan for log files")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", defaultStateDir,
		"Directory holding sync state and the entry cache")
	rootCmd.PersistentFlags().StringSliceVar(&patterns, "pattern", nil,
		"Log file name patterns to track (default: claude_memory.md, CLAUDE.md)")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "",
		"YAML file with context tagging rules (default: built-in table)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")

	// Generator, batching, and output flags apply to every cycle-running
	// command, watch included.
	rootCmd.PersistentFlags().StringVar(&generatorURL, "generator-url", "",
		"Insight generator endpoint (empty = raw pass-through output)")
	rootCmd.PersistentFlags().StringVar(&generatorModel, "generator-model", "",
		"Model name passed to the generator service")
	rootCmd.PersistentFlags().DurationVar(&generatorTimeout, "generator-timeout", 30*time.Second,
		"Per-request generator timeout")
	rootCmd.PersistentFlags().IntVar(&batchMaxEntries, "batch-entries", 50,
		"Maximum entries per generator batch")
	rootCmd.PersistentFlags().IntVar(&batchCharBudget, "batch-chars", 16000,
		"Character budget per generator batch")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "",
		"Write insight records to this file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"Detect and aggregate without generator calls or state commits")
}

func runSync(cmd *cobra.Command, args []string) error {
	s, err := buildSyncer()
	if err != nil {
		return err
	}

	result, err := s.RunCycle(cmd.Context())
	if err != nil {
		if errors.Is(err, syncer.ErrCycleInFlight) {
			util.LogInfo("Another cycle is in flight, nothing to do")
			return nil
		}
		return err
	}

	if err := writeRecords(result); err != nil {
		return err
	}
	printSummary(result)

	if result.Summary.Failed > 0 {
		return fmt.Errorf("%w: %d files", ErrPartialFailure, result.Summary.Failed)
	}
	return nil
}

// buildSyncer wires the pipeline from the flag surface. Shared by the root
// and watch commands.
func buildSyncer() (*syncer.Syncer, error) {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}

	logFile := expandPath(defaultLogFile)
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := util.InitLogger(logLevel, logFile, debug); err != nil {
		return nil, err
	}

	sourceDir = expandPath(sourceDir)
	stateDir = expandPath(stateDir)

	rules := tagger.DefaultRules()
	if rulesFile != "" {
		loaded, err := tagger.LoadRules(expandPath(rulesFile))
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	var gen insight.FallbackGenerator
	if generatorURL != "" {
		gen = insight.NewHTTPGenerator(insight.Config{
			BaseURL: generatorURL,
			APIKey:  os.Getenv("LOGSYNC_API_KEY"),
			Model:   generatorModel,
			Timeout: generatorTimeout,
		})
	}

	config := &syncer.Config{
		SourceDir:       sourceDir,
		StateDir:        stateDir,
		Patterns:        patterns,
		Concurrency:     runtime.NumCPU(),
		DryRun:          dryRun,
		BatchMaxEntries: batchMaxEntries,
		BatchCharBudget: batchCharBudget,
	}

	return syncer.New(config, rules, gen)
}

func printSummary(result *syncer.Result) {
	s := result.Summary
	fmt.Printf("Cycle %s finished in %v\n", s.CycleID, s.Duration.Round(time.Millisecond))
	fmt.Printf("  processed: %d  skipped: %d  stale: %d  degraded: %d  failed: %d\n",
		s.Processed, s.Skipped, s.Stale, s.Degraded, s.Failed)
	fmt.Printf("  aggregated entries: %d  insight records: %d\n", s.Entries, len(result.Records))
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
