package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/devlog-tools/logsync/internal/syncer"
	"github.com/devlog-tools/logsync/internal/util"
)

var (
	watchDebounce time.Duration
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously watch the workspace and run sync cycles on change",
	Long: `Watches the source directory for modifications to tracked log files and
runs a sync cycle after each burst of changes. A periodic cycle also runs as
a safety net for events the watcher misses. Cycles never overlap; a trigger
arriving while a cycle is in flight is coalesced.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 5*time.Second,
		"Quiet period after a change before a cycle is triggered")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 15*time.Minute,
		"Periodic cycle interval (0 = disabled)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := buildSyncer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, sourceDir); err != nil {
		return err
	}

	// Initial cycle before settling into event-driven mode.
	runWatchedCycle(ctx, s)

	var ticker *time.Ticker
	var tick <-chan time.Time
	if watchInterval > 0 {
		ticker = time.NewTicker(watchInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	util.LogInfof("Watching %s (debounce %v)", sourceDir, watchDebounce)

	for {
		select {
		case <-ctx.Done():
			util.LogInfo("Watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					addWatchDirs(watcher, event.Name)
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			util.LogDebugf("Change detected: %s (%s)", event.Name, event.Op)
			if pending && !debounce.Stop() {
				<-debounce.C
			}
			debounce.Reset(watchDebounce)
			pending = true

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.LogWarnf("Watcher error: %v", err)

		case <-debounce.C:
			pending = false
			runWatchedCycle(ctx, s)

		case <-tick:
			runWatchedCycle(ctx, s)
		}
	}
}

func runWatchedCycle(ctx context.Context, s *syncer.Syncer) {
	result, err := s.RunCycle(ctx)
	if err != nil {
		if errors.Is(err, syncer.ErrCycleInFlight) {
			util.LogDebug("Cycle already in flight, trigger coalesced")
			return
		}
		util.LogErrorf("Cycle failed: %v", err)
		return
	}
	if err := writeRecords(result); err != nil {
		util.LogErrorf("Failed to write insight records: %v", err)
	}
	printSummary(result)
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := watcher.Add(path); err != nil {
				util.LogDebugf("Failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}
