package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devlog-tools/logsync/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state for every tracked log file",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := buildSyncer()
	if err != nil {
		return err
	}
	if err := s.Store().Load(); err != nil {
		return err
	}

	records := s.Store().ListAll()
	if len(records) == 0 {
		fmt.Println("No tracked files yet. Run a sync cycle first.")
		return nil
	}

	fmt.Printf("%-12s  %-20s  %-6s  %s\n", "HASH", "LAST SYNCED", "STALE", "FILE")
	for _, rec := range records {
		stale := "-"
		if rec.Stale {
			stale = "yes"
		}
		fmt.Printf("%-12s  %-20s  %-6s  %s\n",
			util.ShortHash(rec.LastContentHash),
			rec.LastSyncedTimestamp.Local().Format("2006-01-02 15:04:05"),
			stale,
			rec.SourceFile)
	}
	fmt.Printf("\n%d tracked files as of %s\n", len(records), time.Now().Format("2006-01-02 15:04:05"))
	return nil
}
