package commands

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/devlog-tools/logsync/internal/syncer"
)

// writeRecords hands the cycle's insight records to the output boundary:
// one JSON document per line, to stdout or the --output file. Website
// rendering and hosting consume this stream downstream.
func writeRecords(result *syncer.Result) error {
	out := os.Stdout
	if outputPath != "" {
		file, err := os.Create(expandPath(outputPath))
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	for _, rec := range result.Records {
		data, err := sonic.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode insight record: %w", err)
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return err
		}
	}
	return nil
}
