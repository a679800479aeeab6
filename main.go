package main

import (
	"errors"
	"os"

	"github.com/devlog-tools/logsync/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		if errors.Is(err, commands.ErrPartialFailure) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
