// Package cli provides the command-line interface for fupanxia
package cli

import (
	"errors"
	"fmt"
	"os"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// Run starts the CLI application
func Run() {
	rootCmd := NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
