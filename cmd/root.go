// Package cmd provides CLI commands for foliorag.
//
// Commands:
//   - serve: HTTP query API server
//   - migrate: apply database schema migrations
//   - version: show version information
//
// Signal handling and graceful shutdown are implemented for serve via
// context cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foliorag/foliorag/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "foliorag",
	Short: "Retrieval-augmented question answering over portfolio content",
	Long: `Foliorag answers questions about portfolio content over HTTP.

Each question is embedded, matched against indexed content chunks in
PostgreSQL, and answered by a chat model constrained to the retrieved
context.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the foliorag CLI application.
func Execute() error {
	// Bootstrap logger so config loading and flag errors have somewhere
	// to log. serve replaces it with the configured logger.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	return rootCmd.Execute()
}
