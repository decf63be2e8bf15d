// Package cmd wires the secondbrain CLI: an interactive chat REPL, the HTTP
// API server, thread management, and knowledge indexing.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"secondbrain/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "secondbrain",
	Short: "secondbrain is a personal knowledge assistant",
	Long: `secondbrain answers questions grounded in your own notes and documents.

Index your material with "secondbrain index", then ask questions
interactively (the default command) or over HTTP with "secondbrain serve".
Conversations are stored in PostgreSQL and survive restarts.`,
	RunE: runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the process logger honoring the --verbose flag.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, log.Config{Level: level})
}
