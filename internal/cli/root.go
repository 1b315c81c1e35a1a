package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/diffcore/internal/config"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitDiagnostics  = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "diffcore",
	Short: "Streaming unified diff parser and hunk viewer",
	Long:  "diffcore parses unified diffs lazily, degrades rendering of very large files, and caches parsed hunks while watching a working tree.",
}

var flagLogLevel string

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(unstagedCmd)
	rootCmd.AddCommand(stagedCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(rangeCmd)
	rootCmd.AddCommand(preflightCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// fail reports a runtime error and sets the exit code.
func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exitCode = ExitRuntimeError
	return nil
}

// commandContext returns the context the command was executed with.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newLogger builds the process logger from the configured level. The
// --log-level flag wins over the config.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	return config.NewLogger(w, level)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print diffcore version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "diffcore version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
