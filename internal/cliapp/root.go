// Package cliapp provides the command-line interface for the asset
// acquisition pipeline: a cobra root command with persistent flags, a
// signal-cancellable context, and a global logger singleton.
package cliapp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baassets/pipeline/internal/logging"
	"github.com/baassets/pipeline/internal/version"
)

var (
	verbose bool
	debug   bool

	logger *logging.Logger

	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "baassets",
		Short: "Download and decode Blue Archive game assets for cn, gl, and jp",
		Long: `baassets ` + version.Version + ` - Built: ` + version.BuildTime + `

Resolves the current game version for a region, fetches its resource
catalog, verifies what is already on disk, downloads what's missing, and
optionally extracts bundles, media, and tables as they land.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefault()
			if verbose || debug {
				logging.SetGlobalLevel(-1)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSearchCmd())

	return rootCmd
}

// Execute runs the CLI, cancelling the shared context on SIGINT/SIGTERM.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nreceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	err := NewRootCmd().Execute()

	signal.Stop(sigChan)
	close(sigChan)
	return err
}

// GetLogger returns the global CLI logger, lazily initializing it if
// called before Execute (e.g. from a test harness).
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return logger
}

// GetContext returns the signal-cancellable root context.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
