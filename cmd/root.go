// Package cmd defines and implements the CLI commands for the imagefetch executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/csk-sniffer/imagefetch/internal/config"
	"github.com/csk-sniffer/imagefetch/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imagefetch",
		Short: "Bulk media fetcher for the scene-knowledge pipeline.",
		Long: `imagefetch discovers candidate image URLs from a paginated search
backend, downloads a bounded number of unique items under concurrency and rate
limits, deduplicates them by content hash, and stores them with stable
sequential names. Download history is persisted so interrupted runs resume
safely.`,

		// Load config and build the logger before any subcommand runs.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			return nil
		},

		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync() //nolint:errcheck // stderr sync failures are unactionable
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml if present)")

	cmd.AddCommand(newFetchCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "imagefetch: %v\n", err)
		os.Exit(1)
	}
}
