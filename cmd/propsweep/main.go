// Package main implements the propsweep CLI, which enumerates every property
// a listing API will reveal by sweeping it with many redundant queries.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"propsweep/internal/config"
	"propsweep/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "propsweep",
	Short: "propsweep - exhaustive property discovery for listing APIs",
	Long: `propsweep enumerates the complete set of properties an account can see
through a listing API that under-reports per query.

It runs a catalog of overlapping query strategies (limits, status filters,
alternate endpoints, pagination styles, sort orders and a GraphQL protocol),
unions the results by id and reports which strategies contributed what,
reconciled against the portfolio size you expect.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "propsweep.yaml", "Path to the config file")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and wires the categorized loggers. With
// --verbose the CLI logger backs every category even if the file leaves
// debug_mode off.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		Categories: cfg.Logging.Categories,
	}
	switch {
	case cfg.Logging.DebugMode:
		if err := logging.Initialize(opts); err != nil {
			return nil, err
		}
	case verbose && logger != nil:
		logging.UseLogger(logger, opts)
	}

	logging.Boot("config loaded from %s", configPath)
	return cfg, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
