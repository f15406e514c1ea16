// Package cmd defines and implements the CLI commands for the taskmon
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskmon/taskmon/internal/config"
	"github.com/taskmon/taskmon/internal/logging"
	"github.com/taskmon/taskmon/internal/progress"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskmon",
		Short: "Run and monitor tasks that report progress on standard output.",
		Long: `taskmon supervises tasks that speak a line-oriented JSON progress
protocol on standard output. It can emit a canned progress stream itself
(simulate), supervise a child command while rendering its progress (run), or
do so behind an HTTP control surface with Prometheus metrics (serve).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional)")

	cmd.AddCommand(newSimulateCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadMonitor resolves configuration and builds the shared logger for the
// monitoring commands. The simulate command deliberately skips this: the
// fixture reads no configuration.
func loadMonitor() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func hubConfig(cfg config.Config, logger *zap.Logger) progress.Config {
	return progress.Config{
		BufferSize:     cfg.Hub.BufferSize,
		MaxBatchEvents: cfg.Hub.MaxBatchEvents,
		MaxBatchWait:   cfg.Hub.MaxBatchWait,
		SinkTimeout:    cfg.Hub.SinkTimeout,
		Logger:         logger,
	}
}
