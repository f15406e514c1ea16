package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskmon/taskmon/internal/monitor"
	"github.com/taskmon/taskmon/internal/progress"
	"github.com/taskmon/taskmon/internal/progress/sinks"
	"github.com/taskmon/taskmon/internal/runner"
)

// newRunCmd creates the 'run' subcommand: supervise a child command under
// progress monitoring with a console progress bar.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run a command under progress monitoring",
		Long: `Spawns the given command, scans its standard output for JSON progress
lines, and renders a live progress bar on standard error. The command's exit
status and any protocol-reported error decide the run's outcome.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadMonitor()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	hub := progress.NewHub(hubConfig(cfg, logger), sinks.NewLogSink(logger))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := hub.Close(closeCtx); cerr != nil {
			logger.Warn("failed to close progress hub", zap.Error(cerr))
		}
	}()

	proc, err := runner.NewProcessRunner(runner.ProcessConfig{
		Path:      args[0],
		Args:      args[1:],
		Listeners: []monitor.Listener{monitor.NewConsoleListener(cmd.ErrOrStderr())},
		Emitter:   hub,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if err := proc.Start(cmd.Context()); err != nil {
		return fmt.Errorf("start task: %w", err)
	}
	sum, err := proc.Wait(cmd.Context())
	if err != nil {
		return fmt.Errorf("task failed: %w", err)
	}

	logger.Info("task succeeded",
		zap.String("task_id", proc.TaskID().String()),
		zap.Int("lines", sum.Lines),
		zap.Int("machine_lines", sum.MachineLines))
	return nil
}
