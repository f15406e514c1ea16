package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskmon/taskmon/internal/progress"
	"github.com/taskmon/taskmon/internal/progress/sinks"
	"github.com/taskmon/taskmon/internal/runner"
	"github.com/taskmon/taskmon/internal/server"
)

// newServeCmd creates the 'serve' subcommand: supervise a child command and
// expose status, logs, control, and metrics over HTTP.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve -- <command> [args...]",
		Short: "Monitor a command behind an HTTP control surface",
		Long: `Starts the given command under progress monitoring and serves its status,
captured logs, start/stop control, and Prometheus metrics over HTTP until
interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadMonitor()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return err
	}
	store := sinks.NewStoreSink()
	hub := progress.NewHub(hubConfig(cfg, logger), sinks.NewLogSink(logger), promSink, store)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := hub.Close(closeCtx); cerr != nil {
			logger.Warn("failed to close progress hub", zap.Error(cerr))
		}
	}()

	proc, err := runner.NewProcessRunner(runner.ProcessConfig{
		Path:    args[0],
		Args:    args[1:],
		Emitter: hub,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Kick off the first run; later runs are driven through the API.
	if err := proc.Start(ctx); err != nil {
		logger.Warn("initial task start failed", zap.Error(err))
	}

	api := server.New(proc, store, registry, logger)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Info("control server listening", zap.Int("port", cfg.Server.Port))

	select {
	case <-ctx.Done():
		logger.Info("shutting down control server")
		if !proc.Status().Terminal() {
			if serr := proc.Stop(); serr != nil {
				logger.Warn("failed to stop monitored process", zap.Error(serr))
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown control server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control server: %w", err)
	}
}
