package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	uuidgen "github.com/taskmon/taskmon/internal/id/uuid"
	"github.com/taskmon/taskmon/internal/monitor"
	"github.com/taskmon/taskmon/internal/progress"
)

// maxLogBytes caps the captured stderr buffer per run.
const maxLogBytes = 1 << 20

// ProcessConfig describes the child command and its monitoring wiring.
type ProcessConfig struct {
	// Path is the executable to run; Args are its arguments.
	Path string
	Args []string
	// Listeners observe decoded protocol lines from the child's stdout.
	Listeners []monitor.Listener
	// Emitter optionally receives lifecycle progress.Events for the run.
	Emitter progress.Emitter
	Logger  *zap.Logger
}

// ProcessRunner supervises one child process at a time, scanning its stdout
// through the monitor and capturing stderr for later inspection. A finished
// runner can be started again; each start is a new task with a fresh ID.
type ProcessRunner struct {
	cfg    ProcessConfig
	logger *zap.Logger
	idGen  *uuidgen.Generator

	mu      sync.Mutex
	cmd     *exec.Cmd
	status  Status
	taskID  uuid.UUID
	summary monitor.Summary
	runErr  error
	done    chan struct{}

	logMu  sync.Mutex
	logBuf bytes.Buffer
}

// NewProcessRunner validates cfg and builds a runner in the not-started state.
func NewProcessRunner(cfg ProcessConfig) (*ProcessRunner, error) {
	if cfg.Path == "" {
		return nil, errors.New("process runner requires an executable path")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ProcessRunner{
		cfg:    cfg,
		logger: cfg.Logger,
		idGen:  uuidgen.NewGenerator(),
		status: StatusNotStarted,
	}, nil
}

// Start launches the child and begins scanning its output. It fails if a run
// is already in flight.
func (r *ProcessRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusRunning {
		return errors.New("task is already running")
	}

	taskID, err := r.idGen.NewRawID()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.cfg.Path, r.cfg.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	r.logMu.Lock()
	r.logBuf.Reset()
	r.logMu.Unlock()
	cmd.Stderr = &cappedWriter{runner: r}

	listeners := append([]monitor.Listener(nil), r.cfg.Listeners...)
	if r.cfg.Emitter != nil {
		listeners = append(listeners, monitor.NewEmitListener(r.cfg.Emitter, taskID))
	}
	scanner := monitor.NewScanner(r.logger, listeners...)

	if err := cmd.Start(); err != nil {
		r.status = StatusFailed
		r.runErr = fmt.Errorf("start process: %w", err)
		return r.runErr
	}

	r.cmd = cmd
	r.taskID = taskID
	r.status = StatusRunning
	r.summary = monitor.Summary{}
	r.runErr = nil
	r.done = make(chan struct{})
	started := time.Now()

	r.logger.Info("started monitored process",
		zap.String("task_id", taskID.String()),
		zap.String("path", r.cfg.Path),
		zap.Strings("args", r.cfg.Args),
		zap.Int("pid", cmd.Process.Pid))

	if r.cfg.Emitter != nil {
		r.cfg.Emitter.Emit(progress.Event{
			TaskID: progress.UUIDToBytes(taskID),
			TS:     started.UTC(),
			Stage:  progress.StageTaskStart,
		})
	}

	go r.supervise(ctx, cmd, scanner, stdout, taskID, started, r.done)
	return nil
}

func (r *ProcessRunner) supervise(
	ctx context.Context,
	cmd *exec.Cmd,
	scanner *monitor.Scanner,
	stdout io.Reader,
	taskID uuid.UUID,
	started time.Time,
	done chan struct{},
) {
	defer close(done)

	sum, scanErr := scanner.Scan(ctx, stdout)
	waitErr := cmd.Wait()
	dur := time.Since(started)

	r.mu.Lock()
	r.summary = sum
	switch {
	case waitErr != nil:
		r.status = StatusFailed
		r.runErr = fmt.Errorf("process exited: %w", waitErr)
	case scanErr != nil:
		r.status = StatusFailed
		r.runErr = scanErr
	case sum.TaskErr != nil:
		r.status = StatusFailed
		r.runErr = fmt.Errorf("task reported error %d: %s", sum.TaskErr.Code, sum.TaskErr.Message)
	default:
		r.status = StatusSucceeded
	}
	status, runErr := r.status, r.runErr
	r.mu.Unlock()

	if status == StatusSucceeded {
		r.logger.Info("monitored process finished",
			zap.String("task_id", taskID.String()),
			zap.Duration("dur", dur),
			zap.Int("lines", sum.Lines))
	} else {
		r.logger.Error("monitored process failed",
			zap.String("task_id", taskID.String()),
			zap.Duration("dur", dur),
			zap.Error(runErr))
	}

	if r.cfg.Emitter == nil {
		return
	}
	// The stream's own Result/Error lines already produced terminal events via
	// the emit listener; fill in the gap for streams that ended without one.
	switch {
	case status == StatusFailed && sum.TaskErr == nil:
		r.cfg.Emitter.Emit(progress.Event{
			TaskID: progress.UUIDToBytes(taskID),
			TS:     time.Now().UTC(),
			Stage:  progress.StageTaskError,
			Note:   runErr.Error(),
			Dur:    dur,
		})
	case status == StatusSucceeded && sum.Result == nil:
		r.cfg.Emitter.Emit(progress.Event{
			TaskID: progress.UUIDToBytes(taskID),
			TS:     time.Now().UTC(),
			Stage:  progress.StageTaskDone,
			Dur:    dur,
		})
	}
}

// Wait blocks until the current run finishes or ctx expires, returning the
// scan summary and the run error, if any.
func (r *ProcessRunner) Wait(ctx context.Context) (monitor.Summary, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return monitor.Summary{}, errors.New("task was never started")
	}
	select {
	case <-done:
	case <-ctx.Done():
		return monitor.Summary{}, fmt.Errorf("wait for task: %w", ctx.Err())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary, r.runErr
}

// Stop sends SIGTERM to a running child, asking it to shut down.
func (r *ProcessRunner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusRunning || r.cmd == nil || r.cmd.Process == nil {
		return errors.New("task is not running")
	}
	if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process: %w", err)
	}
	r.logger.Info("sent SIGTERM to monitored process", zap.Int("pid", r.cmd.Process.Pid))
	return nil
}

// Status returns the current lifecycle state.
func (r *ProcessRunner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// TaskID returns the identifier of the current or most recent run.
func (r *ProcessRunner) TaskID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taskID
}

// Summary returns the scan summary of the most recent finished run.
func (r *ProcessRunner) Summary() monitor.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Logs returns the stderr captured from the current or most recent run.
func (r *ProcessRunner) Logs() string {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	return r.logBuf.String()
}

// cappedWriter appends child stderr to the runner's log buffer up to
// maxLogBytes, discarding the excess.
type cappedWriter struct {
	runner *ProcessRunner
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	r := w.runner
	r.logMu.Lock()
	defer r.logMu.Unlock()
	if remaining := maxLogBytes - r.logBuf.Len(); remaining > 0 {
		if len(p) > remaining {
			r.logBuf.Write(p[:remaining])
		} else {
			r.logBuf.Write(p)
		}
	}
	return len(p), nil
}
