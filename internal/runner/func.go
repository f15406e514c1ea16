package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	uuidgen "github.com/taskmon/taskmon/internal/id/uuid"
	"github.com/taskmon/taskmon/internal/monitor"
	"github.com/taskmon/taskmon/internal/progress"
	"github.com/taskmon/taskmon/internal/wire"
)

// codeTaskFailed is the wire error code reported when a task function returns
// a plain Go error.
const codeTaskFailed = 1001

// Reporter lets an in-process task publish protocol messages exactly as a
// child process would on stdout. Sends never fail the task; problems are
// logged and dropped.
type Reporter struct {
	sender *wire.Sender
	logger *zap.Logger
}

// Progress reports done of size completed units.
func (r *Reporter) Progress(done, size int64) {
	if err := r.sender.SendProgress(done, size); err != nil {
		r.logger.Warn("drop progress report", zap.Error(err))
	}
}

// Result reports the task's final outcome.
func (r *Reporter) Result(pages, words int64) {
	if err := r.sender.SendResult(pages, words); err != nil {
		r.logger.Warn("drop result report", zap.Error(err))
	}
}

// Error reports a task failure with an explicit code.
func (r *Reporter) Error(code int32, message string) {
	if err := r.sender.SendError(code, message); err != nil {
		r.logger.Warn("drop error report", zap.Error(err))
	}
}

// Text writes a human-readable status line.
func (r *Reporter) Text(line string) {
	if err := r.sender.SendText(line); err != nil {
		r.logger.Warn("drop status line", zap.Error(err))
	}
}

// TaskFunc is a unit of work executed in-process under monitoring.
type TaskFunc func(ctx context.Context, rep *Reporter) error

// FuncConfig wires listeners and the optional event emitter for RunFunc.
type FuncConfig struct {
	Listeners []monitor.Listener
	Emitter   progress.Emitter
	Logger    *zap.Logger
}

// RunFunc executes fn on its own goroutine, streaming its reports through an
// in-memory pipe into the same scanner a child process would feed. A non-nil
// fn error is converted into a wire Error line, so listeners observe failures
// uniformly. The returned summary reflects everything fn reported.
func RunFunc(ctx context.Context, fn TaskFunc, cfg FuncConfig) (monitor.Summary, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gen := uuidgen.NewGenerator()
	taskID, err := gen.NewRawID()
	if err != nil {
		return monitor.Summary{}, err
	}

	listeners := append([]monitor.Listener(nil), cfg.Listeners...)
	if cfg.Emitter != nil {
		listeners = append(listeners, monitor.NewEmitListener(cfg.Emitter, taskID))
		cfg.Emitter.Emit(progress.Event{
			TaskID: progress.UUIDToBytes(taskID),
			TS:     nowUTC(),
			Stage:  progress.StageTaskStart,
		})
	}
	scanner := monitor.NewScanner(logger, listeners...)

	pr, pw := io.Pipe()
	rep := &Reporter{sender: wire.NewSender(pw), logger: logger}

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			_ = pw.Close()
		}()
		err := fn(ctx, rep)
		if err != nil {
			rep.Error(codeTaskFailed, err.Error())
		}
		errCh <- err
	}()

	sum, scanErr := scanner.Scan(ctx, pr)
	// Unblock any writes still in flight so the task goroutine can finish.
	_ = pr.Close()
	fnErr := <-errCh

	switch {
	case fnErr != nil:
		return sum, fmt.Errorf("task function: %w", fnErr)
	case scanErr != nil:
		return sum, scanErr
	default:
		return sum, nil
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
