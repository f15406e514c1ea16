package runner

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmon/taskmon/internal/progress"
	"github.com/taskmon/taskmon/internal/wire"
)

// syncEmitter is a goroutine-safe event recorder for process tests.
type syncEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (e *syncEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func (e *syncEmitter) Events() []progress.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]progress.Event(nil), e.events...)
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests rely on sh")
	}
}

// TestProcessRunnerSuccess supervises a shell script that speaks the emitter
// protocol and verifies status, summary, and captured stderr.
func TestProcessRunnerSuccess(t *testing.T) {
	t.Parallel()
	requireUnix(t)

	script := `printf 'starting\n';` +
		`printf '{"Progress":{"done":1,"size":2}}\n';` +
		`printf '{"Progress":{"done":2,"size":2}}\n';` +
		`printf '{"Result":{"pages":10,"words":100}}\n';` +
		`printf 'warn: almost done\n' >&2`

	emitter := &syncEmitter{}
	r, err := NewProcessRunner(ProcessConfig{
		Path:    "sh",
		Args:    []string{"-c", script},
		Emitter: emitter,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, r.Status())

	require.NoError(t, r.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sum, err := r.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, r.Status())
	require.NotNil(t, sum.Result)
	assert.Equal(t, wire.Result{Pages: 10, Words: 100}, *sum.Result)
	require.NotNil(t, sum.LastProgress)
	assert.Equal(t, int64(2), sum.LastProgress.Done)
	assert.Contains(t, r.Logs(), "warn: almost done")

	events := emitter.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, progress.StageTaskStart, events[0].Stage)
	assert.Equal(t, progress.StageTaskDone, events[len(events)-1].Stage)
}

// TestProcessRunnerNonZeroExit marks the run failed and synthesizes a
// terminal error event when the stream carried none.
func TestProcessRunnerNonZeroExit(t *testing.T) {
	t.Parallel()
	requireUnix(t)

	emitter := &syncEmitter{}
	r, err := NewProcessRunner(ProcessConfig{
		Path:    "sh",
		Args:    []string{"-c", `printf '{"Progress":{"done":1,"size":10}}\n'; exit 3`},
		Emitter: emitter,
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = r.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, r.Status())

	events := emitter.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.StageTaskError, last.Stage)
	assert.NotEmpty(t, last.Note)
}

// TestProcessRunnerTaskErrorLine fails the run when the child reports a wire
// Error even though it exits zero.
func TestProcessRunnerTaskErrorLine(t *testing.T) {
	t.Parallel()
	requireUnix(t)

	r, err := NewProcessRunner(ProcessConfig{
		Path: "sh",
		Args: []string{"-c", `printf '{"Error":{"code":1001,"message":"task execution failed"}}\n'`},
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sum, err := r.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, r.Status())
	require.NotNil(t, sum.TaskErr)
	assert.Equal(t, "task execution failed", sum.TaskErr.Message)
}

// TestProcessRunnerStop terminates a long-running child via SIGTERM.
func TestProcessRunnerStop(t *testing.T) {
	t.Parallel()
	requireUnix(t)

	r, err := NewProcessRunner(ProcessConfig{
		Path: "sh",
		Args: []string{"-c", "sleep 30"},
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, StatusRunning, r.Status())

	// Starting again while running must be rejected.
	require.Error(t, r.Start(context.Background()))

	require.NoError(t, r.Stop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = r.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, r.Status())
}

// TestProcessRunnerValidation covers constructor and wait preconditions.
func TestProcessRunnerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewProcessRunner(ProcessConfig{})
	require.Error(t, err)

	r, err := NewProcessRunner(ProcessConfig{Path: "sh"})
	require.NoError(t, err)
	_, err = r.Wait(context.Background())
	require.Error(t, err)
	require.Error(t, r.Stop())
}
