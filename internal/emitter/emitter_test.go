package emitter

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmon/taskmon/internal/wire"
)

// fakeClock records requested sleeps and returns immediately.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	return nil
}

// flushWriter collects each Write individually and counts Flush calls.
type flushWriter struct {
	writes  []string
	flushes int
}

func (w *flushWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func (w *flushWriter) Flush() error {
	w.flushes++
	return nil
}

func runTask(t *testing.T) *flushWriter {
	t.Helper()
	out := &flushWriter{}
	require.NoError(t, New(out, &fakeClock{}).RunTask(context.Background()))
	return out
}

// TestRunTaskProgressSequence checks the done values are exactly 1..10 with a
// fixed size, in order, and that the single Result line comes last.
func TestRunTaskProgressSequence(t *testing.T) {
	t.Parallel()

	out := runTask(t)

	var progress []wire.Progress
	var results []wire.Result
	lastProgressIdx, resultIdx := -1, -1
	for i, line := range out.writes {
		msg, ok := wire.DecodeLine([]byte(line))
		if !ok {
			continue
		}
		switch {
		case msg.Progress != nil:
			progress = append(progress, *msg.Progress)
			lastProgressIdx = i
		case msg.Result != nil:
			results = append(results, *msg.Result)
			resultIdx = i
		}
	}

	require.Len(t, progress, 10)
	for i, p := range progress {
		assert.Equal(t, int64(i+1), p.Done)
		assert.Equal(t, int64(10), p.Size)
	}
	require.Len(t, results, 1)
	assert.Equal(t, wire.Result{Pages: 10, Words: 100}, results[0])
	assert.Greater(t, resultIdx, lastProgressIdx, "Result must follow all Progress lines")
}

// TestRunTaskHumanLines pins the percentage formatting and the checkpoint and
// completion lines.
func TestRunTaskHumanLines(t *testing.T) {
	t.Parallel()

	out := runTask(t)
	joined := strings.Join(out.writes, "")

	assert.Contains(t, joined, "progress: 10.0% - processing step 1/10\n")
	assert.Contains(t, joined, "progress: 50.0% - processing step 5/10\n")
	assert.Contains(t, joined, "progress: 100.0% - processing step 10/10\n")
	assert.Contains(t, joined, "checkpoint: task proceeding normally\n")
	assert.Contains(t, joined, "task execution complete\n")
}

// TestRunTaskFlushPerLine asserts every output line is one Write immediately
// followed by a Flush, the contract an external reader depends on.
func TestRunTaskFlushPerLine(t *testing.T) {
	t.Parallel()

	out := runTask(t)
	assert.Equal(t, len(out.writes), out.flushes)
	for _, w := range out.writes {
		assert.Equal(t, 1, strings.Count(w, "\n"), "write %q must be exactly one line", w)
		assert.True(t, strings.HasSuffix(w, "\n"))
	}
}

// TestRunTaskDeterministic verifies re-running produces byte-identical output.
func TestRunTaskDeterministic(t *testing.T) {
	t.Parallel()

	first := runTask(t)
	second := runTask(t)
	assert.Equal(t, first.writes, second.writes)
}

// TestRunTaskPacing checks the fixture sleeps the fixed interval once per step.
func TestRunTaskPacing(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	require.NoError(t, New(&flushWriter{}, clk).RunTask(context.Background()))
	require.Len(t, clk.sleeps, 10)
	for _, d := range clk.sleeps {
		assert.Equal(t, 100*time.Millisecond, d)
	}
}

// TestRunTaskCancel ensures a cancelled context stops the loop at the next
// wait point.
func TestRunTaskCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := &flushWriter{}
	err := New(out, systemLike{}).RunTask(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, out.writes, 1) // only the start line made it out
}

// systemLike behaves like the real clock for cancellation semantics.
type systemLike struct{}

func (systemLike) Sleep(ctx context.Context, _ time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// TestRunDataLabelsOnly verifies the alternate variant: ten human lines, one
// per label, and zero machine-readable output.
func TestRunDataLabelsOnly(t *testing.T) {
	t.Parallel()

	out := &flushWriter{}
	require.NoError(t, New(out, &fakeClock{}).RunData(context.Background()))

	progressLines := 0
	for _, line := range out.writes {
		if _, ok := wire.DecodeLine([]byte(line)); ok {
			t.Fatalf("data variant emitted machine-readable line %q", line)
		}
		if strings.HasPrefix(line, "progress: ") {
			progressLines++
		}
	}
	assert.Equal(t, 10, progressLines)
	assert.Equal(t, "progress: 10.0% - loading dataset\n", out.writes[0])
	assert.Equal(t, "data processing complete\n", out.writes[len(out.writes)-1])
	assert.Equal(t, len(out.writes), out.flushes)
}
