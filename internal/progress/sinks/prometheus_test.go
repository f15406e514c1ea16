package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/taskmon/taskmon/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters, gauges, and histograms
// are updated from a full task lifecycle.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	id := uuid.New()
	taskID := progress.UUIDToBytes(id)
	start := time.Now().UTC()
	batch := []progress.Event{
		{TaskID: taskID, TS: start, Stage: progress.StageTaskStart},
		{TaskID: taskID, TS: start.Add(time.Second), Stage: progress.StageTaskProgress, Done: 5, Size: 10},
		{TaskID: taskID, TS: start.Add(2 * time.Second), Stage: progress.StageTaskDone, Pages: 10, Words: 100},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksCompleted.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.tasksCompleted.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.tasksRunning))
	require.Equal(t, 1, testutil.CollectAndCount(sink.taskRuntime, "taskmon_task_runtime_seconds"))
	// The per-task ratio series is removed once the task ends.
	require.Equal(t, 0, testutil.CollectAndCount(sink.progressRatio, "taskmon_task_progress_ratio"))
}

// TestPrometheusSinkRunningAndRatio checks the mid-run gauge values.
func TestPrometheusSinkRunningAndRatio(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	id := uuid.New()
	taskID := progress.UUIDToBytes(id)
	now := time.Now().UTC()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{TaskID: taskID, TS: now, Stage: progress.StageTaskStart},
		{TaskID: taskID, TS: now.Add(time.Second), Stage: progress.StageTaskProgress, Done: 3, Size: 10},
	}))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksRunning))
	require.InDelta(t, 0.3, testutil.ToFloat64(sink.progressRatio.WithLabelValues(id.String())), 1e-9)
}

// TestPrometheusSinkErrorResult verifies failures land in the error partition.
func TestPrometheusSinkErrorResult(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	taskID := progress.UUIDToBytes(uuid.New())
	now := time.Now().UTC()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{TaskID: taskID, TS: now, Stage: progress.StageTaskStart},
		{TaskID: taskID, TS: now.Add(time.Second), Stage: progress.StageTaskError, Note: "exit status 1"},
	}))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksCompleted.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.tasksRunning))
}
