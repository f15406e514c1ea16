package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskmon/taskmon/internal/progress"
)

// PrometheusSink exports monitored-task metrics. It owns the collectors for
// tasks started/running/completed, per-task completion ratio, and runtimes.
type PrometheusSink struct {
	tasksStarted   prometheus.Counter
	tasksCompleted *prometheus.CounterVec
	tasksRunning   prometheus.Gauge
	taskRuntime    *prometheus.HistogramVec
	progressRatio  *prometheus.GaugeVec

	tracker *taskTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmon_tasks_started_total",
			Help: "Total monitored tasks that have started.",
		}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmon_tasks_completed_total",
			Help: "Total monitored tasks completed partitioned by result.",
		}, []string{"result"}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskmon_tasks_running",
			Help: "Current number of running monitored tasks.",
		}),
		taskRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmon_task_runtime_seconds",
			Help:    "Wall time per completed task.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30, 60, 120, 300},
		}, []string{"result"}),
		progressRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taskmon_task_progress_ratio",
			Help: "Fraction of work units completed per running task.",
		}, []string{"task_id"}),
		tracker: newTaskTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.tasksStarted,
		s.tasksCompleted,
		s.tasksRunning,
		s.taskRuntime,
		s.progressRatio,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	id := evt.TaskUUID()
	switch evt.Stage {
	case progress.StageTaskStart:
		s.tasksStarted.Inc()
		s.tasksRunning.Inc()
		s.tracker.start(id, evt.TS)
	case progress.StageTaskProgress:
		if evt.Size > 0 {
			s.progressRatio.WithLabelValues(id.String()).
				Set(float64(evt.Done) / float64(evt.Size))
		}
	case progress.StageTaskDone:
		s.finishTask(id, evt, "success")
	case progress.StageTaskError:
		s.finishTask(id, evt, "error")
	}
}

func (s *PrometheusSink) finishTask(id uuid.UUID, evt progress.Event, result string) {
	s.tasksCompleted.WithLabelValues(result).Inc()
	// The task id label is unbounded; drop the series once the task ends.
	s.progressRatio.DeleteLabelValues(id.String())
	dur := evt.Dur
	if started, ok := s.tracker.finish(id); ok {
		s.tasksRunning.Dec()
		if dur <= 0 {
			dur = evt.TS.Sub(started)
		}
	}
	if dur > 0 {
		s.taskRuntime.WithLabelValues(result).Observe(dur.Seconds())
	}
}

// taskTracker remembers start times for running tasks so completion events can
// be turned into runtimes even when the emitter omits a duration.
type taskTracker struct {
	mu      sync.Mutex
	started map[uuid.UUID]time.Time
}

func newTaskTracker() *taskTracker {
	return &taskTracker{started: make(map[uuid.UUID]time.Time)}
}

func (t *taskTracker) start(id uuid.UUID, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.started[id]; !ok {
		t.started[id] = at
	}
}

func (t *taskTracker) finish(id uuid.UUID) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	started, ok := t.started[id]
	if ok {
		delete(t.started, id)
	}
	return started, ok
}
