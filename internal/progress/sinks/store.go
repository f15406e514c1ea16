package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmon/taskmon/internal/progress"
)

// TaskSnapshot is the latest known state of one monitored task.
type TaskSnapshot struct {
	TaskID    uuid.UUID      `json:"task_id"`
	Stage     progress.Stage `json:"stage"`
	Done      int64          `json:"done"`
	Size      int64          `json:"size"`
	Pages     int64          `json:"pages"`
	Words     int64          `json:"words"`
	Note      string         `json:"note,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// StoreSink retains per-task snapshots in memory so the control API can serve
// status queries without a durable store. It is safe for concurrent use.
type StoreSink struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*TaskSnapshot
	order []uuid.UUID
}

// NewStoreSink constructs an empty StoreSink.
func NewStoreSink() *StoreSink {
	return &StoreSink{tasks: make(map[uuid.UUID]*TaskSnapshot)}
}

// Consume folds each event into the task's snapshot.
func (s *StoreSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		id := evt.TaskUUID()
		snap, ok := s.tasks[id]
		if !ok {
			snap = &TaskSnapshot{TaskID: id, StartedAt: evt.TS}
			s.tasks[id] = snap
			s.order = append(s.order, id)
		}
		snap.Stage = evt.Stage
		snap.UpdatedAt = evt.TS
		switch evt.Stage {
		case progress.StageTaskProgress:
			snap.Done, snap.Size = evt.Done, evt.Size
		case progress.StageTaskDone:
			snap.Pages, snap.Words = evt.Pages, evt.Words
		case progress.StageTaskError:
			snap.Note = evt.Note
		}
	}
	return nil
}

// Close implements the Sink interface; snapshots stay readable after close.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

// Snapshot returns the state of one task, if known.
func (s *StoreSink) Snapshot(id uuid.UUID) (TaskSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.tasks[id]
	if !ok {
		return TaskSnapshot{}, false
	}
	return *snap, true
}

// List returns all task snapshots in first-seen order.
func (s *StoreSink) List() []TaskSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskSnapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tasks[id])
	}
	return out
}
