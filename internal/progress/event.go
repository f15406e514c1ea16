// Package progress defines the event structures produced while a monitored
// task runs.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageTaskStart    Stage = "TASK_START"
	StageTaskProgress Stage = "TASK_PROGRESS"
	StageTaskError    Stage = "TASK_ERROR"
	StageTaskDone     Stage = "TASK_DONE"
)

// Event captures a single milestone in a monitored task's lifecycle.
type Event struct {
	// TaskID uniquely identifies a task run using the 16-byte UUID form.
	TaskID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Done counts completed work units; set on TASK_PROGRESS.
	Done int64
	// Size is the total work unit count; set on TASK_PROGRESS.
	Size int64
	// Pages carries the reported page count on TASK_DONE.
	Pages int64
	// Words carries the reported word count on TASK_DONE.
	Words int64
	// Dur captures wall time for terminal events.
	Dur time.Duration
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TaskID == [16]byte{} {
		return errors.New("task id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageTaskStart, StageTaskDone:
	case StageTaskProgress:
		if e.Size <= 0 {
			return errors.New("task progress requires size > 0")
		}
		if e.Done < 1 || e.Done > e.Size {
			return fmt.Errorf("task progress done %d outside 1..%d", e.Done, e.Size)
		}
	case StageTaskError:
		if e.Note == "" {
			return errors.New("task error requires a note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// TaskUUID converts the binary task ID to uuid.UUID for sinks that key on it.
func (e Event) TaskUUID() uuid.UUID {
	return uuid.UUID(e.TaskID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
