package monitor

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskmon/taskmon/internal/progress"
	"github.com/taskmon/taskmon/internal/wire"
)

// EmitListener bridges decoded protocol messages into progress.Events so the
// hub's sinks (logs, metrics, status store) see every update for one task.
type EmitListener struct {
	emitter progress.Emitter
	taskID  [16]byte
	now     func() time.Time
}

// NewEmitListener tags every event with taskID and publishes via emitter.
func NewEmitListener(emitter progress.Emitter, taskID uuid.UUID) *EmitListener {
	return &EmitListener{
		emitter: emitter,
		taskID:  progress.UUIDToBytes(taskID),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OnProgress publishes a TASK_PROGRESS event.
func (l *EmitListener) OnProgress(p wire.Progress) {
	l.emitter.Emit(progress.Event{
		TaskID: l.taskID,
		TS:     l.now(),
		Stage:  progress.StageTaskProgress,
		Done:   p.Done,
		Size:   p.Size,
	})
}

// OnError publishes a TASK_ERROR event carrying the task's error text.
func (l *EmitListener) OnError(e wire.Error) {
	l.emitter.Emit(progress.Event{
		TaskID: l.taskID,
		TS:     l.now(),
		Stage:  progress.StageTaskError,
		Note:   e.Message,
	})
}

// OnResult publishes a TASK_DONE event with the reported totals.
func (l *EmitListener) OnResult(r wire.Result) {
	l.emitter.Emit(progress.Event{
		TaskID: l.taskID,
		TS:     l.now(),
		Stage:  progress.StageTaskDone,
		Pages:  r.Pages,
		Words:  r.Words,
	})
}

// OnLine ignores human-readable chatter.
func (l *EmitListener) OnLine(string) {}
