package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskmon/taskmon/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or anywhere a metrics backend is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.String("task_id", evt.TaskUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.Int64("done", evt.Done),
			zap.Int64("size", evt.Size),
			zap.Int64("pages", evt.Pages),
			zap.Int64("words", evt.Words),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
