package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/taskmon/taskmon/internal/wire"
)

// Summary aggregates what the scanner observed by the time the stream ended.
type Summary struct {
	// LastProgress is the final Progress update seen, if any.
	LastProgress *wire.Progress
	// Result is the terminal result, if the task reported one.
	Result *wire.Result
	// TaskErr is the last task-reported error, if any.
	TaskErr *wire.Error
	// Lines counts every line seen; MachineLines counts the decoded subset.
	Lines        int
	MachineLines int
}

// Succeeded reports whether the stream ended with a Result and no error.
func (s Summary) Succeeded() bool {
	return s.Result != nil && s.TaskErr == nil
}

// Scanner reads an output stream line by line, decodes protocol messages via
// the wire package, and dispatches them to its listeners. Human-readable
// lines are forwarded verbatim through OnLine.
type Scanner struct {
	listeners Listeners
	logger    *zap.Logger
}

// NewScanner builds a Scanner over the provided listeners.
func NewScanner(logger *zap.Logger, listeners ...Listener) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{listeners: listeners, logger: logger}
}

// Scan consumes r until EOF, dispatching each line, and returns a Summary of
// the stream. The context is checked between lines; reads themselves block
// until the producer closes its end. A read error is returned alongside
// whatever summary was accumulated.
func (s *Scanner) Scan(ctx context.Context, r io.Reader) (Summary, error) {
	var sum Summary
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Lines++
		line := sc.Text()
		msg, ok := wire.DecodeLine(sc.Bytes())
		if !ok {
			s.listeners.OnLine(line)
			continue
		}
		sum.MachineLines++
		switch {
		case msg.Progress != nil:
			s.observeProgress(&sum, *msg.Progress)
		case msg.Error != nil:
			sum.TaskErr = msg.Error
			s.listeners.OnError(*msg.Error)
		case msg.Result != nil:
			if sum.Result != nil {
				s.logger.Warn("duplicate result line", zap.String("line", line))
			}
			sum.Result = msg.Result
			s.listeners.OnResult(*msg.Result)
		}
	}
	if err := sc.Err(); err != nil {
		return sum, fmt.Errorf("scan task output: %w", err)
	}
	return sum, nil
}

func (s *Scanner) observeProgress(sum *Summary, p wire.Progress) {
	if prev := sum.LastProgress; prev != nil && p.Done < prev.Done {
		s.logger.Warn("progress went backwards",
			zap.Int64("prev_done", prev.Done),
			zap.Int64("done", p.Done))
	}
	sum.LastProgress = &p
	s.listeners.OnProgress(p)
}
