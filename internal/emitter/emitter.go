// Package emitter implements the simulated-task fixture that exercises the
// stdout progress protocol. It runs a fixed-length sequence of fake work
// units and, after each one, writes a human-readable status line and (in the
// task variant) a machine-readable wire.Progress line, every line flushed
// immediately. The observable output is deterministic: no randomness, no
// configuration, fixed step counts and fabricated results.
package emitter

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/taskmon/taskmon/internal/wire"
)

// Fixed fixture constants. These are part of the output contract and are
// deliberately not configurable.
const (
	taskSteps    = 10
	stepInterval = 100 * time.Millisecond

	resultPages = 10
	resultWords = 100
)

// dataLabels drive the alternate "data" simulation: one human-readable line
// per label, no machine-readable output.
var dataLabels = [...]string{
	"loading dataset",
	"validating schema",
	"normalizing records",
	"deduplicating rows",
	"tokenizing text",
	"counting words",
	"aggregating pages",
	"building index",
	"rendering report",
	"writing summary",
}

// Clock abstracts the wait between simulated work units so tests can run the
// fixture without real delays.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Simulator writes the canned progress sequences to a single output stream.
type Simulator struct {
	out   *wire.Sender
	clock Clock
}

// New creates a Simulator writing to w, pacing itself with clock.
func New(w io.Writer, clock Clock) *Simulator {
	return &Simulator{out: wire.NewSender(w), clock: clock}
}

// RunTask executes the primary simulation: ten steps, each followed by a
// percentage line and a JSON Progress line, a checkpoint line on the last
// step, then a completion line and the terminal JSON Result line.
func (s *Simulator) RunTask(ctx context.Context) error {
	if err := s.out.SendText("starting long-running task..."); err != nil {
		return err
	}
	for i := 1; i <= taskSteps; i++ {
		if err := s.clock.Sleep(ctx, stepInterval); err != nil {
			return err
		}
		pct := float64(i) / float64(taskSteps) * 100
		msg := fmt.Sprintf("processing step %d/%d", i, taskSteps)
		if err := s.out.SendText(fmt.Sprintf("progress: %.1f%% - %s", pct, msg)); err != nil {
			return err
		}
		if err := s.out.SendProgress(int64(i), taskSteps); err != nil {
			return err
		}
		if i == taskSteps {
			if err := s.out.SendText("checkpoint: task proceeding normally"); err != nil {
				return err
			}
		}
	}
	if err := s.out.SendText("task execution complete"); err != nil {
		return err
	}
	return s.out.SendResult(resultPages, resultWords)
}

// RunData executes the alternate simulation: one human-readable line per
// fixed data-processing label and nothing machine-readable.
func (s *Simulator) RunData(ctx context.Context) error {
	size := len(dataLabels)
	for i, label := range dataLabels {
		if err := s.clock.Sleep(ctx, stepInterval); err != nil {
			return err
		}
		pct := float64(i+1) / float64(size) * 100
		if err := s.out.SendText(fmt.Sprintf("progress: %.1f%% - %s", pct, label)); err != nil {
			return err
		}
	}
	return s.out.SendText("data processing complete")
}
