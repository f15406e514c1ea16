package monitor

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/taskmon/taskmon/internal/wire"
)

const barCells = 50

// ConsoleListener renders a textual progress bar to a terminal-like writer,
// one carriage-returned line per update, plus final result or error lines.
type ConsoleListener struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleListener writes progress rendering to w, typically os.Stderr so
// the bar never mixes with forwarded task output.
func NewConsoleListener(w io.Writer) *ConsoleListener {
	return &ConsoleListener{w: w}
}

// OnProgress redraws the bar in place.
func (l *ConsoleListener) OnProgress(p wire.Progress) {
	pct := 0.0
	if p.Size > 0 {
		pct = float64(p.Done) / float64(p.Size) * 100
	}
	filled := int(pct / 100 * barCells)
	if filled > barCells {
		filled = barCells
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barCells-filled)

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "\r[%s] %5.1f%% (%d/%d)", bar, pct, p.Done, p.Size)
}

// OnError terminates the bar with the failure description.
func (l *ConsoleListener) OnError(e wire.Error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "\ntask failed: code=%d %s\n", e.Code, e.Message)
}

// OnResult terminates the bar with the reported outcome.
func (l *ConsoleListener) OnResult(r wire.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "\ntask finished: %d pages, %d words\n", r.Pages, r.Words)
}

// OnLine ignores chatter; the runner forwards raw output separately.
func (l *ConsoleListener) OnLine(string) {}
