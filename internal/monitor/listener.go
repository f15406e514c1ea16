// Package monitor consumes a monitored task's output stream, separates
// machine-readable protocol lines from human-readable chatter, and dispatches
// updates to registered listeners.
package monitor

import "github.com/taskmon/taskmon/internal/wire"

// Listener receives decoded protocol messages and raw chatter lines as the
// scanner walks the task's output. Callbacks run on the scanning goroutine in
// stream order; implementations should return quickly.
type Listener interface {
	// OnProgress is called for each {"Progress":...} line.
	OnProgress(p wire.Progress)
	// OnError is called for each {"Error":...} line.
	OnError(e wire.Error)
	// OnResult is called for the terminal {"Result":...} line.
	OnResult(r wire.Result)
	// OnLine is called for every human-readable line, without its newline.
	OnLine(line string)
}

// Listeners fans a callback out to a slice of listeners in registration order.
type Listeners []Listener

func (ls Listeners) OnProgress(p wire.Progress) {
	for _, l := range ls {
		l.OnProgress(p)
	}
}

func (ls Listeners) OnError(e wire.Error) {
	for _, l := range ls {
		l.OnError(e)
	}
}

func (ls Listeners) OnResult(r wire.Result) {
	for _, l := range ls {
		l.OnResult(r)
	}
}

func (ls Listeners) OnLine(line string) {
	for _, l := range ls {
		l.OnLine(line)
	}
}
