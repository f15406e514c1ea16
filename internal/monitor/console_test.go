package monitor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskmon/taskmon/internal/wire"
)

func TestConsoleListenerBar(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewConsoleListener(&buf)

	l.OnProgress(wire.Progress{Done: 5, Size: 10})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\r["))
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "(5/10)")
	assert.Equal(t, barCells, strings.Count(out, "█")+strings.Count(out, "░"))
}

func TestConsoleListenerTerminalLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewConsoleListener(&buf)

	l.OnResult(wire.Result{Pages: 10, Words: 100})
	assert.Contains(t, buf.String(), "task finished: 10 pages, 100 words\n")

	buf.Reset()
	l.OnError(wire.Error{Code: 1001, Message: "boom"})
	assert.Contains(t, buf.String(), "task failed: code=1001 boom\n")

	buf.Reset()
	l.OnLine("chatter")
	assert.Empty(t, buf.String())
}
