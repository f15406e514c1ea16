// Package wire defines the line-oriented JSON protocol a monitored task
// writes on standard output. Each machine-readable line is a single JSON
// object carrying exactly one payload: a Progress update, an Error, or the
// terminal Result. Anything that does not parse as one of these shapes is
// human-readable chatter and is passed through untouched.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Progress reports completed versus total work units for a running task.
type Progress struct {
	// Done counts completed units; it increases monotonically per task.
	Done int64 `json:"done"`
	// Size is the total unit count, fixed for the lifetime of the task.
	Size int64 `json:"size"`
}

// Result reports the fabricated final outcome of a finished task. It is
// emitted exactly once, after the last Progress line.
type Result struct {
	Pages int64 `json:"pages"`
	Words int64 `json:"words"`
}

// Error reports a task failure with a numeric code and a description.
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Message is the one-of envelope written on the wire. Exactly one field is
// non-nil; JSON marshalling then produces the observed shapes, e.g.
// {"Progress":{"done":1,"size":10}}.
type Message struct {
	Progress *Progress `json:"Progress,omitempty"`
	Error    *Error    `json:"Error,omitempty"`
	Result   *Result   `json:"Result,omitempty"`
}

// Validate checks that the envelope carries exactly one payload and that the
// payload is internally consistent.
func (m Message) Validate() error {
	set := 0
	if m.Progress != nil {
		set++
	}
	if m.Error != nil {
		set++
	}
	if m.Result != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("message must carry exactly one payload, got %d", set)
	}
	switch {
	case m.Progress != nil:
		p := m.Progress
		if p.Size <= 0 {
			return errors.New("progress size must be > 0")
		}
		if p.Done < 1 || p.Done > p.Size {
			return fmt.Errorf("progress done %d outside 1..%d", p.Done, p.Size)
		}
	case m.Result != nil:
		r := m.Result
		if r.Pages < 0 || r.Words < 0 {
			return errors.New("result counts must be >= 0")
		}
	case m.Error != nil:
		if m.Error.Message == "" {
			return errors.New("error message is required")
		}
	}
	return nil
}

// EncodeLine serializes a Message as a single protocol line, including the
// trailing newline, so callers can hand the result to one Write call.
func EncodeLine(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return append(buf, '\n'), nil
}

// DecodeLine attempts to parse one output line as a protocol Message. The
// second return value reports whether the line was machine-readable; false
// means the line is free-form text, never an error.
func DecodeLine(line []byte) (Message, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Message{}, false
	}
	var m Message
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return Message{}, false
	}
	if m.Validate() != nil {
		return Message{}, false
	}
	return m, true
}
