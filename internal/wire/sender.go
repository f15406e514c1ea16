package wire

import (
	"fmt"
	"io"
	"sync"
)

// Flusher is implemented by writers that buffer output and can force it out.
// bufio.Writer satisfies it directly.
type Flusher interface {
	Flush() error
}

// Syncer is the flush interface exposed by *os.File.
type Syncer interface {
	Sync() error
}

// Sender writes protocol messages to an output stream, one line per message,
// flushing after every line so a reader at the other end observes each update
// without buffering delay. It is safe for concurrent use.
type Sender struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSender wraps w. The writer is flushed (or synced, for files) after each
// line when it supports either operation.
func NewSender(w io.Writer) *Sender {
	return &Sender{w: w}
}

// Send encodes and writes a single message line.
func (s *Sender) Send(m Message) error {
	line, err := EncodeLine(m)
	if err != nil {
		return err
	}
	return s.writeLine(line)
}

// SendProgress reports done of size completed units.
func (s *Sender) SendProgress(done, size int64) error {
	return s.Send(Message{Progress: &Progress{Done: done, Size: size}})
}

// SendResult reports the terminal task outcome.
func (s *Sender) SendResult(pages, words int64) error {
	return s.Send(Message{Result: &Result{Pages: pages, Words: words}})
}

// SendError reports a task failure.
func (s *Sender) SendError(code int32, message string) error {
	return s.Send(Message{Error: &Error{Code: code, Message: message}})
}

// SendText writes a human-readable line. The text must not contain newlines;
// the trailing newline is appended here.
func (s *Sender) SendText(text string) error {
	return s.writeLine(append([]byte(text), '\n'))
}

func (s *Sender) writeLine(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("write output line: %w", err)
	}
	return flush(s.w)
}

func flush(w io.Writer) error {
	switch fw := w.(type) {
	case Flusher:
		if err := fw.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}
	case Syncer:
		// Ignore sync errors on character devices such as a terminal stdout.
		_ = fw.Sync()
	}
	return nil
}
