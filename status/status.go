// Package status carries progress output from engine operations to the
// caller.
//
// The engine never prints; it emits one line per event into an injected
// Sink. The CLI passes a LineSink over stderr, the GUI passes its own
// implementation, and tests pass a capturing sink.
package status

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Sink receives one progress line per engine event.
//
// Implementations must be safe for use from the operation goroutine plus at
// most one spinner goroutine.
type Sink interface {
	Emit(line string)
}

// Discard is a Sink that drops every line.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(string) {}

// LineSink writes each emitted line to an io.Writer, one line per Emit.
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineSink creates a sink writing to w.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

// Emit writes the line followed by a newline. Write errors are dropped;
// progress output must never fail an operation.
func (s *LineSink) Emit(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

// Capture is a Sink that records every line, for tests.
type Capture struct {
	mu    sync.Mutex
	lines []string
}

// Emit records the line.
func (c *Capture) Emit(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

// Lines returns a copy of everything emitted so far.
func (c *Capture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.lines...)
}

// Spinner renders a rotating glyph on a terminal while a long operation
// runs. It owns no engine state: the single helper goroutine only writes to
// the terminal and stops before the operation returns.
type Spinner struct {
	stop chan struct{}
	done chan struct{}
}

var spinnerFrames = [...]byte{'|', '/', '-', '\\'}

// StartSpinner starts a spinner on w if w is an interactive terminal.
// It returns nil otherwise; Stop on a nil Spinner is a no-op.
func StartSpinner(w io.Writer) *Spinner {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}

	s := &Spinner{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-s.stop:
				fmt.Fprint(f, "\r \r")
				return
			case <-ticker.C:
				fmt.Fprintf(f, "\r%c", spinnerFrames[i%len(spinnerFrames)])
				i++
			}
		}
	}()

	return s
}

// Stop terminates the spinner goroutine and clears the glyph. Safe on nil.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	close(s.stop)
	<-s.done
}
