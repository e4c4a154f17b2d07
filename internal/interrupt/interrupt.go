// Package interrupt provides the cooperative cancellation flag long engine
// operations poll between entries.
//
// A Flag is an explicit handle owned by the caller, not package-global
// state: the CLI arms one from SIGINT/SIGTERM around an add operation and
// restores the previous signal disposition when the operation ends, while
// tests and embedders raise the flag directly.
package interrupt

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Flag is a raise-once cancellation flag. The zero value is ready to use.
type Flag struct {
	raised atomic.Bool
	ch     chan os.Signal
	done   chan struct{}
}

// Raise marks the flag. Safe to call from any goroutine or signal handler
// path; raising more than once is harmless.
func (f *Flag) Raise() {
	f.raised.Store(true)
}

// Raised reports whether cancellation was requested.
func (f *Flag) Raised() bool {
	return f.raised.Load()
}

// Notify arms the flag from SIGINT and SIGTERM. It spawns one watcher
// goroutine that raises the flag on the first signal; the goroutine exits
// on Restore. Operations keep polling Raised — delivery stays cooperative.
func (f *Flag) Notify() {
	f.ch = make(chan os.Signal, 1)
	f.done = make(chan struct{})
	signal.Notify(f.ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-f.ch:
			f.Raise()
		case <-f.done:
		}
	}()
}

// Restore detaches the flag from signal delivery, restoring the previous
// disposition, and stops the watcher goroutine. Safe to call when Notify
// was never called.
func (f *Flag) Restore() {
	if f.ch == nil {
		return
	}
	signal.Stop(f.ch)
	close(f.done)
	f.ch = nil
	f.done = nil
}
