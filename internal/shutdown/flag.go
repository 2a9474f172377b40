// Package shutdown turns a single OS termination signal into a monotonic
// shutdown flag that a main loop can poll.
//
// The signal never terminates the process by itself; the loop that reads the
// [Flag] decides what to do about it.
package shutdown

import "sync/atomic"

// ///////////////////////////////////////////////
// Flag
// ///////////////////////////////////////////////

// Flag records whether a termination signal has been received. It starts
// false and, once set, stays true for the life of the process.
type Flag struct {
	set  atomic.Bool
	done chan struct{}
}

// NewFlag returns an unset Flag.
func NewFlag() *Flag {
	return &Flag{done: make(chan struct{})}
}

// Set marks the flag. It reports true only for the call that performed the
// false to true transition; later calls are no-ops.
func (f *Flag) Set() bool {
	if !f.set.CompareAndSwap(false, true) {
		return false
	}
	close(f.done)
	return true
}

// IsSet reports whether the flag has been set. Safe from any goroutine.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Done returns a channel that is closed when the flag is first set.
func (f *Flag) Done() <-chan struct{} {
	return f.done
}
