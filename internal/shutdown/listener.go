package shutdown

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
)

var (
	// ErrUnknownSignal is returned by [ParseSignal] for names the platform
	// does not define.
	ErrUnknownSignal = errors.New("unknown signal")
	// ErrUncatchable is returned by [ParseSignal] for signals a process can
	// never observe, such as SIGKILL.
	ErrUncatchable = errors.New("signal cannot be caught")
)

// DefaultSignalName is the signal listened for when none is configured.
const DefaultSignalName = "SIGTERM"

// ///////////////////////////////////////////////
// Listener
// ///////////////////////////////////////////////

// Listener forwards signal deliveries into a [Flag] from its own goroutine.
type Listener struct {
	flag *Flag
	src  <-chan os.Signal
	// notified is the channel registered with [signal.Notify]; nil when the
	// Listener was built by [Watch].
	notified chan os.Signal
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// Listen registers for exactly one signal and sets flag on every delivery.
// Registering replaces the runtime's default action for sig, so the process
// keeps running after it arrives.
func Listen(flag *Flag, sig os.Signal) *Listener {
	// Buffered so a delivery is not dropped while the goroutine is busy.
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	l := newListener(ch, flag)
	l.notified = ch
	return l
}

// Watch sets flag for every value received on src. The Listener stops on its
// own when src is closed.
func Watch(src <-chan os.Signal, flag *Flag) *Listener {
	return newListener(src, flag)
}

func newListener(src <-chan os.Signal, flag *Flag) *Listener {
	l := &Listener{
		flag: flag,
		src:  src,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.loop()
	return l
}

func (l *Listener) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case sig, ok := <-l.src:
			if !ok {
				return
			}
			if l.flag.Set() {
				slog.Info("received termination signal", "signal", SignalName(sig))
			} else {
				slog.Debug("termination signal repeated, already shutting down", "signal", SignalName(sig))
			}
		}
	}
}

// Stop unregisters the signal and waits for the goroutine to exit. It is
// safe to call more than once.
func (l *Listener) Stop() {
	l.once.Do(func() {
		if l.notified != nil {
			signal.Stop(l.notified)
		}
		close(l.stop)
	})
	<-l.done
}

// ///////////////////////////////////////////////
// Signal Names
// ///////////////////////////////////////////////

// canonicalName upper-cases name and ensures a SIG prefix, so "term",
// "TERM" and "SIGTERM" all map to "SIGTERM".
func canonicalName(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	if !strings.HasPrefix(n, "SIG") {
		n = "SIG" + n
	}
	return n
}
