// Signal name resolution for Unix-like platforms (Linux, macOS, *BSD).

//go:build !windows

package shutdown

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ParseSignal resolves a signal name such as "SIGTERM", "TERM" or "usr1".
// SIGKILL and SIGSTOP are rejected with [ErrUncatchable].
func ParseSignal(name string) (os.Signal, error) {
	n := canonicalName(name)
	sig := unix.SignalNum(n)
	if sig == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
	}
	if sig == unix.SIGKILL || sig == unix.SIGSTOP {
		return nil, fmt.Errorf("%w: %s", ErrUncatchable, n)
	}
	return sig, nil
}

// SignalName returns the conventional name of sig, such as "SIGTERM".
func SignalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	return sig.String()
}
