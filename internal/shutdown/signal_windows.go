// Signal name resolution for Windows.
//
// Windows has no POSIX signals. The Go runtime maps Ctrl+C and Ctrl+Break to
// os.Interrupt, and console close, logoff and system shutdown events to
// syscall.SIGTERM, so those are the only two names accepted.

//go:build windows

package shutdown

import (
	"fmt"
	"os"
	"syscall"
)

// ParseSignal resolves "SIGTERM" or "SIGINT" (with or without the SIG prefix,
// any case). "SIGKILL" is rejected with [ErrUncatchable].
func ParseSignal(name string) (os.Signal, error) {
	switch n := canonicalName(name); n {
	case "SIGTERM":
		return syscall.SIGTERM, nil
	case "SIGINT", "SIGINTERRUPT":
		return os.Interrupt, nil
	case "SIGKILL":
		return nil, fmt.Errorf("%w: %s", ErrUncatchable, n)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
	}
}

// SignalName returns "SIGTERM" or "SIGINT" for the signals [ParseSignal]
// accepts.
func SignalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case os.Interrupt:
		return "SIGINT"
	default:
		return sig.String()
	}
}
