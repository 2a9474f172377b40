// Package status formats and writes the periodic shutdown status line.
//
// Line format:
//
//	are we shutting down: False
//	are we shutting down: True
package status

import (
	"fmt"
	"io"
	"sync"
)

// Prefix is the fixed text before the boolean.
const Prefix = "are we shutting down: "

// Line returns the status line for the given flag value, without a newline.
// Booleans are capitalised ("True"/"False").
func Line(shuttingDown bool) string {
	if shuttingDown {
		return Prefix + "True"
	}
	return Prefix + "False"
}

// Reporter writes one status line per call to w.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewReporter returns a Reporter writing to w, usually os.Stderr.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report writes Line(shuttingDown) followed by a newline.
func (r *Reporter) Report(shuttingDown bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.w, Line(shuttingDown)+"\n"); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}
