package testhelpers

import (
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

// Writer forwards log output to tb.Log so that it is shown only for failing tests.
type Writer struct {
	tb   testing.TB
	done atomic.Bool
}

// NewWriter returns a Writer bound to tb. Writing after tb has finished panics, which points at a server or
// scheduler that outlived its test.
func NewWriter(tb testing.TB) io.Writer {
	w := &Writer{tb: tb, done: atomic.Bool{}}
	tb.Cleanup(func() { w.done.Store(true) })
	return w
}

// Write logs every non-empty line of p.
func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testwriter: write after test completion; is a server or scheduler still running?")
	}
	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.tb.Log(line)
		}
	}
	return len(p), nil
}
