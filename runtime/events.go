package runtime

import (
	"bufio"
	"bytes"
	"iter"
)

// Event is one line of collector trace output, in the exact text a
// collection would write to stdout under CFLAT_GC_LOG=1.
type Event struct {
	Line string
}

// Steps runs one collection cycle like Collect, but returns the resulting
// trace as a Go 1.23 iterator instead of writing it straight to stdout.
// This supplements the collector without changing its semantics: Steps
// still runs the whole synchronous forward/scan algorithm before yielding
// anything, and every Event is exactly one of the lines Collect would have
// printed had logging been enabled — it is a view over that same sequence,
// not a second code path. cmd/cflatrt-trace uses it to walk a collection
// one logged step at a time instead of draining the trace eagerly.
func (e *Engine) Steps(topFrame uintptr) iter.Seq[Event] {
	var buf bytes.Buffer

	savedOut, savedLog := e.out, e.log
	e.out, e.log = &buf, true
	e.Collect(topFrame)
	e.out, e.log = savedOut, savedLog

	return func(yield func(Event) bool) {
		scanner := bufio.NewScanner(&buf)
		for scanner.Scan() {
			if !yield(Event{Line: scanner.Text()}) {
				return
			}
		}
	}
}
