package runtime

import "fmt"

// Alloc is the bump allocator, spec.md §4.2. callerFrame is the frame base
// of the function that invoked it — the root enumerator's starting point
// if a collection is triggered. n is the requested payload word count; the
// returned pointer is the first payload word, one word past the header
// slot the caller (the compiled program, or its Go-side stand-in) must
// write immediately after this call returns.
func (e *Engine) Alloc(callerFrame uintptr, n uintptr) uintptr {
	if e.log {
		fmt.Fprintf(e.out, "_cflat_alloc: attempting to allocate %d words...", n)
	}
	if e.hasSpace(n) {
		e.logLine("successful")
		return e.bumpAlloc(n)
	}
	e.logLine("triggering collection")

	e.Collect(callerFrame)

	if e.log {
		fmt.Fprintf(e.out, "_cflat_alloc: second attempt to allocate %d words...", n)
	}
	if e.hasSpace(n) {
		e.logLine("successful")
		return e.bumpAlloc(n)
	}
	e.logLine("")

	e.Panic("out of memory")
	panic("cflatrt: unreachable: Panic did not terminate execution")
}

// hasSpace reports whether n payload words (plus their header) still fit
// in the active half-space ahead of the bump cursor.
func (e *Engine) hasSpace(n uintptr) bool {
	return e.bump+(1+n)*wordSize <= e.from.end()
}

// bumpAlloc performs the actual reservation: it assumes hasSpace(n) has
// already been checked by the caller.
func (e *Engine) bumpAlloc(n uintptr) uintptr {
	header := e.bump
	payload := header + wordSize
	e.bump += (1 + n) * wordSize
	ZeroWords(payload, n)
	return payload
}

func (e *Engine) logLine(s string) {
	if !e.log {
		return
	}
	fmt.Fprintln(e.out, s)
}
