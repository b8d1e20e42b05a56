package runtime

import "unsafe"

// StackFrame is an explicitly constructed cflat stack frame living in
// ordinary Go memory, laid out exactly per the frame contract in spec.md
// §3: the saved previous frame base at offset 0, the root count at offset
// -1, and root slots at offsets -2, -3, .... It exists for hosts that have
// no real native or wasm call stack to hand the collector a topFrame from
// — cmd/cflatrt-trace's demo scenarios, and any future interpreter-style
// backend — the same shape hostabi/cabi recovers from a real frame-pointer
// chain and hostabi/wasmhost recovers from guest-supplied offsets.
//
// The caller is responsible for keeping the StackFrame reachable for as
// long as its Base is in use elsewhere: Base is only valid while the
// StackFrame itself has not been garbage collected by the Go runtime.
type StackFrame struct {
	words []uintptr
	n     int
}

// NewStackFrame builds a frame with n roots, all initially null, whose
// saved previous frame base is prev.
func NewStackFrame(prev uintptr, n int) *StackFrame {
	f := &StackFrame{words: make([]uintptr, n+2), n: n}
	f.words[n] = uintptr(n)
	f.words[n+1] = prev
	return f
}

// Base returns the frame's own base address: usable as another frame's
// prev argument, or as the topFrame passed to Alloc or Collect.
func (f *StackFrame) Base() uintptr {
	return uintptr(unsafe.Pointer(&f.words[f.n+1]))
}

// SetRoot stores v into root slot i.
func (f *StackFrame) SetRoot(i int, v uintptr) {
	f.words[f.n-1-i] = v
}

// Root reads root slot i.
func (f *StackFrame) Root(i int) uintptr {
	return f.words[f.n-1-i]
}
