package runtime

import (
	"bytes"
	"testing"

	"github.com/cflat-lang/cflatrt/internal/headerlayout"
	"github.com/stretchr/testify/require"
)

// testFrame is a thin lowercase-method wrapper around the exported
// StackFrame, matching the naming convention the rest of this package's
// unexported test helpers use.
type testFrame struct {
	*StackFrame
}

// newFrame builds a frame with n roots (all initially null) whose saved
// frame base is prev, and returns it alongside its own base address.
func newFrame(prev uintptr, n int) (*testFrame, uintptr) {
	f := &testFrame{StackFrame: NewStackFrame(prev, n)}
	return f, f.base()
}

func (f *testFrame) base() uintptr            { return f.Base() }
func (f *testFrame) setRoot(i int, v uintptr) { f.SetRoot(i, v) }
func (f *testFrame) root(i int) uintptr       { return f.Root(i) }

func newTestEngine(t *testing.T, heapWords uintptr) *Engine {
	t.Helper()
	e, err := New(heapWords, true, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// capture redirects the engine's log output to a buffer for the duration
// of fn, returning everything written.
func capture(e *Engine, fn func()) string {
	var buf bytes.Buffer
	saved := e.out
	e.out = &buf
	fn()
	e.out = saved
	return buf.String()
}

// allocObject reserves n payload words via the allocator and immediately
// writes hdr at the header slot, the way compiler-generated code would
// right after a cflat_alloc call returns.
func allocObject(e *Engine, callerFrame uintptr, hdr headerlayout.Header) uintptr {
	payload := e.Alloc(callerFrame, hdr.PayloadWords())
	storeWord(payload-wordSize, hdr.Encode())
	return payload
}
