package wasmhost

import (
	"testing"
	"unsafe"

	"github.com/cflat-lang/cflatrt/internal/headerlayout"
	"github.com/cflat-lang/cflatrt/runtime"
	"github.com/stretchr/testify/require"
)

func pokeWord(addr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v //nolint:govet
}

func peekWord(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr)) //nolint:govet
}

// A compiled cflat-on-wasm program can only ever write a guest-relative i32
// offset into memory — its own stack-frame links and its own struct/array
// pointer fields included — because wasm bytecode has no way to compute or
// hold this process's real virtual address for a byte of its own linear
// memory. This test lays out a two-frame stack and a two-object heap
// entirely in those terms (every stored "pointer" is pre-encoded the way a
// guest would have written it) and checks that Collect, driven through the
// codec pointerCodec installs, still walks the frame chain past the first
// frame and still relocates a struct's pointer-typed field correctly.
// Before Engine gained decodePtr/encodePtr this test would read the small
// integer a guest wrote as if it were a host address and crash or silently
// treat every live pointer as unmanaged.
func TestPointerCodecTranslatesFrameChainAndHeapFields(t *testing.T) {
	const heapWords = 32 // 16 usable words per half-space
	const stackWords = 12
	mem := make([]uintptr, heapWords+stackWords)

	h := &Host{heapWords: heapWords}
	h.base = uintptr(unsafe.Pointer(&mem[0]))
	decode, encode := h.pointerCodec()

	e, err := runtime.NewFromBacking(mem[:heapWords], false, 0, decode, encode)
	require.NoError(t, err)
	defer e.Close()

	// The outer (terminator-adjacent) frame: no roots, saved-base link is
	// guest offset 0 — the sentinel that decodes to e.baseFrame.
	termIdx := heapWords + 1
	mem[termIdx] = 0
	mem[termIdx-1] = 0
	termFrame := uintptr(unsafe.Pointer(&mem[termIdx]))

	// The inner (topmost) frame: one root, linked to the outer frame via
	// its encoded guest offset, exactly as a real prologue would store it.
	innerIdx := termIdx + 3
	innerFrame := uintptr(unsafe.Pointer(&mem[innerIdx]))
	mem[innerIdx] = encode(termFrame)
	mem[innerIdx-1] = 1

	inner := e.Alloc(innerFrame, headerlayout.AtomicStruct{Size: 2}.PayloadWords())
	pokeWord(inner-uintptr(wordSize), headerlayout.AtomicStruct{Size: 2}.Encode())
	pokeWord(inner, 7)
	pokeWord(inner+uintptr(wordSize), 8)

	outerHdr := headerlayout.NewStructVariantA(2, 0b00001) // offset 1 is a pointer
	outer := e.Alloc(innerFrame, outerHdr.PayloadWords())
	pokeWord(outer-uintptr(wordSize), outerHdr.Encode())
	pokeWord(outer, 42)
	pokeWord(outer+uintptr(wordSize), encode(inner)) // pointer field, guest representation

	mem[innerIdx-2] = encode(outer) // root slot 0, guest representation

	e.Collect(innerFrame)

	newOuter := decode(mem[innerIdx-2])
	require.Equal(t, uintptr(42), peekWord(newOuter))

	newInner := decode(peekWord(newOuter + uintptr(wordSize)))
	require.Equal(t, uintptr(7), peekWord(newInner))
	require.Equal(t, uintptr(8), peekWord(newInner+uintptr(wordSize)))
}
