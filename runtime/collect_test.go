package runtime

import (
	"testing"

	"github.com/cflat-lang/cflatrt/internal/headerlayout"
	"github.com/stretchr/testify/require"
)

// S2 — dead object reclaimed: a cell allocated and then dropped is not
// copied on the next collection, freeing its words for reuse.
func TestScenarioS2DeadObjectReclaimed(t *testing.T) {
	e := newTestEngine(t, 8) // 4 usable words per half
	frame, base := newFrame(e.baseFrame, 1)

	capture(e, func() {
		frame.setRoot(0, allocObject(e, base, headerlayout.AtomicArray{Len: 1}))
		frame.setRoot(0, 0) // the cell is now unreachable

		frame.setRoot(0, allocObject(e, base, headerlayout.AtomicArray{Len: 1}))
		frame.setRoot(0, 0)
	})

	out := capture(e, func() {
		frame.setRoot(0, allocObject(e, base, headerlayout.AtomicArray{Len: 1}))
	})

	require.Contains(t, out, "triggering collection")
	require.Contains(t, out, "gc: processing stack frame 0 (from top of stack), with 1 pointers")
	require.NotContains(t, out, "----")
	require.Contains(t, out, "gc: swapping from and to spaces (0 words still live)")
	require.Contains(t, out, "second attempt to allocate 1 words...successful")
}

// S3 — live object survives aliasing.
func TestScenarioS3LiveObjectSurvivesAliasing(t *testing.T) {
	e := newTestEngine(t, 32)
	frame, base := newFrame(e.baseFrame, 2)

	var obj uintptr
	capture(e, func() {
		obj = allocObject(e, base, headerlayout.AtomicStruct{Size: 2})
	})
	frame.setRoot(0, obj)
	frame.setRoot(1, obj) // alias

	out := capture(e, func() {
		e.Collect(base)
	})

	require.Contains(t, out, "---- copying object at relative address 1 with header [Struct, size = 2, ptr offsets = none]")
	require.Contains(t, out, "---- moving object from relative address 1 to 1")
	require.Contains(t, out, "---- copying object at relative address 1 with header [Forwarded]")
	require.Contains(t, out, "---- object forwarded to relative address 1")
	require.Contains(t, out, "gc: swapping from and to spaces (3 words still live)")

	require.Equal(t, frame.root(0), frame.root(1), "aliased roots must still alias after collection")
}

// S4 — transitive reachability.
func TestScenarioS4TransitiveReachability(t *testing.T) {
	e := newTestEngine(t, 32)
	frame, base := newFrame(e.baseFrame, 1)

	var inner, outer uintptr
	capture(e, func() {
		inner = allocObject(e, base, headerlayout.AtomicStruct{Size: 2})
		storeWord(inner, 7)
		storeWord(inner+wordSize, 8)

		outer = allocObject(e, base, headerlayout.NewStructVariantA(2, 0b00001)) // offset 1 is a pointer
		storeWord(outer, 42)
		storeWord(outer+wordSize, inner)
	})

	frame.setRoot(0, outer)

	out := capture(e, func() {
		e.Collect(base)
	})

	require.Contains(t, out, "-- scanning header [Struct, size = 2, ptr offsets = 1]")
	require.Contains(t, out, "gc: swapping from and to spaces (6 words still live)")

	newOuter := frame.root(0)
	require.Equal(t, uintptr(42), loadWord(newOuter))
	newInner := loadWord(newOuter + wordSize)
	require.Equal(t, uintptr(7), loadWord(newInner))
	require.Equal(t, uintptr(8), loadWord(newInner+wordSize))
}

// S5 — multi-frame roots: the collector must walk every frame between the
// allocating function and the terminator, not just the one that called
// Alloc.
func TestScenarioS5MultiFrameRoots(t *testing.T) {
	e := newTestEngine(t, 32)

	frameF, baseF := newFrame(e.baseFrame, 1)
	frameG, baseG := newFrame(baseF, 0)
	_ = frameG

	var live uintptr
	capture(e, func() {
		live = allocObject(e, baseF, headerlayout.AtomicStruct{Size: 2})
	})
	frameF.setRoot(0, live)

	out := capture(e, func() {
		e.Collect(baseG)
	})

	require.Contains(t, out, "gc: processing stack frame 0 (from top of stack), with 0 pointers")
	require.Contains(t, out, "gc: processing stack frame 1 (from top of stack), with 1 pointers")
}

// S6 — out of memory: requested live data cannot fit even after a full
// collection because what's already live leaves too little room.
func TestScenarioS6OutOfMemory(t *testing.T) {
	e := newTestEngine(t, 12) // 6 usable words per half
	frame, base := newFrame(e.baseFrame, 1)

	capture(e, func() {
		frame.setRoot(0, allocObject(e, base, headerlayout.AtomicStruct{Size: 2})) // uses 3 of 6 words
	})

	var exited bool
	e.exit = func(int) { exited = true; panic("test-exit") }

	out := capture(e, func() {
		defer func() { recover() }()
		e.Alloc(base, 4) // needs 5 words; only 3 remain, even after collecting the 3 still-live words
	})

	require.True(t, exited)
	require.Contains(t, out, "triggering collection")
	require.Contains(t, out, "second attempt to allocate 4 words")
	require.Contains(t, out, "out of memory")
}

// Round-trip / idempotence: collecting a heap with no unreachable objects
// twice in a row, with no intervening mutation, yields the same live-word
// count and the same live-prefix contents both times.
func TestConsecutiveCollectionsAreIdempotent(t *testing.T) {
	e := newTestEngine(t, 64)
	frame, base := newFrame(e.baseFrame, 2)

	var a, b uintptr
	capture(e, func() {
		a = allocObject(e, base, headerlayout.AtomicStruct{Size: 2})
		storeWord(a, 111)
		storeWord(a+wordSize, 222)
		b = allocObject(e, base, headerlayout.AtomicArray{Len: 3})
	})

	frame.setRoot(0, a)
	frame.setRoot(1, b)

	capture(e, func() { e.Collect(base) })
	liveAfterFirst := e.bump - e.from.base
	checksumAfterFirst := e.HeaderChecksum()

	capture(e, func() { e.Collect(base) })
	liveAfterSecond := e.bump - e.from.base
	checksumAfterSecond := e.HeaderChecksum()

	require.Equal(t, liveAfterFirst, liveAfterSecond)
	require.Equal(t, checksumAfterFirst, checksumAfterSecond)
	require.Equal(t, uintptr(111), loadWord(frame.root(0)))
	require.Equal(t, uintptr(222), loadWord(frame.root(0)+wordSize))
}
