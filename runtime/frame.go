package runtime

import "fmt"

// Frame offsets, in words, relative to a frame's base address (spec.md §3):
// offset 0 holds the saved previous frame base, offset -1 holds the root
// count, and root slots occupy offsets -2, -3, ....
const (
	frameOffsetSavedBase = 0
	frameOffsetRootCount = -1
	frameOffsetFirstSlot = -2
)

func frameWordAddr(frameBase uintptr, wordOffset int) uintptr {
	if wordOffset >= 0 {
		return frameBase + uintptr(wordOffset)*wordSize
	}
	return frameBase - uintptr(-wordOffset)*wordSize
}

// walkStack implements the root enumerator, spec.md §4.3: it walks frames
// from topFrame up to (but not including) the terminator frame base
// recorded at startup, forwarding every root slot it finds along the way.
func (e *Engine) walkStack(topFrame uintptr) {
	frame := topFrame
	for idx := 0; frame != e.baseFrame; idx++ {
		rootCount := int64(loadWord(frameWordAddr(frame, frameOffsetRootCount)))

		if e.log {
			fmt.Fprintf(e.out, "gc: processing stack frame %d (from top of stack), with %d pointers\n", idx, rootCount)
		}

		for i := int64(0); i < rootCount; i++ {
			if e.log {
				fmt.Fprintf(e.out, "-- processing pointer offset %d\n", i)
			}
			slot := frameWordAddr(frame, frameOffsetFirstSlot-int(i))
			e.forward(slot)
		}

		frame = e.decodePtr(loadWord(frameWordAddr(frame, frameOffsetSavedBase)))
	}
}
