package runtime

import (
	"fmt"

	"github.com/cflat-lang/cflatrt/internal/headerlayout"
)

// Collect runs one full Cheney collection cycle (spec.md §4.4): it forwards
// every root reachable from topFrame, scans the copies transitively, and
// swaps the two half-spaces. It is called by Alloc on allocation failure;
// exposing it as its own method lets tests and cmd/cflatrt-trace force a
// collection without needing to exhaust the heap first.
func (e *Engine) Collect(topFrame uintptr) {
	e.freePtr = e.to.base
	e.scanPtr = e.to.base

	e.walkStack(topFrame)
	e.scan()

	live := (e.freePtr - e.to.base) / wordSize
	if e.log {
		fmt.Fprintf(e.out, "gc: swapping from and to spaces (%d words still live)\n", live)
	}

	e.from, e.to = e.to, e.from
	e.bump = e.from.base + live*wordSize

	if e.dumpPath != "" {
		if err := e.DumpHeap(e.dumpPath); err != nil {
			fmt.Fprintf(e.out, "gc: heap dump to %s failed: %v\n", e.dumpPath, err)
		}
	}
}

// forward is the collector's core primitive (spec.md §4.4's forward
// algorithm): it updates the pointer stored at slot to refer to the
// to-space copy of whatever it points to, copying that object on its
// first visit and reusing the forwarding address installed in its old
// header on every subsequent visit.
func (e *Engine) forward(slot uintptr) {
	stored := loadWord(slot)
	if stored == 0 {
		// Null is a language-level convention shared by every host: it is
		// never a valid decoded address, so it must be checked before
		// decodePtr, not after (hostabi/wasmhost's decode does not fix 0
		// to 0 — it maps guest offset 0 to the host address of the guest's
		// own linear memory base).
		return
	}
	p := e.decodePtr(stored)
	if !e.from.contains(p) {
		// Not a managed pointer — e.g. already updated to point into
		// to-space by an earlier alias, or a foreign pointer.
		return
	}

	headerAddr := p - wordSize
	h := loadWord(headerAddr)
	hdr := headerlayout.Decode(h, e.to.headerRange())

	if fwd, ok := hdr.(headerlayout.Forwarded); ok {
		if e.log {
			fmt.Fprintf(e.out, "---- copying object at relative address %d with header [Forwarded]\n", e.from.relative(p))
			fmt.Fprintf(e.out, "---- object forwarded to relative address %d\n", e.to.relative(fwd.Addr))
		}
		storeWord(slot, e.encodePtr(fwd.Addr))
		return
	}

	w := hdr.PayloadWords()
	destHeader := e.freePtr
	destPayload := destHeader + wordSize

	if e.log {
		fmt.Fprintf(e.out, "---- copying object at relative address %d with header %s\n", e.from.relative(p), hdr)
		fmt.Fprintf(e.out, "---- moving object from relative address %d to %d\n", e.from.relative(p), e.to.relative(destPayload))
	}

	copyWords(destHeader, headerAddr, 1+w)
	storeWord(headerAddr, destPayload) // install the forwarding address (host domain: read back only by Decode/toSpace.Contains, never by guest code)
	storeWord(slot, e.encodePtr(destPayload))
	e.freePtr += (1 + w) * wordSize
}

// scan is the second half of Cheney's algorithm (spec.md §4.4's scan
// algorithm): it walks every object already copied into to-space,
// forwarding each of its pointer fields, until the scan cursor catches up
// with the free cursor.
func (e *Engine) scan() {
	if e.log {
		fmt.Fprintln(e.out, "gc: starting scan")
	}

	for e.scanPtr != e.freePtr {
		h := loadWord(e.scanPtr)
		hdr := headerlayout.Decode(h, e.to.headerRange())

		if e.log {
			fmt.Fprintf(e.out, "-- scanning header %s\n", hdr)
		}

		for _, offset := range hdr.PointerOffsets() {
			fieldAddr := e.scanPtr + (1+offset)*wordSize
			e.forward(fieldAddr)
		}

		w := hdr.PayloadWords()
		if e.log {
			fmt.Fprintf(e.out, "-- incrementing scanning ptr by %d\n", 1+w)
		}
		e.scanPtr += (1 + w) * wordSize
	}
}
