package runtime

import (
	"unsafe"

	"github.com/cflat-lang/cflatrt/internal/headerlayout"
)

// wordSize is the size in bytes of one machine word — the unit every
// address computation in this package is expressed in.
const wordSize = unsafe.Sizeof(uintptr(0))

// space describes one half of the heap by its base address and word count.
type space struct {
	base  uintptr
	words uintptr
}

func (s space) end() uintptr {
	return s.base + s.words*wordSize
}

func (s space) contains(addr uintptr) bool {
	return addr >= s.base && addr < s.end()
}

func (s space) headerRange() headerlayout.AddrRange {
	return headerlayout.AddrRange{Base: s.base, Words: s.words}
}

// relative returns the word offset of addr from the space's base, the
// "relative address" used throughout the collector's log output.
func (s space) relative(addr uintptr) uintptr {
	return (addr - s.base) / wordSize
}

func loadWord(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr)) //nolint:govet
}

func storeWord(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v //nolint:govet
}

// copyWords copies n words from src to dst. The ranges may not overlap,
// which always holds here: src is a live from-space object and dst is
// always-advancing free space in to-space.
func copyWords(dst, src, n uintptr) {
	for i := uintptr(0); i < n; i++ {
		storeWord(dst+i*wordSize, loadWord(src+i*wordSize))
	}
}

// ZeroWords zeros n words starting at addr. It implements the
// _cflat_zero_words runtime helper (spec.md §6) and is also used internally
// by the allocator to zero freshly reserved payloads.
func ZeroWords(addr uintptr, n uintptr) {
	for i := uintptr(0); i < n; i++ {
		storeWord(addr+i*wordSize, 0)
	}
}
