// Package headerlayout models the cflat heap object header as the tagged
// union described by the collector's design notes: a single machine word
// whose low 3 bits select a variant and whose remaining bits are
// variant-specific, plus a transient "forwarded" variant that exists only
// during a collection and is recognized by address range rather than by
// tag bits.
//
// Keeping the decode/encode logic in one package, away from the collector,
// follows the reference design note ("Tagged-union header decoding")
// against scattering bit arithmetic across the copy/scan loop.
package headerlayout

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"
)

// wordSize is the byte size of one machine word, used to turn an
// AddrRange's word count into the byte span Contains actually checks.
const wordSize = unsafe.Sizeof(uintptr(0))

// tag occupies the low 3 bits of a header word.
const (
	tagStruct      = 0 // atomic struct, or struct-with-pointers variant A
	tagAtomicArray = 2
	tagPtrStruct   = 4 // struct-with-pointers variant B
	tagPtrArray    = 6

	tagMask   = 0x7
	tagShift  = 3
	bitsInTag = 3

	// variant-A bitmap width, per spec.md: bit i (0..4) means offset i+1.
	bitmapWidth = 5
	bitmapMask  = (1 << bitmapWidth) - 1
)

// AddrRange is a half-open range of Words machine words starting at Base,
// i.e. the byte range [Base, Base+Words*wordSize). It is used only to
// recognize forwarding addresses: a header word that falls inside to-space
// is, by construction, not a tag/size encoding at all but the forwarding
// pointer installed during copy.
type AddrRange struct {
	Base  uintptr
	Words uintptr
}

// Contains reports whether addr lies in the range.
func (r AddrRange) Contains(addr uintptr) bool {
	return addr >= r.Base && addr < r.Base+r.Words*wordSize
}

// Header is the decoded form of a header word. Exactly one of the concrete
// types below is returned by Decode.
type Header interface {
	// PointerOffsets returns the payload-word offsets (0-based, relative to
	// the first payload word) that hold pointer fields. It returns nil for
	// variants with no pointer fields and panics for Forwarded, which has
	// no payload of its own to scan.
	PointerOffsets() []uintptr

	// PayloadWords returns the number of payload words following the
	// header word. It panics for Forwarded.
	PayloadWords() uintptr

	// Encode returns the header word that decodes back to this value.
	Encode() uintptr

	String() string
}

// AtomicArray is an array of non-pointer elements; Len is both the element
// count and the payload word count (each element occupies one word).
type AtomicArray struct{ Len uintptr }

// PointerArray is an array of pointer elements; Len is both the element
// count and the payload word count.
type PointerArray struct{ Len uintptr }

// AtomicStruct is a struct with no pointer fields. Size is its payload word
// count, always even: the header stores it as a count of 2-word chunks.
type AtomicStruct struct{ Size uintptr }

// StructWithPointers is a struct whose pointer fields are described by one
// of the two distinct encodings documented in spec.md's Design Notes
// ("two-variant format"). PointerOffsets returns the derived pointer-field
// offsets regardless of which variant produced the value. A variant-A value
// whose bitmap is zero has no pointer fields.
type StructWithPointers struct {
	Size uintptr

	// variantBitmap holds the 5-bit pointer bitmap for variant A (bit i set
	// means offset i+1 is a pointer field). variantLeading holds the
	// number of leading pointer fields (offsets 0..variantLeading-1) for
	// variant B. Exactly one of the two is active, tracked by isVariantB.
	variantBitmap  uintptr
	variantLeading uintptr
	isVariantB     bool
}

// Forwarded is installed over an object's header once it has been copied
// to to-space; Addr is the payload address of the copy.
type Forwarded struct{ Addr uintptr }

func (a AtomicArray) PayloadWords() uintptr     { return a.Len }
func (a AtomicArray) PointerOffsets() []uintptr { return nil }
func (a AtomicArray) Encode() uintptr           { return a.Len<<tagShift | tagAtomicArray }
func (a AtomicArray) String() string {
	return fmt.Sprintf("[Array, len = %d, ptrs = false]", a.Len)
}

func (p PointerArray) PayloadWords() uintptr { return p.Len }
func (p PointerArray) PointerOffsets() []uintptr {
	offsets := make([]uintptr, p.Len)
	for i := range offsets {
		offsets[i] = uintptr(i)
	}
	return offsets
}
func (p PointerArray) Encode() uintptr { return p.Len<<tagShift | tagPtrArray }
func (p PointerArray) String() string {
	return fmt.Sprintf("[Array, len = %d, ptrs = true]", p.Len)
}

func (s AtomicStruct) PayloadWords() uintptr    { return s.Size }
func (s AtomicStruct) PointerOffsets() []uintptr { return nil }
func (s AtomicStruct) Encode() uintptr {
	if s.Size%2 != 0 {
		panic("headerlayout: AtomicStruct size must be an even number of words")
	}
	return (s.Size/2)<<tagShift | tagStruct
}
func (s AtomicStruct) String() string {
	return fmt.Sprintf("[Struct, size = %d, ptr offsets = none]", s.Size)
}

// NewStructVariantA builds the tag-0 pointer-struct encoding: a 5-bit
// bitmap where bit i set means payload offset i+1 is a pointer field.
func NewStructVariantA(size, bitmap uintptr) StructWithPointers {
	if size == 0 {
		panic("headerlayout: variant-A struct must have a nonzero size")
	}
	if bitmap > bitmapMask {
		panic("headerlayout: variant-A bitmap must fit in 5 bits")
	}
	return StructWithPointers{Size: size, variantBitmap: bitmap}
}

// NewStructVariantB builds the tag-4 pointer-struct encoding: the leading
// leadingCount payload fields (offsets 0..leadingCount-1) are pointers.
func NewStructVariantB(size, leadingCount uintptr) StructWithPointers {
	if leadingCount == 0 || leadingCount > bitmapMask+1 {
		panic("headerlayout: variant-B leading pointer count out of range")
	}
	return StructWithPointers{Size: size, variantLeading: leadingCount, isVariantB: true}
}

func (s StructWithPointers) PayloadWords() uintptr { return s.Size }

func (s StructWithPointers) PointerOffsets() []uintptr {
	if s.isVariantB {
		offsets := make([]uintptr, s.variantLeading)
		for i := range offsets {
			offsets[i] = uintptr(i)
		}
		return offsets
	}
	var offsets []uintptr
	for i := uintptr(0); i < bitmapWidth; i++ {
		if s.variantBitmap&(1<<i) != 0 {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func (s StructWithPointers) Encode() uintptr {
	if s.isVariantB {
		k := s.variantLeading - 1
		return (s.Size<<bitmapWidth|k)<<tagShift | tagPtrStruct
	}
	return (s.Size<<bitmapWidth|s.variantBitmap)<<tagShift | tagStruct
}

func (s StructWithPointers) String() string {
	offsets := s.PointerOffsets()
	if len(offsets) == 0 {
		return fmt.Sprintf("[Struct, size = %d, ptr offsets = none]", s.Size)
	}
	parts := make([]string, len(offsets))
	for i, o := range offsets {
		parts[i] = strconv.FormatUint(uint64(o), 10)
	}
	return fmt.Sprintf("[Struct, size = %d, ptr offsets = %s]", s.Size, strings.Join(parts, " "))
}

func (f Forwarded) PayloadWords() uintptr {
	panic("headerlayout: Forwarded has no payload to measure")
}
func (f Forwarded) PointerOffsets() []uintptr {
	panic("headerlayout: Forwarded has no payload to scan")
}
func (f Forwarded) Encode() uintptr { return f.Addr }
func (f Forwarded) String() string  { return "[Forwarded]" }

// Decode interprets a header word, given the address range of the current
// to-space. A word inside that range is a forwarding address installed by
// a previous visit during the collection in progress; otherwise the word
// is decoded by its tag bits.
//
// The tag-0 disambiguation (atomic struct vs. variant-A struct-with-pointers)
// follows the reference behavior noted in spec.md's Open Questions: a
// nonzero size field above the 5-bit bitmap means "struct with pointers".
func Decode(word uintptr, toSpace AddrRange) Header {
	if toSpace.Contains(word) {
		return Forwarded{Addr: word}
	}

	tag := word & tagMask
	rawLen := word >> tagShift

	switch tag {
	case tagAtomicArray:
		return AtomicArray{Len: rawLen}
	case tagPtrArray:
		return PointerArray{Len: rawLen}
	case tagPtrStruct:
		size := rawLen >> bitmapWidth
		k := rawLen & bitmapMask
		return NewStructVariantB(size, k+1)
	case tagStruct:
		size := rawLen >> bitmapWidth
		if size > 0 {
			bitmap := rawLen & bitmapMask
			return NewStructVariantA(size, bitmap)
		}
		return AtomicStruct{Size: rawLen * 2}
	default:
		panic(fmt.Sprintf("headerlayout: header word %#x has an unrecognized tag", word))
	}
}
