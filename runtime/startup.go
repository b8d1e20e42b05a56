package runtime

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"unsafe"

	"github.com/inhies/go-bytesize"
)

// Engine owns one cflat heap and the semispace collector that manages it.
// The zero value is not usable; construct one with New or NewFromEnv.
//
// Engine is not safe for concurrent use. See the package doc comment.
type Engine struct {
	heapWords uintptr
	backing   []uintptr
	release   func() error

	from space
	to   space
	bump uintptr

	// scan and free are only meaningful while a collection is in progress;
	// they are reset at the start of every Collect call.
	scanPtr uintptr
	freePtr uintptr

	baseFrame uintptr

	// decodePtr translates a pointer value as found in managed memory (a
	// stack frame's saved-base link, a struct or array's pointer-typed
	// payload word) into the host address this package's own arithmetic
	// operates on; encodePtr is its inverse, applied whenever the collector
	// writes such a value back into memory. Both default to the identity
	// function, because hostabi/cabi's compiled programs run in this same
	// OS process and address memory exactly the way this package does — a
	// pointer value already found in memory already is a host address.
	// hostabi/wasmhost installs a real translation instead: a wasm guest
	// can only ever express an address as an i32 offset into its own
	// linear memory, never as this process's virtual address for that same
	// byte, so every pointer value that crosses between "what the guest
	// wrote" and "what this package's loadWord/storeWord need" has to be
	// translated, not just the six ABI parameters at the call boundary.
	decodePtr func(uintptr) uintptr
	encodePtr func(uintptr) uintptr

	log bool
	out io.Writer

	// exit is called by Panic after writing the panic message. It defaults
	// to os.Exit(0), matching spec.md §6's exit-code contract; tests
	// substitute a function that unwinds the test instead of killing the
	// process.
	exit func(code int)

	// dumpPath, when non-empty, is the file Collect writes a heap snapshot
	// to after every collection (spec.md's CFLAT_GC_DUMP debug aid). Only
	// NewFromEnv populates it; New and NewFromBacking leave dumping to the
	// caller, who can always call DumpHeap directly (cmd/cflatrt-trace
	// does, via its own -dump flag).
	dumpPath string
}

func identityPtr(p uintptr) uintptr { return p }

// New constructs an Engine with an explicit heap size, log flag and
// terminator frame base, bypassing environment-variable lookup. This is the
// constructor used by tests and by cmd/cflatrt-trace; hostabi/wasmhost,
// whose heap lives in guest memory, uses NewFromBacking instead.
func New(heapWords uintptr, logEnabled bool, baseFrame uintptr) (*Engine, error) {
	if err := validateHeapWords(heapWords); err != nil {
		return nil, err
	}

	backing, release, err := allocateBacking(heapWords)
	if err != nil {
		return nil, fmt.Errorf("cflatrt: allocate heap backing of %s: %w",
			bytesize.New(float64(heapWords*wordSize)), err)
	}

	return newEngine(heapWords, backing, release, logEnabled, baseFrame, identityPtr, identityPtr)
}

// NewFromBacking builds an Engine whose heap lives in caller-owned memory
// instead of memory this package allocates itself. hostabi/wasmhost uses
// this to carve the cflat heap directly out of a wazero guest module's own
// linear memory, so the collector operates on that memory in place rather
// than copying between two separate address spaces. Close on the returned
// Engine is then a no-op: the caller, not this package, owns backing's
// lifetime.
//
// decode and encode translate pointer values between the representation
// the caller's own program uses in memory and the host addresses backing's
// Go slice actually lives at — see Engine.decodePtr. baseFrame is given in
// that same "as the caller's program would write it" representation and is
// decoded once, here, exactly like every frame link walkStack decodes
// later. Callers whose address space already matches this process's own
// (there are none in this repo — that is what New is for) can pass
// identity for both.
func NewFromBacking(backing []uintptr, logEnabled bool, baseFrame uintptr, decode, encode func(uintptr) uintptr) (*Engine, error) {
	heapWords := uintptr(len(backing))
	if err := validateHeapWords(heapWords); err != nil {
		return nil, err
	}
	return newEngine(heapWords, backing, func() error { return nil }, logEnabled, baseFrame, decode, encode)
}

func newEngine(heapWords uintptr, backing []uintptr, release func() error, logEnabled bool, baseFrame uintptr, decode, encode func(uintptr) uintptr) (*Engine, error) {
	base := uintptr(unsafe.Pointer(&backing[0]))

	e := &Engine{
		heapWords: heapWords,
		backing:   backing,
		release:   release,
		from:      space{base: base, words: heapWords / 2},
		to:        space{base: base + heapWords/2*wordSize, words: heapWords / 2},
		baseFrame: decode(baseFrame),
		decodePtr: decode,
		encodePtr: encode,
		log:       logEnabled,
		out:       os.Stdout,
		exit:      os.Exit,
	}
	e.bump = e.from.base

	if e.log {
		fmt.Fprintf(e.out, "_cflat_init_gc: allocated heap of %d words\n", heapWords)
	}
	return e, nil
}

// NewFromEnv reads CFLAT_HEAP_WORDS and CFLAT_GC_LOG per spec.md §6 and
// constructs an Engine from them. baseFrame is still supplied by the
// caller: capturing "the frame base two levels above init" is a platform
// primitive (see hostabi/cabi), not something this package can do for a
// caller running on an arbitrary Go call stack.
func NewFromEnv(baseFrame uintptr) (*Engine, error) {
	heapWords, err := heapWordsFromEnv()
	if err != nil {
		return nil, err
	}
	e, err := New(heapWords, gcLogFromEnv(), baseFrame)
	if err != nil {
		return nil, err
	}
	e.dumpPath = os.Getenv(envGCDump)
	return e, nil
}

// Close releases the heap's backing memory. It is not part of the cflat
// ABI — the reference runtime simply lets the process exit reclaim the
// heap — but it lets tests and long-lived hosts avoid leaking mmap'd
// memory across many Engines.
func (e *Engine) Close() error {
	if e.release == nil {
		return nil
	}
	return e.release()
}

func validateHeapWords(words uintptr) error {
	if words == 0 {
		return fmt.Errorf("CFLAT_HEAP_WORDS must be a positive even integer, got 0")
	}
	if words%2 != 0 {
		return fmt.Errorf("CFLAT_HEAP_WORDS must be even (two equal semispaces), got %d (%s)",
			words, bytesize.New(float64(words*wordSize)))
	}
	return nil
}

const (
	envHeapWords = "CFLAT_HEAP_WORDS"
	envGCLog     = "CFLAT_GC_LOG"
	envGCDump    = "CFLAT_GC_DUMP"
)

// heapWordsFromEnv mirrors the reference runtime's validation: the entire
// string must be composed of ASCII digits (std::all_of(..., isdigit) in
// runtime.cc), so a leading sign, surrounding whitespace or any other
// character makes the value malformed rather than merely out of range.
func heapWordsFromEnv() (uintptr, error) {
	raw, ok := os.LookupEnv(envHeapWords)
	if !ok || raw == "" {
		return 0, fmt.Errorf("the %s environment variable must be set to the desired size of the heap (in words)", envHeapWords)
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%s must contain a positive even number with no trailing spaces, got %q", envHeapWords, raw)
		}
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a positive even integer, got %q: %w", envHeapWords, raw, err)
	}
	words := uintptr(v)
	if err := validateHeapWords(words); err != nil {
		return 0, err
	}
	return words, nil
}

func gcLogFromEnv() bool {
	return os.Getenv(envGCLog) == "1"
}
