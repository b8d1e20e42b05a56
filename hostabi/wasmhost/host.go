// Package wasmhost binds the same six C-ABI symbols cabi exports natively
// to a WebAssembly guest module, using wazero as the runtime. This is the
// wasm counterpart of hostabi/cabi: the guest module's own linear memory
// plays the role both of the cflat heap and of the simulated stack, exactly
// as runtime's test helpers use a plain []uintptr for both — the collector
// itself never knows or cares whether the bytes it is walking came from a
// real process's address space or a wazero-hosted wasm instance.
package wasmhost

import (
	"context"
	"fmt"
	"os"
	"unsafe"

	"github.com/cflat-lang/cflatrt/runtime"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// ModuleName is the import module name a guest compiled against this host
// must declare its six cflat symbols under.
const ModuleName = "cflat_rt"

const wordSize = uint32(unsafe.Sizeof(uintptr(0)))

// Host owns one Engine bound to one wazero module's linear memory. A guest
// instance is only usable once its exported memory is known, so Host is
// constructed empty and wired up on the guest's first call into
// _cflat_init_gc, mirroring how the native cabi trampoline only gets an
// Engine once the compiled program calls that same symbol.
type Host struct {
	heapWords uintptr
	log       bool
	baseFrame uintptr

	engine *runtime.Engine
	mem    api.Memory
	base   uintptr
}

// New returns a Host configured the way NewFromEnv configures a native
// Engine, deferring actual heap construction to the guest's own call to
// _cflat_init_gc: wazero's guest memory, not Go's own heap, backs the cflat
// heap here, so there is nothing to carve out of until a module instance
// exists.
func New(heapWords uintptr, log bool, baseFrame uintptr) *Host {
	return &Host{heapWords: heapWords, log: log, baseFrame: baseFrame}
}

// Instantiate registers the six cflat symbols as wazero host functions
// under ModuleName and instantiates them against r, returning the
// api.Module a guest can then import from.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(ModuleName)

	builder.NewFunctionBuilder().WithFunc(h.cflatInitGC).Export("_cflat_init_gc")
	builder.NewFunctionBuilder().WithFunc(h.cflatAlloc).Export("_cflat_alloc")
	builder.NewFunctionBuilder().WithFunc(h.cflatZeroWords).Export("_cflat_zero_words")
	builder.NewFunctionBuilder().WithFunc(h.cflatPanic).Export("_cflat_panic")
	builder.NewFunctionBuilder().WithFunc(h.printNum).Export("print_num")
	builder.NewFunctionBuilder().WithFunc(h.printChar).Export("print_char")

	return builder.Instantiate(ctx)
}

// fatal prints msg to stdout and exits 0, the same discipline
// hostabi/cabi's pre-Engine error paths use: spec.md §7 routes every fatal
// condition — Configuration errors and contract violations alike — through
// a print-and-exit-0, never a nonzero-status crash, and that still applies
// here even though there is no Engine yet to call Panic on.
func fatal(msg string) {
	fmt.Println(msg)
	os.Exit(0)
}

// guestBase returns the host address of offset 0 in the guest's linear
// memory. wazero's compiler engine backs a module's memory with a real Go
// byte slice grown in place, so a zero-copy read of the whole region hands
// back a slice that aliases that backing array directly — taking its
// address is what lets Engine's unsafe.Pointer arithmetic operate on guest
// bytes exactly as it would on a native mmap'd heap.
func guestBase(mem api.Memory) uintptr {
	buf, ok := mem.Read(0, mem.Size())
	if !ok || len(buf) == 0 {
		fatal("wasmhost: guest module exports no memory")
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}

// hostAddr translates a guest byte offset into the host address computed by
// guestBase, the inverse of guestOffset.
func (h *Host) hostAddr(offset uint32) uintptr {
	return h.base + uintptr(offset)
}

// guestOffset translates a host address back into a guest byte offset, for
// handing pointers computed by Engine (real Go addresses) back to guest
// code, which only understands offsets into its own linear memory.
func (h *Host) guestOffset(addr uintptr) uint32 {
	return uint32(addr - h.base)
}

// pointerCodec returns the decode/encode pair NewFromBacking installs on
// the Engine, factored out of cflatInitGC so it can be exercised directly
// against a plain []uintptr backing slice in tests, without a real wazero
// module in the loop: h.base is the only state either closure captures.
func (h *Host) pointerCodec() (decode, encode func(uintptr) uintptr) {
	decode = func(offset uintptr) uintptr { return h.hostAddr(uint32(offset)) }
	encode = func(addr uintptr) uintptr { return uintptr(h.guestOffset(addr)) }
	return decode, encode
}

// cflatInitGC constructs the Engine on first call, carving its heap
// directly out of the guest's own linear memory (offset 0 through
// heapWords words) rather than allocating separate host-side memory: the
// guest's memory *is* the cflat heap, per this package's doc comment.
func (h *Host) cflatInitGC(ctx context.Context, mod api.Module) {
	if h.engine != nil {
		// spec.md §7: calling init twice is a fatal contract violation.
		h.engine.Panic("_cflat_init_gc: already initialized")
		return
	}

	h.mem = mod.Memory()
	h.base = guestBase(h.mem)

	buf, ok := h.mem.Read(0, h.mem.Size())
	if !ok {
		fatal("wasmhost: guest module exports no memory")
	}
	if uintptr(len(buf)) < h.heapWords*uintptr(wordSize) {
		fatal(fmt.Sprintf("wasmhost: guest memory (%d bytes) is smaller than the configured heap (%d words)",
			len(buf), h.heapWords))
	}
	backing := unsafe.Slice((*uintptr)(unsafe.Pointer(&buf[0])), h.heapWords)

	// A wasm guest can only ever express a pointer as an i32 offset into
	// its own linear memory — it has no way to compute or hold this
	// process's real virtual address for that same byte. Every pointer
	// value the collector reads out of or writes back into guest memory
	// (stack-frame links, struct/array pointer fields) therefore has to be
	// translated through h.base, not just the ABI parameters at the six
	// exported symbols.
	decode, encode := h.pointerCodec()

	e, err := runtime.NewFromBacking(backing, h.log, h.baseFrame, decode, encode)
	if err != nil {
		// spec.md §7: a Configuration error is fatal but not a crash.
		fatal(fmt.Sprintf("wasmhost: %v", err))
	}
	h.engine = e
}

func (h *Host) cflatAlloc(ctx context.Context, mod api.Module, callerFrame uint32, n uint64) uint32 {
	if h.engine == nil {
		// spec.md §7: alloc before init is a fatal contract violation.
		fatal("wasmhost: _cflat_alloc called before _cflat_init_gc")
	}
	payload := h.engine.Alloc(h.hostAddr(callerFrame), uintptr(n))
	return h.guestOffset(payload)
}

func (h *Host) cflatZeroWords(ctx context.Context, mod api.Module, p uint32, n int64) {
	runtime.ZeroWords(h.hostAddr(p), uintptr(n))
}

func (h *Host) cflatPanic(ctx context.Context, mod api.Module, msgPtr, msgLen uint32) {
	buf, ok := h.mem.Read(msgPtr, msgLen)
	if !ok {
		h.engine.Panic("wasmhost: panic message out of range")
		return
	}
	h.engine.Panic(string(buf))
}

func (h *Host) printNum(n int64) int64 {
	return h.engine.PrintNum(n)
}

func (h *Host) printChar(n int64) int64 {
	return h.engine.PrintChar(n)
}
