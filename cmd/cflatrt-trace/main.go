// Command cflatrt-trace is an interactive viewer for a single collection
// cycle. It builds a small heap and stack by hand (using
// runtime.NewStackFrame, the same helper a host without a real call stack
// would reach for), forces a collection with runtime.Engine.Steps, and
// walks the resulting trace one logged line at a time, advancing on a
// keypress. It exists purely as a learning/debugging aid — spec.md's
// mandatory stdout log format never depends on it.
package main

import (
	"flag"
	"fmt"
	"os"
	"unsafe"

	"github.com/cflat-lang/cflatrt/internal/headerlayout"
	"github.com/cflat-lang/cflatrt/runtime"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-tty"
	"gopkg.in/yaml.v2"
)

// traceConfig is the -config file format: a YAML target description in the
// same spirit as the ones TinyGo's own build tooling loads, just describing
// this tool's demo scenario instead of a hardware target.
type traceConfig struct {
	HeapWords uint64 `yaml:"heap-words"`
	Auto      bool   `yaml:"auto"`
}

func loadConfig(path string) (traceConfig, error) {
	var cfg traceConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("cflatrt-trace: parsing %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	heapWords := flag.Uint64("heap", 32, "heap size in words (must be even)")
	auto := flag.Bool("auto", false, "print the whole trace without waiting for keypresses")
	config := flag.String("config", "", "YAML file overriding -heap and -auto (heap-words, auto)")
	dump := flag.String("dump", "", "write a DumpHeap snapshot of the post-collection heap to this path")
	flag.Parse()

	hw, a := *heapWords, *auto
	if *config != "" {
		cfg, err := loadConfig(*config)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cflatrt-trace:", err)
			os.Exit(1)
		}
		if cfg.HeapWords != 0 {
			hw = cfg.HeapWords
		}
		a = a || cfg.Auto
	}

	if err := run(uintptr(hw), a, *dump); err != nil {
		fmt.Fprintln(os.Stderr, "cflatrt-trace:", err)
		os.Exit(1)
	}
}

// run builds a small demo scenario — an outer struct with one pointer
// field to an inner struct, both reachable from a single stack frame, plus
// one unreachable cell allocated and immediately dropped — then steps
// through the collection that reclaims the unreachable cell while copying
// the other two. If dumpPath is non-empty, it also writes a DumpHeap
// snapshot of the heap once the trace finishes.
func run(heapWords uintptr, auto bool, dumpPath string) error {
	e, err := runtime.New(heapWords, false, 0)
	if err != nil {
		return err
	}
	defer e.Close()

	frame := runtime.NewStackFrame(0, 1)

	inner := allocDemo(e, frame.Base(), headerlayout.AtomicStruct{Size: 2})
	pokeWord(inner, 7)
	pokeWord(inner+wordSize, 8)

	outer := allocDemo(e, frame.Base(), headerlayout.NewStructVariantA(2, 0b00001)) // offset 1 is a pointer
	pokeWord(outer, 42)
	pokeWord(outer+wordSize, inner)

	allocDemo(e, frame.Base(), headerlayout.AtomicArray{Len: 1}) // never rooted: dead on arrival

	frame.SetRoot(0, outer)

	out := colorable.NewColorableStdout()
	var tt *tty.TTY
	if !auto {
		tt, err = tty.Open()
		if err != nil {
			// No controlling terminal (e.g. piped output) — fall back to
			// printing the whole trace at once instead of failing.
			auto = true
		} else {
			defer tt.Close()
		}
	}

	for ev := range e.Steps(frame.Base()) {
		fmt.Fprintln(out, colorLine(ev.Line))
		if !auto {
			if _, err := tt.ReadRune(); err != nil {
				return err
			}
		}
	}

	if dumpPath != "" {
		if err := e.DumpHeap(dumpPath); err != nil {
			return err
		}
	}
	return nil
}

const wordSize = unsafe.Sizeof(uintptr(0))

// allocDemo mirrors what compiler-generated code does immediately after a
// cflat_alloc call returns: it writes the header at payload-1 itself, per
// spec.md §4.2's header-ownership split between allocator and caller.
func allocDemo(e *runtime.Engine, callerFrame uintptr, hdr headerlayout.Header) uintptr {
	payload := e.Alloc(callerFrame, hdr.PayloadWords())
	pokeWord(payload-wordSize, hdr.Encode())
	return payload
}

func pokeWord(addr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v //nolint:govet
}

// colorLine prefixes deeper trace lines (those indented with "--") in a
// dimmer color so the "gc: / -- / ----" nesting the log format uses is
// easier to follow interactively.
func colorLine(line string) string {
	switch {
	case len(line) >= 4 && line[:4] == "----":
		return "\x1b[90m" + line + "\x1b[0m"
	case len(line) >= 2 && line[:2] == "--":
		return "\x1b[36m" + line + "\x1b[0m"
	default:
		return "\x1b[1m" + line + "\x1b[0m"
	}
}
