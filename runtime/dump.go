package runtime

import (
	"fmt"
	"os"

	"github.com/cflat-lang/cflatrt/internal/headerlayout"
	"github.com/gofrs/flock"
)

// DumpHeap writes a textual snapshot of the live prefix of the active
// half-space to path: one line per object, "<relative header address>:
// <decoded header>". It is an optional debug aid (spec.md's mandatory log
// output never depends on it). Collect calls it after every collection when
// the Engine's dumpPath is set, which NewFromEnv fills from the
// CFLAT_GC_DUMP environment variable; other callers may call it directly.
//
// The write is guarded by a file lock so that a process that calls DumpHeap
// from more than one collection in a row never interleaves two partial
// snapshots into the same file.
func (e *Engine) DumpHeap(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("cflatrt: lock heap dump %s: %w", path, err)
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cflatrt: create heap dump %s: %w", path, err)
	}
	defer f.Close()

	for addr, n := e.from.base, (e.bump-e.from.base)/wordSize; n > 0; {
		h := loadWord(addr)
		hdr := headerlayout.Decode(h, e.to.headerRange())
		fmt.Fprintf(f, "%d: %s\n", e.from.relative(addr), hdr)

		words := uintptr(1)
		if _, forwarded := hdr.(headerlayout.Forwarded); !forwarded {
			words += hdr.PayloadWords()
		}
		addr += words * wordSize
		if words > n {
			break
		}
		n -= words
	}
	return nil
}
