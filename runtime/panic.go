package runtime

import "fmt"

// Panic implements the _cflat_panic runtime helper (spec.md §4.5 / §6):
// it prints message followed by a newline to stdout and exits with status
// 0. A nonzero exit status would look like infrastructure failure to the
// harness that parses this program's stdout, so every fatal condition —
// configuration errors, contract violations, out-of-memory — routes
// through here rather than through a conventional Go panic that would
// unwind with a nonzero exit.
func (e *Engine) Panic(message string) {
	fmt.Fprintln(e.out, message)
	e.exit(0)
}

// PrintNum implements the print_num builtin: it prints n in decimal
// followed by a newline and returns 0, matching the int64 return value
// cflat's calling convention expects from every builtin.
func (e *Engine) PrintNum(n int64) int64 {
	fmt.Fprintln(e.out, n)
	return 0
}

// PrintChar implements the print_char builtin: it writes the low byte of n
// with no trailing newline and returns 0. This must be a raw byte write,
// not a rune write: fmt's %c verb UTF-8-encodes its argument as a Unicode
// code point, so for n in [128,255] it would emit a two-byte UTF-8
// sequence instead of the single raw byte spec.md §4.5 mandates (matching
// the reference runtime's std::cout << char(n)).
func (e *Engine) PrintChar(n int64) int64 {
	e.out.Write([]byte{byte(n)}) //nolint:errcheck
	return 0
}
