// Package runtime is the cflat memory manager: a semispace copying garbage
// collector using Cheney's breadth-first traversal, plus the bump allocator
// and stack-root enumerator it depends on.
//
// The heap and every stack frame the collector walks live in ordinary Go
// memory, addressed with real pointers (converted to and from uintptr). An
// Engine does not simulate a separate address space; it walks whatever
// memory the caller hands it, the same way the native build walks the
// hardware call stack and an mmap'd heap. This is what lets the collector's
// logic be exercised directly from Go tests (see collect_test.go) without a
// cflat compiler, a linker, or a second process: a test just lays out words
// the way the compiler's calling convention would and calls the same Alloc
// and Collect entry points the real ABI trampolines call.
//
// Only one Engine should exist per process for the lifetime described in
// spec.md: it owns one heap's backing memory and is not safe for concurrent
// use (see the Concurrency & Resource Model design note — the collector
// runs synchronously inside Alloc, stopping the one mutator thread that
// calls it).
package runtime
