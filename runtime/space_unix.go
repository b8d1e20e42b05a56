//go:build unix

package runtime

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// allocateBacking reserves the heap's backing memory with an anonymous,
// private mmap, the same mechanism the reference runtime's C allocator
// assumes an OS provides (TinyGo's Boehm GC build likewise compiles with
// -DUSE_MMAP for hosted targets; see builder/bdwgc.go). The returned slice
// aliases the mapping directly — there is no separate copy.
func allocateBacking(words uintptr) ([]uintptr, func() error, error) {
	length := int(words * wordSize)
	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	release := func() error {
		return unix.Munmap(data)
	}
	return unsafe.Slice((*uintptr)(unsafe.Pointer(&data[0])), words), release, nil
}
