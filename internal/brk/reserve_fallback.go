//go:build !unix && !windows

package brk

import (
	"fmt"
	"runtime"
	"unsafe"
)

// reserve backs the segment with a single Go slice on platforms with no
// unix/windows mmap binding. Grounded on the teacher's
// internal/allocator.systemAlloc: allocate with make([]byte, n) and
// runtime.KeepAlive the slice header forever so the GC never reclaims or
// moves the memory a Header/payload pointer still addresses.
var keepAlive [][]byte

func reserve(size uintptr) (uintptr, error) {
	buf := make([]byte, size)
	if len(buf) == 0 {
		return 0, fmt.Errorf("brk: reserve %d bytes: allocation failed", size)
	}

	keepAlive = append(keepAlive, buf)
	runtime.KeepAlive(buf)

	return uintptr(unsafe.Pointer(&buf[0])), nil
}
