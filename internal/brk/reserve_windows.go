//go:build windows

package brk

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// reserve commits a region of the given size via VirtualAlloc. Windows has
// no overcommit, so MEM_COMMIT is requested up front rather than reserved
// lazily — this mirrors sbrk's guarantee that bytes already handed out by a
// successful call are actually usable.
func reserve(size uintptr) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return 0, fmt.Errorf("brk: reserve %d bytes: %w", size, err)
	}

	if addr == 0 {
		return 0, fmt.Errorf("brk: reserve %d bytes: VirtualAlloc returned nil", size)
	}

	return addr, nil
}
