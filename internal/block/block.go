// Package block defines the on-heap layout shared by every allocator
// variant in brkalloc: a fixed-size Header immediately followed by its
// payload, with no trailing footer.
package block

import "unsafe"

// Header sits immediately before every payload. It is overlaid on raw
// segment bytes, and internal/freelist and internal/concurrent read and
// write Size, Free and Next directly, not through this package's accessors
// alone.
type Header struct {
	// Size is the payload length in bytes, always a positive multiple of 8.
	Size uintptr
	// Free is redundant with list membership; kept for diagnostic asserts.
	Free bool
	// Next is valid only while the block sits on some free list or on the
	// reclamation stack. Undefined once the block is handed to a caller.
	Next *Header
}

// HeaderSize is the number of bytes a Header occupies ahead of every
// payload.
const HeaderSize = unsafe.Sizeof(Header{})

// Align is the allocator-wide alignment granularity; spec.md fixes it at 8
// and treats larger alignment as out of scope.
const Align = 8

// Align8 rounds n up to the next multiple of Align.
func Align8(n uintptr) uintptr {
	return (n + Align - 1) &^ (Align - 1)
}

// HeaderToPayload returns the payload address for a block whose header
// starts at h.
func HeaderToPayload(h *Header) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + HeaderSize)
}

// PayloadToHeader recovers the header address from a payload pointer
// previously produced by HeaderToPayload. Behavior is undefined if payload
// was not produced by this package.
func PayloadToHeader(payload unsafe.Pointer) *Header {
	return (*Header)(unsafe.Pointer(uintptr(payload) - HeaderSize))
}

// End returns the address one past this block's payload, i.e. the address a
// physically adjacent successor block's header would start at.
func End(h *Header) uintptr {
	return uintptr(HeaderToPayload(h)) + h.Size
}

// FromAddr reinterprets the raw address addr (the start of a freshly grown
// region) as a Header.
func FromAddr(addr uintptr) *Header {
	return (*Header)(unsafe.Pointer(addr))
}

// Addr returns h's own address, for ordering comparisons.
func Addr(h *Header) uintptr {
	return uintptr(unsafe.Pointer(h))
}
