// Package allocator implements the single-threaded allocator of spec.md
// §4.4: a (search, remove, split, grow) pipeline shared by the first-fit and
// best-fit placement policies, each built on internal/freelist and
// internal/brk.
//
// Grounded on original_source/my_malloc.c's ff_malloc/bf_malloc/maybe_split
// for the algorithm, and on the teacher's internal/allocator.go
// SystemAllocatorImpl/ArenaAllocatorImpl for the Go shape: a struct wrapping
// config/state with Alloc/Free methods and a zero-size fast path.
package allocator

import (
	"unsafe"

	"github.com/arenabreak/brkalloc/internal/block"
	"github.com/arenabreak/brkalloc/internal/brk"
	"github.com/arenabreak/brkalloc/internal/freelist"
)

// Heap is a single-threaded allocator over one brk.Source and one free
// list. It is not safe for concurrent use; internal/concurrent.Locked wraps
// a Heap with a mutex for that.
type Heap struct {
	src  brk.Source
	list freelist.List
}

// NewHeap creates a Heap drawing fresh memory from src.
func NewHeap(src brk.Source) *Heap {
	return &Heap{src: src}
}

// grow requests need bytes (header + payload) from the OS primitive and
// hands the new block directly to the caller — per spec.md §4.1, a newly
// grown block is never first pushed onto the free list and then popped.
func (h *Heap) grow(need uintptr) unsafe.Pointer {
	base, ok := h.src.Sbrk(block.HeaderSize + need)
	if !ok {
		return nil
	}

	b := block.FromAddr(base)
	b.Size = need
	b.Free = false
	b.Next = nil

	return block.HeaderToPayload(b)
}

// AllocFirstFit implements alloc_ff: first-fit search, split on hit, grow on
// miss.
func (h *Heap) AllocFirstFit(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	need := block.Align8(size)

	if b := h.list.SearchFirstFit(need); b != nil {
		h.list.Remove(b)
		b.Free = false
		freelist.Split(&h.list, b, need)

		return block.HeaderToPayload(b)
	}

	return h.grow(need)
}

// AllocBestFit implements alloc_bf: best-fit search, split on hit, grow on
// miss.
func (h *Heap) AllocBestFit(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	need := block.Align8(size)

	if b := h.list.SearchBestFit(need); b != nil {
		h.list.Remove(b)
		b.Free = false
		freelist.Split(&h.list, b, need)

		return block.HeaderToPayload(b)
	}

	return h.grow(need)
}

// Free implements free_ff/free_bf: both share this exact behavior per
// spec.md §4.4.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	b := block.PayloadToHeader(ptr)
	h.list.Insert(b)
}

// DataSegmentSize returns heap_end - heap_start, or 0 before the first
// growth.
func (h *Heap) DataSegmentSize() uintptr {
	start, end := h.src.Bounds()
	if start == 0 && end == 0 {
		return 0
	}

	return end - start
}

// FreeSpace sums the sizes of every block currently on this Heap's free
// list — the canonical data_segment_free_space_size for the single-threaded
// and locked variants.
func (h *Heap) FreeSpace() uintptr {
	return h.list.FreeSpace()
}
