// Package concurrent implements spec.md's two multi-threaded allocator
// variants: a single global lock over one free list (§4.5) and per-arena
// free lists backed by a lock-free reclamation stack (§4.6).
package concurrent

import (
	"sync"
	"unsafe"

	"github.com/arenabreak/brkalloc/internal/allocator"
	"github.com/arenabreak/brkalloc/internal/brk"
)

// Locked is the lock-guarded global allocator of spec.md §4.5: every
// Alloc/Free takes the same mutex around the whole operation, including the
// growth call — so growth is trivially serialized and needs no lock of its
// own. Grounded directly on original_source/project2/my_malloc/my_malloc.c's
// ts_malloc_lock/ts_free_lock (one pthread_mutex_t guarding both the free
// list and sbrk) and on the teacher's SystemAllocatorImpl/ArenaAllocatorImpl,
// which both take a single mutex for the whole operation rather than
// fine-grained locking.
type Locked struct {
	mu   sync.Mutex
	heap *allocator.Heap
}

// NewLocked creates a Locked allocator drawing memory from src.
func NewLocked(src brk.Source) *Locked {
	return &Locked{heap: allocator.NewHeap(src)}
}

// Alloc implements alloc_locked: best-fit over the global list, guarded by
// mu for its entire duration (search, remove, split and — on a miss —
// growth all happen with mu held).
func (l *Locked) Alloc(size uintptr) unsafe.Pointer {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.heap.AllocBestFit(size)
}

// Free implements free_locked.
func (l *Locked) Free(ptr unsafe.Pointer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.heap.Free(ptr)
}

// DataSegmentSize returns heap_end - heap_start for this variant's segment.
func (l *Locked) DataSegmentSize() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.heap.DataSegmentSize()
}

// FreeSpace sums the sizes of every block on the global free list — this is
// the canonical data_segment_free_space_size spec.md §6 describes.
func (l *Locked) FreeSpace() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.heap.FreeSpace()
}
