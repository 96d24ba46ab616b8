// Package brkalloc is a user-space general-purpose memory allocator built on
// top of a simulated sbrk-style OS growth primitive. It exposes four
// independent allocator variants behind one package-level API: single
// threaded first-fit and best-fit, and two multi-threaded variants (a single
// global lock, and per-arena free lists with lock-free reclamation).
//
// Each variant owns its own simulated data segment, so calling AllocFF and
// AllocLocked concurrently never touches the same underlying memory.
package brkalloc

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/arenabreak/brkalloc/internal/allocator"
	"github.com/arenabreak/brkalloc/internal/brk"
	"github.com/arenabreak/brkalloc/internal/concurrent"
)

// reservationSize is the address space reserved for each variant's
// independent simulated data segment. It bounds how much a variant's heap
// can ever grow to; exhausting it is this module's only out-of-memory
// condition (spec.md §7).
const reservationSize = 1 << 32

var (
	ffOnce sync.Once
	ffHeap *allocator.Heap
	ffErr  error

	bfOnce sync.Once
	bfHeap *allocator.Heap
	bfErr  error

	lockedOnce sync.Once
	locked     *concurrent.Locked
	lockedErr  error

	noLockOnce sync.Once
	noLock     *concurrent.NoLock
	noLockErr  error
)

func initFF() {
	src, err := brk.NewSource(reservationSize)
	if err != nil {
		ffErr = fmt.Errorf("brkalloc: first-fit segment: %w", err)

		return
	}

	ffHeap = allocator.NewHeap(src)
}

func initBF() {
	src, err := brk.NewSource(reservationSize)
	if err != nil {
		bfErr = fmt.Errorf("brkalloc: best-fit segment: %w", err)

		return
	}

	bfHeap = allocator.NewHeap(src)
}

func initLocked() {
	src, err := brk.NewSource(reservationSize)
	if err != nil {
		lockedErr = fmt.Errorf("brkalloc: locked segment: %w", err)

		return
	}

	locked = concurrent.NewLocked(src)
}

func initNoLock() {
	src, err := brk.NewSource(reservationSize)
	if err != nil {
		noLockErr = fmt.Errorf("brkalloc: nolock segment: %w", err)

		return
	}

	noLock = concurrent.NewNoLock(src)
}

// AllocFF allocates size bytes from the single-threaded first-fit variant's
// segment, returning nil if size is 0 or the segment is exhausted.
func AllocFF(size uintptr) unsafe.Pointer {
	ffOnce.Do(initFF)
	if ffErr != nil {
		return nil
	}

	return ffHeap.AllocFirstFit(size)
}

// FreeFF returns a block previously obtained from AllocFF. Freeing nil is a
// no-op; freeing a pointer not obtained from AllocFF has undefined results.
func FreeFF(ptr unsafe.Pointer) {
	ffOnce.Do(initFF)
	if ffErr != nil {
		return
	}

	ffHeap.Free(ptr)
}

// AllocBF allocates size bytes from the single-threaded best-fit variant's
// segment, returning nil if size is 0 or the segment is exhausted.
func AllocBF(size uintptr) unsafe.Pointer {
	bfOnce.Do(initBF)
	if bfErr != nil {
		return nil
	}

	return bfHeap.AllocBestFit(size)
}

// FreeBF returns a block previously obtained from AllocBF.
func FreeBF(ptr unsafe.Pointer) {
	bfOnce.Do(initBF)
	if bfErr != nil {
		return
	}

	bfHeap.Free(ptr)
}

// AllocLocked allocates size bytes from the lock-guarded multi-threaded
// variant: one mutex serializes every Alloc/Free, including growth.
func AllocLocked(size uintptr) unsafe.Pointer {
	lockedOnce.Do(initLocked)
	if lockedErr != nil {
		return nil
	}

	return locked.Alloc(size)
}

// FreeLocked returns a block previously obtained from AllocLocked.
func FreeLocked(ptr unsafe.Pointer) {
	lockedOnce.Do(initLocked)
	if lockedErr != nil {
		return
	}

	locked.Free(ptr)
}

// AllocNoLock allocates size bytes from the lock-free-reclamation
// multi-threaded variant: the calling goroutine searches its own per-arena
// free list (draining the shared reclamation stack into it first) and only
// takes a lock around growth into the underlying segment.
func AllocNoLock(size uintptr) unsafe.Pointer {
	noLockOnce.Do(initNoLock)
	if noLockErr != nil {
		return nil
	}

	return noLock.Alloc(size)
}

// FreeNoLock pushes a block previously obtained from AllocNoLock onto the
// shared reclamation stack; it may be drained by a later AllocNoLock call on
// any goroutine, not necessarily the one that allocated it.
func FreeNoLock(ptr unsafe.Pointer) {
	noLockOnce.Do(initNoLock)
	if noLockErr != nil {
		return
	}

	noLock.Free(ptr)
}

// DataSegmentSizeFF reports how far the first-fit variant's simulated data
// segment has grown (heap_end - heap_start), in bytes, or 0 before first
// growth.
func DataSegmentSizeFF() uintptr {
	ffOnce.Do(initFF)
	if ffErr != nil {
		return 0
	}

	return ffHeap.DataSegmentSize()
}

// DataSegmentSizeBF is DataSegmentSizeFF's best-fit counterpart.
func DataSegmentSizeBF() uintptr {
	bfOnce.Do(initBF)
	if bfErr != nil {
		return 0
	}

	return bfHeap.DataSegmentSize()
}

// DataSegmentSizeLocked is DataSegmentSizeFF's locked-variant counterpart.
func DataSegmentSizeLocked() uintptr {
	lockedOnce.Do(initLocked)
	if lockedErr != nil {
		return 0
	}

	return locked.DataSegmentSize()
}

// DataSegmentSizeNoLock is DataSegmentSizeFF's lock-free-variant counterpart.
func DataSegmentSizeNoLock() uintptr {
	noLockOnce.Do(initNoLock)
	if noLockErr != nil {
		return 0
	}

	return noLock.DataSegmentSize()
}

// DataSegmentFreeSpaceSize reports spec.md §6's canonical bookkeeping query:
// the sum of block sizes currently on the canonical free list, which this
// module takes to be the locked variant's global list (SPEC_FULL.md §6
// resolves spec.md §9's open question this way). Reported value is advisory
// under concurrency.
//
// The lock-free variant's free memory is not reflected here — it lives in
// per-arena lists and on the reclamation stack instead. Callers that want
// that fuller, still-advisory picture should use
// concurrent.NoLock.FreeSpaceEstimate on their own NoLock instance, or the
// package-level FreeSpaceEstimateNoLock helper below.
func DataSegmentFreeSpaceSize() uintptr {
	lockedOnce.Do(initLocked)
	if lockedErr != nil {
		return 0
	}

	return locked.FreeSpace()
}

// FreeSpaceEstimateNoLock sums every per-arena free list plus the shared
// reclamation stack for the package-level lock-free variant. Not one of
// spec.md's 10 public operations; an additive diagnostic for callers who
// want the fuller picture spec.md's Design Notes "preferably" steer asks
// for, rather than the single canonical number DataSegmentFreeSpaceSize
// reports.
func FreeSpaceEstimateNoLock() uintptr {
	noLockOnce.Do(initNoLock)
	if noLockErr != nil {
		return 0
	}

	return noLock.FreeSpaceEstimate()
}
