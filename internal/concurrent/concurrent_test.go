package concurrent

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/arenabreak/brkalloc/internal/brk"
)

func newTestLocked(t *testing.T) *Locked {
	t.Helper()

	src, err := brk.NewSource(1 << 20)
	if err != nil {
		t.Fatalf("brk.NewSource: %v", err)
	}

	return NewLocked(src)
}

func newTestNoLock(t *testing.T, reservation uintptr) *NoLock {
	t.Helper()

	src, err := brk.NewSource(reservation)
	if err != nil {
		t.Fatalf("brk.NewSource: %v", err)
	}

	return NewNoLock(src)
}

func TestLockedBasicAllocFree(t *testing.T) {
	l := newTestLocked(t)

	p := l.Alloc(128)
	if p == nil {
		t.Fatal("Alloc(128) failed")
	}

	l.Free(p)

	if got := l.FreeSpace(); got != 128 {
		t.Errorf("FreeSpace() after freeing the only block = %d, want 128", got)
	}
}

func TestLockedZeroSize(t *testing.T) {
	l := newTestLocked(t)

	if p := l.Alloc(0); p != nil {
		t.Error("Alloc(0) should return nil")
	}
}

// TestLockedConcurrentAllocFree exercises spec.md §4.5's claim that one
// mutex around the whole operation is sufficient: many goroutines
// alloc-then-free concurrently and the allocator must never corrupt its own
// bookkeeping (checked by the race detector and by every Alloc succeeding).
func TestLockedConcurrentAllocFree(t *testing.T) {
	l := newTestLocked(t)

	const goroutines = 16

	const perGoroutine = 200

	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < perGoroutine; i++ {
				p := l.Alloc(64)
				if p == nil {
					t.Error("Alloc(64) failed under concurrency")

					return
				}

				l.Free(p)
			}
		}()
	}

	wg.Wait()
}

func TestNoLockBasicAllocFree(t *testing.T) {
	n := newTestNoLock(t, 1<<20)

	p := n.Alloc(128)
	if p == nil {
		t.Fatal("Alloc(128) failed")
	}

	n.Free(p)

	if got := n.FreeSpaceEstimate(); got != 128 {
		t.Errorf("FreeSpaceEstimate() = %d, want 128", got)
	}
}

func TestNoLockZeroSize(t *testing.T) {
	n := newTestNoLock(t, 1<<16)

	if p := n.Alloc(0); p != nil {
		t.Error("Alloc(0) should return nil")
	}
}

func TestNoLockDrainsReclaimOnNextAlloc(t *testing.T) {
	n := newTestNoLock(t, 1<<20)

	ptrs := make([]unsafe.Pointer, 10)
	for i := range ptrs {
		ptrs[i] = n.Alloc(64)
		if ptrs[i] == nil {
			t.Fatalf("alloc %d failed", i)
		}
	}

	for _, p := range ptrs {
		n.Free(p)
	}

	// All ten blocks should now sit on the reclamation stack: Free pushes
	// there, and no arena holds blocks between Alloc calls.
	if got := n.FreeSpaceEstimate(); got != 10*64 {
		t.Errorf("FreeSpaceEstimate() = %d, want %d", got, 10*64)
	}

	// The next allocation must be able to satisfy itself from the drained
	// reclamation stack rather than growing the segment.
	before := n.DataSegmentSize()

	p := n.Alloc(64)
	if p == nil {
		t.Fatal("alloc after drain failed")
	}

	if after := n.DataSegmentSize(); after != before {
		t.Errorf("alloc after drain grew the segment (%d -> %d); expected reuse", before, after)
	}
}

// TestS6CrossThreadFree mirrors spec.md §8 scenario S6: one goroutine
// allocates N payloads, a second goroutine frees all of them after a
// barrier, and the live-address bookkeeping must balance regardless of
// which goroutine performed the free.
func TestS6CrossThreadFree(t *testing.T) {
	const n = 20000

	na := newTestNoLock(t, 64<<20)

	ptrs := make([]unsafe.Pointer, n)

	var barrier sync.WaitGroup

	barrier.Add(1)

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := 0; i < n; i++ {
			p := na.Alloc(32)
			if p == nil {
				t.Errorf("alloc %d failed", i)

				return
			}

			ptrs[i] = p
		}

		barrier.Done()
	}()

	go func() {
		defer wg.Done()

		barrier.Wait()

		for i := 0; i < n; i++ {
			na.Free(ptrs[i])
		}
	}()

	wg.Wait()

	if got := na.FreeSpaceEstimate(); got != uintptr(n)*32 {
		t.Errorf("FreeSpaceEstimate() after cross-thread free = %d, want %d", got, uintptr(n)*32)
	}

	// A subsequent allocation on a third goroutine must be able to reuse
	// freed space rather than growing the segment from scratch.
	before := na.DataSegmentSize()

	if p := na.Alloc(32); p == nil {
		t.Fatal("alloc after cross-thread free failed")
	} else if after := na.DataSegmentSize(); after != before {
		t.Errorf("alloc after cross-thread free grew the segment (%d -> %d); expected reuse", before, after)
	}
}

func TestNoLockConcurrentAllocFree(t *testing.T) {
	n := newTestNoLock(t, 64<<20)

	const goroutines = 16

	const perGoroutine = 500

	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < perGoroutine; i++ {
				p := n.Alloc(48)
				if p == nil {
					t.Error("Alloc(48) failed under concurrency")

					return
				}

				n.Free(p)
			}
		}()
	}

	wg.Wait()
}
