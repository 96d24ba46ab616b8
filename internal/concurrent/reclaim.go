package concurrent

import (
	"sync/atomic"

	"github.com/arenabreak/brkalloc/internal/block"
)

// reclaimStack is the process-wide lock-free LIFO of spec.md §4.6: any
// thread may push a freed block here, and a later Alloc on any thread drains
// it. It is intrusive — a block's own Next field is the stack link, exactly
// as spec.md's Data Model describes, rather than a wrapper node.
//
// Grounded on the teacher's internal/stdlib/collections.LockFreeStack[T]
// (atomic.Pointer[StackNode[T]] with a CAS push/pop loop), adapted from a
// generic wrapper-node stack to this intrusive one; the push/pop shape is
// otherwise identical to original_source/project2/my_malloc/my_malloc.c's
// reclaim_push/reclaim_pop (there built on
// __sync_bool_compare_and_swap).
//
// ABA is tolerated per spec.md §5: a block that is pushed, popped and
// pushed again cannot corrupt the stack, because whoever popped it first
// already owns it exclusively before any reuse — the CAS only ever compares
// head identity, never a generation counter.
type reclaimStack struct {
	head atomic.Pointer[block.Header]

	// total is the running sum of Size across every block currently on the
	// stack, maintained alongside push/pop. FreeSpaceEstimate reads this
	// instead of walking the chain: a walk following each node's Next field
	// would race pop's unsynchronized old.Next = nil on a node some other
	// goroutine is concurrently unlinking, which go test -race flags as a
	// genuine data race, not mere staleness.
	total atomic.Int64
}

// push publishes b onto the stack with release semantics: the write to
// b.Next happens-before the CAS that makes b visible as the new head.
func (s *reclaimStack) push(b *block.Header) {
	b.Free = true
	size := b.Size

	for {
		old := s.head.Load()
		b.Next = old

		if s.head.CompareAndSwap(old, b) {
			s.total.Add(int64(size))

			return
		}
	}
}

// pushAll pushes every block in a chain — already linked through Next in the
// order the caller held them — onto the stack, one push per block. Used to
// return an entire arena's free list to the shared stack at once.
func (s *reclaimStack) pushAll(chain *block.Header) {
	for chain != nil {
		next := chain.Next
		s.push(chain)
		chain = next
	}
}

// pop removes and returns the top of the stack, or nil if it is empty. The
// acquire load in CompareAndSwap's failure-free path ensures the popper
// observes the pusher's write to b.Next.
func (s *reclaimStack) pop() *block.Header {
	for {
		old := s.head.Load()
		if old == nil {
			return nil
		}

		next := old.Next

		if s.head.CompareAndSwap(old, next) {
			old.Next = nil
			s.total.Add(-int64(old.Size))

			return old
		}
	}
}

// drainTo pops up to max blocks off the stack and inserts each into list,
// stopping early once the stack is empty. Returns the number drained.
func (s *reclaimStack) drainTo(list listInserter, max int) int {
	n := 0

	for ; n < max; n++ {
		b := s.pop()
		if b == nil {
			break
		}

		list.Insert(b)
	}

	return n
}

// TotalSize returns the running sum of block sizes currently on the stack.
// Advisory under concurrency — a push or pop may land between the load here
// and the caller using the value — but never a data race: it is a single
// atomic load, not a walk over nodes another goroutine may be unlinking.
func (s *reclaimStack) TotalSize() uintptr {
	return uintptr(s.total.Load())
}

// listInserter is the minimal surface drainTo needs; satisfied by
// *freelist.List.
type listInserter interface {
	Insert(b *block.Header)
}
