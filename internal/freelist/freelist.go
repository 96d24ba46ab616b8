// Package freelist implements the address-ordered singly linked free list
// spec.md §4.2 describes: insertion, removal, first-fit/best-fit search and
// forward-only neighbour coalescing, parameterised over whichever head a
// caller owns.
//
// Grounded on original_source/project2/my_malloc/my_malloc.c's
// insert_free_sorted_list/remove_from_list/coalesce_around_list, which take
// a BlockHeader** head for exactly this reason: the single-threaded
// allocator, the lock-guarded global allocator and each per-arena list in
// the lock-free variant all reuse the same four operations against
// different heads.
package freelist

import "github.com/arenabreak/brkalloc/internal/block"

// List is an address-ordered singly linked chain of free blocks. The zero
// value is an empty list ready to use.
type List struct {
	head *block.Header
}

// Head returns the first block on the list, or nil if empty.
func (l *List) Head() *block.Header { return l.head }

// Empty reports whether the list holds no blocks.
func (l *List) Empty() bool { return l.head == nil }

// Insert places b into the list in address order, then runs the coalescing
// passes spec.md §4.2 requires: first around b itself (absorbing its
// physical successor if it is also free and on this list), then around the
// node b was linked after (which may now be physically adjacent to b).
func (l *List) Insert(b *block.Header) {
	b.Free = true

	if l.head == nil || block.Addr(b) < block.Addr(l.head) {
		b.Next = l.head
		l.head = b
		l.coalesce(b)

		return
	}

	pred := l.head
	for pred.Next != nil && block.Addr(pred.Next) < block.Addr(b) {
		pred = pred.Next
	}

	b.Next = pred.Next
	pred.Next = b

	l.coalesce(b)
	l.coalesce(pred)
}

// Remove unlinks b from the list and clears b.Next. b must currently be on
// the list; behavior is undefined otherwise.
func (l *List) Remove(b *block.Header) {
	if l.head == b {
		l.head = b.Next
		b.Next = nil

		return
	}

	for p := l.head; p != nil; p = p.Next {
		if p.Next == b {
			p.Next = b.Next
			b.Next = nil

			return
		}
	}
}

// coalesce absorbs b's immediate physical successor into b for as long as
// the successor is b.Next on this list — forward-only, per spec.md §4.2.
func (l *List) coalesce(b *block.Header) {
	for b.Next != nil && block.End(b) == block.Addr(b.Next) {
		n := b.Next
		b.Size += block.HeaderSize + n.Size
		b.Next = n.Next
	}
}

// SearchFirstFit returns the first block whose size is at least need, or
// nil if none fits.
func (l *List) SearchFirstFit(need uintptr) *block.Header {
	for b := l.head; b != nil; b = b.Next {
		if b.Size >= need {
			return b
		}
	}

	return nil
}

// SearchBestFit returns the smallest block whose size is at least need,
// ties broken by first occurrence, shortcutting on an exact match.
func (l *List) SearchBestFit(need uintptr) *block.Header {
	var best *block.Header

	bestSize := ^uintptr(0)

	for b := l.head; b != nil; b = b.Next {
		if b.Size >= need && b.Size < bestSize {
			best = b
			bestSize = b.Size

			if bestSize == need {
				break
			}
		}
	}

	return best
}

// FreeSpace sums the size of every block currently on the list.
func (l *List) FreeSpace() uintptr {
	var total uintptr
	for b := l.head; b != nil; b = b.Next {
		total += b.Size
	}

	return total
}

// Walk calls fn for every block on the list in address order.
func (l *List) Walk(fn func(*block.Header)) {
	for b := l.head; b != nil; b = b.Next {
		fn(b)
	}
}

// Drain detaches every block currently on the list and returns the chain
// head, leaving the list empty. The returned blocks stay linked through each
// other's Next field in the same order they held on the list.
func (l *List) Drain() *block.Header {
	h := l.head
	l.head = nil

	return h
}

// minSplitRemainder is the smallest remainder Split will carve off: a
// header plus the smallest aligned payload, per spec.md §4.3.
const minSplitRemainder = block.HeaderSize + 8

// Split carves a need-byte prefix out of b (already removed from every free
// list and earmarked for a caller) and, if the remainder would be at least
// minSplitRemainder bytes, turns it into a new free block and Inserts it
// into into, the free list the caller wants fragments to land on. into is
// always the same list b was drawn from — splitting never leaks a fragment
// to another arena's list.
func Split(into *List, b *block.Header, need uintptr) {
	if b.Size < need+minSplitRemainder {
		return
	}

	remainderSize := b.Size - need - block.HeaderSize
	tailAddr := uintptr(block.HeaderToPayload(b)) + need
	tail := block.FromAddr(tailAddr)
	tail.Size = remainderSize
	tail.Free = true
	tail.Next = nil

	b.Size = need

	into.Insert(tail)
}
