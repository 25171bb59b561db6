// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package heap

// coalesceAndInsert implements the four-case boundary-tag merge from
// free: a newly freed block b is merged with whichever of its two
// physical neighbors are also free, in constant time, and the
// surviving block is (re)inserted into the free list. Exactly one
// insertFree call happens per invocation: if the previous neighbor
// absorbs b, that neighbor is detached and reinserted at the head.
//
// Grounded on the teacher's tryJoinFreeFrag (qmalloc.go), which walks
// the same next()/prev() boundary tags and detaches whichever neighbor
// turns out to be free; unlike tryJoinFreeFrag this runs unconditionally
// on every free rather than behind the JoinFree option, per this
// allocator's "no two physically adjacent free blocks" invariant.
func (h *Heap) coalesceAndInsert(b block) {
	hasPrev := block(h.heapFirst) != b
	hasNext := block(h.heapLast) != b

	var prev, next block
	prevFree, nextFree := false, false
	if hasPrev {
		prev = b.prev()
		prevFree = !prev.allocated()
	}
	if hasNext {
		next = b.next()
		nextFree = !next.allocated()
	}

	switch {
	case !prevFree && !nextFree:
		b.setHeader(b.size(), false)
		h.insertFree(b)

	case !prevFree && nextFree:
		h.detachFree(next)
		h.subOverhead(footerSize + headerSize)
		merged := b.size() + next.size()
		if block(h.heapLast) == next {
			h.heapLast = uintptr(b)
		}
		b.setHeader(merged, false)
		h.insertFree(b)

	case prevFree && !nextFree:
		h.detachFree(prev)
		h.subOverhead(footerSize + headerSize)
		merged := prev.size() + b.size()
		if block(h.heapLast) == b {
			h.heapLast = uintptr(prev)
		}
		prev.setHeader(merged, false)
		h.insertFree(prev)

	default: // prevFree && nextFree
		h.detachFree(prev)
		h.detachFree(next)
		h.subOverhead(2 * (footerSize + headerSize))
		merged := prev.size() + b.size() + next.size()
		if block(h.heapLast) == next {
			h.heapLast = uintptr(prev)
		}
		prev.setHeader(merged, false)
		h.insertFree(prev)
	}
}
