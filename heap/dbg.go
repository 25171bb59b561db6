// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package heap

import (
	"fmt"

	"github.com/intuitivelabs/slog"
)

// DumpStatus writes the heap's usage statistics to Log at debug level,
// and, unless DumpStatsShort is set, follows with one line per
// allocated block. Grounded on the teacher's dumpStatus (qmalloc/dbg.go),
// trimmed to this allocator's single free list and plain block layout
// (no hash buckets, no canary fields to print).
func (h *Heap) DumpStatus() {
	const prefix = "heap_status "
	h.lock()
	defer h.unlock()

	Log.LLog(slog.LDBG, 1, prefix, "heap first=%#x last=%#x\n", h.heapFirst, h.heapLast)
	Log.LLog(slog.LDBG, 1, prefix, "used=%d, used+overhead=%d, free=%d\n",
		h.used.Used, h.used.RealUsed, h.Available())
	Log.LLog(slog.LDBG, 1, prefix, "max used (+overhead)=%d\n", h.used.MaxRealUsed)

	if h.options&DumpStatsShort != 0 || h.heapFirst == 0 {
		return
	}

	Log.LLog(slog.LDBG, 1, prefix, "dumping allocated blocks:\n")
	i := 0
	for addr := h.heapFirst; ; {
		b := blockAt(addr)
		if b.allocated() {
			Log.LLog(slog.LDBG, 1, prefix, "   %3d.    address=%#x size=%d\n",
				i, b.addr(), b.size())
		}
		i++
		if addr == h.heapLast {
			break
		}
		addr = uintptr(b.next())
	}
}

// CheckHeap walks the physical block chain and the free list and
// verifies the block and free-list invariants from §8 of the design:
// header/footer agreement, size alignment and minimums, no two adjacent
// free blocks, free-list membership matching the allocated bit, and the
// free-list length matching the tracked count. The physical walk
// follows block sizes from the first block until it reaches the last
// one; its end is not compared against the region's end. It returns
// the first violation found, or nil if the heap is consistent.
//
// Unlike the teacher's dumpStatus (a status dump, not a checker) or
// the original source's mm_checkheap ("so simple, it doesn't need a
// checker" — a no-op), this module takes the testing-aid branch spec.md
// §9 leaves open: a real walk, gated behind Options.Checks so it never
// runs on the hot path unless the caller asked for it.
func (h *Heap) CheckHeap() error {
	h.lock()
	defer h.unlock()
	return h.checkHeap()
}

// assertConsistent runs checkHeap and panics (via PANIC, so it is
// logged first) if it finds a violation. Called after every mutating
// facade call when Options.Checks is set.
func (h *Heap) assertConsistent() {
	if err := h.checkHeap(); err != nil {
		PANIC("%s\n", err)
	}
}

// checkHeap is the non-locking version, also used internally after
// every mutating facade call when Options.Checks is set.
func (h *Heap) checkHeap() error {
	if h.heapFirst == 0 {
		return nil
	}

	prevWasFree := false

	for addr := h.heapFirst; ; {
		b := blockAt(addr)
		size := b.size()

		if size%Alignment != 0 {
			return fmt.Errorf("heap: block %#x size %d not a multiple of %d", addr, size, Alignment)
		}
		if size < minBlockSize {
			return fmt.Errorf("heap: block %#x size %d below minimum %d", addr, size, minBlockSize)
		}
		if b.footer().size != size {
			return fmt.Errorf("heap: block %#x header size %d != footer size %d", addr, size, b.footer().size)
		}

		free := !b.allocated()
		if free && prevWasFree {
			return fmt.Errorf("heap: adjacent free blocks at/before %#x", addr)
		}
		prevWasFree = free

		if addr == h.heapLast {
			break
		}
		addr = uintptr(b.next())
	}

	freeInList := make(map[uintptr]bool)
	for f := h.head; f != 0; f = blockAt(f).links().next {
		if freeInList[f] {
			return fmt.Errorf("heap: free list cycle at %#x", f)
		}
		freeInList[f] = true
		if blockAt(f).allocated() {
			return fmt.Errorf("heap: allocated block %#x present in free list", f)
		}
	}

	for addr := h.heapFirst; ; {
		b := blockAt(addr)
		if !b.allocated() && !freeInList[addr] {
			return fmt.Errorf("heap: free block %#x missing from free list", addr)
		}
		if addr == h.heapLast {
			break
		}
		addr = uintptr(b.next())
	}

	if uint64(len(freeInList)) != h.freeCount {
		BUG("checkHeap: free list count %d != tracked count %d\n", len(freeInList), h.freeCount)
		return fmt.Errorf("heap: free list count %d != tracked count %d", len(freeInList), h.freeCount)
	}

	return nil
}
