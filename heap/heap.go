// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package heap implements a dynamic memory allocator over a single,
// contiguous, monotonically growable byte region: an explicit
// doubly-linked free list with boundary tags, first-fit placement,
// splitting, and immediate coalescing.
package heap

import (
	"sync"
	"unsafe"
)

const NAME = "heap"

// Options encodes configuration flags for a Heap, modeled on the
// teacher's qmalloc.Options.
type Options uint32

const (
	// Debug turns on a trace log line for every facade call.
	Debug Options = 1 << iota
	// Checks turns on the CheckHeap consistency checker after every
	// facade call that mutates the heap.
	Checks
	// DumpStatsShort makes DumpStatus log only the usage summary
	// instead of also listing every allocated block.
	DumpStatsShort

	DefaultOptions = Checks
)

// Usage holds the allocator's memory usage statistics.
type Usage struct {
	Used        uint64 // total payload bytes allocated
	RealUsed    uint64 // Used plus header/footer overhead
	MaxRealUsed uint64
}

// Heap is the memory region and all of its bookkeeping: the explicit
// free list, the first/last physical block pointers, and usage
// statistics. The zero Heap is not usable; call Init first.
type Heap struct {
	options Options
	region  Region

	head      uintptr // free list head, 0 = empty
	heapFirst uintptr // 0 = empty
	heapLast  uintptr // 0 = empty
	freeCount uint64

	used Usage

	mu sync.Mutex
}

// Debug returns true if call tracing is turned on.
func (h *Heap) Debug() bool { return h.options&Debug != 0 }

// Checks returns true if the consistency checker runs after every
// facade call.
func (h *Heap) Checks() bool { return h.options&Checks != 0 }

func (h *Heap) lock()   { h.mu.Lock() }
func (h *Heap) unlock() { h.mu.Unlock() }

func (h *Heap) addUsed(size uint64) {
	h.used.Used += size
	h.used.RealUsed += size
	if h.used.MaxRealUsed < h.used.RealUsed {
		h.used.MaxRealUsed = h.used.RealUsed
	}
}

func (h *Heap) subUsed(size uint64) {
	h.used.Used -= size
	h.used.RealUsed -= size
}

func (h *Heap) addOverhead(n uintptr) {
	h.used.RealUsed += uint64(n)
	if h.used.MaxRealUsed < h.used.RealUsed {
		h.used.MaxRealUsed = h.used.RealUsed
	}
}

func (h *Heap) subOverhead(n uintptr) {
	h.used.RealUsed -= uint64(n)
}

// MUsage returns the current usage statistics.
func (h *Heap) MUsage() Usage { return h.used }

func (h *Heap) debugf(f string, a ...interface{}) {
	if h.Debug() {
		dbgf(f, a...)
	}
}

// Init reserves the alignment padding at the start of region and
// resets the heap to empty (no blocks, no free list). It returns
// false if region refuses to grow by the padding amount.
func (h *Heap) Init(region Region, options Options) bool {
	*h = Heap{options: options, region: region}
	padding := Alignment - headerSize
	if _, ok := region.Grow(padding); !ok {
		return false
	}
	h.addOverhead(padding)
	return true
}

// Available returns how many bytes are currently free for allocation,
// not counting per-block header/footer overhead.
func (h *Heap) Available() uint64 {
	var free uint64
	for f := h.head; f != 0; f = blockAt(f).links().next {
		free += uint64(blockAt(f).payloadCapacity())
	}
	return free
}

// Owns returns whether p falls inside the heap's physical block range.
// Behavior is undefined if p has already been freed.
func (h *Heap) Owns(p unsafe.Pointer) bool {
	if h.heapFirst == 0 {
		return false
	}
	addr := uintptr(p)
	return addr >= blockAt(h.heapFirst).payload() &&
		addr < block(h.heapLast).addr()+block(h.heapLast).size()
}

// findFit does a first-fit walk of the free list for a block of at
// least need bytes.
func (h *Heap) findFit(need word) (block, bool) {
	for f := h.head; f != 0; f = blockAt(f).links().next {
		b := blockAt(f)
		if b.size() >= need {
			return b, true
		}
	}
	return 0, false
}

// splitFit allocates exactly need bytes out of a free block b (already
// detached from the free list), splitting off and reinserting the
// remainder when it is large enough to stand on its own.
func (h *Heap) splitFit(b block, need word) block {
	if b.size() >= need+minBlockSize {
		rest := b.size() - need
		b.setHeader(need, true)
		tail := b.next()
		tail.setHeader(rest, false)
		if block(h.heapLast) == b {
			h.heapLast = uintptr(tail)
		}
		h.addOverhead(headerSize + footerSize)
		h.insertFree(tail)
		return b
	}
	b.setHeader(b.size(), true)
	return b
}

// growHeap extends the region by need bytes and installs a new
// allocated block there.
func (h *Heap) growHeap(need word) (block, bool) {
	base, ok := h.region.Grow(need)
	if !ok {
		return 0, false
	}
	b := blockAt(base)
	b.setHeader(need, true)
	if h.heapFirst == 0 {
		h.heapFirst = base
	}
	h.heapLast = base
	return b, true
}

// MallocUnsafe is the non-locking version of Malloc.
func (h *Heap) MallocUnsafe(n uintptr) unsafe.Pointer {
	need := blockSizeFor(n)

	if b, ok := h.findFit(need); ok {
		h.detachFree(b)
		b = h.splitFit(b, need)
		h.addUsed(uint64(b.payloadCapacity()))
		h.debugf("malloc reused block %#x size %d\n", b.addr(), b.size())
		if h.Checks() {
			h.assertConsistent()
		}
		return unsafe.Pointer(b.payload())
	}

	b, ok := h.growHeap(need)
	if !ok {
		return nil
	}
	h.addUsed(uint64(b.payloadCapacity()))
	h.addOverhead(headerSize + footerSize)
	h.debugf("malloc grew heap, new block %#x size %d\n", b.addr(), b.size())
	if h.Checks() {
		h.assertConsistent()
	}
	return unsafe.Pointer(b.payload())
}

// Malloc allocates n bytes and returns a pointer to the payload, or
// nil if the region cannot grow to satisfy the request.
func (h *Heap) Malloc(n uintptr) unsafe.Pointer {
	h.lock()
	p := h.MallocUnsafe(n)
	h.unlock()
	return p
}

// FreeUnsafe is the non-locking version of Free.
func (h *Heap) FreeUnsafe(p unsafe.Pointer) {
	if p == nil {
		WARN("free(nil) called\n")
		return
	}
	if !h.Owns(p) {
		PANIC("BUG: Free called with pointer %p outside heap area\n", p)
		return
	}
	b := blockFromPayload(uintptr(p))
	if !b.allocated() {
		PANIC("BUG: attempt to free already freed pointer %p\n", p)
		return
	}
	h.subUsed(uint64(b.payloadCapacity()))
	h.coalesceAndInsert(b)
	h.debugf("free block %#x\n", b.addr())
	if h.Checks() {
		h.assertConsistent()
	}
}

// Free releases the memory previously returned by Malloc/Realloc/
// Calloc. Free(nil) is a no-op.
func (h *Heap) Free(p unsafe.Pointer) {
	h.lock()
	h.FreeUnsafe(p)
	h.unlock()
}

// ReallocUnsafe is the non-locking version of Realloc.
func (h *Heap) ReallocUnsafe(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	if p == nil {
		return h.MallocUnsafe(n)
	}
	if n == 0 {
		h.FreeUnsafe(p)
		return nil
	}
	if !h.Owns(p) {
		PANIC("BUG: Realloc called with pointer %p outside heap area\n", p)
		return nil
	}
	old := blockFromPayload(uintptr(p))
	if !old.allocated() {
		PANIC("BUG: attempt to realloc already freed pointer %p\n", p)
		return nil
	}

	newP := h.MallocUnsafe(n)
	if newP == nil {
		// original remains valid, per spec: never free on failure.
		return nil
	}
	oldCap := old.payloadCapacity()
	copyLen := oldCap
	if n < copyLen {
		copyLen = n
	}
	copyBytes(newP, unsafe.Pointer(old.payload()), copyLen)
	h.FreeUnsafe(p)
	return newP
}

// Realloc grows or shrinks a previously allocated pointer to a new
// size, always by allocating fresh storage and copying. It returns
// the old value's contents under a new address, or nil on failure
// (p == nil behaves as Malloc, n == 0 behaves as Free). On failure the
// original allocation remains valid and is not freed.
func (h *Heap) Realloc(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	h.lock()
	res := h.ReallocUnsafe(p, n)
	h.unlock()
	return res
}

// CallocUnsafe is the non-locking version of Calloc.
func (h *Heap) CallocUnsafe(count, size uintptr) unsafe.Pointer {
	total, overflow := mulOverflows(count, size)
	if overflow {
		return nil
	}
	p := h.MallocUnsafe(total)
	if p == nil {
		return nil
	}
	zeroBytes(p, total)
	return p
}

// Calloc allocates count*size bytes and zeroes them. It returns nil on
// a count*size overflow or on allocation failure.
func (h *Heap) Calloc(count, size uintptr) unsafe.Pointer {
	h.lock()
	p := h.CallocUnsafe(count, size)
	h.unlock()
	return p
}

// mulOverflows reports whether a*b overflows a uintptr.
func mulOverflows(a, b uintptr) (uintptr, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	p := a * b
	return p, p/a != b
}

func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	d := unsafe.Slice((*byte)(dst), n)
	s := unsafe.Slice((*byte)(src), n)
	copy(d, s)
}

func zeroBytes(dst unsafe.Pointer, n uintptr) {
	d := unsafe.Slice((*byte)(dst), n)
	for i := range d {
		d[i] = 0
	}
}
