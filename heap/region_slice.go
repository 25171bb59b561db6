// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package heap

import "unsafe"

// SliceRegion is a Region backed by a plain Go byte slice allocated up
// front with make, grown by advancing a committed-length cursor the
// same way MmapRegion does. It is the portable fallback used on
// non-unix targets and in tests, grounded on the teacher's own
// qm.mem []byte field (qmalloc.go) holding the whole arena in one
// Go-managed allocation.
type SliceRegion struct {
	mem       []byte
	committed uintptr
}

// NewSliceRegion allocates a region with room for at least capacity
// bytes. The backing slice is over-allocated and trimmed so that
// base() is always Alignment-aligned, the same guarantee a page-backed
// mmap region gets for free — Heap.Init relies on it to place the
// first block's payload on an aligned boundary with a fixed-size
// padding, the way mem_sbrk(ALIGNMENT-sizeof(block_t)) does in
// original_source/mm-explicit.c against a page-aligned heap driver.
func NewSliceRegion(capacity uintptr) *SliceRegion {
	if capacity == 0 {
		return nil
	}
	raw := make([]byte, capacity+Alignment)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	start := roundUp(addr)
	mem := raw[start-addr:]
	return &SliceRegion{mem: mem}
}

// Grow implements Region.
func (r *SliceRegion) Grow(n uintptr) (uintptr, bool) {
	if n == 0 {
		return r.base() + r.committed, true
	}
	if r.committed+n > uintptr(len(r.mem)) {
		return 0, false
	}
	base := r.base() + r.committed
	r.committed += n
	return base, true
}

func (r *SliceRegion) base() uintptr {
	return uintptr(unsafe.Pointer(&r.mem[0]))
}
