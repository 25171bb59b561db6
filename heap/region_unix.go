//go:build unix

// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package heap

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapRegion is a Region backed by a single anonymous mmap mapping,
// reserved once at construction time and grown by advancing a
// committed-length cursor inside it. Unused pages beyond the cursor
// are never touched, so the reservation costs address space, not
// resident memory — the same reserve-then-use shape
// internal/mmap/mmap_unix.go uses for a shared-memory-backed region,
// adapted here from a file-backed MAP_SHARED mapping to an anonymous
// MAP_PRIVATE one since this region has no backing file.
type MmapRegion struct {
	data      []byte
	committed uintptr
}

// NewMmapRegion reserves capacity bytes of address space for the
// region. It returns nil if the reservation fails.
func NewMmapRegion(capacity uintptr) *MmapRegion {
	if capacity == 0 {
		return nil
	}
	data, err := unix.Mmap(-1, 0, int(capacity),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil
	}
	return &MmapRegion{data: data}
}

// Grow implements Region.
func (r *MmapRegion) Grow(n uintptr) (uintptr, bool) {
	if n == 0 {
		return r.base() + r.committed, true
	}
	if r.committed+n > uintptr(len(r.data)) {
		return 0, false
	}
	base := r.base() + r.committed
	r.committed += n
	return base, true
}

// Close releases the reservation. It is not part of the Region
// interface: the allocator never shrinks or returns memory, so Close
// only matters to callers tearing the whole heap down.
func (r *MmapRegion) Close() error {
	return unix.Munmap(r.data)
}

func (r *MmapRegion) base() uintptr {
	return uintptr(unsafe.Pointer(&r.data[0]))
}
