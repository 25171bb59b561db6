//go:build !unix

// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package heap

// On non-unix targets there is no portable anonymous mmap primitive in
// golang.org/x/sys, so MmapRegion is unavailable the way
// internal/mmap/mmap_windows.go stubs out its unix-only Map/Unmap with
// ErrNotSupported. SliceRegion (region_slice.go) is the region to use
// here instead.
