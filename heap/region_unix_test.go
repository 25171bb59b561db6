//go:build unix

// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMmapRegionGrowIsContiguousAndAligned(t *testing.T) {
	r := NewMmapRegion(4096)
	require.NotNil(t, r)
	defer r.Close()

	require.Zero(t, r.base()%Alignment)

	b1, ok := r.Grow(16)
	require.True(t, ok)
	b2, ok := r.Grow(32)
	require.True(t, ok)
	require.Equal(t, b1+16, b2)
}

func TestMmapRegionExhaustion(t *testing.T) {
	r := NewMmapRegion(64)
	require.NotNil(t, r)
	defer r.Close()

	_, ok := r.Grow(uintptr(len(r.data)))
	require.True(t, ok)

	_, ok = r.Grow(1)
	require.False(t, ok)
}

func TestMmapRegionUsableWithHeap(t *testing.T) {
	r := NewMmapRegion(4096)
	require.NotNil(t, r)
	defer r.Close()

	h := &Heap{}
	require.True(t, h.Init(r, DefaultOptions))

	p := h.Malloc(24)
	require.NotNil(t, p)
	require.True(t, isAligned(p))
	h.Free(p)
	require.NoError(t, h.CheckHeap())
}
