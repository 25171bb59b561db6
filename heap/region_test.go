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

func TestSliceRegionGrowIsContiguousAndAligned(t *testing.T) {
	r := NewSliceRegion(256)
	require.NotNil(t, r)
	require.Zero(t, r.base()%Alignment)

	b1, ok := r.Grow(16)
	require.True(t, ok)
	require.Equal(t, r.base(), b1)

	b2, ok := r.Grow(32)
	require.True(t, ok)
	require.Equal(t, b1+16, b2)
}

func TestSliceRegionExhaustion(t *testing.T) {
	r := NewSliceRegion(32)
	require.NotNil(t, r)

	total := uintptr(len(r.mem))
	_, ok := r.Grow(total)
	require.True(t, ok)

	_, ok = r.Grow(1)
	require.False(t, ok)
}

func TestSliceRegionGrowZeroIsQuery(t *testing.T) {
	r := NewSliceRegion(64)
	require.NotNil(t, r)

	before, ok := r.Grow(0)
	require.True(t, ok)

	_, ok = r.Grow(8)
	require.True(t, ok)

	after, ok := r.Grow(0)
	require.True(t, ok)
	require.Equal(t, before+8, after)
}

func TestNewSliceRegionZeroCapacity(t *testing.T) {
	require.Nil(t, NewSliceRegion(0))
}
