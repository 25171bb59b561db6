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

func TestWordAndAlignmentConstants(t *testing.T) {
	require.EqualValues(t, 8, wordSize)
	require.EqualValues(t, 16, Alignment)
	require.EqualValues(t, 8, headerSize)
	require.EqualValues(t, 8, footerSize)
	require.EqualValues(t, 32, minBlockSize)
}

func TestBlockSizeForRoundsUpAndClampsToMinimum(t *testing.T) {
	require.EqualValues(t, 48, blockSizeFor(24))
	require.EqualValues(t, 32, blockSizeFor(0))
	require.EqualValues(t, 32, blockSizeFor(8))
	require.EqualValues(t, 64, blockSizeFor(40))
}

func TestHeaderFooterAgree(t *testing.T) {
	h := newTestHeap(t, 4096)
	p := h.Malloc(40)
	require.NotNil(t, p)

	b := blockFromPayload(uintptr(p))
	require.Equal(t, b.size(), b.footer().size)
	require.True(t, b.allocated())
}

func TestNextPrevRoundTrip(t *testing.T) {
	h := newTestHeap(t, 4096)
	a := h.Malloc(16)
	b := h.Malloc(16)
	require.NotNil(t, a)
	require.NotNil(t, b)

	ba := blockFromPayload(uintptr(a))
	bb := blockFromPayload(uintptr(b))

	require.Equal(t, bb.addr(), ba.next().addr())
	require.Equal(t, ba.addr(), bb.prev().addr())
}
