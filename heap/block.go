// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package heap

import "unsafe"

// a word is the machine's natural pointer-sized integer.
type word = uintptr

const wordSize = unsafe.Sizeof(word(0))

// Alignment is the byte boundary every payload address returned by the
// heap is aligned to. It must stay 2*wordSize: the low bit of a block's
// size is free to carry the allocated flag only because every size is
// a multiple of it.
const Alignment = 2 * wordSize

const (
	headerSize = wordSize
	footerSize = wordSize
	linksSize  = 2 * wordSize // prev/next free-list pointers
)

// minBlockSize is computed once from the target's pointer size, never
// hard-coded: a free block must have room for header, footer and both
// free-list links.
var minBlockSize = roundUp(headerSize + linksSize + footerSize)

const allocBit = word(1)

// roundUp rounds size up to the next Alignment multiple.
func roundUp(size word) word {
	return (size + (Alignment - 1)) &^ (Alignment - 1)
}

// blockHeader sits at a block's base. It packs the block's total size
// (header+payload+footer, in bytes) into the high bits and the
// allocated flag into the low bit.
type blockHeader struct {
	meta word
}

// blockFooter duplicates the block's size so the previous physical
// block can be located in O(1) from the following block's base (the
// boundary tag).
type blockFooter struct {
	size word
}

// freeLinks overlays the first two payload words of a free block. It is
// only a valid interpretation of those bytes while the block is free;
// once allocated the same words become user payload and must not be
// read through this type.
type freeLinks struct {
	prev uintptr
	next uintptr
}

// block is a handle to a block's base address. It never owns memory;
// it is a thin, tagged view over bytes living inside a Heap's region,
// the same way qmFrag/qmFragEnd alias the same physical words under
// frag_common.go's addr/end/next/prev helpers.
type block uintptr

func blockAt(addr uintptr) block { return block(addr) }

// blockFromPayload recovers a block handle from a payload address
// previously handed to a caller.
func blockFromPayload(p uintptr) block { return block(p - headerSize) }

func (b block) addr() uintptr { return uintptr(b) }

func (b block) header() *blockHeader {
	return (*blockHeader)(unsafe.Pointer(uintptr(b)))
}

func (b block) size() word {
	return b.header().meta &^ allocBit
}

func (b block) allocated() bool {
	return b.header().meta&allocBit != 0
}

// setHeader writes both the header and the footer for b. size must
// already be Alignment-aligned.
func (b block) setHeader(size word, allocated bool) {
	meta := size
	if allocated {
		meta |= allocBit
	}
	b.header().meta = meta
	b.footer().size = size
}

func (b block) footer() *blockFooter {
	off := uintptr(b) + b.size() - footerSize
	return (*blockFooter)(unsafe.Pointer(off))
}

// payload returns the address of the first usable byte of b.
func (b block) payload() uintptr {
	return uintptr(b) + headerSize
}

// payloadCapacity returns how many user bytes b's payload area holds.
func (b block) payloadCapacity() word {
	return b.size() - headerSize - footerSize
}

// links returns the free-list link slots living in b's payload. Only
// meaningful while b is free.
func (b block) links() *freeLinks {
	return (*freeLinks)(unsafe.Pointer(b.payload()))
}

// next returns the block immediately following b in the heap area.
// Caller must ensure b is not the last physical block.
func (b block) next() block {
	return block(uintptr(b) + b.size())
}

// prevFooter returns the boundary tag of the block immediately
// preceding b. Caller must ensure b is not the first physical block.
func (b block) prevFooter() *blockFooter {
	return (*blockFooter)(unsafe.Pointer(uintptr(b) - footerSize))
}

// prev returns the block immediately preceding b, found in O(1) via
// the boundary tag stored in its footer.
func (b block) prev() block {
	prevSize := b.prevFooter().size
	return block(uintptr(b) - prevSize)
}

// blockSizeFor returns the total block size needed to satisfy a
// request for n payload bytes, rounded up to Alignment and clamped to
// minBlockSize.
func blockSizeFor(n word) word {
	need := roundUp(headerSize + n + footerSize)
	if need < minBlockSize {
		need = minBlockSize
	}
	return need
}
