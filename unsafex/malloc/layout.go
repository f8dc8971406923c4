/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package malloc implements a segregated-fits memory allocator over a
// single grow-only byte arena. Blocks carry boundary tags (a header and a
// footer word) so any block can find its left neighbor in O(1), which is
// what makes immediate coalescing on free cheap.
//
// Every block reference in this package — payload pointers, free-list
// links, region bounds — is a uint32 byte offset from the arena's base
// address, never a raw unsafe.Pointer. The arena's total size never
// exceeds 2^32 bytes, so the offset fits in one word; this is the same
// trick the region's C ancestor used to halve the size of a free-list
// link.
package malloc

import "unsafe"

const (
	// wordSize is the size of a header, footer, or link field.
	wordSize = 4
	// dwordSize is the double-word alignment unit: every block size is a
	// multiple of it.
	dwordSize = 8
	// minBlockSize is the smallest block that can hold a header, a
	// footer, and the two free-list link words.
	minBlockSize = 16

	allocBit uint32 = 0x1
	sizeMask uint32 = ^uint32(0x7)
)

// packHeader packs a size (already a multiple of 8) and an allocated bit
// into one header/footer word.
func packHeader(size uint32, alloc bool) uint32 {
	w := size
	if alloc {
		w |= allocBit
	}
	return w
}

func sizeOf(word uint32) uint32  { return word & sizeMask }
func allocOf(word uint32) bool   { return word&allocBit != 0 }

// readWord/writeWord are the only primitives that read or write header,
// footer and link words; every other component in this package goes
// through them. The only other offset-to-pointer conversion is
// Heap.payload, which builds the caller's slice.
func readWord(base unsafe.Pointer, off uint32) uint32 {
	return *(*uint32)(unsafe.Add(base, off))
}

func writeWord(base unsafe.Pointer, off uint32, v uint32) {
	*(*uint32)(unsafe.Add(base, off)) = v
}

// headerOff returns the offset of bp's header word.
func headerOff(bp uint32) uint32 { return bp - wordSize }

// blockSize reads the size of the block whose payload starts at bp.
func blockSize(base unsafe.Pointer, bp uint32) uint32 {
	return sizeOf(readWord(base, headerOff(bp)))
}

// blockAlloc reports whether the block at bp is allocated.
func blockAlloc(base unsafe.Pointer, bp uint32) bool {
	return allocOf(readWord(base, headerOff(bp)))
}

// footerOff returns the offset of bp's footer word. Undefined for the
// zero-sized epilogue, which has no footer.
func footerOff(base unsafe.Pointer, bp uint32) uint32 {
	return bp + blockSize(base, bp) - dwordSize
}

// nextOff returns the payload offset of bp's right neighbor.
func nextOff(base unsafe.Pointer, bp uint32) uint32 {
	return bp + blockSize(base, bp)
}

// prevOff returns the payload offset of bp's left neighbor, found via the
// boundary tag immediately preceding bp's own header.
func prevOff(base unsafe.Pointer, bp uint32) uint32 {
	prevFooter := readWord(base, bp-dwordSize)
	return bp - sizeOf(prevFooter)
}

// setBlock writes matching header and footer words for a block of the
// given size and allocation state. size == 0 is the epilogue sentinel and
// has no footer.
func setBlock(base unsafe.Pointer, bp uint32, size uint32, alloc bool) {
	w := packHeader(size, alloc)
	writeWord(base, headerOff(bp), w)
	if size > 0 {
		writeWord(base, bp+size-dwordSize, w)
	}
}

// adjustedSize rounds a requested payload size up to a block size that
// has room for a header, a footer, and 8-byte alignment, per spec: a =
// max(16, 8*ceil((n+8)/8)).
func adjustedSize(n uint32) uint32 {
	a := 8 * ((n + 8 + 7) / 8)
	if a < minBlockSize {
		a = minBlockSize
	}
	return a
}
