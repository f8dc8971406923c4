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

package malloc

import (
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// Extender is the region-extension collaborator spec.md treats as an
// external primitive: something that can hand back a fixed amount of
// freshly addressable memory at a region's tail. It is not expected to
// shrink, move, or reuse what it has already handed out.
//
// The default implementation, reservedExtender, reserves its entire
// backing slab up front (the way a real allocator reserves address space
// with mmap(PROT_NONE) and commits into it later); Region just advances a
// high-water mark within it. Address stability falls out for free: the
// backing array never moves for the lifetime of the Heap.
type Extender interface {
	// bytes returns the full backing slab. Its length is the hard cap on
	// how far the region can ever extend.
	bytes() []byte
}

type reservedExtender struct {
	buf []byte
}

// newReservedExtender reserves capacity bytes up front via dirtmake,
// mirroring bufiox/protocol-thrift's use of the same package to grow a
// buffer without paying for a zero-fill the caller is about to overwrite
// anyway — every byte of this slab is overwritten by a header, a footer,
// or a prologue/epilogue word before the allocator ever reads it.
func newReservedExtender(capacity int) Extender {
	return &reservedExtender{buf: dirtmake.Bytes(capacity, capacity)}
}

func (e *reservedExtender) bytes() []byte { return e.buf }

// Region is the C2 adapter: it owns the arena's base address, the
// prologue/epilogue sentinels, and (for the segregated index) the
// in-band bucket-head array, and exposes the one primitive every other
// component needs — extend.
type Region struct {
	buf      []byte
	base     unsafe.Pointer
	reserved uint32

	bucketArrayOff uint32 // 0; length is bucketArrayWords*wordSize, may be empty
	prologueOff    uint32 // payload offset of the prologue sentinel
	tailOff        uint32 // offset of the current epilogue header
	used           uint32 // committed length, i.e. tailOff + wordSize
}

// newRegion lays out the fixed header (bucket array, alignment padding
// where needed, prologue, epilogue) at the front of ext's backing slab.
// bucketArrayWords is 0 for the single-list variant.
func newRegion(ext Extender, bucketArrayWords int) (*Region, error) {
	buf := ext.bytes()
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: reserve must be > 0", ErrReserveTooSmall)
	}
	base := unsafe.Pointer(&buf[0])

	off := uint32(0)
	bucketArrayOff := off
	for i := 0; i < bucketArrayWords; i++ {
		writeWord(base, off, 0)
		off += wordSize
	}

	// padding word, keeps the prologue payload 8-byte aligned. An odd-length
	// bucket array already leaves the prologue header on a 4-mod-8 offset.
	if off%dwordSize == 0 {
		writeWord(base, off, 0)
		off += wordSize
	}

	prologueHeaderOff := off
	writeWord(base, prologueHeaderOff, packHeader(dwordSize, true))
	off += wordSize
	writeWord(base, off, packHeader(dwordSize, true)) // prologue footer
	off += wordSize

	epilogueOff := off
	writeWord(base, epilogueOff, packHeader(0, true))

	minReserve := uint32(epilogueOff) + wordSize
	if uint32(len(buf)) < minReserve {
		return nil, fmt.Errorf("%w for fixed header: need >= %d bytes, got %d", ErrReserveTooSmall, minReserve, len(buf))
	}

	return &Region{
		buf:            buf,
		base:           base,
		reserved:       uint32(len(buf)),
		bucketArrayOff: bucketArrayOff,
		prologueOff:    prologueHeaderOff + wordSize,
		tailOff:        epilogueOff,
		used:           epilogueOff + wordSize,
	}, nil
}

// firstBlock returns the payload offset of the block immediately after
// the prologue — the starting point for a heap walk.
func (r *Region) firstBlock() uint32 {
	return nextOff(r.base, r.prologueOff)
}

// isEpilogue reports whether bp is the zero-sized tail sentinel.
func (r *Region) isEpilogue(bp uint32) bool {
	return sizeOf(readWord(r.base, headerOff(bp))) == 0
}

// Low and High report the region's current address bounds, mirroring the
// external region_low()/region_high() queries of spec.md §6.
func (r *Region) Low() uintptr  { return uintptr(r.base) }
func (r *Region) High() uintptr { return uintptr(r.base) + uintptr(r.used) }

// extend grows the committed region by at least bytes (rounded up to an
// even number of words, per spec.md §4.2), writes a fresh free block
// header/footer over the newly committed range, and moves the epilogue
// to the new tail. The returned block is uncoalesced — the caller (the
// coalescer) is responsible for merging it with the previous tail block
// if that block was free.
func (r *Region) extend(bytes uint32) (uint32, bool) {
	words := bytes / wordSize
	if bytes%wordSize != 0 {
		words++
	}
	if words%2 != 0 {
		words++
	}
	bytes = words * wordSize

	blockHeaderOff := r.tailOff
	newEpilogueOff := blockHeaderOff + bytes
	if uint32(newEpilogueOff)+wordSize > r.reserved {
		return 0, false
	}

	bp := blockHeaderOff + wordSize
	setBlock(r.base, bp, bytes, false)
	writeWord(r.base, newEpilogueOff, packHeader(0, true))

	r.tailOff = newEpilogueOff
	r.used = newEpilogueOff + wordSize
	return bp, true
}
