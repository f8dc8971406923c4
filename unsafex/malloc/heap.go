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
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/segalloc/segalloc/internal/ring"
)

// Heap is C7: the public allocate/free/reallocate/zero-allocate surface
// over a Region and a freeIndex. A Heap is not safe for concurrent use —
// spec.md §5 rules out internal locking entirely.
type Heap struct {
	region  *Region
	index   freeIndex
	variant Variant
	chunk   uint32

	tags *ring.Log[string]

	mallocs uint64
	frees   uint64
	extends uint64
}

// New builds a Heap. With no options it reserves 64MiB of address space
// up front, uses the single-list index, and extends by 4KiB chunks.
func New(opts ...Option) (*Heap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	bucketArrayWords := 0
	if cfg.variant == VariantSegregated {
		bucketArrayWords = numBuckets
	}

	region, err := newRegion(newReservedExtender(cfg.reserve), bucketArrayWords)
	if err != nil {
		return nil, err
	}

	var index freeIndex
	if cfg.variant == VariantSegregated {
		index = &segregatedIndex{base: region.base, arrayOff: region.bucketArrayOff}
	} else {
		index = &singleIndex{}
	}

	return &Heap{
		region:  region,
		index:   index,
		variant: cfg.variant,
		chunk:   cfg.resolvedChunk(),
		tags:    ring.NewLog[string](cfg.historyLen),
	}, nil
}

// maxRequest bounds Malloc's n so adjustedSize's uint32 arithmetic cannot
// wrap around; anything this large could never fit a 32-bit-offset region
// anyway.
const maxRequest = uint32(1)<<31 - 1

// Malloc is C7's allocate. n <= 0 is the documented no-op and returns nil.
func (h *Heap) Malloc(n int) []byte {
	if n <= 0 || uint64(n) > uint64(maxRequest) {
		return nil
	}
	asize := adjustedSize(uint32(n))

	if bp := h.findFit(asize); bp != 0 {
		bp = h.place(bp, asize)
		h.mallocs++
		return h.payload(bp, n)
	}

	want := asize
	if h.chunk > want {
		want = h.chunk
	}
	bp, ok := h.region.extend(growthSize(want))
	if !ok {
		return nil
	}
	h.extends++

	bp = h.coalesce(bp)
	h.index.insert(h.region.base, bp) // place removes bp before splitting it
	bp = h.place(bp, asize)
	h.mallocs++
	return h.payload(bp, n)
}

// Free is C7's free. A nil or empty slice is a documented no-op.
func (h *Heap) Free(p []byte) {
	if len(p) == 0 {
		return
	}
	base := h.region.base
	bp := h.offsetOf(p)
	size := blockSize(base, bp)
	setBlock(base, bp, size, false)
	q := h.coalesce(bp)
	h.index.insert(base, q)
	h.frees++
}

// Realloc is C7's reallocate, expressed over Malloc/Free and a copy, per
// spec.md §4.7. No in-place optimisation is attempted; a fresh block is
// always allocated, matching the "permitted but not required" wording.
func (h *Heap) Realloc(p []byte, n int) []byte {
	if n == 0 {
		h.Free(p)
		return nil
	}
	if len(p) == 0 {
		return h.Malloc(n)
	}
	q := h.Malloc(n)
	if q == nil {
		return nil
	}
	copy(q, p)
	h.Free(p)
	return q
}

// Calloc is C7's zero-allocate: nmemb*size with overflow detection,
// failing to nil without extending the region.
func (h *Heap) Calloc(nmemb, size int) []byte {
	if nmemb < 0 || size < 0 {
		return nil
	}
	total := uint64(nmemb) * uint64(size)
	if nmemb != 0 && total/uint64(nmemb) != uint64(size) {
		return nil // overflow
	}
	if total > uint64(^uint32(0)) {
		return nil // cannot be expressed as a block size
	}
	q := h.Malloc(int(total))
	if q == nil {
		return nil
	}
	clear(q)
	return q
}

// Stats reports the supplemented accounting spec.md §1 excludes from the
// checker's invariant scope but permits as ordinary bookkeeping.
type Stats struct {
	Mallocs    uint64
	Frees      uint64
	Extends    uint64
	RegionLow  uintptr
	RegionHigh uintptr
}

func (h *Heap) Stats() Stats {
	return Stats{
		Mallocs:    h.mallocs,
		Frees:      h.frees,
		Extends:    h.extends,
		RegionLow:  h.region.Low(),
		RegionHigh: h.region.High(),
	}
}

// payload turns a block offset into the n-byte slice the caller owns.
func (h *Heap) payload(bp uint32, n int) []byte {
	ptr := unsafe.Add(h.region.base, bp)
	return unsafe.Slice((*byte)(ptr), n)
}

// offsetOf recovers a block offset from a slice payload handed back to
// Free or Realloc. Undefined (per spec.md §7's UserError carve-out) if p
// did not originate from this Heap.
func (h *Heap) offsetOf(p []byte) uint32 {
	off := uintptr(unsafe.Pointer(&p[0])) - h.region.Low()
	return uint32(off)
}

// growthSize rounds a requested extension size up to mcache's pooled size
// class. mcache and this package's cache/mempool partition the same
// power-of-two space; borrowing mcache's rounding here means a Heap's
// extension sizes fall on the same boundaries the rest of the module's
// buffer pools already use, without this package importing mempool's
// classing table directly. The borrowed buffer is never retained.
func growthSize(requested uint32) uint32 {
	buf := mcache.Malloc(int(requested))
	n := uint32(cap(buf))
	mcache.Free(buf)
	if n < requested {
		return requested
	}
	return n
}
