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

	"github.com/segalloc/segalloc/cache/mempool"
	"github.com/segalloc/segalloc/internal/hack"
)

// Check is C8: the optional caller-invoked invariant walk of spec.md §8.
// tag identifies the call site (a source line, a test step name). On
// success Check is silent; on any invariant violation it panics, per
// spec.md §7's InvariantViolation being unrecoverable by definition.
//
// Check never calls Malloc or Free on h — walk's scratch bookkeeping goes
// through cache/mempool instead, so a checker run cannot itself corrupt
// the state it is trying to verify.
func (h *Heap) Check(tag string) {
	h.tags.Push(tag)
	if err := h.walk(); err != nil {
		panic(fmt.Sprintf("segalloc: invariant violation at %q: %v (recent checks: %s)", tag, err, h.recentTags()))
	}
}

// offsetScratch is a growable list of uint32 block offsets backed by a
// cache/mempool buffer instead of a plain Go slice, so a heap walk never
// triggers a runtime allocation of its own.
type offsetScratch struct {
	buf []byte
	n   int
}

func newOffsetScratch() *offsetScratch {
	return &offsetScratch{buf: mempool.Malloc(64 * wordSize)}
}

func (s *offsetScratch) push(v uint32) {
	need := (s.n + 1) * wordSize
	if need > len(s.buf) {
		grown := mempool.Malloc(len(s.buf) * 2)
		copy(grown, s.buf[:s.n*wordSize])
		mempool.Free(s.buf)
		s.buf = grown
	}
	writeWord(unsafe.Pointer(&s.buf[0]), uint32(s.n*wordSize), v)
	s.n++
}

func (s *offsetScratch) at(i int) uint32 {
	return readWord(unsafe.Pointer(&s.buf[0]), uint32(i*wordSize))
}

func (s *offsetScratch) len() int { return s.n }

func (s *offsetScratch) contains(v uint32) bool {
	for i := 0; i < s.n; i++ {
		if s.at(i) == v {
			return true
		}
	}
	return false
}

func (s *offsetScratch) release() { mempool.Free(s.buf) }

// walk performs the two-pass cross-check spec.md §8 describes: one pass
// over the region in address order, one pass over every free-list bucket,
// then a comparison of what each pass found.
func (h *Heap) walk() error {
	base := h.region.base
	low := uint32(0)
	high := h.region.used

	regionFree := newOffsetScratch()
	defer regionFree.release()

	// Pass 1: walk blocks in address order from the first block after the
	// prologue up to (not including) the epilogue.
	var total uint32
	prevWasFree := false
	for bp := h.region.firstBlock(); !h.region.isEpilogue(bp); bp = nextOff(base, bp) {
		header := readWord(base, headerOff(bp))
		footer := readWord(base, footerOff(base, bp))
		if header != footer {
			return fmt.Errorf("block at offset %d: header %#x != footer %#x", bp, header, footer)
		}
		size := sizeOf(header)
		alloc := allocOf(header)
		if size%dwordSize != 0 || size < minBlockSize {
			return fmt.Errorf("block at offset %d: invalid size %d", bp, size)
		}
		if !alloc {
			if prevWasFree {
				return fmt.Errorf("block at offset %d: adjacent free block not coalesced", bp)
			}
			regionFree.push(bp)
		}
		prevWasFree = !alloc
		total += size
	}
	firstBp := h.region.firstBlock()
	if span := h.region.tailOff - headerOff(firstBp); span != total {
		return fmt.Errorf("sum of block sizes %d != committed span %d", total, span)
	}

	// Pass 2: walk every free-list bucket.
	indexFree := newOffsetScratch()
	defer indexFree.release()

	for i := 0; i < h.index.bucketCount(); i++ {
		var prev uint32
		for bp := h.index.head(i); bp != 0; bp = linkNext(base, bp) {
			if blockAlloc(base, bp) {
				return fmt.Errorf("bucket %d: block at offset %d is marked allocated", i, bp)
			}
			if bp <= low || bp >= high {
				return fmt.Errorf("bucket %d: link %d falls outside region bounds", i, bp)
			}
			if want := h.index.bucketOf(blockSize(base, bp)); want != i {
				return fmt.Errorf("block at offset %d: belongs in bucket %d, found in bucket %d", bp, want, i)
			}
			if linkPrev(base, bp) != prev {
				return fmt.Errorf("block at offset %d: prev link %d != expected %d", bp, linkPrev(base, bp), prev)
			}
			indexFree.push(bp)
			prev = bp
		}
	}

	if indexFree.len() != regionFree.len() {
		return fmt.Errorf("free block count mismatch: region walk found %d, index walk found %d", regionFree.len(), indexFree.len())
	}
	for i := 0; i < regionFree.len(); i++ {
		if !indexFree.contains(regionFree.at(i)) {
			return fmt.Errorf("block at offset %d is free by region walk but absent from its free list", regionFree.at(i))
		}
	}

	return nil
}

// recentTags renders the checker's tag history for a panic message, oldest
// first. The concatenation buffer comes from cache/mempool for the same
// reason walk's scratch does; the final conversion to string is the
// zero-copy cast internal/hack provides everywhere else in this module.
func (h *Heap) recentTags() string {
	scratch := mempool.Malloc(256)
	out := scratch[:0]
	first := true
	h.tags.Do(func(tag string) {
		if !first {
			out = append(out, ", "...)
		}
		first = false
		out = append(out, tag...)
	})
	defer mempool.Free(scratch)
	return hack.ByteSliceToString(out)
}
