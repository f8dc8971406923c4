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
	"math/bits"
	"unsafe"
)

const (
	// numBuckets is spec.md's 29 size classes.
	numBuckets = 29
	// exactBuckets covers exact even widths 4, 6, ..., 32 (15 buckets,
	// indices 0..14).
	exactBuckets = 15
	// pow2Buckets covers the doubling ranges from (32,64) up to
	// [2^18, inf) (14 buckets, indices 15..28).
	pow2Buckets = numBuckets - exactBuckets
)

// segregatedIndex is spec.md's Variant B. The 29 bucket heads live
// in-band at the very front of the region (arrayOff is always 0) so the
// checker can verify bucket membership by reading region bytes directly,
// the same way it verifies every other invariant.
type segregatedIndex struct {
	base     unsafe.Pointer
	arrayOff uint32
}

func (ix *segregatedIndex) headOff(i int) uint32 { return ix.arrayOff + uint32(i)*wordSize }

func (ix *segregatedIndex) getHead(i int) func() uint32 {
	return func() uint32 { return readWord(ix.base, ix.headOff(i)) }
}

func (ix *segregatedIndex) setHead(i int) func(uint32) {
	return func(v uint32) { writeWord(ix.base, ix.headOff(i), v) }
}

func (ix *segregatedIndex) insert(base unsafe.Pointer, bp uint32) {
	i := ix.bucketOf(blockSize(base, bp))
	spliceInsert(base, bp, ix.getHead(i), ix.setHead(i))
}

func (ix *segregatedIndex) remove(base unsafe.Pointer, bp uint32) {
	i := ix.bucketOf(blockSize(base, bp))
	spliceRemove(base, bp, ix.getHead(i), ix.setHead(i))
}

func (ix *segregatedIndex) bucketCount() int { return numBuckets }
func (ix *segregatedIndex) head(i int) uint32 {
	return readWord(ix.base, ix.headOff(i))
}

// bucketOf maps a block's total byte size to its bucket index, per
// spec.md §3: widths w=size/4 up to 32 words get one bucket per even
// width; above that, buckets double starting at w=64, clamped at 28.
//
// This mirrors original_source/mm-seglist.c's hashBlkSize/countOne
// exactly (countOne(w>>6) is bits.Len of the shifted value, clamped to
// pow2Buckets-1), which is the "intended semantics" spec.md §9 resolves
// the countOne edge case to.
func (ix *segregatedIndex) bucketOf(size uint32) int {
	return bucketIndex(size)
}

func bucketIndex(size uint32) int {
	w := size / wordSize
	if w <= 32 {
		return int((w - 4) / 2)
	}
	count := bits.Len32(w >> 6)
	if count > pow2Buckets-1 {
		count = pow2Buckets - 1
	}
	return exactBuckets + count
}
