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

// coalesce is C4: bp names a block already marked free in its header and
// footer but not yet present in the index. It merges bp with whichever
// immediate neighbors are also free, removing any absorbed neighbor from
// the index first, and returns the payload offset of the surviving
// block. It never inserts — the caller does that (Heap.Free inserts the
// result directly; the post-extend allocate path inserts it and then
// hands it to place, which removes and splits it).
func (h *Heap) coalesce(bp uint32) uint32 {
	base := h.region.base

	prevFooter := readWord(base, bp-dwordSize)
	prevAlloc := allocOf(prevFooter)
	prevSize := sizeOf(prevFooter)

	size := blockSize(base, bp)
	nextBp := bp + size
	nextHeader := readWord(base, headerOff(nextBp))
	nextAlloc := allocOf(nextHeader)
	nextSize := sizeOf(nextHeader)

	switch {
	case prevAlloc && nextAlloc:
		return bp

	case prevAlloc && !nextAlloc:
		h.index.remove(base, nextBp)
		setBlock(base, bp, size+nextSize, false)
		return bp

	case !prevAlloc && nextAlloc:
		prevBp := bp - prevSize
		h.index.remove(base, prevBp)
		setBlock(base, prevBp, size+prevSize, false)
		return prevBp

	default: // both free
		prevBp := bp - prevSize
		h.index.remove(base, prevBp)
		h.index.remove(base, nextBp)
		setBlock(base, prevBp, size+prevSize+nextSize, false)
		return prevBp
	}
}
