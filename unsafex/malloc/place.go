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

// place is C6: carve asize bytes of allocated block out of the free
// block bp (of size c >= asize), reinserting any remainder that is big
// enough to be its own block. Always removes bp from the index first —
// place never acts on a block still linked into a free list.
func (h *Heap) place(bp uint32, asize uint32) uint32 {
	base := h.region.base
	c := blockSize(base, bp)

	h.index.remove(base, bp)

	if c-asize >= minBlockSize {
		setBlock(base, bp, asize, true)

		remBp := bp + asize
		setBlock(base, remBp, c-asize, false)
		h.index.insert(base, remBp)

		return bp
	}

	// Remainder too small to stand on its own; the allocated block
	// absorbs it as internal fragmentation.
	setBlock(base, bp, c, true)
	return bp
}
