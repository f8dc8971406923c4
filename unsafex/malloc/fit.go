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

// findFit is C5: given an already-aligned block size, it scans the index
// starting at bucketOf(asize) and advances to higher buckets until it
// finds a block of sufficient size, or exhausts every bucket. Within a
// bucket the scan is head-to-tail, i.e. most-recently-freed first, since
// insert is LIFO. Returns 0 (no valid free-block offset) on a miss.
func (h *Heap) findFit(asize uint32) uint32 {
	base := h.region.base
	start := h.index.bucketOf(asize)
	for i := start; i < h.index.bucketCount(); i++ {
		for bp := h.index.head(i); bp != 0; bp = linkNext(base, bp) {
			if blockSize(base, bp) >= asize {
				return bp
			}
		}
	}
	return 0
}
