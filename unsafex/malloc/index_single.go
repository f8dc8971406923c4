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

import "unsafe"

// singleIndex is spec.md's Variant A: one LIFO explicit free list shared
// by every block size. root is kept as a plain field rather than stored
// in-band, since nothing else needs to observe it independently of the
// Heap that owns it (unlike the segregated variant's bucket array, which
// the checker must be able to read directly).
type singleIndex struct {
	root uint32
}

func (ix *singleIndex) insert(base unsafe.Pointer, bp uint32) {
	spliceInsert(base, bp, func() uint32 { return ix.root }, func(v uint32) { ix.root = v })
}

func (ix *singleIndex) remove(base unsafe.Pointer, bp uint32) {
	spliceRemove(base, bp, func() uint32 { return ix.root }, func(v uint32) { ix.root = v })
}

func (ix *singleIndex) bucketOf(uint32) int { return 0 }
func (ix *singleIndex) bucketCount() int    { return 1 }
func (ix *singleIndex) head(int) uint32     { return ix.root }
