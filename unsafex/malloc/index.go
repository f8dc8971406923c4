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

// freeIndex is the C3 free-list index. Two implementations exist —
// singleIndex (spec.md Variant A) and segregatedIndex (Variant B) — and a
// Heap picks one at construction via Option.
//
// insert/remove never touch the allocated bit; the caller (coalescer,
// placer, Heap.Free) owns that transition.
type freeIndex interface {
	insert(base unsafe.Pointer, bp uint32)
	remove(base unsafe.Pointer, bp uint32)

	// bucketOf, bucketCount and head together drive the C5 fit search
	// and the C8 checker's list walk. singleIndex has exactly one
	// bucket; segregatedIndex has 29.
	bucketOf(size uint32) int
	bucketCount() int
	head(i int) uint32
}

func linkPrev(base unsafe.Pointer, bp uint32) uint32 { return readWord(base, bp) }
func linkNext(base unsafe.Pointer, bp uint32) uint32 { return readWord(base, bp+wordSize) }

func setLinkPrev(base unsafe.Pointer, bp, v uint32) { writeWord(base, bp, v) }
func setLinkNext(base unsafe.Pointer, bp, v uint32) { writeWord(base, bp+wordSize, v) }

// spliceInsert performs the plain LIFO insert of spec.md §4.3: bp becomes
// the new head of whatever list getHead/setHead address. This is exactly
// the insert original_source/mm-seglist.c's insertBlk performs — without
// the "root was coalesced in front of bp" branch mm.c's insertFree added,
// which spec.md §9 explicitly does not reproduce.
func spliceInsert(base unsafe.Pointer, bp uint32, getHead func() uint32, setHead func(uint32)) {
	head := getHead()
	setLinkPrev(base, bp, 0)
	setLinkNext(base, bp, head)
	if head != 0 {
		setLinkPrev(base, head, bp)
	}
	setHead(bp)
}

// spliceRemove unlinks bp from whatever list getHead/setHead address,
// updating the head unconditionally when bp has no predecessor — the fix
// spec.md §9 calls for over original_source/mm.c's deleteFree, which only
// updated root inside the `next != 0` branch.
func spliceRemove(base unsafe.Pointer, bp uint32, getHead func() uint32, setHead func(uint32)) {
	p := linkPrev(base, bp)
	n := linkNext(base, bp)
	if p != 0 {
		setLinkNext(base, p, n)
	} else {
		setHead(n)
	}
	if n != 0 {
		setLinkPrev(base, n, p)
	}
}
