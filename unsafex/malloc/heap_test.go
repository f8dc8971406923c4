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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMallocZeroReturnsNil(t *testing.T) {
	h := newTestHeap(t)
	assert.Nil(t, h.Malloc(0))
	assert.Nil(t, h.Malloc(-1))
}

func TestFreeNilIsNoop(t *testing.T) {
	h := newTestHeap(t)
	h.Free(nil)
	h.Check("free(nil) must be a no-op")
}

func TestReallocNilIsAllocate(t *testing.T) {
	h := newTestHeap(t)
	p := h.Realloc(nil, 32)
	require.NotNil(t, p)
	assert.Len(t, p, 32)
}

func TestReallocZeroIsFree(t *testing.T) {
	h := newTestHeap(t)
	p := h.Malloc(32)
	require.NotNil(t, p)
	q := h.Realloc(p, 0)
	assert.Nil(t, q)
	h.Check("realloc(p, 0) must behave like free(p)")
}

// Scenario 1: allocate two, free both -> one coalesced free block.
func TestScenarioAllocFreeCoalesces(t *testing.T) {
	h := newTestHeap(t)
	a := h.Malloc(1)
	b := h.Malloc(1)
	require.NotNil(t, a)
	require.NotNil(t, b)

	h.Free(a)
	h.Free(b)
	h.Check("scenario 1: after both frees")

	stats := h.Stats()
	assert.Equal(t, uint64(2), stats.Mallocs)
	assert.Equal(t, uint64(2), stats.Frees)
}

// Scenario 2: freeing b makes room for d without growing the region.
func TestScenarioReuseFreedBlockNoExtend(t *testing.T) {
	h := newTestHeap(t)
	a := h.Malloc(100)
	b := h.Malloc(200)
	c := h.Malloc(50)
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	h.Free(b)
	before := h.Stats().Extends

	d := h.Malloc(150)
	require.NotNil(t, d)
	after := h.Stats().Extends

	assert.Equal(t, before, after)
	h.Check("scenario 2: d should reuse b's freed block")
}

// Scenario 3: two allocations that together still fit one CHUNK extension
// (each a little under half of it, leaving room for per-block header and
// footer overhead) trigger exactly one region extension.
func TestScenarioHalfChunkAllocationsExtendOnce(t *testing.T) {
	h := newTestHeap(t, WithChunkSize(defaultChunkSingle))
	half := int(defaultChunkSingle/2) - 64

	a := h.Malloc(half)
	require.NotNil(t, a)
	afterFirst := h.Stats().Extends

	b := h.Malloc(half)
	require.NotNil(t, b)
	afterSecond := h.Stats().Extends

	assert.Equal(t, uint64(1), afterFirst)
	assert.Equal(t, afterFirst, afterSecond)

	h.Free(a)
	h.Free(b)
	h.Check("scenario 3: after freeing both half-chunk blocks")
}

// Scenario 4: repeatedly allocating and freeing the same small size never
// grows the region past its first extension.
func TestScenarioRepeatedAllocFreeStabilizes(t *testing.T) {
	h := newTestHeap(t)
	for i := 0; i < 1000; i++ {
		a := h.Malloc(24)
		require.NotNil(t, a)
		h.Free(a)
	}
	assert.LessOrEqual(t, h.Stats().Extends, uint64(1))
	h.Check("scenario 4: index should stabilize at one free block")
}

// Scenario 5: realloc chain preserves bytes written before each step.
func TestScenarioReallocPreservesBytes(t *testing.T) {
	h := newTestHeap(t)
	p := h.Malloc(100)
	require.NotNil(t, p)
	for i := range p {
		p[i] = byte(i)
	}

	q := h.Realloc(p, 200)
	require.NotNil(t, q)
	for i := 0; i < 100; i++ {
		assert.Equal(t, byte(i), q[i])
	}

	for i := range q {
		if i >= 100 {
			q[i] = byte(200 - i)
		}
	}

	r := h.Realloc(q, 50)
	require.NotNil(t, r)
	for i := 0; i < 50; i++ {
		assert.Equal(t, q[i], r[i])
	}
}

// Scenario 6: zero-allocate overflow returns nil without growing the region.
func TestScenarioCallocOverflowReturnsNil(t *testing.T) {
	h := newTestHeap(t)
	before := h.Stats()
	p := h.Calloc(1<<62, 4) // nmemb*size wraps past uint64
	assert.Nil(t, p)
	assert.Equal(t, before.Extends, h.Stats().Extends)
}

func TestCallocTooLargeForBlockSizeReturnsNil(t *testing.T) {
	h := newTestHeap(t)
	p := h.Calloc(1<<20, 1<<20) // no overflow, but exceeds a uint32 block size
	assert.Nil(t, p)
}

func TestCallocZeroesMemory(t *testing.T) {
	h := newTestHeap(t)
	p := h.Malloc(64)
	require.NotNil(t, p)
	for i := range p {
		p[i] = 0xFF
	}
	h.Free(p)

	q := h.Calloc(8, 8)
	require.NotNil(t, q)
	for _, b := range q {
		assert.Equal(t, byte(0), b)
	}
}

func TestSegregatedVariantEndToEnd(t *testing.T) {
	h := newTestHeap(t, WithVariant(VariantSegregated))
	var ps [][]byte
	for i := 0; i < 64; i++ {
		p := h.Malloc(16 + i%128)
		require.NotNil(t, p)
		ps = append(ps, p)
	}
	h.Check("segregated: after 64 allocations")
	for i, p := range ps {
		if i%2 == 0 {
			h.Free(p)
		}
	}
	h.Check("segregated: after freeing every other block")
}
