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

func TestFindFitMissReturnsZero(t *testing.T) {
	h := newTestHeap(t, WithReserve(4096))
	assert.Equal(t, uint32(0), h.findFit(adjustedSize(16)))
}

func TestFindFitReusesFreedBlock(t *testing.T) {
	h := newTestHeap(t)
	a := h.Malloc(64)
	require.NotNil(t, a)
	h.Free(a)

	asize := adjustedSize(64)
	bp := h.findFit(asize)
	require.NotEqual(t, uint32(0), bp)
	assert.GreaterOrEqual(t, blockSize(h.region.base, bp), asize)
}

func TestFindFitSegregatedCrossesBuckets(t *testing.T) {
	h := newTestHeap(t, WithVariant(VariantSegregated))

	// Force the region to extend with a large chunk, then place and free
	// a big block so the only free block sits in a high bucket. A small
	// request must cross from its own low bucket up into that one.
	big := h.Malloc(2048)
	require.NotNil(t, big)
	h.Free(big)

	asize := adjustedSize(16)
	startBucket := h.index.bucketOf(asize)
	bp := h.findFit(asize)
	require.NotEqual(t, uint32(0), bp)
	foundBucket := h.index.bucketOf(blockSize(h.region.base, bp))
	assert.GreaterOrEqual(t, foundBucket, startBucket)
}
