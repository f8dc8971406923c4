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
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestPackHeader(t *testing.T) {
	w := packHeader(32, true)
	assert.Equal(t, uint32(32), sizeOf(w))
	assert.True(t, allocOf(w))

	w = packHeader(24, false)
	assert.Equal(t, uint32(24), sizeOf(w))
	assert.False(t, allocOf(w))
}

func TestAdjustedSize(t *testing.T) {
	cases := []struct {
		n    uint32
		want uint32
	}{
		{0, minBlockSize},
		{1, minBlockSize},
		{8, minBlockSize},
		{9, 24},
		{100, 112},
		{200, 208},
	}
	for _, c := range cases {
		got := adjustedSize(c.n)
		assert.Equal(t, c.want, got, "adjustedSize(%d)", c.n)
		assert.Equal(t, uint32(0), got%dwordSize)
		assert.GreaterOrEqual(t, got, uint32(minBlockSize))
	}
}

func TestSetBlockAndNeighbors(t *testing.T) {
	buf := make([]byte, 256)
	base := unsafe.Pointer(&buf[0])

	bp := uint32(16)
	setBlock(base, bp, 32, true)
	assert.Equal(t, uint32(32), blockSize(base, bp))
	assert.True(t, blockAlloc(base, bp))

	next := nextOff(base, bp)
	assert.Equal(t, bp+32, next)

	setBlock(base, next, 24, false)
	assert.Equal(t, bp, prevOff(base, next))
}

func TestReadWriteWord(t *testing.T) {
	buf := make([]byte, 32)
	base := unsafe.Pointer(&buf[0])
	writeWord(base, 4, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), readWord(base, 4))
}
