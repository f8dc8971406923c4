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

// Variant selects which free-list index a Heap uses.
type Variant int

const (
	// VariantSingle is spec.md's single LIFO explicit free list.
	VariantSingle Variant = iota
	// VariantSegregated is the 29-bucket segregated LIFO index.
	VariantSegregated
)

const (
	defaultReserve         = 64 << 20 // 64MiB address-space reservation
	defaultChunkSingle     = 4 << 10  // 4KiB, per the single-list design default
	defaultChunkSegregated = 2 << 20  // 2MiB, per the segregated design default
	defaultHistoryLen      = 16
)

type config struct {
	variant    Variant
	reserve    int
	chunk      uint32
	chunkSet   bool
	historyLen int
}

func defaultConfig() config {
	return config{
		variant:    VariantSingle,
		reserve:    defaultReserve,
		historyLen: defaultHistoryLen,
	}
}

// resolvedChunk returns c.chunk if WithChunkSize was given, otherwise the
// variant-appropriate design default.
func (c config) resolvedChunk() uint32 {
	if c.chunkSet {
		return c.chunk
	}
	if c.variant == VariantSegregated {
		return defaultChunkSegregated
	}
	return defaultChunkSingle
}

// Option configures a Heap at construction. Heap construction takes enough
// independent knobs (index strategy, reservation size, extension chunk,
// checker history depth) that a validated-constructor signature like
// layout.go's adjustedSize or region.go's newRegion would need four
// positional parameters most callers don't want to think about; the option
// pattern lets New(WithVariant(VariantSegregated)) leave the rest at their
// documented defaults.
type Option func(*config)

// WithVariant selects the free-list index strategy. Default VariantSingle.
func WithVariant(v Variant) Option {
	return func(c *config) { c.variant = v }
}

// WithReserve sets the total address space reserved for the region up
// front, in bytes. Default 64MiB.
func WithReserve(bytes int) Option {
	return func(c *config) { c.reserve = bytes }
}

// WithChunkSize overrides CHUNK, the extension granularity used when no
// free block satisfies a request. Default depends on Variant: 4KiB for
// VariantSingle, 2MiB for VariantSegregated, per spec design defaults.
func WithChunkSize(bytes uint32) Option {
	return func(c *config) { c.chunk = bytes; c.chunkSet = true }
}

// WithHistoryLen sets how many Check tags the checker retains for
// diagnostic output after an invariant violation. Default 16.
func WithHistoryLen(n int) Option {
	return func(c *config) { c.historyLen = n }
}
