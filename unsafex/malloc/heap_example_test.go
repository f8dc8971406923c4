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

package malloc_test

import (
	"fmt"

	"github.com/segalloc/segalloc/unsafex/malloc"
)

func Example() {
	h, err := malloc.New(malloc.WithVariant(malloc.VariantSegregated))
	if err != nil {
		panic(err)
	}

	p := h.Malloc(64)
	for i := range p {
		p[i] = byte(i)
	}

	q := h.Realloc(p, 128)
	h.Check("after growing p to 128 bytes")

	h.Free(q)
	h.Check("after freeing q")

	stats := h.Stats()
	fmt.Println(stats.Mallocs, stats.Frees)
	// Output: 2 2
}
