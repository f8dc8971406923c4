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

import "errors"

// ErrReserveTooSmall is returned by New when the configured reservation
// cannot hold even the fixed prologue/epilogue/bucket-array header.
var ErrReserveTooSmall = errors.New("segalloc: reserve too small")

// Out-of-memory and invariant-violation are not returned as errors from
// Malloc/Free/Realloc/Calloc — spec.md §7 treats OutOfMemory as a null
// result with no side effects, and InvariantViolation as a checker abort,
// not a recoverable error. Out-of-memory surfaces as a nil result and an
// invariant violation only through Check's panic (see checker.go), so
// neither is worth a sentinel error value; New's validation failures are
// the only error-returning path in this package.
