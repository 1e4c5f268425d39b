// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package intern implements the process-wide, append-only factories the
// analysis hands stable pointers out of: kinds, features, positions and
// pointsto field memory locations are deduplicated this way so that
// the rest of the analysis can compare them by pointer identity instead of
// deep structural equality.
package intern

import "sync"

// Table[K, V] deduplicates values of type V keyed by K, handing out stable
// *V pointers. It is safe for concurrent use: the fixpoint's worker pool
// looks up and inserts kinds/features/positions from many goroutines at
// once, and a Table never mutates or removes an entry once inserted.
type Table[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*V
}

// NewTable creates an empty Table.
func NewTable[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{entries: make(map[K]*V)}
}

// Intern returns the canonical pointer for key, constructing it with make
// on first use. Subsequent calls with an equal key return the same
// pointer.
func (t *Table[K, V]) Intern(key K, make func() V) *V {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.entries[key]; ok {
		return v
	}
	v := make()
	t.entries[key] = &v
	return &v
}

// Len reports the number of distinct entries interned so far.
func (t *Table[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
