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

package pathtree

// Element is the capability set a tree's leaf/interior values must satisfy:
// a bounded join semi-lattice with a distinguished bottom. meet and top are
// intentionally not required; the tree domain only ever joins. Values need
// not be comparable with ==: the tree never uses E as a map key.
type Element[E any] interface {
	// Bottom reports whether this value is the lattice's least element.
	Bottom() bool
	// Leq reports whether this value is less than or equal to other.
	Leq(other E) bool
	// Join returns the least upper bound of this value and other.
	Join(other E) E
}

// Config parameterizes a Tree over its element lattice: how high it may
// grow before widening collapses it, and the two transforms the domain
// applies when it broadens a value (by folding descendants into an
// ancestor, or by collapsing on a sink/hoist boundary).
type Config[E Element[E]] struct {
	// MaxHeightAfterWidening bounds the height widen_with will allow before
	// forcing a collapse.
	MaxHeightAfterWidening int
	// OnWiden is applied to a value right before it is folded into an
	// ancestor by widen_with at the height boundary.
	OnWiden func(E) E
	// OnHoist is applied to a value right before it is folded into an
	// ancestor by collapse/collapse_deeper_than/limit_leaves/shape_with.
	OnHoist func(E) E
}

func (c *Config[E]) widen(e E) E {
	if c == nil || c.OnWiden == nil {
		return e
	}
	return c.OnWiden(e)
}

func (c *Config[E]) hoist(e E) E {
	if c == nil || c.OnHoist == nil {
		return e
	}
	return c.OnHoist(e)
}

func (c *Config[E]) maxHeight() int {
	if c == nil {
		return -1
	}
	return c.MaxHeightAfterWidening
}
