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

// Package feature implements the interned Feature handles attached to
// Frames, and the three sets a Frame carries them in: always-only user
// features, may/always inferred features, and the locally-inferred
// features tracked at a single callsite before they are either folded into
// the caller's inferred set or discarded.
package feature

import (
	"sort"

	"github.com/mariana-trench/mtrench-go/internal/pkg/intern"
)

// Feature is an interned, comparable tag such as "via-cast" or
// "via-obscure".
type Feature struct {
	name string
}

var table = intern.NewTable[string, Feature]()

// New returns the interned Feature for name.
func New(name string) Feature {
	return *table.Intern(name, func() Feature { return Feature{name: name} })
}

func (f Feature) String() string { return f.name }

// Set is an immutable set of Features. The zero value is the empty set.
type Set struct {
	m map[Feature]bool
}

// NewSet builds a Set from the given features.
func NewSet(fs ...Feature) Set {
	if len(fs) == 0 {
		return Set{}
	}
	m := make(map[Feature]bool, len(fs))
	for _, f := range fs {
		m[f] = true
	}
	return Set{m: m}
}

// Contains reports whether f is a member.
func (s Set) Contains(f Feature) bool { return s.m[f] }

// Empty reports whether the set has no members.
func (s Set) Empty() bool { return len(s.m) == 0 }

// Add returns a new Set with f added.
func (s Set) Add(f Feature) Set {
	out := make(map[Feature]bool, len(s.m)+1)
	for k := range s.m {
		out[k] = true
	}
	out[f] = true
	return Set{m: out}
}

// Union returns the set union of s and other.
func (s Set) Union(other Set) Set {
	if s.Empty() {
		return other
	}
	if other.Empty() {
		return s
	}
	out := make(map[Feature]bool, len(s.m)+len(other.m))
	for k := range s.m {
		out[k] = true
	}
	for k := range other.m {
		out[k] = true
	}
	return Set{m: out}
}

// Equal reports whether s and other contain exactly the same features.
func (s Set) Equal(other Set) bool {
	if len(s.m) != len(other.m) {
		return false
	}
	for k := range s.m {
		if !other.m[k] {
			return false
		}
	}
	return true
}

// Slice returns the set's members in a stable (sorted by name) order, for
// deterministic printing and testing.
func (s Set) Slice() []Feature {
	out := make([]Feature, 0, len(s.m))
	for f := range s.m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// MayAlways pairs a "may" feature set (present on at least one frame that
// was joined into this one) with an "always" feature set (present on
// every frame joined into this one). It is the representation used for
// inferred features, which start as "always" on a single frame and widen
// to "may" as frames with differing features are joined.
type MayAlways struct {
	May    Set
	Always Set
}

// FromAlways builds a MayAlways where both May and Always equal fs, the
// natural starting point for a freshly created frame's inferred features.
func FromAlways(fs Set) MayAlways { return MayAlways{May: fs, Always: fs} }

// Join computes the join of two MayAlways pairs: May sets union, Always
// sets intersect (a feature is "always" in the join only if it was always
// present on both sides).
func (m MayAlways) Join(other MayAlways) MayAlways {
	always := make(map[Feature]bool)
	for f := range m.Always.m {
		if other.Always.m[f] {
			always[f] = true
		}
	}
	return MayAlways{May: m.May.Union(other.May), Always: Set{m: always}}
}

// Equal reports whether m and other have equal May and Always sets.
func (m MayAlways) Equal(other MayAlways) bool {
	return m.May.Equal(other.May) && m.Always.Equal(other.Always)
}

// AddAlways returns a copy of m with fs added to both May and Always.
func (m MayAlways) AddAlways(fs Set) MayAlways {
	return MayAlways{May: m.May.Union(fs), Always: m.Always.Union(fs)}
}
