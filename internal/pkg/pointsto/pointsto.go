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

package pointsto

import (
	"sort"

	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
)

// AliasingProperties annotates one edge of the points-to graph, notably
// whether reads through it must always collapse the pointed-to taint
// tree. AliasingProperties is itself not a lattice element stored in a
// tree; PointsToSet folds a property per target memory location.
type AliasingProperties struct {
	AlwaysCollapse bool
}

// Join keeps AlwaysCollapse if either side set it.
func (a AliasingProperties) Join(other AliasingProperties) AliasingProperties {
	return AliasingProperties{AlwaysCollapse: a.AlwaysCollapse || other.AlwaysCollapse}
}

// PointsToSet is a set of root memory locations, each tagged with
// AliasingProperties.
type PointsToSet struct {
	targets map[*MemoryLocation]AliasingProperties
}

// EmptyPointsToSet is the bottom PointsToSet.
func EmptyPointsToSet() PointsToSet { return PointsToSet{} }

// Singleton builds a PointsToSet containing exactly one target.
func Singleton(target *MemoryLocation, props AliasingProperties) PointsToSet {
	return PointsToSet{targets: map[*MemoryLocation]AliasingProperties{target: props}}
}

func (p PointsToSet) Bottom() bool { return len(p.targets) == 0 }

func (p PointsToSet) Leq(other PointsToSet) bool {
	for t := range p.targets {
		if _, ok := other.targets[t]; !ok {
			return false
		}
	}
	return true
}

func (p PointsToSet) Join(other PointsToSet) PointsToSet {
	out := make(map[*MemoryLocation]AliasingProperties, len(p.targets)+len(other.targets))
	for t, props := range p.targets {
		out[t] = props
	}
	for t, props := range other.targets {
		if existing, ok := out[t]; ok {
			out[t] = existing.Join(props)
		} else {
			out[t] = props
		}
	}
	return PointsToSet{targets: out}
}

// IsSingleton reports whether p has exactly one target, returning it.
func (p PointsToSet) IsSingleton() (*MemoryLocation, bool) {
	if len(p.targets) != 1 {
		return nil, false
	}
	for t := range p.targets {
		return t, true
	}
	return nil, false
}

// Targets returns the set's members in a stable order.
func (p PointsToSet) Targets() []*MemoryLocation {
	out := make([]*MemoryLocation, 0, len(p.targets))
	for t := range p.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// PropertiesFor returns the AliasingProperties recorded for target.
func (p PointsToSet) PropertiesFor(target *MemoryLocation) AliasingProperties {
	return p.targets[target]
}

// Tree is the PointsToTree: a tree (via pathtree) mapping Path to
// PointsToSet. Interior nodes propagate nothing: the element lattice here
// carries no flow semantics, only "what can this path alias".
type Tree = pathtree.Tree[PointsToSet]

var treeConfig = &pathtree.Config[PointsToSet]{MaxHeightAfterWidening: 4}

// NewTree builds an empty PointsToTree.
func NewTree() *Tree { return pathtree.Empty[PointsToSet](treeConfig) }

// Environment is the PointsToEnvironment: a mapping from root memory
// location to the PointsToTree describing what it (and everything
// reachable through its fields) may point to -- the current heap shape.
type Environment struct {
	byRoot map[*MemoryLocation]*Tree
}

// NewEnvironment builds an empty Environment.
func NewEnvironment() *Environment {
	return &Environment{byRoot: map[*MemoryLocation]*Tree{}}
}

// Get returns the PointsToTree rooted at root, or an empty one if unset.
func (e *Environment) Get(root *MemoryLocation) *Tree {
	if t, ok := e.byRoot[root]; ok {
		return t
	}
	return NewTree()
}

// Roots returns every root with a non-bottom tree, in a stable order.
func (e *Environment) Roots() []*MemoryLocation {
	out := make([]*MemoryLocation, 0, len(e.byRoot))
	for r, t := range e.byRoot {
		if !t.IsBottom() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (e *Environment) clone() *Environment {
	out := NewEnvironment()
	for r, t := range e.byRoot {
		out.byRoot[r] = t
	}
	return out
}

// Resolver looks up what a FieldLocation's parent chain resolves to, so
// that Write can translate a field memory location into the set of root
// locations it may alias before performing the actual write.
type Resolver interface {
	PointsTo(memoryLoc *MemoryLocation) PointsToSet
}

// directResolver is the trivial resolver Write uses when none is
// supplied: every field memory location falls back to the singleton set
// containing itself.
type directResolver struct{}

func (directResolver) PointsTo(m *MemoryLocation) PointsToSet {
	return Singleton(m, AliasingProperties{})
}

// DirectResolver is the fallback resolver used when no widened resolver
// has been computed yet.
var DirectResolver Resolver = directResolver{}

// Write stores points_to at the field named field under memoryLoc,
// resolving memoryLoc to its root set first when it is itself a field
// location. A Strong write of a non-aliased
// (singleton) destination replaces; every other case is weak.
func (e *Environment) Write(resolver Resolver, memoryLoc *MemoryLocation, field string, pts PointsToSet, strength pathtree.Strength) *Environment {
	roots := resolveRoots(resolver, memoryLoc)
	out := e.clone()
	for _, root := range roots {
		tree := out.Get(root)
		effectiveStrength := strength
		if len(roots) > 1 {
			effectiveStrength = pathtree.Weak
		}
		out.byRoot[root] = tree.Write(pathtree.Path{pathtree.Field(field)}, pts, effectiveStrength)
	}
	return out
}

func resolveRoots(resolver Resolver, memoryLoc *MemoryLocation) []*MemoryLocation {
	if memoryLoc.Kind() != FieldLocation {
		return []*MemoryLocation{memoryLoc}
	}
	parentPts := resolver.PointsTo(memoryLoc.Parent())
	if parentPts.Bottom() {
		return []*MemoryLocation{memoryLoc}
	}
	return parentPts.Targets()
}

// PointsTo resolves a chain of field names by walking the tree rooted at
// memoryLoc's root, falling back to the singleton {memoryLoc} if any step
// is unvisited.
func (e *Environment) PointsTo(memoryLoc *MemoryLocation) PointsToSet {
	var fields []string
	cur := memoryLoc
	for cur.Kind() == FieldLocation {
		fields = append([]string{cur.FieldName()}, fields...)
		cur = cur.Parent()
	}
	tree := e.Get(cur)
	path := make(pathtree.Path, len(fields))
	for i, f := range fields {
		path[i] = pathtree.Field(f)
	}
	pts := tree.Read(path).Element()
	if pts.Bottom() {
		return Singleton(memoryLoc, AliasingProperties{})
	}
	return pts
}

// Join returns the per-root join of e and other.
func (e *Environment) Join(other *Environment) *Environment {
	out := NewEnvironment()
	for r, t := range e.byRoot {
		out.byRoot[r] = t
	}
	for r, t := range other.byRoot {
		if existing, ok := out.byRoot[r]; ok {
			out.byRoot[r] = existing.JoinWith(t)
		} else {
			out.byRoot[r] = t
		}
	}
	return out
}
