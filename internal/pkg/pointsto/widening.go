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

import "sort"

// WideningPointsToResolver turns a (possibly cyclic) Environment into a
// resolver whose PointsTo answers are guaranteed to terminate: every
// strongly connected component of the aliasing graph is collapsed to a
// single representative, "always-collapse" tagged, before any read
// descends into it. The resolver is
// built once per read and then used for the duration of that read; it is
// never mutated.
//
// Strongly connected components play the same role a weak topological
// ordering would: both identify a minimal set of widening points whose
// removal makes the aliasing graph acyclic. Components are computed here
// with Tarjan's algorithm, which is simpler to implement correctly over a
// plain adjacency function (see DESIGN.md).
type WideningPointsToResolver struct {
	// representative maps every node reachable from the environment's
	// roots to the head of its component (itself, if it is not part of a
	// non-trivial cycle).
	representative map[*MemoryLocation]*MemoryLocation
	// alwaysCollapse records which representatives must force a collapse
	// on read because they absorbed a cycle.
	alwaysCollapse map[*MemoryLocation]bool
	// resolved is precomputed per representative: the fully resolved
	// PointsToTree including self-resolution at the representative's own
	// root.
	resolved map[*MemoryLocation]*Tree
}

// NewWideningPointsToResolver builds a resolver over env: every root
// memory location present in env is treated as reachable from a virtual
// entry node, so that disconnected components are all discovered in one
// pass.
func NewWideningPointsToResolver(env *Environment) *WideningPointsToResolver {
	successors := func(m *MemoryLocation) []*MemoryLocation {
		return directSuccessors(env, m)
	}

	nodes := env.Roots()
	sccs := tarjanSCCs(nodes, successors)

	r := &WideningPointsToResolver{
		representative: map[*MemoryLocation]*MemoryLocation{},
		alwaysCollapse: map[*MemoryLocation]bool{},
		resolved:       map[*MemoryLocation]*Tree{},
	}

	for _, scc := range sccs {
		head := sccHead(scc)
		for _, member := range scc {
			r.representative[member] = head
		}
		if len(scc) > 1 {
			r.alwaysCollapse[head] = true
		}
	}

	for _, root := range nodes {
		r.precompute(env, root)
	}
	return r
}

// directSuccessors returns the distinct memory locations root's tree
// points to at any field.
func directSuccessors(env *Environment, root *MemoryLocation) []*MemoryLocation {
	seen := map[*MemoryLocation]bool{}
	var out []*MemoryLocation
	var walk func(t *Tree)
	walk = func(t *Tree) {
		t.Map(func(pts PointsToSet) PointsToSet {
			for _, target := range pts.Targets() {
				if !seen[target] {
					seen[target] = true
					out = append(out, target)
				}
			}
			return pts
		})
	}
	walk(env.Get(root))
	return out
}

func sccHead(scc []*MemoryLocation) *MemoryLocation {
	head := scc[0]
	for _, m := range scc[1:] {
		if m.String() < head.String() {
			head = m
		}
	}
	return head
}

func (r *WideningPointsToResolver) precompute(env *Environment, root *MemoryLocation) {
	rep := r.representative[root]
	if _, done := r.resolved[rep]; done {
		return
	}
	tree := env.Get(rep)
	if r.alwaysCollapse[rep] {
		tree = tree.CollapseDeeperThan(0)
	}
	r.resolved[rep] = tree
}

// PointsTo resolves memoryLoc, replacing any cyclic aliasing with its
// component's representative and forcing a collapse when the
// representative absorbed a non-trivial cycle. This guarantees the
// resolved aliasing graph is a DAG and that any read of a widened node
// collapses inner taint trees.
func (r *WideningPointsToResolver) PointsTo(memoryLoc *MemoryLocation) PointsToSet {
	root := memoryLoc.Root()
	rep, ok := r.representative[root]
	if !ok {
		return Singleton(memoryLoc, AliasingProperties{})
	}
	return Singleton(rep, AliasingProperties{AlwaysCollapse: r.alwaysCollapse[rep]})
}

// Resolved returns the fully resolved PointsToTree for a representative
// memory location, suitable for reads that need to walk beneath it.
func (r *WideningPointsToResolver) Resolved(representative *MemoryLocation) *Tree {
	if t, ok := r.resolved[representative]; ok {
		return t
	}
	return NewTree()
}

// tarjanSCCs computes the strongly connected components of the graph
// reachable from roots via successors, returned in reverse topological
// order (a component's successors all appear before it), the same
// ordering guarantee a WTO provides for widening purposes.
func tarjanSCCs(roots []*MemoryLocation, successors func(*MemoryLocation) []*MemoryLocation) [][]*MemoryLocation {
	index := map[*MemoryLocation]int{}
	lowlink := map[*MemoryLocation]int{}
	onStack := map[*MemoryLocation]bool{}
	var stack []*MemoryLocation
	counter := 0
	var sccs [][]*MemoryLocation

	var strongconnect func(v *MemoryLocation)
	strongconnect = func(v *MemoryLocation) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range successors(v) {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var scc []*MemoryLocation
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	sortedRoots := append([]*MemoryLocation{}, roots...)
	sort.Slice(sortedRoots, func(i, j int) bool { return sortedRoots[i].String() < sortedRoots[j].String() })
	for _, root := range sortedRoots {
		if _, seen := index[root]; !seen {
			strongconnect(root)
		}
	}
	return sccs
}
