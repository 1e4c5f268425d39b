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

// Package taint implements Taint (the map Kind → KindFrames that is the
// per-access-path taint value) and the tree types built over it, plus the
// callsite-crossing Propagate operation that is the core of the
// interprocedural fixpoint.
package taint

import (
	"sort"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/frame"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
	"github.com/mariana-trench/mtrench-go/internal/pkg/position"
)

// Taint is the join semi-lattice map from Kind to KindFrames: the taint
// value stored at one access path.
type Taint struct {
	byKind map[kind.Kind]frame.KindFrames
}

// Zero is the bottom Taint (no kinds). It satisfies pathtree.Element[Taint]
// via the methods below, so Taint can be used directly as a tree leaf
// element.
var Zero = Taint{}

// Bottom reports whether t carries no frames for any kind.
func (t Taint) Bottom() bool {
	for _, kf := range t.byKind {
		if !kf.IsBottom() {
			return false
		}
	}
	return true
}

// Leq reports whether t is less than or equal to other: every kind's
// KindFrames in t must be Leq the matching KindFrames in other.
func (t Taint) Leq(other Taint) bool {
	for k, kf := range t.byKind {
		ok, exists := other.byKind[k]
		if !exists {
			if !kf.IsBottom() {
				return false
			}
			continue
		}
		if !kf.Leq(ok) {
			return false
		}
	}
	return true
}

// Join returns the per-kind join of t and other.
func (t Taint) Join(other Taint) Taint {
	out := make(map[kind.Kind]frame.KindFrames, len(t.byKind)+len(other.byKind))
	for k, kf := range t.byKind {
		out[k] = kf
	}
	for k, kf := range other.byKind {
		if existing, ok := out[k]; ok {
			out[k] = existing.Join(kf)
		} else {
			out[k] = kf
		}
	}
	return Taint{byKind: out}
}

// Add inserts f under its own Kind.
func (t Taint) Add(f frame.Frame) Taint {
	out := make(map[kind.Kind]frame.KindFrames, len(t.byKind)+1)
	for k, kf := range t.byKind {
		out[k] = kf
	}
	if existing, ok := out[f.Kind]; ok {
		out[f.Kind] = existing.Add(f)
	} else {
		out[f.Kind] = frame.EmptyKindFrames().Add(f)
	}
	return Taint{byKind: out}
}

// Difference removes, per kind, whatever is Leq the matching kind's
// frames in other.
func (t Taint) Difference(other Taint) Taint {
	out := make(map[kind.Kind]frame.KindFrames, len(t.byKind))
	for k, kf := range t.byKind {
		if ok, exists := other.byKind[k]; exists {
			d := kf.Difference(ok)
			if !d.IsBottom() {
				out[k] = d
			}
		} else {
			out[k] = kf
		}
	}
	return Taint{byKind: out}
}

// ContainsKind reports whether t carries any (non-bottom) frames for k.
func (t Taint) ContainsKind(k kind.Kind) bool {
	kf, ok := t.byKind[k]
	return ok && !kf.IsBottom()
}

// Kinds returns the set of kinds with non-bottom frames, sorted by name
// for determinism.
func (t Taint) Kinds() []kind.Kind {
	out := make([]kind.Kind, 0, len(t.byKind))
	for k, kf := range t.byKind {
		if !kf.IsBottom() {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Frames returns every frame for k.
func (t Taint) Frames(k kind.Kind) []frame.Frame {
	return t.byKind[k].Frames()
}

// AllFrames returns every frame across every kind.
func (t Taint) AllFrames() []frame.Frame {
	var out []frame.Frame
	for _, k := range t.Kinds() {
		out = append(out, t.Frames(k)...)
	}
	return out
}

// TransformKind rewrites every frame by mapping its kind to zero or more
// replacement kinds via fn, optionally attaching addFeatures to each
// replacement kind; groups that become bottom are dropped.
func (t Taint) TransformKind(fn func(kind.Kind) []kind.Kind, addFeatures func(kind.Kind) feature.Set) Taint {
	out := Zero
	for _, k := range t.Kinds() {
		for _, newKind := range fn(k) {
			for _, f := range t.Frames(k) {
				nf := f
				nf.Kind = newKind
				if addFeatures != nil {
					nf = nf.WithUserFeatures(addFeatures(newKind))
				}
				out = out.Add(nf)
			}
		}
	}
	return out
}

// PartitionByKind splits t into buckets keyed by classify's output over
// each kind.
func PartitionByKind[K comparable](t Taint, classify func(kind.Kind) K) map[K]Taint {
	out := map[K]Taint{}
	for _, k := range t.Kinds() {
		bucket := classify(k)
		acc := out[bucket]
		for _, f := range t.Frames(k) {
			acc = acc.Add(f)
		}
		out[bucket] = acc
	}
	return out
}

// AttachPosition rewrites every frame's call position to p, adding
// features.
func (t Taint) AttachPosition(p position.Position, features feature.Set) Taint {
	out := Zero
	for _, f := range t.AllFrames() {
		out = out.Add(f.AttachPosition(p, features))
	}
	return out
}

// FeaturesJoined collapses every frame's features into a single may/always
// inferred pair plus the union of user features.
func (t Taint) FeaturesJoined() (inferred feature.MayAlways, user feature.Set) {
	for _, f := range t.AllFrames() {
		inferred = inferred.Join(f.InferredFeatures)
		user = user.Union(f.UserFeatures)
	}
	return inferred, user
}

// Tree is a persistent tree over Path keyed nodes whose leaf/interior
// values are Taint.
type Tree = pathtree.Tree[Taint]

var treeConfig = &pathtree.Config[Taint]{
	MaxHeightAfterWidening: 4,
	OnWiden: func(t Taint) Taint {
		return t.TransformKind(func(k kind.Kind) []kind.Kind { return []kind.Kind{k} }, func(kind.Kind) feature.Set {
			return feature.NewSet(feature.New("widen-broadening"))
		})
	},
	OnHoist: func(t Taint) Taint {
		return t.TransformKind(func(k kind.Kind) []kind.Kind { return []kind.Kind{k} }, func(kind.Kind) feature.Set {
			return feature.NewSet(feature.New("propagation-broadening"))
		})
	},
}

// NewTree builds an empty TaintTree using the shared widening/hoisting
// configuration every tree of Taint shares.
func NewTree() *Tree { return pathtree.Empty[Taint](treeConfig) }

// AccessPathTree is a map from Root to the Tree of taint reachable below
// that root: the (Root, Path) → Taint shape known as a TaintAccessPathTree.
type AccessPathTree struct {
	byRoot map[accesspath.Root]*Tree
}

// NewAccessPathTree builds an empty AccessPathTree.
func NewAccessPathTree() *AccessPathTree {
	return &AccessPathTree{byRoot: map[accesspath.Root]*Tree{}}
}

func (a *AccessPathTree) treeFor(root accesspath.Root) *Tree {
	if t, ok := a.byRoot[root]; ok {
		return t
	}
	return NewTree()
}

// Tree returns the full Tree of taint stored under root.
func (a *AccessPathTree) Tree(root accesspath.Root) *Tree {
	return a.treeFor(root)
}

// JoinRootTree joins tree into whatever is already stored at root.
func (a *AccessPathTree) JoinRootTree(root accesspath.Root, tree *Tree) *AccessPathTree {
	out := a.clone()
	out.byRoot[root] = a.treeFor(root).JoinWith(tree)
	return out
}

// Write stores value at ap with the given strength.
func (a *AccessPathTree) Write(ap accesspath.AccessPath, value Taint, strength pathtree.Strength) *AccessPathTree {
	out := a.clone()
	out.byRoot[ap.Root] = a.treeFor(ap.Root).Write(ap.Path, value, strength)
	return out
}

// Read returns the subtree of taint at ap.
func (a *AccessPathTree) Read(ap accesspath.AccessPath) *Tree {
	return a.treeFor(ap.Root).Read(ap.Path)
}

// Roots returns the set of roots with any non-bottom taint.
func (a *AccessPathTree) Roots() []accesspath.Root {
	out := make([]accesspath.Root, 0, len(a.byRoot))
	for r, t := range a.byRoot {
		if !t.IsBottom() {
			out = append(out, r)
		}
	}
	return out
}

// Join returns the per-root join of a and other.
func (a *AccessPathTree) Join(other *AccessPathTree) *AccessPathTree {
	out := NewAccessPathTree()
	for r, t := range a.byRoot {
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

func (a *AccessPathTree) clone() *AccessPathTree {
	out := NewAccessPathTree()
	for r, t := range a.byRoot {
		out.byRoot[r] = t
	}
	return out
}
