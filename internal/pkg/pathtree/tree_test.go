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

import (
	"sort"
	"strings"
	"testing"
)

// labelSet is a minimal Element implementation used only to exercise the
// tree algebra: the join semi-lattice of sets of strings under union.
type labelSet string

func labels(ls ...string) labelSet {
	sort.Strings(ls)
	return labelSet(strings.Join(ls, ","))
}

func (l labelSet) Bottom() bool { return l == "" }

func (l labelSet) Leq(other labelSet) bool {
	join := l.Join(other)
	return join == other
}

func (l labelSet) Join(other labelSet) labelSet {
	set := map[string]bool{}
	for _, s := range strings.Split(string(l), ",") {
		if s != "" {
			set[s] = true
		}
	}
	for _, s := range strings.Split(string(other), ",") {
		if s != "" {
			set[s] = true
		}
	}
	var out []string
	for s := range set {
		out = append(out, s)
	}
	return labels(out...)
}

func newTestTree() *Tree[labelSet] {
	return Empty[labelSet](&Config[labelSet]{MaxHeightAfterWidening: 2})
}

func TestWriteStrongReplacesSubtree(t *testing.T) {
	tree := newTestTree()
	tree = tree.Write(Path{Field("x"), Field("y")}, labels("a"), Strong)
	tree = tree.Write(Path{Field("x")}, labels("b"), Strong)

	got := tree.Read(Path{Field("x"), Field("y")}).Element()
	if got != labels("b") {
		t.Fatalf("Read(x.y) = %q, want %q (strong write at x should prune y)", got, labels("b"))
	}
}

func TestWriteWeakJoinsAndPropagates(t *testing.T) {
	tree := newTestTree()
	tree = tree.Write(Path{Field("x")}, labels("a"), Weak)
	tree = tree.Write(Path{Field("x"), Field("y")}, labels("b"), Weak)

	got := tree.Read(Path{Field("x"), Field("y")}).Element()
	want := labels("a", "b")
	if got != want {
		t.Fatalf("Read(x.y) = %q, want %q", got, want)
	}
}

func TestReadMissingPathSynthesizesAncestorPropagation(t *testing.T) {
	tree := newTestTree()
	tree = tree.Write(Path{Field("x")}, labels("a"), Weak)

	got := tree.Read(Path{Field("x"), Field("never-written")}).Element()
	if got != labels("a") {
		t.Fatalf("Read(x.never-written) = %q, want %q", got, labels("a"))
	}

	if got := tree.RawRead(Path{Field("x"), Field("never-written")}).Element(); got != "" {
		t.Fatalf("RawRead(x.never-written) = %q, want bottom", got)
	}
}

func TestIndexFallsBackToAnyIndex(t *testing.T) {
	tree := newTestTree()
	tree = tree.Write(Path{AnyIndex()}, labels("tainted"), Weak)

	got := tree.Read(Path{Index(7)}).Element()
	if got != labels("tainted") {
		t.Fatalf("Read([7]) = %q, want fallback to AnyIndex value %q", got, labels("tainted"))
	}
}

func TestWeakWriteToNewIndexInheritsAnyIndex(t *testing.T) {
	tree := newTestTree()
	tree = tree.Write(Path{Field("a"), AnyIndex(), Field("x")}, labels("K1"), Weak)
	tree = tree.Write(Path{Field("a"), Index(0), Field("x")}, labels("K2"), Weak)

	got := tree.Read(Path{Field("a"), Index(0), Field("x")}).Element()
	want := labels("K1", "K2")
	if got != want {
		t.Fatalf("Read(a[0].x) = %q, want %q (K1 from a.[*].x plus K2 from a.[0].x)", got, want)
	}

	// A sibling index never written directly still falls back to [*] alone.
	if got := tree.Read(Path{Field("a"), Index(1), Field("x")}).Element(); got != labels("K1") {
		t.Fatalf("Read(a[1].x) = %q, want %q (untouched index still sees only [*])", got, labels("K1"))
	}
}

func TestJoinWithIndexVsAnyIndex(t *testing.T) {
	left := newTestTree().Write(Path{Index(0)}, labels("left"), Strong)
	right := newTestTree().Write(Path{AnyIndex()}, labels("right"), Strong)

	joined := left.JoinWith(right)

	if got := joined.Read(Path{Index(0)}).Element(); got != labels("left", "right") {
		t.Fatalf("joined[0] = %q, want left joined with AnyIndex", got)
	}
	if got := joined.Read(Path{Index(9)}).Element(); got != labels("right") {
		t.Fatalf("joined[9] = %q, want just the AnyIndex value", got)
	}
}

func TestCollapseDeeperThanBoundsDepth(t *testing.T) {
	tree := newTestTree()
	tree = tree.Write(Path{Field("a"), Field("b"), Field("c")}, labels("deep"), Strong)

	collapsed := tree.CollapseDeeperThan(1)

	got := collapsed.Read(Path{Field("a")}).Element()
	if got != labels("deep") {
		t.Fatalf("after CollapseDeeperThan(1), Read(a) = %q, want folded %q", got, labels("deep"))
	}
}

func TestLimitLeavesNoOpWhenWithinBudget(t *testing.T) {
	tree := newTestTree().Write(Path{Field("a")}, labels("x"), Strong)
	limited := tree.LimitLeaves(10)
	if limited != tree {
		t.Fatalf("LimitLeaves should be a no-op when already within budget")
	}
}

func TestLimitLeavesCollapsesOverBudgetTree(t *testing.T) {
	// "a" has two leaves of its own (p, q); "b" has one (r). At depth 1
	// (a, b as the cut) there are 2 leaves; at full depth there are 3: the
	// budget of 2 is only satisfiable by collapsing a's two children
	// together, not by collapsing the whole tree to the root.
	tree := newTestTree()
	tree = tree.Write(Path{Field("a"), Field("p")}, labels("a-p"), Strong)
	tree = tree.Write(Path{Field("a"), Field("q")}, labels("a-q"), Strong)
	tree = tree.Write(Path{Field("b"), Field("r")}, labels("b-r"), Strong)

	if got := countLeaves(tree.root); got != 3 {
		t.Fatalf("test setup: got %d leaves, want 3", got)
	}

	limited := tree.LimitLeaves(2)
	if got := countLeaves(limited.root); got > 2 {
		t.Fatalf("LimitLeaves(2) left %d leaves, want <= 2", got)
	}

	// Collapsing must happen at a's children (depth 2, folding p and q
	// into a), not at the root: a's and b's taint must stay
	// distinguishable from each other.
	if got := limited.Read(Path{Field("a")}).Element(); got != labels("a-p", "a-q") {
		t.Fatalf("Read(a) after LimitLeaves(2) = %q, want %q (a's children folded in, but not b's)", got, labels("a-p", "a-q"))
	}
	if got := limited.Read(Path{Field("b")}).Element(); got != labels("b-r") {
		t.Fatalf("Read(b) after LimitLeaves(2) = %q, want %q", got, labels("b-r"))
	}
}

func TestWidenWithCollapsesAtHeightZero(t *testing.T) {
	cfg := &Config[labelSet]{MaxHeightAfterWidening: 0}
	left := New(labels(), cfg).Write(Path{Field("a"), Field("b")}, labels("x"), Strong)
	right := New(labels(), cfg).Write(Path{Field("a"), Field("c")}, labels("y"), Strong)

	widened := left.WidenWith(right)
	if len(widened.root.children) != 0 {
		t.Fatalf("WidenWith at height 0 should collapse to a single node, got %d children", len(widened.root.children))
	}
	got := widened.Element()
	want := labels("x", "y")
	if got != want {
		t.Fatalf("widened root = %q, want %q", got, want)
	}
}

func TestLeqReflexiveAndMonotone(t *testing.T) {
	small := newTestTree().Write(Path{Field("a")}, labels("x"), Strong)
	big := small.Write(Path{Field("a"), Field("b")}, labels("y"), Weak)

	if !small.Leq(small) {
		t.Fatalf("Leq should be reflexive")
	}
	if !small.Leq(big) {
		t.Fatalf("small should be Leq big after a weak write only adds information")
	}
	if big.Leq(small) {
		t.Fatalf("big should not be Leq small")
	}
}
