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

// Strength controls whether a Write replaces or joins.
type Strength int

const (
	// Strong replaces the subtree rooted at the write's path.
	Strong Strength = iota
	// Weak joins the written value into whatever is already there.
	Weak
)

// node is a single point in the tree: a stored element plus a map from the
// next PathElement to the child holding the rest of the path. The element
// stored at an interior node is implicitly propagated (joined) into every
// descendant when the tree is read; storage does not duplicate it.
//
// The zero value of E must be the lattice's bottom: nodes are frequently
// synthesized with only children set (value left at its zero value).
type node[E Element[E]] struct {
	value    E
	children map[PathElement]*node[E]
}

// Tree is a persistent map from Path to an element of E, with values at
// interior nodes propagated to their descendants. All mutating operations
// return a new Tree; the receiver is never modified, and unmodified
// subtrees are shared between the old and new versions.
type Tree[E Element[E]] struct {
	root   *node[E]
	config *Config[E]
}

// New creates a single-node Tree holding value at the root.
func New[E Element[E]](value E, cfg *Config[E]) *Tree[E] {
	return &Tree[E]{root: &node[E]{value: value}, config: cfg}
}

// Empty creates a Tree whose root holds the lattice's bottom (E's zero
// value) and has no children.
func Empty[E Element[E]](cfg *Config[E]) *Tree[E] {
	return &Tree[E]{root: &node[E]{}, config: cfg}
}

func cloneShallow[E Element[E]](n *node[E]) *node[E] {
	if n == nil {
		return &node[E]{children: map[PathElement]*node[E]{}}
	}
	children := make(map[PathElement]*node[E], len(n.children))
	for k, v := range n.children {
		children[k] = v
	}
	return &node[E]{value: n.value, children: children}
}

// Element returns the value stored at the tree's root. It does not include
// any ancestor propagation: a root has no ancestor.
func (t *Tree[E]) Element() E {
	if t == nil || t.root == nil {
		var zero E
		return zero
	}
	return t.root.value
}

// IsBottom reports whether the tree is equivalent to Empty: its root holds
// bottom and it has no children.
func (t *Tree[E]) IsBottom() bool {
	return t == nil || t.root == nil || (t.root.value.Bottom() && len(t.root.children) == 0)
}

// Write stores value at path. A Strong write replaces the subtree rooted at
// path; a Weak write joins value into whatever is already stored there,
// and prunes any descendant whose value is already dominated by the new
// accumulated value (storage never keeps redundant information).
//
// Writing AnyIndex as (part of) path is a weak broadcast to every existing
// Index child plus the AnyIndex subtree itself, regardless of the supplied
// Strength; a Strong write with AnyIndex present in path is unreachable in
// this analysis (see spec Open Questions) and is treated the same as Weak.
func (t *Tree[E]) Write(path Path, value E, strength Strength) *Tree[E] {
	return &Tree[E]{root: writeNode(t.root, path, value, strength, t.config), config: t.config}
}

func writeNode[E Element[E]](n *node[E], path Path, value E, strength Strength, cfg *Config[E]) *node[E] {
	if len(path) == 0 {
		out := cloneShallow(n)
		if strength == Strong {
			out.value = value
			out.children = map[PathElement]*node[E]{}
			return out
		}
		out.value = out.value.Join(value)
		out.children = pruneCovered(out.children, out.value)
		return out
	}

	elem, rest := path[0], path[1:]
	out := cloneShallow(n)

	if elem.Kind() == AnyIndexElement {
		for k, child := range out.children {
			if k.IsIndexLike() {
				out.children[k] = writeNode(child, rest, value, Weak, cfg)
			}
		}
		out.children[AnyIndex()] = writeNode(out.children[AnyIndex()], rest, value, Weak, cfg)
		return out
	}

	// A weak write to an index element that has no child of its own yet
	// inherits the existing AnyIndex subtree first, so a prior write to
	// a.[*] is still visible through a.[0] rather than being shadowed by
	// the new, otherwise-empty child.
	if elem.Kind() == IndexElement && strength == Weak && isBottomNode(out.children[elem]) {
		if any := out.children[AnyIndex()]; !isBottomNode(any) {
			out.children[elem] = any
		}
	}

	out.children[elem] = writeNode(out.children[elem], rest, value, strength, cfg)
	return out
}

// isBottomNode reports whether n is absent or holds bottom with no children,
// i.e. carries no information a write could inherit from.
func isBottomNode[E Element[E]](n *node[E]) bool {
	return n == nil || (n.value.Bottom() && len(n.children) == 0)
}

// pruneCovered drops any child whose own stored value is already dominated
// by the accumulator that will now propagate down to it, while preserving
// that child's own children (they may still carry distinguishing
// information deeper down).
func pruneCovered[E Element[E]](children map[PathElement]*node[E], accumulator E) map[PathElement]*node[E] {
	out := make(map[PathElement]*node[E], len(children))
	for k, child := range children {
		if child == nil {
			continue
		}
		if child.value.Leq(accumulator) {
			if len(child.children) == 0 {
				continue
			}
			reduced := cloneShallow(child)
			var zero E
			reduced.value = zero
			out[k] = reduced
			continue
		}
		out[k] = child
	}
	return out
}

func lookupChild[E Element[E]](n *node[E], elem PathElement) (*node[E], bool) {
	if n == nil || n.children == nil {
		return nil, false
	}
	if c, ok := n.children[elem]; ok {
		return c, true
	}
	if elem.Kind() == IndexElement {
		if c, ok := n.children[AnyIndex()]; ok {
			return c, true
		}
	}
	return nil, false
}

// Read returns the subtree rooted at path. If path descends through a
// missing node, a synthesized node is returned whose element is the
// accumulated ancestor propagation seen so far.
func (t *Tree[E]) Read(path Path) *Tree[E] {
	return t.read(path, true)
}

// RawRead is like Read but does not propagate ancestor elements into the
// result: missing paths yield bottom, and the returned root holds only the
// target node's own stored value.
func (t *Tree[E]) RawRead(path Path) *Tree[E] {
	return t.read(path, false)
}

func (t *Tree[E]) read(path Path, propagate bool) *Tree[E] {
	n := t.root
	acc := n.value
	for _, elem := range path {
		child, ok := lookupChild(n, elem)
		if !ok {
			if propagate {
				return &Tree[E]{root: &node[E]{value: acc}, config: t.config}
			}
			return &Tree[E]{root: &node[E]{}, config: t.config}
		}
		n = child
		acc = acc.Join(n.value)
	}
	if !propagate {
		return &Tree[E]{root: &node[E]{value: n.value, children: n.children}, config: t.config}
	}
	return &Tree[E]{root: &node[E]{value: acc, children: n.children}, config: t.config}
}

// collapseNode folds every value reachable from n (including n's own) into
// a single element, applying cfg's hoist transform to each value as it is
// folded up from a child into its parent's accumulator.
func collapseNode[E Element[E]](n *node[E], cfg *Config[E]) E {
	if n == nil {
		var zero E
		return zero
	}
	acc := n.value
	var fold func(*node[E])
	fold = func(c *node[E]) {
		acc = acc.Join(cfg.hoist(c.value))
		for _, gc := range c.children {
			fold(gc)
		}
	}
	for _, c := range n.children {
		fold(c)
	}
	return acc
}

// Collapse folds every descendant element into the root via cfg's hoist
// transform (and, if transform is non-nil, transform as well), returning a
// single-node Tree.
func (t *Tree[E]) Collapse(transform func(E) E) *Tree[E] {
	folded := collapseNode(t.root, t.config)
	if transform != nil {
		folded = transform(folded)
	}
	return &Tree[E]{root: &node[E]{value: folded}, config: t.config}
}

// CollapseDeeperThan collapses every subtree whose depth exceeds h, folding
// the collapsed content into the node at depth h via cfg's hoist transform.
// The result has depth at most h.
func (t *Tree[E]) CollapseDeeperThan(h int) *Tree[E] {
	if h < 0 {
		h = 0
	}
	return &Tree[E]{root: collapseDeeper(t.root, h, t.config), config: t.config}
}

func collapseDeeper[E Element[E]](n *node[E], budget int, cfg *Config[E]) *node[E] {
	if n == nil {
		return nil
	}
	if budget <= 0 {
		acc := n.value
		var fold func(*node[E])
		fold = func(c *node[E]) {
			acc = acc.Join(cfg.hoist(c.value))
			for _, gc := range c.children {
				fold(gc)
			}
		}
		for _, c := range n.children {
			fold(c)
		}
		return &node[E]{value: acc}
	}
	out := &node[E]{value: n.value, children: make(map[PathElement]*node[E], len(n.children))}
	for k, c := range n.children {
		out.children[k] = collapseDeeper(c, budget-1, cfg)
	}
	return out
}

func countLeaves[E Element[E]](n *node[E]) int {
	if n == nil || len(n.children) == 0 {
		return 1
	}
	total := 0
	for _, c := range n.children {
		total += countLeaves(c)
	}
	return total
}

func leafCountAtDepth[E Element[E]](n *node[E], depth int) int {
	if n == nil || depth <= 0 || len(n.children) == 0 {
		return 1
	}
	total := 0
	for _, c := range n.children {
		total += leafCountAtDepth(c, depth-1)
	}
	return total
}

// LimitLeaves finds, via a linear scan over collapse depths, the deepest
// depth whose leaf count is still within maxLeaves (equivalently: one
// shallower than the shallowest depth at which the leaf count first
// exceeds maxLeaves) and collapses to it. If the tree already has at most
// maxLeaves leaves, it is returned unchanged.
func (t *Tree[E]) LimitLeaves(maxLeaves int) *Tree[E] {
	if maxLeaves < 1 {
		maxLeaves = 1
	}
	if countLeaves(t.root) <= maxLeaves {
		return t
	}
	depth := 0
	for leafCountAtDepth(t.root, depth+1) <= maxLeaves {
		depth++
	}
	return t.CollapseDeeperThan(depth)
}

// ShapeWith prunes any branch of t absent from mold, folding its content
// into the nearest ancestor retained by mold's shape, via cfg's hoist
// transform (and transform, if non-nil).
func (t *Tree[E]) ShapeWith(mold *Tree[E], transform func(E) E) *Tree[E] {
	var moldRoot *node[E]
	if mold != nil {
		moldRoot = mold.root
	}
	return &Tree[E]{root: shapeNode(t.root, moldRoot, t.config, transform), config: t.config}
}

func shapeNode[E Element[E]](n, mold *node[E], cfg *Config[E], transform func(E) E) *node[E] {
	if n == nil {
		return nil
	}
	out := &node[E]{value: n.value, children: map[PathElement]*node[E]{}}
	for k, c := range n.children {
		var mc *node[E]
		if mold != nil {
			mc = mold.children[k]
		}
		if mc == nil {
			folded := collapseNode(c, cfg)
			if transform != nil {
				folded = transform(folded)
			}
			out.value = out.value.Join(folded)
			continue
		}
		out.children[k] = shapeNode(c, mc, cfg, transform)
	}
	return out
}

func childKeys[E Element[E]](a, b *node[E]) map[PathElement]struct{} {
	keys := make(map[PathElement]struct{})
	if a != nil {
		for k := range a.children {
			keys[k] = struct{}{}
		}
	}
	if b != nil {
		for k := range b.children {
			keys[k] = struct{}{}
		}
	}
	return keys
}

func childOf[E Element[E]](n *node[E], k PathElement) *node[E] {
	if n == nil {
		return nil
	}
	return n.children[k]
}

// JoinWith returns the least upper bound of t and other. Because of the
// AnyIndex wildcard, comparing two trees' index children requires a
// three-way case split: indices present on both sides join pairwise,
// indices present only on the left join against the right's AnyIndex
// subtree (and vice versa).
func (t *Tree[E]) JoinWith(other *Tree[E]) *Tree[E] {
	return &Tree[E]{root: joinNode(t.root, other.root, t.config), config: t.config}
}

func joinNode[E Element[E]](a, b *node[E], cfg *Config[E]) *node[E] {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := &node[E]{value: a.value.Join(b.value), children: map[PathElement]*node[E]{}}
	aAny, bAny := childOf(a, AnyIndex()), childOf(b, AnyIndex())
	for k := range childKeys(a, b) {
		ac, bc := childOf(a, k), childOf(b, k)
		switch {
		case ac != nil && bc != nil:
			out.children[k] = joinNode(ac, bc, cfg)
		case ac != nil:
			if k.Kind() == IndexElement && bAny != nil {
				out.children[k] = joinNode(ac, bAny, cfg)
			} else {
				out.children[k] = ac
			}
		case bc != nil:
			if k.Kind() == IndexElement && aAny != nil {
				out.children[k] = joinNode(bc, aAny, cfg)
			} else {
				out.children[k] = bc
			}
		}
	}
	return out
}

// WidenWith is like JoinWith but bounded in height by cfg's
// MaxHeightAfterWidening: once the recursion reaches height 0, both sides
// are collapsed to their root (through cfg's widen transform) instead of
// being joined structurally.
func (t *Tree[E]) WidenWith(other *Tree[E]) *Tree[E] {
	return &Tree[E]{root: widenNode(t.root, other.root, t.config.maxHeight(), t.config), config: t.config}
}

func widenNode[E Element[E]](a, b *node[E], height int, cfg *Config[E]) *node[E] {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if height <= 0 {
		v := cfg.widen(collapseNode(a, cfg).Join(collapseNode(b, cfg)))
		return &node[E]{value: v}
	}
	out := &node[E]{value: a.value.Join(b.value), children: map[PathElement]*node[E]{}}
	aAny, bAny := childOf(a, AnyIndex()), childOf(b, AnyIndex())
	for k := range childKeys(a, b) {
		ac, bc := childOf(a, k), childOf(b, k)
		switch {
		case ac != nil && bc != nil:
			out.children[k] = widenNode(ac, bc, height-1, cfg)
		case ac != nil:
			if k.Kind() == IndexElement && bAny != nil {
				out.children[k] = widenNode(ac, bAny, height-1, cfg)
			} else {
				out.children[k] = ac
			}
		case bc != nil:
			if k.Kind() == IndexElement && aAny != nil {
				out.children[k] = widenNode(bc, aAny, height-1, cfg)
			} else {
				out.children[k] = bc
			}
		}
	}
	return out
}

// Map returns a new Tree with every node's own stored value (not the
// ancestor-propagated effective value) replaced by fn, preserving shape.
func (t *Tree[E]) Map(fn func(E) E) *Tree[E] {
	return &Tree[E]{root: mapNode(t.root, fn), config: t.config}
}

func mapNode[E Element[E]](n *node[E], fn func(E) E) *node[E] {
	if n == nil {
		return nil
	}
	out := &node[E]{value: fn(n.value)}
	if n.children != nil {
		out.children = make(map[PathElement]*node[E], len(n.children))
		for k, c := range n.children {
			out.children[k] = mapNode(c, fn)
		}
	}
	return out
}

// Leq reports whether t is less than or equal to other, accounting for
// implicit ancestor propagation on both sides.
func (t *Tree[E]) Leq(other *Tree[E]) bool {
	var zero E
	return leqNode(t.root, other.root, zero, zero)
}

func leqNode[E Element[E]](a, b *node[E], accA, accB E) bool {
	var av, bv E
	if a != nil {
		av = a.value
	}
	if b != nil {
		bv = b.value
	}
	effA, effB := accA.Join(av), accB.Join(bv)
	if !effA.Leq(effB) {
		return false
	}
	for k := range childKeys(a, b) {
		ac, bc := childOf(a, k), childOf(b, k)
		if ac == nil && k.Kind() == IndexElement {
			ac = childOf(a, AnyIndex())
		}
		if bc == nil && k.Kind() == IndexElement {
			bc = childOf(b, AnyIndex())
		}
		if !leqNode(ac, bc, effA, effB) {
			return false
		}
	}
	return true
}
