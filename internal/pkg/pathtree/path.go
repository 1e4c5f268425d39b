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

// Package pathtree implements the abstract tree domain used to represent
// taint and points-to information keyed by access paths: a map from a
// sequence of PathElements to an element of some join semi-lattice, where
// values stored at interior nodes are implicitly propagated to every
// descendant.
package pathtree

import "strconv"

// ElementKind distinguishes the three PathElement variants.
type ElementKind int

const (
	// FieldElement selects a named field, e.g. ".x".
	FieldElement ElementKind = iota
	// IndexElement selects a literal index, e.g. "[3]".
	IndexElement
	// AnyIndexElement is the wildcard index "[*]": it matches any index not
	// otherwise present as a sibling IndexElement.
	AnyIndexElement
)

// PathElement is one step of a Path: a field name, a literal index, or the
// AnyIndex wildcard. It is comparable so it can be used as a map key.
type PathElement struct {
	kind  ElementKind
	name  string
	index int
}

// Field constructs a PathElement that selects a named field.
func Field(name string) PathElement { return PathElement{kind: FieldElement, name: name} }

// Index constructs a PathElement that selects a literal index.
func Index(i int) PathElement { return PathElement{kind: IndexElement, index: i} }

// AnyIndex is the wildcard index path element.
func AnyIndex() PathElement { return PathElement{kind: AnyIndexElement} }

// Kind returns which variant this PathElement is.
func (p PathElement) Kind() ElementKind { return p.kind }

// Name returns the field name; only meaningful when Kind() == FieldElement.
func (p PathElement) Name() string { return p.name }

// Idx returns the literal index; only meaningful when Kind() == IndexElement.
func (p PathElement) Idx() int { return p.index }

// IsIndexLike reports whether this element occupies the index namespace
// (a literal Index or the AnyIndex wildcard), as opposed to a Field.
func (p PathElement) IsIndexLike() bool {
	return p.kind == IndexElement || p.kind == AnyIndexElement
}

func (p PathElement) String() string {
	switch p.kind {
	case FieldElement:
		return "." + p.name
	case IndexElement:
		return "[" + strconv.Itoa(p.index) + "]"
	case AnyIndexElement:
		return "[*]"
	default:
		return "<?>"
	}
}

// Path is an ordered sequence of PathElements.
type Path []PathElement

// Append returns a new Path with elem appended; it does not mutate p.
func (p Path) Append(elem PathElement) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

func (p Path) String() string {
	s := ""
	for _, e := range p {
		s += e.String()
	}
	return s
}
