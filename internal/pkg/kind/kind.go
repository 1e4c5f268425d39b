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

// Package kind implements the finite, process-wide universe of taint Kind
// values: named sources/sinks declared by model generators, the two
// synthetic propagation kinds every method implicitly carries, and
// TransformKind, which wraps a base kind with the ordered list of local and
// global transforms applied to it so far.
package kind

import (
	"fmt"
	"strings"

	"github.com/mariana-trench/mtrench-go/internal/pkg/intern"
)

// Variant distinguishes the three base Kind subvariants.
type Variant int

const (
	// Named is a user-declared source or sink kind, e.g. "UserInput".
	Named Variant = iota
	// LocalReturn is the propagation kind "argument flows to the return value".
	LocalReturn
	// LocalArgument is the propagation kind "argument flows to argument i".
	LocalArgument
)

// Kind is an interned, comparable handle for a base taint kind. Two Kind
// values compare equal iff they were interned from the same (variant,
// name, argument) tuple; callers should always go through the package-level
// constructors rather than building a Kind literal.
type Kind struct {
	variant Variant
	name    string
	arg     int
}

// NamedKind returns the interned Kind for a user-declared source or sink
// name, e.g. kind.NamedKind("UserInput").
func NamedKind(name string) Kind { return interned(Kind{variant: Named, name: name}) }

// LocalReturnKind is the propagation kind meaning "this argument flows,
// within this one method, into the return value".
func LocalReturnKind() Kind { return interned(Kind{variant: LocalReturn}) }

// LocalArgumentKind is the propagation kind meaning "this argument flows,
// within this one method, into argument at position arg".
func LocalArgumentKind(arg int) Kind { return interned(Kind{variant: LocalArgument, arg: arg}) }

var internTable = intern.NewTable[Kind, Kind]()

func interned(k Kind) Kind {
	return *internTable.Intern(k, func() Kind { return k })
}

// IsPropagation reports whether this is one of the two synthetic
// propagation kinds rather than a user-declared named kind.
func (k Kind) IsPropagation() bool {
	return k.variant == LocalReturn || k.variant == LocalArgument
}

// Name returns the declared name; only meaningful for Named kinds.
func (k Kind) Name() string { return k.name }

// Argument returns the target argument position; only meaningful for
// LocalArgument kinds.
func (k Kind) Argument() int { return k.arg }

func (k Kind) String() string {
	switch k.variant {
	case Named:
		return k.name
	case LocalReturn:
		return "<local-return>"
	case LocalArgument:
		return fmt.Sprintf("<local-argument:%d>", k.arg)
	default:
		return "<?kind>"
	}
}

// Transform is one named flow-shaping operation in a TransformKind's
// alphabet, e.g. a sanitizer or a "propagate-as" rewrite declared by a
// model generator.
type Transform struct {
	Name string
}

// TransformKind wraps a Base kind with the ordered lists of local and
// global transforms that have been applied to it, oldest first. Two
// TransformKind values with the same Base but different transform lists
// are distinct kinds for lattice purposes: a source that has passed
// through a sanitizing transform is no longer the same kind as the one
// that has not.
type TransformKind struct {
	Base    Kind
	Local   []Transform
	Global  []Transform
}

// WithLocal returns a copy of t with an additional local transform
// appended.
func (t TransformKind) WithLocal(tr Transform) TransformKind {
	out := t
	out.Local = append(append([]Transform{}, t.Local...), tr)
	return out
}

// WithGlobal returns a copy of t with an additional global transform
// appended.
func (t TransformKind) WithGlobal(tr Transform) TransformKind {
	out := t
	out.Global = append(append([]Transform{}, t.Global...), tr)
	return out
}

func (t TransformKind) String() string {
	if len(t.Local) == 0 && len(t.Global) == 0 {
		return t.Base.String()
	}
	var parts []string
	for _, tr := range t.Local {
		parts = append(parts, "local:"+tr.Name)
	}
	for _, tr := range t.Global {
		parts = append(parts, "global:"+tr.Name)
	}
	return t.Base.String() + "[" + strings.Join(parts, ",") + "]"
}
