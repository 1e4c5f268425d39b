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

// Package accesspath implements Root and AccessPath: the
// anchor a taint tree or points-to tree's Path is read relative to.
package accesspath

import (
	"fmt"

	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
)

// RootKind distinguishes the six Root variants.
type RootKind int

const (
	// Return anchors the method's return value.
	Return RootKind = iota
	// Argument anchors the parameter at Position.
	Argument
	// Leaf anchors a model generator's raw leaf ports, before
	// instantiation binds them to a concrete position.
	Leaf
	// Anchor anchors a crtex (cross-repository-taint-exchange) canonical
	// port, resolved by name rather than by a physical method.
	Anchor
	// Producer anchors a synthesized producer id (e.g. an artificial
	// source's identity), used to recover which parameter a return-time
	// frame originated from.
	Producer
	// CallEffect anchors a named call-effect (e.g. an Intent payload
	// observed at a callsite) rather than a register.
	CallEffect
)

func (k RootKind) String() string {
	switch k {
	case Return:
		return "Return"
	case Argument:
		return "Argument"
	case Leaf:
		return "Leaf"
	case Anchor:
		return "Anchor"
	case Producer:
		return "Producer"
	case CallEffect:
		return "CallEffect"
	default:
		return "<?root>"
	}
}

// Root is the anchor of an AccessPath: a tagged variant over the six
// RootKind values. Position is meaningful for Argument; ID is meaningful
// for Producer; Name is meaningful for Anchor and CallEffect.
type Root struct {
	Kind     RootKind
	Position int
	ID       int
	Name     string
}

// ReturnRoot is the Return root.
func ReturnRoot() Root { return Root{Kind: Return} }

// ArgumentRoot anchors the parameter at position i.
func ArgumentRoot(i int) Root { return Root{Kind: Argument, Position: i} }

// LeafRoot is the Leaf root.
func LeafRoot() Root { return Root{Kind: Leaf} }

// AnchorRoot anchors a crtex canonical port named name.
func AnchorRoot(name string) Root { return Root{Kind: Anchor, Name: name} }

// ProducerRoot anchors a synthesized producer id.
func ProducerRoot(id int) Root { return Root{Kind: Producer, ID: id} }

// CallEffectRoot anchors a named call effect.
func CallEffectRoot(name string) Root { return Root{Kind: CallEffect, Name: name} }

func (r Root) String() string {
	switch r.Kind {
	case Argument:
		return fmt.Sprintf("Argument(%d)", r.Position)
	case Producer:
		return fmt.Sprintf("Producer(%d)", r.ID)
	case Anchor:
		return fmt.Sprintf("Anchor(%s)", r.Name)
	case CallEffect:
		return fmt.Sprintf("CallEffect(%s)", r.Name)
	default:
		return r.Kind.String()
	}
}

// AccessPath is a Root plus the Path of field/index labels read relative
// to it.
type AccessPath struct {
	Root Root
	Path pathtree.Path
}

// New builds an AccessPath.
func New(root Root, path pathtree.Path) AccessPath { return AccessPath{Root: root, Path: path} }

// Extend returns a copy of a with elem appended to its Path.
func (a AccessPath) Extend(elem pathtree.PathElement) AccessPath {
	return AccessPath{Root: a.Root, Path: a.Path.Append(elem)}
}

func (a AccessPath) String() string {
	return a.Root.String() + a.Path.String()
}
