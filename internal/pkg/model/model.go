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

// Package model implements the Method Summary (Model): a per-method
// taint summary built in three phases (declaration, instantiation,
// inference), the operations the fixpoint uses to read and update it, and
// the callsite-specific CalleeModel view produced by PropagateAtCallsite.
package model

import (
	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/frame"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"github.com/mariana-trench/mtrench-go/internal/pkg/taint"
)

// Model is a method's taint summary: five AccessPath→Taint trees
// (Generations, ParameterSources, Sinks, CallEffectSources,
// CallEffectSinks), one Propagations tree, sanitizer sets, attach-to-*
// feature sets, an add-features-to-arguments map, inline-as-getter/setter
// flags, an issue set, a freeze mask, and a mode bitset.
type Model struct {
	Method *program.Method

	Generations       *taint.AccessPathTree
	ParameterSources  *taint.AccessPathTree
	Sinks             *taint.AccessPathTree
	CallEffectSources *taint.AccessPathTree
	CallEffectSinks   *taint.AccessPathTree
	Propagations      *taint.AccessPathTree

	GlobalSanitizers  []Sanitizer
	PerRootSanitizers map[accesspath.Root][]Sanitizer

	AttachToSources        map[accesspath.Root]feature.Set
	AttachToSinks          map[accesspath.Root]feature.Set
	AttachToPropagations   map[accesspath.Root]feature.Set
	AddFeaturesToArguments map[accesspath.Root]feature.Set

	InlineAsGetter bool
	InlineAsSetter bool

	Issues Set

	Freeze FreezeKind
	Mode   Mode
}

// New creates an empty Model for method, created empty and only mutated
// through the documented add-* operations until the fixpoint finishes.
func New(method *program.Method) *Model {
	return &Model{
		Method:                 method,
		Generations:            taint.NewAccessPathTree(),
		ParameterSources:       taint.NewAccessPathTree(),
		Sinks:                  taint.NewAccessPathTree(),
		CallEffectSources:      taint.NewAccessPathTree(),
		CallEffectSinks:        taint.NewAccessPathTree(),
		Propagations:           taint.NewAccessPathTree(),
		PerRootSanitizers:      map[accesspath.Root][]Sanitizer{},
		AttachToSources:        map[accesspath.Root]feature.Set{},
		AttachToSinks:          map[accesspath.Root]feature.Set{},
		AttachToPropagations:   map[accesspath.Root]feature.Set{},
		AddFeaturesToArguments: map[accesspath.Root]feature.Set{},
	}
}

// Clone returns a shallow copy of m suitable as the basis for a mutated
// copy (Model fields are persistent, so sharing the trees is safe).
func (m *Model) Clone() *Model {
	out := *m
	out.PerRootSanitizers = cloneSanitizerMap(m.PerRootSanitizers)
	out.AttachToSources = cloneFeatureMap(m.AttachToSources)
	out.AttachToSinks = cloneFeatureMap(m.AttachToSinks)
	out.AttachToPropagations = cloneFeatureMap(m.AttachToPropagations)
	out.AddFeaturesToArguments = cloneFeatureMap(m.AddFeaturesToArguments)
	return &out
}

func cloneSanitizerMap(m map[accesspath.Root][]Sanitizer) map[accesspath.Root][]Sanitizer {
	out := make(map[accesspath.Root][]Sanitizer, len(m))
	for k, v := range m {
		out[k] = append([]Sanitizer{}, v...)
	}
	return out
}

func cloneFeatureMap(m map[accesspath.Root]feature.Set) map[accesspath.Root]feature.Set {
	out := make(map[accesspath.Root]feature.Set, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AddInferredGeneration inserts taint at port into Generations, unless
// FreezeGenerations is set.
// The underlying tree performs widening internally when height/leaf
// limits are exceeded; wideningFeatures are attached to any taint folded
// by that widening.
func (m *Model) AddInferredGeneration(port accesspath.AccessPath, t taint.Taint, wideningFeatures feature.Set) *Model {
	if m.Freeze.Has(FreezeGenerations) {
		return m
	}
	out := m.Clone()
	out.Generations = addTaint(m.Generations, port, t, wideningFeatures)
	return out
}

// AddInferredParameterSource is the Argument-side analogue of
// AddInferredGeneration: it records a source discovered flowing into a
// parameter, frozen by FreezeParameterSources.
func (m *Model) AddInferredParameterSource(port accesspath.AccessPath, t taint.Taint, wideningFeatures feature.Set) *Model {
	if m.Freeze.Has(FreezeParameterSources) {
		return m
	}
	out := m.Clone()
	out.ParameterSources = addTaint(m.ParameterSources, port, t, wideningFeatures)
	return out
}

// AddInferredSink inserts taint at port into Sinks, frozen by FreezeSinks.
func (m *Model) AddInferredSink(port accesspath.AccessPath, t taint.Taint, wideningFeatures feature.Set) *Model {
	if m.Freeze.Has(FreezeSinks) {
		return m
	}
	out := m.Clone()
	out.Sinks = addTaint(m.Sinks, port, t, wideningFeatures)
	return out
}

// AddInferredPropagation inserts taint at inputPort into Propagations,
// frozen by FreezePropagations.
func (m *Model) AddInferredPropagation(inputPort accesspath.AccessPath, t taint.Taint, wideningFeatures feature.Set) *Model {
	if m.Freeze.Has(FreezePropagations) {
		return m
	}
	out := m.Clone()
	out.Propagations = addTaint(m.Propagations, inputPort, t, wideningFeatures)
	return out
}

func addTaint(tree *taint.AccessPathTree, port accesspath.AccessPath, t taint.Taint, wideningFeatures feature.Set) *taint.AccessPathTree {
	if !wideningFeatures.Empty() {
		t = t.TransformKind(
			func(k kind.Kind) []kind.Kind { return []kind.Kind{k} },
			func(kind.Kind) feature.Set { return wideningFeatures },
		)
	}
	return tree.Write(port, t, pathtree.Weak)
}

// AddIssue appends issue to the model's issue set.
func (m *Model) AddIssue(issue Issue) *Model {
	out := m.Clone()
	out.Issues = m.Issues.Add(issue)
	return out
}

// AddSanitizer adds a global sanitizer.
func (m *Model) AddSanitizer(s Sanitizer) *Model {
	out := m.Clone()
	out.GlobalSanitizers = append(append([]Sanitizer{}, m.GlobalSanitizers...), s)
	return out
}

// AddRootSanitizer adds a sanitizer scoped to root.
func (m *Model) AddRootSanitizer(root accesspath.Root, s Sanitizer) *Model {
	out := m.Clone()
	out.PerRootSanitizers[root] = append(append([]Sanitizer{}, m.PerRootSanitizers[root]...), s)
	return out
}

// AddAttachToSources unions fs into the attach-to-sources feature set for
// root.
func (m *Model) AddAttachToSources(root accesspath.Root, fs feature.Set) *Model {
	out := m.Clone()
	out.AttachToSources[root] = out.AttachToSources[root].Union(fs)
	return out
}

// AddAttachToSinks unions fs into the attach-to-sinks feature set for root.
func (m *Model) AddAttachToSinks(root accesspath.Root, fs feature.Set) *Model {
	out := m.Clone()
	out.AttachToSinks[root] = out.AttachToSinks[root].Union(fs)
	return out
}

// AddAttachToPropagations unions fs into the attach-to-propagations
// feature set for root.
func (m *Model) AddAttachToPropagations(root accesspath.Root, fs feature.Set) *Model {
	out := m.Clone()
	out.AttachToPropagations[root] = out.AttachToPropagations[root].Union(fs)
	return out
}

// AddAddFeaturesToArguments unions fs into the add-features-to-arguments
// set for root.
func (m *Model) AddAddFeaturesToArguments(root accesspath.Root, fs feature.Set) *Model {
	out := m.Clone()
	out.AddFeaturesToArguments[root] = out.AddFeaturesToArguments[root].Union(fs)
	return out
}

// ApplySanitizers removes, from t, every frame whose kind a global
// sanitizer, or a per-root sanitizer for root, on the given target
// removes.
func (m *Model) ApplySanitizers(target SanitizerTarget, root accesspath.Root, t taint.Taint) taint.Taint {
	for _, s := range m.GlobalSanitizers {
		if s.Target != target {
			continue
		}
		t = removeSanitized(t, s)
	}
	for _, s := range m.PerRootSanitizers[root] {
		if s.Target != target {
			continue
		}
		t = removeSanitized(t, s)
	}
	return t
}

func removeSanitized(t taint.Taint, s Sanitizer) taint.Taint {
	out := taint.Zero
	for _, k := range t.Kinds() {
		if s.Sanitizes(k) {
			continue
		}
		for _, f := range t.Frames(k) {
			out = out.Add(f)
		}
	}
	return out
}

// JoinWith merges two Models for the same method, as produced by
// resolving overrides at a virtual callsite. Frozen trees are not
// widened by the join; they simply win over an unfrozen counterpart.
func (m *Model) JoinWith(other *Model) *Model {
	out := m.Clone()
	out.Generations = joinTrees(m.Freeze, FreezeGenerations, m.Generations, other.Generations)
	out.ParameterSources = joinTrees(m.Freeze, FreezeParameterSources, m.ParameterSources, other.ParameterSources)
	out.Sinks = joinTrees(m.Freeze, FreezeSinks, m.Sinks, other.Sinks)
	out.CallEffectSources = m.CallEffectSources.Join(other.CallEffectSources)
	out.CallEffectSinks = m.CallEffectSinks.Join(other.CallEffectSinks)
	out.Propagations = joinTrees(m.Freeze, FreezePropagations, m.Propagations, other.Propagations)
	out.Issues = m.Issues
	for _, issue := range other.Issues.All() {
		out.Issues = out.Issues.Add(issue)
	}
	out.Freeze = m.Freeze | other.Freeze
	out.Mode = m.Mode | other.Mode
	return out
}

func joinTrees(freeze, flag FreezeKind, a, b *taint.AccessPathTree) *taint.AccessPathTree {
	if freeze.Has(flag) {
		return a
	}
	return a.Join(b)
}

// CalleeModel is the read-only, callsite-specialized view of a Model that
// the fixpoint consults when processing an invoke instruction: every
// source/sink/propagation tree with its frames already advanced across
// the call.
type CalleeModel struct {
	Generations       *taint.AccessPathTree
	ParameterSources  *taint.AccessPathTree
	Sinks             *taint.AccessPathTree
	CallEffectSources *taint.AccessPathTree
	CallEffectSinks   *taint.AccessPathTree
	Propagations      *taint.AccessPathTree
}

// PropagateAtCallsite advances every tree in m across a single call,
// producing the CalleeModel the caller-side transfer function reads from.
// portOf maps the callee's own port (as stored in m) to the CallSite used
// for Taint.Propagate at that port; distinct ports can cross with distinct
// callee-interval contexts when overrides narrow the receiver's type.
func (m *Model) PropagateAtCallsite(portOf func(accesspath.Root) frame.CallSite) *CalleeModel {
	return &CalleeModel{
		Generations:       propagateTree(m.Generations, portOf),
		ParameterSources:  propagateTree(m.ParameterSources, portOf),
		Sinks:             propagateTree(m.Sinks, portOf),
		CallEffectSources: propagateTree(m.CallEffectSources, portOf),
		CallEffectSinks:   propagateTree(m.CallEffectSinks, portOf),
		Propagations:      propagateTree(m.Propagations, portOf),
	}
}

func propagateTree(tree *taint.AccessPathTree, portOf func(accesspath.Root) frame.CallSite) *taint.AccessPathTree {
	out := taint.NewAccessPathTree()
	for _, root := range tree.Roots() {
		propagated := taint.PropagateTree(tree.Tree(root), portOf(root))
		out = out.JoinRootTree(root, propagated)
	}
	return out
}
