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

// Package frame implements Frame, the atomic element of taint, and the
// grouping structure KindFrames (frames grouped by call info and
// interval) that sits above it.
package frame

import (
	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/position"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

// CallKind distinguishes the four places a frame can be in its life
// across callsites.
type CallKind int

const (
	// Declaration frames come straight from a model generator template and
	// have not yet crossed any callsite.
	Declaration CallKind = iota
	// Origin frames are leaves: the taint itself was introduced here
	// (distance 0, no callee).
	Origin
	// Callsite frames were produced by propagating a callee's frame across
	// one specific invocation.
	Callsite
	// Propagation frames describe a propagation rule's input-to-output
	// taint shape rather than a concrete source/sink.
	Propagation
)

func (c CallKind) String() string {
	switch c {
	case Declaration:
		return "Declaration"
	case Origin:
		return "Origin"
	case Callsite:
		return "Callsite"
	case Propagation:
		return "Propagation"
	default:
		return "<?callkind>"
	}
}

// ExtraTrace records supplementary provenance attached to a frame for
// diagnostics (e.g. an intermediate hop a reviewer would want to see even
// though it didn't change the frame's kind).
type ExtraTrace struct {
	Message  string
	Position position.Position
}

// Frame is the atomic element of taint: one source/sink/propagation
// record for one kind at one callsite. Frame values
// are immutable; every mutator method returns a modified copy.
type Frame struct {
	Kind   kind.Kind
	Bot    bool // true for the distinguished bottom frame

	CalleePort   accesspath.AccessPath
	CalleeMethod *program.Method // nil means leaf (no callee)
	CallPosition position.Position
	CallKind     CallKind
	Distance     int

	Origins OriginSet

	InferredFeatures        feature.MayAlways
	LocallyInferredFeatures feature.MayAlways
	UserFeatures            feature.Set

	ViaTypeOf  []accesspath.AccessPath
	ViaValueOf []accesspath.AccessPath

	CanonicalNames []string

	OutputPaths *OutputPaths

	Interval IntervalContext

	LocalPositions []position.Position
	ExtraTraces    []ExtraTrace
}

// Bottom is the distinguished bottom Frame: a frame is bottom iff its kind
// is absent.
var Bottom = Frame{Bot: true, Interval: Default, OutputPaths: EmptyOutputPaths()}

// IsBottom reports whether f is the bottom frame.
func (f Frame) IsBottom() bool { return f.Bot }

// Leaf builds an Origin frame for kind k at callee-port port: distance 0,
// no callee, no call position. An origin frame is always a leaf.
func Leaf(k kind.Kind, port accesspath.AccessPath, origins OriginSet, userFeatures feature.Set) Frame {
	return Frame{
		Kind:                    k,
		CalleePort:              port,
		CallKind:                Origin,
		Distance:                0,
		Origins:                 origins,
		InferredFeatures:        feature.MayAlways{},
		LocallyInferredFeatures: feature.MayAlways{},
		UserFeatures:            userFeatures,
		OutputPaths:             EmptyOutputPaths(),
		Interval:                Default,
	}
}

// Declared builds a Declaration frame straight from a model generator
// template: no callee, no call position.
func Declared(k kind.Kind, port accesspath.AccessPath, userFeatures feature.Set) Frame {
	return Frame{
		Kind:         k,
		CalleePort:   port,
		CallKind:     Declaration,
		Distance:     0,
		UserFeatures: userFeatures,
		OutputPaths:  EmptyOutputPaths(),
		Interval:     Default,
	}
}

// PropagationFrame builds a Propagation frame carrying collapse-depth
// information at outputPaths; it is only valid when outputPaths is
// non-bottom.
func PropagationFrame(k kind.Kind, outputPort accesspath.AccessPath, outputPaths *OutputPaths) Frame {
	return Frame{
		Kind:        k,
		CalleePort:  outputPort,
		CallKind:    Propagation,
		OutputPaths: outputPaths,
		Interval:    Default,
	}
}

// sameContext reports whether a and b share a Kind. Frame.Leq/Join are
// only meaningful between frames of the same KindFrames group; callers
// (KindFrames) are responsible for only ever comparing within a group.
func sameContext(a, b Frame) bool {
	return a.Kind == b.Kind
}

// Leq reports whether f is less than or equal to other: both must share
// Kind; distance compares in reverse (smaller distance dominates), and
// origins and user features compare as subsets. No other field is
// compared.
func (f Frame) Leq(other Frame) bool {
	if f.Bot {
		return true
	}
	if other.Bot {
		return false
	}
	if !sameContext(f, other) {
		return false
	}
	if other.Distance > f.Distance {
		return false
	}
	if !other.Origins.Equal(f.Origins.Union(other.Origins)) {
		return false
	}
	if !other.UserFeatures.Equal(f.UserFeatures.Union(other.UserFeatures)) {
		return false
	}
	return true
}

// Join returns the pointwise join of f and other, assuming both share the
// same Kind (callers group frames by kind before calling Join).
func (f Frame) Join(other Frame) Frame {
	if f.Bot {
		return other
	}
	if other.Bot {
		return f
	}
	out := f
	if other.Distance < out.Distance {
		out.Distance = other.Distance
	}
	out.Origins = f.Origins.Union(other.Origins)
	out.InferredFeatures = f.InferredFeatures.Join(other.InferredFeatures)
	out.LocallyInferredFeatures = f.LocallyInferredFeatures.Join(other.LocallyInferredFeatures)
	out.UserFeatures = f.UserFeatures.Union(other.UserFeatures)
	out.ViaTypeOf = unionAccessPaths(f.ViaTypeOf, other.ViaTypeOf)
	out.ViaValueOf = unionAccessPaths(f.ViaValueOf, other.ViaValueOf)
	out.CanonicalNames = unionStrings(f.CanonicalNames, other.CanonicalNames)
	out.OutputPaths = f.OutputPaths.JoinWith(other.OutputPaths)
	if iv, ok := f.Interval.Interval.Intersect(other.Interval.Interval); ok {
		out.Interval = IntervalContext{Interval: iv, PreservesTypeContext: f.Interval.PreservesTypeContext && other.Interval.PreservesTypeContext}
	}
	out.LocalPositions = append(append([]position.Position{}, f.LocalPositions...), other.LocalPositions...)
	out.ExtraTraces = append(append([]ExtraTrace{}, f.ExtraTraces...), other.ExtraTraces...)
	return out
}

func unionAccessPaths(a, b []accesspath.AccessPath) []accesspath.AccessPath {
	seen := map[string]bool{}
	var out []accesspath.AccessPath
	for _, ap := range append(append([]accesspath.AccessPath{}, a...), b...) {
		s := ap.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, ap)
		}
	}
	return out
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// AttachPosition rewrites f's call position to p, adding features to the
// locally-inferred set.
func (f Frame) AttachPosition(p position.Position, features feature.Set) Frame {
	out := f
	out.CallPosition = p
	out.LocallyInferredFeatures = out.LocallyInferredFeatures.AddAlways(features)
	return out
}

// UpdateNonLeafPosition rewrites f's call position via fn and joins in
// extra local positions, but only when f is not a leaf (Origin) frame.
func (f Frame) UpdateNonLeafPosition(fn func(position.Position) position.Position, localPositions []position.Position) Frame {
	if f.CallKind == Origin {
		return f
	}
	out := f
	out.CallPosition = fn(out.CallPosition)
	out.LocalPositions = append(append([]position.Position{}, out.LocalPositions...), localPositions...)
	return out
}

// WithUserFeatures returns a copy of f with additional always-only user
// features.
func (f Frame) WithUserFeatures(fs feature.Set) Frame {
	out := f
	out.UserFeatures = out.UserFeatures.Union(fs)
	return out
}

// WithLocallyInferredFeatures returns a copy of f with additional
// locally-inferred features.
func (f Frame) WithLocallyInferredFeatures(ma feature.MayAlways) Frame {
	out := f
	out.LocallyInferredFeatures = out.LocallyInferredFeatures.Join(ma)
	return out
}
