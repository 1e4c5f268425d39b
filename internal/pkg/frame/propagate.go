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

package frame

import (
	"strings"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/position"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

// CallSite bundles the callsite-specific inputs Propagate needs: which
// method was called, at which port, at which position, under what caller
// interval context.
type CallSite struct {
	Callee                  *program.Method
	CalleePort              accesspath.AccessPath
	Position                position.Position
	LocallyInferredFeatures feature.MayAlways
	MaxSourceSinkDistance   int
	CallerIntervalContext   IntervalContext
	CallerInterval          ClassInterval
}

// canonicalizeForMethod realizes crtex canonical-name placeholders with
// the callee's signature substituted for "%programmatic_leaf_name%" and
// "%via_type_of%".
func canonicalizeForMethod(names []string, callee *program.Method) []string {
	if callee == nil {
		return names
	}
	out := make([]string, len(names))
	for i, n := range names {
		n = strings.ReplaceAll(n, "%programmatic_leaf_name%", callee.Signature())
		n = strings.ReplaceAll(n, "%via_type_of%", callee.Class())
		out[i] = n
	}
	return out
}

// Propagate is the core callsite-crossing operation: given a frame at the
// callee and the callsite it is being read through, produce the frame as
// it should be seen by the caller. It returns (frame, ok); ok is false
// when the frame should be dropped (empty interval intersection, or
// distance budget exhausted).
func (f Frame) Propagate(cs CallSite) (Frame, bool) {
	if f.Bot {
		return Bottom, false
	}

	out := f
	out.CalleeMethod = cs.Callee
	out.CalleePort = cs.CalleePort
	out.CallPosition = cs.Position

	switch f.CallKind {
	case Declaration:
		out.CallKind = Origin
	case Origin, Callsite:
		out.CallKind = Callsite
	case Propagation:
		out.CallKind = Callsite
	}

	isAnchor := len(f.CanonicalNames) > 0

	if isAnchor {
		out.Distance = 0
		out.CanonicalNames = canonicalizeForMethod(f.CanonicalNames, cs.Callee)
	} else {
		out.Distance = f.Distance + 1
		if out.Distance > cs.MaxSourceSinkDistance {
			return Bottom, false
		}
	}

	switch {
	case f.CallKind == Declaration:
		out.Interval = IntervalContext{Interval: cs.CallerInterval, PreservesTypeContext: true}
	case f.Interval.PreservesTypeContext:
		intersected, ok := f.Interval.Interval.Intersect(cs.CallerIntervalContext.Interval)
		if !ok {
			return Bottom, false
		}
		out.Interval = IntervalContext{Interval: intersected, PreservesTypeContext: true}
	default:
		out.Interval = IntervalContext{Interval: f.Interval.Interval, PreservesTypeContext: false}
	}

	mergedInferred := f.InferredFeatures.Join(f.LocallyInferredFeatures)
	out.InferredFeatures = mergedInferred
	out.LocallyInferredFeatures = cs.LocallyInferredFeatures

	return out, true
}
