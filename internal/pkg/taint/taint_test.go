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

package taint

import (
	"testing"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/frame"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/position"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

func TestSinglePropagationScenario(t *testing.T) {
	// "f(x) { return x; }" with mode TaintInTaintOut: calling y = f(s) where
	// s holds Source kind K should yield y with one frame kind=K, distance=1,
	// callee=f.
	src := kind.NamedKind("K")
	leaf := frame.Leaf(src, accesspath.New(accesspath.ArgumentRoot(0), nil), frame.OriginSet{}, feature.NewSet())
	tt := Zero.Add(leaf)

	propagated := tt.Propagate(frame.CallSite{
		Callee:                program.NewMethod("Lf;.f:(I)I", "Lf;", false, false, false, false, []string{"I"}, nil),
		CalleePort:            accesspath.New(accesspath.ReturnRoot(), nil),
		Position:              position.Intern("Caller.java", 10),
		MaxSourceSinkDistance: 10,
		CallerIntervalContext: frame.Default,
		CallerInterval:        frame.ClassInterval{},
	})

	frames := propagated.Frames(src)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	got := frames[0]
	if got.Distance != 1 {
		t.Fatalf("distance = %d, want 1", got.Distance)
	}
	if got.CallKind != frame.Callsite {
		t.Fatalf("call kind = %v, want Callsite (an Origin frame propagated across one call becomes Callsite)", got.CallKind)
	}
}

func TestPropagateDropsFrameBeyondMaxDistance(t *testing.T) {
	src := kind.NamedKind("K")
	leaf := frame.Leaf(src, accesspath.New(accesspath.ArgumentRoot(0), nil), frame.OriginSet{}, feature.NewSet())
	tt := Zero.Add(leaf)

	propagated := tt.Propagate(frame.CallSite{
		CalleePort:            accesspath.New(accesspath.ReturnRoot(), nil),
		MaxSourceSinkDistance: 0,
		CallerIntervalContext: frame.Default,
	})
	if !propagated.Bottom() {
		t.Fatalf("expected frame beyond max distance to be dropped, got %v", propagated.AllFrames())
	}
}

func TestDifferenceOfSelfIsBottom(t *testing.T) {
	src := kind.NamedKind("K")
	leaf := frame.Leaf(src, accesspath.New(accesspath.ArgumentRoot(0), nil), frame.OriginSet{}, feature.NewSet())
	tt := Zero.Add(leaf)

	if d := tt.Difference(tt); !d.Bottom() {
		t.Fatalf("difference(x, x) should be bottom, got %v", d.AllFrames())
	}
}

func TestJoinIsUpperBound(t *testing.T) {
	k1, k2 := kind.NamedKind("K1"), kind.NamedKind("K2")
	x := Zero.Add(frame.Leaf(k1, accesspath.New(accesspath.ArgumentRoot(0), nil), frame.OriginSet{}, feature.NewSet()))
	y := Zero.Add(frame.Leaf(k2, accesspath.New(accesspath.ArgumentRoot(1), nil), frame.OriginSet{}, feature.NewSet()))

	j := x.Join(y)
	if !x.Leq(j) || !y.Leq(j) {
		t.Fatalf("join should be an upper bound of both operands")
	}
}
