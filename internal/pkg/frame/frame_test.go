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
	"testing"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
)

func TestPropagateTurnsDeclarationIntoOriginAndOriginIntoCallsite(t *testing.T) {
	// Declaration frames and origin frames diverge after crossing one call:
	// the declaration becomes Origin, the origin becomes Callsite.
	k := kind.NamedKind("K")
	port := accesspath.New(accesspath.ArgumentRoot(0), nil)
	decl := Declared(k, port, feature.NewSet())
	origin := Leaf(k, port, OriginSet{}, feature.NewSet())

	propagatedDecl, ok := decl.Propagate(CallSite{MaxSourceSinkDistance: 10, CallerIntervalContext: Default})
	if !ok {
		t.Fatalf("declaration frame should survive propagate")
	}
	propagatedOrigin, ok := origin.Propagate(CallSite{MaxSourceSinkDistance: 10, CallerIntervalContext: Default})
	if !ok {
		t.Fatalf("origin frame should survive propagate")
	}

	if propagatedDecl.CallKind != Origin {
		t.Fatalf("declaration frame should become Origin after one call, got %v", propagatedDecl.CallKind)
	}
	if propagatedOrigin.CallKind != Callsite {
		t.Fatalf("origin frame should become Callsite after one call, got %v", propagatedOrigin.CallKind)
	}
}

func TestIntervalFilterDropsEmptyIntersection(t *testing.T) {
	// Callee frame with interval [2,3] preserves=true; caller
	// interval-context [4,5] preserves=false -> dropped.
	k := kind.NamedKind("K")
	f := Leaf(k, accesspath.New(accesspath.ArgumentRoot(0), nil), OriginSet{}, feature.NewSet())
	f.Interval = IntervalContext{Interval: ClassInterval{Lower: 2, Upper: 3}, PreservesTypeContext: true}

	_, ok := f.Propagate(CallSite{
		MaxSourceSinkDistance: 10,
		CallerIntervalContext: IntervalContext{Interval: ClassInterval{Lower: 4, Upper: 5}, PreservesTypeContext: false},
	})
	if ok {
		t.Fatalf("frame with disjoint preserved interval should be dropped")
	}
}

func TestIntervalSurvivesWhenNotPreserved(t *testing.T) {
	k := kind.NamedKind("K")
	f := Leaf(k, accesspath.New(accesspath.ArgumentRoot(0), nil), OriginSet{}, feature.NewSet())
	f.Interval = IntervalContext{Interval: ClassInterval{Lower: 2, Upper: 3}, PreservesTypeContext: false}

	propagated, ok := f.Propagate(CallSite{
		MaxSourceSinkDistance: 10,
		CallerIntervalContext: IntervalContext{Interval: ClassInterval{Lower: 4, Upper: 5}, PreservesTypeContext: false},
	})
	if !ok {
		t.Fatalf("non-preserved interval should survive regardless of caller interval")
	}
	if propagated.Interval.Interval != (ClassInterval{Lower: 2, Upper: 3}) {
		t.Fatalf("interval = %v, want original [2,3]", propagated.Interval.Interval)
	}
}

func TestKindFramesJoinIsPointwisePerGroup(t *testing.T) {
	k := kind.NamedKind("K")
	a := Leaf(k, accesspath.New(accesspath.ArgumentRoot(0), nil), OriginSet{}, feature.NewSet())
	b := a
	b.Distance = 5

	kf := EmptyKindFrames().Add(a).Add(b)
	if len(kf.Frames()) != 1 {
		t.Fatalf("same-group frames should join into one entry, got %d", len(kf.Frames()))
	}
	if kf.Frames()[0].Distance != 0 {
		t.Fatalf("joined distance should keep the smaller (dominant) distance, got %d", kf.Frames()[0].Distance)
	}
}
