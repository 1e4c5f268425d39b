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

package pointsto

import (
	"testing"

	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
)

func TestCycleWideningCollapsesSCC(t *testing.T) {
	// Environment {r1.a -> r2, r2.b -> r1}: the resolver identifies
	// {r1, r2} as a strongly connected component with some head, and
	// reads via that cycle return the head with always-collapse.
	r1, r2 := NewFreshRoot(), NewFreshRoot()
	env := NewEnvironment()
	env.byRoot[r1] = NewTree().Write(pathtree.Path{pathtree.Field("a")}, Singleton(r2, AliasingProperties{}), pathtree.Strong)
	env.byRoot[r2] = NewTree().Write(pathtree.Path{pathtree.Field("b")}, Singleton(r1, AliasingProperties{}), pathtree.Strong)

	resolver := NewWideningPointsToResolver(env)

	r1a := Field(r1, "a")
	pts := resolver.PointsTo(r1a)
	target, ok := pts.IsSingleton()
	if !ok {
		t.Fatalf("widened resolution should yield a singleton, got %d targets", len(pts.Targets()))
	}
	if !pts.PropertiesFor(target).AlwaysCollapse {
		t.Fatalf("widened cycle member should be tagged always-collapse")
	}
}

func TestDirectResolverFallsBackToSingleton(t *testing.T) {
	m := NewFreshRoot()
	pts := DirectResolver.PointsTo(m)
	target, ok := pts.IsSingleton()
	if !ok || target != m {
		t.Fatalf("direct resolver should fall back to the singleton {self}")
	}
}

func TestWriteStrongReplacesSingleton(t *testing.T) {
	env := NewEnvironment()
	a := NewFreshRoot()
	x, y := NewFreshRoot(), NewFreshRoot()
	env = env.Write(DirectResolver, a, "f", Singleton(x, AliasingProperties{}), pathtree.Strong)
	env = env.Write(DirectResolver, a, "f", Singleton(y, AliasingProperties{}), pathtree.Strong)

	pts := env.Get(a).Read(pathtree.Path{pathtree.Field("f")}).Element()
	if _, ok := pts.IsSingleton(); !ok {
		t.Fatalf("strong write should replace, want singleton {y}")
	}
	if target, _ := pts.IsSingleton(); target != y {
		t.Fatalf("strong write should replace with the latest target")
	}
}
