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

// Package fixpoint implements the interprocedural analysis core: the
// per-method forward and backward transfer functions, the worker-pool
// scheduler that drives every method to a fixpoint over the call graph,
// and the Registry the workers read and update concurrently.
package fixpoint

import (
	"sync"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/model"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"github.com/mariana-trench/mtrench-go/internal/pkg/taint"
)

// Registry is the concurrent method -> Model map every worker reads from
// and joins into. A single mutex guards the whole map rather than one per
// entry: contention is low because a method is only ever written by the
// one worker currently analyzing it, and Get is the hot path every other
// worker uses when resolving a callee's current approximation.
type Registry struct {
	mu     sync.Mutex
	models map[*program.Method]*model.Model
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{models: map[*program.Method]*model.Model{}}
}

// Get returns the method's current Model, or a freshly created empty one
// if this is the first time it has been requested. The empty Model is not
// stored: a method with a body always gets its first real Model from the
// sweep that analyzes it.
func (r *Registry) Get(m *program.Method) *model.Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.models[m]; ok {
		return existing
	}
	return model.New(m)
}

// JoinWith merges next into the method's current Model (creating one if
// absent) and reports whether the stored Model changed, the signal the
// scheduler uses to decide whether a method's callers must be
// rescheduled.
func (r *Registry) JoinWith(m *program.Method, next *model.Model) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.models[m]
	if !ok {
		r.models[m] = next
		return true
	}
	joined := current.JoinWith(next)
	if modelsEqual(current, joined) {
		return false
	}
	r.models[m] = joined
	return true
}

// Snapshot returns every method with a recorded Model, for final issue
// collection once the fixpoint has converged.
func (r *Registry) Snapshot() map[*program.Method]*model.Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[*program.Method]*model.Model, len(r.models))
	for k, v := range r.models {
		out[k] = v
	}
	return out
}

// modelsEqual compares the three trees that feed callers (Generations,
// Sinks, Propagations) via mutual Leq, the same termination test a
// monotone dataflow fixpoint always uses; ParameterSources, the
// call-effect trees, and Issues never propagate past the method that
// raised them, so they are not part of the convergence test.
func modelsEqual(a, b *model.Model) bool {
	return accessPathTreesLeq(a, b) && accessPathTreesLeq(b, a)
}

func accessPathTreesLeq(a, b *model.Model) bool {
	for _, root := range unionRoots(a.Generations, a.Sinks, a.Propagations, b.Generations, b.Sinks, b.Propagations) {
		if !a.Generations.Tree(root).Leq(b.Generations.Tree(root)) {
			return false
		}
		if !a.Sinks.Tree(root).Leq(b.Sinks.Tree(root)) {
			return false
		}
		if !a.Propagations.Tree(root).Leq(b.Propagations.Tree(root)) {
			return false
		}
	}
	return true
}

func unionRoots(trees ...*taint.AccessPathTree) []accesspath.Root {
	seen := map[accesspath.Root]bool{}
	var out []accesspath.Root
	for _, t := range trees {
		for _, root := range t.Roots() {
			if !seen[root] {
				seen[root] = true
				out = append(out, root)
			}
		}
	}
	return out
}
