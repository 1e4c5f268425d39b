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

package fixpoint

import (
	"context"
	"runtime"
	"sync"

	"github.com/mariana-trench/mtrench-go/internal/pkg/callgraph"
	"github.com/mariana-trench/mtrench-go/internal/pkg/diag"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"golang.org/x/sync/errgroup"
)

// task identifies one sweep: a method's forward pass (param < 0) or the
// backward pass probing whether its param-th parameter reaches a sink.
type task struct {
	method *program.Method
	param  int
}

// Run drives every method in prog to a fixpoint over graph: each method is
// swept forward once per round plus once per parameter backward, joined
// into the returned Registry, and rescheduled whenever one of its callees'
// Models changes underneath it. Rounds run until no Model changes, or
// until opts.MaxIterations re-sweeps have been spent on every method still
// changing, whichever comes first.
func Run(prog *program.Program, opts Options) *Registry {
	if opts.Diagnostics == nil {
		opts.Diagnostics = &diag.Collector{}
	}
	reg := NewRegistry()
	for m, initial := range opts.InitialModels {
		reg.JoinWith(m, initial)
	}
	statics := newStaticHeap()
	callers := buildCallerIndex(prog, opts.Graph)

	iterations := map[task]int{}
	frontier := initialFrontier(prog)

	for len(frontier) > 0 {
		changed := runRound(frontier, reg, statics, opts, iterations)
		frontier = nextFrontier(changed, callers)
	}
	return reg
}

func initialFrontier(prog *program.Program) []task {
	var out []task
	for _, m := range prog.Methods {
		out = append(out, task{method: m, param: -1})
		for i := 0; i < m.NumParameters(); i++ {
			out = append(out, task{method: m, param: i})
		}
	}
	return out
}

// runRound sweeps every task in frontier concurrently, bounded by
// runtime.GOMAXPROCS, and returns the set of methods whose joined Model
// actually changed.
func runRound(frontier []task, reg *Registry, statics *staticHeap, opts Options, iterations map[task]int) []*program.Method {
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	g, _ := errgroup.WithContext(context.Background())

	var mu sync.Mutex
	var changed []*program.Method
	var iterMu sync.Mutex

	for _, t := range frontier {
		t := t
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			iterMu.Lock()
			n := iterations[t]
			iterations[t] = n + 1
			iterMu.Unlock()

			if n >= opts.maxIterations() {
				opts.Stats.addBudgetExhausted()
				opts.Diagnostics.Add(diag.BudgetExhaustion(t.method.Signature(), "exceeded %d sweeps", opts.maxIterations()))
				return nil
			}

			sweeper := newSweeper(t.method, opts.Graph, reg, opts.Rules, opts.MultiSource, statics, opts, t.param)
			before := sweeper.out.Issues.Len()
			result := sweeper.run()
			opts.Stats.addMethodAnalyzed(n > 0)
			opts.Stats.addIssuesFound(result.Issues.Len() - before)

			if reg.JoinWith(t.method, result) {
				mu.Lock()
				changed = append(changed, t.method)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return changed
}

// nextFrontier reschedules every caller of a changed method, both
// forward and every backward parameter probe, since a callee's new Model
// can only be observed by resweeping the call site that reads it.
func nextFrontier(changed []*program.Method, callers map[*program.Method][]*program.Method) []task {
	seen := map[task]bool{}
	var out []task
	add := func(m *program.Method) {
		t := task{method: m, param: -1}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
		for i := 0; i < m.NumParameters(); i++ {
			t := task{method: m, param: i}
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	for _, m := range changed {
		for _, caller := range callers[m] {
			add(caller)
		}
	}
	return out
}

// buildCallerIndex inverts graph's per-callsite resolution into a
// callee -> callers map, scanning every invoke instruction in the program
// once up front; the fixpoint reads this index every round rather than
// rescanning instructions each time a method's Model changes.
func buildCallerIndex(prog *program.Program, graph *callgraph.Graph) map[*program.Method][]*program.Method {
	out := map[*program.Method][]*program.Method{}
	add := func(callee, caller *program.Method) {
		for _, existing := range out[callee] {
			if existing == caller {
				return
			}
		}
		out[callee] = append(out[callee], caller)
	}
	for _, caller := range prog.Methods {
		code := caller.Code()
		if code == nil {
			continue
		}
		for _, insn := range code.InstructionsInOrder() {
			if insn.Op != program.OpInvoke {
				continue
			}
			for _, callee := range graph.Callee(caller, insn).Targets() {
				add(callee, caller)
			}
			for _, ac := range graph.ArtificialCallees(caller, insn) {
				add(ac.Target, caller)
			}
		}
	}
	return out
}
