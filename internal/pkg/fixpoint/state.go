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
	"sync"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pointsto"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"github.com/mariana-trench/mtrench-go/internal/pkg/taint"
)

// registerValue is what one register is known to denote at a given
// program point: its own taint plus, if it refers to a heap object, the
// MemoryLocation that object's fields are tracked under.
type registerValue struct {
	taint taint.Taint
	loc   *pointsto.MemoryLocation
}

// abstractState is the mutable state threaded through one linear sweep of
// a method's instructions (per CFG.InstructionsInOrder, which explicitly
// favors this single total order over a per-block fixpoint for transfer
// functions like these). It is not persistent: a method is swept fresh
// every time it is scheduled, reading only the Registry's current
// approximation of its callees.
type abstractState struct {
	registers map[int]registerValue
	env       *pointsto.Environment
	// heap stores the taint directly written to a memory location by an
	// iput/sput/aput; reads resolve aliasing through env before consulting
	// it, so that a write through one alias is visible through another.
	heap map[*pointsto.MemoryLocation]taint.Taint
	// statics is the field-keyed slice of heap shared, read/write, across
	// every method currently being analyzed: a static field is one memory
	// location for the whole program, not one per method.
	statics *staticHeap
	// lastResult is the register-less taint/location pair produced by the
	// most recently executed invoke, consumed by the following
	// move-result (if any).
	lastResult registerValue
}

func newAbstractState(statics *staticHeap) *abstractState {
	return &abstractState{
		registers: map[int]registerValue{},
		env:       pointsto.NewEnvironment(),
		heap:      map[*pointsto.MemoryLocation]taint.Taint{},
		statics:   statics,
	}
}

func (s *abstractState) get(reg int) registerValue {
	return s.registers[reg]
}

func (s *abstractState) set(reg int, v registerValue) {
	s.registers[reg] = v
}

// fieldLocation resolves the memory location parent.field denotes,
// following the widening resolver so that any cyclic aliasing in env is
// collapsed before this location is used as a heap key.
func (s *abstractState) fieldLocation(parent *pointsto.MemoryLocation, field string) *pointsto.MemoryLocation {
	if parent == nil {
		return pointsto.Field(pointsto.NewFreshRoot(), field)
	}
	resolver := pointsto.NewWideningPointsToResolver(s.env)
	pts := resolver.PointsTo(parent)
	target, ok := pts.IsSingleton()
	if !ok {
		target = parent
	}
	return pointsto.Field(target, field)
}

// readHeap returns the taint stored at loc, which fieldLocation has
// already resolved to its aliasing-widened representative.
func (s *abstractState) readHeap(loc *pointsto.MemoryLocation) taint.Taint {
	return s.heap[loc]
}

// writeHeap performs a weak (joining) write to loc, matching the
// AccessPathTree's own default write strength for inferred information.
func (s *abstractState) writeHeap(loc *pointsto.MemoryLocation, t taint.Taint) {
	s.heap[loc] = s.heap[loc].Join(t)
}

// accessPath projects a memory location back to the caller-visible
// AccessPath it corresponds to, when it is reachable from a Parameter
// root: an object passed in by the caller, possibly through a chain of
// field accesses. Memory locations rooted in a local allocation
// (Instruction/FreshRoot) have no caller-visible name and return ok=false;
// taint on them is still tracked locally but cannot be written into the
// method's Model as a parameter-source or sink entry.
func accessPath(loc *pointsto.MemoryLocation) (accesspath.AccessPath, bool) {
	var path pathtree.Path
	cur := loc
	for cur != nil && cur.Kind() == pointsto.FieldLocation {
		path = append(pathtree.Path{pathtree.Field(cur.FieldName())}, path...)
		cur = cur.Parent()
	}
	if cur == nil || cur.Kind() != pointsto.Parameter {
		return accesspath.AccessPath{}, false
	}
	return accesspath.New(accesspath.ArgumentRoot(cur.ParameterIndex()), path), true
}

// staticHeap is the one taint value per static field, shared across every
// method currently being swept: a static field is a single memory
// location for the whole program, not one per method, so its taint
// cannot live in any one method's local abstractState. Reads and writes
// are both weak joins, the same convergence-friendly write strength every
// other inferred tree in the fixpoint uses.
type staticHeap struct {
	mu     sync.Mutex
	byName map[string]taint.Taint
}

func newStaticHeap() *staticHeap {
	return &staticHeap{byName: map[string]taint.Taint{}}
}

func (h *staticHeap) read(field *program.Field) taint.Taint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.byName[field.String()]
}

// write joins t into the field's current taint and reports whether the
// value changed. stepSPut ignores the result: a change to a static does
// not by itself reschedule the methods that read it.
func (h *staticHeap) write(field *program.Field, t taint.Taint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := field.String()
	joined := h.byName[key].Join(t)
	if joined.Leq(h.byName[key]) {
		return false
	}
	h.byName[key] = joined
	return true
}
