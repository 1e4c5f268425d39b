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
	"fmt"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/callgraph"
	"github.com/mariana-trench/mtrench-go/internal/pkg/diag"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/frame"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/model"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pointsto"
	"github.com/mariana-trench/mtrench-go/internal/pkg/position"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"github.com/mariana-trench/mtrench-go/internal/pkg/rules"
	"github.com/mariana-trench/mtrench-go/internal/pkg/taint"
)

// backwardMarkerKind is the synthetic source kind a backward sweep seeds
// a single parameter with, to discover whether that parameter reaches a
// sink inside the method: a result is only ever interpreted relative to
// which parameter was seeded, never compared against real rules, so
// collision with a real model generator's named kind is harmless.
func backwardMarkerKind(paramIndex int) kind.Kind {
	return kind.NamedKind(fmt.Sprintf("<parameter-%d>", paramIndex))
}

// sweeper holds everything one linear pass over a method's instructions
// needs that does not change instruction-to-instruction.
type sweeper struct {
	caller  *program.Method
	graph   *callgraph.Graph
	reg     *Registry
	ruleSet *rules.Set
	multi   []rules.MultiSourceRule
	statics *staticHeap
	opts    Options

	state *abstractState
	// out accumulates this sweep's contribution to the method's Model;
	// it starts from the previous Registry entry so that a join never
	// loses information discovered on an earlier iteration.
	out *model.Model
	// backwardParam is >= 0 while running a backward sweep seeded at
	// that parameter; -1 during the forward sweep.
	backwardParam int
}

func newSweeper(caller *program.Method, graph *callgraph.Graph, reg *Registry, ruleSet *rules.Set, multi []rules.MultiSourceRule, statics *staticHeap, opts Options, backwardParam int) *sweeper {
	return &sweeper{
		caller:        caller,
		graph:         graph,
		reg:           reg,
		ruleSet:       ruleSet,
		multi:         multi,
		statics:       statics,
		opts:          opts,
		state:         newAbstractState(statics),
		out:           reg.Get(caller),
		backwardParam: backwardParam,
	}
}

// run executes the sweep over every instruction in caller's CFG in
// textual order and returns the updated Model.
func (s *sweeper) run() *model.Model {
	code := s.caller.Code()
	if code == nil {
		return s.out
	}
	s.seedParameters()
	for _, insn := range code.InstructionsInOrder() {
		s.step(insn)
	}
	return s.out
}

func (s *sweeper) seedParameters() {
	for i := 0; i < s.caller.NumParameters(); i++ {
		loc := pointsto.NewParameter(i)
		var t taint.Taint
		if s.backwardParam == i {
			t = taint.Zero.Add(frame.Leaf(backwardMarkerKind(i), accesspath.ArgumentRoot(i), frame.OriginSet{}, feature.Set{}))
		} else if s.backwardParam < 0 {
			// Forward sweep: seed with whatever configured parameter
			// sources a model generator already declared for this
			// method, joined with an artificial source naming the
			// parameter itself so a caller-supplied value is always
			// distinguishable from one fabricated purely by a
			// generator.
			t = s.out.ParameterSources.Tree(accesspath.ArgumentRoot(i)).Element()
			t = t.Join(taint.Zero.Add(frame.Leaf(kind.NamedKind("<argument>"), accesspath.ArgumentRoot(i), frame.OriginSet{}, feature.Set{})))
		}
		s.state.set(i, registerValue{taint: t, loc: loc})
	}
}

func (s *sweeper) step(insn *program.Instruction) {
	switch insn.Op {
	case program.OpLoadParam:
		// Parameters are already seeded by register number == parameter
		// index in seedParameters; nothing further to do unless the
		// instruction stream addresses the parameter through a distinct
		// destination register.
		if insn.Dest != insn.ParamIndex {
			s.state.set(insn.Dest, s.state.get(insn.ParamIndex))
		}
	case program.OpMove, program.OpCheckCast:
		if len(insn.Srcs) > 0 {
			s.state.set(insn.Dest, s.state.get(insn.Srcs[0]))
		}
	case program.OpMoveResult:
		s.state.set(insn.Dest, s.state.lastResult)
	case program.OpConst:
		s.state.set(insn.Dest, registerValue{})
	case program.OpIGet:
		s.stepIGet(insn)
	case program.OpIPut:
		s.stepIPut(insn)
	case program.OpSGet:
		s.stepSGet(insn)
	case program.OpSPut:
		s.stepSPut(insn)
	case program.OpNewArray, program.OpFilledNewArray:
		s.stepNewArray(insn)
	case program.OpAGet:
		s.stepAGet(insn)
	case program.OpAPut:
		s.stepAPut(insn)
	case program.OpInvoke:
		s.stepInvoke(insn)
	case program.OpReturn:
		s.stepReturn(insn)
	case program.OpReturnVoid, program.OpGoto, program.OpIf, program.OpOther:
		// No taint effect.
	}
}

func (s *sweeper) stepIGet(insn *program.Instruction) {
	if len(insn.Srcs) == 0 || insn.Field == nil {
		s.state.set(insn.Dest, registerValue{})
		return
	}
	recv := s.state.get(insn.Srcs[0])
	loc := s.state.fieldLocation(recv.loc, insn.Field.Name())
	s.state.set(insn.Dest, registerValue{taint: s.state.readHeap(loc), loc: loc})
}

func (s *sweeper) stepIPut(insn *program.Instruction) {
	if len(insn.Srcs) < 2 || insn.Field == nil {
		return
	}
	recv := s.state.get(insn.Srcs[0])
	value := s.state.get(insn.Srcs[1])
	loc := s.state.fieldLocation(recv.loc, insn.Field.Name())
	s.state.writeHeap(loc, value.taint)
}

func (s *sweeper) stepSGet(insn *program.Instruction) {
	if insn.Field == nil {
		s.state.set(insn.Dest, registerValue{})
		return
	}
	s.state.set(insn.Dest, registerValue{taint: s.statics.read(insn.Field)})
}

func (s *sweeper) stepSPut(insn *program.Instruction) {
	if insn.Field == nil || len(insn.Srcs) == 0 {
		return
	}
	s.statics.write(insn.Field, s.state.get(insn.Srcs[0]).taint)
}

func (s *sweeper) stepNewArray(insn *program.Instruction) {
	loc := pointsto.NewInstruction(insn.ID)
	var t taint.Taint
	for _, src := range insn.Srcs {
		t = t.Join(s.state.get(src).taint)
	}
	s.state.writeHeap(loc, t)
	s.state.set(insn.Dest, registerValue{taint: t, loc: loc})
}

func (s *sweeper) stepAGet(insn *program.Instruction) {
	if len(insn.Srcs) == 0 {
		s.state.set(insn.Dest, registerValue{})
		return
	}
	arr := s.state.get(insn.Srcs[0])
	s.state.set(insn.Dest, registerValue{taint: s.state.readHeap(arr.loc)})
}

func (s *sweeper) stepAPut(insn *program.Instruction) {
	if len(insn.Srcs) < 2 {
		return
	}
	arr := s.state.get(insn.Srcs[0])
	value := s.state.get(insn.Srcs[1])
	if arr.loc != nil {
		s.state.writeHeap(arr.loc, value.taint)
	}
}

func addFeatures(t taint.Taint, fs feature.Set) taint.Taint {
	if fs.Empty() {
		return t
	}
	return t.TransformKind(
		func(k kind.Kind) []kind.Kind { return []kind.Kind{k} },
		func(kind.Kind) feature.Set { return fs },
	)
}

// exportParameterSource writes the given taint onto m's AddInferred* tree at loc's
// caller-visible AccessPath, when loc is traceable to a parameter. Writes
// to a local-only location are kept in the abstractState's own heap and
// never escape into the Model.
func (s *sweeper) exportParameterSource(loc *pointsto.MemoryLocation, t taint.Taint) {
	ap, ok := accessPath(loc)
	if !ok || t.Bottom() {
		return
	}
	s.out = s.out.AddInferredParameterSource(ap, t, feature.Set{})
}

func (s *sweeper) exportSink(ap accesspath.AccessPath, t taint.Taint) {
	if t.Bottom() {
		return
	}
	s.out = s.out.AddInferredSink(ap, t, feature.Set{})
}

func (s *sweeper) stepReturn(insn *program.Instruction) {
	if len(insn.Srcs) == 0 {
		return
	}
	v := s.state.get(insn.Srcs[0])

	if s.backwardParam >= 0 {
		if containsMarker(v.taint, backwardMarkerKind(s.backwardParam)) {
			s.exportSink(accesspath.ArgumentRoot(s.backwardParam), taint.Zero.Add(
				frame.Leaf(kind.NamedKind("<return>"), accesspath.ReturnRoot(), frame.OriginSet{}, feature.Set{})))
		}
		return
	}

	// Forward: this method's own declared return-sinks catch a direct
	// source-to-return-sink flow as an issue, and whatever reaches the
	// return becomes this method's Generations summary for its callers.
	s.checkSinkTaint(v.taint, s.out.Sinks.Tree(accesspath.ReturnRoot()).Element(), "", -1, position.None)
	s.out = s.out.AddInferredGeneration(accesspath.ReturnRoot(), v.taint, feature.Set{})
	if loc := v.loc; loc != nil {
		s.exportParameterSource(loc, v.taint)
	}
}

func containsMarker(t taint.Taint, k kind.Kind) bool {
	return t.ContainsKind(k)
}

// checkSinkTaint matches every frame in sourceTaint against every frame in
// sinkTaint through the rule set, recording an Issue in the forward sweep
// or an inferred-sink summary edge in a backward one.
func (s *sweeper) checkSinkTaint(sourceTaint, sinkTaint taint.Taint, calleeSig string, sinkIndex int, pos position.Position) {
	if sourceTaint.Bottom() || sinkTaint.Bottom() {
		return
	}

	if s.backwardParam >= 0 {
		if containsMarker(sourceTaint, backwardMarkerKind(s.backwardParam)) && len(sinkTaint.Kinds()) > 0 {
			s.exportSink(accesspath.ArgumentRoot(s.backwardParam), sinkTaint)
		}
		return
	}

	for _, sk := range sinkTaint.Kinds() {
		for _, srcK := range sourceTaint.Kinds() {
			for _, rule := range s.ruleSet.Matching(srcK, sk) {
				s.recordIssue(rule, sourceTaint, sinkTaint, calleeSig, sinkIndex, pos)
			}
		}
		s.checkMultiSource(sourceTaint, sk, sinkTaint, calleeSig, sinkIndex, pos)
	}
}

// checkMultiSource fires a multi-source rule when every one of its
// partials is already present in sourceTaint alongside the matched sink
// kind; this is a call-local approximation of the cross-callstack
// FulfilledPartialKindState tracking a full implementation threads
// through the whole fixpoint (see DESIGN.md).
func (s *sweeper) checkMultiSource(sourceTaint taint.Taint, sinkKind kind.Kind, sinkTaint taint.Taint, calleeSig string, sinkIndex int, pos position.Position) {
	for _, mr := range s.multi {
		if !containsKind(mr.Sinks, sinkKind) {
			continue
		}
		fulfilled := rules.NewFulfilledPartialKindState()
		ok := true
		for _, partial := range mr.Partials {
			var seen bool
			for _, src := range mr.Sources {
				if sourceTaint.ContainsKind(src) {
					seen = true
					break
				}
			}
			if !seen {
				ok = false
				break
			}
			fulfilled, _ = fulfilled.Triggered(mr, partial)
		}
		if ok {
			s.recordIssue(mr.Rule, sourceTaint, sinkTaint, calleeSig, sinkIndex, pos)
		}
	}
}

func containsKind(ks []kind.Kind, k kind.Kind) bool {
	for _, x := range ks {
		if x == k {
			return true
		}
	}
	return false
}

func (s *sweeper) recordIssue(rule rules.Rule, sourceTaint, sinkTaint taint.Taint, calleeSig string, sinkIndex int, pos position.Position) {
	s.out = s.out.AddIssue(model.Issue{
		SourceTaint: sourceTaint,
		SinkTaint:   sinkTaint,
		Rule:        rule,
		Callee:      calleeSig,
		SinkIndex:   sinkIndex,
		Position:    pos,
	})
}

func (s *sweeper) diagnostics() *diag.Collector { return s.opts.Diagnostics }
