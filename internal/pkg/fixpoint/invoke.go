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
	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/diag"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/frame"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/model"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pointsto"
	"github.com/mariana-trench/mtrench-go/internal/pkg/position"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"github.com/mariana-trench/mtrench-go/internal/pkg/taint"
)

// stepInvoke is the hard step: it applies every resolved CallTarget and
// every ArtificialCallee for insn, in turn, and joins their contributions
// into the value the following move-result (if any) picks up.
func (s *sweeper) stepInvoke(insn *program.Instruction) {
	pos := position.Intern(s.caller.Signature(), insn.ID)
	target := s.graph.Callee(s.caller, insn)
	callees := target.Targets()

	if !target.Resolved() {
		s.diagnostics().Add(diag.ResolutionMiss(s.caller.Signature(), "could not resolve invoke target %q", insn.InvokeTarget))
	}

	args := func(i int) (int, bool) {
		if i < 0 || i >= len(insn.InvokeArgs) {
			return 0, false
		}
		return insn.InvokeArgs[i], true
	}

	var result taint.Taint
	for _, callee := range callees {
		result = result.Join(s.applyCallSite(callee, args, pos, feature.Set{}))
	}
	for _, ac := range s.graph.ArtificialCallees(s.caller, insn) {
		acArgs := func(i int) (int, bool) {
			reg, ok := ac.ParameterRegisters[i]
			return reg, ok
		}
		result = result.Join(s.applyCallSite(ac.Target, acArgs, pos, ac.Features))
	}

	s.state.lastResult = registerValue{taint: result, loc: pointsto.NewInstruction(insn.ID)}
}

// applyCallSite runs check_call_flows, apply_propagations, and
// apply_generations for one callee resolved at one callsite, applying
// extraFeatures (e.g. "via-anonymous-class-to-obscure" for an artificial
// callee) to everything that flows through it. argAt maps a formal
// parameter position to the caller register holding the actual argument;
// it returns ok=false for a position the resolved callsite does not
// supply (an artificial callee only maps the positions its shim or
// anonymous-class rule names).
func (s *sweeper) applyCallSite(callee *program.Method, argAt func(int) (int, bool), pos position.Position, extraFeatures feature.Set) taint.Taint {
	calleeModel := s.reg.Get(callee)

	portOf := func(root accesspath.Root) frame.CallSite {
		return frame.CallSite{
			Callee:                callee,
			CalleePort:            accesspath.New(root, nil),
			Position:              pos,
			MaxSourceSinkDistance: s.opts.maxDistance(),
			CallerIntervalContext: frame.Default,
			CallerInterval:        frame.Default.Interval,
		}
	}
	atCallsite := calleeModel.PropagateAtCallsite(portOf)

	s.applySideEffects(callee, calleeModel, argAt, extraFeatures)
	s.checkArgumentSinks(callee, calleeModel, atCallsite, argAt, pos)
	s.applyPropagations(callee, calleeModel, atCallsite, argAt, extraFeatures)

	result := s.applyDefaultPropagation(callee, calleeModel, argAt)
	genReturn := atCallsite.Generations.Tree(accesspath.ReturnRoot()).Element()
	genReturn = addFeatures(genReturn, calleeModel.AttachToSources[accesspath.ReturnRoot()])
	genReturn = addFeatures(genReturn, extraFeatures)
	return result.Join(genReturn)
}

func (s *sweeper) applySideEffects(callee *program.Method, calleeModel *model.Model, argAt func(int) (int, bool), extraFeatures feature.Set) {
	obscure := feature.Set{}
	if calleeModel.Mode.Has(model.AddViaObscureFeature) {
		obscure = feature.NewSet(feature.New("via-obscure"))
	}
	for i := 0; i < callee.NumParameters()+1; i++ {
		reg, ok := argAt(i)
		if !ok {
			continue
		}
		root := accesspath.ArgumentRoot(i)
		fs := calleeModel.AddFeaturesToArguments[root].Union(obscure).Union(extraFeatures)
		if fs.Empty() {
			continue
		}
		v := s.state.get(reg)
		v.taint = addFeatures(v.taint, fs)
		s.state.set(reg, v)
	}
}

func (s *sweeper) checkArgumentSinks(callee *program.Method, calleeModel *model.Model, atCallsite *model.CalleeModel, argAt func(int) (int, bool), pos position.Position) {
	for i := 0; i < callee.NumParameters()+1; i++ {
		reg, ok := argAt(i)
		if !ok {
			continue
		}
		root := accesspath.ArgumentRoot(i)
		sinkTaint := atCallsite.Sinks.Tree(root).Element()
		sinkTaint = addFeatures(sinkTaint, calleeModel.AttachToSinks[root])
		sinkTaint = calleeModel.ApplySanitizers(model.SanitizeSinks, root, sinkTaint)
		srcTaint := s.state.get(reg).taint
		s.checkSinkTaint(srcTaint, sinkTaint, callee.Signature(), i, pos)
	}
}

func (s *sweeper) applyPropagations(callee *program.Method, calleeModel *model.Model, atCallsite *model.CalleeModel, argAt func(int) (int, bool), extraFeatures feature.Set) {
	strength := pathtree.Weak
	if calleeModel.Mode.Has(model.StrongWriteOnPropagation) {
		strength = pathtree.Strong
	}
	for i := 0; i < callee.NumParameters()+1; i++ {
		reg, ok := argAt(i)
		if !ok {
			continue
		}
		inRoot := accesspath.ArgumentRoot(i)
		srcTaint := calleeModel.ApplySanitizers(model.SanitizePropagations, inRoot, s.state.get(reg).taint)
		propFrames := atCallsite.Propagations.Tree(inRoot).Element().AllFrames()
		for _, f := range propFrames {
			if f.Kind == kind.LocalReturnKind() {
				continue // folded into the call result by applyDefaultPropagation.
			}
			for j := 0; j < callee.NumParameters(); j++ {
				if f.Kind != kind.LocalArgumentKind(j) {
					continue
				}
				destReg, ok := argAt(j)
				if !ok {
					continue
				}
				outRoot := accesspath.ArgumentRoot(j)
				out := addFeatures(srcTaint, f.UserFeatures)
				out = addFeatures(out, calleeModel.AttachToPropagations[outRoot])
				out = addFeatures(out, extraFeatures)
				v := s.state.get(destReg)
				if strength == pathtree.Strong {
					v.taint = out
				} else {
					v.taint = v.taint.Join(out)
				}
				s.state.set(destReg, v)
			}
		}
	}
}

// applyDefaultPropagation computes the return-bound contribution of any
// argument -> return propagation frames (including the synthesized
// taint-in-taint-out/-this defaults for methods with no body).
func (s *sweeper) applyDefaultPropagation(callee *program.Method, calleeModel *model.Model, argAt func(int) (int, bool)) taint.Taint {
	var result taint.Taint

	portOf := func(root accesspath.Root) frame.CallSite {
		return frame.CallSite{Callee: callee, CalleePort: accesspath.New(root, nil), CallerInterval: frame.Default.Interval}
	}
	atCallsite := calleeModel.PropagateAtCallsite(portOf)

	for i := 0; i < callee.NumParameters()+1; i++ {
		reg, ok := argAt(i)
		if !ok {
			continue
		}
		inRoot := accesspath.ArgumentRoot(i)
		srcTaint := s.state.get(reg).taint
		for _, f := range atCallsite.Propagations.Tree(inRoot).Element().AllFrames() {
			if f.Kind != kind.LocalReturnKind() {
				continue
			}
			out := addFeatures(srcTaint, f.UserFeatures)
			out = addFeatures(out, calleeModel.AttachToPropagations[accesspath.ReturnRoot()])
			result = result.Join(out)
		}
	}

	if callee.Code() != nil {
		return result
	}
	if calleeModel.Mode.Has(model.TaintInTaintOut) {
		for i := 0; i < callee.NumParameters()+1; i++ {
			if reg, ok := argAt(i); ok {
				result = result.Join(s.state.get(reg).taint)
			}
		}
	}
	if calleeModel.Mode.Has(model.TaintInTaintThis) {
		if recvReg, ok := argAt(0); ok {
			var agg taint.Taint
			for i := 1; i < callee.NumParameters()+1; i++ {
				if reg, ok := argAt(i); ok {
					agg = agg.Join(s.state.get(reg).taint)
				}
			}
			v := s.state.get(recvReg)
			v.taint = v.taint.Join(agg)
			s.state.set(recvReg, v)
		}
	}
	return result
}
