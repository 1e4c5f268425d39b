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

package callgraph

import (
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

// Options configures Build; the fields mirror the configuration keys
// spec.md lists for the call graph.
type Options struct {
	// UseMultipleCalleeCallgraph, when true, fans a virtual callsite out
	// to every override the receiver's extends-set admits rather than
	// just the statically resolved base callee.
	UseMultipleCalleeCallgraph bool
	// DisableParameterTypeOverrides suppresses anonymous-class artificial
	// callees entirely.
	DisableParameterTypeOverrides bool
	// Shims are matched against every invoke instruction in addition to
	// anonymous-class resolution.
	Shims []ShimRule
}

type insnKey struct {
	caller *program.Method
	insnID int
}

// Graph is the built, immutable call graph: for every invoke instruction,
// its resolved CallTarget and any ArtificialCallees; for every field
// instruction, the resolved Field; and a stable index among a method's
// return/array-allocation instructions.
type Graph struct {
	targets    map[insnKey]*CallTarget
	artificial map[insnKey][]*ArtificialCallee
	fields     map[insnKey]*program.Field
	returnIdx  map[insnKey]int
	arrayIdx   map[insnKey]int
}

// Build walks every method's CFG once and resolves every invoke, field
// access, return, and array-allocation instruction. The result is
// immutable and safe to share across the fixpoint's worker pool.
func Build(prog *program.Program, opts Options) *Graph {
	g := &Graph{
		targets:    map[insnKey]*CallTarget{},
		artificial: map[insnKey][]*ArtificialCallee{},
		fields:     map[insnKey]*program.Field{},
		returnIdx:  map[insnKey]int{},
		arrayIdx:   map[insnKey]int{},
	}

	bySignature := indexBySignature(prog.Methods)
	bySelector := indexBySelector(prog.Methods)
	byClass := indexByClass(prog.Methods)

	for _, caller := range prog.Methods {
		code := caller.Code()
		if code == nil {
			continue
		}
		seenSignatureCount := map[string]int{}
		returnN, arrayN := 0, 0
		for _, insn := range code.InstructionsInOrder() {
			key := insnKey{caller, insn.ID}
			switch insn.Op {
			case program.OpInvoke:
				idx := seenSignatureCount[insn.InvokeTarget]
				seenSignatureCount[insn.InvokeTarget]++
				g.targets[key] = resolveCallTarget(caller, insn, idx, prog, bySignature, bySelector, opts)
				if ac := resolveArtificialCallees(caller, insn, prog, byClass, opts); len(ac) > 0 {
					g.artificial[key] = ac
				}
			case program.OpIGet, program.OpIPut, program.OpSGet, program.OpSPut:
				if insn.Field != nil {
					g.fields[key] = insn.Field
				}
			case program.OpReturn:
				g.returnIdx[key] = returnN
				returnN++
			case program.OpNewArray, program.OpFilledNewArray:
				g.arrayIdx[key] = arrayN
				arrayN++
			}
		}
	}
	return g
}

func indexBySignature(methods []*program.Method) map[string]*program.Method {
	out := make(map[string]*program.Method, len(methods))
	for _, m := range methods {
		out[m.Signature()] = m
	}
	return out
}

func indexBySelector(methods []*program.Method) map[string][]*program.Method {
	out := map[string][]*program.Method{}
	for _, m := range methods {
		out[m.Selector()] = append(out[m.Selector()], m)
	}
	return out
}

func indexByClass(methods []*program.Method) map[string][]*program.Method {
	out := map[string][]*program.Method{}
	for _, m := range methods {
		out[m.Class()] = append(out[m.Class()], m)
	}
	return out
}

// resolveCallTarget resolves the base callee from the program's method
// index, then -- when virtual fan-out is enabled -- filters every other
// method sharing the base's selector down to the ones reachable from the
// receiver's static extends-set.
func resolveCallTarget(caller *program.Method, insn *program.Instruction, callIndex int, prog *program.Program, bySignature map[string]*program.Method, bySelector map[string][]*program.Method, opts Options) *CallTarget {
	base, ok := bySignature[insn.InvokeTarget]
	if !ok {
		return &CallTarget{CallIndex: callIndex}
	}

	receiverType := base.Class()
	if prog.Types != nil {
		if rt := prog.Types.ReceiverType(caller, insn); rt != "" {
			receiverType = rt
		}
	}
	var extends map[string]bool
	if prog.Classes != nil {
		extends = prog.Classes.Extends(receiverType)
	}

	target := &CallTarget{
		Callee:             base,
		ReceiverType:       receiverType,
		ReceiverExtendsSet: extends,
		CallIndex:          callIndex,
	}
	if opts.UseMultipleCalleeCallgraph {
		target.Overrides = filterOverrides(bySelector[base.Selector()], base, extends)
	}
	return target
}

// filterOverrides excludes base itself and any candidate whose declaring
// class is not in the receiver's extends-set: an override declared on an
// unrelated subclass the receiver's static type cannot reach.
func filterOverrides(candidates []*program.Method, base *program.Method, extends map[string]bool) []*program.Method {
	var out []*program.Method
	for _, c := range candidates {
		if c == base {
			continue
		}
		if extends[c.Class()] {
			out = append(out, c)
		}
	}
	return out
}

// resolveArtificialCallees adds one artificial callee per method of an
// anonymous class passed as an argument, plus whatever ShimRules match
// this instruction.
func resolveArtificialCallees(caller *program.Method, insn *program.Instruction, prog *program.Program, byClass map[string][]*program.Method, opts Options) []*ArtificialCallee {
	var out []*ArtificialCallee

	if !opts.DisableParameterTypeOverrides && prog.Types != nil {
		for _, reg := range insn.InvokeArgs {
			anonClass := prog.Types.RegisterConstClassType(caller, insn, reg)
			if anonClass == "" {
				continue
			}
			for _, m := range byClass[anonClass] {
				out = append(out, &ArtificialCallee{
					Target:             m,
					ParameterRegisters: map[int]int{0: reg},
					Features:           feature.NewSet(feature.New("via-anonymous-class-to-obscure")),
				})
			}
		}
	}

	for _, shim := range opts.Shims {
		if shim.matches(insn) {
			out = append(out, shim.apply(insn))
		}
	}

	return out
}

// Callees returns every CallTarget-resolved method reachable from the
// invoke instruction insn in caller, including virtual overrides.
func (g *Graph) Callees(caller *program.Method, insn *program.Instruction) []*program.Method {
	return g.Callee(caller, insn).Targets()
}

// Callee returns the resolved CallTarget for the invoke instruction insn
// in caller. It is never nil; an unresolved invocation returns a
// CallTarget with a nil Callee.
func (g *Graph) Callee(caller *program.Method, insn *program.Instruction) *CallTarget {
	if t, ok := g.targets[insnKey{caller, insn.ID}]; ok {
		return t
	}
	return &CallTarget{}
}

// ArtificialCallees returns the artificial callees synthesized for insn.
func (g *Graph) ArtificialCallees(caller *program.Method, insn *program.Instruction) []*ArtificialCallee {
	return g.artificial[insnKey{caller, insn.ID}]
}

// ResolvedFieldAccess returns the Field resolved for a field-access
// instruction, or nil if none was recorded.
func (g *Graph) ResolvedFieldAccess(caller *program.Method, insn *program.Instruction) *program.Field {
	return g.fields[insnKey{caller, insn.ID}]
}

// ReturnIndex returns the 0-based index of insn among caller's return
// instructions, in CFG-walk order.
func (g *Graph) ReturnIndex(caller *program.Method, insn *program.Instruction) int {
	return g.returnIdx[insnKey{caller, insn.ID}]
}

// ArrayAllocationIndex returns the 0-based index of insn among caller's
// array-allocation instructions, in CFG-walk order.
func (g *Graph) ArrayAllocationIndex(caller *program.Method, insn *program.Instruction) int {
	return g.arrayIdx[insnKey{caller, insn.ID}]
}
