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

// ShimRule configures one extra artificial call synthesized whenever a
// matching invoke instruction is seen, e.g. a reflection target invoked
// through a helper whose static signature the call graph cannot see
// through on its own.
type ShimRule struct {
	// TargetsInvoke matches an invoke instruction whose InvokeTarget
	// equals this signature.
	TargetsInvoke string
	// Target is the method this shim adds as an artificial callee.
	Target *program.Method
	// ParameterMap maps the shim target's parameter position to the
	// matched callsite's argument position (0 is the receiver).
	ParameterMap map[int]int
	// AppliesFeature, if non-empty, is tagged onto any taint flowing
	// through the shim (e.g. "via-obscure").
	AppliesFeature string
}

func (s ShimRule) matches(insn *program.Instruction) bool {
	return s.Target != nil && insn.InvokeTarget == s.TargetsInvoke
}

func (s ShimRule) apply(insn *program.Instruction) *ArtificialCallee {
	regs := make(map[int]int, len(s.ParameterMap))
	for targetPos, argPos := range s.ParameterMap {
		if argPos >= 0 && argPos < len(insn.InvokeArgs) {
			regs[targetPos] = insn.InvokeArgs[argPos]
		}
	}
	fs := feature.Set{}
	if s.AppliesFeature != "" {
		fs = feature.NewSet(feature.New(s.AppliesFeature))
	}
	return &ArtificialCallee{Target: s.Target, ParameterRegisters: regs, Features: fs}
}
