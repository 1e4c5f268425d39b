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

// Package callgraph builds the call graph once, immutably, before the
// fixpoint runs: resolved call targets with their filtered override sets,
// shim/anonymous-class artificial callees, and synthesized lifecycle
// methods.
package callgraph

import (
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

// CallTarget is the resolution of one invoke instruction: the statically
// resolved base callee, the receiver's static type and extends-set, the
// override set already filtered down to what that extends-set can reach,
// and this callsite's index among identical-signature calls in the
// caller's textual order.
type CallTarget struct {
	Callee             *program.Method
	ReceiverType       string
	ReceiverExtendsSet map[string]bool
	Overrides          []*program.Method
	CallIndex          int
}

// Resolved reports whether the base callee could be resolved at all.
func (t *CallTarget) Resolved() bool { return t != nil && t.Callee != nil }

// Targets returns every method a call through t may actually invoke: the
// base callee plus its filtered overrides, deduplicated and in a stable
// order (callee first).
func (t *CallTarget) Targets() []*program.Method {
	if t == nil {
		return nil
	}
	out := make([]*program.Method, 0, 1+len(t.Overrides))
	seen := map[*program.Method]bool{}
	if t.Callee != nil {
		out = append(out, t.Callee)
		seen[t.Callee] = true
	}
	for _, o := range t.Overrides {
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	return out
}

// ArtificialCallee is one synthesized extra call a shim or an
// anonymous-class argument adds at a callsite, alongside whatever the
// instruction's own CallTarget resolves to.
type ArtificialCallee struct {
	Target *program.Method
	// ParameterRegisters maps the artificial target's parameter position
	// to the caller's register holding the corresponding value.
	ParameterRegisters map[int]int
	Features           feature.Set
}
