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
	"fmt"

	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

// LifecycleMethodCall is one configured callee a synthesized lifecycle
// method invokes: the target method plus the parameter types it expects,
// in order, after the receiver.
type LifecycleMethodCall struct {
	Target        *program.Method
	ArgumentTypes []string
}

// LifecycleNode is one block of calls in a graph-shaped lifecycle, with
// explicit successor edges.
type LifecycleNode struct {
	Name        string
	MethodCalls []LifecycleMethodCall
	Successors  []string
}

// LifecycleSpec describes one configured lifecycle synthesis: either a
// linear sequence of callees or a graph of call-blocks with a
// distinguished entry and exit, mirroring the base-class leaf-subclass
// expansion spec.md describes.
type LifecycleSpec struct {
	BaseClass string
	linear    []LifecycleMethodCall
	nodes     map[string]LifecycleNode
	entry     string
	exit      string
	isGraph   bool
}

// NewLinearLifecycle builds a LifecycleSpec whose synthesized method
// invokes each callee in declared order.
func NewLinearLifecycle(baseClass string, callees []LifecycleMethodCall) LifecycleSpec {
	return LifecycleSpec{BaseClass: baseClass, linear: append([]LifecycleMethodCall{}, callees...)}
}

// NewGraphLifecycle builds a LifecycleSpec whose synthesized method
// encodes a small control-flow graph of call blocks: nodes is keyed by
// node name, entry and exit name the distinguished start/end nodes.
func NewGraphLifecycle(baseClass string, nodes map[string]LifecycleNode, entry, exit string) LifecycleSpec {
	out := make(map[string]LifecycleNode, len(nodes))
	for k, v := range nodes {
		out[k] = v
	}
	return LifecycleSpec{BaseClass: baseClass, nodes: out, entry: entry, exit: exit, isGraph: true}
}

func (s LifecycleSpec) effectiveCallees() []LifecycleMethodCall {
	if !s.isGraph {
		return s.linear
	}
	var out []LifecycleMethodCall
	seen := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		node, ok := s.nodes[name]
		if !ok {
			return
		}
		out = append(out, node.MethodCalls...)
		for _, succ := range node.Successors {
			visit(succ)
		}
	}
	visit(s.entry)
	return out
}

// Synthesize generates, for each leaf subclass of s.BaseClass among
// leafClasses, a new method whose body invokes the configured callees.
// Methods with fewer than two effective callees are not emitted, matching
// the original lifecycle generator's rationale: a single-callee lifecycle
// method can never itself be the site of a cross-callee flow.
func (s LifecycleSpec) Synthesize(leafClasses []string) []*program.Method {
	callees := s.effectiveCallees()
	if len(callees) < 2 {
		return nil
	}
	var out []*program.Method
	for _, class := range leafClasses {
		out = append(out, s.synthesizeOne(class, callees))
	}
	return out
}

func (s LifecycleSpec) synthesizeOne(class string, callees []LifecycleMethodCall) *program.Method {
	sig := fmt.Sprintf("%s.$lifecycle:()V", class)
	cfg := &program.CFG{Entry: 0, Blocks: map[int]*program.Block{}}
	var insns []*program.Instruction
	id := 0
	for _, callee := range callees {
		args := make([]int, 1+len(callee.ArgumentTypes))
		for i := range args {
			args[i] = i
		}
		insns = append(insns, &program.Instruction{
			ID:           id,
			Op:           program.OpInvoke,
			InvokeTarget: callee.Target.Signature(),
			InvokeArgs:   args,
		})
		id++
	}
	insns = append(insns, &program.Instruction{ID: id, Op: program.OpReturnVoid})
	cfg.Blocks[0] = &program.Block{ID: 0, Instructions: insns}
	return program.NewMethod(sig, class, false, false, false, true, nil, cfg)
}
