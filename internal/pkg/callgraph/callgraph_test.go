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
	"sort"
	"testing"

	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

type fakeHierarchy map[string]map[string]bool

func (h fakeHierarchy) Extends(typ string) map[string]bool { return h[typ] }

type fakeOracle struct {
	receiverTypes map[int]string
	constTypes    map[int]map[int]string // insn.ID -> reg -> type
}

func (o fakeOracle) ReceiverType(caller *program.Method, insn *program.Instruction) string {
	return o.receiverTypes[insn.ID]
}
func (o fakeOracle) RegisterType(*program.Method, *program.Instruction, int) string { return "" }
func (o fakeOracle) RegisterConstClassType(caller *program.Method, insn *program.Instruction, reg int) string {
	return o.constTypes[insn.ID][reg]
}

func sig(class, name string) string { return class + "." + name }

func method(class, name string, code *program.CFG) *program.Method {
	return program.NewMethod(sig(class, name), class, false, false, false, true, nil, code)
}

func TestVirtualCallFansOutToFilteredOverrides(t *testing.T) {
	base := method("LBase;", "run:()V", nil)
	override := method("LChild;", "run:()V", nil)
	unrelated := method("LOther;", "run:()V", nil)

	insn := &program.Instruction{ID: 0, Op: program.OpInvoke, InvokeTarget: base.Signature(), InvokeArgs: []int{0}}
	callerCode := &program.CFG{Entry: 0, Blocks: map[int]*program.Block{0: {ID: 0, Instructions: []*program.Instruction{insn}}}}
	caller := method("LCaller;", "caller:()V", callerCode)

	prog := &program.Program{
		Methods: []*program.Method{caller, base, override, unrelated},
		Classes: fakeHierarchy{"LChild;": {"LBase;": true, "LChild;": true}},
		Types:   fakeOracle{receiverTypes: map[int]string{0: "LChild;"}},
	}

	g := Build(prog, Options{UseMultipleCalleeCallgraph: true})
	target := g.Callee(caller, insn)
	if !target.Resolved() {
		t.Fatalf("expected a resolved call target")
	}
	if target.Callee != base {
		t.Fatalf("expected base callee %v, got %v", base, target.Callee)
	}
	names := func(ms []*program.Method) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.Signature())
		}
		sort.Strings(out)
		return out
	}
	got := names(target.Targets())
	want := []string{base.Signature(), override.Signature()}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Targets() = %v, want %v (unrelated override must be excluded)", got, want)
	}
}

func TestAnonymousClassArgumentAddsArtificialCallee(t *testing.T) {
	runMethod := method("LAnon$1;", "run:()V", nil)

	insn := &program.Instruction{ID: 0, Op: program.OpInvoke, InvokeTarget: "LExecutor;.execute:(LRunnable;)V", InvokeArgs: []int{0, 1}}
	code := &program.CFG{Entry: 0, Blocks: map[int]*program.Block{0: {ID: 0, Instructions: []*program.Instruction{insn}}}}
	caller := method("LCaller;", "caller:()V", code)

	prog := &program.Program{
		Methods: []*program.Method{caller, runMethod},
		Types:   fakeOracle{constTypes: map[int]map[int]string{0: {1: "LAnon$1;"}}},
	}

	g := Build(prog, Options{})
	ac := g.ArtificialCallees(caller, insn)
	if len(ac) != 1 || ac[0].Target != runMethod {
		t.Fatalf("expected one artificial callee to %v, got %v", runMethod, ac)
	}
	if !ac[0].Features.Contains(feature.New("via-anonymous-class-to-obscure")) {
		t.Fatalf("expected via-anonymous-class-to-obscure feature")
	}
}

func TestReturnAndArrayAllocationIndexesAreStable(t *testing.T) {
	r0 := &program.Instruction{ID: 0, Op: program.OpNewArray}
	r1 := &program.Instruction{ID: 1, Op: program.OpReturn}
	r2 := &program.Instruction{ID: 2, Op: program.OpNewArray}
	r3 := &program.Instruction{ID: 3, Op: program.OpReturn}
	code := &program.CFG{Entry: 0, Blocks: map[int]*program.Block{0: {ID: 0, Instructions: []*program.Instruction{r0, r1, r2, r3}}}}
	caller := method("LCaller;", "caller:()V", code)

	prog := &program.Program{Methods: []*program.Method{caller}}
	g := Build(prog, Options{})

	if got := g.ArrayAllocationIndex(caller, r0); got != 0 {
		t.Fatalf("first array allocation index = %d, want 0", got)
	}
	if got := g.ArrayAllocationIndex(caller, r2); got != 1 {
		t.Fatalf("second array allocation index = %d, want 1", got)
	}
	if got := g.ReturnIndex(caller, r1); got != 0 {
		t.Fatalf("first return index = %d, want 0", got)
	}
	if got := g.ReturnIndex(caller, r3); got != 1 {
		t.Fatalf("second return index = %d, want 1", got)
	}
}

func TestLifecycleSynthesisSkipsSingleCallee(t *testing.T) {
	onCreate := method("LBase;", "onCreate:()V", nil)
	spec := NewLinearLifecycle("LBase;", []LifecycleMethodCall{{Target: onCreate}})
	if got := spec.Synthesize([]string{"LLeaf;"}); got != nil {
		t.Fatalf("lifecycle with one effective callee should not synthesize, got %v", got)
	}
}

func TestLifecycleSynthesisLinear(t *testing.T) {
	onCreate := method("LBase;", "onCreate:()V", nil)
	onDestroy := method("LBase;", "onDestroy:()V", nil)
	spec := NewLinearLifecycle("LBase;", []LifecycleMethodCall{{Target: onCreate}, {Target: onDestroy}})

	synthesized := spec.Synthesize([]string{"LLeaf;"})
	if len(synthesized) != 1 {
		t.Fatalf("expected one synthesized method, got %d", len(synthesized))
	}
	insns := synthesized[0].Code().InstructionsInOrder()
	if len(insns) != 3 {
		t.Fatalf("expected 2 invokes + 1 return-void, got %d instructions", len(insns))
	}
	if insns[0].InvokeTarget != onCreate.Signature() || insns[1].InvokeTarget != onDestroy.Signature() {
		t.Fatalf("lifecycle calls out of order: %v", insns)
	}
}

func TestLifecycleSynthesisGraphFollowsSuccessors(t *testing.T) {
	a := method("LBase;", "a:()V", nil)
	b := method("LBase;", "b:()V", nil)
	spec := NewGraphLifecycle("LBase;", map[string]LifecycleNode{
		"entry": {Name: "entry", MethodCalls: []LifecycleMethodCall{{Target: a}}, Successors: []string{"exit"}},
		"exit":  {Name: "exit", MethodCalls: []LifecycleMethodCall{{Target: b}}},
	}, "entry", "exit")

	synthesized := spec.Synthesize([]string{"LLeaf;"})
	insns := synthesized[0].Code().InstructionsInOrder()
	if insns[0].InvokeTarget != a.Signature() || insns[1].InvokeTarget != b.Signature() {
		t.Fatalf("graph lifecycle calls out of traversal order: %v", insns)
	}
}

