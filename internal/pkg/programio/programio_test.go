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

package programio

import (
	"testing"

	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

const doc = `{
	"methods": [
		{
			"signature": "LActivity;.onCreate:(Landroid/os/Bundle;)V",
			"class": "LActivity;",
			"parameters": ["Landroid/os/Bundle;"],
			"annotations": ["@Source"],
			"bytecode": "invoke-virtual {...}",
			"code": {
				"entry": 0,
				"blocks": [
					{
						"id": 0,
						"instructions": [
							{"id": 0, "op": "load-param", "dest": 1, "param_index": 0},
							{"id": 1, "op": "invoke", "invoke_target": "LSink;.log:(Ljava/lang/String;)V", "invoke_args": [1]},
							{"id": 2, "op": "return-void"}
						]
					}
				]
			}
		},
		{
			"signature": "LSink;.log:(Ljava/lang/String;)V",
			"class": "LSink;",
			"parameters": ["Ljava/lang/String;"],
			"returns_void": true
		}
	],
	"class_parents": {
		"LActivity;": ["LBaseActivity;"],
		"LBaseActivity;": ["Landroid/app/Activity;"]
	},
	"receiver_types": {
		"LActivity;.onCreate:(Landroid/os/Bundle;)V#1": "LSink;"
	}
}`

func TestParseBuildsMethodsAndCFG(t *testing.T) {
	prog, ctx, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Methods) != 2 {
		t.Fatalf("got %d methods, want 2", len(prog.Methods))
	}

	var onCreate *program.Method
	for _, m := range prog.Methods {
		if m.Signature() == "LActivity;.onCreate:(Landroid/os/Bundle;)V" {
			onCreate = m
		}
	}
	if onCreate == nil {
		t.Fatalf("onCreate method not found")
	}
	if onCreate.Code() == nil {
		t.Fatalf("onCreate should have a CFG")
	}
	insns := onCreate.Code().InstructionsInOrder()
	if len(insns) != 3 {
		t.Fatalf("got %d instructions, want 3", len(insns))
	}
	if insns[1].Op != program.OpInvoke || insns[1].InvokeTarget != "LSink;.log:(Ljava/lang/String;)V" {
		t.Fatalf("instruction 1 = %+v, want invoke of LSink;.log", insns[1])
	}

	if got := ctx.Annotations[onCreate]; len(got) != 1 || got[0] != "@Source" {
		t.Fatalf("ctx.Annotations[onCreate] = %v, want [@Source]", got)
	}
	if got := ctx.Bytecode[onCreate]; got != "invoke-virtual {...}" {
		t.Fatalf("ctx.Bytecode[onCreate] = %q", got)
	}
}

func TestParseBuildsClassHierarchyTransitively(t *testing.T) {
	prog, _, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	descendants := prog.Classes.Extends("Landroid/app/Activity;")
	if !descendants["LActivity;"] {
		t.Fatalf("expected LActivity; to transitively extend Landroid/app/Activity;, got %v", descendants)
	}
	if !descendants["LBaseActivity;"] {
		t.Fatalf("expected LBaseActivity; to extend Landroid/app/Activity;, got %v", descendants)
	}
}

func TestParseWiresTypeOracle(t *testing.T) {
	prog, _, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var onCreate *program.Method
	for _, m := range prog.Methods {
		if m.Signature() == "LActivity;.onCreate:(Landroid/os/Bundle;)V" {
			onCreate = m
		}
	}
	insn := onCreate.Code().InstructionsInOrder()[1]
	if got := prog.Types.ReceiverType(onCreate, insn); got != "LSink;" {
		t.Fatalf("ReceiverType = %q, want LSink;", got)
	}
}

func TestParseRejectsUnknownOpcode(t *testing.T) {
	bad := `{"methods": [{"signature": "LA;.m:()V", "class": "LA;", "code": {"entry": 0, "blocks": [{"id": 0, "instructions": [{"id": 0, "op": "frobnicate"}]}]}}]}`
	if _, _, err := Parse([]byte(bad)); err == nil {
		t.Fatalf("expected an error for an unknown opcode")
	}
}

func TestParseWithoutCodeLeavesMethodAbstract(t *testing.T) {
	prog, _, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, m := range prog.Methods {
		if m.Signature() == "LSink;.log:(Ljava/lang/String;)V" && m.Code() != nil {
			t.Fatalf("LSink;.log has no code in the document, want Code() == nil")
		}
	}
}
