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

package config

import (
	"encoding/json"
	"testing"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

func testMethod(class, selector string, params ...string) *program.Method {
	return program.NewMethod(class+"."+selector, class, false, false, false, true, params, nil)
}

func TestConstraintsMatch(t *testing.T) {
	onCreate := testMethod("LActivity;", "onCreate:(Landroid/os/Bundle;)V", "Landroid/os/Bundle;")
	other := testMethod("LActivity;", "helper:()V")

	c := And{
		NameConstraint{Pattern: MustRegexp("^onCreate:")},
		ParentConstraint{Pattern: MustRegexp("^LActivity;$")},
	}

	if !c.Satisfy(nil, onCreate) {
		t.Fatalf("expected onCreate to satisfy the constraint")
	}
	if c.Satisfy(nil, other) {
		t.Fatalf("did not expect helper to satisfy the constraint")
	}

	idx := NewIndex([]*program.Method{onCreate, other})
	matched := Matching(c, idx, nil, []*program.Method{onCreate, other})
	if len(matched) != 1 || matched[0] != onCreate {
		t.Fatalf("Matching = %v, want [onCreate]", matched)
	}
}

func TestConstraintJSONDispatch(t *testing.T) {
	doc := []byte(`{
		"constraint": "all_of",
		"inners": [
			{"constraint": "name", "pattern": "^run:"},
			{"constraint": "not", "inner": {"constraint": "is_static", "is_static": true}}
		]
	}`)
	var c ConstraintJSON
	if err := json.Unmarshal(doc, &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	instance := testMethod("LRunnable$1;", "run:()V")
	if !c.Satisfy(nil, instance) {
		t.Fatalf("expected the parsed constraint to match a non-static run:()V method")
	}
}

func TestLoadGeneratorsAppliesSourceSinkAndPropagation(t *testing.T) {
	doc := []byte(`
model_generators:
  - name: user-input-source
    find:
      constraint: name
      pattern: "^getInput:"
    sources:
      - port: {root: return}
        kind: UserInput
        features: ["via-getter"]
  - name: log-sink
    find:
      constraint: name
      pattern: "^log:"
    sinks:
      - port: {root: argument, position: 0}
        kind: Logging
  - name: identity-propagation
    find:
      constraint: name
      pattern: "^identity:"
    propagation:
      - input: {root: argument, position: 0}
        output: {root: return}
        features: ["via-identity"]
`)
	generators, err := LoadGenerators(doc)
	if err != nil {
		t.Fatalf("LoadGenerators: %v", err)
	}
	if len(generators) != 3 {
		t.Fatalf("expected 3 generators, got %d", len(generators))
	}

	getInput := testMethod("LSource;", "getInput:()Ljava/lang/String;")
	logMethod := testMethod("LSink;", "log:(Ljava/lang/String;)V", "Ljava/lang/String;")
	identity := testMethod("LProp;", "identity:(Ljava/lang/Object;)Ljava/lang/Object;", "Ljava/lang/Object;")
	methods := []*program.Method{getInput, logMethod, identity}
	idx := NewIndex(methods)

	models, err := Run(generators, idx, nil, methods)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sourceModel := models[getInput]
	if sourceModel == nil {
		t.Fatalf("expected a model for getInput")
	}
	returnTree := sourceModel.Generations.Tree(accesspath.ReturnRoot())
	frames := returnTree.Element().Frames(kind.NamedKind("UserInput"))
	if len(frames) != 1 {
		t.Fatalf("expected one UserInput generation frame at the return port, got %d", len(frames))
	}

	sinkModel := models[logMethod]
	if sinkModel == nil {
		t.Fatalf("expected a model for log")
	}
	argTree := sinkModel.Sinks.Tree(accesspath.ArgumentRoot(0))
	sinkFrames := argTree.Element().Frames(kind.NamedKind("Logging"))
	if len(sinkFrames) != 1 {
		t.Fatalf("expected one Logging sink frame at argument 0, got %d", len(sinkFrames))
	}

	propModel := models[identity]
	if propModel == nil {
		t.Fatalf("expected a model for identity")
	}
	propTree := propModel.Propagations.Tree(accesspath.ArgumentRoot(0))
	propFrames := propTree.Element().Frames(kind.LocalReturnKind())
	if len(propFrames) != 1 {
		t.Fatalf("expected one local-return propagation frame from argument 0, got %d", len(propFrames))
	}
}

func TestForAllParametersBindsEachMatchingPosition(t *testing.T) {
	doc := []byte(`
model_generators:
  - name: taint-all-string-args
    find:
      constraint: name
      pattern: "^sink:"
    for_all_parameters:
      - variable: "x"
        where:
          - pattern: "Ljava/lang/String;"
        sinks:
          - port: {root: argument, variable: "x"}
            kind: Logging
`)
	generators, err := LoadGenerators(doc)
	if err != nil {
		t.Fatalf("LoadGenerators: %v", err)
	}

	m := testMethod("LSink;", "sink:(Ljava/lang/String;I Ljava/lang/String;)V",
		"Ljava/lang/String;", "I", "Ljava/lang/String;")
	methods := []*program.Method{m}
	idx := NewIndex(methods)

	models, err := Run(generators, idx, nil, methods)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := models[m]
	if out == nil {
		t.Fatalf("expected a model for m")
	}
	for _, pos := range []int{0, 2} {
		tree := out.Sinks.Tree(accesspath.ArgumentRoot(pos))
		if len(tree.Element().Frames(kind.NamedKind("Logging"))) != 1 {
			t.Fatalf("expected a Logging sink at argument %d", pos)
		}
	}
	if len(out.Sinks.Tree(accesspath.ArgumentRoot(1)).Element().Frames(kind.NamedKind("Logging"))) != 0 {
		t.Fatalf("did not expect argument 1 (an int) to be tainted")
	}
}

func TestLoadRulesParsesPlainAndMultiSourceRules(t *testing.T) {
	doc := []byte(`{
		"rules": [
			{"code": 1, "name": "tainted-log", "sources": ["UserInput"], "sinks": ["Logging"]},
			{
				"code": 2,
				"name": "combined-leak",
				"sinks": ["Exfiltration"],
				"partial_sources": [
					{"label": "a", "sources": ["SecretA"]},
					{"label": "b", "sources": ["SecretB"]}
				]
			}
		]
	}`)
	ruleSet, multi, err := LoadRules(doc)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	matches := ruleSet.Matching(kind.NamedKind("UserInput"), kind.NamedKind("Logging"))
	if len(matches) != 1 || matches[0].Code != 1 {
		t.Fatalf("Matching = %v, want rule 1", matches)
	}
	if len(multi) != 1 {
		t.Fatalf("expected one multi-source rule, got %d", len(multi))
	}
	if len(multi[0].Partials) != 2 {
		t.Fatalf("expected 2 partial kinds, got %d", len(multi[0].Partials))
	}
}
