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
	"encoding/json"
	"sort"

	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

type methodCallees struct {
	Static     []string `json:"static"`
	Virtual    []string `json:"virtual"`
	Artificial []string `json:"artificial"`
}

// DumpJSON serializes the graph as one JSON object keyed by caller method
// signature, mapping to {static, virtual, artificial} callee signature
// lists, for the -dump-call-graph CLI flag.
func (g *Graph) DumpJSON(methods []*program.Method) ([]byte, error) {
	out := map[string]methodCallees{}
	for _, caller := range methods {
		code := caller.Code()
		if code == nil {
			continue
		}
		var entry methodCallees
		hasEntry := false
		for _, insn := range code.InstructionsInOrder() {
			if insn.Op != program.OpInvoke {
				continue
			}
			target := g.Callee(caller, insn)
			if target.Callee != nil {
				hasEntry = true
				entry.Static = append(entry.Static, target.Callee.Signature())
				for _, o := range target.Overrides {
					entry.Virtual = append(entry.Virtual, o.Signature())
				}
			}
			for _, ac := range g.ArtificialCallees(caller, insn) {
				hasEntry = true
				entry.Artificial = append(entry.Artificial, ac.Target.Signature())
			}
		}
		if hasEntry {
			sort.Strings(entry.Static)
			sort.Strings(entry.Virtual)
			sort.Strings(entry.Artificial)
			out[caller.Signature()] = entry
		}
	}
	return json.Marshal(out)
}
