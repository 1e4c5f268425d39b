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

package taint

import "github.com/mariana-trench/mtrench-go/internal/pkg/frame"

// Propagate rewrites every frame in t as seen through callsite cs,
// dropping frames that fail the interval intersection or exceed the
// distance budget.
func (t Taint) Propagate(cs frame.CallSite) Taint {
	out := Zero
	for _, f := range t.AllFrames() {
		propagated, ok := f.Propagate(cs)
		if !ok {
			continue
		}
		out = out.Add(propagated)
	}
	return out
}

// PropagateTree advances every node's Taint in tree across cs, preserving
// the tree's shape.
func PropagateTree(tree *Tree, cs frame.CallSite) *Tree {
	return tree.Map(func(t Taint) Taint { return t.Propagate(cs) })
}
