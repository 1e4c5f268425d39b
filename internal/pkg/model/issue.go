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

package model

import (
	"github.com/mariana-trench/mtrench-go/internal/pkg/position"
	"github.com/mariana-trench/mtrench-go/internal/pkg/rules"
	"github.com/mariana-trench/mtrench-go/internal/pkg/taint"
)

// Issue is (source-taint, sink-taint, rule, callee-string, sink-index,
// position): one detected flow from a source to a sink that matches a
// rule.
type Issue struct {
	SourceTaint taint.Taint
	SinkTaint   taint.Taint
	Rule        rules.Rule
	Callee      string
	SinkIndex   int
	Position    position.Position
}

// Equal reports whether i and other describe the same issue, for
// deduplication.
func (i Issue) Equal(other Issue) bool {
	return i.Rule.Code == other.Rule.Code &&
		i.Callee == other.Callee &&
		i.SinkIndex == other.SinkIndex &&
		i.Position == other.Position
}

// Set is a deduplicated collection of Issues.
type Set struct {
	issues []Issue
}

// Add appends issue unless an equal one is already present.
func (s Set) Add(issue Issue) Set {
	for _, existing := range s.issues {
		if existing.Equal(issue) {
			return s
		}
	}
	out := Set{issues: append(append([]Issue{}, s.issues...), issue)}
	return out
}

// All returns every issue in the set.
func (s Set) All() []Issue { return s.issues }

// Len reports the number of issues.
func (s Set) Len() int { return len(s.issues) }
