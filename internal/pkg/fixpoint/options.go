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

package fixpoint

import (
	"github.com/mariana-trench/mtrench-go/internal/pkg/callgraph"
	"github.com/mariana-trench/mtrench-go/internal/pkg/diag"
	"github.com/mariana-trench/mtrench-go/internal/pkg/model"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"github.com/mariana-trench/mtrench-go/internal/pkg/rules"
)

// defaultMaxIterations bounds how many times a single method is resweept
// in one direction before its Model is accepted as-is and a
// BudgetExhaustion diagnostic is raised.
const defaultMaxIterations = 10

// defaultMaxSourceSinkDistance bounds Frame.Propagate's hop count before a
// frame is dropped, matching the distance budget the frame package's own
// tests exercise.
const defaultMaxSourceSinkDistance = 10

// Options configures one Run: the call graph to sweep over, the rules to
// check flows against, and the budgets/diagnostics/stats a caller wants
// wired through every sweeper it spawns.
type Options struct {
	Graph       *callgraph.Graph
	Rules       *rules.Set
	MultiSource []rules.MultiSourceRule

	// MaxIterations caps re-sweeps per method per direction; 0 selects
	// defaultMaxIterations.
	MaxIterations int
	// MaxSourceSinkDistance caps Frame.Propagate's hop count; 0 selects
	// defaultMaxSourceSinkDistance.
	MaxSourceSinkDistance int

	Diagnostics *diag.Collector
	Stats       *Stats

	// InitialModels seeds the Registry with the declaration/instantiation
	// phase's output (model generator templates already bound to concrete
	// methods) before the first sweep, per spec.md §4.4's three-phase
	// Model lifecycle: the fixpoint only performs the inference phase, so
	// the declared sources/sinks/propagations a model generator produced
	// must already be present for the first round to see them.
	InitialModels map[*program.Method]*model.Model
}

func (o Options) maxIterations() int {
	if o.MaxIterations <= 0 {
		return defaultMaxIterations
	}
	return o.MaxIterations
}

func (o Options) maxDistance() int {
	if o.MaxSourceSinkDistance <= 0 {
		return defaultMaxSourceSinkDistance
	}
	return o.MaxSourceSinkDistance
}
