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
	"flag"
	"fmt"
	"os"

	"github.com/mariana-trench/mtrench-go/internal/pkg/rules"
)

// FlagSet is shared by cmd/mtrench so the model-generator, rules,
// program, and call-graph-dump paths are registered exactly once.
var FlagSet flag.FlagSet

var (
	modelsPath        string
	rulesPath         string
	programPath       string
	dumpCallGraphPath string
	maxIterations     int
	maxDistance       int
	outputPath        string
)

func init() {
	FlagSet.StringVar(&modelsPath, "models", "", "path to a model generator JSON or YAML document")
	FlagSet.StringVar(&rulesPath, "rules", "rules.json", "path to the rules document")
	FlagSet.StringVar(&programPath, "program", "", "path to the program JSON document to analyze")
	FlagSet.StringVar(&dumpCallGraphPath, "dump-call-graph", "", "if set, write the built call graph as JSON to this path instead of running the fixpoint")
	FlagSet.IntVar(&maxIterations, "max-iterations", 0, "cap on re-sweeps per method per direction (0 selects the fixpoint package's default)")
	FlagSet.IntVar(&maxDistance, "max-source-sink-distance", 0, "cap on Frame.Propagate's hop count (0 selects the fixpoint package's default)")
	FlagSet.StringVar(&outputPath, "output", "", "if set, write the issue report to this path instead of stdout")
}

// ModelsPath returns the -models flag's value.
func ModelsPath() string { return modelsPath }

// RulesPath returns the -rules flag's value.
func RulesPath() string { return rulesPath }

// ProgramPath returns the -program flag's value.
func ProgramPath() string { return programPath }

// DumpCallGraphPath returns the -dump-call-graph flag's value.
func DumpCallGraphPath() string { return dumpCallGraphPath }

// MaxIterations returns the -max-iterations flag's value.
func MaxIterations() int { return maxIterations }

// MaxSourceSinkDistance returns the -max-source-sink-distance flag's
// value.
func MaxSourceSinkDistance() int { return maxDistance }

// OutputPath returns the -output flag's value.
func OutputPath() string { return outputPath }

// Document bundles the generators and rules loaded for one analysis run.
type Document struct {
	Generators  []Generator
	Rules       *rules.Set
	MultiSource []rules.MultiSourceRule
}

// Load reads and parses the files named by -models and -rules into a
// Document. An empty -models path yields no generators rather than an
// error: a run analyzing an already-summarized program may have no
// generators of its own.
func Load() (*Document, error) {
	doc := &Document{Rules: rules.NewSet()}

	if modelsPath != "" {
		data, err := os.ReadFile(modelsPath)
		if err != nil {
			return nil, fmt.Errorf("config: reading model generators: %w", err)
		}
		doc.Generators, err = LoadGenerators(data)
		if err != nil {
			return nil, err
		}
	}

	if rulesPath != "" {
		data, err := os.ReadFile(rulesPath)
		if err != nil {
			return nil, fmt.Errorf("config: reading rules: %w", err)
		}
		ruleSet, multi, err := LoadRules(data)
		if err != nil {
			return nil, err
		}
		doc.Rules = ruleSet
		doc.MultiSource = multi
	}

	return doc, nil
}
