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

// Command mtrench loads a program document, instantiates model generators
// against it, runs the forward/backward fixpoint, and prints the issues
// found. It is the CLI entry point around the analysis core; like
// cmd/levee in the teacher repository, main itself does no analysis work,
// only flag wiring and reporting.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/mariana-trench/mtrench-go/internal/pkg/callgraph"
	"github.com/mariana-trench/mtrench-go/internal/pkg/config"
	"github.com/mariana-trench/mtrench-go/internal/pkg/diag"
	"github.com/mariana-trench/mtrench-go/internal/pkg/fixpoint"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"github.com/mariana-trench/mtrench-go/internal/pkg/programio"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if err := config.FlagSet.Parse(args); err != nil {
		return err
	}
	if config.ProgramPath() == "" {
		return fmt.Errorf("mtrench: -program is required")
	}

	prog, ctx, err := programio.Load(config.ProgramPath())
	if err != nil {
		return err
	}

	doc, err := config.Load()
	if err != nil {
		return err
	}

	idx := config.NewIndex(prog.Methods)
	generated, err := config.Run(doc.Generators, idx, ctx, prog.Methods)
	if err != nil {
		return err
	}

	graph := callgraph.Build(prog, callgraph.Options{UseMultipleCalleeCallgraph: true})

	if path := config.DumpCallGraphPath(); path != "" {
		data, err := graph.DumpJSON(prog.Methods)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	}

	diagnostics := &diag.Collector{}
	stats := &fixpoint.Stats{}
	reg := fixpoint.Run(prog, fixpoint.Options{
		Graph:                 graph,
		Rules:                 doc.Rules,
		MultiSource:           doc.MultiSource,
		MaxIterations:         config.MaxIterations(),
		MaxSourceSinkDistance: config.MaxSourceSinkDistance(),
		Diagnostics:           diagnostics,
		Stats:                 stats,
		InitialModels:         generated,
	})

	out := report(reg, prog, diagnostics, stats)
	if path := config.OutputPath(); path != "" {
		return os.WriteFile(path, out, 0o644)
	}
	_, err = os.Stdout.Write(out)
	return err
}

// report renders every issue found, sorted by method signature then
// position, followed by a diagnostics-by-kind tally and the run's Stats.
func report(reg *fixpoint.Registry, prog *program.Program, diagnostics *diag.Collector, stats *fixpoint.Stats) []byte {
	snapshot := reg.Snapshot()

	type row struct {
		method string
		line   string
	}
	var rows []row
	for m, mod := range snapshot {
		for _, issue := range mod.Issues.All() {
			rows = append(rows, row{
				method: m.Signature(),
				line: fmt.Sprintf("%s: rule %q (code %d) at %s, callee %s#%d",
					m.Signature(), issue.Rule.Name, issue.Rule.Code, issue.Position, issue.Callee, issue.SinkIndex),
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].method != rows[j].method {
			return rows[i].method < rows[j].method
		}
		return rows[i].line < rows[j].line
	})

	var buf bytes.Buffer
	for _, r := range rows {
		fmt.Fprintln(&buf, r.line)
	}
	fmt.Fprintf(&buf, "%d issues found across %d methods\n", len(rows), len(prog.Methods))

	counts := diagnostics.CountByKind()
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(&buf, "%s: %d\n", kind, counts[kind])
	}

	fmt.Fprintf(&buf, "methods analyzed: %d (reanalyses: %d), budget exhausted: %d\n",
		stats.MethodsAnalyzed, stats.Reanalyses, stats.BudgetExhausted)

	return buf.Bytes()
}
