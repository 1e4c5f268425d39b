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

// Package diag implements the analysis's three diagnostic kinds as
// structured values a Collector accumulates during a run, instead of a
// general-purpose logging library: a ResolutionMiss or BudgetExhaustion
// degrades the fixpoint in place and is recorded for the final report; a
// ConfigError is fatal and raised once, before the fixpoint starts. This
// mirrors how the call graph's own surface reports problems: structured
// values a caller walks, not log lines.
package diag

import (
	"fmt"
	"sync"
)

// Severity distinguishes a diagnostic that stops the run from one that is
// merely recorded.
type Severity int

const (
	Warning Severity = iota
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "warning"
}

// Diagnostic is one structured entry a Collector accumulates: a kind tag,
// a severity, the method the diagnostic is about (if any), and a message.
type Diagnostic struct {
	Kind     string
	Severity Severity
	Method   string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Method == "" {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Kind, d.Message)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", d.Severity, d.Kind, d.Method, d.Message)
}

// ConfigError reports a malformed model generator or rules document,
// raised once at load time before the fixpoint starts.
func ConfigError(format string, args ...any) Diagnostic {
	return Diagnostic{Kind: "ConfigError", Severity: Fatal, Message: fmt.Sprintf(format, args...)}
}

// ResolutionMiss reports a callee or field the call graph could not
// resolve; the fixpoint proceeds with an empty CalleeModel in its place.
func ResolutionMiss(method, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: "ResolutionMiss", Severity: Warning, Method: method, Message: fmt.Sprintf(format, args...)}
}

// BudgetExhaustion reports an iteration or tree-depth cap hit during the
// fixpoint; it is recorded in the run's Stats, not surfaced as a failure.
func BudgetExhaustion(method, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: "BudgetExhaustion", Severity: Warning, Method: method, Message: fmt.Sprintf(format, args...)}
}

// Collector accumulates diagnostics across a concurrent fixpoint run; its
// zero value is ready to use.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Add records d.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// All returns every diagnostic recorded so far, in the order Add was
// called.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic{}, c.items...)
}

// HasFatal reports whether any recorded diagnostic is Fatal.
func (c *Collector) HasFatal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.items {
		if d.Severity == Fatal {
			return true
		}
	}
	return false
}

// CountByKind tallies recorded diagnostics by their Kind, for the run
// summary the CLI prints alongside the issue list.
func (c *Collector) CountByKind() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]int{}
	for _, d := range c.items {
		out[d.Kind]++
	}
	return out
}
