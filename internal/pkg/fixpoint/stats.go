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

import "sync/atomic"

// Stats accumulates run-wide counters a caller can print alongside the
// final issue list. All fields are updated with atomic adds so Stats can
// be shared across the worker pool without its own mutex.
type Stats struct {
	// MethodsAnalyzed counts every (method, direction) sweep performed,
	// including repeats forced by a callee's model changing underneath a
	// caller already visited once.
	MethodsAnalyzed int64
	// Reanalyses counts sweeps beyond the first performed for a method in
	// one direction.
	Reanalyses int64
	// BudgetExhausted counts methods that hit MaxIterations before their
	// Model stopped changing.
	BudgetExhausted int64
	// IssuesFound counts Issues recorded across every Model in the run.
	IssuesFound int64
}

func (s *Stats) addMethodAnalyzed(reanalysis bool) {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.MethodsAnalyzed, 1)
	if reanalysis {
		atomic.AddInt64(&s.Reanalyses, 1)
	}
}

func (s *Stats) addBudgetExhausted() {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.BudgetExhausted, 1)
}

func (s *Stats) addIssuesFound(n int) {
	if s == nil || n == 0 {
		return
	}
	atomic.AddInt64(&s.IssuesFound, int64(n))
}
