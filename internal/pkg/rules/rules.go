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

// Package rules implements the rules file: each rule is a
// (source-kind-set, sink-kind-set, optional transform-list) tuple keyed
// by integer code. It also implements the partial-kind multi-source
// extension and the per-callstack FulfilledPartialKindState that tracks
// which half of a multi-source rule has already been seen.
package rules

import "github.com/mariana-trench/mtrench-go/internal/pkg/kind"

// Rule is one (sources, sinks) -> issue rule, optionally restricted to a
// list of transforms that must appear (in order) on the flow between
// them.
type Rule struct {
	Code       int
	Name       string
	Sources    []kind.Kind
	Sinks      []kind.Kind
	Transforms []kind.Transform
}

// PartialKind marks one half of a multi-source rule: a sink that only
// fires an issue once every partial kind of the rule it belongs to has
// been observed somewhere on the call stack.
type PartialKind struct {
	RuleCode int
	Label    string
}

// MultiSourceRule is a Rule whose Sources are split across multiple
// PartialKinds that must all be fulfilled before the rule fires.
type MultiSourceRule struct {
	Rule
	Partials []PartialKind
}

func containsKind(ks []kind.Kind, k kind.Kind) bool {
	for _, x := range ks {
		if x == k {
			return true
		}
	}
	return false
}

// Set is an indexed collection of Rules supporting a (source_kind,
// sink_kind) matching query.
type Set struct {
	rules []Rule
}

// NewSet builds a rule Set.
func NewSet(rules ...Rule) *Set { return &Set{rules: rules} }

// Matching returns every rule whose source/sink kind sets contain
// sourceKind and sinkKind respectively.
func (s *Set) Matching(sourceKind, sinkKind kind.Kind) []Rule {
	var out []Rule
	for _, r := range s.rules {
		if containsKind(r.Sources, sourceKind) && containsKind(r.Sinks, sinkKind) {
			out = append(out, r)
		}
	}
	return out
}

// All returns every rule in the set.
func (s *Set) All() []Rule { return s.rules }

// FulfilledPartialKindState tracks, across one call stack, which partial
// kinds of which multi-source rules have already been observed. It is
// immutable; Fulfill returns a new state.
type FulfilledPartialKindState struct {
	fulfilled map[PartialKind]bool
}

// NewFulfilledPartialKindState builds an empty state.
func NewFulfilledPartialKindState() FulfilledPartialKindState {
	return FulfilledPartialKindState{fulfilled: map[PartialKind]bool{}}
}

// Fulfill returns a copy of s with pk marked fulfilled.
func (s FulfilledPartialKindState) Fulfill(pk PartialKind) FulfilledPartialKindState {
	out := make(map[PartialKind]bool, len(s.fulfilled)+1)
	for k, v := range s.fulfilled {
		out[k] = v
	}
	out[pk] = true
	return FulfilledPartialKindState{fulfilled: out}
}

// IsFulfilled reports whether pk has already been observed.
func (s FulfilledPartialKindState) IsFulfilled(pk PartialKind) bool {
	return s.fulfilled[pk]
}

// Triggered reports whether, after also fulfilling pk, every partial of r
// is now fulfilled -- meaning the full multi-source rule has triggered.
func (s FulfilledPartialKindState) Triggered(r MultiSourceRule, pk PartialKind) (FulfilledPartialKindState, bool) {
	next := s.Fulfill(pk)
	for _, partial := range r.Partials {
		if !next.IsFulfilled(partial) {
			return next, false
		}
	}
	return next, true
}
