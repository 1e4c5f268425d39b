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

// Package config implements the model generator and rules-file loading
// surface: a small constraint DSL for matching methods (by name, parent
// class, signature, annotation, parameter type, or raw bytecode text),
// JSON/YAML model generator templates instantiated against every method a
// constraint matches, and the rules file itself.
package config

import (
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

// Context carries the per-method metadata the frozen program
// representation doesn't model itself but the constraint DSL needs to
// match against: annotations and the raw bytecode text a bytecode-pattern
// constraint scans.
type Context struct {
	Annotations map[*program.Method][]string
	Bytecode    map[*program.Method]string
}

func (c *Context) annotationsFor(m *program.Method) []string {
	if c == nil {
		return nil
	}
	return c.Annotations[m]
}

func (c *Context) bytecodeFor(m *program.Method) string {
	if c == nil {
		return ""
	}
	return c.Bytecode[m]
}

// MethodSet is an unordered collection of candidate methods: the currency
// a Prefilterable constraint's MaySatisfyOn trades in.
type MethodSet map[*program.Method]bool

// NewMethodSet builds a MethodSet from methods.
func NewMethodSet(methods ...*program.Method) MethodSet {
	out := make(MethodSet, len(methods))
	for _, m := range methods {
		out[m] = true
	}
	return out
}

// Union returns the set union of s and other.
func (s MethodSet) Union(other MethodSet) MethodSet {
	out := make(MethodSet, len(s)+len(other))
	for m := range s {
		out[m] = true
	}
	for m := range other {
		out[m] = true
	}
	return out
}

// Intersect returns the set intersection of s and other.
func (s MethodSet) Intersect(other MethodSet) MethodSet {
	out := MethodSet{}
	for m := range s {
		if other[m] {
			out[m] = true
		}
	}
	return out
}

// Slice returns the set's members in no particular order.
func (s MethodSet) Slice() []*program.Method {
	out := make([]*program.Method, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	return out
}

// Index precomputes the lookups a Prefilterable constraint's MaySatisfyOn
// uses to narrow a program's methods down before Satisfy is checked one by
// one, so a large rule set doesn't scan every method for every rule.
type Index struct {
	all        MethodSet
	bySelector map[string][]*program.Method
	byParent   map[string][]*program.Method
}

// NewIndex builds an Index over methods.
func NewIndex(methods []*program.Method) *Index {
	idx := &Index{
		all:        NewMethodSet(methods...),
		bySelector: map[string][]*program.Method{},
		byParent:   map[string][]*program.Method{},
	}
	for _, m := range methods {
		idx.bySelector[m.Selector()] = append(idx.bySelector[m.Selector()], m)
		idx.byParent[m.Class()] = append(idx.byParent[m.Class()], m)
	}
	return idx
}

// Constraint is one predicate over a method, composable via And/Or/Not.
type Constraint interface {
	Satisfy(ctx *Context, m *program.Method) bool
}

// Prefilterable constraints can narrow an Index's candidate set before
// Satisfy is checked per-method.
type Prefilterable interface {
	MaySatisfyOn(idx *Index) MethodSet
}

// Matching returns every method in methods satisfying c, using c's
// MaySatisfyOn prefilter when available to avoid a full per-method scan.
func Matching(c Constraint, idx *Index, ctx *Context, methods []*program.Method) []*program.Method {
	candidates := methods
	if p, ok := c.(Prefilterable); ok {
		candidates = p.MaySatisfyOn(idx).Slice()
	}
	var out []*program.Method
	for _, m := range candidates {
		if c.Satisfy(ctx, m) {
			out = append(out, m)
		}
	}
	return out
}

// And requires every child constraint to be satisfied.
type And []Constraint

func (a And) Satisfy(ctx *Context, m *program.Method) bool {
	for _, c := range a {
		if !c.Satisfy(ctx, m) {
			return false
		}
	}
	return true
}

// MaySatisfyOn intersects every prefilterable child's candidate set;
// non-prefilterable children are checked later by Satisfy and don't
// narrow the set here.
func (a And) MaySatisfyOn(idx *Index) MethodSet {
	out := idx.all
	for _, c := range a {
		if p, ok := c.(Prefilterable); ok {
			out = out.Intersect(p.MaySatisfyOn(idx))
		}
	}
	return out
}

// Or requires at least one child constraint to be satisfied.
type Or []Constraint

func (o Or) Satisfy(ctx *Context, m *program.Method) bool {
	for _, c := range o {
		if c.Satisfy(ctx, m) {
			return true
		}
	}
	return false
}

// MaySatisfyOn unions every child's candidate set; if any child isn't
// prefilterable, the union can't be trusted to be a narrowing, so
// MaySatisfyOn falls back to the full index.
func (o Or) MaySatisfyOn(idx *Index) MethodSet {
	out := MethodSet{}
	for _, c := range o {
		p, ok := c.(Prefilterable)
		if !ok {
			return idx.all
		}
		out = out.Union(p.MaySatisfyOn(idx))
	}
	return out
}

// Not negates a child constraint. It has no MaySatisfyOn: "everything
// except a narrowed set" isn't itself a narrowing.
type Not struct{ Constraint Constraint }

func (n Not) Satisfy(ctx *Context, m *program.Method) bool {
	return !n.Constraint.Satisfy(ctx, m)
}

// NameConstraint matches a method's selector (name and descriptor,
// without the declaring class) against a regular expression.
type NameConstraint struct{ Pattern Regexp }

func (c NameConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	return c.Pattern.MatchString(m.Selector())
}

func (c NameConstraint) MaySatisfyOn(idx *Index) MethodSet {
	out := MethodSet{}
	for selector, ms := range idx.bySelector {
		if c.Pattern.MatchString(selector) {
			for _, m := range ms {
				out[m] = true
			}
		}
	}
	return out
}

// ParentConstraint matches a method's declaring class against a regular
// expression.
type ParentConstraint struct{ Pattern Regexp }

func (c ParentConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	return c.Pattern.MatchString(m.Class())
}

func (c ParentConstraint) MaySatisfyOn(idx *Index) MethodSet {
	out := MethodSet{}
	for class, ms := range idx.byParent {
		if c.Pattern.MatchString(class) {
			for _, m := range ms {
				out[m] = true
			}
		}
	}
	return out
}

// SignatureConstraint matches a method's full signature against a regular
// expression.
type SignatureConstraint struct{ Pattern Regexp }

func (c SignatureConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	return c.Pattern.MatchString(m.Signature())
}

// HasAnnotationConstraint matches methods carrying an annotation whose
// name matches Pattern, as recorded in the Context: the frozen program
// representation carries no notion of annotations itself.
type HasAnnotationConstraint struct{ Pattern Regexp }

func (c HasAnnotationConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	for _, ann := range ctx.annotationsFor(m) {
		if c.Pattern.MatchString(ann) {
			return true
		}
	}
	return false
}

// ParameterConstraint matches the declared type of the parameter at Index
// against a regular expression. A negative Index matches any parameter
// (used by ForAllParameters to test a candidate position's type).
type ParameterConstraint struct {
	Index   int
	Pattern Regexp
}

func (c ParameterConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	if c.Index < 0 {
		for i := 0; i < m.NumParameters(); i++ {
			if c.Pattern.MatchString(m.ParameterType(i)) {
				return true
			}
		}
		return false
	}
	return c.Pattern.MatchString(m.ParameterType(c.Index))
}

// BytecodePatternConstraint matches a method's raw bytecode text (as
// recorded in the Context) against a regular expression: an escape hatch
// for shapes the other constraints can't express, and the slowest one to
// evaluate.
type BytecodePatternConstraint struct{ Pattern Regexp }

func (c BytecodePatternConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	return c.Pattern.MatchString(ctx.bytecodeFor(m))
}

// IsStaticConstraint matches methods by their static-ness.
type IsStaticConstraint struct{ Static bool }

func (c IsStaticConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	return m.IsStatic() == c.Static
}

// IsConstructorConstraint matches methods by whether they are a
// constructor.
type IsConstructorConstraint struct{ Constructor bool }

func (c IsConstructorConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	return m.IsConstructor() == c.Constructor
}

// NumParametersConstraint matches methods with exactly N parameters.
type NumParametersConstraint struct{ N int }

func (c NumParametersConstraint) Satisfy(ctx *Context, m *program.Method) bool {
	return m.NumParameters() == c.N
}
