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
	"fmt"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/feature"
	"github.com/mariana-trench/mtrench-go/internal/pkg/frame"
	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/model"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"github.com/mariana-trench/mtrench-go/internal/pkg/taint"
)

// Variables binds the free parameter-position variables a ForAllParameters
// block introduces (e.g. "x" -> 2) for one instantiation of its templates.
type Variables map[string]int

// PortTemplate is an AccessPath whose root position may be a literal
// argument index or a bound variable name, resolved against Variables at
// instantiation time.
type PortTemplate struct {
	Root     accesspath.RootKind
	Position int    // meaningful when Variable == ""
	Variable string // meaningful when non-empty
	Name     string // meaningful for Anchor/CallEffect roots
	Path     []pathtree.PathElement
}

// ReturnPort anchors the method's return value.
func ReturnPort(path ...pathtree.PathElement) PortTemplate {
	return PortTemplate{Root: accesspath.Return, Path: path}
}

// ArgumentPort anchors a fixed parameter position.
func ArgumentPort(position int, path ...pathtree.PathElement) PortTemplate {
	return PortTemplate{Root: accesspath.Argument, Position: position, Path: path}
}

// VariablePort anchors the parameter position bound to variable.
func VariablePort(variable string, path ...pathtree.PathElement) PortTemplate {
	return PortTemplate{Root: accesspath.Argument, Variable: variable, Path: path}
}

// Instantiate resolves t against vars, producing a concrete AccessPath.
func (t PortTemplate) Instantiate(vars Variables) (accesspath.AccessPath, error) {
	position := t.Position
	if t.Variable != "" {
		v, ok := vars[t.Variable]
		if !ok {
			return accesspath.AccessPath{}, fmt.Errorf("config: unbound parameter variable %q", t.Variable)
		}
		position = v
	}
	var root accesspath.Root
	switch t.Root {
	case accesspath.Return:
		root = accesspath.ReturnRoot()
	case accesspath.Argument:
		root = accesspath.ArgumentRoot(position)
	case accesspath.Anchor:
		root = accesspath.AnchorRoot(t.Name)
	case accesspath.CallEffect:
		root = accesspath.CallEffectRoot(t.Name)
	default:
		return accesspath.AccessPath{}, fmt.Errorf("config: unsupported port root kind %v", t.Root)
	}
	path := pathtree.Path{}
	for _, e := range t.Path {
		path = path.Append(e)
	}
	return accesspath.New(root, path), nil
}

// SourceTemplate declares a source kind at a port: a parameter source
// (taint present on entry) when the port is rooted at an argument, and a
// generation (taint that appears as a side effect of calling this method)
// for any other port.
type SourceTemplate struct {
	Port     PortTemplate
	Kind     string
	Features []string
}

// SinkTemplate declares a sink kind at a port.
type SinkTemplate struct {
	Port     PortTemplate
	Kind     string
	Features []string
}

// PropagationTemplate declares a propagation from Input to Output.
type PropagationTemplate struct {
	Input    PortTemplate
	Output   PortTemplate
	Features []string
}

// AttachToTemplate declares features attached to every frame passing
// through a port, independent of kind.
type AttachToTemplate struct {
	Port     PortTemplate
	Features []string
}

func featureSet(names []string) feature.Set {
	fs := make([]feature.Feature, len(names))
	for i, n := range names {
		fs[i] = feature.New(n)
	}
	return feature.NewSet(fs...)
}

// ModelTemplate is one instantiated model generator rule's set of model
// mutations, applied to every method a Find constraint matches.
type ModelTemplate struct {
	Sources                []SourceTemplate
	Sinks                  []SinkTemplate
	Propagations           []PropagationTemplate
	AttachToSources        []AttachToTemplate
	AttachToSinks          []AttachToTemplate
	AttachToPropagations   []AttachToTemplate
	AddFeaturesToArguments []AttachToTemplate
	Modes                  model.Mode
}

// Apply instantiates every template against vars and folds the result
// into m, returning the updated Model.
func (t ModelTemplate) Apply(m *model.Model, vars Variables) (*model.Model, error) {
	m = m.Clone()
	m.Mode |= t.Modes

	for _, s := range t.Sources {
		port, err := s.Port.Instantiate(vars)
		if err != nil {
			return nil, err
		}
		k := kind.NamedKind(s.Kind)
		fs := featureSet(s.Features)
		origin := taint.Zero.Add(frame.Declared(k, port, fs))
		if port.Root.Kind == accesspath.Argument {
			m = m.AddInferredParameterSource(port, origin, feature.Set{})
		} else {
			m = m.AddInferredGeneration(port, origin, feature.Set{})
		}
	}

	for _, s := range t.Sinks {
		port, err := s.Port.Instantiate(vars)
		if err != nil {
			return nil, err
		}
		k := kind.NamedKind(s.Kind)
		fs := featureSet(s.Features)
		leaf := taint.Zero.Add(frame.Declared(k, port, fs))
		m = m.AddInferredSink(port, leaf, feature.Set{})
	}

	for _, p := range t.Propagations {
		input, err := p.Input.Instantiate(vars)
		if err != nil {
			return nil, err
		}
		output, err := p.Output.Instantiate(vars)
		if err != nil {
			return nil, err
		}
		k := propagationKindFor(output)
		paths := frame.NewOutputPaths(frame.Unbounded)
		f := frame.PropagationFrame(k, output, paths)
		f.UserFeatures = featureSet(p.Features)
		propagated := taint.Zero.Add(f)
		m = m.AddInferredPropagation(input, propagated, feature.Set{})
	}

	for _, a := range t.AttachToSources {
		port, err := a.Port.Instantiate(vars)
		if err != nil {
			return nil, err
		}
		m = m.AddAttachToSources(port.Root, featureSet(a.Features))
	}
	for _, a := range t.AttachToSinks {
		port, err := a.Port.Instantiate(vars)
		if err != nil {
			return nil, err
		}
		m = m.AddAttachToSinks(port.Root, featureSet(a.Features))
	}
	for _, a := range t.AttachToPropagations {
		port, err := a.Port.Instantiate(vars)
		if err != nil {
			return nil, err
		}
		m = m.AddAttachToPropagations(port.Root, featureSet(a.Features))
	}
	for _, a := range t.AddFeaturesToArguments {
		port, err := a.Port.Instantiate(vars)
		if err != nil {
			return nil, err
		}
		m = m.AddAddFeaturesToArguments(port.Root, featureSet(a.Features))
	}

	return m, nil
}

// propagationKindFor returns the propagation kind a PropagationFrame is
// tagged with, based on the output port's root: a return output is
// local-return, an argument output is local-argument at that position.
func propagationKindFor(output accesspath.AccessPath) kind.Kind {
	if output.Root.Kind == accesspath.Return {
		return kind.LocalReturnKind()
	}
	return kind.LocalArgumentKind(output.Root.Position)
}

// ForAllParameters instantiates ModelTemplate once per parameter position
// of a matched method satisfying Where, binding Variable to that
// position for the instantiation.
type ForAllParameters struct {
	Variable string
	Where    []ParameterConstraint
	Template ModelTemplate
}

func (f ForAllParameters) satisfiesWhere(ctx *Context, m *program.Method, position int) bool {
	for _, w := range f.Where {
		w.Index = position
		if !w.Satisfy(ctx, m) {
			return false
		}
	}
	return true
}

// Apply runs Template once for each of m's parameter positions that
// satisfies Where, with Variable bound to that position.
func (f ForAllParameters) Apply(ctx *Context, m *model.Model) (*model.Model, error) {
	out := m
	for i := 0; i < m.Method.NumParameters(); i++ {
		if !f.satisfiesWhere(ctx, m.Method, i) {
			continue
		}
		var err error
		out, err = f.Template.Apply(out, Variables{f.Variable: i})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Generator is one complete model generator rule: a Find constraint plus
// the model mutations applied to every method it matches, and any
// per-parameter ForAllParameters blocks.
type Generator struct {
	Name             string
	Find             Constraint
	Template         ModelTemplate
	ForAllParameters []ForAllParameters
}

// Apply runs the generator's Template (and any ForAllParameters blocks)
// against a single matched method's (possibly already-mutated) Model.
func (g Generator) Apply(ctx *Context, m *model.Model) (*model.Model, error) {
	out, err := g.Template.Apply(m, Variables{})
	if err != nil {
		return nil, fmt.Errorf("generator %q: %w", g.Name, err)
	}
	for _, fp := range g.ForAllParameters {
		out, err = fp.Apply(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("generator %q: %w", g.Name, err)
		}
	}
	return out, nil
}

// Run applies every generator to every method of the index it matches,
// building a fresh Model per method the first time it is touched and
// joining subsequent generator mutations onto it.
func Run(generators []Generator, idx *Index, ctx *Context, methods []*program.Method) (map[*program.Method]*model.Model, error) {
	models := map[*program.Method]*model.Model{}
	for _, g := range generators {
		for _, m := range Matching(g.Find, idx, ctx, methods) {
			base, ok := models[m]
			if !ok {
				base = model.New(m)
			}
			updated, err := g.Apply(ctx, base)
			if err != nil {
				return nil, err
			}
			models[m] = updated
		}
	}
	return models, nil
}
