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
	"strconv"
	"strings"

	"github.com/mariana-trench/mtrench-go/internal/pkg/accesspath"
	"github.com/mariana-trench/mtrench-go/internal/pkg/model"
	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
	"sigs.k8s.io/yaml"
)

// portDoc is a PortTemplate's wire shape, e.g.
// {"root": "argument", "position": 0, "path": ["field:x", "index:*"]}
// {"root": "argument", "variable": "x"}
// {"root": "return"}
type portDoc struct {
	Root     string   `json:"root"`
	Position *int     `json:"position"`
	Variable string   `json:"variable"`
	Name     string   `json:"name"`
	Path     []string `json:"path"`
}

func parsePathElement(s string) (pathtree.PathElement, error) {
	if s == "index:*" {
		return pathtree.AnyIndex(), nil
	}
	if strings.HasPrefix(s, "field:") {
		return pathtree.Field(strings.TrimPrefix(s, "field:")), nil
	}
	if strings.HasPrefix(s, "index:") {
		i, err := strconv.Atoi(strings.TrimPrefix(s, "index:"))
		if err != nil {
			return pathtree.PathElement{}, fmt.Errorf("config: invalid index path element %q: %w", s, err)
		}
		return pathtree.Index(i), nil
	}
	return pathtree.PathElement{}, fmt.Errorf("config: invalid path element %q", s)
}

func (d portDoc) toTemplate() (PortTemplate, error) {
	var path []pathtree.PathElement
	for _, s := range d.Path {
		e, err := parsePathElement(s)
		if err != nil {
			return PortTemplate{}, err
		}
		path = append(path, e)
	}

	t := PortTemplate{Name: d.Name, Variable: d.Variable, Path: path}
	switch d.Root {
	case "return":
		t.Root = accesspath.Return
	case "argument":
		t.Root = accesspath.Argument
		if d.Position != nil {
			t.Position = *d.Position
		}
	case "anchor":
		t.Root = accesspath.Anchor
	case "call_effect":
		t.Root = accesspath.CallEffect
	default:
		return PortTemplate{}, fmt.Errorf("config: unknown port root %q", d.Root)
	}
	return t, nil
}

type sourceDoc struct {
	Port     portDoc  `json:"port"`
	Kind     string   `json:"kind"`
	Features []string `json:"features,omitempty"`
}

type sinkDoc struct {
	Port     portDoc  `json:"port"`
	Kind     string   `json:"kind"`
	Features []string `json:"features,omitempty"`
}

type propagationDoc struct {
	Input    portDoc  `json:"input"`
	Output   portDoc  `json:"output"`
	Features []string `json:"features,omitempty"`
}

type attachToDoc struct {
	Port     portDoc  `json:"port"`
	Features []string `json:"features"`
}

type modelTemplateDoc struct {
	Sources                []sourceDoc      `json:"sources,omitempty"`
	Sinks                  []sinkDoc        `json:"sinks,omitempty"`
	Propagations           []propagationDoc `json:"propagation,omitempty"`
	AttachToSources        []attachToDoc    `json:"attach_to_sources,omitempty"`
	AttachToSinks          []attachToDoc    `json:"attach_to_sinks,omitempty"`
	AttachToPropagations   []attachToDoc    `json:"attach_to_propagations,omitempty"`
	AddFeaturesToArguments []attachToDoc    `json:"add_features_to_arguments,omitempty"`
	Modes                  []string         `json:"modes,omitempty"`
}

var modeNames = map[string]model.Mode{
	"taint-in-taint-out":          model.TaintInTaintOut,
	"taint-in-taint-this":         model.TaintInTaintThis,
	"no-join-virtual-overrides":   model.NoJoinVirtualOverrides,
	"add-via-obscure-feature":     model.AddViaObscureFeature,
	"strong-write-on-propagation": model.StrongWriteOnPropagation,
	"no-collapse-on-approximate":  model.NoCollapseOnApproximate,
}

func (d modelTemplateDoc) toTemplate() (ModelTemplate, error) {
	var out ModelTemplate
	for _, s := range d.Sources {
		port, err := s.Port.toTemplate()
		if err != nil {
			return ModelTemplate{}, err
		}
		out.Sources = append(out.Sources, SourceTemplate{Port: port, Kind: s.Kind, Features: s.Features})
	}
	for _, s := range d.Sinks {
		port, err := s.Port.toTemplate()
		if err != nil {
			return ModelTemplate{}, err
		}
		out.Sinks = append(out.Sinks, SinkTemplate{Port: port, Kind: s.Kind, Features: s.Features})
	}
	for _, p := range d.Propagations {
		in, err := p.Input.toTemplate()
		if err != nil {
			return ModelTemplate{}, err
		}
		outPort, err := p.Output.toTemplate()
		if err != nil {
			return ModelTemplate{}, err
		}
		out.Propagations = append(out.Propagations, PropagationTemplate{Input: in, Output: outPort, Features: p.Features})
	}
	attach := func(docs []attachToDoc) ([]AttachToTemplate, error) {
		var ts []AttachToTemplate
		for _, a := range docs {
			port, err := a.Port.toTemplate()
			if err != nil {
				return nil, err
			}
			ts = append(ts, AttachToTemplate{Port: port, Features: a.Features})
		}
		return ts, nil
	}
	var err error
	if out.AttachToSources, err = attach(d.AttachToSources); err != nil {
		return ModelTemplate{}, err
	}
	if out.AttachToSinks, err = attach(d.AttachToSinks); err != nil {
		return ModelTemplate{}, err
	}
	if out.AttachToPropagations, err = attach(d.AttachToPropagations); err != nil {
		return ModelTemplate{}, err
	}
	if out.AddFeaturesToArguments, err = attach(d.AddFeaturesToArguments); err != nil {
		return ModelTemplate{}, err
	}
	for _, name := range d.Modes {
		m, ok := modeNames[name]
		if !ok {
			return ModelTemplate{}, fmt.Errorf("config: unknown mode %q", name)
		}
		out.Modes |= m
	}
	return out, nil
}

type parameterConstraintDoc struct {
	Pattern Regexp `json:"pattern"`
}

type forAllParametersDoc struct {
	Variable string                   `json:"variable"`
	Where    []parameterConstraintDoc `json:"where,omitempty"`
	modelTemplateDoc
}

type generatorDoc struct {
	Name             string                `json:"name"`
	Find             ConstraintJSON        `json:"find"`
	modelTemplateDoc
	ForAllParameters []forAllParametersDoc `json:"for_all_parameters,omitempty"`
}

func (d generatorDoc) toGenerator() (Generator, error) {
	tmpl, err := d.modelTemplateDoc.toTemplate()
	if err != nil {
		return Generator{}, fmt.Errorf("generator %q: %w", d.Name, err)
	}
	g := Generator{Name: d.Name, Find: d.Find.Constraint, Template: tmpl}
	for _, fp := range d.ForAllParameters {
		fpTmpl, err := fp.modelTemplateDoc.toTemplate()
		if err != nil {
			return Generator{}, fmt.Errorf("generator %q: for_all_parameters: %w", d.Name, err)
		}
		var where []ParameterConstraint
		for _, w := range fp.Where {
			where = append(where, ParameterConstraint{Index: -1, Pattern: w.Pattern})
		}
		g.ForAllParameters = append(g.ForAllParameters, ForAllParameters{
			Variable: fp.Variable,
			Where:    where,
			Template: fpTmpl,
		})
	}
	return g, nil
}

type generatorsDoc struct {
	ModelGenerators []generatorDoc `json:"model_generators"`
}

// LoadGenerators parses a model generator document (JSON or YAML) into
// the Generators Run instantiates against a program's methods.
func LoadGenerators(data []byte) ([]Generator, error) {
	var doc generatorsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing model generator document: %w", err)
	}
	out := make([]Generator, 0, len(doc.ModelGenerators))
	for _, gd := range doc.ModelGenerators {
		g, err := gd.toGenerator()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
