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

	"github.com/mariana-trench/mtrench-go/internal/pkg/kind"
	"github.com/mariana-trench/mtrench-go/internal/pkg/rules"
	"sigs.k8s.io/yaml"
)

// ruleDoc is the wire shape of one entry in a rules file.
type ruleDoc struct {
	Code       int      `json:"code"`
	Name       string   `json:"name"`
	Sources    []string `json:"sources"`
	Sinks      []string `json:"sinks"`
	Transforms []string `json:"transforms,omitempty"`
	Partials   []struct {
		Label   string   `json:"label"`
		Sources []string `json:"sources"`
	} `json:"partial_sources,omitempty"`
}

type rulesDoc struct {
	Rules []ruleDoc `json:"rules"`
}

func namedKinds(names []string) []kind.Kind {
	out := make([]kind.Kind, len(names))
	for i, n := range names {
		out[i] = kind.NamedKind(n)
	}
	return out
}

func transforms(names []string) []kind.Transform {
	out := make([]kind.Transform, len(names))
	for i, n := range names {
		out[i] = kind.Transform{Name: n}
	}
	return out
}

// LoadRules parses a rules document (JSON or YAML, distinguished the way
// sigs.k8s.io/yaml distinguishes them: YAML is converted to JSON before
// unmarshaling) into a rules.Set. A rule entry with a non-empty
// partial_sources list is loaded as a multi-source rule: its own Sources
// list names every partial's combined source kinds, and a PartialKind
// sink is synthesized per label, mirroring the two-sink half-rule model
// MultiSourceRule encodes.
func LoadRules(data []byte) (*rules.Set, []rules.MultiSourceRule, error) {
	var doc rulesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("config: parsing rules document: %w", err)
	}

	var plain []rules.Rule
	var multi []rules.MultiSourceRule
	for _, r := range doc.Rules {
		base := rules.Rule{
			Code:       r.Code,
			Name:       r.Name,
			Sources:    namedKinds(r.Sources),
			Sinks:      namedKinds(r.Sinks),
			Transforms: transforms(r.Transforms),
		}
		if len(r.Partials) == 0 {
			plain = append(plain, base)
			continue
		}
		var partials []rules.PartialKind
		var allSources []kind.Kind
		for _, p := range r.Partials {
			partials = append(partials, rules.PartialKind{RuleCode: r.Code, Label: p.Label})
			allSources = append(allSources, namedKinds(p.Sources)...)
		}
		base.Sources = allSources
		multi = append(multi, rules.MultiSourceRule{Rule: base, Partials: partials})
	}

	return rules.NewSet(plain...), multi, nil
}
