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
	"encoding/json"
	"fmt"
)

// constraintDoc is the wire shape every constraint variant parses from: a
// "constraint" discriminator plus whichever of the remaining fields that
// variant needs. Model generator and rules-file JSON documents nest these
// wherever a Constraint is expected.
type constraintDoc struct {
	Constraint string           `json:"constraint"`
	Pattern    Regexp           `json:"pattern"`
	Index      *int             `json:"idx"`
	Static     *bool            `json:"is_static"`
	N          *int             `json:"num_parameters"`
	Inner      *ConstraintJSON  `json:"inner"`
	Inners     []ConstraintJSON `json:"inners"`
}

// ConstraintJSON unmarshals a JSON/YAML constraint document into the
// concrete Constraint it describes. It implements json.Unmarshaler so it
// can be embedded directly in model generator and rules-file structs.
type ConstraintJSON struct {
	Constraint
}

// UnmarshalJSON dispatches on the "constraint" discriminator field to
// build the concrete Constraint implementation.
func (c *ConstraintJSON) UnmarshalJSON(data []byte) error {
	var doc constraintDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	switch doc.Constraint {
	case "all_of":
		var inners And
		for _, in := range doc.Inners {
			inners = append(inners, in.Constraint)
		}
		c.Constraint = inners
	case "any_of":
		var inners Or
		for _, in := range doc.Inners {
			inners = append(inners, in.Constraint)
		}
		c.Constraint = inners
	case "not":
		if doc.Inner == nil {
			return fmt.Errorf("config: \"not\" constraint requires \"inner\"")
		}
		c.Constraint = Not{Constraint: doc.Inner.Constraint}
	case "name":
		c.Constraint = NameConstraint{Pattern: doc.Pattern}
	case "parent":
		c.Constraint = ParentConstraint{Pattern: doc.Pattern}
	case "signature":
		c.Constraint = SignatureConstraint{Pattern: doc.Pattern}
	case "has_annotation":
		c.Constraint = HasAnnotationConstraint{Pattern: doc.Pattern}
	case "parameter":
		idx := -1
		if doc.Index != nil {
			idx = *doc.Index
		}
		c.Constraint = ParameterConstraint{Index: idx, Pattern: doc.Pattern}
	case "bytecode":
		c.Constraint = BytecodePatternConstraint{Pattern: doc.Pattern}
	case "is_static":
		static := true
		if doc.Static != nil {
			static = *doc.Static
		}
		c.Constraint = IsStaticConstraint{Static: static}
	case "is_constructor":
		c.Constraint = IsConstructorConstraint{Constructor: true}
	case "number_of_parameters":
		n := 0
		if doc.N != nil {
			n = *doc.N
		}
		c.Constraint = NumParametersConstraint{N: n}
	default:
		return fmt.Errorf("config: unknown constraint kind %q", doc.Constraint)
	}
	return nil
}
