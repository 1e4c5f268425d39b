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
	"regexp"
)

// Regexp wraps regexp.Regexp so it can be read directly out of a rules or
// model generator JSON/YAML document as a plain string field.
type Regexp struct {
	re *regexp.Regexp
}

// NewRegexp compiles pattern.
func NewRegexp(pattern string) (Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regexp{}, fmt.Errorf("config: invalid pattern %q: %w", pattern, err)
	}
	return Regexp{re: re}, nil
}

// MustRegexp compiles pattern, panicking on error; for constraints built
// from Go literals rather than parsed documents.
func MustRegexp(pattern string) Regexp {
	r, err := NewRegexp(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// MatchString reports whether s contains any match of the regexp. An
// unset Regexp (the zero value) matches nothing.
func (r Regexp) MatchString(s string) bool {
	if r.re == nil {
		return false
	}
	return r.re.MatchString(s)
}

func (r Regexp) String() string {
	if r.re == nil {
		return ""
	}
	return r.re.String()
}

// UnmarshalJSON accepts a JSON string holding the pattern.
func (r *Regexp) UnmarshalJSON(data []byte) error {
	var pattern string
	if err := json.Unmarshal(data, &pattern); err != nil {
		return err
	}
	compiled, err := NewRegexp(pattern)
	if err != nil {
		return err
	}
	*r = compiled
	return nil
}

// MarshalJSON renders the pattern back out as a JSON string.
func (r Regexp) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}
