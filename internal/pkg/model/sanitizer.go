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

package model

import "github.com/mariana-trench/mtrench-go/internal/pkg/kind"

// SanitizerTarget names which of a Model's three trees a Sanitizer
// applies to.
type SanitizerTarget int

const (
	SanitizeSources SanitizerTarget = iota
	SanitizeSinks
	SanitizePropagations
)

// Sanitizer removes taint of the given kinds (or every kind, if Kinds is
// empty) from the named target tree at the port it is attached to.
type Sanitizer struct {
	Target SanitizerTarget
	Kinds  []kind.Kind
}

// Sanitizes reports whether this sanitizer removes k (an empty Kinds list
// means "removes every kind").
func (s Sanitizer) Sanitizes(k kind.Kind) bool {
	if len(s.Kinds) == 0 {
		return true
	}
	for _, sk := range s.Kinds {
		if sk == k {
			return true
		}
	}
	return false
}
