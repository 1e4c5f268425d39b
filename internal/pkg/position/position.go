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

// Package position implements the interned source-position handles a
// Frame's call-position field points to.
package position

import (
	"fmt"

	"github.com/mariana-trench/mtrench-go/internal/pkg/intern"
)

// Position identifies a source file and line that a frame can be
// attributed to for diagnostics.
type Position struct {
	Path string
	Line int
}

// None is the zero Position, used for frames that have no known source
// location (e.g. a Declaration frame before it has ever crossed a call).
var None = Position{}

var table = intern.NewTable[Position, Position]()

// Intern returns the canonical Position for (path, line).
func Intern(path string, line int) Position {
	p := Position{Path: path, Line: line}
	return *table.Intern(p, func() Position { return p })
}

func (p Position) String() string {
	if p == None {
		return "<no position>"
	}
	return fmt.Sprintf("%s:%d", p.Path, p.Line)
}
