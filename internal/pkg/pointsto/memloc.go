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

// Package pointsto implements the memory and points-to model:
// per-instruction memory locations, the aliasing graph between them, and
// the cycle widening that keeps reads of that graph terminating.
package pointsto

import (
	"fmt"
	"sync/atomic"

	"github.com/mariana-trench/mtrench-go/internal/pkg/intern"
)

// MemoryLocationKind distinguishes the four MemoryLocation variants.
type MemoryLocationKind int

const (
	// Parameter is the memory location minted for a method's i-th formal
	// parameter at method entry.
	Parameter MemoryLocationKind = iota
	// Instruction is the memory location minted for the value produced by
	// one instruction (e.g. a `new` or a call result).
	Instruction
	// FieldLocation is a lazy path hanging off a parent memory location:
	// `parent.field`.
	FieldLocation
	// FreshRoot is a memory location with no further structure, minted
	// when nothing more specific is known (e.g. an unresolved invocation's
	// result).
	FreshRoot
)

// MemoryLocation is an interned handle identifying one heap partition.
// Two MemoryLocation values compare equal iff they describe the same
// (kind, parent, field/index) tuple.
type MemoryLocation struct {
	kind       MemoryLocationKind
	index      int // Parameter position, or Instruction id, or FreshRoot id
	parent     *MemoryLocation
	field      string
}

var (
	fieldTable = intern.NewTable[MemoryLocation, MemoryLocation]()
	nextFresh  int64
)

// NewParameter mints the memory location for parameter i.
func NewParameter(i int) *MemoryLocation {
	return &MemoryLocation{kind: Parameter, index: i}
}

// NewInstruction mints the memory location for the value produced by
// instruction insnID.
func NewInstruction(insnID int) *MemoryLocation {
	return &MemoryLocation{kind: Instruction, index: insnID}
}

// NewFreshRoot mints a memory location with no further structure: used
// when a register must point somewhere but nothing more specific is
// known.
func NewFreshRoot() *MemoryLocation {
	id := atomic.AddInt64(&nextFresh, 1)
	return &MemoryLocation{kind: FreshRoot, index: int(id)}
}

// Field returns the interned memory location for parent.fieldName,
// constructing it on first use so that repeated field accesses through
// the same parent always resolve to the same handle.
func Field(parent *MemoryLocation, fieldName string) *MemoryLocation {
	key := MemoryLocation{kind: FieldLocation, parent: parent, field: fieldName}
	return fieldTable.Intern(key, func() MemoryLocation { return key })
}

// Kind reports which MemoryLocationKind this is.
func (m *MemoryLocation) Kind() MemoryLocationKind { return m.kind }

// Root walks up a chain of FieldLocation parents to the non-field root
// this memory location hangs off of.
func (m *MemoryLocation) Root() *MemoryLocation {
	cur := m
	for cur.kind == FieldLocation {
		cur = cur.parent
	}
	return cur
}

// Parent returns the immediate parent of a FieldLocation; nil otherwise.
func (m *MemoryLocation) Parent() *MemoryLocation { return m.parent }

// ParameterIndex returns the formal parameter position of a Parameter
// memory location; meaningless for any other kind.
func (m *MemoryLocation) ParameterIndex() int { return m.index }

// FieldName returns the field name of a FieldLocation; "" otherwise.
func (m *MemoryLocation) FieldName() string { return m.field }

func (m *MemoryLocation) String() string {
	switch m.kind {
	case Parameter:
		return fmt.Sprintf("Parameter(%d)", m.index)
	case Instruction:
		return fmt.Sprintf("Instruction(%d)", m.index)
	case FieldLocation:
		return m.parent.String() + "." + m.field
	case FreshRoot:
		return fmt.Sprintf("Root(%d)", m.index)
	default:
		return "<?memloc>"
	}
}
