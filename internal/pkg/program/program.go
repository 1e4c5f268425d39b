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

// Package program defines the frozen program representation the
// analysis core consumes: an immutable control-flow graph of
// opcode-tagged instructions per method, plus the type oracle and class
// hierarchy queries the call-graph builder needs. Nothing under
// internal/pkg/program decompiles or loads a .dex/.apk container; a
// concrete loader (internal/pkg/programio, or a real Dex reader) is
// expected to construct these values and hand them to the rest of the
// analysis.
package program

import (
	"fmt"
	"strings"
)

// Method is an interned handle for one method declaration. Methods are
// compared by pointer identity: two Method values are the same method iff
// they point to the same *Method, which the owning Program guarantees by
// construction.
type Method struct {
	sig         string
	class       string
	static      bool
	constructor bool
	native      bool
	returnsVoid bool
	paramTypes  []string
	code        *CFG
}

// NewMethod constructs a Method declaration. code may be nil for methods
// with no body (abstract, native, or otherwise unavailable).
func NewMethod(signature, class string, static, constructor, native, returnsVoid bool, paramTypes []string, code *CFG) *Method {
	return &Method{
		sig:         signature,
		class:       class,
		static:      static,
		constructor: constructor,
		native:      native,
		returnsVoid: returnsVoid,
		paramTypes:  append([]string{}, paramTypes...),
		code:        code,
	}
}

func (m *Method) Signature() string  { return m.sig }
func (m *Method) Class() string      { return m.class }
func (m *Method) IsStatic() bool     { return m.static }
func (m *Method) IsConstructor() bool { return m.constructor }
func (m *Method) IsNative() bool     { return m.native }
func (m *Method) ReturnsVoid() bool  { return m.returnsVoid }
func (m *Method) NumParameters() int { return len(m.paramTypes) }

// ParameterType returns the declared type of parameter i, or "" if i is
// out of range.
func (m *Method) ParameterType(i int) string {
	if i < 0 || i >= len(m.paramTypes) {
		return ""
	}
	return m.paramTypes[i]
}

// Code returns the method's CFG, or nil if the method has no body.
func (m *Method) Code() *CFG { return m.code }

func (m *Method) String() string { return m.sig }

// Selector returns the signature with the declaring class prefix
// stripped: the name:descriptor part shared by every override of this
// method, used by the call graph to find candidate overrides across a
// class hierarchy.
func (m *Method) Selector() string {
	return strings.TrimPrefix(m.sig, m.class+".")
}

// Field is an interned handle for a field declaration, used both as a
// sget/sput/iget/iput operand and as a member of a Frame's origin set.
type Field struct {
	class string
	name  string
}

// NewField constructs a Field handle for class.name.
func NewField(class, name string) *Field { return &Field{class: class, name: name} }

func (f *Field) Class() string { return f.class }
func (f *Field) Name() string  { return f.name }
func (f *Field) String() string {
	return fmt.Sprintf("%s.%s", f.class, f.name)
}

// ClassHierarchy answers extends queries over the closed type universe the
// program was built from.
type ClassHierarchy interface {
	// Extends returns the set of types that directly or transitively
	// extend (or implement) typ.
	Extends(typ string) map[string]bool
}

// TypeOracle answers the whole-program type-inference queries the call
// graph builder needs; the fixpoint itself never calls this
// interface directly, only resolved CallTargets.
type TypeOracle interface {
	ReceiverType(caller *Method, insn *Instruction) string
	RegisterType(caller *Method, insn *Instruction, reg int) string
	RegisterConstClassType(caller *Method, insn *Instruction, reg int) string
}

// Program is a closed, immutable collection of methods plus the
// collaborators the call graph needs to resolve invocations.
type Program struct {
	Methods  []*Method
	Classes  ClassHierarchy
	Types    TypeOracle
}
