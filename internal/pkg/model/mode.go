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

// Mode is a bitset of per-model behavior flags a model generator can set.
type Mode uint

const (
	// TaintInTaintOut synthesizes a default propagation from every
	// argument to the return value for methods with no code.
	TaintInTaintOut Mode = 1 << iota
	// TaintInTaintThis synthesizes a default propagation from every
	// argument to argument 0 (the receiver) for methods with no code.
	TaintInTaintThis
	// NoJoinVirtualOverrides is accepted from model generators and kept in
	// a Model's Mode; no part of the analysis reads it, so setting it does
	// not change how a callsite's virtual overrides are handled.
	NoJoinVirtualOverrides
	// AddViaObscureFeature tags every frame flowing through this method
	// with "via-obscure" (used for methods whose real behavior is unknown,
	// e.g. unresolved reflection targets).
	AddViaObscureFeature
	// StrongWriteOnPropagation makes apply_propagations use a Strong write
	// at the output port instead of the default Weak join.
	StrongWriteOnPropagation
	// NoCollapseOnApproximate is accepted from model generators and kept
	// in a Model's Mode; no part of the analysis reads it, so setting it
	// does not change how a propagation's input taint tree is collapsed.
	NoCollapseOnApproximate
)

// Has reports whether m has every bit in flags set.
func (m Mode) Has(flags Mode) bool { return m&flags == flags }

// FreezeKind is a four-element bitmask over the trees a Model can freeze
// against further inference.
type FreezeKind uint

const (
	FreezeGenerations FreezeKind = 1 << iota
	FreezeParameterSources
	FreezeSinks
	FreezePropagations
)

// Has reports whether fk has every bit in flags set.
func (fk FreezeKind) Has(flags FreezeKind) bool { return fk&flags == flags }
