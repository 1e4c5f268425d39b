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

// Package programio loads a program.Program from a JSON or YAML document
// for test and demo use. Real Dex/APK loading is explicitly out of scope
// for this analyzer (spec.md §1); this package exists only so the CLI
// and integration tests have a closed, serializable program representation
// to feed the analysis core without a real Dex front end.
package programio

import (
	"fmt"
	"os"

	"github.com/mariana-trench/mtrench-go/internal/pkg/config"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
	"sigs.k8s.io/yaml"
)

type instructionDoc struct {
	ID           int      `json:"id"`
	Op           string   `json:"op"`
	Dest         int      `json:"dest,omitempty"`
	Srcs         []int    `json:"srcs,omitempty"`
	FieldClass   string   `json:"field_class,omitempty"`
	FieldName    string   `json:"field_name,omitempty"`
	ParamIndex   int      `json:"param_index,omitempty"`
	InvokeTarget string   `json:"invoke_target,omitempty"`
	InvokeArgs   []int    `json:"invoke_args,omitempty"`
	CastType     string   `json:"cast_type,omitempty"`
	Const        string   `json:"const,omitempty"`
}

type blockDoc struct {
	ID           int              `json:"id"`
	Instructions []instructionDoc `json:"instructions"`
	Successors   []int            `json:"successors,omitempty"`
}

type cfgDoc struct {
	Entry  int        `json:"entry"`
	Blocks []blockDoc `json:"blocks"`
}

type methodDoc struct {
	Signature   string   `json:"signature"`
	Class       string   `json:"class"`
	Static      bool     `json:"static,omitempty"`
	Constructor bool     `json:"constructor,omitempty"`
	Native      bool     `json:"native,omitempty"`
	ReturnsVoid bool     `json:"returns_void,omitempty"`
	Parameters  []string `json:"parameters,omitempty"`
	Code        *cfgDoc  `json:"code,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	Bytecode    string   `json:"bytecode,omitempty"`
}

type programDoc struct {
	Methods []methodDoc `json:"methods"`
	// ClassParents maps a class to its direct supertypes/interfaces; the
	// loaded ClassHierarchy answers Extends(base) with the transitive
	// closure of every class reachable by walking this relation in
	// reverse.
	ClassParents map[string][]string `json:"class_parents,omitempty"`
	// ReceiverTypes, RegisterTypes and ConstClassTypes key a per-invoke or
	// per-register type-oracle fact as "<signature>#<insnID>" or
	// "<signature>#<insnID>#<reg>".
	ReceiverTypes   map[string]string `json:"receiver_types,omitempty"`
	RegisterTypes   map[string]string `json:"register_types,omitempty"`
	ConstClassTypes map[string]string `json:"const_class_types,omitempty"`
}

var opcodeByName = map[string]program.Opcode{
	"load-param":       program.OpLoadParam,
	"move":             program.OpMove,
	"move-result":      program.OpMoveResult,
	"check-cast":       program.OpCheckCast,
	"iget":             program.OpIGet,
	"sget":             program.OpSGet,
	"iput":             program.OpIPut,
	"sput":             program.OpSPut,
	"new-array":        program.OpNewArray,
	"filled-new-array": program.OpFilledNewArray,
	"aget":             program.OpAGet,
	"aput":             program.OpAPut,
	"invoke":           program.OpInvoke,
	"return":           program.OpReturn,
	"return-void":      program.OpReturnVoid,
	"const":            program.OpConst,
	"goto":             program.OpGoto,
	"if":               program.OpIf,
	"other":            program.OpOther,
}

func (d instructionDoc) toInstruction() (*program.Instruction, error) {
	op, ok := opcodeByName[d.Op]
	if !ok {
		return nil, fmt.Errorf("programio: unknown opcode %q at instruction %d", d.Op, d.ID)
	}
	insn := &program.Instruction{
		ID:           d.ID,
		Op:           op,
		Dest:         d.Dest,
		Srcs:         append([]int{}, d.Srcs...),
		ParamIndex:   d.ParamIndex,
		InvokeTarget: d.InvokeTarget,
		InvokeArgs:   append([]int{}, d.InvokeArgs...),
		CastType:     d.CastType,
		Const:        d.Const,
	}
	if d.FieldClass != "" || d.FieldName != "" {
		insn.Field = program.NewField(d.FieldClass, d.FieldName)
	}
	return insn, nil
}

func (d cfgDoc) toCFG() (*program.CFG, error) {
	blocks := make(map[int]*program.Block, len(d.Blocks))
	for _, b := range d.Blocks {
		block := &program.Block{ID: b.ID, Successors: append([]int{}, b.Successors...)}
		for _, id := range b.Instructions {
			insn, err := id.toInstruction()
			if err != nil {
				return nil, err
			}
			block.Instructions = append(block.Instructions, insn)
		}
		blocks[b.ID] = block
	}
	return &program.CFG{Entry: d.Entry, Blocks: blocks}, nil
}

// classHierarchy answers Extends queries from a precomputed child->parent
// adjacency, inverted and transitively closed once at load time.
type classHierarchy struct {
	descendants map[string]map[string]bool
}

func (h *classHierarchy) Extends(typ string) map[string]bool {
	if h == nil {
		return nil
	}
	return h.descendants[typ]
}

func buildClassHierarchy(parents map[string][]string) *classHierarchy {
	descendants := map[string]map[string]bool{}
	var addAncestors func(child, cur string, visiting map[string]bool)
	addAncestors = func(child, cur string, visiting map[string]bool) {
		for _, parent := range parents[cur] {
			if visiting[parent] {
				continue // cyclic class_parents entry; ignore rather than loop forever.
			}
			if descendants[parent] == nil {
				descendants[parent] = map[string]bool{}
			}
			descendants[parent][child] = true
			visiting[parent] = true
			addAncestors(child, parent, visiting)
			delete(visiting, parent)
		}
	}
	for child := range parents {
		addAncestors(child, child, map[string]bool{child: true})
	}
	return &classHierarchy{descendants: descendants}
}

// typeOracle answers the whole-program type-inference queries the call
// graph builder needs from flat, pre-resolved JSON tables: a real
// implementation backs these with the actual type-inference pass
// (spec.md §1 names it an external oracle), which this loader stands in
// for.
type typeOracle struct {
	receiver   map[string]string
	register   map[string]string
	constClass map[string]string
}

func insnKey(caller *program.Method, insn *program.Instruction) string {
	return fmt.Sprintf("%s#%d", caller.Signature(), insn.ID)
}

func regKey(caller *program.Method, insn *program.Instruction, reg int) string {
	return fmt.Sprintf("%s#%d#%d", caller.Signature(), insn.ID, reg)
}

func (o *typeOracle) ReceiverType(caller *program.Method, insn *program.Instruction) string {
	if o == nil {
		return ""
	}
	return o.receiver[insnKey(caller, insn)]
}

func (o *typeOracle) RegisterType(caller *program.Method, insn *program.Instruction, reg int) string {
	if o == nil {
		return ""
	}
	return o.register[regKey(caller, insn, reg)]
}

func (o *typeOracle) RegisterConstClassType(caller *program.Method, insn *program.Instruction, reg int) string {
	if o == nil {
		return ""
	}
	return o.constClass[regKey(caller, insn, reg)]
}

// Load reads a JSON or YAML program document from path and returns the
// program.Program plus the config.Context (annotations and raw bytecode
// text) the model generator constraint DSL matches against.
func Load(path string) (*program.Program, *config.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("programio: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes data (JSON, or YAML converted to JSON) into a
// program.Program and config.Context.
func Parse(data []byte) (*program.Program, *config.Context, error) {
	var doc programDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("programio: parsing program document: %w", err)
	}

	ctx := &config.Context{
		Annotations: map[*program.Method][]string{},
		Bytecode:    map[*program.Method]string{},
	}

	methods := make([]*program.Method, 0, len(doc.Methods))
	for _, md := range doc.Methods {
		var cfg *program.CFG
		if md.Code != nil {
			var err error
			cfg, err = md.Code.toCFG()
			if err != nil {
				return nil, nil, fmt.Errorf("programio: method %q: %w", md.Signature, err)
			}
		}
		m := program.NewMethod(md.Signature, md.Class, md.Static, md.Constructor, md.Native, md.ReturnsVoid, md.Parameters, cfg)
		methods = append(methods, m)
		if len(md.Annotations) > 0 {
			ctx.Annotations[m] = md.Annotations
		}
		if md.Bytecode != "" {
			ctx.Bytecode[m] = md.Bytecode
		}
	}

	// The JSON keys already use insnKey/regKey's "<signature>#<insnID>
	// [#<reg>]" format directly, so the tables can be adopted as-is.
	oracle := &typeOracle{
		receiver:   doc.ReceiverTypes,
		register:   doc.RegisterTypes,
		constClass: doc.ConstClassTypes,
	}
	if oracle.receiver == nil {
		oracle.receiver = map[string]string{}
	}
	if oracle.register == nil {
		oracle.register = map[string]string{}
	}
	if oracle.constClass == nil {
		oracle.constClass = map[string]string{}
	}

	prog := &program.Program{
		Methods: methods,
		Classes: buildClassHierarchy(doc.ClassParents),
		Types:   oracle,
	}
	return prog, ctx, nil
}

