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

package frame

import (
	"sort"

	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

// OriginSet is the set of methods, fields, and crtex canonical names that
// a frame traces back to. It joins by set union.
type OriginSet struct {
	methods map[*program.Method]bool
	fields  map[*program.Field]bool
	crtex   map[string]bool
}

// MethodOrigin builds a singleton OriginSet for a method.
func MethodOrigin(m *program.Method) OriginSet {
	return OriginSet{methods: map[*program.Method]bool{m: true}}
}

// FieldOrigin builds a singleton OriginSet for a field.
func FieldOrigin(f *program.Field) OriginSet {
	return OriginSet{fields: map[*program.Field]bool{f: true}}
}

// CrtexOrigin builds a singleton OriginSet for a canonical crtex name.
func CrtexOrigin(name string) OriginSet {
	return OriginSet{crtex: map[string]bool{name: true}}
}

// Union returns the set union of o and other.
func (o OriginSet) Union(other OriginSet) OriginSet {
	out := OriginSet{
		methods: make(map[*program.Method]bool, len(o.methods)+len(other.methods)),
		fields:  make(map[*program.Field]bool, len(o.fields)+len(other.fields)),
		crtex:   make(map[string]bool, len(o.crtex)+len(other.crtex)),
	}
	for k := range o.methods {
		out.methods[k] = true
	}
	for k := range other.methods {
		out.methods[k] = true
	}
	for k := range o.fields {
		out.fields[k] = true
	}
	for k := range other.fields {
		out.fields[k] = true
	}
	for k := range o.crtex {
		out.crtex[k] = true
	}
	for k := range other.crtex {
		out.crtex[k] = true
	}
	return out
}

// Equal reports whether o and other contain exactly the same origins.
func (o OriginSet) Equal(other OriginSet) bool {
	if len(o.methods) != len(other.methods) || len(o.fields) != len(other.fields) || len(o.crtex) != len(other.crtex) {
		return false
	}
	for k := range o.methods {
		if !other.methods[k] {
			return false
		}
	}
	for k := range o.fields {
		if !other.fields[k] {
			return false
		}
	}
	for k := range o.crtex {
		if !other.crtex[k] {
			return false
		}
	}
	return true
}

// Methods returns the method origins in a stable order.
func (o OriginSet) Methods() []*program.Method {
	out := make([]*program.Method, 0, len(o.methods))
	for m := range o.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature() < out[j].Signature() })
	return out
}

// CrtexNames returns the crtex canonical names in sorted order.
func (o OriginSet) CrtexNames() []string {
	out := make([]string, 0, len(o.crtex))
	for n := range o.crtex {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
