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

	"github.com/mariana-trench/mtrench-go/internal/pkg/position"
	"github.com/mariana-trench/mtrench-go/internal/pkg/program"
)

// callInfoIntervalKey is the grouping key KindFrames uses:
// (call-info, interval). Frames that land in the same group are always
// joined pointwise; frames in different groups are kept side by side so
// that, e.g., taint valid only for a narrow receiver-type interval is not
// accidentally widened by joining it with taint valid for every receiver.
type callInfoIntervalKey struct {
	callKind     CallKind
	calleeMethod *program.Method
	position     position.Position
	lower, upper int
	preserves    bool
}

func keyOf(f Frame) callInfoIntervalKey {
	return callInfoIntervalKey{
		callKind:     f.CallKind,
		calleeMethod: f.CalleeMethod,
		position:     f.CallPosition,
		lower:        f.Interval.Interval.Lower,
		upper:        f.Interval.Interval.Upper,
		preserves:    f.Interval.PreservesTypeContext,
	}
}

// KindFrames is the set of frames for a single Kind, grouped internally by
// (call-info, interval) so that join is pointwise within a group and
// simply accumulates distinct groups.
type KindFrames struct {
	groups map[callInfoIntervalKey]Frame
}

// EmptyKindFrames is the bottom KindFrames: no groups.
func EmptyKindFrames() KindFrames {
	return KindFrames{groups: map[callInfoIntervalKey]Frame{}}
}

// Add inserts f into its (call-info, interval) group, joining with
// whatever is already there.
func (kf KindFrames) Add(f Frame) KindFrames {
	out := kf.clone()
	key := keyOf(f)
	if existing, ok := out.groups[key]; ok {
		out.groups[key] = existing.Join(f)
	} else {
		out.groups[key] = f
	}
	return out
}

func (kf KindFrames) clone() KindFrames {
	groups := make(map[callInfoIntervalKey]Frame, len(kf.groups))
	for k, v := range kf.groups {
		groups[k] = v
	}
	return KindFrames{groups: groups}
}

// IsBottom reports whether kf has no groups.
func (kf KindFrames) IsBottom() bool { return len(kf.groups) == 0 }

// Join returns the pointwise join of kf and other: shared groups join;
// groups present only on one side are kept as-is.
func (kf KindFrames) Join(other KindFrames) KindFrames {
	out := kf.clone()
	for key, f := range other.groups {
		if existing, ok := out.groups[key]; ok {
			out.groups[key] = existing.Join(f)
		} else {
			out.groups[key] = f
		}
	}
	return out
}

// Leq reports whether every group of kf is dominated by the matching
// group of other (a group missing from other makes kf not Leq other
// unless kf's value there is bottom).
func (kf KindFrames) Leq(other KindFrames) bool {
	for key, f := range kf.groups {
		o, ok := other.groups[key]
		if !ok {
			if !f.Bot {
				return false
			}
			continue
		}
		if !f.Leq(o) {
			return false
		}
	}
	return true
}

// Difference removes from kf every group whose value is Leq the matching
// group in other.
func (kf KindFrames) Difference(other KindFrames) KindFrames {
	out := EmptyKindFrames()
	for key, f := range kf.groups {
		if o, ok := other.groups[key]; ok && f.Leq(o) {
			continue
		}
		out.groups[key] = f
	}
	return out
}

// Frames returns every frame across all groups, ordered by the group
// key's position and then by its interval's lower bound; groups equal on
// both come out in no fixed order.
func (kf KindFrames) Frames() []Frame {
	out := make([]Frame, 0, len(kf.groups))
	keys := make([]callInfoIntervalKey, 0, len(kf.groups))
	for k := range kf.groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.position != b.position {
			return a.position.String() < b.position.String()
		}
		return a.lower < b.lower
	})
	for _, k := range keys {
		out = append(out, kf.groups[k])
	}
	return out
}

// Map returns a new KindFrames with fn applied to every frame; frames for
// which fn returns a bottom frame are dropped.
func (kf KindFrames) Map(fn func(Frame) Frame) KindFrames {
	out := EmptyKindFrames()
	for _, f := range kf.groups {
		mapped := fn(f)
		if mapped.Bot {
			continue
		}
		out = out.Add(mapped)
	}
	return out
}
