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

import "fmt"

// ClassInterval is a numeric range of subclass identifiers used to
// distinguish which concrete receiver types a frame's taint is valid for.
type ClassInterval struct {
	Lower, Upper int
}

// Intersect returns the intersection of i and other, and whether it is
// non-empty.
func (i ClassInterval) Intersect(other ClassInterval) (ClassInterval, bool) {
	lo, hi := i.Lower, i.Upper
	if other.Lower > lo {
		lo = other.Lower
	}
	if other.Upper < hi {
		hi = other.Upper
	}
	if lo > hi {
		return ClassInterval{}, false
	}
	return ClassInterval{Lower: lo, Upper: hi}, true
}

func (i ClassInterval) String() string { return fmt.Sprintf("[%d,%d]", i.Lower, i.Upper) }

// IntervalContext pairs a ClassInterval with the flag that controls
// whether it filters callee frames when crossing a callsite: a frame that
// PreservesTypeContext is intersected against the caller's interval at
// propagation time; one that does not carries its interval through
// unchanged.
type IntervalContext struct {
	Interval             ClassInterval
	PreservesTypeContext bool
}

// Default is the interval context a freshly declared frame carries before
// it has crossed any callsite.
var Default = IntervalContext{Interval: ClassInterval{Lower: 0, Upper: 0}, PreservesTypeContext: false}
