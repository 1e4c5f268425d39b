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
	"math"

	"github.com/mariana-trench/mtrench-go/internal/pkg/pathtree"
)

// Depth is the collapse-depth element stored at each node of a
// propagation frame's OutputPaths tree: a tree of collapse-depths for
// propagations. Unbounded is the lattice's bottom: it means no collapse
// constraint has been recorded for that path. Combining two recorded
// depths keeps the tighter (smaller) one, so that joining propagations
// never silently grows how much of a tree downstream readers may keep.
type Depth int

// Unbounded is the bottom Depth: "no collapse recorded here".
const Unbounded Depth = math.MaxInt32

func (d Depth) Bottom() bool { return d == Unbounded }

func (d Depth) Leq(other Depth) bool { return d >= other }

func (d Depth) Join(other Depth) Depth {
	if d < other {
		return d
	}
	return other
}

// OutputPaths is the tree of collapse-depths a propagation frame carries:
// for each path below the propagation's output port, the maximum depth of
// taint tree that may survive the propagation.
type OutputPaths = pathtree.Tree[Depth]

// NewOutputPaths builds an OutputPaths tree that is bottom everywhere
// except the root, which is set to depth.
func NewOutputPaths(depth Depth) *OutputPaths {
	return pathtree.New(depth, outputPathsConfig)
}

// EmptyOutputPaths is the bottom OutputPaths tree (no collapse-depth
// recorded anywhere); non-propagation frames carry this.
func EmptyOutputPaths() *OutputPaths {
	return pathtree.Empty[Depth](outputPathsConfig)
}

var outputPathsConfig = &pathtree.Config[Depth]{MaxHeightAfterWidening: 4}
