// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// intGraph is a basic Graph g where g[i] is the list of out-edge indexes
// of node i. Used only by this package's own tests, which exercise the
// dominance and walk algorithms directly over int-indexed graphs before
// ir.Function ever enters the picture.
type intGraph [][]int

func (g intGraph) NumNodes() int   { return len(g) }
func (g intGraph) Out(i int) []int { return g[i] }

// Example graph from Muchnick, "Advanced Compiler Design & Implementation",
// figure 8.21.
var graphMuchnick = MakeBiGraph(intGraph{
	0: {1},
	1: {2},
	2: {3, 4},
	3: {2},
	4: {5, 6},
	5: {7},
	6: {7},
	7: {},
})

// Example graph from
// https://www.seas.harvard.edu/courses/cs252/2011sp/slides/Lec04-SSA.pdf
// slide 24.
var graphCS252 = MakeBiGraph(intGraph{
	0: {1},
	1: {2, 5},
	2: {3, 4},
	3: {6},
	4: {6},
	5: {1, 7},
	6: {7},
	7: {8},
	8: {},
})
