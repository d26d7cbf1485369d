// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// Graph represents a directed graph whose nodes are densely numbered
// starting at 0. A Function's basic-block CFG is the canonical instance:
// block indices double as graph node indices.
type Graph interface {
	// NumNodes returns the number of nodes in this graph.
	NumNodes() int

	// Out returns the nodes to which node i points.
	Out(i int) []int
}

// BiGraph extends Graph to graphs that also expose in-edges.
type BiGraph interface {
	Graph

	// In returns the nodes which point to node i.
	In(i int) []int
}

// MakeBiGraph constructs a BiGraph from what may be a unidirectional Graph.
// If g is already a BiGraph, MakeBiGraph returns g unchanged.
func MakeBiGraph(g Graph) BiGraph {
	if bg, ok := g.(BiGraph); ok {
		return bg
	}

	preds := make([][]int, g.NumNodes())
	for i := range preds {
		for _, j := range g.Out(i) {
			preds[j] = append(preds[j], i)
		}
	}

	return &bigraph{g, preds}
}

type bigraph struct {
	Graph
	preds [][]int
}

func (b *bigraph) In(i int) []int {
	return b.preds[i]
}

// cfgGraph adapts a Function's basic blocks to the Graph/BiGraph
// interfaces, so ir's generic walker and dominance code operate on them
// without any Function-specific logic.
type cfgGraph struct {
	blocks []*BasicBlock
}

func (g cfgGraph) NumNodes() int { return len(g.blocks) }

func (g cfgGraph) Out(i int) []int {
	succs := g.blocks[i].Succs
	out := make([]int, len(succs))
	for k, s := range succs {
		out[k] = s.Index
	}
	return out
}

func (g cfgGraph) In(i int) []int {
	preds := g.blocks[i].Preds
	in := make([]int, len(preds))
	for k, p := range preds {
		in[k] = p.Index
	}
	return in
}

// CFG returns f's basic-block control-flow graph as a BiGraph over block
// indices.
func (f *Function) CFG() BiGraph {
	return cfgGraph{f.Blocks}
}

// reverseGraph flips every edge of a BiGraph; used to compute
// post-dominance as ordinary dominance over the reverse CFG.
type reverseGraph struct {
	g BiGraph
}

func (r reverseGraph) NumNodes() int   { return r.g.NumNodes() }
func (r reverseGraph) Out(i int) []int { return r.g.In(i) }
func (r reverseGraph) In(i int) []int  { return r.g.Out(i) }

// Reverse returns a BiGraph identical to g with every edge's direction
// flipped.
func Reverse(g BiGraph) BiGraph {
	return reverseGraph{g}
}
