// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package slice computes backward program slices over a system dependence
// graph: given a criterion (a set of instructions whose values must be
// preserved), it marks the instructions that may influence them and emits
// the residual program with everything else removed.
package slice

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/sdg"
)

// Slicer runs two-phase backward reachability over an SDG. Each Slice
// call allocates a fresh nonzero slice id; a node's id records the most
// recent slice containing it, zero meaning "in no slice".
type Slicer struct {
	G *sdg.Graph

	ids    map[*sdg.Node]int
	nextID int
}

// New returns a Slicer over g.
func New(g *sdg.Graph) *Slicer {
	return &Slicer{G: g, ids: make(map[*sdg.Node]int), nextID: 1}
}

// Result is one slice: the set of instructions that may influence the
// criterion, under the id they were marked with.
type Result struct {
	ID        int
	Criterion []*ir.Node

	nodes map[*sdg.Node]bool
}

// Contains reports whether instruction n is in the slice.
func (r *Result) Contains(n *ir.Node) bool {
	for m := range r.nodes {
		if m.Kind == sdg.Instruction && m.Insn == n {
			return true
		}
	}
	return false
}

// Instructions returns the sliced instructions in ascending node-ID order.
// Synthetic parameter nodes are not included; they exist only in the SDG.
func (r *Result) Instructions() []*ir.Node {
	var out []*ir.Node
	for m := range r.nodes {
		if m.Kind == sdg.Instruction {
			out = append(out, m.Insn)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// SliceID returns the id node n was last marked with, or zero.
func (s *Slicer) SliceID(n *ir.Node) int {
	if sn := s.G.NodeOf(n); sn != nil {
		return s.ids[sn]
	}
	return 0
}

// Slice computes the backward slice of criterion. An empty criterion
// yields an empty slice (and hence an empty residual program).
func (s *Slicer) Slice(criterion []*ir.Node) *Result {
	id := s.nextID
	s.nextID++
	res := &Result{ID: id, Criterion: criterion, nodes: make(map[*sdg.Node]bool)}

	var seeds []*sdg.Node
	for _, n := range criterion {
		if sn := s.G.NodeOf(n); sn != nil {
			seeds = append(seeds, sn)
		}
	}
	if len(seeds) == 0 {
		return res
	}

	// Phase 1: walk backward over everything except parameter-out and
	// return edges, so the walk never descends into callees from their
	// returns; summary edges carry the callees' net effects instead.
	phase1 := s.mark(seeds, res, id, func(k sdg.EdgeKind) bool {
		return k != sdg.ParamOut && k != sdg.Return
	})

	// Phase 2: from everything phase 1 marked, walk backward over
	// everything except call and parameter-in edges, so the walk
	// descends into callees without re-ascending into their callers.
	s.mark(phase1, res, id, func(k sdg.EdgeKind) bool {
		return k != sdg.Call && k != sdg.ParamIn
	})

	return res
}

// mark walks backward from seeds over the edges follow admits, recording
// every visited node in res under id, and returns the visit set.
func (s *Slicer) mark(seeds []*sdg.Node, res *Result, id int, follow func(sdg.EdgeKind) bool) []*sdg.Node {
	visited := make(map[*sdg.Node]bool)
	var work []*sdg.Node
	push := func(n *sdg.Node) {
		if n != nil && !visited[n] {
			visited[n] = true
			res.nodes[n] = true
			s.ids[n] = id
			work = append(work, n)
		}
	}
	for _, n := range seeds {
		push(n)
	}
	var order []*sdg.Node
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		order = append(order, n)
		for _, e := range n.In() {
			if follow(e.Kind) {
				push(e.From)
			}
		}
	}
	return order
}

// ByCalleeName lifts a function-name criterion selector to nodes: every
// CALL whose callee operand names fn, together with its arguments. This is
// how source-level markers like an assert helper become instruction-level
// criteria.
func ByCalleeName(prog *ir.Program, fn string) []*ir.Node {
	var out []*ir.Node
	for _, f := range prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if n.Kind != ir.Call || len(n.Operands) == 0 {
					continue
				}
				if callee := n.Operands[0]; callee.Kind == ir.FunctionVal && callee.Name == fn {
					out = append(out, n)
					out = append(out, n.Operands[1:]...)
				}
			}
		}
	}
	return out
}

// WholeProgram returns every instruction of prog, the criterion for which
// slicing is the identity.
func WholeProgram(prog *ir.Program) []*ir.Node {
	var out []*ir.Node
	for _, f := range prog.Functions {
		for _, b := range f.Blocks {
			out = append(out, b.Nodes...)
		}
	}
	return out
}
