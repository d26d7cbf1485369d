// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "testing"

// buildDiamond constructs the instruction-level CFG:
//
//	n0 -> n1 -> n2 -> n4
//	       \-> n3 -/
//
// n1 branches to n2 and n3, both of which converge on n4. Per the
// zero/multiple/branching-predecessor rule, n0 and n1 share a block (n1
// has a single, non-branching predecessor n0); n2 and n3 each start their
// own block (their predecessor n1 branches); n4 starts its own block (two
// predecessors).
func buildDiamond(p *Program, f *Function) (entry *Node, succs func(*Node) []*Node) {
	n0 := p.NewNode(f, Noop)
	n1 := p.NewNode(f, Noop)
	n2 := p.NewNode(f, Noop)
	n3 := p.NewNode(f, Noop)
	n4 := p.NewNode(f, Noop)

	edges := map[*Node][]*Node{
		n0: {n1},
		n1: {n2, n3},
		n2: {n4},
		n3: {n4},
		n4: {},
	}
	return n0, func(n *Node) []*Node { return edges[n] }
}

func TestBuildBlocksMergesStraightLine(t *testing.T) {
	p := NewProgram()
	f := p.NewFunction("diamond")
	entry, succs := buildDiamond(p, f)
	BuildBlocks(f, entry, succs)

	if len(f.Blocks) != 4 {
		t.Fatalf("want 4 blocks, got %d: %v", len(f.Blocks), f.Blocks)
	}
	if len(f.Blocks[0].Nodes) != 2 {
		t.Errorf("entry block should merge n0 and n1, got %d nodes", len(f.Blocks[0].Nodes))
	}
	if f.Entry != f.Blocks[0] {
		t.Errorf("f.Entry should be Blocks[0]")
	}
	// The merge block should have two successors (the n2 and n3 blocks).
	if len(f.Blocks[0].Succs) != 2 {
		t.Errorf("want 2 successor blocks from entry, got %d", len(f.Blocks[0].Succs))
	}
	// The last block (n4) should have two predecessors.
	last := f.Blocks[len(f.Blocks)-1]
	if len(last.Nodes) != 1 || len(last.Preds) != 2 {
		t.Errorf("want a singleton join block with 2 preds, got nodes=%d preds=%d", len(last.Nodes), len(last.Preds))
	}
}
