// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// BuildBlocks partitions f's instruction-level CFG into basic blocks and
// installs the result on f. succs gives each node's CFG successors (not to
// be confused with Node.Operands, which are data operands); entry is the
// function's unique entry node.
//
// Nodes are processed in BFS order from entry. A node starts a new block
// iff it has zero predecessors, more than one predecessor, or its single
// predecessor has more than one successor; otherwise it
// joins its predecessor's block.
func BuildBlocks(f *Function, entry *Node, succs func(*Node) []*Node) {
	preds := make(map[*Node][]*Node)
	order := bfsOrder(entry, succs)
	for _, n := range order {
		for _, s := range succs(n) {
			preds[s] = append(preds[s], n)
		}
	}

	blockOf := make(map[*Node]*BasicBlock)
	var blocks []*BasicBlock

	startsBlock := func(n *Node) bool {
		ps := preds[n]
		if len(ps) != 1 {
			return true // zero or multiple predecessors
		}
		return len(succs(ps[0])) > 1 // single predecessor, but it branches
	}

	for _, n := range order {
		var b *BasicBlock
		if startsBlock(n) {
			b = &BasicBlock{Index: len(blocks), Func: f}
			blocks = append(blocks, b)
		} else {
			b = blockOf[preds[n][0]]
		}
		b.Nodes = append(b.Nodes, n)
		n.Block = b
		blockOf[n] = b
	}

	// Wire block-level edges from the last node of each block to the
	// block containing each of its CFG successors.
	seen := make(map[[2]int]bool)
	for _, b := range blocks {
		if len(b.Nodes) == 0 {
			continue
		}
		last := b.Nodes[len(b.Nodes)-1]
		for _, s := range succs(last) {
			sb := blockOf[s]
			key := [2]int{b.Index, sb.Index}
			if seen[key] {
				continue
			}
			seen[key] = true
			b.AddSucc(sb)
		}
	}

	f.Blocks = blocks
	if len(blocks) > 0 {
		f.Entry = blocks[0]
	}
}

// bfsOrder returns the nodes reachable from entry via succs, in
// breadth-first order.
func bfsOrder(entry *Node, succs func(*Node) []*Node) []*Node {
	seen := map[*Node]bool{entry: true}
	order := []*Node{entry}
	for i := 0; i < len(order); i++ {
		n := order[i]
		for _, s := range succs(n) {
			if !seen[s] {
				seen[s] = true
				order = append(order, s)
			}
		}
	}
	return order
}
