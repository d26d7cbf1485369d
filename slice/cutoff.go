// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slice

import (
	"github.com/go-llir/dgslice/callgraph"
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/program"
)

// Cutoff removes the CFG blocks from which the criterion is unreachable
// in the interprocedural CFG, before dependence-graph construction.
// Irrelevant blocks with a relevant predecessor are replaced by a
// diverging terminator; irrelevant blocks with no relevant predecessor
// are removed entirely. Every control-flow path that could still observe
// the criterion survives unchanged.
func Cutoff(prog *ir.Program, cg *callgraph.Graph, h program.Host, rw program.Rewriter, criterion []*ir.Node) {
	critBlock := make(map[*ir.BasicBlock]bool)
	for _, n := range criterion {
		if n.Block != nil {
			critBlock[n.Block] = true
		}
	}
	if len(critBlock) == 0 {
		return
	}

	// relevant[b]: the criterion is reachable from b, through b's own
	// successors, through a call to a function whose body reaches it,
	// or through a return to a call site that reaches it.
	relevant := make(map[*ir.BasicBlock]bool)
	bodyReaches := make(map[*ir.Function]bool) // entry-to-criterion
	returnsInto := make(map[*ir.Function]bool) // some caller continues toward it

	for changed := true; changed; {
		changed = false
		set := func(m map[*ir.BasicBlock]bool, b *ir.BasicBlock) {
			if !m[b] {
				m[b] = true
				changed = true
			}
		}
		for _, f := range prog.Functions {
			for _, b := range f.Blocks {
				if relevant[b] {
					continue
				}
				if critBlock[b] {
					set(relevant, b)
					continue
				}
				for _, s := range b.Succs {
					if relevant[s] {
						set(relevant, b)
					}
				}
				for _, n := range b.Nodes {
					if n.Kind != ir.Call {
						continue
					}
					for _, callee := range cg.Callees(n) {
						if bodyReaches[callee] {
							set(relevant, b)
						}
					}
				}
				if len(b.Succs) == 0 && returnsInto[f] {
					set(relevant, b)
				}
			}
			if f.Entry != nil && relevant[f.Entry] && !bodyReaches[f] {
				bodyReaches[f] = true
				changed = true
			}
			if !returnsInto[f] {
				for _, e := range cg.Callers(f) {
					if e.Site.Block != nil && relevant[e.Site.Block] {
						returnsInto[f] = true
						changed = true
					}
				}
			}
		}
	}

	for _, f := range prog.Functions {
		blocks := append([]*ir.BasicBlock(nil), f.Blocks...)
		for _, b := range blocks {
			if relevant[b] {
				continue
			}
			hasRelevantPred := false
			for _, p := range b.Preds {
				if relevant[p] {
					hasRelevantPred = true
				}
			}
			if hasRelevantPred {
				// Keep the block as a diverging stub so every
				// surviving path into it still exists.
				nodes := append([]*ir.Node(nil), b.Nodes...)
				for _, n := range nodes {
					rw.DeleteInstruction(n)
				}
				for _, s := range b.Succs {
					s.Preds = dropBlock(s.Preds, b)
				}
				b.Succs = nil
				h.InsertDivergingStub(b)
			} else {
				rw.DeleteBlock(b)
			}
		}
	}
}

func dropBlock(bs []*ir.BasicBlock, b *ir.BasicBlock) []*ir.BasicBlock {
	out := bs[:0]
	for _, x := range bs {
		if x != b {
			out = append(out, x)
		}
	}
	return out
}
