// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/go-llir/dgslice/ir"
)

// runSparse is the memory-SSA algorithm: place phi nodes at the iterated
// dominance frontiers of each object's writing blocks, rename definitions
// down the dominator tree so each read links directly to the writes that
// reach it, then eliminate trivial phis. The phi nodes it creates are
// synthetic RWNodes owned by this RWGraph.
func (g *RWGraph) runSparse() error {
	results := make([]*sparseResult, len(g.Prog.Functions))
	var eg errgroup.Group
	for i, f := range g.Prog.Functions {
		i, f := i, f
		eg.Go(func() error {
			results[i] = g.sparseFunc(f)
			return nil
		})
	}
	eg.Wait()
	for _, r := range results {
		if r == nil {
			continue
		}
		g.phis = append(g.phis, r.phis...)
		for n, defs := range r.reaching {
			g.reaching[n] = defs
		}
	}
	return nil
}

type sparseResult struct {
	phis     []*RWNode
	reaching map[*ir.Node][]*RWNode
}

// objDefs collects, per object written anywhere in f, the block indices
// containing its writes, in canonical object-ID order.
func (g *RWGraph) objDefs(f *ir.Function) ([]*ir.Node, map[*ir.Node][]int) {
	defBlocks := make(map[*ir.Node][]int)
	seen := make(map[*ir.Node]map[int]bool)
	note := func(obj *ir.Node, bi int) {
		if seen[obj] == nil {
			seen[obj] = make(map[int]bool)
		}
		if !seen[obj][bi] {
			seen[obj][bi] = true
			defBlocks[obj] = append(defBlocks[obj], bi)
		}
	}
	for _, b := range f.Blocks {
		for _, n := range b.Nodes {
			rw := g.nodes[n]
			if rw == nil {
				continue
			}
			for _, s := range rw.Defs {
				note(s.Object, b.Index)
			}
			for _, s := range rw.Overwrites {
				note(s.Object, b.Index)
			}
		}
	}
	objs := make([]*ir.Node, 0, len(defBlocks))
	for obj := range defBlocks {
		objs = append(objs, obj)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].ID < objs[j].ID })
	return objs, defBlocks
}

func (g *RWGraph) sparseFunc(f *ir.Function) *sparseResult {
	if len(f.Blocks) == 0 {
		return nil
	}
	res := &sparseResult{reaching: make(map[*ir.Node][]*RWNode)}

	cfg := f.CFG()
	idom := ir.IDom(cfg, 0)
	df := ir.DomFrontier(cfg, 0, idom)
	dom := ir.Dom(idom)

	objs, defBlocks := g.objDefs(f)

	// Phi placement: iterated dominance frontier of each object's
	// writing blocks.
	phiAt := make(map[*ir.Node]map[int]*RWNode)
	for _, obj := range objs {
		phiAt[obj] = make(map[int]*RWNode)
		work := append([]int(nil), defBlocks[obj]...)
		onWork := make(map[int]bool)
		for _, b := range work {
			onWork[b] = true
		}
		for len(work) > 0 {
			b := work[0]
			work = work[1:]
			for _, fb := range df[b] {
				if phiAt[obj][fb] != nil {
					continue
				}
				phi := &RWNode{IsPhi: true, PhiObject: obj, Func: f, Block: f.Blocks[fb]}
				phiAt[obj][fb] = phi
				res.phis = append(res.phis, phi)
				if !onWork[fb] {
					onWork[fb] = true
					work = append(work, fb)
				}
			}
		}
	}

	// Renaming: walk the dominator tree; each block inherits its
	// parent's state, installs its phis, threads its nodes, then
	// contributes incoming definitions to its successors' phis.
	entrySeed := g.entrySeed()
	incoming := make(map[*RWNode][]*RWNode) // phi -> incoming defs

	var rename func(bi int, state *Definitions)
	rename = func(bi int, state *Definitions) {
		b := f.Blocks[bi]

		for _, obj := range objs {
			if phi := phiAt[obj][bi]; phi != nil {
				state.AddStrong(Whole(obj), phi)
			}
		}

		for _, n := range b.Nodes {
			rw := g.nodes[n]
			if rw == nil {
				continue
			}
			if len(rw.Uses) > 0 {
				var defs []*RWNode
				for _, u := range rw.Uses {
					defs = append(defs, state.Get(u)...)
				}
				res.reaching[n] = g.crop(sortRWNodes(dedupe(defs)))
			}
			g.applyWrites(rw, state)
		}

		for _, s := range b.Succs {
			for _, obj := range objs {
				if phi := phiAt[obj][s.Index]; phi != nil {
					incoming[phi] = append(incoming[phi], state.Get(Whole(obj))...)
				}
			}
		}

		for _, child := range dom.Out(bi) {
			rename(child, state.Clone())
		}
	}
	rename(0, entrySeed.Clone())

	for phi, ins := range incoming {
		phi.Defs = []DefSite{Whole(phi.PhiObject)}
		phi.incoming = sortRWNodes(dedupe(ins))
	}

	g.eliminateTrivialPhis(res)
	return res
}

// eliminateTrivialPhis replaces every phi with exactly one distinct
// incoming definition by that definition, repeating until none remain;
// a chain of trivial phis collapses regardless of visitation order.
func (g *RWGraph) eliminateTrivialPhis(res *sparseResult) {
	replaced := make(map[*RWNode]*RWNode)

	for changed := true; changed; {
		changed = false
		for _, phi := range res.phis {
			if replaced[phi] != nil {
				continue
			}
			ins := dedupe(resolveAll(phi.incoming, replaced))
			// A phi feeding itself (a loop) does not count as a
			// distinct incoming definition.
			distinct := ins[:0]
			for _, in := range ins {
				if in != phi {
					distinct = append(distinct, in)
				}
			}
			if len(distinct) == 1 {
				replaced[phi] = distinct[0]
				changed = true
			} else {
				phi.incoming = distinct
			}
		}
	}

	if len(replaced) == 0 {
		return
	}
	for n, defs := range res.reaching {
		res.reaching[n] = sortRWNodes(dedupe(resolveAll(defs, replaced)))
	}
	live := res.phis[:0]
	for _, phi := range res.phis {
		if replaced[phi] == nil {
			phi.incoming = resolveAll(phi.incoming, replaced)
			live = append(live, phi)
		}
	}
	res.phis = live
}

// resolveAll maps each node through the replacement table transitively.
func resolveAll(nodes []*RWNode, replaced map[*RWNode]*RWNode) []*RWNode {
	out := make([]*RWNode, 0, len(nodes))
	for _, n := range nodes {
		for replaced[n] != nil {
			n = replaced[n]
		}
		out = append(out, n)
	}
	return out
}

// PhiNodes returns the synthetic phi nodes the sparse engine placed, in
// the order they were created. They are owned by this RWGraph.
func (g *RWGraph) PhiNodes() []*RWNode { return g.phis }

// Incoming returns the definitions flowing into a phi node, the sparse
// reaching-definitions graph's reverse edges.
func (g *RWGraph) Incoming(phi *RWNode) []*RWNode { return phi.incoming }
