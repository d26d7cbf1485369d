// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import (
	"github.com/go-llir/dgslice/ir"
)

// ModRef summarizes one function's memory effects at call granularity:
// MayDef is every site the function or its callees may write, MayRef the
// analogous read set, and MustDef the sites written on every path from
// entry to return. Consumers use it to account for a call's effects
// without re-traversing the callee body.
type ModRef struct {
	MayDef  []DefSite
	MayRef  []DefSite
	MustDef []DefSite
}

func (m *ModRef) addDef(s DefSite) bool  { return addSite(&m.MayDef, s) }
func (m *ModRef) addRef(s DefSite) bool  { return addSite(&m.MayRef, s) }
func (m *ModRef) addMust(s DefSite) bool { return addSite(&m.MustDef, s) }

func addSite(sites *[]DefSite, s DefSite) bool {
	for _, x := range *sites {
		if x == s {
			return false
		}
	}
	*sites = append(*sites, s)
	return true
}

// GetModRef returns f's mod/ref summary. Run must have been called.
func (g *RWGraph) GetModRef(f *ir.Function) *ModRef {
	return g.modrefOf(f)
}

func (g *RWGraph) modrefOf(f *ir.Function) *ModRef {
	if g.modref[f] == nil {
		g.computeModRef()
	}
	return g.modref[f]
}

// computeModRef runs the bottom-up summary fixpoint over all functions:
// each function's summary is its nodes' local effects plus its callees'
// summaries, iterated until no summary grows. Recursion converges because
// the site domain is finite.
func (g *RWGraph) computeModRef() {
	for _, f := range g.Prog.Functions {
		if g.modref[f] == nil {
			g.modref[f] = &ModRef{}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, f := range g.Prog.Functions {
			if g.stepModRef(f) {
				changed = true
			}
		}
	}
}

func (g *RWGraph) stepModRef(f *ir.Function) bool {
	mr := g.modref[f]
	changed := false

	add := func(sites []DefSite, to func(DefSite) bool) {
		for _, s := range sites {
			if to(s) {
				changed = true
			}
		}
	}

	// mustBlocks are the blocks every entry-to-exit path passes through:
	// the entry plus every block that dominates all exit blocks.
	must := g.mustBlocks(f)

	for _, b := range f.Blocks {
		for _, n := range b.Nodes {
			rw := g.nodes[n]
			if rw == nil {
				continue
			}
			switch n.Kind {
			case ir.Call:
				fns, unknown := g.callees(n)
				if model, ok := g.Opts.model(n.Operands[0].Name); ok && len(fns) == 0 {
					// Model effects are per-call-site sites;
					// summarize them directly.
					tmp := &RWNode{Node: n}
					g.applyModel(tmp, n, model)
					add(tmp.Defs, mr.addDef)
					add(tmp.Uses, mr.addRef)
					continue
				}
				for _, callee := range fns {
					sub := g.modref[callee]
					if sub == nil {
						continue
					}
					add(sub.MayDef, mr.addDef)
					add(sub.MayRef, mr.addRef)
					if must[b.Index] && len(fns) == 1 && !unknown {
						add(sub.MustDef, mr.addMust)
					}
				}
				if (unknown || len(fns) == 0) && !g.Opts.UndefinedArePure {
					add(g.wholeAllocs(), mr.addDef)
					add(g.wholeAllocs(), mr.addRef)
				}
			default:
				add(rw.Defs, mr.addDef)
				add(rw.Overwrites, mr.addDef)
				add(rw.Uses, mr.addRef)
				if must[b.Index] {
					add(rw.Overwrites, mr.addMust)
				}
				if rw.UnknownWrite {
					add(g.wholeAllocs(), mr.addDef)
				}
				if rw.UnknownRead {
					add(g.wholeAllocs(), mr.addRef)
				}
			}
		}
	}
	return changed
}

// mustBlocks reports, per block index, whether the block lies on every
// entry-to-exit path of f: it dominates every exit block (the entry
// trivially qualifies).
func (g *RWGraph) mustBlocks(f *ir.Function) map[int]bool {
	must := make(map[int]bool)
	if len(f.Blocks) == 0 {
		return must
	}
	cfg := f.CFG()
	idom := ir.IDom(cfg, 0)
	exits := f.Exits()

	dominatesAllExits := func(b int) bool {
		for _, e := range exits {
			x := e
			for x != b && x != -1 {
				x = idom[x]
			}
			if x != b {
				return false
			}
		}
		return len(exits) > 0
	}

	must[0] = true
	for i := range f.Blocks {
		if dominatesAllExits(i) {
			must[i] = true
		}
	}
	return must
}
