// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
	"github.com/go-llir/dgslice/pta"
)

// scalarAccess is the byte length rd assigns to a LOAD/STORE whose
// pointee type it cannot see: rd depends only on ir/offset/pta (like
// pta depends only on ir/offset), so it has no type-layout oracle of its
// own. A one-byte access still overlaps correctly with itself and with
// any access that subsumes it; callers that need exact field widths
// should prefer MEMCPY's carried length or run field-insensitive.
const scalarAccess = offset.Offset(1)

// RWGraph is the reaching-definitions/memory-SSA subgraph Build
// materializes over prog, using pg's resolved points-to sets to turn each
// memory operation's address operand into concrete DefSites.
type RWGraph struct {
	Prog *ir.Program
	PTA  *pta.PointerGraph
	Opts Options

	nodes map[*ir.Node]*RWNode

	// allocs is every ALLOC/DYN_ALLOC node in the program, the universe
	// spreadUnknown spreads UNKNOWN_MEMORY accesses across.
	allocs []*ir.Node

	// reaching holds, for each use-carrying node, the RWNodes Run found
	// reaching it; populated by runDense/runSparse.
	reaching map[*ir.Node][]*RWNode

	modref map[*ir.Function]*ModRef

	// calls is every CALL's RWNode; their Defs/Uses are filled in by
	// applyCallEffects once the mod/ref fixpoint has run.
	calls []*RWNode

	// phis is every synthetic phi node the sparse engine placed; they
	// are owned by this RWGraph and die with it.
	phis []*RWNode

	funcByName map[string]*ir.Function

	cropped int32 // set atomically; per-function passes run concurrently
	ran     bool
	runErr  error
}

// Build walks prog's memory operations, using pg (already Run) to resolve
// each address operand to concrete DefSites.
func Build(prog *ir.Program, pg *pta.PointerGraph, opts Options) *RWGraph {
	g := &RWGraph{
		Prog:     prog,
		PTA:      pg,
		Opts:     opts,
		nodes:    make(map[*ir.Node]*RWNode),
		reaching: make(map[*ir.Node][]*RWNode),
		modref:   make(map[*ir.Function]*ModRef),
	}

	for _, f := range prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				g.buildNode(f, b, n)
			}
		}
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if n.Kind == ir.Alloc || n.Kind == ir.DynAlloc {
					g.allocs = append(g.allocs, n)
				}
			}
		}
	}
	for _, gl := range prog.Globals {
		if gl.Kind == ir.Alloc || gl.Kind == ir.DynAlloc {
			g.allocs = append(g.allocs, gl)
		}
	}
	for _, n := range pg.GlobalInitStores() {
		g.buildNode(nil, nil, n)
	}

	return g
}

func (g *RWGraph) sitesFor(addr *ir.Node, length offset.Offset) (sites []DefSite, unknown bool) {
	pts := g.PTA.PointsTo(addr)
	pts.Iterate(g.Prog, func(p pta.Pointer) {
		sites = append(sites, g.Opts.site(DefSite{Object: p.Target, Offset: p.Offset, Length: length}))
	})
	return sites, pts.HasUnknown(g.Prog)
}

// buildNode computes n's Defs/Overwrites/Uses and records it. f/b may be
// nil for a synthetic global-initializer store.
func (g *RWGraph) buildNode(f *ir.Function, b *ir.BasicBlock, n *ir.Node) {
	rw := &RWNode{Node: n, Func: f, Block: b}

	switch n.Kind {
	case ir.Store:
		addr := n.Operands[0]
		sites, unknown := g.sitesFor(addr, scalarAccess)
		if len(sites) == 1 && !unknown {
			rw.Overwrites = sites
		} else {
			rw.Defs = sites
		}
		if unknown {
			rw.UnknownWrite = true
		}

	case ir.Load:
		addr := n.Operands[0]
		sites, unknown := g.sitesFor(addr, scalarAccess)
		rw.Uses = sites
		if unknown {
			rw.UnknownRead = true
		}

	case ir.Memcpy:
		dst, src := n.Operands[0], n.Operands[1]
		dstSites, dstUnknown := g.sitesFor(dst, n.MemcpyLen)
		srcSites, srcUnknown := g.sitesFor(src, n.MemcpyLen)
		if len(dstSites) == 1 && !dstUnknown {
			rw.Overwrites = dstSites
		} else {
			rw.Defs = dstSites
		}
		rw.Uses = srcSites
		rw.UnknownWrite = dstUnknown
		rw.UnknownRead = srcUnknown

	case ir.InvalidateObject, ir.Free:
		ptr := n.Operands[0]
		sites, _ := g.sitesFor(ptr, offset.Unknown)
		rw.Overwrites = sites

	case ir.Call:
		g.buildCall(f, rw, n)
	}

	g.nodes[n] = rw
}

func (g *RWGraph) wholeAllocs() []DefSite {
	sites := make([]DefSite, len(g.allocs))
	for i, a := range g.allocs {
		sites[i] = g.Opts.site(Whole(a))
	}
	return sites
}

// RWNodeFor returns n's RWNode, or nil if n carries no memory effect.
func (g *RWGraph) RWNodeFor(n *ir.Node) *RWNode { return g.nodes[n] }
