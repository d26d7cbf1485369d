// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
	"github.com/go-llir/dgslice/pta"
)

// buildCall records n for later resolution. A call's memory effects
// depend on its callees' summaries, which cannot be computed until every
// function's local effects exist, so Build only notes the site here and
// Run fills in Defs/Uses via applyCallEffects.
func (g *RWGraph) buildCall(f *ir.Function, rw *RWNode, n *ir.Node) {
	g.calls = append(g.calls, rw)
}

// callees resolves a CALL's possible targets: the direct callee when the
// operand is a FUNCTION node, otherwise every FUNCTION the points-to
// analysis found for the operand. unknown reports whether the operand may
// also hold unknown memory, i.e. the call may reach code we cannot see.
func (g *RWGraph) callees(n *ir.Node) (fns []*ir.Function, unknown bool) {
	callee := n.Operands[0]
	if callee.Kind == ir.FunctionVal {
		if f := g.lookupFunction(callee); f != nil {
			return []*ir.Function{f}, false
		}
		return nil, false // opaque direct call; handled by models
	}
	pts := g.PTA.PointsTo(callee)
	pts.Iterate(g.Prog, func(p pta.Pointer) {
		if p.Target.Kind != ir.FunctionVal {
			return
		}
		if f := g.lookupFunction(p.Target); f != nil {
			fns = append(fns, f)
		}
	})
	return fns, pts.HasUnknown(g.Prog)
}

func (g *RWGraph) lookupFunction(target *ir.Node) *ir.Function {
	if g.funcByName == nil {
		g.funcByName = make(map[string]*ir.Function)
		for _, f := range g.Prog.Functions {
			g.funcByName[f.Name] = f
		}
	}
	if f, ok := g.funcByName[target.Name]; ok && len(f.Blocks) > 0 {
		return f
	}
	return nil
}

// applyCallEffects installs each call's interprocedural Defs/Uses: the
// callee's mod/ref summary for resolved bodies, the function model for
// recognized opaque callees, and the conservative write-everything model
// for the rest (unless UndefinedArePure).
func (g *RWGraph) applyCallEffects() {
	for _, rw := range g.calls {
		n := rw.Node
		fns, unknown := g.callees(n)

		callee := n.Operands[0]
		if model, ok := g.Opts.model(callee.Name); ok && len(fns) == 0 {
			g.applyModel(rw, n, model)
			continue
		}

		for _, f := range fns {
			mr := g.modrefOf(f)
			rw.Defs = append(rw.Defs, mr.MayDef...)
			rw.Uses = append(rw.Uses, mr.MayRef...)
			if len(fns) == 1 && !unknown {
				rw.Overwrites = append(rw.Overwrites, mr.MustDef...)
			}
		}

		if (unknown || len(fns) == 0) && !g.Opts.UndefinedArePure {
			// The call may run code we cannot see; treat it as
			// writing and reading unknown memory.
			rw.UnknownWrite = true
			rw.UnknownRead = true
		}
	}
}

// applyModel translates a FunctionModel's defines(from, to) triples into
// sites on the call's argument pointees.
func (g *RWGraph) applyModel(rw *RWNode, n *ir.Node, model FunctionModel) {
	args := n.Operands[1:]
	for _, d := range model.Defines {
		if d.To >= 0 && d.To < len(args) {
			sites, unknown := g.sitesFor(args[d.To], offset.Unknown)
			for i := range sites {
				sites[i].Offset = sites[i].Offset.Add(offset.Offset(d.ToOffset))
			}
			rw.Defs = append(rw.Defs, sites...)
			if unknown {
				rw.UnknownWrite = true
			}
		}
		if d.From >= 0 && d.From < len(args) && d.From != d.To {
			sites, unknown := g.sitesFor(args[d.From], offset.Unknown)
			for i := range sites {
				sites[i].Offset = sites[i].Offset.Add(offset.Offset(d.FromOffset))
			}
			rw.Uses = append(rw.Uses, sites...)
			if unknown {
				rw.UnknownRead = true
			}
		}
	}
}

// spreadUnknown is the assignment-finder pass: every node accessing
// unknown memory becomes a weak writer or reader of every allocated
// variable, preserving soundness in the face of opaque pointers.
func (g *RWGraph) spreadUnknown() {
	for _, rw := range g.nodes {
		if rw.UnknownWrite {
			rw.Defs = append(rw.Defs, g.wholeAllocs()...)
		}
		if rw.UnknownRead {
			rw.Uses = append(rw.Uses, g.wholeAllocs()...)
		}
	}
}
