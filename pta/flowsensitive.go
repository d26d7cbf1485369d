// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import "github.com/go-llir/dgslice/ir"

// runFlowSensitive drives the per-program-point memory-state fixpoint,
// using memState's copy-on-write chains. It iterates each function's
// blocks in reverse post-order, and over the whole call graph, since a
// callee's behavior can feed back into a caller already visited.
func (pg *PointerGraph) runFlowSensitive() {
	prog := pg.Prog
	pg.blockIn = make(map[*ir.BasicBlock]*memState)
	pg.blockOut = make(map[*ir.BasicBlock]*memState)

	changed := true
	for changed {
		pg.iterations++
		if pg.Opts.MaxIterations > 0 && pg.iterations > pg.Opts.MaxIterations {
			pg.incomplete = true
			break
		}
		changed = false
		for _, f := range prog.Functions {
			if pg.runFlowSensitiveFunc(prog, f) {
				changed = true
			}
		}
	}
}

// runFlowSensitiveFunc propagates memory states through f's blocks in
// reverse post-order, returning whether any block's in/out state changed.
func (pg *PointerGraph) runFlowSensitiveFunc(prog *ir.Program, f *ir.Function) bool {
	if len(f.Blocks) == 0 {
		return false
	}
	cfg := f.CFG()
	order := ir.ReverseInts(ir.PostOrder(cfg, f.Entry.Index))

	changed := false
	for _, idx := range order {
		b := f.Blocks[idx]

		var in *memState
		if len(b.Preds) == 0 {
			in = newMemState()
		} else {
			states := make([]*memState, 0, len(b.Preds))
			for _, p := range b.Preds {
				if s, ok := pg.blockOut[p]; ok {
					states = append(states, s)
				}
			}
			in = join(prog, pg0set, states)
		}
		pg.blockIn[b] = in

		out := pg.stepBlockFlowSensitive(prog, b, in)
		prev, had := pg.blockOut[b]
		if !had || !sameState(prog, prev, out) {
			pg.blockOut[b] = out
			changed = true
		}
	}
	return changed
}

// stepBlockFlowSensitive threads in through b's nodes, implementing the
// same node semantics as stepAndersen but reading and writing a single
// memState instead of the whole-graph varPts map.
func (pg *PointerGraph) stepBlockFlowSensitive(prog *ir.Program, b *ir.BasicBlock, in *memState) *memState {
	vs := in
	get := func(obj *ir.Node) PointsToSet {
		if s := vs.get(obj); s != nil {
			return s
		}
		return pg0set()
	}
	set := func(obj *ir.Node, s PointsToSet) { vs = vs.extend(obj, s) }

	for _, n := range b.Nodes {
		switch n.Kind {
		case ir.Alloc, ir.DynAlloc, ir.FunctionVal:
			s := pg0set()
			s.Add(Pointer{Target: n})
			set(n, s)

		case ir.NullAddr:
			s := pg0set()
			s.Add(Pointer{Target: prog.Null})
			set(n, s)

		case ir.UnknownMem:
			s := pg0set()
			s.Add(Pointer{Target: prog.UnknownMemory})
			set(n, s)

		case ir.Cast:
			set(n, get(n.Operands[0]).Clone())

		case ir.Gep:
			base := get(n.Operands[0])
			out := pg0set()
			base.Iterate(prog, func(p Pointer) {
				out.Add(Pointer{Target: p.Target, Offset: pg.Opts.capOffset(p.Offset.Add(n.GepOffset))})
			})
			if base.HasUnknown(prog) || base.HasNull(prog) {
				out.Add(Pointer{Target: prog.UnknownMemory})
			}
			set(n, out)

		case ir.Load:
			ptr := get(n.Operands[0])
			out := pg0set()
			ptr.Iterate(prog, func(p Pointer) { out.UnionWith(prog, get(p.Target)) })
			if ptr.HasUnknown(prog) {
				out.Add(Pointer{Target: prog.UnknownMemory})
			}
			set(n, out)

		case ir.Store:
			ptr := get(n.Operands[0])
			val := get(n.Operands[1])
			if ptr.IsKnownSingleton(prog) {
				// Strong update: a single known target is fully
				// overwritten by this Store.
				var target *ir.Node
				ptr.Iterate(prog, func(p Pointer) { target = p.Target })
				set(target, val.Clone())
			} else {
				ptr.Iterate(prog, func(p Pointer) {
					merged := get(p.Target).Clone()
					merged.UnionWith(prog, val)
					set(p.Target, merged)
				})
			}

		case ir.InvalidateObject, ir.Free:
			if pg.Opts.AnalysisType == FlowSensitiveWithInvalidation {
				ptr := get(n.Operands[0])
				ptr.Iterate(prog, func(p Pointer) {
					// Flow-sensitive invalidation can be
					// precise: the freed object's state is
					// replaced outright, since this engine
					// does know "before" from "after".
					s := pg0set()
					s.Add(Pointer{Target: prog.Invalidated})
					set(p.Target, s)
				})
			}

		case ir.Memcpy:
			dst := get(n.Operands[0])
			src := get(n.Operands[1])
			if n.MemcpyLen.IsUnknown() {
				dst.Iterate(prog, func(dp Pointer) {
					merged := get(dp.Target).Clone()
					src.Iterate(prog, func(sp Pointer) { merged.UnionWith(prog, get(sp.Target)) })
					set(dp.Target, merged)
				})
				continue
			}
			dst.Iterate(prog, func(dp Pointer) {
				src.Iterate(prog, func(sp Pointer) {
					if sp.Offset == dp.Offset {
						merged := get(dp.Target).Clone()
						merged.UnionWith(prog, get(sp.Target))
						set(dp.Target, merged)
					}
				})
			})

		case ir.Phi:
			out := pg0set()
			for _, op := range n.Operands {
				out.UnionWith(prog, get(op))
			}
			set(n, out)

		case ir.Call:
			pg.stepCallFlowSensitive(prog, n, get, set)

		default:
			// CallReturn/Return/Noop/Constant/Fork/Join carry no
			// direct memory-state transfer here; Fork/Join are
			// handled by package threads atop this engine's
			// results.
		}
	}
	return vs
}

// stepCallFlowSensitive approximates a call's effect on the threaded
// memory state via the get/set accessors closed over the caller's working
// memState: it reuses the flow-insensitive resolution logic to decide
// callee candidates and allocator recognition, then binds formals and the
// CALL_RETURN node in place. A fully sparse interprocedural flow-sensitive
// model (cloning callee memory states per call site) is future work; this
// conservative approximation still gives CALL_RETURN and allocation sites
// a precise per-call-site binding, which is what most client queries need.
func (pg *PointerGraph) stepCallFlowSensitive(prog *ir.Program, n *ir.Node, get func(*ir.Node) PointsToSet, set func(*ir.Node, PointsToSet)) {
	callee := calleeOperand(n)

	if callee.Kind == ir.FunctionVal {
		if kind, ok := pg.Opts.AllocationFunctions[callee.Name]; ok && kind != NotAlloc {
			s := pg0set()
			s.Add(Pointer{Target: n})
			if kind == AllocRealloc && len(callArgs(n)) > 0 {
				s.UnionWith(prog, get(callArgs(n)[0]))
			}
			if cr := callReturnOf(n); cr != nil {
				set(cr, s)
			}
			return
		}
	}

	out := pg0set()
	bindCallee := func(target *ir.Node) {
		fn := pg.lookupFunction(target)
		if fn == nil || !compatibleSignature(fn, n) {
			out.Add(Pointer{Target: prog.UnknownMemory})
			return
		}
		for i, param := range fn.Params {
			if i >= len(callArgs(n)) {
				break
			}
			merged := get(param).Clone()
			merged.UnionWith(prog, get(callArgs(n)[i]))
			set(param, merged)
		}
		for _, b := range fn.Blocks {
			for _, rn := range b.Nodes {
				if rn.Kind == ir.Return && len(rn.Operands) > 0 {
					out.UnionWith(prog, get(rn.Operands[0]))
				}
			}
		}
	}

	if callee.Kind == ir.FunctionVal {
		bindCallee(callee)
	} else {
		calleePts := get(callee)
		if calleePts.HasUnknown(prog) {
			out.Add(Pointer{Target: prog.UnknownMemory})
		}
		calleePts.Iterate(prog, func(p Pointer) {
			if p.Target.Kind == ir.FunctionVal {
				bindCallee(p.Target)
			}
		})
	}

	if cr := callReturnOf(n); cr != nil {
		set(cr, out)
	}
}

// sameState reports whether a and b observe identical points-to sets for
// every object either binds; used to detect fixpoint convergence without
// requiring memState to implement deep equality itself.
func sameState(prog *ir.Program, a, b *memState) bool {
	af, bf := a.flatten(), b.flatten()
	if len(af) != len(bf) {
		return false
	}
	for obj, va := range af {
		vb, ok := bf[obj]
		if !ok || va.Len() != vb.Len() {
			return false
		}
		same := va.HasNull(prog) == vb.HasNull(prog) &&
			va.HasUnknown(prog) == vb.HasUnknown(prog) &&
			va.HasInvalidated(prog) == vb.HasInvalidated(prog)
		va.Iterate(prog, func(p Pointer) {
			if !vb.Contains(p) {
				same = false
			}
		})
		if !same {
			return false
		}
	}
	return true
}
