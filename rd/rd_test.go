// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import (
	"testing"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
)

// chain installs nodes as f's straight-line CFG via ir.BuildBlocks.
func chain(f *ir.Function, nodes ...*ir.Node) {
	succs := make(map[*ir.Node]*ir.Node, len(nodes))
	for i := 0; i+1 < len(nodes); i++ {
		succs[nodes[i]] = nodes[i+1]
	}
	ir.BuildBlocks(f, nodes[0], func(n *ir.Node) []*ir.Node {
		if s, ok := succs[n]; ok {
			return []*ir.Node{s}
		}
		return nil
	})
}

func analyze(t *testing.T, prog *ir.Program, opts Options) *RWGraph {
	t.Helper()
	pg := pta.Build(prog, pta.Options{})
	pg.Run()
	g := Build(prog, pg, opts)
	if err := g.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return g
}

func hasDef(defs []*RWNode, n *ir.Node) bool {
	for _, d := range defs {
		if d.Node == n {
			return true
		}
	}
	return false
}

// storeLoadFixture builds: p = alloc; v = alloc; store v -> *p; load *p.
func storeLoadFixture(prog *ir.Program) (f *ir.Function, st, ld *ir.Node) {
	f = prog.NewFunction("main")
	p := prog.NewNode(f, ir.Alloc)
	v := prog.NewNode(f, ir.Alloc)
	st = prog.NewNode(f, ir.Store)
	st.Operands = []*ir.Node{p, v}
	ld = prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}
	chain(f, p, v, st, ld)
	return f, st, ld
}

func TestDenseStoreReachesLoad(t *testing.T) {
	prog := ir.NewProgram()
	_, st, ld := storeLoadFixture(prog)

	g := analyze(t, prog, Options{})
	defs := g.GetReachingDefinitions(ld)
	if !hasDef(defs, st) {
		t.Fatalf("store should reach load, got %v", defs)
	}
	if len(defs) != 1 {
		t.Fatalf("exactly the one store should reach, got %v", defs)
	}
}

func TestDenseStrongUpdateKills(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	p := prog.NewNode(f, ir.Alloc)
	v1 := prog.NewNode(f, ir.Alloc)
	v2 := prog.NewNode(f, ir.Alloc)
	st1 := prog.NewNode(f, ir.Store)
	st1.Operands = []*ir.Node{p, v1}
	st2 := prog.NewNode(f, ir.Store)
	st2.Operands = []*ir.Node{p, v2}
	ld := prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}
	chain(f, p, v1, v2, st1, st2, ld)

	g := analyze(t, prog, Options{})
	defs := g.GetReachingDefinitions(ld)
	if hasDef(defs, st1) {
		t.Fatalf("overwritten store should not reach, got %v", defs)
	}
	if !hasDef(defs, st2) {
		t.Fatalf("latest store should reach, got %v", defs)
	}
}

// diamondFixture builds an if/else writing through p on both arms, with a
// load after the merge. Returns the two stores and the load.
func diamondFixture(prog *ir.Program) (f *ir.Function, st1, st2, ld *ir.Node) {
	f = prog.NewFunction("main")
	p := prog.NewNode(f, ir.Alloc)
	v1 := prog.NewNode(f, ir.Alloc)
	v2 := prog.NewNode(f, ir.Alloc)
	st1 = prog.NewNode(f, ir.Store)
	st1.Operands = []*ir.Node{p, v1}
	st2 = prog.NewNode(f, ir.Store)
	st2.Operands = []*ir.Node{p, v2}
	ld = prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}

	head := prog.NewNode(f, ir.Noop)
	ir.BuildBlocks(f, p, func(n *ir.Node) []*ir.Node {
		switch n {
		case p:
			return []*ir.Node{v1}
		case v1:
			return []*ir.Node{v2}
		case v2:
			return []*ir.Node{head}
		case head:
			return []*ir.Node{st1, st2}
		case st1, st2:
			return []*ir.Node{ld}
		default:
			return nil
		}
	})
	return f, st1, st2, ld
}

func TestDenseMergeJoinsBothArms(t *testing.T) {
	prog := ir.NewProgram()
	_, st1, st2, ld := diamondFixture(prog)

	g := analyze(t, prog, Options{})
	defs := g.GetReachingDefinitions(ld)
	if !hasDef(defs, st1) || !hasDef(defs, st2) {
		t.Fatalf("both arms' stores should reach past the merge, got %v", defs)
	}
}

func TestSparseMatchesDenseOnStraightLine(t *testing.T) {
	prog := ir.NewProgram()
	_, st, ld := storeLoadFixture(prog)

	g := analyze(t, prog, Options{Sparse: true})
	defs := g.GetReachingDefinitions(ld)
	if !hasDef(defs, st) || len(defs) != 1 {
		t.Fatalf("sparse engine should agree with dense on straight-line code, got %v", defs)
	}
	if len(g.PhiNodes()) != 0 {
		t.Fatalf("no phi should survive on straight-line code, got %v", g.PhiNodes())
	}
}

func TestSparsePlacesPhiAtMerge(t *testing.T) {
	prog := ir.NewProgram()
	_, st1, st2, ld := diamondFixture(prog)

	g := analyze(t, prog, Options{Sparse: true})
	defs := g.GetReachingDefinitions(ld)

	// The load's reaching set is the merge phi; both stores flow into it.
	var phi *RWNode
	for _, d := range defs {
		if d.IsPhi {
			phi = d
		}
	}
	if phi == nil {
		t.Fatalf("load after a merge should reach a phi, got %v", defs)
	}
	ins := g.Incoming(phi)
	if !hasDef(ins, st1) || !hasDef(ins, st2) {
		t.Fatalf("phi should merge both arms' stores, got %v", ins)
	}
}

func TestSparseEliminatesTrivialPhi(t *testing.T) {
	// A diamond where neither arm writes still merges, but the
	// single-definition phi must be eliminated: the only write, st to p's
	// object, is before the branch.
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	p := prog.NewNode(f, ir.Alloc)
	v := prog.NewNode(f, ir.Alloc)
	st := prog.NewNode(f, ir.Store)
	st.Operands = []*ir.Node{p, v}
	left := prog.NewNode(f, ir.Noop)
	right := prog.NewNode(f, ir.Noop)
	ld := prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}

	ir.BuildBlocks(f, p, func(n *ir.Node) []*ir.Node {
		switch n {
		case p:
			return []*ir.Node{v}
		case v:
			return []*ir.Node{st}
		case st:
			return []*ir.Node{left, right}
		case left, right:
			return []*ir.Node{ld}
		default:
			return nil
		}
	})

	g := analyze(t, prog, Options{Sparse: true})
	defs := g.GetReachingDefinitions(ld)
	if !hasDef(defs, st) {
		t.Fatalf("store should reach load directly, got %v", defs)
	}
	for _, d := range defs {
		if d.IsPhi {
			t.Fatalf("trivial phi should have been eliminated, got %v", defs)
		}
	}
}

func TestCallEffectsViaModRef(t *testing.T) {
	prog := ir.NewProgram()

	callee := prog.NewFunction("writer")
	param := prog.NewNode(callee, ir.Alloc)
	callee.Params = []*ir.Node{param}
	val := prog.NewNode(callee, ir.Alloc)
	cst := prog.NewNode(callee, ir.Store)
	cst.Operands = []*ir.Node{param, val}
	cret := prog.NewNode(callee, ir.Return)
	chain(callee, param, val, cst, cret)

	caller := prog.NewFunction("main")
	a := prog.NewNode(caller, ir.Alloc)
	fn := prog.NewNode(caller, ir.FunctionVal)
	fn.Name = "writer"
	call := prog.NewNode(caller, ir.Call)
	call.Operands = []*ir.Node{fn, a}
	cr := prog.NewNode(caller, ir.CallReturn)
	ld := prog.NewNode(caller, ir.Load)
	ld.Operands = []*ir.Node{a}
	chain(caller, a, fn, call, cr, ld)

	g := analyze(t, prog, Options{})

	mr := g.GetModRef(callee)
	found := false
	for _, s := range mr.MayDef {
		if s.Object == a {
			found = true
		}
	}
	if !found {
		t.Fatalf("callee's mod set should include the caller's object, got %+v", mr)
	}

	defs := g.GetReachingDefinitions(ld)
	if !hasDef(defs, call) {
		t.Fatalf("the call should stand in for the callee's write at the load, got %v", defs)
	}
}

func TestOpaqueCallWritesUnknown(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	p := prog.NewNode(f, ir.Alloc)
	v := prog.NewNode(f, ir.Alloc)
	st := prog.NewNode(f, ir.Store)
	st.Operands = []*ir.Node{p, v}
	ext := prog.NewNode(f, ir.FunctionVal)
	ext.Name = "mystery"
	call := prog.NewNode(f, ir.Call)
	call.Operands = []*ir.Node{ext, p}
	ld := prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}
	chain(f, p, v, st, ext, call, ld)

	g := analyze(t, prog, Options{})
	defs := g.GetReachingDefinitions(ld)
	if !hasDef(defs, call) {
		t.Fatalf("an opaque call may write anything, so it must reach the load, got %v", defs)
	}

	g2 := analyze(t, prog, Options{UndefinedArePure: true})
	defs2 := g2.GetReachingDefinitions(ld)
	if hasDef(defs2, call) {
		t.Fatalf("a pure opaque call must not reach the load, got %v", defs2)
	}
	if !hasDef(defs2, st) {
		t.Fatalf("the store still reaches when the call is pure, got %v", defs2)
	}
}

func TestMaxIterationsBudget(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	p := prog.NewNode(f, ir.Alloc)
	v := prog.NewNode(f, ir.Alloc)
	st := prog.NewNode(f, ir.Store)
	st.Operands = []*ir.Node{p, v}
	ld := prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}
	back := prog.NewNode(f, ir.Noop)

	// A loop: p -> v -> st -> ld -> back -> st.
	ir.BuildBlocks(f, p, func(n *ir.Node) []*ir.Node {
		switch n {
		case p:
			return []*ir.Node{v}
		case v:
			return []*ir.Node{st}
		case st:
			return []*ir.Node{ld}
		case ld:
			return []*ir.Node{back}
		case back:
			return []*ir.Node{st}
		default:
			return nil
		}
	})

	pg := pta.Build(prog, pta.Options{})
	pg.Run()
	g := Build(prog, pg, Options{MaxIterations: 1})
	err := g.Run()
	if err == nil {
		t.Fatalf("a one-sweep budget on a loop should be exceeded")
	}
	// The conservative fallback still answers queries.
	defs := g.GetReachingDefinitions(ld)
	if !hasDef(defs, st) {
		t.Fatalf("budget-exceeded fallback should include every writer, got %v", defs)
	}
}
