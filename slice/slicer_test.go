// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slice

import (
	"testing"

	"github.com/go-llir/dgslice/callgraph"
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
	"github.com/go-llir/dgslice/rd"
	"github.com/go-llir/dgslice/sdg"
)

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

// pureModels treats assert-like markers and opaque oracles as effect-free
// so they do not conservatively read and write all of memory.
var pureModels = map[string]rd.FunctionModel{
	"assert": {Pure: true},
	"getidx": {Pure: true},
}

func analyzeAndSlice(t *testing.T, prog *ir.Program, ptaOpts pta.Options, criterion []*ir.Node) (*Slicer, *Result, *sdg.Graph) {
	t.Helper()
	pg := pta.Build(prog, ptaOpts)
	pg.Run()
	rw := rd.Build(prog, pg, rd.Options{FunctionModels: pureModels})
	if err := rw.Run(); err != nil {
		t.Fatalf("rd.Run: %v", err)
	}
	cg := callgraph.New(prog, pg, "main")
	g := sdg.Build(prog, pg, rw, cg)
	s := New(g)
	return s, s.Slice(criterion), g
}

// TestSimplePointer: a = 0; p = &a; *p = 9; assert(a == 9). Everything
// feeds the criterion, so everything pointer-relevant stays.
func TestSimplePointer(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	a := prog.NewNode(f, ir.Alloc)
	pa := prog.NewNode(f, ir.Alloc)
	stP := prog.NewNode(f, ir.Store) // p = &a
	stP.Operands = []*ir.Node{pa, a}
	ldP := prog.NewNode(f, ir.Load) // read p
	ldP.Operands = []*ir.Node{pa}
	nine := prog.NewNode(f, ir.Constant)
	stA := prog.NewNode(f, ir.Store) // *p = 9
	stA.Operands = []*ir.Node{ldP, nine}
	ldA := prog.NewNode(f, ir.Load) // read a for the assert
	ldA.Operands = []*ir.Node{a}
	fn := prog.NewNode(f, ir.FunctionVal)
	fn.Name = "assert"
	call := prog.NewNode(f, ir.Call)
	call.Operands = []*ir.Node{fn, ldA}
	chain(f, a, pa, stP, ldP, nine, stA, ldA, fn, call)

	_, res, _ := analyzeAndSlice(t, prog, pta.Options{}, ByCalleeName(prog, "assert"))

	for _, n := range []*ir.Node{call, ldA, stA, ldP, stP, a, pa, nine} {
		if !res.Contains(n) {
			t.Errorf("slice should retain %s", n)
		}
	}
}

// TestDeadWrite: a = 0; b = 7; assert(a == 0). The write to b cannot
// influence the criterion and is removed.
func TestDeadWrite(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	a := prog.NewNode(f, ir.Alloc)
	b := prog.NewNode(f, ir.Alloc)
	seven := prog.NewNode(f, ir.Constant)
	stB := prog.NewNode(f, ir.Store)
	stB.Operands = []*ir.Node{b, seven}
	ldA := prog.NewNode(f, ir.Load)
	ldA.Operands = []*ir.Node{a}
	fn := prog.NewNode(f, ir.FunctionVal)
	fn.Name = "assert"
	call := prog.NewNode(f, ir.Call)
	call.Operands = []*ir.Node{fn, ldA}
	chain(f, a, b, seven, stB, ldA, fn, call)

	_, res, _ := analyzeAndSlice(t, prog, pta.Options{}, ByCalleeName(prog, "assert"))

	if res.Contains(stB) {
		t.Errorf("the dead write must not be in the slice")
	}
	if !res.Contains(call) || !res.Contains(ldA) || !res.Contains(a) {
		t.Errorf("the criterion chain must be in the slice")
	}
}

// TestFunctionPointer: f(x) { *x = 8 }; fp = f; fp(&a); assert(a == 8).
// The indirect call, the target's body, and fp's initialization all stay.
func TestFunctionPointer(t *testing.T) {
	prog := ir.NewProgram()

	callee := prog.NewFunction("f")
	param := prog.NewNode(callee, ir.Alloc)
	callee.Params = []*ir.Node{param}
	eight := prog.NewNode(callee, ir.Constant)
	wst := prog.NewNode(callee, ir.Store)
	wst.Operands = []*ir.Node{param, eight}
	wret := prog.NewNode(callee, ir.Return)
	chain(callee, param, eight, wst, wret)

	main := prog.NewFunction("main")
	a := prog.NewNode(main, ir.Alloc)
	fp := prog.NewNode(main, ir.Alloc)
	fv := prog.NewNode(main, ir.FunctionVal)
	fv.Name = "f"
	stFp := prog.NewNode(main, ir.Store) // fp = f
	stFp.Operands = []*ir.Node{fp, fv}
	ldFp := prog.NewNode(main, ir.Load)
	ldFp.Operands = []*ir.Node{fp}
	call := prog.NewNode(main, ir.Call) // fp(&a)
	call.Operands = []*ir.Node{ldFp, a}
	cr := prog.NewNode(main, ir.CallReturn)
	ldA := prog.NewNode(main, ir.Load)
	ldA.Operands = []*ir.Node{a}
	av := prog.NewNode(main, ir.FunctionVal)
	av.Name = "assert"
	acall := prog.NewNode(main, ir.Call)
	acall.Operands = []*ir.Node{av, ldA}
	chain(main, a, fp, fv, stFp, ldFp, call, cr, ldA, av, acall)

	_, res, _ := analyzeAndSlice(t, prog, pta.Options{}, ByCalleeName(prog, "assert"))

	for _, n := range []*ir.Node{acall, ldA, call, ldFp, stFp, wst, a} {
		if !res.Contains(n) {
			t.Errorf("slice should retain %s", n)
		}
	}
}

// TestReallocChain: a loop reallocates p and writes through it; a
// post-loop read keeps both the loop write and the realloc chain.
func TestReallocChain(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	cell := prog.NewNode(f, ir.Alloc) // the variable p
	v0 := prog.NewNode(f, ir.Alloc)   // initial allocation
	st0 := prog.NewNode(f, ir.Store)
	st0.Operands = []*ir.Node{cell, v0}

	ldP := prog.NewNode(f, ir.Load)
	ldP.Operands = []*ir.Node{cell}
	rv := prog.NewNode(f, ir.FunctionVal)
	rv.Name = "realloc"
	callR := prog.NewNode(f, ir.Call)
	callR.Operands = []*ir.Node{rv, ldP}
	crR := prog.NewNode(f, ir.CallReturn)
	stCell := prog.NewNode(f, ir.Store) // p = realloc(p, i)
	stCell.Operands = []*ir.Node{cell, crR}
	ldP2 := prog.NewNode(f, ir.Load)
	ldP2.Operands = []*ir.Node{cell}
	iv := prog.NewNode(f, ir.Constant)
	stVal := prog.NewNode(f, ir.Store) // *p = i
	stVal.Operands = []*ir.Node{ldP2, iv}

	ldP3 := prog.NewNode(f, ir.Load)
	ldP3.Operands = []*ir.Node{cell}
	ldFinal := prog.NewNode(f, ir.Load)
	ldFinal.Operands = []*ir.Node{ldP3}
	av := prog.NewNode(f, ir.FunctionVal)
	av.Name = "assert"
	acall := prog.NewNode(f, ir.Call)
	acall.Operands = []*ir.Node{av, ldFinal}

	ir.BuildBlocks(f, cell, func(n *ir.Node) []*ir.Node {
		switch n {
		case cell:
			return []*ir.Node{v0}
		case v0:
			return []*ir.Node{st0}
		case st0:
			return []*ir.Node{ldP}
		case ldP:
			return []*ir.Node{rv}
		case rv:
			return []*ir.Node{callR}
		case callR:
			return []*ir.Node{crR}
		case crR:
			return []*ir.Node{stCell}
		case stCell:
			return []*ir.Node{ldP2}
		case ldP2:
			return []*ir.Node{iv}
		case iv:
			return []*ir.Node{stVal}
		case stVal:
			// Loop back or fall through to the post-loop read.
			return []*ir.Node{ldP, ldP3}
		case ldP3:
			return []*ir.Node{ldFinal}
		case ldFinal:
			return []*ir.Node{av}
		case av:
			return []*ir.Node{acall}
		default:
			return nil
		}
	})

	opts := pta.Options{AllocationFunctions: map[string]pta.AllocKind{"realloc": pta.AllocRealloc}}
	_, res, _ := analyzeAndSlice(t, prog, opts, ByCalleeName(prog, "assert"))

	for _, n := range []*ir.Node{acall, ldFinal, stVal, callR, stCell, st0} {
		if !res.Contains(n) {
			t.Errorf("slice should retain %s", n)
		}
	}
}

// TestOpaqueBranchesBothKept: if (getidx()==2) a[2]=7 else a[2]=0;
// assert(a[2]==7). Both stores reach the read past the merge and both
// stay, and the cutoff pass removes neither branch.
func TestOpaqueBranchesBothKept(t *testing.T) {
	prog, st1, st2, ld, acall := opaqueBranchFixture()

	crit := ByCalleeName(prog, "assert")
	_, res, _ := analyzeAndSlice(t, prog, pta.Options{}, crit)

	if !res.Contains(st1) || !res.Contains(st2) {
		t.Errorf("both branch stores feed the merge read and must stay")
	}
	if !res.Contains(ld) || !res.Contains(acall) {
		t.Errorf("criterion chain must stay")
	}
}

func opaqueBranchFixture() (*ir.Program, *ir.Node, *ir.Node, *ir.Node, *ir.Node) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	a := prog.NewNode(f, ir.Alloc)
	gv := prog.NewNode(f, ir.FunctionVal)
	gv.Name = "getidx"
	gcall := prog.NewNode(f, ir.Call)
	gcall.Operands = []*ir.Node{gv}
	gcr := prog.NewNode(f, ir.CallReturn)

	gep1 := prog.NewNode(f, ir.Gep)
	gep1.Operands = []*ir.Node{a}
	gep1.GepOffset = 2
	seven := prog.NewNode(f, ir.Constant)
	st1 := prog.NewNode(f, ir.Store)
	st1.Operands = []*ir.Node{gep1, seven}

	gep2 := prog.NewNode(f, ir.Gep)
	gep2.Operands = []*ir.Node{a}
	gep2.GepOffset = 2
	zero := prog.NewNode(f, ir.Constant)
	st2 := prog.NewNode(f, ir.Store)
	st2.Operands = []*ir.Node{gep2, zero}

	gep3 := prog.NewNode(f, ir.Gep)
	gep3.Operands = []*ir.Node{a}
	gep3.GepOffset = 2
	ld := prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{gep3}
	av := prog.NewNode(f, ir.FunctionVal)
	av.Name = "assert"
	acall := prog.NewNode(f, ir.Call)
	acall.Operands = []*ir.Node{av, ld}

	ir.BuildBlocks(f, a, func(n *ir.Node) []*ir.Node {
		switch n {
		case a:
			return []*ir.Node{gv}
		case gv:
			return []*ir.Node{gcall}
		case gcall:
			return []*ir.Node{gcr}
		case gcr:
			return []*ir.Node{gep1, gep2}
		case gep1:
			return []*ir.Node{seven}
		case seven:
			return []*ir.Node{st1}
		case gep2:
			return []*ir.Node{zero}
		case zero:
			return []*ir.Node{st2}
		case st1, st2:
			return []*ir.Node{gep3}
		case gep3:
			return []*ir.Node{ld}
		case ld:
			return []*ir.Node{av}
		case av:
			return []*ir.Node{acall}
		default:
			return nil
		}
	})
	return prog, st1, st2, ld, acall
}

func TestEmptyCriterionEmptySlice(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	a := prog.NewNode(f, ir.Alloc)
	chain(f, a)

	s, res, _ := analyzeAndSlice(t, prog, pta.Options{}, nil)
	if len(res.Instructions()) != 0 {
		t.Fatalf("an empty criterion yields an empty slice, got %v", res.Instructions())
	}
	if s.SliceID(a) != 0 {
		t.Fatalf("nodes outside every slice carry id zero")
	}
}

func TestWholeProgramCriterionIsIdentity(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	a := prog.NewNode(f, ir.Alloc)
	v := prog.NewNode(f, ir.Alloc)
	st := prog.NewNode(f, ir.Store)
	st.Operands = []*ir.Node{a, v}
	chain(f, a, v, st)

	_, res, _ := analyzeAndSlice(t, prog, pta.Options{}, WholeProgram(prog))
	for _, n := range []*ir.Node{a, v, st} {
		if !res.Contains(n) {
			t.Errorf("whole-program criterion must keep %s", n)
		}
	}
}

func TestSliceIDsDistinguishCriteria(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	a := prog.NewNode(f, ir.Alloc)
	b := prog.NewNode(f, ir.Alloc)
	chain(f, a, b)

	pg := pta.Build(prog, pta.Options{})
	pg.Run()
	rw := rd.Build(prog, pg, rd.Options{})
	if err := rw.Run(); err != nil {
		t.Fatalf("rd.Run: %v", err)
	}
	cg := callgraph.New(prog, pg, "main")
	g := sdg.Build(prog, pg, rw, cg)
	s := New(g)

	r1 := s.Slice([]*ir.Node{a})
	r2 := s.Slice([]*ir.Node{b})
	if r1.ID == r2.ID {
		t.Fatalf("distinct criteria must get distinct slice ids")
	}
	if s.SliceID(b) != r2.ID {
		t.Fatalf("node id should reflect the slice that marked it")
	}
}
