// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"testing"

	"github.com/go-llir/dgslice/callgraph"
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
	"github.com/go-llir/dgslice/rd"
	"github.com/go-llir/dgslice/sdg"
	"github.com/go-llir/dgslice/slice"
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

// raceFixture: worker A writes 7 through its argument, worker B writes 8,
// main writes 4 itself, forks both, joins, and reads.
func raceFixture() (prog *ir.Program, wstA, wstB, stM, ld, acall *ir.Node) {
	prog = ir.NewProgram()

	mkWorker := func(name string) (fn *ir.Function, wst *ir.Node) {
		fn = prog.NewFunction(name)
		param := prog.NewNode(fn, ir.Alloc)
		fn.Params = []*ir.Node{param}
		val := prog.NewNode(fn, ir.Constant)
		wst = prog.NewNode(fn, ir.Store)
		wst.Operands = []*ir.Node{param, val}
		ret := prog.NewNode(fn, ir.Return)
		chain(fn, param, val, wst, ret)
		return fn, wst
	}
	_, wstA = mkWorker("workerA")
	_, wstB = mkWorker("workerB")

	main := prog.NewFunction("main")
	x := prog.NewNode(main, ir.Alloc)
	four := prog.NewNode(main, ir.Constant)
	stM = prog.NewNode(main, ir.Store)
	stM.Operands = []*ir.Node{x, four}
	fa := prog.NewNode(main, ir.FunctionVal)
	fa.Name = "workerA"
	forkA := prog.NewNode(main, ir.Fork)
	forkA.Operands = []*ir.Node{fa, x}
	fb := prog.NewNode(main, ir.FunctionVal)
	fb.Name = "workerB"
	forkB := prog.NewNode(main, ir.Fork)
	forkB.Operands = []*ir.Node{fb, x}
	joinA := prog.NewNode(main, ir.Join)
	joinA.Operands = []*ir.Node{forkA}
	joinB := prog.NewNode(main, ir.Join)
	joinB.Operands = []*ir.Node{forkB}
	ld = prog.NewNode(main, ir.Load)
	ld.Operands = []*ir.Node{x}
	av := prog.NewNode(main, ir.FunctionVal)
	av.Name = "assert"
	acall = prog.NewNode(main, ir.Call)
	acall.Operands = []*ir.Node{av, ld}
	chain(main, x, four, stM, fa, forkA, fb, forkB, joinA, joinB, ld, av, acall)
	return
}

func analyzeRace(t *testing.T) (*ir.Program, *Analysis, *rd.RWGraph, *sdg.Graph, *ir.Node, *ir.Node, *ir.Node, *ir.Node) {
	t.Helper()
	prog, wstA, wstB, stM, ld, acall := raceFixture()
	_ = stM
	pg := pta.Build(prog, pta.Options{Threads: true})
	pg.Run()
	rw := rd.Build(prog, pg, rd.Options{
		FunctionModels: map[string]rd.FunctionModel{"assert": {Pure: true}},
	})
	if err := rw.Run(); err != nil {
		t.Fatalf("rd.Run: %v", err)
	}
	cg := callgraph.New(prog, pg, "main")
	g := sdg.Build(prog, pg, rw, cg)
	a := BuildRegions(prog, pg, cg, Options{})
	return prog, a, rw, g, wstA, wstB, ld, acall
}

func TestRegionsPerFork(t *testing.T) {
	_, a, _, _, _, _, _, _ := analyzeRace(t)

	if len(a.Regions) != 3 {
		t.Fatalf("expected main + two forked regions, got %d", len(a.Regions))
	}
	main := a.Regions[0]
	if main.Fork != nil || main.Entry.Name != "main" {
		t.Fatalf("region 0 should be the unforked main region")
	}
	for _, r := range a.Regions[1:] {
		if r.Fork == nil {
			t.Errorf("forked region missing its fork site")
		}
		if len(r.Joins) == 0 {
			t.Errorf("forked region should correlate with a join")
		}
		if !a.MayRunConcurrently(main, r) {
			t.Errorf("a forked region runs concurrently with its forker")
		}
	}
}

func TestInterferenceBetweenWorkersAndMain(t *testing.T) {
	_, a, rw, _, wstA, wstB, ld, _ := analyzeRace(t)

	pairs := a.Interferences(rw)
	hasPair := func(w, r *ir.Node) bool {
		for _, p := range pairs {
			if p.Write == w && p.Read == r {
				return true
			}
		}
		return false
	}
	if !hasPair(wstA, ld) {
		t.Errorf("worker A's write should interfere with main's read")
	}
	if !hasPair(wstB, ld) {
		t.Errorf("worker B's write should interfere with main's read")
	}
}

// TestRaceSliceKeepsInterferers: with interference edges installed, the
// slice from the assertion retains both thread bodies and the main-thread
// write.
func TestRaceSliceKeepsInterferers(t *testing.T) {
	_, a, rw, g, wstA, wstB, _, acall := analyzeRace(t)

	a.AddInterferenceEdges(g, rw)
	s := slice.New(g)
	res := s.Slice([]*ir.Node{acall, acall.Operands[1]})

	for _, n := range []*ir.Node{wstA, wstB} {
		if !res.Contains(n) {
			t.Errorf("racing write %s must stay in the slice", n)
		}
	}
}

func TestCriticalSections(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	lk := prog.NewNode(f, ir.Alloc)
	lv := prog.NewNode(f, ir.FunctionVal)
	lv.Name = "lock"
	lcall := prog.NewNode(f, ir.Call)
	lcall.Operands = []*ir.Node{lv, lk}
	x := prog.NewNode(f, ir.Alloc)
	v := prog.NewNode(f, ir.Constant)
	st := prog.NewNode(f, ir.Store)
	st.Operands = []*ir.Node{x, v}
	uv := prog.NewNode(f, ir.FunctionVal)
	uv.Name = "unlock"
	ucall := prog.NewNode(f, ir.Call)
	ucall.Operands = []*ir.Node{uv, lk}
	after := prog.NewNode(f, ir.Noop)
	chain(f, lk, lv, lcall, x, v, st, uv, ucall, after)

	pg := pta.Build(prog, pta.Options{})
	pg.Run()
	cg := callgraph.New(prog, pg, "main")
	a := BuildRegions(prog, pg, cg, Options{
		LockFunctions:   map[string]bool{"lock": true},
		UnlockFunctions: map[string]bool{"unlock": true},
	})

	if len(a.Sections) != 1 {
		t.Fatalf("expected one critical section, got %d", len(a.Sections))
	}
	cs := a.Sections[0]
	if !cs.Contains(st) {
		t.Errorf("the store between lock and unlock is in the section")
	}
	if cs.Contains(after) {
		t.Errorf("code after the unlock is outside the section")
	}
	if len(cs.Unlocks) != 1 || cs.Unlocks[0] != ucall {
		t.Errorf("the matching unlock should terminate the section")
	}
	if held := a.LocksHeldAt(st); !held.Contains(cs.Class) {
		t.Errorf("the lock is held at the store")
	}
}

func TestLockSerializationSuppressesInterference(t *testing.T) {
	// Two regions writing/reading under the same lock class do not
	// interfere.
	set1 := NewLockSet()
	set2 := NewLockSet()
	var a LockClassAnalysis
	lc := &LockClass{a: &a, id: 0}
	a.classes = append(a.classes, lc)
	s1 := set1.Plus(lc)
	s2 := set2.Plus(lc)
	if !s1.ContainsAny(s2) {
		t.Fatalf("shared lock class must intersect")
	}
	if s1.Minus(lc).ContainsAny(s2) {
		t.Fatalf("after release, no class is shared")
	}
}
