// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import (
	"testing"

	"github.com/go-llir/dgslice/ir"
)

// chain installs succs as f's sequential CFG (one node per block) via
// ir.BuildBlocks, so tests can build straight-line fixtures tersely.
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

func TestAndersenStoreLoad(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")

	p := prog.NewNode(f, ir.Alloc) // &p
	v := prog.NewNode(f, ir.Alloc) // object stored through p
	st := prog.NewNode(f, ir.Store)
	st.Operands = []*ir.Node{p, v}
	ld := prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}

	chain(f, p, v, st, ld)

	pg := Build(prog, Options{})
	pg.Run()

	got := pg.PointsTo(ld)
	if !got.Contains(Pointer{Target: v}) {
		t.Fatalf("load should see the stored value, got %s", got.String(prog))
	}
	if got.HasUnknown(prog) {
		t.Fatalf("load points-to should not carry UNKNOWN_MEMORY here, got %s", got.String(prog))
	}
}

func TestAndersenGepOffset(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")

	base := prog.NewNode(f, ir.Alloc)
	g := prog.NewNode(f, ir.Gep)
	g.Operands = []*ir.Node{base}
	g.GepOffset = 8

	chain(f, base, g)

	pg := Build(prog, Options{})
	pg.Run()

	got := pg.PointsTo(g)
	if !got.Contains(Pointer{Target: base, Offset: 8}) {
		t.Fatalf("gep should carry the offset through, got %s", got.String(prog))
	}
}

func TestAndersenNeverAnalyzedIsUnknown(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	n := prog.NewNode(f, ir.Alloc)
	chain(f, n)

	pg := Build(prog, Options{})
	pg.Run()

	other := prog.NewNode(nil, ir.Alloc)
	got := pg.PointsTo(other)
	if !got.HasUnknown(prog) {
		t.Fatalf("PointsTo of a never-analyzed node should be UNKNOWN_MEMORY, got %s", got.String(prog))
	}
	if got.Empty() {
		t.Fatalf("PointsTo must never return an empty set")
	}
}

func TestAndersenDirectCall(t *testing.T) {
	prog := ir.NewProgram()

	callee := prog.NewFunction("callee")
	alloc := prog.NewNode(callee, ir.Alloc)
	ret := prog.NewNode(callee, ir.Return)
	ret.Operands = []*ir.Node{alloc}
	chain(callee, alloc, ret)

	caller := prog.NewFunction("caller")
	calleeVal := prog.NewNode(caller, ir.FunctionVal)
	call := prog.NewNode(caller, ir.Call)
	call.Operands = []*ir.Node{calleeVal}
	cr := prog.NewNode(caller, ir.CallReturn)
	chain(caller, calleeVal, call, cr)

	// lookupFunction falls back to name matching for a Function-kind
	// value node synthesized outside the callee's own blocks.
	calleeVal.Name = "callee"

	pg := Build(prog, Options{})
	pg.Run()

	got := pg.PointsTo(cr)
	if !got.Contains(Pointer{Target: alloc}) {
		t.Fatalf("call-return should see the callee's returned allocation, got %s", got.String(prog))
	}
}
