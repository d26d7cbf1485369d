// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import (
	"testing"

	"github.com/go-llir/dgslice/ir"
)

func TestAndersenIndirectCall(t *testing.T) {
	prog := ir.NewProgram()

	callee := prog.NewFunction("callee")
	param := prog.NewNode(callee, ir.Alloc)
	callee.Params = []*ir.Node{param}
	ret := prog.NewNode(callee, ir.Return)
	ret.Operands = []*ir.Node{param}
	chain(callee, param, ret)

	caller := prog.NewFunction("caller")
	fp := prog.NewNode(caller, ir.Alloc) // holds a function pointer
	calleeVal := prog.NewNode(caller, ir.FunctionVal)
	calleeVal.Name = "callee"
	storeFp := prog.NewNode(caller, ir.Store)
	storeFp.Operands = []*ir.Node{fp, calleeVal}
	loadFp := prog.NewNode(caller, ir.Load)
	loadFp.Operands = []*ir.Node{fp}
	arg := prog.NewNode(caller, ir.Alloc)
	call := prog.NewNode(caller, ir.Call)
	call.Operands = []*ir.Node{loadFp, arg}
	cr := prog.NewNode(caller, ir.CallReturn)

	chain(caller, fp, calleeVal, storeFp, loadFp, arg, call, cr)

	pg := Build(prog, Options{})
	pg.Run()

	if !pg.PointsTo(call.Operands[0]).IsKnownSingleton(prog) {
		t.Fatalf("the resolved callee operand should be a known singleton")
	}
	got := pg.PointsTo(cr)
	if !got.Contains(Pointer{Target: arg}) {
		t.Fatalf("indirect call's return should alias the argument forwarded through the callee's param, got %s", got.String(prog))
	}
}

func TestAndersenAllocatorRecognition(t *testing.T) {
	prog := ir.NewProgram()
	caller := prog.NewFunction("caller")
	mallocVal := prog.NewNode(caller, ir.FunctionVal)
	mallocVal.Name = "malloc"
	call := prog.NewNode(caller, ir.Call)
	call.Operands = []*ir.Node{mallocVal}
	cr := prog.NewNode(caller, ir.CallReturn)

	chain(caller, mallocVal, call, cr)

	pg := Build(prog, Options{
		AllocationFunctions: map[string]AllocKind{"malloc": AllocFresh},
	})
	pg.Run()

	got := pg.PointsTo(cr)
	if !got.Contains(Pointer{Target: call}) {
		t.Fatalf("recognized allocator's call-return should point to the call site itself, got %s", got.String(prog))
	}
}
