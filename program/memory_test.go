// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package program

import (
	"testing"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

func TestMemoryIsAHost(t *testing.T) {
	var _ Host = NewMemory()
}

func TestStructTypeElementOffset(t *testing.T) {
	i32 := IntType(4)
	ptr := PointerType(i32, 8)
	st := StructType(i32, ptr, i32)

	want := []offset.Offset{0, 4, 12}
	for i, w := range want {
		if got := st.ElementOffset(i); got != w {
			t.Errorf("field %d: got %v, want %v", i, got, w)
		}
	}
	if st.Size != 16 {
		t.Errorf("struct size = %v, want 16", st.Size)
	}
}

func TestArrayTypeElementOffset(t *testing.T) {
	i32 := IntType(4)
	arr := ArrayType(i32, 10)
	if arr.Size != 40 {
		t.Errorf("array size = %v, want 40", arr.Size)
	}
	if got := arr.ElementOffset(3); got != 12 {
		t.Errorf("element 3 offset = %v, want 12", got)
	}
}

func TestInsertDivergingStub(t *testing.T) {
	m := NewMemory()
	p := m.Program()
	f := p.NewFunction("f")
	entry := p.NewNode(f, ir.Noop)
	ir.BuildBlocks(f, entry, func(n *ir.Node) []*ir.Node { return nil })

	abort := p.NewFunction("abort")
	m.SetDivergeFunction(abort)

	call := m.InsertDivergingStub(f.Blocks[len(f.Blocks)-1])
	if call.Kind != ir.Call {
		t.Fatalf("InsertDivergingStub returned a %v, want CALL", call.Kind)
	}
	last := f.Blocks[len(f.Blocks)-1]
	if last.Nodes[len(last.Nodes)-1] != call {
		t.Errorf("stub call was not appended to the last block")
	}
}
