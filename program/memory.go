// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package program

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// Memory is a minimal in-memory Host, built directly by test code rather
// than by parsing any on-disk format. It is intentionally small: it exists
// so the analyses in this repository can be exercised end to end without
// a real LLIR frontend, not to be a second frontend in its own right.
type Memory struct {
	prog  *ir.Program
	types map[*ir.Node]*Type
	locs  map[*ir.Node]DebugLocation

	// divergeTarget is the function a diverging stub call resolves to;
	// tests may leave it nil, in which case InsertDivergingStub still
	// allocates a CALL node but does not connect it to a callee.
	divergeTarget *ir.Function
}

// NewMemory returns an empty Memory wrapping a fresh ir.Program.
func NewMemory() *Memory {
	return &Memory{
		prog:  ir.NewProgram(),
		types: make(map[*ir.Node]*Type),
		locs:  make(map[*ir.Node]DebugLocation),
	}
}

func (m *Memory) Program() *ir.Program { return m.prog }

func (m *Memory) TypeOf(n *ir.Node) *Type { return m.types[n] }

func (m *Memory) DebugLocation(n *ir.Node) DebugLocation { return m.locs[n] }

// SetType records t as n's static type. Used by test fixtures to drive
// pta's GEP/struct-layout handling.
func (m *Memory) SetType(n *ir.Node, t *Type) { m.types[n] = t }

// SetDebugLocation records loc as n's source position.
func (m *Memory) SetDebugLocation(n *ir.Node, loc DebugLocation) { m.locs[n] = loc }

// SetDivergeFunction designates f as the target InsertDivergingStub's
// synthesized calls resolve to.
func (m *Memory) SetDivergeFunction(f *ir.Function) { m.divergeTarget = f }

func (m *Memory) InsertDivergingStub(b *ir.BasicBlock) *ir.Node {
	call := m.prog.NewNode(b.Func, ir.Call)
	if m.divergeTarget != nil {
		fn := m.prog.NewNode(nil, ir.FunctionVal)
		fn.Name = m.divergeTarget.Name
		call.Operands = []*ir.Node{fn}
	}
	b.Nodes = append(b.Nodes, call)
	call.Block = b
	return call
}

// IntType returns the Type of a fixed-size integer of the given byte size.
func IntType(size offset.Offset) *Type {
	return &Type{Kind: KindInt, Size: size}
}

// PointerType returns the Type of a pointer to elem, sized to ptrSize.
func PointerType(elem *Type, ptrSize offset.Offset) *Type {
	return &Type{Kind: KindPointer, Size: ptrSize, Elem: elem}
}

// ArrayType returns the Type of a fixed-length array of elem.
func ArrayType(elem *Type, length int) *Type {
	size := offset.Zero
	if !elem.Size.IsUnknown() {
		for i := 0; i < length; i++ {
			size = size.Add(elem.Size)
		}
	} else {
		size = offset.Unknown
	}
	return &Type{Kind: KindArray, Size: size, Elem: elem}
}

// StructType returns the Type of a struct with the given fields laid out
// back-to-back with no padding (this Host models only what the analyses
// need, not a real ABI).
func StructType(fields ...*Type) *Type {
	offsets := make([]offset.Offset, len(fields))
	size := offset.Zero
	for i, f := range fields {
		offsets[i] = size
		if size.IsUnknown() || f.Size.IsUnknown() {
			size = offset.Unknown
			continue
		}
		size = size.Add(f.Size)
	}
	return &Type{Kind: KindStruct, Size: size, Fields: fields, FieldOffsets: offsets}
}
