// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package program defines the host adapter contract every analysis in this
// repository is built against: an
// in-memory program graph with stable node identities, type/size queries,
// and a narrow write capability for inserting a diverging-terminator stub.
// The LLIR parser/printer, CLI frontend, and source-line recovery are
// explicitly out of scope; program.Memory is a minimal in-memory Host used
// only so the rest of this repository is testable without a real frontend.
package program

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// Type describes the layout information the core needs about a value's
// static type: its size, and (for aggregates) its element layout. Type
// deliberately does not model a full type system — only what PTA's GEP
// handling and global-initializer recursion require.
type Type struct {
	Kind Kind
	Size offset.Offset

	// Elem is the element type for Pointer and Array kinds.
	Elem *Type
	// Fields is the field type list for Struct kinds, in declaration
	// order.
	Fields []*Type
	// FieldOffsets[i] is the byte offset of Fields[i] within the struct.
	FieldOffsets []offset.Offset
}

// Kind classifies a Type for layout purposes.
type Kind uint8

const (
	KindInt Kind = iota
	KindPointer
	KindStruct
	KindArray
)

// ElementOffset returns the byte offset of t's i'th element (struct field
// or array element), used by global-initializer recursion.
func (t *Type) ElementOffset(i int) offset.Offset {
	switch t.Kind {
	case KindStruct:
		return t.FieldOffsets[i]
	case KindArray:
		if t.Elem.Size.IsUnknown() {
			return offset.Unknown
		}
		off := offset.Zero
		for n := 0; n < i; n++ {
			off = off.Add(t.Elem.Size)
		}
		return off
	default:
		return offset.Unknown
	}
}

// DebugLocation is a source position a host may attach to a node, used
// only for diagnostics.
type DebugLocation struct {
	File      string
	Line, Col int
}

// Host is the contract the external frontend implements: modules
// of functions of blocks of instructions, global variables with
// initializers, type/size queries, and the one write operation the core
// performs itself (inserting a diverging-terminator stub when the
// preprocessor needs to cut a branch).
type Host interface {
	// Program returns the in-memory program graph. Node identities are
	// stable for the lifetime of the Host.
	Program() *ir.Program

	// TypeOf returns the static type of a node's result, or nil if n has
	// no result (e.g. RETURN, STORE).
	TypeOf(n *ir.Node) *Type

	// DebugLocation returns n's source position, or the zero
	// DebugLocation if none is available.
	DebugLocation(n *ir.Node) DebugLocation

	// InsertDivergingStub inserts a call to a host-provided exit/abort-like
	// function at the end of block b, used by the slicer's cutoff-diverging
	// preprocessing pass to replace a removed branch with a terminator
	// that never falls through. It returns the inserted CALL node.
	InsertDivergingStub(b *ir.BasicBlock) *ir.Node
}
