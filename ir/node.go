// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"

	"github.com/go-llir/dgslice/offset"
)

// ID identifies a Node within its Program. ID 0 is reserved for "invalid";
// a Node with ID 0 was never registered with a Program.
type ID uint32

// Node is one instruction in the program graph. Nodes are owned by their
// enclosing function's subgraph (or by the Program, for globals); they are
// never shared between functions.
type Node struct {
	ID   ID
	Kind Kind

	// Operands are this node's data operands, in the order the
	// validator expects for this Kind.
	Operands []*Node

	// GepOffset holds the constant or Unknown offset for a Gep node; it is
	// offset.Zero for every other Kind.
	GepOffset offset.Offset

	// MemcpyLen holds the byte count for a Memcpy node; it is
	// offset.Zero for every other Kind.
	MemcpyLen offset.Offset

	// Func is the function this node belongs to, or nil for a global.
	Func *Function
	// Block is the basic block this node belongs to, assigned by
	// BuildBlocks. Nil until blocks are built.
	Block *BasicBlock

	// Name is an optional human-readable label, used only for Dot output
	// and diagnostics.
	Name string

	// Aux holds the per-node scratch slots reserved for
	// analyses: DFS/BFS numbering, SCC id, low-link, and on-stack flag.
	// Each analysis that uses these must reset them before use; they are
	// not meaningful across analyses.
	Aux struct {
		DFSNum, BFSNum int
		SCCNum         int
		LowLink        int
		OnStack        bool
	}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Name != "" {
		return fmt.Sprintf("%s(%d)", n.Name, n.ID)
	}
	return fmt.Sprintf("%s(%d)", n.Kind, n.ID)
}

// IsPointerSentinel reports whether n is one of the three target sentinels
// a Pointer's target may name instead of an allocation site.
func (n *Node) IsPointerSentinel() bool {
	switch n.Kind {
	case NullAddr, UnknownMem, Invalidated:
		return true
	default:
		return false
	}
}
