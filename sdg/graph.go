// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sdg builds the system dependence graph: per-function program
// dependence graphs (control and data dependences) joined across calls by
// synthetic formal/actual parameter nodes, call/return edges, and the
// summary edges that let a slicer skip callee bodies it has already
// accounted for.
package sdg

import (
	"fmt"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/rd"
)

// NodeKind distinguishes instruction nodes from the synthetic parameter
// nodes the interprocedural construction adds.
type NodeKind uint8

const (
	Instruction NodeKind = iota
	FormalIn
	FormalOut
	ActualIn
	ActualOut
	Vararg
)

func (k NodeKind) String() string {
	switch k {
	case Instruction:
		return "insn"
	case FormalIn:
		return "formal-in"
	case FormalOut:
		return "formal-out"
	case ActualIn:
		return "actual-in"
	case ActualOut:
		return "actual-out"
	case Vararg:
		return "vararg"
	default:
		return "node(?)"
	}
}

// EdgeKind labels a dependence edge.
type EdgeKind uint8

const (
	Control EdgeKind = iota
	Data
	Interference
	Summary
	Call
	Return
	ParamIn
	ParamOut
)

func (k EdgeKind) String() string {
	switch k {
	case Control:
		return "control"
	case Data:
		return "data"
	case Interference:
		return "interference"
	case Summary:
		return "summary"
	case Call:
		return "call"
	case Return:
		return "return"
	case ParamIn:
		return "param-in"
	case ParamOut:
		return "param-out"
	default:
		return "edge(?)"
	}
}

// Node is one vertex of the SDG: an instruction, or a synthetic parameter
// node bound to a call site (actual-in/out, vararg) or a function
// (formal-in/out).
type Node struct {
	Kind NodeKind

	// Insn is the underlying instruction for Instruction nodes, the
	// CALL site for actual-in/out and vararg nodes, and nil for formal
	// nodes.
	Insn *ir.Node

	// Func is the owning function; for formal nodes, the callee.
	Func *ir.Function

	// Index is the parameter position, -1 for the return-value slot,
	// and -2 for a global-as-parameter slot (see Global).
	Index int

	// Global is the global object a global-as-parameter node carries.
	Global *ir.Node

	in, out []*Edge
}

func (n *Node) String() string {
	switch n.Kind {
	case Instruction:
		return n.Insn.String()
	case FormalIn, FormalOut:
		return fmt.Sprintf("%s[%s#%d]", n.Kind, n.Func.Name, n.Index)
	default:
		return fmt.Sprintf("%s[%s#%d]", n.Kind, n.Insn, n.Index)
	}
}

// In returns the edges ending at n.
func (n *Node) In() []*Edge { return n.in }

// Out returns the edges leaving n.
func (n *Node) Out() []*Edge { return n.out }

// Edge is a labeled dependence from From to To. Data edges carry the
// DefSite whose bytes the dependence transfers.
type Edge struct {
	From, To *Node
	Kind     EdgeKind
	Site     rd.DefSite
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -%s-> %s", e.From, e.Kind, e.To)
}
