// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import "github.com/go-llir/dgslice/ir"

// RWNode mirrors one program node's memory effects. A synthetic phi node
// (IsPhi true, Node nil) is owned by the sparse engine; it has no direct
// Overwrites/Uses of its own, only Defs describing the merged value it
// produces for PhiObject.
type RWNode struct {
	Node  *ir.Node
	Func  *ir.Function
	Block *ir.BasicBlock

	IsPhi     bool
	PhiObject *ir.Node

	// Defs are this node's weak writes: the byte range may be written,
	// joining with whatever reached this point.
	Defs []DefSite
	// Overwrites are this node's strong writes: a single known target
	// fully replaces whatever reached this point.
	Overwrites []DefSite
	// Uses are the byte ranges this node reads.
	Uses []DefSite

	// UnknownWrite/UnknownRead mark accesses through a pointer whose
	// points-to set includes UNKNOWN_MEMORY; the assignment finder
	// spreads them across every allocated variable before Run.
	UnknownWrite bool
	UnknownRead  bool

	// incoming is a phi's set of merged definitions, the reverse edges
	// of the sparse reaching-definitions graph. Maintained during
	// construction so trivial-phi elimination can redirect uses.
	incoming []*RWNode
}

func (n *RWNode) String() string {
	if n.IsPhi {
		return "phi(" + n.PhiObject.String() + ")"
	}
	return n.Node.String()
}
