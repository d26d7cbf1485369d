// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// Program is the top-level container owning every function subgraph, the
// globals, and the three pointer-target sentinels. The sentinels must be
// unique per program graph rather than package-level globals, since a
// process may hold more than one Program (e.g. under test); Program is
// that per-program scope.
type Program struct {
	Functions []*Function
	Globals   []*Node

	// Null, UnknownMemory, and Invalidated are this program's three
	// pointer-target sentinels. They
	// are ordinary Nodes with no operands, reachable from nowhere in the
	// CFG, and are exempt from the validator's predecessor requirement.
	Null          *Node
	UnknownMemory *Node
	Invalidated   *Node

	nextID ID
}

// NewProgram returns an empty Program with its three sentinel nodes
// allocated.
func NewProgram() *Program {
	p := &Program{nextID: 1} // ID 0 is reserved for "invalid"
	p.Null = p.newSentinel(NullAddr, "null")
	p.UnknownMemory = p.newSentinel(UnknownMem, "unknown-memory")
	p.Invalidated = p.newSentinel(Invalidated, "invalidated")
	return p
}

func (p *Program) newSentinel(k Kind, name string) *Node {
	return &Node{ID: p.allocID(), Kind: k, Name: name}
}

func (p *Program) allocID() ID {
	id := p.nextID
	p.nextID++
	return id
}

// NewFunction creates and registers a new, blockless Function named name.
func (p *Program) NewFunction(name string) *Function {
	f := &Function{Name: name, Program: p}
	p.Functions = append(p.Functions, f)
	return f
}

// NewNode allocates a fresh Node of the given Kind belonging to f (f may
// be nil for a global), with no operands and no block assignment.
func (p *Program) NewNode(f *Function, k Kind) *Node {
	return &Node{ID: p.allocID(), Kind: k, Func: f}
}

// NewGlobal allocates a fresh Node belonging to the program itself rather
// than to any function, and registers it in Globals.
func (p *Program) NewGlobal(k Kind, name string) *Node {
	n := &Node{ID: p.allocID(), Kind: k, Name: name}
	p.Globals = append(p.Globals, n)
	return n
}
