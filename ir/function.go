// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// Function is one function's subgraph: its basic blocks (densely numbered,
// index 0 is the entry block), its formal parameters, and its nodes'
// owning scope.
type Function struct {
	Name    string
	Program *Program

	Params []*Node
	// Variadic marks a function that accepts arguments beyond Params;
	// call sites bind the fixed prefix positionally and the rest through
	// a single vararg slot.
	Variadic bool
	Blocks   []*BasicBlock

	// Entry is Blocks[0] once BuildBlocks has run; nil before that.
	Entry *BasicBlock
}

// Block returns f's basic block at index i.
func (f *Function) Block(i int) *BasicBlock { return f.Blocks[i] }

// Exits returns the indices of f's basic blocks with no successors.
func (f *Function) Exits() []int {
	var exits []int
	for i, b := range f.Blocks {
		if len(b.Succs) == 0 {
			exits = append(exits, i)
		}
	}
	return exits
}
