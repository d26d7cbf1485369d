// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package program

import "github.com/go-llir/dgslice/ir"

// Rewriter is the write capability a host must provide for residual
// emission: deleting an instruction, deleting a block, replacing all uses
// of a block with another, and dropping a function. Hosts that only run
// analyses need not implement it.
type Rewriter interface {
	DeleteInstruction(n *ir.Node)
	DeleteBlock(b *ir.BasicBlock)
	ReplaceBlockUses(old, repl *ir.BasicBlock)
	DropFunction(f *ir.Function)
}

// DeleteInstruction removes n from its block. n's node identity remains
// valid (analysis annotations keyed on it stay intact) but it no longer
// appears in the program walk.
func (m *Memory) DeleteInstruction(n *ir.Node) {
	b := n.Block
	if b == nil {
		return
	}
	out := b.Nodes[:0]
	for _, x := range b.Nodes {
		if x != n {
			out = append(out, x)
		}
	}
	b.Nodes = out
	n.Block = nil
}

// DeleteBlock removes b from its function and unlinks its CFG edges.
func (m *Memory) DeleteBlock(b *ir.BasicBlock) {
	f := b.Func
	out := f.Blocks[:0]
	for _, x := range f.Blocks {
		if x != b {
			out = append(out, x)
		}
	}
	f.Blocks = out
	for i, x := range f.Blocks {
		x.Index = i
	}
	for _, p := range b.Preds {
		p.Succs = removeBlock(p.Succs, b)
	}
	for _, s := range b.Succs {
		s.Preds = removeBlock(s.Preds, b)
	}
	if f.Entry == b {
		if len(f.Blocks) > 0 {
			f.Entry = f.Blocks[0]
		} else {
			f.Entry = nil
		}
	}
}

// ReplaceBlockUses redirects every CFG edge into old to repl.
func (m *Memory) ReplaceBlockUses(old, repl *ir.BasicBlock) {
	for _, p := range old.Preds {
		for i, s := range p.Succs {
			if s == old {
				p.Succs[i] = repl
			}
		}
		repl.Preds = append(repl.Preds, p)
	}
	old.Preds = nil
}

// DropFunction removes f from the program.
func (m *Memory) DropFunction(f *ir.Function) {
	prog := m.prog
	out := prog.Functions[:0]
	for _, x := range prog.Functions {
		if x != f {
			out = append(out, x)
		}
	}
	prog.Functions = out
}

func removeBlock(bs []*ir.BasicBlock, b *ir.BasicBlock) []*ir.BasicBlock {
	out := bs[:0]
	for _, x := range bs {
		if x != b {
			out = append(out, x)
		}
	}
	return out
}
