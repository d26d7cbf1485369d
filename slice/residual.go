// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slice

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/program"
)

// Emit rewrites prog into the residual program of res through the host's
// rewrite capability: instructions outside the slice are deleted,
// now-empty blocks are removed (forwarding their CFG uses to their sole
// successor), and functions left with no body are dropped.
func Emit(prog *ir.Program, res *Result, rw program.Rewriter) {
	keep := make(map[*ir.Node]bool)
	for _, n := range res.Instructions() {
		keep[n] = true
	}

	fns := append([]*ir.Function(nil), prog.Functions...)
	for _, f := range fns {
		blocks := append([]*ir.BasicBlock(nil), f.Blocks...)
		for _, b := range blocks {
			nodes := append([]*ir.Node(nil), b.Nodes...)
			for _, n := range nodes {
				if !keep[n] {
					rw.DeleteInstruction(n)
				}
			}
		}
		for _, b := range blocks {
			if len(b.Nodes) > 0 {
				continue
			}
			// An emptied block only forwards control; a branch
			// whose sole purpose was to reach it forwards too.
			if len(b.Succs) == 1 {
				rw.ReplaceBlockUses(b, b.Succs[0])
			}
			rw.DeleteBlock(b)
		}
		if len(f.Blocks) == 0 {
			rw.DropFunction(f)
		}
	}
}
