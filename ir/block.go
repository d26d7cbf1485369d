// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
)

// BasicBlock is a maximal straight-line sequence of nodes: a node starts a
// new block iff it has zero predecessors, more than one predecessor, or its
// single predecessor has more than one successor.
//
// A Function's Blocks slice is densely numbered starting at 0; a
// BasicBlock's Index is its position in that slice, which doubles as the
// node index the ir.Graph/ir.BiGraph implementations use.
type BasicBlock struct {
	Index int
	Func  *Function
	Nodes []*Node

	Succs []*BasicBlock
	Preds []*BasicBlock
}

// AddSucc records an edge from b to s, and the corresponding predecessor
// edge from s to b.
func (b *BasicBlock) AddSucc(s *BasicBlock) {
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}

func (b *BasicBlock) String() string {
	if b == nil {
		return "<nil block>"
	}
	return blockLabel(b)
}

func blockLabel(b *BasicBlock) string {
	name := "?"
	if b.Func != nil {
		name = b.Func.Name
	}
	return fmt.Sprintf("%s.bb%d", name, b.Index)
}
