// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

// Interner assigns small dense integer ids to Pointers. bitvectorSet uses
// an Interner-assigned id to index its intsets.Sparse bitvector, which is
// why a single Interner must be shared by every PointsToSet produced
// during one analysis.
type Interner struct {
	ids  map[Pointer]int
	ptrs []Pointer
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{ids: make(map[Pointer]int)}
}

// ID returns p's dense id, assigning a fresh one on first use.
func (in *Interner) ID(p Pointer) int {
	if id, ok := in.ids[p]; ok {
		return id
	}
	id := len(in.ptrs)
	in.ids[p] = id
	in.ptrs = append(in.ptrs, p)
	return id
}

// Pointer returns the Pointer previously assigned id by ID.
func (in *Interner) Pointer(id int) Pointer {
	return in.ptrs[id]
}
