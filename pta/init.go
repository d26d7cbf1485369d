// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// InitKind classifies one node of a global's initializer tree: null,
// undef, pointer, address-taken function, or aggregate.
type InitKind int

const (
	// InitZero marks the global zero-initialized: PTA treats every byte
	// as holding no pointer (an all-zero/null memory region).
	InitZero InitKind = iota
	// InitUndef stores UNKNOWN_MEMORY.
	InitUndef
	// InitPointer emits a synthetic STORE of Pointee's address.
	InitPointer
	// InitFunction is InitPointer specialized for an address-taken
	// function constant.
	InitFunction
	// InitAggregate recurses into Elements using the host's struct/array
	// layout to compute element offsets.
	InitAggregate
)

// Init is one node of a global variable's initializer tree. For
// InitAggregate, the caller (the Host implementing GlobalInitializer) is
// responsible for computing each element's ElementOffsets entry from its
// own struct/array layout; pta itself only consumes the already-computed
// offsets, keeping its dependency surface to ir/offset.
type Init struct {
	Kind     InitKind
	Pointee  *ir.Node // for InitPointer: the ALLOC/DYN_ALLOC/global node addressed
	Function *ir.Node // for InitFunction: an ir.FunctionVal node

	// Elements and ElementOffsets are parallel slices for InitAggregate,
	// in declaration order.
	Elements       []Init
	ElementOffsets []offset.Offset
}

// GlobalInitializer is an optional capability a program.Host may implement
// to describe a global's initial value, consumed by Build's global-init
// pass. Hosts with no initializer information simply don't
// implement this interface; Build then treats every global as having no
// initializer (conservatively: reads before any write see an empty
// points-to set, same as any other never-written memory).
type GlobalInitializer interface {
	Initializer(g *ir.Node) (Init, bool)
}
