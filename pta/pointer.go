// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pta implements whole-program points-to analysis over an ir.Program:
// an Andersen-style flow-insensitive fixpoint and a copy-on-write
// flow-sensitive fixpoint, behind a common PointsToSet abstraction with
// interchangeable representations.
package pta

import (
	"fmt"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// Pointer is a pair (target, offset). target is either an
// ALLOC/DYN_ALLOC node (an allocation site) or one of the program's three
// sentinels (Null, UnknownMemory, Invalidated).
type Pointer struct {
	Target *ir.Node
	Offset offset.Offset
}

// IsValid reports whether p is neither null nor unknown. Note that an
// Invalidated pointer is still "valid" under this narrow definition; callers
// that care about use-after-free check IsInvalidated separately.
func (p Pointer) IsValid(prog *ir.Program) bool {
	return p.Target != prog.Null && p.Target != prog.UnknownMemory
}

func (p Pointer) IsNull(prog *ir.Program) bool        { return p.Target == prog.Null }
func (p Pointer) IsUnknown(prog *ir.Program) bool     { return p.Target == prog.UnknownMemory }
func (p Pointer) IsInvalidated(prog *ir.Program) bool { return p.Target == prog.Invalidated }

func (p Pointer) String() string {
	return fmt.Sprintf("(%s, %s)", p.Target, p.Offset)
}

// Equal reports whether p and q name the same target and offset.
func (p Pointer) Equal(q Pointer) bool {
	return p.Target == q.Target && p.Offset == q.Offset
}
