// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rd implements reaching-definitions and on-demand memory-SSA over
// a pta.PointerGraph: for each memory read, which writes may have produced
// the value it observes. It offers a dense, classic iterative-dataflow
// algorithm and a sparse, dominance-frontier-based memory-SSA algorithm
// behind the same RWGraph/RWNode model.
package rd

import (
	"fmt"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// DefSite names a byte range of one heap object: the object identity
// (an ALLOC/DYN_ALLOC node, a global, or UnknownMemory) plus an
// [Offset, Offset+Length) range. Length of offset.Unknown means "the rest
// of the object, extent unknown" — every read/write through an unbounded
// Gep or Memcpy denotes one.
type DefSite struct {
	Object *ir.Node
	Offset offset.Offset
	Length offset.Offset
}

// Whole returns the DefSite covering all of obj, used for UNKNOWN_MEMORY
// and for field-insensitive mode.
func Whole(obj *ir.Node) DefSite {
	return DefSite{Object: obj, Offset: offset.Zero, Length: offset.Unknown}
}

// end returns d's exclusive end offset, or Unknown if either Offset or
// Length is Unknown.
func (d DefSite) end() offset.Offset {
	if d.Offset.IsUnknown() || d.Length.IsUnknown() {
		return offset.Unknown
	}
	return d.Offset.Add(d.Length)
}

// Overlaps reports whether d and e may denote the same byte of the same
// object. An Unknown length (or Unknown end) overlaps anything in the same
// object, conservatively.
func (d DefSite) Overlaps(e DefSite) bool {
	if d.Object != e.Object {
		return false
	}
	dEnd, eEnd := d.end(), e.end()
	if dEnd.IsUnknown() || eEnd.IsUnknown() {
		return true
	}
	return d.Offset < eEnd && e.Offset < dEnd
}

// FieldInsensitive returns d with its offset/length collapsed to "all of
// Object", for rd.Options.FieldInsensitive.
func (d DefSite) FieldInsensitive() DefSite { return Whole(d.Object) }

func (d DefSite) String() string {
	if d.Length.IsUnknown() {
		return fmt.Sprintf("%s+%s..?", d.Object, d.Offset)
	}
	return fmt.Sprintf("%s+%s..%s", d.Object, d.Offset, d.end())
}
