// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package threads models the analyzed program's concurrency structure:
// fork/join execution regions, lock/unlock critical sections, and the
// interference edges between concurrent, aliasing memory operations. It
// adds nothing to the analyzer's own runtime behavior; all reasoning is
// static.
package threads

import (
	"fmt"
	"math/big"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
)

// A LockClass is a set of locks that may alias one another, identified by
// the allocation site (or global) the lock expression points at. Two lock
// operands share a class when both point at the same single object, or
// when neither has a known singleton target.
type LockClass struct {
	a        *LockClassAnalysis
	id       int
	obj      *ir.Node
	isUnique bool
}

// Analysis returns the analysis that owns this class.
func (lc *LockClass) Analysis() *LockClassAnalysis { return lc.a }

// Id returns lc's dense index within its analysis.
func (lc *LockClass) Id() int { return lc.id }

// IsUnique reports whether this class is known to contain exactly one
// runtime lock, so acquiring it while held is a self-deadlock rather than
// a lock of a sibling instance.
func (lc *LockClass) IsUnique() bool { return lc.isUnique }

func (lc *LockClass) String() string {
	if lc.obj != nil {
		return fmt.Sprintf("lock(%s)", lc.obj)
	}
	return fmt.Sprintf("lock#%d", lc.id)
}

// LockClassAnalysis interns lock classes by pointed-to object.
type LockClassAnalysis struct {
	classes []*LockClass
	byObj   map[*ir.Node]*LockClass
	unknown *LockClass
}

// Get returns the lock class of lock expression v: the class of its
// points-to target when that is a known singleton, otherwise the shared
// "unknown lock" class, which is a class of its own and shares no bit
// with any object's class.
func (a *LockClassAnalysis) Get(pg *pta.PointerGraph, v *ir.Node) *LockClass {
	if a.byObj == nil {
		a.byObj = make(map[*ir.Node]*LockClass)
	}
	pts := pg.PointsTo(v)
	if pts.IsKnownSingleton(pg.Prog) {
		var obj *ir.Node
		pts.Iterate(pg.Prog, func(p pta.Pointer) { obj = p.Target })
		if lc := a.byObj[obj]; lc != nil {
			return lc
		}
		lc := &LockClass{a: a, id: len(a.classes), obj: obj, isUnique: true}
		a.classes = append(a.classes, lc)
		a.byObj[obj] = lc
		return lc
	}
	if a.unknown == nil {
		a.unknown = &LockClass{a: a, id: len(a.classes)}
		a.classes = append(a.classes, a.unknown)
	}
	return a.unknown
}

// Lookup returns the class with the given id.
func (a *LockClassAnalysis) Lookup(id int) *LockClass { return a.classes[id] }

// NumClasses returns the number of interned classes.
func (a *LockClassAnalysis) NumClasses() int { return len(a.classes) }

// A LockSet is a set of lock classes, one bit per class id.
type LockSet struct {
	bits big.Int
}

// NewLockSet returns an empty lock set.
func NewLockSet() *LockSet { return &LockSet{} }

func (set *LockSet) clone() *LockSet {
	out := &LockSet{}
	out.bits.Set(&set.bits)
	return out
}

// Plus returns set with lc added. It does not modify set.
func (set *LockSet) Plus(lc *LockClass) *LockSet {
	if set.bits.Bit(lc.Id()) != 0 {
		return set
	}
	out := set.clone()
	out.bits.SetBit(&out.bits, lc.Id(), 1)
	return out
}

// Minus returns set with lc removed. It does not modify set.
func (set *LockSet) Minus(lc *LockClass) *LockSet {
	if set.bits.Bit(lc.Id()) == 0 {
		return set
	}
	out := set.clone()
	out.bits.SetBit(&out.bits, lc.Id(), 0)
	return out
}

// Union returns the union of set and o. It does not modify either.
func (set *LockSet) Union(o *LockSet) *LockSet {
	out := set.clone()
	out.bits.Or(&out.bits, &o.bits)
	return out
}

// Contains reports whether set holds lc.
func (set *LockSet) Contains(lc *LockClass) bool {
	return set.bits.Bit(lc.Id()) != 0
}

// ContainsAny reports whether set and o share any class.
func (set *LockSet) ContainsAny(o *LockSet) bool {
	var and big.Int
	and.And(&set.bits, &o.bits)
	return and.Sign() != 0
}

func (set *LockSet) String() string {
	return "0b" + set.bits.Text(2)
}
