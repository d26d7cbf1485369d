// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import (
	"fmt"
	"sort"

	"golang.org/x/tools/container/intsets"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// PointsToSet is a set of Pointers with semantic predicates (hasNull,
// hasUnknown, hasInvalidated, empty, isSingleton, isKnownSingleton),
// behind a common interface so the three representations (bitvector,
// small vector, offset-separated map) are interchangeable.
//
// Iterate yields valid, non-invalidated pointers only (neither Null,
// UnknownMemory nor Invalidated); callers that care about
// null/unknown/invalidated call the dedicated predicates instead.
type PointsToSet interface {
	// Add inserts p, reporting whether the set changed.
	Add(p Pointer) bool
	// Contains reports whether p is a member.
	Contains(p Pointer) bool
	// UnionWith merges other's members into the receiver, reporting
	// whether the receiver changed.
	UnionWith(prog *ir.Program, other PointsToSet) bool
	// Iterate calls f once for every valid (non-null, non-unknown,
	// non-invalidated) member, in an undefined but
	// deterministic-for-equal-sets order.
	Iterate(prog *ir.Program, f func(Pointer))
	// Len returns the number of members, including sentinels.
	Len() int
	Empty() bool
	HasNull(prog *ir.Program) bool
	HasUnknown(prog *ir.Program) bool
	HasInvalidated(prog *ir.Program) bool
	// IsSingleton reports whether the set has exactly one member (which
	// may be a sentinel).
	IsSingleton() bool
	// IsKnownSingleton reports whether the set is a singleton whose
	// member is a valid, non-invalidated target.
	IsKnownSingleton(prog *ir.Program) bool
	Clone() PointsToSet
	String(prog *ir.Program) string
}

// --- bitvectorSet: the default dense/ID-indexed representation --------

// bitvectorSet is backed by golang.org/x/tools/container/intsets.Sparse,
// the same sparse-bitset package go/pointer's Andersen-style PTA uses for
// its own points-to sets. Membership is tracked by Interner-assigned
// dense ids.
type bitvectorSet struct {
	in   *Interner
	bits intsets.Sparse
}

// NewBitvectorSet returns an empty bitvectorSet sharing in with every
// other PointsToSet in the same analysis.
func NewBitvectorSet(in *Interner) PointsToSet {
	return &bitvectorSet{in: in}
}

func (s *bitvectorSet) Add(p Pointer) bool {
	return s.bits.Insert(s.in.ID(p))
}

func (s *bitvectorSet) Contains(p Pointer) bool {
	id, ok := s.in.ids[p]
	return ok && s.bits.Has(id)
}

func (s *bitvectorSet) UnionWith(prog *ir.Program, other PointsToSet) bool {
	changed := false
	other.Iterate(prog, func(p Pointer) {
		if s.Add(p) {
			changed = true
		}
	})
	if other.HasNull(prog) && s.Add(Pointer{Target: prog.Null}) {
		changed = true
	}
	if other.HasUnknown(prog) && s.Add(Pointer{Target: prog.UnknownMemory}) {
		changed = true
	}
	if other.HasInvalidated(prog) && s.Add(Pointer{Target: prog.Invalidated}) {
		changed = true
	}
	return changed
}

func (s *bitvectorSet) Iterate(prog *ir.Program, f func(Pointer)) {
	ids := s.bits.AppendTo(nil)
	sort.Ints(ids) // canonical order; queries must be deterministic
	for _, id := range ids {
		p := s.in.Pointer(id)
		if p.IsValid(prog) && !p.IsInvalidated(prog) {
			f(p)
		}
	}
}

func (s *bitvectorSet) Len() int    { return s.bits.Len() }
func (s *bitvectorSet) Empty() bool { return s.bits.IsEmpty() }

func (s *bitvectorSet) HasNull(prog *ir.Program) bool {
	return s.Contains(Pointer{Target: prog.Null})
}
func (s *bitvectorSet) HasUnknown(prog *ir.Program) bool {
	return s.Contains(Pointer{Target: prog.UnknownMemory})
}
func (s *bitvectorSet) HasInvalidated(prog *ir.Program) bool {
	return s.Contains(Pointer{Target: prog.Invalidated})
}

func (s *bitvectorSet) IsSingleton() bool { return s.bits.Len() == 1 }

func (s *bitvectorSet) IsKnownSingleton(prog *ir.Program) bool {
	if !s.IsSingleton() {
		return false
	}
	id := s.bits.Min()
	p := s.in.Pointer(id)
	return p.IsValid(prog) && !p.IsInvalidated(prog)
}

func (s *bitvectorSet) Clone() PointsToSet {
	out := &bitvectorSet{in: s.in}
	out.bits.Copy(&s.bits)
	return out
}

func (s *bitvectorSet) String(prog *ir.Program) string {
	return genericString(prog, s)
}

// --- smallVectorSet: inline slice for near-singleton sets --------------

// smallVectorSet is a short inline slice; membership is a linear scan,
// which is cheap for the common case of a pointer with one or two
// possible targets.
type smallVectorSet struct {
	ptrs []Pointer
}

// NewSmallVectorSet returns an empty smallVectorSet.
func NewSmallVectorSet() PointsToSet {
	return &smallVectorSet{}
}

func (s *smallVectorSet) indexOf(p Pointer) int {
	for i, q := range s.ptrs {
		if q == p {
			return i
		}
	}
	return -1
}

func (s *smallVectorSet) Add(p Pointer) bool {
	if s.indexOf(p) >= 0 {
		return false
	}
	s.ptrs = append(s.ptrs, p)
	return true
}

func (s *smallVectorSet) Contains(p Pointer) bool { return s.indexOf(p) >= 0 }

func (s *smallVectorSet) UnionWith(prog *ir.Program, other PointsToSet) bool {
	changed := false
	other.Iterate(prog, func(p Pointer) {
		if s.Add(p) {
			changed = true
		}
	})
	if other.HasNull(prog) && s.Add(Pointer{Target: prog.Null}) {
		changed = true
	}
	if other.HasUnknown(prog) && s.Add(Pointer{Target: prog.UnknownMemory}) {
		changed = true
	}
	if other.HasInvalidated(prog) && s.Add(Pointer{Target: prog.Invalidated}) {
		changed = true
	}
	return changed
}

func (s *smallVectorSet) Iterate(prog *ir.Program, f func(Pointer)) {
	ptrs := append([]Pointer(nil), s.ptrs...)
	sort.Slice(ptrs, func(i, j int) bool { return ptrLess(ptrs[i], ptrs[j]) })
	for _, p := range ptrs {
		if p.IsValid(prog) && !p.IsInvalidated(prog) {
			f(p)
		}
	}
}

func (s *smallVectorSet) Len() int    { return len(s.ptrs) }
func (s *smallVectorSet) Empty() bool { return len(s.ptrs) == 0 }

func (s *smallVectorSet) HasNull(prog *ir.Program) bool {
	return s.Contains(Pointer{Target: prog.Null})
}
func (s *smallVectorSet) HasUnknown(prog *ir.Program) bool {
	return s.Contains(Pointer{Target: prog.UnknownMemory})
}
func (s *smallVectorSet) HasInvalidated(prog *ir.Program) bool {
	return s.Contains(Pointer{Target: prog.Invalidated})
}

func (s *smallVectorSet) IsSingleton() bool { return len(s.ptrs) == 1 }

func (s *smallVectorSet) IsKnownSingleton(prog *ir.Program) bool {
	return len(s.ptrs) == 1 && s.ptrs[0].IsValid(prog) && !s.ptrs[0].IsInvalidated(prog)
}

func (s *smallVectorSet) Clone() PointsToSet {
	return &smallVectorSet{ptrs: append([]Pointer(nil), s.ptrs...)}
}

func (s *smallVectorSet) String(prog *ir.Program) string {
	return genericString(prog, s)
}

// --- offsetMap: offset-separated map for the field-sensitive engine ----

// offsetMap groups targets by offset, used by the field-sensitive
// flow-sensitive engine where most queries ask "what may this offset of
// this pointer alias" rather than "iterate everything".
type offsetMap struct {
	byOffset map[offset.Offset][]*ir.Node
}

// NewOffsetMap returns an empty offsetMap-backed PointsToSet.
func NewOffsetMap() PointsToSet {
	return &offsetMap{byOffset: make(map[offset.Offset][]*ir.Node)}
}

func (s *offsetMap) has(off offset.Offset, t *ir.Node) bool {
	for _, x := range s.byOffset[off] {
		if x == t {
			return true
		}
	}
	return false
}

// Sentinels (Null, UnknownMemory, Invalidated) are stored like any other
// target, keyed at offset.Zero, exactly as bitvectorSet treats them
// uniformly via the Interner; HasNull/HasUnknown/HasInvalidated are then
// just Contains at a sentinel target.

func (s *offsetMap) Add(p Pointer) bool {
	if p.Target == nil {
		return false
	}
	return s.addRaw(p)
}

func (s *offsetMap) addRaw(p Pointer) bool {
	if s.has(p.Offset, p.Target) {
		return false
	}
	s.byOffset[p.Offset] = append(s.byOffset[p.Offset], p.Target)
	return true
}

func (s *offsetMap) Contains(p Pointer) bool { return s.has(p.Offset, p.Target) }

func (s *offsetMap) UnionWith(prog *ir.Program, other PointsToSet) bool {
	changed := false
	other.Iterate(prog, func(p Pointer) {
		if s.addRaw(p) {
			changed = true
		}
	})
	if other.HasNull(prog) && s.addRaw(Pointer{Target: prog.Null}) {
		changed = true
	}
	if other.HasUnknown(prog) && s.addRaw(Pointer{Target: prog.UnknownMemory}) {
		changed = true
	}
	if other.HasInvalidated(prog) && s.addRaw(Pointer{Target: prog.Invalidated}) {
		changed = true
	}
	return changed
}

func (s *offsetMap) Iterate(prog *ir.Program, f func(Pointer)) {
	offs := make([]offset.Offset, 0, len(s.byOffset))
	for off := range s.byOffset {
		offs = append(offs, off)
	}
	sort.Slice(offs, func(i, j int) bool { return offs[i] < offs[j] })
	for _, off := range offs {
		targets := append([]*ir.Node(nil), s.byOffset[off]...)
		sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
		for _, t := range targets {
			p := Pointer{Target: t, Offset: off}
			if p.IsValid(prog) && !p.IsInvalidated(prog) {
				f(p)
			}
		}
	}
}

func (s *offsetMap) Len() int {
	n := 0
	for _, ts := range s.byOffset {
		n += len(ts)
	}
	return n
}

func (s *offsetMap) Empty() bool { return s.Len() == 0 }

func (s *offsetMap) HasNull(prog *ir.Program) bool {
	return s.has(offset.Zero, prog.Null)
}
func (s *offsetMap) HasUnknown(prog *ir.Program) bool {
	return s.has(offset.Zero, prog.UnknownMemory)
}
func (s *offsetMap) HasInvalidated(prog *ir.Program) bool {
	return s.has(offset.Zero, prog.Invalidated)
}

func (s *offsetMap) IsSingleton() bool { return s.Len() == 1 }

func (s *offsetMap) IsKnownSingleton(prog *ir.Program) bool {
	if !s.IsSingleton() {
		return false
	}
	for off, ts := range s.byOffset {
		p := Pointer{Target: ts[0], Offset: off}
		return p.IsValid(prog) && !p.IsInvalidated(prog)
	}
	return false
}

func (s *offsetMap) Clone() PointsToSet {
	out := &offsetMap{byOffset: make(map[offset.Offset][]*ir.Node, len(s.byOffset))}
	for k, v := range s.byOffset {
		out.byOffset[k] = append([]*ir.Node(nil), v...)
	}
	return out
}

func (s *offsetMap) String(prog *ir.Program) string {
	return genericString(prog, s)
}

// --- shared helpers ------------------------------------------------------

func ptrLess(a, b Pointer) bool {
	if a.Target.ID != b.Target.ID {
		return a.Target.ID < b.Target.ID
	}
	return a.Offset < b.Offset
}

func genericString(prog *ir.Program, s PointsToSet) string {
	out := "{"
	first := true
	add := func(s2 string) {
		if !first {
			out += ", "
		}
		first = false
		out += s2
	}
	if s.HasNull(prog) {
		add("null")
	}
	if s.HasUnknown(prog) {
		add("unknown")
	}
	if s.HasInvalidated(prog) {
		add("invalidated")
	}
	s.Iterate(prog, func(p Pointer) { add(fmt.Sprintf("%s", p)) })
	return out + "}"
}
