// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import (
	"testing"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// newPointsToSets returns one instance of every PointsToSet representation,
// so tests exercise all three behind the same assertions.
func newPointsToSets() map[string]PointsToSet {
	return map[string]PointsToSet{
		"bitvector": NewBitvectorSet(NewInterner()),
		"small":     NewSmallVectorSet(),
		"offsetMap": NewOffsetMap(),
	}
}

func TestPointsToSetAddContains(t *testing.T) {
	prog := ir.NewProgram()
	a := prog.NewGlobal(ir.Alloc, "a")
	b := prog.NewGlobal(ir.Alloc, "b")

	for name, s := range newPointsToSets() {
		t.Run(name, func(t *testing.T) {
			if s.Contains(Pointer{Target: a}) {
				t.Fatalf("empty set contains a")
			}
			if !s.Add(Pointer{Target: a}) {
				t.Fatalf("first Add(a) should report changed")
			}
			if s.Add(Pointer{Target: a}) {
				t.Fatalf("second Add(a) should report unchanged")
			}
			if !s.Contains(Pointer{Target: a}) {
				t.Fatalf("set should contain a after Add")
			}
			if s.Contains(Pointer{Target: b}) {
				t.Fatalf("set should not contain b")
			}
			if s.Len() != 1 {
				t.Fatalf("Len() = %d, want 1", s.Len())
			}
		})
	}
}

func TestPointsToSetSentinels(t *testing.T) {
	prog := ir.NewProgram()

	for name, s := range newPointsToSets() {
		t.Run(name, func(t *testing.T) {
			s.Add(Pointer{Target: prog.Null})
			s.Add(Pointer{Target: prog.UnknownMemory})
			s.Add(Pointer{Target: prog.Invalidated})

			if !s.HasNull(prog) || !s.HasUnknown(prog) || !s.HasInvalidated(prog) {
				t.Fatalf("sentinel predicates should all be true")
			}
			n := 0
			s.Iterate(prog, func(Pointer) { n++ })
			if n != 0 {
				t.Fatalf("Iterate should skip sentinels, visited %d", n)
			}
		})
	}
}

func TestPointsToSetIsKnownSingleton(t *testing.T) {
	prog := ir.NewProgram()
	a := prog.NewGlobal(ir.Alloc, "a")

	for name, s := range newPointsToSets() {
		t.Run(name, func(t *testing.T) {
			if s.IsKnownSingleton(prog) {
				t.Fatalf("empty set should not be a known singleton")
			}
			s.Add(Pointer{Target: a})
			if !s.IsSingleton() || !s.IsKnownSingleton(prog) {
				t.Fatalf("{a} should be a known singleton")
			}
			s.Add(Pointer{Target: prog.UnknownMemory})
			if s.IsKnownSingleton(prog) {
				t.Fatalf("{a, unknown} should not be a known singleton")
			}
		})
	}
}

func TestPointsToSetUnionWith(t *testing.T) {
	prog := ir.NewProgram()
	a := prog.NewGlobal(ir.Alloc, "a")
	b := prog.NewGlobal(ir.Alloc, "b")

	for name, mk := range map[string]func() PointsToSet{
		"bitvector": func() PointsToSet { return NewBitvectorSet(NewInterner()) },
		"small":     NewSmallVectorSet,
		"offsetMap": NewOffsetMap,
	} {
		t.Run(name, func(t *testing.T) {
			s1 := mk()
			s1.Add(Pointer{Target: a})
			s2 := mk()
			s2.Add(Pointer{Target: b, Offset: offset.Offset(4)})

			if !s1.UnionWith(prog, s2) {
				t.Fatalf("UnionWith should report changed")
			}
			if !s1.Contains(Pointer{Target: b, Offset: offset.Offset(4)}) {
				t.Fatalf("s1 should contain b@4 after union")
			}
			if s1.UnionWith(prog, s2) {
				t.Fatalf("repeated UnionWith should report unchanged")
			}
		})
	}
}

func TestPointsToSetClone(t *testing.T) {
	prog := ir.NewProgram()
	a := prog.NewGlobal(ir.Alloc, "a")

	for name, s := range newPointsToSets() {
		t.Run(name, func(t *testing.T) {
			s.Add(Pointer{Target: a})
			c := s.Clone()
			c.Add(Pointer{Target: prog.Null})
			if s.HasNull(prog) {
				t.Fatalf("mutating the clone should not affect the original")
			}
			if !c.Contains(Pointer{Target: a}) {
				t.Fatalf("clone should carry over original members")
			}
		})
	}
}
