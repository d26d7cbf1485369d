// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import "github.com/go-llir/dgslice/ir"

// memState is the flow-sensitive engine's per-program-point memory state:
// object -> points-to set. It is a persistent, copy-on-write linked chain
// of single-object updates: unchanged substates are shared between
// predecessor and successor program points until a write forces a fork.
// The chain compacts into a flat map once it grows past a small budget,
// so a block with many writes doesn't pay an O(n) Get for every later
// read.
type memState struct {
	parent *memState
	budget int

	// If flat is non-nil, parent/bind/val are unused.
	flat map[*ir.Node]PointsToSet

	bind *ir.Node
	val  PointsToSet
}

// newMemState returns the empty memory state (no object is bound; get
// returns nil for every object until it is first written).
func newMemState() *memState { return nil }

// get returns the points-to set bound to obj in vs, or nil if unbound.
func (vs *memState) get(obj *ir.Node) PointsToSet {
	for s := vs; s != nil; s = s.parent {
		if s.flat != nil {
			return s.flat[obj]
		}
		if s.bind == obj {
			return s.val
		}
	}
	return nil
}

// extend returns a new memState like vs but with obj bound to val. extend
// never mutates vs, so the caller's other references to vs (e.g. another
// successor of the same predecessor block) stay valid.
func (vs *memState) extend(obj *ir.Node, val PointsToSet) *memState {
	budget := 8
	if vs != nil {
		budget = vs.budget - 1
	}
	out := &memState{parent: vs, budget: budget, bind: obj, val: val}
	if budget <= 0 {
		out.flatten()
	}
	return out
}

// flatten collapses vs's chain into a single flat map in place, bounding
// the cost of future get calls; it does not change what get observes.
func (vs *memState) flatten() map[*ir.Node]PointsToSet {
	if vs == nil {
		return nil
	}
	if vs.flat != nil {
		return vs.flat
	}
	flat := make(map[*ir.Node]PointsToSet)
	for s := vs; s != nil; s = s.parent {
		if s.flat != nil {
			for k, v := range s.flat {
				if _, ok := flat[k]; !ok {
					flat[k] = v
				}
			}
			break
		}
		if _, ok := flat[s.bind]; !ok {
			flat[s.bind] = s.val
		}
	}
	vs.flat = flat
	vs.parent = nil
	vs.bind = nil
	vs.val = nil
	return flat
}

// join merges vs and other into a new state covering both, used at CFG
// merge points: each object's points-to set is the union of its value
// along every incoming state (an object unbound along one path and bound
// along another joins to the union with an empty set, i.e. just the bound
// side — per-path "never written here" doesn't kill the other path's
// value, since a real execution only followed one path).
func join(prog *ir.Program, mk func() PointsToSet, states []*memState) *memState {
	if len(states) == 0 {
		return nil
	}
	objs := map[*ir.Node]bool{}
	for _, s := range states {
		for o := range s.flatten() {
			objs[o] = true
		}
	}
	out := newMemState()
	for obj := range objs {
		merged := mk()
		for _, s := range states {
			if pts := s.get(obj); pts != nil {
				merged.UnionWith(prog, pts)
			}
		}
		out = out.extend(obj, merged)
	}
	return out
}
