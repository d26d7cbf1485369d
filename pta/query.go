// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import "github.com/go-llir/dgslice/ir"

// PointsTo returns n's points-to set. Every node the fixpoint never
// touched (dead code, or a node outside pg's IsMemOp domain) still gets an
// answer: a singleton set containing UNKNOWN_MEMORY, never an empty "no
// information" set. Callers that must distinguish never-analyzed values
// use HasPointsTo.
func (pg *PointerGraph) PointsTo(n *ir.Node) PointsToSet {
	switch pg.Opts.AnalysisType {
	case FlowSensitive, FlowSensitiveWithInvalidation:
		return pg.pointsToFlowSensitive(n)
	default:
		if s, ok := pg.varPts[n]; ok && !s.Empty() {
			return s
		}
		return pg.unknownSingleton()
	}
}

// pointsToFlowSensitive answers PointsTo for the flow-sensitive engines by
// looking up n's defining block's out-state; n must be the node that
// defines its own value (every Kind handled by stepBlockFlowSensitive sets
// n as its own key).
func (pg *PointerGraph) pointsToFlowSensitive(n *ir.Node) PointsToSet {
	b := n.Block
	if b == nil {
		return pg.unknownSingleton()
	}
	out, ok := pg.blockOut[b]
	if !ok {
		return pg.unknownSingleton()
	}
	if s := out.get(n); s != nil && !s.Empty() {
		return s
	}
	return pg.unknownSingleton()
}

func (pg *PointerGraph) unknownSingleton() PointsToSet {
	s := pg0set()
	s.Add(Pointer{Target: pg.Prog.UnknownMemory})
	return s
}

// HasPointsTo reports whether n has ever had a points-to fact recorded
// for it, i.e. whether n was ever a live node in this PointerGraph's
// domain. It does not run the fixpoint; call Run first.
func (pg *PointerGraph) HasPointsTo(n *ir.Node) bool {
	switch pg.Opts.AnalysisType {
	case FlowSensitive, FlowSensitiveWithInvalidation:
		b := n.Block
		if b == nil {
			return false
		}
		out, ok := pg.blockOut[b]
		return ok && out.get(n) != nil
	default:
		_, ok := pg.varPts[n]
		return ok
	}
}

// Heap returns the heap object identified by p's target-at-offset pair's
// points-to set, for the flow-insensitive engine only; it is the
// query form of stepLoad/stepStore's heapPts map.
func (pg *PointerGraph) Heap(p Pointer) PointsToSet {
	if s, ok := pg.heapPts[p]; ok && !s.Empty() {
		return s
	}
	return pg.unknownSingleton()
}
