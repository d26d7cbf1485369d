// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import (
	"golang.org/x/xerrors"

	"github.com/go-llir/dgslice/ir"
)

// ErrIncomplete reports that the fixpoint hit Opts.MaxIterations before
// converging; never-processed values answer {UNKNOWN_MEMORY}.
var ErrIncomplete = xerrors.New("pta: analysis incomplete: iteration budget exceeded")

// Run drives the fixpoint selected by pg.Opts.AnalysisType until the
// points-to sets stabilize. It is idempotent:
// calling Run again after it has already converged is a no-op.
func (pg *PointerGraph) Run() {
	if pg.ran {
		return
	}
	pg.ran = true
	switch pg.Opts.AnalysisType {
	case FlowSensitive, FlowSensitiveWithInvalidation:
		pg.runFlowSensitive()
	default:
		pg.runAndersen()
	}
}

// Incomplete reports whether the fixpoint hit Opts.MaxIterations before
// converging.
func (pg *PointerGraph) Incomplete() bool { return pg.incomplete }

// Err returns nil after a converged Run, or ErrIncomplete.
func (pg *PointerGraph) Err() error {
	if pg.incomplete {
		return ErrIncomplete
	}
	return nil
}

// runAndersen is the flow-insensitive, whole-graph inclusion fixpoint:
// propagate over every node until no set changes.
func (pg *PointerGraph) runAndersen() {
	prog := pg.Prog

	changed := true
	for changed {
		pg.iterations++
		if pg.Opts.MaxIterations > 0 && pg.iterations > pg.Opts.MaxIterations {
			pg.incomplete = true
			break
		}
		changed = false
		for _, n := range pg.nodes {
			if pg.stepAndersen(prog, n) {
				changed = true
			}
		}
	}
}

// varSet returns (creating if needed) the working points-to set for n.
func (pg *PointerGraph) varSet(n *ir.Node) PointsToSet {
	s, ok := pg.varPts[n]
	if !ok {
		s = pg0set()
		pg.varPts[n] = s
	}
	return s
}

func (pg *PointerGraph) heapSet(p Pointer) PointsToSet {
	s, ok := pg.heapPts[p]
	if !ok {
		s = pg0set()
		pg.heapPts[p] = s
	}
	return s
}

// unionSingle merges a single Pointer into a node's working set.
func (pg *PointerGraph) unionSingle(n *ir.Node, p Pointer) bool {
	return pg.varSet(n).Add(p)
}

// stepAndersen applies one node's transfer function to the current
// working sets. It returns
// whether any working set changed.
func (pg *PointerGraph) stepAndersen(prog *ir.Program, n *ir.Node) bool {
	switch n.Kind {
	case ir.Alloc, ir.DynAlloc:
		return pg.unionSingle(n, Pointer{Target: n})

	case ir.NullAddr:
		return pg.unionSingle(n, Pointer{Target: prog.Null})

	case ir.UnknownMem:
		return pg.unionSingle(n, Pointer{Target: prog.UnknownMemory})

	case ir.FunctionVal:
		return pg.unionSingle(n, Pointer{Target: n})

	case ir.Cast:
		return pg.varSet(n).UnionWith(prog, pg.varSet(n.Operands[0]))

	case ir.Gep:
		return pg.stepGep(prog, n)

	case ir.Load:
		return pg.stepLoad(prog, n)

	case ir.Store:
		return pg.stepStore(prog, n)

	case ir.Phi:
		changed := false
		for _, op := range n.Operands {
			if pg.varSet(n).UnionWith(prog, pg.varSet(op)) {
				changed = true
			}
		}
		return changed

	case ir.Call:
		return pg.stepCall(prog, n)

	case ir.CallReturn:
		// CallReturn's points-to is populated by its paired Call's
		// step (stepCall writes directly into pg.varSet(callReturn)),
		// so CallReturn itself is a no-op node.
		return false

	case ir.Memcpy:
		return pg.stepMemcpy(prog, n)

	case ir.InvalidateObject, ir.Free:
		return pg.stepInvalidate(prog, n)

	case ir.Return, ir.Noop, ir.Constant:
		return false

	default:
		return false
	}
}

func (pg *PointerGraph) stepGep(prog *ir.Program, n *ir.Node) bool {
	base := pg.varSet(n.Operands[0])
	changed := false
	base.Iterate(prog, func(p Pointer) {
		newOff := pg.Opts.capOffset(p.Offset.Add(n.GepOffset))
		if pg.unionSingle(n, Pointer{Target: p.Target, Offset: newOff}) {
			changed = true
		}
	})
	if base.HasUnknown(prog) && pg.unionSingle(n, Pointer{Target: prog.UnknownMemory}) {
		changed = true
	}
	if base.HasNull(prog) {
		// GEP off of null stays null-ish: model conservatively as
		// unknown, since arithmetic on a null pointer has no
		// meaningful target.
		if pg.unionSingle(n, Pointer{Target: prog.UnknownMemory}) {
			changed = true
		}
	}
	return changed
}

func (pg *PointerGraph) stepLoad(prog *ir.Program, n *ir.Node) bool {
	ptr := pg.varSet(n.Operands[0])
	changed := false
	ptr.Iterate(prog, func(p Pointer) {
		if pg.varSet(n).UnionWith(prog, pg.heapSet(p)) {
			changed = true
		}
	})
	if ptr.HasUnknown(prog) {
		if pg.unionSingle(n, Pointer{Target: prog.UnknownMemory}) {
			changed = true
		}
	}
	if pg.varSet(n).UnionWith(prog, pg.unknownHeap) {
		changed = true
	}
	return changed
}

func (pg *PointerGraph) stepStore(prog *ir.Program, n *ir.Node) bool {
	ptr := pg.varSet(n.Operands[0])
	val := pg.varSet(n.Operands[1])
	changed := false
	ptr.Iterate(prog, func(p Pointer) {
		if pg.heapSet(p).UnionWith(prog, val) {
			changed = true
		}
	})
	if ptr.HasUnknown(prog) {
		if pg.unknownHeap.UnionWith(prog, val) {
			changed = true
		}
	}
	return changed
}

func (pg *PointerGraph) stepMemcpy(prog *ir.Program, n *ir.Node) bool {
	dst := pg.varSet(n.Operands[0])
	src := pg.varSet(n.Operands[1])
	changed := false
	// Best-effort: without a full interval-keyed heap, approximate a
	// bounded-length copy as an exact-offset alias (same offset in both
	// objects) and an unbounded/unknown-length copy as "everything src
	// holds may now be read through dst at any offset" by routing
	// through unknownHeap; both are conservative over-approximations of
	// the precise byte-range semantics.
	if n.MemcpyLen.IsUnknown() {
		src.Iterate(prog, func(sp Pointer) {
			if pg.unknownHeap.UnionWith(prog, pg.heapSet(sp)) {
				changed = true
			}
		})
		dst.Iterate(prog, func(dp Pointer) {
			if pg.heapSet(dp).UnionWith(prog, pg.unknownHeap) {
				changed = true
			}
		})
		return changed
	}
	dst.Iterate(prog, func(dp Pointer) {
		src.Iterate(prog, func(sp Pointer) {
			if sp.Offset == dp.Offset {
				if pg.heapSet(dp).UnionWith(prog, pg.heapSet(sp)) {
					changed = true
				}
			}
		})
	})
	return changed
}

// stepInvalidate implements the unsound-by-construction, flow-insensitive
// approximation of INVALIDATE_OBJECT/FREE handling: since a
// single flow-insensitive pass has no notion of "before" or "after" the
// free, it cannot soundly *remove* the freed target from every pointer
// that held it (a later read that reallocated the same address would
// wrongly look invalidated everywhere). Instead it *adds* Invalidated as a
// possible value everywhere the freed target appeared, which stays a sound
// over-approximation at the cost of precision. This only runs when
// Opts.InvalidateNodes is set.
func (pg *PointerGraph) stepInvalidate(prog *ir.Program, n *ir.Node) bool {
	if !pg.Opts.InvalidateNodes {
		return false
	}
	ptr := pg.varSet(n.Operands[0])
	changed := false
	var freed []*ir.Node
	ptr.Iterate(prog, func(p Pointer) { freed = append(freed, p.Target) })
	if len(freed) == 0 {
		return false
	}
	mark := func(s PointsToSet) {
		var hit bool
		s.Iterate(prog, func(p Pointer) {
			for _, t := range freed {
				if p.Target == t {
					hit = true
				}
			}
		})
		if hit && s.Add(Pointer{Target: prog.Invalidated}) {
			changed = true
		}
	}
	for _, s := range pg.varPts {
		mark(s)
	}
	for _, s := range pg.heapPts {
		mark(s)
	}
	return changed
}
