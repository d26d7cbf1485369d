// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"github.com/go-llir/dgslice/callgraph"
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
)

// Region is one execution region: the main region rooted at the entry
// function, or a forked region beginning at the forked function's entry.
// Joins lists the JOIN nodes whose handle may correlate with this
// region's fork.
type Region struct {
	ID    int
	Entry *ir.Function
	Fork  *ir.Node // nil for the main region
	Joins []*ir.Node

	// funcs is every function this region may execute, via calls from
	// its entry.
	funcs map[*ir.Function]bool
}

// Executes reports whether the region may run code of f.
func (r *Region) Executes(f *ir.Function) bool { return r.funcs[f] }

// Analysis holds the program's region and critical-section structure.
type Analysis struct {
	Prog *ir.Program
	PTA  *pta.PointerGraph
	CG   *callgraph.Graph

	Regions []*Region
	Locks   *LockClassAnalysis

	// Sections is every lock/unlock critical section found.
	Sections []*CriticalSection

	opts Options

	// hb[i*len(Regions)+j] records that region i completes before
	// region j starts on every execution.
	hb []bool
}

// Options configures region construction.
type Options struct {
	// EntryFunction roots the main region; defaults to "main".
	EntryFunction string

	// LockFunctions and UnlockFunctions name the callee functions
	// recognized as lock acquire/release operations on their first
	// argument.
	LockFunctions   map[string]bool
	UnlockFunctions map[string]bool
}

func (o Options) entry() string {
	if o.EntryFunction == "" {
		return "main"
	}
	return o.EntryFunction
}

// BuildRegions partitions prog into execution regions: one for the entry
// function and one per FORK site, with JOINs correlated to forks by
// points-to on the thread-handle argument.
func BuildRegions(prog *ir.Program, pg *pta.PointerGraph, cg *callgraph.Graph, opts Options) *Analysis {
	a := &Analysis{Prog: prog, PTA: pg, CG: cg, Locks: &LockClassAnalysis{}, opts: opts}

	var mainFn *ir.Function
	for _, f := range prog.Functions {
		if f.Name == opts.entry() {
			mainFn = f
		}
	}
	if mainFn != nil {
		a.addRegion(mainFn, nil)
	}

	for _, f := range prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if n.Kind != ir.Fork || len(n.Operands) == 0 {
					continue
				}
				for _, entry := range a.forkTargets(n) {
					a.addRegion(entry, n)
				}
			}
		}
	}

	a.correlateJoins()
	a.findSections()
	a.computeHB()
	return a
}

func (a *Analysis) addRegion(entry *ir.Function, fork *ir.Node) *Region {
	r := &Region{ID: len(a.Regions), Entry: entry, Fork: fork, funcs: make(map[*ir.Function]bool)}
	a.Regions = append(a.Regions, r)

	// Close over calls, but do not cross another fork: the forked code
	// is its own region.
	work := []*ir.Function{entry}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		if r.funcs[f] {
			continue
		}
		r.funcs[f] = true
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if n.Kind != ir.Call {
					continue
				}
				work = append(work, a.CG.Callees(n)...)
			}
		}
	}
	return r
}

// forkTargets resolves a FORK's function operand like a call's callee.
func (a *Analysis) forkTargets(fork *ir.Node) []*ir.Function {
	byName := make(map[string]*ir.Function)
	for _, f := range a.Prog.Functions {
		byName[f.Name] = f
	}
	callee := fork.Operands[0]
	if callee.Kind == ir.FunctionVal {
		if f, ok := byName[callee.Name]; ok && len(f.Blocks) > 0 {
			return []*ir.Function{f}
		}
		return nil
	}
	var out []*ir.Function
	a.PTA.PointsTo(callee).Iterate(a.Prog, func(p pta.Pointer) {
		if p.Target.Kind != ir.FunctionVal {
			return
		}
		if f, ok := byName[p.Target.Name]; ok && len(f.Blocks) > 0 {
			out = append(out, f)
		}
	})
	return out
}

// correlateJoins attaches each JOIN to the forked regions whose handle it
// may name: the join's handle operand must alias the fork node. A join
// whose handle is unknown correlates with every forked region.
func (a *Analysis) correlateJoins() {
	for _, f := range a.Prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if n.Kind != ir.Join {
					continue
				}
				if len(n.Operands) == 0 {
					a.joinAll(n)
					continue
				}
				pts := a.PTA.PointsTo(n.Operands[0])
				if pts.HasUnknown(a.Prog) {
					a.joinAll(n)
					continue
				}
				matched := false
				pts.Iterate(a.Prog, func(p pta.Pointer) {
					for _, r := range a.Regions {
						if r.Fork == p.Target {
							r.Joins = append(r.Joins, n)
							matched = true
						}
					}
				})
				if !matched {
					a.joinAll(n)
				}
			}
		}
	}
}

func (a *Analysis) joinAll(join *ir.Node) {
	for _, r := range a.Regions {
		if r.Fork != nil {
			r.Joins = append(r.Joins, join)
		}
	}
}

// computeHB fills the region-level happens-before relation: a forked
// region starts after the code preceding its fork, and completes before
// the code following a correlated join. Region i happens-before region j
// when some join of i dominates j's fork within one function.
func (a *Analysis) computeHB() {
	n := len(a.Regions)
	a.hb = make([]bool, n*n)
	for _, ri := range a.Regions {
		for _, rj := range a.Regions {
			if ri == rj || rj.Fork == nil {
				continue
			}
			for _, join := range ri.Joins {
				if dominatesNode(join, rj.Fork) {
					a.hb[ri.ID*n+rj.ID] = true
				}
			}
		}
	}
}

// HappensBefore reports whether region i completes before region j starts
// on every execution.
func (a *Analysis) HappensBefore(i, j *Region) bool {
	return a.hb[i.ID*len(a.Regions)+j.ID]
}

// MayRunConcurrently reports whether code of regions i and j may execute
// at the same time: distinct regions with no ordering either way.
func (a *Analysis) MayRunConcurrently(i, j *Region) bool {
	if i == j {
		return false
	}
	return !a.HappensBefore(i, j) && !a.HappensBefore(j, i)
}

// RegionsOf returns the regions that may execute f.
func (a *Analysis) RegionsOf(f *ir.Function) []*Region {
	var out []*Region
	for _, r := range a.Regions {
		if r.Executes(f) {
			out = append(out, r)
		}
	}
	return out
}

// dominatesNode reports whether x's block dominates y's block within one
// function (with x before y inside a shared block).
func dominatesNode(x, y *ir.Node) bool {
	if x.Block == nil || y.Block == nil || x.Func != y.Func {
		return false
	}
	if x.Block == y.Block {
		for _, n := range x.Block.Nodes {
			if n == x {
				return true
			}
			if n == y {
				return false
			}
		}
		return false
	}
	f := x.Func
	idom := ir.IDom(f.CFG(), 0)
	b := y.Block.Index
	for b != -1 {
		if b == x.Block.Index {
			return true
		}
		b = idom[b]
	}
	return false
}
