// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// PointerGraph is the points-to subgraph Build materializes: one function
// subgraph per ir.Function (filtered to the pointer-relevant instructions)
// plus the program's globals. Run drives the fixpoint
// selected by Options.AnalysisType; PointsTo/HasPointsTo answer queries
// against the result.
type PointerGraph struct {
	Prog     *ir.Program
	Opts     Options
	Interner *Interner

	// nodes is every pointer-relevant node in the program, func-major,
	// CFG order within a function; it is the iteration domain for the
	// flow-insensitive fixpoint and the build domain for the
	// flow-sensitive one.
	nodes []*ir.Node

	// globalStores holds the synthetic STORE nodes Build emits for
	// global initializers; they are owned by the PointerGraph, not by
	// any ir.Function.
	globalStores []*ir.Node

	// callNodes is every Kind.Call node in nodes, used by the fixpoint
	// to re-walk call sites as indirect targets are discovered.
	callNodes []*ir.Node

	varPts  map[*ir.Node]PointsToSet
	heapPts map[Pointer]PointsToSet
	// unknownHeap accumulates values ever stored through an
	// UnknownMemory-tainted pointer; every Load conservatively unions
	// it in.
	unknownHeap PointsToSet

	// calleesResolved tracks, for each Call node, the set of Function
	// nodes so far bound as possible callees (direct + PTA-resolved
	// indirect), so the fixpoint only rebinds formals when this set
	// grows.
	calleesResolved map[*ir.Node]map[*ir.Node]bool

	incomplete bool
	iterations int

	ran bool

	// funcByNode/funcByName memoize stepCall's FUNCTION-node-to-ir.Function
	// resolution; built lazily on the first lookupFunction call.
	funcByNode map[*ir.Node]*ir.Function
	funcByName map[string]*ir.Function

	// blockIn/blockOut hold the flow-sensitive engine's per-block memory
	// states; unused by runAndersen.
	blockIn  map[*ir.BasicBlock]*memState
	blockOut map[*ir.BasicBlock]*memState
}

// Build materializes a PointerGraph over prog per opts. It does not run
// the fixpoint; call Run for that.
func Build(prog *ir.Program, opts Options) *PointerGraph {
	pg := &PointerGraph{
		Prog:            prog,
		Opts:            opts,
		Interner:        NewInterner(),
		varPts:          make(map[*ir.Node]PointsToSet),
		heapPts:         make(map[Pointer]PointsToSet),
		unknownHeap:     pg0set(),
		calleesResolved: make(map[*ir.Node]map[*ir.Node]bool),
		funcByName:      make(map[string]*ir.Function),
	}

	for _, f := range prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if !n.Kind.IsMemOp() {
					continue
				}
				pg.nodes = append(pg.nodes, n)
				if n.Kind == ir.Call {
					pg.callNodes = append(pg.callNodes, n)
				}
			}
		}
	}
	for _, g := range prog.Globals {
		if g.Kind.IsMemOp() {
			pg.nodes = append(pg.nodes, g)
		}
	}

	pg.buildGlobalInits(prog)

	if opts.PreprocessGeps {
		pg.preprocessGeps()
	}

	return pg
}

func pg0set() PointsToSet { return NewSmallVectorSet() }

// GlobalInitStores returns the synthetic STORE nodes Build emitted for
// global initializers. They have no owning ir.Function or ir.BasicBlock;
// callers that seed a per-function analysis with program-wide initial
// state (e.g. package rd) read their Defs from here directly.
func (pg *PointerGraph) GlobalInitStores() []*ir.Node { return pg.globalStores }

// buildGlobalInits emits one synthetic STORE per pointer-valued
// initializer element, for every global whose Init tree Opts.Host (if
// set) supplies.
func (pg *PointerGraph) buildGlobalInits(prog *ir.Program) {
	host, _ := pg.Opts.hostInit()
	if host == nil {
		return
	}
	for _, g := range prog.Globals {
		init, ok := host.Initializer(g)
		if !ok {
			continue
		}
		pg.emitInit(prog, g, offset.Zero, init)
	}
}

func (pg *PointerGraph) emitInit(prog *ir.Program, g *ir.Node, base offset.Offset, init Init) {
	switch init.Kind {
	case InitZero:
		// Zero-initialized: no pointer value stored; nothing to emit.
	case InitUndef:
		unk := prog.NewNode(nil, ir.UnknownMem)
		pg.nodes = append(pg.nodes, unk)
		store := pg.synthStore(prog, g, base, unk)
		pg.globalStores = append(pg.globalStores, store)
	case InitPointer:
		store := pg.synthStore(prog, g, base, init.Pointee)
		pg.globalStores = append(pg.globalStores, store)
	case InitFunction:
		store := pg.synthStore(prog, g, base, init.Function)
		pg.globalStores = append(pg.globalStores, store)
	case InitAggregate:
		for i, elem := range init.Elements {
			off := base
			if i < len(init.ElementOffsets) {
				off = init.ElementOffsets[i]
			}
			pg.emitInit(prog, g, off, elem)
		}
	}
}

// synthStore allocates a synthetic GEP node addressing g+base and a
// synthetic STORE node with that GEP as its address operand and the given
// pointee/function node as its value operand, and registers both as nodes
// the fixpoint will process.
func (pg *PointerGraph) synthStore(prog *ir.Program, g *ir.Node, base offset.Offset, val *ir.Node) *ir.Node {
	addr := prog.NewNode(nil, ir.Gep)
	addr.Operands = []*ir.Node{g}
	addr.GepOffset = base
	store := prog.NewNode(nil, ir.Store)
	store.Operands = []*ir.Node{addr, val}
	pg.nodes = append(pg.nodes, addr, store)
	return store
}

// preprocessGeps eagerly collapses GEP offsets that are already known to
// saturate to Unknown under opts.FieldSensitivity: this purely reduces
// fixpoint iterations and never
// changes the final result.
func (pg *PointerGraph) preprocessGeps() {
	for _, n := range pg.nodes {
		if n.Kind == ir.Gep {
			n.GepOffset = pg.Opts.capOffset(n.GepOffset)
		}
	}
}
