// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sdg

import (
	"golang.org/x/sync/errgroup"

	"github.com/go-llir/dgslice/callgraph"
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
	"github.com/go-llir/dgslice/rd"
)

// Graph is the system dependence graph over one program.
type Graph struct {
	Prog *ir.Program
	PTA  *pta.PointerGraph
	RD   *rd.RWGraph
	CG   *callgraph.Graph

	insns map[*ir.Node]*Node

	// Synthetic parameter nodes. Actual nodes are keyed by call site,
	// formal nodes by function; slot order is: fixed parameters by
	// index, then the return slot, then global slots in global order.
	actualIn  map[*ir.Node][]*Node
	actualOut map[*ir.Node][]*Node
	vararg    map[*ir.Node]*Node
	formalIn  map[*ir.Function][]*Node
	formalOut map[*ir.Function][]*Node

	// formalToActual maps each formal node to its bound actual nodes,
	// one per call site edge.
	formalToActual map[*Node][]*Node

	edges    map[edgeKey]bool
	allEdges []*Edge
}

type edgeKey struct {
	from, to *Node
	kind     EdgeKind
	site     rd.DefSite
}

// Build constructs the SDG: instruction nodes mirroring prog, per-function
// control and data dependences, then the interprocedural parameter
// scaffolding and summary edges. pg, rw, and cg must already be built and
// run.
func Build(prog *ir.Program, pg *pta.PointerGraph, rw *rd.RWGraph, cg *callgraph.Graph) *Graph {
	g := &Graph{
		Prog:           prog,
		PTA:            pg,
		RD:             rw,
		CG:             cg,
		insns:          make(map[*ir.Node]*Node),
		actualIn:       make(map[*ir.Node][]*Node),
		actualOut:      make(map[*ir.Node][]*Node),
		vararg:         make(map[*ir.Node]*Node),
		formalIn:       make(map[*ir.Function][]*Node),
		formalOut:      make(map[*ir.Function][]*Node),
		formalToActual: make(map[*Node][]*Node),
		edges:          make(map[edgeKey]bool),
	}

	for _, f := range prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				g.insns[n] = &Node{Kind: Instruction, Insn: n, Func: f}
			}
		}
	}
	for _, n := range pg.GlobalInitStores() {
		g.insns[n] = &Node{Kind: Instruction, Insn: n}
	}

	// Local PDGs are independent per function; build their edge lists
	// concurrently, then install sequentially in program order so the
	// adjacency lists come out deterministic.
	local := make([][]*Edge, len(prog.Functions))
	var eg errgroup.Group
	for i, f := range prog.Functions {
		i, f := i, f
		eg.Go(func() error {
			local[i] = g.buildPDG(f)
			return nil
		})
	}
	eg.Wait()
	for _, edges := range local {
		for _, e := range edges {
			g.install(e)
		}
	}

	g.buildInterprocedural()
	g.computeSummaries()
	return g
}

// NodeOf returns the SDG node mirroring instruction n, or nil.
func (g *Graph) NodeOf(n *ir.Node) *Node { return g.insns[n] }

// AddInterference records a concurrency interference dependence from a
// write to a read that may observe it, as computed by a thread-region
// analysis.
func (g *Graph) AddInterference(write, read *ir.Node, site rd.DefSite) {
	g.addEdge(g.insns[write], g.insns[read], Interference, site)
}

// Nodes calls visit for every node of the graph: instructions in program
// order, then parameter nodes in call-site and function order.
func (g *Graph) Nodes(visit func(*Node)) {
	for _, f := range g.Prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				visit(g.insns[n])
			}
		}
		for _, p := range g.formalIn[f] {
			visit(p)
		}
		for _, p := range g.formalOut[f] {
			visit(p)
		}
	}
	for _, n := range g.PTA.GlobalInitStores() {
		visit(g.insns[n])
	}
	for _, f := range g.Prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				for _, p := range g.actualIn[n] {
					visit(p)
				}
				for _, p := range g.actualOut[n] {
					visit(p)
				}
				if v := g.vararg[n]; v != nil {
					visit(v)
				}
			}
		}
	}
}

func (g *Graph) addEdge(from, to *Node, kind EdgeKind, site rd.DefSite) {
	g.install(&Edge{From: from, To: to, Kind: kind, Site: site})
}

func (g *Graph) install(e *Edge) {
	key := edgeKey{e.From, e.To, e.Kind, e.Site}
	if e.From == nil || e.To == nil || g.edges[key] {
		return
	}
	g.edges[key] = true
	e.From.out = append(e.From.out, e)
	e.To.in = append(e.To.in, e)
	g.allEdges = append(g.allEdges, e)
}

// buildPDG computes f's intraprocedural dependences as a local edge list:
// control dependences from the post-dominance frontiers, data dependences
// from reaching definitions, and def-use edges over instruction operands.
func (g *Graph) buildPDG(f *ir.Function) []*Edge {
	var edges []*Edge
	add := func(from, to *Node, kind EdgeKind, site rd.DefSite) {
		if from != nil && to != nil {
			edges = append(edges, &Edge{From: from, To: to, Kind: kind, Site: site})
		}
	}

	if len(f.Blocks) == 0 {
		return nil
	}

	// Control: B control-depends on A iff A is in B's post-dominance
	// frontier; the dependence source is A's terminator.
	pdf := ir.PostDomFrontier(f.CFG())
	for bi, frontier := range pdf {
		if bi >= len(f.Blocks) {
			continue // the synthesized unique exit
		}
		b := f.Blocks[bi]
		for _, ai := range frontier {
			if ai >= len(f.Blocks) {
				continue
			}
			a := f.Blocks[ai]
			if len(a.Nodes) == 0 {
				continue
			}
			term := g.insns[a.Nodes[len(a.Nodes)-1]]
			for _, n := range b.Nodes {
				add(term, g.insns[n], Control, rd.DefSite{})
			}
		}
	}

	for _, b := range f.Blocks {
		for _, n := range b.Nodes {
			to := g.insns[n]

			// SSA def-use over data operands.
			for _, op := range n.Operands {
				add(g.insns[op], to, Data, rd.DefSite{})
			}

			// Memory data dependences: every reaching definition
			// of each of n's reads, with phis expanded to the real
			// writes behind them.
			rwn := g.RD.RWNodeFor(n)
			if rwn == nil || len(rwn.Uses) == 0 {
				continue
			}
			for _, def := range g.expandPhis(g.RD.GetReachingDefinitions(n)) {
				site := rd.DefSite{}
				if len(def.Overwrites) > 0 {
					site = def.Overwrites[0]
				} else if len(def.Defs) > 0 {
					site = def.Defs[0]
				}
				// Label the edge with the writer's site on an object n reads.
				matched := false
				for _, s := range append(append([]rd.DefSite(nil), def.Overwrites...), def.Defs...) {
					for _, u := range rwn.Uses {
						if !matched && s.Object == u.Object {
							site, matched = s, true
						}
					}
				}
				add(g.insns[def.Node], to, Data, site)
			}
		}
	}
	return edges
}

// expandPhis resolves synthetic phi definitions to the concrete writes
// flowing into them, transitively.
func (g *Graph) expandPhis(defs []*rd.RWNode) []*rd.RWNode {
	var out []*rd.RWNode
	seen := make(map[*rd.RWNode]bool)
	var walk func(ns []*rd.RWNode)
	walk = func(ns []*rd.RWNode) {
		for _, d := range ns {
			if seen[d] {
				continue
			}
			seen[d] = true
			if d.IsPhi {
				walk(g.RD.Incoming(d))
			} else {
				out = append(out, d)
			}
		}
	}
	walk(defs)
	return out
}
