// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package callgraph builds the whole-program call graph: function -> callee
// edges from direct calls plus the indirect call targets the points-to
// analysis resolved, with the reverse (callers) view derivable from the
// in-edge lists.
package callgraph

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
)

// Node is a function's position in the call graph.
type Node struct {
	Func *ir.Function

	// In and Out are the call edges into and out of this function, in
	// the order they were discovered (deterministic: functions and call
	// sites are walked in program order).
	In  []*Edge
	Out []*Edge
}

// Edge is one call site resolved to one callee.
type Edge struct {
	Caller *Node
	Site   *ir.Node // the CALL node
	Callee *Node
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s --(%s)--> %s", e.Caller.Func.Name, e.Site, e.Callee.Func.Name)
}

// Graph is the program's call graph. Root is the entry function's node, or
// nil if the entry was not found.
type Graph struct {
	Root  *Node
	Nodes map[*ir.Function]*Node
}

// New builds the call graph of prog using pg's (already Run) points-to
// results to resolve indirect call sites. entry names the root function.
func New(prog *ir.Program, pg *pta.PointerGraph, entry string) *Graph {
	g := &Graph{Nodes: make(map[*ir.Function]*Node)}
	byName := make(map[string]*ir.Function)
	for _, f := range prog.Functions {
		g.Nodes[f] = &Node{Func: f}
		byName[f.Name] = f
	}
	if f, ok := byName[entry]; ok {
		g.Root = g.Nodes[f]
	}

	resolve := func(target *ir.Node) *ir.Function {
		f, ok := byName[target.Name]
		if !ok || len(f.Blocks) == 0 {
			return nil
		}
		return f
	}

	for _, f := range prog.Functions {
		caller := g.Nodes[f]
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if n.Kind != ir.Call || len(n.Operands) == 0 {
					continue
				}
				callee := n.Operands[0]
				if callee.Kind == ir.FunctionVal {
					if cf := resolve(callee); cf != nil {
						g.addEdge(caller, n, cf)
					}
					continue
				}
				var targets []*ir.Function
				pg.PointsTo(callee).Iterate(prog, func(p pta.Pointer) {
					if p.Target.Kind != ir.FunctionVal {
						return
					}
					if cf := resolve(p.Target); cf != nil {
						targets = append(targets, cf)
					}
				})
				for _, cf := range targets {
					g.addEdge(caller, n, cf)
				}
			}
		}
	}
	return g
}

func (g *Graph) addEdge(caller *Node, site *ir.Node, callee *ir.Function) {
	cn := g.Nodes[callee]
	for _, e := range caller.Out {
		if e.Site == site && e.Callee == cn {
			return
		}
	}
	e := &Edge{Caller: caller, Site: site, Callee: cn}
	caller.Out = append(caller.Out, e)
	cn.In = append(cn.In, e)
}

// Callees returns the functions site may call, deduplicated, in discovery
// order.
func (g *Graph) Callees(site *ir.Node) []*ir.Function {
	caller := g.Nodes[site.Func]
	if caller == nil {
		return nil
	}
	var out []*ir.Function
	seen := make(map[*ir.Function]bool)
	for _, e := range caller.Out {
		if e.Site == site && !seen[e.Callee.Func] {
			seen[e.Callee.Func] = true
			out = append(out, e.Callee.Func)
		}
	}
	return out
}

// Callers returns every edge into f.
func (g *Graph) Callers(f *ir.Function) []*Edge {
	if n := g.Nodes[f]; n != nil {
		return n.In
	}
	return nil
}

// VisitEdges calls visit once per edge, callers in name order, so output
// is stable across runs.
func (g *Graph) VisitEdges(visit func(*Edge)) {
	fns := make([]*ir.Function, 0, len(g.Nodes))
	for f := range g.Nodes {
		fns = append(fns, f)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	for _, f := range fns {
		for _, e := range g.Nodes[f].Out {
			visit(e)
		}
	}
}

// WriteDot dumps the call graph in DOT form keyed by function names.
func (g *Graph) WriteDot(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "digraph callgraph {\n"); err != nil {
		return err
	}
	var err error
	g.VisitEdges(func(e *Edge) {
		if err == nil {
			_, err = fmt.Fprintf(w, "  %q -> %q;\n", e.Caller.Func.Name, e.Callee.Func.Name)
		}
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "}\n")
	return err
}
