// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sdg

import "github.com/go-llir/dgslice/rd"

// computeSummaries installs a summary edge actual-in -> actual-out at a
// call site whenever a formal-in -> formal-out path exists through the
// callee, by tabulation: path edges (n, fo) mean "n reaches formal-out fo
// within the callee's context". The worklist is seeded with (fo, fo) for
// every formal-out; formal-in tails translate to actual-in nodes at every
// call site via the formal-to-actual mapping.
func (g *Graph) computeSummaries() {
	type pathEdge struct {
		tail *Node
		fo   *Node
	}

	var work []pathEdge
	seen := make(map[pathEdge]bool)
	// reached[tail] is every fo with a recorded path edge at tail, so a
	// late-installed summary edge can resume the propagation it enables.
	reached := make(map[*Node][]*Node)

	push := func(tail, fo *Node) {
		pe := pathEdge{tail, fo}
		if tail == nil || seen[pe] {
			return
		}
		seen[pe] = true
		reached[tail] = append(reached[tail], fo)
		work = append(work, pe)
	}

	for _, f := range g.Prog.Functions {
		for _, fo := range g.formalOut[f] {
			push(fo, fo)
		}
	}

	for len(work) > 0 {
		pe := work[len(work)-1]
		work = work[:len(work)-1]
		tail, fo := pe.tail, pe.fo

		switch tail.Kind {
		case ActualOut:
			// Do not descend into the callee again; only control
			// context and prior summaries continue the path.
			for _, e := range tail.in {
				if e.Kind == Control || e.Kind == Summary {
					push(e.From, fo)
				}
			}

		case FormalIn:
			// A full formal-in -> formal-out path: install the
			// summary at every call site binding this pair, then
			// resume any propagation waiting at the actual-out.
			for _, ai := range g.formalToActual[tail] {
				ao := g.actualFor(ai, fo)
				if ao == nil {
					continue
				}
				key := edgeKey{ai, ao, Summary, rd.DefSite{}}
				if !g.edges[key] {
					g.addEdge(ai, ao, Summary, rd.DefSite{})
					for _, fo2 := range reached[ao] {
						push(ai, fo2)
					}
				}
			}
			// The path may also continue upward inside the callee
			// (a formal-in can have local dependences too).
			for _, e := range tail.in {
				if e.Kind == Control || e.Kind == Data {
					push(e.From, fo)
				}
			}

		default:
			for _, e := range tail.in {
				if e.Kind == Control || e.Kind == Data || e.Kind == Summary {
					push(e.From, fo)
				}
			}
		}
	}
}

// actualFor finds, among the actual nodes at ai's call site, the
// actual-out bound to formal-out fo's slot.
func (g *Graph) actualFor(ai *Node, fo *Node) *Node {
	for _, ao := range g.actualOut[ai.Insn] {
		if keyOf(ao) == keyOf(fo) {
			return ao
		}
	}
	return nil
}
