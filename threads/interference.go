// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import (
	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/rd"
	"github.com/go-llir/dgslice/sdg"
)

// Interference is one write/read pair that may execute concurrently in
// different regions and touch the same bytes.
type Interference struct {
	Write, Read *ir.Node
	Site        rd.DefSite
}

// Interferences computes the interference pairs of the program: a write
// in region A and a read in region B interfere when the regions may run
// concurrently, the accesses may alias, and no common lock serializes
// them.
func (a *Analysis) Interferences(rw *rd.RWGraph) []Interference {
	type access struct {
		node  *ir.Node
		site  rd.DefSite
		write bool
	}
	var accesses []access
	for _, f := range a.Prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				rwn := rw.RWNodeFor(n)
				if rwn == nil {
					continue
				}
				for _, s := range rwn.Defs {
					accesses = append(accesses, access{n, s, true})
				}
				for _, s := range rwn.Overwrites {
					accesses = append(accesses, access{n, s, true})
				}
				for _, s := range rwn.Uses {
					accesses = append(accesses, access{n, s, false})
				}
			}
		}
	}

	var out []Interference
	for _, w := range accesses {
		if !w.write {
			continue
		}
		for _, r := range accesses {
			if r.write || w.node == r.node {
				continue
			}
			if !w.site.Overlaps(r.site) {
				continue
			}
			if !a.mayConflict(w.node, r.node) {
				continue
			}
			out = append(out, Interference{Write: w.node, Read: r.node, Site: w.site})
		}
	}
	return out
}

// mayConflict reports whether two nodes may execute concurrently with no
// common lock held.
func (a *Analysis) mayConflict(x, y *ir.Node) bool {
	concurrent := false
	for _, rx := range a.RegionsOf(x.Func) {
		for _, ry := range a.RegionsOf(y.Func) {
			if a.MayRunConcurrently(rx, ry) {
				concurrent = true
			}
		}
	}
	if !concurrent {
		return false
	}
	return !a.LocksHeldAt(x).ContainsAny(a.LocksHeldAt(y))
}

// AddInterferenceEdges installs the interference pairs into g, so slices
// over concurrent programs retain racing writers.
func (a *Analysis) AddInterferenceEdges(g *sdg.Graph, rw *rd.RWGraph) int {
	pairs := a.Interferences(rw)
	for _, p := range pairs {
		g.AddInterference(p.Write, p.Read, p.Site)
	}
	return len(pairs)
}
