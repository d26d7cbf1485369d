// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/k0kubun/pp"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
)

// Stats accumulates the analysis counters the driver reports: how much
// work each fixpoint did and how precise the points-to results came out.
type Stats struct {
	Functions       int
	ProcessedBlocks int
	ProcessedNodes  int
	Iterations      int

	PointsToQueries int
	PointsToTotal   int // sum of set sizes, for the average
	PointsToMax     int
	Incomplete      bool
}

// CountProgram fills the program-shape counters.
func (s *Stats) CountProgram(prog *ir.Program) {
	s.Functions = len(prog.Functions)
	for _, f := range prog.Functions {
		s.ProcessedBlocks += len(f.Blocks)
		for _, b := range f.Blocks {
			s.ProcessedNodes += len(b.Nodes)
		}
	}
}

// CountPointsTo samples every node's points-to set size.
func (s *Stats) CountPointsTo(prog *ir.Program, pg *pta.PointerGraph) {
	s.Incomplete = pg.Incomplete()
	for _, f := range prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if !pg.HasPointsTo(n) {
					continue
				}
				size := pg.PointsTo(n).Len()
				s.PointsToQueries++
				s.PointsToTotal += size
				if size > s.PointsToMax {
					s.PointsToMax = size
				}
			}
		}
	}
}

// Report writes a line-oriented summary to w.
func (s *Stats) Report(w io.Writer) {
	fmt.Fprintf(w, "functions: %d\n", s.Functions)
	fmt.Fprintf(w, "blocks processed: %d\n", s.ProcessedBlocks)
	fmt.Fprintf(w, "nodes processed: %d\n", s.ProcessedNodes)
	fmt.Fprintf(w, "fixpoint iterations: %d\n", s.Iterations)
	if s.PointsToQueries > 0 {
		fmt.Fprintf(w, "points-to sets: %d (avg size %.2f, max %d)\n",
			s.PointsToQueries, float64(s.PointsToTotal)/float64(s.PointsToQueries), s.PointsToMax)
	}
	if s.Incomplete {
		fmt.Fprintf(w, "analysis incomplete: iteration budget exceeded\n")
	}
}

// PrettyReport writes a colorized dump of the counters to w.
func (s *Stats) PrettyReport(w io.Writer) {
	pp.Fprintln(w, s)
}

// DumpGraph writes a deep structure dump of v to w, for debugging
// analysis internals (points-to sets, definitions maps, edge sets).
func DumpGraph(w io.Writer, v interface{}) {
	spew.Fdump(w, v)
}
