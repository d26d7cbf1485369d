// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"strings"
	"testing"

	"golang.org/x/xerrors"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
)

func chain(f *ir.Function, nodes ...*ir.Node) {
	succs := make(map[*ir.Node]*ir.Node, len(nodes))
	for i := 0; i+1 < len(nodes); i++ {
		succs[nodes[i]] = nodes[i+1]
	}
	ir.BuildBlocks(f, nodes[0], func(n *ir.Node) []*ir.Node {
		if s, ok := succs[n]; ok {
			return []*ir.Node{s}
		}
		return nil
	})
}

func TestCheckAcceptsWellFormed(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	p := prog.NewNode(f, ir.Alloc)
	v := prog.NewNode(f, ir.Alloc)
	st := prog.NewNode(f, ir.Store)
	st.Operands = []*ir.Node{p, v}
	ld := prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}
	chain(f, p, v, st, ld)

	r := Check(prog)
	if !r.OK() {
		t.Fatalf("well-formed program rejected: %v", r.Errors)
	}
	if r.Err() != nil {
		t.Fatalf("Err should be nil when OK")
	}
}

func TestCheckOperandCounts(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	st := prog.NewNode(f, ir.Store) // missing both operands
	chain(f, st)

	r := Check(prog)
	if r.OK() {
		t.Fatalf("STORE with no operands must be rejected")
	}
	if !strings.Contains(r.Errors[0], "STORE") {
		t.Errorf("error should name the node kind: %q", r.Errors[0])
	}
	if !xerrors.Is(r.Err(), ErrMalformed) {
		t.Errorf("Err should wrap ErrMalformed")
	}
}

func TestCheckPhiArity(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	phi := prog.NewNode(f, ir.Phi) // zero operands
	chain(f, phi)

	r := Check(prog)
	if r.OK() {
		t.Fatalf("zero-operand PHI must be rejected")
	}
}

func TestCheckUnpairedCallReturnWarns(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	cr := prog.NewNode(f, ir.CallReturn)
	chain(f, cr)

	r := Check(prog)
	if !r.OK() {
		t.Fatalf("an unpaired CALL_RETURN is a warning, not an error: %v", r.Errors)
	}
	if len(r.Warnings) == 0 {
		t.Fatalf("expected a warning for the unpaired CALL_RETURN")
	}
}

func TestStatsReport(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.NewFunction("main")
	p := prog.NewNode(f, ir.Alloc)
	ld := prog.NewNode(f, ir.Load)
	ld.Operands = []*ir.Node{p}
	chain(f, p, ld)

	pg := pta.Build(prog, pta.Options{})
	pg.Run()

	var s Stats
	s.CountProgram(prog)
	s.CountPointsTo(prog, pg)

	if s.Functions != 1 || s.ProcessedNodes != 2 {
		t.Fatalf("program counters wrong: %+v", s)
	}
	if s.PointsToQueries == 0 {
		t.Fatalf("points-to counters should have sampled the analyzed nodes")
	}

	var sb strings.Builder
	s.Report(&sb)
	if !strings.Contains(sb.String(), "functions: 1") {
		t.Fatalf("report missing counters:\n%s", sb.String())
	}
}
