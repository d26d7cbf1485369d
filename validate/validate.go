// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package validate checks the structural invariants of a program graph and
// accumulates analysis statistics. Validators collect error and warning
// strings and return a single boolean; the driver decides whether an error
// aborts.
package validate

import (
	"fmt"

	"golang.org/x/xerrors"

	"github.com/go-llir/dgslice/ir"
)

// ErrMalformed is the sentinel a driver can wrap validator errors with
// when it decides to abort.
var ErrMalformed = xerrors.New("validate: malformed program graph")

// Result accumulates a validation pass's findings.
type Result struct {
	Errors   []string
	Warnings []string
}

// OK reports whether no errors were found (warnings do not count).
func (r *Result) OK() bool { return len(r.Errors) == 0 }

func (r *Result) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err returns nil when r is OK, else ErrMalformed wrapped with the first
// error string.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return xerrors.Errorf("%s: %w", r.Errors[0], ErrMalformed)
}

// Check validates prog's structural invariants: reserved-ID use, operand
// counts per node kind, predecessor requirements, and PHI arity.
func Check(prog *ir.Program) *Result {
	r := &Result{}

	for _, f := range prog.Functions {
		for bi, b := range f.Blocks {
			for ni, n := range b.Nodes {
				r.checkNode(f, n)

				// Every non-root node has a predecessor, except
				// the exempt value kinds. Within a block the
				// predecessor is positional; a block's first
				// node needs an incoming block edge.
				if ni == 0 && bi != 0 && len(b.Preds) == 0 && !n.Kind.HasPredecessorExemption() {
					r.errorf("%s: unreachable non-root node %s (block %d has no predecessors)", f.Name, n, bi)
				}
			}
		}
	}
	for _, g := range prog.Globals {
		if g.ID == 0 {
			r.errorf("global %s uses reserved node ID 0", g.Name)
		}
	}
	return r
}

func (r *Result) checkNode(f *ir.Function, n *ir.Node) {
	if n.ID == 0 {
		r.errorf("%s: node %s uses reserved node ID 0", f.Name, n)
	}
	if n.Kind == ir.Invalid {
		r.errorf("%s: node %d has the invalid kind", f.Name, n.ID)
		return
	}

	switch n.Kind {
	case ir.Phi:
		if len(n.Operands) < 1 {
			r.errorf("%s: PHI %s has zero operands", f.Name, n)
		}
	case ir.Call:
		if len(n.Operands) < 1 {
			r.errorf("%s: CALL %s has no callee operand", f.Name, n)
		}
	case ir.Return:
		if len(n.Operands) > 1 {
			r.errorf("%s: RETURN %s has %d operands, want at most 1", f.Name, n, len(n.Operands))
		}
	default:
		if want := n.Kind.NumOperands(); want >= 0 && len(n.Operands) != want {
			r.errorf("%s: %s %s has %d operands, want %d", f.Name, n.Kind, n, len(n.Operands), want)
		}
	}

	if n.Kind == ir.CallReturn && !precededByCall(n) {
		r.warnf("%s: CALL_RETURN %s is not paired with a CALL", f.Name, n)
	}
}

func precededByCall(n *ir.Node) bool {
	b := n.Block
	if b == nil {
		return false
	}
	for i, x := range b.Nodes {
		if x == n {
			return i > 0 && b.Nodes[i-1].Kind == ir.Call
		}
	}
	return false
}
