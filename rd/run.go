// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import (
	"sync/atomic"

	"golang.org/x/xerrors"

	"github.com/go-llir/dgslice/ir"
)

// ErrBudgetExceeded reports that a fixpoint ran out of iterations before
// converging; affected reads fall back to the all-writers set.
var ErrBudgetExceeded = xerrors.New("rd: iteration budget exceeded")

// Run computes, for each memory read, the set of nodes that may have
// produced the value it observes, using the dense or sparse algorithm per
// Opts.Sparse. Run is idempotent; a second call returns the first call's
// outcome.
func (g *RWGraph) Run() error {
	if g.ran {
		return g.runErr
	}
	g.ran = true

	g.computeModRef()
	g.applyCallEffects()
	g.spreadUnknown()

	var err error
	if g.Opts.Sparse {
		err = g.runSparse()
	} else {
		err = g.runDense()
	}
	if err != nil {
		g.runErr = xerrors.Errorf("reaching definitions incomplete: %w", err)
	}
	return g.runErr
}

// GetReachingDefinitions returns the nodes whose writes may have produced
// the value read by use, in canonical ID order. A node with no reads, or
// one the analysis never processed, gets nil.
func (g *RWGraph) GetReachingDefinitions(use *ir.Node) []*RWNode {
	return g.reaching[use]
}

// Cropped reports whether any query result was widened to the all-writers
// set because it crossed Opts.MaxSetSize.
func (g *RWGraph) Cropped() bool { return atomic.LoadInt32(&g.cropped) != 0 }
