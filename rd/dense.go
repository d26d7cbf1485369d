// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/go-llir/dgslice/ir"
)

// runDense is the classic iterative-dataflow algorithm: each block carries
// a Definitions state; transfer applies strong then weak writes in node
// order; join is elementwise union. Functions are independent once call
// effects have been summarized onto the CALL nodes, so they run
// concurrently; results are merged in function order to keep query output
// deterministic.
func (g *RWGraph) runDense() error {
	results := make([]map[*ir.Node][]*RWNode, len(g.Prog.Functions))
	var eg errgroup.Group
	for i, f := range g.Prog.Functions {
		i, f := i, f
		eg.Go(func() error {
			m, err := g.denseFunc(f)
			results[i] = m
			return err
		})
	}
	err := eg.Wait()
	for _, m := range results {
		for n, defs := range m {
			g.reaching[n] = defs
		}
	}
	return err
}

func (g *RWGraph) denseFunc(f *ir.Function) (map[*ir.Node][]*RWNode, error) {
	if len(f.Blocks) == 0 {
		return nil, nil
	}

	entryState := g.entrySeed()
	out := make([]*Definitions, len(f.Blocks))

	rpo := ir.ReverseInts(ir.PostOrder(f.CFG(), 0))

	iterations := 0
	for changed := true; changed; {
		changed = false
		iterations++
		if g.Opts.MaxIterations > 0 && iterations > g.Opts.MaxIterations {
			return g.conservativeReaching(f), ErrBudgetExceeded
		}
		for _, bi := range rpo {
			b := f.Blocks[bi]
			in := g.joinPreds(f, b, out, entryState)
			newOut := g.transferBlock(b, in, nil)
			if out[bi] == nil || !out[bi].Equal(newOut) {
				out[bi] = newOut
				changed = true
			}
		}
	}

	// Final pass: thread each block's in-state through its nodes again,
	// recording each read's reaching set as it goes.
	reaching := make(map[*ir.Node][]*RWNode)
	for _, bi := range rpo {
		b := f.Blocks[bi]
		in := g.joinPreds(f, b, out, entryState)
		g.transferBlock(b, in, reaching)
	}
	return reaching, nil
}

// entrySeed returns the state holding the global-initializer stores'
// definitions, which reach every function's entry.
func (g *RWGraph) entrySeed() *Definitions {
	seed := NewDefinitions()
	for _, n := range g.PTA.GlobalInitStores() {
		rw := g.nodes[n]
		if rw == nil {
			continue
		}
		for _, s := range rw.Defs {
			seed.AddWeak(s, rw)
		}
		for _, s := range rw.Overwrites {
			seed.AddWeak(s, rw) // init order is not modeled; keep weak
		}
	}
	return seed
}

func (g *RWGraph) joinPreds(f *ir.Function, b *ir.BasicBlock, out []*Definitions, entry *Definitions) *Definitions {
	in := NewDefinitions()
	if b.Index == 0 {
		in.Join(entry)
	}
	for _, p := range b.Preds {
		if out[p.Index] != nil {
			in.Join(out[p.Index])
		}
	}
	return in
}

// transferBlock applies b's nodes to state in order and returns the
// resulting out-state. When reaching is non-nil, each read's reaching set
// is recorded against its node along the way.
func (g *RWGraph) transferBlock(b *ir.BasicBlock, state *Definitions, reaching map[*ir.Node][]*RWNode) *Definitions {
	for _, n := range b.Nodes {
		rw := g.nodes[n]
		if rw == nil {
			continue
		}
		if reaching != nil && len(rw.Uses) > 0 {
			var defs []*RWNode
			for _, u := range rw.Uses {
				defs = append(defs, state.Get(u)...)
			}
			reaching[n] = g.crop(sortRWNodes(dedupe(defs)))
		}
		g.applyWrites(rw, state)
	}
	return state
}

func (g *RWGraph) applyWrites(rw *RWNode, state *Definitions) {
	for _, s := range rw.Overwrites {
		state.AddStrong(s, rw)
	}
	for _, s := range rw.Defs {
		if rw.UnknownWrite && g.Opts.StrongUpdateUnknown {
			state.AddStrong(s, rw)
		} else {
			state.AddWeak(s, rw)
		}
	}
	if rw.UnknownWrite {
		state.AddUnknownWrite(rw)
	}
	if rw.UnknownRead {
		state.AddUnknownRead(rw)
	}
}

// crop widens defs to the set of all writers once it exceeds
// Opts.MaxSetSize, trading precision for bounded set sizes.
func (g *RWGraph) crop(defs []*RWNode) []*RWNode {
	if g.Opts.MaxSetSize > 0 && len(defs) > g.Opts.MaxSetSize {
		atomic.StoreInt32(&g.cropped, 1)
		return g.allWriters()
	}
	return defs
}

// allWriters returns every node in the program with any write effect, the
// conservative ceiling a cropped or budget-exhausted query falls back to.
func (g *RWGraph) allWriters() []*RWNode {
	var out []*RWNode
	for _, f := range g.Prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				rw := g.nodes[n]
				if rw != nil && (len(rw.Defs) > 0 || len(rw.Overwrites) > 0 || rw.UnknownWrite) {
					out = append(out, rw)
				}
			}
		}
	}
	return sortRWNodes(out)
}

// conservativeReaching assigns every read in f the all-writers set, used
// when the iteration budget runs out before the fixpoint converges.
func (g *RWGraph) conservativeReaching(f *ir.Function) map[*ir.Node][]*RWNode {
	all := g.allWriters()
	reaching := make(map[*ir.Node][]*RWNode)
	for _, b := range f.Blocks {
		for _, n := range b.Nodes {
			if rw := g.nodes[n]; rw != nil && len(rw.Uses) > 0 {
				reaching[n] = all
			}
		}
	}
	return reaching
}
