// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threads

import "github.com/go-llir/dgslice/ir"

// CriticalSection is the region of code between a lock acquisition and
// its matching releases: every node on a CFG path from the lock before
// reaching an unlock of the same class.
type CriticalSection struct {
	Lock    *ir.Node // the acquiring call
	Class   *LockClass
	Unlocks []*ir.Node
	Nodes   map[*ir.Node]bool
}

// Contains reports whether n executes with the section's lock held.
func (cs *CriticalSection) Contains(n *ir.Node) bool { return cs.Nodes[n] }

// findSections pairs recognized lock calls with their unlocks and
// collects the member nodes by forward CFG walk.
func (a *Analysis) findSections() {
	for _, f := range a.Prog.Functions {
		for _, b := range f.Blocks {
			for i, n := range b.Nodes {
				if a.calleeNameIn(n, a.opts.LockFunctions) && len(n.Operands) > 1 {
					cls := a.Locks.Get(a.PTA, n.Operands[1])
					a.Sections = append(a.Sections, a.buildSection(f, b, i, n, cls))
				}
			}
		}
	}
}

func (a *Analysis) calleeNameIn(n *ir.Node, names map[string]bool) bool {
	if n.Kind != ir.Call || len(n.Operands) == 0 || names == nil {
		return false
	}
	callee := n.Operands[0]
	return callee.Kind == ir.FunctionVal && names[callee.Name]
}

// buildSection walks forward from the lock call at b.Nodes[i], stopping
// each path at an unlock whose operand shares the lock's class.
func (a *Analysis) buildSection(f *ir.Function, b *ir.BasicBlock, i int, lock *ir.Node, cls *LockClass) *CriticalSection {
	cs := &CriticalSection{Lock: lock, Class: cls, Nodes: make(map[*ir.Node]bool)}

	releases := func(n *ir.Node) bool {
		if !a.calleeNameIn(n, a.opts.UnlockFunctions) || len(n.Operands) < 2 {
			return false
		}
		return a.Locks.Get(a.PTA, n.Operands[1]) == cls
	}

	// Walk node positions (block, index) so a lock and unlock in one
	// block section correctly.
	type pos struct {
		b *ir.BasicBlock
		i int
	}
	seen := map[pos]bool{}
	work := []pos{{b, i + 1}}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[p] {
			continue
		}
		seen[p] = true
		if p.i >= len(p.b.Nodes) {
			for _, s := range p.b.Succs {
				work = append(work, pos{s, 0})
			}
			continue
		}
		n := p.b.Nodes[p.i]
		cs.Nodes[n] = true
		if releases(n) {
			cs.Unlocks = append(cs.Unlocks, n)
			continue
		}
		work = append(work, pos{p.b, p.i + 1})
	}
	return cs
}

// LocksHeldAt returns the set of lock classes held at n across all
// sections.
func (a *Analysis) LocksHeldAt(n *ir.Node) *LockSet {
	set := NewLockSet()
	for _, cs := range a.Sections {
		if cs.Contains(n) {
			set = set.Plus(cs.Class)
		}
	}
	return set
}
