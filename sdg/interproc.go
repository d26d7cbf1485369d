// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sdg

import (
	"sort"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/pta"
	"github.com/go-llir/dgslice/rd"
)

// slotKey identifies a parameter slot so formal and actual nodes bind
// one-to-one across a call edge: a fixed parameter position, the return
// value, a global, or the vararg tail.
type slotKey struct {
	index  int // parameter position; -1 return, -2 global, -3 vararg
	global *ir.Node
}

func keyOf(n *Node) slotKey { return slotKey{index: n.Index, global: n.Global} }

// funcShape describes the parameter-node slots a function needs, derived
// from its signature and mod/ref summary; every call site binding the
// function materializes matching actual slots.
type funcShape struct {
	inSlots  []slotKey // params, then globals read
	outSlots []slotKey // return, params with written pointee, globals written
}

func (g *Graph) shapeOf(f *ir.Function) funcShape {
	var sh funcShape
	for i := range f.Params {
		sh.inSlots = append(sh.inSlots, slotKey{index: i})
	}
	sh.outSlots = append(sh.outSlots, slotKey{index: -1})

	mr := g.RD.GetModRef(f)

	// Parameter slots whose pointee the callee may write.
	for i, p := range f.Params {
		pointees := g.pointeeObjects(p)
		for _, s := range mr.MayDef {
			if pointees[s.Object] {
				sh.outSlots = append(sh.outSlots, slotKey{index: i})
				break
			}
		}
	}

	// Global slots, in global-ID order for determinism.
	isGlobal := make(map[*ir.Node]bool, len(g.Prog.Globals))
	for _, gl := range g.Prog.Globals {
		isGlobal[gl] = true
	}
	addGlobals := func(sites []rd.DefSite, slots *[]slotKey) {
		seen := make(map[*ir.Node]bool)
		var gls []*ir.Node
		for _, s := range sites {
			if isGlobal[s.Object] && !seen[s.Object] {
				seen[s.Object] = true
				gls = append(gls, s.Object)
			}
		}
		sort.Slice(gls, func(i, j int) bool { return gls[i].ID < gls[j].ID })
		for _, gl := range gls {
			*slots = append(*slots, slotKey{index: -2, global: gl})
		}
	}
	addGlobals(mr.MayRef, &sh.inSlots)
	addGlobals(mr.MayDef, &sh.outSlots)

	if f.Variadic {
		sh.inSlots = append(sh.inSlots, slotKey{index: -3})
	}
	return sh
}

// pointeeObjects returns the set of objects a value may point at.
func (g *Graph) pointeeObjects(v *ir.Node) map[*ir.Node]bool {
	out := make(map[*ir.Node]bool)
	g.PTA.PointsTo(v).Iterate(g.Prog, func(p pta.Pointer) {
		out[p.Target] = true
	})
	return out
}

// buildInterprocedural synthesizes the formal/actual parameter nodes for
// every call edge, wires call/return and parameter edges, and re-anchors
// caller-side memory dependences through the actual-out slots.
func (g *Graph) buildInterprocedural() {
	// Formal nodes per function, once.
	shapes := make(map[*ir.Function]funcShape)
	for _, f := range g.Prog.Functions {
		if len(f.Blocks) == 0 {
			continue
		}
		sh := g.shapeOf(f)
		shapes[f] = sh
		entry := g.entryInsn(f)
		for _, k := range sh.inSlots {
			fi := &Node{Kind: FormalIn, Func: f, Index: k.index, Global: k.global}
			g.formalIn[f] = append(g.formalIn[f], fi)
			g.addEdge(entry, fi, Control, rd.DefSite{})
		}
		for _, k := range sh.outSlots {
			fo := &Node{Kind: FormalOut, Func: f, Index: k.index, Global: k.global}
			g.formalOut[f] = append(g.formalOut[f], fo)
			g.addEdge(entry, fo, Control, rd.DefSite{})
		}
		g.wireFormals(f, sh)
	}

	// Actual nodes per call site, merged over every bound callee.
	for _, f := range g.Prog.Functions {
		for _, b := range f.Blocks {
			for _, n := range b.Nodes {
				if n.Kind != ir.Call {
					continue
				}
				g.wireCallSite(n, shapes)
			}
		}
	}

	g.reanchorCallDefs()
}

func (g *Graph) entryInsn(f *ir.Function) *Node {
	if f.Entry == nil || len(f.Entry.Nodes) == 0 {
		return nil
	}
	return g.insns[f.Entry.Nodes[0]]
}

// wireFormals connects a function's body to its formal nodes: the formal-in
// for a parameter feeds the parameter value and the reads of its pointee
// memory; writes to a slot's memory feed the formal-out; return operands
// feed the return formal-out.
func (g *Graph) wireFormals(f *ir.Function, sh funcShape) {
	inByKey := make(map[slotKey]*Node)
	for _, fi := range g.formalIn[f] {
		inByKey[keyOf(fi)] = fi
	}
	outByKey := make(map[slotKey]*Node)
	for _, fo := range g.formalOut[f] {
		outByKey[keyOf(fo)] = fo
	}

	// Slot objects: which memory each slot stands for.
	inObjs := make(map[*ir.Node]*Node)  // object -> formal-in
	outObjs := make(map[*ir.Node]*Node) // object -> formal-out
	for i, p := range f.Params {
		fi := inByKey[slotKey{index: i}]
		if fi != nil {
			g.addEdge(fi, g.insns[p], Data, rd.DefSite{})
			for obj := range g.pointeeObjects(p) {
				inObjs[obj] = fi
			}
		}
		if fo := outByKey[slotKey{index: i}]; fo != nil {
			for obj := range g.pointeeObjects(p) {
				outObjs[obj] = fo
			}
		}
	}
	for _, k := range sh.inSlots {
		if k.index == -2 {
			inObjs[k.global] = inByKey[k]
		}
	}
	for _, k := range sh.outSlots {
		if k.index == -2 {
			outObjs[k.global] = outByKey[k]
		}
	}

	retOut := outByKey[slotKey{index: -1}]
	for _, b := range f.Blocks {
		for _, n := range b.Nodes {
			if n.Kind == ir.Return && len(n.Operands) > 0 && retOut != nil {
				g.addEdge(g.insns[n.Operands[0]], retOut, Data, rd.DefSite{})
			}
			rwn := g.RD.RWNodeFor(n)
			if rwn == nil {
				continue
			}
			for _, u := range rwn.Uses {
				if fi := inObjs[u.Object]; fi != nil {
					g.addEdge(fi, g.insns[n], Data, u)
				}
			}
			for _, d := range rwn.Overwrites {
				if fo := outObjs[d.Object]; fo != nil {
					g.addEdge(g.insns[n], fo, Data, d)
				}
			}
			for _, d := range rwn.Defs {
				if fo := outObjs[d.Object]; fo != nil {
					g.addEdge(g.insns[n], fo, Data, d)
				}
			}
		}
	}
}

// wireCallSite materializes call's actual slots (the union over its
// callees' shapes), binds them to each callee's formals, and adds the
// call/return edges.
func (g *Graph) wireCallSite(call *ir.Node, shapes map[*ir.Function]funcShape) {
	callN := g.insns[call]
	callees := g.CG.Callees(call)
	args := call.Operands[1:]

	// Union of slot keys over all callees, plus one in-slot per
	// argument regardless (the argument value always flows in).
	inKeys := []slotKey{}
	outKeys := []slotKey{{index: -1}}
	seenIn := map[slotKey]bool{}
	seenOut := map[slotKey]bool{{index: -1}: true}
	for i := range args {
		k := slotKey{index: i}
		seenIn[k] = true
		inKeys = append(inKeys, k)
	}
	for _, f := range callees {
		sh, ok := shapes[f]
		if !ok {
			continue
		}
		for _, k := range sh.inSlots {
			if !seenIn[k] {
				seenIn[k] = true
				inKeys = append(inKeys, k)
			}
		}
		for _, k := range sh.outSlots {
			if !seenOut[k] {
				seenOut[k] = true
				outKeys = append(outKeys, k)
			}
		}
	}

	inByKey := make(map[slotKey]*Node)
	for _, k := range inKeys {
		kind := ActualIn
		if k.index == -3 {
			kind = Vararg
		}
		a := &Node{Kind: kind, Insn: call, Func: call.Func, Index: k.index, Global: k.global}
		if k.index == -3 {
			g.vararg[call] = a
		} else {
			g.actualIn[call] = append(g.actualIn[call], a)
		}
		inByKey[k] = a
		g.addEdge(callN, a, Control, rd.DefSite{})
	}
	outByKey := make(map[slotKey]*Node)
	for _, k := range outKeys {
		a := &Node{Kind: ActualOut, Insn: call, Func: call.Func, Index: k.index, Global: k.global}
		g.actualOut[call] = append(g.actualOut[call], a)
		outByKey[k] = a
		g.addEdge(callN, a, Control, rd.DefSite{})
	}

	// Argument values flow into their actual-in slots; extra arguments
	// of a variadic call flow into the vararg slot.
	for i, arg := range args {
		g.addEdge(g.insns[arg], inByKey[slotKey{index: i}], Data, rd.DefSite{})
	}
	if va := g.vararg[call]; va != nil {
		for _, f := range callees {
			if f.Variadic {
				for i := len(f.Params); i < len(args); i++ {
					g.addEdge(g.insns[args[i]], va, Data, rd.DefSite{})
				}
			}
		}
	}

	// Caller-side memory flowing into the callee: the definitions
	// reaching the call, routed to the slot standing for their object.
	objIn := g.slotObjects(call, inByKey)
	for _, def := range g.expandPhis(g.RD.GetReachingDefinitions(call)) {
		site := defSiteOf(def)
		if a := objIn[site.Object]; a != nil {
			g.addEdge(g.insns[def.Node], a, Data, site)
		}
	}

	// The return value arrives at the paired CALL_RETURN through the
	// return actual-out.
	retA := outByKey[slotKey{index: -1}]
	if cr := callReturnOf(call); cr != nil && retA != nil {
		g.addEdge(retA, g.insns[cr], Data, rd.DefSite{})
	}

	// Bind to each callee: parameter-in/out, call, and return edges.
	for _, f := range callees {
		entry := g.entryInsn(f)
		g.addEdge(callN, entry, Call, rd.DefSite{})
		if cr := callReturnOf(call); cr != nil {
			for _, b := range f.Blocks {
				for _, n := range b.Nodes {
					if n.Kind == ir.Return {
						g.addEdge(g.insns[n], g.insns[cr], Return, rd.DefSite{})
					}
				}
			}
		}
		for _, fi := range g.formalIn[f] {
			if a := inByKey[keyOf(fi)]; a != nil {
				g.addEdge(a, fi, ParamIn, rd.DefSite{})
				g.formalToActual[fi] = append(g.formalToActual[fi], a)
			}
		}
		for _, fo := range g.formalOut[f] {
			if a := outByKey[keyOf(fo)]; a != nil {
				g.addEdge(fo, a, ParamOut, rd.DefSite{})
				g.formalToActual[fo] = append(g.formalToActual[fo], a)
			}
		}
	}
}

// slotObjects maps memory objects to the call-site slot standing for them.
func (g *Graph) slotObjects(call *ir.Node, byKey map[slotKey]*Node) map[*ir.Node]*Node {
	out := make(map[*ir.Node]*Node)
	args := call.Operands[1:]
	for i := range args {
		if a := byKey[slotKey{index: i}]; a != nil {
			for obj := range g.pointeeObjects(args[i]) {
				out[obj] = a
			}
		}
	}
	for k, a := range byKey {
		if k.index == -2 {
			out[k.global] = a
		}
	}
	return out
}

func defSiteOf(def *rd.RWNode) rd.DefSite {
	if len(def.Overwrites) > 0 {
		return def.Overwrites[0]
	}
	if len(def.Defs) > 0 {
		return def.Defs[0]
	}
	return rd.DefSite{}
}

// callReturnOf finds call's paired CALL_RETURN, by block adjacency.
func callReturnOf(call *ir.Node) *ir.Node {
	if call.Block == nil {
		return nil
	}
	for i, x := range call.Block.Nodes {
		if x == call && i+1 < len(call.Block.Nodes) && call.Block.Nodes[i+1].Kind == ir.CallReturn {
			return call.Block.Nodes[i+1]
		}
	}
	return nil
}

// reanchorCallDefs duplicates each memory data dependence sourced at a
// call onto the actual-out slot standing for the written object, so
// backward walks can stop at the slot and let summary edges bridge the
// callee.
func (g *Graph) reanchorCallDefs() {
	snapshot := append([]*Edge(nil), g.allEdges...)
	for _, e := range snapshot {
		if e.Kind != Data || e.From == nil || e.From.Kind != Instruction {
			continue
		}
		call := e.From.Insn
		if call.Kind != ir.Call || len(g.actualOut[call]) == 0 {
			continue
		}
		outByKey := make(map[slotKey]*Node)
		for _, a := range g.actualOut[call] {
			outByKey[keyOf(a)] = a
		}
		objOut := g.slotObjects(call, outByKey)
		if a := objOut[e.Site.Object]; a != nil {
			g.addEdge(a, e.To, Data, e.Site)
		}
	}
}
