// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

import (
	"sort"

	"github.com/go-llir/dgslice/ir"
	"github.com/go-llir/dgslice/offset"
)

// Definitions is the per-block reaching-definitions state: for each object,
// an interval map from written byte ranges to the nodes that may have
// written them, plus a kills record for strong updates and the vectors of
// unknown-memory writers and readers observed so far. A read's reaching
// set is the union over all intervals overlapping the read's interval;
// a read that overlaps nothing falls back to the unknown-writes vector.
type Definitions struct {
	objs map[*ir.Node]*offset.Map

	// kills records, per object, the intervals strong updates have
	// overwritten in this state; Join does not merge kills, so a joined
	// state keeps only the receiver's own.
	kills map[*ir.Node][]offset.Interval

	// unknownWrites and unknownReads are the nodes seen writing or
	// reading through UNKNOWN_MEMORY-tainted pointers.
	unknownWrites []*RWNode
	unknownReads  []*RWNode
}

// NewDefinitions returns an empty Definitions state.
func NewDefinitions() *Definitions {
	return &Definitions{
		objs:  make(map[*ir.Node]*offset.Map),
		kills: make(map[*ir.Node][]offset.Interval),
	}
}

func (d *Definitions) mapFor(obj *ir.Node) *offset.Map {
	m := d.objs[obj]
	if m == nil {
		m = &offset.Map{}
		d.objs[obj] = m
	}
	return m
}

func siteInterval(s DefSite) offset.Interval {
	return offset.NewInterval(s.Offset, s.Length)
}

// AddWeak records node as a may-writer of site, joining with whatever else
// already reaches.
func (d *Definitions) AddWeak(site DefSite, node *RWNode) {
	d.mapFor(site.Object).Set(siteInterval(site), []*RWNode{node})
}

// AddStrong records node as the sole writer of site: overlapping entries
// are removed first, then node is installed.
func (d *Definitions) AddStrong(site DefSite, node *RWNode) {
	iv := siteInterval(site)
	m := d.mapFor(site.Object)
	m.Kill(iv)
	m.Set(iv, []*RWNode{node})
	d.kills[site.Object] = append(d.kills[site.Object], iv)
}

// AddUnknownWrite records node as a writer through unknown memory.
func (d *Definitions) AddUnknownWrite(node *RWNode) {
	for _, w := range d.unknownWrites {
		if w == node {
			return
		}
	}
	d.unknownWrites = append(d.unknownWrites, node)
}

// AddUnknownRead records node as a reader through unknown memory.
func (d *Definitions) AddUnknownRead(node *RWNode) {
	for _, r := range d.unknownReads {
		if r == node {
			return
		}
	}
	d.unknownReads = append(d.unknownReads, node)
}

// Get returns the nodes whose writes may reach a read of site: the union
// over all stored intervals overlapping it, falling back to the
// unknown-writes vector when nothing overlaps.
func (d *Definitions) Get(site DefSite) []*RWNode {
	var out []*RWNode
	if m := d.objs[site.Object]; m != nil {
		m.Overlapping(siteInterval(site), func(_ offset.Interval, val interface{}) {
			out = append(out, val.([]*RWNode)...)
		})
	}
	if out == nil {
		out = append(out, d.unknownWrites...)
	}
	return dedupe(out)
}

// Join merges other into d elementwise: entries union per object, unknown
// vectors union. Kills are path-local and do not merge: a strong update on
// one predecessor cannot kill a definition arriving on another. It reports
// whether d changed.
func (d *Definitions) Join(other *Definitions) bool {
	changed := false
	for obj, om := range other.objs {
		m := d.mapFor(obj)
		before := canonEntries(m)
		om.Overlapping(offset.Whole, func(iv offset.Interval, val interface{}) {
			for _, n := range val.([]*RWNode) {
				dup := false
				m.Overlapping(iv, func(eiv offset.Interval, ev interface{}) {
					for _, x := range ev.([]*RWNode) {
						dup = dup || (eiv == iv && x == n)
					}
				})
				if !dup {
					m.Set(iv, []*RWNode{n})
				}
			}
		})
		if canonEntries(m) != before {
			changed = true
		}
	}
	for _, w := range other.unknownWrites {
		n := len(d.unknownWrites)
		d.AddUnknownWrite(w)
		if len(d.unknownWrites) != n {
			changed = true
		}
	}
	for _, r := range other.unknownReads {
		n := len(d.unknownReads)
		d.AddUnknownRead(r)
		if len(d.unknownReads) != n {
			changed = true
		}
	}
	return changed
}

// Clone returns a copy of d sharing no mutable structure with it.
func (d *Definitions) Clone() *Definitions {
	out := NewDefinitions()
	for obj, m := range d.objs {
		out.objs[obj] = m.Clone()
	}
	for obj, ks := range d.kills {
		out.kills[obj] = append([]offset.Interval(nil), ks...)
	}
	out.unknownWrites = append([]*RWNode(nil), d.unknownWrites...)
	out.unknownReads = append([]*RWNode(nil), d.unknownReads...)
	return out
}

// Equal reports whether d and other hold the same reaching sets, compared
// on a canonical rendering so entry insertion order does not matter.
func (d *Definitions) Equal(other *Definitions) bool {
	if len(d.objs) != len(other.objs) {
		return false
	}
	for obj, m := range d.objs {
		om, ok := other.objs[obj]
		if !ok || canonEntries(m) != canonEntries(om) {
			return false
		}
	}
	return canonNodes(d.unknownWrites) == canonNodes(other.unknownWrites) &&
		canonNodes(d.unknownReads) == canonNodes(other.unknownReads)
}

func canonEntries(m *offset.Map) string {
	var parts []string
	m.Overlapping(offset.Whole, func(iv offset.Interval, val interface{}) {
		parts = append(parts, iv.String()+"="+canonNodes(val.([]*RWNode)))
	})
	sort.Strings(parts)
	s := ""
	for _, p := range parts {
		s += p + ";"
	}
	return s
}

func canonNodes(nodes []*RWNode) string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.String()
	}
	sort.Strings(ids)
	s := ""
	for _, id := range ids {
		s += id + ","
	}
	return s
}

// dedupe removes duplicate nodes, preserving first-seen order.
func dedupe(nodes []*RWNode) []*RWNode {
	seen := make(map[*RWNode]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// sortRWNodes orders nodes by their program node IDs (phis sort after real
// nodes, by phi object ID) so query results are deterministic.
func sortRWNodes(nodes []*RWNode) []*RWNode {
	sort.Slice(nodes, func(i, j int) bool {
		return rwKey(nodes[i]) < rwKey(nodes[j])
	})
	return nodes
}

func rwKey(n *RWNode) uint64 {
	if n.IsPhi {
		bi := 0
		if n.Block != nil {
			bi = n.Block.Index
		}
		return 1<<48 | uint64(n.PhiObject.ID)<<16 | uint64(bi)
	}
	return uint64(n.Node.ID)
}
