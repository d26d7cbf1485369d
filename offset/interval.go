// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offset

import "fmt"

// Interval is a closed-on-left, length-based byte region (start, length)
// where either component may be Unknown. An interval whose start or length
// is Unknown concretizes, where required, to "all of the object".
type Interval struct {
	Start  Offset
	Length Offset
}

// NewInterval returns the interval [start, start+length).
func NewInterval(start, length Offset) Interval {
	return Interval{Start: start, Length: length}
}

// Whole is the interval spanning an entire object of unknown extent.
var Whole = Interval{Start: Zero, Length: Unknown}

// end returns start+length, saturating, used only for overlap/subset
// reasoning; callers must not rely on it when either component is Unknown.
func (iv Interval) end() Offset {
	return iv.Start.Add(iv.Length)
}

// isUnbounded reports whether iv's start or length is unknown, i.e. it must
// concretize to "all of the object" wherever a concrete bound is required.
func (iv Interval) isUnbounded() bool {
	return iv.Start.IsUnknown() || iv.Length.IsUnknown()
}

// Concretize returns iv, or Whole if iv's start or length is Unknown.
// Concretize is idempotent: Concretize(Concretize(iv)) == Concretize(iv).
func (iv Interval) Concretize() Interval {
	if iv.isUnbounded() {
		return Whole
	}
	return iv
}

// Overlaps reports whether iv and other share any byte, under saturating
// arithmetic. An unbounded interval overlaps everything.
func (iv Interval) Overlaps(other Interval) bool {
	if iv.isUnbounded() || other.isUnbounded() {
		return true
	}
	// Disjoint iff iv ends at or before other starts, or vice versa.
	if iv.end().Less(other.Start) || iv.end() == other.Start {
		return false
	}
	if other.end().Less(iv.Start) || other.end() == iv.Start {
		return false
	}
	return true
}

// Disjoint is the negation of Overlaps.
func (iv Interval) Disjoint(other Interval) bool {
	return !iv.Overlaps(other)
}

// Subset reports whether iv is entirely contained within other.
func (iv Interval) Subset(other Interval) bool {
	if other.isUnbounded() {
		return true
	}
	if iv.isUnbounded() {
		return false
	}
	return !iv.Start.Less(other.Start) && !other.end().Less(iv.end())
}

// Union returns the smallest interval containing both iv and other. If the
// intervals are disjoint the result necessarily covers the gap between them
// too (callers that need precise disjoint coverage should keep both
// intervals separately, e.g. in an interval map).
func Union(iv, other Interval) Interval {
	if iv.isUnbounded() || other.isUnbounded() {
		return Whole
	}
	start := Min(iv.Start, other.Start)
	end := Max(iv.end(), other.end())
	return NewInterval(start, end.Sub(start))
}

func (iv Interval) String() string {
	if iv.isUnbounded() {
		return "[0, *)"
	}
	return fmt.Sprintf("[%s, %s)", iv.Start, iv.end())
}

// Map is an interval -> value map for a single object, kept as a flat slice
// since the number of intervals per object is small in practice (points-to
// and reaching-definitions rarely see more than a handful of distinct field
// offsets per allocation site).
type Map struct {
	entries []mapEntry
}

type mapEntry struct {
	iv  Interval
	val interface{}
}

// Overlapping calls f for every stored interval that overlaps query.
func (m *Map) Overlapping(query Interval, f func(Interval, interface{})) {
	for _, e := range m.entries {
		if e.iv.Overlaps(query) {
			f(e.iv, e.val)
		}
	}
}

// Set adds an entry storing val at iv. Existing entries, including ones at
// the same interval, stay in place; a strong update calls Kill first.
func (m *Map) Set(iv Interval, val interface{}) {
	m.entries = append(m.entries, mapEntry{iv, val})
}

// Kill removes every stored interval that overlaps iv. Used to realize a
// strong update: the old entries no longer reach any later read.
func (m *Map) Kill(iv Interval) {
	out := m.entries[:0]
	for _, e := range m.entries {
		if !e.iv.Overlaps(iv) {
			out = append(out, e)
		}
	}
	m.entries = out
}

// Empty reports whether the map has no entries.
func (m *Map) Empty() bool { return len(m.entries) == 0 }

// Clone returns a shallow copy of m whose entry slice is independent of m's.
func (m *Map) Clone() *Map {
	if m == nil {
		return &Map{}
	}
	out := &Map{entries: make([]mapEntry, len(m.entries))}
	copy(out.entries, m.entries)
	return out
}
