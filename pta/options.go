// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pta

import "github.com/go-llir/dgslice/offset"

// AnalysisType selects which of the three points-to fixpoints Build/Run
// drives.
type AnalysisType int

const (
	// FlowInsensitive runs the whole-graph Andersen-style inclusion
	// fixpoint.
	FlowInsensitive AnalysisType = iota
	// FlowSensitive maintains per-program-point memory states and joins
	// at merges, without invalidation tracking.
	FlowSensitive
	// FlowSensitiveWithInvalidation is FlowSensitive plus
	// invalidateNodes freed-memory tracking.
	FlowSensitiveWithInvalidation
)

func (t AnalysisType) String() string {
	switch t {
	case FlowInsensitive:
		return "flow-insensitive"
	case FlowSensitive:
		return "flow-sensitive"
	case FlowSensitiveWithInvalidation:
		return "flow-sensitive-with-invalidation"
	default:
		return "unknown-analysis-type"
	}
}

// AllocKind classifies a recognized allocator function by what it does to
// its result's points-to set.
type AllocKind int

const (
	// NotAlloc means the called function is not a recognized allocator.
	NotAlloc AllocKind = iota
	// AllocFresh returns a fresh object, possibly null (malloc, calloc).
	AllocFresh
	// AllocFreshNeverNull is AllocFresh for the "*0" family of
	// allocators documented never to return null (e.g. runtime
	// allocators in some hosts).
	AllocFreshNeverNull
	// AllocStack allocates on the current frame (alloca): a fresh
	// object whose lifetime the host tracks separately; PTA treats it
	// identically to AllocFresh.
	AllocStack
	// AllocRealloc may return the same object (grown/shrunk in place)
	// or a fresh one; PTA conservatively unions the argument pointer's
	// current points-to set with a fresh object.
	AllocRealloc
)

// Options configures a points-to Build/Run. The zero Options is
// flow-insensitive, with unbounded field-sensitivity, no GEP
// preprocessing, no invalidation tracking, no iteration cap, no thread
// modeling, and entry function "main".
type Options struct {
	// FieldSensitivity is the maximum byte offset tracked precisely;
	// offsets beyond it collapse to offset.Unknown.
	FieldSensitivity offset.Offset

	// PreprocessGeps eagerly collapses GEP offsets known to overflow or
	// saturate to Unknown before the fixpoint runs, reducing iterations.
	PreprocessGeps bool

	// InvalidateNodes enables FREE/INVALIDATE_OBJECT rewriting pointers
	// to the freed target into INVALIDATED.
	InvalidateNodes bool

	// MaxIterations caps the fixpoint; 0 means unbounded. Exceeding it
	// makes Run return an incomplete result.
	MaxIterations int

	AnalysisType AnalysisType

	// AllocationFunctions maps a called function's name to its
	// AllocKind, recognized at direct calls (a CALL whose callee operand
	// is a FUNCTION node of that name), whether or not the program has a
	// body for that function.
	AllocationFunctions map[string]AllocKind

	// EntryFunction names the analysis entry point; defaults to "main"
	// if empty.
	EntryFunction string

	// Threads marks a run that uses fork/join reasoning. PTA itself does
	// not read it: FORK and JOIN nodes are outside its node domain, so a
	// FORK's arguments are not bound to the forked function's parameters.
	// The region computation lives in package threads.
	Threads bool

	// Host optionally supplies global-initializer information. Hosts
	// with no initializer information leave this nil.
	Host GlobalInitializer
}

func (o Options) hostInit() (GlobalInitializer, bool) {
	return o.Host, o.Host != nil
}

// Entry returns o.EntryFunction, defaulting to "main".
func (o Options) Entry() string {
	if o.EntryFunction == "" {
		return "main"
	}
	return o.EntryFunction
}

// capOffset saturates off to Unknown if it exceeds o.FieldSensitivity
// (when FieldSensitivity is nonzero; a zero FieldSensitivity means
// "unbounded", matching the Options zero value being maximally precise).
func (o Options) capOffset(off offset.Offset) offset.Offset {
	if o.FieldSensitivity == 0 || off.IsUnknown() {
		return off
	}
	if o.FieldSensitivity.Less(off) {
		return offset.Unknown
	}
	return off
}
