// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rd

// ArgDef is one entry of a FunctionModel's Defines list: calling the
// function reads argument From's pointee at FromOffset and defines
// argument To's pointee at ToOffset. To may equal From to model a
// function that only refines an argument's own contents (e.g. memset).
type ArgDef struct {
	From, To             int
	FromOffset, ToOffset int
}

// FunctionModel summarizes an external function rd cannot analyze a
// body for. ReturnsFresh marks a model like pta.AllocFresh: the function's
// result is a fresh object unrelated to its arguments.
type FunctionModel struct {
	Defines      []ArgDef
	ReturnsFresh bool
	Pure         bool // no memory effects beyond what Defines states
}

// defaultFunctionModels supplies models for malloc, calloc, realloc and
// free. pta.Options.AllocationFunctions has no built-in entries; its
// allocator names are configured separately.
func defaultFunctionModels() map[string]FunctionModel {
	return map[string]FunctionModel{
		"malloc":  {ReturnsFresh: true, Pure: true},
		"calloc":  {ReturnsFresh: true, Pure: true},
		"realloc": {ReturnsFresh: true, Defines: []ArgDef{{From: 0, To: 0}}},
		"free":    {Pure: true},
	}
}

// Options configures Build/Run. The zero Options runs the dense
// algorithm, field-sensitive, with every unsound shortcut disabled.
type Options struct {
	// StrongUpdateUnknown, if true, lets a write observed through an
	// UNKNOWN_MEMORY-tainted pointer kill prior definitions rather than
	// merely joining with them; unsound but sometimes useful for
	// reducing false positives on code that writes through function
	// pointers the analysis cannot resolve.
	StrongUpdateUnknown bool

	// UndefinedArePure treats an unmodeled opaque call as having no
	// memory effects, instead of conservatively writing UNKNOWN_MEMORY.
	UndefinedArePure bool

	// MaxSetSize widens a reaching-definitions set to the all-writers
	// ceiling once it exceeds this many members; 0 means unbounded.
	MaxSetSize int

	// MaxIterations caps the dense fixpoint's sweeps per function; 0
	// means unbounded. On exceeding it Run reports ErrBudgetExceeded
	// and the affected reads fall back to the all-writers set.
	MaxIterations int

	// Sparse selects the dominance-frontier-based memory-SSA algorithm
	// instead of the dense iterative one.
	Sparse bool

	// FieldInsensitive discards offsets: every DefSite collapses to
	// Whole(Object).
	FieldInsensitive bool

	// FunctionModels supplements defaultFunctionModels, keyed by
	// function name; entries here take precedence over the defaults.
	FunctionModels map[string]FunctionModel
}

func (o Options) model(name string) (FunctionModel, bool) {
	if m, ok := o.FunctionModels[name]; ok {
		return m, true
	}
	m, ok := defaultFunctionModels()[name]
	return m, ok
}

func (o Options) site(d DefSite) DefSite {
	if o.FieldInsensitive {
		return d.FieldInsensitive()
	}
	return d
}
