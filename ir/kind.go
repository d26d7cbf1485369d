// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ir defines the common graph substrate shared by every analysis in
// this repository: typed instruction nodes partitioned by function, basic
// blocks, a generic pluggable-discipline graph walker, and dominance /
// post-dominance over the resulting control-flow graphs.
package ir

// Kind tags the closed set of instruction shapes a program graph node can
// take. Kind is deliberately a small closed enum rather than an open
// interface hierarchy: every analysis in this repository switches on Kind
// rather than type-asserting a node's payload.
type Kind uint8

const (
	// Invalid is the zero Kind. A node with Kind Invalid was never
	// initialized; encountering one is a builder bug.
	Invalid Kind = iota

	Alloc       // defines a fresh object; points-to set is {(self, 0)}
	DynAlloc    // runtime-sized allocation, e.g. malloc(n)
	Store       // operands: (address, value)
	Load        // operands: (address)
	Phi         // operands: one per predecessor block, arity >= 1
	Gep         // operands: (base, offset); getelementptr-style address arithmetic
	Cast        // operands: (value); bitcast/pointer conversion
	Call        // operands: (callee, args...)
	CallReturn  // paired with a Call; receives the callee's returned points-to/RD effects
	Return      // operands: (value) or none
	Fork        // starts a new thread execution region at the forked function's entry
	Join        // correlates with a Fork via PTA on the thread-handle argument
	NullAddr    // the NULL pointer constant; no operands
	UnknownMem  // the UNKNOWN_MEMORY sentinel target; no operands
	Invalidated // the INVALIDATED sentinel target; no operands
	Noop        // no operands, no effect
	Constant    // a non-pointer constant value; no operands
	FunctionVal // names a function as a first-class value; no operands

	InvalidateObject // operands: (ptr); marks ptr's target INVALIDATED
	Free             // operands: (ptr); allocator-recognized synonym for InvalidateObject
	Memcpy           // operands: (dst, src); byte count carried on GepOffset-style aux, see Node.MemcpyLen

	numKinds
)

var kindNames = [numKinds]string{
	Invalid:          "INVALID",
	Alloc:            "ALLOC",
	DynAlloc:         "DYN_ALLOC",
	Store:            "STORE",
	Load:             "LOAD",
	Phi:              "PHI",
	Gep:              "GEP",
	Cast:             "CAST",
	Call:             "CALL",
	CallReturn:       "CALL_RETURN",
	Return:           "RETURN",
	Fork:             "FORK",
	Join:             "JOIN",
	NullAddr:         "NULL_ADDR",
	UnknownMem:       "UNKNOWN_MEM",
	Invalidated:      "INVALIDATED",
	Noop:             "NOOP",
	Constant:         "CONSTANT",
	FunctionVal:      "FUNCTION",
	InvalidateObject: "INVALIDATE_OBJECT",
	Free:             "FREE",
	Memcpy:           "MEMCPY",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		if s := kindNames[k]; s != "" {
			return s
		}
	}
	return "KIND(?)"
}

// NumOperands returns the operand count required for k,
// or -1 if k allows a variable number of operands (CALL, PHI).
func (k Kind) NumOperands() int {
	switch k {
	case Store, Memcpy:
		return 2
	case Load, Cast, Gep, InvalidateObject, Free:
		// NOTE: Gep also carries an offset operand in addition to its
		// base; modeled here as the base alone, with the offset held
		// directly on the node (see Node.GepOffset).
		return 1
	case Phi:
		return -1 // >= 1, arity checked separately by validate
	case Call:
		return -1 // callee + args
	case NullAddr, UnknownMem, Invalidated, Noop, FunctionVal, Constant:
		return 0
	default:
		return -1
	}
}

// IsMemOp reports whether k is one of the pointer-relevant instructions the
// points-to subgraph retains.
func (k Kind) IsMemOp() bool {
	switch k {
	case Alloc, DynAlloc, Store, Load, Gep, Cast, Phi, Call, Constant, NullAddr, UnknownMem, FunctionVal, Noop,
		InvalidateObject, Free, Memcpy:
		return true
	default:
		return false
	}
}

// HasPredecessorExemption reports whether k is exempt from the validator's
// "every non-root node has a predecessor" rule.
func (k Kind) HasPredecessorExemption() bool {
	switch k {
	case FunctionVal, Constant, NullAddr, UnknownMem:
		return true
	default:
		return false
	}
}
