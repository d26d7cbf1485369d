// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "testing"

func TestKindOperandCounts(t *testing.T) {
	cases := []struct {
		k    Kind
		want int
	}{
		{Store, 2},
		{Load, 1},
		{Cast, 1},
		{Gep, 1},
		{NullAddr, 0},
		{UnknownMem, 0},
		{Noop, 0},
		{FunctionVal, 0},
		{Constant, 0},
		{Phi, -1},
		{Call, -1},
		{Invalidated, 0},
		{InvalidateObject, 1},
		{Free, 1},
		{Memcpy, 2},
	}
	for _, c := range cases {
		if got := c.k.NumOperands(); got != c.want {
			t.Errorf("%v.NumOperands() = %d, want %d", c.k, got, c.want)
		}
	}
}

func TestKindPredecessorExemption(t *testing.T) {
	for _, k := range []Kind{FunctionVal, Constant, NullAddr, UnknownMem} {
		if !k.HasPredecessorExemption() {
			t.Errorf("%v should be exempt from the predecessor requirement", k)
		}
	}
	for _, k := range []Kind{Alloc, Store, Load, Call, Phi} {
		if k.HasPredecessorExemption() {
			t.Errorf("%v should not be exempt from the predecessor requirement", k)
		}
	}
}

func TestKindString(t *testing.T) {
	if got := Alloc.String(); got != "ALLOC" {
		t.Errorf("Alloc.String() = %q, want ALLOC", got)
	}
	if got := Invalid.String(); got != "INVALID" {
		t.Errorf("Invalid.String() = %q, want INVALID", got)
	}
}
