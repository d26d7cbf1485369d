// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package offset implements the saturating offset arithmetic shared by the
// points-to and reaching-definitions engines: a non-negative byte offset
// with a distinguished UNKNOWN value that every operation propagates.
package offset

import "fmt"

// Offset is a non-negative byte offset, or the distinguished Unknown value.
// All arithmetic saturates to Unknown on overflow, on any Unknown operand,
// and on underflow for subtraction. Ordering treats Unknown as the maximum
// value.
type Offset uint64

// Unknown is the distinguished "not precisely known" offset. It compares as
// the maximum Offset, so code that orders offsets for canonical storage
// treats it correctly as "greater than every known offset".
const Unknown Offset = 1<<64 - 1

// Zero is the offset of the start of an object.
const Zero Offset = 0

// IsUnknown reports whether o is the Unknown sentinel.
func (o Offset) IsUnknown() bool { return o == Unknown }

// Add returns o+p, saturating to Unknown on overflow or if either operand
// is Unknown.
func (o Offset) Add(p Offset) Offset {
	if o == Unknown || p == Unknown || o > Unknown-p {
		return Unknown
	}
	return o + p
}

// Sub returns o-p, saturating to Unknown if either operand is Unknown or if
// the subtraction would underflow (p > o).
func (o Offset) Sub(p Offset) Offset {
	if o == Unknown || p == Unknown || p > o {
		return Unknown
	}
	return o - p
}

// Less reports whether o orders before p, treating Unknown as the maximum.
func (o Offset) Less(p Offset) bool {
	return o < p
}

// Max returns the greater of o and p under Offset's ordering.
func Max(o, p Offset) Offset {
	if o.Less(p) {
		return p
	}
	return o
}

// Min returns the lesser of o and p under Offset's ordering.
func Min(o, p Offset) Offset {
	if p.Less(o) {
		return p
	}
	return o
}

func (o Offset) String() string {
	if o == Unknown {
		return "<unknown>"
	}
	return fmt.Sprintf("%d", uint64(o))
}
