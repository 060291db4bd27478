// Copyright (C) 2026 tinystalk Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package oop implements the tagged-reference object memory: the object
// table, the reference-counted allocator, and tagged small integers.
package oop

import "math"

// Ref is a single machine-word tagged value: either a small integer or an
// index into the object table.
//
// Encoding:
//   - negative values, or values with the low bit set, encode a small
//     integer directly: negative values are literal; positive values
//     encode n as (n<<1)|1.
//   - otherwise the value is an even non-negative index*2 into the object
//     table. Index 0 is reserved for Nil.
type Ref int64

// Nil is the distinguished nil reference: object-table index 0.
const Nil Ref = 0

// MaxSmallInt and MinSmallInt bound the representable tagged integers.
const (
	MaxSmallInt = math.MaxInt64 >> 1
	MinSmallInt = math.MinInt64
)

// IsInteger reports whether r is a tagged small integer rather than an
// object-table reference.
func (r Ref) IsInteger() bool {
	return r < 0 || r&1 == 1
}

// NewSmallInt builds the tagged reference for the integer n.
//
// Negative n is stored literally (it already has properties that make it
// distinguishable: it is negative). Non-negative n is stored as (n<<1)|1.
func NewSmallInt(n int64) Ref {
	if n < 0 {
		return Ref(n)
	}
	return Ref((n << 1) | 1)
}

// IntValue extracts the integer value of a tagged small integer reference.
// The caller must have already checked IsInteger.
func IntValue(r Ref) int64 {
	if r < 0 {
		return int64(r)
	}
	return int64(r) >> 1
}

// FromIndex builds an object-table reference from a table index.
func FromIndex(idx int) Ref {
	return Ref(idx) * 2
}

// Index returns the object-table index encoded by r. The caller must have
// already checked !r.IsInteger().
func (r Ref) Index() int {
	return int(r / 2)
}

// IsNil reports whether r is the distinguished nil reference.
func (r Ref) IsNil() bool {
	return r == Nil
}
