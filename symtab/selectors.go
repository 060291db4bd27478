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

package symtab

import (
	"github.com/dchest/siphash"
)

// UnarySelectors and BinarySelectors are the canonical selector tables
// (unSyms/binSyms) indexed by the compiler's SendUnary/SendBinary
// bytecodes.
var (
	UnarySelectors = []string{
		"isNil", "notNil", "value", "class", "size", "printString",
		"new", "yourself", "not", "first", "last", "empty",
	}
	BinarySelectors = []string{
		"+", "-", "*", "/", "//", "\\\\",
		"<", ">", "<=", ">=", "=", "~=", "==",
		"@", ",", "at:",
	}
)

// selectorKey is the fixed siphash key used to hash canonical selectors
// for the fast-path cache below. It is a build-time constant, not a
// secret: the cache only needs a cheap, well-distributed hash over
// short byte strings.
var selectorKey0, selectorKey1 uint64 = 0x746e7953, 0x6c616b74 // little-endian ASCII "Synt" "tkal" (friendly fixed seed)

// SelectorCache accelerates the compiler's fixed-selector-table match
// with a siphash-keyed index instead of a linear scan over
// UnarySelectors/BinarySelectors on every send.
type SelectorCache struct {
	unary  map[uint64]int
	binary map[uint64]int
}

// NewSelectorCache builds the cache from UnarySelectors and BinarySelectors.
func NewSelectorCache() *SelectorCache {
	c := &SelectorCache{
		unary:  make(map[uint64]int, len(UnarySelectors)),
		binary: make(map[uint64]int, len(BinarySelectors)),
	}
	for i, s := range UnarySelectors {
		c.unary[hashSelector(s)] = i
	}
	for i, s := range BinarySelectors {
		c.binary[hashSelector(s)] = i
	}
	return c
}

func hashSelector(s string) uint64 {
	return siphash.Hash(selectorKey0, selectorKey1, []byte(s))
}

// Unary returns the SendUnary operand for selector, or (0, false) if it is
// not one of the canonical unary selectors.
func (c *SelectorCache) Unary(selector string) (int, bool) {
	i, ok := c.unary[hashSelector(selector)]
	if !ok || UnarySelectors[i] != selector {
		return 0, false
	}
	return i, true
}

// Binary returns the SendBinary operand for selector, or (0, false) if it
// is not one of the canonical binary selectors.
func (c *SelectorCache) Binary(selector string) (int, bool) {
	i, ok := c.binary[hashSelector(selector)]
	if !ok || BinarySelectors[i] != selector {
		return 0, false
	}
	return i, true
}
