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

// Package compile implements the source-to-bytecode compiler:
// a recursive-descent parser and a one-pass code generator.
package compile

// Node is a parsed method body term, one struct type per grammar production.
type Node interface{ node() }

// Ident is a bare identifier reference (self, super, a temp/arg/ivar name,
// or an unbound global).
type Ident struct {
	Name string
	Pos  int
}

// IntLit, FloatLit, CharLit and StrLit are literal constants.
type IntLit struct {
	Value int64
	Pos   int
}
type FloatLit struct {
	Value float64
	Pos   int
}
type CharLit struct {
	Value byte
	Pos   int
}
type StrLit struct {
	Value string
	Pos   int
}

// SymLit is a #symbol literal.
type SymLit struct {
	Name string
	Pos  int
}

// ArrayLit is a #( ... ) literal array; its elements are themselves
// literal nodes (numbers, symbols, strings, nested arrays).
type ArrayLit struct {
	Elements []Node
	Pos      int
}

// Assign is `name := expr`.
type Assign struct {
	Name  string
	Value Node
	Pos   int
}

// Return is `^ expr`.
type Return struct {
	Value Node
	Pos   int
}

// UnarySend is `receiver selector`.
type UnarySend struct {
	Receiver Node
	Selector string
	Super    bool
	Pos      int
}

// BinarySend is `receiver op arg`.
type BinarySend struct {
	Receiver Node
	Op       string
	Arg      Node
	Super    bool
	Pos      int
}

// KeywordSend is `receiver kw1: a1 kw2: a2 ...`.
type KeywordSend struct {
	Receiver Node
	Selector string // concatenated keyword parts, e.g. "at:put:"
	Args     []Node
	Super    bool
	Pos      int
}

// Block is `[ :a :b | temps | statements ]`.
type Block struct {
	Params       []string
	Temporaries  []string
	Statements   []Node
	Pos          int
}

func (*Ident) node()       {}
func (*IntLit) node()      {}
func (*FloatLit) node()    {}
func (*CharLit) node()     {}
func (*StrLit) node()      {}
func (*SymLit) node()      {}
func (*ArrayLit) node()    {}
func (*Assign) node()      {}
func (*Return) node()      {}
func (*UnarySend) node()   {}
func (*BinarySend) node()  {}
func (*KeywordSend) node() {}
func (*Block) node()       {}

// MethodSource is a parsed method: its message pattern, temporaries, and
// body statements, ready for code generation.
type MethodSource struct {
	Selector    string
	Params      []string
	Temporaries []string
	Statements  []Node
}
