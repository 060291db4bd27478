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

// Package lex tokenizes Smalltalk method source text.
package lex

// Kind enumerates the token kinds the lexer produces.
type Kind int

const (
	NameConst  Kind = iota // bare identifier
	NameColon              // identifier followed by ':'
	IntConst               // integer literal
	FloatConst             // floating point literal
	CharConst              // $x
	SymConst               // #name
	ArrayBegin             // #(
	StrConst               // 'string'
	Binary                 // operator or single punctuation
	Closing                // one of . ] ) [ ( } ; " |
	InputEnd
)

func (k Kind) String() string {
	switch k {
	case NameConst:
		return "NameConst"
	case NameColon:
		return "NameColon"
	case IntConst:
		return "IntConst"
	case FloatConst:
		return "FloatConst"
	case CharConst:
		return "CharConst"
	case SymConst:
		return "SymConst"
	case ArrayBegin:
		return "ArrayBegin"
	case StrConst:
		return "StrConst"
	case Binary:
		return "Binary"
	case Closing:
		return "Closing"
	case InputEnd:
		return "InputEnd"
	}
	return "?"
}

// Token is one lexeme: kind plus whichever of String/Int/Float is
// populated for that kind.
type Token struct {
	Kind   Kind
	String string
	Int    int64
	Float  float64
	Pos    int // byte offset of the token's first character
}
