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

package lex

import "testing"

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New([]byte(src))
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next(%q): %v", src, err)
		}
		toks = append(toks, tok)
		if tok.Kind == InputEnd {
			return toks
		}
	}
}

func TestLexNameAndKeyword(t *testing.T) {
	toks := lexAll(t, "foo at: 3")
	want := []Kind{NameConst, NameColon, IntConst, InputEnd}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %s, want %s", i, toks[i].Kind, k)
		}
	}
	if toks[0].String != "foo" {
		t.Errorf("token 0 String = %q, want foo", toks[0].String)
	}
	if toks[1].String != "at:" {
		t.Errorf("token 1 String = %q, want at:", toks[1].String)
	}
	if toks[2].Int != 3 {
		t.Errorf("token 2 Int = %d, want 3", toks[2].Int)
	}
}

func TestLexStringWithEscapedQuote(t *testing.T) {
	toks := lexAll(t, "'it''s'")
	if toks[0].Kind != StrConst || toks[0].String != "it's" {
		t.Errorf("got %+v, want StrConst %q", toks[0], "it's")
	}
}

func TestLexComment(t *testing.T) {
	toks := lexAll(t, `"a comment" 42`)
	if len(toks) != 2 || toks[0].Kind != IntConst || toks[0].Int != 42 {
		t.Errorf("got %+v, want a single IntConst 42 followed by InputEnd", toks)
	}
}

func TestLexSymbolKeyword(t *testing.T) {
	toks := lexAll(t, "#at:put:")
	if toks[0].Kind != SymConst || toks[0].String != "at:put:" {
		t.Errorf("got %+v, want SymConst at:put:", toks[0])
	}
}

func TestLexBinarySelector(t *testing.T) {
	toks := lexAll(t, "3 + 4")
	want := []Kind{IntConst, Binary, IntConst, InputEnd}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %s, want %s", i, toks[i].Kind, k)
		}
	}
	if toks[1].String != "+" {
		t.Errorf("binary token String = %q, want +", toks[1].String)
	}
}

func TestLexFloat(t *testing.T) {
	toks := lexAll(t, "3.14")
	if toks[0].Kind != FloatConst || toks[0].Float != 3.14 {
		t.Errorf("got %+v, want FloatConst 3.14", toks[0])
	}
}

func TestLexMalformedExponentPushesBack(t *testing.T) {
	// "1e" with nothing valid after the exponent marker unwinds so "e" is
	// re-lexed as the start of the next token (an identifier here).
	toks := lexAll(t, "1e foo")
	if toks[0].Kind != IntConst || toks[0].Int != 1 {
		t.Fatalf("first token = %+v, want IntConst 1", toks[0])
	}
	if toks[1].Kind != NameConst || toks[1].String != "e" {
		t.Fatalf("second token = %+v, want NameConst e", toks[1])
	}
	if toks[2].Kind != NameConst || toks[2].String != "foo" {
		t.Fatalf("third token = %+v, want NameConst foo", toks[2])
	}
}

func TestLexRadixInteger(t *testing.T) {
	toks := lexAll(t, "16rFF")
	if toks[0].Kind != IntConst || toks[0].Int != 255 {
		t.Errorf("got %+v, want IntConst 255", toks[0])
	}
}

func TestLexCharConst(t *testing.T) {
	toks := lexAll(t, "$a")
	if toks[0].Kind != CharConst || toks[0].String != "a" {
		t.Errorf("got %+v, want CharConst a", toks[0])
	}
}

func TestLexArrayBegin(t *testing.T) {
	toks := lexAll(t, "#(1 2)")
	if toks[0].Kind != ArrayBegin {
		t.Fatalf("first token = %+v, want ArrayBegin", toks[0])
	}
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	l := New([]byte("'abc"))
	if _, err := l.Next(); err == nil {
		t.Error("expected error for unterminated string literal")
	}
}
