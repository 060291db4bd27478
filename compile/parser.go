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

package compile

import (
	"sync"

	"github.com/tinystalk/tinystalk/lex"
	"github.com/tinystalk/tinystalk/vmerr"
)

// parser holds all compile-time state for one method parse, grouped into
// one structure so grammar functions can take it by mutable borrow instead
// of reaching for package-level globals. Pooled via sync.Pool so repeated
// method compilation doesn't allocate a fresh parser every time.
type parser struct {
	lx  *lex.Lexer
	cur lex.Token
	err *vmerr.CompileError
}

var parserPool = sync.Pool{
	New: func() interface{} { return &parser{} },
}

func newParser(src []byte) *parser {
	p := parserPool.Get().(*parser)
	p.lx = lex.New(src)
	p.err = nil
	p.advance()
	return p
}

func dropParser(p *parser) {
	p.lx = nil
	parserPool.Put(p)
}

// ParseMethod parses a complete method definition: message pattern,
// optional temporaries, and statement body.
//
// On a syntax error the poison flag is set: the returned MethodSource is
// nil and err is non-nil -- codegen.go's CompileMethod is what actually nils
// the bytecodes slot; here we simply fail to produce a MethodSource for
// it to operate on.
func ParseMethod(src []byte) (*MethodSource, *vmerr.CompileError) {
	p := newParser(src)
	defer dropParser(p)

	selector, params := p.parsePattern()
	if p.err != nil {
		return nil, p.err
	}
	temps := p.parseTemporaries()
	if p.err != nil {
		return nil, p.err
	}
	stmts := p.parseStatements(lex.InputEnd)
	if p.err != nil {
		return nil, p.err
	}
	return &MethodSource{Selector: selector, Params: params, Temporaries: temps, Statements: stmts}, nil
}

// ParseBlockBody parses src as a bare statement sequence, the form a
// block body takes after its optional `:a :b |` parameter list. parseBlock
// does not call it; it parses block bodies in place.
func ParseBlockBody(src []byte) ([]Node, *vmerr.CompileError) {
	p := newParser(src)
	defer dropParser(p)
	stmts := p.parseStatements(lex.InputEnd)
	if p.err != nil {
		return nil, p.err
	}
	return stmts, nil
}

func (p *parser) fail(selector, message string) {
	if p.err == nil {
		p.err = &vmerr.CompileError{Selector: selector, Message: message}
	}
}

func (p *parser) advance() {
	if p.err != nil {
		return
	}
	tok, err := p.lx.Next()
	if err != nil {
		p.fail("<lex>", err.Error())
		return
	}
	p.cur = tok
}

func (p *parser) expectClosing(s string) {
	if p.err != nil {
		return
	}
	if p.cur.Kind != lex.Closing || p.cur.String != s {
		p.fail("<parse>", "expected '"+s+"'")
		return
	}
	p.advance()
}

// parsePattern parses the message pattern: unary, binary, or keyword.
func (p *parser) parsePattern() (string, []string) {
	switch p.cur.Kind {
	case lex.NameConst:
		sel := p.cur.String
		p.advance()
		return sel, nil
	case lex.Binary:
		op := p.cur.String
		p.advance()
		if p.cur.Kind != lex.NameConst {
			p.fail(op, "binary method pattern requires one argument name")
			return op, nil
		}
		arg := p.cur.String
		p.advance()
		return op, []string{arg}
	case lex.NameColon:
		var selector string
		var params []string
		for p.cur.Kind == lex.NameColon {
			selector += p.cur.String
			p.advance()
			if p.cur.Kind != lex.NameConst {
				p.fail(selector, "keyword method pattern requires an argument name")
				return selector, params
			}
			params = append(params, p.cur.String)
			p.advance()
		}
		return selector, params
	default:
		p.fail("<parse>", "malformed message pattern")
		return "", nil
	}
}

// parseTemporaries parses an optional `| t1 t2 ... |` temporaries
// declaration.
func (p *parser) parseTemporaries() []string {
	if p.cur.Kind != lex.Closing || p.cur.String != "|" {
		return nil
	}
	p.advance()
	var names []string
	for p.cur.Kind == lex.NameConst {
		names = append(names, p.cur.String)
		p.advance()
	}
	p.expectClosing("|")
	return names
}

// parseStatements parses `stmt ('.' stmt)* '.'?` up to one of the closing
// tokens in stop (InputEnd for a method body, ']' for a block body).
func (p *parser) parseStatements(stop lex.Kind) []Node {
	var stmts []Node
	for p.err == nil {
		if p.atEnd(stop) {
			break
		}
		stmts = append(stmts, p.parseStatement())
		if p.err != nil {
			break
		}
		if p.cur.Kind == lex.Closing && p.cur.String == "." {
			p.advance()
			continue
		}
		break
	}
	return stmts
}

func (p *parser) atEnd(stop lex.Kind) bool {
	if p.cur.Kind == lex.InputEnd {
		return true
	}
	if stop == lex.Closing && p.cur.Kind == lex.Closing && p.cur.String == "]" {
		return true
	}
	return false
}

func (p *parser) parseStatement() Node {
	if p.cur.Kind == lex.Binary && p.cur.String == "^" {
		pos := p.cur.Pos
		p.advance()
		return &Return{Value: p.parseExpression(), Pos: pos}
	}
	return p.parseExpression()
}

// parseExpression parses an assignment or a keyword-message expression.
func (p *parser) parseExpression() Node {
	if p.cur.Kind == lex.NameConst {
		save := *p.lx
		name := p.cur.String
		pos := p.cur.Pos
		p.advance()
		if p.cur.Kind == lex.Binary && p.cur.String == ":=" {
			p.advance()
			return &Assign{Name: name, Value: p.parseExpression(), Pos: pos}
		}
		*p.lx = save
		p.cur = lex.Token{Kind: lex.NameConst, String: name, Pos: pos}
	}
	return p.parseKeywordExpr()
}

func (p *parser) parseKeywordExpr() Node {
	recv := p.parseBinaryExpr()
	if p.cur.Kind != lex.NameColon {
		return recv
	}
	pos := p.cur.Pos
	var selector string
	var args []Node
	for p.cur.Kind == lex.NameColon {
		selector += p.cur.String
		p.advance()
		args = append(args, p.parseBinaryExpr())
	}
	super := false
	if id, ok := recv.(*Ident); ok && id.Name == "super" {
		super = true
	}
	return &KeywordSend{Receiver: recv, Selector: selector, Args: args, Super: super, Pos: pos}
}

func (p *parser) parseBinaryExpr() Node {
	recv := p.parseUnaryExpr()
	for p.cur.Kind == lex.Binary && p.cur.String != ":=" {
		pos := p.cur.Pos
		op := p.cur.String
		p.advance()
		arg := p.parseUnaryExpr()
		super := false
		if id, ok := recv.(*Ident); ok && id.Name == "super" {
			super = true
		}
		recv = &BinarySend{Receiver: recv, Op: op, Arg: arg, Super: super, Pos: pos}
	}
	return recv
}

func (p *parser) parseUnaryExpr() Node {
	recv := p.parsePrimary()
	for p.cur.Kind == lex.NameConst {
		pos := p.cur.Pos
		sel := p.cur.String
		p.advance()
		super := false
		if id, ok := recv.(*Ident); ok && id.Name == "super" {
			super = true
		}
		recv = &UnarySend{Receiver: recv, Selector: sel, Super: super, Pos: pos}
	}
	return recv
}

func (p *parser) parsePrimary() Node {
	tok := p.cur
	switch tok.Kind {
	case lex.NameConst:
		p.advance()
		return &Ident{Name: tok.String, Pos: tok.Pos}
	case lex.IntConst:
		p.advance()
		return &IntLit{Value: tok.Int, Pos: tok.Pos}
	case lex.FloatConst:
		p.advance()
		return &FloatLit{Value: tok.Float, Pos: tok.Pos}
	case lex.CharConst:
		p.advance()
		return &CharLit{Value: tok.String[0], Pos: tok.Pos}
	case lex.StrConst:
		p.advance()
		return &StrLit{Value: tok.String, Pos: tok.Pos}
	case lex.SymConst:
		p.advance()
		return &SymLit{Name: tok.String, Pos: tok.Pos}
	case lex.ArrayBegin:
		p.advance()
		return p.parseArrayLiteral(tok.Pos)
	case lex.Closing:
		switch tok.String {
		case "(":
			p.advance()
			e := p.parseExpression()
			p.expectClosing(")")
			return e
		case "[":
			p.advance()
			return p.parseBlock(tok.Pos)
		}
	}
	p.fail("<parse>", "unexpected token")
	return &Ident{Name: "nil", Pos: tok.Pos}
}

func (p *parser) parseArrayLiteral(pos int) Node {
	var elems []Node
	for {
		if p.cur.Kind == lex.Closing && p.cur.String == ")" {
			p.advance()
			break
		}
		if p.cur.Kind == lex.InputEnd {
			p.fail("<parse>", "unterminated literal array")
			break
		}
		elems = append(elems, p.parseArrayElement())
		if p.err != nil {
			break
		}
	}
	return &ArrayLit{Elements: elems, Pos: pos}
}

// parseArrayElement parses one element of a #( ... ) literal array:
// numbers, strings, characters, symbols, bare identifiers (read as
// symbols), and nested literal arrays -- everything in a literal array is
// itself a literal, never an expression.
func (p *parser) parseArrayElement() Node {
	tok := p.cur
	switch tok.Kind {
	case lex.IntConst:
		p.advance()
		return &IntLit{Value: tok.Int, Pos: tok.Pos}
	case lex.FloatConst:
		p.advance()
		return &FloatLit{Value: tok.Float, Pos: tok.Pos}
	case lex.CharConst:
		p.advance()
		return &CharLit{Value: tok.String[0], Pos: tok.Pos}
	case lex.StrConst:
		p.advance()
		return &StrLit{Value: tok.String, Pos: tok.Pos}
	case lex.SymConst:
		p.advance()
		return &SymLit{Name: tok.String, Pos: tok.Pos}
	case lex.NameConst, lex.NameColon, lex.Binary:
		name := tok.String
		p.advance()
		for p.cur.Kind == lex.NameColon {
			name += p.cur.String
			p.advance()
		}
		return &SymLit{Name: name, Pos: tok.Pos}
	case lex.ArrayBegin:
		p.advance()
		return p.parseArrayLiteral(tok.Pos)
	case lex.Closing:
		if tok.String == "(" {
			p.advance()
			return p.parseArrayLiteral(tok.Pos)
		}
	}
	p.fail("<parse>", "malformed literal array element")
	return &IntLit{Pos: tok.Pos}
}

func (p *parser) parseBlock(pos int) Node {
	var params []string
	// Block parameters are written `:name`, which the lexer tokenizes as
	// Binary(":") followed by NameConst(name).
	for p.cur.Kind == lex.Binary && p.cur.String == ":" {
		p.advance()
		if p.cur.Kind != lex.NameConst {
			p.fail("<parse>", "malformed block parameter")
			break
		}
		params = append(params, p.cur.String)
		p.advance()
	}
	if len(params) > 0 {
		if p.cur.Kind != lex.Closing || p.cur.String != "|" {
			p.fail("<parse>", "expected '|' after block parameters")
		} else {
			p.advance()
		}
	}
	temps := p.parseTemporaries()
	stmts := p.parseStatements(lex.Closing)
	p.expectClosing("]")
	return &Block{Params: params, Temporaries: temps, Statements: stmts, Pos: pos}
}
