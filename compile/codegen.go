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
	"fmt"
	"math"

	"github.com/tinystalk/tinystalk/oop"
	"github.com/tinystalk/tinystalk/symtab"
	"github.com/tinystalk/tinystalk/vmerr"
)

// Compiler turns a parsed MethodSource into bytecodes and a literal frame
// in one pass, emitting as it walks the AST and back-patching branch
// targets once they're known. It owns no state across methods; callers
// build a fresh Compiler per CompileMethod call.
type Compiler struct {
	mem     *oop.Memory
	symtab  *symtab.Table
	sel     *symtab.SelectorCache
	classes Classes
	class   *ClassInfo

	args   []string // method arguments; argument index i+1 == args[i]
	locals []string // flattened temporaries (method + nested block), searched in reverse

	code      []byte
	literals  []oop.Ref
	selLits   map[string]int // selector symbol literal dedup
	intLits   map[int64]int  // boxed integer literal dedup (outside the small-const range)
	maxStack  int
	curStack  int
	superNext bool // one-shot: next send bytecode is preceded by DoSpecial SendToSuper

	err *vmerr.CompileError
}

// CompileMethod compiles src into a CompiledMethod ready for Install. class
// supplies instance-variable resolution for the method's home class.
func CompileMethod(mem *oop.Memory, st *symtab.Table, sel *symtab.SelectorCache, classes Classes, class *ClassInfo, src *MethodSource) *CompiledMethod {
	c := &Compiler{
		mem:     mem,
		symtab:  st,
		sel:     sel,
		classes: classes,
		class:   class,
		args:    append([]string(nil), src.Params...),
		locals:  append([]string(nil), src.Temporaries...),
		selLits: make(map[string]int),
		intLits: make(map[int64]int),
	}

	selRef, ierr := st.Intern(src.Selector)
	if ierr != nil {
		c.err = &vmerr.CompileError{Selector: src.Selector, Message: "symbol table exhausted", Detail: ierr.Error()}
	}

	if c.err == nil {
		c.compileStatements(src.Statements, true)
	}

	cm := &CompiledMethod{
		Selector:      selRef,
		StackSize:     c.maxStack,
		TemporarySize: len(c.locals),
	}
	if class != nil {
		cm.MethodClass = class.Self
	}
	if c.err == nil {
		cm.Bytecodes = c.code
		cm.Literals = c.literals
	}
	// else: bytecodes stays nil, marking the method poisoned.
	return cm
}

// Err returns the first compile error encountered, or nil.
func (c *Compiler) Err() *vmerr.CompileError { return c.err }

func (c *Compiler) fail(selector, message, detail string) {
	if c.err == nil {
		c.err = &vmerr.CompileError{Selector: selector, Message: message, Detail: detail}
	}
}

// --- stack-depth bookkeeping -------------------------------------------------

func (c *Compiler) push() {
	c.curStack++
	if c.curStack > c.maxStack {
		c.maxStack = c.curStack
	}
}
func (c *Compiler) pop(n int) { c.curStack -= n }

// --- bytecode emission -------------------------------------------------------

// emit appends a single opcode/operand bytecode, using the Extended(0)
// prefix encoding for operands that do not fit in 4 bits.
func (c *Compiler) emit(op Opcode, operand int) {
	if c.superNext && sendsMessage(op) {
		c.code = append(c.code, byte(DoSpecial)<<4|byte(SendToSuper))
		c.superNext = false
	}
	if operand < 16 {
		c.code = append(c.code, byte(op)<<4|byte(operand))
		return
	}
	c.code = append(c.code, byte(Extended)<<4|byte(op), byte(operand))
}

func sendsMessage(op Opcode) bool {
	return op == SendMessage || op == SendUnary || op == SendBinary
}

// emitSpecial appends a DoSpecial bytecode.
func (c *Compiler) emitSpecial(sub int) {
	c.code = append(c.code, byte(DoSpecial)<<4|byte(sub))
}

// emitBranch appends a DoSpecial branch sub-op followed by a placeholder
// target byte, returning the index of that placeholder for later patching.
func (c *Compiler) emitBranch(sub int) int {
	c.emitSpecial(sub)
	c.code = append(c.code, 0)
	return len(c.code) - 1
}

// patch writes the current bytecode position into the placeholder byte at
// pos, as the absolute branch target.
func (c *Compiler) patch(pos int) {
	c.code[pos] = byte(len(c.code))
}

func (c *Compiler) here() int { return len(c.code) }

// --- literal frame ------------------------------------------------------

func (c *Compiler) addLiteral(r oop.Ref) int {
	c.literals = append(c.literals, r)
	return len(c.literals) - 1
}

// literalSelector interns selector and returns its literal-frame index,
// reusing the slot if the same selector was already pushed for an earlier
// send in this method.
func (c *Compiler) literalSelector(selector string) int {
	if idx, ok := c.selLits[selector]; ok {
		return idx
	}
	ref, err := c.symtab.Intern(selector)
	if err != nil {
		c.fail(selector, "symbol table exhausted", err.Error())
		return 0
	}
	idx := c.addLiteral(ref)
	c.selLits[selector] = idx
	return idx
}

func (c *Compiler) literalInt(n int64) int {
	if idx, ok := c.intLits[n]; ok {
		return idx
	}
	idx := c.addLiteral(oop.NewSmallInt(n))
	c.intLits[n] = idx
	return idx
}

func (c *Compiler) literalFloat(f float64) int {
	bits := math.Float64bits(f)
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
	ref, err := c.mem.AllocByte(c.classes.Float, 8)
	if err != nil {
		c.fail("", "out of objects", err.Error())
		return 0
	}
	copy(c.mem.Table.At(ref.Index()).Bytes, buf)
	return c.addLiteral(ref)
}

func (c *Compiler) literalChar(b byte) int {
	ref, err := c.mem.AllocByte(c.classes.Character, 1)
	if err != nil {
		c.fail("", "out of objects", err.Error())
		return 0
	}
	c.mem.Table.At(ref.Index()).Bytes[0] = b
	return c.addLiteral(ref)
}

func (c *Compiler) literalString(s string) int {
	ref, err := c.mem.AllocStr(c.classes.String, s)
	if err != nil {
		c.fail("", "out of objects", err.Error())
		return 0
	}
	return c.addLiteral(ref)
}

func (c *Compiler) literalSymbol(name string) int {
	ref, err := c.symtab.Intern(name)
	if err != nil {
		c.fail(name, "symbol table exhausted", err.Error())
		return 0
	}
	return c.addLiteral(ref)
}

// literalArray builds an Array object from elements (already-compiled
// literal nodes) and returns its literal-frame index.
func (c *Compiler) literalArray(elements []Node) int {
	refs := make([]oop.Ref, len(elements))
	for i, el := range elements {
		refs[i] = c.literalElement(el)
	}
	ref, err := c.mem.AllocObject(c.classes.Array, len(refs))
	if err != nil {
		c.fail("", "out of objects", err.Error())
		return 0
	}
	for i, v := range refs {
		_ = c.mem.BasicAtPut(ref, i+1, v)
	}
	return c.addLiteral(ref)
}

// literalElement evaluates a literal-array element to its object-memory
// reference directly (array literals may only contain other literals),
// without emitting any bytecode.
func (c *Compiler) literalElement(n Node) oop.Ref {
	switch v := n.(type) {
	case *IntLit:
		return oop.NewSmallInt(v.Value)
	case *FloatLit:
		idx := c.literalFloat(v.Value)
		return c.literals[idx]
	case *CharLit:
		idx := c.literalChar(v.Value)
		return c.literals[idx]
	case *StrLit:
		idx := c.literalString(v.Value)
		return c.literals[idx]
	case *SymLit:
		idx := c.literalSymbol(v.Name)
		return c.literals[idx]
	case *ArrayLit:
		idx := c.literalArray(v.Elements)
		return c.literals[idx]
	case *Ident:
		switch v.Name {
		case "nil":
			return oop.Nil
		}
	}
	c.fail("", "invalid literal array element", fmt.Sprintf("%T", n))
	return oop.Nil
}

// --- name resolution -----------------------------------------

// resolveLocal searches locals in reverse order, so an inner (later
// declared, e.g. block-local) temporary shadows an outer one of the same
// name.
func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i] == name {
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) resolveArg(name string) (int, bool) {
	for i, a := range c.args {
		if a == name {
			return i + 1, true // argument 0 is always self/receiver
		}
	}
	return 0, false
}

// --- statement / expression compilation ----------------------------------

// compileStatements compiles a statement sequence separated by ".", adding
// a PopTop between statements to discard their (unused) value. When
// isMethodBody is true and the final statement is not already a Return,
// an implicit "^self" is appended.
func (c *Compiler) compileStatements(stmts []Node, isMethodBody bool) {
	for i, s := range stmts {
		c.compileExpr(s)
		if i != len(stmts)-1 {
			c.emitSpecial(PopTop)
			c.pop(1)
		}
	}
	if !isMethodBody {
		return
	}
	if len(stmts) == 0 {
		c.emitSpecial(SelfReturn)
		return
	}
	if _, ok := stmts[len(stmts)-1].(*Return); ok {
		return
	}
	c.emitSpecial(PopTop)
	c.pop(1)
	c.emitSpecial(SelfReturn)
}

// compileExpr emits code that leaves exactly one value on the stack.
func (c *Compiler) compileExpr(n Node) {
	switch v := n.(type) {
	case *Ident:
		c.compileIdent(v)
	case *IntLit:
		c.compileInt(v.Value)
	case *FloatLit:
		c.emit(PushLiteral, c.literalFloat(v.Value))
		c.push()
	case *CharLit:
		c.emit(PushLiteral, c.literalChar(v.Value))
		c.push()
	case *StrLit:
		c.emit(PushLiteral, c.literalString(v.Value))
		c.push()
	case *SymLit:
		c.emit(PushLiteral, c.literalSymbol(v.Name))
		c.push()
	case *ArrayLit:
		c.emit(PushLiteral, c.literalArray(v.Elements))
		c.push()
	case *Assign:
		c.compileAssign(v)
	case *Return:
		c.compileReturn(v)
	case *Block:
		c.compileBlockLiteral(v)
	case *UnarySend:
		c.compileUnarySend(v)
	case *BinarySend:
		c.compileBinarySend(v)
	case *KeywordSend:
		c.compileKeywordSend(v)
	default:
		c.fail("", "unsupported expression", fmt.Sprintf("%T", n))
	}
}

func (c *Compiler) compileIdent(id *Ident) {
	switch id.Name {
	case "self", "super":
		c.emit(PushArgument, 0)
		c.push()
		return
	case "nil":
		c.emit(PushConstant, ConstNil)
		c.push()
		return
	case "true":
		c.emit(PushConstant, ConstTrue)
		c.push()
		return
	case "false":
		c.emit(PushConstant, ConstFalse)
		c.push()
		return
	case "currentInterpreter":
		// No reserved PushConstant id exists for this pseudo-constant
		//: fall through to the
		// late-bound global lookup of step 6, same as any other name
		// that clears steps 1-5 without a match.
	default:
		if idx, ok := c.resolveLocal(id.Name); ok {
			c.emit(PushTemporary, idx)
			c.push()
			return
		}
		if idx, ok := c.resolveArg(id.Name); ok {
			c.emit(PushArgument, idx)
			c.push()
			return
		}
		if c.class != nil {
			if idx, ok := c.class.InstVarIndex(id.Name); ok {
				c.emit(PushInstance, idx)
				c.push()
				return
			}
		}
	}
	// step 6: push the name as a symbol literal and send value.
	c.emit(PushLiteral, c.literalSymbol(id.Name))
	c.push()
	c.emitSend("value", 0, false)
}

func (c *Compiler) compileInt(n int64) {
	switch n {
	case 0:
		c.emit(PushConstant, ConstZero)
	case 1:
		c.emit(PushConstant, ConstOne)
	case 2:
		c.emit(PushConstant, ConstTwo)
	case -1:
		c.emit(PushConstant, ConstMinusOne)
	default:
		c.emit(PushLiteral, c.literalInt(n))
	}
	c.push()
}

func (c *Compiler) compileAssign(a *Assign) {
	c.compileExpr(a.Value)
	if idx, ok := c.resolveLocal(a.Name); ok {
		c.emit(AssignTemporary, idx)
		return
	}
	if c.class != nil {
		if idx, ok := c.class.InstVarIndex(a.Name); ok {
			c.emit(AssignInstance, idx)
			return
		}
	}
	c.fail(a.Name, "assignment to unknown variable", "")
}

func (c *Compiler) compileReturn(r *Return) {
	if id, ok := r.Value.(*Ident); ok && id.Name == "self" {
		c.emitSpecial(SelfReturn)
		return
	}
	c.compileExpr(r.Value)
	c.emitSpecial(StackReturn)
	c.pop(1)
}

// compileBlockLiteral emits a block as a template Block object (literal)
// plus its inline bytecodes, which the compiler skips at runtime with an
// unconditional Branch: the block is reachable only by
// entering at its recorded bytecodePosition once primitive 29 has bound it
// to the current context.
func (c *Compiler) compileBlockLiteral(b *Block) {
	branchPos := c.emitBranch(Branch)
	bodyStart := c.here()

	savedLocals := len(c.locals)
	argLoc := len(c.locals)
	c.locals = append(c.locals, b.Params...)
	c.locals = append(c.locals, b.Temporaries...)

	savedStack := c.curStack
	c.curStack = 0
	c.compileStatements(b.Statements, false)
	if len(b.Statements) == 0 {
		c.emit(PushConstant, ConstNil)
		c.push()
	}
	// A block that falls off its end, rather than executing an explicit
	// ^, answers its last statement's value to whoever sent it #value.
	// That is a different unwind target than an explicit ^ deep inside a
	// block, which always performs a non-local return to the block's
	// home method -- so the two need distinct bytecodes (BlockReturn vs
	// StackReturn) even though source-level a trailing expression and a
	// trailing ^expr look almost the same.
	lastIsReturn := false
	if n := len(b.Statements); n > 0 {
		_, lastIsReturn = b.Statements[n-1].(*Return)
	}
	if !lastIsReturn {
		c.emitSpecial(BlockReturn)
	}
	c.curStack = savedStack
	c.locals = c.locals[:savedLocals]

	c.patch(branchPos)

	blockRef, err := c.mem.AllocObject(c.classes.Block, 4)
	if err != nil {
		c.fail("", "out of objects", err.Error())
		return
	}
	_ = c.mem.BasicAtPut(blockRef, 1, oop.Nil) // definingContext: bound at closure time
	_ = c.mem.BasicAtPut(blockRef, 2, oop.NewSmallInt(int64(len(b.Params))))
	_ = c.mem.BasicAtPut(blockRef, 3, oop.NewSmallInt(int64(argLoc)))
	_ = c.mem.BasicAtPut(blockRef, 4, oop.NewSmallInt(int64(bodyStart)))
	litIdx := c.addLiteral(blockRef)

	c.emit(PushConstant, ConstContext)
	c.push()
	c.emit(PushLiteral, litIdx)
	c.push()
	c.emitPrimitive(2, 29)
	c.pop(2)
	c.push()
}

// emitPrimitive emits DoPrimitive with the given argument count and
// primitive number.
func (c *Compiler) emitPrimitive(argCount, primitive int) {
	c.emit(DoPrimitive, argCount)
	c.code = append(c.code, byte(primitive))
}

func (c *Compiler) compileUnarySend(u *UnarySend) {
	c.compileExpr(u.Receiver)
	c.emitSend(u.Selector, 0, u.Super)
}

func (c *Compiler) compileBinarySend(b *BinarySend) {
	c.compileExpr(b.Receiver)
	c.compileExpr(b.Arg)
	c.emitSend(b.Op, 1, b.Super)
}

func (c *Compiler) compileKeywordSend(k *KeywordSend) {
	if !k.Super {
		if c.tryInlineKeyword(k) {
			return
		}
	}
	c.compileExpr(k.Receiver)
	for _, a := range k.Args {
		c.compileExpr(a)
	}
	c.emitSend(k.Selector, len(k.Args), k.Super)
}

// emitSend chooses the cheapest encoding available for selector: the
// canonical SendUnary/SendBinary fast paths when it matches a fixed
// selector table entry, otherwise MarkArguments+SendMessage.
func (c *Compiler) emitSend(selector string, argCount int, super bool) {
	if super {
		c.superNext = true
	}
	if !super && argCount == 0 {
		if idx, ok := c.sel.Unary(selector); ok {
			c.emit(SendUnary, idx)
			c.pop(1)
			c.push()
			return
		}
	}
	if !super && argCount == 1 {
		if idx, ok := c.sel.Binary(selector); ok {
			c.emit(SendBinary, idx)
			c.pop(2)
			c.push()
			return
		}
	}
	c.emit(MarkArguments, 1+argCount)
	c.emit(SendMessage, c.literalSelector(selector))
	c.pop(1 + argCount)
	c.push()
}

// --- inlined control-flow sends --

// tryInlineKeyword recognizes ifTrue:/ifFalse:/ifTrue:ifFalse:/
// ifFalse:ifTrue:/whileTrue:/and:/or: sent with literal Block arguments and
// compiles them as branch instructions with the block bodies inlined,
// avoiding closure allocation. It reports whether it handled k.
func (c *Compiler) tryInlineKeyword(k *KeywordSend) bool {
	switch k.Selector {
	case "ifTrue:":
		if blk, ok := soleBlockArg(k.Args); ok {
			c.compileExpr(k.Receiver)
			c.pop(1)
			c.inlineIf(blk, nil)
			return true
		}
	case "ifFalse:":
		if blk, ok := soleBlockArg(k.Args); ok {
			c.compileExpr(k.Receiver)
			c.pop(1)
			c.inlineIf(nil, blk)
			return true
		}
	case "ifTrue:ifFalse:":
		if len(k.Args) == 2 {
			if t, ok1 := k.Args[0].(*Block); ok1 {
				if f, ok2 := k.Args[1].(*Block); ok2 && len(t.Params) == 0 && len(f.Params) == 0 {
					c.compileExpr(k.Receiver)
					c.pop(1)
					c.inlineIf(t, f)
					return true
				}
			}
		}
	case "ifFalse:ifTrue:":
		if len(k.Args) == 2 {
			if f, ok1 := k.Args[0].(*Block); ok1 {
				if t, ok2 := k.Args[1].(*Block); ok2 && len(t.Params) == 0 && len(f.Params) == 0 {
					c.compileExpr(k.Receiver)
					c.pop(1)
					c.inlineIf(t, f)
					return true
				}
			}
		}
	case "whileTrue:":
		if cond, ok := k.Receiver.(*Block); ok && len(cond.Params) == 0 {
			if body, ok := soleBlockArg(k.Args); ok {
				c.inlineWhile(cond, body)
				return true
			}
		}
	case "and:":
		if blk, ok := soleBlockArg(k.Args); ok {
			c.compileExpr(k.Receiver)
			c.pop(1)
			c.inlineShortCircuit(blk, AndBranch)
			return true
		}
	case "or:":
		if blk, ok := soleBlockArg(k.Args); ok {
			c.compileExpr(k.Receiver)
			c.pop(1)
			c.inlineShortCircuit(blk, OrBranch)
			return true
		}
	}
	return false
}

func soleBlockArg(args []Node) (*Block, bool) {
	if len(args) != 1 {
		return nil, false
	}
	b, ok := args[0].(*Block)
	if !ok || len(b.Params) != 0 {
		return nil, false
	}
	return b, true
}

// inlineIf compiles `receiver ifTrue:...ifFalse:...` once the receiver's
// value is already on the stack. Exactly one of trueBlk/falseBlk may be
// nil, in which case that branch answers nil.
func (c *Compiler) inlineIf(trueBlk, falseBlk *Block) {
	falseJump := c.emitBranch(BranchIfFalse)
	if trueBlk != nil {
		c.compileInlineBody(trueBlk)
	} else {
		c.emit(PushConstant, ConstNil)
		c.push()
	}
	endJump := c.emitBranch(Branch)
	c.patch(falseJump)
	c.pop(1) // the alternate arm starts at the same depth as the taken arm
	if falseBlk != nil {
		c.compileInlineBody(falseBlk)
	} else {
		c.emit(PushConstant, ConstNil)
		c.push()
	}
	c.patch(endJump)
}

// inlineWhile compiles `cond whileTrue: body` as a duplicated condition
// check and an inline loop that branches back.
func (c *Compiler) inlineWhile(cond, body *Block) {
	loopStart := c.here()
	c.compileInlineBody(cond)
	c.pop(1)
	exitJump := c.emitBranch(BranchIfFalse)
	c.compileInlineBody(body)
	c.emitSpecial(PopTop)
	c.pop(1)
	c.emitBranchTo(Branch, loopStart)
	c.patch(exitJump)
	c.emit(PushConstant, ConstNil)
	c.push()
}

// inlineShortCircuit compiles `receiver and: block` / `receiver or: block`
// using the dedicated AndBranch/OrBranch sub-ops, once the
// receiver's boolean value is already on the stack. On the short-circuiting
// outcome (false for and:, true for or:) the sub-op itself re-pushes that
// boolean and jumps past the block; otherwise it pops the receiver and
// falls through to evaluate the block, whose value becomes the result.
func (c *Compiler) inlineShortCircuit(block *Block, sub int) {
	skip := c.emitBranch(sub)
	c.pop(1)
	c.compileInlineBody(block)
	c.patch(skip)
}

// emitBranchTo emits a branch sub-op with a known (already-determined)
// absolute target, for backward jumps like whileTrue:'s loop-back edge.
func (c *Compiler) emitBranchTo(sub, target int) {
	c.emitSpecial(sub)
	c.code = append(c.code, byte(target))
}

// compileInlineBody compiles a 0-argument block's statements directly into
// the surrounding method's code (no Branch wrapper, no Block template):
// used for control-flow bodies that the compiler inlines instead of
// allocating a closure.
func (c *Compiler) compileInlineBody(b *Block) {
	savedLocals := len(c.locals)
	c.locals = append(c.locals, b.Temporaries...)
	if len(b.Statements) == 0 {
		c.emit(PushConstant, ConstNil)
		c.push()
	} else {
		for i, s := range b.Statements {
			c.compileExpr(s)
			if i != len(b.Statements)-1 {
				c.emitSpecial(PopTop)
				c.pop(1)
			}
		}
	}
	c.locals = c.locals[:savedLocals]
}
