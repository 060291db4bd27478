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

package interp

import (
	"github.com/tinystalk/tinystalk/compile"
	"github.com/tinystalk/tinystalk/oop"
	"github.com/tinystalk/tinystalk/symtab"
	"github.com/tinystalk/tinystalk/vmerr"
)

// blockBindPrimitive is the primitive number compileBlockLiteral emits to
// turn a shared Block template into a closure bound to the current
// context. It is intercepted directly by the interpreter
// rather than routed through PrimitiveFunc: unlike the other numbered
// primitives it has no receiver and needs access to the interpreter's
// context bookkeeping.
const blockBindPrimitive = 29

// PrimitiveFunc is the bridge between interp and the primitive package.
// interp cannot import primitive (primitive needs the VM type to
// implement process- and context-manipulating primitives), so VM holds a
// value of this type instead, wired up by whatever builds the VM.
type PrimitiveFunc func(vm *VM, proc *Process, receiver oop.Ref, args []oop.Ref, num int) (oop.Ref, bool)

// Globals holds the singleton objects the interpreter must recognize by
// identity: the two Boolean instances.
type Globals struct {
	True  oop.Ref
	False oop.Ref
}

// VM is the shared interpreter state: the object memory, the class tags
// it needs to recognize at dispatch time, and the primitive table hook.
// One VM can run many Processes.
type VM struct {
	mem     *oop.Memory
	symtab  *symtab.Table
	classes Classes
	globals Globals

	unarySelectorRefs  []oop.Ref
	binarySelectorRefs []oop.Ref
	valueSelectors     map[oop.Ref]bool
	dnuSelector        oop.Ref
	errorSelector      oop.Ref

	// ctxFrames maps a materialized Context object to the live Frame it
	// was built from. A block's definingContext slot holds the Context
	// ref; activating the block looks up this map to find the Frame it
	// should resume in. The entry is removed when that frame returns, so
	// a later lookup miss means the defining context is gone.
	ctxFrames map[oop.Ref]*Frame

	Primitives PrimitiveFunc

	// Interrupt is polled at each bytecode boundary: it
	// reports a pending VM-block-queue entry to run synchronously on the
	// current process, as though #value had been sent to it.
	Interrupt func() (oop.Ref, bool)

	Errors *vmerr.Reporter
}

// NewVM builds a VM ready to run bytecodes. It resolves every canonical
// unary/binary selector once up front, so SendUnary/SendBinary never
// intern a string at send time; compile.Compiler's SelectorCache performs
// the analogous lookup at compile time, by index rather than by name.
func NewVM(mem *oop.Memory, st *symtab.Table, classes Classes, globals Globals, errors *vmerr.Reporter) (*VM, error) {
	vm := &VM{
		mem:       mem,
		symtab:    st,
		classes:   classes,
		globals:   globals,
		ctxFrames: make(map[oop.Ref]*Frame),
		Errors:    errors,
	}
	vm.unarySelectorRefs = make([]oop.Ref, len(symtab.UnarySelectors))
	for i, name := range symtab.UnarySelectors {
		ref, err := st.Intern(name)
		if err != nil {
			return nil, err
		}
		vm.unarySelectorRefs[i] = ref
	}
	vm.binarySelectorRefs = make([]oop.Ref, len(symtab.BinarySelectors))
	for i, name := range symtab.BinarySelectors {
		ref, err := st.Intern(name)
		if err != nil {
			return nil, err
		}
		vm.binarySelectorRefs[i] = ref
	}
	vm.valueSelectors = make(map[oop.Ref]bool, 5)
	for _, name := range []string{"value", "value:", "value:value:", "value:value:value:", "valueWithArguments:"} {
		ref, err := st.Intern(name)
		if err != nil {
			return nil, err
		}
		vm.valueSelectors[ref] = true
	}
	dnu, err := st.Intern("doesNotUnderstand:")
	if err != nil {
		return nil, err
	}
	vm.dnuSelector = dnu
	errSel, err := st.Intern("error:")
	if err != nil {
		return nil, err
	}
	vm.errorSelector = errSel
	return vm, nil
}

// Memory, Symtab and Classes expose the state a primitive implementation
// needs. primitive cannot reach VM's unexported fields directly since it
// is wired in only as a PrimitiveFunc value, never imported by interp.
func (vm *VM) Memory() *oop.Memory   { return vm.mem }
func (vm *VM) Symtab() *symtab.Table { return vm.symtab }
func (vm *VM) Classes() Classes      { return vm.classes }
func (vm *VM) Globals() Globals      { return vm.globals }

// SetMemory repoints the interpreter at a freshly loaded object memory
//, discarding any live Frame/Process state, which
// cannot survive a load anyway since it is pure Go state with no image
// representation; ctxFrames starts empty. Every oop.Ref the VM already
// holds (Classes, Globals) stays valid against the new memory because image.Read installs each
// record at its original table index.
func (vm *VM) SetMemory(mem *oop.Memory) {
	vm.mem = mem
	vm.ctxFrames = make(map[oop.Ref]*Frame)
}

// NewProcess spawns a process whose only activation runs method with the
// given receiver and arguments.
func (vm *VM) NewProcess(method, receiver oop.Ref, args []oop.Ref, methodClass oop.Ref) (*Process, error) {
	root, err := vm.NewMethodFrame(method, receiver, args, methodClass)
	if err != nil {
		return nil, err
	}
	return NewProcess(root), nil
}

// ActivateBlock runs blockRef as though #value had been sent to it,
// exported for sched and primitive to resume a stored block.
func (vm *VM) ActivateBlock(proc *Process, blockRef oop.Ref, args []oop.Ref) error {
	return vm.activateBlock(proc, blockRef, args)
}

// Send dispatches selector to receiver on proc exactly as a SendMessage
// bytecode would, then runs the resulting activation (and everything it
// calls) to completion before returning, since a caller outside the
// fetch-decode-execute loop -- the perform:-family primitives of
// primitive/control.go -- must answer a single value synchronously rather
// than yielding control back to Execute's loop.
func (vm *VM) Send(proc *Process, receiver, selector oop.Ref, args []oop.Ref) (oop.Ref, error) {
	anchor := proc.top
	if anchor == nil {
		return oop.Nil, vmerr.ErrImageCorrupt
	}
	if err := vm.send(proc, anchor, receiver, selector, args); err != nil {
		return oop.Nil, err
	}
	for proc.top != nil && proc.top != anchor {
		if err := vm.step(proc, proc.top); err != nil {
			return oop.Nil, err
		}
	}
	if proc.top == nil {
		return proc.Result, nil
	}
	return anchor.pop(), nil
}

func (vm *VM) classOf(r oop.Ref) oop.Ref {
	switch {
	case r.IsInteger():
		return vm.classes.SmallInteger
	case r.IsNil():
		return vm.classes.UndefinedObject
	default:
		return vm.mem.ClassOf(r)
	}
}

func (vm *VM) superclassOf(class oop.Ref) oop.Ref {
	s, err := vm.mem.BasicAt(class, classSuperclass)
	if err != nil {
		return oop.Nil
	}
	return s
}

// NewMethodFrame builds the initial activation for running method with
// receiver and args, with no caller.
func (vm *VM) NewMethodFrame(method, receiver oop.Ref, args []oop.Ref, methodClass oop.Ref) (*Frame, error) {
	return vm.newMethodFrame(nil, method, receiver, args, methodClass)
}

func (vm *VM) newMethodFrame(caller *Frame, method, receiver oop.Ref, args []oop.Ref, methodClass oop.Ref) (*Frame, error) {
	bcRef, err := vm.mem.BasicAt(method, methodBytecodes)
	if err != nil {
		return nil, err
	}
	if bcRef.IsNil() {
		return nil, vmerr.ErrImageCorrupt
	}
	bcEntry := vm.mem.Table.At(bcRef.Index())
	if bcEntry == nil {
		return nil, vmerr.ErrImageCorrupt
	}

	litRef, err := vm.mem.BasicAt(method, methodLiterals)
	if err != nil {
		return nil, err
	}
	var literals []oop.Ref
	if !litRef.IsNil() {
		if e := vm.mem.Table.At(litRef.Index()); e != nil {
			literals = e.Slots
		}
	}

	stackSizeRef, err := vm.mem.BasicAt(method, methodStackSize)
	if err != nil {
		return nil, err
	}
	tempSizeRef, err := vm.mem.BasicAt(method, methodTemporarySize)
	if err != nil {
		return nil, err
	}
	stackSize := int(oop.IntValue(stackSizeRef))
	tempSize := int(oop.IntValue(tempSizeRef))

	allArgs := make([]oop.Ref, 1+len(args))
	allArgs[0] = receiver
	copy(allArgs[1:], args)

	finished := new(bool)
	return &Frame{
		caller:       caller,
		method:       method,
		methodClass:  methodClass,
		bytecodes:    bcEntry.Bytes,
		literals:     literals,
		args:         allArgs,
		temps:        make([]oop.Ref, tempSize),
		opstack:      make([]oop.Ref, 0, stackSize),
		homeFinished: finished,
	}, nil
}

// Execute runs proc until it finishes, fails, or maxSteps bytecodes have
// run (maxSteps<=0 means unbounded). It returns true if the process is
// still runnable (ran out of its step budget, not actually finished).
func (vm *VM) Execute(proc *Process, maxSteps int) (runnable bool, err error) {
	steps := 0
	for proc.top != nil {
		if maxSteps > 0 && steps >= maxSteps {
			return true, nil
		}
		if vm.Interrupt != nil {
			if blk, ok := vm.Interrupt(); ok {
				if err := vm.activateBlock(proc, blk, nil); err != nil {
					return false, err
				}
			}
		}
		if proc.top == nil {
			break
		}
		if err := vm.step(proc, proc.top); err != nil {
			return false, err
		}
		steps++
	}
	return false, nil
}

func (vm *VM) step(proc *Process, f *Frame) error {
	b0 := f.nextByte()
	opByte := compile.Op(b0)
	var op compile.Opcode
	var operand int
	if opByte == compile.Extended {
		op = compile.Opcode(b0 & 0x0f)
		operand = int(f.nextByte())
	} else {
		op = opByte
		operand = int(b0 & 0x0f)
	}

	switch op {
	case compile.PushInstance:
		v, err := vm.mem.BasicAt(f.receiver(), operand)
		if err != nil {
			return err
		}
		f.push(v)
	case compile.PushArgument:
		f.push(f.args[operand])
	case compile.PushTemporary:
		f.push(f.temps[operand])
	case compile.PushLiteral:
		f.push(f.literals[operand])
	case compile.PushConstant:
		return vm.pushConstant(f, operand)
	case compile.AssignInstance:
		if err := vm.mem.BasicAtPut(f.receiver(), operand, f.top()); err != nil {
			return err
		}
	case compile.AssignTemporary:
		f.temps[operand] = f.top()
	case compile.MarkArguments:
		f.pendingArgs = operand
	case compile.SendMessage:
		selRef := f.literals[operand]
		items := f.popN(f.pendingArgs)
		return vm.send(proc, f, items[0], selRef, items[1:])
	case compile.SendUnary:
		selRef := vm.unarySelectorRefs[operand]
		recv := f.pop()
		return vm.send(proc, f, recv, selRef, nil)
	case compile.SendBinary:
		selRef := vm.binarySelectorRefs[operand]
		arg := f.pop()
		recv := f.pop()
		return vm.send(proc, f, recv, selRef, []oop.Ref{arg})
	case compile.DoPrimitive:
		return vm.doPrimitive(proc, f, operand)
	case compile.DoSpecial:
		return vm.doSpecial(proc, f, operand)
	}
	return nil
}

func (vm *VM) pushConstant(f *Frame, operand int) error {
	switch operand {
	case compile.ConstZero:
		f.push(oop.NewSmallInt(0))
	case compile.ConstOne:
		f.push(oop.NewSmallInt(1))
	case compile.ConstTwo:
		f.push(oop.NewSmallInt(2))
	case compile.ConstMinusOne:
		f.push(oop.NewSmallInt(-1))
	case compile.ConstContext:
		ctx, err := vm.materializeContext(f)
		if err != nil {
			return err
		}
		vm.ctxFrames[ctx] = f
		f.push(ctx)
	case compile.ConstNil:
		f.push(oop.Nil)
	case compile.ConstTrue:
		f.push(vm.globals.True)
	case compile.ConstFalse:
		f.push(vm.globals.False)
	}
	return nil
}

func (vm *VM) doPrimitive(proc *Process, f *Frame, argCount int) error {
	primNum := int(f.nextByte())
	args := f.popN(argCount)
	if primNum == blockBindPrimitive {
		if len(args) != 2 {
			vm.Errors.Fatal("primitive", "block bind expects 2 arguments")
			return vmerr.ErrImageCorrupt
		}
		result, err := vm.bindBlock(args[0], args[1])
		if err != nil {
			return err
		}
		f.push(result)
		return nil
	}
	if vm.Primitives != nil {
		if result, ok := vm.Primitives(vm, proc, f.receiver(), args, primNum); ok {
			f.push(result)
			return nil
		}
	}
	// Primitive failed or unregistered: fall through to the fallback
	// bytecodes that follow, nothing pushed.
	return nil
}

func (vm *VM) doSpecial(proc *Process, f *Frame, sub int) error {
	switch sub {
	case compile.SelfReturn:
		if f.home != nil {
			// ^ self inside a block returns from the home method.
			return vm.nonLocalReturn(proc, f, f.receiver())
		}
		vm.simpleReturn(proc, f, f.receiver())
	case compile.StackReturn:
		return vm.nonLocalReturn(proc, f, f.pop())
	case compile.BlockReturn:
		vm.simpleReturn(proc, f, f.pop())
	case compile.Duplicate:
		f.push(f.top())
	case compile.PopTop:
		f.pop()
	case compile.Branch:
		target := f.nextByte()
		f.pc = int(target)
	case compile.BranchIfTrue:
		target := f.nextByte()
		b := f.pop()
		ok, err := vm.boolValue(f, b)
		if err != nil {
			return err
		}
		if ok {
			f.pc = int(target)
		}
	case compile.BranchIfFalse:
		target := f.nextByte()
		b := f.pop()
		ok, err := vm.boolValue(f, b)
		if err != nil {
			return err
		}
		if !ok {
			f.pc = int(target)
		}
	case compile.AndBranch:
		target := f.nextByte()
		b := f.pop()
		ok, err := vm.boolValue(f, b)
		if err != nil {
			return err
		}
		if !ok {
			f.push(vm.globals.False)
			f.pc = int(target)
		}
	case compile.OrBranch:
		target := f.nextByte()
		b := f.pop()
		ok, err := vm.boolValue(f, b)
		if err != nil {
			return err
		}
		if ok {
			f.push(vm.globals.True)
			f.pc = int(target)
		}
	case compile.SendToSuper:
		f.superNext = true
	}
	return nil
}

// boolValue interprets r as a Boolean, reporting a fatal error on a
// non-Boolean receiver rather than guessing (there is no mustBeBoolean
// trap in this VM's scope).
func (vm *VM) boolValue(f *Frame, r oop.Ref) (bool, error) {
	switch r {
	case vm.globals.True:
		return true, nil
	case vm.globals.False:
		return false, nil
	default:
		vm.Errors.Fatal("mustBeBoolean", "branch receiver was neither true nor false")
		return false, vmerr.ErrImageCorrupt
	}
}

// simpleReturn pops exactly f and answers value to f's own caller. Used
// by SelfReturn from a method frame (a block frame's SelfReturn goes
// through nonLocalReturn instead) and BlockReturn (a block falling off its end, which answers
// to whoever sent it #value, not to its lexical home).
func (vm *VM) simpleReturn(proc *Process, f *Frame, value oop.Ref) {
	proc.top = f.caller
	if !f.contextObj.IsNil() {
		delete(vm.ctxFrames, f.contextObj)
	}
	if f.homeFinished != nil {
		*f.homeFinished = true
	}
	if proc.top == nil {
		proc.Result = value
		proc.Finished = true
		return
	}
	proc.top.push(value)
}

// nonLocalReturn implements StackReturn: an explicit ^ unwinds every
// frame from the current top down to and including f's home method
// frame, answering value to whatever called that home frame. For a method frame (home==itself) this is the
// same single-frame pop as simpleReturn.
func (vm *VM) nonLocalReturn(proc *Process, f *Frame, value oop.Ref) error {
	target := f.homeFrame()
	if target.homeFinished != nil && *target.homeFinished {
		return vm.signalError(proc, f, f.receiver(), "badReturn", "return from a block whose home context has already finished")
	}
	for proc.top != nil {
		cur := proc.top
		proc.top = cur.caller
		if !cur.contextObj.IsNil() {
			delete(vm.ctxFrames, cur.contextObj)
		}
		if cur == target {
			break
		}
	}
	if target.homeFinished != nil {
		*target.homeFinished = true
	}
	if proc.top == nil {
		proc.Result = value
		proc.Finished = true
		return nil
	}
	proc.top.push(value)
	return nil
}

// bindBlock turns the shared Block template into a closure bound to ctx
//: a shallow copy whose definingContext slot is ctx, leaving
// the template itself untouched so every activation of the enclosing
// method gets its own binding.
func (vm *VM) bindBlock(ctx, template oop.Ref) (oop.Ref, error) {
	copyRef, err := vm.mem.ShallowCopy(template)
	if err != nil {
		return oop.Nil, err
	}
	if err := vm.mem.BasicAtPut(copyRef, blockDefiningContext, ctx); err != nil {
		return oop.Nil, err
	}
	return copyRef, nil
}

// send dispatches selector to receiver. It intercepts the value family
// on a Block receiver as intrinsic interpreter logic: block
// activation is control flow, not a numbered primitive, closer to how a
// real Smalltalk-80 VM special-cases BlockContext>>value.
func (vm *VM) send(proc *Process, f *Frame, receiver, selector oop.Ref, args []oop.Ref) error {
	class := vm.classOf(receiver)
	if f.superNext {
		class = vm.superclassOf(f.methodClass)
		f.superNext = false
	}
	if class == vm.classes.Block && vm.valueSelectors[selector] {
		return vm.activateBlock(proc, receiver, args)
	}
	method, methodClass, ok := lookupMethod(vm.mem, class, selector)
	if !ok {
		if selector == vm.dnuSelector {
			vm.Errors.Fatal("doesNotUnderstand", "no doesNotUnderstand: handler in the image")
			return vmerr.ErrImageCorrupt
		}
		return vm.doesNotUnderstand(proc, f, receiver, selector, args)
	}
	nf, err := vm.newMethodFrame(f, method, receiver, args, methodClass)
	if err != nil {
		return err
	}
	proc.top = nf
	return nil
}

// doesNotUnderstand packages the failed send as a 2-slot Array {selector,
// argsArray} and resends doesNotUnderstand: to the original receiver.
func (vm *VM) doesNotUnderstand(proc *Process, f *Frame, receiver, selector oop.Ref, args []oop.Ref) error {
	argsArr, err := vm.mem.AllocObject(vm.classes.Array, len(args))
	if err != nil {
		return err
	}
	for i, a := range args {
		if err := vm.mem.BasicAtPut(argsArr, i+1, a); err != nil {
			return err
		}
	}
	msg, err := vm.mem.AllocObject(vm.classes.Array, 2)
	if err != nil {
		return err
	}
	if err := vm.mem.BasicAtPut(msg, 1, selector); err != nil {
		return err
	}
	if err := vm.mem.BasicAtPut(msg, 2, argsArr); err != nil {
		return err
	}
	return vm.send(proc, f, receiver, vm.dnuSelector, []oop.Ref{msg})
}

// signalError raises a Smalltalk-level error by sending error: to receiver
// with detail interned as the argument, the same conventional path
// doesNotUnderstand sends on, so an image that installs an error: handler
// can trap conditions the VM itself cannot recover from. Falls back to
// Fatal when no handler is in the image, mirroring send's own
// dnuSelector fallback, so an unhandled error: still terminates instead of
// recursing forever.
func (vm *VM) signalError(proc *Process, f *Frame, receiver oop.Ref, tag, detail string) error {
	if f == nil {
		vm.Errors.Fatal(tag, detail)
		return vmerr.ErrImageCorrupt
	}
	if _, _, ok := lookupMethod(vm.mem, vm.classOf(receiver), vm.errorSelector); !ok {
		vm.Errors.Fatal(tag, detail)
		return vmerr.ErrImageCorrupt
	}
	sym, err := vm.symtab.Intern(detail)
	if err != nil {
		return err
	}
	return vm.send(proc, f, receiver, vm.errorSelector, []oop.Ref{sym})
}

// activateBlock runs blockRef as though #value had been sent to it
//. Block temporaries/arguments live in the home frame's
// flattened temps slice (compile/codegen.go flattens block locals into
// the enclosing method's locals), so activation writes the call
// arguments directly into that slice at the block's recorded
// argumentLocation rather than allocating a separate temps array; a
// block invoked reentrantly before a prior activation returns shares
// that slice, a known limitation of the flattening design.
func (vm *VM) activateBlock(proc *Process, blockRef oop.Ref, args []oop.Ref) error {
	argCountRef, err := vm.mem.BasicAt(blockRef, blockArgumentCount)
	if err != nil {
		return err
	}
	argLocRef, err := vm.mem.BasicAt(blockRef, blockArgumentLoc)
	if err != nil {
		return err
	}
	posRef, err := vm.mem.BasicAt(blockRef, blockBytecodePos)
	if err != nil {
		return err
	}
	ctxRef, err := vm.mem.BasicAt(blockRef, blockDefiningContext)
	if err != nil {
		return err
	}
	home, ok := vm.ctxFrames[ctxRef]
	if !ok {
		return vm.signalError(proc, proc.top, blockRef, "badReturn", "block's defining context is gone")
	}
	argCount := int(oop.IntValue(argCountRef))
	if argCount != len(args) {
		vm.Errors.Fatal("wrongArgCount", "block called with the wrong number of arguments")
		return vmerr.ErrImageCorrupt
	}
	loc := int(oop.IntValue(argLocRef))
	for i, a := range args {
		home.temps[loc+i] = a
	}
	nf := &Frame{
		caller:      proc.top,
		method:      home.method,
		methodClass: home.methodClass,
		bytecodes:   home.bytecodes,
		literals:    home.literals,
		args:        home.args,
		temps:       home.temps,
		pc:          int(oop.IntValue(posRef)),
		home:        home.homeFrame(),
	}
	proc.top = nf
	return nil
}
