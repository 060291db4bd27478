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

package boot

import (
	"github.com/tinystalk/tinystalk/compile"
	"github.com/tinystalk/tinystalk/primitive"
	"github.com/tinystalk/tinystalk/vmerr"
)

// installKernelMethods wires every SmallInteger/Object selector a
// primitive in package primitive implements onto a real installed Method,
// so an ordinary SendUnary/SendBinary/SendMessage bytecode finds something
// to run. There is no `<primitive: N>` pragma in this grammar
//, so each method body is
// hand-assembled directly as bytecodes rather than produced by
// compile.CompileMethod: push a nil fallback result, push the declared
// arguments, run the primitive, and return whatever ended up on top of the
// stack.
func installKernelMethods(img *Image) error {
	intSelectors := []struct {
		selector string
		argCount int
		primNum  int
	}{
		{"+", 1, primitive.PrimAdd},
		{"-", 1, primitive.PrimSub},
		{"*", 1, primitive.PrimMul},
		{"/", 1, primitive.PrimDiv},
		{"//", 1, primitive.PrimIntDiv},
		{"\\\\", 1, primitive.PrimMod},
		{"<", 1, primitive.PrimLessThan},
		{">", 1, primitive.PrimGreaterThan},
		{"<=", 1, primitive.PrimLessEqual},
		{">=", 1, primitive.PrimGreaterEqual},
		{"bitAnd:", 1, primitive.PrimBitAnd},
		{"bitOr:", 1, primitive.PrimBitOr},
		{"bitXor:", 1, primitive.PrimBitXor},
		{"bitShift:", 1, primitive.PrimBitShift},
	}
	for _, s := range intSelectors {
		if err := img.installPrimitiveMethod("SmallInteger", s.selector, s.argCount, s.primNum); err != nil {
			return err
		}
	}

	objectSelectors := []struct {
		selector string
		argCount int
		primNum  int
	}{
		{"=", 1, primitive.PrimEqual},
		{"~=", 1, primitive.PrimNotEqual},
		{"==", 1, primitive.PrimIdentity},
		{"class", 0, primitive.PrimClass},
		{"hash", 0, primitive.PrimHash},
		{"basicNew", 0, primitive.PrimBasicNew},
		{"basicNew:", 1, primitive.PrimBasicNewSize},
		{"basicAt:", 1, primitive.PrimBasicAt},
		{"basicAt:put:", 2, primitive.PrimBasicAtPut},
		{"size", 0, primitive.PrimSize},
		{"shallowCopy", 0, primitive.PrimShallowCopy},
		{"byteAt:", 1, primitive.PrimByteAt},
		{"byteAt:put:", 2, primitive.PrimByteAtPut},
		{"instVarAt:", 1, primitive.PrimInstVarAt},
		{"instVarAt:put:", 2, primitive.PrimInstVarAtPut},
	}
	for _, s := range objectSelectors {
		if err := img.installPrimitiveMethod("Object", s.selector, s.argCount, s.primNum); err != nil {
			return err
		}
	}

	// Symbol>>value backs late-bound name resolution: an identifier that
	// is not self/super, a temporary, an argument, or an instance
	// variable compiles to "push the name as a symbol literal and send
	// value" -- this is the only method that late-bound lookup ever runs.
	if err := img.installPrimitiveMethod("Symbol", "value", 0, primitive.PrimGlobalValue); err != nil {
		return err
	}

	// Class>>new is "^ self basicNew" for every class object: since every
	// class shares the same Class tag (see Bootstrap's comment on patching
	// Class's superclass), one installation here covers "AnyClass new"
	// for every user-defined class, not just kernel ones.
	if err := img.installPrimitiveMethod("Class", "new", 0, primitive.PrimBasicNew); err != nil {
		return err
	}
	return nil
}

// installPrimitiveMethod builds and installs a method on className whose
// entire body is: push nil, push each declared argument, run primNum,
// return whatever is on top of the stack. See installKernelMethods for why
// this bypasses compile.CompileMethod entirely.
func (img *Image) installPrimitiveMethod(className, selector string, argCount, primNum int) error {
	info, ok := img.ClassInfo(className)
	if !ok {
		return vmerr.ErrImageCorrupt
	}
	selRef, err := img.Symtab.Intern(selector)
	if err != nil {
		return err
	}

	code := []byte{byte(compile.PushConstant)<<4 | compile.ConstNil}
	// Argument index 0 is the receiver (interp.Frame.receiver() == args[0]);
	// the declared arguments occupy indices 1..argCount.
	for i := 1; i <= argCount; i++ {
		if i < 16 {
			code = append(code, byte(compile.PushArgument)<<4|byte(i))
		} else {
			code = append(code, byte(compile.Extended)<<4|byte(compile.PushArgument), byte(i))
		}
	}
	code = append(code, byte(compile.DoPrimitive)<<4|byte(argCount), byte(primNum))
	code = append(code, byte(compile.DoSpecial)<<4|compile.StackReturn)

	cm := &compile.CompiledMethod{
		Selector:      selRef,
		Bytecodes:     code,
		StackSize:     argCount + 2,
		TemporarySize: 0,
		MethodClass:   info.Self,
	}
	methodRef, err := compile.Install(img.Mem, img.CompileClasses, cm)
	if err != nil {
		return err
	}
	return img.addMethod(info.Self, selRef, methodRef)
}
