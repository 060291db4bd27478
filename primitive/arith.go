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

package primitive

import (
	"fmt"

	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
)

// Primitive numbers 0-49: arithmetic, comparisons, class,
// ==, hash, basic reflection. The exact numbering is this
// implementation's own; what matters is
// that each lands in its documented range.
const (
	PrimAdd          = 1
	PrimSub          = 2
	PrimMul          = 3
	PrimDiv          = 4
	PrimMod          = 5
	PrimIntDiv       = 6
	PrimEqual        = 7
	PrimNotEqual     = 8
	PrimLessThan     = 9
	PrimGreaterThan  = 10
	PrimLessEqual    = 11
	PrimGreaterEqual = 12
	PrimIdentity     = 13
	PrimClass        = 14
	PrimHash         = 15
	PrimBitAnd       = 16
	PrimBitOr        = 17
	PrimBitXor       = 18
	PrimBitShift     = 19
	PrimGlobalValue  = 20
)

func mustBeSmallInt(args []oop.Ref) error {
	for _, a := range args {
		if !a.IsInteger() {
			return fmt.Errorf("expected a SmallInteger, got an object reference")
		}
	}
	return nil
}

func intBinary(fn func(a, b int64) int64) Fn {
	return func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !receiver.IsInteger() || !args[0].IsInteger() {
			return oop.Nil, false
		}
		r := fn(oop.IntValue(receiver), oop.IntValue(args[0]))
		return oop.NewSmallInt(r), true
	}
}

func intCompare(fn func(a, b int64) bool) Fn {
	return func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !receiver.IsInteger() || !args[0].IsInteger() {
			return oop.Nil, false
		}
		if fn(oop.IntValue(receiver), oop.IntValue(args[0])) {
			return vm.Globals().True, true
		}
		return vm.Globals().False, true
	}
}

func registerArithmetic(t *Table) {
	t.Register(PrimAdd, Descriptor{Name: "+", Argc: 1, Fn: intBinary(func(a, b int64) int64 { return a + b })})
	t.Register(PrimSub, Descriptor{Name: "-", Argc: 1, Fn: intBinary(func(a, b int64) int64 { return a - b })})
	t.Register(PrimMul, Descriptor{Name: "*", Argc: 1, Fn: intBinary(func(a, b int64) int64 { return a * b })})
	t.Register(PrimDiv, Descriptor{Name: "/", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !receiver.IsInteger() || !args[0].IsInteger() {
			return oop.Nil, false
		}
		divisor := oop.IntValue(args[0])
		if divisor == 0 {
			return oop.Nil, false // division by zero: fall through to the Smalltalk-level #zeroDivide handler
		}
		a, b := oop.IntValue(receiver), divisor
		if a%b != 0 {
			return oop.Nil, false // exact-division primitive; non-exact falls back to Fraction construction in Smalltalk
		}
		return oop.NewSmallInt(a / b), true
	}})
	t.Register(PrimIntDiv, Descriptor{Name: "//", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !receiver.IsInteger() || !args[0].IsInteger() || oop.IntValue(args[0]) == 0 {
			return oop.Nil, false
		}
		a, b := oop.IntValue(receiver), oop.IntValue(args[0])
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q-- // floor division, matching Smalltalk // semantics
		}
		return oop.NewSmallInt(q), true
	}})
	t.Register(PrimMod, Descriptor{Name: "\\\\", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !receiver.IsInteger() || !args[0].IsInteger() || oop.IntValue(args[0]) == 0 {
			return oop.Nil, false
		}
		a, b := oop.IntValue(receiver), oop.IntValue(args[0])
		m := a % b
		if m != 0 && ((a < 0) != (b < 0)) {
			m += b
		}
		return oop.NewSmallInt(m), true
	}})
	t.Register(PrimLessThan, Descriptor{Name: "<", Argc: 1, Fn: intCompare(func(a, b int64) bool { return a < b })})
	t.Register(PrimGreaterThan, Descriptor{Name: ">", Argc: 1, Fn: intCompare(func(a, b int64) bool { return a > b })})
	t.Register(PrimLessEqual, Descriptor{Name: "<=", Argc: 1, Fn: intCompare(func(a, b int64) bool { return a <= b })})
	t.Register(PrimGreaterEqual, Descriptor{Name: ">=", Argc: 1, Fn: intCompare(func(a, b int64) bool { return a >= b })})
	t.Register(PrimEqual, Descriptor{Name: "=", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		eq := receiver == args[0]
		if !eq && receiver.IsInteger() && args[0].IsInteger() {
			eq = oop.IntValue(receiver) == oop.IntValue(args[0])
		}
		if eq {
			return vm.Globals().True, true
		}
		return vm.Globals().False, true
	}})
	t.Register(PrimNotEqual, Descriptor{Name: "~=", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		eqFn := t.Get(PrimEqual).Fn
		r, _ := eqFn(vm, proc, receiver, args)
		if r == vm.Globals().True {
			return vm.Globals().False, true
		}
		return vm.Globals().True, true
	}})
	t.Register(PrimIdentity, Descriptor{Name: "==", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if receiver == args[0] {
			return vm.Globals().True, true
		}
		return vm.Globals().False, true
	}})
	t.Register(PrimClass, Descriptor{Name: "class", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		switch {
		case receiver.IsInteger():
			return vm.Classes().SmallInteger, true
		case receiver.IsNil():
			return vm.Classes().UndefinedObject, true
		default:
			return vm.Memory().ClassOf(receiver), true
		}
	}})
	t.Register(PrimHash, Descriptor{Name: "hash", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if receiver.IsInteger() {
			return oop.NewSmallInt(oop.IntValue(receiver)), true
		}
		return oop.NewSmallInt(int64(receiver)), true
	}})
	t.Register(PrimBitAnd, Descriptor{Name: "bitAnd:", Argc: 1, Check: mustBeSmallInt, Fn: intBinary(func(a, b int64) int64 { return a & b })})
	t.Register(PrimBitOr, Descriptor{Name: "bitOr:", Argc: 1, Check: mustBeSmallInt, Fn: intBinary(func(a, b int64) int64 { return a | b })})
	t.Register(PrimBitXor, Descriptor{Name: "bitXor:", Argc: 1, Check: mustBeSmallInt, Fn: intBinary(func(a, b int64) int64 { return a ^ b })})
	t.Register(PrimBitShift, Descriptor{Name: "bitShift:", Argc: 1, Check: mustBeSmallInt, Fn: intBinary(func(a, n int64) int64 {
		if n >= 0 {
			return a << uint(n)
		}
		return a >> uint(-n)
	})})
	t.Register(PrimGlobalValue, Descriptor{Name: "value", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if receiver.IsInteger() || receiver.IsNil() {
			return oop.Nil, false
		}
		e := vm.Memory().Table.At(receiver.Index())
		if e == nil || !e.IsByteObject() {
			return oop.Nil, false
		}
		class, ok := vm.Symtab().ClassNamed(string(e.Bytes))
		if !ok {
			return oop.Nil, false // no such global: Symbol>>value's fallback answers nil
		}
		return class, true
	}})
}
