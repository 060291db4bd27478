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
	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
)

// Primitive numbers 50-79: object manipulation (basicNew,
// basicAt:, basicAt:put:, size, shallowCopy, become:).
const (
	PrimBasicNew     = 50
	PrimBasicNewSize = 51
	PrimBasicAt      = 52
	PrimBasicAtPut   = 53
	PrimSize         = 54
	PrimShallowCopy  = 55
	PrimBecome       = 56
	PrimByteAt       = 57
	PrimByteAtPut    = 58
	PrimInstVarAt    = 59
	PrimInstVarAtPut = 60
)

func registerObject(t *Table) {
	t.Register(PrimBasicNew, Descriptor{Name: "basicNew", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		n := interp.InstVarCount(vm.Memory(), receiver)
		ref, err := vm.Memory().AllocObject(receiver, n)
		if err != nil {
			return oop.Nil, false
		}
		return ref, true
	}})
	t.Register(PrimBasicNewSize, Descriptor{Name: "basicNew:", Argc: 1, Check: mustBeSmallInt, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		n := int(oop.IntValue(args[0]))
		ref, err := vm.Memory().AllocByte(receiver, n)
		if err != nil {
			return oop.Nil, false
		}
		return ref, true
	}})
	t.Register(PrimBasicAt, Descriptor{Name: "basicAt:", Argc: 1, Check: mustBeSmallInt, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		v, err := vm.Memory().BasicAt(receiver, int(oop.IntValue(args[0])))
		if err != nil {
			return oop.Nil, false
		}
		return v, true
	}})
	t.Register(PrimBasicAtPut, Descriptor{Name: "basicAt:put:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !args[0].IsInteger() {
			return oop.Nil, false
		}
		if err := vm.Memory().BasicAtPut(receiver, int(oop.IntValue(args[0])), args[1]); err != nil {
			return oop.Nil, false
		}
		return args[1], true
	}})
	t.Register(PrimSize, Descriptor{Name: "size", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if receiver.IsInteger() || receiver.IsNil() {
			return oop.Nil, false
		}
		e := vm.Memory().Table.At(receiver.Index())
		if e == nil {
			return oop.Nil, false
		}
		if e.IsByteObject() {
			return oop.NewSmallInt(int64(e.ByteLen())), true
		}
		return oop.NewSmallInt(int64(e.SlotCount())), true
	}})
	t.Register(PrimShallowCopy, Descriptor{Name: "shallowCopy", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		ref, err := vm.Memory().ShallowCopy(receiver)
		if err != nil {
			return oop.Nil, false
		}
		return ref, true
	}})
	t.Register(PrimByteAt, Descriptor{Name: "byteAt:", Argc: 1, Check: mustBeSmallInt, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		b, err := vm.Memory().ByteAt(receiver, int(oop.IntValue(args[0])))
		if err != nil {
			return oop.Nil, false
		}
		return oop.NewSmallInt(int64(b)), true
	}})
	t.Register(PrimByteAtPut, Descriptor{Name: "byteAt:put:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !args[0].IsInteger() || !args[1].IsInteger() {
			return oop.Nil, false
		}
		if err := vm.Memory().ByteAtPut(receiver, int(oop.IntValue(args[0])), byte(oop.IntValue(args[1]))); err != nil {
			return oop.Nil, false
		}
		return args[1], true
	}})
	t.Register(PrimInstVarAt, Descriptor{Name: "instVarAt:", Argc: 1, Check: mustBeSmallInt, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		v, err := vm.Memory().BasicAt(receiver, int(oop.IntValue(args[0])))
		if err != nil {
			return oop.Nil, false
		}
		return v, true
	}})
	t.Register(PrimInstVarAtPut, Descriptor{Name: "instVarAt:put:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !args[0].IsInteger() {
			return oop.Nil, false
		}
		if err := vm.Memory().BasicAtPut(receiver, int(oop.IntValue(args[0])), args[1]); err != nil {
			return oop.Nil, false
		}
		return args[1], true
	}})
	// become: (identity-swapping two objects' object-table entries) has no
	// safe implementation given this VM's ctxFrames map keys objects by
	// reference identity (a swap would silently invalidate live block
	// captures); left unregistered so a send to it fails as an ordinary
	// unimplemented primitive, not a crash.
}
