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

// Primitive numbers 80-119: message-send reflection
// (perform:-family), block application with a variable argument count, and
// cooperative process control. As with the arithmetic range,
// the concrete numbers are this implementation's own assignment.
const (
	PrimPerform              = 80
	PrimPerformWith          = 81
	PrimPerformWithArguments = 82
	PrimValueWithArguments   = 83
	PrimNewProcess           = 84
	PrimResumeProcess        = 85
	PrimYield                = 86
	PrimEnqueueVMBlock       = 87
	PrimRunBlockAfter        = 88
	PrimHasVMBlock           = 89
	PrimCurrentProcess       = 90
)

// arrayElems reads every reference slot of an Array object ref.
func arrayElems(vm *interp.VM, ref oop.Ref) ([]oop.Ref, bool) {
	if ref.IsInteger() || ref.IsNil() {
		return nil, false
	}
	e := vm.Memory().Table.At(ref.Index())
	if e == nil || e.IsByteObject() {
		return nil, false
	}
	return e.Slots, true
}

func registerControl(t *Table, ctrl *Controller) {
	t.Register(PrimPerform, Descriptor{Name: "perform:", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		r, err := vm.Send(proc, receiver, args[0], nil)
		if err != nil {
			return oop.Nil, false
		}
		return r, true
	}})
	t.Register(PrimPerformWith, Descriptor{Name: "perform:with:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		r, err := vm.Send(proc, receiver, args[0], args[1:])
		if err != nil {
			return oop.Nil, false
		}
		return r, true
	}})
	t.Register(PrimPerformWithArguments, Descriptor{Name: "perform:withArguments:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		elems, ok := arrayElems(vm, args[1])
		if !ok {
			return oop.Nil, false
		}
		r, err := vm.Send(proc, receiver, args[0], elems)
		if err != nil {
			return oop.Nil, false
		}
		return r, true
	}})
	t.Register(PrimValueWithArguments, Descriptor{Name: "valueWithArguments:", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		elems, ok := arrayElems(vm, args[0])
		if !ok {
			return oop.Nil, false
		}
		if err := vm.ActivateBlock(proc, receiver, elems); err != nil {
			return oop.Nil, false
		}
		// activateBlock pushed a new frame for proc to run next; there is
		// no synchronous value to hand back to the sender of this
		// primitive -- the bytecode loop resumes in the block itself.
		return oop.Nil, true
	}})
	if ctrl == nil {
		return
	}
	t.Register(PrimNewProcess, Descriptor{Name: "newProcess:", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		ref, err := ctrl.Spawn(vm, args[0])
		if err != nil {
			return oop.Nil, false
		}
		return ref, true
	}})
	t.Register(PrimResumeProcess, Descriptor{Name: "resume:", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		runnable, ok := ctrl.Resume(vm, args[0])
		if !ok {
			return oop.Nil, false
		}
		if runnable {
			return vm.Globals().True, true
		}
		return vm.Globals().False, true
	}})
	t.Register(PrimYield, Descriptor{Name: "yield", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		// Cooperative yield is a no-op at the primitive level: the actual
		// scheduling decision (which process runs next) belongs to
		// whatever drives Scheduler.RunSmalltalkProcess in a loop, not to
		// code running inside one process's own activation chain.
		return receiver, true
	}})
	t.Register(PrimEnqueueVMBlock, Descriptor{Name: "enqueueVMBlock:", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !ctrl.Sched.VMQ.EnqueueVMBlock(args[0]) {
			return oop.Nil, false
		}
		return receiver, true
	}})
	t.Register(PrimRunBlockAfter, Descriptor{Name: "runBlockAfter:ticks:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !args[1].IsInteger() {
			return oop.Nil, false
		}
		ctrl.Sched.Timers.RunBlockAfter(receiver, args[0], int(oop.IntValue(args[1])))
		return receiver, true
	}})
	t.Register(PrimHasVMBlock, Descriptor{Name: "hasVMBlock", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if ctrl.Sched.VMQ.HasVMBlock() {
			return vm.Globals().True, true
		}
		return vm.Globals().False, true
	}})
	t.Register(PrimCurrentProcess, Descriptor{Name: "currentProcess", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		ref, ok := ctrl.RefOf(proc)
		if !ok {
			return oop.Nil, false
		}
		return ref, true
	}})
}
