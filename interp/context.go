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

import "github.com/tinystalk/tinystalk/oop"

// Classes names the classes the interpreter needs to recognize or tag at
// run time: materialized Context objects and the Array objects a Context
// needs to expose its arguments/temporaries to a captured block, Block
// for the intrinsic value-family dispatch, and the two classes whose
// instances (SmallInteger, nil) don't carry their own Class slot the way
// ordinary objects do.
type Classes struct {
	Context         oop.Ref
	Array           oop.Ref
	Block           oop.Ref
	SmallInteger    oop.Ref
	UndefinedObject oop.Ref
}

// materializeContext lazily builds the Context object for f, copying its
// current arguments and temporaries.
// Later Frame.args/temps mutations (assignments) are not reflected back
// into the materialized arrays -- once a block has captured a context, the
// two are independent snapshots, since the underlying storage here is a
// Go slice copy rather than a shared memory region.
func (vm *VM) materializeContext(f *Frame) (oop.Ref, error) {
	if !f.contextObj.IsNil() {
		return f.contextObj, nil
	}
	argsRef, err := vm.mem.AllocObject(vm.classes.Array, len(f.args))
	if err != nil {
		return oop.Nil, err
	}
	for i, a := range f.args {
		if err := vm.mem.BasicAtPut(argsRef, i+1, a); err != nil {
			return oop.Nil, err
		}
	}
	tempsRef, err := vm.mem.AllocObject(vm.classes.Array, len(f.temps))
	if err != nil {
		return oop.Nil, err
	}
	for i, t := range f.temps {
		if err := vm.mem.BasicAtPut(tempsRef, i+1, t); err != nil {
			return oop.Nil, err
		}
	}
	ctxRef, err := vm.mem.AllocObject(vm.classes.Context, 4)
	if err != nil {
		return oop.Nil, err
	}
	_ = vm.mem.BasicAtPut(ctxRef, contextLinkPtr, oop.NewSmallInt(int64(f.pc)))
	_ = vm.mem.BasicAtPut(ctxRef, contextMethod, f.method)
	_ = vm.mem.BasicAtPut(ctxRef, contextArguments, argsRef)
	_ = vm.mem.BasicAtPut(ctxRef, contextTemporaries, tempsRef)
	f.contextObj = ctxRef
	return ctxRef, nil
}
