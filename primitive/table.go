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

	"github.com/tinystalk/tinystalk/image"
	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
)

// Table is the numeric dispatch table: a fixed array of descriptors keyed
// by primitive number.
type Table struct {
	entries []*Descriptor
}

// NewTable builds an empty table. Install descriptors one at a time with
// Register, or call RegisterStandard for the full
// arithmetic/object/control/io/system set this VM ships with.
func NewTable() *Table {
	return &Table{}
}

// Register installs d under primitive number num, growing the backing
// array as needed. A later Register for the same num replaces it.
func (t *Table) Register(num int, d Descriptor) {
	for len(t.entries) <= num {
		t.entries = append(t.entries, nil)
	}
	dd := d
	t.entries[num] = &dd
}

// Get returns the descriptor registered under num, or nil.
func (t *Table) Get(num int) *Descriptor {
	if num < 0 || num >= len(t.entries) {
		return nil
	}
	return t.entries[num]
}

// Dispatch implements interp.PrimitiveFunc: it is wired directly onto
// VM.Primitives by whatever builds the VM.
func (t *Table) Dispatch(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref, num int) (oop.Ref, bool) {
	d := t.Get(num)
	if d == nil {
		return oop.Nil, false
	}
	if d.Argc >= 0 && len(args) != d.Argc {
		vm.Errors.Fatal("primitiveArity", fmt.Sprintf("primitive %d (%s) expects %d arguments, got %d", num, d.Name, d.Argc, len(args)))
		return oop.Nil, false
	}
	if d.Check != nil {
		if err := d.Check(args); err != nil {
			vm.Errors.Fatal("primitiveArgs", fmt.Sprintf("primitive %d (%s): %v", num, d.Name, err))
			return oop.Nil, false
		}
	}
	return d.Fn(vm, proc, receiver, args)
}

// RegisterStandard installs every primitive this VM implements for real
// (arithmetic/reflection, object manipulation, control/process, I/O) plus
// the host-system stubs of host_stub.go. ctrl may be nil (no process/scheduler primitives
// registered, e.g. for a unit test that only exercises arithmetic); host
// may be nil likewise for I/O.
func RegisterStandard(t *Table, host HostIO, ctrl *Controller, imageClasses image.Classes) {
	registerArithmetic(t)
	registerObject(t)
	registerControl(t, ctrl)
	registerIO(t, host, imageClasses)
	registerHostStubs(t)
}
