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
	"github.com/tinystalk/tinystalk/image"
	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
)

// Primitive numbers 120-149: console and file I/O, and image
// persistence. These primitives are implemented for real, as opposed to
// the host/system stubs of host_stub.go.
const (
	PrimConsoleWrite = 120
	PrimConsoleRead  = 121
	PrimFileOpen     = 122
	PrimFileClose    = 123
	PrimFileRead     = 124
	PrimFileWrite    = 125
	PrimSaveImage    = 126
)

// HostIO abstracts the console and filesystem underneath the I/O
// primitives, the same seam
// console.Console/a test fake sits behind: production code runs on
// console.New (backed by os.Stdin/os.Stdout, raw mode via
// golang.org/x/sys/unix), tests substitute an in-memory buffer.
type HostIO interface {
	WriteString(s string)
	ReadLine() (string, bool)
	OpenFile(name string, write bool) (handle int, ok bool)
	CloseFile(handle int)
	ReadFile(handle int, n int) (data []byte, ok bool)
	WriteFile(handle int, data []byte) (n int, ok bool)
	SaveImage(name string, mem *oop.Memory, root oop.Ref, classes image.Classes) error
}

func bytesOf(vm *interp.VM, ref oop.Ref) ([]byte, bool) {
	if ref.IsInteger() || ref.IsNil() {
		return nil, false
	}
	e := vm.Memory().Table.At(ref.Index())
	if e == nil || !e.IsByteObject() {
		return nil, false
	}
	return e.Bytes, true
}

func registerIO(t *Table, host HostIO, imageClasses image.Classes) {
	if host == nil {
		return
	}
	t.Register(PrimConsoleWrite, Descriptor{Name: "consoleWriteString:", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		b, ok := bytesOf(vm, args[0])
		if !ok {
			return oop.Nil, false
		}
		host.WriteString(string(b))
		return receiver, true
	}})
	t.Register(PrimConsoleRead, Descriptor{Name: "consoleReadLine", Argc: 0, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		line, ok := host.ReadLine()
		if !ok {
			return oop.Nil, true
		}
		class, hasClass := vm.Symtab().ClassNamed("String")
		if !hasClass {
			return oop.Nil, false
		}
		ref, err := vm.Memory().AllocStr(class, line)
		if err != nil {
			return oop.Nil, false
		}
		return ref, true
	}})
	t.Register(PrimFileOpen, Descriptor{Name: "fileOpen:forWrite:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		name, ok := bytesOf(vm, args[0])
		if !ok {
			return oop.Nil, false
		}
		write := args[1] == vm.Globals().True
		handle, ok := host.OpenFile(string(name), write)
		if !ok {
			return oop.Nil, true
		}
		return oop.NewSmallInt(int64(handle)), true
	}})
	t.Register(PrimFileClose, Descriptor{Name: "fileClose:", Argc: 1, Check: mustBeSmallInt, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		host.CloseFile(int(oop.IntValue(args[0])))
		return receiver, true
	}})
	t.Register(PrimFileRead, Descriptor{Name: "fileRead:count:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !args[0].IsInteger() || !args[1].IsInteger() {
			return oop.Nil, false
		}
		data, ok := host.ReadFile(int(oop.IntValue(args[0])), int(oop.IntValue(args[1])))
		if !ok {
			return oop.Nil, true
		}
		class, hasClass := vm.Symtab().ClassNamed("ByteArray")
		if !hasClass {
			return oop.Nil, false
		}
		ref, err := vm.Memory().AllocByte(class, len(data))
		if err != nil {
			return oop.Nil, false
		}
		copy(vm.Memory().Table.At(ref.Index()).Bytes, data)
		return ref, true
	}})
	t.Register(PrimFileWrite, Descriptor{Name: "fileWrite:data:", Argc: 2, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		if !args[0].IsInteger() {
			return oop.Nil, false
		}
		data, ok := bytesOf(vm, args[1])
		if !ok {
			return oop.Nil, false
		}
		n, ok := host.WriteFile(int(oop.IntValue(args[0])), data)
		if !ok {
			return oop.Nil, true
		}
		return oop.NewSmallInt(int64(n)), true
	}})
	t.Register(PrimSaveImage, Descriptor{Name: "saveImageAs:", Argc: 1, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		name, ok := bytesOf(vm, args[0])
		if !ok {
			return oop.Nil, false
		}
		root := vm.Symtab().Root()
		if err := host.SaveImage(string(name), vm.Memory(), root, imageClasses); err != nil {
			return oop.Nil, true
		}
		return receiver, true
	}})
}
