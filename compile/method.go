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

import "github.com/tinystalk/tinystalk/oop"

// Classes names the classes the compiler tags freshly materialized literal
// and Method objects with. These are bound once at VM bootstrap and handed
// to every Compiler; the compiler itself never creates classes.
type Classes struct {
	ByteArray oop.Ref
	String    oop.Ref
	Character oop.Ref
	Float     oop.Ref
	Array     oop.Ref
	Method    oop.Ref
	Block     oop.Ref
}

// CompiledMethod is the Go-side result of compiling a MethodSource: the
// Method object's contents before they are installed into object memory.
// Bytecodes is nil when compilation failed: a poisoned method whose
// bytecodes slot is nil.
type CompiledMethod struct {
	Selector      oop.Ref
	Text          string
	Bytecodes     []byte
	Literals      []oop.Ref
	StackSize     int
	TemporarySize int
	MethodClass   oop.Ref
	Watch         bool
}

// Install materializes cm into a real Method object in mem, following the
// 1-based Method slot layout: {text, selector, bytecodes, literals,
// stackSize, temporarySize, methodClass, watch}.
//
// The bytecodes and literals arrays are allocated fresh and copied in,
// not aliased to cm's Go slices, so the resulting object is independent
// of the compiler's working buffers.
func Install(mem *oop.Memory, classes Classes, cm *CompiledMethod) (oop.Ref, error) {
	var bytecodesRef oop.Ref
	var err error
	if cm.Bytecodes != nil {
		bytecodesRef, err = mem.AllocByte(classes.ByteArray, len(cm.Bytecodes))
		if err != nil {
			return oop.Nil, err
		}
		copy(mem.Table.At(bytecodesRef.Index()).Bytes, cm.Bytecodes)
	}

	litRef := oop.Nil
	if len(cm.Literals) > 0 {
		litRef, err = mem.AllocObject(classes.Array, len(cm.Literals))
		if err != nil {
			return oop.Nil, err
		}
		for i, l := range cm.Literals {
			if err := mem.BasicAtPut(litRef, i+1, l); err != nil {
				return oop.Nil, err
			}
		}
	}

	textRef := oop.Nil
	if cm.Text != "" {
		textRef, err = mem.AllocStr(classes.String, cm.Text)
		if err != nil {
			return oop.Nil, err
		}
	}

	methodRef, err := mem.AllocObject(classes.Method, 8)
	if err != nil {
		return oop.Nil, err
	}
	watch := oop.Nil
	if cm.Watch {
		watch = oop.NewSmallInt(1)
	}
	fields := []oop.Ref{
		textRef,
		cm.Selector,
		bytecodesRef,
		litRef,
		oop.NewSmallInt(int64(cm.StackSize)),
		oop.NewSmallInt(int64(cm.TemporarySize)),
		cm.MethodClass,
		watch,
	}
	for i, v := range fields {
		if err := mem.BasicAtPut(methodRef, i+1, v); err != nil {
			return oop.Nil, err
		}
	}
	return methodRef, nil
}
