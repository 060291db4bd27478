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

// Package interp implements the bytecode interpreter: the fetch-decode-
// execute loop over contexts and processes.
package interp

import "github.com/tinystalk/tinystalk/oop"

// Frame is one activation record: a method or block invocation. It is the
// interpreter's working representation of a Context; a real
// Context object is materialized from it lazily, only when the running
// code actually asks for `thisContext` (PushConstant contextConst) or a
// block is created that must capture it.
//
// pc, stack, and locals are held directly in Go fields rather than
// re-read from an object graph on every bytecode, chained through
// caller links to form one process's activation stack.
type Frame struct {
	caller *Frame

	method      oop.Ref // the compiled Method this frame executes
	methodClass oop.Ref // method's home class, the super-send lookup start

	bytecodes []byte
	literals  []oop.Ref

	args  []oop.Ref // args[0] is the receiver; args[1:] are the declared arguments
	temps []oop.Ref // flattened method + block temporaries

	opstack []oop.Ref
	pc      int

	// pendingArgs is set by MarkArguments and consumed by the SendMessage
	// that follows it: the count of stack items (receiver + arguments)
	// the send should pop.
	pendingArgs int

	// contextObj caches the lazily materialized Context object for this
	// frame. Nil until the
	// first PushConstant contextConst.
	contextObj oop.Ref

	// superNext is a one-shot flag set by DoSpecial SendToSuper: the next
	// send bytecode looks up starting from the superclass of methodClass
	// instead of the receiver's own class.
	superNext bool

	// home is the enclosing method frame for a block frame, the target of
	// a non-local return. Nil for method
	// frames (a method's home is itself).
	home *Frame

	// homeFinished is set on a method frame once it has returned; a block
	// whose home frame already finished cannot perform ^.
	homeFinished *bool
}

func (f *Frame) receiver() oop.Ref { return f.args[0] }

func (f *Frame) push(r oop.Ref) {
	f.opstack = append(f.opstack, r)
}

func (f *Frame) pop() oop.Ref {
	n := len(f.opstack) - 1
	v := f.opstack[n]
	f.opstack = f.opstack[:n]
	return v
}

func (f *Frame) popN(n int) []oop.Ref {
	start := len(f.opstack) - n
	vs := f.opstack[start:]
	f.opstack = f.opstack[:start]
	return vs
}

func (f *Frame) top() oop.Ref { return f.opstack[len(f.opstack)-1] }

// nextByte fetches the bytecode at pc and advances pc.
func (f *Frame) nextByte() byte {
	b := f.bytecodes[f.pc]
	f.pc++
	return b
}

// homeFrame returns the frame a non-local return from within f should unwind
// to: f itself for a method frame, f.home for a block frame.
func (f *Frame) homeFrame() *Frame {
	if f.home != nil {
		return f.home
	}
	return f
}
