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

// Class slot layout: {name, size, methods, superclass,
// variables}. methods is a flat Array alternating selector/Method pairs
// rather than a true Dictionary object -- the simplest encoding that still
// lets lookupMethod walk it with nothing but BasicAt.
const (
	className       = 1
	classInstSize   = 2
	classMethods    = 3
	classSuperclass = 4
	classVariables  = 5
)

// Method slot layout, matching compile.Install's field order.
const (
	methodText          = 1
	methodSelector      = 2
	methodBytecodes     = 3
	methodLiterals      = 4
	methodStackSize     = 5
	methodTemporarySize = 6
	methodMethodClass   = 7
	methodWatch         = 8
)

// Block slot layout, matching compile.compileBlockLiteral.
const (
	blockDefiningContext = 1
	blockArgumentCount   = 2
	blockArgumentLoc     = 3
	blockBytecodePos     = 4
)

// Context slot layout: {linkPtr, method, arguments, temporaries}.
// The stack slots "beyond" are this VM's Frame.opstack, never materialized
// into the Context object itself -- only the fields a block literally
// needs to reconstruct the lexical environment are.
const (
	contextLinkPtr     = 1
	contextMethod      = 2
	contextArguments   = 3
	contextTemporaries = 4
)

// lookupMethod finds the Method bound to selector starting at class,
// climbing the superclass chain. It returns (method,
// methodClass, true) on a hit.
func lookupMethod(mem *oop.Memory, class, selector oop.Ref) (oop.Ref, oop.Ref, bool) {
	for c := class; !c.IsNil(); {
		methods, err := mem.BasicAt(c, classMethods)
		if err == nil && !methods.IsNil() {
			if m, ok := dictFind(mem, methods, selector); ok {
				return m, c, true
			}
		}
		super, err := mem.BasicAt(c, classSuperclass)
		if err != nil {
			break
		}
		c = super
	}
	return oop.Nil, oop.Nil, false
}

// dictFind scans a flat [selector1, method1, selector2, method2, ...]
// Array for selector. Selectors are interned symtab.Table entries, so
// reference equality is sufficient (no need to compare byte contents).
func dictFind(mem *oop.Memory, methods, selector oop.Ref) (oop.Ref, bool) {
	e := mem.Table.At(methods.Index())
	if e == nil {
		return oop.Nil, false
	}
	for i := 0; i+1 < len(e.Slots); i += 2 {
		if e.Slots[i] == selector {
			return e.Slots[i+1], true
		}
	}
	return oop.Nil, false
}

// instVarCount returns the instance variable count of class, used to size new instances allocated by primitive
// basicNew.
func instVarCount(mem *oop.Memory, class oop.Ref) int {
	sz, err := mem.BasicAt(class, classInstSize)
	if err != nil || !sz.IsInteger() {
		return 0
	}
	return int(oop.IntValue(sz))
}

// InstVarCount is instVarCount exported for primitive, which implements
// basicNew and cannot reach this package's
// unexported Class layout constants otherwise.
func InstVarCount(mem *oop.Memory, class oop.Ref) int { return instVarCount(mem, class) }

// ClassName returns the Smalltalk-level name of class, read out of its
// Symbol/String name slot, for primitives and diagnostics that print a
// class by name rather than by index.
func ClassName(mem *oop.Memory, class oop.Ref) (string, bool) {
	nameRef, err := mem.BasicAt(class, className)
	if err != nil || nameRef.IsNil() {
		return "", false
	}
	e := mem.Table.At(nameRef.Index())
	if e == nil || !e.IsByteObject() {
		return "", false
	}
	return string(e.Bytes), true
}
