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

// Package boot builds the minimal kernel image a fresh VM needs before it
// can compile or run any Smalltalk source: the core class hierarchy, the
// two Boolean singletons, and the class-tag bundles interp/compile/image
// need. It is the one place that
// legitimately wires every other package together; only cmd/tinystalk
// and tests import boot.
package boot

import (
	"github.com/tinystalk/tinystalk/compile"
	"github.com/tinystalk/tinystalk/image"
	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
	"github.com/tinystalk/tinystalk/primitive"
	"github.com/tinystalk/tinystalk/symtab"
	"github.com/tinystalk/tinystalk/vmerr"
)

// Class layout slot indices, matching interp/class.go exactly:
// {name, size, methods, superclass, variables}.
const (
	slotName       = 1
	slotInstSize   = 2
	slotMethods    = 3
	slotSuperclass = 4
	slotVariables  = 5
	classSlots     = 5
)

// Image is the bootstrapped kernel: object memory, symbol table, the VM
// ready to execute, and every class object a test or REPL needs to name
// by hand when building method sources.
type Image struct {
	Mem    *oop.Memory
	Symtab *symtab.Table
	VM     *interp.VM
	Errors *vmerr.Reporter

	InterpClasses  interp.Classes
	CompileClasses compile.Classes
	ImageClasses   image.Classes
	SelectorCache  *symtab.SelectorCache

	// Classes maps every bootstrapped class's name to its object, the same
	// index symtab.Table.RegisterClass keeps internally, handed out here
	// for callers (tests, cmd/tinystalk) that want to declare a method on
	// "Object" or "SmallInteger" without re-deriving the reference.
	Classes map[string]oop.Ref
}

// classBuilder accumulates the class objects being constructed before
// their mutual references (superclass chains, the self-referential Class
// object) can all be patched in.
type classBuilder struct {
	mem     *oop.Memory
	st      *symtab.Table
	classes map[string]oop.Ref
}

// newClass allocates a class object. tagClass is the Class object it
// should itself be tagged with; pass oop.Nil for the bootstrap's very
// first class (Class itself), which is patched to self-reference once it
// exists, since every live reference's class must be non-nil except nil
// itself and there is no separate metaclass to tag it with.
func (b *classBuilder) newClass(name string, tagClass, superclass oop.Ref, instSize int, variables []string) (oop.Ref, error) {
	ref, err := b.mem.AllocObject(tagClass, classSlots)
	if err != nil {
		return oop.Nil, err
	}
	nameRef, err := b.st.Intern(name)
	if err != nil {
		return oop.Nil, err
	}
	varsRef := oop.Nil
	if len(variables) > 0 {
		varsRef, err = b.mem.AllocObject(b.classes["Array"], len(variables))
		if err != nil {
			return oop.Nil, err
		}
		for i, v := range variables {
			symRef, err := b.st.Intern(v)
			if err != nil {
				return oop.Nil, err
			}
			if err := b.mem.BasicAtPut(varsRef, i+1, symRef); err != nil {
				return oop.Nil, err
			}
		}
	}
	fields := []oop.Ref{nameRef, oop.NewSmallInt(int64(instSize)), oop.Nil, superclass, varsRef}
	for i, v := range fields {
		if err := b.mem.BasicAtPut(ref, i+1, v); err != nil {
			return oop.Nil, err
		}
	}
	b.mem.Incr(ref) // classes are permanent roots, kept alive for the VM's lifetime
	b.classes[name] = ref
	if err := b.st.RegisterClass(name, ref); err != nil {
		return oop.Nil, err
	}
	return ref, nil
}

// Bootstrap builds a fresh kernel image: Class, Object and its core
// subclasses, and the True/False singletons, ready for compile.CompileMethod
// and interp.VM.Execute.
func Bootstrap() (*Image, error) {
	mem := oop.NewMemory()
	st := symtab.New(mem)
	reporter := vmerr.NewReporter(vmerr.DefaultLogger())

	b := &classBuilder{mem: mem, st: st, classes: make(map[string]oop.Ref)}

	// Class is its own class: allocate with a Nil tag, then patch the
	// entry's metadata in place once the index is known.
	classClass, err := b.newClass("Class", oop.Nil, oop.Nil, classSlots, nil)
	if err != nil {
		return nil, err
	}
	mem.Table.At(classClass.Index()).Class = classClass

	// st.DictClass tags the root dictionary every RegisterClass/BindGlobal
	// call (re)allocates from here on; Object is as close to "no specific
	// class" as this kernel has, and must be set before the very next
	// newClass call or the dictionary objects created in between end up
	// tagged with oop.Nil. Every live reference's class must be non-nil
	// except nil itself, but that only binds once a root is actually
	// kept, and the untagged interim generations are decref'd away
	// immediately as BindGlobal replaces them, so this ordering is the
	// only part that matters.
	object, err := b.newClass("Object", classClass, oop.Nil, 0, nil)
	if err != nil {
		return nil, err
	}
	st.DictClass = object
	// Every class object is itself tagged with classClass -- there is no
	// separate metaclass hierarchy -- so a message sent to a class receiver (e.g.
	// "new") is looked up starting from Class, not from the receiver's own
	// superclass chain. Patching Class to subclass Object here, once
	// Object exists, lets the instance-side methods installed on Object
	// below (basicNew, class, =, ==, hash, ...) resolve for class
	// receivers too, instead of requiring a full duplicate set on Class.
	if err := mem.BasicAtPut(classClass, slotSuperclass, object); err != nil {
		return nil, err
	}

	simple := func(name string, instSize int, variables ...string) (oop.Ref, error) {
		return b.newClass(name, classClass, object, instSize, variables)
	}

	undefinedObject, err := simple("UndefinedObject", 0)
	if err != nil {
		return nil, err
	}
	boolean, err := simple("Boolean", 0)
	if err != nil {
		return nil, err
	}
	trueClass, err := b.newClass("True", classClass, boolean, 0, nil)
	if err != nil {
		return nil, err
	}
	falseClass, err := b.newClass("False", classClass, boolean, 0, nil)
	if err != nil {
		return nil, err
	}
	smallInteger, err := simple("SmallInteger", 0)
	if err != nil {
		return nil, err
	}
	float, err := simple("Float", 0)
	if err != nil {
		return nil, err
	}
	character, err := simple("Character", 0)
	if err != nil {
		return nil, err
	}
	// Magnitude is skipped; numeric/char classes descend directly from Object.
	arrayClass, err := simple("Array", 0)
	if err != nil {
		return nil, err
	}
	byteArray, err := simple("ByteArray", 0)
	if err != nil {
		return nil, err
	}
	stringClass, err := b.newClass("String", classClass, byteArray, 0, nil)
	if err != nil {
		return nil, err
	}
	symbolClass, err := b.newClass("Symbol", classClass, stringClass, 0, nil)
	if err != nil {
		return nil, err
	}
	methodClass, err := simple("Method", 8)
	if err != nil {
		return nil, err
	}
	blockClass, err := simple("Block", 4, "definingContext", "argumentCount", "argumentLocation", "bytecodePosition")
	if err != nil {
		return nil, err
	}
	contextClass, err := simple("Context", 4, "linkPtr", "method", "arguments", "temporaries")
	if err != nil {
		return nil, err
	}
	processClass, err := simple("Process", 3, "stack", "stackTop", "linkPtr")
	if err != nil {
		return nil, err
	}
	_ = processClass

	// Re-tag every class object created above with classClass: newClass
	// initially tagged each with classClass only after classClass itself
	// existed, so this is already correct except for classClass's own
	// self-reference, patched above.

	trueObj, err := mem.AllocObject(trueClass, 0)
	if err != nil {
		return nil, err
	}
	mem.Incr(trueObj)
	falseObj, err := mem.AllocObject(falseClass, 0)
	if err != nil {
		return nil, err
	}
	mem.Incr(falseObj)

	// The True/False singletons are reached only through vm.Globals, a
	// Go-side struct that an image reload never touches, so without a
	// binding into the root dictionary here the next RootMark pass would
	// find them unreachable and recycle their table slots out from under
	// it.
	if err := st.BindGlobal("true", trueObj); err != nil {
		return nil, err
	}
	if err := st.BindGlobal("false", falseObj); err != nil {
		return nil, err
	}

	st.SymbolClass = symbolClass

	interpClasses := interp.Classes{
		Context:         contextClass,
		Array:           arrayClass,
		Block:           blockClass,
		SmallInteger:    smallInteger,
		UndefinedObject: undefinedObject,
	}
	vm, err := interp.NewVM(mem, st, interpClasses, interp.Globals{True: trueObj, False: falseObj}, reporter)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Mem:           mem,
		Symtab:        st,
		VM:            vm,
		Errors:        reporter,
		InterpClasses: interpClasses,
		CompileClasses: compile.Classes{
			ByteArray: byteArray,
			String:    stringClass,
			Character: character,
			Float:     float,
			Array:     arrayClass,
			Method:    methodClass,
			Block:     blockClass,
		},
		ImageClasses: image.Classes{
			ByteArray: byteArray,
			String:    stringClass,
			Symbol:    symbolClass,
			Block:     blockClass,
		},
		SelectorCache: symtab.NewSelectorCache(),
		Classes:       b.classes,
	}
	if err := installKernelMethods(img); err != nil {
		return nil, err
	}

	// A freshly bootstrapped image is immediately useful for arithmetic and
	// basic object manipulation without a host loop around it (e.g. Eval
	// called straight from a test); ctrl/host stay nil here exactly as
	// RegisterStandard documents for that case. cmd/tinystalk replaces this
	// table with its own, registered against a real HostIO and Controller,
	// once it has wired a Scheduler.
	table := primitive.NewTable()
	primitive.RegisterStandard(table, nil, nil, img.ImageClasses)
	vm.Primitives = table.Dispatch

	return img, nil
}

// DefineClass registers a new user class under name, subclassing super
// (looked up by name) with the given instance variables -- the minimal
// "class declaration" operation the REPL and test fixtures need to exist
// before they can compile a method onto it.
func (img *Image) DefineClass(name, superName string, variables []string) (oop.Ref, error) {
	super, ok := img.Symtab.ClassNamed(superName)
	if !ok {
		return oop.Nil, vmerr.ErrImageCorrupt
	}
	// Walk super's chain root-downward so inherited variables come first,
	// then append this class's own. The instance size counts all of them;
	// the class's variables slot holds only its own, since
	// rootDownwardVars collects the inherited ones from each superclass.
	all := rootDownwardVars(img.Mem, super)
	all = append(all, variables...)

	b := &classBuilder{mem: img.Mem, st: img.Symtab, classes: img.Classes}
	classClass := img.Mem.ClassOf(super)
	ref, err := b.newClass(name, classClass, super, len(all), variables)
	if err != nil {
		return oop.Nil, err
	}
	return ref, nil
}

func rootDownwardVars(mem *oop.Memory, class oop.Ref) []string {
	if class.IsNil() {
		return nil
	}
	superRef, err := mem.BasicAt(class, slotSuperclass)
	var out []string
	if err == nil && !superRef.IsNil() {
		out = rootDownwardVars(mem, superRef)
	}
	varsRef, err := mem.BasicAt(class, slotVariables)
	if err != nil || varsRef.IsNil() {
		return out
	}
	e := mem.Table.At(varsRef.Index())
	if e == nil {
		return out
	}
	for _, v := range e.Slots {
		if se := mem.Table.At(v.Index()); se != nil {
			out = append(out, string(se.Bytes))
		}
	}
	return out
}

// ClassInfo builds a compile.ClassInfo for name, the argument
// compile.CompileMethod needs to resolve instance variables and tag a
// compiled method with its home class.
func (img *Image) ClassInfo(name string) (*compile.ClassInfo, bool) {
	class, ok := img.Symtab.ClassNamed(name)
	if !ok {
		return nil, false
	}
	return &compile.ClassInfo{
		Self:      class,
		Name:      name,
		Variables: rootDownwardVars(img.Mem, class),
	}, true
}

// InstallMethod compiles src onto class className and installs it into
// that class's (flat-array) method dictionary, replacing any prior method
// under the same selector.
func (img *Image) InstallMethod(className string, src *compile.MethodSource) (*vmerr.CompileError, error) {
	info, ok := img.ClassInfo(className)
	if !ok {
		return nil, vmerr.ErrImageCorrupt
	}
	cm := compile.CompileMethod(img.Mem, img.Symtab, img.SelectorCache, img.CompileClasses, info, src)
	if cm.Bytecodes == nil {
		// Poisoned method: still install it with nil
		// bytecodes per the contract, and surface the error to the caller.
		ref, err := compile.Install(img.Mem, img.CompileClasses, cm)
		if err != nil {
			return nil, err
		}
		if err := img.addMethod(info.Self, cm.Selector, ref); err != nil {
			return nil, err
		}
		return &vmerr.CompileError{Selector: src.Selector, Message: "compile failed"}, nil
	}
	ref, err := compile.Install(img.Mem, img.CompileClasses, cm)
	if err != nil {
		return nil, err
	}
	return nil, img.addMethod(info.Self, cm.Selector, ref)
}

// Eval compiles source as the body of a throwaway zero-argument method
// named doIt, runs it with nil as receiver, and returns its result. A bare
// expression typed at a REPL has no class/method declaration of its own
//, so this models it as the minimal declaration that does:
// one method, installed nowhere, run once.
func (img *Image) Eval(source string) (oop.Ref, *vmerr.CompileError, error) {
	text := "doIt\n\t^ " + source
	ms, cerr := compile.ParseMethod([]byte(text))
	if cerr != nil {
		return oop.Nil, cerr, nil
	}
	info, ok := img.ClassInfo("UndefinedObject")
	if !ok {
		return oop.Nil, nil, vmerr.ErrImageCorrupt
	}
	cm := compile.CompileMethod(img.Mem, img.Symtab, img.SelectorCache, img.CompileClasses, info, ms)
	if cm.Bytecodes == nil {
		return oop.Nil, &vmerr.CompileError{Selector: "doIt", Message: "compile failed"}, nil
	}
	methodRef, err := compile.Install(img.Mem, img.CompileClasses, cm)
	if err != nil {
		return oop.Nil, nil, err
	}
	img.Mem.Incr(methodRef)
	defer img.Mem.Decr(methodRef)
	proc, err := img.VM.NewProcess(methodRef, oop.Nil, nil, info.Self)
	if err != nil {
		return oop.Nil, nil, err
	}
	if _, err := img.VM.Execute(proc, 0); err != nil {
		return oop.Nil, nil, err
	}
	return proc.Result, nil, nil
}

// addMethod appends {selector, method} to class's flat method-dictionary
// Array, growing it by one pair (or replacing an existing pair for the
// same selector).
func (img *Image) addMethod(class, selector, method oop.Ref) error {
	methodsRef, err := img.Mem.BasicAt(class, slotMethods)
	if err != nil {
		return err
	}
	if methodsRef.IsNil() {
		newDict, err := img.Mem.AllocObject(img.InterpClasses.Array, 2)
		if err != nil {
			return err
		}
		if err := img.Mem.BasicAtPut(newDict, 1, selector); err != nil {
			return err
		}
		if err := img.Mem.BasicAtPut(newDict, 2, method); err != nil {
			return err
		}
		return img.Mem.BasicAtPut(class, slotMethods, newDict)
	}
	e := img.Mem.Table.At(methodsRef.Index())
	for i := 0; i+1 < len(e.Slots); i += 2 {
		if e.Slots[i] == selector {
			return img.Mem.BasicAtPut(methodsRef, i+2, method)
		}
	}
	n := len(e.Slots)
	newDict, err := img.Mem.AllocObject(img.InterpClasses.Array, n+2)
	if err != nil {
		return err
	}
	for i, v := range e.Slots {
		if err := img.Mem.BasicAtPut(newDict, i+1, v); err != nil {
			return err
		}
	}
	if err := img.Mem.BasicAtPut(newDict, n+1, selector); err != nil {
		return err
	}
	if err := img.Mem.BasicAtPut(newDict, n+2, method); err != nil {
		return err
	}
	return img.Mem.BasicAtPut(class, slotMethods, newDict)
}
