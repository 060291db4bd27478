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

package boot

import (
	"bytes"
	"testing"

	"github.com/tinystalk/tinystalk/compile"
	"github.com/tinystalk/tinystalk/image"
	"github.com/tinystalk/tinystalk/oop"
)

// runMethodSource compiles and installs text as a method on className,
// then runs it once with receiver and returns its result -- the same
// compile/install/run sequence Image.Eval uses internally, exposed here
// without Eval's single-expression "^ " prefix so a test can supply a
// full method with temporaries and multiple statements.
func runMethodSource(t *testing.T, img *Image, className string, receiver oop.Ref, text string) oop.Ref {
	t.Helper()
	ms, cerr := compile.ParseMethod([]byte(text))
	if cerr != nil {
		t.Fatalf("ParseMethod: %s", cerr.Error())
	}
	info, ok := img.ClassInfo(className)
	if !ok {
		t.Fatalf("ClassInfo(%q) not found", className)
	}
	cm := compile.CompileMethod(img.Mem, img.Symtab, img.SelectorCache, img.CompileClasses, info, ms)
	if cm.Bytecodes == nil {
		t.Fatal("compile failed: bytecodes is nil")
	}
	methodRef, err := compile.Install(img.Mem, img.CompileClasses, cm)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	proc, err := img.VM.NewProcess(methodRef, receiver, nil, info.Self)
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	if _, err := img.VM.Execute(proc, 0); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return proc.Result
}

func TestBootstrapCoreClassesRegistered(t *testing.T) {
	img, err := Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	for _, name := range []string{"Object", "SmallInteger", "True", "False", "Array", "String", "Block", "Context", "Process"} {
		if _, ok := img.Classes[name]; !ok {
			t.Errorf("Classes[%q] missing", name)
		}
	}
}

func TestEvalArithmetic(t *testing.T) {
	img, err := Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	result, cerr, err := img.Eval("3 + 4")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if cerr != nil {
		t.Fatalf("compile error: %s", cerr.Error())
	}
	if !result.IsInteger() || oop.IntValue(result) != 7 {
		t.Errorf("result = %v, want SmallInteger 7", result)
	}
}

func TestEvalCompileErrorSurfaces(t *testing.T) {
	img, err := Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	_, cerr, err := img.Eval("3 +")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if cerr == nil {
		t.Error("expected a compile error for an incomplete expression")
	}
}

func TestDefineClassAndInstallMethod(t *testing.T) {
	img, err := Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if _, err := img.DefineClass("Point", "Object", []string{"x", "y"}); err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	info, ok := img.ClassInfo("Point")
	if !ok {
		t.Fatal("ClassInfo(Point) not found after DefineClass")
	}
	if len(info.Variables) != 2 || info.Variables[0] != "x" || info.Variables[1] != "y" {
		t.Errorf("Variables = %v, want [x y]", info.Variables)
	}
}

func TestRootDownwardVarsInheritsSuperclassFields(t *testing.T) {
	img, err := Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if _, err := img.DefineClass("Animal", "Object", []string{"name"}); err != nil {
		t.Fatalf("DefineClass Animal: %v", err)
	}
	if _, err := img.DefineClass("Dog", "Animal", []string{"breed"}); err != nil {
		t.Fatalf("DefineClass Dog: %v", err)
	}
	info, ok := img.ClassInfo("Dog")
	if !ok {
		t.Fatal("ClassInfo(Dog) not found")
	}
	want := []string{"name", "breed"}
	if len(info.Variables) != len(want) {
		t.Fatalf("Variables = %v, want %v", info.Variables, want)
	}
	for i, v := range want {
		if info.Variables[i] != v {
			t.Errorf("Variables[%d] = %q, want %q", i, info.Variables[i], v)
		}
	}
}

// TestNonLocalReturnFromBlock checks that "^ [ ^ 42 ] value" returns 42
// from the enclosing method via the block's own non-local return, not by
// the outer send answering normally.
func TestNonLocalReturnFromBlock(t *testing.T) {
	img, err := Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	result, cerr, err := img.Eval("[ ^ 42 ] value")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if cerr != nil {
		t.Fatalf("compile error: %s", cerr.Error())
	}
	if !result.IsInteger() || oop.IntValue(result) != 42 {
		t.Errorf("result = %v, want SmallInteger 42", result)
	}
}

// TestWhileTrueCompilesToInlineLoop checks that a whileTrue: send compiles
// to an inline branch loop, not a pair of #value sends, and for initial
// i=0 the loop ends with i=10.
func TestWhileTrueCompilesToInlineLoop(t *testing.T) {
	img, err := Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	text := "whileDemo\n\t| i |\n\ti := 0.\n\t[i < 10] whileTrue: [i := i + 1].\n\t^ i"
	result := runMethodSource(t, img, "UndefinedObject", oop.Nil, text)
	if !result.IsInteger() || oop.IntValue(result) != 10 {
		t.Errorf("result = %v, want SmallInteger 10", result)
	}
}

// TestImageRoundTripRunsInstalledMethod defines a class with one method,
// writes the image, reloads it into the same VM, and confirms a send
// against the reloaded object graph still works.
func TestImageRoundTripRunsInstalledMethod(t *testing.T) {
	img, err := Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if _, err := img.DefineClass("C", "Object", nil); err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	ms, cerr := compile.ParseMethod([]byte("answer\n\t^ 42"))
	if cerr != nil {
		t.Fatalf("ParseMethod: %s", cerr.Error())
	}
	if cerr, err := img.InstallMethod("C", ms); err != nil {
		t.Fatalf("InstallMethod: %v", err)
	} else if cerr != nil {
		t.Fatalf("compile error installing answer: %s", cerr.Error())
	}

	var buf bytes.Buffer
	if err := image.Write(&buf, img.Mem, img.Symtab.Root(), img.ImageClasses); err != nil {
		t.Fatalf("image.Write: %v", err)
	}

	mem2, root2, err := image.Read(&buf)
	if err != nil {
		t.Fatalf("image.Read: %v", err)
	}
	img.Mem = mem2
	img.Symtab.SetRoot(root2)
	img.Symtab.Rebind(mem2)
	img.VM.SetMemory(mem2)

	result, cerr, err := img.Eval("C new answer")
	if err != nil {
		t.Fatalf("Eval after reload: %v", err)
	}
	if cerr != nil {
		t.Fatalf("compile error after reload: %s", cerr.Error())
	}
	if !result.IsInteger() || oop.IntValue(result) != 42 {
		t.Errorf("result = %v, want SmallInteger 42", result)
	}
}
