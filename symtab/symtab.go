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

// Package symtab implements the global symbol dictionary:
// the root of the image, class lookup, and the canonical selector cache
// used by the compiler's send optimizations.
package symtab

import (
	"golang.org/x/exp/maps"

	"github.com/tinystalk/tinystalk/oop"
)

// Table is the global symbol dictionary. It is the root of the image: the
// writer emits Table.Root() as the first word of every image.
//
// An append-only `interned` list paired with a `toindex` map gives
// Intern/Lookup/Symbolize O(1) lookup in both directions.
type Table struct {
	mem *oop.Memory

	// SymbolClass and DictClass name the classes new Symbol objects and
	// the dictionary object itself are tagged with. Set by the VM at
	// bootstrap once the class objects exist.
	SymbolClass oop.Ref
	DictClass   oop.Ref

	interned []string
	toindex  map[string]int
	refs     []oop.Ref // interned[i] -> the Smalltalk Symbol object for it

	// classes maps a class name to its Class object, the backing store
	// for name resolution's "global pseudo-constant" and class lookups.
	classes map[string]oop.Ref

	dict oop.Ref // the root Dictionary object
}

// New creates an empty symbol table bound to the given object memory.
func New(mem *oop.Memory) *Table {
	return &Table{
		mem:     mem,
		toindex: make(map[string]int),
		classes: make(map[string]oop.Ref),
	}
}

// Root returns the root "symbols" reference written as the first word of
// an image.
func (t *Table) Root() oop.Ref { return t.dict }

// SetRoot installs r (typically produced by the image reader) as the root
// dictionary, replacing any Go-side caches built during bootstrap.
func (t *Table) SetRoot(r oop.Ref) { t.dict = r }

// Rebind repoints the table at a freshly loaded object memory. Every already-interned symbol and registered class keeps
// the same oop.Ref: the image reader installs each record at its original
// table index (see image.Read), so a Symbol or Class reference captured
// before a load is still the right reference after one. Without this, a
// Table left bound to the discarded pre-load memory would allocate any
// newly interned symbol into an object graph the VM no longer runs
// against.
func (t *Table) Rebind(mem *oop.Memory) { t.mem = mem }

// Lookup returns the string for a previously interned symbol, or ("",
// false) if idx is out of range.
func (t *Table) Lookup(idx int) (string, bool) {
	if idx < 0 || idx >= len(t.interned) {
		return "", false
	}
	return t.interned[idx], true
}

// Symbolize returns the symbol id for x without interning it.
func (t *Table) Symbolize(x string) (int, bool) {
	i, ok := t.toindex[x]
	return i, ok
}

// RefOf returns the object-memory reference for an already-interned
// symbol id.
func (t *Table) RefOf(idx int) oop.Ref {
	if idx < 0 || idx >= len(t.refs) {
		return oop.Nil
	}
	return t.refs[idx]
}

// Intern returns the Smalltalk Symbol object for x, allocating and
// registering a new one the first time x is seen.
func (t *Table) Intern(x string) (oop.Ref, error) {
	if i, ok := t.toindex[x]; ok {
		return t.refs[i], nil
	}
	ref, err := t.mem.AllocStr(t.SymbolClass, x)
	if err != nil {
		return oop.Nil, err
	}
	t.mem.Incr(ref)
	idx := len(t.interned)
	t.interned = append(t.interned, x)
	t.refs = append(t.refs, ref)
	t.toindex[x] = idx
	return ref, nil
}

// RegisterClass binds name to a Class object so ClassNamed (and through it
// Symbol>>value's late-bound global lookup) can find it by name, and also
// links it into the root dictionary so it survives an image round trip
// (see BindGlobal).
func (t *Table) RegisterClass(name string, class oop.Ref) error {
	t.classes[name] = class
	return t.BindGlobal(name, class)
}

// BindGlobal appends a {symbol, value} pair to the root dictionary,
// growing it by one slot pair -- the same grow-and-copy shape as a
// class's own method dictionary (boot.Image.addMethod). dict is the
// image's sole root: an object reachable only through a
// Go-side map (like the classes map above) would have its refcount
// zeroed by the next image load's root mark and be swept onto a free
// list, so anything that must outlive a reload -- every class, the
// True/False singletons -- has to hang off this dictionary too.
func (t *Table) BindGlobal(name string, value oop.Ref) error {
	symRef, err := t.Intern(name)
	if err != nil {
		return err
	}
	n := 0
	var old *oop.Entry
	if !t.dict.IsNil() {
		old = t.mem.Table.At(t.dict.Index())
		n = len(old.Slots)
	}
	next, err := t.mem.AllocObject(t.DictClass, n+2)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := t.mem.BasicAtPut(next, i+1, old.Slots[i]); err != nil {
			return err
		}
	}
	if err := t.mem.BasicAtPut(next, n+1, symRef); err != nil {
		return err
	}
	if err := t.mem.BasicAtPut(next, n+2, value); err != nil {
		return err
	}
	t.mem.Incr(next)
	if !t.dict.IsNil() {
		t.mem.Decr(t.dict)
	}
	t.dict = next
	return nil
}

// ClassNamed returns the class object registered under name, if any.
func (t *Table) ClassNamed(name string) (oop.Ref, bool) {
	c, ok := t.classes[name]
	return c, ok
}

// ClassNames returns a snapshot of all registered class names; the order
// is unspecified.
func (t *Table) ClassNames() []string {
	return maps.Keys(t.classes)
}

// Reset clears every interned symbol and registered class. Image loading
// does not use it; it repoints the table with SetRoot and Rebind.
func (t *Table) Reset() {
	t.interned = t.interned[:0]
	t.refs = t.refs[:0]
	maps.Clear(t.toindex)
	maps.Clear(t.classes)
	t.dict = oop.Nil
}
