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

package oop

import "testing"

func TestAllocObjectZeroRefCount(t *testing.T) {
	m := NewMemory()
	class := NewSmallInt(1) // stand-in class tag, not exercised here
	ref, err := m.AllocObject(class, 3)
	if err != nil {
		t.Fatalf("AllocObject: %v", err)
	}
	e := m.Table.At(ref.Index())
	if e.RefCount != 0 {
		t.Errorf("RefCount = %d, want 0", e.RefCount)
	}
	if len(e.Slots) != 3 {
		t.Errorf("len(Slots) = %d, want 3", len(e.Slots))
	}
	for i, s := range e.Slots {
		if s != Nil {
			t.Errorf("Slots[%d] = %v, want Nil", i, s)
		}
	}
}

func TestIncrDecrFreesAtZero(t *testing.T) {
	m := NewMemory()
	ref, err := m.AllocObject(Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject: %v", err)
	}
	m.Incr(ref)
	m.Incr(ref)
	e := m.Table.At(ref.Index())
	if e.RefCount != 2 {
		t.Fatalf("RefCount = %d, want 2", e.RefCount)
	}
	m.Decr(ref)
	if e.RefCount != 1 {
		t.Fatalf("RefCount = %d, want 1", e.RefCount)
	}
	m.Decr(ref)
	// Entry returned to the free list; a fresh allocation of the same shape
	// should reuse it.
	ref2, err := m.AllocObject(Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject: %v", err)
	}
	if ref2.Index() != ref.Index() {
		t.Errorf("expected freed slot %d to be reused, got %d", ref.Index(), ref2.Index())
	}
}

func TestDecrCascadesToChildren(t *testing.T) {
	m := NewMemory()
	child, err := m.AllocObject(Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject child: %v", err)
	}
	m.Incr(child)

	parent, err := m.AllocObject(Nil, 1)
	if err != nil {
		t.Fatalf("AllocObject parent: %v", err)
	}
	if err := m.BasicAtPut(parent, 1, child); err != nil {
		t.Fatalf("BasicAtPut: %v", err)
	}
	m.Incr(parent)

	childEntry := m.Table.At(child.Index())
	if childEntry.RefCount != 2 {
		t.Fatalf("child RefCount = %d, want 2 (one from Incr, one from BasicAtPut)", childEntry.RefCount)
	}

	m.Decr(parent)
	if childEntry.RefCount != 1 {
		t.Errorf("child RefCount after parent freed = %d, want 1", childEntry.RefCount)
	}
}

func TestBasicAtPutRejectsOutOfRange(t *testing.T) {
	m := NewMemory()
	ref, err := m.AllocObject(Nil, 2)
	if err != nil {
		t.Fatalf("AllocObject: %v", err)
	}
	if err := m.BasicAtPut(ref, 0, Nil); err != ErrIndexRange {
		t.Errorf("BasicAtPut(0) error = %v, want ErrIndexRange", err)
	}
	if err := m.BasicAtPut(ref, 3, Nil); err != ErrIndexRange {
		t.Errorf("BasicAtPut(3) error = %v, want ErrIndexRange", err)
	}
}

func TestAllocByteTooLarge(t *testing.T) {
	m := NewMemory()
	if _, err := m.AllocByte(Nil, MaxByteObject+1); err != ErrByteTooLarge {
		t.Errorf("AllocByte(MaxByteObject+1) error = %v, want ErrByteTooLarge", err)
	}
}

func TestAllocStrRoundTrip(t *testing.T) {
	m := NewMemory()
	ref, err := m.AllocStr(Nil, "hello")
	if err != nil {
		t.Fatalf("AllocStr: %v", err)
	}
	e := m.Table.At(ref.Index())
	if string(e.Bytes) != "hello" {
		t.Errorf("Bytes = %q, want %q", e.Bytes, "hello")
	}
}

func TestPinSurvivesDecrToZero(t *testing.T) {
	m := NewMemory()
	ref, err := m.AllocObject(Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject: %v", err)
	}
	m.Incr(ref)
	m.Pin(ref)
	m.Decr(ref)
	m.Decr(ref) // would free a non-pinned entry
	e := m.Table.At(ref.Index())
	if e == nil || e.RefCount != Pinned {
		t.Errorf("pinned entry was mutated by Decr")
	}
}

func TestShallowCopyIncrementsSharedSlots(t *testing.T) {
	m := NewMemory()
	child, err := m.AllocObject(Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject child: %v", err)
	}
	m.Incr(child)

	src, err := m.AllocObject(Nil, 1)
	if err != nil {
		t.Fatalf("AllocObject src: %v", err)
	}
	if err := m.BasicAtPut(src, 1, child); err != nil {
		t.Fatalf("BasicAtPut: %v", err)
	}

	dst, err := m.ShallowCopy(src)
	if err != nil {
		t.Fatalf("ShallowCopy: %v", err)
	}
	if dst.Index() == src.Index() {
		t.Fatalf("ShallowCopy returned the same object")
	}
	childEntry := m.Table.At(child.Index())
	if childEntry.RefCount != 3 {
		t.Errorf("child RefCount after ShallowCopy = %d, want 3", childEntry.RefCount)
	}
	got, err := m.BasicAt(dst, 1)
	if err != nil || got != child {
		t.Errorf("BasicAt(dst, 1) = %v, %v; want %v, nil", got, err, child)
	}
}
