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

// Memory is the object memory: the object table, its arena, and the
// reference-counted allocation primitives.
type Memory struct {
	Table *Table
	arena *Arena
}

// NewMemory builds an empty object memory with the nil entry installed.
func NewMemory() *Memory {
	a := NewArena()
	return &Memory{Table: NewTable(a), arena: a}
}

// AllocObject allocates a new object of class `class` with n reference
// slots, all initialized to Nil. The returned object has RefCount 0:
// newly created objects start unreferenced.
func (m *Memory) AllocObject(class Ref, n int) (Ref, error) {
	idx, err := m.Table.allocSlot(n)
	if err != nil {
		return Nil, err
	}
	e := m.Table.At(idx)
	e.Class = class
	e.Size = int32(n)
	e.RefCount = 0
	if e.Slots == nil || cap(e.Slots) < n {
		e.Slots = m.arena.AllocSlots(n)
	} else {
		e.Slots = e.Slots[:n]
		for i := range e.Slots {
			e.Slots[i] = Nil
		}
	}
	e.Bytes = nil
	return FromIndex(idx), nil
}

// AllocByte allocates a new byte object of class `class` holding n bytes,
// zero-filled. n must not exceed MaxByteObject.
func (m *Memory) AllocByte(class Ref, n int) (Ref, error) {
	if n > MaxByteObject {
		return Nil, ErrByteTooLarge
	}
	idx, err := m.Table.allocSlot(0)
	if err != nil {
		return Nil, err
	}
	e := m.Table.At(idx)
	e.Class = class
	e.Size = int32(-n)
	e.RefCount = 0
	e.Slots = nil
	e.Bytes = m.arena.AllocBytes(n)
	return FromIndex(idx), nil
}

// AllocStr allocates a byte object of class `class` and copies the bytes of
// s into it.
func (m *Memory) AllocStr(class Ref, s string) (Ref, error) {
	ref, err := m.AllocByte(class, len(s))
	if err != nil {
		return Nil, err
	}
	copy(m.Table.At(ref.Index()).Bytes, s)
	return ref, nil
}

// Incr increments the refcount of r. Integer-tagged references and the nil
// reference are never counted; pinned entries are ignored.
func (m *Memory) Incr(r Ref) {
	if r.IsInteger() || r.IsNil() {
		return
	}
	e := m.Table.At(r.Index())
	if e == nil || e.RefCount == Pinned {
		return
	}
	e.RefCount++
}

// Decr decrements the refcount of r. On reaching zero it recursively
// decrements every child slot, nulls them, and returns the entry to its
// free list. Pinned entries are never mutated.
func (m *Memory) Decr(r Ref) {
	if r.IsInteger() || r.IsNil() {
		return
	}
	idx := r.Index()
	e := m.Table.At(idx)
	if e == nil || e.RefCount == Pinned {
		return
	}
	e.RefCount--
	if e.RefCount > 0 {
		return
	}
	for i := range e.Slots {
		child := e.Slots[i]
		e.Slots[i] = Nil
		m.Decr(child)
	}
	size := e.SlotCount()
	m.Table.pushFree(idx, size)
}

// Assign implements the "decr old; store new; incr new" field-replacement
// discipline required everywhere a reference field is overwritten.
func (m *Memory) Assign(old *Ref, next Ref) {
	m.Decr(*old)
	*old = next
	m.Incr(next)
}

// BasicAt reads reference slot i (1-based) of r.
func (m *Memory) BasicAt(r Ref, i int) (Ref, error) {
	e := m.Table.At(r.Index())
	if e == nil || e.IsByteObject() {
		return Nil, ErrByteObject
	}
	if i < 1 || i > len(e.Slots) {
		return Nil, ErrIndexRange
	}
	return e.Slots[i-1], nil
}

// BasicAtPut writes reference slot i (1-based) of r, maintaining the
// incr/decr discipline.
func (m *Memory) BasicAtPut(r Ref, i int, v Ref) error {
	e := m.Table.At(r.Index())
	if e == nil || e.IsByteObject() {
		return ErrByteObject
	}
	if i < 1 || i > len(e.Slots) {
		return ErrIndexRange
	}
	m.Assign(&e.Slots[i-1], v)
	return nil
}

// ByteAt reads byte i (1-based) of the byte object r.
func (m *Memory) ByteAt(r Ref, i int) (byte, error) {
	e := m.Table.At(r.Index())
	if e == nil || !e.IsByteObject() {
		return 0, ErrNotByteObject
	}
	if i < 1 || i > len(e.Bytes) {
		return 0, ErrIndexRange
	}
	return e.Bytes[i-1], nil
}

// ByteAtPut writes byte i (1-based) of the byte object r.
func (m *Memory) ByteAtPut(r Ref, i int, v byte) error {
	e := m.Table.At(r.Index())
	if e == nil || !e.IsByteObject() {
		return ErrNotByteObject
	}
	if i < 1 || i > len(e.Bytes) {
		return ErrIndexRange
	}
	e.Bytes[i-1] = v
	return nil
}

// ShallowCopy allocates a new object of the same class and size as r, with
// each slot/byte copied (and, for reference slots, each copied reference
// incremented).
func (m *Memory) ShallowCopy(r Ref) (Ref, error) {
	src := m.Table.At(r.Index())
	if src == nil {
		return Nil, ErrIndexRange
	}
	if src.IsByteObject() {
		dst, err := m.AllocByte(src.Class, src.ByteLen())
		if err != nil {
			return Nil, err
		}
		copy(m.Table.At(dst.Index()).Bytes, src.Bytes)
		return dst, nil
	}
	dst, err := m.AllocObject(src.Class, src.SlotCount())
	if err != nil {
		return Nil, err
	}
	de := m.Table.At(dst.Index())
	for i, v := range src.Slots {
		de.Slots[i] = v
		m.Incr(v)
	}
	return dst, nil
}

// ClassOf returns the class reference of r, or Nil for the nil object and
// for integers (callers resolve the SmallInteger class separately).
func (m *Memory) ClassOf(r Ref) Ref {
	if r.IsInteger() || r.IsNil() {
		return Nil
	}
	e := m.Table.At(r.Index())
	if e == nil {
		return Nil
	}
	return e.Class
}

// Pin marks r as ROM-resident: never freed, never mutated by Incr/Decr.
// Used by the image loader's ROM-mapping mode.
func (m *Memory) Pin(r Ref) {
	if r.IsInteger() || r.IsNil() {
		return
	}
	if e := m.Table.At(r.Index()); e != nil {
		e.RefCount = Pinned
	}
}
