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

import "golang.org/x/exp/slices"

// Pinned is the sentinel refCount marking a ROM-resident entry: it is never
// freed and both Incr and Decr treat it as a no-op.
const Pinned uint16 = 0x7F

// ObjectTableMax bounds the number of live object-table entries.
const ObjectTableMax = 1 << 20

// MaxByteObject is the largest byte object this allocator will create.
const MaxByteObject = 255

// Entry is one object-table record: class, signed size, refcount and the
// underlying payload.
//
// Size > 0 means Slots holds Size reference slots. Size < 0 means Bytes
// holds -Size payload bytes (strings, byte arrays, compiled bytecodes).
// A free entry has RefCount 0, nil Slots and Bytes, and keeps in Size the
// slot count of the free list it sits on.
type Entry struct {
	Class    Ref
	Size     int32
	RefCount uint16
	Slots    []Ref
	Bytes    []byte

	// nextFree threads this entry onto the free list for its size class
	// when RefCount == 0: a dedicated field rather than overloading the
	// class field as free-list link storage, since this struct already
	// has room for it.
	nextFree int
}

func (e *Entry) free() bool { return e.RefCount == 0 && e.nextFree != unlinked }

// unlinked marks an entry that is not currently threaded onto any free
// list (including live entries and entry 0, which is never freed).
const unlinked = -1

// IsByteObject reports whether e stores a byte payload rather than slots.
func (e *Entry) IsByteObject() bool { return e.Size < 0 }

// SlotCount returns the number of reference slots in e (0 for byte objects).
func (e *Entry) SlotCount() int {
	if e.Size < 0 {
		return 0
	}
	return int(e.Size)
}

// ByteLen returns the number of payload bytes in e (0 for slot objects).
func (e *Entry) ByteLen() int {
	if e.Size >= 0 {
		return 0
	}
	return int(-e.Size)
}

// Table is the VM's object table: entries indexed by oop index, plus the
// free lists used by the allocator.
type Table struct {
	entries []Entry

	// freeBySize[n] is the index of the head of the free list of entries
	// with exactly n reference slots. freeBySize[0] is also the universal
	// pool of size-0 entries that can be resized by trimming.
	freeBySize []int

	arena *Arena
}

// NewTable allocates a table with the distinguished nil entry installed at
// index 0.
func NewTable(arena *Arena) *Table {
	t := &Table{
		entries:    make([]Entry, 1, 4096),
		freeBySize: []int{-1},
		arena:      arena,
	}
	t.entries[0] = Entry{nextFree: unlinked}
	return t
}

// Len returns the current number of entries (free and live).
func (t *Table) Len() int { return len(t.entries) }

// EnsureLen grows the table so that index n is valid, padding any newly
// created slots as unlinked (not free-listed, not live). Used by the image
// reader to install records at their original on-disk index.
func (t *Table) EnsureLen(n int) {
	for len(t.entries) <= n {
		t.entries = append(t.entries, Entry{nextFree: unlinked})
	}
}

// At returns the entry at idx, or nil if idx is out of range.
func (t *Table) At(idx int) *Entry {
	if idx < 0 || idx >= len(t.entries) {
		return nil
	}
	return &t.entries[idx]
}

func (t *Table) ensureFreeSlot(size int) {
	for len(t.freeBySize) <= size {
		t.freeBySize = append(t.freeBySize, -1)
	}
}

func (t *Table) popFree(size int) int {
	t.ensureFreeSlot(size)
	idx := t.freeBySize[size]
	if idx < 0 {
		return -1
	}
	t.freeBySize[size] = t.entries[idx].nextFree
	t.entries[idx].nextFree = unlinked
	return idx
}

func (t *Table) pushFree(idx int, size int) {
	t.ensureFreeSlot(size)
	e := &t.entries[idx]
	e.RefCount = 0
	e.Class = Nil
	e.Slots = nil
	e.Bytes = nil
	e.Size = int32(size)
	e.nextFree = t.freeBySize[size]
	t.freeBySize[size] = idx
}

// newEntry appends a fresh, unlinked entry and returns its index.
func (t *Table) newEntry() (int, error) {
	if len(t.entries) >= ObjectTableMax {
		return 0, errOutOfObjects
	}
	t.entries = append(t.entries, Entry{nextFree: unlinked})
	return len(t.entries) - 1, nil
}

// allocSlot implements the five-step allocation strategy for an entry
// that will need `want` reference slots (want==0 is used for byte objects,
// which are sized in bytes; the entry they get may come from any free
// list, and its slots are dropped by the caller).
func (t *Table) allocSlot(want int) (int, error) {
	// 1. exact-size free list
	if idx := t.popFree(want); idx >= 0 {
		return idx, nil
	}
	// 2. a size-0 entry plus a fresh memory block
	if idx := t.popFree(0); idx >= 0 {
		return idx, nil
	}
	// 3. shrink a larger free-listed entry, reusing its memory
	t.ensureFreeSlot(want)
	for sz := want + 1; sz < len(t.freeBySize); sz++ {
		if idx := t.popFree(sz); idx >= 0 {
			e := &t.entries[idx]
			if e.Slots != nil {
				e.Slots = e.Slots[:want]
			}
			return idx, nil
		}
	}
	// 4. repurpose a smaller free-listed entry: drop its memory, allocate fresh
	for sz := want - 1; sz >= 0; sz-- {
		if idx := t.popFree(sz); idx >= 0 {
			t.entries[idx].Slots = nil
			return idx, nil
		}
	}
	// 5. append a fresh entry; fails only once the table holds
	// ObjectTableMax entries
	idx, err := t.newEntry()
	if err != nil {
		return 0, err
	}
	return idx, nil
}

// Compact trims trailing entries whose RefCount is 0 from the table to
// keep its backing array tight. Nothing in this repository calls it.
func (t *Table) Compact() {
	for len(t.entries) > 1 {
		last := &t.entries[len(t.entries)-1]
		if last.RefCount != 0 {
			break
		}
		t.entries = t.entries[:len(t.entries)-1]
	}
	t.entries = slices.Clip(t.entries)
}
