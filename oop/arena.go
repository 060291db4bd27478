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

// PageSize is the size in bytes of one arena page.
const PageSize = 16 * 1024

// page is one bump-allocated block of the arena.
type page struct {
	mem []byte
	off int
}

func (p *page) reset() {
	p.off = 0
}

// Arena is a bump allocator carving fixed-size pages out of a preallocated
// pool for small objects. The allocation primitives treat
// pages as opaque memory; only Arena knows how to carve them up.
//
// A monotonic bump allocator: no per-allocation free, only a full Reset
// at image reload.
type Arena struct {
	pages []page
}

// NewArena creates an empty arena. Pages are allocated lazily on demand.
func NewArena() *Arena {
	return &Arena{}
}

// allocBytes carves n bytes out of the current page, starting a fresh page
// when there isn't enough room left (or when n itself exceeds PageSize, in
// which case the new page is sized exactly to fit it).
func (a *Arena) allocBytes(n int) []byte {
	if n > PageSize {
		a.pages = append(a.pages, page{mem: make([]byte, n), off: n})
		return a.pages[len(a.pages)-1].mem
	}
	if len(a.pages) == 0 || PageSize-a.pages[len(a.pages)-1].off < n {
		a.pages = append(a.pages, page{mem: make([]byte, PageSize)})
	}
	p := &a.pages[len(a.pages)-1]
	out := p.mem[p.off : p.off+n : p.off+n]
	p.off += n
	return out
}

// AllocSlots returns a fresh, zeroed slice of n reference slots.
func (a *Arena) AllocSlots(n int) []Ref {
	return make([]Ref, n)
}

// AllocBytes returns a fresh, zeroed slice of n payload bytes carved from
// the arena's page pool.
func (a *Arena) AllocBytes(n int) []byte {
	return a.allocBytes(n)
}

// Reset discards all pages. Used when reloading an image: the old heap
// becomes unreachable in its entirety.
func (a *Arena) Reset() {
	a.pages = a.pages[:0]
}
