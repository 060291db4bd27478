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

// RootMark performs the post-image-load root-mark pass:
// reset every non-pinned refcount to zero, then walk depth-first from root
// in pre-order, incrementing each reference encountered. The first time an
// object is visited its children are walked too; later visits only bump
// the count. Afterwards anything still at zero is recycled onto the free
// lists, and the free lists themselves are rebuilt from scratch.
func (m *Memory) RootMark(root Ref) {
	for i := 1; i < m.Table.Len(); i++ {
		e := &m.Table.entries[i]
		if e.RefCount != Pinned {
			e.RefCount = 0
		}
	}

	visited := make([]bool, m.Table.Len())
	var visit func(Ref)
	visit = func(r Ref) {
		if r.IsInteger() || r.IsNil() {
			return
		}
		idx := r.Index()
		e := m.Table.At(idx)
		if e == nil {
			return
		}
		first := idx < len(visited) && !visited[idx]
		if e.RefCount != Pinned {
			e.RefCount++
		}
		if !first {
			return
		}
		visited[idx] = true
		visit(e.Class)
		for _, slot := range e.Slots {
			visit(slot)
		}
	}
	visit(root)

	m.rebuildFreeLists(visited)
}

// rebuildFreeLists discards the current free lists and re-threads every
// entry with RefCount == 0 (and not visited as reachable) onto the free
// list for its size class.
func (m *Memory) rebuildFreeLists(visited []bool) {
	m.Table.freeBySize = m.Table.freeBySize[:0]
	for i := 1; i < m.Table.Len(); i++ {
		e := &m.Table.entries[i]
		e.nextFree = unlinked
		if e.RefCount == Pinned {
			continue
		}
		if i < len(visited) && visited[i] {
			continue
		}
		e.RefCount = 0
		size := e.SlotCount()
		if e.IsByteObject() {
			size = 0
		}
		m.Table.pushFree(i, size)
	}
}
