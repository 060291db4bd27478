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

package compile

import "github.com/tinystalk/tinystalk/oop"

// ClassInfo is the compiler's view of a class: enough to resolve instance
// variable names and to know the class object a compiled method belongs
// to. It is populated by walking the superclass chain root-downward so
// inherited instance variables come first, matching the class layout's
// slot ordering.
type ClassInfo struct {
	Self      oop.Ref
	Name      string
	Variables []string // root-downward: superclass vars first
}

// InstVarIndex returns the 1-based slot index of name among Variables, or
// (0, false) if it is not an instance variable of this class.
func (c *ClassInfo) InstVarIndex(name string) (int, bool) {
	for i, v := range c.Variables {
		if v == name {
			return i + 1, true
		}
	}
	return 0, false
}
