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

// Package primitive implements the fixed numeric primitive dispatch
// table: a registry of native operations grouped by range (0-49
// arithmetic/reflection, 50-79 object manipulation, 80-119 control/
// process, 120-149 I/O, 150+ system/host primitives).
package primitive

import (
	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
)

// Fn is the implementation of one primitive. It returns (result, true) on
// success, or (oop.Nil, false) on primitive failure, in which case the
// interpreter falls through to the method's fallback bytecodes.
type Fn func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool)

// Descriptor holds the arity and type contract for one primitive, rather
// than inline assertions scattered through the dispatch switch.
type Descriptor struct {
	Name string
	Argc int
	// Check validates args before Fn runs. A non-nil error is a contract
	// violation (wrong type, not the primitive's own business logic
	// failing) and is routed to the fatal error surface, not a primitive-failure
	// fallback.
	Check func(args []oop.Ref) error
	Fn    Fn
}
