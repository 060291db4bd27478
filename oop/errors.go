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

import "errors"

// Fatal VM errors: object-table overflow, negative refcount,
// index out of range. These indicate bugs; there is no recovery path and
// callers are expected to route them through vmerr.Reporter.Fatal.
var (
	errOutOfObjects  = errors.New("out of objects")
	ErrOutOfObjects  = errOutOfObjects
	ErrByteTooLarge  = errors.New("byte object exceeds 255 bytes")
	ErrIndexRange    = errors.New("index out of range")
	ErrNegativeCount = errors.New("negative refcount")
	ErrNotByteObject = errors.New("not a byte object")
	ErrByteObject    = errors.New("byte object has no reference slots")
)
