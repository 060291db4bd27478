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

package interp

import "github.com/tinystalk/tinystalk/oop"

// Process is a single Smalltalk process: a chain of Frame activations
// rooted at the method it was scheduled with. sched assigns
// each one an identity; interp only cares about its
// activation stack and its outcome.
type Process struct {
	top *Frame

	// Result and Finished record the outcome once top unwinds past the
	// root frame.
	Result   oop.Ref
	Finished bool
}

// NewProcess starts a process whose only activation is root.
func NewProcess(root *Frame) *Process {
	return &Process{top: root}
}

// Runnable reports whether the process still has an activation to run.
func (p *Process) Runnable() bool { return p.top != nil && !p.Finished }
