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

package primitive

import (
	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
	"github.com/tinystalk/tinystalk/sched"
)

// Controller bundles the scheduler and the Go-side registry mapping a
// Smalltalk-level Process object to the interp.Process it drives,
// threaded into the control primitives of control.go.
//
// interp.Process has no object-memory representation of its own (this
// VM's activation chain lives entirely in Go Frame values, not in a
// byte-addressable stack image); ProcessClass gives every spawned
// process a thin Smalltalk-visible handle so existing-object-identity
// things (==, inst var storage) still work on it.
type Controller struct {
	Sched        *sched.Scheduler
	ProcessClass oop.Ref

	byRef    map[oop.Ref]*interp.Process
	byProc   map[*interp.Process]oop.Ref
	maxSteps int
}

// NewController builds a Controller around an already-wired Scheduler.
// maxSteps bounds how many bytecodes Resume runs before yielding control
// back to its caller (0 means unbounded, matching VM.Execute's contract).
func NewController(s *sched.Scheduler, processClass oop.Ref, maxSteps int) *Controller {
	return &Controller{
		Sched:        s,
		ProcessClass: processClass,
		byRef:        make(map[oop.Ref]*interp.Process),
		byProc:       make(map[*interp.Process]oop.Ref),
		maxSteps:     maxSteps,
	}
}

// Spawn creates a fresh interp.Process whose sole activation is block
//, registers it, and returns its Smalltalk-level handle.
func (c *Controller) Spawn(vm *interp.VM, block oop.Ref) (oop.Ref, error) {
	proc := interp.NewProcess(nil)
	if err := vm.ActivateBlock(proc, block, nil); err != nil {
		return oop.Nil, err
	}
	ref, err := vm.Memory().AllocObject(c.ProcessClass, 3)
	if err != nil {
		return oop.Nil, err
	}
	vm.Memory().Incr(ref)
	c.byRef[ref] = proc
	c.byProc[proc] = ref
	return ref, nil
}

// Resume runs the process registered under ref for up to maxSteps
// bytecodes, reporting whether it is
// still runnable afterward.
func (c *Controller) Resume(vm *interp.VM, ref oop.Ref) (runnable bool, ok bool) {
	proc, found := c.byRef[ref]
	if !found {
		return false, false
	}
	runnable, err := c.Sched.RunSmalltalkProcess(proc, c.maxSteps)
	if err != nil {
		return false, false
	}
	if !runnable {
		delete(c.byRef, ref)
		delete(c.byProc, proc)
		vm.Memory().Decr(ref)
	}
	return runnable, true
}

// RefOf returns the Smalltalk handle for proc, if it was spawned through
// this Controller.
func (c *Controller) RefOf(proc *interp.Process) (oop.Ref, bool) {
	ref, ok := c.byProc[proc]
	return ref, ok
}
