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

package sched

import (
	"github.com/google/uuid"

	"github.com/tinystalk/tinystalk/interp"
)

// Scheduler binds a VM to its cooperative queues: the
// VM-block queue the VM polls at each bytecode boundary, the timer set
// feeding delayed blocks into it, and an external queue a dispatcher
// drains from another goroutine.
type Scheduler struct {
	VM      *interp.VM
	VMQ     *VMQueue
	Timers  *Timers
	Ext     *ExternalQueue
	current *TaggedProcess
}

// TaggedProcess pairs a Process with the diagnostic identity sched
// assigns it at scheduling time, for log correlation across a process's
// lifetime.
type TaggedProcess struct {
	ID      uuid.UUID
	Process *interp.Process
}

// NewScheduler wires vm to a fresh pair of queues and installs the
// VM-block-queue drain as vm.Interrupt.
func NewScheduler(vm *interp.VM) *Scheduler {
	s := &Scheduler{
		VM:     vm,
		VMQ:    NewVMQueue(vm.Memory()),
		Timers: NewTimers(vm.Memory()),
		Ext:    NewExternalQueue(),
	}
	vm.Interrupt = s.VMQ.DequeueVMBlock
	return s
}

// RunSmalltalkProcess sets proc as the current process and re-enters
// Execute, running up to maxSteps bytecodes.
func (s *Scheduler) RunSmalltalkProcess(proc *interp.Process, maxSteps int) (runnable bool, err error) {
	s.current = &TaggedProcess{ID: uuid.New(), Process: proc}
	s.Timers.Tick(s.VMQ)
	return s.VM.Execute(proc, maxSteps)
}

// Current returns the process most recently scheduled via
// RunSmalltalkProcess, or nil.
func (s *Scheduler) Current() *TaggedProcess { return s.current }

// DrainExternal runs the external-queue dispatcher for a single item: pop
// one entry from the external queue (non-blocking) and
// install its block into the VM-block queue. Intended to be called by the
// VM's own goroutine at an interruptible point, so no further
// synchronization with Execute is needed beyond VMQueue's single-writer
// discipline.
func (s *Scheduler) DrainExternal() bool {
	if !s.Ext.HasItem() {
		return false
	}
	stop := make(chan struct{})
	close(stop)
	item, ok := s.Ext.Dequeue(stop)
	if !ok {
		return false
	}
	return s.VMQ.EnqueueVMBlock(item.Block)
}
