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

// Package sched implements the cooperative block/process scheduler: the
// VM-block queue the interpreter drains between bytecodes, the
// external-block queue a producer (device ISR, host OS task) feeds from
// outside the VM thread, and runBlockAfter's tick-delayed enqueue.
package sched

import (
	"sync"

	"github.com/tinystalk/tinystalk/oop"
)

// QueueDepth bounds the VM-block queue; the external queue is unbounded.
const QueueDepth = 16

// VMQueue is the VM-block queue: block object references the interpreter
// drains cooperatively between bytecodes. It is
// touched only by the VM's own goroutine, so it needs no locking -- the
// single-threaded-cooperative model is exactly what lets this be a plain
// ring buffer.
type VMQueue struct {
	mem  *oop.Memory
	buf  [QueueDepth]oop.Ref
	head int
	n    int
}

// NewVMQueue builds an empty VM-block queue bound to mem for the
// incr/decr discipline enqueue/dequeue must follow.
func NewVMQueue(mem *oop.Memory) *VMQueue {
	return &VMQueue{mem: mem}
}

// EnqueueVMBlock pushes block onto the back of the queue, incrementing
// its refcount. It reports false if the queue is full -- a full VM-block queue is a sign
// the interpreter isn't draining it, not a condition this package papers
// over silently.
func (q *VMQueue) EnqueueVMBlock(block oop.Ref) bool {
	if q.n == QueueDepth {
		return false
	}
	q.mem.Incr(block)
	q.buf[(q.head+q.n)%QueueDepth] = block
	q.n++
	return true
}

// DequeueVMBlock pops the front block, or (Nil, false) if empty. The
// caller inherits the reference this queue was holding; it does not
// decrement on the way out.
func (q *VMQueue) DequeueVMBlock() (oop.Ref, bool) {
	if q.n == 0 {
		return oop.Nil, false
	}
	b := q.buf[q.head]
	q.buf[q.head] = oop.Nil
	q.head = (q.head + 1) % QueueDepth
	q.n--
	return b, true
}

// HasVMBlock reports whether the queue is non-empty.
func (q *VMQueue) HasVMBlock() bool { return q.n > 0 }

// Item is one external-block-queue entry: the block to run, its single
// argument, and a priority used to pick front-vs-back insertion.
type Item struct {
	Block    oop.Ref
	Arg      oop.Ref
	Priority int
}

// ExternalQueue is fed by a producer outside the VM thread (a device ISR,
// a host OS task) and drained by a single dispatcher goroutine that waits
// until the VM is interruptible before installing an item into a VMQueue.
type ExternalQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []Item
}

// NewExternalQueue builds an empty external-block queue.
func NewExternalQueue() *ExternalQueue {
	q := &ExternalQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// EnqueueItem adds item to the queue: to the front if highPriority, else
// the back. Safe to call from any goroutine, including an ISR-style producer.
func (q *ExternalQueue) EnqueueItem(item Item, highPriority bool) {
	q.mu.Lock()
	if highPriority {
		q.items = append([]Item{item}, q.items...)
	} else {
		q.items = append(q.items, item)
	}
	q.mu.Unlock()
	q.cond.Signal()
}

// HasItem reports whether the queue has a pending entry.
func (q *ExternalQueue) HasItem() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) > 0
}

// Dequeue blocks until an item is available (or stop is closed), then
// returns it. This is the dispatcher's "wait until the interpreter is
// interruptible" consumer loop's source of work; the actual wait-for-
// interruptible-point gate lives in the caller (Scheduler.DrainExternal), not
// here -- this only guards the queue's own mutation.
func (q *ExternalQueue) Dequeue(stop <-chan struct{}) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		done := make(chan struct{})
		go func() {
			select {
			case <-stop:
				q.cond.Broadcast()
			case <-done:
			}
		}()
		q.cond.Wait()
		close(done)
		select {
		case <-stop:
			return Item{}, false
		default:
		}
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// delayedBlock is one runBlockAfter registration: a block enqueued once
// its tick countdown reaches zero.
type delayedBlock struct {
	block, arg oop.Ref
	ticksLeft  int
}

// Timers tracks pending runBlockAfter registrations and feeds them into a
// VMQueue as their countdowns elapse. Ticked once per interpreter
// bytecode (or a coarser interval) from the VM's own goroutine.
type Timers struct {
	mem     *oop.Memory
	pending []delayedBlock
}

// NewTimers builds an empty timer set.
func NewTimers(mem *oop.Memory) *Timers {
	return &Timers{mem: mem}
}

// RunBlockAfter registers block to be enqueued onto q after ticks calls
// to Tick elapse. block and arg are retained with an Incr for
// the lifetime of the registration.
func (t *Timers) RunBlockAfter(block, arg oop.Ref, ticks int) {
	t.mem.Incr(block)
	t.mem.Incr(arg)
	t.pending = append(t.pending, delayedBlock{block: block, arg: arg, ticksLeft: ticks})
}

// Tick decrements every pending countdown by one and enqueues any that
// reach zero onto q, then releases this package's hold on them (the
// queue itself takes its own Incr on EnqueueVMBlock).
func (t *Timers) Tick(q *VMQueue) {
	if len(t.pending) == 0 {
		return
	}
	live := t.pending[:0]
	for _, d := range t.pending {
		d.ticksLeft--
		if d.ticksLeft > 0 {
			live = append(live, d)
			continue
		}
		q.EnqueueVMBlock(d.block)
		t.mem.Decr(d.block)
		t.mem.Decr(d.arg)
	}
	t.pending = live
}
