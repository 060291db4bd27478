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
	"testing"

	"github.com/tinystalk/tinystalk/oop"
)

func TestVMQueueFIFOAndRefcount(t *testing.T) {
	mem := oop.NewMemory()
	block, err := mem.AllocObject(oop.Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject: %v", err)
	}
	q := NewVMQueue(mem)
	if !q.EnqueueVMBlock(block) {
		t.Fatal("EnqueueVMBlock failed on an empty queue")
	}
	e := mem.Table.At(block.Index())
	if e.RefCount != 1 {
		t.Errorf("RefCount after enqueue = %d, want 1", e.RefCount)
	}
	if !q.HasVMBlock() {
		t.Error("HasVMBlock() = false after enqueue")
	}
	got, ok := q.DequeueVMBlock()
	if !ok || got != block {
		t.Fatalf("DequeueVMBlock() = %v, %v; want %v, true", got, ok, block)
	}
	if q.HasVMBlock() {
		t.Error("HasVMBlock() = true after draining the only entry")
	}
}

func TestVMQueueBoundedDepth(t *testing.T) {
	mem := oop.NewMemory()
	q := NewVMQueue(mem)
	block, err := mem.AllocObject(oop.Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject: %v", err)
	}
	for i := 0; i < QueueDepth; i++ {
		if !q.EnqueueVMBlock(block) {
			t.Fatalf("EnqueueVMBlock failed at depth %d, want success up to %d", i, QueueDepth)
		}
	}
	if q.EnqueueVMBlock(block) {
		t.Error("EnqueueVMBlock succeeded past QueueDepth")
	}
}

func TestExternalQueueHighPriorityFront(t *testing.T) {
	q := NewExternalQueue()
	low := Item{Priority: 0}
	high := Item{Priority: 1}
	q.EnqueueItem(low, false)
	q.EnqueueItem(high, true)

	stop := make(chan struct{})
	first, ok := q.Dequeue(stop)
	if !ok || first != high {
		t.Fatalf("first Dequeue = %+v, %v; want the high-priority item", first, ok)
	}
	second, ok := q.Dequeue(stop)
	if !ok || second != low {
		t.Fatalf("second Dequeue = %+v, %v; want the low-priority item", second, ok)
	}
}

func TestTimersTickEnqueuesAtZero(t *testing.T) {
	mem := oop.NewMemory()
	block, err := mem.AllocObject(oop.Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject: %v", err)
	}
	timers := NewTimers(mem)
	q := NewVMQueue(mem)
	timers.RunBlockAfter(block, oop.Nil, 2)

	timers.Tick(q)
	if q.HasVMBlock() {
		t.Fatal("block enqueued before its tick countdown elapsed")
	}
	timers.Tick(q)
	if !q.HasVMBlock() {
		t.Fatal("block not enqueued once its tick countdown reached zero")
	}
}
