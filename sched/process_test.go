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

package sched_test

import (
	"testing"

	"github.com/tinystalk/tinystalk/boot"
	"github.com/tinystalk/tinystalk/sched"
)

func TestNewSchedulerWiresInterrupt(t *testing.T) {
	img, err := boot.Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	s := sched.NewScheduler(img.VM)
	if s.VM != img.VM {
		t.Fatal("Scheduler.VM does not reference the bootstrapped VM")
	}
	if img.VM.Interrupt == nil {
		t.Error("NewScheduler left VM.Interrupt unset")
	}
	if s.Current() != nil {
		t.Error("Current() before any RunSmalltalkProcess call should be nil")
	}
}

func TestEvalWithSchedulerInstalled(t *testing.T) {
	img, err := boot.Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	sched.NewScheduler(img.VM)

	result, cerr, err := img.Eval("3 + 4")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if cerr != nil {
		t.Fatalf("compile error: %s", cerr.Error())
	}
	if !result.IsInteger() {
		t.Fatalf("result = %v, want a SmallInteger", result)
	}
}

func TestDrainExternalEmpty(t *testing.T) {
	img, err := boot.Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	s := sched.NewScheduler(img.VM)
	if s.DrainExternal() {
		t.Error("DrainExternal() on an empty external queue returned true")
	}
}
