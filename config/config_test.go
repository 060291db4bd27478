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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Console != "tty" {
		t.Errorf("Console = %q, want tty", cfg.Console)
	}
	if cfg.MaxStepsPerResume != 10000 {
		t.Errorf("MaxStepsPerResume = %d, want 10000", cfg.MaxStepsPerResume)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinystalk.yaml")
	yaml := "console: pipe\nheap:\n  objectTableCapacity: 4096\nmaxStepsPerResume: 500\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Console != "pipe" {
		t.Errorf("Console = %q, want pipe", cfg.Console)
	}
	if cfg.Heap.ObjectTableCapacity != 4096 {
		t.Errorf("Heap.ObjectTableCapacity = %d, want 4096", cfg.Heap.ObjectTableCapacity)
	}
	if cfg.MaxStepsPerResume != 500 {
		t.Errorf("MaxStepsPerResume = %d, want 500", cfg.MaxStepsPerResume)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/no/such/path/tinystalk.yaml"); err == nil {
		t.Error("expected an error loading a nonexistent config file")
	}
}
