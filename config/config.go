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

// Package config implements the boot-time configuration document
// cmd/tinystalk reads before starting a VM: which image to load, its
// format and heap sizing, the console backend, and the per-resume step
// budget.
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Config is the top-level boot document.
type Config struct {
	// Image names the image file to boot from when no -i flag is given.
	// Empty means start from a fresh in-process boot.Bootstrap() kernel
	// instead of loading one from disk.
	Image string `json:"image"`

	// ImageFormat names which of the three interoperable formats Image
	// is encoded in: "monolithic", "split", or "split-rom". cmd/tinystalk
	// does not read it; it always loads Image as a monolithic image.
	ImageFormat string `json:"imageFormat"`

	// Heap describes object-memory sizing. cmd/tinystalk does not read it;
	// the object table and arena use oop's built-in limits.
	Heap HeapConfig `json:"heap"`

	// Console selects the I/O backend: "tty" for a raw-mode real
	// terminal, "pipe" for plain buffered stdin/stdout (useful when stdin
	// isn't a terminal, e.g. piped test input).
	Console string `json:"console"`

	// MaxStepsPerResume bounds how many bytecodes a single
	// Scheduler.RunSmalltalkProcess call executes before yielding control
	// back to the host loop.
	MaxStepsPerResume int `json:"maxStepsPerResume"`
}

// HeapConfig sizes the object table and byte-object arena.
type HeapConfig struct {
	// ObjectTableCapacity caps live object-table entries; 0 means the
	// package default (oop.ObjectTableMax).
	ObjectTableCapacity int `json:"objectTableCapacity"`

	// ArenaPageSize sizes each slab the arena requests from the Go
	// allocator at a time; 0 means the package default.
	ArenaPageSize int `json:"arenaPageSize"`
}

// Default returns the configuration used when no file is given: fresh
// bootstrap, default heap sizing, a raw tty console.
func Default() Config {
	return Config{
		Console:           "tty",
		MaxStepsPerResume: 10000,
	}
}

// Load reads and parses a YAML config document from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
