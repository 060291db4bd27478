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

package main

import (
	"io"
	"os"

	"github.com/tinystalk/tinystalk/console"
	"github.com/tinystalk/tinystalk/image"
	"github.com/tinystalk/tinystalk/oop"
)

// fileHost implements primitive.HostIO on top of a console.Console for
// line I/O and real os.Files for the file-primitive range. It is the one place production code touches the OS
// filesystem; tests substitute their own HostIO.
type fileHost struct {
	con     *console.Console
	files   map[int]*os.File
	nextFID int
}

func newFileHost(con *console.Console) *fileHost {
	return &fileHost{con: con, files: make(map[int]*os.File)}
}

func (h *fileHost) WriteString(s string) { h.con.WriteString(s) }

func (h *fileHost) ReadLine() (string, bool) { return h.con.ReadLine() }

func (h *fileHost) OpenFile(name string, write bool) (int, bool) {
	flags := os.O_RDONLY
	if write {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		return 0, false
	}
	h.nextFID++
	h.files[h.nextFID] = f
	return h.nextFID, true
}

func (h *fileHost) CloseFile(handle int) {
	if f, ok := h.files[handle]; ok {
		f.Close()
		delete(h.files, handle)
	}
}

func (h *fileHost) ReadFile(handle int, n int) ([]byte, bool) {
	f, ok := h.files[handle]
	if !ok {
		return nil, false
	}
	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, false
	}
	return buf[:read], true
}

func (h *fileHost) WriteFile(handle int, data []byte) (int, bool) {
	f, ok := h.files[handle]
	if !ok {
		return 0, false
	}
	n, err := f.Write(data)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (h *fileHost) SaveImage(name string, mem *oop.Memory, root oop.Ref, classes image.Classes) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return image.Write(f, mem, root, classes)
}
