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

//go:build unix

package console

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// rawTerminal restores a real terminal's prior Termios settings, or is a
// no-op if in wasn't backed by one.
type rawTerminal struct {
	fd       int
	original *unix.Termios
}

// enterRawMode disables canonical mode and echo on in's file descriptor,
// if it is a terminal, via direct unix.IoctlGet/SetTermios syscalls in
// place of cgo.
func enterRawMode(in io.Reader) rawTerminal {
	f, ok := in.(*os.File)
	if !ok {
		return rawTerminal{fd: -1}
	}
	fd := int(f.Fd())
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return rawTerminal{fd: -1}
	}
	raw := *termios
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return rawTerminal{fd: -1}
	}
	return rawTerminal{fd: fd, original: termios}
}

func (r rawTerminal) restore() error {
	if r.fd < 0 || r.original == nil {
		return nil
	}
	return unix.IoctlSetTermios(r.fd, unix.TCSETS, r.original)
}
