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

// Package console implements the line-oriented terminal the
// consoleWriteString:/consoleReadLine primitives of primitive/io.go run
// on: raw-mode input with backspace handling, flushed a line at a time on
// CR or LF.
package console

import (
	"bufio"
	"io"
	"strings"
)

// Console is a buffered line-oriented terminal. Writes go straight to the
// underlying writer; reads are assembled a character at a time so
// backspace can edit the in-progress line before it is handed to the VM,
// the same shape a real serial console's line discipline gives a kernel.
type Console struct {
	out io.Writer
	in  *bufio.Reader

	raw rawTerminal
	buf []byte
}

// New builds a Console over in/out and puts the terminal connected to in
// (if any) into raw mode for the lifetime of the Console, restoring it on
// Close.
func New(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, in: bufio.NewReader(in)}
	c.raw = enterRawMode(in)
	return c
}

// WriteString implements primitive.HostIO: writes s verbatim to the
// console's output.
func (c *Console) WriteString(s string) {
	io.WriteString(c.out, s)
}

// ReadLine assembles one line of input, honoring backspace (0x08/0x7F) by
// erasing the last buffered byte, and returns it without the trailing
// CR/LF. ok is false on EOF.
func (c *Console) ReadLine() (string, bool) {
	c.buf = c.buf[:0]
	for {
		b, err := c.in.ReadByte()
		if err != nil {
			if len(c.buf) > 0 {
				return string(c.buf), true
			}
			return "", false
		}
		switch b {
		case '\r':
			// A terminal in raw mode sends \r for Enter; peek for a
			// following \n (cooked \r\n pasted input) and discard it.
			if next, err := c.in.Peek(1); err == nil && len(next) == 1 && next[0] == '\n' {
				c.in.ReadByte()
			}
			return string(c.buf), true
		case '\n':
			return string(c.buf), true
		case 0x08, 0x7F:
			if len(c.buf) > 0 {
				c.buf = c.buf[:len(c.buf)-1]
				io.WriteString(c.out, "\b \b")
			}
		default:
			c.buf = append(c.buf, b)
			c.out.Write([]byte{b})
		}
	}
}

// Close restores the terminal to its original mode, if it was changed.
func (c *Console) Close() error {
	return c.raw.restore()
}

// ReadAll drains every remaining line from r, for canned input rather
// than a live terminal.
func ReadAll(r io.Reader) []string {
	sc := bufio.NewScanner(r)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines
}
