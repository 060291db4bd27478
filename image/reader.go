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

package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/tinystalk/tinystalk/oop"
)

// readPreamble validates the magic/length/checksum preamble and returns
// the verified body bytes. A mismatch is fatal image corruption: the
// caller is expected to route the returned error through vmerr.Reporter.Fatal.
func readPreamble(r io.Reader) ([]byte, error) {
	var pre [preambleSize]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, fmt.Errorf("image: reading preamble: %w", err)
	}
	if !bytes.Equal(pre[0:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	n := binary.LittleEndian.Uint64(pre[4:12])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("image: reading body: %w", err)
	}
	sum := blake2b.Sum256(body)
	if !bytes.Equal(sum[:], pre[12:44]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return body, nil
}

// ErrCorrupt is returned for any structural or checksum violation in an
// image stream.
var ErrCorrupt = fmt.Errorf("image corrupt")

// maxIndex bounds a validated object-table index.
const maxIndex = oop.ObjectTableMax

func validateHeader(h Header) error {
	if h.Index < 0 || int(h.Index) > maxIndex {
		return fmt.Errorf("%w: index %d out of range", ErrCorrupt, h.Index)
	}
	if int64(h.Class) < 0 || h.Class.Index() > maxIndex {
		return fmt.Errorf("%w: class %d out of range", ErrCorrupt, h.Class)
	}
	return nil
}

// installCopy materializes a non-ROM record by copying its payload into
// freshly-arena-allocated memory.
func installCopy(mem *oop.Memory, idx int, h Header, payload []byte) {
	mem.Table.EnsureLen(idx)
	e := mem.Table.At(idx)
	e.Class = h.Class
	e.Size = int32(h.Size)
	e.RefCount = 1
	if h.Size < 0 {
		n := int(-h.Size)
		e.Bytes = make([]byte, n)
		copy(e.Bytes, payload[:n])
		e.Slots = nil
	} else {
		n := int(h.Size)
		e.Slots = make([]oop.Ref, n)
		for i := 0; i < n; i++ {
			e.Slots[i] = oop.Ref(getWord(payload[i*WordSize:]))
		}
		e.Bytes = nil
	}
}

// installPinned installs a record whose payload memory aliases directly
// into the read-only payload region (no copy), marking it Pinned so
// Incr/Decr ignore it forever.
func installPinned(mem *oop.Memory, idx int, h Header, payload []byte) {
	mem.Table.EnsureLen(idx)
	e := mem.Table.At(idx)
	e.Class = h.Class
	e.Size = int32(h.Size)
	e.RefCount = oop.Pinned
	if h.Size < 0 {
		n := int(-h.Size)
		e.Bytes = payload[:n:n]
		e.Slots = nil
	} else {
		n := int(h.Size)
		slots := make([]oop.Ref, n)
		for i := 0; i < n; i++ {
			slots[i] = oop.Ref(getWord(payload[i*WordSize:]))
		}
		e.Slots = slots
		e.Bytes = nil
	}
}

// Read loads the monolithic image format into a
// fresh object memory, running the root-mark pass before
// returning.
func Read(r io.Reader) (*oop.Memory, oop.Ref, error) {
	body, err := readPreamble(r)
	if err != nil {
		return nil, oop.Nil, err
	}
	if len(body) < WordSize {
		return nil, oop.Nil, fmt.Errorf("%w: truncated root word", ErrCorrupt)
	}
	root := oop.Ref(getWord(body))
	mem := oop.NewMemory()
	pos := WordSize
	for pos < len(body) {
		if pos+headerSize > len(body) {
			return nil, oop.Nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
		}
		h := getHeader(body[pos:])
		if err := validateHeader(h); err != nil {
			return nil, oop.Nil, err
		}
		pos += headerSize
		words := payloadWords(h)
		n := words * WordSize
		if pos+n > len(body) {
			return nil, oop.Nil, fmt.Errorf("%w: truncated payload", ErrCorrupt)
		}
		installCopy(mem, int(h.Index), h, body[pos:pos+n])
		pos += n
	}
	mem.RootMark(root)
	return mem, root, nil
}

// ReadSplit loads the split format: headers and
// payloads come from two separate streams, concatenated in the same
// record order, no interleaving.
func ReadSplit(headerR, payloadR io.Reader) (*oop.Memory, oop.Ref, error) {
	return readSplit(headerR, payloadR, Classes{}, false)
}

// ReadSplitROM loads the split format with ROM mapping: for every record whose class matches one of classes' four
// ROM-eligible classes, the payload is pinned and aliased directly into
// the payload stream's backing buffer instead of being copied.
func ReadSplitROM(headerR, payloadR io.Reader, classes Classes) (*oop.Memory, oop.Ref, error) {
	return readSplit(headerR, payloadR, classes, true)
}

func readSplit(headerR, payloadR io.Reader, classes Classes, romMode bool) (*oop.Memory, oop.Ref, error) {
	hbody, err := readPreamble(headerR)
	if err != nil {
		return nil, oop.Nil, err
	}
	pbody, err := readPreamble(payloadR)
	if err != nil {
		return nil, oop.Nil, err
	}
	if len(hbody) < WordSize {
		return nil, oop.Nil, fmt.Errorf("%w: truncated root word", ErrCorrupt)
	}
	root := oop.Ref(getWord(hbody))
	mem := oop.NewMemory()

	pos := WordSize
	ppos := 0
	for pos < len(hbody) {
		if pos+headerSize > len(hbody) {
			return nil, oop.Nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
		}
		h := getHeader(hbody[pos:])
		if err := validateHeader(h); err != nil {
			return nil, oop.Nil, err
		}
		pos += headerSize
		words := payloadWords(h)
		n := words * WordSize
		if ppos+n > len(pbody) {
			return nil, oop.Nil, fmt.Errorf("%w: truncated payload stream", ErrCorrupt)
		}
		payload := pbody[ppos : ppos+n]
		if romMode && h.Flags&flagROMEligible != 0 && classes.isROMEligible(h.Class) {
			installPinned(mem, int(h.Index), h, payload)
		} else {
			installCopy(mem, int(h.Index), h, payload)
		}
		ppos += n
	}
	mem.RootMark(root)
	return mem, root, nil
}
