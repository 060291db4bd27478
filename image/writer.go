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
	"encoding/binary"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/tinystalk/tinystalk/oop"
)

// preamble is magic(4) + bodyLen(8) + blake2b-256 checksum(32) written
// ahead of every stream this package produces, so the reader can validate
// integrity before trusting a single record.
const preambleSize = 4 + 8 + 32

func writePreamble(w io.Writer, body []byte) error {
	sum := blake2b.Sum256(body)
	var pre [preambleSize]byte
	copy(pre[0:4], magic[:])
	binary.LittleEndian.PutUint64(pre[4:12], uint64(len(body)))
	copy(pre[12:44], sum[:])
	if _, err := w.Write(pre[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// appendRecord emits a header and its payload bytes into dst, encoding a live
// object-table entry.
func appendRecord(dst []byte, idx int, e *oop.Entry, classes Classes) []byte {
	flags := uint16(0)
	if classes.isROMEligible(e.Class) {
		flags |= flagROMEligible
	}
	h := Header{Index: int32(idx), Class: e.Class, Size: int16(e.Size), Flags: flags}
	var hb [headerSize]byte
	putHeader(hb[:], h)
	dst = append(dst, hb[:]...)
	dst = appendPayload(dst, e)
	return dst
}

func appendPayload(dst []byte, e *oop.Entry) []byte {
	if e.Size == 0 {
		return dst
	}
	if e.IsByteObject() {
		n := e.ByteLen()
		words := payloadWords(Header{Size: e.Size})
		start := len(dst)
		dst = append(dst, make([]byte, words*WordSize)...)
		copy(dst[start:], e.Bytes[:n])
		return dst
	}
	for _, s := range e.Slots {
		var w [WordSize]byte
		putWord(w[:], int64(s))
		dst = append(dst, w[:]...)
	}
	return dst
}

// liveEntries returns the table indices of the entries written into both
// the monolithic body and the split format's header+payload streams.
//
// The writer emits only live objects (refCount > 0); pinned entries
// (RefCount == oop.Pinned) are also live and are emitted with their
// ROM-eligible flag set so a subsequent load can re-pin them.
func liveEntries(mem *oop.Memory) []int {
	var live []int
	for i := 1; i < mem.Table.Len(); i++ {
		e := mem.Table.At(i)
		if e.RefCount != 0 {
			live = append(live, i)
		}
	}
	return live
}

// Write emits the monolithic image format: root reference, then repeated
// header+payload records for every live object, length-delimited by the
// preamble.
func Write(w io.Writer, mem *oop.Memory, root oop.Ref, classes Classes) error {
	live := liveEntries(mem)
	body := make([]byte, 0, WordSize+len(live)*(headerSize+WordSize))
	var rootBuf [WordSize]byte
	putWord(rootBuf[:], int64(root))
	body = append(body, rootBuf[:]...)
	for _, idx := range live {
		body = appendRecord(body, idx, mem.Table.At(idx), classes)
	}
	return writePreamble(w, body)
}

// WriteSplit emits the split format: an identical header stream, and a
// second stream holding only the concatenated payloads in the same
// record order, no interleaving.
func WriteSplit(headerW, payloadW io.Writer, mem *oop.Memory, root oop.Ref, classes Classes) error {
	live := liveEntries(mem)

	hbody := make([]byte, 0, WordSize+len(live)*headerSize)
	var rootBuf [WordSize]byte
	putWord(rootBuf[:], int64(root))
	hbody = append(hbody, rootBuf[:]...)

	pbody := make([]byte, 0, len(live)*WordSize)

	for _, idx := range live {
		e := mem.Table.At(idx)
		flags := uint16(0)
		if classes.isROMEligible(e.Class) {
			flags |= flagROMEligible
		}
		h := Header{Index: int32(idx), Class: e.Class, Size: int16(e.Size), Flags: flags}
		var hb [headerSize]byte
		putHeader(hb[:], h)
		hbody = append(hbody, hb[:]...)
		pbody = appendPayload(pbody, e)
	}

	if err := writePreamble(headerW, hbody); err != nil {
		return err
	}
	return writePreamble(payloadW, pbody)
}
