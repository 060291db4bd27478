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

// Package image implements the three interoperable on-disk formats:
// monolithic, split RAM/ROM, and split with ROM mapping. Each record
// carries a fixed {index, class, size, flags} header.
package image

import (
	"encoding/binary"

	"github.com/tinystalk/tinystalk/oop"
)

// WordSize is the on-disk reference size, fixed at 8 bytes regardless of
// host GOARCH.
const WordSize = 8

// magic identifies a tinystalk image file and catches attempts to load
// unrelated data before any record parsing is attempted.
var magic = [4]byte{'t', 's', 'i', 'm'}

// flagROMEligible bit in Header.Flags: the class is one of the four
// ROM-eligible classes (byte arrays, strings, symbols, blocks).
const flagROMEligible uint16 = 1 << 0

// Header is one object-table record header.
type Header struct {
	Index int32
	Class oop.Ref
	Size  int16 // signed: positive = slot count, negative = -byteCount
	Flags uint16
}

func putWord(dst []byte, v int64) {
	binary.LittleEndian.PutUint64(dst, uint64(v))
}

func getWord(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

const headerSize = 4 + WordSize + 2 + 2

func putHeader(dst []byte, h Header) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(h.Index))
	putWord(dst[4:4+WordSize], int64(h.Class))
	binary.LittleEndian.PutUint16(dst[4+WordSize:6+WordSize], uint16(h.Size))
	binary.LittleEndian.PutUint16(dst[6+WordSize:8+WordSize], h.Flags)
}

func getHeader(src []byte) Header {
	return Header{
		Index: int32(binary.LittleEndian.Uint32(src[0:4])),
		Class: oop.Ref(getWord(src[4 : 4+WordSize])),
		Size:  int16(binary.LittleEndian.Uint16(src[4+WordSize : 6+WordSize])),
		Flags: binary.LittleEndian.Uint16(src[6+WordSize : 8+WordSize]),
	}
}

// payloadWords returns how many WordSize words h's payload occupies,
// padding byte objects up to a whole number of words.
func payloadWords(h Header) int {
	if h.Size >= 0 {
		return int(h.Size)
	}
	n := int(-h.Size)
	return (n + WordSize - 1) / WordSize
}

// Classes names the four ROM-eligible classes the writer/reader use to set
// and interpret flagROMEligible.
type Classes struct {
	ByteArray oop.Ref
	String    oop.Ref
	Symbol    oop.Ref
	Block     oop.Ref
}

func (c Classes) isROMEligible(class oop.Ref) bool {
	if class.IsNil() {
		return false
	}
	return class == c.ByteArray || class == c.String || class == c.Symbol || class == c.Block
}
