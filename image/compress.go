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
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/tinystalk/tinystalk/oop"
)

// WriteCompressed writes the monolithic format with
// its body zstd-compressed. Only the monolithic format is offered compressed: the
// split-with-ROM-mapping format (format 3) must keep its payload stream
// byte-addressable for zero-copy aliasing, which compression would
// defeat.
func WriteCompressed(w io.Writer, mem *oop.Memory, root oop.Ref, classes Classes) error {
	var plain bytes.Buffer
	if err := Write(&plain, mem, root, classes); err != nil {
		return err
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("image: opening zstd writer: %w", err)
	}
	if _, err := enc.Write(plain.Bytes()); err != nil {
		enc.Close()
		return fmt.Errorf("image: compressing image: %w", err)
	}
	return enc.Close()
}

// ReadCompressed reverses WriteCompressed.
func ReadCompressed(r io.Reader) (*oop.Memory, oop.Ref, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, oop.Nil, fmt.Errorf("image: opening zstd reader: %w", err)
	}
	defer dec.Close()
	return Read(dec)
}
