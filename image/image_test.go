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
	"testing"

	"github.com/tinystalk/tinystalk/oop"
)

// fixture builds a tiny object graph: a String (ROM-eligible) reachable
// from a 2-slot root Array, with a class tag of its own.
func fixture(t *testing.T) (*oop.Memory, oop.Ref, Classes) {
	t.Helper()
	mem := oop.NewMemory()

	stringClass, err := mem.AllocObject(oop.Nil, 0)
	if err != nil {
		t.Fatalf("AllocObject stringClass: %v", err)
	}
	mem.Incr(stringClass)

	s, err := mem.AllocStr(stringClass, "hello")
	if err != nil {
		t.Fatalf("AllocStr: %v", err)
	}
	mem.Incr(s)

	root, err := mem.AllocObject(oop.Nil, 2)
	if err != nil {
		t.Fatalf("AllocObject root: %v", err)
	}
	mem.Incr(root)
	if err := mem.BasicAtPut(root, 1, s); err != nil {
		t.Fatalf("BasicAtPut: %v", err)
	}
	if err := mem.BasicAtPut(root, 2, oop.NewSmallInt(42)); err != nil {
		t.Fatalf("BasicAtPut: %v", err)
	}

	classes := Classes{String: stringClass}
	return mem, root, classes
}

// TestMonolithicRoundTrip exercises the imageRead(imageWrite(S)) == S
// round-trip law on the monolithic format.
func TestMonolithicRoundTrip(t *testing.T) {
	mem, root, classes := fixture(t)

	var buf bytes.Buffer
	if err := Write(&buf, mem, root, classes); err != nil {
		t.Fatalf("Write: %v", err)
	}

	gotMem, gotRoot, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotRoot != root {
		t.Fatalf("root = %v, want %v (indices must be preserved across a round trip)", gotRoot, root)
	}

	sRef, err := gotMem.BasicAt(gotRoot, 1)
	if err != nil {
		t.Fatalf("BasicAt(root,1): %v", err)
	}
	e := gotMem.Table.At(sRef.Index())
	if e == nil || string(e.Bytes) != "hello" {
		t.Fatalf("slot 1 = %q, want %q", e.Bytes, "hello")
	}

	n, err := gotMem.BasicAt(gotRoot, 2)
	if err != nil {
		t.Fatalf("BasicAt(root,2): %v", err)
	}
	if !n.IsInteger() || oop.IntValue(n) != 42 {
		t.Fatalf("slot 2 = %v, want tagged 42", n)
	}
}

// TestSplitRoundTrip exercises the split two-stream format: identical headers in one stream, payloads concatenated in a
// second, no interleaving.
func TestSplitRoundTrip(t *testing.T) {
	mem, root, classes := fixture(t)

	var headers, payloads bytes.Buffer
	if err := WriteSplit(&headers, &payloads, mem, root, classes); err != nil {
		t.Fatalf("WriteSplit: %v", err)
	}

	gotMem, gotRoot, err := ReadSplit(bytes.NewReader(headers.Bytes()), bytes.NewReader(payloads.Bytes()))
	if err != nil {
		t.Fatalf("ReadSplit: %v", err)
	}
	if gotRoot != root {
		t.Fatalf("root = %v, want %v", gotRoot, root)
	}
	sRef, _ := gotMem.BasicAt(gotRoot, 1)
	e := gotMem.Table.At(sRef.Index())
	if e == nil || string(e.Bytes) != "hello" {
		t.Fatalf("slot 1 = %q, want %q", e.Bytes, "hello")
	}
}

// TestSplitROMPinsEligibleClasses checks that an object whose class is
// one of the four ROM-eligible classes loads pinned, with refCount ==
// oop.Pinned, aliasing the payload stream directly rather than being
// copied.
func TestSplitROMPinsEligibleClasses(t *testing.T) {
	mem, root, classes := fixture(t)

	var headers, payloads bytes.Buffer
	if err := WriteSplit(&headers, &payloads, mem, root, classes); err != nil {
		t.Fatalf("WriteSplit: %v", err)
	}

	gotMem, gotRoot, err := ReadSplitROM(bytes.NewReader(headers.Bytes()), bytes.NewReader(payloads.Bytes()), classes)
	if err != nil {
		t.Fatalf("ReadSplitROM: %v", err)
	}

	sRef, err := gotMem.BasicAt(gotRoot, 1)
	if err != nil {
		t.Fatalf("BasicAt(root,1): %v", err)
	}
	e := gotMem.Table.At(sRef.Index())
	if e == nil {
		t.Fatal("string entry missing after ROM load")
	}
	if e.RefCount != oop.Pinned {
		t.Errorf("RefCount = %#x, want Pinned (%#x)", e.RefCount, oop.Pinned)
	}
	if string(e.Bytes) != "hello" {
		t.Errorf("Bytes = %q, want %q", e.Bytes, "hello")
	}

	// Decr on a pinned entry must be a no-op: it neither frees the slot
	// nor corrupts the payload.
	gotMem.Decr(sRef)
	gotMem.Decr(sRef)
	after := gotMem.Table.At(sRef.Index())
	if after.RefCount != oop.Pinned {
		t.Errorf("RefCount after Decr = %#x, want still Pinned", after.RefCount)
	}
	if string(after.Bytes) != "hello" {
		t.Errorf("Bytes after Decr = %q, want unchanged %q", after.Bytes, "hello")
	}

	// The root Array itself was not ROM-eligible (its class ref is Nil in
	// this fixture, not one of the four), so it must have been copied, not
	// pinned.
	rootEntry := gotMem.Table.At(gotRoot.Index())
	if rootEntry.RefCount == oop.Pinned {
		t.Error("root Array was pinned, but its class is not ROM-eligible")
	}
}

// TestReadValidatesCorruptIndex checks the reader's validation contract:
// 0<=index<=MAX and class>>1<=MAX on every entry, failing fatally on
// violation. A negative index must be rejected rather than silently
// accepted.
func TestReadValidatesCorruptIndex(t *testing.T) {
	mem, root, classes := fixture(t)
	var buf bytes.Buffer
	if err := Write(&buf, mem, root, classes); err != nil {
		t.Fatalf("Write: %v", err)
	}
	corrupt := buf.Bytes()
	// The body starts right after the fixed-size preamble; the first
	// record's header immediately follows the 8-byte root word. Flip the
	// index field's top byte to produce a negative int32.
	bodyStart := preambleSize + WordSize
	corrupt[bodyStart+3] = 0xFF
	// Re-seal the edited body under a fresh preamble so the checksum
	// passes and the header validation is what has to reject it.
	var resealed bytes.Buffer
	if err := writePreamble(&resealed, corrupt[preambleSize:]); err != nil {
		t.Fatalf("writePreamble: %v", err)
	}

	if _, _, err := Read(&resealed); err == nil {
		t.Error("Read accepted a corrupt negative index, want an error")
	}
}
