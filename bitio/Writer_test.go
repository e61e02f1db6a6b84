/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bitio

import (
	"math/rand"
	"testing"
)

func TestWriteReadAligned(t *testing.T) {
	for n := uint(1); n <= 56; n++ {
		w := NewWriter(64)
		val := uint64(0x0123456789ABCDEF) & (uint64(1)<<n - 1)
		w.Write(val, n)
		w.ZeroPadToByte()

		r := NewReader(w.Span())
		got := r.ReadBits(n)

		if got != val {
			t.Fatalf("n=%d: wrote %x, read %x", n, val, got)
		}

		if err := r.JumpToByteBoundary(); err != nil {
			t.Fatalf("n=%d: unexpected padding error: %v", n, err)
		}

		if !r.AllReadsWithinBounds() {
			t.Fatalf("n=%d: reader reports out of bounds read", n)
		}
	}
}

func TestWriteReadMisaligned(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	w := NewWriter(64)
	counts := make([]uint, 200)
	values := make([]uint64, 200)

	for i := range counts {
		n := uint(1 + rng.Intn(56))
		counts[i] = n
		v := rng.Uint64() & (uint64(1)<<n - 1)
		values[i] = v
		w.Write(v, n)
	}

	r := NewReader(w.Span())

	for i, n := range counts {
		got := r.ReadBits(n)

		if got != values[i] {
			t.Fatalf("chunk %d (n=%d): wrote %x, read %x", i, n, values[i], got)
		}
	}

	if !r.AllReadsWithinBounds() {
		t.Fatal("reader reports out of bounds read on a fully covered span")
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	w := NewWriter(64)
	w.Write(0x3A, 8)
	w.Write(0x7, 4)
	r := NewReader(w.Span())

	peeked := r.Peek(8)
	read := r.ReadBits(8)

	if peeked != read {
		t.Fatalf("peek %x != subsequent read %x", peeked, read)
	}

	if r.TotalBitsConsumed() != 8 {
		t.Fatalf("expected 8 bits consumed, got %d", r.TotalBitsConsumed())
	}
}

func TestSkipBits(t *testing.T) {
	w := NewWriter(64)
	w.Write(0xAA, 8)
	w.Write(0xBB, 8)
	r := NewReader(w.Span())
	r.SkipBits(8)

	if got := r.ReadBits(8); got != 0xBB {
		t.Fatalf("expected 0xBB after skip, got %x", got)
	}
}

func TestReadPastEndSetsOutOfBounds(t *testing.T) {
	w := NewWriter(64)
	w.Write(0x5, 3)
	r := NewReader(w.Span())
	r.ReadBits(3)

	if !r.AllReadsWithinBounds() {
		t.Fatal("should still be within bounds after consuming exactly what was written")
	}

	_ = r.ReadBit()

	if r.AllReadsWithinBounds() {
		t.Fatal("expected out-of-bounds flag after reading past the span")
	}
}

func TestJumpToByteBoundaryRejectsNonZeroPadding(t *testing.T) {
	w := NewWriter(64)
	w.Write(0x1, 1) // leaves 7 non-zero-able pad bits if we force one high
	w.Write(0x1, 1)
	w.ZeroPadToByte()
	// Flip a pad bit directly in the span to simulate corruption.
	span := w.Span()
	span[0] |= 1 << 7

	r := NewReader(span)
	r.SkipBits(2)

	if err := r.JumpToByteBoundary(); err == nil {
		t.Fatal("expected an error for non-zero padding bits")
	}
}

func TestAllotmentCommitAndCancel(t *testing.T) {
	w := NewWriter(64)
	a := w.Reserve(16)
	w.Write(0xFF, 8)
	a.Commit(8)

	if a.Unused() != 8 {
		t.Fatalf("expected 8 unused bits, got %d", a.Unused())
	}

	b := w.Reserve(4)
	b.Cancel()

	if b.Unused() != 4 {
		t.Fatalf("expected full reservation unused after cancel, got %d", b.Unused())
	}
}

func TestAllotmentOvercommitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when committing more bits than reserved")
		}
	}()

	w := NewWriter(64)
	a := w.Reserve(4)
	a.Commit(5)
}

func TestCheckpointRestore(t *testing.T) {
	w := NewWriter(64)
	w.Write(0x12, 8)
	w.Write(0x34, 8)
	w.Write(0x56, 8)
	r := NewReader(w.Span())
	r.ReadBits(8)
	cp := r.Mark()
	r.ReadBits(8)
	r.Restore(cp)

	if got := r.ReadBits(8); got != 0x34 {
		t.Fatalf("expected 0x34 after restore, got %x", got)
	}
}
