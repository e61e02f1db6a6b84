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

package entropy

import (
	"math/rand"
	"testing"

	jxl "github.com/jxlgo/entropy-go"
	"github.com/jxlgo/entropy-go/bitio"
)

func TestNormalizePreservesZeroNonZero(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	h := NewHistogram(40)

	for i := range h.Freqs {
		if rng.Intn(3) == 0 {
			h.Freqs[i] = 0
		} else {
			h.Freqs[i] = uint32(1 + rng.Intn(1000))
		}
	}

	nonZeroBefore := map[int]bool{}

	for s, f := range h.Freqs {
		if f != 0 {
			nonZeroBefore[s] = true
		}
	}

	if err := h.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if got := h.Total(); got != jxl.AnsTabSize {
		t.Fatalf("normalized total = %d, want %d", got, jxl.AnsTabSize)
	}

	for s, f := range h.Freqs {
		if nonZeroBefore[s] && f == 0 {
			t.Fatalf("symbol %d lost its non-zero status after normalization", s)
		}

		if !nonZeroBefore[s] && f != 0 {
			t.Fatalf("symbol %d gained non-zero status after normalization", s)
		}
	}
}

func TestHistogramSerializeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	cases := []*Histogram{
		func() *Histogram { h := NewHistogram(10); h.Freqs[3] = jxl.AnsTabSize; return h }(), // singleton
	}

	for trial := 0; trial < 5; trial++ {
		h := NewHistogram(30)

		for i := range h.Freqs {
			if rng.Intn(2) == 0 {
				h.Freqs[i] = 0
			} else {
				h.Freqs[i] = uint32(1 + rng.Intn(200))
			}
		}

		if h.IsEmpty() {
			h.Freqs[0] = 1
		}

		if err := h.Normalize(); err != nil {
			t.Fatalf("trial %d: Normalize: %v", trial, err)
		}

		cases = append(cases, h)
	}

	for i, h := range cases {
		w := bitio.NewWriter(64)
		h.Serialize(w)
		r := bitio.NewReader(w.Span())
		got, err := DeserializeHistogram(r)

		if err != nil {
			t.Fatalf("case %d: DeserializeHistogram: %v", i, err)
		}

		if len(got.Freqs) != len(h.Freqs) {
			t.Fatalf("case %d: alphabet size %d, want %d", i, len(got.Freqs), len(h.Freqs))
		}

		for s := range h.Freqs {
			if got.Freqs[s] != h.Freqs[s] {
				t.Fatalf("case %d symbol %d: got freq %d, want %d", i, s, got.Freqs[s], h.Freqs[s])
			}
		}
	}
}

func TestHistogramSerializeEmpty(t *testing.T) {
	h := NewHistogram(5)
	w := bitio.NewWriter(8)
	h.Serialize(w)
	r := bitio.NewReader(w.Span())
	got, err := DeserializeHistogram(r)

	if err != nil {
		t.Fatalf("DeserializeHistogram: %v", err)
	}

	if !got.IsEmpty() {
		t.Fatalf("expected an empty histogram back, got %v", got.Freqs)
	}
}

func TestMergeSimilarBoundsK(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	hists := make([]*Histogram, 20)

	for i := range hists {
		h := NewHistogram(8)

		for s := range h.Freqs {
			h.Freqs[s] = uint32(1 + rng.Intn(100))
		}

		hists[i] = h
	}

	merged, mapping := MergeSimilar(hists, 6)

	if len(merged) > 6 {
		t.Fatalf("merged histogram count %d exceeds bound 6", len(merged))
	}

	seen := make([]bool, len(merged))

	for _, m := range mapping {
		if m < 0 || m >= len(merged) {
			t.Fatalf("mapping entry %d out of range [0,%d)", m, len(merged))
		}

		seen[m] = true
	}

	for i, s := range seen {
		if !s {
			t.Fatalf("merged histogram %d is never referenced by the mapping", i)
		}
	}
}

func TestDeserializeRejectsBadSum(t *testing.T) {
	w := bitio.NewWriter(16)
	w.Write(0, 1) // not empty
	w.Write(0, 1) // not singleton
	w.Write(4, 4) // logBase
	writeVarInt(w, 2)
	w.Write(0, 1) // literal entry
	riceEncode(w, 10, 4)
	w.Write(0, 1) // literal entry
	riceEncode(w, 20, 4)

	r := bitio.NewReader(w.Span())
	_, err := DeserializeHistogram(r)

	if err == nil {
		t.Fatal("expected an error for a histogram whose frequencies do not sum to ANS_TAB_SIZE")
	}
}
