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

func buildSkewedHistogram(alphaSize int, rng *rand.Rand) *Histogram {
	h := NewHistogram(alphaSize)

	for s := range h.Freqs {
		h.Freqs[s] = uint32(1 + rng.Intn(50))
	}

	h.Freqs[0] += 1000

	if err := h.Normalize(); err != nil {
		panic(err)
	}

	return h
}

func TestCoderEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	h := buildSkewedHistogram(16, rng)
	coder, err := NewCoder([]*Histogram{h}, []int{0}, 1)

	if err != nil {
		t.Fatalf("NewCoder: %v", err)
	}

	tokens := make([]jxl.Token, 2000)
	contexts := make([]uint32, len(tokens))

	for i := range tokens {
		tokens[i] = jxl.Token{Context: 0, Symbol: uint32(rng.Intn(16))}
		contexts[i] = 0
	}

	w := bitio.NewWriter(1024)

	if err := coder.EncodeTokens(tokens, w); err != nil {
		t.Fatalf("EncodeTokens: %v", err)
	}

	r := bitio.NewReader(w.Span())
	decoded, err := coder.DecodeTokens(r, len(tokens), contexts, nil)

	if err != nil {
		t.Fatalf("DecodeTokens: %v", err)
	}

	for i, tok := range tokens {
		if decoded[i].Symbol != tok.Symbol {
			t.Fatalf("token %d: decoded symbol %d, want %d", i, decoded[i].Symbol, tok.Symbol)
		}
	}
}

func TestCoderRoundTripWithRawBits(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	h := buildSkewedHistogram(4, rng)
	coder, err := NewCoder([]*Histogram{h}, []int{0}, 2)

	if err != nil {
		t.Fatalf("NewCoder: %v", err)
	}

	tokens := make([]jxl.Token, 300)
	contexts := make([]uint32, len(tokens))

	for i := range tokens {
		nbits := uint32(rng.Intn(9))
		tokens[i] = jxl.Token{
			Context: 0,
			Symbol:  uint32(rng.Intn(4)),
			NBits:   nbits,
			Bits:    uint32(rng.Intn(1 << nbits)),
		}
		contexts[i] = 0
	}

	w := bitio.NewWriter(256)

	if err := coder.EncodeTokens(tokens, w); err != nil {
		t.Fatalf("EncodeTokens: %v", err)
	}

	r := bitio.NewReader(w.Span())
	next := 0
	decoded, err := coder.DecodeTokens(r, len(tokens), contexts, func(ctx, sym uint32) uint32 {
		n := tokens[next].NBits
		next++
		return n
	})

	if err != nil {
		t.Fatalf("DecodeTokens: %v", err)
	}

	for i, tok := range tokens {
		if decoded[i].Symbol != tok.Symbol || decoded[i].NBits != tok.NBits || decoded[i].Bits != tok.Bits {
			t.Fatalf("token %d: decoded %+v, want %+v", i, decoded[i], tok)
		}
	}
}
