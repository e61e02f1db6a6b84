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
	"fmt"

	jxl "github.com/jxlgo/entropy-go"
)

// decSlot is one entry of a DecoderTable: which symbol owns this 12-bit
// ANS state slot, and the bookkeeping needed to step the decoder.
type decSlot struct {
	Symbol uint32
	Offset uint32
	Freq   uint32
}

// DecoderTable maps a 12-bit state slot to the symbol occupying it, built
// from a single normalized Histogram. Slots are filled in the fixed,
// deterministic order of increasing symbol index: symbol s owns exactly
// freq[s] consecutive slots starting at the cumulative sum of the
// frequencies of symbols before it. This is the permutation that lets an
// encoder and a decoder agree on table layout from the histogram alone,
// with no side-band information.
type DecoderTable struct {
	slots []decSlot
}

// encSym is one entry of an EncoderTable: the cumulative start offset
// and frequency of a symbol.
type encSym struct {
	Start uint32
	Freq  uint32
}

// EncoderTable maps a symbol to the {start, freq} pair the
// renormalization loop needs, built from the same normalized Histogram,
// in the same slot order, as a DecoderTable.
type EncoderTable struct {
	syms []encSym
}

// BuildTables constructs the matching encoder and decoder tables for a
// normalized histogram (Total() == ANS_TAB_SIZE). It is an error if h is
// not normalized.
func BuildTables(h *Histogram) (*EncoderTable, *DecoderTable, error) {
	if h.Total() != jxl.AnsTabSize {
		return nil, nil, fmt.Errorf("entropy: histogram is not normalized: sum=%d, want %d", h.Total(), jxl.AnsTabSize)
	}

	et := &EncoderTable{syms: make([]encSym, len(h.Freqs))}
	dt := &DecoderTable{slots: make([]decSlot, jxl.AnsTabSize)}

	var cum uint32

	for s, f := range h.Freqs {
		et.syms[s] = encSym{Start: cum, Freq: f}

		for r := uint32(0); r < f; r++ {
			dt.slots[cum+r] = decSlot{Symbol: uint32(s), Offset: r, Freq: f}
		}

		cum += f
	}

	return et, dt, nil
}

// Start returns the cumulative start offset of symbol.
func (et *EncoderTable) Start(symbol uint32) uint32 {
	return et.syms[symbol].Start
}

// Freq returns the frequency of symbol.
func (et *EncoderTable) Freq(symbol uint32) uint32 {
	return et.syms[symbol].Freq
}

// Step performs one ANS encode step for symbol on state, with no
// renormalization: state = (state/freq)<<12 | (start + state%freq). The
// caller (EntropyCoder) is responsible for renormalizing state into
// range beforehand, against the fixed threshold freq<<(32-AnsLogTabSize),
// per Freq.
func (et *EncoderTable) Step(state uint32, symbol uint32) uint32 {
	e := et.syms[symbol]
	return (state/e.Freq)<<jxl.AnsLogTabSize | (e.Start + state%e.Freq)
}

// Decode returns the symbol owning the low 12 bits of state, and the
// next decoder state after stepping past it (pre-renormalization).
func (dt *DecoderTable) Decode(state uint32) (symbol uint32, nextState uint32) {
	slot := state & (jxl.AnsTabSize - 1)
	e := dt.slots[slot]
	nextState = e.Freq*(state>>jxl.AnsLogTabSize) + e.Offset
	return e.Symbol, nextState
}
