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

package icc

import (
	jxl "github.com/jxlgo/entropy-go"
	"github.com/jxlgo/entropy-go/bitio"
	"github.com/jxlgo/entropy-go/contextmap"
	"github.com/jxlgo/entropy-go/entropy"
)

// maxHistograms bounds how many distinct byte-value histograms the ICC
// byte stream's numContexts contexts may collapse into, mirroring the
// MtfAlphabetCap a ContextMap ultimately encodes against.
const maxHistograms = 16

// Encode writes profile's predictive transform, entropy coded, to w:
// VarInt(encoded length) followed by the histogram header (context map
// plus one Histogram per surviving table) and then the ANS body.
func Encode(profile []byte, w *bitio.Writer) error {
	predicted, err := PredictICC(profile)

	if err != nil {
		return err
	}

	writeRawVarInt(w, uint64(len(predicted)))

	tokens := make([]jxl.Token, len(predicted))
	var prev1, prev2 byte

	for i, b := range predicted {
		tokens[i] = jxl.Token{Context: contextFor(i, prev1, prev2), Symbol: uint32(b)}
		prev2 = prev1
		prev1 = b
	}

	hists := entropy.BuildHistograms(tokens, numContexts)

	// Not every one of numContexts is necessarily exercised by a short
	// profile (e.g. some high-nibble predecessor never occurs). Those
	// stay out of MergeSimilar's input entirely - Histogram.Normalize
	// rejects an all-zero distribution - and their dead contexts are
	// wired to histogram 0 afterward; a context no token ever selects
	// never drives a decode through that wiring, so which live
	// histogram it nominally points at is immaterial.
	var liveIdx []int
	var liveHists []*entropy.Histogram

	for i, h := range hists {
		if !h.IsEmpty() {
			liveIdx = append(liveIdx, i)
			liveHists = append(liveHists, h)
		}
	}

	if len(liveHists) == 0 {
		return jxl.NewCodecError(jxl.MalformedHistogram, "ICC predictive stream produced no symbols")
	}

	merged, liveMapping := entropy.MergeSimilar(liveHists, maxHistograms)
	mapping := make([]int, numContexts)

	for newIdx, origIdx := range liveIdx {
		mapping[origIdx] = liveMapping[newIdx]
	}

	for _, h := range merged {
		if err := h.Normalize(); err != nil {
			return jxl.NewCodecError(jxl.MalformedHistogram, "normalizing ICC byte histogram: %v", err)
		}
	}

	cm := &contextmap.ContextMap{Map: mapping, K: len(merged)}

	if err := cm.Serialize(w); err != nil {
		return err
	}

	for _, h := range merged {
		h.Serialize(w)
	}

	coder, err := entropy.NewCoder(merged, mapping, 0)

	if err != nil {
		return err
	}

	return coder.EncodeTokens(tokens, w)
}

// writeRawVarInt writes a VarInt directly to the bit stream, outside
// the ANS body: used for the encoded-length prefix an ICCReader must
// know before it can even build its histograms.
func writeRawVarInt(w *bitio.Writer, value uint64) {
	for value >= 128 {
		w.Write(uint64(value&0x7F)|0x80, 8)
		value >>= 7
	}

	w.Write(value, 8)
}

// readRawVarInt mirrors writeRawVarInt.
func readRawVarInt(r *bitio.Reader) uint64 {
	var ret uint64
	shift := uint(0)

	for {
		b := r.ReadBits(8)
		ret |= (b & 0x7F) << shift

		if b&0x80 == 0 {
			break
		}

		shift += 7
	}

	return ret
}
