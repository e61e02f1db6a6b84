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

package contextmap

import (
	jxl "github.com/jxlgo/entropy-go"
	"github.com/jxlgo/entropy-go/bitio"
	"github.com/jxlgo/entropy-go/entropy"
	"github.com/jxlgo/entropy-go/lehmer"
)

// ContextMap is an ordered sequence of histogram indices, one per
// logical context, plus the count K of distinct histograms referenced.
// Invariant: every value in [0,K) appears at least once in Map.
type ContextMap struct {
	Map []int
	K   int
}

// New builds a ContextMap from a dense mapping (context id -> histogram
// index), computing K as 1+max(m).
func New(m []int) *ContextMap {
	k := 0

	for _, v := range m {
		if v+1 > k {
			k = v + 1
		}
	}

	return &ContextMap{Map: m, K: k}
}

// mtfCost estimates the serialized size, in bits, of an MTF rank
// sequence: a quick proxy (unary-ish log2(rank+1)) good enough to choose
// between the identity initial list and a frequency-sorted one, not to
// predict exact output size.
func mtfCost(ranks []int) int {
	cost := 0

	for _, r := range ranks {
		b := 1

		for (1 << b) <= r {
			b++
		}

		cost += b
	}

	return cost
}

// frequencySortedList returns [0,K) ordered by descending usage count in
// m, a candidate initial MTF list that tends to put frequently-used
// histogram indices near the front so their ranks stay small.
func frequencySortedList(m []int, k int) []int {
	counts := make([]int, k)

	for _, v := range m {
		counts[v]++
	}

	list := make([]int, k)

	for i := range list {
		list[i] = i
	}

	for i := 1; i < k; i++ {
		for j := i; j > 0 && counts[list[j]] > counts[list[j-1]]; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}

	return list
}

// Serialize writes the ContextMap to w. When K == 1 this is a single
// zero flag bit and nothing else, per this component's contract;
// otherwise a one flag bit is followed by num_histograms-1 coded with a
// small prefix code (writeHistogramCount) rather than a full VarInt
// byte, since K never exceeds MtfAlphabetCap.
func (cm *ContextMap) Serialize(w *bitio.Writer) error {
	if cm.K <= 1 {
		w.Write(0, 1)
		return nil
	}

	w.Write(1, 1)
	writeHistogramCount(w, cm.K)

	identity := make([]int, cm.K)

	for i := range identity {
		identity[i] = i
	}

	identityRanks := mtfForward(append([]int{}, cm.Map...), append([]int{}, identity...))
	sorted := frequencySortedList(cm.Map, cm.K)
	sortedRanks := mtfForward(append([]int{}, cm.Map...), append([]int{}, sorted...))

	usePermutation := mtfCost(sortedRanks) < mtfCost(identityRanks)

	var initialList []int
	var ranks []int

	if usePermutation {
		w.Write(1, 1)
		initialList = sorted
		ranks = sortedRanks
		code := lehmer.Encode(sorted)

		for _, c := range code {
			writeVarInt(w, uint32(c))
		}
	} else {
		w.Write(0, 1)
		initialList = identity
		ranks = identityRanks
	}

	_ = initialList

	h := entropy.NewHistogram(cm.K)

	for _, r := range ranks {
		h.Count(uint32(r))
	}

	if err := h.Normalize(); err != nil {
		return jxl.NewCodecError(jxl.BadContextMap, "normalizing MTF rank histogram: %v", err)
	}

	h.Serialize(w)
	coder, err := entropy.NewCoder([]*entropy.Histogram{h}, []int{0}, 0)

	if err != nil {
		return jxl.NewCodecError(jxl.BadContextMap, "building MTF rank coder: %v", err)
	}

	tokens := make([]jxl.Token, len(ranks))

	for i, r := range ranks {
		tokens[i] = jxl.Token{Context: 0, Symbol: uint32(r)}
	}

	if err := coder.EncodeTokens(tokens, w); err != nil {
		return jxl.NewCodecError(jxl.BadContextMap, "encoding MTF ranks: %v", err)
	}

	return nil
}

// Deserialize reads a ContextMap of numContexts entries from r, mirroring
// Serialize, and enforces max(m) < K.
func Deserialize(r *bitio.Reader, numContexts int) (*ContextMap, error) {
	if r.ReadBit() == 0 {
		m := make([]int, numContexts)
		return &ContextMap{Map: m, K: 1}, nil
	}

	k := readHistogramCount(r)

	if k > jxl.MtfAlphabetCap {
		return nil, jxl.NewCodecError(jxl.BadContextMap, "K=%d exceeds cap %d", k, jxl.MtfAlphabetCap)
	}

	usePermutation := r.ReadBit() == 1
	list := make([]int, k)

	for i := range list {
		list[i] = i
	}

	if usePermutation {
		code := make([]int, k)

		for i := range code {
			code[i] = int(readVarInt(r))
		}

		perm, err := lehmer.Decode(code)

		if err != nil {
			return nil, jxl.NewCodecError(jxl.BadContextMap, "decoding initial-list permutation: %v", err)
		}

		list = perm
	}

	h, err := entropy.DeserializeHistogram(r)

	if err != nil {
		return nil, jxl.NewCodecError(jxl.BadContextMap, "MTF rank histogram: %v", err)
	}

	coder, err := entropy.NewCoder([]*entropy.Histogram{h}, []int{0}, 0)

	if err != nil {
		return nil, jxl.NewCodecError(jxl.BadContextMap, "building MTF rank coder: %v", err)
	}

	contexts := make([]uint32, numContexts)
	tokens, err := coder.DecodeTokens(r, numContexts, contexts, nil)

	if err != nil {
		return nil, jxl.NewCodecError(jxl.BadContextMap, "decoding MTF ranks: %v", err)
	}

	ranks := make([]int, numContexts)

	for i, t := range tokens {
		if int(t.Symbol) >= k {
			return nil, jxl.NewCodecError(jxl.BadContextMap, "MTF rank %d out of range [0,%d)", t.Symbol, k)
		}

		ranks[i] = int(t.Symbol)
	}

	m := mtfInverse(ranks, list)
	maxSeen := -1

	for _, v := range m {
		if v >= k {
			return nil, jxl.NewCodecError(jxl.BadContextMap, "histogram index %d out of range [0,%d)", v, k)
		}

		if v > maxSeen {
			maxSeen = v
		}
	}

	if maxSeen != k-1 {
		return nil, jxl.NewCodecError(jxl.BadContextMap, "max(m)=%d, want %d (every histogram index must be referenced)", maxSeen, k-1)
	}

	return &ContextMap{Map: m, K: k}, nil
}

// numHistogramsRiceShift is the fixed remainder width of the small
// prefix code writeHistogramCount/readHistogramCount use for K-1: K is
// capped at MtfAlphabetCap (256), so the unary quotient never runs long.
const numHistogramsRiceShift = 4

// writeHistogramCount writes k-1 as a unary quotient (one 1-bit per
// step, zero-terminated) followed by a fixed-width remainder, per this
// component's "small prefix code" contract for num_histograms minus one.
func writeHistogramCount(w *bitio.Writer, k int) {
	v := uint32(k - 1)
	q := v >> numHistogramsRiceShift
	r := v & (1<<numHistogramsRiceShift - 1)

	for ; q > 0; q-- {
		w.Write(1, 1)
	}

	w.Write(0, 1)
	w.Write(uint64(r), numHistogramsRiceShift)
}

// readHistogramCount mirrors writeHistogramCount, returning k.
func readHistogramCount(r *bitio.Reader) int {
	var q uint32

	for r.ReadBit() == 1 {
		q++
	}

	rem := uint32(r.ReadBits(numHistogramsRiceShift))
	return int(q<<numHistogramsRiceShift|rem) + 1
}

func writeVarInt(w *bitio.Writer, value uint32) {
	for value >= 128 {
		w.Write(uint64(0x80|(value&0x7F)), 8)
		value >>= 7
	}

	w.Write(uint64(value), 8)
}

func readVarInt(r *bitio.Reader) uint32 {
	value := uint32(r.ReadBits(8))

	if value < 128 {
		return value
	}

	res := value & 0x7F
	shift := uint(7)

	for value >= 128 {
		value = uint32(r.ReadBits(8))
		res |= (value & 0x7F) << shift
		shift += 7
	}

	return res
}
