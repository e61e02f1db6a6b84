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
	"time"

	jxl "github.com/jxlgo/entropy-go"
	"github.com/jxlgo/entropy-go/bitio"
)

// tableSet is the per-context-map-index {encoder,decoder} table pair an
// EntropyCoder session drives tokens through.
type tableSet struct {
	enc *EncoderTable
	dec *DecoderTable
}

// Coder is the session object that drives a Token sequence through the
// ANS state machine, per histogram selected by a context map. One Coder
// encodes, or decodes, exactly one token batch.
//
// Encoding processes tokens in reverse (ANS is LIFO) and interleaves each
// token's raw bits before its ANS step; decoding mirrors this by reading
// the final state first and then replaying in forward order. Callers
// never see this inversion: EncodeTokens takes tokens in logical order and
// DecodeTokens returns them in logical order.
type Coder struct {
	tables     []tableSet
	contextMap []int // context id -> table index
	listeners  []jxl.Listener
	sessionID  int
}

// NewCoder creates a Coder over hists (one histogram per distinct
// context-map target, already normalized) and contextMap (context id ->
// histogram index, as built by the contextmap package).
func NewCoder(hists []*Histogram, contextMap []int, sessionID int) (*Coder, error) {
	tables := make([]tableSet, len(hists))

	for i, h := range hists {
		et, dt, err := BuildTables(h)

		if err != nil {
			return nil, jxl.NewCodecError(jxl.MalformedHistogram, "table %d: %v", i, err)
		}

		tables[i] = tableSet{enc: et, dec: dt}
	}

	return &Coder{tables: tables, contextMap: contextMap, sessionID: sessionID}, nil
}

// AddListener registers l to receive progress events. Mirrors the
// Event/Listener pattern used throughout this codebase instead of an
// external logging dependency.
func (c *Coder) AddListener(l jxl.Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *Coder) notify(evtType int, size int64) {
	if len(c.listeners) == 0 {
		return
	}

	evt := jxl.NewEvent(evtType, c.sessionID, size, 0, jxl.EVT_HASH_NONE, time.Time{})

	for _, l := range c.listeners {
		l.ProcessEvent(evt)
	}
}

type bitChunk struct {
	value uint64
	width uint
}

// EncodeTokens writes tokens to w per the wire order. The ANS state
// machine is LIFO: the encoder must walk tokens in reverse to produce
// the state the decoder expects to start from, but the bytes it emits
// along the way belong at the FRONT of the wire stream, in forward token
// order, with the final state first of all. Since w is strictly
// append-only, the chunks generated while walking backwards are buffered
// and flushed in the reverse of their generation order, which yields
// exactly that forward layout.
func (c *Coder) EncodeTokens(tokens []jxl.Token, w *bitio.Writer) error {
	state := uint32(jxl.AnsInitialState)
	chunks := make([]bitChunk, 0, len(tokens)*2)

	var renorm []bitChunk

	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]

		if err := t.Validate(); err != nil {
			panic(fmt.Errorf("entropy: token %d: %w", i, err))
		}

		var rawBits bitChunk
		hasRaw := t.NBits > 0

		if hasRaw {
			rawBits = bitChunk{value: uint64(t.Bits), width: uint(t.NBits)}
		}

		tblIdx := c.contextMap[t.Context]
		ts := c.tables[tblIdx]

		freq := ts.enc.Freq(t.Symbol)
		renorm = renorm[:0]

		// rANS renormalizes against the fixed threshold freq<<(32-AnsLogTabSize),
		// not a per-symbol shift: Step's division by freq only stays
		// lossless while state/freq fits the table's precision.
		for (state >> (32 - jxl.AnsLogTabSize)) >= freq {
			renorm = append(renorm, bitChunk{value: uint64(state & 0xFFFF), width: jxl.AnsRenormChunkBits})
			state >>= 16
		}

		state = ts.enc.Step(state, t.Symbol)

		// Appended here in the opposite of generation order, so that the
		// single global reversal below restores both cross-token order
		// (token 0 first) and within-token order (earliest renorm chunk
		// first, raw bits last) at once.
		if hasRaw {
			chunks = append(chunks, rawBits)
		}

		for k := len(renorm) - 1; k >= 0; k-- {
			chunks = append(chunks, renorm[k])
		}
	}

	chunks = append(chunks, bitChunk{value: uint64(state), width: 32})

	var totalBits uint

	for _, ch := range chunks {
		totalBits += ch.width
	}

	// The whole batch's size is known exactly before any of it is
	// flushed (every chunk is already buffered), so this allotment
	// never reclaims a tail - it exists to charge the batch's bit
	// budget against w the same way a caller that doesn't know its
	// size upfront would, per this package's scoped-guard contract.
	batch := w.Reserve(totalBits)

	for i := len(chunks) - 1; i >= 0; i-- {
		w.Write(chunks[i].value, chunks[i].width)
	}

	batch.Commit(totalBits)
	c.notify(jxl.EvtChunkEncoded, int64(len(tokens)))
	c.notify(jxl.EvtAnsFinalState, int64(state))
	return nil
}

// NBitsResolver supplies the width of a token's trailing raw-bit
// remainder given its context and decoded symbol. Decode cannot learn
// nbits from the ANS-coded symbol stream alone: the mapping from symbol
// to remainder width is a property of the domain using this coder (e.g.
// "this symbol represents a prefix class, decode that many extra bits").
// A nil resolver means no token in the batch carries raw bits.
type NBitsResolver func(context uint32, symbol uint32) uint32

// DecodeOne performs a single ANS decode step under the table context
// maps to, refilling state from r as needed, and returns the decoded
// symbol and the new register state. It is the primitive both
// DecodeTokens and a resumable caller like icc.Reader drive directly,
// one symbol at a time, keeping the register across calls of their own.
func (c *Coder) DecodeOne(r *bitio.Reader, state uint32, context uint32) (symbol uint32, next uint32, err error) {
	if int(context) >= len(c.contextMap) {
		return 0, 0, jxl.NewCodecError(jxl.BadContextMap, "context %d out of range", context)
	}

	tblIdx := c.contextMap[context]

	if tblIdx >= len(c.tables) {
		return 0, 0, jxl.NewCodecError(jxl.BadContextMap, "context map targets unknown table %d", tblIdx)
	}

	ts := c.tables[tblIdx]
	symbol, next = ts.dec.Decode(state)

	for next < jxl.AnsRenormThreshold {
		if !r.AllReadsWithinBounds() {
			return 0, 0, jxl.NewCodecError(jxl.NotEnoughBytes, "truncated ANS stream")
		}

		next = next<<16 | uint32(r.ReadBits(jxl.AnsRenormChunkBits))
	}

	return symbol, next, nil
}

// DecodeTokens reads n tokens from r, mirroring EncodeTokens: the 32-bit
// state first, then one ANS step per token in forward order, then that
// token's raw bits (if nbitsOf is non-nil). contexts[i] supplies the
// context id for the i-th token, since on decode the context is known
// from the surrounding codec (e.g. pixel position) rather than carried
// on the wire.
func (c *Coder) DecodeTokens(r *bitio.Reader, n int, contexts []uint32, nbitsOf NBitsResolver) ([]jxl.Token, error) {
	if len(contexts) != n {
		return nil, jxl.NewCodecError(jxl.BadContextMap, "contexts length %d != n %d", len(contexts), n)
	}

	state := uint32(r.ReadBits(32))
	tokens := make([]jxl.Token, n)

	for i := 0; i < n; i++ {
		ctx := contexts[i]
		sym, next, err := c.DecodeOne(r, state, ctx)

		if err != nil {
			return nil, jxl.NewCodecError(jxl.NotEnoughBytes, "token %d: %v", i, err)
		}

		state = next
		tok := jxl.Token{Context: ctx, Symbol: sym}

		if nbitsOf != nil {
			tok.NBits = nbitsOf(ctx, sym)

			if tok.NBits > 0 {
				tok.Bits = uint32(r.ReadBits(uint(tok.NBits)))
			}
		}

		tokens[i] = tok
	}

	if state != jxl.AnsInitialState {
		return nil, jxl.NewCodecError(jxl.AnsFinalStateMismatch, "final state %#x, want %#x", state, jxl.AnsInitialState)
	}

	c.notify(jxl.EvtChunkDecoded, int64(n))
	return tokens, nil
}
