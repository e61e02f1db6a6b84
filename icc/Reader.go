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
	"time"

	jxl "github.com/jxlgo/entropy-go"
	"github.com/jxlgo/entropy-go/bitio"
	"github.com/jxlgo/entropy-go/contextmap"
	"github.com/jxlgo/entropy-go/entropy"
	"github.com/jxlgo/entropy-go/internal"
)

// checkpointInterval is how often Process snapshots (decoded-byte
// count, ANS state, bit position) so a truncated read can roll back to
// the last point it is safe to resume from instead of restarting.
const checkpointInterval = 512

// corruptionRatioCadence and corruptionRatioLimit guard against a
// corrupt stream that decodes far more symbols than the bytes consumed
// could plausibly explain - decompression-bomb territory for a session
// that otherwise never checks decoded-size-to-input-size ratios.
const (
	corruptionRatioCadence = 0xFFFF
	corruptionRatioLimit   = 256
)

// Status is what Process reports about its progress.
type Status int

const (
	// StatusDone means the profile was fully decoded; Process's result
	// byte slice holds it.
	StatusDone Status = iota
	// StatusPending means the underlying bit reader ran out of bytes
	// before decoding finished; Process rolled back to its last
	// checkpoint and is ready to resume once more input is available.
	StatusPending
)

// Reader decodes an entropy-coded ICC predictive stream in a resumable
// fashion: if its bit reader signals out-of-bounds mid-decode, Process
// restores its last ANS checkpoint and returns StatusPending rather
// than failing, so a caller streaming bytes in from the wire can refill
// and call Process again once more data has arrived.
type Reader struct {
	listeners []jxl.Listener
	sessionID int
	alloc     internal.Allocator

	initialized  bool
	encSize      int
	coder        *entropy.Coder
	decompressed []byte
	i            int
	state        uint32

	usedBitsBase uint64
	bitsToSkip   uint64
}

// NewReader creates an uninitialized ICC Reader. sessionID tags events
// this Reader emits to its listeners. Its scratch decompressed-bytes
// buffer is checked out from the default Allocator; use
// NewReaderWithAllocator to route it through a capped one instead.
func NewReader(sessionID int) *Reader {
	return NewReaderWithAllocator(sessionID, internal.NewAllocator())
}

// NewReaderWithAllocator is NewReader with an explicit Allocator, e.g.
// an internal.CappedAllocator bounding how much scratch memory a batch
// of concurrent sessions may check out at once.
func NewReaderWithAllocator(sessionID int, alloc internal.Allocator) *Reader {
	return &Reader{sessionID: sessionID, alloc: alloc}
}

// AddListener registers l to receive progress events.
func (this *Reader) AddListener(l jxl.Listener) {
	this.listeners = append(this.listeners, l)
}

func (this *Reader) notify(evtType int, size int64) {
	if len(this.listeners) == 0 {
		return
	}

	evt := jxl.NewEvent(evtType, this.sessionID, size, 0, jxl.EVT_HASH_NONE, time.Time{})

	for _, l := range this.listeners {
		l.ProcessEvent(evt)
	}
}

// CheckEOI reports NotEnoughBytes if r has already read past its span.
func CheckEOI(r *bitio.Reader) error {
	if r.AllReadsWithinBounds() {
		return nil
	}

	return jxl.NewCodecError(jxl.NotEnoughBytes, "not enough bytes for ICC profile")
}

// Init reads the encoded-length prefix and histogram header once (the
// first time it is called) and decodes and preamble-checks the first
// preambleSize bytes, so a hostile or corrupt stream is rejected before
// committing to decoding a potentially large body. On a resumed session
// it just fast-forwards r to the last resumable position: the end of the
// Init phase, or the checkpoint Process last rolled back to.
func (this *Reader) Init(r *bitio.Reader) error {
	if err := CheckEOI(r); err != nil {
		return err
	}

	if this.bitsToSkip != 0 {
		r.SkipBits(uint(this.bitsToSkip))
		this.initialized = true
		return nil
	}

	usedBitsBase := r.TotalBitsConsumed()
	this.usedBitsBase = usedBitsBase

	encSize64 := readRawVarInt(r)

	if err := CheckEOI(r); err != nil {
		return err
	}

	if encSize64 > outputSizeCap {
		return jxl.NewCodecError(jxl.IccLimitExceeded, "encoded ICC stream of %d bytes exceeds cap", encSize64)
	}

	this.encSize = int(encSize64)

	cm, err := contextmap.Deserialize(r, numContexts)

	if err != nil {
		return err
	}

	if err := CheckEOI(r); err != nil {
		return err
	}

	hists := make([]*entropy.Histogram, cm.K)

	for i := 0; i < cm.K; i++ {
		h, err := entropy.DeserializeHistogram(r)

		if err != nil {
			return jxl.NewCodecError(jxl.MalformedHistogram, "ICC histogram %d: %v", i, err)
		}

		hists[i] = h
	}

	if err := CheckEOI(r); err != nil {
		return err
	}

	coder, err := entropy.NewCoder(hists, cm.Map, this.sessionID)

	if err != nil {
		return err
	}

	this.coder = coder
	this.state = uint32(r.ReadBits(32))

	buf, err := this.alloc.Get(this.encSize)

	if err != nil {
		return jxl.NewCodecError(jxl.IccLimitExceeded, "allocating ICC scratch buffer: %v", err)
	}

	this.decompressed = buf
	this.i = 0

	n := this.encSize

	if n > preambleSize {
		n = preambleSize
	}

	for ; this.i < n; this.i++ {
		if err := this.decodeOne(r); err != nil {
			return err
		}
	}

	if this.encSize > preambleSize {
		if err := CheckEOI(r); err != nil {
			return err
		}

		if err := checkPreamble(this.decompressed, this.encSize); err != nil {
			return err
		}
	}

	this.bitsToSkip = r.TotalBitsConsumed() - usedBitsBase
	this.initialized = true
	return nil
}

func (this *Reader) decodeOne(r *bitio.Reader) error {
	var prev1, prev2 byte

	if this.i >= 1 {
		prev1 = this.decompressed[this.i-1]
	}

	if this.i >= 2 {
		prev2 = this.decompressed[this.i-2]
	}

	ctx := contextFor(this.i, prev1, prev2)
	sym, next, err := this.coder.DecodeOne(r, this.state, ctx)

	if err != nil {
		return err
	}

	this.state = next
	this.decompressed[this.i] = byte(sym)
	return nil
}

// Process decodes as much of the remaining body as r's bytes allow. A
// StatusPending result means r ran dry; once more input has arrived the
// caller passes a Reader backed by more bytes (from the same start, since
// bit positions are absolute) to Init, which fast-forwards it, and then
// to Process. A StatusDone
// result carries the fully reconstructed ICC profile.
func (this *Reader) Process(r *bitio.Reader) ([]byte, Status, error) {
	if !this.initialized {
		return nil, StatusPending, jxl.NewCodecError(jxl.NotEnoughBytes, "Process called before Init")
	}

	checkpoint := r.Mark()
	savedI, savedState := this.i, this.state

	save := func() {
		checkpoint = r.Mark()
		savedI, savedState = this.i, this.state
	}

	restore := func() {
		r.Restore(checkpoint)
		this.i, this.state = savedI, savedState
		// A resumed session fast-forwards a fresh Reader past exactly
		// this many bits in Init, so it must track the checkpoint just
		// restored to, not the Init-phase boundary recorded earlier.
		this.bitsToSkip = r.TotalBitsConsumed()
		this.notify(jxl.EvtIccCheckpoint, int64(this.i))
	}

	for ; this.i < this.encSize; this.i++ {
		if this.i%checkpointInterval == 0 && this.i > 0 {
			if err := CheckEOI(r); err != nil {
				restore()
				this.notify(jxl.EvtIccNotEnoughData, int64(this.i))
				return nil, StatusPending, nil
			}

			save()
		}

		if this.i%corruptionRatioCadence == 0 && this.i > 0 {
			usedBytes := float64(r.TotalBitsConsumed()-this.usedBitsBase) / 8.0

			if usedBytes > 0 && float64(this.i) > usedBytes*corruptionRatioLimit {
				return nil, StatusDone, jxl.NewCodecError(jxl.IccInconsistent, "corrupted ICC stream: %d symbols from %.0f bytes", this.i, usedBytes)
			}
		}

		if err := this.decodeOne(r); err != nil {
			restore()
			this.notify(jxl.EvtIccNotEnoughData, int64(this.i))
			return nil, StatusPending, nil
		}
	}

	if err := CheckEOI(r); err != nil {
		restore()
		this.notify(jxl.EvtIccNotEnoughData, int64(this.i))
		return nil, StatusPending, nil
	}

	if this.state != jxl.AnsInitialState {
		return nil, StatusDone, jxl.NewCodecError(jxl.AnsFinalStateMismatch, "corrupted ICC profile: final state %#x, want %#x", this.state, jxl.AnsInitialState)
	}

	profile, err := UnpredictICC(this.decompressed)
	this.alloc.Put(this.decompressed)
	this.decompressed = nil

	if err != nil {
		return nil, StatusDone, err
	}

	this.notify(jxl.EvtChunkDecoded, int64(len(profile)))
	return profile, StatusDone, nil
}
