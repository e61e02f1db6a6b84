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

// Package icc implements the predictive pre-transform applied to ICC
// color profiles before they are entropy coded, plus the resumable
// reader that drives that transform's inverse off a suspendable bit
// stream.
package icc

import "encoding/binary"

const (
	// headerSize is the fixed ICC profile header length every profile
	// begins with.
	headerSize = 128
	// preambleSize is how many decoded bytes checkPreamble inspects
	// before committing to decoding the rest of a profile.
	preambleSize = 22
	// outputSizeCap bounds a declared profile size; larger is rejected
	// outright as a hostile or corrupt stream.
	outputSizeCap = 1 << 28
	// sizeSlackBytes bounds how much larger the encoded form may be
	// than the declared output size; anything larger signals the
	// predictor has clearly gone off the rails.
	sizeSlackBytes = 65536
)

// Commands recognized by the main-content loop.
const (
	cmdInsert          = 1
	cmdShuffle2        = 2
	cmdShuffle4        = 3
	cmdPredict         = 4
	cmdXYZ             = 5
	cmdTypeStringFirst = 6
)

// Commands recognized by the tag-table loop. tagcode occupies the low 6
// bits of the command byte; the two flag bits above it signal an
// explicit tag start offset and/or tag size following in the command
// stream.
const (
	tagTerminator    = 0
	cmdTagUnknown    = 1
	cmdTagTRC        = 2
	cmdTagXYZ        = 3
	cmdTagStringFirst = 4

	flagBitOffset = 0x40
	flagBitSize   = 0x80
	tagCodeMask   = 0x3F
)

// predictFlags bit layout: bits 0-1 width-1, bits 2-3 order, bit 4
// explicit-stride-follows.
const predictFlagExplicitStride = 0x10

// tagStrings and typeStrings are representative 4-byte ICC tag/type
// keywords common enough to be worth a dedicated command byte instead
// of 4 literal bytes in the data stream. Not exhaustive: anything else
// falls back to cmdTagUnknown, which spells the keyword out in full.
var tagStrings = []string{
	"desc", "cprt", "wtpt", "bkpt", "lumi", "tech",
	"vued", "view", "meas", "pseq", "resp", "chad",
}

var typeStrings = []string{
	"XYZ ", "curv", "para", "sf32", "text", "desc", "mluc",
}

const (
	rXYZTag = "rXYZ"
	gXYZTag = "gXYZ"
	bXYZTag = "bXYZ"
	rTRCTag = "rTRC"
	gTRCTag = "gTRC"
	bTRCTag = "bTRC"
)

// isXYZLikeTag reports whether tag's size field is always the fixed
// 20-byte XYZ-type payload, mirroring the small set of ICC tags known
// to always carry that type.
func isXYZLikeTag(tag string) bool {
	switch tag {
	case rXYZTag, gXYZTag, bXYZTag, "kXYZ", "wtpt", "bkpt", "lumi":
		return true
	default:
		return false
	}
}

// initialHeaderPrediction returns the per-byte prediction for the first
// headerSize bytes of a profile of the given declared size: the two
// fields of the 128-byte ICC header that are mechanically derivable
// from osize alone (the size field itself and the "acsp" signature),
// zero elsewhere. Unlike body prediction this never depends on bytes
// decoded so far, so both PredictICC and UnpredictICC can compute it
// from osize up front.
func initialHeaderPrediction(osize int) []byte {
	h := make([]byte, headerSize)
	binary.BigEndian.PutUint32(h[0:4], uint32(osize))
	copy(h[36:40], []byte("acsp"))
	return h
}

// numContexts is the number of ANS contexts the ICC byte stream is
// dispatched across: two for the first two stream positions (which have
// no full two-byte history yet) plus one per high nibble of the
// previous byte.
const numContexts = 2 + 16

// contextFor returns the ANS context for decoding/encoding the byte at
// stream position i, given the one and two bytes immediately before it
// (0 when not yet available).
func contextFor(i int, prev1, prev2 byte) uint32 {
	if i < 2 {
		return uint32(i)
	}

	return uint32(2 + int(prev1>>4))
}
