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
	"encoding/binary"

	jxl "github.com/jxlgo/entropy-go"
)

// appendUint32 appends v to dst, big-endian, matching the 4-byte integer
// fields (tag start/size) of an ICC tag table entry.
func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// linearPredictByte predicts the byte that belongs at data[pos] from up
// to order+1 samples spaced stride bytes apart, already present in
// data. A back-reference landing before the start of data (an
// under-sized stride/order combination on a corrupt stream) predicts 0
// rather than indexing out of bounds.
func linearPredictByte(data []byte, pos, stride, order int) byte {
	get := func(back int) int {
		p := pos - back*stride

		if p < 0 || p >= len(data) {
			return 0
		}

		return int(data[p])
	}

	var predicted int

	switch order {
	case 0:
		predicted = get(1)
	case 1:
		predicted = 2*get(1) - get(2)
	case 2:
		predicted = 3*get(1) - 3*get(2) + get(3)
	}

	return byte(predicted)
}

// PredictICC applies the lossless pre-transform to an ICC profile,
// returning a commands-then-data byte stream: VarInt(output size),
// VarInt(commands size), commands, data. The header's 128 bytes are
// always delta-coded against a size-derived prediction; everything past
// it (if any) is carried by one PREDICT command rather than attempting
// the tag-table-aware command set UnpredictICC also understands -
// modest compression. Several of the other commands UnpredictICC accepts
// (INSERT, SHUFFLE2, XYZ, a TYPE string, TRC and unknown-tag table
// entries, a width-2 PREDICT) are exercised by dedicated tests feeding it
// synthetic streams; SHUFFLE4, the XYZ tag command and the tag-string
// codes have no such test.
func PredictICC(profile []byte) ([]byte, error) {
	osize := len(profile)

	if osize > outputSizeCap {
		return nil, jxl.NewCodecError(jxl.IccLimitExceeded, "ICC profile of %d bytes exceeds cap %d", osize, outputSizeCap)
	}

	header := initialHeaderPrediction(osize)
	n := osize

	if n > headerSize {
		n = headerSize
	}

	data := make([]byte, 0, osize)

	for i := 0; i < n; i++ {
		data = append(data, profile[i]-header[i])
	}

	var commands []byte

	if osize > headerSize {
		commands = appendVarInt(commands, 0) // numtags=0: no tag-table commands

		rest := profile[headerSize:]
		width, order, stride := 1, 1, 4

		flags := byte((width-1)&0x3) | byte((order&0x3)<<2) | predictFlagExplicitStride
		commands = append(commands, cmdPredict, flags)
		commands = appendVarInt(commands, uint64(stride))
		commands = appendVarInt(commands, uint64(len(rest)))

		for i, b := range rest {
			predicted := linearPredictByte(profile, headerSize+i, stride, order)
			data = append(data, b-predicted)
		}
	}

	out := appendVarInt(nil, uint64(osize))
	out = appendVarInt(out, uint64(len(commands)))
	out = append(out, commands...)
	out = append(out, data...)
	return out, nil
}

// checkPreamble validates the first preambleSize decoded bytes of a
// predictive stream against the anti-bomb and size-cap invariants,
// without requiring the rest of the stream to be available yet.
func checkPreamble(decoded []byte, encSize int) error {
	osize, pos := readVarInt(decoded, 0)

	if osize >= 1<<32 {
		return jxl.NewCodecError(jxl.IccLimitExceeded, "declared output size does not fit 32 bits")
	}

	if pos >= len(decoded) {
		return jxl.NewCodecError(jxl.NotEnoughBytes, "preamble truncated before commands size")
	}

	csize, pos2 := readVarInt(decoded, pos)

	if csize >= 1<<32 {
		return jxl.NewCodecError(jxl.IccLimitExceeded, "declared commands size does not fit 32 bits")
	}

	if pos2+int(csize) > encSize {
		return jxl.NewCodecError(jxl.IccInconsistent, "commands size %d runs past encoded stream", csize)
	}

	if osize+sizeSlackBytes < uint64(encSize) {
		return jxl.NewCodecError(jxl.IccInconsistent, "declared output size %d too small for encoded stream of %d bytes", osize, encSize)
	}

	if osize > outputSizeCap {
		return jxl.NewCodecError(jxl.IccLimitExceeded, "declared output size %d exceeds cap %d", osize, outputSizeCap)
	}

	return nil
}

// UnpredictICC inverts PredictICC, reconstructing the original ICC
// profile from its commands-then-data representation.
func UnpredictICC(enc []byte) ([]byte, error) {
	if len(enc) == 0 {
		return nil, jxl.NewCodecError(jxl.NotEnoughBytes, "empty predictive stream")
	}

	osize64, pos := readVarInt(enc, 0)

	if osize64 > outputSizeCap {
		return nil, jxl.NewCodecError(jxl.IccLimitExceeded, "declared output size %d exceeds cap", osize64)
	}

	if pos >= len(enc) {
		return nil, jxl.NewCodecError(jxl.NotEnoughBytes, "truncated before commands size")
	}

	csize64, pos := readVarInt(enc, pos)
	cpos := pos

	if csize64 > uint64(len(enc)) || cpos+int(csize64) > len(enc) {
		return nil, jxl.NewCodecError(jxl.IccInconsistent, "commands size %d out of bounds", csize64)
	}

	commandsEnd := cpos + int(csize64)
	pos = commandsEnd
	osize := int(osize64)

	result := make([]byte, 0, osize)
	header := initialHeaderPrediction(osize)

	for i := 0; i <= headerSize; i++ {
		if len(result) == osize {
			if cpos != commandsEnd {
				return nil, jxl.NewCodecError(jxl.IccInconsistent, "not all commands used")
			}

			if pos != len(enc) {
				return nil, jxl.NewCodecError(jxl.IccInconsistent, "not all data used")
			}

			return result, nil
		}

		if i == headerSize {
			break
		}

		if pos >= len(enc) {
			return nil, jxl.NewCodecError(jxl.NotEnoughBytes, "truncated header data")
		}

		result = append(result, enc[pos]+header[i])
		pos++
	}

	if cpos >= commandsEnd {
		return nil, jxl.NewCodecError(jxl.IccInconsistent, "no commands past incomplete header")
	}

	if err := unpredictTagTable(enc, &cpos, commandsEnd, &pos, &result, osize); err != nil {
		return nil, err
	}

	if err := unpredictMainContent(enc, &cpos, commandsEnd, &pos, &result, osize); err != nil {
		return nil, err
	}

	if pos != len(enc) {
		return nil, jxl.NewCodecError(jxl.IccInconsistent, "not all data used")
	}

	if len(result) != osize {
		return nil, jxl.NewCodecError(jxl.IccInconsistent, "result size %d, want %d", len(result), osize)
	}

	return result, nil
}

func unpredictTagTable(enc []byte, cpos *int, commandsEnd int, pos *int, result *[]byte, osize int) error {
	numtags64, next := readVarInt(enc, *cpos)
	*cpos = next

	if numtags64 == 0 {
		return nil
	}

	numtags := numtags64 - 1
	*result = appendUint32(*result, uint32(numtags))

	prevTagStart := uint64(headerSize) + numtags*12
	prevTagSize := uint64(0)

	for {
		if len(*result) > osize {
			return jxl.NewCodecError(jxl.IccInconsistent, "tag table overran declared output size")
		}

		if *cpos > commandsEnd {
			return jxl.NewCodecError(jxl.NotEnoughBytes, "tag table ran past commands")
		}

		if *cpos == commandsEnd {
			return nil
		}

		command := enc[*cpos]
		*cpos++
		tagcode := command & tagCodeMask

		if tagcode == tagTerminator {
			return nil
		}

		var tag string

		switch {
		case tagcode == cmdTagUnknown:
			if *pos+4 > len(enc) {
				return jxl.NewCodecError(jxl.NotEnoughBytes, "unknown tag keyword runs past data stream")
			}

			tag = string(enc[*pos : *pos+4])
			*pos += 4
		case tagcode == cmdTagTRC:
			tag = rTRCTag
		case tagcode == cmdTagXYZ:
			tag = rXYZTag
		default:
			idx := int(tagcode) - cmdTagStringFirst

			if idx < 0 || idx >= len(tagStrings) {
				return jxl.NewCodecError(jxl.IccInconsistent, "unknown tag code %d", tagcode)
			}

			tag = tagStrings[idx]
		}

		*result = append(*result, []byte(tag)...)

		tagSize := prevTagSize

		if isXYZLikeTag(tag) {
			tagSize = 20
		}

		var tagStart uint64

		if command&flagBitOffset != 0 {
			if *cpos >= commandsEnd {
				return jxl.NewCodecError(jxl.NotEnoughBytes, "missing tag start offset")
			}

			tagStart, *cpos = readVarInt(enc, *cpos)
		} else {
			tagStart = prevTagStart + prevTagSize
		}

		*result = appendUint32(*result, uint32(tagStart))

		if command&flagBitSize != 0 {
			if *cpos >= commandsEnd {
				return jxl.NewCodecError(jxl.NotEnoughBytes, "missing tag size")
			}

			tagSize, *cpos = readVarInt(enc, *cpos)
		}

		*result = appendUint32(*result, uint32(tagSize))
		prevTagStart, prevTagSize = tagStart, tagSize

		if tagcode == cmdTagTRC {
			*result = append(*result, []byte(gTRCTag)...)
			*result = appendUint32(*result, uint32(tagStart))
			*result = appendUint32(*result, uint32(tagSize))
			*result = append(*result, []byte(bTRCTag)...)
			*result = appendUint32(*result, uint32(tagStart))
			*result = appendUint32(*result, uint32(tagSize))
		}

		if tagcode == cmdTagXYZ {
			*result = append(*result, []byte(gXYZTag)...)
			*result = appendUint32(*result, uint32(tagStart+tagSize))
			*result = appendUint32(*result, uint32(tagSize))
			*result = append(*result, []byte(bXYZTag)...)
			*result = appendUint32(*result, uint32(tagStart+tagSize*2))
			*result = appendUint32(*result, uint32(tagSize))
		}
	}
}

func unpredictMainContent(enc []byte, cpos *int, commandsEnd int, pos *int, result *[]byte, osize int) error {
	for {
		if len(*result) > osize {
			return jxl.NewCodecError(jxl.IccInconsistent, "main content overran declared output size")
		}

		if *cpos > commandsEnd {
			return jxl.NewCodecError(jxl.NotEnoughBytes, "main content ran past commands")
		}

		if *cpos == commandsEnd {
			return nil
		}

		command := enc[*cpos]
		*cpos++

		switch {
		case command == cmdInsert:
			num, err := takeVarIntCommand(enc, cpos, commandsEnd)

			if err != nil {
				return err
			}

			if *pos+num > len(enc) {
				return jxl.NewCodecError(jxl.NotEnoughBytes, "INSERT runs past data stream")
			}

			*result = append(*result, enc[*pos:*pos+num]...)
			*pos += num
		case command == cmdShuffle2 || command == cmdShuffle4:
			width := 2

			if command == cmdShuffle4 {
				width = 4
			}

			num, err := takeVarIntCommand(enc, cpos, commandsEnd)

			if err != nil {
				return err
			}

			if *pos+num > len(enc) {
				return jxl.NewCodecError(jxl.NotEnoughBytes, "SHUFFLE runs past data stream")
			}

			*result = append(*result, shuffle(enc[*pos:*pos+num], width)...)
			*pos += num
		case command == cmdPredict:
			if err := unpredictPredict(enc, cpos, commandsEnd, pos, result); err != nil {
				return err
			}
		case command == cmdXYZ:
			*result = append(*result, []byte("XYZ ")...)
			*result = append(*result, 0, 0, 0, 0)

			if *pos+12 > len(enc) {
				return jxl.NewCodecError(jxl.NotEnoughBytes, "XYZ runs past data stream")
			}

			*result = append(*result, enc[*pos:*pos+12]...)
			*pos += 12
		case int(command) >= cmdTypeStringFirst && int(command) < cmdTypeStringFirst+len(typeStrings):
			idx := int(command) - cmdTypeStringFirst
			*result = append(*result, []byte(typeStrings[idx])...)
			*result = append(*result, 0, 0, 0, 0)
		default:
			return jxl.NewCodecError(jxl.IccInconsistent, "unknown main-content command %d", command)
		}
	}
}

func takeVarIntCommand(enc []byte, cpos *int, commandsEnd int) (int, error) {
	if *cpos >= commandsEnd {
		return 0, jxl.NewCodecError(jxl.NotEnoughBytes, "missing command argument")
	}

	v, next := readVarInt(enc, *cpos)
	*cpos = next
	return int(v), nil
}

func unpredictPredict(enc []byte, cpos *int, commandsEnd int, pos *int, result *[]byte) error {
	if *cpos >= commandsEnd {
		return jxl.NewCodecError(jxl.NotEnoughBytes, "missing PREDICT flags")
	}

	flags := enc[*cpos]
	*cpos++

	width := int(flags&0x3) + 1

	if width == 3 {
		return jxl.NewCodecError(jxl.IccInconsistent, "invalid PREDICT width")
	}

	order := int((flags >> 2) & 0x3)

	if order == 3 {
		return jxl.NewCodecError(jxl.IccInconsistent, "invalid PREDICT order")
	}

	stride := uint64(width)

	if flags&predictFlagExplicitStride != 0 {
		if *cpos >= commandsEnd {
			return jxl.NewCodecError(jxl.NotEnoughBytes, "missing PREDICT stride")
		}

		stride, *cpos = readVarInt(enc, *cpos)

		if stride < uint64(width) {
			return jxl.NewCodecError(jxl.IccInconsistent, "PREDICT stride smaller than width")
		}
	}

	if len(*result) == 0 || ((len(*result)-1)>>2) < int(stride) {
		return jxl.NewCodecError(jxl.IccInconsistent, "PREDICT stride too large for result so far")
	}

	num, err := takeVarIntCommand(enc, cpos, commandsEnd)

	if err != nil {
		return err
	}

	if *pos+num > len(enc) {
		return jxl.NewCodecError(jxl.NotEnoughBytes, "PREDICT runs past data stream")
	}

	raw := enc[*pos : *pos+num]

	if width > 1 {
		raw = shuffle(raw, width)
	}

	start := len(*result)

	for i := 0; i < num; i++ {
		predicted := linearPredictByte(*result, start+i, int(stride), order)
		*result = append(*result, predicted+raw[i])
	}

	*pos += num
	return nil
}
