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

// appendVarInt appends value to dst as unsigned LEB128, at most 10
// bytes, matching the VarInt used throughout the predictive transform's
// commands stream.
func appendVarInt(dst []byte, value uint64) []byte {
	for value >= 128 {
		dst = append(dst, byte(value&0x7F)|0x80)
		value >>= 7
	}

	return append(dst, byte(value))
}

// readVarInt decodes a VarInt from data starting at pos, returning the
// value and the position just past it. Stops after 10 bytes even if the
// continuation bit is still set, matching the decoder's tolerance for a
// value that never properly terminates.
func readVarInt(data []byte, pos int) (uint64, int) {
	var ret uint64
	i := 0

	for ; pos+i < len(data) && i < 10; i++ {
		b := data[pos+i]
		ret |= uint64(b&0x7F) << uint(7*i)

		if b&0x80 == 0 {
			break
		}
	}

	return ret, pos + i + 1
}
