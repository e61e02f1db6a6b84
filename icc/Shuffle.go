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

// shufflePermutation returns, for a size-element sequence shuffled with
// the given width, the index perm[i] such that shuffle(data)[i] ==
// data[perm[i]]. Transposes a matrix of ceil(size/width) columns by
// width rows read in column-major order; short last column's missing
// slots are simply skipped rather than reserved.
func shufflePermutation(size, width int) []int {
	height := (size + width - 1) / width
	perm := make([]int, size)
	s, j := 0, 0

	for i := 0; i < size; i++ {
		perm[i] = j
		j += height

		if j >= size {
			s++
			j = s
		}
	}

	return perm
}

// shuffle de-interleaves planar data (all of byte-plane 0, then all of
// byte-plane 1, ...) into natural element order: width 2 turns
// "ABCDabcd" into "AaBbCcDd".
func shuffle(data []byte, width int) []byte {
	if width <= 1 || len(data) == 0 {
		return append(make([]byte, 0, len(data)), data...)
	}

	perm := shufflePermutation(len(data), width)
	out := make([]byte, len(data))

	for i, p := range perm {
		out[i] = data[p]
	}

	return out
}

// unshuffle is shuffle's exact inverse: it turns natural element order
// back into planar order, the form PredictICC stores on the wire.
func unshuffle(data []byte, width int) []byte {
	if width <= 1 || len(data) == 0 {
		return append([]byte(nil), data...)
	}

	perm := shufflePermutation(len(data), width)
	out := make([]byte, len(data))

	for i, p := range perm {
		out[p] = data[i]
	}

	return out
}
