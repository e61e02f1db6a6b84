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

// Package contextmap implements the mapping from logical context id to
// histogram index, and its Move-To-Front + mini-ANS serialization.
package contextmap

// mtfForward runs symbols through a Move-To-Front transform seeded by
// list (a permutation of [0,K)), returning one rank per input symbol and
// mutating list in place to its final state. Structurally this is
// SBR(alpha=0): every access promotes its symbol straight to the front.
func mtfForward(symbols []int, list []int) []int {
	ranks := make([]int, len(symbols))
	pos := make(map[int]int, len(list))

	for i, v := range list {
		pos[v] = i
	}

	for i, c := range symbols {
		r := pos[c]
		ranks[i] = r

		for j := r; j > 0; j-- {
			list[j] = list[j-1]
			pos[list[j]] = j
		}

		list[0] = c
		pos[c] = 0
	}

	return ranks
}

// mtfInverse is the exact inverse of mtfForward: given the same initial
// list and the rank sequence mtfForward produced, it reconstructs the
// original symbol sequence.
func mtfInverse(ranks []int, list []int) []int {
	symbols := make([]int, len(ranks))

	for i, r := range ranks {
		c := list[r]
		symbols[i] = c

		for j := r; j > 0; j-- {
			list[j] = list[j-1]
		}

		list[0] = c
	}

	return symbols
}
