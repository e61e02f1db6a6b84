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

// Package lehmer converts a permutation to and from its Lehmer
// (factorial-base) code, used by the contextmap package to compactly
// encode the initial Move-To-Front list order when doing so is cheaper
// than leaving it at the identity.
package lehmer

import "fmt"

// Encode computes the Lehmer code of permutation, an array of n unique
// indices in [0,n). Runs in O(n log n) using a Fenwick tree.
func Encode(permutation []int) []int {
	n := len(permutation)
	code := make([]int, n)
	fenwick := make([]int, n+1)

	for idx, s := range permutation {
		penalty := 0

		for i := s + 1; i != 0; i &= i - 1 {
			penalty += fenwick[i]
		}

		code[idx] = s - penalty

		for i := s + 1; i <= n; i += i & -i {
			fenwick[i]++
		}
	}

	return code
}

// Decode inverts Encode: given a Lehmer code of length n, reconstructs
// the permutation it came from, via an implicit order-statistics tree
// over a size padded up to the next power of two. Runs in O(n log n).
func Decode(code []int) ([]int, error) {
	n := len(code)

	if n == 0 {
		return nil, nil
	}

	log2n := 0

	for (1 << log2n) < n {
		log2n++
	}

	paddedN := 1 << log2n
	tree := make([]int, paddedN)

	for i := 0; i < paddedN; i++ {
		tree[i] = lowestSetBit(i + 1)
	}

	permutation := make([]int, n)

	for i := 0; i < n; i++ {
		if code[i]+i >= n {
			return nil, fmt.Errorf("lehmer: invalid code at index %d: code=%d, n=%d", i, code[i], n)
		}

		rank := code[i] + 1
		bit := paddedN
		next := 0

		for lvl := 0; lvl <= log2n; lvl++ {
			cand := next + bit
			bit >>= 1

			if cand >= 1 && tree[cand-1] < rank {
				next = cand
				rank -= tree[cand-1]
			}
		}

		permutation[i] = next

		for p := next + 1; p <= paddedN; p += lowestSetBit(p) {
			tree[p-1]--
		}
	}

	return permutation, nil
}

func lowestSetBit(x int) int {
	return x & -x
}
