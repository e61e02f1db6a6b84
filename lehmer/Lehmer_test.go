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

package lehmer

import (
	"math/rand"
	"reflect"
	"testing"
)

func identity(n int) []int {
	p := make([]int, n)

	for i := range p {
		p[i] = i
	}

	return p
}

func TestEncodeDecodeIdentity(t *testing.T) {
	perm := identity(10)
	code := Encode(perm)
	got, err := Decode(code)

	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !reflect.DeepEqual(got, perm) {
		t.Fatalf("got %v, want %v", got, perm)
	}
}

func TestEncodeDecodeRandomPermutations(t *testing.T) {
	rng := rand.New(rand.NewSource(17))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(64)
		perm := identity(n)
		rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

		code := Encode(perm)
		got, err := Decode(code)

		if err != nil {
			t.Fatalf("trial %d (n=%d): Decode: %v", trial, n, err)
		}

		if !reflect.DeepEqual(got, perm) {
			t.Fatalf("trial %d (n=%d): got %v, want %v", trial, n, got, perm)
		}
	}
}

func TestDecodeRejectsInvalidCode(t *testing.T) {
	_, err := Decode([]int{3, 3, 3})

	if err == nil {
		t.Fatal("expected an error for an invalid Lehmer code")
	}
}

func TestEncodeReverseIsIdentityOnCode(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	n := 40
	perm := identity(n)
	rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	code := Encode(perm)
	decoded, err := Decode(code)

	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	reEncoded := Encode(decoded)

	if !reflect.DeepEqual(reEncoded, code) {
		t.Fatalf("re-encoding the decoded permutation gave %v, want %v", reEncoded, code)
	}
}
