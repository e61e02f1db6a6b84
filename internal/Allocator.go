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

package internal

import (
	"sync"
	"sync/atomic"

	jxl "github.com/jxlgo/entropy-go"
)

// Allocator hands out and reclaims scratch byte buffers. Histogram and ICC
// buffers can grow to megabytes; routing every allocation through an
// Allocator lets an embedder cap memory per session instead of touching
// the process allocator directly.
type Allocator interface {
	// Get returns a buffer with length n. Its contents are unspecified.
	Get(n int) ([]byte, error)
	// Put returns a buffer obtained from Get for reuse.
	Put(buf []byte)
}

// poolAllocator is the default Allocator, backed by a sync.Pool of
// reusable buffers (4096 bytes of capacity when new; a request larger
// than a pooled buffer's capacity gets a fresh buffer of exactly n bytes).
type poolAllocator struct {
	pool sync.Pool
}

// NewAllocator creates the default, uncapped Allocator.
func NewAllocator() Allocator {
	a := &poolAllocator{}
	a.pool.New = func() any {
		buf := make([]byte, 0, 4096)
		return &buf
	}
	return a
}

func (a *poolAllocator) Get(n int) ([]byte, error) {
	bp := a.pool.Get().(*[]byte)
	buf := *bp

	if cap(buf) < n {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
	}

	return buf, nil
}

func (a *poolAllocator) Put(buf []byte) {
	b := buf[:0]
	a.pool.Put(&b)
}

// CappedAllocator decorates an Allocator with a hard ceiling on the total
// number of bytes outstanding at once (e.g. 1 GiB per session, per the
// entropy core's resource model). Get fails with
// jxl.ErrAllocatorLimitExceeded instead of growing past the cap.
type CappedAllocator struct {
	inner     Allocator
	limit     int64
	allocated int64
}

// NewCappedAllocator wraps inner with a byte ceiling.
func NewCappedAllocator(inner Allocator, limitBytes int64) *CappedAllocator {
	return &CappedAllocator{inner: inner, limit: limitBytes}
}

func (a *CappedAllocator) Get(n int) ([]byte, error) {
	if atomic.AddInt64(&a.allocated, int64(n)) > a.limit {
		atomic.AddInt64(&a.allocated, -int64(n))
		return nil, jxl.ErrAllocatorLimitExceeded
	}

	buf, err := a.inner.Get(n)

	if err != nil {
		atomic.AddInt64(&a.allocated, -int64(n))
		return nil, err
	}

	return buf, nil
}

func (a *CappedAllocator) Put(buf []byte) {
	atomic.AddInt64(&a.allocated, -int64(len(buf)))
	a.inner.Put(buf)
}

// Outstanding returns the number of bytes currently checked out.
func (a *CappedAllocator) Outstanding() int64 {
	return atomic.LoadInt64(&a.allocated)
}
