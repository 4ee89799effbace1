// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package malloc hands out raw byte blocks. Allocators never know what is
// stored in a block; callers own the layout of the bytes they receive and must
// return each block through the Deallocator paired with it.
package malloc

//go:generate mockgen -source=malloc.go -destination=test/malloc_mock.go -package=mock_malloc

import (
	"sync/atomic"
)

const (
	B = 1 << (10 * iota)
	KB
	MB
	GB
)

// Hints tune a single Allocate or Deallocate call.
type Hints uint64

const (
	// NoClear skips zeroing a recycled block. Fresh memory is always zero.
	NoClear Hints = 1 << iota
	// AccountOnly charges size against limits and metrics without
	// returning backing memory. Used when the caller must allocate typed
	// memory itself.
	AccountOnly
)

func (h Hints) Has(flag Hints) bool {
	return h&flag == flag
}

type Allocator interface {
	// Allocate returns a block of exactly size bytes, or nil when size is 0 or
	// hints has AccountOnly. The returned Deallocator must be called exactly once.
	Allocate(size uint64, hints Hints) ([]byte, Deallocator, error)
}

type Deallocator interface {
	Deallocate(hints Hints)
}

var defaultAllocator atomic.Pointer[allocatorHolder]

type allocatorHolder struct {
	Allocator
}

func init() {
	SetDefault(NewGoAllocator())
}

// GetDefault returns the process wide allocator used when no allocator is
// given explicitly.
func GetDefault() Allocator {
	return defaultAllocator.Load().Allocator
}

// SetDefault replaces the process wide allocator and returns the previous one.
func SetDefault(a Allocator) Allocator {
	prev := defaultAllocator.Swap(&allocatorHolder{a})
	if prev == nil {
		return nil
	}
	return prev.Allocator
}
