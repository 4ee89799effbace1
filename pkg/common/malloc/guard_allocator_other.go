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

//go:build !unix

package malloc

import (
	"sync/atomic"

	"github.com/matrixorigin/seqvec/pkg/common/moerr"
)

// GuardAllocator only detects double deallocation where pages cannot be
// protected.
type GuardAllocator struct{}

func NewGuardAllocator() *GuardAllocator {
	return &GuardAllocator{}
}

var _ Allocator = new(GuardAllocator)

func (g *GuardAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 || hints.Has(AccountOnly) {
		return nil, NoopDeallocator, nil
	}
	var released atomic.Bool
	return make([]byte, size), FuncDeallocator(func(Hints) {
		if !released.CompareAndSwap(false, true) {
			panic(moerr.NewInvalidStateNoCtx("block of size %d deallocated twice", size))
		}
	}), nil
}
