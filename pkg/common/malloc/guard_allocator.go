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

//go:build unix

package malloc

import (
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/matrixorigin/seqvec/pkg/common/moerr"
	"github.com/matrixorigin/seqvec/pkg/logutil"
)

// GuardAllocator maps every block on pages of its own. Deallocate revokes
// all access to the pages instead of unmapping them, so any later touch of a
// released block faults at once. Pages are never returned to the system;
// use it only to hunt use-after-release bugs.
type GuardAllocator struct {
	pageSize uint64
}

func NewGuardAllocator() *GuardAllocator {
	return &GuardAllocator{
		pageSize: uint64(unix.Getpagesize()),
	}
}

var _ Allocator = new(GuardAllocator)

func (g *GuardAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 || hints.Has(AccountOnly) {
		return nil, NoopDeallocator, nil
	}
	mapped := (size + g.pageSize - 1) / g.pageSize * g.pageSize
	block, err := unix.Mmap(
		-1, 0,
		int(mapped),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		logutil.Warn("mmap failed",
			zap.Uint64("size", size),
			zap.Error(err),
		)
		return nil, nil, moerr.NewOOMNoCtx()
	}
	var released atomic.Bool
	return block[:size:size], FuncDeallocator(func(Hints) {
		if !released.CompareAndSwap(false, true) {
			panic(moerr.NewInvalidStateNoCtx("block of size %d deallocated twice", size))
		}
		if err := unix.Mprotect(block, unix.PROT_NONE); err != nil {
			panic(err)
		}
	}), nil
}
