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
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/matrixorigin/seqvec/pkg/common/moerr"
	"github.com/matrixorigin/seqvec/pkg/logutil"
)

// MmapAllocator maps every block as anonymous private memory. The memory is
// invisible to the garbage collector, so it must only hold pointer free data.
type MmapAllocator struct{}

func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{}
}

var _ Allocator = new(MmapAllocator)

func (m *MmapAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 || hints.Has(AccountOnly) {
		return nil, NoopDeallocator, nil
	}
	block, err := unix.Mmap(
		-1, 0,
		int(size),
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
	return block, FuncDeallocator(func(Hints) {
		if err := unix.Munmap(block); err != nil {
			panic(err)
		}
	}), nil
}
