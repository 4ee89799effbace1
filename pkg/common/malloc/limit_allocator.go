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

package malloc

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/matrixorigin/seqvec/pkg/common/moerr"
	"github.com/matrixorigin/seqvec/pkg/logutil"
)

// LimitAllocator fails with ErrOOM once the bytes in use would exceed limit.
// AccountOnly requests are charged like any other.
type LimitAllocator[U Allocator] struct {
	upstream U
	limit    uint64
	inuse    atomic.Uint64
	peak     PeakInuseTracker
}

func NewLimitAllocator[U Allocator](upstream U, limit uint64) *LimitAllocator[U] {
	return &LimitAllocator[U]{
		upstream: upstream,
		limit:    limit,
	}
}

var _ Allocator = new(LimitAllocator[Allocator])

func (l *LimitAllocator[U]) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	for {
		cur := l.inuse.Load()
		if cur+size > l.limit || cur+size < cur {
			logutil.Warn("allocation exceeds limit",
				zap.Uint64("size", size),
				zap.Uint64("inuse", cur),
				zap.Uint64("limit", l.limit),
			)
			return nil, nil, moerr.NewOOMNoCtx()
		}
		if l.inuse.CompareAndSwap(cur, cur+size) {
			l.peak.Update(cur + size)
			break
		}
	}

	block, dec, err := l.upstream.Allocate(size, hints)
	if err != nil {
		l.inuse.Add(^(size - 1))
		return nil, nil, err
	}

	return block, ChainDeallocator(
		dec,
		FuncDeallocator(func(Hints) {
			l.inuse.Add(^(size - 1))
		}),
	), nil
}

func (l *LimitAllocator[U]) Inuse() uint64 {
	return l.inuse.Load()
}

func (l *LimitAllocator[U]) Limit() uint64 {
	return l.limit
}

func (l *LimitAllocator[U]) Peak() PeakInuse {
	return l.peak.Load()
}
