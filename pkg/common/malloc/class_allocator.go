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
)

// ClassAllocator rounds requests up to a size class and recycles released
// blocks through bounded per-class free lists. Requests above the largest
// class go straight to the Go heap.
type ClassAllocator struct {
	classSizes []uint64
	pools      []classAllocatorPool
}

type classAllocatorPool struct {
	numAlloc atomic.Int64
	numFree  atomic.Int64
	ch       chan *classAllocatorHandle
}

type classAllocatorHandle struct {
	block     []byte
	class     int
	allocator *ClassAllocator
}

const (
	minClassSize    = 128
	maxClassSize    = 8 * MB
	classSizeFactor = 1.8
)

func NewClassAllocator(
	maxBufferSize uint64,
) *ClassAllocator {

	classSizes := func() (ret []uint64) {
		for size := uint64(minClassSize); size <= maxClassSize; size = uint64(float64(size) * classSizeFactor) {
			ret = append(ret, size)
		}
		return
	}()

	classSumSize := func() (ret uint64) {
		for _, size := range classSizes {
			ret += size
		}
		return
	}()

	bufferedObjectsPerClass := int(maxBufferSize / classSumSize)

	pools := make([]classAllocatorPool, len(classSizes))
	for i := range pools {
		pools[i].ch = make(chan *classAllocatorHandle, bufferedObjectsPerClass)
	}

	return &ClassAllocator{
		classSizes: classSizes,
		pools:      pools,
	}
}

var _ Allocator = new(ClassAllocator)

func (c *ClassAllocator) requestSizeToClass(size uint64) int {
	for class, classSize := range c.classSizes {
		if classSize >= size {
			return class
		}
	}
	return -1
}

func (c *ClassAllocator) classAllocate(class int, hints Hints) *classAllocatorHandle {
	c.pools[class].numAlloc.Add(1)
	select {
	case handle := <-c.pools[class].ch:
		if !hints.Has(NoClear) {
			clear(handle.block)
		}
		return handle
	default:
		return &classAllocatorHandle{
			block:     make([]byte, c.classSizes[class]),
			class:     class,
			allocator: c,
		}
	}
}

func (c *ClassAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 || hints.Has(AccountOnly) {
		return nil, NoopDeallocator, nil
	}
	class := c.requestSizeToClass(size)
	if class == -1 {
		return make([]byte, size), NoopDeallocator, nil
	}
	handle := c.classAllocate(class, hints)
	return handle.block[:size], handle, nil
}

func (h *classAllocatorHandle) Deallocate(_ Hints) {
	pool := &h.allocator.pools[h.class]
	pool.numFree.Add(1)
	select {
	case pool.ch <- h:
	default:
	}
}

// ClassStats reports per-class counters.
type ClassStats struct {
	Size     uint64
	NumAlloc int64
	NumFree  int64
	Cached   int
}

func (c *ClassAllocator) Stats() []ClassStats {
	ret := make([]ClassStats, len(c.classSizes))
	for i, size := range c.classSizes {
		ret[i] = ClassStats{
			Size:     size,
			NumAlloc: c.pools[i].numAlloc.Load(),
			NumFree:  c.pools[i].numFree.Load(),
			Cached:   len(c.pools[i].ch),
		}
	}
	return ret
}
