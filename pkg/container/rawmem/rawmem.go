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

// Package rawmem owns blocks of unconstructed element slots.
//
// A RawMemory never constructs or destroys elements. It only knows how many
// slots it was sized for. Slot contents are meaningful only between a
// successful ConstructAt and the matching DestroyAt; callers keep that
// bookkeeping themselves and may turn on the checker to verify it.
//
// Memory layout. When T holds no pointers the block comes from a
// malloc.Allocator as bytes and is viewed as []T through unsafe. This is
// sound only because the garbage collector never needs to scan such slots
// and every allocator in malloc returns blocks aligned to at least the
// alignment of T (a misaligned block falls back to the typed path). When T
// holds pointers the slots are a typed Go slice, and the allocator is only
// charged for the bytes via malloc.AccountOnly.
package rawmem

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/matrixorigin/seqvec/pkg/common/malloc"
	"github.com/matrixorigin/seqvec/pkg/common/moerr"
)

// noCopy lets go vet's copylocks check flag copies of RawMemory.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

type RawMemory[T any] struct {
	_       noCopy
	slots   []T
	dec     malloc.Deallocator
	checker *checker
}

// New acquires storage for capacity slots.
func New[T any](allocator malloc.Allocator, capacity int) (*RawMemory[T], error) {
	r := new(RawMemory[T])
	if err := r.Acquire(allocator, capacity); err != nil {
		return nil, err
	}
	return r, nil
}

// Acquire sizes an empty RawMemory for capacity slots. Capacity 0 allocates
// nothing. On failure r is left empty.
func (r *RawMemory[T]) Acquire(allocator malloc.Allocator, capacity int) error {
	if r.slots != nil || r.dec != nil {
		panic(moerr.NewInvalidStateNoCtx("acquire on non-empty raw memory of capacity %d", len(r.slots)))
	}
	if capacity < 0 {
		return moerr.NewInvalidArgNoCtx("capacity", capacity)
	}
	if capacity == 0 {
		return nil
	}
	if allocator == nil {
		allocator = malloc.GetDefault()
	}

	var zero T
	elemSize := uint64(unsafe.Sizeof(zero))
	size := elemSize * uint64(capacity)
	if elemSize != 0 && size/elemSize != uint64(capacity) {
		return moerr.NewInvalidArgNoCtx("capacity", capacity)
	}

	if elemSize != 0 && pointerFree[T]() {
		block, dec, err := allocator.Allocate(size, malloc.NoClear)
		if err != nil {
			return err
		}
		ptr := unsafe.Pointer(unsafe.SliceData(block))
		if uintptr(ptr)%unsafe.Alignof(zero) == 0 {
			r.slots = unsafe.Slice((*T)(ptr), capacity)
			r.dec = dec
			r.checker = newChecker()
			return nil
		}
		// misaligned, use typed memory
		dec.Deallocate(0)
	}

	_, dec, err := allocator.Allocate(size, malloc.AccountOnly)
	if err != nil {
		return err
	}
	r.slots = make([]T, capacity)
	r.dec = dec
	r.checker = newChecker()
	return nil
}

// Release returns the block without touching its contents. Every live
// element must have been destroyed first.
func (r *RawMemory[T]) Release() {
	if r.checker != nil {
		r.checker.released(len(r.slots))
	}
	if r.dec != nil {
		r.dec.Deallocate(0)
	}
	r.slots = nil
	r.dec = nil
	r.checker = nil
}

// MoveFrom releases r, takes over src's block and leaves src empty.
func (r *RawMemory[T]) MoveFrom(src *RawMemory[T]) {
	if r == src {
		return
	}
	r.Release()
	r.slots, src.slots = src.slots, nil
	r.dec, src.dec = src.dec, nil
	r.checker, src.checker = src.checker, nil
}

func (r *RawMemory[T]) Swap(other *RawMemory[T]) {
	r.slots, other.slots = other.slots, r.slots
	r.dec, other.dec = other.dec, r.dec
	r.checker, other.checker = other.checker, r.checker
}

func (r *RawMemory[T]) Capacity() int {
	return len(r.slots)
}

// Slot returns the address of slot offset. Offset equal to the capacity is
// the one-past-end position and yields nil; anything beyond panics.
func (r *RawMemory[T]) Slot(offset int) *T {
	if offset < 0 || offset > len(r.slots) {
		panic(moerr.NewOutOfRangeNoCtx("slot", "offset %d, capacity %d", offset, len(r.slots)))
	}
	if offset == len(r.slots) {
		return nil
	}
	return &r.slots[offset]
}

// ConstructAt runs construct on the raw slot at offset. The slot becomes
// live only if construct succeeds.
func (r *RawMemory[T]) ConstructAt(offset int, construct func(*T) error) error {
	p := r.Slot(offset)
	if p == nil {
		panic(moerr.NewOutOfRangeNoCtx("slot", "construct at end %d", offset))
	}
	if r.checker != nil {
		r.checker.beforeConstruct(offset)
	}
	if err := construct(p); err != nil {
		return err
	}
	if r.checker != nil {
		r.checker.constructed(offset)
	}
	return nil
}

// DestroyAt runs destroy on the live slot at offset, turning it raw.
func (r *RawMemory[T]) DestroyAt(offset int, destroy func(*T)) {
	p := r.Slot(offset)
	if p == nil {
		panic(moerr.NewOutOfRangeNoCtx("slot", "destroy at end %d", offset))
	}
	if r.checker != nil {
		r.checker.beforeDestroy(offset)
	}
	destroy(p)
	if r.checker != nil {
		r.checker.destroyed(offset)
	}
}

// Checked reports whether slot liveness is being tracked for r.
func (r *RawMemory[T]) Checked() bool {
	return r.checker != nil
}

// LiveSlots returns the number of live slots, or -1 when r is not checked.
func (r *RawMemory[T]) LiveSlots() int {
	if r.checker == nil {
		return -1
	}
	return int(r.checker.live.GetCardinality())
}

// IsLive reports whether offset holds a live element. Always false when r is
// not checked.
func (r *RawMemory[T]) IsLive(offset int) bool {
	return r.checker != nil && r.checker.live.Contains(uint32(offset))
}

var pointerFreeCache sync.Map // reflect.Type -> bool

func pointerFree[T any]() bool {
	typ := reflect.TypeFor[T]()
	if v, ok := pointerFreeCache.Load(typ); ok {
		return v.(bool)
	}
	ret := typePointerFree(typ)
	pointerFreeCache.Store(typ, ret)
	return ret
}

func typePointerFree(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return typ.Len() == 0 || typePointerFree(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if !typePointerFree(typ.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
