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

package vector

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matrixorigin/seqvec/pkg/common/malloc"
	"github.com/matrixorigin/seqvec/pkg/common/moerr"
	"github.com/matrixorigin/seqvec/pkg/container/rawmem"
	"github.com/matrixorigin/seqvec/pkg/logutil"
)

// Vector is a growable sequence of T stored contiguously in a
// rawmem.RawMemory. Slots [0, Size()) are live, slots [Size(), Capacity())
// are raw.
//
// Growth and Reserve give the strong guarantee: when they fail the vector
// is exactly as before. Elements are relocated by Move when the traits
// promise a Move that never fails or when T cannot be copied, and by Copy
// otherwise. A Vector is not safe for concurrent use.
type Vector[T any] struct {
	data      rawmem.RawMemory[T]
	size      int
	traits    Traits[T]
	allocator malloc.Allocator
}

// New returns an empty vector. No storage is acquired.
func New[T any](opts ...Option[T]) *Vector[T] {
	v := &Vector[T]{}
	for _, opt := range opts {
		opt(v)
	}
	if v.traits == nil {
		v.traits = ValueTraits[T]{}
	}
	if v.allocator == nil {
		v.allocator = malloc.GetDefault()
	}
	return v
}

// NewWithSize returns a vector holding n default constructed elements with
// capacity exactly n.
func NewWithSize[T any](n int, opts ...Option[T]) (*Vector[T], error) {
	v := New(opts...)
	var data rawmem.RawMemory[T]
	if err := data.Acquire(v.allocator, n); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := data.ConstructAt(i, v.traits.Construct); err != nil {
			v.destroyRange(&data, 0, i)
			data.Release()
			return nil, err
		}
	}
	v.data.Swap(&data)
	v.size = n
	return v, nil
}

// Clone returns an independent copy holding copies of every element, with
// capacity equal to Size().
func (v *Vector[T]) Clone() (*Vector[T], error) {
	w := &Vector[T]{
		traits:    v.traits,
		allocator: v.allocator,
	}
	if err := w.copyOf(v); err != nil {
		return nil, err
	}
	return w, nil
}

// Move returns a vector that takes over the storage and size of other.
// other is left empty with capacity 0 and stays usable.
func Move[T any](other *Vector[T]) *Vector[T] {
	v := &Vector[T]{
		traits:    other.traits,
		allocator: other.allocator,
	}
	v.data.MoveFrom(&other.data)
	v.size, other.size = other.size, 0
	return v
}

// MoveFrom destroys the elements of v, releases its storage, then takes over
// the storage, size and traits of other. other is left empty.
func (v *Vector[T]) MoveFrom(other *Vector[T]) {
	if v == other {
		return
	}
	v.destroyRange(&v.data, 0, v.size)
	v.size = 0
	v.data.MoveFrom(&other.data)
	v.size, other.size = other.size, 0
	v.traits = other.traits
	v.allocator = other.allocator
}

// CopyFrom makes v hold copies of the elements of rhs.
//
// When rhs does not fit in the capacity of v, a full copy is built first and
// swapped in, so a failure leaves v untouched. Otherwise the overlapping
// prefix is copy assigned in place and the rest is destroyed or copy
// constructed; a failure there leaves Size() unchanged but the prefix may
// already hold values from rhs.
func (v *Vector[T]) CopyFrom(rhs *Vector[T]) error {
	if v == rhs {
		return nil
	}
	caps := v.traits.Capabilities()
	if !caps.Has(Copyable) {
		return moerr.NewNotSupportedNoCtx("copy of vector element")
	}

	if v.data.Capacity() < rhs.size {
		w := &Vector[T]{
			traits:    v.traits,
			allocator: v.allocator,
		}
		if err := w.copyOf(rhs); err != nil {
			return err
		}
		v.Swap(w)
		w.Free()
		return nil
	}

	if !caps.Has(CopyAssignable) {
		return moerr.NewNotSupportedNoCtx("copy assignment of vector element")
	}
	if v.size >= rhs.size {
		for i := 0; i < rhs.size; i++ {
			if err := v.traits.CopyAssign(v.data.Slot(i), rhs.data.Slot(i)); err != nil {
				return err
			}
		}
		v.destroyRange(&v.data, rhs.size, v.size)
		v.size = rhs.size
		return nil
	}

	for i := 0; i < v.size; i++ {
		if err := v.traits.CopyAssign(v.data.Slot(i), rhs.data.Slot(i)); err != nil {
			return err
		}
	}
	if err := v.relocate(&rhs.data, v.size, &v.data, v.size, rhs.size-v.size, false); err != nil {
		return err
	}
	v.size = rhs.size
	return nil
}

// Swap exchanges the contents of v and other, including their traits and
// allocators.
func (v *Vector[T]) Swap(other *Vector[T]) {
	if v == other {
		return
	}
	v.data.Swap(&other.data)
	v.size, other.size = other.size, v.size
	v.traits, other.traits = other.traits, v.traits
	v.allocator, other.allocator = other.allocator, v.allocator
}

// Reserve makes Capacity() at least n. It never shrinks.
func (v *Vector[T]) Reserve(n int) error {
	if n <= v.data.Capacity() {
		return nil
	}
	var data rawmem.RawMemory[T]
	if err := data.Acquire(v.allocator, n); err != nil {
		return err
	}
	if err := v.relocate(&v.data, 0, &data, 0, v.size, v.relocateByMove()); err != nil {
		data.Release()
		return err
	}
	v.adopt(&data)
	return nil
}

// Resize destroys trailing elements to shrink, or reserves and default
// constructs new trailing elements to grow. If a construction fails the
// elements added so far are destroyed and Size() is unchanged; any capacity
// already reserved is kept.
func (v *Vector[T]) Resize(n int) error {
	if n < 0 {
		return moerr.NewInvalidArgNoCtx("size", n)
	}
	if n <= v.size {
		v.destroyRange(&v.data, n, v.size)
		v.size = n
		return nil
	}
	if err := v.Reserve(n); err != nil {
		return err
	}
	for i := v.size; i < n; i++ {
		if err := v.data.ConstructAt(i, v.traits.Construct); err != nil {
			v.destroyRange(&v.data, v.size, i)
			return err
		}
	}
	v.size = n
	return nil
}

// PushBack appends a copy of value. When T is not copyable value is moved in
// instead.
func (v *Vector[T]) PushBack(value T) error {
	_, err := v.EmplaceBack(v.fromValue(&value))
	return err
}

// EmplaceBack constructs a new last element with construct, or with
// Traits.Construct when construct is nil, and returns its address.
//
// On growth the new element is built in the new storage before the old
// elements are relocated, so construct may read elements of v. Any failure
// leaves v unchanged.
func (v *Vector[T]) EmplaceBack(construct func(*T) error) (*T, error) {
	if construct == nil {
		construct = v.traits.Construct
	}
	if v.size < v.data.Capacity() {
		if err := v.data.ConstructAt(v.size, construct); err != nil {
			return nil, err
		}
		v.size++
		return v.data.Slot(v.size - 1), nil
	}

	var data rawmem.RawMemory[T]
	if err := data.Acquire(v.allocator, v.nextCapacity()); err != nil {
		return nil, err
	}
	if err := data.ConstructAt(v.size, construct); err != nil {
		data.Release()
		return nil, err
	}
	if err := v.relocate(&v.data, 0, &data, 0, v.size, v.relocateByMove()); err != nil {
		data.DestroyAt(v.size, v.traits.Destroy)
		data.Release()
		return nil, err
	}
	v.adopt(&data)
	v.size++
	return v.data.Slot(v.size - 1), nil
}

// PopBack destroys the last element.
func (v *Vector[T]) PopBack() error {
	if v.size == 0 {
		return moerr.NewEmptyVectorNoCtx()
	}
	v.size--
	v.data.DestroyAt(v.size, v.traits.Destroy)
	return nil
}

// Insert places a copy of value before position pos and returns pos. When T
// is not copyable value is moved in instead.
func (v *Vector[T]) Insert(pos int, value T) (int, error) {
	return v.Emplace(pos, v.fromValue(&value))
}

// Emplace constructs a new element before position pos, 0 <= pos <= Size(),
// and returns pos.
//
// When the vector is full the new element and both halves are built in new
// storage and any failure leaves v unchanged. Otherwise the new value is
// built in a temporary, the tail is shifted one slot right by assignment and
// the temporary is assigned into pos. A failure while shifting leaves the
// sequence partially shifted with one element duplicated and Size() already
// advanced, so no element is lost or leaked.
func (v *Vector[T]) Emplace(pos int, construct func(*T) error) (int, error) {
	if pos < 0 || pos > v.size {
		return 0, moerr.NewOutOfRangeNoCtx("position", "%d not in [0, %d]", pos, v.size)
	}
	if construct == nil {
		construct = v.traits.Construct
	}
	if v.size == v.data.Capacity() {
		if err := v.emplaceGrow(pos, construct); err != nil {
			return 0, err
		}
		return pos, nil
	}
	if pos == v.size {
		if err := v.data.ConstructAt(pos, construct); err != nil {
			return 0, err
		}
		v.size++
		return pos, nil
	}

	assign, err := v.assigner()
	if err != nil {
		return 0, err
	}
	var tmp T
	if err := construct(&tmp); err != nil {
		return 0, err
	}
	defer v.traits.Destroy(&tmp)

	last := v.data.Slot(v.size - 1)
	if err := v.data.ConstructAt(v.size, func(p *T) error {
		return v.relocateOne(p, last, v.relocateByMove())
	}); err != nil {
		return 0, err
	}
	v.size++
	for i := v.size - 2; i > pos; i-- {
		if err := assign(v.data.Slot(i), v.data.Slot(i-1)); err != nil {
			return 0, err
		}
	}
	if err := assign(v.data.Slot(pos), &tmp); err != nil {
		return 0, err
	}
	return pos, nil
}

func (v *Vector[T]) emplaceGrow(pos int, construct func(*T) error) error {
	var data rawmem.RawMemory[T]
	if err := data.Acquire(v.allocator, v.nextCapacity()); err != nil {
		return err
	}
	if err := data.ConstructAt(pos, construct); err != nil {
		data.Release()
		return err
	}
	byMove := v.relocateByMove()
	if err := v.relocate(&v.data, 0, &data, 0, pos, byMove); err != nil {
		data.DestroyAt(pos, v.traits.Destroy)
		data.Release()
		return err
	}
	if err := v.relocate(&v.data, pos, &data, pos+1, v.size-pos, byMove); err != nil {
		v.destroyRange(&data, 0, pos+1)
		data.Release()
		return err
	}
	v.adopt(&data)
	v.size++
	return nil
}

// Erase removes the element at pos, 0 <= pos < Size(), shifting the tail
// left by assignment, and returns pos, which now names the element that
// followed the erased one. A failed assignment leaves the sequence partially
// shifted and Size() unchanged.
func (v *Vector[T]) Erase(pos int) (int, error) {
	if pos < 0 || pos >= v.size {
		return 0, moerr.NewOutOfRangeNoCtx("position", "%d not in [0, %d)", pos, v.size)
	}
	if pos+1 < v.size {
		if err := v.shiftLeft(pos); err != nil {
			return 0, err
		}
	}
	v.size--
	v.data.DestroyAt(v.size, v.traits.Destroy)
	return pos, nil
}

func (v *Vector[T]) shiftLeft(pos int) error {
	assign, err := v.assigner()
	if err != nil {
		return err
	}
	for i := pos + 1; i < v.size; i++ {
		if err := assign(v.data.Slot(i-1), v.data.Slot(i)); err != nil {
			return err
		}
	}
	return nil
}

// Clear destroys every element. Capacity is kept.
func (v *Vector[T]) Clear() {
	v.destroyRange(&v.data, 0, v.size)
	v.size = 0
}

// Free destroys every element and releases the storage. v stays usable.
func (v *Vector[T]) Free() {
	v.Clear()
	v.data.Release()
}

// Back returns the last element.
func (v *Vector[T]) Back() (*T, error) {
	if v.size == 0 {
		return nil, moerr.NewEmptyVectorNoCtx()
	}
	return v.data.Slot(v.size - 1), nil
}

// Get returns the element at i.
func (v *Vector[T]) Get(i int) (*T, error) {
	if i < 0 || i >= v.size {
		return nil, moerr.NewOutOfRangeNoCtx("index", "%d not in [0, %d)", i, v.size)
	}
	return v.data.Slot(i), nil
}

// At returns the element at i and panics when i is out of range.
func (v *Vector[T]) At(i int) *T {
	p, err := v.Get(i)
	if err != nil {
		panic(err)
	}
	return p
}

func (v *Vector[T]) Size() int {
	return v.size
}

func (v *Vector[T]) Capacity() int {
	return v.data.Capacity()
}

func (v *Vector[T]) Empty() bool {
	return v.size == 0
}

func (v *Vector[T]) nextCapacity() int {
	return max(1, 2*v.data.Capacity())
}

func (v *Vector[T]) relocateByMove() bool {
	caps := v.traits.Capabilities()
	return caps.Has(NothrowMove) || !caps.Has(Copyable)
}

func (v *Vector[T]) relocateOne(dst, src *T, byMove bool) error {
	if byMove {
		return v.traits.Move(dst, src)
	}
	return v.traits.Copy(dst, src)
}

// relocate constructs n elements of dst starting at dstOff from the elements
// of src starting at srcOff. On failure the ones already constructed in dst
// are destroyed.
func (v *Vector[T]) relocate(
	src *rawmem.RawMemory[T], srcOff int,
	dst *rawmem.RawMemory[T], dstOff int,
	n int, byMove bool,
) error {
	for i := 0; i < n; i++ {
		from := src.Slot(srcOff + i)
		if err := dst.ConstructAt(dstOff+i, func(p *T) error {
			return v.relocateOne(p, from, byMove)
		}); err != nil {
			v.destroyRange(dst, dstOff, dstOff+i)
			return err
		}
	}
	return nil
}

// adopt destroys the current elements, releases the current storage and
// takes over data, which must already hold the relocated elements.
func (v *Vector[T]) adopt(data *rawmem.RawMemory[T]) {
	from := v.data.Capacity()
	v.destroyRange(&v.data, 0, v.size)
	v.data.Swap(data)
	data.Release()
	if logutil.Enabled(zapcore.DebugLevel) {
		logutil.Debug("vector storage grown",
			zap.Int("from", from),
			zap.Int("to", v.data.Capacity()),
			zap.Int("size", v.size),
		)
	}
}

func (v *Vector[T]) copyOf(src *Vector[T]) error {
	if !v.traits.Capabilities().Has(Copyable) {
		return moerr.NewNotSupportedNoCtx("copy of vector element")
	}
	var data rawmem.RawMemory[T]
	if err := data.Acquire(v.allocator, src.size); err != nil {
		return err
	}
	if err := v.relocate(&src.data, 0, &data, 0, src.size, false); err != nil {
		data.Release()
		return err
	}
	v.destroyRange(&v.data, 0, v.size)
	v.data.Release()
	v.data.Swap(&data)
	v.size = src.size
	return nil
}

func (v *Vector[T]) assigner() (func(dst, src *T) error, error) {
	caps := v.traits.Capabilities()
	switch {
	case caps.Has(MoveAssignable):
		return v.traits.MoveAssign, nil
	case caps.Has(CopyAssignable):
		return v.traits.CopyAssign, nil
	}
	return nil, moerr.NewNotSupportedNoCtx("assignment of vector element")
}

func (v *Vector[T]) fromValue(value *T) func(*T) error {
	if v.traits.Capabilities().Has(Copyable) {
		return func(p *T) error {
			return v.traits.Copy(p, value)
		}
	}
	return func(p *T) error {
		return v.traits.Move(p, value)
	}
}

func (v *Vector[T]) destroyRange(data *rawmem.RawMemory[T], from, to int) {
	for i := from; i < to; i++ {
		data.DestroyAt(i, v.traits.Destroy)
	}
}
