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
	"iter"

	"github.com/matrixorigin/seqvec/pkg/common/moerr"
)

// All yields the index and address of each element from front to back.
func (v *Vector[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := 0; i < v.size; i++ {
			if !yield(i, v.data.Slot(i)) {
				return
			}
		}
	}
}

// Backward yields the index and address of each element from back to front.
func (v *Vector[T]) Backward() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := v.size - 1; i >= 0; i-- {
			if i >= v.size {
				continue
			}
			if !yield(i, v.data.Slot(i)) {
				return
			}
		}
	}
}

// Values yields a shallow copy of each element from front to back.
func (v *Vector[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < v.size; i++ {
			if !yield(*v.data.Slot(i)) {
				return
			}
		}
	}
}

// Iterator is a position in a Vector. Positions run from Begin() to End(),
// the one-past-last sentinel. An Iterator is invalidated by any operation
// that changes the capacity of its vector, and Emplace and Erase invalidate
// positions at or after the one they touch.
type Iterator[T any] struct {
	v   *Vector[T]
	pos int
}

func (v *Vector[T]) Begin() Iterator[T] {
	return Iterator[T]{v: v}
}

func (v *Vector[T]) End() Iterator[T] {
	return Iterator[T]{v: v, pos: v.size}
}

// IteratorAt returns the position of index pos, which may equal Size().
func (v *Vector[T]) IteratorAt(pos int) Iterator[T] {
	if pos < 0 || pos > v.size {
		panic(moerr.NewOutOfRangeNoCtx("position", "%d not in [0, %d]", pos, v.size))
	}
	return Iterator[T]{v: v, pos: pos}
}

func (it Iterator[T]) Next() Iterator[T] {
	return Iterator[T]{v: it.v, pos: it.pos + 1}
}

func (it Iterator[T]) Prev() Iterator[T] {
	return Iterator[T]{v: it.v, pos: it.pos - 1}
}

func (it Iterator[T]) Index() int {
	return it.pos
}

// Value returns the element at it. Dereferencing End() panics.
func (it Iterator[T]) Value() *T {
	return it.v.At(it.pos)
}

func (it Iterator[T]) Equal(other Iterator[T]) bool {
	return it.v == other.v && it.pos == other.pos
}
