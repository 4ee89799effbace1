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
	"github.com/matrixorigin/seqvec/pkg/common/malloc"
)

type Option[T any] func(*Vector[T])

// WithAllocator makes the vector take its storage from allocator instead of
// malloc.GetDefault().
func WithAllocator[T any](allocator malloc.Allocator) Option[T] {
	return func(v *Vector[T]) {
		v.allocator = allocator
	}
}

// WithTraits sets the element lifetime operations. The default is
// ValueTraits.
func WithTraits[T any](traits Traits[T]) Option[T] {
	return func(v *Vector[T]) {
		v.traits = traits
	}
}
