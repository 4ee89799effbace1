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
	"github.com/matrixorigin/seqvec/pkg/common/moerr"
)

// Capability describes what a Traits implementation can do. It is read once
// per operation, never per element.
type Capability uint8

const (
	// NothrowMove promises Move never fails.
	NothrowMove Capability = 1 << iota
	// Copyable means Copy is supported.
	Copyable
	// MoveAssignable means MoveAssign is supported.
	MoveAssignable
	// CopyAssignable means CopyAssign is supported.
	CopyAssignable
)

func (c Capability) Has(flag Capability) bool {
	return c&flag == flag
}

// Traits gives a Vector the lifetime operations of its element type.
//
// Construct, Copy and Move build a value in a raw slot; when they fail the
// slot must be left raw (nothing to destroy). CopyAssign and MoveAssign
// overwrite a live value. Destroy ends the life of a live value and never
// fails. Move and MoveAssign may leave src in any state Destroy accepts.
type Traits[T any] interface {
	Construct(dst *T) error
	Copy(dst, src *T) error
	Move(dst, src *T) error
	CopyAssign(dst, src *T) error
	MoveAssign(dst, src *T) error
	Destroy(p *T)
	Capabilities() Capability
}

// ValueTraits treats T as a plain Go value: the zero value is the default,
// copies are assignments and nothing ever fails. Moved-from and destroyed
// slots are zeroed so the garbage collector can reclaim what they pointed to.
type ValueTraits[T any] struct{}

var _ Traits[int] = ValueTraits[int]{}

func (ValueTraits[T]) Construct(dst *T) error {
	var zero T
	*dst = zero
	return nil
}

func (ValueTraits[T]) Copy(dst, src *T) error {
	*dst = *src
	return nil
}

func (ValueTraits[T]) Move(dst, src *T) error {
	var zero T
	*dst = *src
	*src = zero
	return nil
}

func (t ValueTraits[T]) CopyAssign(dst, src *T) error {
	return t.Copy(dst, src)
}

func (t ValueTraits[T]) MoveAssign(dst, src *T) error {
	return t.Move(dst, src)
}

func (ValueTraits[T]) Destroy(p *T) {
	var zero T
	*p = zero
}

func (ValueTraits[T]) Capabilities() Capability {
	return NothrowMove | Copyable | MoveAssignable | CopyAssignable
}

// FuncTraits builds Traits from optional functions.
//
//   - NewFunc nil: the zero value.
//   - CopyFunc nil: T is not copyable.
//   - MoveFunc nil: a plain assignment that zeroes src and never fails.
//   - CopyAssignFunc nil: copy into a temporary, then move assign it.
//   - MoveAssignFunc nil: a plain assignment when MoveFunc is nil too,
//     otherwise T is not move assignable.
//   - DestroyFunc nil: the slot is zeroed.
//
// NoexceptMove declares that a custom MoveFunc never fails.
type FuncTraits[T any] struct {
	NewFunc        func(dst *T) error
	CopyFunc       func(dst, src *T) error
	MoveFunc       func(dst, src *T) error
	CopyAssignFunc func(dst, src *T) error
	MoveAssignFunc func(dst, src *T) error
	DestroyFunc    func(p *T)
	NoexceptMove   bool
}

var _ Traits[int] = (*FuncTraits[int])(nil)

func (f *FuncTraits[T]) Construct(dst *T) error {
	if f.NewFunc == nil {
		var zero T
		*dst = zero
		return nil
	}
	return f.NewFunc(dst)
}

func (f *FuncTraits[T]) Copy(dst, src *T) error {
	if f.CopyFunc == nil {
		return moerr.NewNotSupportedNoCtx("copy of %T", *src)
	}
	return f.CopyFunc(dst, src)
}

func (f *FuncTraits[T]) Move(dst, src *T) error {
	if f.MoveFunc == nil {
		var zero T
		*dst = *src
		*src = zero
		return nil
	}
	return f.MoveFunc(dst, src)
}

func (f *FuncTraits[T]) CopyAssign(dst, src *T) error {
	if f.CopyAssignFunc != nil {
		return f.CopyAssignFunc(dst, src)
	}
	var tmp T
	if err := f.Copy(&tmp, src); err != nil {
		return err
	}
	err := f.MoveAssign(dst, &tmp)
	f.Destroy(&tmp)
	return err
}

func (f *FuncTraits[T]) MoveAssign(dst, src *T) error {
	if f.MoveAssignFunc != nil {
		return f.MoveAssignFunc(dst, src)
	}
	if f.MoveFunc != nil {
		return moerr.NewNotSupportedNoCtx("move assignment of %T", *src)
	}
	f.Destroy(dst)
	var zero T
	*dst = *src
	*src = zero
	return nil
}

func (f *FuncTraits[T]) Destroy(p *T) {
	if f.DestroyFunc == nil {
		var zero T
		*p = zero
		return
	}
	f.DestroyFunc(p)
}

func (f *FuncTraits[T]) Capabilities() Capability {
	var c Capability
	if f.MoveFunc == nil || f.NoexceptMove {
		c |= NothrowMove
	}
	if f.CopyFunc != nil {
		c |= Copyable
	}
	if f.MoveAssignFunc != nil || f.MoveFunc == nil {
		c |= MoveAssignable
	}
	if f.CopyAssignFunc != nil || (f.CopyFunc != nil && c.Has(MoveAssignable)) {
		c |= CopyAssignable
	}
	return c
}
