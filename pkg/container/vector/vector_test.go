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
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/seqvec/pkg/common/malloc"
	mock_malloc "github.com/matrixorigin/seqvec/pkg/common/malloc/test"
	"github.com/matrixorigin/seqvec/pkg/common/moerr"
)

func TestEmpty(t *testing.T) {
	v := New[int]()
	require.Equal(t, 0, v.Size())
	require.Equal(t, 0, v.Capacity())
	require.True(t, v.Empty())

	_, err := v.Back()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrEmptyVector))
	err = v.PopBack()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrEmptyVector))
	_, err = v.Get(0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	require.Panics(t, func() { v.At(0) })
	v.Free()
}

func TestNewWithSize(t *testing.T) {
	v, err := NewWithSize[int](3)
	require.NoError(t, err)
	require.Equal(t, 3, v.Size())
	require.Equal(t, 3, v.Capacity())
	require.Equal(t, []int{0, 0, 0}, contents(v))
	v.Free()

	seven := &FuncTraits[int]{
		NewFunc: func(dst *int) error {
			*dst = 7
			return nil
		},
	}
	v, err = NewWithSize(2, WithTraits[int](seven))
	require.NoError(t, err)
	require.Equal(t, []int{7, 7}, contents(v))
	v.Free()

	v, err = NewWithSize[int](0)
	require.NoError(t, err)
	require.Equal(t, 0, v.Capacity())

	_, err = NewWithSize[int](-1)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
}

func TestNewWithSizeFailure(t *testing.T) {
	f := &faultyInts{countdown: 3}
	v, err := NewWithSize(5, WithTraits[int](f.traits()))
	require.ErrorIs(t, err, errInjected)
	require.Nil(t, v)
	require.Equal(t, 0, f.live)
}

func TestPushBackGrowth(t *testing.T) {
	v := New[int]()
	var capacities []int
	for i := 0; i < 9; i++ {
		require.NoError(t, v.PushBack(i))
		capacities = append(capacities, v.Capacity())
	}
	require.Equal(t, []int{1, 2, 4, 4, 8, 8, 8, 8, 16}, capacities)
	require.Equal(t, 9, v.Size())
	for i := 0; i < 9; i++ {
		require.Equal(t, i, *v.At(i))
	}
	back, err := v.Back()
	require.NoError(t, err)
	require.Equal(t, 8, *back)
	v.Free()
	require.Equal(t, 0, v.Capacity())
}

func TestPushPopCount(t *testing.T) {
	v := New[string]()
	pushes, pops := 0, 0
	maxCap := 0
	for i := 0; i < 200; i++ {
		if i%3 == 2 {
			require.NoError(t, v.PopBack())
			pops++
		} else {
			require.NoError(t, v.PushBack("x"))
			pushes++
		}
		require.GreaterOrEqual(t, v.Capacity(), maxCap)
		maxCap = v.Capacity()
	}
	require.Equal(t, pushes-pops, v.Size())
}

func TestPushBackStrongGuarantee(t *testing.T) {
	f := &faultyInts{}
	v := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(v, 1, 2, 3, 4))
	require.Equal(t, 4, v.Capacity())
	require.Equal(t, 4, f.live)

	// the new element is copied first, then the second relocation copy fails
	f.countdown = 3
	err := v.PushBack(5)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, 4, v.Size())
	require.Equal(t, 4, v.Capacity())
	require.Equal(t, []int{1, 2, 3, 4}, contents(v))
	require.Equal(t, 4, f.live)

	// the new element itself fails
	f.countdown = 1
	err = v.PushBack(5)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, []int{1, 2, 3, 4}, contents(v))
	require.Equal(t, 4, f.live)

	require.NoError(t, v.PushBack(5))
	require.Equal(t, []int{1, 2, 3, 4, 5}, contents(v))
	require.Equal(t, 8, v.Capacity())
	v.Free()
	require.Equal(t, 0, f.live)
}

func TestPushBackRelocatesByMove(t *testing.T) {
	f := &faultyInts{nothrowMove: true}
	v := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(v, 1, 2, 3, 4))

	// only the copy of the new element ticks; moves never do
	f.countdown = 3
	require.NoError(t, v.PushBack(5))
	require.Equal(t, 2, f.countdown)
	require.Equal(t, []int{1, 2, 3, 4, 5}, contents(v))
	require.Equal(t, 5, f.live)
	v.Free()
	require.Equal(t, 0, f.live)
}

func TestMoveOnlyRelocation(t *testing.T) {
	f := &faultyInts{moveFails: true}
	tr := f.traits()
	tr.CopyFunc = nil
	require.False(t, tr.Capabilities().Has(NothrowMove))
	require.False(t, tr.Capabilities().Has(Copyable))

	v := New(WithTraits[int](tr))
	require.NoError(t, fill(v, 1, 2, 3, 4))
	require.Equal(t, 4, v.Capacity())

	// a move that may fail is still the only way to relocate
	f.countdown = 10
	require.NoError(t, v.PushBack(5))
	require.Equal(t, 5, f.countdown)
	require.Equal(t, []int{1, 2, 3, 4, 5}, contents(v))
	require.Equal(t, 8, v.Capacity())
	require.Equal(t, 5, f.live)

	f.countdown = 0
	require.NoError(t, fill(v, 6, 7, 8))
	require.Equal(t, 8, v.Size())
	require.Equal(t, 8, v.Capacity())

	// the third relocation fails; elements already moved out keep the
	// moved-from state
	f.countdown = 4
	err := v.PushBack(9)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, 8, v.Size())
	require.Equal(t, 8, v.Capacity())
	require.Equal(t, 8, f.live)
	require.Equal(t, []int{3, 4, 5, 6, 7, 8}, contents(v)[2:])

	// growing insert: failure relocating the head
	f.countdown = 2
	_, err = v.Insert(2, 9)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, 8, v.Size())
	require.Equal(t, 8, v.Capacity())
	require.Equal(t, 8, f.live)

	// growing insert: failure relocating the tail
	f.countdown = 5
	_, err = v.Insert(2, 9)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, 8, v.Size())
	require.Equal(t, 8, v.Capacity())
	require.Equal(t, 8, f.live)

	v.Free()
	require.Equal(t, 0, f.live)
}

func TestEmplaceBack(t *testing.T) {
	v := New[int]()
	require.NoError(t, fill(v, 1, 2))
	require.Equal(t, 2, v.Capacity())

	// construct may read the vector while it grows
	p, err := v.EmplaceBack(func(dst *int) error {
		*dst = *v.At(0) + *v.At(1)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, *p)
	require.Equal(t, []int{1, 2, 3}, contents(v))

	p, err = v.EmplaceBack(nil)
	require.NoError(t, err)
	require.Equal(t, 0, *p)

	_, err = v.EmplaceBack(func(*int) error { return errInjected })
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, []int{1, 2, 3, 0}, contents(v))
}

func TestInsertErase(t *testing.T) {
	v := New[int]()
	require.NoError(t, fill(v, 0, 1, 2, 3, 4))

	pos, err := v.Erase(2)
	require.NoError(t, err)
	require.Equal(t, 2, pos)
	require.Equal(t, []int{0, 1, 3, 4}, contents(v))
	require.Equal(t, 3, *v.At(pos))

	pos, err = v.Insert(2, 99)
	require.NoError(t, err)
	require.Equal(t, 2, pos)
	require.Equal(t, []int{0, 1, 99, 3, 4}, contents(v))

	_, err = v.Insert(0, -1)
	require.NoError(t, err)
	_, err = v.Insert(v.Size(), 100)
	require.NoError(t, err)
	require.Equal(t, []int{-1, 0, 1, 99, 3, 4, 100}, contents(v))

	_, err = v.Erase(v.Size() - 1)
	require.NoError(t, err)
	_, err = v.Erase(0)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 99, 3, 4}, contents(v))

	_, err = v.Insert(-1, 0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	_, err = v.Insert(v.Size()+1, 0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	_, err = v.Erase(v.Size())
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	require.Equal(t, 5, v.Size())
}

func TestInsertEraseInverse(t *testing.T) {
	original := []int{5, 6, 7, 8, 9, 10}
	for p := 0; p <= len(original); p++ {
		for _, reserve := range []int{0, 16} {
			v := New[int]()
			require.NoError(t, v.Reserve(reserve))
			require.NoError(t, fill(v, original...))
			_, err := v.Insert(p, 42)
			require.NoError(t, err)
			require.Equal(t, 42, *v.At(p))
			_, err = v.Erase(p)
			require.NoError(t, err)
			require.Equal(t, original, contents(v))
			v.Free()
		}
	}
}

func TestInsertIntoEmpty(t *testing.T) {
	v := New[int]()
	_, err := v.Insert(0, 1)
	require.NoError(t, err)
	require.NoError(t, v.Reserve(4))
	v.Clear()
	_, err = v.Insert(0, 2)
	require.NoError(t, err)
	require.Equal(t, []int{2}, contents(v))
}

func TestEmplaceGrowStrongGuarantee(t *testing.T) {
	f := &faultyInts{}
	v := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(v, 1, 2, 3, 4))

	// new element, first half, then the third copy of the second half fails
	f.countdown = 5
	_, err := v.Insert(1, 9)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, []int{1, 2, 3, 4}, contents(v))
	require.Equal(t, 4, v.Capacity())
	require.Equal(t, 4, f.live)

	f.countdown = 2
	_, err = v.Insert(4, 9)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, []int{1, 2, 3, 4}, contents(v))
	require.Equal(t, 4, f.live)

	_, err = v.Insert(1, 9)
	require.NoError(t, err)
	require.Equal(t, []int{1, 9, 2, 3, 4}, contents(v))
	v.Free()
	require.Equal(t, 0, f.live)
}

func TestEmplaceInPlaceFailure(t *testing.T) {
	f := &faultyInts{nothrowMove: true}
	traits := f.traits()
	calls := 0
	traits.MoveAssignFunc = func(dst, src *int) error {
		calls++
		if calls == 2 {
			return errInjected
		}
		*dst = *src
		return nil
	}
	v := New(WithTraits[int](traits))
	require.NoError(t, v.Reserve(8))
	require.NoError(t, fill(v, 1, 2, 3, 4))

	// the tail is partially shifted, nothing is lost or leaked
	_, err := v.Insert(0, 9)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, []int{1, 2, 3, 3, 4}, contents(v))
	require.Equal(t, 5, f.live)
	v.Free()
	require.Equal(t, 0, f.live)

	// a failing temporary leaves the vector untouched
	v = New(WithTraits[int](f.traits()))
	require.NoError(t, v.Reserve(8))
	require.NoError(t, fill(v, 1, 2))
	f.countdown = 1
	_, err = v.Insert(0, 9)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, []int{1, 2}, contents(v))
	require.Equal(t, 2, f.live)
}

func TestEraseFailure(t *testing.T) {
	f := &faultyInts{}
	traits := f.traits()
	traits.MoveAssignFunc = func(dst, src *int) error {
		return errInjected
	}
	v := New(WithTraits[int](traits))
	require.NoError(t, fill(v, 1, 2, 3))
	_, err := v.Erase(0)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, []int{1, 2, 3}, contents(v))

	// the last element needs no assignment
	_, err = v.Erase(2)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, contents(v))
	require.Equal(t, 2, f.live)
}

func TestResize(t *testing.T) {
	v := New[int]()
	require.NoError(t, fill(v, 1, 2, 3))
	require.NoError(t, v.Resize(6))
	require.Equal(t, []int{1, 2, 3, 0, 0, 0}, contents(v))
	require.Equal(t, 6, v.Capacity())

	require.NoError(t, v.Resize(2))
	require.Equal(t, []int{1, 2}, contents(v))
	require.Equal(t, 6, v.Capacity())

	require.NoError(t, v.Resize(2))
	require.NoError(t, v.Resize(0))
	require.True(t, v.Empty())
	require.True(t, moerr.IsMoErrCode(v.Resize(-1), moerr.ErrInvalidArg))
}

func TestResizeFailure(t *testing.T) {
	f := &faultyInts{}
	v := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(v, 1, 2))

	// two relocation copies, one construction, then the second fails
	f.countdown = 4
	err := v.Resize(5)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, []int{1, 2}, contents(v))
	require.Equal(t, 5, v.Capacity())
	require.Equal(t, 2, f.live)
}

func TestReserve(t *testing.T) {
	v := New[int]()
	require.NoError(t, fill(v, 1, 2, 3))
	require.NoError(t, v.Reserve(10))
	require.Equal(t, 10, v.Capacity())
	require.NoError(t, v.Reserve(5))
	require.Equal(t, 10, v.Capacity())
	require.Equal(t, []int{1, 2, 3}, contents(v))

	f := &faultyInts{}
	w := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(w, 1, 2, 3))
	f.countdown = 2
	require.ErrorIs(t, w.Reserve(10), errInjected)
	require.Equal(t, 4, w.Capacity())
	require.Equal(t, []int{1, 2, 3}, contents(w))
	require.Equal(t, 3, f.live)
}

func TestClone(t *testing.T) {
	v := New[int]()
	require.NoError(t, v.Reserve(10))
	require.NoError(t, fill(v, 1, 2, 3))

	c, err := v.Clone()
	require.NoError(t, err)
	require.Equal(t, contents(v), contents(c))
	require.Equal(t, 3, c.Capacity())

	*c.At(0) = 100
	require.NoError(t, c.PushBack(4))
	require.Equal(t, []int{1, 2, 3}, contents(v))
	require.Equal(t, []int{100, 2, 3, 4}, contents(c))

	empty, err := New[int]().Clone()
	require.NoError(t, err)
	require.Equal(t, 0, empty.Capacity())
}

func TestCloneFailure(t *testing.T) {
	f := &faultyInts{}
	v := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(v, 1, 2, 3))
	f.countdown = 2
	c, err := v.Clone()
	require.ErrorIs(t, err, errInjected)
	require.Nil(t, c)
	require.Equal(t, 3, f.live)
}

func TestMove(t *testing.T) {
	v := New[int]()
	require.NoError(t, fill(v, 1, 2, 3))
	w := Move(v)
	require.Equal(t, 0, v.Size())
	require.Equal(t, 0, v.Capacity())
	require.Equal(t, []int{1, 2, 3}, contents(w))

	// the source stays usable
	require.NoError(t, v.PushBack(9))
	require.Equal(t, []int{9}, contents(v))

	u := New[int]()
	require.NoError(t, fill(u, 7, 8))
	u.MoveFrom(w)
	require.Equal(t, []int{1, 2, 3}, contents(u))
	require.Equal(t, 0, w.Size())

	u.MoveFrom(u)
	require.Equal(t, []int{1, 2, 3}, contents(u))
}

func TestMoveFromDestroysElements(t *testing.T) {
	f := &faultyInts{}
	v := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(v, 1, 2))
	w := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(w, 3))
	require.Equal(t, 3, f.live)
	v.MoveFrom(w)
	require.Equal(t, 1, f.live)
	require.Equal(t, []int{3}, contents(v))
}

func TestCopyFrom(t *testing.T) {
	src := New[int]()
	require.NoError(t, fill(src, 1, 2, 3))

	// capacity too small
	dst := New[int]()
	require.NoError(t, fill(dst, 7))
	require.NoError(t, dst.CopyFrom(src))
	require.Equal(t, []int{1, 2, 3}, contents(dst))
	require.Equal(t, 3, dst.Capacity())

	// shrinking in place
	dst = New[int]()
	require.NoError(t, fill(dst, 9, 9, 9, 9))
	require.NoError(t, dst.CopyFrom(src))
	require.Equal(t, []int{1, 2, 3}, contents(dst))
	require.Equal(t, 4, dst.Capacity())

	// growing in place
	dst = New[int]()
	require.NoError(t, dst.Reserve(8))
	require.NoError(t, fill(dst, 9))
	require.NoError(t, dst.CopyFrom(src))
	require.Equal(t, []int{1, 2, 3}, contents(dst))
	require.Equal(t, 8, dst.Capacity())

	*dst.At(0) = 100
	require.Equal(t, []int{1, 2, 3}, contents(src))

	require.NoError(t, dst.CopyFrom(dst))
	require.Equal(t, []int{100, 2, 3}, contents(dst))
}

func TestCopyFromFailure(t *testing.T) {
	f := &faultyInts{}
	src := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(src, 1, 2, 3))
	dst := New(WithTraits[int](f.traits()))
	require.NoError(t, fill(dst, 7))

	f.countdown = 3
	require.ErrorIs(t, dst.CopyFrom(src), errInjected)
	require.Equal(t, []int{7}, contents(dst))
	require.Equal(t, 1, dst.Capacity())
	require.Equal(t, 4, f.live)

	// growing in place keeps the size on failure
	require.NoError(t, dst.Reserve(4))
	f.countdown = 3
	require.ErrorIs(t, dst.CopyFrom(src), errInjected)
	require.Equal(t, 1, dst.Size())
	require.Equal(t, 4, f.live)
}

func TestSwap(t *testing.T) {
	v := New[int]()
	require.NoError(t, fill(v, 1, 2, 3))
	w := New[int]()
	require.NoError(t, fill(w, 4))
	v.Swap(w)
	require.Equal(t, []int{4}, contents(v))
	require.Equal(t, 1, v.Capacity())
	require.Equal(t, []int{1, 2, 3}, contents(w))
	require.Equal(t, 4, w.Capacity())
	v.Swap(v)
	require.Equal(t, []int{4}, contents(v))
}

func TestNotCopyable(t *testing.T) {
	moveOnly := &FuncTraits[int]{}
	caps := moveOnly.Capabilities()
	require.True(t, caps.Has(NothrowMove))
	require.True(t, caps.Has(MoveAssignable))
	require.False(t, caps.Has(Copyable))
	require.False(t, caps.Has(CopyAssignable))

	v := New(WithTraits[int](moveOnly))
	require.NoError(t, fill(v, 1, 2, 3))
	_, err := v.Insert(1, 5)
	require.NoError(t, err)
	_, err = v.Erase(0)
	require.NoError(t, err)
	require.Equal(t, []int{5, 2, 3}, contents(v))

	_, err = v.Clone()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
	w := New(WithTraits[int](moveOnly))
	require.True(t, moerr.IsMoErrCode(w.CopyFrom(v), moerr.ErrNotSupported))

	var dst int
	src := 1
	require.True(t, moerr.IsMoErrCode(moveOnly.Copy(&dst, &src), moerr.ErrNotSupported))
}

func TestNotAssignable(t *testing.T) {
	tr := &FuncTraits[int]{
		MoveFunc:     func(dst, src *int) error { *dst, *src = *src, 0; return nil },
		NoexceptMove: true,
	}
	require.False(t, tr.Capabilities().Has(MoveAssignable))
	require.False(t, tr.Capabilities().Has(CopyAssignable))

	v := New(WithTraits[int](tr))
	require.NoError(t, fill(v, 1, 2, 3))
	require.Equal(t, 4, v.Capacity())

	_, err := v.Erase(0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
	require.Equal(t, []int{1, 2, 3}, contents(v))

	// the last element and the end position need no assignment
	pos, err := v.Erase(2)
	require.NoError(t, err)
	require.Equal(t, 2, pos)
	require.Equal(t, []int{1, 2}, contents(v))

	_, err = v.Insert(0, 9)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
	_, err = v.Insert(2, 9)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 9}, contents(v))
	v.Free()
}

func TestFuncTraitsCapabilities(t *testing.T) {
	custom := &FuncTraits[int]{
		CopyFunc: func(dst, src *int) error { *dst = *src; return nil },
		MoveFunc: func(dst, src *int) error { *dst = *src; return nil },
	}
	caps := custom.Capabilities()
	require.False(t, caps.Has(NothrowMove))
	require.False(t, caps.Has(MoveAssignable))
	require.False(t, caps.Has(CopyAssignable))
	require.True(t, caps.Has(Copyable))

	a, b := 1, 2
	require.True(t, moerr.IsMoErrCode(custom.MoveAssign(&a, &b), moerr.ErrNotSupported))

	custom.NoexceptMove = true
	custom.MoveAssignFunc = func(dst, src *int) error { *dst = *src; return nil }
	caps = custom.Capabilities()
	require.True(t, caps.Has(NothrowMove|MoveAssignable|CopyAssignable))
	require.NoError(t, custom.CopyAssign(&a, &b))
	require.Equal(t, 2, a)

	require.Equal(t, NothrowMove|Copyable|MoveAssignable|CopyAssignable, ValueTraits[int]{}.Capabilities())
}

func TestPointerElements(t *testing.T) {
	v := New[*string]()
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, v.PushBack(&s))
	}
	_, err := v.Erase(0)
	require.NoError(t, err)
	require.Equal(t, "b", **v.At(0))
	require.Equal(t, "c", **v.At(1))
	v.Free()
}

func TestAllocatorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	allocator := mock_malloc.NewMockAllocator(ctrl)
	allocator.EXPECT().Allocate(uint64(8), malloc.NoClear).Return(make([]byte, 8), malloc.NoopDeallocator, nil)
	allocator.EXPECT().Allocate(uint64(16), malloc.NoClear).Return(nil, nil, moerr.NewOOMNoCtx())

	v := New(WithAllocator[int64](allocator))
	require.NoError(t, v.PushBack(1))
	err := v.PushBack(2)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Equal(t, 1, v.Size())
	require.Equal(t, 1, v.Capacity())
	require.Equal(t, int64(1), *v.At(0))
	v.Free()
}

func TestLimitAllocator(t *testing.T) {
	limit := malloc.NewLimitAllocator(malloc.NewGoAllocator(), 64)
	v := New(WithAllocator[int64](limit))
	for i := int64(0); i < 4; i++ {
		require.NoError(t, v.PushBack(i))
	}
	require.Equal(t, uint64(32), limit.Inuse())

	// growing to 8 needs the old 32 bytes and the new 64 at once
	err := v.PushBack(4)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Equal(t, []int64{0, 1, 2, 3}, contents(v))
	require.Equal(t, uint64(48), limit.Peak().Value)

	v.Free()
	require.Equal(t, uint64(0), limit.Inuse())
}

func TestDefaultAllocator(t *testing.T) {
	limit := malloc.NewLimitAllocator(malloc.NewGoAllocator(), 1<<20)
	prev := malloc.SetDefault(limit)
	defer malloc.SetDefault(prev)

	v := New[int32]()
	require.NoError(t, v.Reserve(10))
	require.Equal(t, uint64(40), limit.Inuse())
	v.Free()
	require.Equal(t, uint64(0), limit.Inuse())
}
