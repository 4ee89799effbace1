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

package main

import (
	"context"
	"encoding/binary"
	"errors"
	"iter"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/matrixorigin/seqvec/pkg/common/moerr"
	"github.com/matrixorigin/seqvec/pkg/config"
	"github.com/matrixorigin/seqvec/pkg/container/vector"
	"github.com/matrixorigin/seqvec/pkg/logutil"
)

var errInjected = moerr.NewInternalErrorNoCtx("injected fault")

type op int

const (
	opPushBack op = iota
	opEmplaceBack
	opPopBack
	opInsert
	opErase
	opResize
	opReserve
	opCopyFrom
	opClone
	opSwap
	opMove
	opClear
	opReseed
	numOps
)

var opNames = [numOps]string{
	"push_back", "emplace_back", "pop_back", "insert", "erase", "resize",
	"reserve", "copy_from", "clone", "swap", "move", "clear", "reseed",
}

func (o op) String() string {
	return opNames[o]
}

type report struct {
	rounds      atomic.Int64
	ops         atomic.Int64
	injected    atomic.Int64
	divergences atomic.Int64
	elapsed     time.Duration
}

func (r *report) log() {
	logutil.Info("stress finished",
		zap.Int64("rounds", r.rounds.Load()),
		zap.Int64("ops", r.ops.Load()),
		zap.Int64("injected", r.injected.Load()),
		zap.Int64("divergences", r.divergences.Load()),
		zap.Duration("elapsed", r.elapsed),
	)
}

// run executes cfg.Rounds independent rounds on a pool of cfg.Workers
// goroutines. A panicking round counts as a divergence.
func run(ctx context.Context, cfg config.StressConfig, m *metrics) (*report, error) {
	rep := &report{}
	start := time.Now()

	pool, err := ants.NewPool(max(1, cfg.Workers), ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = pool.ReleaseTimeout(time.Second * 5)
	}()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ctx = logutil.WithFields(ctx, zap.Int64("seed", seed))
	logutil.InfoContext(ctx, "stress started",
		zap.Int("workers", cfg.Workers),
		zap.Int("rounds", cfg.Rounds),
		zap.Int("ops-per-round", cfg.OpsPerRound),
	)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Rounds; i++ {
		if ctx.Err() != nil {
			break
		}
		r := newRound(ctx, i, seed+int64(i), cfg, m, rep)
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			r.guardedRun()
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	rep.elapsed = time.Since(start)
	return rep, nil
}

// round owns two vectors and their models. Both vectors share fault
// injecting traits that also count live elements.
type round struct {
	ctx           context.Context
	rng           *rand.Rand
	ops           int
	faultPermille int
	armed         bool
	live          int
	injected      int

	traits     *vector.FuncTraits[int64]
	vec, other *vector.Vector[int64]
	model      []int64
	otherModel []int64

	m   *metrics
	rep *report
}

func newRound(ctx context.Context, id int, seed int64, cfg config.StressConfig, m *metrics, rep *report) *round {
	r := &round{
		ctx:           logutil.WithFields(ctx, zap.Int("round", id)),
		rng:           rand.New(rand.NewSource(seed)),
		ops:           cfg.OpsPerRound,
		faultPermille: cfg.FaultRatePermille,
		m:             m,
		rep:           rep,
	}
	r.traits = r.newTraits(r.rng.Intn(2) == 0)
	r.vec = vector.New(vector.WithTraits[int64](r.traits))
	r.other = vector.New(vector.WithTraits[int64](r.traits))
	return r
}

func (r *round) fault() error {
	if r.armed && r.rng.Intn(1000) < r.faultPermille {
		r.injected++
		return errInjected
	}
	return nil
}

// newTraits fails default and copy construction at random. Moves never fail
// but only promise so when nothrowMove is set, which decides whether growth
// relocates by move or by copy.
func (r *round) newTraits(nothrowMove bool) *vector.FuncTraits[int64] {
	return &vector.FuncTraits[int64]{
		NewFunc: func(dst *int64) error {
			if err := r.fault(); err != nil {
				return err
			}
			*dst = 0
			r.live++
			return nil
		},
		CopyFunc: func(dst, src *int64) error {
			if err := r.fault(); err != nil {
				return err
			}
			*dst = *src
			r.live++
			return nil
		},
		MoveFunc: func(dst, src *int64) error {
			*dst = *src
			*src = 0
			r.live++
			return nil
		},
		MoveAssignFunc: func(dst, src *int64) error {
			*dst = *src
			return nil
		},
		DestroyFunc: func(p *int64) {
			*p = 0
			r.live--
		},
		NoexceptMove: nothrowMove,
	}
}

// guardedRun runs the round and counts a panic as a divergence.
func (r *round) guardedRun() {
	defer func() {
		if v := recover(); v != nil {
			logutil.ErrorContext(r.ctx, "round panicked", zap.Error(moerr.ConvertPanicError(r.ctx, v)))
			r.rep.divergences.Add(1)
			r.m.divergences.Inc()
		}
	}()
	r.run()
}

func (r *round) run() {
	defer r.finish()
	r.reseed()
	r.armed = true
	for i := 0; i < r.ops; i++ {
		if i%1024 == 0 && r.ctx.Err() != nil {
			return
		}
		o := r.pick()
		r.m.ops.WithLabelValues(o.String()).Inc()
		r.rep.ops.Add(1)
		if !r.step(o) {
			r.rep.divergences.Add(1)
			r.m.divergences.Inc()
			return
		}
	}
}

func (r *round) finish() {
	r.armed = false
	r.vec.Free()
	r.other.Free()
	if r.live != 0 {
		logutil.ErrorContext(r.ctx, "elements leaked", zap.Int("live", r.live))
		r.rep.divergences.Add(1)
		r.m.divergences.Inc()
	}
	r.rep.rounds.Add(1)
	r.rep.injected.Add(int64(r.injected))
	r.m.rounds.Inc()
	r.m.faults.Add(float64(r.injected))
	logutil.DebugContext(r.ctx, "round finished",
		zap.Int("injected", r.injected),
		zap.Bool("nothrow-move", r.traits.NoexceptMove),
	)
}

func (r *round) pick() op {
	o := op(r.rng.Intn(int(numOps)))
	// clearing and reseeding too often keeps the vectors tiny
	if (o == opClear || o == opReseed) && r.rng.Intn(8) != 0 {
		return opPushBack
	}
	return o
}

func (r *round) value() int64 {
	return r.rng.Int63n(1 << 20)
}

// reseed refills other with fault injection off.
func (r *round) reseed() {
	armed := r.armed
	r.armed = false
	defer func() { r.armed = armed }()
	r.other.Clear()
	r.otherModel = r.otherModel[:0]
	for n := r.rng.Intn(32); n > 0; n-- {
		v := r.value()
		if err := r.other.PushBack(v); err != nil {
			panic(err)
		}
		r.otherModel = append(r.otherModel, v)
	}
}

// step applies o to the vector and the model and reports whether they still
// agree. An injected failure must leave the vector as it was, except after
// CopyFrom into existing elements, which only keeps the size.
func (r *round) step(o op) bool {
	var err error
	next := r.model
	weak := false

	switch o {
	case opPushBack:
		v := r.value()
		err = r.vec.PushBack(v)
		next = append(slices.Clone(r.model), v)

	case opEmplaceBack:
		v := r.value()
		var p *int64
		p, err = r.vec.EmplaceBack(func(dst *int64) error {
			if err := r.fault(); err != nil {
				return err
			}
			*dst = v
			r.live++
			return nil
		})
		if err == nil && *p != v {
			return r.diverged(o, "emplaced value", 0, 0)
		}
		next = append(slices.Clone(r.model), v)

	case opPopBack:
		err = r.vec.PopBack()
		if len(r.model) == 0 {
			if !moerr.IsMoErrCode(err, moerr.ErrEmptyVector) {
				return r.diverged(o, "pop on empty", 0, 0)
			}
			return r.check(o)
		}
		next = r.model[:len(r.model)-1]

	case opInsert:
		pos := r.rng.Intn(len(r.model) + 1)
		v := r.value()
		var at int
		at, err = r.vec.Insert(pos, v)
		if err == nil && at != pos {
			return r.diverged(o, "insert position", uint64(pos), uint64(at))
		}
		next = slices.Insert(slices.Clone(r.model), pos, v)

	case opErase:
		if len(r.model) == 0 {
			return r.check(o)
		}
		pos := r.rng.Intn(len(r.model))
		_, err = r.vec.Erase(pos)
		next = slices.Delete(slices.Clone(r.model), pos, pos+1)

	case opResize:
		n := r.rng.Intn(len(r.model) + 16)
		err = r.vec.Resize(n)
		if n <= len(r.model) {
			next = r.model[:n]
		} else {
			next = append(slices.Clone(r.model), make([]int64, n-len(r.model))...)
		}

	case opReserve:
		n := r.rng.Intn(2*r.vec.Capacity() + 8)
		before := r.vec.Capacity()
		err = r.vec.Reserve(n)
		if err == nil && r.vec.Capacity() < max(before, n) {
			return r.diverged(o, "capacity", uint64(n), uint64(r.vec.Capacity()))
		}

	case opCopyFrom:
		weak = r.vec.Capacity() >= r.other.Size()
		err = r.vec.CopyFrom(r.other)
		next = slices.Clone(r.otherModel)

	case opClone:
		var c *vector.Vector[int64]
		c, err = r.vec.Clone()
		if err == nil {
			want, got := fingerprint(slices.Values(r.model)), fingerprint(c.Values())
			c.Free()
			if want != got {
				return r.diverged(o, "clone contents", want, got)
			}
		}

	case opSwap:
		r.vec.Swap(r.other)
		r.model, r.otherModel = r.otherModel, r.model
		return r.check(o)

	case opMove:
		moved := vector.Move(r.vec)
		if r.vec.Size() != 0 || r.vec.Capacity() != 0 {
			return r.diverged(o, "moved-from size", 0, uint64(r.vec.Size()))
		}
		r.vec.MoveFrom(moved)
		return r.check(o)

	case opClear:
		r.vec.Clear()
		next = r.model[:0]

	case opReseed:
		r.reseed()
		return r.check(o)
	}

	switch {
	case err == nil:
		r.model = next
	case errors.Is(err, errInjected):
		if weak {
			if r.vec.Size() != len(r.model) {
				return r.diverged(o, "size after failed copy", uint64(len(r.model)), uint64(r.vec.Size()))
			}
			r.model = slices.AppendSeq(r.model[:0], r.vec.Values())
		}
	default:
		logutil.ErrorContext(r.ctx, "unexpected error", zap.Stringer("op", o), zap.Error(err))
		return false
	}
	return r.check(o)
}

func (r *round) check(o op) bool {
	if r.vec.Size() != len(r.model) {
		return r.diverged(o, "size", uint64(len(r.model)), uint64(r.vec.Size()))
	}
	if r.vec.Capacity() < r.vec.Size() {
		return r.diverged(o, "capacity below size", uint64(r.vec.Size()), uint64(r.vec.Capacity()))
	}
	if want, got := fingerprint(slices.Values(r.model)), fingerprint(r.vec.Values()); want != got {
		return r.diverged(o, "contents", want, got)
	}
	if want := r.vec.Size() + r.other.Size(); r.live != want {
		return r.diverged(o, "live elements", uint64(want), uint64(r.live))
	}
	return true
}

func (r *round) diverged(o op, what string, want, got uint64) bool {
	logutil.ErrorContext(r.ctx, "vector diverged from model",
		zap.Stringer("op", o),
		zap.String("what", what),
		zap.Uint64("want", want),
		zap.Uint64("got", got),
		zap.Bool("nothrow-move", r.traits.NoexceptMove),
	)
	return false
}

// fingerprint hashes values as little endian int64s.
func fingerprint(values iter.Seq[int64]) uint64 {
	h := xxh3.New()
	var buf [8]byte
	for v := range values {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
