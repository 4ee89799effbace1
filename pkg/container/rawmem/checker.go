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

package rawmem

import (
	"runtime/debug"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/matrixorigin/seqvec/pkg/common/moerr"
	"github.com/matrixorigin/seqvec/pkg/logutil"
)

var (
	enableChecker atomic.Bool
	enableVerbose atomic.Bool
)

// EnableChecker turns slot liveness checking on or off for storage acquired
// afterwards and returns the previous setting.
func EnableChecker(enable bool) bool {
	return enableChecker.Swap(enable)
}

// EnableVerbose makes the checker record the construction stack of every
// live slot so leak reports can name the culprit.
func EnableVerbose(enable bool) bool {
	return enableVerbose.Swap(enable)
}

// RunCheckerTests runs fn with the checker enabled.
func RunCheckerTests(fn func()) {
	prev := EnableChecker(true)
	defer EnableChecker(prev)
	fn()
}

type checker struct {
	live        *roaring.Bitmap
	createStack map[uint32]string
}

func newChecker() *checker {
	if !enableChecker.Load() {
		return nil
	}
	c := &checker{
		live: roaring.New(),
	}
	if enableVerbose.Load() {
		c.createStack = make(map[uint32]string)
	}
	return c
}

func (c *checker) beforeConstruct(offset int) {
	k := uint32(offset)
	if c.live.Contains(k) {
		c.fail("double construct", k)
	}
}

func (c *checker) constructed(offset int) {
	k := uint32(offset)
	c.live.Add(k)
	if c.createStack != nil {
		c.createStack[k] = string(debug.Stack())
	}
}

func (c *checker) beforeDestroy(offset int) {
	k := uint32(offset)
	if !c.live.Contains(k) {
		c.fail("destroy of raw slot", k)
	}
}

func (c *checker) destroyed(offset int) {
	k := uint32(offset)
	c.live.Remove(k)
	if c.createStack != nil {
		delete(c.createStack, k)
	}
}

func (c *checker) released(capacity int) {
	if c.live.IsEmpty() {
		return
	}
	c.fail("release with live slots", c.live.Minimum(),
		zap.Uint64("live", c.live.GetCardinality()),
		zap.Int("capacity", capacity),
	)
}

func (c *checker) fail(what string, slot uint32, fields ...zap.Field) {
	fields = append(fields, zap.Uint32("slot", slot))
	if stack, ok := c.createStack[slot]; ok {
		fields = append(fields, zap.String("created by", stack))
	}
	logutil.Error("raw memory checker: "+what, fields...)
	panic(moerr.NewInvalidStateNoCtx("%s at slot %d", what, slot))
}
