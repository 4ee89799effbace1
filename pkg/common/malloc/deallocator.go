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

type noopDeallocator struct{}

func (noopDeallocator) Deallocate(Hints) {}

// NoopDeallocator is returned for zero sized and unmanaged blocks.
var NoopDeallocator Deallocator = noopDeallocator{}

// FuncDeallocator adapts a closure to Deallocator.
type FuncDeallocator func(hints Hints)

func (f FuncDeallocator) Deallocate(hints Hints) {
	f(hints)
}

type chainDeallocator []Deallocator

func (c chainDeallocator) Deallocate(hints Hints) {
	for _, d := range c {
		d.Deallocate(hints)
	}
}

// ChainDeallocator runs every deallocator in order. Nil entries are skipped.
func ChainDeallocator(dec1 Deallocator, dec2 Deallocator) Deallocator {
	if dec1 == nil {
		return dec2
	}
	if dec2 == nil {
		return dec1
	}
	if c, ok := dec1.(chainDeallocator); ok {
		return append(c[:len(c):len(c)], dec2)
	}
	return chainDeallocator{dec1, dec2}
}
