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

type GoAllocator struct{}

func NewGoAllocator() *GoAllocator {
	return &GoAllocator{}
}

var _ Allocator = new(GoAllocator)

func (g *GoAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 || hints.Has(AccountOnly) {
		return nil, NoopDeallocator, nil
	}
	return make([]byte, size), NoopDeallocator, nil
}
