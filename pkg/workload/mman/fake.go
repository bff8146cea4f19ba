// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mman

import (
	"errors"
	"fmt"
	"sync"
)

// Names of the Fake operations, as used for call counting and failure injection.
const (
	OpMap     = "mmap"
	OpProtect = "mprotect"
	OpUnmap   = "munmap"
	OpTouch   = "touch"
	OpFill    = "fill"
)

var (
	// ErrInjected is the error returned by a Fake operation set up to fail.
	ErrInjected = errors.New("injected mapping failure")
	// ErrOutOfMemory is returned by Fake.Map when the mapping limit would be exceeded.
	ErrOutOfMemory = errors.New("cannot allocate memory")
)

// Fake is an in-memory Mapper for tests. It keeps track of live mappings and
// their protection and rejects operations on ranges it did not map.
type Fake struct {
	sync.Mutex
	// Limit is the maximum number of bytes mapped at any time, 0 for no limit.
	Limit int
	// Relocate makes Map ignore the address hint.
	Relocate bool
	// OnCall, if set, is called with the operation name before every operation.
	OnCall func(op string)

	pageSize int
	next     uintptr
	mapped   int
	regions  map[uintptr]*fakeRegion
	calls    map[string]int
	failAt   map[string]int
}

type fakeRegion struct {
	size    int
	prot    Prot
	touched map[int]byte
}

// NewFake creates a Fake with the given page size.
func NewFake(pageSize int) *Fake {
	return &Fake{
		pageSize: pageSize,
		next:     0x10000000,
		regions:  map[uintptr]*fakeRegion{},
		calls:    map[string]int{},
		failAt:   map[string]int{},
	}
}

// FailAfter makes the operation fail once it has succeeded n times.
func (f *Fake) FailAfter(op string, n int) {
	f.Lock()
	defer f.Unlock()
	f.failAt[op] = n
}

// Calls returns the number of attempted calls of the operation.
func (f *Fake) Calls(op string) int {
	f.Lock()
	defer f.Unlock()
	return f.calls[op]
}

// Live returns the number of live mappings.
func (f *Fake) Live() int {
	f.Lock()
	defer f.Unlock()
	return len(f.regions)
}

// Prot returns the protection of the mapping at addr.
func (f *Fake) Prot(addr uintptr) (Prot, bool) {
	f.Lock()
	defer f.Unlock()
	if r, ok := f.regions[addr]; ok {
		return r.prot, true
	}
	return ProtNone, false
}

// Touched returns the value last written at offset of the mapping at addr.
func (f *Fake) Touched(addr uintptr, offset int) (byte, bool) {
	f.Lock()
	defer f.Unlock()
	if r, ok := f.regions[addr]; ok {
		v, ok := r.touched[offset]
		return v, ok
	}
	return 0, false
}

func (f *Fake) PageSize() int {
	return f.pageSize
}

func (f *Fake) Map(hint uintptr, size int) (Region, error) {
	if err := f.call(OpMap); err != nil {
		return Region{}, err
	}
	f.Lock()
	defer f.Unlock()

	if size <= 0 {
		return Region{}, fmt.Errorf("fake mmap: invalid size %d", size)
	}
	if f.Limit > 0 && f.mapped+size > f.Limit {
		return Region{}, ErrOutOfMemory
	}

	addr := hint
	if hint == 0 || f.Relocate || f.overlaps(hint, size) {
		addr = f.next
	}
	if end := addr + uintptr(RoundToPages(size, f.pageSize)); end > f.next {
		f.next = end
	}

	f.regions[addr] = &fakeRegion{size: size, prot: ProtReadWrite, touched: map[int]byte{}}
	f.mapped += size
	return Region{Addr: addr, Size: size}, nil
}

func (f *Fake) Protect(r Region, prot Prot) error {
	if err := f.call(OpProtect); err != nil {
		return err
	}
	f.Lock()
	defer f.Unlock()

	fr, err := f.lookup(r)
	if err != nil {
		return err
	}
	fr.prot = prot
	return nil
}

func (f *Fake) Unmap(r Region) error {
	if err := f.call(OpUnmap); err != nil {
		return err
	}
	f.Lock()
	defer f.Unlock()

	if _, err := f.lookup(r); err != nil {
		return err
	}
	delete(f.regions, r.Addr)
	f.mapped -= r.Size
	return nil
}

func (f *Fake) Touch(r Region, offset int, value byte) error {
	if err := f.call(OpTouch); err != nil {
		return err
	}
	f.Lock()
	defer f.Unlock()

	fr, err := f.lookup(r)
	if err != nil {
		return err
	}
	if err := checkOffset(r, offset); err != nil {
		return err
	}
	if fr.prot&ProtWrite == 0 {
		return fmt.Errorf("fake: write to %s mapping %s", fr.prot, r)
	}
	fr.touched[offset] = value
	return nil
}

func (f *Fake) Fill(r Region, value byte) error {
	if err := f.call(OpFill); err != nil {
		return err
	}
	f.Lock()
	defer f.Unlock()

	fr, err := f.lookup(r)
	if err != nil {
		return err
	}
	fr.touched[0] = value
	fr.touched[r.Size-1] = value
	return nil
}

func (f *Fake) call(op string) error {
	if f.OnCall != nil {
		f.OnCall(op)
	}
	f.Lock()
	defer f.Unlock()

	f.calls[op]++
	if n, ok := f.failAt[op]; ok && f.calls[op] > n {
		return ErrInjected
	}
	return nil
}

func (f *Fake) lookup(r Region) (*fakeRegion, error) {
	fr, ok := f.regions[r.Addr]
	if !ok || fr.size != r.Size {
		return nil, fmt.Errorf("fake: no mapping %s", r)
	}
	return fr, nil
}

func (f *Fake) overlaps(addr uintptr, size int) bool {
	end := addr + uintptr(size)
	for a, r := range f.regions {
		if addr < a+uintptr(r.size) && a < end {
			return true
		}
	}
	return false
}
