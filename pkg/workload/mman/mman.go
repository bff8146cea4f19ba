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

// Package mman provides the anonymous memory mapping operations exercised
// by the benchmark workloads.
package mman

import (
	"errors"
	"fmt"
)

// Prot is a memory protection mode.
type Prot int

const (
	// ProtNone denies all access.
	ProtNone Prot = 0x0
	// ProtRead allows reading.
	ProtRead Prot = 0x1
	// ProtWrite allows writing.
	ProtWrite Prot = 0x2
	// ProtReadWrite allows reading and writing.
	ProtReadWrite = ProtRead | ProtWrite
)

// String returns the usual rwx notation of the protection.
func (p Prot) String() string {
	s := []byte("---")
	if p&ProtRead != 0 {
		s[0] = 'r'
	}
	if p&ProtWrite != 0 {
		s[1] = 'w'
	}
	return string(s)
}

// Region is a mapped address range.
type Region struct {
	Addr uintptr
	Size int
}

// End returns the first address past the region.
func (r Region) End() uintptr {
	return r.Addr + uintptr(r.Size)
}

func (r Region) String() string {
	return fmt.Sprintf("0x%x-0x%x", r.Addr, r.End())
}

// Mapper creates, reprotects, touches and destroys private anonymous mappings.
type Mapper interface {
	// PageSize returns the size of a memory page.
	PageSize() int
	// Map creates a read-write mapping of size bytes, preferably at hint.
	Map(hint uintptr, size int) (Region, error)
	// Protect changes the protection of the region.
	Protect(r Region, prot Prot) error
	// Unmap destroys the mapping of the region.
	Unmap(r Region) error
	// Touch writes value at offset within the region.
	Touch(r Region, offset int, value byte) error
	// Fill writes value to every byte of the region.
	Fill(r Region, value byte) error
}

// ErrUnsupported is returned by the OS Mapper on unsupported platforms.
var ErrUnsupported = errors.New("memory mapping not supported on this platform")

// RoundToPages rounds size up to a multiple of the page size.
func RoundToPages(size, pageSize int) int {
	if pageSize <= 0 {
		return size
	}
	return (size + pageSize - 1) / pageSize * pageSize
}

func checkOffset(r Region, offset int) error {
	if offset < 0 || offset >= r.Size {
		return fmt.Errorf("mman: offset %d outside region %s", offset, r)
	}
	return nil
}
