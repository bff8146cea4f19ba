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

//go:build linux && (amd64 || arm64 || ppc64le || riscv64 || s390x)

package mman

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

type osMapper struct{}

// OS returns the Mapper backed by the kernel.
func OS() Mapper {
	return osMapper{}
}

func (osMapper) PageSize() int {
	return unix.Getpagesize()
}

func (osMapper) Map(hint uintptr, size int) (Region, error) {
	// syscall:
	// void *mmap(void *addr, size_t length, int prot, int flags,
	//            int fd, off_t offset);
	// unix.Mmap does not take an address hint, and it tracks its own
	// mappings which would make unix.Munmap reject ours.
	addr, _, en := unix.Syscall6(unix.SYS_MMAP, hint, uintptr(size),
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_PRIVATE|unix.MAP_ANONYMOUS), ^uintptr(0), 0)
	if en != 0 {
		return Region{}, en
	}
	return Region{Addr: addr, Size: size}, nil
}

func (osMapper) Protect(r Region, prot Prot) error {
	// syscall:
	// int mprotect(void *addr, size_t len, int prot);
	_, _, en := unix.Syscall(unix.SYS_MPROTECT, r.Addr, uintptr(r.Size), uintptr(toUnixProt(prot)))
	if en != 0 {
		return en
	}
	return nil
}

func (osMapper) Unmap(r Region) error {
	// syscall:
	// int munmap(void *addr, size_t length);
	_, _, en := unix.Syscall(unix.SYS_MUNMAP, r.Addr, uintptr(r.Size), 0)
	if en != 0 {
		return en
	}
	return nil
}

func (osMapper) Touch(r Region, offset int, value byte) error {
	if err := checkOffset(r, offset); err != nil {
		return err
	}
	bytes(r)[offset] = value
	return nil
}

func (osMapper) Fill(r Region, value byte) error {
	b := bytes(r)
	for i := range b {
		b[i] = value
	}
	return nil
}

// bytes returns the memory of a region as a byte slice. Regions are mmap'd
// outside the Go heap, so the address never moves and is never collected.
func bytes(r Region) []byte {
	return unsafe.Slice((*byte)(unsafe.Add(nil, r.Addr)), r.Size)
}

func toUnixProt(p Prot) int {
	prot := unix.PROT_NONE
	if p&ProtRead != 0 {
		prot |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	return prot
}
