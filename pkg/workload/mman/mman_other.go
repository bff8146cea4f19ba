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

//go:build !linux || !(amd64 || arm64 || ppc64le || riscv64 || s390x)

package mman

type osMapper struct{}

// OS returns a Mapper that fails every operation with ErrUnsupported.
func OS() Mapper {
	return osMapper{}
}

func (osMapper) PageSize() int { return 4096 }
func (osMapper) Map(uintptr, int) (Region, error) { return Region{}, ErrUnsupported }
func (osMapper) Protect(Region, Prot) error { return ErrUnsupported }
func (osMapper) Unmap(Region) error { return ErrUnsupported }
func (osMapper) Touch(Region, int, byte) error { return ErrUnsupported }
func (osMapper) Fill(Region, byte) error { return ErrUnsupported }
