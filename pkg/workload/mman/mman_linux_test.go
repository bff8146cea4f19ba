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
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOSMapper(t *testing.T) {
	m := OS()
	size := RoundToPages(64*1024, m.PageSize())

	r, err := m.Map(0, size)
	require.NoError(t, err)
	require.NotZero(t, r.Addr)

	require.NoError(t, m.Fill(r, 0xab))
	require.NoError(t, m.Touch(r, 0, 0xcd))
	require.NoError(t, m.Touch(r, size-1, 0xcd))
	require.Equal(t, byte(0xab), bytes(r)[1])

	require.NoError(t, m.Protect(r, ProtRead))
	require.NoError(t, m.Protect(r, ProtReadWrite))

	require.NoError(t, m.Unmap(r))

	again, err := m.Map(r.Addr, size)
	require.NoError(t, err)
	require.NoError(t, m.Unmap(again))
}

func TestOSMapperOutOfAddressSpace(t *testing.T) {
	_, err := OS().Map(0, 1<<50)
	require.ErrorIs(t, err, unix.ENOMEM)
}

func TestOSMapperErrors(t *testing.T) {
	m := OS()
	require.Error(t, m.Protect(Region{Addr: 1, Size: 4096}, ProtRead), "unaligned address")
	require.Error(t, m.Unmap(Region{Addr: 1, Size: 4096}), "unaligned address")
}

func TestOSRegionBytes(t *testing.T) {
	m := OS()
	size := 2 * m.PageSize()

	r, err := m.Map(0, size)
	require.NoError(t, err)
	defer m.Unmap(r)

	require.NoError(t, m.Fill(r, 0x5a))
	b := bytes(r)
	require.Len(t, b, size)
	require.Equal(t, byte(0x5a), b[0])
	require.Equal(t, byte(0x5a), b[size-1])

	b[size/2] = 0x11
	require.Equal(t, byte(0x11), bytes(r)[size/2], "slices alias the mapping")
}
