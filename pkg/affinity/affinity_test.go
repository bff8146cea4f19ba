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

package affinity

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/tlbbench/pkg/sysfs"
	"github.com/intel/tlbbench/pkg/testutils"
)

// inThread runs fn in a fresh goroutine, which terminates its locked thread on exit.
func inThread(fn func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
	wg.Wait()
}

func TestBindToNodeFirstCPU(t *testing.T) {
	topo := testutils.FakeTopology{0: {0, 1}, 1: {8, 9}}
	b := &testutils.FakeBinder{Fail: map[int]bool{9: true}}

	var (
		cpu int
		err error
	)

	inThread(func() { cpu, err = BindCurrentThreadToNodeFirstCPU(b, topo, 1) })
	require.NoError(t, err)
	require.Equal(t, 8, cpu)

	inThread(func() { cpu, err = BindCurrentThreadToNodeFirstCPU(b, topo, 2) })
	require.Error(t, err)
	require.Equal(t, -1, cpu)
	require.True(t, errors.Is(err, sysfs.ErrNotFound))

	require.Equal(t, []int{8}, b.Bound())
}

func TestBindFailureIsReported(t *testing.T) {
	b := &testutils.FakeBinder{Fail: map[int]bool{3: true}}

	var err error
	inThread(func() { err = BindCurrentThreadToCPU(b, 3) })

	var f *Failure
	require.True(t, errors.As(err, &f), "expected a *Failure, got %T", err)
	require.Equal(t, 3, f.CPU)
	require.Equal(t, -1, f.Node)
	require.Contains(t, f.Error(), "CPU #3")
}
