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

package sysfs

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockNode describes a NUMA node of a fake sysfs tree.
type mockNode struct {
	cpulist  string
	distance string
}

// mockSysfs creates a fake sysfs tree with the given nodes and CPUs.
func mockSysfs(t *testing.T, nodes map[int]mockNode, cpus map[int]int, offline ...int) string {
	root := t.TempDir()

	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content+"\n"), 0644))
	}

	for id, n := range nodes {
		dir := filepath.Join(root, sysfsNumaNodePath, "node"+strconv.Itoa(id))
		write(filepath.Join(dir, "cpulist"), n.cpulist)
		if n.distance != "" {
			write(filepath.Join(dir, "distance"), n.distance)
		}
	}
	for id, node := range cpus {
		dir := filepath.Join(root, sysfsCpuPath, "cpu"+strconv.Itoa(id))
		write(filepath.Join(dir, "topology", "physical_package_id"), strconv.Itoa(node))
		write(filepath.Join(dir, "topology", "thread_siblings_list"), strconv.Itoa(id))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "node"+strconv.Itoa(node)), 0755))
		if id != 0 {
			write(filepath.Join(dir, "online"), "1")
		}
	}
	for _, id := range offline {
		write(filepath.Join(root, sysfsCpuPath, "cpu"+strconv.Itoa(id), "online"), "0")
	}

	return root
}

func withNUMA(t *testing.T, available bool) {
	saved := numaAvailable
	numaAvailable = func() bool { return available }
	t.Cleanup(func() { numaAvailable = saved })
}

func twoNodeSysfs(t *testing.T) string {
	return mockSysfs(t,
		map[int]mockNode{
			0: {cpulist: "0-3", distance: "10 21"},
			1: {cpulist: "4-5,7", distance: "21 10"},
		},
		map[int]int{0: 0, 1: 0, 2: 0, 3: 0, 4: 1, 5: 1, 6: 1, 7: 1},
		6,
	)
}

func TestDiscoverSystem(t *testing.T) {
	withNUMA(t, true)

	sys, err := DiscoverSystemAt(twoNodeSysfs(t))
	require.NoError(t, err)

	require.Equal(t, 2, sys.NodeCount())
	require.Equal(t, []int{0, 1}, sys.NodeIDs())

	cpus, err := sys.NodeCPUs(0)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, cpus)

	cpus, err = sys.NodeCPUs(1)
	require.NoError(t, err)
	require.Equal(t, []int{4, 5, 7}, cpus)

	require.Equal(t, []int{10, 21}, sys.Node(0).Distance())
	require.Equal(t, 21, sys.Node(1).DistanceFrom(0))
	require.Equal(t, -1, sys.Node(1).DistanceFrom(5))

	require.Equal(t, "6", sys.Offlined().String())
	require.False(t, sys.Cpu(6).Online())
	require.Equal(t, 1, sys.Cpu(5).NodeId())
	require.Equal(t, 1, sys.Cpu(5).PackageId())
	require.Equal(t, "0-5,7", sys.CPUSet().String())
}

func TestCPUForNode(t *testing.T) {
	withNUMA(t, true)

	sys, err := DiscoverSystemAt(twoNodeSysfs(t))
	require.NoError(t, err)

	type testCase struct {
		name  string
		node  int
		index int
		cpu   int
		err   error
	}

	for _, tc := range []testCase{
		{name: "first cpu of node 0", node: 0, index: 0, cpu: 0},
		{name: "last cpu of node 0", node: 0, index: 3, cpu: 3},
		{name: "first cpu of node 1", node: 1, index: 0, cpu: 4},
		{name: "offline cpu skipped", node: 1, index: 2, cpu: 7},
		{name: "index past node cpus", node: 1, index: 3, err: ErrNotFound},
		{name: "negative index", node: 0, index: -1, err: ErrNotFound},
		{name: "unknown node", node: 2, index: 0, err: ErrNotFound},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cpu, err := sys.CPUForNode(tc.node, tc.index)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err), "expected %v, got %v", tc.err, err)
				require.Equal(t, -1, cpu)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.cpu, cpu)
		})
	}
}

func TestCPUForNodeIsStable(t *testing.T) {
	withNUMA(t, true)

	sys, err := DiscoverSystemAt(twoNodeSysfs(t))
	require.NoError(t, err)

	first, err := sys.CPUForNode(1, 1)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		cpu, err := sys.CPUForNode(1, 1)
		require.NoError(t, err)
		require.Equal(t, first, cpu)
	}
}

func TestNUMAUnavailable(t *testing.T) {
	t.Run("kernel API unavailable", func(t *testing.T) {
		withNUMA(t, false)
		_, err := DiscoverSystemAt(twoNodeSysfs(t))
		require.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
	})

	t.Run("no nodes in sysfs", func(t *testing.T) {
		withNUMA(t, true)
		_, err := DiscoverSystemAt(mockSysfs(t, nil, map[int]int{0: 0}))
		require.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
	})

	t.Run("queries on an empty topology", func(t *testing.T) {
		sys := &System{}
		_, err := sys.CPUForNode(0, 0)
		require.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
	})
}

func TestGetEnumeratedID(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		output int
	}{
		{name: "node", input: "/sys/devices/system/node/node12", output: 12},
		{name: "cpu", input: "cpu0", output: 0},
		{name: "no number", input: "online", output: -1},
	}
	for _, tc := range cases {
		test := tc
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, test.output, int(getEnumeratedID(test.input)))
		})
	}
}

func TestReadSysfsEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "list"), []byte("0-2,8\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"), []byte("zero\n"), 0644))

	var s string
	_, err := readSysfsEntry(dir, "list", &s)
	require.NoError(t, err)
	require.Equal(t, "0-2,8", s)

	var i int
	_, err = readSysfsEntry(dir, "bad", &i)
	require.Error(t, err)

	_, err = readSysfsEntry(dir, "missing", &s)
	require.Error(t, err)

	_, err = readSysfsEntry(dir, "list", &struct{}{})
	require.Error(t, err)
}
