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

package testutils

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/intel/tlbbench/pkg/sysfs"
)

// FakeTopology is a sysfs.Topology of NUMA node ids mapped to their CPUs.
type FakeTopology map[int][]int

// NodeCount returns the number of nodes.
func (t FakeTopology) NodeCount() int {
	return len(t)
}

// NodeIDs returns the sorted node ids.
func (t FakeTopology) NodeIDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NodeCPUs returns the CPUs of node.
func (t FakeTopology) NodeCPUs(node int) ([]int, error) {
	cpus, ok := t[node]
	if !ok {
		return nil, errors.Wrapf(sysfs.ErrNotFound, "node #%d", node)
	}
	return append([]int{}, cpus...), nil
}

// CPUForNode returns the index'th CPU of node.
func (t FakeTopology) CPUForNode(node, index int) (int, error) {
	cpus, err := t.NodeCPUs(node)
	if err != nil {
		return -1, err
	}
	if index < 0 || index >= len(cpus) {
		return -1, errors.Wrapf(sysfs.ErrNotFound, "node #%d CPU index %d", node, index)
	}
	return cpus[index], nil
}

// FakeBinder records thread binding requests, failing for the CPUs in Fail.
type FakeBinder struct {
	sync.Mutex
	Fail  map[int]bool
	bound []int
}

// BindCurrentThread records cpu as bound unless it is set up to fail.
func (b *FakeBinder) BindCurrentThread(cpu int) error {
	b.Lock()
	defer b.Unlock()
	if b.Fail[cpu] {
		return fmt.Errorf("fake bind to CPU #%d failed", cpu)
	}
	b.bound = append(b.bound, cpu)
	return nil
}

// Bound returns the sorted CPUs successfully bound to so far.
func (b *FakeBinder) Bound() []int {
	b.Lock()
	defer b.Unlock()
	cpus := append([]int{}, b.bound...)
	sort.Ints(cpus)
	return cpus
}
