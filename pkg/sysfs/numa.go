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

	"github.com/lrita/numa"
)

var (
	// ErrUnavailable is returned when the host has no usable NUMA support.
	ErrUnavailable = errors.New("NUMA support unavailable")
	// ErrNotFound is returned for a node or CPU index outside the topology.
	ErrNotFound = errors.New("not found in NUMA topology")
)

// numaAvailable probes the kernel NUMA memory policy API, swapped out by tests.
var numaAvailable = numa.Available

// CurrentCPUAndNode returns the CPU and NUMA node the calling thread runs on.
func CurrentCPUAndNode() (cpu, node int) {
	return numa.GetCPUAndNode()
}
