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

//go:build linux
// +build linux

package affinity

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/intel/tlbbench/pkg/utils/cpuset"
)

type osBinder struct{}

// BindCurrentThread implements Binder using sched_setaffinity(2).
func (osBinder) BindCurrentThread(cpu int) error {
	if cpu < 0 {
		return errors.Errorf("invalid CPU #%d", cpu)
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)

	// syscall: sched_setaffinity(pid_t pid, size_t cpusetsize, const cpu_set_t *mask)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrap(err, "sched_setaffinity")
	}
	return nil
}

// Current returns the affinity mask of the calling thread.
func Current() (cpuset.CPUSet, error) {
	var set unix.CPUSet

	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return cpuset.New(), errors.Wrap(err, "sched_getaffinity")
	}

	cpus := []int{}
	for cpu := 0; cpu < len(set)*64 && len(cpus) < set.Count(); cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpuset.New(cpus...), nil
}
