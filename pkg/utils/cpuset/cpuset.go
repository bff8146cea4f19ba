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

package cpuset

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/utils/cpuset"
)

// CPUSet is an alias for k8s.io/utils/cpuset.CPUSet.
type CPUSet = cpuset.CPUSet

var (
	// New is an alias for cpuset.New.
	New = cpuset.New
	// Parse is an alias for cpuset.Parse.
	Parse = cpuset.Parse
)

// MustParse panics if parsing the given cpuset string fails.
func MustParse(s string) cpuset.CPUSet {
	cset, err := cpuset.Parse(s)
	if err != nil {
		panic(fmt.Errorf("failed to parse CPUSet %s: %w", s, err))
	}
	return cset
}

// ShortCPUSet formats the cpuset, folding evenly strided runs into 'first-last:stride'.
//
// For instance the CPUs 0,2,4,6,9 are formatted as "0-6:2,9".
func ShortCPUSet(cset cpuset.CPUSet) string {
	cpus := cset.List()
	parts := []string{}

	for beg := 0; beg < len(cpus); {
		end := beg
		if beg+1 < len(cpus) {
			step := cpus[beg+1] - cpus[beg]
			end = beg + 1
			for end+1 < len(cpus) && cpus[end+1]-cpus[end] == step {
				end++
			}
			if end-beg < 2 && step != 1 {
				end = beg
			}
		}
		parts = append(parts, mkRange(cpus[beg], cpus[end], end-beg))
		beg = end + 1
	}

	return strings.Join(parts, ",")
}

// mkRange formats a run of count+1 CPUs from beg to end.
func mkRange(beg, end, count int) string {
	b := strconv.Itoa(beg)
	switch {
	case count == 0:
		return b
	case count == 1 && end-beg != 1:
		return b + "," + strconv.Itoa(end)
	case end-beg == count:
		return b + "-" + strconv.Itoa(end)
	}
	return b + "-" + strconv.Itoa(end) + ":" + strconv.Itoa((end-beg)/count)
}
