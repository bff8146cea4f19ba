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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	idset "github.com/intel/goresctrl/pkg/utils"
	"github.com/pkg/errors"

	"github.com/intel/tlbbench/pkg/utils/cpuset"
)

// Get the trailing enumeration part of a name.
func getEnumeratedID(name string) idset.ID {
	id := 0
	base := 1
	for idx := len(name) - 1; idx > 0; idx-- {
		d := name[idx]

		if '0' <= d && d <= '9' {
			id += base * (int(d) - '0')
			base *= 10
		} else {
			if base > 1 {
				return idset.ID(id)
			}

			return idset.ID(-1)
		}
	}

	return idset.ID(-1)
}

// Read content of a sysfs entry and convert it according to the type of a given pointer.
//
// Supported pointer types are *string, *int, *idset.IDSet (parsed as a CPU
// list, "0-3,8") and *[]int (whitespace-separated integers).
func readSysfsEntry(base, entry string, ptr interface{}) (string, error) {
	path := filepath.Join(base, entry)

	blob, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read sysfs entry")
	}
	buf := strings.TrimSpace(string(blob))

	switch p := ptr.(type) {
	case nil:
	case *string:
		*p = buf
	case *int:
		v, err := strconv.ParseInt(buf, 0, 0)
		if err != nil {
			return "", sysfsError(path, "invalid entry '%s': %v", buf, err)
		}
		*p = int(v)
	case *idset.IDSet:
		cset, err := cpuset.Parse(buf)
		if err != nil {
			return "", sysfsError(path, "invalid list '%s': %v", buf, err)
		}
		*p = IDSetFromCPUSet(cset)
	case *[]int:
		values := []int{}
		for _, field := range strings.Fields(buf) {
			v, err := strconv.Atoi(field)
			if err != nil {
				return "", sysfsError(path, "invalid entry '%s': %v", field, err)
			}
			values = append(values, v)
		}
		*p = values
	default:
		return "", sysfsError(path, "unsupported sysfs entry type %T", ptr)
	}

	return buf, nil
}

// IDSetFromCPUSet returns an id set corresponding to a cpuset.CPUSet.
func IDSetFromCPUSet(cset cpuset.CPUSet) idset.IDSet {
	return idset.NewIDSetFromIntSlice(cset.List()...)
}

// CPUSetFromIDSet returns a cpuset.CPUSet corresponding to an id set.
func CPUSetFromIDSet(s idset.IDSet) cpuset.CPUSet {
	cpus := []int{}
	for id := range s {
		cpus = append(cpus, int(id))
	}
	return cpuset.New(cpus...)
}

// sysfsError returns a formatted error for the given sysfs path.
func sysfsError(path, format string, args ...interface{}) error {
	return fmt.Errorf("sysfs %s: "+format, append([]interface{}{path}, args...)...)
}
