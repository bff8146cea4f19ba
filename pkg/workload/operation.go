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

package workload

import (
	"fmt"
	"strings"
)

// Operation is the memory management operation measured by a workload.
type Operation int

const (
	// Mprotect toggles the protection of a pre-faulted region.
	Mprotect Operation = iota
	// Munmap unmaps a region and immediately remaps it at the same address.
	Munmap
	// MmapFull maps a region, touches its first and last byte, then unmaps it.
	MmapFull
)

var operationNames = map[Operation]string{
	Mprotect: "mprotect",
	Munmap:   "munmap",
	MmapFull: "mmap_full",
}

// Operations returns all known operations.
func Operations() []Operation {
	return []Operation{Mprotect, Munmap, MmapFull}
}

// ParseOperation parses the name of an operation.
func ParseOperation(name string) (Operation, error) {
	for op, n := range operationNames {
		if strings.EqualFold(n, name) {
			return op, nil
		}
	}
	return Operation(-1), workloadError("unknown operation '%s', expected one of %s",
		name, strings.Join(OperationNames(), ", "))
}

// OperationNames returns the names of all known operations.
func OperationNames() []string {
	names := []string{}
	for _, op := range Operations() {
		names = append(names, op.String())
	}
	return names
}

// String returns the name of the operation.
func (op Operation) String() string {
	if n, ok := operationNames[op]; ok {
		return n
	}
	return fmt.Sprintf("<unknown operation %d>", int(op))
}

// OpsPerIteration returns the number of operations one loop iteration counts.
func (op Operation) OpsPerIteration() int {
	if op == Mprotect {
		return 2
	}
	return 1
}

// Describe returns a one-line description of the operation.
func (op Operation) Describe() string {
	switch op {
	case Mprotect:
		return "toggle protection flags (baseline)"
	case Munmap:
		return "unmap + remap cycle"
	case MmapFull:
		return "full mmap + touch + munmap cycle"
	}
	return op.String()
}

// Set implements flag.Value.
func (op *Operation) Set(value string) error {
	o, err := ParseOperation(value)
	if err != nil {
		return err
	}
	*op = o
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (op Operation) MarshalText() ([]byte, error) {
	if _, ok := operationNames[op]; !ok {
		return nil, workloadError("can't marshal unknown operation %d", int(op))
	}
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Operation) UnmarshalText(data []byte) error {
	return op.Set(string(data))
}

func workloadError(format string, args ...interface{}) error {
	return fmt.Errorf("workload: "+format, args...)
}
