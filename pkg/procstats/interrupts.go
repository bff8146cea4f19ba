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

// Package procstats reads interrupt and kernel statistics around a
// benchmark run and exposes their change during the run.
package procstats

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	logger "github.com/intel/tlbbench/pkg/log"
)

const (
	// TLBShootdownIRQ is the /proc/interrupts row of TLB shootdown IPIs.
	TLBShootdownIRQ = "TLB"
)

var (
	// procRoot is the mount point for the proc filesystem
	procRoot = "/proc"
	// our logger instance
	log = logger.NewLogger("procstats")
)

// Interrupts is a snapshot of /proc/interrupts.
type Interrupts struct {
	// CPUs are the CPU ids of the columns.
	CPUs []int
	// Counts are the per-CPU counts by interrupt name.
	Counts map[string][]uint64
	// Descriptions are the interrupt descriptions by interrupt name.
	Descriptions map[string]string
}

// ReadInterrupts reads /proc/interrupts.
func ReadInterrupts() (*Interrupts, error) {
	return ReadInterruptsFrom(filepath.Join(procRoot, "interrupts"))
}

// ReadInterruptsFrom reads an interrupts file in the format of /proc/interrupts.
//
// The file looks like this:
//
//	           CPU0       CPU1
//	  0:         35          0   IO-APIC    2-edge      timer
//	TLB:      12345       6789   TLB shootdowns
//	ERR:          0
func ReadInterruptsFrom(path string) (*Interrupts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "procstats: failed to open interrupts")
	}
	defer f.Close()

	irqs := &Interrupts{
		Counts:       map[string][]uint64{},
		Descriptions: map[string]string{},
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, procstatsError("%s: missing header", path)
	}
	for _, col := range strings.Fields(scanner.Text()) {
		id, err := strconv.Atoi(strings.TrimPrefix(col, "CPU"))
		if err != nil || !strings.HasPrefix(col, "CPU") {
			return nil, procstatsError("%s: invalid header column %q", path, col)
		}
		irqs.CPUs = append(irqs.CPUs, id)
	}

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.HasSuffix(fields[0], ":") {
			continue
		}
		name := strings.TrimSuffix(fields[0], ":")
		counts := make([]uint64, 0, len(irqs.CPUs))
		idx := 1
		for ; idx < len(fields) && len(counts) < len(irqs.CPUs); idx++ {
			v, err := strconv.ParseUint(fields[idx], 10, 64)
			if err != nil {
				break
			}
			counts = append(counts, v)
		}
		irqs.Counts[name] = counts
		irqs.Descriptions[name] = strings.Join(fields[idx:], " ")
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "procstats: failed to read %s", path)
	}

	return irqs, nil
}

// InterruptDelta is the change of an interrupt count between two snapshots.
type InterruptDelta struct {
	// Name is the name of the interrupt.
	Name string `json:"name"`
	// PerCPU is the per-CPU change, by CPU id.
	PerCPU map[int]uint64 `json:"perCPU"`
	// Total is the sum of the per-CPU changes.
	Total uint64 `json:"total"`
}

// Delta returns the change of the named interrupt from before to after.
func Delta(before, after *Interrupts, name string) (*InterruptDelta, error) {
	b, ok := before.Counts[name]
	if !ok {
		return nil, procstatsError("no interrupt %q in snapshot", name)
	}
	a, ok := after.Counts[name]
	if !ok {
		return nil, procstatsError("no interrupt %q in snapshot", name)
	}

	prev := map[int]uint64{}
	for i, cpu := range before.CPUs {
		if i < len(b) {
			prev[cpu] = b[i]
		}
	}

	d := &InterruptDelta{Name: name, PerCPU: map[int]uint64{}}
	for i, cpu := range after.CPUs {
		if i >= len(a) {
			break
		}
		// a CPU brought online during the run counts from zero
		diff := a[i]
		if p, ok := prev[cpu]; ok {
			if a[i] < p {
				log.Warn("interrupt %s count of CPU #%d went backwards (%d -> %d)", name, cpu, p, a[i])
				continue
			}
			diff -= p
		}
		d.PerCPU[cpu] = diff
		d.Total += diff
	}

	return d, nil
}

// TLBShootdowns returns the change of TLB shootdown interrupts.
func TLBShootdowns(before, after *Interrupts) (*InterruptDelta, error) {
	return Delta(before, after, TLBShootdownIRQ)
}

// SortedCPUs returns the CPU ids of the delta in ascending order.
func (d *InterruptDelta) SortedCPUs() []int {
	cpus := make([]int, 0, len(d.PerCPU))
	for cpu := range d.PerCPU {
		cpus = append(cpus, cpu)
	}
	sort.Ints(cpus)
	return cpus
}
