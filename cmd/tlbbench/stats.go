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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/intel/tlbbench/pkg/bench"
	"github.com/intel/tlbbench/pkg/procstats"
	"github.com/intel/tlbbench/pkg/utils/cpuset"
)

// statsProbe reads interrupt and kernel statistics around the benchmark.
type statsProbe struct {
	irqs        bool
	kstatsPath  string
	resetKstats bool

	irqsBefore   *procstats.Interrupts
	kstatsBefore procstats.KernelStats
	tlb          *procstats.InterruptDelta
	kstats       procstats.KernelStats
}

func newStatsProbe(irqs bool, kstatsPath string, reset bool) (*statsProbe, error) {
	if reset && kstatsPath == "" {
		return nil, fmt.Errorf("-reset-kernel-stats needs -kernel-stats")
	}
	return &statsProbe{irqs: irqs, kstatsPath: kstatsPath, resetKstats: reset}, nil
}

func (p *statsProbe) before() error {
	var err error

	if p.resetKstats {
		if err = procstats.ResetKernelStats(p.kstatsPath); err != nil {
			return err
		}
		log.Info("reset kernel statistics %s", p.kstatsPath)
	}
	if p.kstatsPath != "" {
		if p.kstatsBefore, err = procstats.ReadKernelStats(p.kstatsPath); err != nil {
			return err
		}
	}
	if p.irqs {
		if p.irqsBefore, err = procstats.ReadInterrupts(); err != nil {
			return err
		}
	}

	return nil
}

func (p *statsProbe) after() error {
	if p.kstatsPath != "" {
		after, err := procstats.ReadKernelStats(p.kstatsPath)
		if err != nil {
			return err
		}
		p.kstats = after.Delta(p.kstatsBefore)
		procstats.RecordKernelStats(p.kstats)
	}
	if p.irqs {
		after, err := procstats.ReadInterrupts()
		if err != nil {
			return err
		}
		if p.tlb, err = procstats.TLBShootdowns(p.irqsBefore, after); err != nil {
			return err
		}
		procstats.RecordTLBShootdowns(p.tlb)
	}
	return nil
}

func (p *statsProbe) print(w io.Writer) {
	if p.tlb != nil {
		busy := []int{}
		for _, cpu := range p.tlb.SortedCPUs() {
			if p.tlb.PerCPU[cpu] > 0 {
				busy = append(busy, cpu)
			}
		}
		fmt.Fprintf(w, "TLB shootdowns: %d total, on CPUs %s\n",
			p.tlb.Total, cpuset.ShortCPUSet(cpuset.New(busy...)))
	}
	if p.kstats != nil {
		fmt.Fprintf(w, "Kernel statistics (%s):\n", p.kstatsPath)
		for _, key := range p.kstats.Keys() {
			fmt.Fprintf(w, "  %s: %+d\n", key, p.kstats[key])
		}
	}
}

// jsonOutput is the JSON report of a series of runs.
type jsonOutput struct {
	*bench.Series
	TLBShootdowns *procstats.InterruptDelta `json:"tlbShootdowns,omitempty"`
	KernelStats   procstats.KernelStats     `json:"kernelStats,omitempty"`
}

func printJSON(s *bench.Series, p *statsProbe) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(&jsonOutput{Series: s, TLBShootdowns: p.tlb, KernelStats: p.kstats})
}
