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

package procstats

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/tlbbench/pkg/metrics"
)

// Prometheus Metric descriptor indices and descriptor table
const (
	tlbShootdownsDesc = iota
	kernelStatDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	tlbShootdownsDesc: prometheus.NewDesc(
		"tlbbench_tlb_shootdowns_total",
		"TLB shootdown interrupts received by a CPU during the benchmark.",
		[]string{"cpu"}, nil,
	),
	kernelStatDesc: prometheus.NewDesc(
		"tlbbench_kernel_stat_delta",
		"Change of a kernel statistics counter during the benchmark.",
		[]string{"counter"}, nil,
	),
}

// last recorded deltas
var recorded struct {
	sync.RWMutex
	tlb    *InterruptDelta
	kstats KernelStats
}

// RecordTLBShootdowns sets the TLB shootdown delta exposed as metrics.
func RecordTLBShootdowns(d *InterruptDelta) {
	recorded.Lock()
	defer recorded.Unlock()
	recorded.tlb = d
}

// RecordKernelStats sets the kernel statistics delta exposed as metrics.
func RecordKernelStats(d KernelStats) {
	recorded.Lock()
	defer recorded.Unlock()
	recorded.kstats = d
}

type collector struct{}

// NewCollector creates new Prometheus collector
func NewCollector() (prometheus.Collector, error) {
	return &collector{}, nil
}

// Describe implements prometheus.Collector interface
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector interface
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	recorded.RLock()
	defer recorded.RUnlock()

	if d := recorded.tlb; d != nil {
		for _, cpu := range d.SortedCPUs() {
			ch <- prometheus.MustNewConstMetric(
				descriptors[tlbShootdownsDesc],
				prometheus.CounterValue,
				float64(d.PerCPU[cpu]),
				strconv.Itoa(cpu),
			)
		}
	}
	for _, key := range recorded.kstats.Keys() {
		ch <- prometheus.MustNewConstMetric(
			descriptors[kernelStatDesc],
			prometheus.GaugeValue,
			float64(recorded.kstats[key]),
			key,
		)
	}
}

func init() {
	if err := metrics.RegisterCollector("procstats", NewCollector); err != nil {
		log.Error("failed to register collector: %v", err)
	}
}
