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

package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/tlbbench/pkg/bench"
)

// Prometheus Metric descriptor indices and descriptor table
const (
	operationsDesc = iota
	elapsedDesc
	throughputDesc
	latencyDesc
	failuresDesc
	spinnersDesc
	numDescriptors
)

var workerLabels = []string{"operation", "mode", "worker", "node"}

var descriptors = [numDescriptors]*prometheus.Desc{
	operationsDesc: prometheus.NewDesc(
		"tlbbench_operations_total",
		"Memory management operations done by a worker.",
		workerLabels, nil,
	),
	elapsedDesc: prometheus.NewDesc(
		"tlbbench_elapsed_seconds",
		"Time spent by a worker in its timed loop.",
		workerLabels, nil,
	),
	throughputDesc: prometheus.NewDesc(
		"tlbbench_throughput_ops_per_second",
		"Operations per second of a worker.",
		workerLabels, nil,
	),
	latencyDesc: prometheus.NewDesc(
		"tlbbench_latency_seconds",
		"Average time of a single operation of a worker.",
		workerLabels, nil,
	),
	failuresDesc: prometheus.NewDesc(
		"tlbbench_mapping_failures_total",
		"Workers cut short by a mapping failure.",
		[]string{"operation", "mode"}, nil,
	),
	spinnersDesc: prometheus.NewDesc(
		"tlbbench_spinners",
		"Spinner threads running during the benchmark.",
		[]string{"operation", "mode"}, nil,
	),
}

// ReportCollector exposes the last benchmark report.
type ReportCollector struct {
	sync.RWMutex
	report *bench.Report
}

var reports = &ReportCollector{}

// SetReport sets the report exposed by the benchmark collector.
func SetReport(r *bench.Report) {
	reports.Update(r)
}

// NewReportCollector creates a collector for benchmark reports.
func NewReportCollector() *ReportCollector {
	return &ReportCollector{}
}

// Update sets the report exposed by the collector.
func (c *ReportCollector) Update(r *bench.Report) {
	c.Lock()
	defer c.Unlock()
	c.report = r
}

// Describe implements prometheus.Collector interface
func (c *ReportCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector interface
func (c *ReportCollector) Collect(ch chan<- prometheus.Metric) {
	c.RLock()
	defer c.RUnlock()

	r := c.report
	if r == nil {
		return
	}
	op, mode := r.Operation.String(), r.Mode.String()

	for i, w := range r.Workers {
		labels := []string{op, mode, strconv.Itoa(i), strconv.Itoa(w.Node)}
		ch <- prometheus.MustNewConstMetric(descriptors[operationsDesc],
			prometheus.CounterValue, float64(w.Ops), labels...)
		ch <- prometheus.MustNewConstMetric(descriptors[elapsedDesc],
			prometheus.GaugeValue, w.ElapsedSeconds, labels...)
		ch <- prometheus.MustNewConstMetric(descriptors[throughputDesc],
			prometheus.GaugeValue, w.Throughput, labels...)
		ch <- prometheus.MustNewConstMetric(descriptors[latencyDesc],
			prometheus.GaugeValue, w.LatencyUS/1e6, labels...)
	}
	ch <- prometheus.MustNewConstMetric(descriptors[failuresDesc],
		prometheus.CounterValue, float64(r.MappingFailures), op, mode)
	ch <- prometheus.MustNewConstMetric(descriptors[spinnersDesc],
		prometheus.GaugeValue, float64(len(r.Spinners)), op, mode)
}

func init() {
	err := RegisterCollector("tlbbench", func() (prometheus.Collector, error) {
		return reports, nil
	})
	if err != nil {
		log.Error("failed to register benchmark collector: %v", err)
	}
}
