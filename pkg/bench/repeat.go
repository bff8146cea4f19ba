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

package bench

import (
	"fmt"
	"io"

	"github.com/intel/tlbbench/pkg/metricsring"
)

// Series is the outcome of repeated benchmark runs.
type Series struct {
	// Reports are the reports of the individual runs.
	Reports []*Report `json:"runs"`
	// Throughput summarizes the per-run throughput.
	Throughput metricsring.Summary `json:"throughput"`
	// Latency summarizes the per-run latency in microseconds.
	Latency metricsring.Summary `json:"latencyMicroseconds"`
}

// Last returns the report of the last run.
func (s *Series) Last() *Report {
	if len(s.Reports) == 0 {
		return nil
	}
	return s.Reports[len(s.Reports)-1]
}

// RunSeries runs the benchmark the configured number of times. The first
// setup failure stops the series.
func (h *Harness) RunSeries() (*Series, error) {
	return h.RunSeriesWith(nil)
}

// RunSeriesWith runs the benchmark repeatedly, calling fn with every report.
func (h *Harness) RunSeriesWith(fn func(run int, r *Report)) (*Series, error) {
	var (
		series     = &Series{}
		throughput = metricsring.NewMetricsRing(h.opts.Repeat)
		latency    = metricsring.NewMetricsRing(h.opts.Repeat)
	)

	for run := 0; run < h.opts.Repeat; run++ {
		rpt, err := h.Run()
		if err != nil {
			return series, err
		}
		series.Reports = append(series.Reports, rpt)
		throughput.Push(rpt.Throughput)
		latency.Push(rpt.LatencyUS)

		if h.opts.Repeat > 1 {
			log.Info("run %d/%d: %.0f ops/sec, moving average %.0f ops/sec",
				run+1, h.opts.Repeat, rpt.Throughput, throughput.EWMA())
		}
		if fn != nil {
			fn(run, rpt)
		}
	}

	series.Throughput = throughput.Summary()
	series.Latency = latency.Summary()

	return series, nil
}

// Print writes the summary of the series.
func (s *Series) Print(w io.Writer) {
	if len(s.Reports) < 2 {
		return
	}
	fmt.Fprintf(w, "\n%s\nSUMMARY (%d runs):\n%s\n", ruler, s.Throughput.Count, ruler)
	fmt.Fprintf(w, "Throughput: mean %.0f, min %.0f, max %.0f, moving average %.0f ops/sec\n",
		s.Throughput.Mean, s.Throughput.Min, s.Throughput.Max, s.Throughput.EWMA)
	fmt.Fprintf(w, "Latency per op: mean %.2f, min %.2f, max %.2f us\n",
		s.Latency.Mean, s.Latency.Min, s.Latency.Max)
	fmt.Fprintf(w, "%s\n", ruler)
}
