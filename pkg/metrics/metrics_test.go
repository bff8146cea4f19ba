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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/intel/tlbbench/pkg/bench"
	"github.com/intel/tlbbench/pkg/spinner"
	"github.com/intel/tlbbench/pkg/workload"
)

func testReport() *bench.Report {
	return &bench.Report{
		Operation: workload.Munmap,
		Mode:      bench.ModeSingle,
		Spinners:  []spinner.Slot{{Node: 1, CPU: 4}, {Node: 1, Index: 1, CPU: 5}},
		Workers: []bench.WorkerReport{
			{Node: 0, CPU: 0, Pinned: true, Ops: 1000, Elapsed: 2 * time.Millisecond,
				ElapsedSeconds: 0.002, Throughput: 500000, LatencyUS: 2},
		},
		Summary: bench.Summary{TotalOps: 1000, MappingFailures: 1},
	}
}

func TestRegisterCollector(t *testing.T) {
	require.Error(t, RegisterCollector("tlbbench", nil), "duplicate registration")
}

func TestReportCollector(t *testing.T) {
	c := NewReportCollector()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	require.Equal(t, 0, testutil.CollectAndCount(c), "nothing before a report")

	c.Update(testReport())

	expected := `
# HELP tlbbench_operations_total Memory management operations done by a worker.
# TYPE tlbbench_operations_total counter
tlbbench_operations_total{mode="single",node="0",operation="munmap",worker="0"} 1000
# HELP tlbbench_latency_seconds Average time of a single operation of a worker.
# TYPE tlbbench_latency_seconds gauge
tlbbench_latency_seconds{mode="single",node="0",operation="munmap",worker="0"} 2e-06
# HELP tlbbench_mapping_failures_total Workers cut short by a mapping failure.
# TYPE tlbbench_mapping_failures_total counter
tlbbench_mapping_failures_total{mode="single",operation="munmap"} 1
# HELP tlbbench_spinners Spinner threads running during the benchmark.
# TYPE tlbbench_spinners gauge
tlbbench_spinners{mode="single",operation="munmap"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"tlbbench_operations_total", "tlbbench_latency_seconds",
		"tlbbench_mapping_failures_total", "tlbbench_spinners"))
	require.Equal(t, 6, testutil.CollectAndCount(c))
}

func TestWriteTextfile(t *testing.T) {
	SetReport(testReport())
	defer SetReport(nil)

	g, err := NewMetricGatherer()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tlbbench.prom")
	require.NoError(t, WriteTextfile(g, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "# TYPE tlbbench_throughput_ops_per_second gauge\n")
	require.Contains(t, text, `tlbbench_elapsed_seconds{mode="single",node="0",operation="munmap",worker="0"} 0.002`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")

	require.Error(t, WriteTextfile(g, filepath.Join(t.TempDir(), "missing", "dir", "x.prom")))
}
