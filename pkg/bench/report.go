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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/intel/tlbbench/pkg/spinner"
	"github.com/intel/tlbbench/pkg/workload"
)

// Role is the role of a benchmark participant.
type Role int

const (
	// RoleWorker runs a timed workload.
	RoleWorker Role = iota
	// RoleSpinner spins on a remote node for interference.
	RoleSpinner
)

func (r Role) String() string {
	if r == RoleSpinner {
		return "spinner"
	}
	return "worker"
}

// WorkerReport is the outcome of a single worker.
type WorkerReport struct {
	Node           int           `json:"node"`
	CPU            int           `json:"cpu"`
	Pinned         bool          `json:"pinned"`
	RunningNode    int           `json:"runningNode"`
	Ops            uint64        `json:"ops"`
	Elapsed        time.Duration `json:"-"`
	ElapsedSeconds float64       `json:"elapsedSeconds"`
	Throughput     float64       `json:"throughputOpsPerSecond"`
	LatencyUS      float64       `json:"latencyMicroseconds"`
	AddressShifts  int           `json:"addressShifts,omitempty"`
	Failure        string        `json:"mappingFailure,omitempty"`
}

// Misplaced returns true if a pinned worker was seen running off its node.
// RunningNode is -1 when it could not be determined.
func (w *WorkerReport) Misplaced() bool {
	return w.Pinned && w.RunningNode >= 0 && w.RunningNode != w.Node
}

// Summary is the aggregate outcome of all workers.
type Summary struct {
	// TotalOps is the sum of operations done by all workers.
	TotalOps uint64 `json:"totalOps"`
	// Wall is the longest elapsed time of any worker.
	Wall        time.Duration `json:"-"`
	WallSeconds float64       `json:"wallSeconds"`
	// Throughput is TotalOps per wall time.
	Throughput float64 `json:"throughputOpsPerSecond"`
	// LatencyUS is the mean per-operation latency of the workers in microseconds.
	LatencyUS float64 `json:"latencyMicroseconds"`
	// MappingFailures is the number of workers cut short by a mapping failure.
	MappingFailures int `json:"mappingFailures"`
}

// Report is the outcome of a benchmark run.
type Report struct {
	Operation        workload.Operation `json:"operation"`
	Mode             Mode               `json:"mode"`
	Nodes            int                `json:"nodes"`
	WorkerNode       int                `json:"workerNode,omitempty"`
	RegionSizeKB     int                `json:"regionSizeKB"`
	Iterations       int                `json:"iterations"`
	SpinnersPerNode  int                `json:"spinnersPerNode"`
	Spinners         []spinner.Slot     `json:"spinners"`
	SpinCounts       []uint64           `json:"spinCounts,omitempty"`
	UnpinnedSpinners int                `json:"unpinnedSpinners"`
	UnpinnedWorkers  int                `json:"unpinnedWorkers"`
	MisplacedWorkers int                `json:"misplacedWorkers,omitempty"`
	SkippedNodes     []int              `json:"skippedNodes,omitempty"`
	Workers          []WorkerReport     `json:"workers"`
	Summary
	// Results are the raw workload results, in worker order.
	Results []workload.Result `json:"-"`
}

// Aggregate computes the summary of workload results. Empty or zero-time
// results yield zero throughput and latency.
func Aggregate(results []workload.Result) Summary {
	s := Summary{}
	latency, measured := 0.0, 0

	for i := range results {
		r := &results[i]
		s.TotalOps += r.Ops
		if r.Elapsed > s.Wall {
			s.Wall = r.Elapsed
		}
		if r.Failed() {
			s.MappingFailures++
		}
		if l := r.Latency(); l > 0 {
			latency += microseconds(l)
			measured++
		}
	}

	s.WallSeconds = s.Wall.Seconds()
	if s.TotalOps > 0 && s.Wall > 0 {
		s.Throughput = float64(s.TotalOps) / s.WallSeconds
	}
	if measured > 0 {
		s.LatencyUS = latency / float64(measured)
	}

	return s
}

func workerReport(r *workload.Result, pinned bool, runningNode int) WorkerReport {
	w := WorkerReport{
		Node:           r.Node,
		CPU:            r.CPU,
		Pinned:         pinned,
		RunningNode:    runningNode,
		Ops:            r.Ops,
		Elapsed:        r.Elapsed,
		ElapsedSeconds: r.Seconds(),
		Throughput:     r.Throughput(),
		LatencyUS:      microseconds(r.Latency()),
		AddressShifts:  r.AddressShifts,
	}
	if r.Err != nil {
		w.Failure = r.Err.Error()
	}
	return w
}

func microseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

const ruler = "========================================"

// Header writes the parameters of the run.
func (r *Report) Header(w io.Writer) {
	fmt.Fprintf(w, "%s\nTLB shootdown benchmark: %s\n%s\n", ruler, r.Operation.Describe(), ruler)
	fmt.Fprintf(w, "NUMA nodes: %d\n", r.Nodes)
	if r.Mode == ModeSingle {
		fmt.Fprintf(w, "Mode: %s (worker node %d)\n", r.Mode, r.WorkerNode)
	} else {
		fmt.Fprintf(w, "Mode: %s (%d workers)\n", r.Mode, len(r.Workers))
	}
	fmt.Fprintf(w, "Operation: %s\n", r.Operation)
	fmt.Fprintf(w, "Spinners per remote node: %d\n", r.SpinnersPerNode)
	fmt.Fprintf(w, "Total spinner threads: %d\n", len(r.Spinners))
	fmt.Fprintf(w, "Region size: %d KB\n", r.RegionSizeKB)
	fmt.Fprintf(w, "Iterations: %d\n\n", r.Iterations)
}

// Print writes the human-readable report.
func (r *Report) Print(w io.Writer) {
	r.Header(w)

	for _, wr := range r.Workers {
		pin := ""
		if !wr.Pinned {
			pin = ", unpinned"
		}
		fmt.Fprintf(w, "Worker on node %d (CPU %d%s) completed: %.3f sec, %d ops\n",
			wr.Node, wr.CPU, pin, wr.ElapsedSeconds, wr.Ops)
		if wr.Failure != "" {
			fmt.Fprintf(w, "  mapping failure: %s\n", wr.Failure)
		}
		if wr.Misplaced() {
			fmt.Fprintf(w, "  ran on node %d\n", wr.RunningNode)
		}
		if wr.AddressShifts > 0 {
			fmt.Fprintf(w, "  region moved %d times\n", wr.AddressShifts)
		}
	}

	fmt.Fprintf(w, "\n%s\nRESULTS (%s, %d spinners/node):\n%s\n", ruler, r.Operation, r.SpinnersPerNode, ruler)
	fmt.Fprintf(w, "Total ops: %d\n", r.TotalOps)
	fmt.Fprintf(w, "Wall time: %.3f sec\n", r.WallSeconds)
	fmt.Fprintf(w, "Throughput: %.0f ops/sec\n", r.Throughput)
	fmt.Fprintf(w, "Latency per op: %.2f us\n", r.LatencyUS)
	fmt.Fprintf(w, "Mapping failures: %d\n", r.MappingFailures)
	fmt.Fprintf(w, "Spinners: %d", len(r.Spinners))
	if r.UnpinnedSpinners > 0 {
		fmt.Fprintf(w, " (%d unpinned)", r.UnpinnedSpinners)
	}
	fmt.Fprintf(w, "\n")
	if len(r.SkippedNodes) > 0 {
		fmt.Fprintf(w, "Nodes without CPUs skipped: %s\n", intList(r.SkippedNodes))
	}
	fmt.Fprintf(w, "%s\n", ruler)
}

// JSON writes the report as indented JSON.
func (r *Report) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func intList(ids []int) string {
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, fmt.Sprint(id))
	}
	return strings.Join(strs, ",")
}
