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

// Package bench coordinates a benchmark run: it places workers and spinners
// on the NUMA topology, releases them together through a barrier, and
// aggregates the timed results of the workers.
package bench

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/intel/tlbbench/pkg/affinity"
	"github.com/intel/tlbbench/pkg/barrier"
	logger "github.com/intel/tlbbench/pkg/log"
	"github.com/intel/tlbbench/pkg/spinner"
	"github.com/intel/tlbbench/pkg/sysfs"
	"github.com/intel/tlbbench/pkg/workload"
	"github.com/intel/tlbbench/pkg/workload/mman"
)

var log = logger.NewLogger("bench")

// Harness runs benchmarks with a fixed set of options.
type Harness struct {
	opts   Options
	topo   sysfs.Topology
	binder affinity.Binder
	mapper mman.Mapper
	clock  clock.PassiveClock
	locate func() (cpu, node int)
	exec   workload.Executor
}

// Option is an option for a Harness.
type Option func(*Harness)

// WithTopology makes the harness use the given topology instead of discovering it.
func WithTopology(topo sysfs.Topology) Option {
	return func(h *Harness) { h.topo = topo }
}

// WithBinder makes the harness bind participants using the given Binder.
func WithBinder(b affinity.Binder) Option {
	return func(h *Harness) { h.binder = b }
}

// WithMapper makes the workers use the given Mapper.
func WithMapper(m mman.Mapper) Option {
	return func(h *Harness) { h.mapper = m }
}

// WithClock makes the workers use the given clock for timing.
func WithClock(c clock.PassiveClock) Option {
	return func(h *Harness) { h.clock = c }
}

// WithLocator makes pinned workers look up the CPU and node they run on
// using the given function instead of asking the kernel.
func WithLocator(fn func() (cpu, node int)) Option {
	return func(h *Harness) { h.locate = fn }
}

// New creates a harness. Any error returned is a setup failure.
func New(opts Options, options ...Option) (*Harness, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	h := &Harness{opts: opts}
	for _, o := range options {
		o(h)
	}

	if h.topo == nil {
		sys, err := sysfs.DiscoverSystem()
		if err != nil {
			return nil, errors.Wrap(err, "bench: NUMA topology discovery failed")
		}
		h.topo = sys
	}
	if h.binder == nil {
		h.binder = affinity.OS()
	}
	if h.mapper == nil {
		h.mapper = mman.OS()
	}
	if h.clock == nil {
		h.clock = clock.RealClock{}
	}
	if h.locate == nil {
		h.locate = sysfs.CurrentCPUAndNode
	}

	exec, err := workload.NewExecutor(opts.Operation)
	if err != nil {
		return nil, err
	}
	h.exec = exec

	if opts.Mode == ModeSingle {
		if _, err := h.topo.NodeCPUs(opts.WorkerNode); err != nil {
			return nil, errors.Wrapf(err, "bench: invalid worker node %d (nodes %s)",
				opts.WorkerNode, intList(h.topo.NodeIDs()))
		}
	}
	if opts.Mode == ModePerNode && opts.SpinnersPerNode > 0 {
		log.Warn("per-node mode leaves no remote nodes, ignoring %d spinners per node",
			opts.SpinnersPerNode)
	}

	return h, nil
}

// Options returns the options of the harness.
func (h *Harness) Options() Options {
	return h.opts
}

// Topology returns the topology used by the harness.
func (h *Harness) Topology() sysfs.Topology {
	return h.topo
}

// workerNodes returns the nodes to run workers on.
func (h *Harness) workerNodes() []int {
	if h.opts.Mode == ModePerNode {
		return h.topo.NodeIDs()
	}
	return []int{h.opts.WorkerNode}
}

// spinnerSlots returns the spinner placement for the given worker nodes.
func (h *Harness) spinnerSlots(workerNodes []int) ([]spinner.Slot, error) {
	if h.opts.Mode == ModePerNode {
		return []spinner.Slot{}, nil
	}
	return spinner.Plan(h.topo, workerNodes, h.opts.SpinnersPerNode)
}

// Run runs the benchmark once. Mapping and affinity failures are recorded in
// the report; the returned error is a setup failure.
func (h *Harness) Run() (*Report, error) {
	nodes := h.workerNodes()
	slots, err := h.spinnerSlots(nodes)
	if err != nil {
		return nil, errors.Wrap(err, "bench: failed to place spinners")
	}

	rpt := &Report{
		Operation:       h.opts.Operation,
		Mode:            h.opts.Mode,
		Nodes:           h.topo.NodeCount(),
		RegionSizeKB:    h.opts.RegionSizeKB,
		Iterations:      h.opts.Iterations,
		SpinnersPerNode: h.opts.SpinnersPerNode,
		Spinners:        slots,
	}
	if h.opts.Mode == ModeSingle {
		rpt.WorkerNode = h.opts.WorkerNode
	}

	participants := len(nodes) + len(slots)
	bar := barrier.New(participants)

	// In per-node mode nodes without CPUs (memory-only nodes) get no worker.
	workers := make([]int, 0, len(nodes))
	for _, node := range nodes {
		if cpus, _ := h.topo.NodeCPUs(node); len(cpus) == 0 && h.opts.Mode == ModePerNode {
			log.Warn("node #%d has no CPUs, not running a worker on it", node)
			rpt.SkippedNodes = append(rpt.SkippedNodes, node)
			bar.Discount(1)
			participants--
			continue
		}
		workers = append(workers, node)
	}
	if len(workers) == 0 {
		return nil, benchError("no NUMA node with CPUs to run workers on")
	}

	if procs := runtime.GOMAXPROCS(0); procs < participants+1 {
		log.Debug("raising GOMAXPROCS from %d to %d", procs, participants+1)
		defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(participants + 1))
	}

	log.Info("starting %d %s(s) and %d %s(s) for %s", len(workers), RoleWorker,
		len(slots), RoleSpinner, h.opts.Operation)

	pool := spinner.NewPool(h.binder, slots)
	pool.Start(bar)

	var (
		wg      sync.WaitGroup
		results = make([]workload.Result, len(workers))
		pinned  = make([]bool, len(workers))
		running = make([]int, len(workers))
	)
	for i, node := range workers {
		wg.Add(1)
		go func(i, node int) {
			defer wg.Done()
			cpu, err := affinity.BindCurrentThreadToNodeFirstCPU(h.binder, h.topo, node)
			pinned[i] = err == nil
			running[i] = -1
			if pinned[i] {
				_, running[i] = h.locate()
				if running[i] >= 0 && running[i] != node {
					log.Warn("worker pinned to CPU #%d of node #%d runs on node #%d",
						cpu, node, running[i])
				}
			}
			ctx := &workload.Context{
				Node:       node,
				CPU:        cpu,
				Size:       h.opts.RegionSizeKB * 1024,
				Iterations: h.opts.Iterations,
				Mapper:     h.mapper,
				Clock:      h.clock,
			}
			results[i] = h.exec.Run(ctx, bar.Ready)
		}(i, node)
	}

	bar.WaitReady()
	log.Info("all threads ready (%d spinners + %d workers), starting benchmark",
		len(slots), len(workers))
	bar.Release()

	wg.Wait()
	bar.Stop()
	pool.Join()

	rpt.Results = results
	rpt.Summary = Aggregate(results)
	for i := range results {
		wr := workerReport(&results[i], pinned[i], running[i])
		rpt.Workers = append(rpt.Workers, wr)
		if !pinned[i] {
			rpt.UnpinnedWorkers++
		}
		if wr.Misplaced() {
			rpt.MisplacedWorkers++
		}
	}
	rpt.SpinCounts = pool.Counts()
	rpt.UnpinnedSpinners = pool.Unpinned()

	log.Info("%s: %d ops in %.3f sec, %.0f ops/sec", h.opts.Operation,
		rpt.TotalOps, rpt.WallSeconds, rpt.Throughput)

	return rpt, nil
}
