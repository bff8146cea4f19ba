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

// Package workload implements the timed memory management loops run by
// benchmark workers.
//
// A worker prepares its region, signals readiness, and then runs a fixed
// number of iterations of one Operation. Only the loop itself is timed: the
// clock is read right after the worker is let go and again right before its
// region is released.
package workload

import (
	"fmt"
	"time"

	"k8s.io/utils/clock"

	logger "github.com/intel/tlbbench/pkg/log"
	"github.com/intel/tlbbench/pkg/workload/mman"
)

const (
	// fill pattern of pre-faulted regions
	fillByte = 0xab
	// value written by full-cycle touches
	touchByte = 0xcd
)

var log = logger.NewLogger("workload")

// Context is the state of one worker running a workload. It is owned by the
// worker goroutine.
type Context struct {
	// Node is the NUMA node of the worker, -1 if unknown.
	Node int
	// CPU is the CPU the worker is bound to, -1 if unpinned.
	CPU int
	// Size is the size of the region in bytes, rounded up to pages.
	Size int
	// Iterations is the number of loop iterations to run.
	Iterations int
	// Mapper performs the mapping operations.
	Mapper mman.Mapper
	// Clock is used for timing the loop.
	Clock clock.PassiveClock

	region mman.Region
	mapped bool
	ops    uint64
	shifts int
}

// NewContext creates a worker context using the OS mapper and the real clock.
func NewContext(node, cpu, sizeKB, iterations int) *Context {
	return &Context{
		Node:       node,
		CPU:        cpu,
		Size:       sizeKB * 1024,
		Iterations: iterations,
		Mapper:     mman.OS(),
		Clock:      clock.RealClock{},
	}
}

// Result is the outcome of running a workload.
type Result struct {
	Operation     Operation     `json:"operation"`
	Node          int           `json:"node"`
	CPU           int           `json:"cpu"`
	Ops           uint64        `json:"ops"`
	Elapsed       time.Duration `json:"elapsed"`
	AddressShifts int           `json:"addressShifts,omitempty"`
	Err           error         `json:"-"`
}

// Seconds returns the elapsed time in seconds.
func (r *Result) Seconds() float64 {
	return r.Elapsed.Seconds()
}

// Latency returns the average time of one operation, 0 if nothing was done.
func (r *Result) Latency() time.Duration {
	if r.Ops == 0 || r.Elapsed <= 0 {
		return 0
	}
	return time.Duration(float64(r.Elapsed) / float64(r.Ops))
}

// Throughput returns operations per second, 0 if nothing was measured.
func (r *Result) Throughput() float64 {
	if r.Ops == 0 || r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// Failed returns true if the workload was cut short by a mapping failure.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// MappingFailure is a failed mapping operation. It cuts the loop short but
// the partial result stays valid.
type MappingFailure struct {
	// Call is the failed call (mmap, mprotect, munmap, touch, fill).
	Call string
	// Iteration is the loop iteration of the failure, -1 during preparation.
	Iteration int
	// Region, if known, is the region the call was made on.
	Region mman.Region
	Err    error
}

func (f *MappingFailure) Error() string {
	where := "preparation"
	if f.Iteration >= 0 {
		where = fmt.Sprintf("iteration %d", f.Iteration)
	}
	if f.Region.Size > 0 {
		return fmt.Sprintf("%s of %s failed in %s: %v", f.Call, f.Region, where, f.Err)
	}
	return fmt.Sprintf("%s failed in %s: %v", f.Call, where, f.Err)
}

func (f *MappingFailure) Unwrap() error {
	return f.Err
}

// Executor runs one kind of workload.
type Executor interface {
	// Operation returns the operation the executor measures.
	Operation() Operation
	// Run prepares the workload, calls ready (which is expected to block until
	// the worker is let go), runs the timed loop, and releases all resources.
	// A nil ready is not called.
	Run(ctx *Context, ready func()) Result
}

// NewExecutor returns the Executor for the operation.
func NewExecutor(op Operation) (Executor, error) {
	switch op {
	case Mprotect:
		return &toggleExecutor{}, nil
	case Munmap:
		return &remapExecutor{}, nil
	case MmapFull:
		return &cycleExecutor{}, nil
	}
	return nil, workloadError("no executor for %s", op)
}

type looper interface {
	prepare(ctx *Context) *MappingFailure
	iterate(ctx *Context, i int) *MappingFailure
	release(ctx *Context)
}

// run is the timing skeleton shared by all executors.
func run(op Operation, l looper, ctx *Context, ready func()) Result {
	res := Result{Operation: op, Node: ctx.Node, CPU: ctx.CPU}
	if ctx.Clock == nil {
		ctx.Clock = clock.RealClock{}
	}
	ctx.Size = mman.RoundToPages(ctx.Size, ctx.Mapper.PageSize())
	ctx.ops, ctx.shifts = 0, 0

	failure := l.prepare(ctx)

	if ready != nil {
		ready()
	}

	if failure == nil {
		start := ctx.Clock.Now()
		for i := 0; i < ctx.Iterations; i++ {
			if failure = l.iterate(ctx, i); failure != nil {
				break
			}
		}
		res.Elapsed = ctx.Clock.Since(start)
	}

	l.release(ctx)

	res.Ops = ctx.ops
	res.AddressShifts = ctx.shifts
	if failure != nil {
		log.Error("%s worker on CPU #%d: %v (%d ops done)", op, ctx.CPU, failure, res.Ops)
		res.Err = failure
	}
	if res.AddressShifts > 0 {
		log.Warn("%s worker on CPU #%d: region moved %d times during remap",
			op, ctx.CPU, res.AddressShifts)
	}

	return res
}

// prepareRegion maps and pre-faults the region of the context.
func prepareRegion(ctx *Context) *MappingFailure {
	r, err := ctx.Mapper.Map(0, ctx.Size)
	if err != nil {
		return &MappingFailure{Call: mman.OpMap, Iteration: -1, Err: err}
	}
	ctx.region, ctx.mapped = r, true
	if err := ctx.Mapper.Fill(r, fillByte); err != nil {
		return &MappingFailure{Call: mman.OpFill, Iteration: -1, Region: r, Err: err}
	}
	return nil
}

// releaseRegion unmaps the region of the context if it is mapped.
func releaseRegion(ctx *Context) {
	if !ctx.mapped {
		return
	}
	if err := ctx.Mapper.Unmap(ctx.region); err != nil {
		log.Error("failed to release region %s: %v", ctx.region, err)
	}
	ctx.mapped = false
}
