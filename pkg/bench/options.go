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
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	pkgcfg "github.com/intel/tlbbench/pkg/config"
	"github.com/intel/tlbbench/pkg/workload"
)

// Mode is the placement mode of workers.
type Mode string

const (
	// ModeSingle runs one worker on the worker node, spinners on all other nodes.
	ModeSingle Mode = "single"
	// ModePerNode runs one worker on every NUMA node.
	ModePerNode Mode = "per-node"
)

// Set implements flag.Value.
func (m *Mode) Set(value string) error {
	switch mode := Mode(strings.ToLower(value)); mode {
	case ModeSingle, ModePerNode:
		*m = mode
		return nil
	}
	return benchError("invalid mode %q, expected %s or %s", value, ModeSingle, ModePerNode)
}

// String implements flag.Value.
func (m Mode) String() string {
	return string(m)
}

const (
	// configModule is our path in the configuration.
	configModule = "bench"

	defaultMode            = ModeSingle
	defaultOperation       = workload.Mprotect
	defaultRegionSizeKB    = 64
	defaultIterations      = 10000
	defaultSpinnersPerNode = 8
	defaultWorkerNode      = 0
	defaultRepeat          = 1
)

// Options are the parameters of a benchmark run.
type Options struct {
	// Mode is the worker placement mode.
	Mode Mode `json:"mode"`
	// Operation is the measured memory management operation.
	Operation workload.Operation `json:"operation"`
	// RegionSizeKB is the size of the worker memory regions in kilobytes.
	RegionSizeKB int `json:"regionSizeKB"`
	// Iterations is the number of loop iterations per worker.
	Iterations int `json:"iterations"`
	// SpinnersPerNode is the number of spinners on each node without a worker.
	SpinnersPerNode int `json:"spinnersPerNode"`
	// WorkerNode is the node of the worker in single mode.
	WorkerNode int `json:"workerNode"`
	// Repeat is the number of times the whole benchmark is run.
	Repeat int `json:"repeat"`
}

// Command line values, used as the defaults of the configuration fragment.
var defaults = &Options{}

// Active options, from the command line and an optional configuration file.
var opt = &Options{}

// DefaultOptions returns the built-in default options.
func DefaultOptions() Options {
	return Options{
		Mode:            defaultMode,
		Operation:       defaultOperation,
		RegionSizeKB:    defaultRegionSizeKB,
		Iterations:      defaultIterations,
		SpinnersPerNode: defaultSpinnersPerNode,
		WorkerNode:      defaultWorkerNode,
		Repeat:          defaultRepeat,
	}
}

// GetOptions returns the active options.
func GetOptions() Options {
	return *opt
}

// Reset resets the options to the command line values.
func (o *Options) Reset() {
	*o = *defaults
}

// Describe describes the bench configuration fragment.
func (*Options) Describe() string {
	return fmt.Sprintf(`Benchmark parameters.
  mode: worker placement, %s or %s
  operation: measured operation, one of %s
  regionSizeKB: size of the worker memory region in KB
  iterations: number of iterations per worker
  spinnersPerNode: spinners on every node without a worker (single mode)
  workerNode: NUMA node of the worker (single mode)
  repeat: number of times to run the benchmark`,
		ModeSingle, ModePerNode, strings.Join(workload.OperationNames(), ", "))
}

// Validate checks the options, reporting every invalid one.
func (o *Options) Validate() error {
	var errs *multierror.Error

	if o.Mode != ModeSingle && o.Mode != ModePerNode {
		errs = multierror.Append(errs, benchError("invalid mode %q", o.Mode))
	}
	if _, err := o.Operation.MarshalText(); err != nil {
		errs = multierror.Append(errs, benchError("invalid operation: %v", err))
	}
	if o.RegionSizeKB < 1 {
		errs = multierror.Append(errs, benchError("invalid region size %d KB", o.RegionSizeKB))
	}
	if o.Iterations < 1 {
		errs = multierror.Append(errs, benchError("invalid iteration count %d", o.Iterations))
	}
	if o.SpinnersPerNode < 0 {
		errs = multierror.Append(errs, benchError("invalid spinners per node %d", o.SpinnersPerNode))
	}
	if o.WorkerNode < 0 {
		errs = multierror.Append(errs, benchError("invalid worker node %d", o.WorkerNode))
	}
	if o.Repeat < 1 {
		errs = multierror.Append(errs, benchError("invalid repeat count %d", o.Repeat))
	}

	return errs.ErrorOrNil()
}

// Register us for command line parsing and configuration handling.
func init() {
	*defaults = DefaultOptions()

	flag.Var(&defaults.Mode, "mode",
		"worker placement: 'single' for one worker on -worker-node with spinners on\n"+
			"all other nodes, 'per-node' for one worker on every NUMA node")
	flag.Var(&defaults.Operation, "operation",
		"operation to measure: "+strings.Join(workload.OperationNames(), ", "))
	flag.Var(&defaults.Operation, "o", "shorthand for -operation")
	flag.IntVar(&defaults.SpinnersPerNode, "spinners", defaultSpinnersPerNode,
		"number of spinners per remote NUMA node")
	flag.IntVar(&defaults.SpinnersPerNode, "s", defaultSpinnersPerNode, "shorthand for -spinners")
	flag.IntVar(&defaults.RegionSizeKB, "size", defaultRegionSizeKB, "memory region size in KB")
	flag.IntVar(&defaults.Iterations, "iterations", defaultIterations, "iterations per worker")
	flag.IntVar(&defaults.WorkerNode, "worker-node", defaultWorkerNode, "NUMA node of the worker in single mode")
	flag.IntVar(&defaults.Repeat, "repeat", defaultRepeat, "number of times to run the benchmark")

	if err := pkgcfg.Register(configModule, opt); err != nil {
		panic(err)
	}
}

func benchError(format string, args ...interface{}) error {
	return fmt.Errorf("bench: "+format, args...)
}
