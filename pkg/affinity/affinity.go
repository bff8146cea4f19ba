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

// Package affinity pins the calling goroutine's OS thread to a CPU.
//
// Pinning is best effort. A failure is logged and reported back as an
// *Failure, but the caller is expected to carry on unpinned.
package affinity

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	logger "github.com/intel/tlbbench/pkg/log"
	"github.com/intel/tlbbench/pkg/sysfs"
)

// Binder restricts the calling OS thread to a single CPU.
type Binder interface {
	// BindCurrentThread binds the calling OS thread to cpu.
	BindCurrentThread(cpu int) error
}

// ErrUnsupported is returned by the OS Binder on platforms without thread affinity.
var ErrUnsupported = errors.New("thread affinity not supported on this platform")

// Failure describes a failed attempt to bind a thread.
type Failure struct {
	CPU  int
	Node int
	Err  error
}

func (f *Failure) Error() string {
	if f.Node >= 0 {
		return fmt.Sprintf("failed to bind thread to CPU #%d (node #%d): %v", f.CPU, f.Node, f.Err)
	}
	return fmt.Sprintf("failed to bind thread to CPU #%d: %v", f.CPU, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

var log = logger.RateLimit(logger.NewLogger("affinity"), logger.Interval(5*time.Second))

// OS returns the Binder backed by the operating system scheduler.
func OS() Binder {
	return osBinder{}
}

// BindCurrentThreadToCPU locks the calling goroutine to its OS thread and binds
// the thread to cpu. The goroutine stays locked to the thread even if binding
// fails, so the thread identity of the caller stays stable.
func BindCurrentThreadToCPU(b Binder, cpu int) error {
	return bind(b, cpu, -1)
}

// BindCurrentThreadToNodeFirstCPU binds the calling thread to the first CPU of node.
func BindCurrentThreadToNodeFirstCPU(b Binder, topo sysfs.Topology, node int) (int, error) {
	cpu, err := topo.CPUForNode(node, 0)
	if err != nil {
		runtime.LockOSThread()
		f := &Failure{CPU: -1, Node: node, Err: err}
		log.Warn("%v, running unpinned", f)
		return -1, f
	}
	return cpu, bind(b, cpu, node)
}

func bind(b Binder, cpu, node int) error {
	runtime.LockOSThread()

	if err := b.BindCurrentThread(cpu); err != nil {
		f := &Failure{CPU: cpu, Node: node, Err: err}
		log.Warn("%v, running unpinned", f)
		return f
	}

	log.Debug("bound thread to CPU #%d", cpu)
	return nil
}
