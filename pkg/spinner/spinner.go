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

// Package spinner generates cross-node interference with busy-spinning
// threads pinned to CPUs of the NUMA nodes not hosting a worker.
package spinner

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/intel/tlbbench/pkg/affinity"
	"github.com/intel/tlbbench/pkg/barrier"
	logger "github.com/intel/tlbbench/pkg/log"
	"github.com/intel/tlbbench/pkg/spin"
	"github.com/intel/tlbbench/pkg/sysfs"
)

var log = logger.NewLogger("spinner")

// Slot is the placement of a single spinner.
type Slot struct {
	// Node is the NUMA node of the spinner.
	Node int `json:"node"`
	// Index is the index of the CPU within the node.
	Index int `json:"index"`
	// CPU is the CPU the spinner is bound to.
	CPU int `json:"cpu"`
}

// Plan places perNode spinners on each node of the topology that is not in
// workerNodes, on the first perNode CPUs of the node. Slots beyond the CPUs of
// a node are skipped.
func Plan(topo sysfs.Topology, workerNodes []int, perNode int) ([]Slot, error) {
	workers := map[int]struct{}{}
	for _, node := range workerNodes {
		workers[node] = struct{}{}
	}

	slots := []Slot{}
	for _, node := range topo.NodeIDs() {
		if _, ok := workers[node]; ok {
			continue
		}
		for idx := 0; idx < perNode; idx++ {
			cpu, err := topo.CPUForNode(node, idx)
			if err != nil {
				if errors.Is(err, sysfs.ErrNotFound) {
					log.Info("node #%d: no CPU for spinner #%d, skipping remaining %d slot(s)",
						node, idx, perNode-idx)
					break
				}
				return nil, err
			}
			slots = append(slots, Slot{Node: node, Index: idx, CPU: cpu})
		}
	}

	return slots, nil
}

// Spinner is a running or finished spinner.
type Spinner struct {
	Slot
	// Pinned tells if the spinner could be bound to its CPU.
	Pinned bool
	// Count is the number of loop iterations done, valid after Join.
	Count uint64
}

// Pool is a set of spinners.
type Pool struct {
	binder   affinity.Binder
	spinners []*Spinner
	wg       sync.WaitGroup
	unpinned atomic.Int32
	started  bool
}

// NewPool creates a pool for the given slots.
func NewPool(binder affinity.Binder, slots []Slot) *Pool {
	p := &Pool{binder: binder}
	for _, s := range slots {
		p.spinners = append(p.spinners, &Spinner{Slot: s})
	}
	return p
}

// Size returns the number of spinners in the pool.
func (p *Pool) Size() int {
	return len(p.spinners)
}

// Start launches one goroutine per spinner. Each spinner binds itself to its
// CPU, gets ready on the barrier, and spins until the barrier is stopped.
func (p *Pool) Start(b *barrier.Barrier) {
	if p.started {
		log.Panic("pool already started")
	}
	p.started = true

	for _, s := range p.spinners {
		p.wg.Add(1)
		go p.spin(s, b)
	}
	log.Debug("started %d spinner(s)", len(p.spinners))
}

func (p *Pool) spin(s *Spinner, b *barrier.Barrier) {
	defer p.wg.Done()

	if err := affinity.BindCurrentThreadToCPU(p.binder, s.CPU); err != nil {
		p.unpinned.Add(1)
	} else {
		s.Pinned = true
	}

	b.Ready()

	count := uint64(0)
	for !b.Stopped() {
		count++
		spin.Pause()
	}
	s.Count = count
}

// Join waits for all spinners to finish. The barrier must have been stopped.
func (p *Pool) Join() {
	p.wg.Wait()
}

// Unpinned returns the number of spinners which could not be bound to their CPU.
func (p *Pool) Unpinned() int {
	return int(p.unpinned.Load())
}

// Spinners returns the spinners of the pool. Their counts are valid after Join.
func (p *Pool) Spinners() []Spinner {
	spinners := make([]Spinner, 0, len(p.spinners))
	for _, s := range p.spinners {
		spinners = append(spinners, *s)
	}
	return spinners
}

// Counts returns the per-spinner loop counts, valid after Join.
func (p *Pool) Counts() []uint64 {
	counts := make([]uint64, 0, len(p.spinners))
	for _, s := range p.spinners {
		counts = append(counts, s.Count)
	}
	return counts
}
