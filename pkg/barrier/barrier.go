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

// Package barrier implements the two-phase start barrier and stop flag
// shared by benchmark participants and their coordinator.
//
// Participants arrive at the barrier and spin until the coordinator
// releases it. The coordinator spins until every expected participant has
// arrived before releasing, so no participant can observe the release
// before the last one has arrived. A separate stop flag tells long-running
// participants when to finish.
//
// There is no timeout: a participant that never arrives makes WaitReady
// spin forever.
package barrier

import (
	"fmt"
	"sync/atomic"

	"github.com/intel/tlbbench/pkg/spin"
)

// Barrier is the state shared across all participants of a run.
type Barrier struct {
	expected atomic.Int32
	arrived  atomic.Int32
	released atomic.Bool
	stopped  atomic.Bool
}

// New creates a barrier for the given number of participants.
func New(expected int) *Barrier {
	if expected < 0 {
		panic(fmt.Sprintf("barrier: invalid participant count %d", expected))
	}
	b := &Barrier{}
	b.expected.Store(int32(expected))
	return b
}

// Discount lowers the expected participant count by n, for participants
// that setup decided to skip. It must be called before Release.
func (b *Barrier) Discount(n int) {
	if b.released.Load() {
		panic("barrier: Discount after Release")
	}
	if left := b.expected.Add(-int32(n)); left < 0 {
		panic(fmt.Sprintf("barrier: discounted below zero participants (%d)", left))
	}
}

// Expected returns the number of participants the barrier waits for.
func (b *Barrier) Expected() int {
	return int(b.expected.Load())
}

// Arrived returns the number of participants that have arrived so far.
func (b *Barrier) Arrived() int {
	return int(b.arrived.Load())
}

// Arrive records the arrival of one participant. Each participant must
// arrive exactly once.
func (b *Barrier) Arrive() {
	if n, max := b.arrived.Add(1), b.expected.Load(); n > max {
		panic(fmt.Sprintf("barrier: %d participants arrived, only %d expected", n, max))
	}
}

// AwaitGo spins until the barrier is released.
func (b *Barrier) AwaitGo() {
	spin.Until(b.released.Load)
}

// Ready arrives at the barrier then spins until it is released.
func (b *Barrier) Ready() {
	b.Arrive()
	b.AwaitGo()
}

// IsReady returns true once all expected participants have arrived.
func (b *Barrier) IsReady() bool {
	return b.arrived.Load() >= b.expected.Load()
}

// WaitReady spins until all expected participants have arrived.
func (b *Barrier) WaitReady() {
	spin.Until(b.IsReady)
}

// Release lets all participants proceed. It panics if called before every
// expected participant has arrived.
func (b *Barrier) Release() {
	if !b.IsReady() {
		panic(fmt.Sprintf("barrier: Release with %d of %d participants arrived",
			b.Arrived(), b.Expected()))
	}
	b.released.Store(true)
}

// Released returns true once the barrier has been released.
func (b *Barrier) Released() bool {
	return b.released.Load()
}

// Stop sets the stop flag. It panics if the barrier has not been released.
func (b *Barrier) Stop() {
	if !b.released.Load() {
		panic("barrier: Stop before Release")
	}
	b.stopped.Store(true)
}

// Stopped returns true once the stop flag has been set.
func (b *Barrier) Stopped() bool {
	return b.stopped.Load()
}
