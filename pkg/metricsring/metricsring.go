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

// Package metricsring keeps the most recent samples of a metric together
// with their exponentially weighted moving average.
package metricsring

import (
	"container/ring"
	"math"
	"time"

	"github.com/VividCortex/ewma"
	"k8s.io/utils/clock"
)

// SampleBuffer is a fixed-size buffer of the most recent samples.
type SampleBuffer interface {
	Push(d float64)
	EWMA() float64
	GetTime() time.Duration
	GetSize() int
	GetLastNSamples(count int) []float64
	Summary() Summary
}

// Summary describes the samples currently in a buffer.
type Summary struct {
	Count int     `json:"count"`
	Last  float64 `json:"last"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	EWMA  float64 `json:"ewma"`
}

// MetricsRing implements SampleBuffer on top of a ring.
type MetricsRing struct {
	r     *ring.Ring
	s     int // the count of elements in the ring
	ma    ewma.MovingAverage
	clock clock.PassiveClock
}

type sample struct {
	s         float64
	timestamp time.Time
}

// NewMetricsRing creates a ring of ringlen samples.
func NewMetricsRing(ringlen int) SampleBuffer {
	return NewMetricsRingWithClock(ringlen, clock.RealClock{})
}

// NewMetricsRingWithClock creates a ring which timestamps samples using clk.
func NewMetricsRingWithClock(ringlen int, clk clock.PassiveClock) SampleBuffer {
	if ringlen < 1 {
		ringlen = 1
	}

	// A variable EWMA returns 0 during its warm-up period, which shorter
	// rings would never get past.
	var ma ewma.MovingAverage
	if ringlen < int(ewma.WARMUP_SAMPLES) {
		ma = ewma.NewMovingAverage()
	} else {
		ma = ewma.NewMovingAverage(float64(ringlen))
	}

	return &MetricsRing{
		r:     ring.New(ringlen),
		ma:    ma,
		clock: clk,
	}
}

// GetTime returns the time between the oldest and the newest sample.
func (mr *MetricsRing) GetTime() time.Duration {
	if mr.s < 2 {
		return 0
	}
	newest := mr.r.Prev().Value.(sample).timestamp
	oldest := mr.r.Move(-mr.s).Value.(sample).timestamp
	return newest.Sub(oldest)
}

// EWMA returns the moving average of all samples pushed so far.
func (mr *MetricsRing) EWMA() float64 {
	return mr.ma.Value()
}

// Push adds a sample, replacing the oldest one if the ring is full.
func (mr *MetricsRing) Push(d float64) {
	mr.r.Value = sample{
		s:         d,
		timestamp: mr.clock.Now(),
	}
	mr.ma.Add(d)
	mr.r = mr.r.Next()

	if mr.s < mr.r.Len() {
		mr.s++
	}
}

// GetSize returns the capacity of the ring.
func (mr *MetricsRing) GetSize() int {
	return mr.r.Len()
}

// GetLastNSamples returns the most recent count samples, oldest first.
func (mr *MetricsRing) GetLastNSamples(count int) []float64 {
	n := count
	if n > mr.s {
		n = mr.s
	}

	s := make([]float64, 0, n)
	for r, i := mr.r.Move(-n), 0; i < n; r, i = r.Next(), i+1 {
		s = append(s, r.Value.(sample).s)
	}

	return s
}

// Summary returns a summary of the samples in the ring.
func (mr *MetricsRing) Summary() Summary {
	samples := mr.GetLastNSamples(mr.s)
	sum := Summary{Count: len(samples), EWMA: mr.EWMA()}
	if len(samples) == 0 {
		return sum
	}

	sum.Min, sum.Max = math.Inf(1), math.Inf(-1)
	total := 0.0
	for _, v := range samples {
		sum.Min = math.Min(sum.Min, v)
		sum.Max = math.Max(sum.Max, v)
		total += v
	}
	sum.Mean = total / float64(len(samples))
	sum.Last = samples[len(samples)-1]

	return sum
}
