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

package metricsring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestMetricsRing(t *testing.T) {
	cases := []struct {
		name     string
		input    []float64
		output   []float64
		inputlen int
		count    int
	}{
		{
			name:     "get all samples",
			input:    []float64{1.1, 2.2, 3.3, 4.4},
			output:   []float64{1.1, 2.2, 3.3, 4.4},
			inputlen: 4,
			count:    4,
		},
		{
			name:     "get less samples",
			input:    []float64{1.1, 2.2, 3.3, 4.4},
			output:   []float64{3.3, 4.4},
			inputlen: 4,
			count:    2,
		},
		{
			name:     "get excess samples (ask more than ring size)",
			input:    []float64{1.1, 2.2, 3.3, 4.4},
			output:   []float64{1.1, 2.2, 3.3, 4.4},
			inputlen: 4,
			count:    8,
		},
		{
			name:     "get excess samples (ring not yet full)",
			input:    []float64{3.3, 4.4},
			output:   []float64{3.3, 4.4},
			inputlen: 4,
			count:    4,
		},
	}
	for _, tc := range cases {
		test := tc
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			mr := NewMetricsRing(test.inputlen)
			for _, v := range test.input {
				mr.Push(v)
			}
			require.Equal(t, test.output, mr.GetLastNSamples(test.count))
			require.Equal(t, test.input, mr.GetLastNSamples(mr.GetSize()))
		})
	}
}

func TestOverwrite(t *testing.T) {
	mr := NewMetricsRing(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		mr.Push(v)
	}
	require.Equal(t, []float64{3, 4, 5}, mr.GetLastNSamples(3))
	require.Empty(t, NewMetricsRing(3).GetLastNSamples(3))
}

func TestSummary(t *testing.T) {
	mr := NewMetricsRing(4)
	require.Equal(t, Summary{}, mr.Summary())

	for _, v := range []float64{300, 100, 200} {
		mr.Push(v)
	}
	s := mr.Summary()
	require.Equal(t, 3, s.Count)
	require.Equal(t, 200.0, s.Last)
	require.Equal(t, 100.0, s.Min)
	require.Equal(t, 300.0, s.Max)
	require.Equal(t, 200.0, s.Mean)
	require.Greater(t, s.EWMA, 100.0, "short rings average without warm-up")
	require.Less(t, s.EWMA, 300.0)
}

func TestWarmup(t *testing.T) {
	mr := NewMetricsRing(20)
	for i := 0; i < 5; i++ {
		mr.Push(10)
	}
	require.Equal(t, 0.0, mr.EWMA(), "long rings warm up first")
	for i := 0; i < 10; i++ {
		mr.Push(10)
	}
	require.InDelta(t, 10.0, mr.EWMA(), 1e-9)
}

func TestGetTime(t *testing.T) {
	clk := testingclock.NewFakePassiveClock(time.Unix(1000, 0))
	mr := NewMetricsRingWithClock(3, clk)

	require.Equal(t, time.Duration(0), mr.GetTime())
	for i := 0; i < 4; i++ {
		mr.Push(float64(i))
		clk.SetTime(clk.Now().Add(time.Second))
	}
	// samples taken at 1001, 1002 and 1003 remain
	require.Equal(t, 2*time.Second, mr.GetTime())
}
