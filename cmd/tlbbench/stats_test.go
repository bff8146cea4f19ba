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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/tlbbench/pkg/procstats"
)

func TestStatsProbeNeedsKernelStatsForReset(t *testing.T) {
	_, err := newStatsProbe(false, "", true)
	require.Error(t, err)
}

func TestStatsProbeKernelStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tlb_stats")
	require.NoError(t, os.WriteFile(path, []byte("flushes: 10\nipis: 4\n"), 0644))

	p, err := newStatsProbe(false, path, false)
	require.NoError(t, err)
	require.NoError(t, p.before())

	require.NoError(t, os.WriteFile(path, []byte("flushes: 25\nipis: 4\n"), 0644))
	require.NoError(t, p.after())
	require.Equal(t, procstats.KernelStats{"flushes": 15, "ipis": 0}, p.kstats)

	out := &bytes.Buffer{}
	p.print(out)
	require.Equal(t, "Kernel statistics ("+path+"):\n  flushes: +15\n  ipis: +0\n", out.String())
}

func TestStatsProbeTLBShootdowns(t *testing.T) {
	p := &statsProbe{tlb: &procstats.InterruptDelta{
		Name:   procstats.TLBShootdownIRQ,
		PerCPU: map[int]uint64{0: 3, 1: 0, 2: 5, 4: 1},
		Total:  9,
	}}

	out := &bytes.Buffer{}
	p.print(out)
	require.Equal(t, "TLB shootdowns: 9 total, on CPUs 0-4:2\n", out.String())
}
