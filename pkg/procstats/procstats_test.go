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

package procstats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const interruptsBefore = `           CPU0       CPU1       CPU2       CPU3
  0:         35          0          0          0   IO-APIC   2-edge      timer
NMI:         10         11         12         13   Non-maskable interrupts
TLB:       1000       2000       3000       4000   TLB shootdowns
ERR:          0
MIS:          0
`

const interruptsAfter = `           CPU0       CPU1       CPU2       CPU3
  0:         35          0          0          0   IO-APIC   2-edge      timer
NMI:         10         11         12         13   Non-maskable interrupts
TLB:       1500       2000       3100       4007   TLB shootdowns
ERR:          0
MIS:          0
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadInterrupts(t *testing.T) {
	irqs, err := ReadInterruptsFrom(writeFile(t, "interrupts", interruptsBefore))
	require.NoError(t, err)

	require.Equal(t, []int{0, 1, 2, 3}, irqs.CPUs)
	require.Equal(t, []uint64{1000, 2000, 3000, 4000}, irqs.Counts["TLB"])
	require.Equal(t, "TLB shootdowns", irqs.Descriptions["TLB"])
	require.Equal(t, "IO-APIC 2-edge timer", irqs.Descriptions["0"])
	require.Equal(t, []uint64{0}, irqs.Counts["ERR"])

	_, err = ReadInterruptsFrom(writeFile(t, "bad", "IRQ0 IRQ1\n"))
	require.Error(t, err)
	_, err = ReadInterruptsFrom(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestTLBShootdowns(t *testing.T) {
	before, err := ReadInterruptsFrom(writeFile(t, "before", interruptsBefore))
	require.NoError(t, err)
	after, err := ReadInterruptsFrom(writeFile(t, "after", interruptsAfter))
	require.NoError(t, err)

	d, err := TLBShootdowns(before, after)
	require.NoError(t, err)
	require.Equal(t, map[int]uint64{0: 500, 1: 0, 2: 100, 3: 7}, d.PerCPU)
	require.Equal(t, uint64(607), d.Total)
	require.Equal(t, []int{0, 1, 2, 3}, d.SortedCPUs())

	_, err = Delta(before, after, "LOC")
	require.Error(t, err)
}

func TestKernelStats(t *testing.T) {
	path := writeFile(t, "stats", `# shootdown statistics
ipis_sent: 100
ipis_avoided 40
flushes: 0x10
not a counter line
`)
	before, err := ReadKernelStats(path)
	require.NoError(t, err)
	require.Equal(t, KernelStats{"ipis_sent": 100, "ipis_avoided": 40, "flushes": 16}, before)

	after := KernelStats{"ipis_sent": 150, "ipis_avoided": 40, "flushes": 20, "new": 3}
	require.Equal(t, KernelStats{"ipis_sent": 50, "ipis_avoided": 0, "flushes": 4, "new": 3},
		after.Delta(before))
	require.Equal(t, "flushes: 16\nipis_avoided: 40\nipis_sent: 100", before.String())

	require.NoError(t, ResetKernelStats(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "0\n"))

	require.Error(t, ResetKernelStats(filepath.Join(t.TempDir(), "missing")))
}

func TestCollector(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)

	RecordTLBShootdowns(&InterruptDelta{Name: "TLB", PerCPU: map[int]uint64{0: 5, 1: 7}, Total: 12})
	RecordKernelStats(KernelStats{"ipis_sent": 9})
	defer RecordTLBShootdowns(nil)
	defer RecordKernelStats(nil)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP tlbbench_kernel_stat_delta Change of a kernel statistics counter during the benchmark.
# TYPE tlbbench_kernel_stat_delta gauge
tlbbench_kernel_stat_delta{counter="ipis_sent"} 9
# HELP tlbbench_tlb_shootdowns_total TLB shootdown interrupts received by a CPU during the benchmark.
# TYPE tlbbench_tlb_shootdowns_total counter
tlbbench_tlb_shootdowns_total{cpu="0"} 5
tlbbench_tlb_shootdowns_total{cpu="1"} 7
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
}
