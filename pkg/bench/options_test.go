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
	"testing"

	"github.com/stretchr/testify/require"

	pkgcfg "github.com/intel/tlbbench/pkg/config"
	"github.com/intel/tlbbench/pkg/testutils"
	"github.com/intel/tlbbench/pkg/workload"
)

func TestValidate(t *testing.T) {
	type testCase struct {
		name       string
		modify     func(*Options)
		errors     int
		substrings []string
	}

	for _, tc := range []testCase{
		{
			name:   "defaults",
			modify: func(*Options) {},
		},
		{
			name:       "bad iterations",
			modify:     func(o *Options) { o.Iterations = 0 },
			errors:     1,
			substrings: []string{"iteration count 0"},
		},
		{
			name: "everything wrong",
			modify: func(o *Options) {
				o.Mode = "sideways"
				o.Operation = workload.Operation(7)
				o.RegionSizeKB = 0
				o.Iterations = -1
				o.SpinnersPerNode = -2
				o.WorkerNode = -1
				o.Repeat = 0
			},
			errors:     7,
			substrings: []string{"sideways", "region size 0", "spinners per node -2", "repeat count 0"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := DefaultOptions()
			tc.modify(&o)
			testutils.VerifyError(t, o.Validate(), tc.errors, tc.substrings)
		})
	}
}

func TestModeFlag(t *testing.T) {
	var m Mode
	require.NoError(t, m.Set("per-node"))
	require.Equal(t, ModePerNode, m)
	require.NoError(t, m.Set("SINGLE"))
	require.Equal(t, ModeSingle, m)
	require.Error(t, m.Set("all"))
	require.Equal(t, "single", m.String())
}

func TestConfigFragment(t *testing.T) {
	require.Equal(t, DefaultOptions(), GetOptions())

	require.NoError(t, pkgcfg.SetYAML([]byte(`
bench:
  mode: per-node
  operation: mmap_full
  iterations: 50
  regionSizeKB: 4
`)))
	o := GetOptions()
	require.Equal(t, ModePerNode, o.Mode)
	require.Equal(t, workload.MmapFull, o.Operation)
	require.Equal(t, 50, o.Iterations)
	require.Equal(t, 4, o.RegionSizeKB)
	require.Equal(t, defaultSpinnersPerNode, o.SpinnersPerNode, "unset values keep their defaults")

	require.Error(t, pkgcfg.SetYAML([]byte("bench:\n  operation: madvise\n")))
	require.Error(t, pkgcfg.SetYAML([]byte("bench:\n  iterations: 0\n  repeat: 0\n")))

	require.NoError(t, pkgcfg.SetYAML([]byte("bench: {}\n")))
	require.Equal(t, DefaultOptions(), GetOptions())

	_, ok := pkgcfg.GetConfig("bench")
	require.True(t, ok)
}
