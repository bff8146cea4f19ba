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

package version

import (
	"bytes"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrintVersionInfo(t *testing.T) {
	Version, Build = "v0.1.0", "abcdef"
	defer func() { Version, Build = "unknown", "unknown" }()

	buf := &bytes.Buffer{}
	PrintVersionInfo(buf)
	require.Contains(t, buf.String(), "  - version: v0.1.0\n")
	require.Contains(t, buf.String(), "  - build:   abcdef\n")
}

func TestVersionFlag(t *testing.T) {
	status := -1
	exit = func(code int) { status = code }
	defer func() { exit = os.Exit }()

	v := version{}
	require.NoError(t, v.Set("false"))
	require.Equal(t, -1, status)
	require.Error(t, v.Set("maybe"))
	require.NoError(t, v.Set("true"))
	require.Equal(t, 0, status)
}

func TestBuildInfo(t *testing.T) {
	c, err := buildInfo()
	require.NoError(t, err)
	require.Equal(t, 1, testutil.CollectAndCount(c, "tlbbench_build_info"))
	require.Equal(t, 1.0, testutil.ToFloat64(c))
}
