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
	"errors"
	"flag"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// envMainArgs makes the test binary run main with the given arguments.
const envMainArgs = "TLBBENCH_TEST_MAIN_ARGS"

func TestMain(m *testing.M) {
	if args, ok := os.LookupEnv(envMainArgs); ok {
		os.Args = append([]string{os.Args[0]}, strings.Fields(args)...)
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestParseCommandLine(t *testing.T) {
	flag.CommandLine.SetOutput(io.Discard)
	defer flag.CommandLine.SetOutput(nil)

	type testCase struct {
		name string
		args []string
		exit int
	}

	for _, tc := range []testCase{
		{name: "unknown operation", args: []string{"-o", "bogus"}, exit: 1},
		{name: "unknown long operation", args: []string{"-operation", "mmap"}, exit: 1},
		{name: "malformed iterations", args: []string{"-iterations", "notanint"}, exit: 1},
		{name: "unknown mode", args: []string{"-mode", "all-nodes"}, exit: 1},
		{name: "unknown flag", args: []string{"-no-such-flag"}, exit: 1},
		{name: "help", args: []string{"-h"}, exit: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := parseCommandLine(tc.args)
			require.Error(t, err)
			require.Equal(t, tc.exit, exitCode(err))
		})
	}
}

func TestExitCodes(t *testing.T) {
	type testCase struct {
		name string
		args string
		exit int
	}

	for _, tc := range []testCase{
		{name: "unknown operation", args: "-o bogus -pid-file=", exit: 1},
		{name: "malformed iterations", args: "-iterations notanint -pid-file=", exit: 1},
		{name: "stray argument", args: "-pid-file= extra", exit: 1},
		{name: "help", args: "-help", exit: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cmd := exec.Command(os.Args[0], "-test.run=^$")
			cmd.Env = append(os.Environ(), envMainArgs+"="+tc.args)
			err := cmd.Run()

			if tc.exit == 0 {
				require.NoError(t, err)
				return
			}
			var exitErr *exec.ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			require.Equal(t, tc.exit, exitErr.ExitCode())
		})
	}
}
