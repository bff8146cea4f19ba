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

// Package version lets one tag built binaries with version metadata.
//
// Two pieces of metadata are provided:
//   - Version: version number, by convention one provided by 'git describe'
//   - Build:   build id, by convention the git SHA1 the binary has been built from.
//
// Both are set with linker flags, for instance:
//
//	LDFLAGS=-ldflags \
//	  "-X=github.com/intel/tlbbench/pkg/version.Version=<version> \
//	   -X=github.com/intel/tlbbench/pkg/version.Build=<build-id>"
//
// The metadata is also exposed as the tlbbench_build_info metric.
package version

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/tlbbench/pkg/metrics"
)

// Default values of variables we'll override with the linker.
var (
	// Version is our version as given by 'git describe'.
	Version = "unknown"
	// Build is the SHA1 of the repository we've been built from.
	Build = "unknown"
)

// exit is swapped out by tests.
var exit = os.Exit

// PrintVersionInfo prints version information about this binary.
func PrintVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "%s version information:\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(w, "  - version: %s\n", Version)
	fmt.Fprintf(w, "  - build:   %s\n", Build)
	fmt.Fprintf(w, "  - go:      %s\n", runtime.Version())
}

// Dummy struct used to hook into flag.Value.Set of -version during commandline parsing.
type version struct{}

// IsBoolFlag tell flag that we only have optional arguments.
func (version) IsBoolFlag() bool {
	return true
}

// Set is our dummy flag.Value setter.
func (version) Set(value string) error {
	print, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if print {
		PrintVersionInfo(os.Stdout)
		exit(0)
	}
	return nil
}

// String is our dummy flag.Value stringification function.
func (version) String() string {
	return "false"
}

// buildInfo returns a collector for the build metadata.
func buildInfo() (prometheus.Collector, error) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tlbbench_build_info",
		Help: "Version metadata of the benchmark binary.",
		ConstLabels: prometheus.Labels{
			"version":   Version,
			"build":     Build,
			"goversion": runtime.Version(),
		},
	})
	g.Set(1)
	return g, nil
}

// Put in place a '--version' command line option for us.
func init() {
	flag.Var(version{}, "version", "Print version information about "+filepath.Base(os.Args[0]))
	if err := metrics.RegisterCollector("version", buildInfo); err != nil {
		panic(err)
	}
}
