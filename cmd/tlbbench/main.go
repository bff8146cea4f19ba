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
	"fmt"
	"os"
	"syscall"

	"github.com/intel/tlbbench/pkg/bench"
	pkgcfg "github.com/intel/tlbbench/pkg/config"
	logger "github.com/intel/tlbbench/pkg/log"
	_ "github.com/intel/tlbbench/pkg/log/klogcontrol"
	"github.com/intel/tlbbench/pkg/metrics"
	_ "github.com/intel/tlbbench/pkg/metrics/register"
	"github.com/intel/tlbbench/pkg/pidfile"
	_ "github.com/intel/tlbbench/pkg/version"
)

var log = logger.NewLogger("tlbbench")

// command line options not part of the benchmark configuration
var (
	optConfig           = flag.String("config", "", "YAML configuration file to use")
	optConfigHelp       = flag.Bool("config-help", false, "describe the configuration file and exit")
	optMetricsFile      = flag.String("metrics-file", "", "write metrics to FILE in the prometheus text format")
	optIRQStats         = flag.Bool("irq-stats", false, "report TLB shootdown interrupts from /proc/interrupts")
	optKernelStats      = flag.String("kernel-stats", "", "report changes of the counters in the kernel statistics FILE")
	optResetKernelStats = flag.Bool("reset-kernel-stats", false, "reset the -kernel-stats FILE before running")
	optJSON             = flag.Bool("json", false, "print the report as JSON")
	optPidFile          = flag.String("pid-file", pidfile.DefaultPath(), "PID file guarding against concurrent runs, empty to disable")
)

func main() {
	flag.Usage = usage
	if err := parseCommandLine(os.Args[1:]); err != nil {
		os.Exit(exitCode(err))
	}

	if *optConfigHelp {
		fmt.Print(pkgcfg.Describe())
		os.Exit(0)
	}
	if flag.NArg() > 0 {
		log.Error("unexpected command line arguments: %v", flag.Args())
		usage()
		os.Exit(1)
	}

	logger.SetupDebugToggleSignal(syscall.SIGUSR1)

	if err := run(); err != nil {
		log.Fatal("%v", err)
	}

	logger.Flush()
}

func run() error {
	if err := configure(*optConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	h, err := bench.New(bench.GetOptions())
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	if *optPidFile != "" {
		pf := pidfile.New(*optPidFile)
		if err := pf.Acquire(); err != nil {
			return fmt.Errorf("cannot run: %w", err)
		}
		defer func() {
			if err := pf.Release(); err != nil {
				log.Warn("%v", err)
			}
		}()
	}

	stats, err := newStatsProbe(*optIRQStats, *optKernelStats, *optResetKernelStats)
	if err != nil {
		return err
	}
	if err := stats.before(); err != nil {
		return err
	}

	series, err := h.RunSeriesWith(func(n int, r *bench.Report) {
		if !*optJSON {
			if n > 0 {
				fmt.Println()
			}
			r.Print(os.Stdout)
		}
	})
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	if err := stats.after(); err != nil {
		log.Error("%v", err)
	}

	if *optJSON {
		if err := printJSON(series, stats); err != nil {
			return fmt.Errorf("failed to print report: %w", err)
		}
	} else {
		series.Print(os.Stdout)
		stats.print(os.Stdout)
	}

	if *optMetricsFile != "" {
		metrics.SetReport(series.Last())
		g, err := metrics.NewMetricGatherer()
		if err == nil {
			err = metrics.WriteTextfile(g, *optMetricsFile)
		}
		if err != nil {
			log.Error("failed to write metrics: %v", err)
		}
	}

	return nil
}

// parseCommandLine parses the command line, returning instead of exiting
// on errors.
func parseCommandLine(args []string) error {
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	return flag.CommandLine.Parse(args)
}

// exitCode returns the exit status for a command line parsing error.
func exitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 1
}

// configure activates the configuration from the given file, or from the
// command line alone if no file is given.
func configure(path string) error {
	if path == "" {
		return pkgcfg.SetConfig(pkgcfg.Data{})
	}
	return pkgcfg.SetConfigFromFile(path)
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [options]

Measure mprotect, munmap and mmap throughput under cross-node TLB shootdown pressure.

Operations:
  mprotect  - toggle protection flags (baseline)
  munmap    - unmap + remap cycle
  mmap_full - full mmap + touch + munmap cycle

Options:
`, os.Args[0])
	flag.PrintDefaults()
}
