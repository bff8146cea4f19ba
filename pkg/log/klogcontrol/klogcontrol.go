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

// Package klogcontrol exposes klog flags on the command line, prefixed
// with 'klog-', for binaries that select the klog logger backend.
package klogcontrol

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"k8s.io/klog/v2"
)

const (
	// FlagPrefix is prepended to klog flag names on our command line.
	FlagPrefix = "klog-"
	// EnvPrefix is prepended to environment variables providing flag defaults.
	EnvPrefix = "LOGGER_KLOG_"
)

// Control implements runtime control for klog.
type Control struct {
	flags *flag.FlagSet
}

var ctl *Control

// Get returns our singleton klog Control instance.
func Get() *Control {
	return ctl
}

// Set sets the value of the given klog flag.
func (c *Control) Set(name, value string) error {
	f := c.flags.Lookup(name)
	if f == nil {
		return klogError("unknown klog flag %q", name)
	}
	if name == "stderrthreshold" { // klog expects thresholds in ALL CAPS
		value = strings.ToUpper(value)
	}
	if err := f.Value.Set(value); err != nil {
		return klogError("failed to set klog flag %q to %q: %v", name, value, err)
	}
	return nil
}

// Get returns the current value of the given klog flag.
func (c *Control) Get(name string) (string, error) {
	f := c.flags.Lookup(name)
	if f == nil {
		return "", klogError("unknown klog flag %q", name)
	}
	return f.Value.String(), nil
}

// klogflag wraps a klog flag for our command line.
type klogflag struct {
	name string
}

func (k *klogflag) Set(value string) error {
	return ctl.Set(k.name, value)
}

func (k *klogflag) String() string {
	if k == nil || ctl == nil {
		return ""
	}
	value, _ := ctl.Get(k.name)
	return value
}

func (k *klogflag) IsBoolFlag() bool {
	if k == nil || ctl == nil {
		return false
	}
	if b, ok := ctl.flags.Lookup(k.name).Value.(interface{ IsBoolFlag() bool }); ok {
		return b.IsBoolFlag()
	}
	return false
}

func envName(name string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func klogError(format string, args ...interface{}) error {
	return fmt.Errorf("klogcontrol: "+format, args...)
}

func init() {
	ctl = &Control{flags: flag.NewFlagSet("klog flags", flag.ContinueOnError)}
	ctl.flags.SetOutput(io.Discard)
	klog.InitFlags(ctl.flags)

	ctl.flags.VisitAll(func(f *flag.Flag) {
		flag.Var(&klogflag{name: f.Name}, FlagPrefix+f.Name, f.Usage)
		if value, ok := os.LookupEnv(envName(f.Name)); ok {
			if err := ctl.Set(f.Name, value); err != nil {
				klog.Errorf("invalid environment default %s=%q: %v", envName(f.Name), value, err)
			}
		}
	})
}
