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

// Package metrics collects benchmark and system metrics with prometheus
// collectors and writes them out in the text exposition format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	logger "github.com/intel/tlbbench/pkg/log"
)

var (
	lock                  sync.Mutex
	builtInCollectors     = make(map[string]InitCollector)
	registeredCollectors  = []prometheus.Collector{}
	initializedCollectors = make(map[string]struct{})
	log                   = logger.NewLogger("collectors")
)

// InitCollector is the type for functions that initialize collectors.
type InitCollector func() (prometheus.Collector, error)

// RegisterCollector registers the named prometheus.Collector for metrics collection.
func RegisterCollector(name string, init InitCollector) error {
	lock.Lock()
	defer lock.Unlock()

	log.Debug("registering collector %s...", name)

	if _, found := builtInCollectors[name]; found {
		return metricsError("collector %s already registered", name)
	}

	builtInCollectors[name] = init

	return nil
}

// NewMetricGatherer creates a new prometheus.Gatherer with all registered collectors.
func NewMetricGatherer() (prometheus.Gatherer, error) {
	lock.Lock()
	defer lock.Unlock()

	reg := prometheus.NewPedanticRegistry()

	names := make([]string, 0, len(builtInCollectors))
	for name := range builtInCollectors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := initializedCollectors[name]; ok {
			continue
		}

		c, err := builtInCollectors[name]()
		if err != nil {
			log.Error("failed to initialize collector '%s': %v, skipping it", name, err)
			continue
		}
		registeredCollectors = append(registeredCollectors, c)
		initializedCollectors[name] = struct{}{}
	}

	for _, c := range registeredCollectors {
		if err := reg.Register(c); err != nil {
			return nil, metricsError("failed to register collector: %v", err)
		}
	}

	return reg, nil
}

// WriteTextfile gathers all metrics and writes them to path in the prometheus
// text format. The file is replaced atomically, so it can be picked up by a
// textfile collector at any time.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	families, err := g.Gather()
	if err != nil {
		return metricsError("failed to gather metrics: %v", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return metricsError("failed to create metrics file: %v", err)
	}
	defer os.Remove(tmp.Name())

	enc := expfmt.NewEncoder(tmp, expfmt.FmtText)
	for _, mf := range families {
		if err = enc.Encode(mf); err != nil {
			break
		}
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return metricsError("failed to write metrics to %s: %v", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return metricsError("failed to chmod %s: %v", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return metricsError("failed to rename metrics file: %v", err)
	}

	log.Info("wrote %d metric families to %s", len(families), path)
	return nil
}

func metricsError(format string, args ...interface{}) error {
	return fmt.Errorf("metrics: "+format, args...)
}
