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

package log

import (
	"fmt"
	"sort"
	"sync"
)

// logging is the shared state of all loggers.
type logging struct {
	sync.RWMutex
	level   Level                // lowest non-debug severity passed through
	backend map[string]BackendFn // registered backends
	active  Backend              // active backend
	loggers map[string]logger    // source name to logger mapping
	sources []string             // logger id to source name mapping
	configs []config             // logger id to configuration mapping
	enable  srcmap               // per-source logging state
	debug   srcmap               // per-source debugging state
	forced  bool                 // forced full debugging
	align   int                  // longest source name seen
}

// log is our global logging state.
var log = newLogging()

func newLogging() *logging {
	return &logging{
		level:   DefaultLevel,
		backend: make(map[string]BackendFn),
		active:  createFmtBackend(),
		loggers: make(map[string]logger),
		enable:  make(srcmap),
		debug:   make(srcmap),
	}
}

// NewLogger creates or looks up the Logger for the given source.
func NewLogger(source string) Logger {
	return log.get(source)
}

// SetLevel sets the lowest severity level for non-debug messages to pass through.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.setLevel(level)
}

// SetBackend activates the backend with the given name.
func SetBackend(name string) error {
	log.Lock()
	defer log.Unlock()
	return log.setBackend(name)
}

// EnableLogging enables or disables non-debug logging for the given sources.
func EnableLogging(state bool, sources ...string) {
	log.Lock()
	defer log.Unlock()
	sm := make(srcmap)
	for _, src := range sources {
		sm[src] = state
	}
	log.update(sm, nil)
}

// EnableDebug enables or disables debug logging for the given sources.
func EnableDebug(state bool, sources ...string) {
	log.Lock()
	defer log.Unlock()
	sm := make(srcmap)
	for _, src := range sources {
		sm[src] = state
	}
	log.update(nil, sm)
}

// Flush flushes any buffered messages of the active backend.
func Flush() {
	log.RLock()
	active := log.active
	log.RUnlock()
	active.Flush()
}

// Sync waits until the active backend has emitted all pending messages.
func Sync() {
	log.RLock()
	active := log.active
	log.RUnlock()
	active.Sync()
}

// Sources returns the names of all known logger sources, sorted.
func Sources() []string {
	log.RLock()
	defer log.RUnlock()
	sources := append([]string{}, log.sources...)
	sort.Strings(sources)
	return sources
}

// get returns the logger for source, creating it if necessary.
func (l *logging) get(source string) logger {
	l.Lock()
	defer l.Unlock()

	if lg, ok := l.loggers[source]; ok {
		return lg
	}

	lg := logger(len(l.sources))
	l.loggers[source] = lg
	l.sources = append(l.sources, source)
	l.configs = append(l.configs, mkConfig(l.enable.state(source, true), l.debug.state(source, false)))

	if len(source) > l.align {
		l.align = len(source)
		l.active.SetSourceAlignment(l.align)
	}

	return lg
}

// update applies the given per-source logging and debugging states.
func (l *logging) update(enable, debug srcmap) {
	if enable != nil {
		l.enable.copy(enable)
	}
	if debug != nil {
		l.debug.copy(debug)
	}
	for id, source := range l.sources {
		cfg := &l.configs[id]
		cfg.setLogging(l.enable.state(source, true))
		cfg.setDebugging(l.debug.state(source, false))
	}
}

func (l *logging) setLevel(level Level) {
	if level < LevelDebug || level >= levelHighest {
		level = DefaultLevel
	}
	l.level = level
}

func (l *logging) setBackend(name string) error {
	if l.active != nil && l.active.Name() == name {
		return nil
	}
	fn, ok := l.backend[name]
	if !ok {
		return loggerError("unknown logger backend %q", name)
	}

	b := fn()
	b.SetSourceAlignment(l.align)
	if l.active != nil {
		l.active.Flush()
		l.active.Stop()
	}
	l.active = b

	return nil
}

// loggerError returns a package-specific formatted error.
func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("logger: "+format, args...)
}
