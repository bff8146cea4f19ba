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
	"encoding/json"
	"flag"
	"sort"
	"strings"

	pkgcfg "github.com/intel/tlbbench/pkg/config"
)

const (
	// DefaultLevel is the default logging severity level.
	DefaultLevel = LevelInfo
	// command-line argument prefix.
	optPrefix = "logger"
	// Flag for enabling/disabling normal non-debug logging for sources.
	optEnable = optPrefix + "-sources"
	// Flag for enabling/disabling debug logging for sources.
	optDebug = optPrefix + "-debug"
	// Flag for selecting logging level.
	optLevel = optPrefix + "-level"
	// Flag for selecting logging backend.
	optLogger = optPrefix
	// configModule is our path in the runtime configuration.
	configModule = optPrefix
)

// options is the logger configuration fragment.
type options struct {
	// Level is the logging severity/level.
	Level Level `json:"level"`
	// Enable is a map for enabling/disabling normal logging for sources.
	Enable srcmap `json:"sources,omitempty"`
	// Debug is a map for enabling/disabling debug logging for sources.
	Debug srcmap `json:"debug,omitempty"`
	// Logger is the name of the logger backend to use.
	Logger string `json:"backend,omitempty"`
}

// srcmap tracks logging or debugging settings for sources.
type srcmap map[string]bool

// Command line defaults, used to reset the configuration fragment.
var defaults = &options{
	Logger: FmtBackendName,
	Level:  DefaultLevel,
	Enable: make(srcmap),
	Debug:  make(srcmap),
}

// Runtime configuration from a configuration file.
var opt = &options{}

// Level names for the command line and configuration.
var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warning",
	LevelError: "error",
	LevelFatal: "fatal",
	LevelPanic: "panic",
}

// ParseLevel parses the given level name.
func ParseLevel(value string) (Level, error) {
	value = strings.ToLower(value)
	if value == "warn" {
		value = "warning"
	}
	for level, name := range levelNames {
		if name == value {
			return level, nil
		}
	}
	return DefaultLevel, loggerError("invalid logging level %q", value)
}

// Set sets the level from the given name.
func (l *Level) Set(value string) error {
	level, err := ParseLevel(value)
	if err != nil {
		return err
	}
	*l = level
	if l == &defaults.Level {
		SetLevel(level)
	}
	return nil
}

// String returns the name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return levelNames[DefaultLevel]
}

// MarshalJSON is the JSON marshaller for Level.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON is the JSON unmarshaller for Level.
func (l *Level) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return loggerError("invalid logging level %s: %v", string(raw), err)
	}
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// backendFlag is the flag.Value for selecting the active backend.
type backendFlag struct{}

func (backendFlag) Set(value string) error {
	if err := SetBackend(value); err != nil {
		return err
	}
	defaults.Logger = value
	return nil
}

func (backendFlag) String() string {
	return defaults.Logger
}

// Set sets entries of srcmap by parsing the given value.
//
// The value is a comma-separated list of sources, each optionally
// prefixed with a state ('on:' or 'off:') which carries over to the
// entries that follow. 'all' is an alias for '*'.
func (m *srcmap) Set(value string) error {
	if *m == nil {
		*m = make(srcmap)
	}

	prev := "on"
	for _, entry := range strings.Split(value, ",") {
		state, src := prev, entry
		if split := strings.Split(entry, ":"); len(split) == 2 {
			state, src = split[0], split[1]
		} else if len(split) > 2 {
			return loggerError("invalid state spec '%s' in source map", entry)
		}
		prev = state

		enabled, err := parseEnabled(state)
		if err != nil {
			return loggerError("invalid state '%s' in source map", state)
		}
		if src == "all" {
			src = "*"
		}
		if src != "" {
			(*m)[src] = enabled
		}
	}

	switch m {
	case &defaults.Enable:
		log.Lock()
		log.update(*m, nil)
		log.Unlock()
	case &defaults.Debug:
		log.Lock()
		log.update(nil, *m)
		log.Unlock()
	}

	return nil
}

// String returns a string representation of the srcmap.
func (m *srcmap) String() string {
	if m == nil {
		return ""
	}
	var on, off []string
	for src, state := range *m {
		if state {
			on = append(on, src)
		} else {
			off = append(off, src)
		}
	}
	sort.Strings(on)
	sort.Strings(off)

	switch {
	case len(on) == 0 && len(off) == 0:
		return ""
	case len(off) == 0:
		return "on:" + strings.Join(on, ",")
	case len(on) == 0:
		return "off:" + strings.Join(off, ",")
	}
	return "on:" + strings.Join(on, ",") + ",off:" + strings.Join(off, ",")
}

// UnmarshalJSON accepts either a source map string or an on/off map of source lists.
func (m *srcmap) UnmarshalJSON(raw []byte) error {
	*m = make(srcmap)

	str := ""
	if err := json.Unmarshal(raw, &str); err == nil {
		return m.Set(str)
	}

	lists := map[string][]string{}
	if err := json.Unmarshal(raw, &lists); err != nil {
		return loggerError("failed to unmarshal logger source map '%s': %v", string(raw), err)
	}
	for state, sources := range lists {
		enabled, err := parseEnabled(state)
		if err != nil {
			return loggerError("invalid state '%s' in logger source map", state)
		}
		for _, src := range sources {
			if src == "all" {
				src = "*"
			}
			(*m)[src] = enabled
		}
	}
	return nil
}

// state returns the state for a source, falling back to the wildcard and then def.
func (m srcmap) state(source string, def bool) bool {
	if state, ok := m[source]; ok {
		return state
	}
	if state, ok := m["*"]; ok {
		return state
	}
	return def
}

// copy state from another srcmap.
func (m srcmap) copy(o srcmap) {
	for src, state := range o {
		m[src] = state
	}
}

func parseEnabled(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "enable", "enabled", "true", "1":
		return true, nil
	case "off", "disable", "disabled", "false", "0":
		return false, nil
	}
	return false, loggerError("invalid enabled state %q", value)
}

// Reset resets the configuration fragment to the command line defaults.
func (o *options) Reset() {
	*o = options{
		Logger: defaults.Logger,
		Level:  defaults.Level,
		Enable: make(srcmap),
		Debug:  make(srcmap),
	}
	o.Enable.copy(defaults.Enable)
	o.Debug.copy(defaults.Debug)
}

// Describe describes the logger configuration fragment.
func (*options) Describe() string {
	return `Logger configuration.
  level: lowest severity to pass through (debug, info, warning, error)
  backend: logger backend to use (fmt, klog)
  sources: source map for enabling/disabling sources ('on:a,b,off:c')
  debug: source map for enabling/disabling debugging for sources`
}

// Validate checks the logger configuration fragment.
func (o *options) Validate() error {
	log.RLock()
	defer log.RUnlock()
	if _, ok := log.backend[o.Logger]; !ok {
		return loggerError("unknown logger backend %q", o.Logger)
	}
	return nil
}

// configNotify activates a new logger configuration.
func (o *options) configNotify() error {
	log.Lock()
	defer log.Unlock()

	log.setLevel(o.Level)
	if err := log.setBackend(o.Logger); err != nil {
		return err
	}
	log.enable = make(srcmap)
	log.debug = make(srcmap)
	log.update(o.Enable, o.Debug)

	return nil
}

// Register us for command line parsing and configuration handling.
func init() {
	cfglog := log.get("config")
	pkgcfg.SetLogger(pkgcfg.Logger{
		Debugf:   cfglog.Debug,
		Infof:    cfglog.Info,
		Warningf: cfglog.Warn,
		Errorf:   cfglog.Error,
	})

	flag.Var(backendFlag{}, optLogger,
		"logger backend to use (fmt, klog).")
	flag.Var(&defaults.Level, optLevel,
		"lowest severity level to pass through (debug, info, warning, error)")
	flag.Var(&defaults.Enable, optEnable,
		"comma-separated list of source names to enable/disable.\n"+
			"Specify '*' or 'all' to enable all sources, which is also the default.\n"+
			"Prefix a source or list with 'off:' to disable.")
	flag.Var(&defaults.Debug, optDebug,
		"comma-separated list of source names to enable debug messages for.\n"+
			"Specify '*' or 'all' to enable all sources.\n"+
			"Prefix a source or list with 'off:' to disable, which is also the default state.")

	if err := pkgcfg.Register(configModule, opt, pkgcfg.WithNotify(opt.configNotify)); err != nil {
		panic(err)
	}
}
