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
	"os"
)

// Level describes the severity of log messages.
type Level int

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
	// LevelPanic is the severity for panic messages.
	LevelPanic
	// LevelFatal is the severity for fatal errors.
	LevelFatal
	// levelHighest is the highest externally visible level
	levelHighest
)

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Panic formats and emits an error message then panics with the same.
	Panic(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})

	// DebugBlock formats and emits a multiline debug message.
	DebugBlock(prefix string, format string, args ...interface{})
	// InfoBlock formats and emits a multiline information message.
	InfoBlock(prefix string, format string, args ...interface{})
	// WarnBlock formats and emits a multiline warning message.
	WarnBlock(prefix string, format string, args ...interface{})
	// ErrorBlock formats and emits a multiline error message.
	ErrorBlock(prefix string, format string, args ...interface{})

	// EnableDebug enables debug messages for this Logger.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

// logger implements Logger, it is an index into the global logging state.
type logger uint

// exit is swapped out by tests exercising Fatal.
var exit = os.Exit

func (l logger) EnableDebug(state bool) bool {
	log.Lock()
	defer log.Unlock()
	return log.configs[l].setDebugging(state)
}

func (l logger) DebugEnabled() bool {
	log.RLock()
	defer log.RUnlock()
	return log.configs[l].isDebugging() || log.forced
}

func (l logger) Source() string {
	log.RLock()
	defer log.RUnlock()
	return log.sources[l]
}

func (l logger) Debug(format string, args ...interface{}) {
	l.emit(LevelDebug, "", false, format, args...)
}

func (l logger) Info(format string, args ...interface{}) {
	l.emit(LevelInfo, "", false, format, args...)
}

func (l logger) Warn(format string, args ...interface{}) {
	l.emit(LevelWarn, "", false, format, args...)
}

func (l logger) Error(format string, args ...interface{}) {
	l.emit(LevelError, "", false, format, args...)
}

func (l logger) Fatal(format string, args ...interface{}) {
	l.emit(LevelFatal, "", false, format, args...)
	exit(1)
}

func (l logger) Panic(format string, args ...interface{}) {
	source := l.emit(LevelPanic, "", false, format, args...)
	panic(fmt.Sprintf("["+source+"] "+format, args...))
}

func (l logger) DebugBlock(prefix string, format string, args ...interface{}) {
	l.emit(LevelDebug, prefix, true, format, args...)
}

func (l logger) InfoBlock(prefix string, format string, args ...interface{}) {
	l.emit(LevelInfo, prefix, true, format, args...)
}

func (l logger) WarnBlock(prefix string, format string, args ...interface{}) {
	l.emit(LevelWarn, prefix, true, format, args...)
}

func (l logger) ErrorBlock(prefix string, format string, args ...interface{}) {
	l.emit(LevelError, prefix, true, format, args...)
}

// emit passes a message to the active backend if it is not filtered out.
func (l logger) emit(level Level, prefix string, block bool, format string, args ...interface{}) string {
	log.RLock()
	cfg := log.configs[l]
	source := log.sources[l]
	active := log.active
	pass := false
	switch {
	case level == LevelDebug:
		pass = cfg.isDebugging() || log.forced
	case level < log.level:
		pass = false
	case level == LevelInfo:
		pass = cfg.isLogging()
	default:
		pass = true
	}
	log.RUnlock()

	if !pass {
		return source
	}
	if block {
		active.Block(level, source, prefix, format, args...)
	} else {
		active.Log(level, source, format, args...)
	}
	return source
}

const (
	loggingBit = 1 << iota
	debuggingBit
)

// config is the runtime configuration of a single logger.
type config uint8

func mkConfig(logging, debugging bool) config {
	var cfg config
	cfg.setLogging(logging)
	cfg.setDebugging(debugging)
	return cfg
}

func (cfg *config) set(bit config, enable bool) bool {
	old := *cfg&bit != 0
	if enable {
		*cfg |= bit
	} else {
		*cfg &^= bit
	}
	return old
}

func (cfg *config) setLogging(enable bool) bool {
	return cfg.set(loggingBit, enable)
}

func (cfg *config) setDebugging(enable bool) bool {
	return cfg.set(debuggingBit, enable)
}

func (cfg config) isLogging() bool {
	return cfg&loggingBit != 0
}

func (cfg config) isDebugging() bool {
	return cfg&debuggingBit != 0
}
