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
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgcfg "github.com/intel/tlbbench/pkg/config"
)

// a test Backend that records messages for verification
type testlogger struct {
	sync.Mutex
	recorded []string
}

var testlog = &testlogger{}

const testLoggerName = "testlogger"

func (l *testlogger) Name() string {
	return testLoggerName
}

func (l *testlogger) Log(level Level, source, format string, args ...interface{}) {
	l.record(fmtTags[level] + "[" + source + "] " + fmt.Sprintf(format, args...))
}

func (l *testlogger) Block(level Level, source, prefix, format string, args ...interface{}) {
	for _, line := range strings.Split(fmt.Sprintf(format, args...), "\n") {
		l.record(fmtTags[level] + "[" + source + "] " + prefix + line)
	}
}

func (l *testlogger) Flush()                 {}
func (l *testlogger) Sync()                  {}
func (l *testlogger) Stop()                  {}
func (l *testlogger) SetSourceAlignment(int) {}

func (l *testlogger) record(msg string) {
	l.Lock()
	defer l.Unlock()
	l.recorded = append(l.recorded, msg)
}

func (l *testlogger) messages() []string {
	l.Lock()
	defer l.Unlock()
	msgs := l.recorded
	l.recorded = nil
	return msgs
}

func init() {
	RegisterBackend(testLoggerName, func() Backend { return testlog })
}

func setup(t *testing.T) *testlogger {
	require.NoError(t, SetBackend(testLoggerName))
	SetLevel(LevelInfo)
	require.NoError(t, flag.Set(optDebug, "off:*"))
	require.NoError(t, flag.Set(optEnable, "on:*"))
	testlog.messages()
	return testlog
}

func TestBackendOverride(t *testing.T) {
	tl := setup(t)

	test := NewLogger("test")
	test.Info("this is a test info message")
	test.Warn("this is a test warning message")
	test.Error("this is a test error message")

	require.Equal(t, []string{
		"I: [test] this is a test info message",
		"W: [test] this is a test warning message",
		"E: [test] this is a test error message",
	}, tl.messages())

	require.Error(t, SetBackend("no-such-backend"))
}

func TestSeverityFiltering(t *testing.T) {
	tl := setup(t)
	test := NewLogger("severity")

	type testCase struct {
		name   string
		level  Level
		expect []string
	}

	for _, tc := range []testCase{
		{
			name:  "info",
			level: LevelInfo,
			expect: []string{
				"I: [severity] info",
				"W: [severity] warning",
				"E: [severity] error",
			},
		},
		{
			name:  "warning",
			level: LevelWarn,
			expect: []string{
				"W: [severity] warning",
				"E: [severity] error",
			},
		},
		{
			name:  "error",
			level: LevelError,
			expect: []string{
				"E: [severity] error",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			SetLevel(tc.level)
			test.Debug("debug")
			test.Info("info")
			test.Warn("warning")
			test.Error("error")
			require.Equal(t, tc.expect, tl.messages())
		})
	}
	SetLevel(LevelInfo)
}

func TestDebugEnabling(t *testing.T) {
	tl := setup(t)
	a := NewLogger("debug-a")
	b := NewLogger("debug-b")

	emit := func() []string {
		a.Debug("a")
		b.Debug("b")
		return tl.messages()
	}

	require.Empty(t, emit(), "debugging off by default")

	require.NoError(t, flag.Set(optDebug, "on:debug-a"))
	require.Equal(t, []string{"D: [debug-a] a"}, emit())
	require.True(t, a.DebugEnabled())
	require.False(t, b.DebugEnabled())

	require.NoError(t, flag.Set(optDebug, "all"))
	require.Equal(t, []string{"D: [debug-a] a", "D: [debug-b] b"}, emit())

	a.EnableDebug(false)
	require.Equal(t, []string{"D: [debug-b] b"}, emit())

	EnableDebug(false, "debug-a", "debug-b")
	require.Empty(t, emit())

	require.NoError(t, flag.Set(optDebug, "off:*"))
	c := NewLogger("debug-c")
	c.Debug("c")
	require.Empty(t, tl.messages(), "new logger inherits wildcard state")
}

func TestSourceDisabling(t *testing.T) {
	tl := setup(t)
	quiet := NewLogger("quiet")

	require.NoError(t, flag.Set(optEnable, "off:quiet"))
	quiet.Info("not shown")
	quiet.Warn("shown")
	require.Equal(t, []string{"W: [quiet] shown"}, tl.messages(), "warnings pass for disabled sources")

	EnableLogging(true, "quiet")
	quiet.Info("shown again")
	require.Equal(t, []string{"I: [quiet] shown again"}, tl.messages())
}

func TestBlock(t *testing.T) {
	tl := setup(t)
	test := NewLogger("block")

	test.InfoBlock("  <report> ", "line %d\nline %d", 1, 2)
	require.Equal(t, []string{
		"I: [block]   <report> line 1",
		"I: [block]   <report> line 2",
	}, tl.messages())
}

func TestPanicAndFatal(t *testing.T) {
	tl := setup(t)
	test := NewLogger("fatal")

	require.PanicsWithValue(t, "[fatal] oops 1", func() { test.Panic("oops %d", 1) })

	status := -1
	exit = func(code int) { status = code }
	defer func() { exit = os.Exit }()

	test.Fatal("giving up")
	require.Equal(t, 1, status)
	require.Equal(t, []string{
		"PANIC: [fatal] oops 1",
		"FATAL ERROR: [fatal] giving up",
	}, tl.messages())
}

func TestSrcmap(t *testing.T) {
	type testCase struct {
		name   string
		value  string
		expect srcmap
		str    string
		fail   bool
	}

	for _, tc := range []testCase{
		{
			name:   "single source",
			value:  "bench",
			expect: srcmap{"bench": true},
			str:    "on:bench",
		},
		{
			name:   "state carries over",
			value:  "off:bench,sysfs,on:spinner",
			expect: srcmap{"bench": false, "sysfs": false, "spinner": true},
			str:    "on:spinner,off:bench,sysfs",
		},
		{
			name:   "all",
			value:  "off:all",
			expect: srcmap{"*": false},
			str:    "off:*",
		},
		{
			name:  "invalid state",
			value: "maybe:bench",
			fail:  true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := srcmap{}
			err := m.Set(tc.value)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, m)
			require.Equal(t, tc.str, m.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	for name, level := range map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	} {
		l, err := ParseLevel(name)
		require.NoError(t, err, name)
		require.Equal(t, level, l, name)
	}
	_, err := ParseLevel("chatty")
	require.Error(t, err)
}

func TestConfigFragment(t *testing.T) {
	tl := setup(t)
	test := NewLogger("cfg-test")

	require.NoError(t, pkgcfg.SetYAML([]byte(`
logger:
  level: error
  backend: testlogger
  debug: on:cfg-test
`)))
	test.Debug("debug")
	test.Warn("warning")
	test.Error("error")
	require.Equal(t, []string{
		"D: [cfg-test] debug",
		"E: [cfg-test] error",
	}, tl.messages())

	require.Error(t, pkgcfg.SetYAML([]byte("logger:\n  backend: nonexistent\n")))

	require.NoError(t, pkgcfg.SetYAML([]byte("logger:\n  backend: testlogger\n")))
	test.Debug("debug")
	test.Info("info")
	require.Equal(t, []string{"I: [cfg-test] info"}, tl.messages(), "reset to defaults")
}

func TestForceDebug(t *testing.T) {
	tl := setup(t)
	test := NewLogger("forced")

	require.False(t, ForceDebug(true))
	require.True(t, DebugForced())
	test.Debug("forced on")
	require.Equal(t, []string{"D: [forced] forced on"}, tl.messages())

	require.True(t, ForceDebug(false))
	test.Debug("forced off")
	require.Empty(t, tl.messages())
}

func TestDebugToggleSignal(t *testing.T) {
	setup(t)
	defer ForceDebug(false)

	SetupDebugToggleSignal(syscall.SIGUSR2)
	defer ClearDebugToggleSignal()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR2))
	require.Eventually(t, DebugForced, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR2))
	require.Eventually(t, func() bool { return !DebugForced() }, 5*time.Second, 10*time.Millisecond)
}
