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
	"io"
	"os"
	"strings"
	"sync/atomic"
)

//
// Logging backend interface and default fmt-based backend implementation.
//

// BackendFn is a functions that creates a Backend instance.
type BackendFn func() Backend

// Backend can format and emit log messages.
type Backend interface {
	// Name returns the name of this backend.
	Name() string
	// Log emits log messages with the given severity, source, and Printf-like arguments.
	Log(Level, string, string, ...interface{})
	// Block emits a multi-line log messages, with an additional line prefix.
	Block(Level, string, string, string, ...interface{})
	// Flush flushes any pending messages synchronously.
	Flush()
	// Sync waits for all messages to get emitted.
	Sync()
	// Stop stops the backend instance.
	Stop()
	// SetSourceAlignment sets the maximum prefix length for optional alignment.
	SetSourceAlignment(int)
}

// RegisterBackend registers a logger backend.
func RegisterBackend(name string, fn BackendFn) {
	log.Lock()
	defer log.Unlock()
	log.backend[name] = fn
}

const (
	// FmtBackendName is the name of our simple fmt-based logging backend.
	FmtBackendName = "fmt"
	// fmtBackendQueueLen is the length of the internal fmt message queue.
	fmtBackendQueueLen = 1024
)

const (
	levelNop Level = iota + levelHighest
	levelStop
)

// severity tags fmtBackend uses to prefix emitted messages with.
var fmtTags = map[Level]string{
	LevelDebug: "D: ",
	LevelInfo:  "I: ",
	LevelWarn:  "W: ",
	LevelError: "E: ",
	LevelFatal: "FATAL ERROR: ",
	LevelPanic: "PANIC: ",
}

// fmtBackend emits messages to stderr from a dedicated goroutine.
type fmtBackend struct {
	q     chan *fmtReq
	out   io.Writer
	align atomic.Int32
}

type fmtReq struct {
	level  Level
	source string
	prefix string
	msg    string
	sync   chan struct{}
}

func createFmtBackend() Backend {
	f := &fmtBackend{
		q:   make(chan *fmtReq, fmtBackendQueueLen),
		out: os.Stderr,
	}
	go f.run()
	return f
}

func (*fmtBackend) Name() string {
	return FmtBackendName
}

func (f *fmtBackend) Log(level Level, source, format string, args ...interface{}) {
	f.log(level, source, "", format, args...)
}

func (f *fmtBackend) Block(level Level, source, prefix, format string, args ...interface{}) {
	f.log(level, source, prefix, format, args...)
}

func (f *fmtBackend) Flush() {
	f.wait(levelNop)
}

func (f *fmtBackend) Sync() {
	f.wait(levelNop)
}

func (f *fmtBackend) Stop() {
	f.wait(levelStop)
}

func (f *fmtBackend) SetSourceAlignment(len int) {
	f.align.Store(int32(len))
}

func (f *fmtBackend) wait(level Level) {
	sync := make(chan struct{})
	f.q <- &fmtReq{level: level, sync: sync}
	<-sync
}

// log queues a message, waiting for it to be emitted if it is an error or worse.
func (f *fmtBackend) log(level Level, source, prefix, format string, args ...interface{}) {
	req := &fmtReq{
		level:  level,
		source: source,
		prefix: prefix,
		msg:    fmt.Sprintf(format, args...),
	}
	if level >= LevelError {
		req.sync = make(chan struct{})
	}

	f.q <- req

	if req.sync != nil {
		<-req.sync
	}
}

func (f *fmtBackend) run() {
	for req := range f.q {
		f.emit(req)
		if req.sync != nil {
			close(req.sync)
		}
		if req.level == levelStop {
			return
		}
	}
}

func (f *fmtBackend) emit(req *fmtReq) {
	if req.level >= levelHighest {
		return
	}

	pad := int(f.align.Load()) - len(req.source)
	if pad < 0 {
		pad = 0
	}
	source := "[" + strings.Repeat(" ", pad-pad/2) + req.source + strings.Repeat(" ", pad/2) + "]"

	for _, line := range strings.Split(req.msg, "\n") {
		if req.prefix == "" {
			fmt.Fprintln(f.out, fmtTags[req.level]+source, line)
		} else {
			fmt.Fprintln(f.out, fmtTags[req.level]+source, req.prefix+line)
		}
	}
}

func init() {
	RegisterBackend(FmtBackendName, createFmtBackend)
}
