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
	"os"
	"os/signal"
)

// sigToggle is the installed debug toggle signal handler.
type sigToggle struct {
	ch   chan os.Signal
	done chan struct{}
}

var toggle *sigToggle

// ForceDebug forces full debugging for every source on or off, regardless of
// the per-source debug configuration. It returns the previous state.
func ForceDebug(state bool) bool {
	log.Lock()
	defer log.Unlock()
	prev := log.forced
	log.forced = state
	return prev
}

// DebugForced returns whether full debugging is forced on.
func DebugForced() bool {
	log.RLock()
	defer log.RUnlock()
	return log.forced
}

// SetupDebugToggleSignal installs a handler that flips forced full debugging
// each time sig is received. Any previously installed handler is replaced.
func SetupDebugToggleSignal(sig os.Signal) {
	ClearDebugToggleSignal()

	t := &sigToggle{
		ch:   make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	signal.Notify(t.ch, sig)
	go t.run(NewLogger("log"))

	log.Lock()
	toggle = t
	log.Unlock()
}

// ClearDebugToggleSignal removes the debug toggle signal handler, if any.
func ClearDebugToggleSignal() {
	log.Lock()
	t := toggle
	toggle = nil
	log.Unlock()

	if t != nil {
		signal.Stop(t.ch)
		close(t.done)
	}
}

func (t *sigToggle) run(l Logger) {
	for {
		select {
		case <-t.ch:
			state := !DebugForced()
			ForceDebug(state)
			if state {
				l.Warn("forced full debugging is now on")
			} else {
				l.Warn("forced full debugging is now off")
			}
		case <-t.done:
			return
		}
	}
}
