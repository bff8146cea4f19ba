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

// Package pidfile implements a PID file used as a host-wide run lock.
//
// Concurrent benchmark instances disturb each other's TLB shootdown
// measurements, so an instance refuses to run while another live process
// owns the PID file. A PID file left behind by a dead process is stale and
// gets taken over.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// ErrBusy is returned when a live process owns the PID file.
var ErrBusy = errors.New("PID file owned by a running process")

// PidFile is a PID file at a fixed path.
type PidFile struct {
	path string
	file *os.File
}

// New returns a PID file for the given path, or for the default path if
// the path is empty.
func New(path string) *PidFile {
	if path == "" {
		path = DefaultPath()
	}
	return &PidFile{path: path}
}

// Path returns the path of the PID file.
func (p *PidFile) Path() string {
	return p.path
}

// Acquire creates the PID file with our process ID. If the file exists and
// its owner is alive, Acquire fails with an error wrapping ErrBusy. A stale
// file is removed and creation is retried once.
func (p *PidFile) Acquire() error {
	if p.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return errors.Wrap(err, "failed to create PID file directory")
	}

	err := p.create()
	if err == nil || !os.IsExist(errors.Cause(err)) {
		return err
	}

	owner, err := p.Owner()
	if err != nil {
		return err
	}
	if owner > 0 {
		return errors.Wrapf(ErrBusy, "%s: process %d", p.path, owner)
	}

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove stale PID file")
	}
	return p.create()
}

func (p *PidFile) create() error {
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create PID file")
	}
	if _, err := f.WriteString(fmt.Sprintf("%d\n", os.Getpid())); err != nil {
		f.Close()
		os.Remove(p.path)
		return errors.Wrap(err, "failed to write PID file")
	}
	p.file = f
	return nil
}

// Release removes the PID file if we hold it.
func (p *PidFile) Release() error {
	if p.file == nil {
		return nil
	}
	p.file.Close()
	p.file = nil
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// Read returns the process ID stored in the PID file, or 0 if there is no
// PID file.
func (p *PidFile) Read() (int, error) {
	buf, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(buf)))
	if err != nil {
		return -1, errors.Wrapf(err, "invalid PID (%q) in PID file", string(buf))
	}

	return pid, nil
}

// Owner returns the ID of the live process owning the PID file, or 0 if
// there is no PID file, it is unreadable garbage, or its process is gone.
func (p *PidFile) Owner() (int, error) {
	pid, err := p.Read()
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, nil
		}
		return -1, err
	}
	if pid <= 0 {
		return 0, nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return -1, errors.Wrapf(err, "FindProcess() failed for PID %d", pid)
	}

	switch err = proc.Signal(syscall.Signal(0)); {
	case err == nil:
		return pid, nil
	case errors.Is(err, syscall.EPERM):
		// alive, owned by another user
		return pid, nil
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return 0, nil
	}

	return -1, errors.Wrapf(err, "failed to check process %d", pid)
}

// DefaultPath returns the default PID file path.
func DefaultPath() string {
	name := "tlbbench"
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	if os.Geteuid() > 0 {
		return filepath.Join(os.TempDir(), name+".pid")
	}
	return filepath.Join("/", "var", "run", name+".pid")
}
