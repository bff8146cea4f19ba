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

package procstats

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// KernelStats is a set of named kernel counters, as read from a statistics
// file with 'key value' or 'key: value' lines.
type KernelStats map[string]int64

// ReadKernelStats reads a kernel statistics file. Lines which don't look like
// a counter are ignored.
func ReadKernelStats(path string) (KernelStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "procstats: failed to open kernel statistics")
	}
	defer f.Close()

	stats := KernelStats{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				log.Debug("%s: ignoring line %q", path, line)
				continue
			}
			key, value = fields[0], fields[1]
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		v, err := strconv.ParseInt(value, 0, 64)
		if err != nil || key == "" {
			log.Debug("%s: ignoring line %q", path, line)
			continue
		}
		stats[key] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "procstats: failed to read %s", path)
	}

	return stats, nil
}

// ResetKernelStats resets a kernel statistics file by writing 0 to it.
func ResetKernelStats(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "procstats: failed to open %s for reset", path)
	}
	_, err = f.Write([]byte("0\n"))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "procstats: failed to reset %s", path)
	}
	return nil
}

// Delta returns the change of every counter since before. Counters missing
// from before count from zero.
func (s KernelStats) Delta(before KernelStats) KernelStats {
	d := KernelStats{}
	for key, v := range s {
		d[key] = v - before[key]
	}
	return d
}

// Keys returns the counter names in ascending order.
func (s KernelStats) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// String returns the counters as sorted 'key: value' lines.
func (s KernelStats) String() string {
	lines := []string{}
	for _, key := range s.Keys() {
		lines = append(lines, fmt.Sprintf("%s: %d", key, s[key]))
	}
	return strings.Join(lines, "\n")
}

func procstatsError(format string, args ...interface{}) error {
	return fmt.Errorf("procstats: "+format, args...)
}
