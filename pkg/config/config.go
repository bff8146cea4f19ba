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

package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"sigs.k8s.io/yaml"
)

// Fragment is a piece of configuration registered under a dotted path.
type Fragment interface {
	// Reset resets the fragment to its default values.
	Reset()
	// Describe returns a human-readable description of the fragment.
	Describe() string
}

// Validator is implemented by fragments that can check their own consistency.
type Validator interface {
	Validate() error
}

// NotifyFn is called after a fragment has been successfully (re)configured.
type NotifyFn func() error

// fragment is a registered configuration fragment.
type fragment struct {
	path   string
	keys   []string
	ptr    Fragment
	notify []NotifyFn
}

var (
	lock      sync.Mutex
	fragments = map[string]*fragment{}
)

// Register registers a configuration fragment under the given dotted path.
//
// ptr must be a pointer to a struct implementing Fragment. Paths are
// case-insensitively unique. The fragment is reset to its defaults.
func Register(path string, ptr interface{}, options ...Option) error {
	if ptr == nil {
		return configError("%q: can't register nil fragment", path)
	}
	if v := reflect.ValueOf(ptr); v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return configError("%q: fragment must be a pointer to struct, got %T", path, ptr)
	}
	frag, ok := ptr.(Fragment)
	if !ok {
		return configError("%q: %T does not implement Fragment", path, ptr)
	}
	keys, err := splitPath(path)
	if err != nil {
		return err
	}

	f := &fragment{
		path: path,
		keys: keys,
		ptr:  frag,
	}
	for _, o := range options {
		if err := o.apply(f); err != nil {
			return err
		}
	}

	lock.Lock()
	defer lock.Unlock()

	key := strings.ToLower(path)
	if other, ok := fragments[key]; ok {
		return configError("%q: conflicts with already registered fragment %q", path, other.path)
	}
	fragments[key] = f

	frag.Reset()
	log.Debugf("registered configuration fragment %q (%T)", path, ptr)

	return nil
}

// GetConfig returns the fragment registered under the given path.
func GetConfig(path string) (Fragment, bool) {
	lock.Lock()
	defer lock.Unlock()
	f, ok := fragments[strings.ToLower(path)]
	if !ok {
		return nil, false
	}
	return f.ptr, true
}

// ReInitialize forgets all registered fragments.
func ReInitialize() {
	lock.Lock()
	defer lock.Unlock()
	fragments = map[string]*fragment{}
}

// SetYAML applies the given raw YAML configuration to all registered fragments.
func SetYAML(raw []byte) error {
	data := make(Data)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return configError("failed to unmarshal configuration: %v", err)
	}
	return SetConfig(data)
}

// SetConfigFromFile applies the configuration in the given YAML file.
func SetConfigFromFile(path string) error {
	data, err := DataFromFile(path)
	if err != nil {
		return err
	}
	log.Infof("applying configuration from file %q", path)
	return SetConfig(data)
}

// SetConfig applies the given configuration data to all registered fragments.
//
// Every fragment is first reset to its defaults, then its part of the data is
// unmarshalled into it. Validation errors are collected for all fragments.
func SetConfig(data Data) error {
	lock.Lock()
	defer lock.Unlock()

	var errs *multierror.Error

	for _, f := range sortedFragments() {
		sub, err := data.lookup(f.keys)
		if err != nil {
			errs = multierror.Append(errs, configError("%s: %v", f.path, err))
			continue
		}
		for _, child := range f.children() {
			delete(sub, child)
		}

		f.ptr.Reset()
		if len(sub) > 0 {
			raw, err := yaml.Marshal(sub)
			if err == nil {
				err = yaml.Unmarshal(raw, f.ptr)
			}
			if err != nil {
				errs = multierror.Append(errs, configError("%s: invalid data: %v", f.path, err))
				continue
			}
		}
		if v, ok := f.ptr.(Validator); ok {
			if err := v.Validate(); err != nil {
				errs = multierror.Append(errs, configError("%s: %v", f.path, err))
				continue
			}
		}
		for _, fn := range f.notify {
			if err := fn(); err != nil {
				errs = multierror.Append(errs, configError("%s: %v", f.path, err))
			}
		}
	}

	return errs.ErrorOrNil()
}

// Describe returns a description of all registered fragments.
func Describe() string {
	lock.Lock()
	defer lock.Unlock()

	str := ""
	for _, f := range sortedFragments() {
		str += fmt.Sprintf("- %s:\n", f.path)
		desc := strings.Trim(f.ptr.Describe(), "\n")
		if desc == "" {
			desc = "no description"
		}
		for _, line := range strings.Split(desc, "\n") {
			str += "    " + line + "\n"
		}
	}
	return str
}

// sortedFragments returns registered fragments, parents before children.
func sortedFragments() []*fragment {
	list := make([]*fragment, 0, len(fragments))
	for _, f := range fragments {
		list = append(list, f)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].path < list[j].path
	})
	return list
}

// children returns the immediate keys of fragments registered below f.
func (f *fragment) children() []string {
	var keys []string
	for _, o := range fragments {
		if len(o.keys) > len(f.keys) && hasPrefix(o.keys, f.keys) {
			keys = append(keys, o.keys[len(f.keys)])
		}
	}
	return keys
}

func hasPrefix(keys, prefix []string) bool {
	for i, k := range prefix {
		if !strings.EqualFold(keys[i], k) {
			return false
		}
	}
	return true
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, configError("empty fragment path")
	}
	keys := strings.Split(path, ".")
	for _, k := range keys {
		if k == "" {
			return nil, configError("invalid fragment path %q", path)
		}
	}
	return keys, nil
}

// configError returns a package-specific formatted error.
func configError(format string, args ...interface{}) error {
	return fmt.Errorf("config: "+format, args...)
}
