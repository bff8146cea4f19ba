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

// WithNotify injects an update notification callback into a fragment.
func WithNotify(fn NotifyFn) Option {
	return newFuncOption(func(o interface{}) error {
		f, ok := o.(*fragment)
		if !ok {
			return configError("WithNotify is not valid option for object of type %T", o)
		}
		f.notify = append(f.notify, fn)
		return nil
	})
}

// Option is the generic interface for any option applicable to a fragment.
type Option interface {
	apply(interface{}) error
}

// funcOption is a generic functional option.
type funcOption struct {
	f func(interface{}) error
}

func (fo *funcOption) apply(o interface{}) error {
	return fo.f(o)
}

func newFuncOption(f func(interface{}) error) *funcOption {
	return &funcOption{
		f: f,
	}
}
