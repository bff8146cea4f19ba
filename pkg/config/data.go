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
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// Data is our internal representation of configuration data.
type Data map[string]interface{}

// DataFromFile unmarshals the content of the given file into configuration data.
func DataFromFile(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("failed to read file %q: %v", path, err)
	}
	data := make(Data)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, configError("failed to load configuration from file %q: %v", path, err)
	}
	return data, nil
}

// lookup returns a shallow copy of the data found under the given nested keys.
func (d Data) lookup(keys []string) (Data, error) {
	cur := map[string]interface{}(d)
	for i, key := range keys {
		obj, ok := cur[key]
		if !ok {
			for k, v := range cur {
				if strings.EqualFold(k, key) {
					obj, ok = v, true
					break
				}
			}
		}
		if !ok || obj == nil {
			return Data{}, nil
		}
		next, ok := obj.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%q: expected a map, found %T",
				strings.Join(keys[:i+1], "."), obj)
		}
		cur = next
	}

	data := make(Data, len(cur))
	for k, v := range cur {
		data[k] = v
	}
	return data, nil
}

// String returns configuration data as a string.
func (d Data) String() string {
	raw, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<config.data: failed to marshal: %v>", err)
	}
	return string(raw)
}
