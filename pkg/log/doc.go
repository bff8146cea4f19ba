// Copyright 2019 Intel Corporation. All Rights Reserved.
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


// Package log implements per-source loggers with runtime-configurable
// severity filtering and debugging.
//
// Loggers are created with NewLogger(source). Messages of a source can be
// enabled or disabled, and debug messages turned on or off, using the
// --logger-sources and --logger-debug command line options or the 'logger'
// configuration fragment:
//
//	logger:
//	  level: warning
//	  debug: on:bench,workload,off:sysfs
//
// Prefix a source or a list of sources with 'on:' or 'off:' to toggle them.
// Use '*' or 'all' to refer to every source.
package log
