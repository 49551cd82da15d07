// (c) Copyright chaintrace's authors
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

// Package sinkset ships static catalogs of well-known dangerous sink
// functions with the parameter positions that must not receive tainted
// data. Catalogs seed sink-call detection when no externally supplied
// sink list is available.
package sinkset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chaintrace/chaintrace/model"
)

// CommandInjection returns sinks that hand a string to a shell or
// process loader.
func CommandInjection() []model.SinkFunction {
	return []model.SinkFunction{
		{Name: "system", ParamIndex: 0, Reason: "shell command execution", By: "rule"},
		{Name: "popen", ParamIndex: 0, Reason: "shell command execution", By: "rule"},
		{Name: "execl", ParamIndex: 0, Reason: "program execution", By: "rule"},
		{Name: "execlp", ParamIndex: 0, Reason: "program execution", By: "rule"},
		{Name: "execv", ParamIndex: 0, Reason: "program execution", By: "rule"},
		{Name: "execvp", ParamIndex: 0, Reason: "program execution", By: "rule"},
	}
}

// FormatString returns sinks whose format argument must not be
// attacker-controlled.
func FormatString() []model.SinkFunction {
	return []model.SinkFunction{
		{Name: "printf", ParamIndex: 0, Reason: "format string", By: "rule"},
		{Name: "fprintf", ParamIndex: 1, Reason: "format string", By: "rule"},
		{Name: "sprintf", ParamIndex: 1, Reason: "format string", By: "rule"},
		{Name: "snprintf", ParamIndex: 2, Reason: "format string", By: "rule"},
		{Name: "syslog", ParamIndex: 1, Reason: "format string", By: "rule"},
	}
}

// BufferWrite returns sinks that copy an unbounded or caller-sized
// source into a destination buffer.
func BufferWrite() []model.SinkFunction {
	return []model.SinkFunction{
		{Name: "strcpy", ParamIndex: 1, Reason: "unbounded copy source", By: "rule"},
		{Name: "strcat", ParamIndex: 1, Reason: "unbounded append source", By: "rule"},
		{Name: "memcpy", ParamIndex: 2, Reason: "caller-controlled length", By: "rule"},
		{Name: "gets", ParamIndex: 0, Reason: "unbounded read", By: "rule"},
		{Name: "sscanf", ParamIndex: 0, Reason: "unbounded scan input", By: "rule"},
	}
}

// PathTraversal returns sinks that open a path.
func PathTraversal() []model.SinkFunction {
	return []model.SinkFunction{
		{Name: "fopen", ParamIndex: 0, Reason: "file path", By: "rule"},
		{Name: "open", ParamIndex: 0, Reason: "file path", By: "rule"},
		{Name: "unlink", ParamIndex: 0, Reason: "file path", By: "rule"},
		{Name: "remove", ParamIndex: 0, Reason: "file path", By: "rule"},
	}
}

var presets = map[string]func() []model.SinkFunction{
	"command-injection": CommandInjection,
	"format-string":     FormatString,
	"buffer-write":      BufferWrite,
	"path-traversal":    PathTraversal,
}

// Names lists the available preset names, sorted.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Catalog resolves preset names ("command-injection,format-string" or
// individual names) into one combined sink catalog.
func Catalog(names ...string) ([]model.SinkFunction, error) {
	var catalog []model.SinkFunction
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			preset, ok := presets[name]
			if !ok {
				return nil, fmt.Errorf("sinkset: unknown preset %q (available: %s)", name, strings.Join(Names(), ", "))
			}
			catalog = append(catalog, preset()...)
		}
	}
	return catalog, nil
}
