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

// Command chaintrace discovers call chains from entry functions to sink
// calls in a project of function models and emits candidate flows for
// downstream triage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gookit/color"

	"github.com/chaintrace/chaintrace"
	"github.com/chaintrace/chaintrace/frontend"
	"github.com/chaintrace/chaintrace/sinkset"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("chaintrace", flag.ContinueOnError)
	fs.SetOutput(stderr)

	projectPath := fs.String("project", "", "path to the project function-model JSON (required)")
	configPath := fs.String("config", "", "path to a YAML analysis config")
	entries := fs.String("entries", "", "comma-separated entry function names (overrides config)")
	presets := fs.String("sink-presets", "", "comma-separated sink preset names (see -list-presets)")
	listPresets := fs.Bool("list-presets", false, "list available sink presets and exit")
	outPath := fs.String("out", "", "write candidate flows JSON to this file (default stdout)")
	maxDepth := fs.Int("max-depth", 0, "maximum chain depth (0 = default)")
	quiet := fs.Bool("quiet", false, "suppress progress logging")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *listPresets {
		for _, name := range sinkset.Names() {
			fmt.Fprintln(stdout, name)
		}
		return exitSuccess
	}

	if *projectPath == "" {
		fmt.Fprintln(stderr, "chaintrace: -project is required")
		fs.Usage()
		return exitUsage
	}

	logger := log.New(stderr, "", log.LstdFlags)
	if *quiet {
		logger = log.New(io.Discard, "", 0)
	}

	config := chaintrace.NewConfig()
	if *configPath != "" {
		loaded, err := chaintrace.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "chaintrace: %v\n", err)
			return exitUsage
		}
		config = loaded
	}
	if *entries != "" {
		config.Entries = chaintrace.ParseEntryList(*entries)
	}
	if *maxDepth > 0 {
		config.MaxChainDepth = *maxDepth
	}
	if len(config.Entries) == 0 {
		fmt.Fprintln(stderr, "chaintrace: no entry functions configured")
		return exitUsage
	}

	project, err := frontend.LoadProject(*projectPath)
	if err != nil {
		fmt.Fprintf(stderr, "chaintrace: %v\n", err)
		return exitFailure
	}

	engine, err := chaintrace.NewEngine(project, config, logger)
	if err != nil {
		fmt.Fprintf(stderr, "chaintrace: %v\n", err)
		return exitFailure
	}

	catalog, err := sinkset.Catalog(*presets)
	if err != nil {
		fmt.Fprintf(stderr, "chaintrace: %v\n", err)
		return exitUsage
	}

	vds := engine.DetectSinks(catalog...)
	result, err := engine.GenerateFlows(context.Background(), vds)
	if err != nil {
		fmt.Fprintf(stderr, "chaintrace: %v\n", err)
		return exitFailure
	}

	out := stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(stderr, "chaintrace: %v\n", err)
			return exitFailure
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "chaintrace: encode output: %v\n", err)
		return exitFailure
	}

	summary(stderr, engine.RunID(), len(vds), len(result))
	return exitSuccess
}

func summary(w io.Writer, runID string, sinks, flowCount int) {
	header := color.New(color.FgCyan, color.OpBold)
	fmt.Fprintf(w, "%s run %s\n", header.Sprint("chaintrace"), runID)
	if flowCount > 0 {
		fmt.Fprintf(w, "  %s %d candidate flows from %d sink calls\n",
			color.Yellow.Sprint("found"), flowCount, sinks)
	} else {
		fmt.Fprintf(w, "  %s no candidate flows (%d sink calls examined)\n",
			color.Green.Sprint("clean"), sinks)
	}
}
