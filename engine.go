// Package chaintrace orchestrates one static-analysis run: it owns the
// project's function models, builds the call graph once, traces call
// chains to every sink call site, reduces the resulting candidate flows,
// and answers backward-slice queries against individual functions.
package chaintrace

import (
	"context"
	"log"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chaintrace/chaintrace/callgraph"
	"github.com/chaintrace/chaintrace/flows"
	"github.com/chaintrace/chaintrace/model"
	"github.com/chaintrace/chaintrace/slicer"
)

// Engine is one analysis run over one project. The call graph and the
// per-function analysis cache are built lazily and are read-only once
// built, so sink tracing and slice queries for different targets may run
// concurrently.
type Engine struct {
	project *model.Project
	config  *Config
	logger  *log.Logger
	runID   string

	graphOnce sync.Once
	graph     *callgraph.Graph

	cache  *slicer.Cache
	slices *slicer.Slicer
}

// NewEngine validates the inputs and builds an engine. An empty project
// is the single fatal precondition failure of the whole pipeline.
func NewEngine(project *model.Project, config *Config, logger *log.Logger) (*Engine, error) {
	if project == nil || len(project.Functions) == 0 {
		return nil, model.ErrNoFunctions
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	cache := slicer.NewCache()
	return &Engine{
		project: project,
		config:  config,
		logger:  logger,
		runID:   uuid.NewString(),
		cache:   cache,
		slices:  slicer.New(cache, logger),
	}, nil
}

// RunID identifies this analysis run in logs and output metadata.
func (e *Engine) RunID() string { return e.runID }

// CallGraph returns the project call graph, building it on first use.
func (e *Engine) CallGraph() *callgraph.Graph {
	e.graphOnce.Do(func() {
		e.graph = callgraph.Build(e.project)
		e.logger.Printf("[%s] call graph: %d definitions, %d edges",
			e.runID, len(e.graph.Definitions), len(e.graph.Edges))
	})
	return e.graph
}

// DetectSinks scans the call graph for calls to the configured sinks and
// any extra catalog entries, returning one destination per call site.
func (e *Engine) DetectSinks(extra ...model.SinkFunction) []model.VulnerableDestination {
	catalog := append(e.config.SinkCatalog(), extra...)
	return callgraph.FindSinkCalls(e.CallGraph(), catalog)
}

// GenerateFlows traces chains from the configured entry functions to
// each destination, indexes them, and returns the optimized candidate
// flows. Destinations are traced in parallel up to the configured
// concurrency; a destination with no chain contributes nothing rather
// than failing the run.
func (e *Engine) GenerateFlows(ctx context.Context, vds []model.VulnerableDestination) ([]model.CandidateFlow, error) {
	tracer := flows.NewTracer(e.CallGraph(), e.config.Entries, e.config.MaxChainDepth, e.logger)

	results := make([][]model.CandidateFlow, len(vds))
	g, ctx := errgroup.WithContext(ctx)

	// A hand-built Config may carry a zero Concurrency; SetLimit(0) would
	// block the first Go call forever.
	limit := e.config.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i, vd := range vds {
		i, vd := i, vd
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = tracer.Trace(vd)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.CandidateFlow
	for _, r := range results {
		all = append(all, r...)
	}

	tree := flows.NewTree()
	for i, flow := range all {
		tree.Insert(flow.Chains.FunctionChain, i, 0, flow.VD)
	}
	stats := tree.Stats()
	e.logger.Printf("[%s] chains: %d unique, %d flows, length min=%d max=%d avg=%.1f",
		e.runID, stats.UniqueChains, stats.TotalFlows, stats.MinLength, stats.MaxLength, stats.AvgLength)

	return flows.Optimize(all), nil
}

// SliceLines computes the backward slice for a named function and a
// comma-separated taint variable list. Declarations and unknown
// functions fail with ErrMalformedFunction; internal slicing faults are
// isolated to an empty result.
func (e *Engine) SliceLines(funcName, taintCSV string) ([]int, error) {
	fn := e.project.FunctionByName(funcName)
	return e.slices.SliceLines(fn, slicer.ParseTaintList(taintCSV))
}
