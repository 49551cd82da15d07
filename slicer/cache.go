package slicer

import (
	"sync"

	"github.com/chaintrace/chaintrace/cfg"
	"github.com/chaintrace/chaintrace/dataflow"
	"github.com/chaintrace/chaintrace/model"
)

// Cache stores expensive per-function artifacts (CFG and reaching-defs
// result) shared by repeated slice queries within one analysis run. The
// key is function identity; a new run builds a new cache, which is the
// only invalidation rule. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[*model.Function]*funcAnalysis
}

type funcAnalysis struct {
	once  sync.Once
	graph *cfg.Graph
	reach *dataflow.Result
	err   error
}

// NewCache builds an empty per-run analysis cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[*model.Function]*funcAnalysis)}
}

// Analysis returns the lazily built CFG and reaching-definitions result
// for a function. Concurrent callers for the same function share one
// computation. A nil receiver computes without caching.
func (c *Cache) Analysis(fn *model.Function) (*cfg.Graph, *dataflow.Result, error) {
	if c == nil {
		return buildAnalysis(fn)
	}

	c.mu.Lock()
	entry, ok := c.entries[fn]
	if !ok {
		entry = &funcAnalysis{}
		c.entries[fn] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.graph, entry.reach, entry.err = buildAnalysis(fn)
	})
	return entry.graph, entry.reach, entry.err
}

func buildAnalysis(fn *model.Function) (*cfg.Graph, *dataflow.Result, error) {
	g, err := cfg.Build(fn)
	if err != nil {
		return nil, nil, err
	}
	return g, dataflow.ReachingDefs(g), nil
}
