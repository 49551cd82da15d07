// Package slicer computes intraprocedural backward slices: the set of
// source lines whose instructions feed a given set of tainted names
// within one function. Interprocedural reach is the chain tracer's job;
// the slicer never crosses call boundaries.
package slicer

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/chaintrace/chaintrace/cfg"
	"github.com/chaintrace/chaintrace/dataflow"
	"github.com/chaintrace/chaintrace/model"
)

// Slicer answers slice queries against function models. One Slicer is
// built per analysis run and may serve queries for different functions
// concurrently.
type Slicer struct {
	cache  *Cache
	logger *log.Logger
}

// New builds a slicer backed by the given per-run cache. A nil cache
// disables memoization; a nil logger discards warnings.
func New(cache *Cache, logger *log.Logger) *Slicer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Slicer{cache: cache, logger: logger}
}

// ParseTaintList splits a comma-separated taint variable list, trimming
// whitespace and dropping empty items.
func ParseTaintList(csv string) map[string]struct{} {
	taint := make(map[string]struct{})
	for _, v := range strings.Split(csv, ",") {
		if v = strings.TrimSpace(v); v != "" {
			taint[v] = struct{}{}
		}
	}
	return taint
}

// SliceLines computes the backward slice for the tainted names and maps
// it to source line numbers. Instructions without line metadata are
// dropped from the output, which is not an error. A declaration or a
// zero-block function fails with ErrMalformedFunction; any unexpected
// fault during slicing is caught at this boundary and converted to an
// empty result plus a logged warning, so one bad function never aborts
// the batch.
func (s *Slicer) SliceLines(fn *model.Function, taint map[string]struct{}) (lines []int, err error) {
	if fn == nil || !fn.IsDefinition() {
		name := "<nil>"
		if fn != nil {
			name = fn.Name
		}
		return nil, fmt.Errorf("slicer: %q is not a definition: %w", name, model.ErrMalformedFunction)
	}
	if len(taint) == 0 {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("warning: slicing failed for %s: %v", fn.Name, r)
			lines, err = nil, nil
		}
	}()

	graph, reach, err := s.cache.Analysis(fn)
	if err != nil {
		return nil, err
	}

	instrs := s.slice(fn, graph, reach, taint)

	lineSet := make(map[int]struct{})
	for ins := range instrs {
		if ins.Line > 0 {
			lineSet[ins.Line] = struct{}{}
		}
	}
	for l := range lineSet {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines, nil
}

type workItem struct {
	ins    *model.Instruction
	needed []string // sorted
}

// slice runs the backward worklist. Every instruction whose uses
// intersect the taint set seeds the traversal; the reported slice holds
// the definition-contributing instructions reached from the seeds, not
// the pure use sites themselves. From each queued instruction the walk
// looks for earlier in-block definitions of the needed names and then
// for definitions in predecessor blocks, filtered by the
// reaching-definitions IN set of the instruction's block. Queue entries
// are deduplicated by (instruction, sorted needed-name tuple), which
// bounds the state space and guarantees termination.
func (s *Slicer) slice(fn *model.Function, graph *cfg.Graph, reach *dataflow.Result, taint map[string]struct{}) map[*model.Instruction]struct{} {
	instrs := make(map[*model.Instruction]struct{})
	var queue []workItem

	for _, b := range fn.Blocks {
		for _, ins := range b.Instrs {
			if hit := ins.UsesAny(taint); len(hit) > 0 {
				queue = append(queue, newWorkItem(ins, hit))
			}
		}
	}

	visited := make(map[string]struct{})

	for len(queue) > 0 {
		item := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		key := itemKey(item)
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		needed := toSet(item.needed)
		block := item.ins.Block

		// Earlier definitions in the same block, scanning backward from
		// the instruction itself.
		for i := item.ins.Index - 1; i >= 0; i-- {
			prev := block.Instrs[i]
			if !prev.DefinesAny(needed) {
				continue
			}
			if _, ok := instrs[prev]; !ok {
				instrs[prev] = struct{}{}
				queue = append(queue, newWorkItem(prev, prev.Uses))
			}
		}

		// Definitions flowing in from predecessor blocks. The reaching
		// IN set of this block filters which names are worth chasing;
		// within a predecessor the scan is per-instruction and remains
		// an over-approximation.
		in := reach.In(block)
		crossBlock := make(map[string]struct{}, len(needed))
		for n := range needed {
			if in.Contains(n) {
				crossBlock[n] = struct{}{}
			}
		}
		if len(crossBlock) == 0 {
			continue
		}
		for _, pred := range graph.Preds(block) {
			for _, pins := range pred.Instrs {
				if !pins.DefinesAny(crossBlock) {
					continue
				}
				if _, ok := instrs[pins]; !ok {
					instrs[pins] = struct{}{}
					queue = append(queue, newWorkItem(pins, pins.Uses))
				}
			}
		}
	}

	return instrs
}

func newWorkItem(ins *model.Instruction, needed []string) workItem {
	sorted := append([]string{}, needed...)
	sort.Strings(sorted)
	return workItem{ins: ins, needed: sorted}
}

func itemKey(item workItem) string {
	return fmt.Sprintf("%s/%d/%d:%s",
		item.ins.Block.Name, item.ins.Block.Index, item.ins.Index,
		strings.Join(item.needed, ","))
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
