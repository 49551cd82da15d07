// Package flows discovers candidate attack paths: call chains from entry
// functions to sink call sites, indexed in a prefix tree and reduced by
// the flow optimizer before they are handed downstream.
package flows

import (
	"io"
	"log"
	"sort"

	"github.com/chaintrace/chaintrace/callgraph"
	"github.com/chaintrace/chaintrace/model"
)

// DefaultMaxDepth bounds reverse-graph exploration on large projects.
// Paths deeper than the bound are discarded, not truncated.
const DefaultMaxDepth = 50

// Tracer enumerates call chains from configured entry functions to a
// sink call site by depth-first search over the reverse call graph.
// Tracer is read-only after construction; invocations for different
// sinks are independent and may run concurrently.
type Tracer struct {
	graph    *callgraph.Graph
	entries  map[string]struct{}
	maxDepth int
	logger   *log.Logger
}

// NewTracer builds a tracer over a finished call graph. maxDepth <= 0
// selects DefaultMaxDepth; a nil logger discards warnings.
func NewTracer(g *callgraph.Graph, entries []string, maxDepth int, logger *log.Logger) *Tracer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e] = struct{}{}
	}
	return &Tracer{graph: g, entries: set, maxDepth: maxDepth, logger: logger}
}

// Trace finds every simple call path from an entry function to the
// function containing the sink call and converts each distinct path to a
// candidate flow. The chain ends at the containing function; the sink
// call line itself travels on the destination record. Paths that share
// the exact function-name sequence but traverse different call lines
// collapse into one flow whose per-hop lines are pooled.
func (t *Tracer) Trace(vd model.VulnerableDestination) []model.CandidateFlow {
	containing, ok := t.containingFunction(vd)
	if !ok {
		t.logger.Printf("warning: no containing function for sink %s at %s:%v", vd.Sink, vd.File, vd.Lines)
		return nil
	}

	var paths [][]callgraph.Edge
	onPath := make(map[string]bool)
	t.walk(containing, nil, onPath, 0, &paths)

	return t.convert(paths, vd)
}

func (t *Tracer) containingFunction(vd model.VulnerableDestination) (string, bool) {
	if len(vd.Lines) == 0 {
		return "", false
	}
	return t.graph.ContainingFunction(vd.File, vd.Lines[0])
}

// walk explores callers of current. path holds the edges from current
// down to the sink's containing function. onPath marks functions on the
// current path only; it is unmarked on backtrack so distinct paths
// through the same function stay reachable.
func (t *Tracer) walk(current string, path []callgraph.Edge, onPath map[string]bool, depth int, out *[][]callgraph.Edge) {
	if depth > t.maxDepth {
		return
	}
	if onPath[current] {
		return
	}
	onPath[current] = true
	defer delete(onPath, current)

	// Reaching an entry function terminates the path; entries are never
	// traversed as interior hops.
	if _, isEntry := t.entries[current]; isEntry {
		if len(path) > 0 {
			*out = append(*out, append([]callgraph.Edge{}, path...))
		}
		return
	}

	for _, edge := range t.graph.CallersOf(current) {
		t.walk(edge.Caller, append([]callgraph.Edge{edge}, path...), onPath, depth+1, out)
	}
}

// convert groups paths by their function-name sequence and emits one
// flow per group, merging call lines position-wise.
func (t *Tracer) convert(paths [][]callgraph.Edge, vd model.VulnerableDestination) []model.CandidateFlow {
	type group struct {
		chain []string
		lines [][]model.LineSet
	}
	groups := make(map[string]*group)
	var order []string

	for _, path := range paths {
		if len(path) == 0 {
			continue
		}
		chain := []string{path[0].Caller}
		var lines []model.LineSet
		for _, edge := range path {
			chain = append(chain, edge.Callee)
			lines = append(lines, model.NewLineSet(edge.CallLine))
		}

		key := model.CallChain{FunctionChain: chain}.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{chain: chain}
			groups[key] = g
			order = append(order, key)
		}
		g.lines = append(g.lines, lines)
	}

	var result []model.CandidateFlow
	for _, key := range order {
		g := groups[key]
		chain := model.CallChain{
			FunctionChain: g.chain,
			CallLines:     mergeLinePositions(g.lines),
		}
		if err := chain.Validate(); err != nil {
			t.logger.Printf("warning: dropping malformed chain for sink %s: %v", vd.Sink, err)
			continue
		}
		result = append(result, model.CandidateFlow{
			VD:           vd,
			Chains:       chain,
			SourceFunc:   g.chain[0],
			SourceParams: t.graph.Definitions[g.chain[0]].Params,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Chains.Key() < result[j].Chains.Key() })
	return result
}

// mergeLinePositions unions call lines position-wise across several
// line sequences for the same chain.
func mergeLinePositions(seqs [][]model.LineSet) []model.LineSet {
	if len(seqs) == 0 {
		return nil
	}
	maxLen := 0
	for _, s := range seqs {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	merged := make([]model.LineSet, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		var at model.LineSet
		for _, s := range seqs {
			if i < len(s) {
				at = at.Merge(s[i])
			}
		}
		merged = append(merged, at)
	}
	return merged
}
