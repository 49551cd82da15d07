// Package cfg builds intra-procedural control-flow graphs over the basic
// blocks of a function model.
package cfg

import (
	"fmt"

	"github.com/chaintrace/chaintrace/model"
)

// Graph is a directed graph over one function's basic blocks. Blocks
// unreachable from entry are retained; they converge to empty dataflow
// facts and do not affect fixpoint correctness.
type Graph struct {
	fn    *model.Function
	succs map[*model.BasicBlock][]*model.BasicBlock
	preds map[*model.BasicBlock][]*model.BasicBlock
}

// Build constructs the CFG for a function definition. Edges come from the
// declared successor list of each block; when a block declares none, the
// terminator instruction's operands are resolved by name against the
// function's block table. A block with no resolvable successors is left
// locally terminal, which is tolerated. Build fails only when the function
// has no basic blocks.
func Build(fn *model.Function) (*Graph, error) {
	if fn == nil || !fn.IsDefinition() {
		name := "<nil>"
		if fn != nil {
			name = fn.Name
		}
		return nil, fmt.Errorf("cfg: %q has no body: %w", name, model.ErrMalformedFunction)
	}

	g := &Graph{
		fn:    fn,
		succs: make(map[*model.BasicBlock][]*model.BasicBlock, len(fn.Blocks)),
		preds: make(map[*model.BasicBlock][]*model.BasicBlock, len(fn.Blocks)),
	}

	for _, b := range fn.Blocks {
		g.succs[b] = nil
		g.preds[b] = nil
	}

	for _, b := range fn.Blocks {
		for _, s := range successorsOf(fn, b) {
			g.addEdge(b, s)
		}
	}

	return g, nil
}

func successorsOf(fn *model.Function, b *model.BasicBlock) []*model.BasicBlock {
	if len(b.Succs) > 0 {
		var succs []*model.BasicBlock
		for _, name := range b.Succs {
			if s := fn.BlockByName(name); s != nil {
				succs = append(succs, s)
			}
		}
		return succs
	}

	// Fallback: resolve the terminator's operands against the block table.
	if len(b.Instrs) == 0 {
		return nil
	}
	term := b.Instrs[len(b.Instrs)-1]
	var succs []*model.BasicBlock
	for _, op := range term.Uses {
		if s := fn.BlockByName(op); s != nil {
			succs = append(succs, s)
		}
	}
	return succs
}

func (g *Graph) addEdge(from, to *model.BasicBlock) {
	for _, s := range g.succs[from] {
		if s == to {
			return
		}
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

// Function returns the function this graph was built for.
func (g *Graph) Function() *model.Function { return g.fn }

// Blocks returns the function's blocks in body order.
func (g *Graph) Blocks() []*model.BasicBlock { return g.fn.Blocks }

// Succs returns the control-flow successors of a block.
func (g *Graph) Succs(b *model.BasicBlock) []*model.BasicBlock { return g.succs[b] }

// Preds returns the control-flow predecessors of a block.
func (g *Graph) Preds(b *model.BasicBlock) []*model.BasicBlock { return g.preds[b] }
