// Package dataflow implements the reaching-definitions fixpoint used by
// the backward slicer. Facts are name sets, not SSA versions: every
// definition of a name in a block both generates and kills that name.
// This is a deliberate over-approximation; the slicer re-scans
// instruction order when it needs position-exact answers.
package dataflow

import (
	"github.com/chaintrace/chaintrace/cfg"
	"github.com/chaintrace/chaintrace/model"
)

// NameSet is a set of variable names.
type NameSet map[string]struct{}

func (s NameSet) clone() NameSet {
	out := make(NameSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

func (s NameSet) addAll(other NameSet) {
	for n := range other {
		s[n] = struct{}{}
	}
}

func (s NameSet) equal(other NameSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if _, ok := other[n]; !ok {
			return false
		}
	}
	return true
}

// Contains reports membership.
func (s NameSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Result maps each basic block to the definitions that may reach its
// entry and exit. A result is complete: no partially converged state is
// ever returned.
type Result struct {
	in  map[*model.BasicBlock]NameSet
	out map[*model.BasicBlock]NameSet
}

// In returns the names whose definitions may reach the block entry.
func (r *Result) In(b *model.BasicBlock) NameSet { return r.in[b] }

// Out returns the names whose definitions may reach the block exit.
func (r *Result) Out(b *model.BasicBlock) NameSet { return r.out[b] }

// ReachingDefs runs the iterative worklist fixpoint over the graph. The
// solution is the least fixpoint of
//
//	IN[b]  = union of OUT[p] over predecessors p
//	OUT[b] = GEN[b] + (IN[b] - KILL[b])
//
// and is independent of visitation order; each set is bounded by the
// distinct names in the function and only ever grows, so the loop
// terminates.
func ReachingDefs(g *cfg.Graph) *Result {
	return fixpoint(g, false)
}

// onCommit, when set, observes every accepted IN/OUT update during
// iteration. Test hook only; never set outside tests.
var onCommit func(b *model.BasicBlock, in, out NameSet)

// fixpoint drains the worklist in FIFO order, or LIFO when lifo is set.
// Both orders converge to the same result; tests exercise the alternate
// order to prove it.
func fixpoint(g *cfg.Graph, lifo bool) *Result {
	gen := make(map[*model.BasicBlock]NameSet, len(g.Blocks()))
	kill := make(map[*model.BasicBlock]NameSet, len(g.Blocks()))
	for _, b := range g.Blocks() {
		gk := make(NameSet)
		for _, ins := range b.Instrs {
			for _, d := range ins.Defs {
				gk[d] = struct{}{}
			}
		}
		gen[b] = gk
		kill[b] = gk
	}

	res := &Result{
		in:  make(map[*model.BasicBlock]NameSet, len(g.Blocks())),
		out: make(map[*model.BasicBlock]NameSet, len(g.Blocks())),
	}
	for _, b := range g.Blocks() {
		res.in[b] = make(NameSet)
		res.out[b] = make(NameSet)
	}

	worklist := append([]*model.BasicBlock{}, g.Blocks()...)
	queued := make(map[*model.BasicBlock]bool, len(worklist))
	for _, b := range worklist {
		queued[b] = true
	}

	for len(worklist) > 0 {
		var b *model.BasicBlock
		if lifo {
			b = worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
		} else {
			b = worklist[0]
			worklist = worklist[1:]
		}
		queued[b] = false

		newIn := make(NameSet)
		for _, p := range g.Preds(b) {
			newIn.addAll(res.out[p])
		}

		newOut := gen[b].clone()
		for n := range newIn {
			if _, killed := kill[b][n]; !killed {
				newOut[n] = struct{}{}
			}
		}

		if newIn.equal(res.in[b]) && newOut.equal(res.out[b]) {
			continue
		}
		res.in[b] = newIn
		res.out[b] = newOut
		if onCommit != nil {
			onCommit(b, newIn, newOut)
		}

		for _, s := range g.Succs(b) {
			if !queued[s] {
				queued[s] = true
				worklist = append(worklist, s)
			}
		}
	}

	return res
}
