package dataflow

import (
	"testing"

	"github.com/chaintrace/chaintrace/cfg"
	"github.com/chaintrace/chaintrace/model"
	"github.com/chaintrace/chaintrace/testutils"
)

func buildGraph(t *testing.T, fn *model.Function) *cfg.Graph {
	t.Helper()
	testutils.Bind(fn)
	g, err := cfg.Build(fn)
	if err != nil {
		t.Fatalf("cfg build failed: %v", err)
	}
	return g
}

func wantSet(t *testing.T, got NameSet, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("set size mismatch: got %v want %v", got, want)
	}
	for _, n := range want {
		if !got.Contains(n) {
			t.Fatalf("missing %q in %v", n, got)
		}
	}
}

func TestReachingDefsLinear(t *testing.T) {
	t.Parallel()

	fn := testutils.LinearTaintFunction()
	g := buildGraph(t, fn)
	res := ReachingDefs(g)

	b1, b2, b3 := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2]
	wantSet(t, res.In(b1))
	wantSet(t, res.Out(b1), "x")
	wantSet(t, res.In(b2), "x")
	wantSet(t, res.Out(b2), "x", "y")
	wantSet(t, res.In(b3), "x", "y")
	wantSet(t, res.Out(b3), "x", "y")
}

func TestReachingDefsDiamondJoin(t *testing.T) {
	t.Parallel()

	fn := testutils.DiamondFunction()
	g := buildGraph(t, fn)
	res := ReachingDefs(g)

	join := fn.BlockByName("join")
	wantSet(t, res.In(join), "a", "b")
}

func TestReachingDefsLoopConverges(t *testing.T) {
	t.Parallel()

	fn := testutils.LoopFunction()
	g := buildGraph(t, fn)
	res := ReachingDefs(g)

	exit := fn.BlockByName("exit")
	wantSet(t, res.In(exit), "i")
	head := fn.BlockByName("head")
	wantSet(t, res.In(head), "i")
}

func TestGenKillEquationHolds(t *testing.T) {
	t.Parallel()

	fn := testutils.DiamondFunction()
	g := buildGraph(t, fn)
	res := ReachingDefs(g)

	for _, b := range g.Blocks() {
		gen := make(NameSet)
		for _, ins := range b.Instrs {
			for _, d := range ins.Defs {
				gen[d] = struct{}{}
			}
		}
		want := gen.clone()
		for n := range res.In(b) {
			if _, killed := gen[n]; !killed {
				want[n] = struct{}{}
			}
		}
		if !want.equal(res.Out(b)) {
			t.Fatalf("block %s violates OUT = GEN + (IN - KILL): got %v want %v",
				b.Name, res.Out(b), want)
		}
	}
}

// The fixpoint must not depend on worklist processing order; only the
// iteration count may differ.
func TestResultIndependentOfWorklistOrder(t *testing.T) {
	t.Parallel()

	fixtures := []*model.Function{
		testutils.LinearTaintFunction(),
		testutils.DiamondFunction(),
		testutils.LoopFunction(),
	}

	for _, fn := range fixtures {
		g := buildGraph(t, fn)
		fifo := fixpoint(g, false)
		lifo := fixpoint(g, true)

		for _, b := range g.Blocks() {
			if !fifo.In(b).equal(lifo.In(b)) {
				t.Fatalf("%s/%s: IN differs across orders: %v vs %v",
					fn.Name, b.Name, fifo.In(b), lifo.In(b))
			}
			if !fifo.Out(b).equal(lifo.Out(b)) {
				t.Fatalf("%s/%s: OUT differs across orders: %v vs %v",
					fn.Name, b.Name, fifo.Out(b), lifo.Out(b))
			}
		}
	}
}

// IN and OUT sets may only grow across iterations until convergence.
// Not parallel: it installs the package-level commit hook.
func TestFixpointMonotonicity(t *testing.T) {
	fn := testutils.LoopFunction()
	g := buildGraph(t, fn)

	lastIn := make(map[*model.BasicBlock]NameSet)
	lastOut := make(map[*model.BasicBlock]NameSet)
	commits := 0
	onCommit = func(b *model.BasicBlock, in, out NameSet) {
		commits++
		if prev, ok := lastIn[b]; ok && !subsetOf(prev, in) {
			t.Fatalf("block %s: IN shrank from %v to %v", b.Name, prev, in)
		}
		if prev, ok := lastOut[b]; ok && !subsetOf(prev, out) {
			t.Fatalf("block %s: OUT shrank from %v to %v", b.Name, prev, out)
		}
		lastIn[b] = in.clone()
		lastOut[b] = out.clone()
	}
	defer func() { onCommit = nil }()

	res := ReachingDefs(g)

	if commits == 0 {
		t.Fatal("fixpoint committed no updates")
	}
	// The last committed state per block is the returned result.
	for _, b := range g.Blocks() {
		if in, ok := lastIn[b]; ok && !in.equal(res.In(b)) {
			t.Fatalf("block %s: final IN %v does not match result %v", b.Name, in, res.In(b))
		}
	}
}

func subsetOf(sub, super NameSet) bool {
	for n := range sub {
		if !super.Contains(n) {
			return false
		}
	}
	return true
}

func TestUnreachableBlockStaysEmpty(t *testing.T) {
	t.Parallel()

	fn := &model.Function{
		Name: "dead",
		Blocks: []*model.BasicBlock{
			testutils.Block("entry", nil, testutils.Ins([]string{"x"}, nil, 1)),
			testutils.Block("orphan", nil, testutils.Ins([]string{"z"}, nil, 9)),
		},
	}
	g := buildGraph(t, fn)
	res := ReachingDefs(g)

	orphan := fn.BlockByName("orphan")
	wantSet(t, res.In(orphan))
	wantSet(t, res.Out(orphan), "z")
}
