package cfg_test

import (
	"errors"
	"testing"

	"github.com/chaintrace/chaintrace/cfg"
	"github.com/chaintrace/chaintrace/model"
	"github.com/chaintrace/chaintrace/testutils"
)

func TestBuildLinearGraph(t *testing.T) {
	t.Parallel()

	fn := testutils.LinearTaintFunction()
	testutils.Bind(fn)

	g, err := cfg.Build(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b1, b2, b3 := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2]
	if succs := g.Succs(b1); len(succs) != 1 || succs[0] != b2 {
		t.Fatalf("unexpected successors of B1: %v", succs)
	}
	if succs := g.Succs(b2); len(succs) != 1 || succs[0] != b3 {
		t.Fatalf("unexpected successors of B2: %v", succs)
	}
	if succs := g.Succs(b3); len(succs) != 0 {
		t.Fatalf("B3 should be terminal, got %v", succs)
	}
	if preds := g.Preds(b3); len(preds) != 1 || preds[0] != b2 {
		t.Fatalf("unexpected predecessors of B3: %v", preds)
	}
	if preds := g.Preds(b1); len(preds) != 0 {
		t.Fatalf("entry block should have no predecessors, got %v", preds)
	}
}

func TestBuildDiamondPredecessors(t *testing.T) {
	t.Parallel()

	fn := testutils.DiamondFunction()
	testutils.Bind(fn)

	g, err := cfg.Build(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	join := fn.BlockByName("join")
	if preds := g.Preds(join); len(preds) != 2 {
		t.Fatalf("join should have two predecessors, got %d", len(preds))
	}
}

func TestBuildTerminatorFallback(t *testing.T) {
	t.Parallel()

	// No declared successors: the terminator's operands name the target
	// blocks.
	fn := &model.Function{
		Name: "fallthrough",
		Blocks: []*model.BasicBlock{
			testutils.Block("entry", nil,
				testutils.Ins([]string{"c"}, nil, 1),
				testutils.Ins(nil, []string{"c", "then", "else"}, 2)),
			testutils.Block("then", nil, testutils.Ins(nil, nil, 3)),
			testutils.Block("else", nil, testutils.Ins(nil, nil, 4)),
		},
	}
	testutils.Bind(fn)

	g, err := cfg.Build(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if succs := g.Succs(fn.Blocks[0]); len(succs) != 2 {
		t.Fatalf("expected two inferred successors, got %d", len(succs))
	}
}

func TestBuildMalformedTerminatorIsTolerated(t *testing.T) {
	t.Parallel()

	fn := &model.Function{
		Name: "weird",
		Blocks: []*model.BasicBlock{
			testutils.Block("entry", nil, testutils.Ins(nil, []string{"nowhere"}, 1)),
		},
	}
	testutils.Bind(fn)

	g, err := cfg.Build(fn)
	if err != nil {
		t.Fatalf("malformed terminator must not fail the build: %v", err)
	}
	if succs := g.Succs(fn.Blocks[0]); len(succs) != 0 {
		t.Fatalf("expected locally terminal block, got %v", succs)
	}
}

func TestBuildRejectsEmptyFunction(t *testing.T) {
	t.Parallel()

	_, err := cfg.Build(&model.Function{Name: "empty"})
	if !errors.Is(err, model.ErrMalformedFunction) {
		t.Fatalf("expected ErrMalformedFunction, got %v", err)
	}
}

func TestBuildRejectsDeclaration(t *testing.T) {
	t.Parallel()

	_, err := cfg.Build(&model.Function{Name: "system", Declared: true})
	if !errors.Is(err, model.ErrMalformedFunction) {
		t.Fatalf("expected ErrMalformedFunction, got %v", err)
	}
}
