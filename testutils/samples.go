// Package testutils provides hand-built function models shared by the
// analysis tests. Fixtures mirror the shapes a front end would emit for
// small C-like programs.
package testutils

import "github.com/chaintrace/chaintrace/model"

// Ins builds one instruction.
func Ins(defs, uses []string, line int) *model.Instruction {
	return &model.Instruction{Defs: defs, Uses: uses, Line: line}
}

// CallIns builds a call instruction with a resolved callee.
func CallIns(callee, file string, line int, uses ...string) *model.Instruction {
	return &model.Instruction{
		Uses: uses,
		Line: line,
		Call: &model.CallSite{Callee: callee, File: file, Line: line},
	}
}

// Block builds a named block with declared successors.
func Block(name string, succs []string, instrs ...*model.Instruction) *model.BasicBlock {
	return &model.BasicBlock{Name: name, Succs: succs, Instrs: instrs}
}

// Bind wraps functions into a bound project.
func Bind(fns ...*model.Function) *model.Project {
	p := &model.Project{Functions: fns}
	p.Bind()
	return p
}

// LinearTaintFunction is the canonical three-block slice scenario:
// B1 defines x, B2 uses x and defines y, B3 uses y.
func LinearTaintFunction() *model.Function {
	return &model.Function{
		Name: "compute",
		File: "compute.c",
		Line: 8,
		Blocks: []*model.BasicBlock{
			Block("B1", []string{"B2"}, Ins([]string{"x"}, []string{"input"}, 10)),
			Block("B2", []string{"B3"}, Ins([]string{"y"}, []string{"x"}, 20)),
			Block("B3", nil, Ins(nil, []string{"y"}, 30)),
		},
	}
}

// DiamondFunction branches after entry and joins: entry defines a, each
// arm defines b, the join uses both. Exercises multi-predecessor IN sets.
func DiamondFunction() *model.Function {
	return &model.Function{
		Name: "branchy",
		File: "branchy.c",
		Line: 1,
		Blocks: []*model.BasicBlock{
			Block("entry", []string{"left", "right"}, Ins([]string{"a"}, nil, 2)),
			Block("left", []string{"join"}, Ins([]string{"b"}, []string{"a"}, 4)),
			Block("right", []string{"join"}, Ins([]string{"b"}, nil, 6)),
			Block("join", nil, Ins([]string{"r"}, []string{"a", "b"}, 8)),
		},
	}
}

// LoopFunction carries a definition around a back edge. Exercises
// fixpoint termination on cyclic graphs.
func LoopFunction() *model.Function {
	return &model.Function{
		Name: "loopy",
		File: "loopy.c",
		Line: 1,
		Blocks: []*model.BasicBlock{
			Block("entry", []string{"head"}, Ins([]string{"i"}, nil, 2)),
			Block("head", []string{"body", "exit"}, Ins(nil, []string{"i"}, 3)),
			Block("body", []string{"head"}, Ins([]string{"i"}, []string{"i"}, 4)),
			Block("exit", nil, Ins(nil, []string{"i"}, 6)),
		},
	}
}

// SinkProject models main -> foo -> bar with a system() call inside bar
// at line 42.
func SinkProject() *model.Project {
	mainFn := &model.Function{
		Name: "main", File: "main.c", Line: 3, EndLine: 8,
		Params: []string{"argc", "argv"},
		Blocks: []*model.BasicBlock{
			Block("entry", nil, CallIns("foo", "main.c", 5, "argv")),
		},
	}
	fooFn := &model.Function{
		Name: "foo", File: "main.c", Line: 12, EndLine: 18,
		Params: []string{"arg"},
		Blocks: []*model.BasicBlock{
			Block("entry", nil, CallIns("bar", "main.c", 15, "arg")),
		},
	}
	barFn := &model.Function{
		Name: "bar", File: "main.c", Line: 40, EndLine: 45,
		Params: []string{"cmd"},
		Blocks: []*model.BasicBlock{
			Block("entry", nil, CallIns("system", "main.c", 42, "cmd")),
		},
	}
	systemDecl := &model.Function{Name: "system", Declared: true}
	return Bind(mainFn, fooFn, barFn, systemDecl)
}

// RecursiveProject adds a mutual recursion cycle between ping and pong;
// the sink sits inside pong. Exercises per-path cycle handling.
func RecursiveProject() *model.Project {
	mainFn := &model.Function{
		Name: "main", File: "rec.c", Line: 3, EndLine: 6,
		Blocks: []*model.BasicBlock{
			Block("entry", nil, CallIns("ping", "rec.c", 4)),
		},
	}
	ping := &model.Function{
		Name: "ping", File: "rec.c", Line: 10, EndLine: 15,
		Blocks: []*model.BasicBlock{
			Block("entry", nil, CallIns("pong", "rec.c", 12)),
		},
	}
	pong := &model.Function{
		Name: "pong", File: "rec.c", Line: 20, EndLine: 27,
		Blocks: []*model.BasicBlock{
			Block("entry", nil,
				CallIns("ping", "rec.c", 22),
				CallIns("system", "rec.c", 25, "buf")),
		},
	}
	systemDecl := &model.Function{Name: "system", Declared: true}
	return Bind(mainFn, ping, pong, systemDecl)
}

// MultiCallProject has main calling helper at two different lines, with
// the sink inside helper. Each call line must yield a distinct chain
// before optimization pools them.
func MultiCallProject() *model.Project {
	mainFn := &model.Function{
		Name: "main", File: "multi.c", Line: 3, EndLine: 12,
		Blocks: []*model.BasicBlock{
			Block("entry", nil,
				CallIns("helper", "multi.c", 7),
				CallIns("helper", "multi.c", 9)),
		},
	}
	helper := &model.Function{
		Name: "helper", File: "multi.c", Line: 20, EndLine: 26,
		Blocks: []*model.BasicBlock{
			Block("entry", nil, CallIns("system", "multi.c", 23, "cmd")),
		},
	}
	systemDecl := &model.Function{Name: "system", Declared: true}
	return Bind(mainFn, helper, systemDecl)
}
