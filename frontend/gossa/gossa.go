// Package gossa lowers Go packages to the chaintrace function model
// using the x/tools SSA form. It exists both as a usable Go front end
// and as the reference for what any front end must supply: ordered
// blocks, per-instruction def/use names, call sites, and line info.
package gossa

import (
	"fmt"
	"go/token"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/chaintrace/chaintrace/model"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedTypesSizes |
	packages.NeedTypesInfo |
	packages.NeedSyntax |
	packages.NeedDeps

// LoadProject loads the Go packages matched by patterns under dir,
// builds SSA, and converts every source function to a function model.
func LoadProject(dir string, patterns ...string) (*model.Project, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	pkgs, err := packages.Load(&packages.Config{Mode: loadMode, Dir: dir}, patterns...)
	if err != nil {
		return nil, fmt.Errorf("gossa: load packages: %w", err)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("gossa: package %s: %v", pkg.PkgPath, pkg.Errors[0])
		}
	}

	prog, ssaPkgs := ssautil.Packages(pkgs, ssa.BuilderMode(0))
	prog.Build()

	var fns []*ssa.Function
	for _, sp := range ssaPkgs {
		if sp == nil {
			continue
		}
		for _, member := range sp.Members {
			if fn, ok := member.(*ssa.Function); ok {
				fns = appendWithAnons(fns, fn)
			}
		}
	}
	return FromFunctions(prog.Fset, fns), nil
}

func appendWithAnons(fns []*ssa.Function, fn *ssa.Function) []*ssa.Function {
	fns = append(fns, fn)
	for _, anon := range fn.AnonFuncs {
		fns = appendWithAnons(fns, anon)
	}
	return fns
}

// FromFunctions converts SSA functions into a bound project. Functions
// without blocks become declarations.
func FromFunctions(fset *token.FileSet, fns []*ssa.Function) *model.Project {
	project := &model.Project{}
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		project.Functions = append(project.Functions, convertFunction(fset, fn))
	}
	project.Bind()
	return project
}

func convertFunction(fset *token.FileSet, fn *ssa.Function) *model.Function {
	out := &model.Function{
		Name:     fn.Name(),
		Declared: len(fn.Blocks) == 0,
	}
	if pos := fset.Position(fn.Pos()); pos.IsValid() {
		out.File = pos.Filename
		out.Line = pos.Line
	}
	for _, p := range fn.Params {
		out.Params = append(out.Params, p.Name())
	}

	for _, b := range fn.Blocks {
		block := &model.BasicBlock{Name: fmt.Sprintf("b%d", b.Index)}
		for _, s := range b.Succs {
			block.Succs = append(block.Succs, fmt.Sprintf("b%d", s.Index))
		}
		for _, instr := range b.Instrs {
			block.Instrs = append(block.Instrs, convertInstruction(fset, instr))
		}
		out.Blocks = append(out.Blocks, block)

		for _, ins := range block.Instrs {
			if ins.Line > out.EndLine {
				out.EndLine = ins.Line
			}
		}
	}
	if out.EndLine < out.Line {
		out.EndLine = out.Line
	}
	return out
}

func convertInstruction(fset *token.FileSet, instr ssa.Instruction) *model.Instruction {
	ins := &model.Instruction{}

	if v, ok := instr.(ssa.Value); ok && v.Name() != "" {
		ins.Defs = []string{v.Name()}
	}

	var operands []*ssa.Value
	for _, op := range instr.Operands(operands) {
		if op == nil || *op == nil {
			continue
		}
		if name := (*op).Name(); name != "" {
			ins.Uses = append(ins.Uses, name)
		}
	}

	if pos := fset.Position(instr.Pos()); pos.IsValid() {
		ins.Line = pos.Line
	}

	if call, ok := instr.(ssa.CallInstruction); ok {
		site := &model.CallSite{Line: ins.Line}
		if pos := fset.Position(instr.Pos()); pos.IsValid() {
			site.File = pos.Filename
		}
		if callee := call.Common().StaticCallee(); callee != nil {
			site.Callee = callee.Name()
		}
		ins.Call = site
	}

	return ins
}
