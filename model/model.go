// Package model defines the language-agnostic function model shared by
// every analysis component. A front end lowers each function to ordered
// basic blocks of instructions with per-instruction def/use name sets,
// optional source line info, and resolved call sites. Any front end able
// to produce this shape can drive the engine.
package model

import "errors"

// ErrMalformedFunction reports a function that cannot be analyzed: it has
// zero basic blocks, or it is a declaration with no body. The failure is
// scoped to that function only and must never abort a batch.
var ErrMalformedFunction = errors.New("malformed function")

// ErrNoFunctions reports an empty project, the single fatal precondition
// for an analysis run.
var ErrNoFunctions = errors.New("project contains no function models")

// CallSite describes a call instruction's resolved target and location.
// Callee may be empty when the front end could not resolve the target
// directly; the call graph builder then falls back to scanning the
// instruction operands.
type CallSite struct {
	Callee string `json:"callee,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// Instruction is one opaque analysis unit. Defs holds the names it
// produces, Uses the names it consumes (its operands). Line is 0 when no
// debug location is attached. Instructions are immutable once the project
// is bound.
type Instruction struct {
	Defs []string  `json:"defs,omitempty"`
	Uses []string  `json:"uses,omitempty"`
	Line int       `json:"line,omitempty"`
	Call *CallSite `json:"call,omitempty"`

	// Back-references filled in by Project.Bind. Not owned.
	Block *BasicBlock `json:"-"`
	Index int         `json:"-"`
}

// DefinesAny reports whether the instruction defines any of the names.
func (ins *Instruction) DefinesAny(names map[string]struct{}) bool {
	for _, d := range ins.Defs {
		if _, ok := names[d]; ok {
			return true
		}
	}
	return false
}

// UsesAny returns the subset of names the instruction uses.
func (ins *Instruction) UsesAny(names map[string]struct{}) []string {
	var hit []string
	for _, u := range ins.Uses {
		if _, ok := names[u]; ok {
			hit = append(hit, u)
		}
	}
	return hit
}

// BasicBlock is an ordered run of instructions owned by exactly one
// function. Succs lists declared successor block names; when it is empty
// the CFG builder infers successors from the terminator's operands.
type BasicBlock struct {
	Name   string         `json:"name"`
	Instrs []*Instruction `json:"instrs,omitempty"`
	Succs  []string       `json:"succs,omitempty"`

	Parent *Function `json:"-"`
	Index  int       `json:"-"`
}

// Function is one function model. A definition carries at least one basic
// block; a declaration carries none and never becomes a CFG or slice
// target.
type Function struct {
	Name     string        `json:"name"`
	File     string        `json:"file,omitempty"`
	Line     int           `json:"line,omitempty"`
	EndLine  int           `json:"end_line,omitempty"`
	Params   []string      `json:"params,omitempty"`
	Blocks   []*BasicBlock `json:"blocks,omitempty"`
	Declared bool          `json:"declared,omitempty"`
}

// IsDefinition reports whether the function has a body.
func (f *Function) IsDefinition() bool {
	return !f.Declared && len(f.Blocks) > 0
}

// BlockByName returns the block with the given name, or nil.
func (f *Function) BlockByName(name string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Project is the set of function models for one analysis unit. All
// entities are built fresh per run; nothing is mutated after Bind.
type Project struct {
	Functions []*Function `json:"functions"`

	byName map[string]*Function
}

// Bind fixes up back-references (instruction and block parents, indices)
// and indexes functions by name. It must be called once after the project
// is decoded and before any analysis.
func (p *Project) Bind() {
	p.byName = make(map[string]*Function, len(p.Functions))
	for _, fn := range p.Functions {
		if _, ok := p.byName[fn.Name]; !ok {
			p.byName[fn.Name] = fn
		}
		for bi, b := range fn.Blocks {
			b.Parent = fn
			b.Index = bi
			for ii, ins := range b.Instrs {
				ins.Block = b
				ins.Index = ii
			}
		}
	}
}

// FunctionByName returns the function model with the given name, or nil.
// Definitions shadow declarations with the same name.
func (p *Project) FunctionByName(name string) *Function {
	fn := p.byName[name]
	if fn != nil && !fn.IsDefinition() {
		// Prefer a definition if one exists later in the list.
		for _, cand := range p.Functions {
			if cand.Name == name && cand.IsDefinition() {
				return cand
			}
		}
	}
	return fn
}

// Definitions returns every function with a body, in project order.
func (p *Project) Definitions() []*Function {
	var defs []*Function
	for _, fn := range p.Functions {
		if fn.IsDefinition() {
			defs = append(defs, fn)
		}
	}
	return defs
}

// IsKnownName reports whether name matches any function in the project,
// definition or declaration. The call graph builder uses this when
// resolving callees from raw operands.
func (p *Project) IsKnownName(name string) bool {
	_, ok := p.byName[name]
	return ok
}
