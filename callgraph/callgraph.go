// Package callgraph aggregates call edges across all function models of
// a project into one read-only graph, paired with a table of function
// definition locations. The graph is built once per analysis run and
// queried by the chain tracer.
package callgraph

import "github.com/chaintrace/chaintrace/model"

// Edge is one call occurrence. A caller invoking the same callee at
// several lines produces several edges.
type Edge struct {
	Caller     string `json:"caller"`
	CallerFile string `json:"caller_file"`
	CallerLine int    `json:"caller_line"`
	Callee     string `json:"callee"`
	CallFile   string `json:"call_file"`
	CallLine   int    `json:"call_line"`
}

// Definition records where a function body lives, including its line
// extent for containing-function lookups.
type Definition struct {
	File      string   `json:"file"`
	Line      int      `json:"line"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Params    []string `json:"params,omitempty"`
}

// Graph is the project-wide call graph. Read-only after Build.
type Graph struct {
	Edges       []Edge
	Definitions map[string]Definition

	callers map[string][]Edge
	callees map[string][]Edge
}

// Build walks every function definition's instructions and records one
// edge per resolved call site. The callee name comes from the call site's
// direct reference; when that is missing, the instruction operands are
// searched for a name matching a known function (best-effort resolution
// of indirect calls). Unresolved callees are dropped, not retained.
// Duplicate edges with an identical full key are removed.
func Build(p *model.Project) *Graph {
	g := &Graph{
		Definitions: make(map[string]Definition),
		callers:     make(map[string][]Edge),
		callees:     make(map[string][]Edge),
	}

	for _, fn := range p.Definitions() {
		end := fn.EndLine
		if end == 0 {
			end = fn.Line
		}
		g.Definitions[fn.Name] = Definition{
			File:      fn.File,
			Line:      fn.Line,
			StartLine: fn.Line,
			EndLine:   end,
			Params:    fn.Params,
		}
	}

	seen := make(map[Edge]struct{})
	for _, fn := range p.Definitions() {
		def := g.Definitions[fn.Name]
		for _, b := range fn.Blocks {
			for _, ins := range b.Instrs {
				if ins.Call == nil {
					continue
				}
				callee := resolveCallee(p, ins)
				if callee == "" {
					continue
				}
				edge := Edge{
					Caller:     fn.Name,
					CallerFile: def.File,
					CallerLine: def.Line,
					Callee:     callee,
					CallFile:   callFile(fn, ins),
					CallLine:   callLine(ins),
				}
				if _, dup := seen[edge]; dup {
					continue
				}
				seen[edge] = struct{}{}
				g.Edges = append(g.Edges, edge)
				g.callers[edge.Callee] = append(g.callers[edge.Callee], edge)
				g.callees[edge.Caller] = append(g.callees[edge.Caller], edge)
			}
		}
	}

	return g
}

func resolveCallee(p *model.Project, ins *model.Instruction) string {
	if ins.Call.Callee != "" {
		return ins.Call.Callee
	}
	for _, op := range ins.Uses {
		if p.IsKnownName(op) {
			return op
		}
	}
	return ""
}

func callFile(fn *model.Function, ins *model.Instruction) string {
	if ins.Call.File != "" {
		return ins.Call.File
	}
	return fn.File
}

func callLine(ins *model.Instruction) int {
	if ins.Call.Line != 0 {
		return ins.Call.Line
	}
	return ins.Line
}

// CallersOf returns every edge whose callee is the named function.
func (g *Graph) CallersOf(name string) []Edge { return g.callers[name] }

// CalleesOf returns every edge whose caller is the named function.
func (g *Graph) CalleesOf(name string) []Edge { return g.callees[name] }

// ContainingFunction resolves which function definition encloses the
// given file and line, using definition extents.
func (g *Graph) ContainingFunction(file string, line int) (string, bool) {
	for name, def := range g.Definitions {
		if def.File != file {
			continue
		}
		if def.StartLine <= line && line <= def.EndLine {
			return name, true
		}
	}
	return "", false
}
