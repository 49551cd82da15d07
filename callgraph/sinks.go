package callgraph

import "github.com/chaintrace/chaintrace/model"

// FindSinkCalls scans the graph's edges for calls to cataloged sink
// functions and emits one VulnerableDestination per call occurrence.
// Several catalog entries for the same sink name contribute their
// parameter indices to a single destination per call site.
func FindSinkCalls(g *Graph, catalog []model.SinkFunction) []model.VulnerableDestination {
	byName := make(map[string][]int)
	for _, sink := range catalog {
		byName[sink.Name] = append(byName[sink.Name], sink.ParamIndex)
	}

	var vds []model.VulnerableDestination
	for _, edge := range g.Edges {
		indices, ok := byName[edge.Callee]
		if !ok {
			continue
		}
		vd := model.VulnerableDestination{
			File:         edge.CallFile,
			Lines:        model.NewLineSet(edge.CallLine),
			Sink:         edge.Callee,
			ParamIndex:   indices[0],
			ParamIndices: indices,
		}
		vd.Normalize()
		vds = append(vds, vd)
	}
	return vds
}
