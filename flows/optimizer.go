package flows

import (
	"fmt"
	"strings"

	"github.com/chaintrace/chaintrace/model"
)

// Optimize reduces a project's candidate flows before downstream
// classification. Flows are equivalent, and collapse to one, only when
// they share the sink call site (file, line set, sink name), the
// function-name chain, and the entry function; merging pools parameter
// indices and call-line sequences. Flows with distinct sink sites are
// never merged, even when their chains coincide, and no flow with a
// unique (site, chain, entry) triple is ever dropped.
func Optimize(in []model.CandidateFlow) []model.CandidateFlow {
	flows := mergeParamIndices(in)
	flows = dropDuplicates(flows)
	flows = dropSubchains(flows)
	flows = poolCallLines(flows)
	for i := range flows {
		flows[i].VD.Normalize()
	}
	return flows
}

func siteKey(vd model.VulnerableDestination) string {
	return strings.Join([]string{vd.File, vd.Lines.Key(), vd.Sink}, "|")
}

func callLinesKey(lines []model.LineSet) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Key()
	}
	return strings.Join(parts, "|")
}

// mergeParamIndices collapses flows identical up to the sink parameter
// index into one flow carrying the sorted union of indices.
func mergeParamIndices(in []model.CandidateFlow) []model.CandidateFlow {
	type slot struct{ idx int }
	groups := make(map[string]*slot)
	var out []model.CandidateFlow

	for _, flow := range in {
		key := strings.Join([]string{
			siteKey(flow.VD),
			flow.Chains.Key(),
			callLinesKey(flow.Chains.CallLines),
			flow.SourceFunc,
		}, "||")

		if g, ok := groups[key]; ok {
			merged := &out[g.idx]
			merged.VD.ParamIndices = append(merged.VD.ParamIndices, flow.VD.ParamIndex)
			merged.VD.ParamIndices = append(merged.VD.ParamIndices, flow.VD.ParamIndices...)
			merged.VD.Normalize()
			continue
		}
		flow.VD.Normalize()
		out = append(out, flow)
		groups[key] = &slot{idx: len(out) - 1}
	}
	return out
}

func flowKey(flow model.CandidateFlow) string {
	return strings.Join([]string{
		siteKey(flow.VD),
		fmt.Sprint(flow.VD.ParamIndices),
		flow.Chains.Key(),
		callLinesKey(flow.Chains.CallLines),
		flow.SourceFunc,
	}, "||")
}

func dropDuplicates(in []model.CandidateFlow) []model.CandidateFlow {
	seen := make(map[string]struct{}, len(in))
	var out []model.CandidateFlow
	for _, flow := range in {
		key := flowKey(flow)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, flow)
	}
	return out
}

// dropSubchains removes a flow whose chain is a strict suffix of another
// flow's chain for the same sink site. A shorter chain reaching the same
// call through the same tail adds no triage information. Flows at
// different sites always survive.
func dropSubchains(in []model.CandidateFlow) []model.CandidateFlow {
	var out []model.CandidateFlow
	for i, flow := range in {
		sub := false
		for j, other := range in {
			if i == j || !flow.VD.SameSite(other.VD) {
				continue
			}
			if len(flow.Chains.FunctionChain) < len(other.Chains.FunctionChain) &&
				isSuffix(flow.Chains.FunctionChain, other.Chains.FunctionChain) {
				sub = true
				break
			}
		}
		if !sub {
			out = append(out, flow)
		}
	}
	return out
}

func isSuffix(short, long []string) bool {
	if len(short) > len(long) {
		return false
	}
	tail := long[len(long)-len(short):]
	for i := range short {
		if tail[i] != short[i] {
			return false
		}
	}
	return true
}

// poolCallLines merges flows that agree on sink site, parameter indices,
// chain, and entry function but traverse different call lines, unioning
// the line sets position-wise.
func poolCallLines(in []model.CandidateFlow) []model.CandidateFlow {
	type group struct{ idx int }
	groups := make(map[string]*group)
	var out []model.CandidateFlow

	for _, flow := range in {
		key := strings.Join([]string{
			siteKey(flow.VD),
			fmt.Sprint(flow.VD.ParamIndices),
			flow.Chains.Key(),
			flow.SourceFunc,
		}, "||")

		if g, ok := groups[key]; ok {
			merged := &out[g.idx]
			merged.Chains.CallLines = mergeLinePositions([][]model.LineSet{
				merged.Chains.CallLines,
				flow.Chains.CallLines,
			})
			continue
		}
		out = append(out, flow)
		groups[key] = &group{idx: len(out) - 1}
	}
	return out
}
