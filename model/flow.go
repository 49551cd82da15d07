package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// LineSet is a sorted set of source lines. The wire format collapses a
// singleton to a bare integer; multiple lines serialize as an array. This
// matches the candidate-flow record shape consumed downstream.
type LineSet []int

// NewLineSet builds a sorted, deduplicated line set.
func NewLineSet(lines ...int) LineSet {
	seen := make(map[int]struct{}, len(lines))
	out := make(LineSet, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Merge returns the union of two line sets.
func (s LineSet) Merge(other LineSet) LineSet {
	return NewLineSet(append(append([]int{}, s...), other...)...)
}

// Equal reports set equality.
func (s LineSet) Equal(other LineSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Key returns a canonical string form usable as a map key component.
func (s LineSet) Key() string {
	return fmt.Sprint([]int(s))
}

// MarshalJSON emits a bare int for singletons and an array otherwise.
func (s LineSet) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]int(s))
}

// UnmarshalJSON accepts either a bare int or an array of ints.
func (s *LineSet) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*s = LineSet{single}
		return nil
	}
	var many []int
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = NewLineSet(many...)
	return nil
}

// VulnerableDestination identifies one sink call occurrence: the file and
// line(s) of the call, the sink function name, and the tainted parameter
// position(s). Distinct destinations may share a sink name.
type VulnerableDestination struct {
	File         string  `json:"file"`
	Lines        LineSet `json:"line"`
	Sink         string  `json:"sink"`
	ParamIndex   int     `json:"param_index"`
	ParamIndices []int   `json:"param_indices"`
}

// Normalize ensures ParamIndices contains ParamIndex, is sorted and
// deduplicated, and that ParamIndex is the minimum.
func (vd *VulnerableDestination) Normalize() {
	set := map[int]struct{}{vd.ParamIndex: {}}
	for _, idx := range vd.ParamIndices {
		set[idx] = struct{}{}
	}
	vd.ParamIndices = vd.ParamIndices[:0]
	for idx := range set {
		vd.ParamIndices = append(vd.ParamIndices, idx)
	}
	sort.Ints(vd.ParamIndices)
	vd.ParamIndex = vd.ParamIndices[0]
}

// SameSite reports whether two destinations denote the same sink call
// occurrence (file, lines, and sink name).
func (vd VulnerableDestination) SameSite(other VulnerableDestination) bool {
	return vd.File == other.File && vd.Sink == other.Sink && vd.Lines.Equal(other.Lines)
}

// CallChain is an ordered call path from an entry function to the
// function containing the sink call, with the call-site line(s) recorded
// at each hop. The sink call line itself lives on the
// VulnerableDestination, not in the chain. CallLines excludes the entry
// function, so a well-formed chain satisfies
// len(CallLines) == len(FunctionChain)-1.
type CallChain struct {
	FunctionChain []string  `json:"function_chain"`
	CallLines     []LineSet `json:"function_call_line"`
}

// Validate rejects malformed chains.
func (c CallChain) Validate() error {
	if len(c.FunctionChain) == 0 {
		return fmt.Errorf("empty function chain")
	}
	if len(c.CallLines) != len(c.FunctionChain)-1 {
		return fmt.Errorf("chain %v has %d call lines, want %d",
			c.FunctionChain, len(c.CallLines), len(c.FunctionChain)-1)
	}
	return nil
}

// Key returns a canonical form of the function-name sequence, ignoring
// call lines. Chains with the same key collapse to one chain-tree path.
func (c CallChain) Key() string {
	return chainKey(c.FunctionChain)
}

func chainKey(names []string) string {
	key := ""
	for i, n := range names {
		if i > 0 {
			key += "\x1f"
		}
		key += n
	}
	return key
}

// CandidateFlow is the unit handed to downstream classification: one sink
// occurrence, one call chain reaching it, and the entry function with its
// parameters.
type CandidateFlow struct {
	VD           VulnerableDestination `json:"vd"`
	Chains       CallChain             `json:"chains"`
	SourceFunc   string                `json:"source_func"`
	SourceParams []string              `json:"source_params"`
}

// SinkFunction names one dangerous function and the parameter position
// that must not receive attacker-influenced data. By records whether the
// entry came from a static rule catalog or an external classifier.
type SinkFunction struct {
	Name       string `json:"name"`
	ParamIndex int    `json:"param_index"`
	Reason     string `json:"reason,omitempty"`
	By         string `json:"by,omitempty"`
}
