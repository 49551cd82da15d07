package flows

import (
	"sort"
	"strings"

	"github.com/chaintrace/chaintrace/model"
)

// FlowRef ties a chain-tree entry back to the flow list it came from.
type FlowRef struct {
	FlowIndex  int
	ChainIndex int
	VD         model.VulnerableDestination
}

// Tree indexes discovered chains by their full function-name sequence.
// Chains with identical name tuples but different call lines collapse to
// the same tree path; line data stays with the flow refs per key. The
// tree supports the prefix queries used for incremental search-space
// pruning and aggregate statistics.
type Tree struct {
	chains map[string][]string
	flows  map[string][]FlowRef
}

// NewTree builds an empty chain tree.
func NewTree() *Tree {
	return &Tree{
		chains: make(map[string][]string),
		flows:  make(map[string][]FlowRef),
	}
}

// Insert records a chain and the flow that owns it.
func (t *Tree) Insert(chain []string, flowIdx, chainIdx int, vd model.VulnerableDestination) {
	if len(chain) == 0 {
		return
	}
	key := chainKeyOf(chain)
	if _, ok := t.chains[key]; !ok {
		t.chains[key] = append([]string{}, chain...)
	}
	t.flows[key] = append(t.flows[key], FlowRef{FlowIndex: flowIdx, ChainIndex: chainIdx, VD: vd})
}

// Prefixes returns every distinct chain prefix of length >= 1, sorted by
// (length, lexicographic).
func (t *Tree) Prefixes() [][]string {
	seen := make(map[string][]string)
	for _, chain := range t.chains {
		for i := 1; i <= len(chain); i++ {
			prefix := chain[:i]
			seen[chainKeyOf(prefix)] = prefix
		}
	}

	prefixes := make([][]string, 0, len(seen))
	for _, p := range seen {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) < len(prefixes[j])
		}
		return lessLex(prefixes[i], prefixes[j])
	})
	return prefixes
}

// ChainsWithPrefix returns every indexed chain extending the prefix.
func (t *Tree) ChainsWithPrefix(prefix []string) [][]string {
	var out [][]string
	for _, chain := range t.chains {
		if hasPrefix(chain, prefix) {
			out = append(out, chain)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessLex(out[i], out[j]) })
	return out
}

// Flows returns the flow refs recorded for an exact chain.
func (t *Tree) Flows(chain []string) []FlowRef {
	return t.flows[chainKeyOf(chain)]
}

// TreeStats aggregates chain-tree shape information.
type TreeStats struct {
	UniqueChains int
	TotalFlows   int
	MinLength    int
	MaxLength    int
	AvgLength    float64
}

// Stats computes aggregate statistics over the indexed chains.
func (t *Tree) Stats() TreeStats {
	stats := TreeStats{UniqueChains: len(t.chains)}
	for key, chain := range t.chains {
		stats.TotalFlows += len(t.flows[key])
		n := len(chain)
		if stats.MinLength == 0 || n < stats.MinLength {
			stats.MinLength = n
		}
		if n > stats.MaxLength {
			stats.MaxLength = n
		}
		stats.AvgLength += float64(n)
	}
	if stats.UniqueChains > 0 {
		stats.AvgLength /= float64(stats.UniqueChains)
	}
	return stats
}

func chainKeyOf(chain []string) string {
	return strings.Join(chain, "\x1f")
}

func hasPrefix(chain, prefix []string) bool {
	if len(prefix) > len(chain) {
		return false
	}
	for i, p := range prefix {
		if chain[i] != p {
			return false
		}
	}
	return true
}

func lessLex(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
