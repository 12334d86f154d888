// Package graph builds a citation graph over a set of resolved papers and
// analyzes it: influence ranking with PageRank, shortest citation paths,
// neighbourhoods, summary statistics and export for visualization.
//
// A CitationGraph is built per request from a closed set of papers. An edge
// (a, b) means a cites b and exists only when both a and b are in the set.
// Graphs are immutable once built and safe for concurrent reads.
package graph

import (
	"slices"
	"sort"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// Edge is a citation from one paper to another.
type Edge struct {
	From string `json:"source" yaml:"source"`
	To   string `json:"target" yaml:"target"`
}

// CitationGraph is a directed "cites" graph.
type CitationGraph struct {
	nodes   []string
	index   map[string]int
	aliases map[string]int // other ids of a node; node ids take precedence
	out     [][]int        // reference order
	in      [][]int        // ascending node order
	metrics []*domain.Metrics
	edges   int
}

// Build creates a graph whose nodes are the keys of metricsByID. References
// to papers outside the key set are dropped, duplicate references collapse
// into one edge and a paper citing itself yields a self edge.
//
// A reference matches a node when any id it is known by equals the node id
// or one of the node's aliases. An alias claimed by two nodes belongs to the
// first in node order.
//
// The result does not depend on map iteration order: nodes are sorted and
// each node's edges follow its reference list.
func Build(metricsByID map[string]*domain.Metrics) *CitationGraph {
	g := &CitationGraph{
		nodes:   make([]string, 0, len(metricsByID)),
		index:   make(map[string]int, len(metricsByID)),
		aliases: make(map[string]int),
	}
	for id := range metricsByID {
		g.nodes = append(g.nodes, id)
	}
	sort.Strings(g.nodes)

	g.out = make([][]int, len(g.nodes))
	g.in = make([][]int, len(g.nodes))
	g.metrics = make([]*domain.Metrics, len(g.nodes))
	for i, id := range g.nodes {
		g.index[id] = i
		g.metrics[i] = metricsByID[id]
	}
	for i, m := range g.metrics {
		if m == nil {
			continue
		}
		for _, alias := range m.KnownIDs() {
			alias = domain.NormalizePaperID(alias)
			if _, taken := g.aliases[alias]; taken || alias == "" {
				continue
			}
			g.aliases[alias] = i
		}
	}

	for i, m := range g.metrics {
		if m == nil {
			continue
		}
		seen := make(map[int]bool, len(m.ReferenceIDs))
		for k := range m.ReferenceIDs {
			j, ok := g.lookupAny(m.ReferenceCandidates(k))
			if !ok || seen[j] {
				continue
			}
			seen[j] = true
			g.out[i] = append(g.out[i], j)
			g.in[j] = append(g.in[j], i)
			g.edges++
		}
	}
	// Citers are visited in ascending order above, so in is already sorted.
	return g
}

// BuildFromList indexes a result list by paper id and builds the graph.
// Later duplicates replace earlier ones.
func BuildFromList(metrics []*domain.Metrics) *CitationGraph {
	byID := make(map[string]*domain.Metrics, len(metrics))
	for _, m := range metrics {
		if m != nil && m.PaperID != "" {
			byID[m.PaperID] = m
		}
	}
	return Build(byID)
}

// lookup resolves id exactly, then in normalized form, then as an alias.
func (g *CitationGraph) lookup(id string) (int, bool) {
	if i, ok := g.index[id]; ok {
		return i, true
	}
	normalized := domain.NormalizePaperID(id)
	if i, ok := g.index[normalized]; ok {
		return i, true
	}
	i, ok := g.aliases[normalized]
	return i, ok
}

// lookupAny returns the node of the first id that resolves.
func (g *CitationGraph) lookupAny(ids []string) (int, bool) {
	for _, id := range ids {
		if i, ok := g.lookup(id); ok {
			return i, true
		}
	}
	return 0, false
}

// Nodes returns the paper ids in ascending order.
func (g *CitationGraph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// NodeCount returns the number of papers.
func (g *CitationGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of citations, self citations included.
func (g *CitationGraph) EdgeCount() int {
	return g.edges
}

// HasNode reports whether id is a paper of the graph.
func (g *CitationGraph) HasNode(id string) bool {
	_, ok := g.lookup(id)
	return ok
}

// HasEdge reports whether from cites to.
func (g *CitationGraph) HasEdge(from, to string) bool {
	i, ok := g.lookup(from)
	if !ok {
		return false
	}
	j, ok := g.lookup(to)
	if !ok {
		return false
	}
	return slices.Contains(g.out[i], j)
}

// Edges returns every citation, grouped by citer in node order and then in
// reference order.
func (g *CitationGraph) Edges() []Edge {
	edges := make([]Edge, 0, g.edges)
	for i, targets := range g.out {
		for _, j := range targets {
			edges = append(edges, Edge{From: g.nodes[i], To: g.nodes[j]})
		}
	}
	return edges
}

// Cites returns the papers id cites, in reference order.
func (g *CitationGraph) Cites(id string) []string {
	i, ok := g.lookup(id)
	if !ok {
		return nil
	}
	return g.names(g.out[i])
}

// CitedBy returns the papers citing id, in ascending order.
func (g *CitationGraph) CitedBy(id string) []string {
	i, ok := g.lookup(id)
	if !ok {
		return nil
	}
	return g.names(g.in[i])
}

// Metrics returns the metrics the node was built from, or nil.
func (g *CitationGraph) Metrics(id string) *domain.Metrics {
	i, ok := g.lookup(id)
	if !ok {
		return nil
	}
	return g.metrics[i]
}

func (g *CitationGraph) names(idx []int) []string {
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = g.nodes[i]
	}
	return out
}
