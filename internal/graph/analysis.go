package graph

import (
	"sort"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// Seminal score weights.
const (
	citationWeight    = 0.5
	influentialWeight = 2.0
	inDegreeWeight    = 10.0
)

// Neighbors is the immediate citation neighbourhood of a paper.
type Neighbors struct {
	ID      string   `json:"id" yaml:"id"`
	Cites   []string `json:"cites" yaml:"cites"`
	CitedBy []string `json:"cited_by" yaml:"cited_by"`
}

// Neighbors returns the papers id cites and the papers citing it.
func (g *CitationGraph) Neighbors(id string) (Neighbors, error) {
	i, ok := g.lookup(id)
	if !ok {
		return Neighbors{}, domain.NewNotFoundError("paper", id)
	}
	return Neighbors{
		ID:      g.nodes[i],
		Cites:   g.names(g.out[i]),
		CitedBy: g.names(g.in[i]),
	}, nil
}

// GraphStats summarizes a graph.
type GraphStats struct {
	Nodes          int     `json:"nodes" yaml:"nodes"`
	Edges          int     `json:"edges" yaml:"edges"`
	Density        float64 `json:"density" yaml:"density"`
	WeakComponents int     `json:"weak_components" yaml:"weak_components"`
	IsConnected    bool    `json:"is_connected" yaml:"is_connected"`
	AvgDegree      float64 `json:"avg_degree" yaml:"avg_degree"`
}

// Summarize computes size, density and connectivity of g.
func Summarize(g *CitationGraph) GraphStats {
	n := g.NodeCount()
	stats := GraphStats{
		Nodes:          n,
		Edges:          g.edges,
		WeakComponents: weakComponents(g),
	}
	stats.IsConnected = stats.WeakComponents == 1
	if n > 1 {
		stats.Density = float64(g.edges) / float64(n*(n-1))
	}
	if n > 0 {
		stats.AvgDegree = 2 * float64(g.edges) / float64(n)
	}
	return stats
}

// weakComponents counts connected components ignoring edge direction.
func weakComponents(g *CitationGraph) int {
	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	components := len(g.nodes)
	for i, targets := range g.out {
		for _, j := range targets {
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[ri] = rj
				components--
			}
		}
	}
	return components
}

// SeminalPaper is a paper ranked by seminal score.
type SeminalPaper struct {
	ID                       string  `json:"id" yaml:"id"`
	CitationCount            int     `json:"citation_count" yaml:"citation_count"`
	InfluentialCitationCount int     `json:"influential_citation_count" yaml:"influential_citation_count"`
	InDegree                 int     `json:"in_degree" yaml:"in_degree"`
	Score                    float64 `json:"score" yaml:"score"`
}

// Seminal ranks resolved papers with at least minCitations citations by
// 0.5*citations + 2*influential + 10*in-degree, highest first with ties
// broken by id. A limit <= 0 returns every qualifying paper.
func Seminal(g *CitationGraph, minCitations, limit int) []SeminalPaper {
	var papers []SeminalPaper
	for i, m := range g.metrics {
		if !m.IsResolved() || m.CitationCount < minCitations {
			continue
		}
		inDegree := len(g.in[i])
		papers = append(papers, SeminalPaper{
			ID:                       g.nodes[i],
			CitationCount:            m.CitationCount,
			InfluentialCitationCount: m.InfluentialCitationCount,
			InDegree:                 inDegree,
			Score: citationWeight*float64(m.CitationCount) +
				influentialWeight*float64(m.InfluentialCitationCount) +
				inDegreeWeight*float64(inDegree),
		})
	}

	// Nodes are already in id order, so a stable sort keeps ties by id.
	sort.SliceStable(papers, func(a, b int) bool {
		return papers[a].Score > papers[b].Score
	})
	if limit > 0 && len(papers) > limit {
		papers = papers[:limit]
	}
	return papers
}

// ExportNode is a node of an exported graph.
type ExportNode struct {
	ID            string              `json:"id" yaml:"id"`
	CitationCount int                 `json:"citation_count" yaml:"citation_count"`
	Influential   int                 `json:"influential" yaml:"influential"`
	Year          int                 `json:"year,omitempty" yaml:"year,omitempty"`
	Source        domain.MetricSource `json:"source,omitempty" yaml:"source,omitempty"`
	Score         float64             `json:"score" yaml:"score"`
}

// Export is a serializable view of a graph for visualization.
type Export struct {
	Nodes []ExportNode `json:"nodes" yaml:"nodes"`
	Edges []Edge       `json:"edges" yaml:"edges"`
}

// ExportGraph converts g into nodes and edges. Scores come from ranks and are 0
// when ranks is nil.
func ExportGraph(g *CitationGraph, ranks *RankResult) Export {
	out := Export{
		Nodes: make([]ExportNode, len(g.nodes)),
		Edges: g.Edges(),
	}
	for i, id := range g.nodes {
		node := ExportNode{ID: id, Score: ranks.Score(id)}
		if m := g.metrics[i]; m != nil {
			node.CitationCount = m.CitationCount
			node.Influential = m.InfluentialCitationCount
			node.Year = m.Year
			node.Source = m.Source
		}
		out.Nodes[i] = node
	}
	return out
}
