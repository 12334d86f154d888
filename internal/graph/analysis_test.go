package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-graph-service/internal/domain"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestNeighbors(t *testing.T) {
	g := graphOf(map[string][]string{"A": {"B", "C"}, "B": {"C"}, "C": nil, "D": {"B"}})

	n, err := g.Neighbors("B")
	require.NoError(t, err)
	assert.Equal(t, "B", n.ID)
	assert.Equal(t, []string{"C"}, n.Cites)
	assert.Equal(t, []string{"A", "D"}, n.CitedBy)

	_, err = g.Neighbors("Z")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummarize(t *testing.T) {
	t.Run("two components", func(t *testing.T) {
		g := graphOf(map[string][]string{"A": {"B"}, "B": {"C"}, "C": nil, "D": nil})
		stats := Summarize(g)

		assert.Equal(t, 4, stats.Nodes)
		assert.Equal(t, 2, stats.Edges)
		assert.InDelta(t, 2.0/12, stats.Density, 1e-12)
		assert.Equal(t, 2, stats.WeakComponents)
		assert.False(t, stats.IsConnected)
		assert.InDelta(t, 1.0, stats.AvgDegree, 1e-12)
	})

	t.Run("direction ignored for components", func(t *testing.T) {
		g := graphOf(map[string][]string{"A": {"C"}, "B": {"C"}, "C": nil})
		stats := Summarize(g)
		assert.Equal(t, 1, stats.WeakComponents)
		assert.True(t, stats.IsConnected)
	})

	t.Run("single node", func(t *testing.T) {
		stats := Summarize(graphOf(map[string][]string{"A": nil}))
		assert.Equal(t, 1, stats.WeakComponents)
		assert.True(t, stats.IsConnected)
		assert.Zero(t, stats.Density)
		assert.Zero(t, stats.AvgDegree)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, GraphStats{}, Summarize(Build(nil)))
	})
}

func TestSeminal(t *testing.T) {
	g := Build(map[string]*domain.Metrics{
		"A": paper("A", 100, 10, "B", "C"),
		"B": paper("B", 40, 5, "C"),
		"C": paper("C", 20, 0),
		"D": paper("D", 2, 0, "C"),
		"E": domain.UnavailableMetrics("E", fixedTime),
		"F": paper("F", 20, 0),
	})

	t.Run("ordered by score", func(t *testing.T) {
		papers := Seminal(g, 0, 0)
		require.Len(t, papers, 5)

		// A: 50+20+0, B: 20+10+10, C: 10+0+30, F: 10, D: 1
		ids := make([]string, len(papers))
		for i, p := range papers {
			ids[i] = p.ID
		}
		assert.Equal(t, []string{"A", "B", "C", "F", "D"}, ids)
		assert.InDelta(t, 70.0, papers[0].Score, 1e-9)
		assert.Equal(t, 3, papers[2].InDegree)
	})

	t.Run("min citations and limit", func(t *testing.T) {
		papers := Seminal(g, 20, 2)
		require.Len(t, papers, 2)
		assert.Equal(t, "A", papers[0].ID)
		assert.Equal(t, "B", papers[1].ID)

		assert.Len(t, Seminal(g, 20, 0), 4)
	})

	t.Run("ties by id", func(t *testing.T) {
		tied := Build(map[string]*domain.Metrics{
			"Y": paper("Y", 10, 0),
			"X": paper("X", 10, 0),
		})
		papers := Seminal(tied, 0, 0)
		require.Len(t, papers, 2)
		assert.Equal(t, "X", papers[0].ID)
		assert.Equal(t, "Y", papers[1].ID)
	})
}

func TestExportGraph(t *testing.T) {
	g := Build(map[string]*domain.Metrics{
		"A": paper("A", 3, 1, "B"),
		"B": paper("B", 9, 2),
	})

	t.Run("with ranks", func(t *testing.T) {
		ranks, err := PageRank(context.Background(), g, PageRankOptions{})
		require.NoError(t, err)

		exp := ExportGraph(g, ranks)
		require.Len(t, exp.Nodes, 2)
		assert.Equal(t, "A", exp.Nodes[0].ID)
		assert.Equal(t, 3, exp.Nodes[0].CitationCount)
		assert.Equal(t, 1, exp.Nodes[0].Influential)
		assert.Equal(t, domain.MetricSourcePrimary, exp.Nodes[0].Source)
		assert.Equal(t, ranks.Score("B"), exp.Nodes[1].Score)
		assert.Equal(t, []Edge{{From: "A", To: "B"}}, exp.Edges)
	})

	t.Run("without ranks", func(t *testing.T) {
		exp := ExportGraph(g, nil)
		for _, n := range exp.Nodes {
			assert.Zero(t, n.Score)
		}
	})
}
