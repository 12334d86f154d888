package graph

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixir/citation-graph-service/internal/domain"
)

var tracer = otel.Tracer("graph")

// PageRank defaults.
const (
	// DefaultDamping is the probability of following a citation rather than jumping.
	DefaultDamping = 0.85

	// DefaultMaxIterations caps the power iteration.
	DefaultMaxIterations = 100

	// DefaultTolerance stops iterating once the L1 change of the scores falls below it.
	DefaultTolerance = 1e-6
)

// PageRankOptions configures PageRank. Zero fields take the defaults.
type PageRankOptions struct {
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

// DefaultPageRankOptions returns the standard settings.
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{
		Damping:       DefaultDamping,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

func (o PageRankOptions) withDefaults() PageRankOptions {
	if o.Damping == 0 {
		o.Damping = DefaultDamping
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// Validate checks the option ranges.
func (o PageRankOptions) Validate() error {
	if math.IsNaN(o.Damping) || o.Damping <= 0 || o.Damping >= 1 {
		return domain.NewValidationError("damping", fmt.Sprintf("must be in (0, 1), got %v", o.Damping))
	}
	if o.MaxIterations <= 0 {
		return domain.NewValidationError("max_iterations", fmt.Sprintf("must be > 0, got %d", o.MaxIterations))
	}
	if math.IsNaN(o.Tolerance) || o.Tolerance <= 0 {
		return domain.NewValidationError("tolerance", fmt.Sprintf("must be > 0, got %v", o.Tolerance))
	}
	return nil
}

// RankedPaper is one entry of a ranking.
type RankedPaper struct {
	ID    string  `json:"id" yaml:"id"`
	Score float64 `json:"score" yaml:"score"`
	Rank  int     `json:"rank" yaml:"rank"`
}

// RankResult is the output of PageRank. Scores sum to 1 for a non-empty graph.
type RankResult struct {
	Scores     map[string]float64 `json:"scores" yaml:"scores"`
	Ranking    []RankedPaper      `json:"ranking" yaml:"ranking"`
	Iterations int                `json:"iterations" yaml:"iterations"`
	Converged  bool               `json:"converged" yaml:"converged"`
	Delta      float64            `json:"delta" yaml:"delta"`
}

// Score returns the score of id, or 0 when it is not ranked.
func (r *RankResult) Score(id string) float64 {
	if r == nil {
		return 0
	}
	return r.Scores[id]
}

// transition is the citation structure used by PageRank, with self
// citations removed.
type transition struct {
	in       [][]int
	outDeg   []int
	dangling []int
}

func newTransition(g *CitationGraph) transition {
	n := len(g.nodes)
	t := transition{in: make([][]int, n), outDeg: make([]int, n)}
	for i, targets := range g.out {
		for _, j := range targets {
			if i == j {
				continue
			}
			t.outDeg[i]++
			t.in[j] = append(t.in[j], i)
		}
	}
	for i, d := range t.outDeg {
		if d == 0 {
			t.dangling = append(t.dangling, i)
		}
	}
	return t
}

// step computes the next score vector from prev without modifying it.
// Dangling nodes spread their score uniformly.
func (t transition) step(prev []float64, damping float64) []float64 {
	n := float64(len(prev))

	danglingMass := 0.0
	for _, i := range t.dangling {
		danglingMass += prev[i]
	}
	base := (1-damping)/n + damping*danglingMass/n

	next := make([]float64, len(prev))
	for j := range next {
		score := base
		for _, i := range t.in[j] {
			score += damping * prev[i] / float64(t.outDeg[i])
		}
		next[j] = score
	}
	return next
}

func l1Delta(a, b []float64) float64 {
	var d float64
	for i := range a {
		d += math.Abs(a[i] - b[i])
	}
	return d
}

// PageRank ranks the papers of g by the power method. It stops when the L1
// change between iterations drops below the tolerance or after MaxIterations.
// An empty graph yields an empty result.
func PageRank(ctx context.Context, g *CitationGraph, opts PageRankOptions) (*RankResult, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "graph.PageRank",
		trace.WithAttributes(
			attribute.Int("node_count", g.NodeCount()),
			attribute.Int("edge_count", g.EdgeCount()),
			attribute.Float64("damping", opts.Damping),
		),
	)
	defer span.End()

	n := g.NodeCount()
	if n == 0 {
		span.AddEvent("empty_graph")
		return &RankResult{Scores: map[string]float64{}, Ranking: []RankedPaper{}, Converged: true}, nil
	}

	t := newTransition(g)
	span.SetAttributes(attribute.Int("dangling_count", len(t.dangling)))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1 / float64(n)
	}

	result := &RankResult{}
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			span.AddEvent("cancelled", trace.WithAttributes(attribute.Int("iterations_completed", iter)))
			return nil, err
		}

		next := t.step(scores, opts.Damping)
		result.Delta = l1Delta(next, scores)
		result.Iterations = iter + 1
		scores = next

		if result.Delta < opts.Tolerance {
			result.Converged = true
			break
		}
	}

	result.Scores = make(map[string]float64, n)
	result.Ranking = make([]RankedPaper, n)
	for i, id := range g.nodes {
		result.Scores[id] = scores[i]
		result.Ranking[i] = RankedPaper{ID: id, Score: scores[i]}
	}
	sort.SliceStable(result.Ranking, func(a, b int) bool {
		return result.Ranking[a].Score > result.Ranking[b].Score
	})
	for i := range result.Ranking {
		result.Ranking[i].Rank = i + 1
	}

	span.SetAttributes(
		attribute.Int("iterations", result.Iterations),
		attribute.Bool("converged", result.Converged),
		attribute.Float64("delta", result.Delta),
	)
	return result, nil
}
