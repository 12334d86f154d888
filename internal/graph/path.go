package graph

import (
	"fmt"
	"slices"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// ErrPathNotFound is returned when no citation path connects two papers.
var ErrPathNotFound = fmt.Errorf("citation path %w", domain.ErrNotFound)

// FindPath returns the shortest chain of citations leading from one paper to
// another, both ends included. Among paths of equal length the one found
// first, following references in order, wins. A paper reaches itself with a
// one-element path.
func FindPath(g *CitationGraph, from, to string) ([]string, error) {
	src, ok := g.lookup(from)
	if !ok {
		return nil, fmt.Errorf("%w: unknown paper %s", ErrPathNotFound, from)
	}
	dst, ok := g.lookup(to)
	if !ok {
		return nil, fmt.Errorf("%w: unknown paper %s", ErrPathNotFound, to)
	}
	if src == dst {
		return []string{g.nodes[src]}, nil
	}

	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = -1
	}
	parent[src] = src

	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range g.out[cur] {
			if parent[next] != -1 {
				continue
			}
			parent[next] = cur
			if next == dst {
				return g.tracePath(parent, src, dst), nil
			}
			queue = append(queue, next)
		}
	}

	return nil, fmt.Errorf("%w: %s does not reach %s", ErrPathNotFound, g.nodes[src], g.nodes[dst])
}

func (g *CitationGraph) tracePath(parent []int, src, dst int) []string {
	var path []string
	for cur := dst; ; cur = parent[cur] {
		path = append(path, g.nodes[cur])
		if cur == src {
			break
		}
	}
	slices.Reverse(path)
	return path
}
