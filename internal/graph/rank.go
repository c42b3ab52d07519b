package graph

import (
	"context"
	"math"
	"sort"
)

// RankWeights maps edge relations to propagation strength for Rank.
type RankWeights struct {
	Imports  float64
	Inherits float64
	Contains float64
}

// DefaultRankWeights returns sensible defaults: imports couple files most
// strongly, inheritance slightly less, containment weakest.
func DefaultRankWeights() RankWeights {
	return RankWeights{
		Imports:  1.0,
		Inherits: 0.9,
		Contains: 0.5,
	}
}

func (w RankWeights) weight(r Relation) float64 {
	switch r {
	case RelImports:
		return w.Imports
	case RelInherits:
		return w.Inherits
	case RelContains:
		return w.Contains
	}
	return w.Contains
}

// RankOptions configures PageRank computation.
type RankOptions struct {
	// Damping is the probability of following an edge vs teleporting (default: 0.85)
	Damping float64

	// MaxIterations is the maximum number of power iterations (default: 20)
	MaxIterations int

	// Tolerance for convergence detection (default: 1e-6)
	Tolerance float64

	// TopK is the number of top results to return (default: 20)
	TopK int

	// Weights control how strongly each relation propagates score.
	Weights RankWeights
}

// DefaultRankOptions returns sensible defaults for Rank.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Damping:       0.85,
		MaxIterations: 20,
		Tolerance:     1e-6,
		TopK:          20,
		Weights:       DefaultRankWeights(),
	}
}

// RankResult is a single ranked node.
type RankResult struct {
	Node  *Node   `json:"node"`
	Score float64 `json:"score"`
}

// RankOutput contains the full ranking result.
type RankOutput struct {
	Results    []RankResult `json:"results"`
	Iterations int          `json:"iterations"`
	Converged  bool         `json:"converged"`
	Seeds      []string     `json:"seeds,omitempty"`
	TotalNodes int          `json:"totalNodes"`
	TotalEdges int          `json:"totalEdges"`
}

// Rank scores nodes by weighted PageRank over the directed edge set. With no
// seeds the teleport vector is uniform over every node and the result is a
// global centrality ranking; with seeds the walk restarts at the seeds,
// biasing scores toward their neighborhood. Seeds missing from the graph are
// ignored; if none remain the result is empty. Output order is
// deterministic: descending score with ties broken by node insertion order.
func (g *Graph) Rank(_ context.Context, seeds []string, opts RankOptions) *RankOutput {
	out := &RankOutput{
		Results:    []RankResult{},
		Seeds:      seeds,
		TotalNodes: len(g.nodes),
		TotalEdges: len(g.edges),
	}
	if len(g.order) == 0 {
		return out
	}

	// Apply defaults
	if opts.Damping <= 0 || opts.Damping >= 1 {
		opts.Damping = 0.85
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 20
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-6
	}
	if opts.TopK <= 0 {
		opts.TopK = 20
	}

	n := len(g.order)
	index := make(map[string]int, n)
	for i, id := range g.order {
		index[id] = i
	}

	type edgeEntry struct {
		target int
		weight float64
	}
	outEdges := make([][]edgeEntry, n)
	for _, e := range g.edges {
		si, ok := index[e.Source]
		if !ok {
			continue
		}
		ti, ok := index[e.Target]
		if !ok {
			continue
		}
		outEdges[si] = append(outEdges[si], edgeEntry{
			target: ti,
			weight: opts.Weights.weight(e.Relation),
		})
	}

	// Teleport vector: uniform over seeds, or over all nodes when no seeds
	// are given.
	teleport := make([]float64, n)
	if len(seeds) == 0 {
		for i := range teleport {
			teleport[i] = 1.0 / float64(n)
		}
	} else {
		seedIdx := make([]int, 0, len(seeds))
		for _, s := range seeds {
			if i, ok := index[s]; ok {
				seedIdx = append(seedIdx, i)
			}
		}
		if len(seedIdx) == 0 {
			return out
		}
		w := 1.0 / float64(len(seedIdx))
		for _, i := range seedIdx {
			teleport[i] = w
		}
	}

	scores := make([]float64, n)
	copy(scores, teleport)

	// Pre-compute out-degree normalization
	outDegree := make([]float64, n)
	for i, edges := range outEdges {
		for _, e := range edges {
			outDegree[i] += e.weight
		}
	}

	// Power iteration
	next := make([]float64, n)
	var iterations int
	var converged bool

	for iter := range opts.MaxIterations {
		iterations = iter + 1

		for i := range next {
			next[i] = 0
		}
		for i, edges := range outEdges {
			if len(edges) == 0 || outDegree[i] == 0 {
				continue
			}
			contrib := scores[i] / outDegree[i]
			for _, e := range edges {
				next[e.target] += contrib * e.weight
			}
		}

		maxDiff := 0.0
		for i := range next {
			next[i] = opts.Damping*next[i] + (1-opts.Damping)*teleport[i]
			if d := math.Abs(next[i] - scores[i]); d > maxDiff {
				maxDiff = d
			}
		}

		scores, next = next, scores

		if maxDiff < opts.Tolerance {
			converged = true
			break
		}
	}

	type scoredNode struct {
		idx   int
		score float64
	}
	ranked := make([]scoredNode, 0, n)
	for i, s := range scores {
		if s > 0 {
			ranked = append(ranked, scoredNode{idx: i, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}

	out.Iterations = iterations
	out.Converged = converged
	out.Results = make([]RankResult, len(ranked))
	for i, sn := range ranked {
		out.Results[i] = RankResult{Node: g.nodes[g.order[sn.idx]], Score: sn.score}
	}
	return out
}
