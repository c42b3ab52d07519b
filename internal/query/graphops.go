package query

import (
	"context"
	"sort"
	"strings"

	"codeatlas/internal/errors"
	"codeatlas/internal/graph"
)

const maxCandidates = 10

// NodeRef identifies a graph node in query output.
type NodeRef struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind graph.Kind `json:"kind"`
}

// NeighborEntry is one adjacent node together with the relation that
// connects it.
type NeighborEntry struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     graph.Kind     `json:"kind"`
	Relation graph.Relation `json:"relation"`
}

// NeighborsReport lists the neighbors on one side of a node.
type NeighborsReport struct {
	Node      string          `json:"node"`
	Neighbors []NeighborEntry `json:"neighbors"`
	Count     int             `json:"count"`
}

// PathReport is the outcome of a path query. A missing connection carries
// a message instead of a path.
type PathReport struct {
	Path    []string  `json:"path,omitempty"`
	Length  int       `json:"length"`
	Nodes   []NodeRef `json:"nodes,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Dependents lists the nodes that point at ref.
func (e *Engine) Dependents(ref string) (*NeighborsReport, error) {
	id, err := e.resolveNodeID(ref)
	if err != nil {
		return nil, err
	}
	return neighborsReport(id, e.graph.Dependents(id)), nil
}

// Dependencies lists the nodes ref points at.
func (e *Engine) Dependencies(ref string) (*NeighborsReport, error) {
	id, err := e.resolveNodeID(ref)
	if err != nil {
		return nil, err
	}
	return neighborsReport(id, e.graph.Dependencies(id)), nil
}

// Path finds the shortest connection between two nodes, ignoring edge
// direction.
func (e *Engine) Path(from, to string) (*PathReport, error) {
	start, err := e.resolveNodeID(from)
	if err != nil {
		return nil, err
	}
	end, err := e.resolveNodeID(to)
	if err != nil {
		return nil, err
	}

	ids := e.graph.FindPath(start, end)
	if ids == nil {
		return &PathReport{Message: "no path found between nodes"}, nil
	}
	refs := make([]NodeRef, 0, len(ids))
	for _, id := range ids {
		if n, ok := e.graph.Node(id); ok {
			refs = append(refs, NodeRef{ID: n.ID, Name: n.Name, Kind: n.Kind})
		}
	}
	return &PathReport{Path: ids, Length: len(ids), Nodes: refs}, nil
}

// GraphSummary returns node and edge counts by kind and relation.
func (e *Engine) GraphSummary() graph.Summary {
	return e.graph.Summary()
}

// Rank scores nodes by weighted PageRank, optionally biased toward seed
// nodes. Seeds go through the same forgiving resolution as other node
// references.
func (e *Engine) Rank(ctx context.Context, seeds []string, topK int) (*graph.RankOutput, error) {
	resolved := make([]string, 0, len(seeds))
	for _, s := range seeds {
		id, err := e.resolveNodeID(s)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, id)
	}
	opts := graph.DefaultRankOptions()
	if topK > 0 {
		opts.TopK = topK
	}
	return e.graph.Rank(ctx, resolved, opts), nil
}

// resolveNodeID maps a user-supplied reference to exactly one node ID. The
// ladder: exact ID, bare node name, "path:name" pair, then ID suffix and
// substring. Multiple survivors at any rung are an error carrying the
// candidates; no survivor at all reports the nearest misses.
func (e *Engine) resolveNodeID(ref string) (string, error) {
	if e.graph.HasNode(ref) {
		return ref, nil
	}
	nodes := e.graph.Nodes()

	var byName []string
	for _, n := range nodes {
		if n.Name == ref {
			byName = append(byName, n.ID)
		}
	}
	if len(byName) == 1 {
		return byName[0], nil
	}
	if len(byName) > 1 {
		return "", ambiguousRef(ref, byName)
	}

	if i := strings.LastIndex(ref, ":"); i > 0 {
		filePath, name := ref[:i], ref[i+1:]
		var byPair []string
		for _, n := range nodes {
			if n.FilePath == filePath && n.Name == name {
				byPair = append(byPair, n.ID)
			}
		}
		if len(byPair) == 1 {
			return byPair[0], nil
		}
		if len(byPair) > 1 {
			return "", ambiguousRef(ref, byPair)
		}
	}

	var bySuffix, bySubstring []string
	for _, n := range nodes {
		if strings.HasSuffix(n.ID, ref) {
			bySuffix = append(bySuffix, n.ID)
		} else if strings.Contains(n.ID, ref) {
			bySubstring = append(bySubstring, n.ID)
		}
	}
	if len(bySuffix) == 1 {
		return bySuffix[0], nil
	}
	candidates := append(bySuffix, bySubstring...)
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if len(candidates) > 1 {
		return "", ambiguousRef(ref, candidates)
	}

	return "", notFoundRef(ref, nodes)
}

func neighborsReport(id string, neighbors []graph.Neighbor) *NeighborsReport {
	entries := make([]NeighborEntry, 0, len(neighbors))
	for _, nb := range neighbors {
		entries = append(entries, NeighborEntry{
			ID:       nb.Node.ID,
			Name:     nb.Node.Name,
			Kind:     nb.Node.Kind,
			Relation: nb.Relation,
		})
	}
	return &NeighborsReport{Node: id, Neighbors: entries, Count: len(entries)}
}

func ambiguousRef(ref string, ids []string) error {
	total := len(ids)
	sort.Strings(ids)
	if len(ids) > maxCandidates {
		ids = ids[:maxCandidates]
	}
	return errors.Newf(errors.AmbiguousNode, "%q matches %d nodes", ref, total).
		WithDetails(map[string]interface{}{"candidates": ids}).
		WithHint("use a full node id like 'class:<path>:<name>'")
}

func notFoundRef(ref string, nodes []*graph.Node) error {
	lower := strings.ToLower(ref)
	var near []string
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.ID), lower) {
			near = append(near, n.ID)
		}
	}

	err := errors.Newf(errors.NodeNotFound, "node not found: %s", ref)
	if len(near) > 0 {
		sort.Strings(near)
		if len(near) > 5 {
			near = near[:5]
		}
		err = err.WithDetails(map[string]interface{}{"closest": near})
	}
	return err.WithHint("node ids look like 'file:<path>' or 'class:<path>:<name>'")
}
