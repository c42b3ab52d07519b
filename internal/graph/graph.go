// Package graph models a codebase as nodes (files, classes, functions) and
// directed edges (contains, imports, inherits) and answers connectivity
// queries over them. A graph is built once from a codebase index and is
// read-only afterwards; concurrent readers are safe once construction is
// complete.
package graph

import (
	"encoding/json"
)

// Kind identifies what a node represents.
type Kind string

const (
	KindFile     Kind = "file"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	// KindModule is reserved; the builder does not emit module nodes.
	KindModule Kind = "module"
)

// Relation identifies the kind of a directed edge.
type Relation string

const (
	RelContains Relation = "contains"
	RelImports  Relation = "imports"
	RelInherits Relation = "inherits"
	// RelCalls is reserved; call names stay on function records as raw
	// identifiers and no builder pass resolves them to targets.
	RelCalls Relation = "calls"
)

// Node is a single graph vertex. Metadata is free-form and varies by kind
// (language and line count for files, bases and start line for classes).
type Node struct {
	ID       string                 `json:"id"`
	Kind     Kind                   `json:"kind"`
	Name     string                 `json:"name"`
	FilePath string                 `json:"filepath"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Edge is a directed relation between two nodes, addressed by node ID.
type Edge struct {
	Source   string                 `json:"source"`
	Target   string                 `json:"target"`
	Relation Relation               `json:"relation"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Neighbor pairs a node with the relation of the edge that reached it.
type Neighbor struct {
	Node     *Node    `json:"node"`
	Relation Relation `json:"relation"`
}

// Summary reports aggregate counts over a graph.
type Summary struct {
	TotalNodes int              `json:"totalNodes"`
	TotalEdges int              `json:"totalEdges"`
	NodeKinds  map[Kind]int     `json:"nodeKinds"`
	Relations  map[Relation]int `json:"relations"`
}

// Graph holds nodes keyed by ID plus an ordered edge list. Insertion order
// of both nodes and edges is preserved so query output is deterministic.
// Not safe for concurrent mutation.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode inserts a node. Re-adding an existing ID replaces the node but
// keeps its original position in insertion order.
func (g *Graph) AddNode(n *Node) {
	if _, ok := g.nodes[n.ID]; !ok {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = n
}

// AddEdge appends an edge. Endpoints are not validated here; the builder
// only emits edges between nodes it has already inserted.
func (g *Graph) AddEdge(e *Edge) {
	g.edges = append(g.edges, e)
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether an ID is present.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns the edge list in insertion order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Dependents returns the nodes with an edge pointing at id, with the edge's
// relation, in edge-insertion order. All relations are included.
func (g *Graph) Dependents(id string) []Neighbor {
	var out []Neighbor
	for _, e := range g.edges {
		if e.Target != id {
			continue
		}
		if n, ok := g.nodes[e.Source]; ok {
			out = append(out, Neighbor{Node: n, Relation: e.Relation})
		}
	}
	return out
}

// Dependencies returns the nodes id points at, with the edge's relation, in
// edge-insertion order. All relations are included.
func (g *Graph) Dependencies(id string) []Neighbor {
	var out []Neighbor
	for _, e := range g.edges {
		if e.Source != id {
			continue
		}
		if n, ok := g.nodes[e.Target]; ok {
			out = append(out, Neighbor{Node: n, Relation: e.Relation})
		}
	}
	return out
}

// EdgesFor returns every edge that touches id as source or target, in
// edge-insertion order.
func (g *Graph) EdgesFor(id string) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// FindPath returns the shortest node-ID path between two nodes, treating
// every edge as undirected: callers asking how two symbols relate care
// about connectivity, not direction. Returns nil when either endpoint is
// unknown or no path exists; FindPath(x, x) returns [x].
func (g *Graph) FindPath(start, end string) []string {
	if !g.HasNode(start) || !g.HasNode(end) {
		return nil
	}
	if start == end {
		return []string{start}
	}

	adj := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	prev := map[string]string{start: ""}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == end {
				path := []string{end}
				for at := cur; at != ""; at = prev[at] {
					path = append(path, at)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// Summary returns node and edge counts broken down by kind and relation.
func (g *Graph) Summary() Summary {
	s := Summary{
		TotalNodes: len(g.nodes),
		TotalEdges: len(g.edges),
		NodeKinds:  make(map[Kind]int),
		Relations:  make(map[Relation]int),
	}
	for _, id := range g.order {
		s.NodeKinds[g.nodes[id].Kind]++
	}
	for _, e := range g.edges {
		s.Relations[e.Relation]++
	}
	return s
}

type graphJSON struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// MarshalJSON serializes nodes and edges as ordered lists so that a
// round trip preserves insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	edges := g.edges
	if edges == nil {
		edges = []*Edge{}
	}
	return json.Marshal(graphJSON{Nodes: g.Nodes(), Edges: edges})
}

// UnmarshalJSON restores a graph serialized by MarshalJSON.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw graphJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.nodes = make(map[string]*Node, len(raw.Nodes))
	g.order = make([]string, 0, len(raw.Nodes))
	g.edges = raw.Edges
	for _, n := range raw.Nodes {
		g.AddNode(n)
	}
	return nil
}
