package graph

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

// threeNodeGraph builds:
//
//	A --contains--> B
//	C --imports---> B
//	B --inherits--> C
func threeNodeGraph() *Graph {
	g := New()
	g.AddNode(&Node{ID: "A", Kind: KindFile, Name: "A"})
	g.AddNode(&Node{ID: "B", Kind: KindClass, Name: "B"})
	g.AddNode(&Node{ID: "C", Kind: KindFile, Name: "C"})
	g.AddEdge(&Edge{Source: "A", Target: "B", Relation: RelContains})
	g.AddEdge(&Edge{Source: "C", Target: "B", Relation: RelImports})
	g.AddEdge(&Edge{Source: "B", Target: "C", Relation: RelInherits})
	return g
}

func TestAddNodeReplaceKeepsOrder(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: "a", Kind: KindFile, Name: "first"})
	g.AddNode(&Node{ID: "b", Kind: KindFile, Name: "second"})
	g.AddNode(&Node{ID: "a", Kind: KindFile, Name: "replaced"})

	nodes := g.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].ID != "a" || nodes[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", nodes[0].ID, nodes[1].ID)
	}
	if nodes[0].Name != "replaced" {
		t.Errorf("expected replaced node, got %q", nodes[0].Name)
	}
}

func TestDependents(t *testing.T) {
	g := threeNodeGraph()

	deps := g.Dependents("B")
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependents, got %d", len(deps))
	}
	if deps[0].Node.ID != "A" || deps[0].Relation != RelContains {
		t.Errorf("unexpected first dependent: %s (%s)", deps[0].Node.ID, deps[0].Relation)
	}
	if deps[1].Node.ID != "C" || deps[1].Relation != RelImports {
		t.Errorf("unexpected second dependent: %s (%s)", deps[1].Node.ID, deps[1].Relation)
	}

	if got := g.Dependents("A"); len(got) != 0 {
		t.Errorf("expected no dependents for A, got %d", len(got))
	}
}

func TestDependencies(t *testing.T) {
	g := threeNodeGraph()

	deps := g.Dependencies("B")
	if len(deps) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(deps))
	}
	if deps[0].Node.ID != "C" || deps[0].Relation != RelInherits {
		t.Errorf("unexpected dependency: %s (%s)", deps[0].Node.ID, deps[0].Relation)
	}
}

func TestEdgesFor(t *testing.T) {
	g := threeNodeGraph()

	edges := g.EdgesFor("B")
	if len(edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(edges))
	}
	// Edge-insertion order
	if edges[0].Relation != RelContains || edges[1].Relation != RelImports || edges[2].Relation != RelInherits {
		t.Errorf("unexpected edge order: %s, %s, %s",
			edges[0].Relation, edges[1].Relation, edges[2].Relation)
	}

	if got := g.EdgesFor("missing"); len(got) != 0 {
		t.Errorf("expected no edges for unknown id, got %d", len(got))
	}
}

func TestFindPathSelf(t *testing.T) {
	g := threeNodeGraph()
	path := g.FindPath("A", "A")
	if !reflect.DeepEqual(path, []string{"A"}) {
		t.Errorf("expected [A], got %v", path)
	}
}

func TestFindPathChain(t *testing.T) {
	// X -> Y -> Z, traversal is undirected so both directions work.
	g := New()
	g.AddNode(&Node{ID: "X", Kind: KindFile})
	g.AddNode(&Node{ID: "Y", Kind: KindFile})
	g.AddNode(&Node{ID: "Z", Kind: KindFile})
	g.AddEdge(&Edge{Source: "X", Target: "Y", Relation: RelImports})
	g.AddEdge(&Edge{Source: "Y", Target: "Z", Relation: RelImports})

	forward := g.FindPath("X", "Z")
	if !reflect.DeepEqual(forward, []string{"X", "Y", "Z"}) {
		t.Errorf("expected [X Y Z], got %v", forward)
	}
	backward := g.FindPath("Z", "X")
	if !reflect.DeepEqual(backward, []string{"Z", "Y", "X"}) {
		t.Errorf("expected [Z Y X], got %v", backward)
	}
}

func TestFindPathShortest(t *testing.T) {
	// Two routes from A to D: A-B-C-D and A-D.
	g := New()
	for _, id := range []string{"A", "B", "C", "D"} {
		g.AddNode(&Node{ID: id, Kind: KindFile})
	}
	g.AddEdge(&Edge{Source: "A", Target: "B", Relation: RelImports})
	g.AddEdge(&Edge{Source: "B", Target: "C", Relation: RelImports})
	g.AddEdge(&Edge{Source: "C", Target: "D", Relation: RelImports})
	g.AddEdge(&Edge{Source: "A", Target: "D", Relation: RelImports})

	path := g.FindPath("A", "D")
	if !reflect.DeepEqual(path, []string{"A", "D"}) {
		t.Errorf("expected [A D], got %v", path)
	}
}

func TestFindPathMissing(t *testing.T) {
	g := threeNodeGraph()
	g.AddNode(&Node{ID: "island", Kind: KindFile})

	if path := g.FindPath("A", "nope"); path != nil {
		t.Errorf("expected nil for unknown target, got %v", path)
	}
	if path := g.FindPath("nope", "A"); path != nil {
		t.Errorf("expected nil for unknown source, got %v", path)
	}
	if path := g.FindPath("A", "island"); path != nil {
		t.Errorf("expected nil for disconnected nodes, got %v", path)
	}
}

func TestSummary(t *testing.T) {
	g := threeNodeGraph()
	s := g.Summary()

	if s.TotalNodes != 3 {
		t.Errorf("expected 3 nodes, got %d", s.TotalNodes)
	}
	if s.TotalEdges != 3 {
		t.Errorf("expected 3 edges, got %d", s.TotalEdges)
	}
	if s.NodeKinds[KindFile] != 2 || s.NodeKinds[KindClass] != 1 {
		t.Errorf("unexpected kind counts: %v", s.NodeKinds)
	}
	if s.Relations[RelContains] != 1 || s.Relations[RelImports] != 1 || s.Relations[RelInherits] != 1 {
		t.Errorf("unexpected relation counts: %v", s.Relations)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	g := threeNodeGraph()
	g.AddEdge(&Edge{
		Source:   "A",
		Target:   "C",
		Relation: RelImports,
		Metadata: map[string]interface{}{"names": []string{"thing"}},
	})

	first, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	restored := New()
	if err := json.Unmarshal(first, restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if restored.NodeCount() != g.NodeCount() || restored.EdgeCount() != g.EdgeCount() {
		t.Fatalf("counts differ: %d/%d vs %d/%d",
			restored.NodeCount(), restored.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}
	if n, ok := restored.Node("B"); !ok || n.Kind != KindClass {
		t.Errorf("node B not restored correctly")
	}

	second, err := json.Marshal(restored)
	if err != nil {
		t.Fatalf("re-marshal failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("round trip not stable:\n%s\n%s", first, second)
	}
}

func TestEmptyGraphMarshal(t *testing.T) {
	data, err := json.Marshal(New())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"nodes":[],"edges":[]}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}
