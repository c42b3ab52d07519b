package embed

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"testing"

	"codeatlas/internal/chunk"
	"codeatlas/internal/errors"
)

// stubEmbedder returns canned vectors keyed by exact input text.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := s.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no stub vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

func testChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{Content: "def alpha(): pass", FilePath: "app/a.py", Kind: chunk.KindFunction, Name: "alpha", LineStart: 1, LineEnd: 1},
		{Content: "def beta(): pass", FilePath: "app/b.py", Kind: chunk.KindFunction, Name: "beta", LineStart: 1, LineEnd: 1},
		{Content: "def gamma(): pass", FilePath: "app/c.py", Kind: chunk.KindFunction, Name: "gamma", LineStart: 1, LineEnd: 1},
	}
}

// stubFor wires one vector per chunk plus a vector for the raw query text.
func stubFor(chunks []chunk.Chunk, vecs [][]float32, query string, qvec []float32) *stubEmbedder {
	m := make(map[string][]float32)
	for i, c := range chunks {
		m[c.EmbeddingText()] = vecs[i]
	}
	m[query] = qvec
	return &stubEmbedder{vectors: m}
}

func providerOf(e Embedder) Provider {
	return func() (Embedder, error) { return e, nil }
}

func TestSearchRanksByCosine(t *testing.T) {
	chunks := testChunks()
	stub := stubFor(chunks, [][]float32{{1, 0}, {0.7, 0.7}, {0, 1}}, "q", []float32{1, 0})
	ix := NewIndex(providerOf(stub))

	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	results, err := ix.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	wantNames := []string{"alpha", "beta", "gamma"}
	for i, want := range wantNames {
		if results[i].Chunk.Name != want {
			t.Errorf("Result %d: expected %s, got %s", i, want, results[i].Chunk.Name)
		}
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("Expected top score 1.0, got %f", results[0].Score)
	}
	if math.Abs(results[1].Score-0.7071) > 1e-3 {
		t.Errorf("Expected middle score ~0.707, got %f", results[1].Score)
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	chunks := testChunks()
	// alpha and beta score identically; gamma is orthogonal.
	stub := stubFor(chunks, [][]float32{{1, 0}, {1, 0}, {0, 1}}, "q", []float32{1, 0})
	ix := NewIndex(providerOf(stub))

	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	results, err := ix.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0].Chunk.Name != "alpha" || results[1].Chunk.Name != "beta" {
		t.Errorf("Expected tied results in insertion order, got %s then %s",
			results[0].Chunk.Name, results[1].Chunk.Name)
	}
}

func TestSearchTopK(t *testing.T) {
	chunks := testChunks()
	stub := stubFor(chunks, [][]float32{{1, 0}, {0.7, 0.7}, {0, 1}}, "q", []float32{1, 0})
	ix := NewIndex(providerOf(stub))

	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	results, err := ix.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	// topK beyond the corpus returns everything; topK <= 0 falls back to
	// the default.
	results, err = ix.Search(context.Background(), "q", 100)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results for oversized topK, got %d", len(results))
	}
	results, err = ix.Search(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results for default topK, got %d", len(results))
	}
}

func TestSearchEmptyIndexSkipsProvider(t *testing.T) {
	provider := func() (Embedder, error) {
		t.Fatal("provider invoked for a search on an empty index")
		return nil, nil
	}
	ix := NewIndex(provider)

	results, err := ix.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected 0 results, got %d", len(results))
	}
}

func TestProviderLazyAndCached(t *testing.T) {
	chunks := testChunks()
	stub := stubFor(chunks, [][]float32{{1, 0}, {0.7, 0.7}, {0, 1}}, "q", []float32{1, 0})
	providerCalls := 0
	ix := NewIndex(func() (Embedder, error) {
		providerCalls++
		return stub, nil
	})

	if providerCalls != 0 {
		t.Fatalf("Expected no provider calls at construction, got %d", providerCalls)
	}
	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Second Build failed: %v", err)
	}
	if providerCalls != 1 {
		t.Errorf("Expected 1 provider call across two builds, got %d", providerCalls)
	}
}

func TestSetBatchSize(t *testing.T) {
	chunks := testChunks()
	stub := stubFor(chunks, [][]float32{{1, 0}, {0.7, 0.7}, {0, 1}}, "q", []float32{1, 0})
	ix := NewIndex(providerOf(stub))
	ix.SetBatchSize(1)

	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("Expected 3 embedder calls with batch size 1, got %d", stub.calls)
	}

	// Invalid sizes keep the current setting.
	stub.calls = 0
	ix.SetBatchSize(0)
	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("Expected batch size unchanged by SetBatchSize(0), got %d calls", stub.calls)
	}
}

func TestNoProviderConfigured(t *testing.T) {
	ix := NewIndex(nil)
	err := ix.Build(context.Background(), testChunks())
	if err == nil {
		t.Fatal("Expected error building without a provider")
	}
	if !errors.HasCode(err, errors.EmbeddingsUnavailable) {
		t.Errorf("Expected EMBEDDINGS_UNAVAILABLE, got %v", err)
	}
}

func TestBuildCancelledKeepsPriorState(t *testing.T) {
	chunks := testChunks()
	stub := stubFor(chunks, [][]float32{{1, 0}, {0.7, 0.7}, {0, 1}}, "q", []float32{1, 0})
	ix := NewIndex(providerOf(stub))

	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := []chunk.Chunk{
		{Content: "def delta(): pass", FilePath: "app/d.py", Kind: chunk.KindFunction, Name: "delta", LineStart: 1, LineEnd: 1},
	}
	err := ix.Build(ctx, next)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if ix.Len() != 3 {
		t.Errorf("Expected prior state preserved (3 chunks), got %d", ix.Len())
	}
	results, err := ix.Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Search after cancelled build failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Name != "alpha" {
		t.Errorf("Expected prior index still searchable, got %+v", results)
	}
}

func TestBuildEmptyCorpusClearsState(t *testing.T) {
	chunks := testChunks()
	stub := stubFor(chunks, [][]float32{{1, 0}, {0.7, 0.7}, {0, 1}}, "q", []float32{1, 0})
	ix := NewIndex(providerOf(stub))

	if err := ix.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := ix.Build(context.Background(), nil); err != nil {
		t.Fatalf("Empty build failed: %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Expected empty index after empty build, got %d chunks", ix.Len())
	}
	if ix.Dimension() != 0 {
		t.Errorf("Expected dimension 0, got %d", ix.Dimension())
	}
}

func TestBuildDimensionMismatch(t *testing.T) {
	chunks := testChunks()
	stub := stubFor(chunks, [][]float32{{1, 0}, {0.7, 0.7, 0.1}, {0, 1}}, "q", []float32{1, 0})
	ix := NewIndex(providerOf(stub))

	err := ix.Build(context.Background(), chunks)
	if err == nil {
		t.Fatal("Expected error for inconsistent vector dimensions")
	}
	if !errors.HasCode(err, errors.AlignmentViolation) {
		t.Errorf("Expected ALIGNMENT_VIOLATION, got %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Expected index untouched after failed build, got %d chunks", ix.Len())
	}
}

func TestLoadRejectsMisalignedState(t *testing.T) {
	ix := NewIndex(nil)
	err := ix.Load([][]float32{{1, 0}, {0, 1}}, testChunks())
	if err == nil {
		t.Fatal("Expected error for 2 vectors against 3 chunks")
	}
	if !errors.HasCode(err, errors.AlignmentViolation) {
		t.Errorf("Expected ALIGNMENT_VIOLATION, got %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Expected index unchanged after rejected load, got %d chunks", ix.Len())
	}
}

func TestLoadThenSearch(t *testing.T) {
	chunks := testChunks()
	stub := &stubEmbedder{vectors: map[string][]float32{"q": {0, 1}}}
	ix := NewIndex(providerOf(stub))

	if err := ix.Load([][]float32{{1, 0}, {0.5, 0.5}, {0, 1}}, chunks); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ix.Len() != 3 {
		t.Fatalf("Expected 3 chunks after load, got %d", ix.Len())
	}
	if ix.Dimension() != 2 {
		t.Fatalf("Expected dimension 2, got %d", ix.Dimension())
	}
	results, err := ix.Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0].Chunk.Name != "gamma" {
		t.Errorf("Expected gamma as top hit, got %s", results[0].Chunk.Name)
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1.0},
		{[]float32{1, 0}, []float32{0, 1}, 0.0},
		{[]float32{1, 0}, []float32{-1, 0}, -1.0},
		{[]float32{1, 0}, []float32{1, 0, 0}, 0.0}, // length mismatch
		{[]float32{0, 0}, []float32{1, 0}, 0.0},    // zero norm
	}
	for i, c := range cases {
		got := CosineSimilarity(c.a, c.b)
		if math.Abs(got-c.want) > 1e-6 {
			t.Errorf("Case %d: expected %f, got %f", i, c.want, got)
		}
	}
}
