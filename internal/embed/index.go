package embed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"codeatlas/internal/chunk"
	"codeatlas/internal/errors"
)

// defaultBatchSize is how many chunk texts go to the embedder per call
// unless SetBatchSize says otherwise. Batches also serve as cancellation
// points during long builds.
const defaultBatchSize = 32

// DefaultTopK is used when a search caller passes topK <= 0.
const DefaultTopK = 10

// Result is one search hit: the chunk and its cosine similarity to the
// query.
type Result struct {
	Chunk chunk.Chunk `json:"chunk"`
	Score float64     `json:"score"`
}

// Index holds chunk vectors and their metadata in lockstep order:
// vectors[i] always describes chunks[i]. Build and Load swap both together
// under the write lock; Search runs against an immutable snapshot and is
// safe for concurrent callers.
type Index struct {
	mu       sync.RWMutex
	provider Provider
	embedder Embedder
	batch    int
	vectors  [][]float32
	chunks   []chunk.Chunk
}

// NewIndex creates an empty index. The provider is not invoked until an
// operation actually needs embeddings.
func NewIndex(provider Provider) *Index {
	return &Index{provider: provider, batch: defaultBatchSize}
}

// SetBatchSize overrides how many texts are sent per embedder call.
// Values below 1 are ignored.
func (ix *Index) SetBatchSize(n int) {
	if n < 1 {
		return
	}
	ix.mu.Lock()
	ix.batch = n
	ix.mu.Unlock()
}

func (ix *Index) acquire() (Embedder, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.embedder != nil {
		return ix.embedder, nil
	}
	if ix.provider == nil {
		return nil, errors.New(errors.EmbeddingsUnavailable, "no embedding provider configured").
			WithHint("set embeddings.provider in the config to \"command\" or \"http\"")
	}
	e, err := ix.provider()
	if err != nil {
		return nil, err
	}
	ix.embedder = e
	return e, nil
}

// Build embeds every chunk and replaces the index state. On any failure,
// including cancellation, the previous state is left untouched; the new
// vectors and metadata are adopted in one step only after the whole corpus
// embedded cleanly.
func (ix *Index) Build(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		ix.mu.Lock()
		ix.vectors = nil
		ix.chunks = nil
		ix.mu.Unlock()
		return nil
	}

	embedder, err := ix.acquire()
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.EmbeddingText()
	}

	ix.mu.RLock()
	step := ix.batch
	ix.mu.RUnlock()

	vectors := make([][]float32, 0, len(texts))
	dim := 0
	for start := 0; start < len(texts); start += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + step
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return err
		}
		if len(batch) != end-start {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		for _, v := range batch {
			if dim == 0 {
				dim = len(v)
			} else if len(v) != dim {
				return errors.Newf(errors.AlignmentViolation,
					"embedding dimension changed mid-build: %d then %d", dim, len(v))
			}
			vectors = append(vectors, v)
		}
	}

	stored := make([]chunk.Chunk, len(chunks))
	copy(stored, chunks)

	ix.mu.Lock()
	ix.vectors = vectors
	ix.chunks = stored
	ix.mu.Unlock()
	return nil
}

// Load adopts precomputed vectors and metadata, typically restored from the
// cache. Mismatched lengths are rejected and leave the index unchanged: a
// misaligned index would silently return wrong chunks for good scores.
func (ix *Index) Load(vectors [][]float32, chunks []chunk.Chunk) error {
	if len(vectors) != len(chunks) {
		return errors.Newf(errors.AlignmentViolation,
			"%d vectors for %d chunks", len(vectors), len(chunks))
	}
	ix.mu.Lock()
	ix.vectors = vectors
	ix.chunks = chunks
	ix.mu.Unlock()
	return nil
}

// Search embeds the query and returns the topK most similar chunks, sorted
// by descending score with ties kept in insertion order. topK beyond the
// corpus returns the whole corpus; an empty index returns no results and
// touches no embedder.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	ix.mu.RLock()
	vectors, chunks := ix.vectors, ix.chunks
	ix.mu.RUnlock()

	if len(vectors) == 0 {
		return []Result{}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedder, err := ix.acquire()
	if err != nil {
		return nil, err
	}
	qvecs, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(qvecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for the query", len(qvecs))
	}
	qvec := qvecs[0]

	results := make([]Result, len(vectors))
	for i, v := range vectors {
		results[i] = Result{Chunk: chunks[i], Score: CosineSimilarity(qvec, v)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.vectors) == 0 {
		return 0
	}
	return len(ix.vectors[0])
}

// Vectors returns the stored vectors for persistence. The slice is the
// index's own state; callers must not mutate it.
func (ix *Index) Vectors() [][]float32 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.vectors
}

// Chunks returns the stored chunk metadata for persistence. The slice is
// the index's own state; callers must not mutate it.
func (ix *Index) Chunks() []chunk.Chunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.chunks
}
