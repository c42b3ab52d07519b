// Package embed builds and queries the semantic vector index over code
// chunks. The embedding function itself is external: a subprocess or an
// HTTP endpoint behind the Embedder interface.
package embed

import (
	"context"
	"math"
)

// Embedder turns texts into fixed-dimension vectors, one per input, in
// input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider constructs an Embedder on demand. The index calls it on first
// use, never at construction, so runs that skip semantic search pay no
// initialization cost.
type Provider func() (Embedder, error)

// CosineSimilarity returns the normalized dot product of two vectors.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
