package query

import (
	"context"
	"math"
	"unicode/utf8"

	"codeatlas/internal/errors"
)

// maxHitChars caps the content carried by one semantic search hit.
const maxHitChars = 2000

// Hit is one semantic search result.
type Hit struct {
	Kind      string  `json:"kind"`
	Name      string  `json:"name"`
	FilePath  string  `json:"filepath"`
	LineStart int     `json:"lineStart"`
	LineEnd   int     `json:"lineEnd"`
	Score     float64 `json:"score"`
	Content   string  `json:"content"`
	Truncated bool    `json:"truncated,omitempty"`
}

// Search finds the chunks most similar to a natural language query. It
// requires an analysis that was run with embeddings.
func (e *Engine) Search(ctx context.Context, text string, topK int) ([]Hit, error) {
	if e.embeds == nil || e.embeds.Len() == 0 {
		return nil, errors.New(errors.EmbeddingsUnavailable, "this analysis has no embeddings").
			WithHint("configure an embeddings provider and re-run 'codeatlas analyze --force'")
	}

	results, err := e.embeds.Search(ctx, text, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		content := r.Chunk.Content
		truncated := false
		if len(content) > maxHitChars {
			cut := maxHitChars
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut] + "\n... [truncated]"
			truncated = true
		}
		hits[i] = Hit{
			Kind:      string(r.Chunk.Kind),
			Name:      r.Chunk.Name,
			FilePath:  r.Chunk.FilePath,
			LineStart: r.Chunk.LineStart,
			LineEnd:   r.Chunk.LineEnd,
			Score:     math.Round(r.Score*10000) / 10000,
			Content:   content,
			Truncated: truncated,
		}
	}
	return hits, nil
}
