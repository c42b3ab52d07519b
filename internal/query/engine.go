// Package query is the read side of the engine: structural listings, file
// content, regex search, graph traversal, and semantic search over one
// analyzed codebase. An Engine wraps the artifacts of a single run and is
// passed explicitly to every operation; there is no global analysis state.
package query

import (
	"path/filepath"

	"codeatlas/internal/analyzer"
	"codeatlas/internal/cache"
	"codeatlas/internal/chunk"
	"codeatlas/internal/config"
	"codeatlas/internal/embed"
	"codeatlas/internal/errors"
	"codeatlas/internal/graph"
	"codeatlas/internal/logging"
	"codeatlas/internal/model"
)

// Engine answers queries against one run's index, graph, chunks, and
// embeddings. All operations are reads; an Engine is safe for concurrent
// use once built.
type Engine struct {
	idx    *model.CodebaseIndex
	graph  *graph.Graph
	chunks []chunk.Chunk
	embeds *embed.Index
	root   string
	logger *logging.Logger
}

// NewEngine wraps a fresh analyzer result.
func NewEngine(res *analyzer.Result, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	g := res.Graph
	if g == nil {
		g = graph.New()
	}
	return &Engine{
		idx:    res.Index,
		graph:  g,
		chunks: res.Chunks,
		embeds: res.Embeds,
		root:   res.Root,
		logger: logger,
	}
}

// Open loads a previously cached analysis for the repo rooted at root. It
// never analyzes; a repo without a cache is reported, not fixed.
func Open(root string, cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.SourceUnavailable, "resolving repo root", err)
	}

	store := cache.NewStore(abs)
	idx, err := store.LoadIndex()
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, errors.Newf(errors.IndexMissing, "no analysis found for %s", abs).
			WithHint("run 'codeatlas analyze' first")
	}
	g, err := store.LoadGraph()
	if err != nil {
		return nil, err
	}
	if g == nil {
		g = graph.New()
	}
	chunks, err := store.LoadChunks()
	if err != nil {
		return nil, err
	}
	vectors, vecChunks, err := store.LoadEmbeddings()
	if err != nil {
		return nil, err
	}

	embeds := embed.NewIndex(embed.FromConfig(cfg.Embeddings))
	embeds.SetBatchSize(cfg.Embeddings.BatchSize)
	if vectors != nil {
		if err := embeds.Load(vectors, vecChunks); err != nil {
			return nil, err
		}
	}

	return &Engine{
		idx:    idx,
		graph:  g,
		chunks: chunks,
		embeds: embeds,
		root:   abs,
		logger: logger,
	}, nil
}

// Root returns the analyzed repo root.
func (e *Engine) Root() string { return e.root }
