// Package analyzer runs the full indexing pipeline: collect files, parse
// them into structural records, build the dependency graph, chunk sources
// for retrieval, optionally embed the chunks, and persist everything to the
// repo cache.
package analyzer

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"codeatlas/internal/cache"
	"codeatlas/internal/chunk"
	"codeatlas/internal/config"
	"codeatlas/internal/embed"
	"codeatlas/internal/errors"
	"codeatlas/internal/gitinfo"
	"codeatlas/internal/graph"
	"codeatlas/internal/ingest"
	"codeatlas/internal/logging"
	"codeatlas/internal/model"
	"codeatlas/internal/parser"
	"codeatlas/internal/storage"
)

// maxAutoWorkers caps the parser pool when no worker count is configured.
const maxAutoWorkers = 8

// Options control a single analysis run.
type Options struct {
	// SkipEmbeddings leaves the embedding index empty even when a provider
	// is configured. Chunks are still produced.
	SkipEmbeddings bool
	// Force re-analyzes even when a cache already exists.
	Force bool
	// Workers overrides the configured parser pool size. Zero keeps the
	// configured value.
	Workers int
}

// Stats summarizes what one run produced.
type Stats struct {
	Files       int            `json:"files"`
	Lines       int            `json:"lines"`
	Classes     int            `json:"classes"`
	Functions   int            `json:"functions"`
	Chunks      int            `json:"chunks"`
	GraphNodes  int            `json:"graphNodes"`
	GraphEdges  int            `json:"graphEdges"`
	Languages   map[string]int `json:"languages"`
	Downgraded  int            `json:"downgraded,omitempty"`
	SkippedRead int            `json:"skippedRead,omitempty"`
	Embedded    bool           `json:"embedded"`
	DurationMS  int64          `json:"durationMs"`
}

// Result carries the in-memory artifacts of a run. The same artifacts are
// persisted to the repo cache, so later invocations can reload them without
// re-analyzing.
type Result struct {
	Index  *model.CodebaseIndex
	Graph  *graph.Graph
	Chunks []chunk.Chunk
	Embeds *embed.Index
	Root   string
	RunID  string
	// Reused is true when the result was loaded from an existing cache
	// instead of a fresh analysis.
	Reused bool
	Stats  Stats
}

// Analyzer orchestrates analysis runs for one configuration.
type Analyzer struct {
	cfg    *config.Config
	logger *logging.Logger
}

// New returns an Analyzer. A nil config gets defaults and a nil logger is
// replaced with a no-op one.
func New(cfg *config.Config, logger *logging.Logger) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// Run analyzes source, which is a local directory or a remote git URL.
// Unless opts.Force is set, an existing cache is reloaded instead of
// re-analyzed. Remote sources are cloned into a temporary directory that is
// removed when Run returns; their artifacts survive only in the returned
// Result and the catalog row.
func (a *Analyzer) Run(ctx context.Context, source string, opts Options) (*Result, error) {
	started := time.Now()

	root, cleanup, err := ingest.Resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	store := cache.NewStore(root)
	if !opts.Force && store.Exists() {
		res, err := a.reload(store, root)
		if err == nil {
			a.logger.Info("Reusing cached analysis", map[string]interface{}{
				"root":  root,
				"files": res.Stats.Files,
			})
			return res, nil
		}
		a.logger.Warn("Existing cache unreadable, re-analyzing", map[string]interface{}{
			"root":  root,
			"error": err.Error(),
		})
	}

	lock, err := store.Lock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	a.logger.Info("Starting analysis", map[string]interface{}{"source": source, "root": root})

	paths, err := ingest.CollectFilesWith(root, ingest.Options{
		MaxFileSize:     a.cfg.Ingest.MaxFileSizeBytes,
		ExtraIgnoreDirs: a.cfg.Ingest.ExtraIgnoreDirs,
	})
	if err != nil {
		return nil, err
	}

	contents, skipped := ingest.ReadFiles(root, paths)
	if len(skipped) > 0 {
		a.logger.Warn("Some files could not be read", map[string]interface{}{
			"count": len(skipped),
		})
	}
	// Keep the sorted collection order; drop files that failed to read.
	ordered := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := contents[p]; ok {
			ordered = append(ordered, p)
		}
	}

	records, downgraded, err := a.parseAll(ctx, ordered, contents, opts.Workers)
	if err != nil {
		return nil, err
	}

	idx := &model.CodebaseIndex{
		Repo:  a.repoMetadata(ctx, source, root),
		Files: records,
	}
	facts, err := ingest.ProbeManifest(root)
	if err != nil {
		a.logger.Warn("Project manifest unreadable", map[string]interface{}{
			"error": err.Error(),
		})
	} else if facts != nil {
		idx.Project = *facts
		if idx.Repo.Description == "" {
			idx.Repo.Description = facts.Description
		}
	}
	idx.Finalize()

	g := graph.Build(idx)
	chunks := a.chunkAll(idx, contents)

	provider := embed.FromConfig(a.cfg.Embeddings)
	embeds := embed.NewIndex(provider)
	embeds.SetBatchSize(a.cfg.Embeddings.BatchSize)
	embedded := false
	if !opts.SkipEmbeddings && provider != nil {
		if err := embeds.Build(ctx, chunks); err != nil {
			return nil, err
		}
		embedded = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := store.SaveIndex(idx); err != nil {
		return nil, err
	}
	if err := store.SaveGraph(g); err != nil {
		return nil, err
	}
	if err := store.SaveChunks(chunks); err != nil {
		return nil, err
	}
	if embedded {
		if err := store.SaveVectors(embeds.Vectors()); err != nil {
			return nil, err
		}
	} else if err := store.DropVectors(); err != nil {
		return nil, err
	}

	stats := buildStats(idx, g, chunks, embedded, time.Since(started))
	stats.Downgraded = downgraded
	stats.SkippedRead = len(skipped)

	a.recordRun(idx, stats, started)

	a.logger.Info("Analysis complete", map[string]interface{}{
		"files":      stats.Files,
		"functions":  stats.Functions,
		"chunks":     stats.Chunks,
		"durationMs": stats.DurationMS,
	})

	return &Result{
		Index:  idx,
		Graph:  g,
		Chunks: chunks,
		Embeds: embeds,
		Root:   root,
		RunID:  idx.Repo.RunID,
		Stats:  stats,
	}, nil
}

// reload restores a Result from the repo cache.
func (a *Analyzer) reload(store *cache.Store, root string) (*Result, error) {
	idx, err := store.LoadIndex()
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, errors.New(errors.IndexMissing, "cache directory exists but holds no index")
	}
	g, err := store.LoadGraph()
	if err != nil {
		return nil, err
	}
	chunks, err := store.LoadChunks()
	if err != nil {
		return nil, err
	}
	vectors, vecChunks, err := store.LoadEmbeddings()
	if err != nil {
		return nil, err
	}

	embeds := embed.NewIndex(embed.FromConfig(a.cfg.Embeddings))
	embeds.SetBatchSize(a.cfg.Embeddings.BatchSize)
	embedded := false
	if vectors != nil {
		if err := embeds.Load(vectors, vecChunks); err != nil {
			return nil, err
		}
		embedded = true
	}

	return &Result{
		Index:  idx,
		Graph:  g,
		Chunks: chunks,
		Embeds: embeds,
		Root:   root,
		RunID:  idx.Repo.RunID,
		Reused: true,
		Stats:  buildStats(idx, g, chunks, embedded, 0),
	}, nil
}

// parseAll parses the given files concurrently, keeping results in input
// order. It fails only on context cancellation.
func (a *Analyzer) parseAll(ctx context.Context, paths []string, contents map[string]string, override int) ([]model.FileRecord, int, error) {
	workers := a.workerCount(override, len(paths))
	a.logger.Debug("Parsing files", map[string]interface{}{
		"files":   len(paths),
		"workers": workers,
	})

	records := make([]model.FileRecord, len(paths))
	downgrades := make([]bool, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			rec, downgraded, err := parser.ParseFile(ctx, path, []byte(contents[path]))
			if err != nil {
				return err
			}
			records[i] = rec
			downgrades[i] = downgraded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	downgraded := 0
	for _, d := range downgrades {
		if d {
			downgraded++
		}
	}
	if downgraded > 0 {
		a.logger.Warn("Some files fell back to minimal records", map[string]interface{}{
			"count": downgraded,
		})
	}
	return records, downgraded, nil
}

// workerCount resolves the parser pool size: explicit override, then the
// configured value, then NumCPU capped at maxAutoWorkers. Never below 1, or
// an empty repo would stall the pool.
func (a *Analyzer) workerCount(override, jobs int) int {
	workers := a.cfg.Parser.Workers
	if override > 0 {
		workers = override
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > maxAutoWorkers {
			workers = maxAutoWorkers
		}
	}
	if jobs > 0 && workers > jobs {
		workers = jobs
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// chunkAll splits every file into retrieval chunks using the configured
// chunking bounds.
func (a *Analyzer) chunkAll(idx *model.CodebaseIndex, contents map[string]string) []chunk.Chunk {
	opts := chunk.Options{
		MaxClassLines: a.cfg.Chunking.MaxClassLines,
		WindowSize:    a.cfg.Chunking.WindowSize,
		WindowOverlap: a.cfg.Chunking.WindowOverlap,
	}
	chunks := make([]chunk.Chunk, 0, len(idx.Files))
	for i := range idx.Files {
		f := &idx.Files[i]
		content, ok := contents[f.Path]
		if !ok {
			continue
		}
		chunks = append(chunks, chunk.SplitWith(f, content, opts)...)
	}
	return chunks
}

// repoMetadata assembles repo identity for the index. Git details are best
// effort: a plain directory still analyzes fine without them.
func (a *Analyzer) repoMetadata(ctx context.Context, source, root string) model.RepoMetadata {
	meta := model.RepoMetadata{
		Name:       ingest.RepoName(source),
		RootPath:   root,
		RunID:      uuid.NewString(),
		AnalyzedAt: time.Now().UTC(),
	}
	if gitinfo.IsRepo(root) {
		client := gitinfo.NewClient(root)
		meta.RemoteURL = client.RemoteURL(ctx)
		meta.DefaultBranch = client.CurrentBranch(ctx)
	}
	if meta.RemoteURL == "" && ingest.IsRemote(source) {
		meta.RemoteURL = source
	}
	return meta
}

// recordRun appends the run to the per-user catalog. Catalog failures are
// logged, not fatal: the analysis itself already succeeded.
func (a *Analyzer) recordRun(idx *model.CodebaseIndex, stats Stats, started time.Time) {
	catalog, err := storage.Open(a.logger)
	if err != nil {
		a.logger.Warn("Catalog unavailable, run not recorded", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer catalog.Close()

	repo := storage.Repository{
		Root:      idx.Repo.RootPath,
		Name:      idx.Repo.Name,
		RemoteURL: idx.Repo.RemoteURL,
		Branch:    idx.Repo.DefaultBranch,
	}
	run := storage.Run{
		ID:         idx.Repo.RunID,
		Root:       idx.Repo.RootPath,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		DurationMS: stats.DurationMS,
		Files:      stats.Files,
		Classes:    stats.Classes,
		Functions:  stats.Functions,
		Chunks:     stats.Chunks,
		Nodes:      stats.GraphNodes,
		Edges:      stats.GraphEdges,
	}
	if err := catalog.RecordRun(repo, run); err != nil {
		a.logger.Warn("Recording run in catalog failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func buildStats(idx *model.CodebaseIndex, g *graph.Graph, chunks []chunk.Chunk, embedded bool, elapsed time.Duration) Stats {
	classes := 0
	functions := 0
	for i := range idx.Files {
		f := &idx.Files[i]
		classes += len(f.Classes)
		functions += len(f.Functions)
		for j := range f.Classes {
			functions += len(f.Classes[j].Methods)
		}
	}
	return Stats{
		Files:      idx.TotalFiles,
		Lines:      idx.TotalLines,
		Classes:    classes,
		Functions:  functions,
		Chunks:     len(chunks),
		GraphNodes: g.NodeCount(),
		GraphEdges: g.EdgeCount(),
		Languages:  idx.Languages,
		Embedded:   embedded,
		DurationMS: elapsed.Milliseconds(),
	}
}
