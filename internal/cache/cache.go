// Package cache persists analysis artifacts under the repo's .codeatlas
// directory and guards them with a single-writer lock.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"codeatlas/internal/chunk"
	"codeatlas/internal/errors"
	"codeatlas/internal/graph"
	"codeatlas/internal/model"
)

// DirName is the cache directory created under the analyzed repo root.
const DirName = ".codeatlas"

const (
	indexFile   = "index.json"
	graphFile   = "graph.json"
	chunksFile  = "chunks.json"
	vectorsFile = "vectors.bin"
)

// Store reads and writes the cached artifacts of one repository.
type Store struct {
	dir string
}

// NewStore returns a store rooted at repoRoot/.codeatlas. Nothing is
// created on disk until the first save.
func NewStore(repoRoot string) *Store {
	return &Store{dir: filepath.Join(repoRoot, DirName)}
}

// Dir returns the cache directory path.
func (s *Store) Dir() string { return s.dir }

// Exists reports whether a cached analysis is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.dir, indexFile))
	return err == nil
}

// Clear removes the whole cache directory.
func (s *Store) Clear() error {
	return os.RemoveAll(s.dir)
}

func (s *Store) ensureDir() error {
	return os.MkdirAll(s.dir, 0755)
}

// writeAtomic writes data through a temp file in the cache directory and
// renames it into place, so readers never observe a partial artifact.
func (s *Store) writeAtomic(name string, data []byte) error {
	if err := s.ensureDir(); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting mode on %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// SaveIndex writes the structural index as indented JSON.
func (s *Store) SaveIndex(idx *model.CodebaseIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	return s.writeAtomic(indexFile, data)
}

// LoadIndex reads the cached structural index. A missing artifact yields
// (nil, nil).
func (s *Store) LoadIndex() (*model.CodebaseIndex, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cached index: %w", err)
	}
	var idx model.CodebaseIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing cached index: %w", err)
	}
	return &idx, nil
}

// SaveGraph writes the dependency graph.
func (s *Store) SaveGraph(g *graph.Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling graph: %w", err)
	}
	return s.writeAtomic(graphFile, data)
}

// LoadGraph reads the cached dependency graph. A missing artifact yields
// (nil, nil).
func (s *Store) LoadGraph() (*graph.Graph, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, graphFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cached graph: %w", err)
	}
	g := graph.New()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("parsing cached graph: %w", err)
	}
	return g, nil
}

// SaveChunks writes the chunk list.
func (s *Store) SaveChunks(chunks []chunk.Chunk) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chunks: %w", err)
	}
	return s.writeAtomic(chunksFile, data)
}

// LoadChunks reads the cached chunk list. A missing artifact yields
// (nil, nil).
func (s *Store) LoadChunks() ([]chunk.Chunk, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, chunksFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cached chunks: %w", err)
	}
	var chunks []chunk.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parsing cached chunks: %w", err)
	}
	return chunks, nil
}

// LoadEmbeddings reads vectors and chunk metadata together. Either
// artifact missing yields all nils; a count mismatch between the two is
// rejected so a misaligned cache is never adopted.
func (s *Store) LoadEmbeddings() ([][]float32, []chunk.Chunk, error) {
	vectors, err := s.LoadVectors()
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.LoadChunks()
	if err != nil {
		return nil, nil, err
	}
	if vectors == nil || chunks == nil {
		return nil, nil, nil
	}
	if len(vectors) != len(chunks) {
		return nil, nil, errors.Newf(errors.AlignmentViolation,
			"cache holds %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, chunks, nil
}
