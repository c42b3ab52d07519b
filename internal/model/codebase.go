// Package model defines the structural index records produced by analysis.
// Records are plain data: they carry no parsing or graph logic and are
// serialized as-is into the cache.
package model

import (
	"path"
	"time"
)

// Parameter is a single function parameter as written in source.
type Parameter struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Default string `json:"default,omitempty"`
}

// Function describes a function or method declaration.
type Function struct {
	Name       string      `json:"name"`
	FilePath   string      `json:"filePath"`
	LineStart  int         `json:"lineStart"`
	LineEnd    int         `json:"lineEnd"`
	Parameters []Parameter `json:"parameters,omitempty"`
	ReturnType string      `json:"returnType,omitempty"`
	Decorators []string    `json:"decorators,omitempty"`
	Docstring  string      `json:"docstring,omitempty"`
	// Calls holds callee names observed in the body, first occurrence order.
	Calls     []string `json:"calls,omitempty"`
	IsMethod  bool     `json:"isMethod,omitempty"`
	IsAsync   bool     `json:"isAsync,omitempty"`
	ClassName string   `json:"className,omitempty"`
}

// QualifiedName returns Class.method for methods, the bare name otherwise.
func (f *Function) QualifiedName() string {
	if f.ClassName != "" {
		return f.ClassName + "." + f.Name
	}
	return f.Name
}

// Class describes a class declaration and its methods.
type Class struct {
	Name       string     `json:"name"`
	FilePath   string     `json:"filePath"`
	LineStart  int        `json:"lineStart"`
	LineEnd    int        `json:"lineEnd"`
	Bases      []string   `json:"bases,omitempty"`
	Methods    []Function `json:"methods,omitempty"`
	Attributes []string   `json:"attributes,omitempty"`
	Decorators []string   `json:"decorators,omitempty"`
	Docstring  string     `json:"docstring,omitempty"`
}

// SpanLines returns the inclusive line count of the class body.
func (c *Class) SpanLines() int {
	return c.LineEnd - c.LineStart + 1
}

// Import describes one import statement target. A statement naming several
// modules produces one Import per module.
type Import struct {
	Module string   `json:"module"`
	Names  []string `json:"names,omitempty"`
	Alias  string   `json:"alias,omitempty"`
	// Level is the relative-import depth: 0 absolute, 1 for ".", 2 for "..".
	Level int `json:"level,omitempty"`
}

// IsRelative reports whether the import is package-relative.
func (i *Import) IsRelative() bool {
	return i.Level > 0
}

// FileRecord is the per-file structural index entry. Files that fail deep
// parsing still get a record with empty symbol lists.
type FileRecord struct {
	Path      string     `json:"path"`
	Language  Language   `json:"language"`
	SizeBytes int64      `json:"sizeBytes"`
	LineCount int        `json:"lineCount"`
	Imports   []Import   `json:"imports,omitempty"`
	Functions []Function `json:"functions,omitempty"`
	Classes   []Class    `json:"classes,omitempty"`
	Docstring string     `json:"docstring,omitempty"`
}

// Stem returns the file name without directory or extension.
func (r *FileRecord) Stem() string {
	base := path.Base(r.Path)
	ext := path.Ext(base)
	return base[:len(base)-len(ext)]
}

// RepoMetadata identifies the analyzed repository.
type RepoMetadata struct {
	Name          string    `json:"name"`
	RootPath      string    `json:"rootPath"`
	RemoteURL     string    `json:"remoteUrl,omitempty"`
	DefaultBranch string    `json:"defaultBranch,omitempty"`
	Description   string    `json:"description,omitempty"`
	RunID         string    `json:"runId,omitempty"`
	AnalyzedAt    time.Time `json:"analyzedAt,omitempty"`
}

// ProjectFacts carries declared metadata read from project manifests
// (pyproject.toml, environment.yml). All fields are optional.
type ProjectFacts struct {
	Name         string   `json:"name,omitempty"`
	Version      string   `json:"version,omitempty"`
	Description  string   `json:"description,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Source       string   `json:"source,omitempty"`
}

// CodebaseIndex is the complete structural index of one analysis run.
// Files keep ingestion order (sorted paths), which downstream passes rely
// on for deterministic output.
type CodebaseIndex struct {
	Repo       RepoMetadata   `json:"repo"`
	Project    ProjectFacts   `json:"project,omitempty"`
	Files      []FileRecord   `json:"files"`
	TotalFiles int            `json:"totalFiles"`
	TotalLines int            `json:"totalLines"`
	Languages  map[string]int `json:"languages"`
}

// Finalize recomputes the aggregate fields from Files.
func (idx *CodebaseIndex) Finalize() {
	idx.TotalFiles = len(idx.Files)
	idx.TotalLines = 0
	idx.Languages = make(map[string]int)
	for i := range idx.Files {
		idx.TotalLines += idx.Files[i].LineCount
		idx.Languages[string(idx.Files[i].Language)]++
	}
}

// File returns the record for a repo-relative path, or nil.
func (idx *CodebaseIndex) File(path string) *FileRecord {
	for i := range idx.Files {
		if idx.Files[i].Path == path {
			return &idx.Files[i]
		}
	}
	return nil
}
