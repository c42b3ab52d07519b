package query

import (
	"path"
	"sort"
	"strings"

	"codeatlas/internal/errors"
	"codeatlas/internal/graph"
	"codeatlas/internal/model"
)

const maxLargestFiles = 5

// Overview is the repo-level summary: identity, totals, language and size
// breakdowns, and declared project facts.
type Overview struct {
	Repo           model.RepoMetadata `json:"repo"`
	Project        model.ProjectFacts `json:"project"`
	TotalFiles     int                `json:"totalFiles"`
	TotalLines     int                `json:"totalLines"`
	TotalClasses   int                `json:"totalClasses"`
	TotalFunctions int                `json:"totalFunctions"`
	TotalMethods   int                `json:"totalMethods"`
	TotalChunks    int                `json:"totalChunks"`
	Languages      map[string]int     `json:"languages"`
	LargestFiles   []FileEntry        `json:"largestFiles,omitempty"`
}

// FileEntry is one file in a listing.
type FileEntry struct {
	Path      string `json:"path"`
	Language  string `json:"language"`
	SizeBytes int64  `json:"sizeBytes"`
	LineCount int    `json:"lineCount"`
}

// ClassInfo is one class in a listing.
type ClassInfo struct {
	Name      string   `json:"name"`
	FilePath  string   `json:"filepath"`
	Bases     []string `json:"bases,omitempty"`
	Methods   []string `json:"methods,omitempty"`
	LineStart int      `json:"lineStart"`
	Docstring string   `json:"docstring,omitempty"`
}

// FunctionInfo is one function or method in a listing. Methods carry their
// qualified Class.method name.
type FunctionInfo struct {
	Name       string   `json:"name"`
	FilePath   string   `json:"filepath"`
	Parameters []string `json:"parameters,omitempty"`
	ReturnType string   `json:"returnType,omitempty"`
	IsAsync    bool     `json:"isAsync,omitempty"`
	LineStart  int      `json:"lineStart"`
	Docstring  string   `json:"docstring,omitempty"`
}

// ImportInfo is one import statement in a listing.
type ImportInfo struct {
	FilePath   string   `json:"filepath"`
	Module     string   `json:"module"`
	Names      []string `json:"names,omitempty"`
	IsRelative bool     `json:"isRelative,omitempty"`
}

// ImportsReport carries either one file's imports or the repo-wide module
// histogram, depending on how Imports was called.
type ImportsReport struct {
	Imports   []ImportInfo   `json:"imports,omitempty"`
	Histogram map[string]int `json:"histogram,omitempty"`
	Count     int            `json:"count"`
}

// FileDetail is the full view of one file: record fields, symbols, and the
// graph edges that touch its file node.
type FileDetail struct {
	Path      string         `json:"path"`
	Language  string         `json:"language"`
	LineCount int            `json:"lineCount"`
	SizeBytes int64          `json:"sizeBytes"`
	Docstring string         `json:"docstring,omitempty"`
	Imports   []model.Import `json:"imports,omitempty"`
	Classes   []ClassInfo    `json:"classes,omitempty"`
	Functions []FunctionInfo `json:"functions,omitempty"`
	Edges     []*graph.Edge  `json:"edges,omitempty"`
}

// Overview summarizes the analyzed repo. Function totals include methods;
// the method count is also reported on its own.
func (e *Engine) Overview() Overview {
	classes, functions, methods := 0, 0, 0
	for i := range e.idx.Files {
		f := &e.idx.Files[i]
		classes += len(f.Classes)
		functions += len(f.Functions)
		for ci := range f.Classes {
			methods += len(f.Classes[ci].Methods)
		}
	}

	largest := make([]FileEntry, 0, len(e.idx.Files))
	for i := range e.idx.Files {
		largest = append(largest, fileEntry(&e.idx.Files[i]))
	}
	sort.SliceStable(largest, func(i, j int) bool {
		if largest[i].LineCount != largest[j].LineCount {
			return largest[i].LineCount > largest[j].LineCount
		}
		return largest[i].Path < largest[j].Path
	})
	if len(largest) > maxLargestFiles {
		largest = largest[:maxLargestFiles]
	}

	return Overview{
		Repo:           e.idx.Repo,
		Project:        e.idx.Project,
		TotalFiles:     e.idx.TotalFiles,
		TotalLines:     e.idx.TotalLines,
		TotalClasses:   classes,
		TotalFunctions: functions + methods,
		TotalMethods:   methods,
		TotalChunks:    len(e.chunks),
		Languages:      e.idx.Languages,
		LargestFiles:   largest,
	}
}

// ListFiles returns the indexed files, optionally narrowed by a glob
// pattern.
func (e *Engine) ListFiles(pattern string) ([]FileEntry, error) {
	out := make([]FileEntry, 0, len(e.idx.Files))
	for i := range e.idx.Files {
		f := &e.idx.Files[i]
		ok, err := matchPath(pattern, f.Path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, fileEntry(f))
	}
	return out, nil
}

// Classes lists every class, optionally narrowed by a case-insensitive
// substring of the class name.
func (e *Engine) Classes(filter string) []ClassInfo {
	var out []ClassInfo
	for i := range e.idx.Files {
		f := &e.idx.Files[i]
		for ci := range f.Classes {
			cls := &f.Classes[ci]
			if !matchesFilter(cls.Name, filter) {
				continue
			}
			out = append(out, classInfo(f.Path, cls))
		}
	}
	return out
}

// Functions lists every function and method, optionally narrowed by a
// case-insensitive substring. The filter sees the qualified Class.method
// name, so a bare method name still matches.
func (e *Engine) Functions(filter string) []FunctionInfo {
	var out []FunctionInfo
	for i := range e.idx.Files {
		f := &e.idx.Files[i]
		for fi := range f.Functions {
			fn := &f.Functions[fi]
			if !matchesFilter(fn.Name, filter) {
				continue
			}
			out = append(out, functionInfo(f.Path, fn.Name, fn))
		}
		for ci := range f.Classes {
			cls := &f.Classes[ci]
			for mi := range cls.Methods {
				m := &cls.Methods[mi]
				qualified := cls.Name + "." + m.Name
				if !matchesFilter(qualified, filter) {
					continue
				}
				out = append(out, functionInfo(f.Path, qualified, m))
			}
		}
	}
	return out
}

// Imports returns one file's import statements, or with an empty file
// argument the repo-wide histogram of imported modules. Count is the total
// number of import statements either way.
func (e *Engine) Imports(file string) (*ImportsReport, error) {
	if file == "" {
		histogram := make(map[string]int)
		total := 0
		for i := range e.idx.Files {
			for _, imp := range e.idx.Files[i].Imports {
				histogram[imp.Module]++
				total++
			}
		}
		return &ImportsReport{Histogram: histogram, Count: total}, nil
	}

	resolved, err := e.resolveFilePath(file)
	if err != nil {
		return nil, err
	}
	f := e.idx.File(resolved)
	imports := make([]ImportInfo, 0, len(f.Imports))
	for i := range f.Imports {
		imp := &f.Imports[i]
		imports = append(imports, ImportInfo{
			FilePath:   resolved,
			Module:     imp.Module,
			Names:      imp.Names,
			IsRelative: imp.IsRelative(),
		})
	}
	return &ImportsReport{Imports: imports, Count: len(imports)}, nil
}

// FileSummary returns the detail view for one file. The argument may be an
// exact path or a glob that resolves to a single indexed file.
func (e *Engine) FileSummary(pattern string) (*FileDetail, error) {
	resolved, err := e.resolveFilePath(pattern)
	if err != nil {
		return nil, err
	}
	f := e.idx.File(resolved)

	classes := make([]ClassInfo, 0, len(f.Classes))
	for ci := range f.Classes {
		classes = append(classes, classInfo(f.Path, &f.Classes[ci]))
	}
	functions := make([]FunctionInfo, 0, len(f.Functions))
	for fi := range f.Functions {
		fn := &f.Functions[fi]
		functions = append(functions, functionInfo(f.Path, fn.Name, fn))
	}

	return &FileDetail{
		Path:      f.Path,
		Language:  string(f.Language),
		LineCount: f.LineCount,
		SizeBytes: f.SizeBytes,
		Docstring: f.Docstring,
		Imports:   f.Imports,
		Classes:   classes,
		Functions: functions,
		Edges:     e.graph.EdgesFor(graph.FileNodeID(f.Path)),
	}, nil
}

// resolveFilePath maps a user-supplied path or glob to exactly one indexed
// path: exact match first, then glob over known paths.
func (e *Engine) resolveFilePath(pattern string) (string, error) {
	if e.idx.File(pattern) != nil {
		return pattern, nil
	}

	var matches []string
	for i := range e.idx.Files {
		p := e.idx.Files[i].Path
		ok, err := matchPath(pattern, p)
		if err != nil {
			return "", err
		}
		if ok {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.Newf(errors.FileNotFound, "no indexed file matches %s", pattern).
			WithHint("list known paths with 'codeatlas files'")
	case 1:
		return matches[0], nil
	}

	total := len(matches)
	sort.Strings(matches)
	if len(matches) > maxCandidates {
		matches = matches[:maxCandidates]
	}
	return "", errors.Newf(errors.AmbiguousNode, "%q matches %d files", pattern, total).
		WithDetails(map[string]interface{}{"candidates": matches}).
		WithHint("narrow the pattern to a single file")
}

// matchPath reports whether a repo-relative path matches a glob pattern.
// An empty pattern or "*" matches everything, and a pattern without a
// slash also matches against the base name, so "*.py" finds files anywhere
// in the tree.
func matchPath(pattern, p string) (bool, error) {
	if pattern == "" || pattern == "*" || pattern == p {
		return true, nil
	}
	ok, err := path.Match(pattern, p)
	if err != nil {
		return false, errors.Newf(errors.InvalidPattern, "bad glob pattern: %s", pattern)
	}
	if ok {
		return true, nil
	}
	if !strings.Contains(pattern, "/") {
		ok, _ = path.Match(pattern, path.Base(p))
	}
	return ok, nil
}

func matchesFilter(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

func fileEntry(f *model.FileRecord) FileEntry {
	return FileEntry{
		Path:      f.Path,
		Language:  string(f.Language),
		SizeBytes: f.SizeBytes,
		LineCount: f.LineCount,
	}
}

func classInfo(path string, cls *model.Class) ClassInfo {
	methods := make([]string, 0, len(cls.Methods))
	for i := range cls.Methods {
		methods = append(methods, cls.Methods[i].Name)
	}
	return ClassInfo{
		Name:      cls.Name,
		FilePath:  path,
		Bases:     cls.Bases,
		Methods:   methods,
		LineStart: cls.LineStart,
		Docstring: cls.Docstring,
	}
}

func functionInfo(path, name string, fn *model.Function) FunctionInfo {
	params := make([]string, 0, len(fn.Parameters))
	for i := range fn.Parameters {
		params = append(params, fn.Parameters[i].Name)
	}
	return FunctionInfo{
		Name:       name,
		FilePath:   path,
		Parameters: params,
		ReturnType: fn.ReturnType,
		IsAsync:    fn.IsAsync,
		LineStart:  fn.LineStart,
		Docstring:  fn.Docstring,
	}
}
