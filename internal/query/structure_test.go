package query

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"codeatlas/internal/chunk"
	"codeatlas/internal/embed"
	"codeatlas/internal/errors"
	"codeatlas/internal/graph"
	"codeatlas/internal/logging"
	"codeatlas/internal/model"
)

const fixtureModelsPy = `import os
from typing import Dict


class Config:
    """Runtime configuration."""
    def load(self):
        return os.environ

    def save(self):
        pass

class Engine(Config):
    def run(self):
        return True

def helper(name, count=1):
    return name * count`

const fixtureUtilsPy = `from app.models import Config

def format_name(config):
    return str(config)`

const fixtureReadme = `# Demo

A tiny fixture repo.`

// fixtureEngine indexes a small three-file repo and writes the matching
// sources to a temp dir so the content operations can read from disk:
//
//	README.md      markdown, no symbols
//	app/models.py  Config (load, save), Engine(Config) (run), helper()
//	app/utils.py   imports app.models, format_name()
func fixtureEngine(t *testing.T) *Engine {
	t.Helper()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "app"), 0o755); err != nil {
		t.Fatalf("failed to create app dir: %v", err)
	}
	files := map[string]string{
		"README.md":     fixtureReadme,
		"app/models.py": fixtureModelsPy,
		"app/utils.py":  fixtureUtilsPy,
	}
	for path, content := range files {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(path)), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	idx := &model.CodebaseIndex{
		Repo:    model.RepoMetadata{Name: "demo", RootPath: root},
		Project: model.ProjectFacts{Name: "demo", Version: "0.1.0"},
		Files: []model.FileRecord{
			{
				Path:      "README.md",
				Language:  model.LangMarkdown,
				SizeBytes: int64(len(fixtureReadme)),
				LineCount: 3,
			},
			{
				Path:      "app/models.py",
				Language:  model.LangPython,
				SizeBytes: int64(len(fixtureModelsPy)),
				LineCount: 18,
				Imports: []model.Import{
					{Module: "os"},
					{Module: "typing", Names: []string{"Dict"}},
				},
				Functions: []model.Function{
					{
						Name:      "helper",
						FilePath:  "app/models.py",
						LineStart: 17,
						LineEnd:   18,
						Parameters: []model.Parameter{
							{Name: "name"},
							{Name: "count", Default: "1"},
						},
					},
				},
				Classes: []model.Class{
					{
						Name:      "Config",
						FilePath:  "app/models.py",
						LineStart: 5,
						LineEnd:   11,
						Docstring: "Runtime configuration.",
						Methods: []model.Function{
							{Name: "load", FilePath: "app/models.py", LineStart: 7, LineEnd: 8, IsMethod: true, ClassName: "Config"},
							{Name: "save", FilePath: "app/models.py", LineStart: 10, LineEnd: 11, IsMethod: true, ClassName: "Config"},
						},
					},
					{
						Name:      "Engine",
						FilePath:  "app/models.py",
						LineStart: 13,
						LineEnd:   15,
						Bases:     []string{"Config"},
						Methods: []model.Function{
							{Name: "run", FilePath: "app/models.py", LineStart: 14, LineEnd: 15, IsMethod: true, ClassName: "Engine"},
						},
					},
				},
			},
			{
				Path:      "app/utils.py",
				Language:  model.LangPython,
				SizeBytes: int64(len(fixtureUtilsPy)),
				LineCount: 4,
				Imports: []model.Import{
					{Module: "app.models", Names: []string{"Config"}},
				},
				Functions: []model.Function{
					{
						Name:       "format_name",
						FilePath:   "app/utils.py",
						LineStart:  3,
						LineEnd:    4,
						Parameters: []model.Parameter{{Name: "config"}},
					},
				},
			},
		},
	}
	idx.Finalize()

	chunks := []chunk.Chunk{
		{Content: "class Config:\n    pass", FilePath: "app/models.py", Kind: chunk.KindClass, Name: "Config", LineStart: 5, LineEnd: 11},
		{Content: "def helper(name, count=1):\n    pass", FilePath: "app/models.py", Kind: chunk.KindFunction, Name: "helper", LineStart: 17, LineEnd: 18},
	}

	return &Engine{
		idx:    idx,
		graph:  graph.Build(idx),
		chunks: chunks,
		embeds: embed.NewIndex(nil),
		root:   root,
		logger: logging.Nop(),
	}
}

func TestOverview(t *testing.T) {
	e := fixtureEngine(t)

	ov := e.Overview()
	if ov.TotalFiles != 3 {
		t.Errorf("expected 3 files, got %d", ov.TotalFiles)
	}
	if ov.TotalLines != 25 {
		t.Errorf("expected 25 lines, got %d", ov.TotalLines)
	}
	if ov.TotalClasses != 2 {
		t.Errorf("expected 2 classes, got %d", ov.TotalClasses)
	}
	// Function total counts methods too; methods also reported on their own.
	if ov.TotalFunctions != 5 {
		t.Errorf("expected 5 functions, got %d", ov.TotalFunctions)
	}
	if ov.TotalMethods != 3 {
		t.Errorf("expected 3 methods, got %d", ov.TotalMethods)
	}
	if ov.TotalChunks != 2 {
		t.Errorf("expected 2 chunks, got %d", ov.TotalChunks)
	}
	if ov.Languages["python"] != 2 || ov.Languages["markdown"] != 1 {
		t.Errorf("unexpected language breakdown: %v", ov.Languages)
	}
	if ov.Repo.Name != "demo" || ov.Project.Version != "0.1.0" {
		t.Errorf("repo identity not carried: %s / %s", ov.Repo.Name, ov.Project.Version)
	}

	if len(ov.LargestFiles) != 3 {
		t.Fatalf("expected 3 largest files, got %d", len(ov.LargestFiles))
	}
	if ov.LargestFiles[0].Path != "app/models.py" || ov.LargestFiles[0].LineCount != 18 {
		t.Errorf("unexpected largest file: %+v", ov.LargestFiles[0])
	}
	if ov.LargestFiles[2].Path != "README.md" {
		t.Errorf("expected README.md last, got %s", ov.LargestFiles[2].Path)
	}
}

func TestOverviewLargestFilesCapped(t *testing.T) {
	e := fixtureEngine(t)
	for i := 0; i < 6; i++ {
		e.idx.Files = append(e.idx.Files, model.FileRecord{
			Path:      fmt.Sprintf("pad%d.txt", i),
			Language:  model.LangOther,
			LineCount: 100 + i,
		})
	}
	e.idx.Finalize()

	ov := e.Overview()
	if len(ov.LargestFiles) != 5 {
		t.Fatalf("expected 5 largest files, got %d", len(ov.LargestFiles))
	}
	if ov.LargestFiles[0].Path != "pad5.txt" {
		t.Errorf("expected pad5.txt first, got %s", ov.LargestFiles[0].Path)
	}
}

func TestListFiles(t *testing.T) {
	e := fixtureEngine(t)

	cases := []struct {
		pattern string
		want    []string
	}{
		{"", []string{"README.md", "app/models.py", "app/utils.py"}},
		{"*", []string{"README.md", "app/models.py", "app/utils.py"}},
		// A pattern without a slash also matches base names.
		{"*.py", []string{"app/models.py", "app/utils.py"}},
		{"app/*", []string{"app/models.py", "app/utils.py"}},
		{"*.md", []string{"README.md"}},
		{"nope*", nil},
	}
	for _, tc := range cases {
		entries, err := e.ListFiles(tc.pattern)
		if err != nil {
			t.Fatalf("ListFiles(%q) failed: %v", tc.pattern, err)
		}
		var paths []string
		for _, entry := range entries {
			paths = append(paths, entry.Path)
		}
		if !reflect.DeepEqual(paths, tc.want) {
			t.Errorf("ListFiles(%q) = %v, want %v", tc.pattern, paths, tc.want)
		}
	}
}

func TestListFilesBadPattern(t *testing.T) {
	e := fixtureEngine(t)

	_, err := e.ListFiles("[")
	if !errors.HasCode(err, errors.InvalidPattern) {
		t.Fatalf("expected InvalidPattern, got %v", err)
	}
}

func TestClasses(t *testing.T) {
	e := fixtureEngine(t)

	all := e.Classes("")
	if len(all) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(all))
	}
	if all[0].Name != "Config" || all[1].Name != "Engine" {
		t.Errorf("unexpected class order: %s, %s", all[0].Name, all[1].Name)
	}
	if !reflect.DeepEqual(all[0].Methods, []string{"load", "save"}) {
		t.Errorf("unexpected Config methods: %v", all[0].Methods)
	}
	if all[0].Docstring != "Runtime configuration." {
		t.Errorf("docstring not carried: %q", all[0].Docstring)
	}
	if !reflect.DeepEqual(all[1].Bases, []string{"Config"}) {
		t.Errorf("unexpected Engine bases: %v", all[1].Bases)
	}
	if all[1].LineStart != 13 {
		t.Errorf("expected Engine at line 13, got %d", all[1].LineStart)
	}
}

func TestClassesFilter(t *testing.T) {
	e := fixtureEngine(t)

	// Filters are case-insensitive substrings, not globs.
	if got := e.Classes("con"); len(got) != 1 || got[0].Name != "Config" {
		t.Errorf("Classes(\"con\") = %+v, want Config", got)
	}
	if got := e.Classes("ENGINE"); len(got) != 1 || got[0].Name != "Engine" {
		t.Errorf("Classes(\"ENGINE\") = %+v, want Engine", got)
	}
	if got := e.Classes("zzz"); len(got) != 0 {
		t.Errorf("expected no classes for zzz, got %d", len(got))
	}
}

func TestFunctions(t *testing.T) {
	e := fixtureEngine(t)

	all := e.Functions("")
	var names []string
	for _, fn := range all {
		names = append(names, fn.Name)
	}
	want := []string{"helper", "Config.load", "Config.save", "Engine.run", "format_name"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("Functions(\"\") = %v, want %v", names, want)
	}

	if !reflect.DeepEqual(all[0].Parameters, []string{"name", "count"}) {
		t.Errorf("unexpected helper parameters: %v", all[0].Parameters)
	}
	if all[0].LineStart != 17 {
		t.Errorf("expected helper at line 17, got %d", all[0].LineStart)
	}
}

func TestFunctionsFilter(t *testing.T) {
	e := fixtureEngine(t)

	if got := e.Functions("save"); len(got) != 1 || got[0].Name != "Config.save" {
		t.Errorf("Functions(\"save\") = %+v, want Config.save", got)
	}
	// The filter sees qualified method names.
	got := e.Functions("config.")
	if len(got) != 2 {
		t.Fatalf("expected 2 Config methods, got %d", len(got))
	}
	if got[0].Name != "Config.load" || got[1].Name != "Config.save" {
		t.Errorf("unexpected methods: %s, %s", got[0].Name, got[1].Name)
	}
	if got := e.Functions("FORMAT"); len(got) != 1 || got[0].Name != "format_name" {
		t.Errorf("Functions(\"FORMAT\") = %+v, want format_name", got)
	}
}

func TestImportsForFile(t *testing.T) {
	e := fixtureEngine(t)

	rep, err := e.Imports("app/utils.py")
	if err != nil {
		t.Fatalf("Imports failed: %v", err)
	}
	if rep.Count != 1 || len(rep.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", rep.Count)
	}
	imp := rep.Imports[0]
	if imp.Module != "app.models" || imp.FilePath != "app/utils.py" {
		t.Errorf("unexpected import: %+v", imp)
	}
	if !reflect.DeepEqual(imp.Names, []string{"Config"}) {
		t.Errorf("unexpected names: %v", imp.Names)
	}
	if imp.IsRelative {
		t.Error("app.models should not be a relative import")
	}

	// A base-name glob resolves to the same file.
	byGlob, err := e.Imports("utils.py")
	if err != nil {
		t.Fatalf("Imports by glob failed: %v", err)
	}
	if byGlob.Count != 1 || byGlob.Imports[0].Module != "app.models" {
		t.Errorf("glob resolution gave %+v", byGlob)
	}
}

func TestImportsHistogram(t *testing.T) {
	e := fixtureEngine(t)

	rep, err := e.Imports("")
	if err != nil {
		t.Fatalf("Imports failed: %v", err)
	}
	if rep.Count != 3 {
		t.Errorf("expected 3 import statements, got %d", rep.Count)
	}
	if len(rep.Imports) != 0 {
		t.Errorf("histogram mode should not list statements, got %d", len(rep.Imports))
	}
	want := map[string]int{"os": 1, "typing": 1, "app.models": 1}
	if !reflect.DeepEqual(rep.Histogram, want) {
		t.Errorf("Histogram = %v, want %v", rep.Histogram, want)
	}
}

func TestImportsFileErrors(t *testing.T) {
	e := fixtureEngine(t)

	if _, err := e.Imports("missing.py"); !errors.HasCode(err, errors.FileNotFound) {
		t.Errorf("expected FileNotFound, got %v", err)
	}
	if _, err := e.Imports("*.py"); !errors.HasCode(err, errors.AmbiguousNode) {
		t.Errorf("expected AmbiguousNode for multi-match glob, got %v", err)
	}
}

func TestFileSummary(t *testing.T) {
	e := fixtureEngine(t)

	d, err := e.FileSummary("app/models.py")
	if err != nil {
		t.Fatalf("FileSummary failed: %v", err)
	}
	if d.Path != "app/models.py" || d.Language != "python" || d.LineCount != 18 {
		t.Errorf("unexpected file detail: %+v", d)
	}
	if len(d.Imports) != 2 || len(d.Classes) != 2 || len(d.Functions) != 1 {
		t.Errorf("expected 2 imports, 2 classes, 1 function; got %d, %d, %d",
			len(d.Imports), len(d.Classes), len(d.Functions))
	}

	// The file node touches three contains edges and the incoming import
	// from app/utils.py.
	if len(d.Edges) != 4 {
		t.Fatalf("expected 4 edges, got %d", len(d.Edges))
	}
	last := d.Edges[3]
	if last.Relation != graph.RelImports || last.Source != "file:app/utils.py" {
		t.Errorf("unexpected final edge: %+v", last)
	}
}

func TestFileSummaryByGlob(t *testing.T) {
	e := fixtureEngine(t)

	d, err := e.FileSummary("models*")
	if err != nil {
		t.Fatalf("FileSummary failed: %v", err)
	}
	if d.Path != "app/models.py" {
		t.Errorf("expected app/models.py, got %s", d.Path)
	}
}

func TestFileSummaryAmbiguous(t *testing.T) {
	e := fixtureEngine(t)

	_, err := e.FileSummary("*.py")
	if !errors.HasCode(err, errors.AmbiguousNode) {
		t.Fatalf("expected AmbiguousNode, got %v", err)
	}
	var qerr *errors.Error
	if !stderrors.As(err, &qerr) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	details, ok := qerr.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("expected structured details, got %T", qerr.Details)
	}
	candidates, ok := details["candidates"].([]string)
	if !ok || len(candidates) != 2 {
		t.Errorf("expected 2 candidates, got %v", details["candidates"])
	}
}

func TestFileSummaryNotFound(t *testing.T) {
	e := fixtureEngine(t)

	_, err := e.FileSummary("phantom.py")
	if !errors.HasCode(err, errors.FileNotFound) {
		t.Fatalf("expected FileNotFound, got %v", err)
	}
}
