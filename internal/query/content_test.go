package query

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeatlas/internal/errors"
)

func TestReadFileWholeFile(t *testing.T) {
	e := fixtureEngine(t)

	fc, err := e.ReadFile("app/utils.py", 0, 0)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if fc.StartLine != 1 || fc.EndLine != 4 {
		t.Errorf("expected lines 1-4, got %d-%d", fc.StartLine, fc.EndLine)
	}
	want := "   1 | from app.models import Config\n" +
		"   2 | \n" +
		"   3 | def format_name(config):\n" +
		"   4 |     return str(config)"
	if fc.Content != want {
		t.Errorf("Content = %q, want %q", fc.Content, want)
	}
	if fc.Truncated {
		t.Error("small file should not be truncated")
	}
}

func TestReadFileRange(t *testing.T) {
	e := fixtureEngine(t)

	fc, err := e.ReadFile("app/models.py", 5, 6)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := "   5 | class Config:\n" +
		"   6 |     \"\"\"Runtime configuration.\"\"\""
	if fc.Content != want {
		t.Errorf("Content = %q, want %q", fc.Content, want)
	}
}

func TestReadFileOpenEndedRange(t *testing.T) {
	e := fixtureEngine(t)

	fc, err := e.ReadFile("app/models.py", 17, 0)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if fc.StartLine != 17 || fc.EndLine != 18 {
		t.Errorf("expected lines 17-18, got %d-%d", fc.StartLine, fc.EndLine)
	}
	if !strings.HasPrefix(fc.Content, "  17 | def helper") {
		t.Errorf("unexpected content start: %q", fc.Content)
	}

	// An end past the last line clamps instead of failing.
	clamped, err := e.ReadFile("app/models.py", 17, 99)
	if err != nil {
		t.Fatalf("ReadFile with large end failed: %v", err)
	}
	if clamped.EndLine != 18 {
		t.Errorf("expected end clamped to 18, got %d", clamped.EndLine)
	}
}

func TestReadFileErrors(t *testing.T) {
	e := fixtureEngine(t)

	cases := []struct {
		name       string
		path       string
		start, end int
		code       errors.ErrorCode
	}{
		{"negative start", "app/utils.py", -1, 0, errors.InvalidRange},
		{"end before start", "app/models.py", 5, 3, errors.InvalidRange},
		{"start beyond eof", "app/utils.py", 100, 0, errors.InvalidRange},
		{"missing file", "absent.py", 0, 0, errors.FileNotFound},
		{"escape attempt", "../secret.txt", 0, 0, errors.FileNotFound},
		{"absolute path", "/etc/hostname", 0, 0, errors.FileNotFound},
	}
	for _, tc := range cases {
		_, err := e.ReadFile(tc.path, tc.start, tc.end)
		if !errors.HasCode(err, tc.code) {
			t.Errorf("%s: expected %s, got %v", tc.name, tc.code, err)
		}
	}
}

func TestReadFileTruncation(t *testing.T) {
	e := fixtureEngine(t)

	line := strings.Repeat("x", 99) + "\n"
	if err := os.WriteFile(filepath.Join(e.root, "big.txt"), []byte(strings.Repeat(line, 400)), 0o644); err != nil {
		t.Fatalf("failed to write big file: %v", err)
	}

	fc, err := e.ReadFile("big.txt", 0, 0)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !fc.Truncated {
		t.Fatal("expected truncated content")
	}
	if !strings.HasSuffix(fc.Content, "... [truncated]") {
		t.Errorf("expected truncation marker, content ends %q", fc.Content[len(fc.Content)-30:])
	}
	if len(fc.Content) > MaxReadChars+len("\n... [truncated]") {
		t.Errorf("content exceeds cap: %d chars", len(fc.Content))
	}
}

func TestSearchCode(t *testing.T) {
	e := fixtureEngine(t)

	rep, err := e.SearchCode("def ", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchCode failed: %v", err)
	}
	if len(rep.Matches) != 5 {
		t.Fatalf("expected 5 matches, got %d (%s)", len(rep.Matches), rep.Summary)
	}
	if rep.Summary != "Found 5 match(es) for pattern 'def '" {
		t.Errorf("unexpected summary: %q", rep.Summary)
	}

	first := rep.Matches[0]
	if first.File != "app/models.py" || first.Line != 7 {
		t.Errorf("unexpected first match: %s:%d", first.File, first.Line)
	}
	if first.Match != "def load(self):" {
		t.Errorf("Match = %q, want trimmed line", first.Match)
	}
	wantCtx := "       5 | class Config:\n" +
		"       6 |     \"\"\"Runtime configuration.\"\"\"\n" +
		">>>    7 |     def load(self):\n" +
		"       8 |         return os.environ\n" +
		"       9 | "
	if first.Context != wantCtx {
		t.Errorf("Context = %q, want %q", first.Context, wantCtx)
	}

	last := rep.Matches[4]
	if last.File != "app/utils.py" || last.Line != 3 {
		t.Errorf("unexpected last match: %s:%d", last.File, last.Line)
	}
	// Context near the top of a file starts at line 1.
	if !strings.HasPrefix(last.Context, "       1 | from app.models import Config") {
		t.Errorf("unexpected context start: %q", last.Context)
	}
}

func TestSearchCodeCaseInsensitive(t *testing.T) {
	e := fixtureEngine(t)

	rep, err := e.SearchCode("CONFIG", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchCode failed: %v", err)
	}
	if len(rep.Matches) != 6 {
		t.Errorf("expected 6 matches, got %d", len(rep.Matches))
	}
}

func TestSearchCodeGlob(t *testing.T) {
	e := fixtureEngine(t)

	rep, err := e.SearchCode("demo", SearchOptions{Glob: "*.md"})
	if err != nil {
		t.Fatalf("SearchCode failed: %v", err)
	}
	if len(rep.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(rep.Matches))
	}
	m := rep.Matches[0]
	if m.File != "README.md" || m.Line != 1 || m.Match != "# Demo" {
		t.Errorf("unexpected match: %+v", m)
	}
}

func TestSearchCodeLimit(t *testing.T) {
	e := fixtureEngine(t)

	rep, err := e.SearchCode("e", SearchOptions{MaxResults: 2})
	if err != nil {
		t.Fatalf("SearchCode failed: %v", err)
	}
	if len(rep.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(rep.Matches))
	}
	if !strings.Contains(rep.Summary, "(limited to 2)") {
		t.Errorf("summary should note the limit: %q", rep.Summary)
	}
}

func TestSearchCodeNoMatches(t *testing.T) {
	e := fixtureEngine(t)

	rep, err := e.SearchCode("zebra", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchCode failed: %v", err)
	}
	if len(rep.Matches) != 0 {
		t.Errorf("expected no matches, got %d", len(rep.Matches))
	}
	if rep.Summary != "Found 0 match(es) for pattern 'zebra'" {
		t.Errorf("unexpected summary: %q", rep.Summary)
	}
}

func TestSearchCodeBadInput(t *testing.T) {
	e := fixtureEngine(t)

	if _, err := e.SearchCode("[", SearchOptions{}); !errors.HasCode(err, errors.InvalidPattern) {
		t.Errorf("expected InvalidPattern for bad regex, got %v", err)
	}
	if _, err := e.SearchCode("x", SearchOptions{Glob: "["}); !errors.HasCode(err, errors.InvalidPattern) {
		t.Errorf("expected InvalidPattern for bad glob, got %v", err)
	}
}
