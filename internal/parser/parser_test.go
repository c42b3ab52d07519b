package parser

import (
	"context"
	"errors"
	"testing"

	"codeatlas/internal/model"
)

func TestParseFileMinimalRecord(t *testing.T) {
	src := []byte("# Title\n\nSome prose.\n")
	rec, downgraded, err := ParseFile(context.Background(), "docs/README.md", src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if downgraded {
		t.Error("plain text types are not downgrades")
	}
	if rec.Language != model.LangMarkdown {
		t.Errorf("language = %v, want markdown", rec.Language)
	}
	if rec.Path != "docs/README.md" {
		t.Errorf("path = %q", rec.Path)
	}
	if rec.SizeBytes != int64(len(src)) {
		t.Errorf("size = %d, want %d", rec.SizeBytes, len(src))
	}
	if rec.LineCount != 4 {
		t.Errorf("line count = %d, want 4", rec.LineCount)
	}
	if len(rec.Imports) != 0 || len(rec.Functions) != 0 || len(rec.Classes) != 0 {
		t.Error("minimal record must carry no symbols")
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"", 1},
		{"a", 1},
		{"a\n", 2},
		{"a\nb", 2},
		{"a\nb\n", 3},
	}
	for _, tt := range tests {
		if got := countLines([]byte(tt.src)); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}

func TestParseFileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ParseFile(ctx, "a.txt", []byte("x"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(ctx context.Context, path string, source []byte) (*model.FileRecord, error) {
	return nil, errors.New("boom")
}

type echoAnalyzer struct{}

func (echoAnalyzer) Analyze(ctx context.Context, path string, source []byte) (*model.FileRecord, error) {
	return &model.FileRecord{
		Functions: []model.Function{{Name: "deep", FilePath: path, LineStart: 1, LineEnd: 1}},
	}, nil
}

func TestAnalyzerFailureDowngrades(t *testing.T) {
	Register(model.LangJava, failingAnalyzer{})

	rec, downgraded, err := ParseFile(context.Background(), "A.java", []byte("class A {}\n"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if !downgraded {
		t.Error("analyzer failure should downgrade, not error")
	}
	if rec.Language != model.LangJava || rec.LineCount != 2 {
		t.Errorf("minimal record wrong: %+v", rec)
	}
}

func TestAnalyzerResultNormalized(t *testing.T) {
	Register(model.LangRust, echoAnalyzer{})

	src := []byte("fn deep() {}\n")
	rec, downgraded, err := ParseFile(context.Background(), "lib.rs", src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if downgraded {
		t.Error("successful deep parse reported as downgrade")
	}
	if rec.Path != "lib.rs" || rec.Language != model.LangRust {
		t.Errorf("record identity not normalized: %+v", rec)
	}
	if rec.SizeBytes != int64(len(src)) || rec.LineCount != 2 {
		t.Errorf("record size/lines not filled in: %+v", rec)
	}
	if len(rec.Functions) != 1 || rec.Functions[0].Name != "deep" {
		t.Errorf("deep symbols lost: %+v", rec.Functions)
	}
}

func TestSupported(t *testing.T) {
	if Supported(model.LangMarkdown) {
		t.Error("markdown must not have a deep analyzer")
	}
}
