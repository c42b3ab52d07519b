// Package parser turns source files into structural FileRecords.
//
// One deeply-supported language (Python) gets a full syntax-tree pass.
// Every other file type yields a minimal record: path, language, size and
// line count with empty symbol lists. Deep analyzers register themselves
// from per-language files, so nothing here switches on language names.
//
// Parsing never fails on malformed source. A file the deep pass cannot
// handle is downgraded to its minimal record; only context cancellation
// propagates to the caller.
package parser

import (
	"bytes"
	"context"
	"path/filepath"

	"codeatlas/internal/model"
)

// Analyzer is the deep-parse capability for one language.
type Analyzer interface {
	// Analyze builds a full FileRecord. Errors are advisory: the caller
	// downgrades to a minimal record unless the context was cancelled.
	Analyze(ctx context.Context, path string, source []byte) (*model.FileRecord, error)
}

var analyzers = map[model.Language]Analyzer{}

// Register installs a deep analyzer for a language. Called from init in
// per-language files.
func Register(lang model.Language, a Analyzer) {
	analyzers[lang] = a
}

// Supported reports whether a deep analyzer is registered for lang.
func Supported(lang model.Language) bool {
	_, ok := analyzers[lang]
	return ok
}

// ParseFile builds the structural record for one file. The returned bool
// reports a downgrade: a deep parse was attempted and failed, and the
// minimal record was used instead.
func ParseFile(ctx context.Context, path string, source []byte) (model.FileRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.FileRecord{}, false, err
	}

	path = filepath.ToSlash(path)
	lang := model.DetectLanguage(path)
	rec := minimalRecord(path, lang, source)

	a, ok := analyzers[lang]
	if !ok {
		return rec, false, nil
	}

	deep, err := a.Analyze(ctx, path, source)
	if err != nil {
		if ctx.Err() != nil {
			return model.FileRecord{}, false, ctx.Err()
		}
		return rec, true, nil
	}

	deep.Path = path
	deep.Language = lang
	deep.SizeBytes = int64(len(source))
	deep.LineCount = countLines(source)
	return *deep, false, nil
}

// minimalRecord is the degraded form shared by unsupported languages and
// failed deep parses.
func minimalRecord(path string, lang model.Language, source []byte) model.FileRecord {
	return model.FileRecord{
		Path:      path,
		Language:  lang,
		SizeBytes: int64(len(source)),
		LineCount: countLines(source),
	}
}

// countLines counts newline-terminated lines plus a trailing partial one.
// An empty file counts as one line, matching the index's convention.
func countLines(source []byte) int {
	return bytes.Count(source, []byte("\n")) + 1
}
