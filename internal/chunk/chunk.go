// Package chunk splits source files into retrieval units for embedding.
// Python files are split along their declared structure (functions, classes,
// module header); everything else falls back to a fixed sliding window over
// raw lines.
package chunk

import (
	"strconv"
	"strings"

	"codeatlas/internal/model"
)

const (
	// MaxClassLines is the largest class span embedded as a single chunk;
	// anything larger is split per method so one chunk cannot dilute the
	// embedding signal.
	MaxClassLines = 100

	WindowSize    = 60
	WindowOverlap = 10
)

// Options overrides the split thresholds. Zero fields keep the package
// defaults.
type Options struct {
	MaxClassLines int
	WindowSize    int
	WindowOverlap int
}

func (o Options) withDefaults() Options {
	if o.MaxClassLines < 1 {
		o.MaxClassLines = MaxClassLines
	}
	if o.WindowSize < 1 {
		o.WindowSize = WindowSize
	}
	if o.WindowOverlap < 0 {
		o.WindowOverlap = WindowOverlap
	}
	return o
}

// Kind classifies what a chunk covers.
type Kind string

const (
	KindFunction     Kind = "function"
	KindClass        Kind = "class"
	KindModuleHeader Kind = "module_header"
	KindWindow       Kind = "window"
)

// Chunk is one bounded fragment of a file, with 1-indexed line span.
type Chunk struct {
	Content   string `json:"content"`
	FilePath  string `json:"filepath"`
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`
	LineStart int    `json:"lineStart"`
	LineEnd   int    `json:"lineEnd"`
}

// EmbeddingText formats for the embedding step: kind and name prefix the
// body so the vector carries context, not just raw code.
func (c Chunk) EmbeddingText() string {
	return string(c.Kind) + ": " + c.Name + "\n" + c.FilePath + "\n" + c.Content
}

// Split turns one file into chunks. Python files are chunked by structure;
// all other languages use the sliding window.
func Split(f *model.FileRecord, content string) []Chunk {
	return SplitWith(f, content, Options{})
}

// SplitWith is Split with config-supplied thresholds.
func SplitWith(f *model.FileRecord, content string, opts Options) []Chunk {
	opts = opts.withDefaults()
	if f.Language == model.LangPython {
		return splitPython(f, content, opts)
	}
	return splitWindow(f, content, opts.WindowSize, opts.WindowOverlap)
}

func splitPython(f *model.FileRecord, content string, opts Options) []Chunk {
	lines := strings.Split(content, "\n")
	var chunks []Chunk

	for ci := range f.Classes {
		chunks = append(chunks, splitClass(&f.Classes[ci], f.Path, lines, opts.MaxClassLines)...)
	}

	for fi := range f.Functions {
		fn := &f.Functions[fi]
		chunks = append(chunks, Chunk{
			Content:   joinSpan(lines, fn.LineStart, fn.LineEnd),
			FilePath:  f.Path,
			Kind:      KindFunction,
			Name:      fn.Name,
			LineStart: fn.LineStart,
			LineEnd:   fn.LineEnd,
		})
	}

	if header, ok := moduleHeader(f, lines); ok {
		chunks = append(chunks, header)
	}
	return chunks
}

// splitClass emits one chunk for a small class. A class longer than the
// threshold is split instead: a header chunk down to the first method,
// then one function chunk per method. A large class without methods stays
// whole; there is nothing useful to split it by.
func splitClass(cls *model.Class, path string, lines []string, maxLines int) []Chunk {
	span := cls.LineEnd - cls.LineStart + 1
	if span <= maxLines || len(cls.Methods) == 0 {
		return []Chunk{{
			Content:   joinSpan(lines, cls.LineStart, cls.LineEnd),
			FilePath:  path,
			Kind:      KindClass,
			Name:      cls.Name,
			LineStart: cls.LineStart,
			LineEnd:   cls.LineEnd,
		}}
	}

	firstMethod := cls.Methods[0].LineStart
	for mi := range cls.Methods {
		if cls.Methods[mi].LineStart < firstMethod {
			firstMethod = cls.Methods[mi].LineStart
		}
	}

	var chunks []Chunk
	headerEnd := firstMethod - 1
	if header := joinSpan(lines, cls.LineStart, headerEnd); strings.TrimSpace(header) != "" {
		chunks = append(chunks, Chunk{
			Content:   header,
			FilePath:  path,
			Kind:      KindClass,
			Name:      cls.Name + " (header)",
			LineStart: cls.LineStart,
			LineEnd:   headerEnd,
		})
	}
	for mi := range cls.Methods {
		m := &cls.Methods[mi]
		chunks = append(chunks, Chunk{
			Content:   joinSpan(lines, m.LineStart, m.LineEnd),
			FilePath:  path,
			Kind:      KindFunction,
			Name:      cls.Name + "." + m.Name,
			LineStart: m.LineStart,
			LineEnd:   m.LineEnd,
		})
	}
	return chunks
}

// moduleHeader covers the leading block before the first declared symbol:
// module docstring, imports, and top-of-file globals. A file with no
// declared symbols is all header.
func moduleHeader(f *model.FileRecord, lines []string) (Chunk, bool) {
	end := len(lines)
	for ci := range f.Classes {
		if s := f.Classes[ci].LineStart - 1; s < end {
			end = s
		}
	}
	for fi := range f.Functions {
		if s := f.Functions[fi].LineStart - 1; s < end {
			end = s
		}
	}
	if end < 1 {
		return Chunk{}, false
	}
	content := joinSpan(lines, 1, end)
	if strings.TrimSpace(content) == "" {
		return Chunk{}, false
	}
	return Chunk{
		Content:   content,
		FilePath:  f.Path,
		Kind:      KindModuleHeader,
		Name:      f.Stem(),
		LineStart: 1,
		LineEnd:   end,
	}, true
}

func splitWindow(f *model.FileRecord, content string, size, overlap int) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	lines := strings.Split(content, "\n")

	// The walk must always advance even if overlap >= size.
	step := size - overlap
	if step < 1 {
		step = 1
	}

	var chunks []Chunk
	i := 0
	for i < len(lines) {
		end := i + size
		if end > len(lines) {
			end = len(lines)
		}
		window := strings.Join(lines[i:end], "\n")
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, Chunk{
				Content:   window,
				FilePath:  f.Path,
				Kind:      KindWindow,
				Name:      "window-" + strconv.Itoa(len(chunks)+1),
				LineStart: i + 1,
				LineEnd:   end,
			})
		}
		if end >= len(lines) {
			break
		}
		i += step
	}
	return chunks
}

// joinSpan joins the 1-indexed inclusive line range, clamped to the file.
func joinSpan(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
