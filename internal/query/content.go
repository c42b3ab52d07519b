package query

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"codeatlas/internal/errors"
)

const (
	// MaxReadChars caps ReadFile output.
	MaxReadChars = 30000
	// MaxSearchResults caps SearchCode matches when no limit is given.
	MaxSearchResults = 50

	searchContextLines = 2
)

// FileContent is a numbered slice of one file's text.
type FileContent struct {
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

// SearchOptions narrow a SearchCode scan.
type SearchOptions struct {
	// Glob restricts the scan to matching file paths.
	Glob string
	// MaxResults caps the match count. Zero means MaxSearchResults.
	MaxResults int
}

// Match is one SearchCode hit with its surrounding context, the hit line
// marked with ">>>".
type Match struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Match   string `json:"match"`
	Context string `json:"context"`
}

// SearchReport is the outcome of one SearchCode scan.
type SearchReport struct {
	Summary string  `json:"summary"`
	Matches []Match `json:"matches"`
}

// ReadFile returns file content with line numbers, optionally sliced to a
// 1-based inclusive line range. Zero start or end means from-the-top or
// to-the-end. Output is capped at MaxReadChars.
func (e *Engine) ReadFile(filePath string, startLine, endLine int) (*FileContent, error) {
	rel := filepath.ToSlash(filepath.Clean(filePath))
	if filepath.IsAbs(filePath) || rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, errors.Newf(errors.FileNotFound, "path escapes the repo: %s", filePath)
	}
	if startLine < 0 || endLine < 0 {
		return nil, errors.New(errors.InvalidRange, "line numbers are 1-based")
	}

	data, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.FileNotFound, "file not found: %s", rel)
		}
		return nil, errors.Wrap(errors.Internal, "reading file", err)
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	lines := strings.Split(text, "\n")

	start := startLine
	if start == 0 {
		start = 1
	}
	end := endLine
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if end < start {
		return nil, errors.Newf(errors.InvalidRange, "end line %d before start line %d", endLine, startLine)
	}
	if start > len(lines) {
		return nil, errors.Newf(errors.InvalidRange, "start line %d beyond end of file (%d lines)", startLine, len(lines))
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%4d | %s", i, lines[i-1])
		if i < end {
			b.WriteByte('\n')
		}
	}

	content := b.String()
	truncated := false
	if len(content) > MaxReadChars {
		cut := MaxReadChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + "\n... [truncated]"
		truncated = true
	}

	return &FileContent{
		Path:      rel,
		StartLine: start,
		EndLine:   end,
		Content:   content,
		Truncated: truncated,
	}, nil
}

// SearchCode scans the indexed files for a case-insensitive regex,
// returning each matching line with two lines of context either side.
// Unreadable files are skipped; the scan stops at the match cap.
func (e *Engine) SearchCode(pattern string, opts SearchOptions) (*SearchReport, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidPattern, "invalid regex", err)
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = MaxSearchResults
	}

	matches := []Match{}
	for i := range e.idx.Files {
		f := &e.idx.Files[i]
		if opts.Glob != "" {
			ok, err := matchPath(opts.Glob, f.Path)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		data, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(f.Path)))
		if err != nil {
			continue
		}
		text := string(data)
		if !utf8.ValidString(text) {
			text = strings.ToValidUTF8(text, string(utf8.RuneError))
		}

		lines := strings.Split(text, "\n")
		for li, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			matches = append(matches, Match{
				File:    f.Path,
				Line:    li + 1,
				Match:   strings.TrimSpace(line),
				Context: matchContext(lines, li),
			})
			if len(matches) >= maxResults {
				break
			}
		}
		if len(matches) >= maxResults {
			break
		}
	}

	summary := fmt.Sprintf("Found %d match(es) for pattern '%s'", len(matches), pattern)
	if len(matches) >= maxResults {
		summary += fmt.Sprintf(" (limited to %d)", maxResults)
	}
	return &SearchReport{Summary: summary, Matches: matches}, nil
}

func matchContext(lines []string, hit int) string {
	start := hit - searchContextLines
	if start < 0 {
		start = 0
	}
	end := hit + searchContextLines + 1
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		prefix := "   "
		if i == hit {
			prefix = ">>>"
		}
		fmt.Fprintf(&b, "%s %4d | %s", prefix, i+1, lines[i])
		if i+1 < end {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
