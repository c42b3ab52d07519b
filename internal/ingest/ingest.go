// Package ingest resolves an analysis source (local directory or remote
// git URL) and collects the eligible files under it.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"codeatlas/internal/errors"
)

// MaxFileSize is the default per-file size cap. Anything larger is
// treated as generated or vendored and skipped.
const MaxFileSize = 500 * 1024

// Options tunes file collection. The zero value keeps the built-in
// defaults.
type Options struct {
	// MaxFileSize overrides the per-file size cap when positive.
	MaxFileSize int64

	// ExtraIgnoreDirs names directory basenames to prune in addition
	// to the built-in set.
	ExtraIgnoreDirs []string
}

var ignoreDirs = map[string]bool{
	".git":          true,
	"node_modules":  true,
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	".env":          true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".ruff_cache":   true,
	".idea":         true,
	".vscode":       true,
	"dist":          true,
	"build":         true,
	".eggs":         true,
	".codeatlas":    true,
}

var ignoreExts = map[string]bool{
	".pyc": true, ".pyo": true, ".so": true, ".o": true, ".a": true,
	".dylib": true, ".dll": true, ".exe": true, ".bin": true,
	".class": true, ".jar": true, ".war": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".svg": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".7z": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
	".lock": true,
}

func shouldIgnoreDir(name string) bool {
	return ignoreDirs[name] || strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, ".egg-info")
}

func shouldIgnoreFile(path, name string, maxSize int64) bool {
	if strings.HasSuffix(name, ".min.js") || strings.HasSuffix(name, ".min.css") {
		return true
	}
	if ignoreExts[strings.ToLower(filepath.Ext(name))] {
		return true
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return true
	}
	return info.Size() > maxSize
}

// CollectFiles walks the repo and returns eligible paths relative to root,
// slash-separated and sorted. Ignored directories are pruned whole;
// oversized, binary and unreadable files are dropped.
func CollectFiles(root string) ([]string, error) {
	return CollectFilesWith(root, Options{})
}

// CollectFilesWith is CollectFiles with config-supplied overrides.
func CollectFilesWith(root string, opts Options) ([]string, error) {
	maxSize := int64(MaxFileSize)
	if opts.MaxFileSize > 0 {
		maxSize = opts.MaxFileSize
	}
	extra := make(map[string]bool, len(opts.ExtraIgnoreDirs))
	for _, d := range opts.ExtraIgnoreDirs {
		extra[d] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && (shouldIgnoreDir(d.Name()) || extra[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldIgnoreFile(path, d.Name(), maxSize) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.SourceUnavailable, "walking source tree", err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadFiles loads the contents of the given repo-relative paths. Unreadable
// files land in skipped instead of failing the batch; invalid UTF-8 bytes
// are replaced so every returned string is valid.
func ReadFiles(root string, paths []string) (contents map[string]string, skipped []string) {
	contents = make(map[string]string, len(paths))
	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			skipped = append(skipped, rel)
			continue
		}
		text := string(data)
		if !utf8.ValidString(text) {
			text = strings.ToValidUTF8(text, string(utf8.RuneError))
		}
		contents[rel] = text
	}
	return contents, skipped
}

// IsRemote reports whether source names a git remote rather than a local
// path.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "git@")
}

// Resolve turns a source argument into a readable directory. Remote URLs
// are shallow-cloned into a temp dir which the returned cleanup removes;
// local paths resolve to their absolute form with a no-op cleanup.
func Resolve(ctx context.Context, source string) (string, func(), error) {
	if IsRemote(source) {
		return cloneRepo(ctx, source)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", nil, errors.Wrap(errors.SourceUnavailable, "resolving source path", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", nil, errors.Newf(errors.SourceUnavailable, "source is not a directory: %s", source)
	}
	return abs, func() {}, nil
}

func cloneRepo(ctx context.Context, url string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "codeatlas-")
	if err != nil {
		return "", nil, errors.Wrap(errors.SourceUnavailable, "creating clone directory", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", url, dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		cleanup()
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", nil, errors.Wrap(errors.SourceUnavailable,
			fmt.Sprintf("git clone failed: %s", msg), err)
	}
	return dir, cleanup, nil
}

// RepoName derives a display name for the catalog from a source path or
// URL.
func RepoName(source string) string {
	if IsRemote(source) {
		s := strings.TrimRight(source, "/")
		s = strings.TrimSuffix(s, ".git")
		if i := strings.LastIndexAny(s, "/:"); i >= 0 {
			s = s[i+1:]
		}
		if s != "" {
			return s
		}
		return "repo"
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return filepath.Base(source)
	}
	return filepath.Base(abs)
}
