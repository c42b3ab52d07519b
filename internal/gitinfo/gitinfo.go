// Package gitinfo reads commit, contributor and branch metadata from a
// repository's git history by shelling out to git.
package gitinfo

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"codeatlas/internal/errors"
)

// DefaultLimit bounds history listings when the caller passes a
// non-positive limit.
const DefaultLimit = 20

// Commit is one history entry. Date carries git's strict ISO 8601
// author date, which parses as RFC 3339.
type Commit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// Contributor aggregates commit counts per author.
type Contributor struct {
	Commits int    `json:"commits"`
	Author  string `json:"author"`
}

// Branch is one local or remote-tracking branch head.
type Branch struct {
	Name     string `json:"name"`
	Commit   string `json:"commit"`
	Upstream string `json:"upstream,omitempty"`
}

// Client runs git against one repository root.
type Client struct {
	root string
}

// NewClient returns a client for the repository at root. No git process
// runs until a query method is called.
func NewClient(root string) *Client {
	return &Client{root: root}
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	return cmd.Run() == nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.root

	output, err := cmd.Output()
	if err != nil {
		if stderrors.Is(err, exec.ErrNotFound) {
			return "", errors.Wrap(errors.GitUnavailable, "git not found", err).
				WithHint("install git and make sure it is on PATH")
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			if msg := strings.TrimSpace(string(exitErr.Stderr)); msg != "" {
				return "", errors.Wrap(errors.GitUnavailable, msg, err)
			}
		}
		return "", errors.Wrap(errors.GitUnavailable, "running git "+args[0], err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Commits returns the most recent commits, newest first.
func (c *Client) Commits(ctx context.Context, limit int) ([]Commit, error) {
	return c.log(ctx, limit, "")
}

// FileHistory returns the commits that touched one repo-relative path,
// newest first.
func (c *Client) FileHistory(ctx context.Context, path string, limit int) ([]Commit, error) {
	if path == "" {
		return nil, errors.New(errors.InvalidPattern, "file history requires a path")
	}
	return c.log(ctx, limit, path)
}

func (c *Client) log(ctx context.Context, limit int, path string) ([]Commit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	args := []string{"log", fmt.Sprintf("--max-count=%d", limit), "--format=%H|%an|%aI|%s"}
	if path != "" {
		args = append(args, "--", path)
	}

	output, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	commits := []Commit{}
	for _, line := range strings.Split(output, "\n") {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		commits = append(commits, Commit{
			Hash:    shortHash(parts[0]),
			Author:  parts[1],
			Date:    parts[2],
			Message: parts[3],
		})
	}
	return commits, nil
}

// Contributors returns authors ranked by commit count, descending, at
// most limit of them.
func (c *Client) Contributors(ctx context.Context, limit int) ([]Contributor, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	output, err := c.run(ctx, "shortlog", "-sne", "HEAD")
	if err != nil {
		return nil, err
	}

	contributors := []Contributor{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// shortlog lines look like "12\tName <email>".
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		contributors = append(contributors, Contributor{
			Commits: count,
			Author:  strings.TrimSpace(parts[1]),
		})
	}

	sort.SliceStable(contributors, func(i, j int) bool {
		return contributors[i].Commits > contributors[j].Commits
	})
	if len(contributors) > limit {
		contributors = contributors[:limit]
	}
	return contributors, nil
}

// Branches lists all local and remote-tracking branches.
func (c *Client) Branches(ctx context.Context) ([]Branch, error) {
	output, err := c.run(ctx, "branch", "-a",
		"--format=%(refname:short)|%(objectname:short)|%(upstream:short)")
	if err != nil {
		return nil, err
	}

	branches := []Branch{}
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "|")
		b := Branch{Name: parts[0]}
		if len(parts) > 1 {
			b.Commit = parts[1]
		}
		if len(parts) > 2 {
			b.Upstream = parts[2]
		}
		branches = append(branches, b)
	}
	return branches, nil
}

// RemoteURL returns the origin URL, or "" when the repo has no origin
// remote or git fails.
func (c *Client) RemoteURL(ctx context.Context) string {
	out, err := c.run(ctx, "config", "--get", "remote.origin.url")
	if err != nil {
		return ""
	}
	return out
}

// CurrentBranch returns the checked-out branch name, or "" for a
// detached HEAD or a directory that is not a repository.
func (c *Client) CurrentBranch(ctx context.Context) string {
	out, err := c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil || out == "HEAD" {
		return ""
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
