package storage

import (
	"database/sql"
	"fmt"
	"os"
	"time"
)

// Repository is one analyzed repo known to the catalog.
type Repository struct {
	ID        int64     `json:"id"`
	Root      string    `json:"root"`
	Name      string    `json:"name"`
	RemoteURL string    `json:"remoteUrl,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	LastRunID string    `json:"lastRunId,omitempty"`
	LastRunAt time.Time `json:"lastRunAt,omitempty"`
}

// Run is one recorded analysis run.
type Run struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMS int64     `json:"durationMs"`
	Files      int       `json:"files"`
	Classes    int       `json:"classes"`
	Functions  int       `json:"functions"`
	Chunks     int       `json:"chunks"`
	Nodes      int       `json:"nodes"`
	Edges      int       `json:"edges"`
}

// RecordRun upserts the repository row and appends the run in one
// transaction.
func (c *Catalog) RecordRun(repo Repository, run Run) error {
	return c.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO repositories (root, name, remote_url, branch, last_run_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(root) DO UPDATE SET
				name = excluded.name,
				remote_url = excluded.remote_url,
				branch = excluded.branch,
				last_run_id = excluded.last_run_id
		`, repo.Root, repo.Name, repo.RemoteURL, repo.Branch, run.ID); err != nil {
			return fmt.Errorf("upserting repository: %w", err)
		}

		var repoID int64
		if err := tx.QueryRow(
			"SELECT id FROM repositories WHERE root = ?", repo.Root,
		).Scan(&repoID); err != nil {
			return fmt.Errorf("resolving repository id: %w", err)
		}

		if _, err := tx.Exec(`
			INSERT INTO runs (
				id, repository_id, started_at, finished_at, duration_ms,
				files, classes, functions, chunks, nodes, edges
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			repoID,
			run.StartedAt.Format(time.RFC3339),
			run.FinishedAt.Format(time.RFC3339),
			run.DurationMS,
			run.Files,
			run.Classes,
			run.Functions,
			run.Chunks,
			run.Nodes,
			run.Edges,
		); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		return nil
	})
}

// ListRepositories returns every known repository, most recently analyzed
// first.
func (c *Catalog) ListRepositories() ([]Repository, error) {
	rows, err := c.conn.Query(`
		SELECT r.id, r.root, r.name, r.remote_url, r.branch, r.last_run_id,
		       COALESCE((SELECT finished_at FROM runs WHERE runs.id = r.last_run_id), '')
		FROM repositories r
		ORDER BY 7 DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	defer rows.Close()

	var repos []Repository
	for rows.Next() {
		var repo Repository
		var lastRunAt string
		if err := rows.Scan(
			&repo.ID, &repo.Root, &repo.Name, &repo.RemoteURL,
			&repo.Branch, &repo.LastRunID, &lastRunAt,
		); err != nil {
			return nil, fmt.Errorf("scanning repository: %w", err)
		}
		if lastRunAt != "" {
			t, err := time.Parse(time.RFC3339, lastRunAt)
			if err != nil {
				return nil, fmt.Errorf("invalid finished_at: %w", err)
			}
			repo.LastRunAt = t
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

// History returns the most recent runs for one repository root, newest
// first. limit <= 0 means the default of 20.
func (c *Catalog) History(root string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.conn.Query(`
		SELECT runs.id, r.root, runs.started_at, runs.finished_at, runs.duration_ms,
		       runs.files, runs.classes, runs.functions, runs.chunks, runs.nodes, runs.edges
		FROM runs
		JOIN repositories r ON r.id = runs.repository_id
		WHERE r.root = ?
		ORDER BY runs.started_at DESC
		LIMIT ?
	`, root, limit)
	if err != nil {
		return nil, fmt.Errorf("listing run history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt string
		if err := rows.Scan(
			&run.ID, &run.Root, &startedAt, &finishedAt, &run.DurationMS,
			&run.Files, &run.Classes, &run.Functions, &run.Chunks,
			&run.Nodes, &run.Edges,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("invalid started_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
			return nil, fmt.Errorf("invalid finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune removes catalog entries whose repository root no longer exists on
// disk, returning how many were removed. Runs cascade with their
// repository.
func (c *Catalog) Prune() (int, error) {
	repos, err := c.ListRepositories()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, repo := range repos {
		if _, err := os.Stat(repo.Root); err == nil {
			continue
		}
		if _, err := c.conn.Exec(
			"DELETE FROM repositories WHERE id = ?", repo.ID,
		); err != nil {
			return pruned, fmt.Errorf("pruning repository %s: %w", repo.Root, err)
		}
		pruned++
	}
	return pruned, nil
}
