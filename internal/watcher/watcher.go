// Package watcher detects source changes in an analyzed repository by
// polling file metadata. Polling keeps the watcher dependency-free and
// behaves identically across platforms.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"codeatlas/internal/ingest"
	"codeatlas/internal/logging"
)

// EventType classifies a detected change.
type EventType string

const (
	EventCreate EventType = "create"
	EventModify EventType = "modify"
	EventDelete EventType = "delete"
)

// Event is one detected file change. Path is repo-relative.
type Event struct {
	Type EventType `json:"type"`
	Path string    `json:"path"`
}

// Handler receives one debounced batch of changes.
type Handler func(events []Event)

// Options tune the polling loop.
type Options struct {
	// Interval between directory scans.
	Interval time.Duration
	// Debounce is the quiet period after the last detected change before
	// the handler fires. Changes arriving inside the window extend it.
	Debounce time.Duration
	// Ingest mirrors the analysis discovery rules so the watcher sees
	// exactly the files an analysis would.
	Ingest ingest.Options
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// Watcher compares mtime+size snapshots of the repository's eligible
// files between polls.
type Watcher struct {
	root    string
	opts    Options
	logger  *logging.Logger
	handler Handler

	snapshot map[string]fileStamp
}

// New creates a watcher over root. The handler runs on the polling
// goroutine, so a slow handler delays the next scan instead of
// overlapping with it.
func New(root string, opts Options, logger *logging.Logger, handler Handler) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Watcher{root: root, opts: opts, logger: logger, handler: handler}
}

// Run polls until ctx is cancelled. The returned error is the context's
// error on cancellation, or the failure of the initial scan.
func (w *Watcher) Run(ctx context.Context) error {
	if w.snapshot == nil {
		snap, err := w.scan()
		if err != nil {
			return err
		}
		w.snapshot = snap
	}

	w.logger.Info("Watching for changes", map[string]interface{}{
		"root":       w.root,
		"files":      len(w.snapshot),
		"intervalMs": w.opts.Interval.Milliseconds(),
		"debounceMs": w.opts.Debounce.Milliseconds(),
	})

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var pending []Event
	var lastChange time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current, err := w.scan()
		if err != nil {
			w.logger.Warn("Scan failed, keeping previous snapshot", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		if events := diff(w.snapshot, current); len(events) > 0 {
			pending = append(pending, events...)
			lastChange = time.Now()
		}
		w.snapshot = current

		if len(pending) > 0 && time.Since(lastChange) >= w.opts.Debounce {
			w.logger.Info("Changes detected", map[string]interface{}{
				"events": len(pending),
			})
			if w.handler != nil {
				w.handler(pending)
			}
			pending = nil
		}
	}
}

// scan stats every eligible file under the root.
func (w *Watcher) scan() (map[string]fileStamp, error) {
	paths, err := ingest.CollectFilesWith(w.root, w.opts.Ingest)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]fileStamp, len(paths))
	for _, p := range paths {
		info, err := os.Stat(filepath.Join(w.root, filepath.FromSlash(p)))
		if err != nil {
			// Deleted between listing and stat; the next diff reports it.
			continue
		}
		snap[p] = fileStamp{size: info.Size(), modTime: info.ModTime()}
	}
	return snap, nil
}

// diff reports the changes between two snapshots in path order.
func diff(old, current map[string]fileStamp) []Event {
	var events []Event
	for p, stamp := range current {
		prev, ok := old[p]
		if !ok {
			events = append(events, Event{Type: EventCreate, Path: p})
			continue
		}
		if prev.size != stamp.size || !prev.modTime.Equal(stamp.modTime) {
			events = append(events, Event{Type: EventModify, Path: p})
		}
	}
	for p := range old {
		if _, ok := current[p]; !ok {
			events = append(events, Event{Type: EventDelete, Path: p})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
