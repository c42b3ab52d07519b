package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestDiffReportsChangesInPathOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	old := map[string]fileStamp{
		"a.py": {size: 10, modTime: base},
		"b.py": {size: 20, modTime: base},
		"c.py": {size: 30, modTime: base},
	}
	// a unchanged, b resized, c deleted, d created.
	current := map[string]fileStamp{
		"a.py": {size: 10, modTime: base},
		"b.py": {size: 25, modTime: base},
		"d.py": {size: 5, modTime: base.Add(time.Minute)},
	}

	events := diff(old, current)
	want := []Event{
		{Type: EventModify, Path: "b.py"},
		{Type: EventDelete, Path: "c.py"},
		{Type: EventCreate, Path: "d.py"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(events), len(want), events)
	}
	for i, e := range events {
		if e != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestDiffMtimeOnlyChange(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	old := map[string]fileStamp{"a.py": {size: 10, modTime: base}}
	current := map[string]fileStamp{"a.py": {size: 10, modTime: base.Add(time.Second)}}

	events := diff(old, current)
	if len(events) != 1 || events[0].Type != EventModify {
		t.Fatalf("got %v, want single modify", events)
	}
}

func TestScanSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "print('hi')\n")
	writeFile(t, root, ".git/config", "[core]\n")
	writeFile(t, root, ".codeatlas/index.json", "{}\n")

	w := New(root, Options{}, nil, nil)
	snap, err := w.scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("got %d files, want 1: %v", len(snap), snap)
	}
	if _, ok := snap["main.py"]; !ok {
		t.Errorf("main.py missing from snapshot")
	}
}

func TestRunFiresHandlerOnChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "a = 1\n")

	got := make(chan []Event, 1)
	w := New(root, Options{Interval: 10 * time.Millisecond}, nil, func(events []Event) {
		select {
		case got <- events:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the initial scan a moment, then add a file.
	time.Sleep(30 * time.Millisecond)
	writeFile(t, root, "util.py", "b = 2\n")

	select {
	case events := <-got:
		found := false
		for _, e := range events {
			if e.Path == "util.py" && e.Type == EventCreate {
				found = true
			}
		}
		if !found {
			t.Errorf("create event for util.py not reported: %v", events)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler never fired")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
