//go:build !windows

package cache

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeatlas/internal/errors"
)

func TestLockAndUnlock(t *testing.T) {
	store := NewStore(t.TempDir())

	lock, err := store.Lock()
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if lock == nil {
		t.Fatal("Expected non-nil lock")
	}

	lockPath := filepath.Join(store.Dir(), lockFile)
	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("Reading lock file failed: %v", err)
	}
	pid, err := strconv.Atoi(string(content))
	if err != nil {
		t.Fatalf("Lock file should contain a PID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}

	lock.Unlock()
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("Expected lock file removed after Unlock")
	}
}

func TestLockAlreadyHeld(t *testing.T) {
	store := NewStore(t.TempDir())

	first, err := store.Lock()
	if err != nil {
		t.Fatalf("First Lock failed: %v", err)
	}
	defer first.Unlock()

	second, err := store.Lock()
	if err == nil {
		second.Unlock()
		t.Fatal("Expected second Lock to fail while held")
	}
	if !errors.HasCode(err, errors.Locked) {
		t.Errorf("Expected LOCKED, got %v", err)
	}
}

func TestLockCreatesCacheDir(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	lock, err := store.Lock()
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer lock.Unlock()

	if _, err := os.Stat(store.Dir()); err != nil {
		t.Errorf("Expected cache directory created by Lock: %v", err)
	}
}

func TestUnlockNilSafe(t *testing.T) {
	var lock *Lock
	lock.Unlock()
}
