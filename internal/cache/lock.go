//go:build !windows

package cache

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeatlas/internal/errors"
)

const lockFile = "analysis.lock"

// Lock is an exclusive advisory lock on a repo's cache directory. It keeps
// two analysis runs from interleaving writes to the same artifacts.
type Lock struct {
	path string
	file *os.File
}

// Lock acquires the single-writer lock, failing immediately when another
// process holds it.
func (s *Store) Lock() (*Lock, error) {
	if err := s.ensureDir(); err != nil {
		return nil, errors.Wrap(errors.Internal, "creating cache directory", err)
	}

	path := filepath.Join(s.dir, lockFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "opening lock file", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()

		holder := "another process"
		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			holder = "PID " + strings.TrimSpace(string(content))
		}
		return nil, errors.Newf(errors.Locked, "analysis already in progress (%s)", holder).
			WithHint("wait for the other run to finish, or remove " + path + " if it crashed")
	}

	if err := file.Truncate(0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.Wrap(errors.Internal, "truncating lock file", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.Wrap(errors.Internal, "seeking lock file", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.Wrap(errors.Internal, "writing PID to lock file", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Unlock releases the lock and removes the lock file. Safe on nil.
func (l *Lock) Unlock() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
