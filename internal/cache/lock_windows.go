//go:build windows

package cache

import (
	"os"
	"path/filepath"
	"strconv"

	"codeatlas/internal/errors"
)

const lockFile = "analysis.lock"

// Lock is an exclusive lock on a repo's cache directory. Windows has no
// flock; this variant records the holder's PID best-effort and does not
// block a second writer.
type Lock struct {
	path string
	file *os.File
}

// Lock acquires the single-writer lock.
func (s *Store) Lock() (*Lock, error) {
	if err := s.ensureDir(); err != nil {
		return nil, errors.Wrap(errors.Internal, "creating cache directory", err)
	}

	path := filepath.Join(s.dir, lockFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "opening lock file", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
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
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
