package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked reports concurrent-write contention: another sync holds the
// manifest lock.
var ErrLocked = errors.New("manifest lock held by another process")

// Lock is an advisory file lock guarding the single-writer contract on the
// manifest. Readers never take it; only sync runs do.
type Lock struct {
	path string
	file *os.File
}

func NewLock(manifestPath string) *Lock {
	return &Lock{path: manifestPath + ".lock"}
}

// Acquire takes the exclusive lock without blocking. Contention returns
// ErrLocked.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := platformLock(f); err != nil {
		f.Close()
		return err
	}

	l.file = f
	return nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	platformUnlock(l.file)
	err := l.file.Close()
	l.file = nil
	os.Remove(l.path)
	return err
}

func (l *Lock) Held() bool { return l.file != nil }
