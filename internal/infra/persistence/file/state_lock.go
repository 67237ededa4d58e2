package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StateLock serialises read-modify-write cycles on the state directory
// between processes. It locks a real file, so it only applies to the OS
// filesystem.
type StateLock struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

// NewStateLock creates a lock backed by the file at path
func NewStateLock(path string) *StateLock {
	return &StateLock{path: path}
}

// Lock blocks until the lock is held. The returned function releases it.
func (l *StateLock) Lock() (func(), error) {
	l.mu.Lock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := flockExclusive(f); err != nil {
		f.Close()
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to lock %s: %w", l.path, err)
	}
	l.f = f

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = flockUnlock(l.f)
			_ = l.f.Close()
			l.f = nil
			l.mu.Unlock()
		})
	}, nil
}
