package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/repository"
	"github.com/spf13/afero"
)

// SessionMarkerRepositoryImpl keeps the session marker in a JSON file
type SessionMarkerRepositoryImpl struct {
	fs   afero.Fs
	path string
}

// NewSessionMarkerRepository creates a marker repository at path
func NewSessionMarkerRepository(fs afero.Fs, path string) *SessionMarkerRepositoryImpl {
	return &SessionMarkerRepositoryImpl{fs: fs, path: path}
}

// Load returns the marker left on disk. An unreadable marker still proves
// that a previous session did not shut down cleanly, so it is returned
// empty instead of failing.
func (r *SessionMarkerRepositoryImpl) Load(ctx context.Context) (*repository.SessionMarker, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session marker: %w", err)
	}

	var m repository.SessionMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return &repository.SessionMarker{}, nil
	}
	return &m, nil
}

// Save writes the marker atomically
func (r *SessionMarkerRepositoryImpl) Save(ctx context.Context, m *repository.SessionMarker) error {
	if err := WriteJSONAtomic(r.fs, r.path, m); err != nil {
		return fmt.Errorf("failed to save session marker: %w", err)
	}
	return nil
}

// Clear removes the marker
func (r *SessionMarkerRepositoryImpl) Clear(ctx context.Context) error {
	if err := r.fs.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session marker: %w", err)
	}
	return nil
}
