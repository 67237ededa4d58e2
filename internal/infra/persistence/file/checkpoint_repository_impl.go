package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/repository"
	"github.com/spf13/afero"
)

const checkpointExt = ".json"

// CheckpointRepositoryImpl stores each checkpoint as <dir>/<id>.json
type CheckpointRepositoryImpl struct {
	fs  afero.Fs
	dir string
}

// NewCheckpointRepository creates a repository rooted at dir
func NewCheckpointRepository(fs afero.Fs, dir string) *CheckpointRepositoryImpl {
	return &CheckpointRepositoryImpl{fs: fs, dir: dir}
}

// Dir returns the checkpoint directory
func (r *CheckpointRepositoryImpl) Dir() string {
	return r.dir
}

func (r *CheckpointRepositoryImpl) pathFor(id string) (string, error) {
	if !agentctx.IsValidID(id) {
		return "", fmt.Errorf("invalid checkpoint id %q", id)
	}
	return filepath.Join(r.dir, id+checkpointExt), nil
}

// Save writes the checkpoint record atomically
func (r *CheckpointRepositoryImpl) Save(ctx context.Context, cp *agentctx.Checkpoint) error {
	path, err := r.pathFor(cp.ID)
	if err != nil {
		return err
	}
	if err := WriteJSONAtomic(r.fs, path, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

// Find reads one checkpoint by id
func (r *CheckpointRepositoryImpl) Find(ctx context.Context, id string) (*agentctx.Checkpoint, error) {
	path, err := r.pathFor(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrNotFound, err)
	}

	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checkpoint %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", id, err)
	}

	var cp agentctx.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w: %v", id, repository.ErrCorrupt, err)
	}
	if cp.ID != id {
		return nil, fmt.Errorf("checkpoint %s: %w: id mismatch %q", id, repository.ErrCorrupt, cp.ID)
	}
	// Indented storage re-indents the raw payload; hand it back compact
	if len(cp.LastOperation) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, cp.LastOperation); err == nil {
			cp.LastOperation = buf.Bytes()
		}
	}
	return &cp, nil
}

// ListIDs returns stored checkpoint ids in ascending order.
// A missing directory means no checkpoints.
func (r *CheckpointRepositoryImpl) ListIDs(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, checkpointExt) {
			continue
		}
		id := strings.TrimSuffix(name, checkpointExt)
		if !agentctx.IsValidID(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a checkpoint record
func (r *CheckpointRepositoryImpl) Delete(ctx context.Context, id string) error {
	path, err := r.pathFor(id)
	if err != nil {
		return err
	}
	if err := r.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint %s: %w", id, err)
	}
	return nil
}
