package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/repository"
	"github.com/spf13/afero"
)

// AgentContextRepositoryImpl stores the context as one JSON document
type AgentContextRepositoryImpl struct {
	fs   afero.Fs
	path string
}

// NewAgentContextRepository creates a repository for the document at path
func NewAgentContextRepository(fs afero.Fs, path string) *AgentContextRepositoryImpl {
	return &AgentContextRepositoryImpl{fs: fs, path: path}
}

// Path returns the location of the context document
func (r *AgentContextRepositoryImpl) Path() string {
	return r.path
}

// EnsureStorage creates the directory that holds the context document
func (r *AgentContextRepositoryImpl) EnsureStorage(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return nil
}

// Load reads and decodes the context document
func (r *AgentContextRepositoryImpl) Load(ctx context.Context) (*agentctx.AgentContext, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	var c agentctx.AgentContext
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, r.path, err)
	}
	return &c, nil
}

// Save replaces the context document atomically
func (r *AgentContextRepositoryImpl) Save(ctx context.Context, c *agentctx.AgentContext) error {
	if err := WriteJSONAtomic(r.fs, r.path, c); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	return nil
}
