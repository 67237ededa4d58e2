package repository

import (
	"context"
	"errors"
	"time"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
)

// ErrNotFound is returned when a persisted document does not exist
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned when a persisted document cannot be decoded
var ErrCorrupt = errors.New("corrupt document")

// AgentContextRepository persists the single canonical context document
type AgentContextRepository interface {
	// EnsureStorage creates the storage locations if they do not exist
	EnsureStorage(ctx context.Context) error

	// Load reads the persisted context.
	// Returns ErrNotFound when nothing was saved and ErrCorrupt when the
	// document cannot be decoded.
	Load(ctx context.Context) (*agentctx.AgentContext, error)

	// Save overwrites the persisted context with c
	Save(ctx context.Context, c *agentctx.AgentContext) error
}

// CheckpointRepository stores checkpoints as individually addressable records
type CheckpointRepository interface {
	// Save writes the checkpoint keyed by its ID
	Save(ctx context.Context, cp *agentctx.Checkpoint) error

	// Find reads one checkpoint. Returns ErrNotFound or ErrCorrupt on failure.
	Find(ctx context.Context, id string) (*agentctx.Checkpoint, error)

	// ListIDs returns the ids of all stored checkpoints in ascending order
	ListIDs(ctx context.Context) ([]string, error)

	// Delete removes a checkpoint. Deleting a missing checkpoint is not an error.
	Delete(ctx context.Context, id string) error
}

// SessionMarker records a running session so that an unclean shutdown can
// be recognised at the next start.
type SessionMarker struct {
	SessionID string    `json:"session_id"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// SessionMarkerRepository manages the session marker document
type SessionMarkerRepository interface {
	// Load returns the marker left by a previous session, or ErrNotFound
	Load(ctx context.Context) (*SessionMarker, error)

	// Save writes the marker for the current session
	Save(ctx context.Context, m *SessionMarker) error

	// Clear removes the marker. Clearing a missing marker is not an error.
	Clear(ctx context.Context) error
}
