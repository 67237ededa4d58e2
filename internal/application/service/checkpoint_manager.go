package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/agentstate/internal/app"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/repository"
	"github.com/YoshitsuguKoike/agentstate/internal/infra/metrics"
)

const defaultMaxCheckpoints = 10

// CheckpointManager snapshots the live context into checkpoint records,
// keeps a bounded number of them and restores one as the live context.
//
// Ordering ("latest", "oldest") uses the stored timestamp with the id as a
// tie-break. Ids are ULIDs, so both orders agree for records written by
// this manager.
type CheckpointManager struct {
	mu             sync.Mutex
	store          *ContextStore
	repo           repository.CheckpointRepository
	ids            *agentctx.IDGenerator
	maxCheckpoints int
	logger         app.Logger
	recorder       metrics.Recorder
	now            func() time.Time
}

// NewCheckpointManager creates a manager. maxCheckpoints <= 0 uses the default of 10.
func NewCheckpointManager(store *ContextStore, repo repository.CheckpointRepository, maxCheckpoints int, logger app.Logger, recorder metrics.Recorder) *CheckpointManager {
	if maxCheckpoints <= 0 {
		maxCheckpoints = defaultMaxCheckpoints
	}
	if logger == nil {
		logger = app.GetLogger()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &CheckpointManager{
		store:          store,
		repo:           repo,
		ids:            agentctx.NewIDGenerator(),
		maxCheckpoints: maxCheckpoints,
		logger:         logger,
		recorder:       recorder,
		now:            func() time.Time { return time.Now().UTC().Round(0) },
	}
}

// CreateCheckpoint snapshots the current context together with
// lastOperation, writes it and prunes old checkpoints
func (m *CheckpointManager) CreateCheckpoint(ctx context.Context, lastOperation any) (*agentctx.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	at := m.now()
	id, err := m.ids.NewID(at)
	if err != nil {
		return nil, err
	}

	cp, err := agentctx.NewCheckpoint(id, at, m.store.Context(), lastOperation)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Save(ctx, cp); err != nil {
		return nil, err
	}
	m.recorder.IncCheckpointCreated()
	m.logger.Info("Created checkpoint %s (phase=%s)", cp.ID, cp.Phase)

	m.pruneLocked(ctx)
	return cp, nil
}

// RestoreCheckpoint makes the checkpoint's context the live context.
// Returns false when the record cannot be read or the restored context
// cannot be persisted; it never returns an error.
func (m *CheckpointManager) RestoreCheckpoint(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp, err := m.repo.Find(ctx, id)
	if err != nil {
		m.logger.Warn("Cannot restore checkpoint %s: %v", id, err)
		m.recorder.IncCheckpointRestore(false)
		return false
	}
	if err := m.store.Replace(ctx, cp.Context); err != nil {
		m.logger.Warn("Cannot persist restored checkpoint %s: %v", id, err)
		m.recorder.IncCheckpointRestore(false)
		return false
	}

	m.logger.Info("Restored checkpoint %s (phase=%s)", cp.ID, cp.Phase)
	m.recorder.IncCheckpointRestore(true)
	return true
}

// LatestCheckpoint returns the newest readable checkpoint, or nil when
// there is none
func (m *CheckpointManager) LatestCheckpoint(ctx context.Context) (*agentctx.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cps, _, err := m.loadAllLocked(ctx)
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, nil
	}
	return cps[len(cps)-1], nil
}

// ListCheckpoints returns readable checkpoints, newest first
func (m *CheckpointManager) ListCheckpoints(ctx context.Context) ([]*agentctx.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cps, _, err := m.loadAllLocked(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*agentctx.Checkpoint, 0, len(cps))
	for i := len(cps) - 1; i >= 0; i-- {
		out = append(out, cps[i])
	}
	return out, nil
}

// loadAllLocked reads every checkpoint. Readable ones come back sorted
// oldest first; ids of unreadable ones are returned separately.
func (m *CheckpointManager) loadAllLocked(ctx context.Context) ([]*agentctx.Checkpoint, []string, error) {
	ids, err := m.repo.ListIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	cps := make([]*agentctx.Checkpoint, 0, len(ids))
	var broken []string
	for _, id := range ids {
		cp, err := m.repo.Find(ctx, id)
		if err != nil {
			m.logger.Warn("Skipping unreadable checkpoint %s: %v", id, err)
			broken = append(broken, id)
			continue
		}
		cps = append(cps, cp)
	}
	agentctx.SortCheckpoints(cps)
	return cps, broken, nil
}

// pruneLocked deletes the oldest checkpoints beyond the retention limit.
// Unreadable records count as oldest. Failures are logged, not returned:
// the new checkpoint is already safely written.
func (m *CheckpointManager) pruneLocked(ctx context.Context) {
	cps, broken, err := m.loadAllLocked(ctx)
	if err != nil {
		m.logger.Warn("Checkpoint pruning skipped: %v", err)
		return
	}

	ordered := make([]string, 0, len(broken)+len(cps))
	ordered = append(ordered, broken...)
	for _, cp := range cps {
		ordered = append(ordered, cp.ID)
	}

	excess := len(ordered) - m.maxCheckpoints
	if excess <= 0 {
		return
	}

	pruned := 0
	for _, id := range ordered[:excess] {
		if err := m.repo.Delete(ctx, id); err != nil {
			m.logger.Warn("Failed to prune checkpoint %s: %v", id, err)
			continue
		}
		pruned++
	}
	m.recorder.IncCheckpointsPruned(pruned)
	m.logger.Debug("Pruned %d checkpoints", pruned)
}
