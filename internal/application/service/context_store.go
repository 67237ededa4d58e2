package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/agentstate/internal/app"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/repository"
	"github.com/YoshitsuguKoike/agentstate/internal/infra/metrics"
)

// ContextStoreOptions tunes the context store. Zero values use defaults.
type ContextStoreOptions struct {
	MaxTokens       int
	MaxDecisions    int
	CompactionRatio float64
	CompactionKeep  int

	// CompactionMinImportance is a pointer because 0 is meaningful: it keeps
	// every decision on compaction. Nil uses the default of 7.
	CompactionMinImportance *int
}

const (
	defaultMaxTokens               = 200000
	defaultMaxDecisions            = 50
	defaultCompactionRatio         = 0.8
	defaultCompactionMinImportance = 7
	defaultCompactionKeep          = 10
)

func (o ContextStoreOptions) withDefaults() ContextStoreOptions {
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.MaxDecisions <= 0 {
		o.MaxDecisions = defaultMaxDecisions
	}
	if o.CompactionRatio <= 0 {
		o.CompactionRatio = defaultCompactionRatio
	}
	minImportance := defaultCompactionMinImportance
	if o.CompactionMinImportance != nil {
		minImportance = clampImportance(*o.CompactionMinImportance)
	}
	o.CompactionMinImportance = &minImportance
	if o.CompactionKeep <= 0 {
		o.CompactionKeep = defaultCompactionKeep
	}
	return o
}

func clampImportance(n int) int {
	if n < agentctx.MinImportance {
		return agentctx.MinImportance
	}
	if n > agentctx.MaxImportance {
		return agentctx.MaxImportance
	}
	return n
}

// ContextUpdate is a partial update. Nil fields are left unchanged.
type ContextUpdate struct {
	Phase           *agentctx.Phase
	ActiveFiles     *[]string
	RecentDecisions *[]agentctx.Decision
	TokenCount      *int
	MaxTokens       *int
}

// ContextStore owns the live AgentContext and writes it to the repository
// after every mutation. All mutations hold the write lock for the whole
// read-modify-write cycle, so concurrent callers cannot lose updates.
type ContextStore struct {
	mu       sync.RWMutex
	current  agentctx.AgentContext
	repo     repository.AgentContextRepository
	opts     ContextStoreOptions
	logger   app.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// NewContextStore creates a store holding the default context.
// Call Initialize to load the persisted one.
func NewContextStore(repo repository.AgentContextRepository, opts ContextStoreOptions, logger app.Logger, recorder metrics.Recorder) *ContextStore {
	opts = opts.withDefaults()
	if logger == nil {
		logger = app.GetLogger()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &ContextStore{
		current:  agentctx.NewAgentContext(opts.MaxTokens),
		repo:     repo,
		opts:     opts,
		logger:   logger,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC().Round(0) },
	}
}

// Initialize ensures storage exists and loads the persisted context.
// A missing or unreadable document is a fresh start, not an error; only a
// failure to create the storage location is returned.
func (s *ContextStore) Initialize(ctx context.Context) error {
	if err := s.repo.EnsureStorage(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		loaded.Normalize(s.opts.MaxTokens)
		s.current = *loaded
		s.logger.Debug("Loaded agent context (phase=%s, decisions=%d)", s.current.Phase, len(s.current.RecentDecisions))
	case errors.Is(err, repository.ErrNotFound):
		s.current = agentctx.NewAgentContext(s.opts.MaxTokens)
		s.logger.Debug("No saved agent context, starting fresh")
	default:
		s.current = agentctx.NewAgentContext(s.opts.MaxTokens)
		s.logger.Warn("Ignoring unreadable agent context, starting fresh: %v", err)
	}
	return nil
}

// Context returns a copy of the live context
func (s *ContextStore) Context() agentctx.AgentContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Options returns the effective options
func (s *ContextStore) Options() ContextStoreOptions {
	return s.opts
}

// mutate applies fn under the write lock and persists when fn reports a
// change. On a failed write the in-memory change is kept and the error is
// returned to the caller.
func (s *ContextStore) mutate(ctx context.Context, fn func(c *agentctx.AgentContext) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fn(&s.current) {
		return nil
	}
	return s.persistLocked(ctx)
}

func (s *ContextStore) persistLocked(ctx context.Context) error {
	snapshot := s.current.Clone()
	if err := s.repo.Save(ctx, &snapshot); err != nil {
		s.recorder.IncPersist(false)
		s.logger.Error("Failed to persist agent context: %v", err)
		return err
	}
	s.recorder.IncPersist(true)
	s.recorder.SetTokenUsage(snapshot.TokenCount, snapshot.MaxTokens)
	return nil
}

// Update shallow-merges the set fields of u into the context and persists
func (s *ContextStore) Update(ctx context.Context, u ContextUpdate) error {
	if u.Phase != nil && !u.Phase.IsValid() {
		return fmt.Errorf("%w: %q", agentctx.ErrInvalidPhase, *u.Phase)
	}
	return s.mutate(ctx, func(c *agentctx.AgentContext) bool {
		if u.Phase != nil {
			c.Phase = *u.Phase
		}
		if u.ActiveFiles != nil {
			c.ActiveFiles = []string{}
			for _, f := range *u.ActiveFiles {
				c.AddActiveFile(f)
			}
		}
		if u.RecentDecisions != nil {
			decisions := *u.RecentDecisions
			if len(decisions) > s.opts.MaxDecisions {
				decisions = decisions[len(decisions)-s.opts.MaxDecisions:]
			}
			c.RecentDecisions = append(make([]agentctx.Decision, 0, len(decisions)), decisions...)
		}
		if u.TokenCount != nil {
			c.TokenCount = *u.TokenCount
		}
		if u.MaxTokens != nil {
			c.MaxTokens = *u.MaxTokens
		}
		return true
	})
}

// SetPhase transitions the phase and persists
func (s *ContextStore) SetPhase(ctx context.Context, phase agentctx.Phase) error {
	if !phase.IsValid() {
		return fmt.Errorf("%w: %q", agentctx.ErrInvalidPhase, phase)
	}
	return s.mutate(ctx, func(c *agentctx.AgentContext) bool {
		old := c.Phase
		c.Phase = phase
		s.logger.Info("Phase transition: %s -> %s", old, phase)
		s.recorder.IncPhaseTransition(old.String(), phase.String())
		return true
	})
}

// AddActiveFile adds path to the active set; persists only on change
func (s *ContextStore) AddActiveFile(ctx context.Context, path string) error {
	return s.mutate(ctx, func(c *agentctx.AgentContext) bool {
		return c.AddActiveFile(path)
	})
}

// RemoveActiveFile removes path from the active set; persists only on change
func (s *ContextStore) RemoveActiveFile(ctx context.Context, path string) error {
	return s.mutate(ctx, func(c *agentctx.AgentContext) bool {
		return c.RemoveActiveFile(path)
	})
}

// RecordDecision appends a decision, dropping the oldest beyond the cap
func (s *ContextStore) RecordDecision(ctx context.Context, decision, reason string, importance int) (agentctx.Decision, error) {
	d := agentctx.NewDecision(decision, reason, importance, s.now())
	err := s.mutate(ctx, func(c *agentctx.AgentContext) bool {
		c.RecentDecisions = agentctx.AppendDecision(c.RecentDecisions, d, s.opts.MaxDecisions)
		return true
	})
	return d, err
}

// UpdateTokenCount sets the token counter in memory only. It is written
// out with the next persisted mutation.
func (s *ContextStore) UpdateTokenCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.TokenCount = n
	s.recorder.SetTokenUsage(n, s.current.MaxTokens)
}

// NeedsCompaction reports whether token usage is above the compaction ratio
func (s *ContextStore) NeedsCompaction() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.NeedsCompaction(s.opts.CompactionRatio)
}

// CompactContext keeps only the most recent important decisions and resets
// the token counter. The caller re-measures real usage afterwards.
func (s *ContextStore) CompactContext(ctx context.Context) error {
	return s.mutate(ctx, func(c *agentctx.AgentContext) bool {
		before := len(c.RecentDecisions)
		c.RecentDecisions = agentctx.CompactDecisions(c.RecentDecisions, *s.opts.CompactionMinImportance, s.opts.CompactionKeep)
		c.TokenCount = 0
		dropped := before - len(c.RecentDecisions)
		s.logger.Info("Compacted context: kept %d decisions, dropped %d", len(c.RecentDecisions), dropped)
		s.recorder.IncCompaction(dropped)
		return true
	})
}

// Replace swaps in a whole context (checkpoint restore) and persists it
func (s *ContextStore) Replace(ctx context.Context, c agentctx.AgentContext) error {
	replacement := c.Clone()
	replacement.Normalize(s.opts.MaxTokens)
	return s.mutate(ctx, func(cur *agentctx.AgentContext) bool {
		*cur = replacement
		return true
	})
}
