package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/YoshitsuguKoike/agentstate/internal/app"
	"github.com/YoshitsuguKoike/agentstate/internal/app/config"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/blocker"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/repository"
	"github.com/YoshitsuguKoike/agentstate/internal/infra/metrics"
	"github.com/YoshitsuguKoike/agentstate/internal/infra/persistence/file"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// OpenResult describes how a session started
type OpenResult struct {
	SessionID          string
	UncleanShutdown    bool   // A previous session left its marker behind
	PreviousSessionID  string // Empty when unknown
	RestoredCheckpoint string // Checkpoint restored after an unclean shutdown

	// DiscardedContext is the persisted context that the restore replaced;
	// nil when nothing was restored
	DiscardedContext *agentctx.AgentContext
}

// Session is the explicit lifecycle object for one agent run. It owns the
// context store, the checkpoint manager and the blocker detector, and is
// passed by reference to whoever drives the agent.
type Session struct {
	paths       app.Paths
	cfg         *config.Config
	store       *ContextStore
	checkpoints *CheckpointManager
	detector    *blocker.Detector
	markers     repository.SessionMarkerRepository
	logger      app.Logger
	recorder    metrics.Recorder
	id          string
}

// NewSession wires the subsystem on fs using cfg. Nothing touches storage
// until Open is called.
func NewSession(fs afero.Fs, cfg *config.Config, logger app.Logger, recorder metrics.Recorder) *Session {
	if cfg == nil {
		cfg = config.Default(app.DefaultHome)
	}
	if logger == nil {
		logger = app.GetLogger()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	paths := app.ResolvePaths(cfg.Home)
	minImportance := cfg.CompactionMinImportance

	store := NewContextStore(
		file.NewAgentContextRepository(fs, paths.Context),
		ContextStoreOptions{
			MaxTokens:               cfg.MaxTokens,
			MaxDecisions:            cfg.MaxDecisions,
			CompactionRatio:         cfg.CompactionRatio,
			CompactionMinImportance: &minImportance,
			CompactionKeep:          cfg.CompactionKeep,
		},
		logger, recorder,
	)
	checkpoints := NewCheckpointManager(store,
		file.NewCheckpointRepository(fs, paths.Checkpoints),
		cfg.MaxCheckpoints, logger, recorder)
	detector := blocker.NewDetector(blocker.Thresholds{
		FingerprintHistory:     cfg.FingerprintHistory,
		CodeLoopWindow:         cfg.CodeLoopWindow,
		VerificationHistory:    cfg.VerificationHistory,
		VerificationLoopWindow: cfg.VerificationLoopWindow,
		ToolFailureThreshold:   cfg.ToolFailureThreshold,
	})

	return &Session{
		paths:       paths,
		cfg:         cfg,
		store:       store,
		checkpoints: checkpoints,
		detector:    detector,
		markers:     file.NewSessionMarkerRepository(fs, paths.Session),
		logger:      logger,
		recorder:    recorder,
	}
}

// Store returns the context store
func (s *Session) Store() *ContextStore { return s.store }

// Checkpoints returns the checkpoint manager
func (s *Session) Checkpoints() *CheckpointManager { return s.checkpoints }

// Detector returns the blocker detector
func (s *Session) Detector() *blocker.Detector { return s.detector }

// Paths returns the storage layout
func (s *Session) Paths() app.Paths { return s.paths }

// ID returns the session id; empty before Open
func (s *Session) ID() string { return s.id }

// Open loads the persisted context and starts a new session. When the
// previous session did not close cleanly the latest checkpoint is restored.
func (s *Session) Open(ctx context.Context) (*OpenResult, error) {
	res := &OpenResult{}

	prev, err := s.markers.Load(ctx)
	switch {
	case err == nil:
		res.UncleanShutdown = true
		res.PreviousSessionID = prev.SessionID
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, err
	}

	if err := s.store.Initialize(ctx); err != nil {
		return nil, err
	}

	if res.UncleanShutdown {
		s.logger.Warn("Previous session %q did not shut down cleanly", res.PreviousSessionID)
		latest, err := s.checkpoints.LatestCheckpoint(ctx)
		if err != nil {
			s.logger.Warn("Cannot look up checkpoints for recovery: %v", err)
		} else if latest != nil {
			discarded := s.store.Context()
			if s.checkpoints.RestoreCheckpoint(ctx, latest.ID) {
				res.RestoredCheckpoint = latest.ID
				res.DiscardedContext = &discarded
				s.logRewind(latest, discarded)
			}
		}
	}

	s.id = uuid.NewString()
	marker := &repository.SessionMarker{
		SessionID: s.id,
		PID:       os.Getpid(),
		StartedAt: time.Now().UTC().Round(0),
	}
	if err := s.markers.Save(ctx, marker); err != nil {
		return nil, err
	}
	res.SessionID = s.id

	s.logger.Debug("Session %s opened (phase=%s)", s.id, s.store.Context().Phase)
	return res, nil
}

// logRewind reports what the restore threw away
func (s *Session) logRewind(cp *agentctx.Checkpoint, discarded agentctx.AgentContext) {
	restored := cp.Context
	s.logger.Warn("Rewound to checkpoint %s taken at %s: phase %s -> %s, decisions %d -> %d, active files %d -> %d, tokens %d -> %d",
		cp.ID, cp.Timestamp.Format(time.RFC3339),
		discarded.Phase, restored.Phase,
		len(discarded.RecentDecisions), len(restored.RecentDecisions),
		len(discarded.ActiveFiles), len(restored.ActiveFiles),
		discarded.TokenCount, restored.TokenCount)
}

// Load reads the persisted context without starting a session. Inspection
// tools use it so that a running agent's marker is left alone.
func (s *Session) Load(ctx context.Context) error {
	return s.store.Initialize(ctx)
}

// Active reports whether a session marker is present, i.e. an agent is
// running or the last one crashed
func (s *Session) Active(ctx context.Context) (bool, error) {
	_, err := s.markers.Load(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Close ends the session cleanly
func (s *Session) Close(ctx context.Context) error {
	if err := s.markers.Clear(ctx); err != nil {
		return fmt.Errorf("failed to close session %s: %w", s.id, err)
	}
	s.logger.Debug("Session %s closed", s.id)
	return nil
}

// DetectBlockers runs blocker detection. A detected blocker is logged and
// counted; with AutoBlockPhase it also moves the context to the blocked
// phase. The error only reports a failed phase write.
func (s *Session) DetectBlockers(ctx context.Context) (blocker.Result, error) {
	r := s.detector.Detect()
	if !r.Detected {
		return r, nil
	}

	s.logger.Warn("Blocker detected [%s/%s]: %s", r.Type, r.Severity, r.Message)
	s.recorder.IncBlockerDetected(string(r.Type), string(r.Severity))

	if s.cfg.AutoBlockPhase && s.store.Context().Phase != agentctx.PhaseBlocked {
		if err := s.store.SetPhase(ctx, agentctx.PhaseBlocked); err != nil {
			return r, err
		}
	}
	return r, nil
}

// ResolveBlockers clears the failure counters once the agent has escaped a
// blocked state, and returns to resumePhase when the context is blocked
func (s *Session) ResolveBlockers(ctx context.Context, resumePhase agentctx.Phase) error {
	s.detector.ResetFailureCounters()
	if s.store.Context().Phase != agentctx.PhaseBlocked {
		return nil
	}
	return s.store.SetPhase(ctx, resumePhase)
}
