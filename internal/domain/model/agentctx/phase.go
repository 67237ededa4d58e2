package agentctx

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhase is returned when a phase name is not recognised
var ErrInvalidPhase = errors.New("invalid phase")

// Phase represents the agent's coarse lifecycle stage
type Phase string

const (
	PhaseInitializing Phase = "initializing" // Process started, nothing decided yet
	PhasePlanning     Phase = "planning"
	PhaseExecuting    Phase = "executing"
	PhaseVerifying    Phase = "verifying"
	PhaseBlocked      Phase = "blocked" // Waiting for a decision or escalation
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// AllPhases lists the phases in lifecycle order
var AllPhases = []Phase{
	PhaseInitializing,
	PhasePlanning,
	PhaseExecuting,
	PhaseVerifying,
	PhaseBlocked,
	PhaseCompleted,
	PhaseFailed,
}

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// IsValid returns true if the phase is one of the known phases
func (p Phase) IsValid() bool {
	switch p {
	case PhaseInitializing, PhasePlanning, PhaseExecuting, PhaseVerifying,
		PhaseBlocked, PhaseCompleted, PhaseFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the session has finished (completed/failed)
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// ParsePhase parses a phase name, ignoring case and surrounding whitespace
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhase, s)
	}
	return p, nil
}
