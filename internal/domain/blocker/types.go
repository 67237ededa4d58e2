package blocker

import "time"

// Type identifies which heuristic reported the blocker
type Type string

const (
	TypeNone             Type = ""
	TypeCodeLoop         Type = "code_loop"
	TypeVerificationLoop Type = "verification_loop"
	TypeToolFailure      Type = "tool_failure"
)

// Severity of a detected blocker
type Severity string

const (
	SeverityNone   Severity = ""
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Result is the outcome of one detection pass. At most one blocker is
// reported; Detected is false when no heuristic fired.
type Result struct {
	Detected       bool     `json:"detected"`
	Type           Type     `json:"type,omitempty"`
	Severity       Severity `json:"severity,omitempty"`
	Message        string   `json:"message,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	File           string   `json:"file,omitempty"`
	Tool           string   `json:"tool,omitempty"`
}

// NotDetected is the zero result
var NotDetected = Result{}

// VerificationAttempt is one tracked verification outcome
type VerificationAttempt struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
}

// Thresholds tunes the heuristics
type Thresholds struct {
	FingerprintHistory     int // Fingerprints kept per file
	CodeLoopWindow         int // Fingerprints inspected for oscillation
	VerificationHistory    int // Verification attempts kept
	VerificationLoopWindow int // Identical failures needed for a loop
	ToolFailureThreshold   int // Consecutive failures before a tool blocks
}

const (
	DefaultFingerprintHistory     = 10
	DefaultCodeLoopWindow         = 4
	DefaultVerificationHistory    = 20
	DefaultVerificationLoopWindow = 5
	DefaultToolFailureThreshold   = 3
)

// DefaultThresholds returns the stock heuristic settings
func DefaultThresholds() Thresholds {
	return Thresholds{
		FingerprintHistory:     DefaultFingerprintHistory,
		CodeLoopWindow:         DefaultCodeLoopWindow,
		VerificationHistory:    DefaultVerificationHistory,
		VerificationLoopWindow: DefaultVerificationLoopWindow,
		ToolFailureThreshold:   DefaultToolFailureThreshold,
	}
}

// withDefaults replaces non-positive values with defaults. The history
// bounds are raised to at least the matching window so a loop can be seen.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.FingerprintHistory <= 0 {
		t.FingerprintHistory = d.FingerprintHistory
	}
	if t.CodeLoopWindow < 2 {
		t.CodeLoopWindow = d.CodeLoopWindow
	}
	if t.VerificationHistory <= 0 {
		t.VerificationHistory = d.VerificationHistory
	}
	if t.VerificationLoopWindow <= 0 {
		t.VerificationLoopWindow = d.VerificationLoopWindow
	}
	if t.ToolFailureThreshold <= 0 {
		t.ToolFailureThreshold = d.ToolFailureThreshold
	}
	if t.FingerprintHistory < t.CodeLoopWindow {
		t.FingerprintHistory = t.CodeLoopWindow
	}
	if t.VerificationHistory < t.VerificationLoopWindow {
		t.VerificationHistory = t.VerificationLoopWindow
	}
	return t
}
