package agentctx

import "time"

const (
	// DefaultImportance is the score given to decisions recorded without one
	DefaultImportance = 5
	MinImportance     = 0
	MaxImportance     = 10
)

// Decision is a judgment call recorded by the orchestrator.
// Decisions are never mutated after creation.
type Decision struct {
	Decision        string    `json:"decision"`
	Reason          string    `json:"reason,omitempty"`
	ImportanceScore int       `json:"importance_score"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewDecision creates a decision, clamping the importance score into 0..10
func NewDecision(text, reason string, importance int, at time.Time) Decision {
	if importance < MinImportance {
		importance = MinImportance
	}
	if importance > MaxImportance {
		importance = MaxImportance
	}
	return Decision{
		Decision:        text,
		Reason:          reason,
		ImportanceScore: importance,
		Timestamp:       at,
	}
}

// AppendDecision appends d and drops entries from the oldest end so that at
// most limit entries remain. The input slice is not modified.
func AppendDecision(log []Decision, d Decision, limit int) []Decision {
	out := make([]Decision, 0, len(log)+1)
	out = append(out, log...)
	out = append(out, d)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// CompactDecisions keeps only decisions with importance >= minImportance,
// and of those only the most recent keep entries, in original order.
func CompactDecisions(log []Decision, minImportance, keep int) []Decision {
	kept := make([]Decision, 0, len(log))
	for _, d := range log {
		if d.ImportanceScore >= minImportance {
			kept = append(kept, d)
		}
	}
	if keep >= 0 && len(kept) > keep {
		kept = kept[len(kept)-keep:]
	}
	return kept
}
