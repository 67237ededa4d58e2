package config

// Config holds the resolved agentstate configuration.
// All thresholds have documented defaults and can be tuned one at a time.
type Config struct {
	// Core settings
	Home      string // Storage home (AGENTSTATE_HOME)
	MaxTokens int    // Token budget for a fresh context

	// Decision log and compaction
	MaxDecisions            int     // Cap on recent decisions
	CompactionRatio         float64 // Compaction is needed above ratio*MaxTokens
	CompactionMinImportance int     // Decisions below this score are dropped on compaction; 0 keeps all
	CompactionKeep          int     // Important decisions kept after compaction

	// Checkpoints
	MaxCheckpoints int // Checkpoints retained after pruning

	// Blocker detection
	FingerprintHistory     int
	CodeLoopWindow         int
	VerificationHistory    int
	VerificationLoopWindow int
	ToolFailureThreshold   int
	AutoBlockPhase         bool // Move to the blocked phase when a blocker is detected

	// Logging
	StderrLevel string

	// Metadata
	ConfigSource string // "yaml" or "default"
	SettingPath  string // Path of setting.yaml when loaded from file
}

const (
	DefaultMaxTokens               = 200000
	DefaultMaxDecisions            = 50
	DefaultCompactionRatio         = 0.8
	DefaultCompactionMinImportance = 7
	DefaultCompactionKeep          = 10
	DefaultMaxCheckpoints          = 10
	DefaultFingerprintHistory      = 10
	DefaultCodeLoopWindow          = 4
	DefaultVerificationHistory     = 20
	DefaultVerificationLoopWindow  = 5
	DefaultToolFailureThreshold    = 3
	DefaultStderrLevel             = "info"
)

// Default returns the configuration used when no setting file exists
func Default(home string) *Config {
	return &Config{
		Home:                    home,
		MaxTokens:               DefaultMaxTokens,
		MaxDecisions:            DefaultMaxDecisions,
		CompactionRatio:         DefaultCompactionRatio,
		CompactionMinImportance: DefaultCompactionMinImportance,
		CompactionKeep:          DefaultCompactionKeep,
		MaxCheckpoints:          DefaultMaxCheckpoints,
		FingerprintHistory:      DefaultFingerprintHistory,
		CodeLoopWindow:          DefaultCodeLoopWindow,
		VerificationHistory:     DefaultVerificationHistory,
		VerificationLoopWindow:  DefaultVerificationLoopWindow,
		ToolFailureThreshold:    DefaultToolFailureThreshold,
		StderrLevel:             DefaultStderrLevel,
		ConfigSource:            "default",
	}
}
