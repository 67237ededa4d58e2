package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/YoshitsuguKoike/agentstate/internal/app"
	"github.com/YoshitsuguKoike/agentstate/internal/app/config"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// RawSettings represents the structure of setting.yaml.
// Pointer fields distinguish "not set" from zero values.
type RawSettings struct {
	MaxTokens *int `yaml:"max_tokens"`

	// Decision log and compaction
	MaxDecisions            *int     `yaml:"max_decisions"`
	CompactionRatio         *float64 `yaml:"compaction_ratio"`
	CompactionMinImportance *int     `yaml:"compaction_min_importance"`
	CompactionKeep          *int     `yaml:"compaction_keep"`

	// Checkpoints
	MaxCheckpoints *int `yaml:"max_checkpoints"`

	// Blocker detection
	FingerprintHistory     *int  `yaml:"fingerprint_history"`
	CodeLoopWindow         *int  `yaml:"code_loop_window"`
	VerificationHistory    *int  `yaml:"verification_history"`
	VerificationLoopWindow *int  `yaml:"verification_loop_window"`
	ToolFailureThreshold   *int  `yaml:"tool_failure_threshold"`
	AutoBlockPhase         *bool `yaml:"auto_block_phase"`

	// Logging
	StderrLevel *string `yaml:"stderr_level"`
}

// LoadSettings loads configuration from <home>/setting.yaml.
// Priority: setting.yaml > defaults. A missing file is not an error.
func LoadSettings(fs afero.Fs, home string) (*config.Config, error) {
	paths := app.ResolvePaths(home)
	cfg := config.Default(paths.Home)

	data, err := afero.ReadFile(fs, paths.Settings)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", paths.Settings, err)
	}

	settings, err := decodeSettings(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", paths.Settings, err)
	}

	applySettings(cfg, settings)
	cfg.ConfigSource = "yaml"
	cfg.SettingPath = paths.Settings
	return cfg, nil
}

// decodeSettings rejects unknown keys so a misspelled threshold is not
// silently ignored. An empty or comment-only file yields empty settings.
func decodeSettings(data []byte) (*RawSettings, error) {
	settings := &RawSettings{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(settings); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return settings, nil
}

// applySettings copies every set, sane value onto cfg. Non-positive
// numbers keep the default.
func applySettings(cfg *config.Config, s *RawSettings) {
	setInt := func(dst *int, v *int) {
		if v != nil && *v > 0 {
			*dst = *v
		}
	}

	setInt(&cfg.MaxTokens, s.MaxTokens)
	setInt(&cfg.MaxDecisions, s.MaxDecisions)
	if s.CompactionRatio != nil && *s.CompactionRatio > 0 && *s.CompactionRatio <= 1 {
		cfg.CompactionRatio = *s.CompactionRatio
	}
	if s.CompactionMinImportance != nil && *s.CompactionMinImportance >= 0 && *s.CompactionMinImportance <= 10 {
		cfg.CompactionMinImportance = *s.CompactionMinImportance
	}
	setInt(&cfg.CompactionKeep, s.CompactionKeep)
	setInt(&cfg.MaxCheckpoints, s.MaxCheckpoints)

	setInt(&cfg.FingerprintHistory, s.FingerprintHistory)
	setInt(&cfg.CodeLoopWindow, s.CodeLoopWindow)
	setInt(&cfg.VerificationHistory, s.VerificationHistory)
	setInt(&cfg.VerificationLoopWindow, s.VerificationLoopWindow)
	setInt(&cfg.ToolFailureThreshold, s.ToolFailureThreshold)
	if s.AutoBlockPhase != nil {
		cfg.AutoBlockPhase = *s.AutoBlockPhase
	}

	if s.StderrLevel != nil && *s.StderrLevel != "" {
		cfg.StderrLevel = *s.StderrLevel
	}
}
