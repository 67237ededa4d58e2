package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/YoshitsuguKoike/agentstate/internal/app/config"
	"github.com/spf13/afero"
)

// Environment overrides, applied on top of setting.yaml
const (
	EnvMaxTokens      = "AGENTSTATE_MAX_TOKENS"
	EnvMaxCheckpoints = "AGENTSTATE_MAX_CHECKPOINTS"
	EnvAutoBlock      = "AGENTSTATE_AUTO_BLOCK"
	EnvStderrLevel    = "AGENTSTATE_STDERR_LEVEL"
)

// Load resolves configuration with priority ENV > setting.yaml > defaults
func Load(fs afero.Fs, home string) (*config.Config, error) {
	cfg, err := LoadSettings(fs, home)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

func applyEnv(cfg *config.Config, getenv func(string) string) {
	toInt := func(k string, dst *int) {
		if n, err := strconv.Atoi(strings.TrimSpace(getenv(k))); err == nil && n > 0 {
			*dst = n
		}
	}
	toBool := func(k string, dst *bool) {
		if b, err := strconv.ParseBool(strings.TrimSpace(getenv(k))); err == nil {
			*dst = b
		}
	}

	toInt(EnvMaxTokens, &cfg.MaxTokens)
	toInt(EnvMaxCheckpoints, &cfg.MaxCheckpoints)
	toBool(EnvAutoBlock, &cfg.AutoBlockPhase)
	if v := getenv(EnvStderrLevel); v != "" {
		cfg.StderrLevel = v
	}
}
