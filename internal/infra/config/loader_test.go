package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverridesYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "h/setting.yaml", []byte("max_tokens: 1000\nstderr_level: warn\n"), 0o644))

	t.Setenv(EnvMaxTokens, "5000")
	t.Setenv(EnvStderrLevel, "debug")
	t.Setenv(EnvAutoBlock, "true")
	t.Setenv(EnvMaxCheckpoints, "not-a-number")

	cfg, err := Load(fs, "h")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.MaxTokens)
	assert.Equal(t, "debug", cfg.StderrLevel)
	assert.True(t, cfg.AutoBlockPhase)
	assert.Equal(t, 10, cfg.MaxCheckpoints)
}

func TestLoad_PropagatesParseError(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unterminated flow sequence", yaml: "max_tokens: [1, 2"},
		{name: "top-level scalar", yaml: "hello"},
		{name: "misspelled key", yaml: "max_token: 1000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "h/setting.yaml", []byte(tt.yaml), 0o644))

			cfg, err := Load(fs, "h")
			assert.ErrorContains(t, err, "failed to parse")
			assert.Nil(t, cfg)
		})
	}
}
