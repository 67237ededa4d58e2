package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
)

func runCLI(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	root := NewRoot()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--home", home, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func readStatus(t *testing.T, home string) StatusOutput {
	t.Helper()
	out, err := runCLI(t, home, "status", "--format", "json")
	require.NoError(t, err)
	var st StatusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	return st
}

func TestNewRoot_Commands(t *testing.T) {
	root := NewRoot()
	for _, name := range []string{"status", "phase", "decision", "file", "tokens", "compact", "checkpoint", "doctor"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
		assert.NotEmpty(t, sub.Short, name)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("home"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestStatus_FreshHome(t *testing.T) {
	home := t.TempDir()

	st := readStatus(t, home)
	assert.Equal(t, agentctx.PhaseInitializing, st.Phase)
	assert.Empty(t, st.ActiveFiles)
	assert.Equal(t, 200000, st.MaxTokens)
	assert.False(t, st.SessionActive)
	assert.Equal(t, home, st.Home)

	out, err := runCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Phase     : initializing")

	_, err = runCLI(t, home, "status", "--format", "yaml")
	assert.Error(t, err)
}

func TestPhaseSet(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "phase", "set", "Executing")
	require.NoError(t, err)
	assert.Contains(t, out, "initializing -> executing")
	assert.Equal(t, agentctx.PhaseExecuting, readStatus(t, home).Phase)

	_, err = runCLI(t, home, "phase", "set", "sleeping")
	assert.ErrorIs(t, err, agentctx.ErrInvalidPhase)
}

func TestDecisionAdd(t *testing.T) {
	home := t.TempDir()

	_, err := runCLI(t, home, "decision", "add", "use", "afero", "--reason", "testable fs", "--importance", "12")
	require.NoError(t, err)

	st := readStatus(t, home)
	require.Len(t, st.RecentDecisions, 1)
	assert.Equal(t, "use afero", st.RecentDecisions[0].Decision)
	assert.Equal(t, "testable fs", st.RecentDecisions[0].Reason)
	assert.Equal(t, 10, st.RecentDecisions[0].ImportanceScore)
}

func TestFileAddRemove(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "file", "add", "a.go", "./b.go", "a.go")
	require.NoError(t, err)
	assert.Contains(t, out, "Added: b.go")
	assert.Contains(t, out, "Already active: a.go")
	assert.Equal(t, []string{"a.go", "b.go"}, readStatus(t, home).ActiveFiles)

	out, err = runCLI(t, home, "file", "remove", "a.go", "c.go")
	require.NoError(t, err)
	assert.Contains(t, out, "Not active: c.go")
	assert.Equal(t, []string{"b.go"}, readStatus(t, home).ActiveFiles)
}

func TestCompact(t *testing.T) {
	home := t.TempDir()

	_, err := runCLI(t, home, "decision", "add", "minor", "--importance", "2")
	require.NoError(t, err)
	_, err = runCLI(t, home, "decision", "add", "major", "--importance", "9")
	require.NoError(t, err)

	out, err := runCLI(t, home, "compact")
	require.NoError(t, err)
	assert.Contains(t, out, "No compaction needed")
	assert.Len(t, readStatus(t, home).RecentDecisions, 2)

	_, err = runCLI(t, home, "tokens", "set", "190000")
	require.NoError(t, err)
	assert.True(t, readStatus(t, home).NeedsCompaction)

	out, err = runCLI(t, home, "compact")
	require.NoError(t, err)
	assert.Contains(t, out, "kept 1 decisions, dropped 1")

	st := readStatus(t, home)
	assert.Equal(t, 0, st.TokenCount)
	require.Len(t, st.RecentDecisions, 1)
	assert.Equal(t, "major", st.RecentDecisions[0].Decision)

	_, err = runCLI(t, home, "tokens", "set", "-5")
	assert.Error(t, err)
}

func TestCheckpointCommands(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "checkpoint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No checkpoints")

	_, err = runCLI(t, home, "phase", "set", "planning")
	require.NoError(t, err)
	out, err = runCLI(t, home, "checkpoint", "create", "--op", `{"tool": "plan"}`)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.True(t, agentctx.IsValidID(id))

	_, err = runCLI(t, home, "checkpoint", "create", "--op", "{nope")
	assert.Error(t, err)

	out, err = runCLI(t, home, "checkpoint", "latest")
	require.NoError(t, err)
	var cp agentctx.Checkpoint
	require.NoError(t, json.Unmarshal([]byte(out), &cp))
	assert.Equal(t, id, cp.ID)
	assert.JSONEq(t, `{"tool":"plan"}`, string(cp.LastOperation))

	out, err = runCLI(t, home, "checkpoint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = runCLI(t, home, "phase", "set", "failed")
	require.NoError(t, err)
	out, err = runCLI(t, home, "checkpoint", "restore", id)
	require.NoError(t, err)
	assert.Contains(t, out, "phase=planning")
	assert.Equal(t, agentctx.PhasePlanning, readStatus(t, home).Phase)

	_, err = runCLI(t, home, "checkpoint", "restore", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.Error(t, err)
}

func TestDoctor(t *testing.T) {
	home := t.TempDir()

	_, err := runCLI(t, home, "checkpoint", "create")
	require.NoError(t, err)
	out, err := runCLI(t, home, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 1 checkpoint(s) readable")
	assert.Contains(t, out, "OK: no session marker")

	require.NoError(t, os.WriteFile(filepath.Join(home, "var", "context.json"), []byte("{"), 0o644))
	out, err = runCLI(t, home, "doctor")
	assert.Error(t, err)
	assert.Contains(t, out, "ERROR: context unreadable")
}

func TestSettingsFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "setting.yaml"), []byte("max_tokens: 1000\n"), 0o644))

	assert.Equal(t, 1000, readStatus(t, home).MaxTokens)

	out, err := runCLI(t, home, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "settings loaded from")

	require.NoError(t, os.WriteFile(filepath.Join(home, "setting.yaml"), []byte("max_tokens: [\n"), 0o644))
	_, err = runCLI(t, home, "status")
	assert.Error(t, err)
}

func TestMetricsTextfile(t *testing.T) {
	home := t.TempDir()
	metricsPath := filepath.Join(t.TempDir(), "agentstate.prom")

	_, err := runCLI(t, home, "--metrics-textfile", metricsPath, "phase", "set", "planning")
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `agentstate_phase_transitions_total{from="initializing",to="planning"} 1`)
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "agentstate "))
}
