package cli

import (
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/agentstate/internal/app"
	"github.com/YoshitsuguKoike/agentstate/internal/domain/repository"
	"github.com/YoshitsuguKoike/agentstate/internal/infra/persistence/file"
	"github.com/spf13/cobra"
)

// doctorReport collects check results
type doctorReport struct {
	lines  []string
	errors int
}

func (r *doctorReport) ok(format string, args ...interface{}) {
	r.lines = append(r.lines, "OK: "+fmt.Sprintf(format, args...))
}

func (r *doctorReport) warn(format string, args ...interface{}) {
	r.lines = append(r.lines, "WARN: "+fmt.Sprintf(format, args...))
}

func (r *doctorReport) fail(format string, args ...interface{}) {
	r.errors++
	r.lines = append(r.lines, "ERROR: "+fmt.Sprintf(format, args...))
}

func newDoctorCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := runDoctor(cmd, st)
			for _, l := range report.lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			if report.errors > 0 {
				return fmt.Errorf("doctor found %d problem(s)", report.errors)
			}
			return nil
		},
	}
}

func runDoctor(cmd *cobra.Command, st *rootState) *doctorReport {
	ctx := cmd.Context()
	r := &doctorReport{}
	paths := app.ResolvePaths(st.cfg.Home)

	if st.cfg.ConfigSource == "yaml" {
		r.ok("settings loaded from %s", st.cfg.SettingPath)
	} else {
		r.ok("no %s, using defaults", paths.Settings)
	}

	contexts := file.NewAgentContextRepository(st.fs, paths.Context)
	c, err := contexts.Load(ctx)
	switch {
	case err == nil:
		if !c.Phase.IsValid() {
			r.fail("context has unknown phase %q", c.Phase)
		} else {
			r.ok("context readable (phase=%s, decisions=%d)", c.Phase, len(c.RecentDecisions))
		}
	case errors.Is(err, repository.ErrNotFound):
		r.warn("no context at %s; the next start is a fresh start", paths.Context)
	default:
		r.fail("context unreadable: %v", err)
	}

	checkpoints := file.NewCheckpointRepository(st.fs, paths.Checkpoints)
	ids, err := checkpoints.ListIDs(ctx)
	if err != nil {
		r.fail("cannot list checkpoints: %v", err)
	} else {
		broken := 0
		for _, id := range ids {
			if _, err := checkpoints.Find(ctx, id); err != nil {
				broken++
				r.fail("checkpoint %s unreadable: %v", id, err)
			}
		}
		if broken == 0 {
			r.ok("%d checkpoint(s) readable", len(ids))
		}
		if len(ids) > st.cfg.MaxCheckpoints {
			r.warn("%d checkpoints stored, retention is %d", len(ids), st.cfg.MaxCheckpoints)
		}
	}

	markers := file.NewSessionMarkerRepository(st.fs, paths.Session)
	m, err := markers.Load(ctx)
	switch {
	case err == nil:
		r.warn("session marker present (session %q, pid %d): agent running or not shut down cleanly", m.SessionID, m.PID)
	case errors.Is(err, repository.ErrNotFound):
		r.ok("no session marker")
	default:
		r.fail("session marker unreadable: %v", err)
	}

	return r
}
