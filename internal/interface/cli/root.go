package cli

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/agentstate/internal/app"
	"github.com/YoshitsuguKoike/agentstate/internal/app/config"
	"github.com/YoshitsuguKoike/agentstate/internal/application/service"
	infraConfig "github.com/YoshitsuguKoike/agentstate/internal/infra/config"
	"github.com/YoshitsuguKoike/agentstate/internal/infra/metrics"
	"github.com/YoshitsuguKoike/agentstate/internal/infra/persistence/file"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// rootState is shared by all commands of one root
type rootState struct {
	home        string
	logLevel    string
	metricsFile string

	fs       afero.Fs
	cfg      *config.Config
	registry *prom.Registry
	recorder metrics.Recorder
}

func NewRoot() *cobra.Command {
	st := &rootState{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:           "agentstate",
		Short:         "Inspect and edit persisted agent runtime state",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Priority: ENV > setting.yaml > defaults
			cfg, err := infraConfig.Load(st.fs, st.home)
			if err != nil {
				return err
			}
			st.cfg = cfg

			level := cfg.StderrLevel
			if st.logLevel != "" {
				level = st.logLevel
			}
			app.SetLogger(app.NewLogger(app.ParseLogLevel(level), cmd.ErrOrStderr()))

			st.registry = prom.NewRegistry()
			st.recorder = metrics.NewPrometheusRecorder(st.registry)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if st.metricsFile == "" || st.registry == nil {
				return nil
			}
			if err := prom.WriteToTextfile(st.metricsFile, st.registry); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	cmd.PersistentFlags().StringVar(&st.home, "home", "", fmt.Sprintf("State directory (default $%s or %s)", app.HomeEnv, app.DefaultHome))
	cmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&st.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file after the command")

	cmd.AddCommand(newStatusCmd(st))
	cmd.AddCommand(newPhaseCmd(st))
	cmd.AddCommand(newDecisionCmd(st))
	cmd.AddCommand(newFileCmd(st))
	cmd.AddCommand(newTokensCmd(st))
	cmd.AddCommand(newCompactCmd(st))
	cmd.AddCommand(newCheckpointCmd(st))
	cmd.AddCommand(newDoctorCmd(st))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadSession builds a session and loads the persisted context without
// taking over the session marker of a running agent. The state lock is held
// until release is called.
func (st *rootState) loadSession(ctx context.Context) (*service.Session, func(), error) {
	release, err := file.NewStateLock(app.ResolvePaths(st.cfg.Home).Lock).Lock()
	if err != nil {
		return nil, nil, err
	}
	s := service.NewSession(st.fs, st.cfg, app.GetLogger(), st.recorder)
	if err := s.Load(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return s, release, nil
}
