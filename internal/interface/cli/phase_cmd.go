package cli

import (
	"fmt"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/spf13/cobra"
)

func newPhaseCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Change the agent phase",
	}
	cmd.AddCommand(newPhaseSetCmd(st))
	return cmd
}

func newPhaseSetCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:       "set <phase>",
		Short:     "Set the current phase",
		Args:      cobra.ExactArgs(1),
		ValidArgs: phaseNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := agentctx.ParsePhase(args[0])
			if err != nil {
				return err
			}

			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			old := s.Store().Context().Phase
			if err := s.Store().SetPhase(cmd.Context(), phase); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Phase: %s -> %s\n", old, phase)
			return nil
		},
	}
}

func phaseNames() []string {
	names := make([]string, 0, len(agentctx.AllPhases))
	for _, p := range agentctx.AllPhases {
		names = append(names, p.String())
	}
	return names
}
