package cli

import (
	"fmt"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/spf13/cobra"
)

func newFileCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Manage the active file set",
	}
	cmd.AddCommand(newFileAddCmd(st))
	cmd.AddCommand(newFileRemoveCmd(st))
	return cmd
}

func newFileAddCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Add files to the active set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			for _, p := range args {
				if s.Store().Context().HasActiveFile(p) {
					fmt.Fprintf(cmd.OutOrStdout(), "Already active: %s\n", agentctx.NormalizePath(p))
					continue
				}
				if err := s.Store().AddActiveFile(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", agentctx.NormalizePath(p))
			}
			return nil
		},
	}
}

func newFileRemoveCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <path>...",
		Aliases: []string{"rm"},
		Short:   "Remove files from the active set",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			for _, p := range args {
				if !s.Store().Context().HasActiveFile(p) {
					fmt.Fprintf(cmd.OutOrStdout(), "Not active: %s\n", agentctx.NormalizePath(p))
					continue
				}
				if err := s.Store().RemoveActiveFile(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", agentctx.NormalizePath(p))
			}
			return nil
		},
	}
}
