package cli

import (
	"fmt"
	"strconv"

	"github.com/YoshitsuguKoike/agentstate/internal/application/service"
	"github.com/spf13/cobra"
)

func newTokensCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage the token counter",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <count>",
		Short: "Record the measured token usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid token count %q", args[0])
			}

			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			if err := s.Store().Update(cmd.Context(), service.ContextUpdate{TokenCount: &n}); err != nil {
				return err
			}
			c := s.Store().Context()
			fmt.Fprintf(cmd.OutOrStdout(), "Tokens: %d / %d\n", c.TokenCount, c.MaxTokens)
			if s.Store().NeedsCompaction() {
				fmt.Fprintln(cmd.OutOrStdout(), "WARN: context needs compaction")
			}
			return nil
		},
	})
	return cmd
}
