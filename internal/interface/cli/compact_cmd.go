package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompactCmd(st *rootState) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact the context when token usage is high",
		Long: `Drop low-importance decisions and reset the token counter.
Without --force nothing happens unless usage is above the compaction ratio.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			if !force && !s.Store().NeedsCompaction() {
				c := s.Store().Context()
				fmt.Fprintf(cmd.OutOrStdout(), "No compaction needed (%d / %d tokens)\n", c.TokenCount, c.MaxTokens)
				return nil
			}

			before := len(s.Store().Context().RecentDecisions)
			if err := s.Store().CompactContext(cmd.Context()); err != nil {
				return err
			}
			after := len(s.Store().Context().RecentDecisions)
			fmt.Fprintf(cmd.OutOrStdout(), "Compacted: kept %d decisions, dropped %d\n", after, before-after)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Compact even when usage is below the threshold")
	return cmd
}
