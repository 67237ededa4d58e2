package cli

import (
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/spf13/cobra"
)

func newDecisionCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decision",
		Short: "Manage the decision log",
	}
	cmd.AddCommand(newDecisionAddCmd(st))
	return cmd
}

func newDecisionAddCmd(st *rootState) *cobra.Command {
	var (
		reason     string
		importance int
	)

	cmd := &cobra.Command{
		Use:   "add <decision>",
		Short: "Record a decision",
		Long: `Record a decision in the log. Importance is clamped to 0..10.
Only the most recent decisions are kept.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("decision text is empty")
			}

			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			d, err := s.Store().RecordDecision(cmd.Context(), text, reason, importance)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded decision (importance %d): %s\n", d.ImportanceScore, d.Decision)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the decision was made")
	cmd.Flags().IntVar(&importance, "importance", agentctx.DefaultImportance, "Importance score 0-10")
	return cmd
}
