package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/spf13/cobra"
)

// StatusOutput is the JSON form of the status command
type StatusOutput struct {
	agentctx.AgentContext
	NeedsCompaction bool   `json:"needs_compaction"`
	SessionActive   bool   `json:"session_active"`
	Home            string `json:"home"`
}

func newStatusCmd(st *rootState) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted agent context",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, release, err := st.loadSession(ctx)
			if err != nil {
				return err
			}
			defer release()
			active, err := s.Active(ctx)
			if err != nil {
				return err
			}

			c := s.Store().Context()
			out := cmd.OutOrStdout()

			switch strings.ToLower(format) {
			case "json":
				b, err := json.MarshalIndent(StatusOutput{
					AgentContext:    c,
					NeedsCompaction: s.Store().NeedsCompaction(),
					SessionActive:   active,
					Home:            s.Paths().Home,
				}, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal json: %w", err)
				}
				fmt.Fprintln(out, string(b))
			case "", "text":
				fmt.Fprintf(out, "Phase     : %s\n", c.Phase)
				fmt.Fprintf(out, "Tokens    : %d / %d\n", c.TokenCount, c.MaxTokens)
				fmt.Fprintf(out, "Session   : %s\n", sessionLabel(active))
				fmt.Fprintf(out, "Files     : %d\n", len(c.ActiveFiles))
				for _, f := range c.ActiveFiles {
					fmt.Fprintf(out, "  - %s\n", f)
				}
				fmt.Fprintf(out, "Decisions : %d\n", len(c.RecentDecisions))
				for _, d := range c.RecentDecisions {
					fmt.Fprintf(out, "  [%2d] %s\n", d.ImportanceScore, d.Decision)
				}
				if s.Store().NeedsCompaction() {
					fmt.Fprintln(out, "WARN: context needs compaction")
				}
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func sessionLabel(active bool) string {
	if active {
		return "active (or not shut down cleanly)"
	}
	return "none"
}
