package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/agentstate/internal/domain/model/agentctx"
	"github.com/spf13/cobra"
)

func newCheckpointCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checkpoint",
		Aliases: []string{"cp"},
		Short:   "Create, list and restore checkpoints",
	}
	cmd.AddCommand(newCheckpointCreateCmd(st))
	cmd.AddCommand(newCheckpointListCmd(st))
	cmd.AddCommand(newCheckpointLatestCmd(st))
	cmd.AddCommand(newCheckpointRestoreCmd(st))
	return cmd
}

func newCheckpointCreateCmd(st *rootState) *cobra.Command {
	var op string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the current context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var lastOperation any
			if op = strings.TrimSpace(op); op != "" {
				if !json.Valid([]byte(op)) {
					return fmt.Errorf("--op is not valid JSON")
				}
				lastOperation = json.RawMessage(op)
			}

			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			cp, err := s.Checkpoints().CreateCheckpoint(cmd.Context(), lastOperation)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cp.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&op, "op", "", "Last operation as a JSON document")
	return cmd
}

func newCheckpointListCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List checkpoints, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			cps, err := s.Checkpoints().ListCheckpoints(cmd.Context())
			if err != nil {
				return err
			}
			if len(cps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No checkpoints")
				return nil
			}
			for _, cp := range cps {
				printCheckpointLine(cmd, cp)
			}
			return nil
		},
	}
}

func newCheckpointLatestCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			cp, err := s.Checkpoints().LatestCheckpoint(cmd.Context())
			if err != nil {
				return err
			}
			if cp == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No checkpoints")
				return nil
			}
			b, err := json.MarshalIndent(cp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal json: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func newCheckpointRestoreCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Make a checkpoint the live context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, release, err := st.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			if !s.Checkpoints().RestoreCheckpoint(cmd.Context(), args[0]) {
				return fmt.Errorf("checkpoint %s could not be restored", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s (phase=%s)\n", args[0], s.Store().Context().Phase)
			return nil
		},
	}
}

func printCheckpointLine(cmd *cobra.Command, cp *agentctx.Checkpoint) {
	line := fmt.Sprintf("%s  %s  %-12s files=%d decisions=%d",
		cp.ID, cp.Timestamp.Format("2006-01-02T15:04:05Z07:00"), cp.Phase,
		len(cp.Context.ActiveFiles), len(cp.Context.RecentDecisions))
	if len(cp.LastOperation) > 0 {
		line += "  op=" + string(cp.LastOperation)
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
}
