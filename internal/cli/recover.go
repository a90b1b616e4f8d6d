package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sukria/koan-sub000/internal/store"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Demote orphaned In-Progress missions back to Pending",
	Long: `Runs the crash-recovery pass by hand: every mission in the In Progress
section moves back to Pending. The loop does this automatically at startup;
the command exists for cleaning up without starting a run. Safe to run
repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		q := newQueue(cfg, store.New())
		n, err := q.Recover()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Demoted %d mission(s) to pending\n", n)
		return nil
	},
}
