package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sukria/koan-sub000/internal/pause"
	"github.com/sukria/koan-sub000/internal/store"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the loop manually",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rec := pause.Record{Reason: pause.ReasonManual, CreatedAt: time.Now().UTC()}
		if until, _ := cmd.Flags().GetString("until"); until != "" {
			t, err := time.Parse(time.RFC3339, until)
			if err != nil {
				return fmt.Errorf("invalid --until %q: %w", until, err)
			}
			rec.ResumeAt = &t
		}

		st := store.New()
		ledger := pause.NewLedger(st, cfg.PauseMarkerPath(), cfg.PauseRecordPath(), cfg.Loop.PauseCooldownDuration())
		if err := ledger.Pause(rec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Paused; auto-resume around %s\n", ledger.ResumeTime(&rec).Format(time.RFC1123))
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Signal the loop to resume from a pause",
	Long: `Drops the resume signal file. A running loop consumes it, clears the
pause ledger, and starts a fresh session with its iteration counter reset.
If no loop is running, the signal is consumed at the next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st := store.New()
		if err := st.WriteAtomic(cfg.ResumeSignalPath(), []byte(time.Now().UTC().Format(time.RFC3339)+"\n")); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Resume signal written")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Write the stop marker, terminating the loop permanently",
	Long: `Writes the stop marker file. A running loop exits at its next check and
no loop starts while the marker exists. Use --clear to remove the marker
and allow runs again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st := store.New()

		if clear, _ := cmd.Flags().GetBool("clear"); clear {
			if err := st.Remove(cfg.StopMarkerPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stop marker cleared")
			return nil
		}

		if err := st.WriteAtomic(cfg.StopMarkerPath(), []byte(time.Now().UTC().Format(time.RFC3339)+"\n")); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stop marker written; the loop will exit at its next check")
		return nil
	},
}

func init() {
	pauseCmd.Flags().String("until", "", "auto-resume time (RFC3339); default is the configured cooldown")
	stopCmd.Flags().Bool("clear", false, "remove the stop marker instead of writing it")
}
