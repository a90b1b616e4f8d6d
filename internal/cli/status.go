package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sukria/koan-sub000/internal/budget"
	"github.com/sukria/koan-sub000/internal/pause"
	"github.com/sukria/koan-sub000/internal/queue"
	"github.com/sukria/koan-sub000/internal/store"
)

type statusInfo struct {
	Paused     bool    `json:"paused"`
	Reason     string  `json:"reason,omitempty"`
	ResumeAt   string  `json:"resume_at,omitempty"`
	Available  float64 `json:"available_pct"`
	Mode       string  `json:"mode"`
	Pending    int     `json:"pending"`
	InProgress int     `json:"in_progress"`
	Done       int     `json:"done"`
	LastEvent  string  `json:"last_event,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show loop, budget, and queue state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st := store.New()

		info := statusInfo{}

		ledger := pause.NewLedger(st, cfg.PauseMarkerPath(), cfg.PauseRecordPath(), cfg.Loop.PauseCooldownDuration())
		if rec, err := ledger.Current(); err == nil && rec != nil {
			info.Paused = true
			info.Reason = string(rec.Reason)
			info.ResumeAt = ledger.ResumeTime(rec).Format(time.RFC3339)
		}

		tracker := budget.NewTracker(st, cfg.UsagePath(), cfg.Loop.SessionTokenBudget)
		snap := tracker.Refresh()
		info.Available = snap.Available()
		info.Mode = string(budget.DecideMode(info.Available))

		q := newQueue(cfg, st)
		sections, err := q.List()
		if err != nil {
			return err
		}
		info.Pending = len(sections[queue.StatusPending])
		info.InProgress = len(sections[queue.StatusInProgress])
		info.Done = len(sections[queue.StatusDone])

		if d, err := openDB(cfg); err == nil {
			if e, err := d.LastLoopEvent(); err == nil && e != nil {
				info.LastEvent = fmt.Sprintf("%s (iteration %d, %s)", e.Event, e.Iteration, e.Timestamp)
			}
			d.Close()
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			data, _ := json.MarshalIndent(info, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := cmd.OutOrStdout()
		if info.Paused {
			fmt.Fprintf(w, "State:      paused (%s), resume around %s\n", info.Reason, info.ResumeAt)
		} else {
			fmt.Fprintln(w, "State:      running")
		}
		fmt.Fprintf(w, "Budget:     %.0f%% available, mode %s\n", info.Available, info.Mode)
		fmt.Fprintf(w, "Queue:      %d pending, %d in progress, %d done\n", info.Pending, info.InProgress, info.Done)
		if info.LastEvent != "" {
			fmt.Fprintf(w, "Last event: %s\n", info.LastEvent)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().String("format", "text", "output format: text or json")
}
