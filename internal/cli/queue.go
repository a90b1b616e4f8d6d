package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sukria/koan-sub000/internal/queue"
	"github.com/sukria/koan-sub000/internal/store"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and edit the mission queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List missions by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		q := newQueue(cfg, store.New())
		sections, err := q.List()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tPROJECT\tRECUR\tDUE\tMISSION")
		for _, status := range []queue.Status{queue.StatusPending, queue.StatusInProgress, queue.StatusDone} {
			for _, m := range sections[status] {
				due := ""
				if !m.NotBefore.IsZero() {
					due = m.NotBefore.UTC().Format(time.RFC3339)
				}
				text := m.Text
				if m.Resolved {
					text += " (resolved)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", status, m.Project, m.Recurrence, due, text)
			}
		}
		return w.Flush()
	},
}

var queueAddCmd = &cobra.Command{
	Use:   "add <mission text>",
	Short: "Add a mission to the Pending section",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		project, _ := cmd.Flags().GetString("project")
		recur, _ := cmd.Flags().GetString("recur")
		due, _ := cmd.Flags().GetString("due")

		m := queue.Mission{Text: strings.Join(args, " "), Project: project}
		switch recur {
		case "", string(queue.RecurHourly), string(queue.RecurDaily), string(queue.RecurWeekly):
			m.Recurrence = queue.Recurrence(recur)
		default:
			return fmt.Errorf("invalid recurrence %q: want hourly, daily, or weekly", recur)
		}
		if due != "" {
			t, err := time.Parse(time.RFC3339, due)
			if err != nil {
				return fmt.Errorf("invalid due time %q: %w", due, err)
			}
			m.NotBefore = t
		}

		q := newQueue(cfg, store.New())
		if err := q.Add(m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued: %s\n", m.Line())
		return nil
	},
}

var queueDoneCmd = &cobra.Command{
	Use:   "done <mission text>",
	Short: "Resolve an open mission by its exact text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		q := newQueue(cfg, store.New())
		text := strings.Join(args, " ")
		if err := q.MarkDone(text); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", text)
		return nil
	},
}

func init() {
	queueAddCmd.Flags().String("project", "", "target project name")
	queueAddCmd.Flags().String("recur", "", "recurrence: hourly, daily, or weekly")
	queueAddCmd.Flags().String("due", "", "earliest run time (RFC3339)")
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueDoneCmd)
}
