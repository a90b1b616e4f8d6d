package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent loop or mission events from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		missions, _ := cmd.Flags().GetBool("missions")

		w := cmd.OutOrStdout()
		if missions {
			events, err := d.MissionHistory(limit)
			if err != nil {
				return err
			}
			if format == "json" {
				data, _ := json.MarshalIndent(events, "", "  ")
				fmt.Fprintln(w, string(data))
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tEVENT\tPROJECT\tMISSION\tDETAIL")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp, e.Event, e.Project, e.Mission, e.Detail)
			}
			return tw.Flush()
		}

		events, err := d.LoopHistory(limit)
		if err != nil {
			return err
		}
		if format == "json" {
			data, _ := json.MarshalIndent(events, "", "  ")
			fmt.Fprintln(w, string(data))
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tITER\tEVENT\tMODE\tPROJECT\tDETAIL")
		for _, e := range events {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", e.Timestamp, e.Iteration, e.Event, e.Mode, e.Project, e.Detail)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 50, "maximum events to show")
	historyCmd.Flags().Bool("missions", false, "show mission transitions instead of loop events")
	historyCmd.Flags().String("format", "text", "output format: text or json")
}
