package cli

import (
	"github.com/spf13/cobra"

	"github.com/sukria/koan-sub000/internal/config"
	"github.com/sukria/koan-sub000/internal/db"
	"github.com/sukria/koan-sub000/internal/queue"
	"github.com/sukria/koan-sub000/internal/store"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "koan",
	Short: "koan - an autonomous run-loop over a mission queue",
	Long: `koan runs a continuous work loop over a bounded set of projects: it claims
missions from a shared queue file, dispatches them to the configured LLM
command tool, and paces itself against the subscription budget.

All state lives in ~/.koan/ (plain-text mission queue, JSON pause ledger,
SQLite for the event history). A bridge process may mutate the same files;
every write goes through advisory locks and atomic replaces.`,
}

func Execute() error {
	return rootCmd.Execute()
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to koan.yaml (default: ./koan.yaml, ~/.koan/config.yaml)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}

// loadConfig honors --config, then the default search path.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

func newQueue(cfg *config.Config, st *store.Store) *queue.Queue {
	names := make([]string, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		names = append(names, p.Name)
	}
	return queue.New(st, cfg.QueuePath(), names, cfg.Loop.RecurrenceHour)
}

func openDB(cfg *config.Config) (*db.DB, error) {
	d, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}
