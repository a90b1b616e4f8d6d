package cli

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sukria/koan-sub000/internal/budget"
	"github.com/sukria/koan-sub000/internal/config"
	"github.com/sukria/koan-sub000/internal/db"
	"github.com/sukria/koan-sub000/internal/executor"
	"github.com/sukria/koan-sub000/internal/intake"
	"github.com/sukria/koan-sub000/internal/loop"
	"github.com/sukria/koan-sub000/internal/notify"
	"github.com/sukria/koan-sub000/internal/pause"
	"github.com/sukria/koan-sub000/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the run-loop",
	Long: `Starts the continuous work loop. The loop runs until the stop marker
appears, the iteration limit pauses it, or the operator interrupts it while
idle. A first Ctrl-C during active work only warns; a second within the
grace window aborts the current work and shuts down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		log := newLogger(verbose)

		st := store.New()
		q := newQueue(cfg, st)
		tracker := budget.NewTracker(st, cfg.UsagePath(), cfg.Loop.SessionTokenBudget)
		ledger := pause.NewLedger(st, cfg.PauseMarkerPath(), cfg.PauseRecordPath(), cfg.Loop.PauseCooldownDuration())
		runner := executor.NewCommandRunner(cfg.Executor.Command, cfg.Executor.Flags, cfg.Executor.TimeoutDuration())
		notifier := newNotifier(cfg, log)

		var database *db.DB
		database, err = openDB(cfg)
		if err != nil {
			// The ledger is observability; the loop can live without it.
			log.Warn().Err(err).Msg("event ledger unavailable, continuing without it")
			database = nil
		} else {
			defer database.Close()
		}

		var in *intake.Intake
		if cfg.Intake.Enabled && cfg.Intake.SelfLogin != "" {
			var feeds []intake.Feed
			for _, p := range cfg.Projects {
				if p.Repo == "" {
					continue
				}
				feeds = append(feeds, intake.NewGitHubFeed(&intake.ExecRunner{}, p.Repo, p.Name, cfg.Intake.SelfLogin, cfg.Intake.AckMarker))
			}
			if len(feeds) > 0 {
				in = intake.New(feeds, q, database, log, intake.Options{
					SelfLogin:    cfg.Intake.SelfLogin,
					AllowedUsers: cfg.Intake.AllowedUsers,
					MaxAge:       cfg.Intake.MaxAgeDuration(),
					PollBase:     cfg.Intake.PollBaseDuration(),
					PollCap:      cfg.Intake.PollCapDuration(),
				})
			}
		}

		l := loop.New(cfg, st, q, tracker, ledger, runner, in, notifier, database, log)
		return l.Run(context.Background())
	},
}

func init() {
	runCmd.Flags().Bool("verbose", false, "debug-level logging")
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func newNotifier(cfg *config.Config, log zerolog.Logger) notify.Notifier {
	if cfg.Notify.Command != "" {
		return &notify.CommandNotifier{Command: cfg.Notify.Command}
	}
	return &notify.LogNotifier{Log: log}
}
