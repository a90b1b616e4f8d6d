// Package loop implements the run-loop state machine moving between
// Starting, Running, and Paused. Each Running iteration refreshes the
// budget, claims a mission or falls back to an autonomous focus, dispatches
// one unit of work to the execution tool, classifies the outcome, and
// updates the queue and the pause ledger. Per-iteration failures are logged
// and the loop moves on; only stop signals and configuration errors, such as
// a mission naming an unknown project, end the run.
package loop

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sukria/koan-sub000/internal/budget"
	"github.com/sukria/koan-sub000/internal/config"
	"github.com/sukria/koan-sub000/internal/db"
	"github.com/sukria/koan-sub000/internal/executor"
	"github.com/sukria/koan-sub000/internal/intake"
	"github.com/sukria/koan-sub000/internal/notify"
	"github.com/sukria/koan-sub000/internal/pause"
	"github.com/sukria/koan-sub000/internal/prompt"
	"github.com/sukria/koan-sub000/internal/queue"
	"github.com/sukria/koan-sub000/internal/store"
)

// Loop coordinates one run session.
type Loop struct {
	cfg      *config.Config
	store    *store.Store
	queue    *queue.Queue
	tracker  *budget.Tracker
	ledger   *pause.Ledger
	runner   executor.Runner
	intake   *intake.Intake // nil when intake is disabled
	notifier notify.Notifier
	db       *db.DB // nil disables the event ledger
	log      zerolog.Logger

	runID     string
	iteration int
	control   *controlWatcher
	// stopReason is set when work was aborted mid-iteration and the loop
	// must stop once the iteration settles. It carries the shutdown cause:
	// an escalated operator interrupt or a canceled parent context.
	stopReason string

	// Injection points for tests.
	now    func() time.Time
	chance func() float64
	sigCh  chan os.Signal
}

// New creates a Loop. database and in may be nil.
func New(
	cfg *config.Config,
	st *store.Store,
	q *queue.Queue,
	tracker *budget.Tracker,
	ledger *pause.Ledger,
	runner executor.Runner,
	in *intake.Intake,
	notifier notify.Notifier,
	database *db.DB,
	log zerolog.Logger,
) *Loop {
	return &Loop{
		cfg:      cfg,
		store:    st,
		queue:    q,
		tracker:  tracker,
		ledger:   ledger,
		runner:   runner,
		intake:   in,
		notifier: notifier,
		db:       database,
		log:      log,
		runID:    uuid.NewString(),
		now:      time.Now,
		chance:   rand.Float64,
	}
}

// SetNow overrides the clock, for tests.
func (l *Loop) SetNow(now func() time.Time) { l.now = now }

// SetChance overrides the contemplative dice roll, for tests.
func (l *Loop) SetChance(fn func() float64) { l.chance = fn }

// Run drives the loop until the stop marker appears, the context is
// canceled, or the operator interrupts while no work is executing.
func (l *Loop) Run(ctx context.Context) error {
	l.sigCh = make(chan os.Signal, 2)
	signal.Notify(l.sigCh, os.Interrupt)
	defer signal.Stop(l.sigCh)

	watcher, err := newControlWatcher(l.cfg.Home, l.log)
	if err != nil {
		// The stat fallback in stopRequested still covers us.
		l.log.Warn().Err(err).Msg("control watcher unavailable, falling back to polling")
	} else {
		l.control = watcher
		defer watcher.Close()
	}

	// Starting: reconcile orphaned missions, then take an initial budget
	// reading before entering Running.
	demoted, err := l.queue.Recover()
	if err != nil {
		return fmt.Errorf("crash recovery: %w", err)
	}
	if demoted > 0 {
		l.log.Info().Int("missions", demoted).Msg("crash recovery: demoted orphaned missions to pending")
		l.event("recovered", "", "", fmt.Sprintf("demoted=%d", demoted))
	}

	// A pending mission tagged with an unknown project is a configuration
	// error; it must surface now, not stall silently once the loop runs.
	if _, err := l.queue.ListPending(""); err != nil {
		l.notifyf("not starting: %v", err)
		return fmt.Errorf("validate mission queue: %w", err)
	}

	snap := l.tracker.Refresh()
	l.log.Info().
		Str("run_id", l.runID).
		Float64("available", snap.Available()).
		Msg("run-loop started")
	l.event("started", string(budget.DecideMode(snap.Available())), "", "")

	for {
		if ctx.Err() != nil {
			return l.shutdown("context canceled")
		}
		if l.stopRequested() {
			return l.shutdown("stop marker present")
		}
		select {
		case <-l.sigCh:
			// Interrupt while idle: immediate clean shutdown.
			return l.shutdown("operator interrupt")
		default:
		}

		if l.ledger.Paused() {
			stop, err := l.whilePaused(ctx)
			if err != nil {
				return err
			}
			if stop {
				reason := l.stopReason
				if reason == "" {
					reason = "operator interrupt"
				}
				return l.shutdown(reason)
			}
			continue
		}

		if err := l.iterate(ctx); err != nil {
			if errors.Is(err, queue.ErrUnknownProject) {
				l.notifyf("stopping on configuration error: %v", err)
				return err
			}
			// Other per-iteration failures never stop the loop.
			l.log.Error().Err(err).Int("iteration", l.iteration).Msg("iteration failed")
		}
		if l.stopReason != "" {
			return l.shutdown(l.stopReason)
		}

		if stopped := l.sleep(ctx, l.cfg.Loop.IntervalDuration()); stopped {
			return l.shutdown("operator interrupt")
		}
	}
}

// iterate performs one Running iteration.
func (l *Loop) iterate(ctx context.Context) error {
	if l.intake != nil {
		if n := l.intake.MaybePoll(); n > 0 {
			l.log.Info().Int("missions", n).Msg("intake inserted missions")
		}
	}

	snap := l.tracker.Refresh()
	available := snap.Available()
	mode := budget.DecideMode(available)
	l.log.Debug().Float64("available", available).Str("mode", string(mode)).Int("iteration", l.iteration).Msg("budget refreshed")

	if mode == budget.ModeWait {
		return l.pauseFor(pause.Record{
			Reason:    pause.ReasonQuota,
			CreatedAt: l.now().UTC(),
			Hint:      fmt.Sprintf("budget exhausted (%.0f%% available)", available),
		})
	}

	if max := l.cfg.Loop.MaxIterations; max > 0 && l.iteration >= max {
		return l.pauseFor(pause.Record{
			Reason:    pause.ReasonMaxRuns,
			CreatedAt: l.now().UTC(),
			Hint:      fmt.Sprintf("reached %d iterations", max),
		})
	}

	mission, claimed, err := l.queue.ClaimNext(l.now())
	if err != nil {
		// An unknown project tag is a configuration error: the operator
		// must be told immediately rather than have work silently stall.
		return fmt.Errorf("claim mission: %w", err)
	}

	l.iteration++

	if claimed {
		return l.executeMission(ctx, mission, mode)
	}

	// Contemplative diversion: bounded probability, only at implement or
	// deeper intensity, only when no mission was claimed.
	if (mode == budget.ModeImplement || mode == budget.ModeDeep) && l.chance() < l.cfg.Loop.ContemplativeChance {
		return l.executeContemplative(ctx)
	}

	return l.executeAutonomous(ctx, mode)
}

// projectFor resolves which project an untagged mission or autonomous
// iteration works on: round-robin over the rotation-eligible set.
func (l *Loop) projectFor(iteration int) config.Project {
	eligible := l.cfg.RotationProjects()
	if len(eligible) == 0 {
		eligible = l.cfg.Projects
	}
	return eligible[budget.Rotation(iteration, len(eligible))]
}

// executeMission dispatches one claimed mission and settles it from the
// classified result.
func (l *Loop) executeMission(ctx context.Context, m queue.Mission, mode budget.Mode) error {
	var proj *config.Project
	var err error
	if m.Project != "" {
		proj, err = l.cfg.FindProject(m.Project)
		if err != nil {
			return err
		}
	} else {
		p := l.projectFor(l.iteration - 1)
		proj = &p
	}

	l.missionEvent(m, "claimed", string(mode))
	rendered, err := l.renderPrompt("mission.md", proj, prompt.Vars{
		"project":      proj.Name,
		"project_path": proj.Path,
		"mission":      m.Text,
		"notes":        "",
	})
	if err != nil {
		// Can't even build the prompt; put the mission back.
		_ = l.queue.Release(m)
		return err
	}

	res, interrupted := l.dispatch(ctx, executor.Request{
		Prompt:  rendered,
		Workdir: proj.Path,
		Permits: l.cfg.Executor.Permits,
	})
	if interrupted {
		_ = l.queue.Release(m)
		l.missionEvent(m, "released", "interrupted")
		return nil
	}
	if res == nil {
		_ = l.queue.Release(m)
		l.missionEvent(m, "released", "execution error")
		l.notifyf("mission %q failed to execute; left pending", m.Text)
		return nil
	}

	l.tracker.Record(res.Usage.Total())

	switch res.Outcome {
	case executor.OutcomeSuccess:
		if err := l.queue.Complete(m, l.now()); err != nil {
			return fmt.Errorf("complete mission: %w", err)
		}
		l.missionEvent(m, "completed", "")
		l.event("mission_done", string(mode), proj.Name, m.Text)
	case executor.OutcomeQuota:
		_ = l.queue.Release(m)
		l.missionEvent(m, "released", "quota")
		return l.quotaPause(res)
	default:
		_ = l.queue.Release(m)
		l.missionEvent(m, "released", "failure")
		l.event("mission_failed", string(mode), proj.Name, m.Text)
		l.notifyf("mission %q failed; left pending for the next pick", m.Text)
	}
	return nil
}

// executeAutonomous runs one mode-selected focus iteration on the rotation
// project.
func (l *Loop) executeAutonomous(ctx context.Context, mode budget.Mode) error {
	proj := l.projectFor(l.iteration - 1)

	tmpl := map[budget.Mode]string{
		budget.ModeReview:    "review.md",
		budget.ModeImplement: "implement.md",
		budget.ModeDeep:      "deep.md",
	}[mode]

	rendered, err := l.renderPrompt(tmpl, &proj, prompt.Vars{
		"project":      proj.Name,
		"project_path": proj.Path,
	})
	if err != nil {
		return err
	}

	permits := l.cfg.Executor.Permits
	if mode == budget.ModeReview {
		// Review iterations are read-only by construction.
		permits = nil
	}

	res, interrupted := l.dispatch(ctx, executor.Request{
		Prompt:  rendered,
		Workdir: proj.Path,
		Permits: permits,
	})
	if interrupted || res == nil {
		return nil
	}

	l.tracker.Record(res.Usage.Total())

	switch res.Outcome {
	case executor.OutcomeQuota:
		return l.quotaPause(res)
	case executor.OutcomeFailure:
		l.event("autonomous_failed", string(mode), proj.Name, "")
		l.notifyf("autonomous %s iteration on %s failed", mode, proj.Name)
	default:
		l.event("autonomous_done", string(mode), proj.Name, "")
	}
	return nil
}

// executeContemplative runs the side reflection. It is forbidden from
// mutating the mission queue: no permits are granted and no queue calls
// happen on any path through here.
func (l *Loop) executeContemplative(ctx context.Context) error {
	var names []string
	for _, p := range l.cfg.Projects {
		names = append(names, p.Name)
	}

	rendered, err := l.renderPrompt("contemplative.md", nil, prompt.Vars{
		"projects": strings.Join(names, ", "),
	})
	if err != nil {
		return err
	}

	res, interrupted := l.dispatch(ctx, executor.Request{Prompt: rendered})
	if interrupted || res == nil {
		return nil
	}
	l.tracker.Record(res.Usage.Total())
	if res.Outcome == executor.OutcomeQuota {
		return l.quotaPause(res)
	}
	l.event("contemplative", "", "", "")
	return nil
}

// renderPrompt loads a template (honoring project overrides) and renders it.
func (l *Loop) renderPrompt(name string, proj *config.Project, vars prompt.Vars) (string, error) {
	path := ""
	if proj != nil {
		path = proj.Path
	}
	tmpl, err := prompt.Load(name, path)
	if err != nil {
		return "", err
	}
	return prompt.Render(tmpl, vars)
}

// quotaPause transitions to Paused from a quota-exhaustion result, parsing
// a reset hint from the tool output when one is present.
func (l *Loop) quotaPause(res *executor.Result) error {
	now := l.now().UTC()
	rec := pause.Record{
		Reason:    pause.ReasonQuota,
		CreatedAt: now,
		Hint:      res.ResetHint,
	}
	if t := pause.ParseResetHint(res.ResetHint, now); t != nil {
		rec.ResumeAt = t
	} else if t := pause.ParseResetHint(res.Text, now); t != nil {
		rec.ResumeAt = t
	}
	return l.pauseFor(rec)
}

// pauseFor writes the pause ledger and notifies the human.
func (l *Loop) pauseFor(rec pause.Record) error {
	if err := l.ledger.Pause(rec); err != nil {
		return fmt.Errorf("enter pause: %w", err)
	}
	resume := l.ledger.ResumeTime(&rec)
	l.event("paused", "", "", string(rec.Reason))
	l.log.Info().Str("reason", string(rec.Reason)).Time("resume_at", resume).Msg("loop paused")
	l.notifyf("pausing (%s); expecting to resume around %s", rec.Reason, resume.Format(time.RFC1123))
	return nil
}

// whilePaused handles one Paused beat: explicit resume signal, auto-resume
// eligibility, or a bounded-probability contemplative side activity that
// never touches the queue. Returns stop=true on operator interrupt.
func (l *Loop) whilePaused(ctx context.Context) (stop bool, err error) {
	rec, err := l.ledger.Current()
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil // raced with an external resume
	}

	now := l.now()
	explicit := l.store.Exists(l.cfg.ResumeSignalPath())
	if explicit || l.ledger.ShouldResume(rec, now) {
		if explicit {
			_ = l.store.Remove(l.cfg.ResumeSignalPath())
		}
		if err := l.ledger.Resume(); err != nil {
			return false, fmt.Errorf("resume: %w", err)
		}
		// A fresh quota window: full-intensity budget, counter at zero.
		l.iteration = 0
		l.tracker.ResetSession()
		l.event("resumed", "", "", string(rec.Reason))
		l.log.Info().Str("reason", string(rec.Reason)).Msg("loop resumed")
		l.notifyf("resuming after %s pause", rec.Reason)
		return false, nil
	}

	if l.chance() < l.cfg.Loop.ContemplativeChance {
		if err := l.executeContemplative(ctx); err != nil {
			l.log.Error().Err(err).Msg("contemplative execution failed")
		}
		if l.stopReason != "" {
			return true, nil
		}
	}

	return l.sleep(ctx, l.cfg.Loop.IntervalDuration()), nil
}

// notifyf reports outward, best-effort.
func (l *Loop) notifyf(format string, args ...any) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Send(fmt.Sprintf(format, args...)); err != nil {
		l.log.Warn().Err(err).Msg("outbound notification failed")
	}
}

// event appends to the loop ledger, best-effort.
func (l *Loop) event(event, mode, project, detail string) {
	if l.db == nil {
		return
	}
	if err := l.db.LogLoopEvent(l.runID, l.iteration, event, mode, project, detail); err != nil {
		l.log.Warn().Err(err).Msg("loop event write failed")
	}
}

// missionEvent appends to the mission ledger, best-effort.
func (l *Loop) missionEvent(m queue.Mission, event, detail string) {
	if l.db == nil {
		return
	}
	if err := l.db.LogMissionEvent(l.runID, m.Text, m.Project, event, detail); err != nil {
		l.log.Warn().Err(err).Msg("mission event write failed")
	}
}

// stopRequested checks the stop marker file.
func (l *Loop) stopRequested() bool {
	return l.store.Exists(l.cfg.StopMarkerPath())
}

// shutdown flushes state, notifies, and exits cleanly.
func (l *Loop) shutdown(why string) error {
	l.event("stopped", "", "", why)
	l.log.Info().Str("why", why).Msg("run-loop stopping")
	l.notifyf("run-loop stopping: %s", why)
	return nil
}

// sleep waits out the iteration interval. A control marker appearing in the
// state directory cuts the sleep short so the loop re-checks its markers.
// Returns true when an operator interrupt arrived while idle, which means
// clean shutdown.
func (l *Loop) sleep(ctx context.Context, d time.Duration) (stopped bool) {
	if d <= 0 {
		return false
	}
	var wake <-chan string
	if l.control != nil {
		wake = l.control.events
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-wake:
		return false
	case <-ctx.Done():
		return false
	case <-l.sigCh:
		return true
	}
}
