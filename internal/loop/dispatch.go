package loop

import (
	"context"
	"time"

	"github.com/sukria/koan-sub000/internal/executor"
)

// dispatch runs one request under interrupt supervision and classifies the
// response. A first operator interrupt while the tool is working only warns;
// a second within the grace window cancels the child and schedules shutdown
// after the iteration settles. Returns (nil, true) when the work was aborted.
func (l *Loop) dispatch(ctx context.Context, req executor.Request) (*executor.Result, bool) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		resp *executor.Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := l.runner.Run(runCtx, req)
		done <- outcome{resp, err}
	}()

	grace := l.cfg.Loop.InterruptGraceDuration()
	var graceUntil time.Time
	aborted := false
	reason := ""
	ctxDone := ctx.Done()

	for {
		select {
		case out := <-done:
			if aborted {
				l.stopReason = reason
				return nil, true
			}
			if out.err != nil {
				l.log.Error().Err(out.err).Msg("execution failed")
				return nil, false
			}
			res := executor.Classify(out.resp)
			return &res, false

		case <-l.sigCh:
			now := l.now()
			if !graceUntil.IsZero() && now.Before(graceUntil) {
				l.log.Warn().Msg("second interrupt: terminating current work")
				l.notifyf("interrupt confirmed; aborting current work")
				aborted = true
				reason = "operator interrupt"
				cancel()
				graceUntil = time.Time{}
				continue
			}
			graceUntil = now.Add(grace)
			l.log.Warn().Dur("grace", grace).Msg("interrupt received while working; interrupt again to abort")
			l.notifyf("still working; interrupt again within %s to abort", grace)

		case <-ctxDone:
			// Parent shutdown: cancel the child and wait for it to settle.
			cancel()
			aborted = true
			reason = "context canceled"
			ctxDone = nil
		}
	}
}
