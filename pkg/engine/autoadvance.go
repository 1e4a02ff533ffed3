package engine

import (
	"context"
	"time"
)

// AutoAdvance runs turns in the background at the session's time
// multiplier until ctx is cancelled, StopAutoAdvance is called, or turns
// turns have run. turns <= 0 means no limit. Calling it while already
// running is a no-op.
func (g *Game) AutoAdvance(ctx context.Context, turns int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.flight == nil {
		return ErrNoFlight
	}
	if g.autoCancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	g.autoCancel = cancel
	g.autoDone = done

	go func() {
		defer close(done)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
		g.autoLoop(runCtx, turns)
		g.mu.Lock()
		if g.autoDone == done {
			g.autoCancel = nil
			g.autoDone = nil
		}
		g.mu.Unlock()
	}()

	g.logger.Debug(ctx, "auto-advance started", "turns", turns, "period", g.turnPeriodLocked().String())
	return nil
}

func (g *Game) autoLoop(ctx context.Context, turns int) {
	for n := 0; turns <= 0 || n < turns; n++ {
		period := g.TurnPeriod()
		start := time.Now()

		if !g.halfTurn(ctx, true) {
			return
		}
		if !sleep(ctx, period/3) {
			return
		}
		if !g.halfTurn(ctx, false) {
			return
		}
		if !sleep(ctx, period-time.Since(start)) {
			return
		}
	}
}

// halfTurn runs the first or second sub-step of a turn. It reports false
// when the loop should end.
func (g *Game) halfTurn(ctx context.Context, first bool) bool {
	g.mu.Lock()
	if ctx.Err() != nil || g.flight == nil {
		g.mu.Unlock()
		return false
	}
	if first {
		g.beginTurnLocked()
		g.advanceTimeLocked(0.5)
	} else {
		g.advanceTimeLocked(0.5)
		g.finishTurnLocked()
	}
	g.unlockAndPublish()
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// StopAutoAdvance stops background turns and waits for the loop to exit.
func (g *Game) StopAutoAdvance() {
	g.mu.Lock()
	done := g.autoDone
	g.stopAutoAdvanceLocked()
	g.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (g *Game) stopAutoAdvanceLocked() {
	if g.autoCancel != nil {
		g.autoCancel()
	}
	g.autoCancel = nil
	g.autoDone = nil
}

// AutoAdvancing reports whether background turns are running.
func (g *Game) AutoAdvancing() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.autoCancel != nil
}
