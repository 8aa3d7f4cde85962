package trader

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// healLoop periodically repairs the orchestrator: purges expired
// pending-trade entries, resets a stuck executing flag when no progress
// has been observed, and restarts the dispatch loop if its heartbeat
// goes stale.
func (t *Trader) healLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.healInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.heal(ctx)
		}
	}
}

func (t *Trader) heal(ctx context.Context) {
	if purged := t.pending.purgeOlderThan(t.pendingTimeout); purged > 0 {
		HealActionsTotal.WithLabelValues("purge_pending").Add(float64(purged))
		t.logger.Warn("stale-pending-trades-purged", zap.Int("count", purged))
	}

	sinceProgress := time.Since(time.Unix(0, t.lastProgress.Load()))
	if owner := t.executing.Load(); owner != 0 && sinceProgress > t.stuckResetAfter {
		// Release only the observed owner. The stalled batch's own
		// deferred release then no-ops, and a batch claimed after this
		// reset keeps its token.
		if t.executing.CompareAndSwap(owner, 0) {
			HealActionsTotal.WithLabelValues("reset_executing").Inc()
			t.logger.Warn("stuck-executing-flag-reset",
				zap.Duration("since_progress", sinceProgress))
		}
	}

	staleAfter := 3 * t.batchInterval
	if staleAfter < t.stuckResetAfter {
		staleAfter = t.stuckResetAfter
	}

	sinceBeat := time.Since(time.Unix(0, t.beat.Load()))
	if sinceBeat > staleAfter {
		HealActionsTotal.WithLabelValues("restart_dispatch").Inc()
		t.logger.Warn("dispatch-loop-restarted",
			zap.Duration("since_heartbeat", sinceBeat))
		t.startDispatchLoop(ctx)
	}
}
