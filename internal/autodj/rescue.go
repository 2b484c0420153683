package autodj

import (
	"context"

	"moodify/internal/health"
	"moodify/internal/logging"
	"moodify/internal/oplock"
	"moodify/internal/services/oracle"
)

const rescueTrackCount = 8

// maybeRescue fires the rescue path when the skip run crossed the
// threshold and no operation is in flight. Returns whether a rescue ran.
//
// The path is eager: the skip counter is reset and rescue mode raised
// BEFORE the oracle round-trip, so a skip landing mid-rescue can neither
// re-trigger rescue nor count against the listener.
func (o *Orchestrator) maybeRescue(ctx context.Context) bool {
	if o.tracker.ConsecutiveSkips() < o.cfg.RescueSkipCount {
		return false
	}
	if o.lock.Held() {
		return false
	}

	o.tracker.SetRescueMode(true)
	o.tracker.ResetSkips()

	err := o.lock.Do(ctx, o.runRescue)
	if err != nil {
		if err != oplock.ErrBusy {
			o.surface.Publish(health.SubsystemAutoDJ, err)
			o.logger.Warn("rescue failed; will retry on next skip run", logging.Error(err))
		}
		// Allow the next skip run to retry cleanly.
		o.tracker.ResetSkips()
	}
	o.tracker.SetRescueMode(false)
	return err == nil
}

func (o *Orchestrator) runRescue(ctx context.Context) error {
	history := o.tracker.History()

	var skips []oracle.SkipContext
	for _, event := range o.tracker.RecentSkips(o.cfg.RescueSkipCount * 2) {
		skips = append(skips, oracle.SkipContext{
			Title:      event.TrackName,
			Artist:     event.Artist,
			ListenSecs: event.ListenSecs,
		})
	}

	rescue, err := o.oracle.RescueVibe(ctx, oracle.RescueSeed{
		RecentSkips: skips,
		Strategy:    string(history.Strategy),
		Count:       rescueTrackCount,
	})
	if err != nil {
		o.surface.Publish(health.SubsystemOracle, err)
		return err
	}

	tracks := o.resolveSuggestions(ctx, rescue.Items)
	if len(tracks) == 0 {
		o.surface.Publish(health.SubsystemOracle, errNoPlayableRescue)
		return errNoPlayableRescue
	}

	report, err := o.queue.ReplaceQueue(ctx, tracks)
	if err != nil {
		o.surface.Publish(health.SubsystemPlayer, err)
		return err
	}

	// New vibe: flush the rejected session into the graph under its old
	// label before adopting the rescue's direction.
	o.flushSession(ctx, rescue.Vibe)

	picked := tracks[0].Title
	o.tracker.RecordAITrigger(picked)
	o.surface.Clear(health.SubsystemOracle)
	o.surface.Clear(health.SubsystemAutoDJ)

	o.logger.Info("rescue replaced the queue",
		logging.String(logging.FieldVibe, rescue.Vibe),
		logging.String("picked", picked),
		logging.Int("enqueued", len(report.Enqueued)),
		logging.Int("failed", len(report.Failed)),
	)
	return nil
}
