package autodj

import (
	"context"
	"time"

	"moodify/internal/graph"
	"moodify/internal/health"
	"moodify/internal/logging"
	"moodify/internal/playback"
	"moodify/internal/services/oracle"
)

const expansionTrackCount = 5

// maybeExpand fires the expansion path when the queue is running low or
// the listener has settled into a sustained listen run, subject to the
// expansion cooldown.
//
// The path is cooperative: if an operation holds the lock, it waits for
// the holder to finish and then re-evaluates the trigger instead of
// queuing its own action behind it.
func (o *Orchestrator) maybeExpand(ctx context.Context) {
	for {
		if !o.expansionDue() {
			return
		}
		if o.lock.TryAcquire() {
			break
		}
		if err := o.lock.WaitForCurrent(ctx); err != nil {
			return
		}
		// Holder finished; the world may have changed, so re-check.
	}
	defer o.lock.Release()

	if err := o.runExpansion(ctx); err != nil {
		// A failed attempt still arms the cooldown, so a down oracle is
		// not hammered on every sync and boundary.
		o.mu.Lock()
		o.lastExpansion = o.now()
		o.mu.Unlock()
		o.surface.Publish(health.SubsystemAutoDJ, err)
		o.logger.Warn("expansion failed", logging.Error(err))
	}
}

// expansionDue evaluates the two trigger conditions and the cooldown.
func (o *Orchestrator) expansionDue() bool {
	o.mu.Lock()
	last := o.lastExpansion
	o.mu.Unlock()
	cooldown := time.Duration(o.cfg.ExpansionCooldownSeconds) * time.Second
	if !last.IsZero() && o.now().Sub(last) < cooldown {
		return false
	}

	remaining := o.queue.RemainingQueue()
	if remaining > 0 && remaining <= o.cfg.QueueLowWater {
		return true
	}

	listens, unprocessed := o.tracker.UnprocessedListenRun()
	return unprocessed && listens >= o.cfg.ExpandListenCount
}

func (o *Orchestrator) runExpansion(ctx context.Context) error {
	snapshot := o.queue.Snapshot()
	if snapshot.Current == nil {
		return nil
	}
	seedURI := snapshot.Current.URI
	history := o.tracker.History()

	expansion, err := o.oracle.ExpandVibe(ctx, oracle.ExpansionSeed{
		CurrentTitle:  snapshot.Current.Title,
		CurrentArtist: snapshot.Current.Artist,
		Mood:          o.Vibe(),
		Strategy:      string(history.Strategy),
		Count:         expansionTrackCount,
	})

	var tracks []playback.Track
	if err != nil {
		o.surface.Publish(health.SubsystemOracle, err)
		tracks = o.graphFallback(ctx, seedURI)
		if len(tracks) == 0 {
			return err
		}
		o.logger.Info("oracle unavailable; expanding from the taste graph",
			logging.Int("tracks", len(tracks)))
	} else {
		tracks = o.resolveSuggestions(ctx, expansion.Items)
	}

	// The fetch may have straddled a rescue or a manual context switch;
	// results for a track that is no longer playing are dropped.
	if o.queue.CurrentURI() != seedURI {
		o.logger.Debug("expansion result arrived after the context moved on; dropped")
		return nil
	}

	tracks = o.filterHeard(tracks)
	if len(tracks) == 0 {
		return nil
	}

	accepted, err := o.queue.AppendQueue(ctx, tracks)
	if err != nil {
		o.surface.Publish(health.SubsystemPlayer, err)
		return err
	}

	o.mu.Lock()
	o.lastExpansion = o.now()
	if expansion.Mood != "" && expansion.Mood != o.vibe {
		o.vibe = expansion.Mood
	}
	o.mu.Unlock()
	o.tracker.MarkListenRunProcessed()
	o.surface.Clear(health.SubsystemAutoDJ)

	o.logger.Info("queue expanded",
		logging.String(logging.FieldVibe, o.Vibe()),
		logging.Int("accepted", len(accepted)),
	)
	return nil
}

// filterHeard drops tracks the listener already met this session.
func (o *Orchestrator) filterHeard(tracks []playback.Track) []playback.Track {
	heard := o.heardSet()
	var out []playback.Track
	for _, t := range tracks {
		if _, seen := heard[t.URI]; seen {
			continue
		}
		out = append(out, t)
	}
	return out
}

// graphFallback asks the taste graph for the strongest not-heard-today
// successor of the seed track when the oracle is unavailable.
func (o *Orchestrator) graphFallback(ctx context.Context, seedURI string) []playback.Track {
	node, err := o.graph.NodeByExternalID(ctx, seedURI)
	if err != nil || node == nil {
		return nil
	}
	next, err := o.graph.NextSuggested(ctx, node.ID)
	if err != nil || next == nil {
		return nil
	}
	attrs, ok := next.Attrs.(graph.SongAttrs)
	if !ok || attrs.URI == "" {
		return nil
	}
	return []playback.Track{{
		Title:  next.Name,
		Artist: attrs.Artist,
		URI:    attrs.URI,
		Origin: playback.OriginAPI,
	}}
}
