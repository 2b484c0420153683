package playback

import (
	"context"

	"moodify/internal/logging"
	"moodify/internal/services"
)

// EnqueueFailure reports one track a queue operation could not submit.
type EnqueueFailure struct {
	Track Track
	Err   error
}

// ReplaceReport summarizes a replace-queue operation.
type ReplaceReport struct {
	Played   *Track
	Enqueued []Track
	Failed   []EnqueueFailure
}

// ReplaceQueue swaps the whole playing context for the given tracks. The
// first track is started with a bare play command, which clears the remote
// context and pins the ordering; the rest are enqueued sequentially under
// the rate limiter. Individual enqueue failures are reported without
// aborting the remainder.
func (r *Reconciler) ReplaceQueue(ctx context.Context, tracks []Track) (ReplaceReport, error) {
	if len(tracks) == 0 {
		return ReplaceReport{}, services.Wrap(services.ErrValidation, "playback", "replace", "no tracks to play", nil)
	}

	first := tracks[0]
	rest := tracks[1:]

	r.mu.Lock()
	r.queueModifying = true
	current := first
	current.Origin = OriginOptimistic
	queue := make([]Track, len(rest))
	for i, t := range rest {
		t.Origin = OriginOptimistic
		queue[i] = t
	}
	r.state = State{
		Current:   &current,
		Queue:     queue,
		IsPlaying: true,
	}
	r.markOptimistic()
	r.mu.Unlock()

	defer r.clearQueueModifying()

	if err := r.player.Play(ctx, first.URI); err != nil {
		return ReplaceReport{}, err
	}

	report := ReplaceReport{Played: &current}
	for _, t := range rest {
		if err := r.limiter.Wait(ctx); err != nil {
			return report, err
		}
		if err := r.player.AddToQueue(ctx, t.URI); err != nil {
			report.Failed = append(report.Failed, EnqueueFailure{Track: t, Err: err})
			r.logger.Warn("enqueue failed during replace",
				logging.String(logging.FieldTrackURI, t.URI),
				logging.Error(err),
			)
			continue
		}
		report.Enqueued = append(report.Enqueued, t)
	}

	r.touchOptimistic()
	return report, nil
}

// AppendQueue adds tracks to the end of the queue, deduplicating against
// the current queue and the now-playing track first. It returns the tracks
// actually accepted.
func (r *Reconciler) AppendQueue(ctx context.Context, tracks []Track) ([]Track, error) {
	unique := r.dedupeAgainstState(tracks)
	if len(unique) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	r.queueModifying = true
	r.mu.Unlock()
	defer r.clearQueueModifying()

	var accepted []Track
	for _, t := range unique {
		if err := r.limiter.Wait(ctx); err != nil {
			return accepted, err
		}
		if err := r.player.AddToQueue(ctx, t.URI); err != nil {
			r.logger.Warn("enqueue failed during append",
				logging.String(logging.FieldTrackURI, t.URI),
				logging.Error(err),
			)
			continue
		}
		t.Origin = OriginOptimistic
		accepted = append(accepted, t)
	}

	if len(accepted) > 0 {
		r.mu.Lock()
		r.state.Queue = append(r.state.Queue, accepted...)
		r.markOptimistic()
		r.mu.Unlock()
	}
	return accepted, nil
}

// Play starts or resumes playback optimistically.
func (r *Reconciler) Play(ctx context.Context, uris ...string) error {
	r.mu.Lock()
	r.state.IsPlaying = true
	r.markOptimistic()
	r.mu.Unlock()
	return r.player.Play(ctx, uris...)
}

// Pause halts playback optimistically.
func (r *Reconciler) Pause(ctx context.Context) error {
	r.mu.Lock()
	r.state.IsPlaying = false
	r.markOptimistic()
	r.mu.Unlock()
	return r.player.Pause(ctx)
}

// SkipNext advances to the next queued track optimistically.
func (r *Reconciler) SkipNext(ctx context.Context) error {
	r.mu.Lock()
	if len(r.state.Queue) > 0 {
		next := r.state.Queue[0]
		next.Origin = OriginOptimistic
		r.state.Current = &next
		r.state.Queue = r.state.Queue[1:]
		r.state.ProgressMs = 0
	}
	r.markOptimistic()
	r.mu.Unlock()
	return r.player.Next(ctx)
}

// SkipPrevious steps back one track.
func (r *Reconciler) SkipPrevious(ctx context.Context) error {
	r.mu.Lock()
	r.markOptimistic()
	r.mu.Unlock()
	return r.player.Previous(ctx)
}

func (r *Reconciler) dedupeAgainstState(tracks []Track) []Track {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(r.state.Queue)+1)
	if r.state.Current != nil {
		seen[r.state.Current.URI] = struct{}{}
	}
	for _, t := range r.state.Queue {
		seen[t.URI] = struct{}{}
	}

	var unique []Track
	for _, t := range tracks {
		if t.URI == "" {
			continue
		}
		if _, dup := seen[t.URI]; dup {
			continue
		}
		seen[t.URI] = struct{}{}
		unique = append(unique, t)
	}
	return unique
}

func (r *Reconciler) clearQueueModifying() {
	r.mu.Lock()
	r.queueModifying = false
	r.mu.Unlock()
}

// touchOptimistic refreshes the watermark after a long-running mutation so
// the suppression window covers its tail, not just its start.
func (r *Reconciler) touchOptimistic() {
	r.mu.Lock()
	r.markOptimistic()
	r.mu.Unlock()
}
