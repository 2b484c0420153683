package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"moodify/internal/logging"
)

// syncSuppressWindow is how long after an optimistic write synchronized
// polls are discarded, covering the remote propagation delay.
const syncSuppressWindow = 1500 * time.Millisecond

// enqueueInterval paces sequential add-to-queue calls during a replace so
// the remote API keeps the submitted order.
const enqueueInterval = 250 * time.Millisecond

// Player is the remote mutation surface the reconciler drives. Observing
// the remote (state and queue polls) belongs to the poller, which feeds
// the observations back in through ApplySync.
type Player interface {
	Play(ctx context.Context, uris ...string) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	AddToQueue(ctx context.Context, uri string) error
}

// Reconciler keeps the local player view consistent against the remote
// player. All queue mutations go through its apply path; nothing else
// writes the shared state.
type Reconciler struct {
	player Player
	logger *slog.Logger

	mu             sync.Mutex
	state          State
	lastOptimistic time.Time
	queueModifying bool
	revision       uint64

	limiter *rate.Limiter
	now     func() time.Time
}

// Option customizes the reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithEnqueueLimiter overrides the pacing of sequential enqueue calls.
func WithEnqueueLimiter(limiter *rate.Limiter) Option {
	return func(r *Reconciler) {
		if limiter != nil {
			r.limiter = limiter
		}
	}
}

// NewReconciler constructs a reconciler over the given player.
func NewReconciler(player Player, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		player:  player,
		logger:  logging.NewComponentLogger(logger, "playback"),
		limiter: rate.NewLimiter(rate.Every(enqueueInterval), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns a copy of the current local view.
func (r *Reconciler) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Current:    cloneTrack(r.state.Current),
		Queue:      cloneQueue(r.state.Queue),
		IsPlaying:  r.state.IsPlaying,
		ProgressMs: r.state.ProgressMs,
	}
}

// Revision returns a counter that advances on every state write. Callers
// snapshot it before an asynchronous operation and re-check it before
// applying the result, dropping results whose context moved on.
func (r *Reconciler) Revision() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision
}

// CurrentURI returns the now-playing track URI, or empty.
func (r *Reconciler) CurrentURI() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Current == nil {
		return ""
	}
	return r.state.Current.URI
}

// RemainingQueue returns how many tracks are queued after the current one.
func (r *Reconciler) RemainingQueue() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.Queue)
}

// ApplySync applies a synchronized observation unless it is stale: begun
// before the latest optimistic write, inside the suppression window, or
// while a queue modification is in flight. The fetch-start timestamp must
// be captured before the network round-trip so staleness is judged against
// when the observation began, not when it arrived. A nil remote queue means
// the queue was not observed this poll and the local view is kept; an empty
// non-nil queue is an observation and drains the local queue.
func (r *Reconciler) ApplySync(remote RemoteState, fetchStart time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.queueModifying {
		return false
	}
	if !r.lastOptimistic.IsZero() {
		if fetchStart.Before(r.lastOptimistic) || r.now().Sub(r.lastOptimistic) < syncSuppressWindow {
			return false
		}
	}

	current := cloneTrack(remote.Current)
	if current != nil {
		current.Origin = OriginSync
	}
	queue := cloneQueue(remote.Queue)
	for i := range queue {
		queue[i].Origin = OriginSync
	}
	if remote.Queue == nil {
		queue = r.state.Queue
	}
	r.state = State{
		Current:    current,
		Queue:      queue,
		IsPlaying:  remote.IsPlaying,
		ProgressMs: remote.ProgressMs,
	}
	r.revision++
	return true
}

// markOptimistic must be called with the mutex held.
func (r *Reconciler) markOptimistic() {
	r.lastOptimistic = r.now()
	r.revision++
}
