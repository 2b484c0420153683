package autodj

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"moodify/internal/config"
	"moodify/internal/graph"
	"moodify/internal/health"
	"moodify/internal/logging"
	"moodify/internal/oplock"
	"moodify/internal/playback"
	"moodify/internal/services/oracle"
	"moodify/internal/tracker"
)

// Oracle is the recommendation surface the orchestrator consumes.
type Oracle interface {
	ExpandVibe(ctx context.Context, seed oracle.ExpansionSeed) (oracle.Expansion, error)
	RescueVibe(ctx context.Context, seed oracle.RescueSeed) (oracle.Rescue, error)
}

// Resolver turns a title/artist suggestion into a playable track.
type Resolver interface {
	SearchTrack(ctx context.Context, title, artist string) (*playback.Track, error)
}

// Orchestrator drives the queue from tracker output.
type Orchestrator struct {
	cfg     config.AutoDJ
	tracker *tracker.Tracker
	lock    *oplock.Lock
	queue   *playback.Reconciler
	graph   *graph.Service
	oracle  Oracle
	resolve Resolver
	surface *health.Surface
	logger  *slog.Logger

	mu            sync.Mutex
	vibe          string
	session       []graph.SessionSong
	heard         map[string]struct{}
	lastExpansion time.Time

	now func() time.Time
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs the orchestrator. Every collaborator is passed in
// explicitly; the orchestrator owns no ambient state.
func New(cfg config.AutoDJ, trk *tracker.Tracker, lock *oplock.Lock, queue *playback.Reconciler, graphSvc *graph.Service, orc Oracle, resolve Resolver, surface *health.Surface, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		tracker: trk,
		lock:    lock,
		queue:   queue,
		graph:   graphSvc,
		oracle:  orc,
		resolve: resolve,
		surface: surface,
		logger:  logging.NewComponentLogger(logger, "autodj"),
		heard:   make(map[string]struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Vibe returns the current session mood label.
func (o *Orchestrator) Vibe() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vibe
}

// StartSession begins a fresh listening session under the given vibe,
// flushing any previous session into the graph first.
func (o *Orchestrator) StartSession(ctx context.Context, vibe string) {
	o.flushSession(ctx, vibe)
	o.tracker.Reset()
}

// HandleBoundary processes one track boundary from the poller: classify,
// record session history, then evaluate both triggers.
func (o *Orchestrator) HandleBoundary(ctx context.Context, track playback.Track, listened time.Duration) {
	outcome := o.tracker.RecordBoundary(track.URI, track.Title, track.Artist, listened)
	if outcome == tracker.OutcomeNone {
		return
	}

	status := graph.SongPlayed
	if outcome == tracker.OutcomeSkipped {
		status = graph.SongSkipped
	}
	o.mu.Lock()
	o.session = append(o.session, graph.SessionSong{
		URI:      track.URI,
		Title:    track.Title,
		Artist:   track.Artist,
		Status:   status,
		ListenMs: listened.Milliseconds(),
	})
	o.heard[track.URI] = struct{}{}
	o.mu.Unlock()

	o.CheckTriggers(ctx)
}

// CheckTriggers evaluates the rescue and expansion conditions. Also called
// on queue syncs so a draining queue can trigger expansion between
// boundaries.
func (o *Orchestrator) CheckTriggers(ctx context.Context) {
	if o.maybeRescue(ctx) {
		return
	}
	o.maybeExpand(ctx)
}

// flushSession commits the finished vibe's history to the graph and starts
// a new one. Commit failures are surfaced but never abort the session swap:
// the graph ends up stale, not inconsistent.
func (o *Orchestrator) flushSession(ctx context.Context, nextVibe string) {
	o.mu.Lock()
	previous := o.vibe
	entries := o.session
	o.vibe = nextVibe
	o.session = nil
	o.heard = make(map[string]struct{})
	o.mu.Unlock()

	if previous == "" || len(entries) == 0 {
		return
	}
	if err := o.graph.CommitSession(ctx, previous, entries); err != nil {
		o.surface.Publish(health.SubsystemGraph, err)
		o.logger.Warn("session commit failed; graph unchanged",
			logging.String(logging.FieldVibe, previous),
			logging.Error(err),
		)
	}
}

// heardSet snapshots the URIs already encountered this session.
func (o *Orchestrator) heardSet() map[string]struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	set := make(map[string]struct{}, len(o.heard))
	for uri := range o.heard {
		set[uri] = struct{}{}
	}
	return set
}

// resolveSuggestions maps oracle output onto playable tracks, dropping
// anything the resolver cannot place.
func (o *Orchestrator) resolveSuggestions(ctx context.Context, items []oracle.TrackSuggestion) []playback.Track {
	tracks := make([]playback.Track, 0, len(items))
	for _, item := range items {
		if item.URI != "" {
			tracks = append(tracks, playback.Track{
				Title:  item.Title,
				Artist: item.Artist,
				URI:    item.URI,
				Origin: playback.OriginAPI,
			})
			continue
		}
		if o.resolve == nil {
			continue
		}
		track, err := o.resolve.SearchTrack(ctx, item.Title, item.Artist)
		if err != nil {
			o.logger.Debug("suggestion did not resolve",
				logging.String("title", item.Title),
				logging.Error(err),
			)
			continue
		}
		tracks = append(tracks, *track)
	}
	return tracks
}
