package spotify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"moodify/internal/logging"
	"moodify/internal/playback"
)

// BoundaryKind classifies how a track ended.
type BoundaryKind string

const (
	// BoundarySkip means the track changed before it ran out.
	BoundarySkip BoundaryKind = "skip"
	// BoundaryFinish means the track played through to its end.
	BoundaryFinish BoundaryKind = "finish"
)

// finishSlackMs is how close to the end a track may stop and still count
// as finished; progress reporting is only as fresh as the last poll.
const finishSlackMs = 2000

// queuePollInterval paces the extra user-queue request alongside the state
// poll, so the local queue view drains as the remote plays through it
// without doubling the request rate at the active cadence.
const queuePollInterval = 5 * time.Second

// BoundaryFunc receives each detected track boundary.
type BoundaryFunc func(kind BoundaryKind, track playback.Track, listened time.Duration)

// StateFunc receives every successful state observation along with the
// time the fetch began.
type StateFunc func(state playback.RemoteState, fetchStart time.Time)

// Poller watches the remote player and reports track boundaries. One
// goroutine; intervals switch between an active and an idle cadence.
type Poller struct {
	client *Client
	logger *slog.Logger

	activeInterval time.Duration
	idleInterval   time.Duration

	onBoundary BoundaryFunc
	onState    StateFunc

	mu            sync.Mutex
	active        bool
	running       bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	lastSeen      *playback.Track
	lastProg      int64
	lastQueuePoll time.Time
}

// NewPoller constructs a poller over the given client.
func NewPoller(client *Client, logger *slog.Logger, activeInterval, idleInterval time.Duration, onBoundary BoundaryFunc, onState StateFunc) *Poller {
	if activeInterval <= 0 {
		activeInterval = time.Second
	}
	if idleInterval < activeInterval {
		idleInterval = activeInterval
	}
	return &Poller{
		client:         client,
		logger:         logging.NewComponentLogger(logger, "spotify-poller"),
		activeInterval: activeInterval,
		idleInterval:   idleInterval,
		onBoundary:     onBoundary,
		onState:        onState,
	}
}

// StartPolling begins watching the player. Calling it while running is a
// no-op.
func (p *Poller) StartPolling(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(runCtx)
}

// StopPolling halts the poll loop and waits for it to exit.
func (p *Poller) StopPolling() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// SetActive switches between the active and idle poll cadence.
func (p *Poller) SetActive(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

func (p *Poller) queuePollDue() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastQueuePoll.IsZero() || time.Since(p.lastQueuePoll) >= queuePollInterval
}

func (p *Poller) interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return p.activeInterval
	}
	return p.idleInterval
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.interval()):
		}
		p.pollOnce(ctx)
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	fetchStart := time.Now()
	state, err := p.client.CurrentState(ctx)
	if err != nil {
		// The next tick retries.
		p.logger.Debug("player poll failed", logging.Error(err))
		return
	}
	if state == nil || state.Current == nil {
		return
	}

	if p.queuePollDue() {
		queue, err := p.client.UserQueue(ctx)
		if err != nil {
			// Queue stays nil: the reconciler keeps its local view.
			p.logger.Debug("queue poll failed", logging.Error(err))
		} else {
			state.Queue = queue
			p.mu.Lock()
			p.lastQueuePoll = time.Now()
			p.mu.Unlock()
		}
	}

	if p.onState != nil {
		p.onState(*state, fetchStart)
	}

	p.mu.Lock()
	prev, prevProg := p.lastSeen, p.lastProg
	p.lastSeen = state.Current
	p.lastProg = state.ProgressMs
	p.mu.Unlock()

	if prev == nil || prev.URI == state.Current.URI {
		return
	}

	kind := BoundarySkip
	if prev.DurationMs > 0 && prevProg >= prev.DurationMs-finishSlackMs {
		kind = BoundaryFinish
	}
	if p.onBoundary != nil {
		p.onBoundary(kind, *prev, time.Duration(prevProg)*time.Millisecond)
	}
}
