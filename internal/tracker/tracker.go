// Package tracker classifies playback boundaries into skips and listens by
// dwell time and keeps the consecutive-run counters and AI trigger history
// the Auto-DJ decision loops read.
package tracker

import (
	"sync"
	"time"
)

// Outcome is the classification of one track boundary.
type Outcome int

const (
	// OutcomeNone means the boundary was suppressed (rescue mode) or carried
	// no track.
	OutcomeNone Outcome = iota
	OutcomeSkipped
	OutcomeListened
)

// Strategy is the escalating oracle-seeding posture derived from how many
// times the AI has already intervened this session.
type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyExploratory  Strategy = "exploratory"
	StrategyRefined      Strategy = "refined"
)

// SkipEvent records one classified boundary.
type SkipEvent struct {
	TrackURI   string
	TrackName  string
	Artist     string
	ListenSecs float64
	Timestamp  time.Time
	WasSkipped bool
}

// TriggerHistory is the process-lifetime record of AI interventions.
type TriggerHistory struct {
	TriggerCount    int
	LastTriggerTime time.Time
	LastPickedTrack string
	Strategy        Strategy
}

const recentSkipWindow = 20

// Tracker is the per-session dwell-time classifier. Safe for use from
// overlapping callbacks.
type Tracker struct {
	mu sync.Mutex

	threshold time.Duration

	consecutiveSkips   int
	consecutiveListens int
	listenRunProcessed bool

	rescueMode bool

	events  []SkipEvent
	history TriggerHistory

	now func() time.Time
}

// New constructs a tracker with the given skip threshold.
func New(threshold time.Duration) *Tracker {
	return &Tracker{
		threshold: threshold,
		history:   TriggerHistory{Strategy: StrategyConservative},
		now:       time.Now,
	}
}

// WithClock overrides the tracker's time source (tests).
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now != nil {
		t.now = now
	}
	return t
}

// RecordBoundary classifies the track that just ended. A dwell time at or
// above the threshold counts as listened; anything shorter is a skip.
// While rescue mode is set classification is suppressed entirely so the
// orchestrator's own rapid track swaps are not counted as user skips.
func (t *Tracker) RecordBoundary(uri, name, artist string, listened time.Duration) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rescueMode || uri == "" {
		return OutcomeNone
	}

	wasSkipped := listened < t.threshold
	event := SkipEvent{
		TrackURI:   uri,
		TrackName:  name,
		Artist:     artist,
		ListenSecs: listened.Seconds(),
		Timestamp:  t.now(),
		WasSkipped: wasSkipped,
	}
	t.events = append(t.events, event)
	if len(t.events) > recentSkipWindow {
		t.events = t.events[len(t.events)-recentSkipWindow:]
	}

	if wasSkipped {
		t.consecutiveSkips++
		t.consecutiveListens = 0
		return OutcomeSkipped
	}
	t.consecutiveSkips = 0
	t.consecutiveListens++
	t.listenRunProcessed = false
	return OutcomeListened
}

// ConsecutiveSkips returns the current uninterrupted skip run.
func (t *Tracker) ConsecutiveSkips() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consecutiveSkips
}

// ConsecutiveListens returns the current uninterrupted listen run.
func (t *Tracker) ConsecutiveListens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consecutiveListens
}

// UnprocessedListenRun returns the listen run length when the expansion
// loop has not yet acted on it.
func (t *Tracker) UnprocessedListenRun() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listenRunProcessed {
		return t.consecutiveListens, false
	}
	return t.consecutiveListens, true
}

// MarkListenRunProcessed latches the current listen run so it cannot
// re-trigger an expansion until a new listen arrives.
func (t *Tracker) MarkListenRunProcessed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listenRunProcessed = true
}

// ResetSkips clears the skip run. The rescue loop calls this before its
// network fetch so a second skip mid-rescue cannot double-fire.
func (t *Tracker) ResetSkips() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveSkips = 0
}

// SetRescueMode toggles classification suppression.
func (t *Tracker) SetRescueMode(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rescueMode = on
}

// RescueMode reports whether classification is currently suppressed.
func (t *Tracker) RescueMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rescueMode
}

// RecentSkips returns up to limit of the latest skipped boundaries, newest
// last.
func (t *Tracker) RecentSkips(limit int) []SkipEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var skips []SkipEvent
	for _, event := range t.events {
		if event.WasSkipped {
			skips = append(skips, event)
		}
	}
	if limit > 0 && len(skips) > limit {
		skips = skips[len(skips)-limit:]
	}
	return skips
}

// RecordAITrigger notes an AI intervention: both runs reset, the trigger
// count advances, and the strategy is recomputed from the new count.
func (t *Tracker) RecordAITrigger(pickedTrack string) TriggerHistory {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveSkips = 0
	t.consecutiveListens = 0
	t.listenRunProcessed = false
	t.history.TriggerCount++
	t.history.LastTriggerTime = t.now()
	t.history.LastPickedTrack = pickedTrack
	t.history.Strategy = strategyFor(t.history.TriggerCount)
	return t.history
}

// History returns a copy of the trigger history.
func (t *Tracker) History() TriggerHistory {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history
}

// Reset returns the tracker to its initial state for a new listening
// session.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveSkips = 0
	t.consecutiveListens = 0
	t.listenRunProcessed = false
	t.rescueMode = false
	t.events = nil
	t.history = TriggerHistory{Strategy: StrategyConservative}
}

// strategyFor derives the posture strictly from the trigger count.
func strategyFor(count int) Strategy {
	switch {
	case count <= 0:
		return StrategyConservative
	case count == 1:
		return StrategyExploratory
	default:
		return StrategyRefined
	}
}
