// Package health is the shared per-subsystem error surface. Each subsystem
// keeps only its most recent typed error, so a consumer shows at most one
// banner per source.
package health

import (
	"sync"
	"time"

	"moodify/internal/services"
)

// Subsystem names the error sources the surface tracks.
type Subsystem string

const (
	SubsystemPlayer  Subsystem = "player"
	SubsystemOracle  Subsystem = "oracle"
	SubsystemGraph   Subsystem = "graph"
	SubsystemAutoDJ  Subsystem = "autodj"
	SubsystemTracker Subsystem = "tracker"
)

// Entry is one surfaced error.
type Entry struct {
	Subsystem Subsystem
	Err       error
	Kind      error // sentinel from the services taxonomy, nil when untyped
	At        time.Time
}

// Persistent reports whether the entry needs a user action rather than a
// transient banner.
func (e Entry) Persistent() bool {
	return e.Kind == services.ErrAuth
}

// Surface holds the latest error per subsystem.
type Surface struct {
	mu      sync.Mutex
	entries map[Subsystem]Entry
	now     func() time.Time
}

// NewSurface constructs an empty surface.
func NewSurface() *Surface {
	return &Surface{
		entries: make(map[Subsystem]Entry),
		now:     time.Now,
	}
}

// Publish records err as the subsystem's latest failure, replacing any
// previous one. A nil err clears the subsystem.
func (s *Surface) Publish(subsystem Subsystem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.entries, subsystem)
		return
	}
	s.entries[subsystem] = Entry{
		Subsystem: subsystem,
		Err:       err,
		Kind:      services.Classify(err),
		At:        s.now(),
	}
}

// Clear removes the subsystem's entry.
func (s *Surface) Clear(subsystem Subsystem) {
	s.Publish(subsystem, nil)
}

// Latest returns the subsystem's current entry, if any.
func (s *Surface) Latest(subsystem Subsystem) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[subsystem]
	return entry, ok
}

// Snapshot returns every subsystem's current entry.
func (s *Surface) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	return entries
}
