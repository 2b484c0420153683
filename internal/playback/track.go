package playback

// Origin records which writer last produced a piece of state.
type Origin string

const (
	// OriginAPI marks state built from a direct API response.
	OriginAPI Origin = "api"
	// OriginSync marks state written by the periodic remote poll.
	OriginSync Origin = "sync"
	// OriginOptimistic marks state written locally before the corresponding
	// remote call completed.
	OriginOptimistic Origin = "optimistic"
)

// Track is the one queue item shape every collaborator shares.
type Track struct {
	Title      string
	Artist     string
	URI        string
	Artwork    string
	DurationMs int64
	Origin     Origin
}

// State is a snapshot of the local player view.
type State struct {
	Current    *Track
	Queue      []Track
	IsPlaying  bool
	ProgressMs int64
}

// RemoteState is what a synchronized poll observed.
type RemoteState struct {
	Current    *Track
	Queue      []Track
	IsPlaying  bool
	ProgressMs int64
}

func cloneTrack(t *Track) *Track {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

func cloneQueue(queue []Track) []Track {
	if len(queue) == 0 {
		return nil
	}
	out := make([]Track, len(queue))
	copy(out, queue)
	return out
}
