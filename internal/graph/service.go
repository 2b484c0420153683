package graph

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"moodify/internal/config"
	"moodify/internal/logging"
)

const resolveCacheSize = 512

// Service is the taste graph API the rest of the system talks to. It layers
// identity resolution caching, session commits, and aggregate queries over
// the raw store.
type Service struct {
	store  *Store
	logger *slog.Logger
	tuning config.Graph

	// resolveCache short-circuits repeated resolutions of hot external ids.
	resolveCache *lru.Cache[string, int64]

	now func() time.Time
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithClock overrides how the service reads the current time (tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(g *Service) {
		if now != nil {
			g.now = now
		}
	}
}

// NewService constructs the taste graph service.
func NewService(store *Store, logger *slog.Logger, tuning config.Graph, opts ...ServiceOption) *Service {
	cache, _ := lru.New[string, int64](resolveCacheSize)
	svc := &Service{
		store:        store,
		logger:       logging.NewComponentLogger(logger, "graph"),
		tuning:       tuning,
		resolveCache: cache,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ResolveNode finds or creates a node, consulting the in-process cache
// before touching the database.
func (g *Service) ResolveNode(ctx context.Context, typ NodeType, name, externalID string, attrs NodeAttrs) (*Node, error) {
	if externalID != "" {
		if id, ok := g.resolveCache.Get(cacheKey(typ, externalID)); ok {
			node, err := g.store.NodeByID(ctx, id)
			if err == nil && node != nil {
				return node, nil
			}
			// Cache points at a row that no longer exists (reset or merge).
			g.resolveCache.Remove(cacheKey(typ, externalID))
		}
	}

	node, err := g.store.ResolveNode(ctx, typ, name, externalID, attrs)
	if err != nil {
		return nil, err
	}
	if node.ExternalID != "" {
		g.resolveCache.Add(cacheKey(typ, node.ExternalID), node.ID)
	}
	return node, nil
}

// NodeByExternalID looks up an existing node by external id without
// creating anything.
func (g *Service) NodeByExternalID(ctx context.Context, externalID string) (*Node, error) {
	return g.store.NodeByExternalID(ctx, externalID)
}

// Connect links two nodes or reinforces the existing edge using the
// configured increment and saturation cap.
func (g *Service) Connect(ctx context.Context, sourceID, targetID int64, typ EdgeType, baseWeight float64) error {
	return g.store.ConnectOrReinforce(ctx, sourceID, targetID, typ, baseWeight, g.tuning.WeightIncrement, g.tuning.WeightCap)
}

// Neighbors returns the strongest outgoing neighbors of a node.
func (g *Service) Neighbors(ctx context.Context, nodeID int64, limit int) ([]*Node, error) {
	return g.store.Neighbors(ctx, nodeID, limit)
}

// NextSuggested returns the strongest neighbor not already played during
// the current UTC calendar day, or nil when none qualifies.
func (g *Service) NextSuggested(ctx context.Context, nodeID int64) (*Node, error) {
	year, month, day := g.now().UTC().Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return g.store.NextSuggested(ctx, nodeID, dayStart)
}

// TopGenres returns the heaviest genres by aggregate HAS_GENRE weight.
func (g *Service) TopGenres(ctx context.Context, limit int) ([]GenreWeight, error) {
	return g.store.TopGenres(ctx, limit)
}

// SongsByGenres returns songs for the given genres, excluding URIs the
// listener has already heard this session.
func (g *Service) SongsByGenres(ctx context.Context, genres []string, limit int, exclude map[string]struct{}) ([]*Node, error) {
	normalized := make([]string, 0, len(genres))
	for _, genre := range genres {
		normalized = append(normalized, NormalizeGenre(genre))
	}
	return g.store.SongsByGenres(ctx, normalized, limit, exclude)
}

// Reset drops the whole graph and the resolution cache.
func (g *Service) Reset(ctx context.Context) error {
	if err := g.store.Reset(ctx); err != nil {
		return err
	}
	g.resolveCache.Purge()
	return nil
}

// Counts reports node and edge totals.
func (g *Service) Counts(ctx context.Context) (nodes, edges int64, err error) {
	return g.store.Counts(ctx)
}

func cacheKey(typ NodeType, externalID string) string {
	return string(typ) + ":" + externalID
}
