package graph_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"moodify/internal/graph"
	"moodify/internal/testsupport"
)

func TestResolveNodeIdempotentByExternalID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := store.ResolveNode(ctx, graph.NodeSong, "Weightless", "spotify:track:abc", graph.SongAttrs{Artist: "Marconi Union", URI: "spotify:track:abc"})
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	second, err := store.ResolveNode(ctx, graph.NodeSong, "Weightless", "spotify:track:abc", nil)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same node id, got %d then %d", first.ID, second.ID)
	}
}

func TestResolveNodeIdempotentUnderConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const callers = 8
	ids := make([]int64, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(slot int) {
			defer wg.Done()
			node, err := store.ResolveNode(ctx, graph.NodeSong, "Tilted", "spotify:track:race", nil)
			if err != nil {
				errs[slot] = err
				return
			}
			ids[slot] = node.ID
		}(i)
	}
	wg.Wait()

	for slot, err := range errs {
		if err != nil {
			t.Fatalf("caller %d failed: %v", slot, err)
		}
	}
	for slot := 1; slot < callers; slot++ {
		if ids[slot] != ids[0] {
			t.Fatalf("caller %d got node %d, caller 0 got %d", slot, ids[slot], ids[0])
		}
	}
}

func TestResolveNodeBackfillsExternalID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	byName, err := store.ResolveNode(ctx, graph.NodeArtist, "Khruangbin", "", nil)
	if err != nil {
		t.Fatalf("resolve by name failed: %v", err)
	}
	if byName.ExternalID != "" {
		t.Fatalf("expected no external id yet, got %q", byName.ExternalID)
	}

	withID, err := store.ResolveNode(ctx, graph.NodeArtist, "Khruangbin", "spotify:artist:khr", nil)
	if err != nil {
		t.Fatalf("resolve with id failed: %v", err)
	}
	if withID.ID != byName.ID {
		t.Fatalf("backfill created a new node: %d vs %d", withID.ID, byName.ID)
	}
	if withID.ExternalID != "spotify:artist:khr" {
		t.Fatalf("external id not backfilled: %q", withID.ExternalID)
	}
}

func TestConnectOrReinforceSingleRowMonotonicWeight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a, err := store.ResolveNode(ctx, graph.NodeSong, "A", "uri:a", nil)
	if err != nil {
		t.Fatalf("resolve a: %v", err)
	}
	b, err := store.ResolveNode(ctx, graph.NodeSong, "B", "uri:b", nil)
	if err != nil {
		t.Fatalf("resolve b: %v", err)
	}

	var previous float64
	for i := 0; i < 5; i++ {
		if err := store.ConnectOrReinforce(ctx, a.ID, b.ID, graph.EdgeNext, 1.0, 0.5, 10.0); err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
		edge, err := store.EdgeBetween(ctx, a.ID, b.ID, graph.EdgeNext)
		if err != nil {
			t.Fatalf("edge lookup %d: %v", i, err)
		}
		if edge == nil {
			t.Fatalf("edge missing after connect %d", i)
		}
		if edge.Weight < previous {
			t.Fatalf("weight regressed: %.2f after %.2f", edge.Weight, previous)
		}
		previous = edge.Weight
	}

	_, edges, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if edges != 1 {
		t.Fatalf("expected exactly one edge row, got %d", edges)
	}
}

func TestConnectOrReinforceSaturatesAtCap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a, _ := store.ResolveNode(ctx, graph.NodeSong, "A", "uri:cap-a", nil)
	b, _ := store.ResolveNode(ctx, graph.NodeSong, "B", "uri:cap-b", nil)

	for i := 0; i < 20; i++ {
		if err := store.ConnectOrReinforce(ctx, a.ID, b.ID, graph.EdgeSimilar, 1.0, 1.0, 3.0); err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
	}
	edge, err := store.EdgeBetween(ctx, a.ID, b.ID, graph.EdgeSimilar)
	if err != nil {
		t.Fatalf("edge lookup: %v", err)
	}
	if edge.Weight != 3.0 {
		t.Fatalf("expected weight capped at 3.0, got %.2f", edge.Weight)
	}
}

func TestNextSuggestedSkipsSameDayPlays(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seed, _ := store.ResolveNode(ctx, graph.NodeSong, "Seed", "uri:seed", nil)
	heavy, _ := store.ResolveNode(ctx, graph.NodeSong, "Heavy", "uri:heavy", nil)
	light, _ := store.ResolveNode(ctx, graph.NodeSong, "Light", "uri:light", nil)

	if err := store.ConnectOrReinforce(ctx, seed.ID, heavy.ID, graph.EdgeNext, 5.0, 0.5, 0); err != nil {
		t.Fatalf("connect heavy: %v", err)
	}
	if err := store.ConnectOrReinforce(ctx, seed.ID, light.ID, graph.EdgeNext, 1.0, 0.5, 0); err != nil {
		t.Fatalf("connect light: %v", err)
	}

	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	// Heavy was played an hour ago: same day, ineligible.
	if err := store.MarkPlayed(ctx, heavy.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("mark heavy played: %v", err)
	}

	next, err := store.NextSuggested(ctx, seed.ID, dayStart)
	if err != nil {
		t.Fatalf("next suggested: %v", err)
	}
	if next == nil || next.ID != light.ID {
		t.Fatalf("expected light node, got %#v", next)
	}

	// Light played yesterday stays eligible.
	if err := store.MarkPlayed(ctx, light.ID, dayStart.Add(-2*time.Hour)); err != nil {
		t.Fatalf("mark light played: %v", err)
	}
	next, err = store.NextSuggested(ctx, seed.ID, dayStart)
	if err != nil {
		t.Fatalf("next suggested again: %v", err)
	}
	if next == nil || next.ID != light.ID {
		t.Fatalf("expected light to stay eligible, got %#v", next)
	}

	// Everything heard today: no candidate at all.
	if err := store.MarkPlayed(ctx, light.ID, now); err != nil {
		t.Fatalf("mark light played today: %v", err)
	}
	next, err = store.NextSuggested(ctx, seed.ID, dayStart)
	if err != nil {
		t.Fatalf("next suggested final: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no candidate, got %#v", next)
	}
}

func TestNextSuggestedExcludesFractionalSecondMidnightPlay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seed, _ := store.ResolveNode(ctx, graph.NodeSong, "Seed", "uri:ms-seed", nil)
	late, _ := store.ResolveNode(ctx, graph.NodeSong, "Late", "uri:ms-late", nil)
	if err := store.ConnectOrReinforce(ctx, seed.ID, late.ID, graph.EdgeNext, 1.0, 0.5, 0); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Half a second past midnight. A nanosecond-precision stamp would render
	// as "...T00:00:00.5Z" and sort lexically before the cutoff's
	// "...T00:00:00Z", leaking a same-day play back into the pool.
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if err := store.MarkPlayed(ctx, late.ID, dayStart.Add(500*time.Millisecond)); err != nil {
		t.Fatalf("mark played: %v", err)
	}

	next, err := store.NextSuggested(ctx, seed.ID, dayStart)
	if err != nil {
		t.Fatalf("next suggested: %v", err)
	}
	if next != nil {
		t.Fatalf("same-day play must stay excluded, got %#v", next)
	}
}

func TestSongsByGenresHonorsExcludeSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	genre, _ := store.ResolveNode(ctx, graph.NodeGenre, "ambient", "", nil)
	kept, _ := store.ResolveNode(ctx, graph.NodeSong, "Kept", "uri:kept", graph.SongAttrs{URI: "uri:kept"})
	heard, _ := store.ResolveNode(ctx, graph.NodeSong, "Heard", "uri:heard", graph.SongAttrs{URI: "uri:heard"})

	for _, song := range []int64{kept.ID, heard.ID} {
		if err := store.ConnectOrReinforce(ctx, song, genre.ID, graph.EdgeHasGenre, 1.0, 0.5, 0); err != nil {
			t.Fatalf("connect genre: %v", err)
		}
	}

	songs, err := store.SongsByGenres(ctx, []string{"ambient"}, 10, map[string]struct{}{"uri:heard": {}})
	if err != nil {
		t.Fatalf("songs by genre: %v", err)
	}
	if len(songs) != 1 || songs[0].ID != kept.ID {
		t.Fatalf("expected only the unheard song, got %d results", len(songs))
	}
}
