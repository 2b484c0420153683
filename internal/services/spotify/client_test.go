package spotify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"moodify/internal/config"
	"moodify/internal/services"
	"moodify/internal/services/spotify"
)

func staticToken(token string) spotify.TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

func newTestClient(t *testing.T, handler http.Handler) *spotify.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return spotify.NewClient(config.Spotify{BaseURL: server.URL}, staticToken("tok-1"))
}

func TestCurrentStateParsesPlayerResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/player" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("auth header = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"is_playing":  true,
			"progress_ms": 42000,
			"item": map[string]any{
				"name":        "Song",
				"uri":         "spotify:track:abc",
				"duration_ms": 180000,
				"artists":     []map[string]any{{"name": "Artist"}},
				"album": map[string]any{
					"images": []map[string]any{{"url": "https://img.test/cover.jpg"}},
				},
			},
		})
	}))

	state, err := client.CurrentState(context.Background())
	if err != nil {
		t.Fatalf("current state: %v", err)
	}
	if state == nil || state.Current == nil {
		t.Fatal("expected a playing state")
	}
	if state.Current.URI != "spotify:track:abc" || state.Current.Artist != "Artist" {
		t.Fatalf("track = %+v", state.Current)
	}
	if !state.IsPlaying || state.ProgressMs != 42000 {
		t.Fatalf("state = %+v", state)
	}
	if state.Current.Artwork != "https://img.test/cover.jpg" {
		t.Fatalf("artwork = %q", state.Current.Artwork)
	}
}

func TestCurrentStateNoDeviceReturnsNil(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	state, err := client.CurrentState(context.Background())
	if err != nil {
		t.Fatalf("current state: %v", err)
	}
	if state != nil {
		t.Fatalf("204 should yield nil state, got %+v", state)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, services.ErrAuth},
		{http.StatusForbidden, services.ErrAuth},
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusTooManyRequests, services.ErrRateLimited},
		{http.StatusBadGateway, services.ErrTransient},
	}
	for _, tc := range cases {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		err := client.Pause(context.Background())
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: got %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestAddToQueueEscapesURI(t *testing.T) {
	var gotURI string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/me/player/queue" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		gotURI = r.URL.Query().Get("uri")
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.AddToQueue(context.Background(), "spotify:track:a b&c"); err != nil {
		t.Fatalf("add to queue: %v", err)
	}
	if gotURI != "spotify:track:a b&c" {
		t.Fatalf("uri = %q", gotURI)
	}
}

func TestPlaySendsURIsBody(t *testing.T) {
	var body struct {
		URIs []string `json:"uris"`
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/me/player/play" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.Play(context.Background(), "spotify:track:x"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(body.URIs) != 1 || body.URIs[0] != "spotify:track:x" {
		t.Fatalf("body = %+v", body)
	}
}

func TestUserQueueSkipsEmptyItems(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"queue": []map[string]any{
				{"name": "One", "uri": "spotify:track:1"},
				{"name": "Ghost", "uri": ""},
				{"name": "Two", "uri": "spotify:track:2"},
			},
		})
	}))

	queue, err := client.UserQueue(context.Background())
	if err != nil {
		t.Fatalf("user queue: %v", err)
	}
	if len(queue) != 2 || queue[0].URI != "spotify:track:1" || queue[1].URI != "spotify:track:2" {
		t.Fatalf("queue = %+v", queue)
	}
}

func TestSearchTrackComposesQuery(t *testing.T) {
	var gotQuery url.Values
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tracks": map[string]any{
				"items": []map[string]any{
					{"name": "Found", "uri": "spotify:track:found"},
				},
			},
		})
	}))

	track, err := client.SearchTrack(context.Background(), "Song Title", "Some Artist")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if track.URI != "spotify:track:found" {
		t.Fatalf("track = %+v", track)
	}
	if got := gotQuery.Get("q"); got != "Song Title artist:Some Artist" {
		t.Fatalf("q = %q", got)
	}
	if gotQuery.Get("type") != "track" || gotQuery.Get("limit") != "1" {
		t.Fatalf("query = %v", gotQuery)
	}
}

func TestSearchTrackNoMatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tracks": map[string]any{"items": []any{}}})
	}))

	if _, err := client.SearchTrack(context.Background(), "Nothing", ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTokenFailureIsAuthError(t *testing.T) {
	client := spotify.NewClient(config.Spotify{BaseURL: "http://unused.test"},
		spotify.TokenFunc(func(context.Context) (string, error) {
			return "", errors.New("no token stored")
		}))

	if err := client.Pause(context.Background()); !errors.Is(err, services.ErrAuth) {
		t.Fatalf("got %v, want ErrAuth", err)
	}
}
