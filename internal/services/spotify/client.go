package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moodify/internal/config"
	"moodify/internal/playback"
	"moodify/internal/services"
)

const defaultHTTPTimeout = 10 * time.Second

// TokenSource supplies a current access token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the remote player HTTP API. It implements
// playback.Player.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// NewClient constructs a player API client from configuration.
func NewClient(cfg config.Spotify, tokens TokenSource, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CurrentState fetches the remote player state. A nil state means no
// active playback device.
func (c *Client) CurrentState(ctx context.Context) (*playback.RemoteState, error) {
	var payload playerStateResponse
	status, err := c.doJSON(ctx, http.MethodGet, "/me/player", nil, &payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || payload.Item == nil {
		return nil, nil
	}
	return &playback.RemoteState{
		Current:    payload.Item.track(),
		IsPlaying:  payload.IsPlaying,
		ProgressMs: payload.ProgressMs,
	}, nil
}

// Play starts playback, optionally replacing the context with the given
// track URIs.
func (c *Client) Play(ctx context.Context, uris ...string) error {
	var body any
	if len(uris) > 0 {
		body = map[string]any{"uris": uris}
	}
	_, err := c.doJSON(ctx, http.MethodPut, "/me/player/play", body, nil)
	return err
}

// Pause halts playback.
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodPut, "/me/player/pause", nil, nil)
	return err
}

// Next advances to the next track.
func (c *Client) Next(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/me/player/next", nil, nil)
	return err
}

// Previous steps back one track.
func (c *Client) Previous(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/me/player/previous", nil, nil)
	return err
}

// AddToQueue appends one track URI to the remote queue.
func (c *Client) AddToQueue(ctx context.Context, uri string) error {
	path := "/me/player/queue?uri=" + url.QueryEscape(uri)
	_, err := c.doJSON(ctx, http.MethodPost, path, nil, nil)
	return err
}

// UserQueue fetches the upcoming remote queue.
func (c *Client) UserQueue(ctx context.Context) ([]playback.Track, error) {
	var payload queueResponse
	if _, err := c.doJSON(ctx, http.MethodGet, "/me/player/queue", nil, &payload); err != nil {
		return nil, err
	}
	tracks := make([]playback.Track, 0, len(payload.Queue))
	for _, item := range payload.Queue {
		if t := item.track(); t != nil {
			tracks = append(tracks, *t)
		}
	}
	return tracks, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) (int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrAuth, "spotify", "token", "", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "spotify", method+" "+path, "", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if err := classifyStatus(resp.StatusCode, path); err != nil {
		return resp.StatusCode, err
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, services.Wrap(services.ErrTransient, "spotify", path, "decode response", err)
		}
	}
	return resp.StatusCode, nil
}

func classifyStatus(status int, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrAuth, "spotify", path, fmt.Sprintf("status %d", status), nil)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "spotify", path, "no active playback device", nil)
	case status == http.StatusTooManyRequests:
		return services.Wrap(services.ErrRateLimited, "spotify", path, "", nil)
	default:
		return services.Wrap(services.ErrTransient, "spotify", path, fmt.Sprintf("status %d", status), nil)
	}
}

type playerStateResponse struct {
	IsPlaying  bool       `json:"is_playing"`
	ProgressMs int64      `json:"progress_ms"`
	Item       *trackItem `json:"item"`
}

type queueResponse struct {
	Queue []trackItem `json:"queue"`
}

type trackItem struct {
	Name       string `json:"name"`
	URI        string `json:"uri"`
	DurationMs int64  `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func (t *trackItem) track() *playback.Track {
	if t == nil || t.URI == "" {
		return nil
	}
	track := &playback.Track{
		Title:      t.Name,
		URI:        t.URI,
		DurationMs: t.DurationMs,
		Origin:     playback.OriginAPI,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		track.Artwork = t.Album.Images[0].URL
	}
	return track
}
