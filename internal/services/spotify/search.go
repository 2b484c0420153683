package spotify

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"moodify/internal/playback"
	"moodify/internal/services"
)

// SearchTrack finds the best-matching playable track for a title/artist
// pair. Used to turn oracle suggestions into queueable URIs.
func (c *Client) SearchTrack(ctx context.Context, title, artist string) (*playback.Track, error) {
	query := strings.TrimSpace(title)
	if artist = strings.TrimSpace(artist); artist != "" {
		query += " artist:" + artist
	}
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "spotify", "search", "empty query", nil)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", "1")

	var payload struct {
		Tracks struct {
			Items []trackItem `json:"items"`
		} `json:"tracks"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	if len(payload.Tracks.Items) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "spotify", "search", "no match for "+query, nil)
	}
	return payload.Tracks.Items[0].track(), nil
}
