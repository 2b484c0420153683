package graph

import (
	"context"

	"moodify/internal/logging"
)

// LikedSong is one entry of a bulk library import.
type LikedSong struct {
	URI        string
	Title      string
	Artist     string
	ArtistID   string
	Genres     []string
	DurationMs int64
}

// IngestProgress reports incremental import state to the caller.
type IngestProgress struct {
	Done   int
	Total  int
	Failed int
}

// IngestLikedSongs bulk-imports a liked-songs library into the graph in
// bounded batches, invoking onProgress after each batch and honoring
// context cancellation between batches so a large library never blocks the
// caller for the whole run. Individual song failures are logged and
// counted, not fatal.
func (g *Service) IngestLikedSongs(ctx context.Context, songs []LikedSong, onProgress func(IngestProgress)) (IngestProgress, error) {
	progress := IngestProgress{Total: len(songs)}
	batchSize := g.tuning.IngestBatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(songs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return progress, err
		}
		end := start + batchSize
		if end > len(songs) {
			end = len(songs)
		}
		for _, song := range songs[start:end] {
			if err := g.ingestOne(ctx, song); err != nil {
				progress.Failed++
				g.logger.Warn("liked song ingest failed",
					logging.String(logging.FieldTrackURI, song.URI),
					logging.Error(err),
				)
			}
			progress.Done++
		}
		if onProgress != nil {
			onProgress(progress)
		}
	}
	return progress, nil
}

func (g *Service) ingestOne(ctx context.Context, song LikedSong) error {
	node, err := g.ResolveNode(ctx, NodeSong, song.Title, song.URI, SongAttrs{
		Artist:     song.Artist,
		URI:        song.URI,
		DurationMs: song.DurationMs,
	})
	if err != nil {
		return err
	}
	return g.ArtistGenres(ctx, node, song.Artist, song.ArtistID, song.Genres)
}
