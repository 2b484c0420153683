package graph

import (
	"context"

	"moodify/internal/logging"
)

const (
	vibeSongBaseWeight = 1.0
	nextBaseWeight     = 1.0
)

// CommitSession flushes one vibe's worth of listening history into the
// graph. Every session song is linked to the vibe (RELATED); NEXT edges are
// chained only between consecutive songs that were both actually listened
// to, so a skipped track never becomes a future suggestion bridge. Played
// songs get their play count and last-played stamp updated.
//
// Persistence failures are logged per song and skipped; one bad row never
// discards the rest of the session.
func (g *Service) CommitSession(ctx context.Context, vibeName string, songs []SessionSong) error {
	if vibeName == "" || len(songs) == 0 {
		return nil
	}

	vibe, err := g.ResolveNode(ctx, NodeVibe, vibeName, "", nil)
	if err != nil {
		return err
	}

	playedAt := g.now()
	nodes := make([]*Node, len(songs))
	for i, song := range songs {
		node, err := g.ResolveNode(ctx, NodeSong, song.Title, song.URI, SongAttrs{
			Artist: song.Artist,
			URI:    song.URI,
		})
		if err != nil {
			g.logger.Warn("session song resolution failed; skipping",
				logging.String(logging.FieldVibe, vibeName),
				logging.String(logging.FieldTrackURI, song.URI),
				logging.Error(err),
			)
			continue
		}
		nodes[i] = node

		if err := g.Connect(ctx, vibe.ID, node.ID, EdgeRelated, vibeSongBaseWeight); err != nil {
			g.logger.Warn("vibe link failed",
				logging.String(logging.FieldVibe, vibeName),
				logging.String(logging.FieldTrackURI, song.URI),
				logging.Error(err),
			)
		}

		if song.Status == SongPlayed {
			if err := g.store.MarkPlayed(ctx, node.ID, playedAt); err != nil {
				g.logger.Warn("play count update failed",
					logging.String(logging.FieldTrackURI, song.URI),
					logging.Error(err),
				)
			}
		}
	}

	g.chainListened(ctx, vibeName, songs, nodes)

	g.logger.Info("session committed",
		logging.String(logging.FieldVibe, vibeName),
		logging.Int("songs", len(songs)),
	)
	return nil
}

// chainListened creates NEXT edges between consecutive played songs.
// Skipped songs break the chain: [A played, B skipped, C played] yields no
// NEXT edge at all, because A and C were never adjacent listens.
func (g *Service) chainListened(ctx context.Context, vibeName string, songs []SessionSong, nodes []*Node) {
	for i := 0; i+1 < len(songs); i++ {
		if songs[i].Status != SongPlayed || songs[i+1].Status != SongPlayed {
			continue
		}
		src, dst := nodes[i], nodes[i+1]
		if src == nil || dst == nil || src.ID == dst.ID {
			continue
		}
		if err := g.Connect(ctx, src.ID, dst.ID, EdgeNext, nextBaseWeight); err != nil {
			g.logger.Warn("next chain link failed",
				logging.String(logging.FieldVibe, vibeName),
				logging.String(logging.FieldTrackURI, songs[i].URI),
				logging.Error(err),
			)
		}
	}
}

// ArtistGenres links a song to its artist and the artist's genres,
// reinforcing the HAS_GENRE aggregates the top-genre queries read.
func (g *Service) ArtistGenres(ctx context.Context, song *Node, artistName, artistExternalID string, genres []string) error {
	if song == nil || artistName == "" {
		return nil
	}
	artist, err := g.ResolveNode(ctx, NodeArtist, artistName, artistExternalID, ArtistAttrs{Genres: genres})
	if err != nil {
		return err
	}
	if err := g.Connect(ctx, song.ID, artist.ID, EdgeRelated, vibeSongBaseWeight); err != nil {
		return err
	}
	for _, genre := range genres {
		name := NormalizeGenre(genre)
		if name == "" {
			continue
		}
		genreNode, err := g.ResolveNode(ctx, NodeGenre, name, "", nil)
		if err != nil {
			g.logger.Warn("genre resolution failed",
				logging.String("genre", name),
				logging.Error(err),
			)
			continue
		}
		if err := g.Connect(ctx, song.ID, genreNode.ID, EdgeHasGenre, vibeSongBaseWeight); err != nil {
			g.logger.Warn("genre link failed",
				logging.String("genre", name),
				logging.Error(err),
			)
		}
	}
	return nil
}
