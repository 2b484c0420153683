package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"moodify/internal/graph"
)

// likedSongsFile is the JSON export shape accepted by the ingest command.
type likedSongsFile struct {
	Songs []struct {
		URI        string   `json:"uri"`
		Title      string   `json:"title"`
		Artist     string   `json:"artist"`
		ArtistID   string   `json:"artist_id"`
		Genres     []string `json:"genres"`
		DurationMs int64    `json:"duration_ms"`
	} `json:"songs"`
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <liked-songs.json>",
		Short: "Bulk-import a liked-songs export into the taste graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			var export likedSongsFile
			if err := json.Unmarshal(data, &export); err != nil {
				return fmt.Errorf("parse export: %w", err)
			}

			songs := make([]graph.LikedSong, 0, len(export.Songs))
			for _, s := range export.Songs {
				songs = append(songs, graph.LikedSong{
					URI:        s.URI,
					Title:      s.Title,
					Artist:     s.Artist,
					ArtistID:   s.ArtistID,
					Genres:     s.Genres,
					DurationMs: s.DurationMs,
				})
			}

			svc, closeFn, err := openGraphService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			progress, err := svc.IngestLikedSongs(cmd.Context(), songs, func(p graph.IngestProgress) {
				fmt.Fprintf(out, "\ringested %d/%d (%d failed)", p.Done, p.Total, p.Failed)
			})
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "done: %d imported, %d failed\n", progress.Done-progress.Failed, progress.Failed)
			return nil
		},
	}
	return cmd
}
