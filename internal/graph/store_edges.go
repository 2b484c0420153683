package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"moodify/internal/services"
)

// ConnectOrReinforce inserts a directed edge or, when the (source, target,
// type) triple already exists, raises its weight by increment. Weights
// saturate at cap so long-running reinforcement cannot drown every other
// neighbor; a cap of zero disables saturation.
func (s *Store) ConnectOrReinforce(ctx context.Context, sourceID, targetID int64, typ EdgeType, baseWeight, increment, cap float64) error {
	if !typ.Valid() {
		return services.Wrap(services.ErrValidation, "graph", "connect", fmt.Sprintf("unknown edge type %q", typ), nil)
	}
	if sourceID == targetID {
		return services.Wrap(services.ErrValidation, "graph", "connect", "self edges are not allowed", nil)
	}

	query := `INSERT INTO graph_edges (source_id, target_id, type, weight, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(source_id, target_id, type)
        DO UPDATE SET weight = MIN(weight + ?, ?)`
	capValue := cap
	if capValue <= 0 {
		capValue = 1e12
	}
	_, err := s.db.ExecContext(ctx, query,
		sourceID, targetID, string(typ), baseWeight, formatTime(time.Now()), increment, capValue)
	if err != nil {
		return fmt.Errorf("connect %d -> %d (%s): %w", sourceID, targetID, typ, err)
	}
	return nil
}

// EdgeBetween fetches a single edge, or nil when absent.
func (s *Store) EdgeBetween(ctx context.Context, sourceID, targetID int64, typ EdgeType) (*Edge, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT source_id, target_id, type, weight, created_at FROM graph_edges WHERE source_id = ? AND target_id = ? AND type = ?",
		sourceID, targetID, string(typ))
	edge, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup edge: %w", err)
	}
	return edge, nil
}

// Neighbors returns the targets of outgoing edges ordered by weight
// descending, capped at limit.
func (s *Store) Neighbors(ctx context.Context, nodeID int64, limit int) ([]*Node, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT n.id, n.type, n.spotify_id, n.name, n.data, n.play_count, n.last_played_at, n.created_at, n.last_accessed
         FROM graph_edges e
         JOIN graph_nodes n ON n.id = e.target_id
         WHERE e.source_id = ?
         ORDER BY e.weight DESC, n.id ASC
         LIMIT ?`, nodeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query neighbors: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// NextSuggested returns the highest-weight outgoing neighbor that has not
// been played during the current UTC calendar day, or nil when every
// candidate is too fresh. dayStart is the start of the current day.
func (s *Store) NextSuggested(ctx context.Context, nodeID int64, dayStart time.Time) (*Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT n.id, n.type, n.spotify_id, n.name, n.data, n.play_count, n.last_played_at, n.created_at, n.last_accessed
         FROM graph_edges e
         JOIN graph_nodes n ON n.id = e.target_id
         WHERE e.source_id = ?
           AND (n.last_played_at IS NULL OR n.last_played_at < ?)
         ORDER BY e.weight DESC, n.id ASC
         LIMIT 1`, nodeID, formatTime(dayStart))
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query next suggestion: %w", err)
	}
	return node, nil
}

// TopGenres aggregates HAS_GENRE edge weight per genre node, strongest
// first.
func (s *Store) TopGenres(ctx context.Context, limit int) ([]GenreWeight, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.name, SUM(e.weight) AS total
         FROM graph_edges e
         JOIN graph_nodes g ON g.id = e.target_id
         WHERE e.type = ? AND g.type = ?
         GROUP BY g.id
         ORDER BY total DESC, g.name ASC
         LIMIT ?`, string(EdgeHasGenre), string(NodeGenre), limit)
	if err != nil {
		return nil, fmt.Errorf("query top genres: %w", err)
	}
	defer rows.Close()

	var genres []GenreWeight
	for rows.Next() {
		var gw GenreWeight
		if err := rows.Scan(&gw.Genre, &gw.Weight); err != nil {
			return nil, fmt.Errorf("scan genre weight: %w", err)
		}
		genres = append(genres, gw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}
	return genres, nil
}

// SongsByGenres returns songs linked to any of the given genres, heaviest
// links first, skipping every URI present in exclude.
func (s *Store) SongsByGenres(ctx context.Context, genres []string, limit int, exclude map[string]struct{}) ([]*Node, error) {
	if limit <= 0 || len(genres) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(genres)), ",")
	args := make([]any, 0, len(genres)+3)
	args = append(args, string(EdgeHasGenre), string(NodeGenre))
	for _, genre := range genres {
		args = append(args, genre)
	}
	args = append(args, string(NodeSong))

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.type, s.spotify_id, s.name, s.data, s.play_count, s.last_played_at, s.created_at, s.last_accessed
         FROM graph_edges e
         JOIN graph_nodes g ON g.id = e.target_id
         JOIN graph_nodes s ON s.id = e.source_id
         WHERE e.type = ? AND g.type = ? AND g.name IN (`+placeholders+`) AND s.type = ?
         ORDER BY e.weight DESC, s.play_count DESC, s.id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query songs by genre: %w", err)
	}
	defer rows.Close()

	var songs []*Node
	seen := make(map[int64]struct{})
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		if _, dup := seen[node.ID]; dup {
			continue
		}
		if uri := songURI(node); uri != "" {
			if _, skip := exclude[uri]; skip {
				continue
			}
		}
		seen[node.ID] = struct{}{}
		songs = append(songs, node)
		if len(songs) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

func songURI(node *Node) string {
	attrs, ok := node.Attrs.(SongAttrs)
	if !ok {
		return ""
	}
	return attrs.URI
}

func collectNodes(rows *sql.Rows) ([]*Node, error) {
	var nodes []*Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func scanEdge(row rowScanner) (*Edge, error) {
	var (
		edge      Edge
		typ       string
		createdAt sql.NullString
	)
	if err := row.Scan(&edge.SourceID, &edge.TargetID, &typ, &edge.Weight, &createdAt); err != nil {
		return nil, err
	}
	edge.Type = EdgeType(typ)
	edge.CreatedAt = parseTime(createdAt)
	return &edge, nil
}
