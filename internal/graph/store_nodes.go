package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moodify/internal/services"
)

const nodeColumns = "id, type, spotify_id, name, data, play_count, last_played_at, created_at, last_accessed"

// ResolveNode finds or creates the node for a real-world entity.
//
// Resolution order: exact external id match, then (type, name) match with
// external id backfill, then insert. A concurrent insert losing the unique
// race on spotify_id falls back to the winning row, so two resolutions of
// the same external id always return the same node.
func (s *Store) ResolveNode(ctx context.Context, typ NodeType, name, externalID string, attrs NodeAttrs) (*Node, error) {
	if !typ.Valid() {
		return nil, services.Wrap(services.ErrValidation, "graph", "resolve", fmt.Sprintf("unknown node type %q", typ), nil)
	}
	if name == "" && externalID == "" {
		return nil, services.Wrap(services.ErrValidation, "graph", "resolve", "node needs a name or an external id", nil)
	}

	if externalID != "" {
		node, err := s.nodeByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if node != nil {
			return node, s.touchNode(ctx, node)
		}
	}

	if name != "" {
		node, err := s.nodeByTypeName(ctx, typ, name)
		if err != nil {
			return nil, err
		}
		if node != nil {
			if externalID != "" && node.ExternalID == "" {
				backfilled, err := s.backfillExternalID(ctx, node, externalID)
				if err != nil {
					return nil, err
				}
				node = backfilled
			}
			return node, s.touchNode(ctx, node)
		}
	}

	node, err := s.insertNode(ctx, typ, name, externalID, attrs)
	if err == nil {
		return node, nil
	}
	if isUniqueViolation(err) && externalID != "" {
		// Lost a creation race; the winner owns this external id.
		winner, lookupErr := s.nodeByExternalID(ctx, externalID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner != nil {
			return winner, s.touchNode(ctx, winner)
		}
	}
	return nil, err
}

// NodeByExternalID fetches the node owning an external id, or nil.
func (s *Store) NodeByExternalID(ctx context.Context, externalID string) (*Node, error) {
	return s.nodeByExternalID(ctx, externalID)
}

// NodeByID fetches a single node.
func (s *Store) NodeByID(ctx context.Context, id int64) (*Node, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM graph_nodes WHERE id = ?", id)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return node, err
}

// MarkPlayed bumps the play count and stamps last_played_at. The stamp is
// truncated to whole seconds: last_played_at is compared lexically against
// midnight cutoffs, and a fractional-second suffix would sort before the
// cutoff's bare "Z".
func (s *Store) MarkPlayed(ctx context.Context, id int64, playedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE graph_nodes SET play_count = play_count + 1, last_played_at = ?, last_accessed = ? WHERE id = ?",
		formatTime(playedAt.Truncate(time.Second)), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark node %d played: %w", id, err)
	}
	return nil
}

func (s *Store) nodeByExternalID(ctx context.Context, externalID string) (*Node, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM graph_nodes WHERE spotify_id = ?", externalID)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup node by external id: %w", err)
	}
	return node, nil
}

// nodeByTypeName returns the earliest-created match and merges any
// duplicates a past creation race left behind.
func (s *Store) nodeByTypeName(ctx context.Context, typ NodeType, name string) (*Node, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM graph_nodes WHERE type = ? AND name = ? ORDER BY created_at ASC, id ASC", string(typ), name)
	if err != nil {
		return nil, fmt.Errorf("lookup node by name: %w", err)
	}
	defer rows.Close()

	var matches []*Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		matches = append(matches, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}

	if err := s.mergeDuplicates(ctx, matches); err != nil {
		return nil, services.Wrap(services.ErrDataIntegrity, "graph", "resolve",
			fmt.Sprintf("merge %d duplicate rows for %s %q", len(matches), typ, name), err)
	}
	return s.NodeByID(ctx, matches[0].ID)
}

// mergeDuplicates folds later rows into the earliest one: edges are
// repointed, play counts summed, then the duplicates removed.
func (s *Store) mergeDuplicates(ctx context.Context, matches []*Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	keeper := matches[0]
	for _, dupe := range matches[1:] {
		if _, err := tx.ExecContext(ctx,
			"UPDATE OR IGNORE graph_edges SET source_id = ? WHERE source_id = ?", keeper.ID, dupe.ID); err != nil {
			return fmt.Errorf("repoint outgoing edges: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE OR IGNORE graph_edges SET target_id = ? WHERE target_id = ?", keeper.ID, dupe.ID); err != nil {
			return fmt.Errorf("repoint incoming edges: %w", err)
		}
		// Edges that already exist on the keeper survive the OR IGNORE;
		// whatever still references the dupe is a redundant parallel edge.
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM graph_edges WHERE source_id = ? OR target_id = ?", dupe.ID, dupe.ID); err != nil {
			return fmt.Errorf("drop redundant edges: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE graph_nodes SET play_count = play_count + ? WHERE id = ?", dupe.PlayCount, keeper.ID); err != nil {
			return fmt.Errorf("fold play count: %w", err)
		}
		if keeper.ExternalID == "" && dupe.ExternalID != "" {
			if _, err := tx.ExecContext(ctx,
				"UPDATE graph_nodes SET spotify_id = NULL WHERE id = ?", dupe.ID); err != nil {
				return fmt.Errorf("release duplicate external id: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE graph_nodes SET spotify_id = ? WHERE id = ?", dupe.ExternalID, keeper.ID); err != nil {
				return fmt.Errorf("adopt duplicate external id: %w", err)
			}
			keeper.ExternalID = dupe.ExternalID
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM graph_nodes WHERE id = ?", dupe.ID); err != nil {
			return fmt.Errorf("delete duplicate node: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

func (s *Store) backfillExternalID(ctx context.Context, node *Node, externalID string) (*Node, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE graph_nodes SET spotify_id = ? WHERE id = ? AND spotify_id IS NULL", externalID, node.ID)
	if err != nil {
		if isUniqueViolation(err) {
			// Another row already owns this external id; it is the canonical one.
			winner, lookupErr := s.nodeByExternalID(ctx, externalID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, fmt.Errorf("backfill external id: %w", err)
	}
	node.ExternalID = externalID
	return node, nil
}

func (s *Store) insertNode(ctx context.Context, typ NodeType, name, externalID string, attrs NodeAttrs) (*Node, error) {
	data, err := marshalAttrs(typ, attrs)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "graph", "insert", "", err)
	}

	now := formatTime(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO graph_nodes (type, spotify_id, name, data, play_count, created_at, last_accessed)
         VALUES (?, ?, ?, ?, 0, ?, ?)`,
		string(typ), nullableString(externalID), name, nullableString(data), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.NodeByID(ctx, id)
}

func (s *Store) touchNode(ctx context.Context, node *Node) error {
	now := time.Now()
	if _, err := s.db.ExecContext(ctx,
		"UPDATE graph_nodes SET last_accessed = ? WHERE id = ?", formatTime(now), node.ID); err != nil {
		return fmt.Errorf("touch node %d: %w", node.ID, err)
	}
	node.LastAccessed = now.UTC()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*Node, error) {
	var (
		node       Node
		typ        string
		externalID sql.NullString
		data       sql.NullString
		lastPlayed sql.NullString
		createdAt  sql.NullString
		accessed   sql.NullString
	)
	if err := row.Scan(&node.ID, &typ, &externalID, &node.Name, &data,
		&node.PlayCount, &lastPlayed, &createdAt, &accessed); err != nil {
		return nil, err
	}
	node.Type = NodeType(typ)
	if externalID.Valid {
		node.ExternalID = externalID.String
	}
	if data.Valid {
		attrs, err := unmarshalAttrs(node.Type, data.String)
		if err != nil {
			return nil, err
		}
		node.Attrs = attrs
	}
	node.LastPlayedAt = parseTime(lastPlayed)
	node.CreatedAt = parseTime(createdAt)
	node.LastAccessed = parseTime(accessed)
	return &node, nil
}
