package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/lostfound/pkg/types"
)

const matchColumns = `id, lost_item_id, found_item_id, loser_id, finder_id, confidence_score, match_status, created_at`

// createMatchWithQuerier inserts a match; a duplicate item pair yields ErrAlreadyExists
func (s *SQLiteStorage) createMatchWithQuerier(ctx context.Context, q querier, match *types.Match) error {
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	if match.Status == "" {
		match.Status = types.MatchPending
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO matches (` + matchColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		match.ID, match.LostItemID, match.FoundItemID, match.LoserID, match.FinderID,
		match.ConfidenceScore, string(match.Status), toUnix(match.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("match %s/%s: %w", match.LostItemID, match.FoundItemID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateMatch(ctx context.Context, match *types.Match) error {
	return s.createMatchWithQuerier(ctx, s.querier(), match)
}

func scanMatch(row rowScanner) (*types.Match, error) {
	var match types.Match
	var status string
	var createdAt int64
	err := row.Scan(&match.ID, &match.LostItemID, &match.FoundItemID, &match.LoserID,
		&match.FinderID, &match.ConfidenceScore, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	match.Status = types.MatchStatus(status)
	match.CreatedAt = fromUnix(createdAt)
	return &match, nil
}

func (s *SQLiteStorage) getMatchWithQuerier(ctx context.Context, q querier, id uuid.UUID) (*types.Match, error) {
	row := q.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	match, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}
	return match, nil
}

func (s *SQLiteStorage) GetMatch(ctx context.Context, id uuid.UUID) (*types.Match, error) {
	return s.getMatchWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) getMatchByPairWithQuerier(ctx context.Context, q querier, lostItemID, foundItemID uuid.UUID) (*types.Match, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE lost_item_id = ? AND found_item_id = ?`,
		lostItemID, foundItemID)
	match, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("get match %s/%s: %w", lostItemID, foundItemID, err)
	}
	return match, nil
}

func (s *SQLiteStorage) GetMatchByPair(ctx context.Context, lostItemID, foundItemID uuid.UUID) (*types.Match, error) {
	return s.getMatchByPairWithQuerier(ctx, s.querier(), lostItemID, foundItemID)
}

// updateMatchStatusWithQuerier moves a PENDING match to status in a single
// statement, so two concurrent decisions cannot both apply.
func (s *SQLiteStorage) updateMatchStatusWithQuerier(ctx context.Context, q querier, id uuid.UUID, status types.MatchStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE matches SET match_status = ? WHERE id = ? AND match_status = ?`,
		string(status), id, string(types.MatchPending))
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM matches WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check match: %w", err)
	}
	return fmt.Errorf("match %s: %w", id, types.ErrNotPending)
}

func (s *SQLiteStorage) UpdateMatchStatus(ctx context.Context, id uuid.UUID, status types.MatchStatus) error {
	return s.updateMatchStatusWithQuerier(ctx, s.querier(), id, status)
}

// listMatchesWithQuerier returns matches newest first
func (s *SQLiteStorage) listMatchesWithQuerier(ctx context.Context, q querier, filter MatchFilter) ([]*types.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		query += ` AND match_status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.UserID != uuid.Nil {
		query += ` AND (loser_id = ? OR finder_id = ?)`
		args = append(args, filter.UserID, filter.UserID)
	}
	if len(filter.ItemIDs) > 0 {
		ph := placeholders(len(filter.ItemIDs))
		query += ` AND (lost_item_id IN (` + ph + `) OR found_item_id IN (` + ph + `))`
		for range 2 {
			for _, id := range filter.ItemIDs {
				args = append(args, id)
			}
		}
	}

	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*types.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (s *SQLiteStorage) ListMatches(ctx context.Context, filter MatchFilter) ([]*types.Match, error) {
	return s.listMatchesWithQuerier(ctx, s.querier(), filter)
}
