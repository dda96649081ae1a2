package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/lostfound/pkg/types"
)

const itemColumns = `
	id, reported_by_user_id, status, description, location, image_url,
	description_vector, description_clip_vector, image_vector,
	is_active, is_admin_report, has_match_found, reported_at`

func (s *SQLiteStorage) createItemWithQuerier(ctx context.Context, q querier, item *types.Item) error {
	if !item.Status.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidStatus, item.Status)
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.ReportedAt.IsZero() {
		item.ReportedAt = time.Now().UTC()
	}

	query := `INSERT INTO items (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		item.ID, item.ReporterID, string(item.Status), item.Description, item.Location,
		nullString(item.ImageURL),
		nullVector(item.TextVector), nullVector(item.CrossModalText), nullVector(item.CrossModalImage),
		item.IsActive, item.IsAdminReport, item.HasMatch, toUnix(item.ReportedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("item %s: %w", item.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateItem(ctx context.Context, item *types.Item) error {
	return s.createItemWithQuerier(ctx, s.querier(), item)
}

func scanItem(row rowScanner) (*types.Item, error) {
	var item types.Item
	var status string
	var imageURL sql.NullString
	var textVec, clipVec, imageVec []byte
	var reportedAt int64

	err := row.Scan(&item.ID, &item.ReporterID, &status, &item.Description, &item.Location,
		&imageURL, &textVec, &clipVec, &imageVec,
		&item.IsActive, &item.IsAdminReport, &item.HasMatch, &reportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	item.Status = types.ItemStatus(status)
	item.ImageURL = imageURL.String
	item.TextVector = deserializeVector(textVec)
	item.CrossModalText = deserializeVector(clipVec)
	item.CrossModalImage = deserializeVector(imageVec)
	item.ReportedAt = fromUnix(reportedAt)
	return &item, nil
}

func (s *SQLiteStorage) getItemWithQuerier(ctx context.Context, q querier, id uuid.UUID) (*types.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

func (s *SQLiteStorage) GetItem(ctx context.Context, id uuid.UUID) (*types.Item, error) {
	return s.getItemWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) updateItemFlagsWithQuerier(ctx context.Context, q querier, id uuid.UUID, active, hasMatch bool) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET is_active = ?, has_match_found = ? WHERE id = ?`,
		active, hasMatch, id)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return requireRow(result, "item", id)
}

func (s *SQLiteStorage) UpdateItemFlags(ctx context.Context, id uuid.UUID, active, hasMatch bool) error {
	return s.updateItemFlagsWithQuerier(ctx, s.querier(), id, active, hasMatch)
}

// deleteItemWithQuerier removes the item; matches cascade via foreign keys
func (s *SQLiteStorage) deleteItemWithQuerier(ctx context.Context, q querier, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return requireRow(result, "item", id)
}

func (s *SQLiteStorage) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.deleteItemWithQuerier(ctx, s.querier(), id)
}

// listItemsWithQuerier returns items newest first
func (s *SQLiteStorage) listItemsWithQuerier(ctx context.Context, q querier, filter ItemFilter) ([]*types.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	query, args := applyItemFilter(query, nil, filter)
	query += ` ORDER BY reported_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*types.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) ListItems(ctx context.Context, filter ItemFilter) ([]*types.Item, error) {
	return s.listItemsWithQuerier(ctx, s.querier(), filter)
}

// applyItemFilter appends WHERE conditions for the non-zero filter fields
func applyItemFilter(query string, args []interface{}, f ItemFilter) (string, []interface{}) {
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.ActiveOnly {
		query += ` AND is_active = 1`
	}
	if f.ExcludeID != uuid.Nil {
		query += ` AND id != ?`
		args = append(args, f.ExcludeID)
	}
	if f.ReporterID != uuid.Nil {
		query += ` AND reported_by_user_id = ?`
		args = append(args, f.ReporterID)
	}
	if len(f.IDs) > 0 {
		query += ` AND id IN (` + placeholders(len(f.IDs)) + `)`
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		query += ` AND LOWER(location) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(loc))+"%")
	}
	if !f.ReportedAfter.IsZero() {
		query += ` AND reported_at >= ?`
		args = append(args, toUnix(f.ReportedAfter))
	}
	if !f.ReportedBefore.IsZero() {
		query += ` AND reported_at <= ?`
		args = append(args, toUnix(f.ReportedBefore))
	}
	return query, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func requireRow(result sql.Result, kind string, id uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullVector(v []float32) interface{} {
	if len(v) == 0 {
		return nil
	}
	return serializeVector(v)
}
