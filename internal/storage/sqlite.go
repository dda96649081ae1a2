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

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = types.ErrNotFound
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = types.ErrAlreadyExists
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer; this also serializes matching transactions
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
// Both drivers surface the SQLite message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// User operations

func (s *SQLiteStorage) createUserWithQuerier(ctx context.Context, q querier, user *types.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = types.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, name, email, roll_number, hostel, contact_number, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID, user.Name, strings.ToLower(user.Email), user.RollNumber,
		user.Hostel, user.ContactNumber, string(user.Role), toUnix(user.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *types.User) error {
	return s.createUserWithQuerier(ctx, s.querier(), user)
}

const userColumns = `id, name, email, roll_number, hostel, contact_number, role, created_at`

func scanUser(row rowScanner) (*types.User, error) {
	var user types.User
	var role string
	var createdAt int64
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.RollNumber,
		&user.Hostel, &user.ContactNumber, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Role = types.UserRole(role)
	user.CreatedAt = fromUnix(createdAt)
	return &user, nil
}

func (s *SQLiteStorage) getUserWithQuerier(ctx context.Context, q querier, id uuid.UUID) (*types.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return s.getUserWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) getUserByEmailWithQuerier(ctx context.Context, q querier, email string) (*types.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", email, err)
	}
	return user, nil
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return s.getUserByEmailWithQuerier(ctx, s.querier(), email)
}

// Status operations

func (s *SQLiteStorage) getStatsWithQuerier(ctx context.Context, q querier) (*Stats, error) {
	stats := &Stats{}
	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.Users, `SELECT COUNT(*) FROM users`},
		{&stats.ActiveLostItems, `SELECT COUNT(*) FROM items WHERE status = 'LOST' AND is_active = 1`},
		{&stats.ActiveFoundItems, `SELECT COUNT(*) FROM items WHERE status = 'FOUND' AND is_active = 1`},
		{&stats.PendingMatches, `SELECT COUNT(*) FROM matches WHERE match_status = 'PENDING'`},
		{&stats.ApprovedMatches, `SELECT COUNT(*) FROM matches WHERE match_status = 'APPROVED'`},
		{&stats.RejectedMatches, `SELECT COUNT(*) FROM matches WHERE match_status = 'REJECTED'`},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return stats, nil
}

func (s *SQLiteStorage) GetStats(ctx context.Context) (*Stats, error) {
	return s.getStatsWithQuerier(ctx, s.querier())
}

// Transaction implementations delegate to the querier-based helpers so every
// statement runs on the transaction's connection.

func (t *sqliteTx) CreateUser(ctx context.Context, user *types.User) error {
	return t.storage.createUserWithQuerier(ctx, t.querier(), user)
}

func (t *sqliteTx) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return t.storage.getUserWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return t.storage.getUserByEmailWithQuerier(ctx, t.querier(), email)
}

func (t *sqliteTx) CreateItem(ctx context.Context, item *types.Item) error {
	return t.storage.createItemWithQuerier(ctx, t.querier(), item)
}

func (t *sqliteTx) GetItem(ctx context.Context, id uuid.UUID) (*types.Item, error) {
	return t.storage.getItemWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) UpdateItemFlags(ctx context.Context, id uuid.UUID, active, hasMatch bool) error {
	return t.storage.updateItemFlagsWithQuerier(ctx, t.querier(), id, active, hasMatch)
}

func (t *sqliteTx) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return t.storage.deleteItemWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListItems(ctx context.Context, filter ItemFilter) ([]*types.Item, error) {
	return t.storage.listItemsWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) CreateMatch(ctx context.Context, match *types.Match) error {
	return t.storage.createMatchWithQuerier(ctx, t.querier(), match)
}

func (t *sqliteTx) GetMatch(ctx context.Context, id uuid.UUID) (*types.Match, error) {
	return t.storage.getMatchWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) GetMatchByPair(ctx context.Context, lostItemID, foundItemID uuid.UUID) (*types.Match, error) {
	return t.storage.getMatchByPairWithQuerier(ctx, t.querier(), lostItemID, foundItemID)
}

func (t *sqliteTx) UpdateMatchStatus(ctx context.Context, id uuid.UUID, status types.MatchStatus) error {
	return t.storage.updateMatchStatusWithQuerier(ctx, t.querier(), id, status)
}

func (t *sqliteTx) ListMatches(ctx context.Context, filter MatchFilter) ([]*types.Match, error) {
	return t.storage.listMatchesWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) GetStats(ctx context.Context) (*Stats, error) {
	return t.storage.getStatsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
