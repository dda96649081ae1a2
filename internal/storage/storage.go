package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/lostfound/pkg/types"
)

// Storage defines the interface for persisting users, items and matches
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)

	// Item operations
	CreateItem(ctx context.Context, item *types.Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*types.Item, error)
	UpdateItemFlags(ctx context.Context, id uuid.UUID, active, hasMatch bool) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, filter ItemFilter) ([]*types.Item, error)

	// Match operations
	CreateMatch(ctx context.Context, match *types.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*types.Match, error)
	GetMatchByPair(ctx context.Context, lostItemID, foundItemID uuid.UUID) (*types.Match, error)
	// UpdateMatchStatus resolves a PENDING match; a resolved one yields types.ErrNotPending
	UpdateMatchStatus(ctx context.Context, id uuid.UUID, status types.MatchStatus) error
	ListMatches(ctx context.Context, filter MatchFilter) ([]*types.Match, error)

	// Status operations
	GetStats(ctx context.Context) (*Stats, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// ItemFilter narrows ListItems. Zero values mean "no constraint".
type ItemFilter struct {
	Status         types.ItemStatus
	ActiveOnly     bool
	ExcludeID      uuid.UUID
	ReporterID     uuid.UUID
	IDs            []uuid.UUID
	Location       string // Case-insensitive substring
	ReportedAfter  time.Time
	ReportedBefore time.Time
	Limit          int
}

// MatchFilter narrows ListMatches. Zero values mean "no constraint".
type MatchFilter struct {
	Status  types.MatchStatus
	UserID  uuid.UUID   // Loser or finder
	ItemIDs []uuid.UUID // Lost or found item
	Limit   int
}

// Stats contains counters for the admin dashboard
type Stats struct {
	Users            int
	ActiveLostItems  int
	ActiveFoundItems int
	PendingMatches   int
	ApprovedMatches  int
	RejectedMatches  int
	DatabaseSizeMB   float64
}
