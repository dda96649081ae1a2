package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lostfound/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestUser(t *testing.T, store Storage, email string) *types.User {
	t.Helper()
	user := &types.User{
		Name:          "User " + email,
		Email:         email,
		RollNumber:    "R-" + email,
		ContactNumber: "555-0100",
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func createTestItem(t *testing.T, store Storage, reporter *types.User, status types.ItemStatus, desc, loc string, at time.Time) *types.Item {
	t.Helper()
	item := &types.Item{
		ReporterID:     reporter.ID,
		Status:         status,
		Description:    desc,
		Location:       loc,
		TextVector:     []float32{0.1, 0.2, 0.3},
		CrossModalText: []float32{0.4, 0.5},
		IsActive:       true,
		ReportedAt:     at,
	}
	if status == types.StatusFound {
		item.ImageURL = "/static/uploads/" + desc + ".jpg"
		item.CrossModalImage = []float32{0.6, 0.7}
	}
	require.NoError(t, store.CreateItem(context.Background(), item))
	return item
}

func TestNewSQLiteStorage(t *testing.T) {
	store := setupTestDB(t)
	assert.NotNil(t, store.db)
}

func TestUsers(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, store, "Alice@Campus.edu")
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, types.RoleUser, user.Role)

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@campus.edu", got.Email)
	assert.Equal(t, user.RollNumber, got.RollNumber)
	assert.WithinDuration(t, user.CreatedAt, got.CreatedAt, time.Microsecond)

	byEmail, err := store.GetUserByEmail(ctx, "ALICE@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	// Duplicate email
	err = store.CreateUser(ctx, &types.User{Name: "Other", Email: "alice@campus.edu"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = store.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestItemRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	reporter := createTestUser(t, store, "bob@campus.edu")

	lost := createTestItem(t, store, reporter, types.StatusLost, "black wallet", "library", time.Now())
	found := createTestItem(t, store, reporter, types.StatusFound, "umbrella", "cafeteria", time.Now())

	got, err := store.GetItem(ctx, lost.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusLost, got.Status)
	assert.Equal(t, lost.TextVector, got.TextVector)
	assert.Equal(t, lost.CrossModalText, got.CrossModalText)
	assert.Nil(t, got.CrossModalImage, "no image means no image vector")
	assert.False(t, got.HasImage())
	assert.True(t, got.IsActive)
	assert.False(t, got.HasMatch)

	got, err = store.GetItem(ctx, found.ID)
	require.NoError(t, err)
	assert.Equal(t, found.CrossModalImage, got.CrossModalImage)
	assert.True(t, got.HasImage())

	err = store.CreateItem(ctx, &types.Item{ReporterID: reporter.ID, Status: "MISPLACED"})
	assert.ErrorIs(t, err, types.ErrInvalidStatus)
}

func TestUpdateItemFlags(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	reporter := createTestUser(t, store, "carol@campus.edu")
	item := createTestItem(t, store, reporter, types.StatusLost, "keys", "hostel a", time.Now())

	require.NoError(t, store.UpdateItemFlags(ctx, item.ID, false, true))
	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.HasMatch)

	err = store.UpdateItemFlags(ctx, uuid.New(), false, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListItemsFilters(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, store, "alice@campus.edu")
	bob := createTestUser(t, store, "bob@campus.edu")

	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	l1 := createTestItem(t, store, alice, types.StatusLost, "wallet", "library", base)
	f1 := createTestItem(t, store, bob, types.StatusFound, "phone", "Library 2nd floor", base.Add(time.Hour))
	f2 := createTestItem(t, store, bob, types.StatusFound, "bottle", "cafeteria", base.Add(2*time.Hour))
	f3 := createTestItem(t, store, alice, types.StatusFound, "pen_drive", "g block", base.Add(3*time.Hour))
	require.NoError(t, store.UpdateItemFlags(ctx, f3.ID, false, false))

	ids := func(items []*types.Item) []uuid.UUID {
		out := make([]uuid.UUID, len(items))
		for i, it := range items {
			out[i] = it.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter ItemFilter
		want   []uuid.UUID
	}{
		{name: "all newest first", filter: ItemFilter{}, want: []uuid.UUID{f3.ID, f2.ID, f1.ID, l1.ID}},
		{name: "active found", filter: ItemFilter{Status: types.StatusFound, ActiveOnly: true}, want: []uuid.UUID{f2.ID, f1.ID}},
		{name: "exclude", filter: ItemFilter{Status: types.StatusFound, ExcludeID: f2.ID}, want: []uuid.UUID{f3.ID, f1.ID}},
		{name: "reporter", filter: ItemFilter{ReporterID: alice.ID}, want: []uuid.UUID{f3.ID, l1.ID}},
		{name: "location substring", filter: ItemFilter{Location: "LIBRARY"}, want: []uuid.UUID{f1.ID, l1.ID}},
		{name: "location wildcard is literal", filter: ItemFilter{Location: "%"}, want: []uuid.UUID{}},
		{name: "date range", filter: ItemFilter{ReportedAfter: base.Add(30 * time.Minute), ReportedBefore: base.Add(2 * time.Hour)}, want: []uuid.UUID{f2.ID, f1.ID}},
		{name: "ids", filter: ItemFilter{IDs: []uuid.UUID{l1.ID, f3.ID}}, want: []uuid.UUID{f3.ID, l1.ID}},
		{name: "limit", filter: ItemFilter{Limit: 2}, want: []uuid.UUID{f3.ID, f2.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := store.ListItems(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, append([]uuid.UUID{}, ids(items)...))
		})
	}
}

func TestMatches(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	loser := createTestUser(t, store, "loser@campus.edu")
	finder := createTestUser(t, store, "finder@campus.edu")
	lost := createTestItem(t, store, loser, types.StatusLost, "wallet", "library", time.Now())
	found := createTestItem(t, store, finder, types.StatusFound, "wallet", "library", time.Now())

	match := &types.Match{
		LostItemID:      lost.ID,
		FoundItemID:     found.ID,
		LoserID:         loser.ID,
		FinderID:        finder.ID,
		ConfidenceScore: 0.82,
	}
	require.NoError(t, store.CreateMatch(ctx, match))
	assert.Equal(t, types.MatchPending, match.Status)

	got, err := store.GetMatchByPair(ctx, lost.ID, found.ID)
	require.NoError(t, err)
	assert.Equal(t, match.ID, got.ID)
	assert.InDelta(t, 0.82, got.ConfidenceScore, 1e-9)

	_, err = store.GetMatchByPair(ctx, found.ID, lost.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Same pair again hits the unique constraint
	dup := *match
	dup.ID = uuid.Nil
	err = store.CreateMatch(ctx, &dup)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, store.UpdateMatchStatus(ctx, match.ID, types.MatchApproved))
	got, err = store.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MatchApproved, got.Status)

	// Resolved matches never change again
	err = store.UpdateMatchStatus(ctx, match.ID, types.MatchRejected)
	assert.ErrorIs(t, err, types.ErrNotPending)
	got, err = store.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MatchApproved, got.Status)

	err = store.UpdateMatchStatus(ctx, uuid.New(), types.MatchApproved)
	assert.ErrorIs(t, err, ErrNotFound)

	forUser, err := store.ListMatches(ctx, MatchFilter{UserID: finder.ID})
	require.NoError(t, err)
	require.Len(t, forUser, 1)

	approved, err := store.ListMatches(ctx, MatchFilter{Status: types.MatchApproved, ItemIDs: []uuid.UUID{found.ID}})
	require.NoError(t, err)
	require.Len(t, approved, 1)

	pending, err := store.ListMatches(ctx, MatchFilter{Status: types.MatchPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMatchScoreConstraint(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, store, "u@campus.edu")
	lost := createTestItem(t, store, u, types.StatusLost, "a", "library", time.Now())
	found := createTestItem(t, store, u, types.StatusFound, "b", "library", time.Now())

	err := store.CreateMatch(ctx, &types.Match{
		LostItemID: lost.ID, FoundItemID: found.ID, LoserID: u.ID, FinderID: u.ID, ConfidenceScore: 1.2,
	})
	assert.Error(t, err)
}

// TestDeleteItemCascades verifies matches are removed with their item
func TestDeleteItemCascades(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, store, "u@campus.edu")
	lost := createTestItem(t, store, u, types.StatusLost, "a", "library", time.Now())
	found := createTestItem(t, store, u, types.StatusFound, "b", "library", time.Now())
	match := &types.Match{LostItemID: lost.ID, FoundItemID: found.ID, LoserID: u.ID, FinderID: u.ID, ConfidenceScore: 0.9}
	require.NoError(t, store.CreateMatch(ctx, match))

	require.NoError(t, store.DeleteItem(ctx, found.ID))

	_, err := store.GetItem(ctx, found.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetMatch(ctx, match.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteItem(ctx, found.ID), ErrNotFound)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, store, "u@campus.edu")
	item := createTestItem(t, store, u, types.StatusLost, "a", "library", time.Now())

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpdateItemFlags(ctx, item.ID, false, true))
	got, err := tx.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive, "tx sees its own write")
	require.NoError(t, tx.Rollback())

	got, err = store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive, "rollback discards the write")

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpdateItemFlags(ctx, item.ID, false, false))
	require.NoError(t, tx.Commit())

	got, err = store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
}

func TestGetStats(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, store, "u@campus.edu")
	lost := createTestItem(t, store, u, types.StatusLost, "a", "library", time.Now())
	found := createTestItem(t, store, u, types.StatusFound, "b", "library", time.Now())
	createTestItem(t, store, u, types.StatusFound, "c", "library", time.Now())
	require.NoError(t, store.CreateMatch(ctx, &types.Match{
		LostItemID: lost.ID, FoundItemID: found.ID, LoserID: u.ID, FinderID: u.ID, ConfidenceScore: 0.9,
	}))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 1, stats.ActiveLostItems)
	assert.Equal(t, 2, stats.ActiveFoundItems)
	assert.Equal(t, 1, stats.PendingMatches)
	assert.Equal(t, 0, stats.ApprovedMatches)
}

func TestVectorSerialization(t *testing.T) {
	v := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, v, deserializeVector(serializeVector(v)))
	assert.Nil(t, deserializeVector(nil))
	assert.Nil(t, nullVector(nil))
	assert.True(t, errors.Is(ErrNotFound, types.ErrNotFound))
}
