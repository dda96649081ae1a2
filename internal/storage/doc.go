// Package storage provides SQLite-based persistence for users, items and matches.
//
// # Database Schema
//
// Tables:
//   - users: registered campus members and admin office accounts
//   - items: lost and found reports with inline embedding vectors
//   - matches: proposed (lost, found) pairs, unique per pair
//   - schema_version: applied migrations, ordered with semver
//
// Vectors are stored as little-endian float32 blobs. A NULL image_vector
// means the item was reported without an image. Timestamps are stored as
// UTC Unix nanoseconds so that ordering is exact.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("lostfound.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	items, err := store.ListItems(ctx, storage.ItemFilter{
//	    Status:     types.StatusFound,
//	    ActiveOnly: true,
//	    Limit:      40,
//	})
//
// # Transactions
//
// Every Storage method is also available on a Tx, bound to the transaction's
// connection:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if err := tx.UpdateMatchStatus(ctx, id, types.MatchApproved); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// The pool is limited to one connection. Code holding a Tx must not call
// the non-transactional store until it commits or rolls back.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with the
// sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
//
// # Errors
//
// Lookups of missing rows wrap ErrNotFound. Inserting a second match for
// the same (lost, found) pair, or a second user with the same email, wraps
// ErrAlreadyExists.
package storage
