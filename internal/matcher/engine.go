// Package matcher proposes matches between lost and found items.
//
// For a newly reported item the engine scores every active item of the
// opposite status on up to four similarity signals, blends them, applies a
// location tie-breaker near the threshold and persists a PENDING match for
// each survivor. Reads, duplicate checks and inserts share one transaction;
// the (lost, found) unique constraint settles races between concurrent runs.
package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dshills/lostfound/internal/config"
	"github.com/dshills/lostfound/internal/location"
	"github.com/dshills/lostfound/internal/notify"
	"github.com/dshills/lostfound/internal/storage"
	"github.com/dshills/lostfound/pkg/types"
)

// Notifier is told about each match after it is committed
type Notifier interface {
	MatchCreated(ctx context.Context, ev notify.MatchCreated)
}

// Engine runs the matching algorithm against storage
type Engine struct {
	store      storage.Storage
	table      *location.Table
	notifier   Notifier
	threshold  float64
	maxMatches int
	logger     zerolog.Logger
}

// New creates an engine. notifier may be nil.
func New(store storage.Storage, table *location.Table, notifier Notifier, cfg config.MatchingConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		store:      store,
		table:      table,
		notifier:   notifier,
		threshold:  cfg.ConfidenceThreshold,
		maxMatches: cfg.MaxMatchesReturned,
		logger:     logger.With().Str("component", "matcher").Logger(),
	}
}

// Run proposes matches for item and returns the ones it created. Pairs
// that already have a match are skipped. Item flags are never touched.
func (e *Engine) Run(ctx context.Context, item *types.Item) ([]*types.Match, error) {
	if !item.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidStatus, item.Status)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin matching: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	target := item.Status.Opposite()
	candidates, err := tx.ListItems(ctx, storage.ItemFilter{
		Status:     target,
		ActiveOnly: true,
		ExcludeID:  item.ID,
		Limit:      e.maxMatches * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	e.logger.Debug().
		Str("item_id", item.ID.String()).
		Str("target", string(target)).
		Int("candidates", len(candidates)).
		Msg("scoring candidates")

	ranked := Rank(item, candidates, e.threshold, e.maxMatches, e.table)

	var created []*types.Match
	var pairs []pair
	for _, c := range ranked {
		match := newMatch(item, c.Item, c.Score)

		_, err := tx.GetMatchByPair(ctx, match.LostItemID, match.FoundItemID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to check existing match: %w", err)
		}

		if err := tx.CreateMatch(ctx, match); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}
			return nil, fmt.Errorf("failed to create match: %w", err)
		}
		e.logger.Info().
			Str("match_id", match.ID.String()).
			Str("lost_item_id", match.LostItemID.String()).
			Str("found_item_id", match.FoundItemID.String()).
			Float64("score", match.ConfidenceScore).
			Msg("match created")
		created = append(created, match)
		pairs = append(pairs, lostFound(item, c.Item))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit matches: %w", err)
	}

	for i, match := range created {
		e.notify(ctx, match, pairs[i])
	}
	return created, nil
}

type pair struct {
	lost, found *types.Item
}

func lostFound(newItem, candidate *types.Item) pair {
	if newItem.Status == types.StatusLost {
		return pair{lost: newItem, found: candidate}
	}
	return pair{lost: candidate, found: newItem}
}

// newMatch assigns loser and finder from the items' roles
func newMatch(newItem, candidate *types.Item, score float64) *types.Match {
	p := lostFound(newItem, candidate)
	return &types.Match{
		LostItemID:      p.lost.ID,
		FoundItemID:     p.found.ID,
		LoserID:         p.lost.ReporterID,
		FinderID:        p.found.ReporterID,
		ConfidenceScore: score,
		Status:          types.MatchPending,
	}
}

// notify runs after commit; lookup failures only cost the greeting
func (e *Engine) notify(ctx context.Context, match *types.Match, p pair) {
	if e.notifier == nil {
		return
	}
	ev := notify.MatchCreated{Match: match, Lost: p.lost, Found: p.found}
	if u, err := e.store.GetUser(ctx, match.LoserID); err == nil {
		ev.Loser = u
	} else {
		e.logger.Warn().Err(err).Str("match_id", match.ID.String()).Msg("loser lookup failed")
	}
	if u, err := e.store.GetUser(ctx, match.FinderID); err == nil {
		ev.Finder = u
	} else {
		e.logger.Warn().Err(err).Str("match_id", match.ID.String()).Msg("finder lookup failed")
	}
	e.notifier.MatchCreated(ctx, ev)
}
