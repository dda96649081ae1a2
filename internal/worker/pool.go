// Package worker runs the matching engine off the request path.
//
// A report is persisted first and then its id is queued. A fixed set of
// workers drains the queue; each job reloads the item, skips it when it
// has been archived or deleted in the meantime, and runs the matcher in its
// own transaction. Failures are logged and counted, never returned to the
// reporter.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/lostfound/internal/config"
	"github.com/dshills/lostfound/internal/storage"
	"github.com/dshills/lostfound/pkg/types"
)

var (
	ErrPoolClosed      = errors.New("worker pool is closed")
	ErrPoolNotStarted  = errors.New("worker pool is not started")
	ErrBackfillRunning = errors.New("backfill already in progress")
)

// Matcher proposes matches for a freshly loaded item
type Matcher interface {
	Run(ctx context.Context, item *types.Item) ([]*types.Match, error)
}

// Stats is a snapshot of the pool counters
type Stats struct {
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	Completed int64 `json:"completed"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
	Matches   int64 `json:"matches"`
	Backfill  bool  `json:"backfill_running"`
}

// BackfillResult summarizes one backfill run
type BackfillResult struct {
	Items    int           `json:"items"`
	Matches  int           `json:"matches"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type job struct {
	itemID uuid.UUID
	done   func(created int, err error) // Optional
}

// Pool is a bounded matching worker pool
type Pool struct {
	store   storage.Storage
	matcher Matcher
	workers int
	jobs    chan job
	onMatch func(created []*types.Match)
	logger  zerolog.Logger

	mu      sync.RWMutex // Guards closed and the jobs send side
	closed  bool
	started bool
	group   *errgroup.Group

	backfill RunLock

	completed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	matches   atomic.Int64
}

// NewPool creates a pool sized from cfg. onMatch, when set, is called after
// a job created at least one match.
func NewPool(store storage.Storage, matcher Matcher, cfg config.MatchingConfig, onMatch func([]*types.Match), logger zerolog.Logger) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		store:   store,
		matcher: matcher,
		workers: workers,
		jobs:    make(chan job, queueSize),
		onMatch: onMatch,
		logger:  logger.With().Str("component", "worker").Logger(),
	}
}

// Start launches the workers. They run until Close or until ctx is done.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			p.loop(gctx)
			return nil
		})
	}
	p.group = g
	p.logger.Info().Int("workers", p.workers).Int("queue", cap(p.jobs)).Msg("worker pool started")
}

// Submit queues a matching job for itemID, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, itemID uuid.UUID) error {
	return p.submit(ctx, job{itemID: itemID})
}

func (p *Pool) submit(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	if !p.started {
		return ErrPoolNotStarted
	}

	select {
	case p.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, drains the queue and waits for the workers
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	g := p.group
	p.mu.Unlock()

	if g == nil {
		return nil
	}
	err := g.Wait()
	p.logger.Info().Int64("completed", p.completed.Load()).Msg("worker pool stopped")
	return err
}

// Stats returns the current counters
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.jobs),
		Completed: p.completed.Load(),
		Skipped:   p.skipped.Load(),
		Failed:    p.failed.Load(),
		Matches:   p.matches.Load(),
		Backfill:  p.backfill.Held(),
	}
}

func (p *Pool) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			created, err := p.process(ctx, j.itemID)
			if j.done != nil {
				j.done(created, err)
			}
		}
	}
}

// process runs one job. Archived or deleted items are skipped.
func (p *Pool) process(ctx context.Context, itemID uuid.UUID) (int, error) {
	log := p.logger.With().Str("item_id", itemID.String()).Logger()

	item, err := p.store.GetItem(ctx, itemID)
	if errors.Is(err, storage.ErrNotFound) {
		p.skipped.Add(1)
		log.Debug().Msg("item gone before matching")
		return 0, nil
	}
	if err != nil {
		p.failed.Add(1)
		log.Error().Err(err).Msg("failed to load item for matching")
		return 0, err
	}
	if !item.IsActive {
		p.skipped.Add(1)
		log.Debug().Msg("item archived before matching")
		return 0, nil
	}

	created, err := p.matcher.Run(ctx, item)
	if err != nil {
		p.failed.Add(1)
		log.Error().Err(err).Msg("matching failed")
		return 0, err
	}

	p.completed.Add(1)
	p.matches.Add(int64(len(created)))
	if len(created) > 0 && p.onMatch != nil {
		p.onMatch(created)
	}
	log.Debug().Int("matches", len(created)).Msg("matching finished")
	return len(created), nil
}

// Backfill re-runs matching for every active item through the pool and
// waits for those jobs. Only one backfill runs at a time.
func (p *Pool) Backfill(ctx context.Context) (*BackfillResult, error) {
	if !p.backfill.TryAcquire() {
		return nil, ErrBackfillRunning
	}
	defer p.backfill.Release()

	start := time.Now()
	items, err := p.store.ListItems(ctx, storage.ItemFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active items: %w", err)
	}
	p.logger.Info().Int("items", len(items)).Msg("backfill started")

	var (
		wg      sync.WaitGroup
		matches atomic.Int64
		failed  atomic.Int64
	)
	// Oldest first so earlier reports get the first pick of pairs
	for i := len(items) - 1; i >= 0; i-- {
		wg.Add(1)
		j := job{itemID: items[i].ID, done: func(created int, err error) {
			defer wg.Done()
			if err != nil {
				failed.Add(1)
				return
			}
			matches.Add(int64(created))
		}}
		if err := p.submit(ctx, j); err != nil {
			wg.Done()
			return nil, fmt.Errorf("backfill interrupted: %w", err)
		}
	}
	if err := wait(ctx, &wg); err != nil {
		return nil, fmt.Errorf("backfill interrupted: %w", err)
	}

	result := &BackfillResult{
		Items:    len(items),
		Matches:  int(matches.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	p.logger.Info().
		Int("items", result.Items).
		Int("matches", result.Matches).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("backfill finished")
	return result, nil
}

// wait blocks until wg is done or ctx ends
func wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
