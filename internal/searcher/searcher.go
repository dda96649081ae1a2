package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/lostfound/internal/config"
	"github.com/dshills/lostfound/internal/embedder"
	"github.com/dshills/lostfound/internal/fuzzy"
	"github.com/dshills/lostfound/internal/similarity"
	"github.com/dshills/lostfound/internal/storage"
	"github.com/dshills/lostfound/pkg/types"
)

// Mode defines how search is performed
type Mode string

const (
	ModeHybrid Mode = "hybrid" // Fuzzy + vector, weighted
	ModeFuzzy  Mode = "fuzzy"  // Fuzzy string matching only
	ModeVector Mode = "vector" // Vector similarity only
	ModeAdmin  Mode = "admin"  // Hybrid over archived items plus approved pairs
)

// ParseMode converts a case-insensitive string to a Mode; empty means hybrid
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeHybrid, nil
	case ModeHybrid, ModeFuzzy, ModeVector, ModeAdmin:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported search mode: %q", s)
	}
}

const (
	// MinQueryLength is the shortest trimmed query that produces results
	MinQueryLength = 2

	// ContainmentFloor is the fuzzy score granted when the query appears
	// verbatim in the description or location
	ContainmentFloor = 0.90

	// subScoreFloor is the minimum fuzzy or vector score carried into a hybrid blend
	subScoreFloor = 0.15
	// candidateFactor widens each sub-search before blending
	candidateFactor = 3
	// adminLimitFactor widens the admin base search before pairing
	adminLimitFactor = 2
	// pairedDiscount scales the mean score granted to approved counterparts
	pairedDiscount = 0.85

	maxLimit = 100
)

// Options narrows the candidate set and shapes the result list
type Options struct {
	Status          types.ItemStatus // Empty means both
	IncludeArchived bool
	Limit           int
	MinScore        float64
}

// Request contains parameters for a search operation
type Request struct {
	Query    string
	Mode     Mode
	Options  Options
	UseCache bool
}

// Response contains search results and metadata
type Response struct {
	Results  []types.ScoredItem
	Mode     Mode
	Degraded bool // Query embedding unavailable; ranked by fuzzy score only
	CacheHit bool
	Duration time.Duration
}

// QueryEncoder embeds a search query with the text model
type QueryEncoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher ranks items against free-text queries
type Searcher struct {
	storage      storage.Storage
	encoder      QueryEncoder
	fuzzyWeight  float64
	vectorWeight float64
	minScore     float64
	defaultLimit int
	ttl          time.Duration
	cache        *lru.Cache[[32]byte, *cacheEntry]
	cacheMu      sync.RWMutex
	generation   uint64 // Bumped by InvalidateCache; guarded by cacheMu
	logger       zerolog.Logger
}

// New creates a Searcher. encoder may be nil, in which case every search
// is ranked by fuzzy score alone.
func New(store storage.Storage, encoder QueryEncoder, cfg config.SearchConfig, logger zerolog.Logger) *Searcher {
	size := cfg.CacheSize
	if size <= 0 {
		size = 1000
	}
	cache, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		// Only returned for a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage:      store,
		encoder:      encoder,
		fuzzyWeight:  cfg.FuzzyWeight,
		vectorWeight: cfg.VectorWeight,
		minScore:     cfg.MinScore,
		defaultLimit: cfg.DefaultLimit,
		ttl:          cfg.CacheTTL,
		cache:        cache,
		logger:       logger.With().Str("component", "searcher").Logger(),
	}
}

// Search embeds the query and dispatches on req.Mode. When the query
// cannot be embedded, vector and hybrid searches fall back to fuzzy ranking.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}
	if len([]rune(req.Query)) < MinQueryLength {
		return &Response{Results: []types.ScoredItem{}, Mode: req.Mode}, nil
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	generation := s.cacheGeneration()
	response := &Response{Mode: req.Mode}

	var queryVec []float32
	if req.Mode != ModeFuzzy {
		vec, err := s.encodeQuery(ctx, req.Query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			response.Degraded = true
		}
		queryVec = vec
	}

	var results []types.ScoredItem
	var err error
	switch {
	case req.Mode == ModeFuzzy:
		results, err = s.Fuzzy(ctx, req.Query, req.Options)
	case req.Mode == ModeVector && !response.Degraded:
		results, err = s.Vector(ctx, queryVec, req.Options)
	case req.Mode == ModeVector:
		results, err = s.Fuzzy(ctx, req.Query, req.Options)
	case req.Mode == ModeAdmin:
		results, err = s.Admin(ctx, req.Query, queryVec, req.Options)
	default:
		results, err = s.Hybrid(ctx, req.Query, queryVec, req.Options)
	}
	if err != nil {
		return nil, err
	}

	response.Results = results
	response.Duration = time.Since(startTime)

	s.logger.Debug().
		Str("mode", string(req.Mode)).
		Bool("degraded", response.Degraded).
		Int("results", len(results)).
		Dur("duration", response.Duration).
		Msg("search completed")

	if req.UseCache && len(results) > 0 {
		s.storeInCache(req, response, generation)
	}
	return response, nil
}

func (s *Searcher) encodeQuery(ctx context.Context, query string) ([]float32, error) {
	if s.encoder == nil {
		return nil, embedder.ErrNotReady
	}
	vec, err := s.encoder.EncodeText(ctx, query)
	if err != nil {
		if errors.Is(err, embedder.ErrNotReady) {
			s.logger.Debug().Msg("embedder not ready, ranking by fuzzy score")
		} else {
			s.logger.Warn().Err(err).Msg("query embedding failed, ranking by fuzzy score")
		}
		return nil, err
	}
	return vec, nil
}

// Fuzzy ranks items by the best weighted fuzzy ratio of the query against
// description and location.
func (s *Searcher) Fuzzy(ctx context.Context, query string, opts Options) ([]types.ScoredItem, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []types.ScoredItem{}, nil
	}
	opts = s.withDefaults(opts)

	items, err := s.candidates(ctx, opts)
	if err != nil {
		return nil, err
	}
	return rankFuzzy(query, items, opts.MinScore, opts.Limit), nil
}

// Vector ranks items by cosine similarity of their text vector to queryVec.
// Items without a usable vector are left out.
func (s *Searcher) Vector(ctx context.Context, queryVec []float32, opts Options) ([]types.ScoredItem, error) {
	if len(queryVec) == 0 {
		return []types.ScoredItem{}, nil
	}
	opts = s.withDefaults(opts)

	items, err := s.candidates(ctx, opts)
	if err != nil {
		return nil, err
	}
	return rankVector(queryVec, items, opts.MinScore, opts.Limit), nil
}

// Hybrid blends fuzzy and vector scores. Both sub-searches keep scores
// down to a low floor over a widened window; an item missing from one
// side scores 0 there. Without a query vector the fuzzy ranking is
// returned as is.
func (s *Searcher) Hybrid(ctx context.Context, query string, queryVec []float32, opts Options) ([]types.ScoredItem, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []types.ScoredItem{}, nil
	}
	opts = s.withDefaults(opts)

	items, err := s.candidates(ctx, opts)
	if err != nil {
		return nil, err
	}

	wide := opts.Limit * candidateFactor
	var fuzzyResults, vectorResults []types.ScoredItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fuzzyResults = rankFuzzy(query, items, subScoreFloor, wide)
		return gctx.Err()
	})
	if len(queryVec) > 0 {
		g.Go(func() error {
			vectorResults = rankVector(queryVec, items, subScoreFloor, wide)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(queryVec) == 0 {
		return truncate(fuzzyResults, opts.Limit), nil
	}
	return s.blend(fuzzyResults, vectorResults, opts), nil
}

type blended struct {
	item          *types.Item
	fuzzy, vector float64
}

func (s *Searcher) blend(fuzzyResults, vectorResults []types.ScoredItem, opts Options) []types.ScoredItem {
	byID := make(map[string]*blended, len(fuzzyResults)+len(vectorResults))
	order := make([]*blended, 0, len(fuzzyResults)+len(vectorResults))

	for _, r := range fuzzyResults {
		b := &blended{item: r.Item, fuzzy: r.Score}
		byID[r.Item.ID.String()] = b
		order = append(order, b)
	}
	for _, r := range vectorResults {
		if b, ok := byID[r.Item.ID.String()]; ok {
			b.vector = r.Score
			continue
		}
		b := &blended{item: r.Item, vector: r.Score}
		byID[r.Item.ID.String()] = b
		order = append(order, b)
	}

	results := make([]types.ScoredItem, 0, len(order))
	for _, b := range order {
		score := b.fuzzy*s.fuzzyWeight + b.vector*s.vectorWeight
		if score >= opts.MinScore {
			results = append(results, types.ScoredItem{Item: b.item, Score: score})
		}
	}
	sortScored(results)
	return truncate(results, opts.Limit)
}

// Admin runs a hybrid search over archived items as well and then adds
// every item approved-matched with a result, scored just under the mean.
func (s *Searcher) Admin(ctx context.Context, query string, queryVec []float32, opts Options) ([]types.ScoredItem, error) {
	opts = s.withDefaults(opts)
	opts.IncludeArchived = true
	limit := opts.Limit

	wide := opts
	wide.Limit = limit * adminLimitFactor
	base, err := s.Hybrid(ctx, query, queryVec, wide)
	if err != nil {
		return nil, err
	}
	if len(base) == 0 {
		return base, nil
	}

	seen := make(map[string]bool, len(base))
	ids := make([]uuid.UUID, 0, len(base))
	var total float64
	for _, r := range base {
		seen[r.Item.ID.String()] = true
		ids = append(ids, r.Item.ID)
		total += r.Score
	}

	matches, err := s.storage.ListMatches(ctx, storage.MatchFilter{
		Status:  types.MatchApproved,
		ItemIDs: ids,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load approved matches: %w", err)
	}

	var missing []uuid.UUID
	for _, m := range matches {
		for _, id := range []uuid.UUID{m.LostItemID, m.FoundItemID} {
			if !seen[id.String()] {
				seen[id.String()] = true
				missing = append(missing, id)
			}
		}
	}
	if len(missing) == 0 {
		return truncate(base, limit), nil
	}

	paired, err := s.storage.ListItems(ctx, storage.ItemFilter{IDs: missing})
	if err != nil {
		return nil, fmt.Errorf("failed to load paired items: %w", err)
	}

	pairedScore := max(opts.MinScore, total/float64(len(base))*pairedDiscount)
	results := append([]types.ScoredItem{}, base...)
	for _, item := range paired {
		results = append(results, types.ScoredItem{Item: item, Score: pairedScore})
	}
	sortScored(results)
	return truncate(results, limit), nil
}

func (s *Searcher) candidates(ctx context.Context, opts Options) ([]*types.Item, error) {
	items, err := s.storage.ListItems(ctx, storage.ItemFilter{
		Status:     opts.Status,
		ActiveOnly: !opts.IncludeArchived,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load search candidates: %w", err)
	}
	return items, nil
}

func rankFuzzy(query string, items []*types.Item, minScore float64, limit int) []types.ScoredItem {
	lower := strings.ToLower(query)
	results := make([]types.ScoredItem, 0, len(items))
	for _, item := range items {
		score := FuzzyScore(query, lower, item)
		if score >= minScore {
			results = append(results, types.ScoredItem{Item: item, Score: score})
		}
	}
	sortScored(results)
	return truncate(results, limit)
}

// FuzzyScore is the fuzzy relevance of item for query; lowerQuery is the
// lowercased query used for the containment check.
func FuzzyScore(query, lowerQuery string, item *types.Item) float64 {
	score := max(fuzzy.WRatio(query, item.Description), fuzzy.WRatio(query, item.Location))
	if strings.Contains(strings.ToLower(item.Description), lowerQuery) ||
		strings.Contains(strings.ToLower(item.Location), lowerQuery) {
		score = max(score, ContainmentFloor)
	}
	return score
}

func rankVector(queryVec []float32, items []*types.Item, minScore float64, limit int) []types.ScoredItem {
	rows := make([][]float32, len(items))
	for i, item := range items {
		rows[i] = item.TextVector
	}
	scores, ok := similarity.Batch(queryVec, rows)

	results := make([]types.ScoredItem, 0, len(items))
	for i, item := range items {
		if ok[i] && scores[i] >= minScore {
			results = append(results, types.ScoredItem{Item: item, Score: scores[i]})
		}
	}
	sortScored(results)
	return truncate(results, limit)
}

// sortScored sorts by score descending, keeping candidate order on ties
func sortScored(results []types.ScoredItem) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func truncate(results []types.ScoredItem, limit int) []types.ScoredItem {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

func (s *Searcher) withDefaults(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = s.defaultLimit
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > maxLimit {
		opts.Limit = maxLimit
	}
	if opts.MinScore <= 0 {
		opts.MinScore = s.minScore
	}
	return opts
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)

	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return err
	}
	req.Mode = mode

	if req.Options.Status != "" && !req.Options.Status.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidStatus, req.Options.Status)
	}
	req.Options = s.withDefaults(req.Options)
	return nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(req Request) *Response {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}
	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache keeps response unless the cache was invalidated after the
// search read its generation; such a response may predate the write.
func (s *Searcher) storeInCache(req Request, response *Response, generation uint64) {
	if s.ttl <= 0 {
		return
	}
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(s.ttl),
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != generation {
		return
	}
	s.cache.Add(computeQueryHash(req), entry)
}

func (s *Searcher) cacheGeneration() uint64 {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.generation
}

// copyResponse copies the result list and the items it points to
func copyResponse(src *Response) *Response {
	dst := *src
	dst.Results = make([]types.ScoredItem, len(src.Results))
	for i, r := range src.Results {
		item := *r.Item
		dst.Results[i] = types.ScoredItem{Item: &item, Score: r.Score}
	}
	return &dst
}

// computeQueryHash computes a unique hash for a normalized search request
func computeQueryHash(req Request) [32]byte {
	var data strings.Builder
	data.WriteString(strings.ToLower(req.Query))
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	data.WriteString(string(req.Options.Status))
	fmt.Fprintf(&data, "|%t|%d|%.4f", req.Options.IncludeArchived, req.Options.Limit, req.Options.MinScore)
	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops every cached response. Called after any item or
// match write.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.generation++
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}
