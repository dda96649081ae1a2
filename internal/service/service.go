// Package service is the application façade over storage, embeddings,
// matching, search and the match lifecycle.
//
// Every write that can change search results purges the search cache.
// Matching never runs on the caller's goroutine: a report returns once the
// item is stored and queued.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/lostfound/internal/config"
	"github.com/dshills/lostfound/internal/embedder"
	"github.com/dshills/lostfound/internal/imaging"
	"github.com/dshills/lostfound/internal/lifecycle"
	"github.com/dshills/lostfound/internal/notify"
	"github.com/dshills/lostfound/internal/searcher"
	"github.com/dshills/lostfound/internal/storage"
	"github.com/dshills/lostfound/internal/worker"
	"github.com/dshills/lostfound/pkg/types"
)

// ErrInvalidUser is returned for incomplete registration data
var ErrInvalidUser = errors.New("invalid user")

// Embedder produces the vectors stored with each item
type Embedder interface {
	Bundle(ctx context.Context, description string, image []byte) (*embedder.Bundle, error)
	State() embedder.State
	Backend() string
}

// Queue runs matching jobs in the background
type Queue interface {
	Submit(ctx context.Context, itemID uuid.UUID) error
	Backfill(ctx context.Context) (*worker.BackfillResult, error)
	Stats() worker.Stats
}

// ImageStore persists processed item images
type ImageStore interface {
	Save(data []byte) (string, error)
	Remove(url string) error
}

// ResolutionNotifier is told about approved matches after commit
type ResolutionNotifier interface {
	MatchResolved(ctx context.Context, ev notify.MatchResolved)
}

// Deps are the collaborators of a Service
type Deps struct {
	Store     storage.Storage
	Embedder  Embedder
	Images    ImageStore
	Queue     Queue
	Searcher  *searcher.Searcher
	Lifecycle *lifecycle.Controller
	Notifier  ResolutionNotifier // Optional
	Uploads   config.UploadsConfig
}

// Service implements the lost-and-found operations
type Service struct {
	store     storage.Storage
	embedder  Embedder
	images    ImageStore
	queue     Queue
	searcher  *searcher.Searcher
	lifecycle *lifecycle.Controller
	notifier  ResolutionNotifier
	uploads   config.UploadsConfig
	logger    zerolog.Logger
}

func New(deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		store:     deps.Store,
		embedder:  deps.Embedder,
		images:    deps.Images,
		queue:     deps.Queue,
		searcher:  deps.Searcher,
		lifecycle: deps.Lifecycle,
		notifier:  deps.Notifier,
		uploads:   deps.Uploads,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// CreateUserInput holds registration data
type CreateUserInput struct {
	Name          string
	Email         string
	RollNumber    string
	Hostel        string
	ContactNumber string
	Admin         bool
}

// CreateUser registers a campus member. Emails are unique, case-insensitively.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*types.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidUser)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: email %q: %v", ErrInvalidUser, in.Email, err)
	}

	user := &types.User{
		Name:          name,
		Email:         addr.Address,
		RollNumber:    strings.TrimSpace(in.RollNumber),
		Hostel:        strings.TrimSpace(in.Hostel),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		Role:          types.RoleUser,
	}
	if in.Admin {
		user.Role = types.RoleAdmin
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user created")
	return user, nil
}

// GetUser returns the user with id
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return s.store.GetUser(ctx, id)
}

// ReportInput describes a new lost or found report
type ReportInput struct {
	Status      types.ItemStatus
	Description string
	Location    string
	Image       []byte // Raw upload; required for FOUND

	// Admin-only: report for the user with this email
	OnBehalfOf string
	// Admin-only: the office itself found the item
	Office bool
}

// ReportItem validates, embeds and stores a report, then queues matching.
func (s *Service) ReportItem(ctx context.Context, actorID uuid.UUID, in ReportInput) (*types.Item, error) {
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("reporter: %w", err)
	}

	reporter := actor
	adminReport := in.Office || in.OnBehalfOf != ""
	if adminReport && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can file office or on-behalf reports", types.ErrForbidden)
	}
	if in.Office && in.Status != types.StatusFound {
		return nil, types.ErrOfficeReportStatus
	}
	if in.OnBehalfOf != "" && !in.Office {
		reporter, err = s.store.GetUserByEmail(ctx, in.OnBehalfOf)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", in.OnBehalfOf, err)
		}
	}

	description := strings.TrimSpace(in.Description)
	location := strings.TrimSpace(in.Location)
	switch {
	case !in.Status.Valid():
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidStatus, in.Status)
	case description == "":
		return nil, types.ErrEmptyDescription
	case location == "":
		return nil, types.ErrEmptyLocation
	case in.Status == types.StatusFound && len(in.Image) == 0:
		return nil, types.ErrImageRequired
	}

	var image []byte
	if len(in.Image) > 0 {
		processed, err := imaging.Process(in.Image, s.uploads.MaxBytes)
		if err != nil {
			return nil, err
		}
		image = processed.Data
	}

	bundle, err := s.embedder.Bundle(ctx, description, image)
	if err != nil {
		return nil, fmt.Errorf("failed to embed report: %w", err)
	}

	item := &types.Item{
		ReporterID:      reporter.ID,
		Status:          in.Status,
		Description:     description,
		Location:        location,
		TextVector:      bundle.Text,
		CrossModalText:  bundle.CrossModalText,
		CrossModalImage: bundle.Image,
		IsActive:        true,
		IsAdminReport:   adminReport,
		ReportedAt:      time.Now().UTC(),
	}
	if image != nil {
		url, err := s.images.Save(image)
		if err != nil {
			return nil, err
		}
		item.ImageURL = url
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		s.removeImage(item.ImageURL)
		return nil, err
	}
	s.searcher.InvalidateCache()

	s.logger.Info().
		Str("item_id", item.ID.String()).
		Str("status", string(item.Status)).
		Bool("admin_report", item.IsAdminReport).
		Msg("item reported")

	// The report stands even when matching cannot be queued; a backfill
	// picks the item up later.
	if err := s.queue.Submit(ctx, item.ID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", item.ID.String()).Msg("failed to queue matching")
	}
	return item, nil
}

func (s *Service) ownedItem(ctx context.Context, actorID, itemID uuid.UUID) (*types.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.ReporterID != actorID {
		return nil, fmt.Errorf("%w: item %s belongs to another user", types.ErrForbidden, itemID)
	}
	return item, nil
}

// ResolveItem archives the actor's own LOST item. FOUND items close
// through match approval.
func (s *Service) ResolveItem(ctx context.Context, actorID, itemID uuid.UUID) (*types.Item, error) {
	item, err := s.ownedItem(ctx, actorID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != types.StatusLost {
		return nil, types.ErrNotResolvable
	}

	if err := s.store.UpdateItemFlags(ctx, item.ID, false, item.HasMatch); err != nil {
		return nil, err
	}
	item.IsActive = false
	s.searcher.InvalidateCache()
	s.logger.Info().Str("item_id", item.ID.String()).Msg("item resolved")
	return item, nil
}

// DeleteItem removes the actor's own item, its matches and its image.
// Items with an approved match must be resolved instead.
func (s *Service) DeleteItem(ctx context.Context, actorID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, actorID, itemID)
	if err != nil {
		return err
	}

	approved, err := s.store.ListMatches(ctx, storage.MatchFilter{
		Status:  types.MatchApproved,
		ItemIDs: []uuid.UUID{item.ID},
		Limit:   1,
	})
	if err != nil {
		return err
	}
	if len(approved) > 0 {
		return types.ErrMatchApproved
	}

	if err := s.store.DeleteItem(ctx, item.ID); err != nil {
		return err
	}
	s.removeImage(item.ImageURL)
	s.searcher.InvalidateCache()
	s.logger.Info().Str("item_id", item.ID.String()).Msg("item deleted")
	return nil
}

func (s *Service) removeImage(url string) {
	if url == "" {
		return
	}
	if err := s.images.Remove(url); err != nil {
		s.logger.Warn().Err(err).Str("image_url", url).Msg("failed to remove image")
	}
}

// FoundFilter narrows ListFoundItems
type FoundFilter struct {
	Location string
	After    time.Time
	Before   time.Time
	Limit    int
}

// ListFoundItems returns active FOUND items, newest first
func (s *Service) ListFoundItems(ctx context.Context, f FoundFilter) ([]*types.Item, error) {
	return s.store.ListItems(ctx, storage.ItemFilter{
		Status:         types.StatusFound,
		ActiveOnly:     true,
		Location:       strings.TrimSpace(f.Location),
		ReportedAfter:  f.After,
		ReportedBefore: f.Before,
		Limit:          f.Limit,
	})
}

// ListUserItems returns every item the user reported, newest first
func (s *Service) ListUserItems(ctx context.Context, userID uuid.UUID) ([]*types.Item, error) {
	return s.store.ListItems(ctx, storage.ItemFilter{ReporterID: userID})
}

// MatchView is a match with both of its items
type MatchView struct {
	Match *types.Match
	Lost  *types.Item
	Found *types.Item
}

// MatchesForUser lists matches where the user is loser or finder, newest first
func (s *Service) MatchesForUser(ctx context.Context, userID uuid.UUID, status types.MatchStatus) ([]*MatchView, error) {
	matches, err := s.store.ListMatches(ctx, storage.MatchFilter{UserID: userID, Status: status})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []*MatchView{}, nil
	}

	ids := make([]uuid.UUID, 0, 2*len(matches))
	for _, m := range matches {
		ids = append(ids, m.LostItemID, m.FoundItemID)
	}
	items, err := s.store.ListItems(ctx, storage.ItemFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	views := make([]*MatchView, len(matches))
	for i, m := range matches {
		views[i] = &MatchView{Match: m, Lost: byID[m.LostItemID], Found: byID[m.FoundItemID]}
	}
	return views, nil
}

// pendingMatch loads a match and the acting user, refusing resolved matches
func (s *Service) pendingMatch(ctx context.Context, actorID, matchID uuid.UUID) (*types.Match, *types.User, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if match.Status != types.MatchPending {
		return nil, nil, types.ErrNotPending
	}
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("actor: %w", err)
	}
	return match, actor, nil
}

// ApproveMatch confirms a pending match for its loser and notifies both
// parties once the change is committed.
func (s *Service) ApproveMatch(ctx context.Context, actorID, matchID uuid.UUID) (*lifecycle.Decision, error) {
	match, actor, err := s.pendingMatch(ctx, actorID, matchID)
	if err != nil {
		return nil, err
	}

	decision, err := s.lifecycle.Approve(ctx, match, actor)
	if err != nil {
		return nil, err
	}
	s.searcher.InvalidateCache()

	if s.notifier != nil {
		s.notifier.MatchResolved(ctx, notify.MatchResolved{
			Match:         decision.Match,
			Lost:          decision.Lost,
			Found:         decision.Found,
			LoserContact:  decision.LoserContact,
			FinderContact: decision.FinderContact,
		})
	}
	return decision, nil
}

// RejectMatch declines a pending match for its loser
func (s *Service) RejectMatch(ctx context.Context, actorID, matchID uuid.UUID) (*types.Match, error) {
	match, actor, err := s.pendingMatch(ctx, actorID, matchID)
	if err != nil {
		return nil, err
	}

	rejected, err := s.lifecycle.Reject(ctx, match, actor)
	if err != nil {
		return nil, err
	}
	s.searcher.InvalidateCache()
	return rejected, nil
}

// SearchInput is a user-facing search request
type SearchInput struct {
	Query           string
	Mode            searcher.Mode
	Status          types.ItemStatus
	IncludeArchived bool
	Limit           int
}

// Search ranks items for the actor. Admin mode and archived items are
// admin-only.
func (s *Service) Search(ctx context.Context, actorID uuid.UUID, in SearchInput) (*searcher.Response, error) {
	mode, err := searcher.ParseMode(string(in.Mode))
	if err != nil {
		return nil, err
	}
	if mode == searcher.ModeAdmin || in.IncludeArchived {
		actor, err := s.store.GetUser(ctx, actorID)
		if err != nil {
			return nil, fmt.Errorf("actor: %w", err)
		}
		if !actor.IsAdmin() {
			return nil, fmt.Errorf("%w: admin search requires the admin role", types.ErrForbidden)
		}
	}

	return s.searcher.Search(ctx, searcher.Request{
		Query: in.Query,
		Mode:  mode,
		Options: searcher.Options{
			Status:          in.Status,
			IncludeArchived: in.IncludeArchived,
			Limit:           in.Limit,
		},
		UseCache: true,
	})
}

// RematchAll re-runs matching over every active item. Admin only.
func (s *Service) RematchAll(ctx context.Context, actorID uuid.UUID) (*worker.BackfillResult, error) {
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("actor: %w", err)
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: rematch requires the admin role", types.ErrForbidden)
	}

	result, err := s.queue.Backfill(ctx)
	if err != nil {
		return nil, err
	}
	s.searcher.InvalidateCache()
	return result, nil
}

// Status is a point-in-time view of the service
type Status struct {
	Stats        *storage.Stats
	Embedder     string
	EmbedderUp   bool
	Backend      string
	Worker       worker.Stats
	CacheEntries int
}

// Status reports storage counters, embedder state and worker load
func (s *Service) Status(ctx context.Context) (*Status, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	state := s.embedder.State()
	return &Status{
		Stats:        stats,
		Embedder:     state.String(),
		EmbedderUp:   state == embedder.StateReady,
		Backend:      s.embedder.Backend(),
		Worker:       s.queue.Stats(),
		CacheEntries: s.searcher.CacheLen(),
	}, nil
}
