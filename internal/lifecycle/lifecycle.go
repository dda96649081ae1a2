// Package lifecycle moves matches from PENDING to APPROVED or REJECTED.
//
// Only the loser (the reporter of the lost item) may decide. Both
// transitions are terminal. The caller checks that the match is still
// PENDING before invoking the controller.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dshills/lostfound/internal/config"
	"github.com/dshills/lostfound/internal/storage"
	"github.com/dshills/lostfound/pkg/types"
)

// Decision is the outcome of an approval
type Decision struct {
	Match         *types.Match
	Lost          *types.Item
	Found         *types.Item
	LoserContact  types.Contact
	FinderContact types.Contact
}

// Controller applies owner decisions to matches
type Controller struct {
	store  storage.Storage
	office types.Contact
	logger zerolog.Logger
}

func New(store storage.Storage, office config.OfficeConfig, logger zerolog.Logger) *Controller {
	contact := types.Contact{
		Name:          office.Name,
		Email:         office.Email,
		ContactNumber: office.ContactNumber,
	}
	return &Controller{
		store:  store,
		office: contact,
		logger: logger.With().Str("component", "lifecycle").Logger(),
	}
}

func authorize(match *types.Match, actor *types.User) error {
	if actor == nil || match.LoserID != actor.ID {
		return fmt.Errorf("%w: only the owner of the lost item can decide on match %s", types.ErrForbidden, match.ID)
	}
	return nil
}

// Approve marks match APPROVED, archives both items with the has-match
// flag and returns the contacts each party may now see. Nothing changes
// when actor is not the loser.
func (c *Controller) Approve(ctx context.Context, match *types.Match, actor *types.User) (*Decision, error) {
	if err := authorize(match, actor); err != nil {
		return nil, err
	}

	tx, err := c.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin approval: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	lost, err := tx.GetItem(ctx, match.LostItemID)
	if err != nil {
		return nil, err
	}
	found, err := tx.GetItem(ctx, match.FoundItemID)
	if err != nil {
		return nil, err
	}

	if err := tx.UpdateMatchStatus(ctx, match.ID, types.MatchApproved); err != nil {
		return nil, err
	}
	for _, item := range []*types.Item{lost, found} {
		if err := tx.UpdateItemFlags(ctx, item.ID, false, true); err != nil {
			return nil, err
		}
		item.IsActive = false
		item.HasMatch = true
	}

	loserContact, err := c.contactFor(ctx, tx, lost)
	if err != nil {
		return nil, err
	}
	finderContact, err := c.contactFor(ctx, tx, found)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	approved := *match
	approved.Status = types.MatchApproved
	c.logger.Info().Str("match_id", match.ID.String()).Str("actor", actor.ID.String()).Msg("match approved")

	return &Decision{
		Match:         &approved,
		Lost:          lost,
		Found:         found,
		LoserContact:  loserContact,
		FinderContact: finderContact,
	}, nil
}

// Reject marks match REJECTED. Items are left as they are.
func (c *Controller) Reject(ctx context.Context, match *types.Match, actor *types.User) (*types.Match, error) {
	if err := authorize(match, actor); err != nil {
		return nil, err
	}
	if err := c.store.UpdateMatchStatus(ctx, match.ID, types.MatchRejected); err != nil {
		return nil, err
	}

	rejected := *match
	rejected.Status = types.MatchRejected
	c.logger.Info().Str("match_id", match.ID.String()).Str("actor", actor.ID.String()).Msg("match rejected")
	return &rejected, nil
}

// contactFor discloses the office for office-filed reports by an admin,
// otherwise the reporter's own contact.
func (c *Controller) contactFor(ctx context.Context, s storage.Storage, item *types.Item) (types.Contact, error) {
	reporter, err := s.GetUser(ctx, item.ReporterID)
	if err != nil {
		return types.Contact{}, fmt.Errorf("reporter of item %s: %w", item.ID, err)
	}
	return ContactFor(item, reporter, c.office), nil
}

// ContactFor picks the contact disclosed for item
func ContactFor(item *types.Item, reporter *types.User, office types.Contact) types.Contact {
	if item.IsAdminReport && reporter.IsAdmin() {
		return office
	}
	return reporter.Contact()
}
