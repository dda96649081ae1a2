package notify

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/lostfound/internal/config"
	"github.com/dshills/lostfound/pkg/types"
)

// MatchCreated describes a freshly proposed match. Loser and Finder may be
// nil when the reporter row is gone; mail then goes to the office.
type MatchCreated struct {
	Match  *types.Match
	Lost   *types.Item
	Found  *types.Item
	Loser  *types.User
	Finder *types.User
}

// MatchResolved describes an approved match and the disclosed contacts
type MatchResolved struct {
	Match         *types.Match
	Lost          *types.Item
	Found         *types.Item
	LoserContact  types.Contact
	FinderContact types.Contact
}

// view is the template data for every message
type view struct {
	Greeting      string
	Match         *types.Match
	Lost          *types.Item
	Found         *types.Item
	LoserContact  types.Contact
	FinderContact types.Contact
}

// Dispatcher renders and sends match notifications
type Dispatcher struct {
	sender Sender
	office config.OfficeConfig
	logger zerolog.Logger
}

func NewDispatcher(sender Sender, office config.OfficeConfig, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		office: office,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// MatchCreated tells the loser a candidate was found and the finder that
// confirmation is pending.
func (d *Dispatcher) MatchCreated(ctx context.Context, ev MatchCreated) {
	base := view{Match: ev.Match, Lost: ev.Lost, Found: ev.Found}

	loserView := base
	loserView.Greeting = "there"
	loserEmail := d.office.Email
	if ev.Loser != nil {
		loserView.Greeting = ev.Loser.Name
		loserEmail = orDefault(ev.Loser.Email, d.office.Email)
	}

	finderView := base
	finderView.Greeting = d.office.Name
	finderEmail := d.office.Email
	if ev.Finder != nil {
		finderView.Greeting = ev.Finder.Name
		finderEmail = orDefault(ev.Finder.Email, d.office.Email)
	}

	d.sendAll(ctx, []pending{
		{loserEmail, SubjectMatchForLoser, "created_loser", loserView},
		{finderEmail, SubjectMatchForFinder, "created_finder", finderView},
	})
}

// MatchResolved sends each party the other's contact. When the found item
// was an admin report the office gets a summary too.
func (d *Dispatcher) MatchResolved(ctx context.Context, ev MatchResolved) {
	base := view{
		Match:         ev.Match,
		Lost:          ev.Lost,
		Found:         ev.Found,
		LoserContact:  ev.LoserContact,
		FinderContact: ev.FinderContact,
	}

	loserView := base
	loserView.Greeting = orDefault(ev.LoserContact.Name, "there")
	finderView := base
	finderView.Greeting = orDefault(ev.FinderContact.Name, d.office.Name)

	mails := []pending{
		{orDefault(ev.LoserContact.Email, d.office.Email), SubjectFoundForLoser, "resolved_loser", loserView},
		{orDefault(ev.FinderContact.Email, d.office.Email), SubjectConfirmed, "resolved_finder", finderView},
	}
	if ev.Found != nil && ev.Found.IsAdminReport {
		officeView := base
		officeView.Greeting = d.office.Name
		mails = append(mails, pending{d.office.Email, SubjectOfficeApproved, "resolved_office", officeView})
	}
	d.sendAll(ctx, mails)
}

type pending struct {
	to       string
	subject  string
	template string
	data     view
}

// sendAll delivers mails concurrently and logs failures
func (d *Dispatcher) sendAll(ctx context.Context, mails []pending) {
	var g errgroup.Group
	for _, m := range mails {
		g.Go(func() error {
			d.send(ctx, m)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) send(ctx context.Context, m pending) {
	if m.to == "" {
		return
	}
	html, err := render(m.template, m.data)
	if err != nil {
		d.logger.Error().Err(err).Str("subject", m.subject).Msg("email render failed")
		return
	}
	if err := d.sender.Send(ctx, Message{To: []string{m.to}, Subject: m.subject, HTML: html}); err != nil {
		d.logger.Warn().Err(err).Str("to", m.to).Str("subject", m.subject).Msg("email delivery failed")
		return
	}
	d.logger.Debug().Str("to", m.to).Str("subject", m.subject).Msg("email delivered")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
